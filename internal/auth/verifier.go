package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthentication covers every rejection cause: malformed token, bad
// signature, expiry, missing claims. Callers must refuse the connection
// outright; there are no partial sessions.
var ErrAuthentication = errors.New("authentication failed")

// Identity is extracted once at connect time and bound immutably to the
// connection. A role change requires a reconnect with a fresh token.
type Identity struct {
	UserID   string
	TenantID string
	Roles    []string
}

// Claims defines the gateway's JWT claims structure.
type Claims struct {
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	leeway time.Duration
}

func NewVerifier(secret string, leeway time.Duration) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		leeway: leeway,
	}
}

// Verify validates an HMAC-signed bearer token and extracts the identity
// claims. Stateless; safe for concurrent use.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, fmt.Errorf("%w: missing token", ErrAuthentication)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway), jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid claims", ErrAuthentication)
	}

	if claims.Subject == "" || claims.TenantID == "" {
		return Identity{}, fmt.Errorf("%w: token missing subject or tenant", ErrAuthentication)
	}

	return Identity{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Roles:    claims.Roles,
	}, nil
}

// TokenFromRequest extracts the bearer credential from the handshake
// request: Authorization header first, then the token query parameter.
// The in-band handshake frame (third priority) is read by the socket
// handler after the upgrade.
func TokenFromRequest(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if token := strings.TrimSpace(after); token != "" {
			return token
		}
	}

	return r.URL.Query().Get("token")
}
