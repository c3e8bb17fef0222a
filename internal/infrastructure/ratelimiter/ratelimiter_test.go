package ratelimiter

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesBurst(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 3})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client-a"), "request %d should pass", i)
	}
	assert.False(t, rl.Allow("client-a"))
}

func TestAllowIsolatesSources(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 1})

	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-b"))
}

func TestRemaining(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 5})

	assert.Equal(t, 5, rl.Remaining("client-a"))
	rl.Allow("client-a")
	rl.Allow("client-a")
	assert.Equal(t, 3, rl.Remaining("client-a"))
}

func TestGetSourceKeyPrefersHeader(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, SourceHeaderKey: "X-Forwarded-For"})

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "10.0.0.1")
	assert.Equal(t, "10.0.0.1", rl.GetSourceKey(r))

	r = httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, r.RemoteAddr, rl.GetSourceKey(r))
}

func TestDefaultsApplied(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 7})

	assert.Equal(t, 7, rl.GetMaxBurst())
}
