package bridge

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcstrada/mes-realtime-gateway/internal/auth"
	"github.com/kcstrada/mes-realtime-gateway/internal/domain"
	"github.com/kcstrada/mes-realtime-gateway/internal/gateway"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/logging"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/metrics"
)

const testSecret = "test-secret-key"

func testToken(t *testing.T, userID, tenantID string, roles ...string) string {
	t.Helper()

	claims := auth.Claims{
		TenantID: tenantID,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// testBridge wires a bridge against an in-process manager and router. The
// AMQP connection is nil; Dispatch is exercised directly.
func testBridge(t *testing.T) (*Bridge, *gateway.Manager) {
	t.Helper()

	registry := gateway.NewRegistry()
	verifier := auth.NewVerifier(testSecret, 0)
	m := gateway.NewManager(registry, verifier, logging.NewNop(), metrics.NewForTest(), nil, gateway.Config{})
	r := gateway.NewRouter(registry, m, logging.NewNop(), metrics.NewForTest())

	return New(r, nil, "test-queue", logging.NewNop(), metrics.NewForTest()), m
}

func event(name, tenantID string, data map[string]any) domain.Event {
	return domain.Event{
		Name:       name,
		TenantID:   tenantID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func TestDispatchTaskAssignedReachesWorkerTwice(t *testing.T) {
	b, m := testBridge(t)

	_, err := m.Connect(nil, testToken(t, "worker-17", "t1"))
	require.NoError(t, err)

	// Raw event plus wrapped notification, both to the worker's user room.
	delivered := b.Dispatch(event("task.assigned", "t1", map[string]any{
		"taskId":   "tk-1",
		"workerId": "worker-17",
	}))
	assert.Equal(t, 2, delivered)
}

func TestDispatchTaskAssignedIgnoresOtherUsers(t *testing.T) {
	b, m := testBridge(t)

	_, err := m.Connect(nil, testToken(t, "worker-99", "t1"))
	require.NoError(t, err)

	delivered := b.Dispatch(event("task.assigned", "t1", map[string]any{
		"taskId":   "tk-1",
		"workerId": "worker-17",
	}))
	assert.Equal(t, 0, delivered)
}

func TestDispatchOrderCreatedFansOut(t *testing.T) {
	b, m := testBridge(t)

	_, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)
	_, err = m.Connect(nil, testToken(t, "u2", "t1", "production_manager"))
	require.NoError(t, err)

	// Tenant leg reaches both; the manager also gets the notification leg.
	delivered := b.Dispatch(event("order.created", "t1", map[string]any{
		"orderId":     "ord-1",
		"orderNumber": "SO-1001",
	}))
	assert.Equal(t, 3, delivered)
}

func TestDispatchEquipmentBreakdown(t *testing.T) {
	b, m := testBridge(t)

	operator, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)
	resp := m.HandleOp(operator, gateway.OpRequest{
		Op:   gateway.OpJoinRoom,
		Room: "wc-7",
		Type: gateway.RoomTypeWorkCenter,
	})
	require.True(t, resp.Success)

	_, err = m.Connect(nil, testToken(t, "u2", "t1", "maintenance_tech"))
	require.NoError(t, err)

	delivered := b.Dispatch(event("equipment.breakdown", "t1", map[string]any{
		"equipmentId":  "eq-3",
		"workCenterId": "wc-7",
	}))
	assert.Equal(t, 2, delivered)
}

func TestDispatchEventTopicSubscriber(t *testing.T) {
	b, m := testBridge(t)

	c, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)
	resp := m.HandleOp(c, gateway.OpRequest{
		Op:     gateway.OpSubscribe,
		Events: []string{"production.metrics_updated"},
	})
	require.True(t, resp.Success)

	// Tenant-wide leg plus the explicit event-topic copy.
	delivered := b.Dispatch(event("production.metrics_updated", "t1", map[string]any{
		"oee": 0.91,
	}))
	assert.Equal(t, 2, delivered)
}

func TestDispatchUnknownEventDropped(t *testing.T) {
	b, m := testBridge(t)

	_, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	delivered := b.Dispatch(event("order.exploded", "t1", map[string]any{"orderId": "ord-1"}))
	assert.Equal(t, 0, delivered)
}

func TestDispatchMissingTenantDropped(t *testing.T) {
	b, m := testBridge(t)

	_, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	delivered := b.Dispatch(event("order.created", "", map[string]any{
		"orderId":     "ord-1",
		"orderNumber": "SO-1001",
	}))
	assert.Equal(t, 0, delivered)
}

func TestDispatchMissingRequiredFieldDropped(t *testing.T) {
	b, m := testBridge(t)

	_, err := m.Connect(nil, testToken(t, "worker-17", "t1"))
	require.NoError(t, err)

	delivered := b.Dispatch(event("task.assigned", "t1", map[string]any{"taskId": "tk-1"}))
	assert.Equal(t, 0, delivered)
}

func TestDispatchNilPayloadDoesNotPanic(t *testing.T) {
	b, m := testBridge(t)

	_, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	// metrics.kpi_updated has no required fields.
	delivered := b.Dispatch(event("metrics.kpi_updated", "t1", nil))
	assert.Equal(t, 1, delivered)
}

func TestEventNamesCoverCatalogue(t *testing.T) {
	names := EventNames()

	assert.Len(t, names, len(catalogue))
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "order.created")
	assert.Contains(t, names, "equipment.breakdown")
	assert.Contains(t, names, "worker.checked_out")
}
