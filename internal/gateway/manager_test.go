package gateway

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcstrada/mes-realtime-gateway/internal/auth"
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

// testGateway wires a manager and router with no transport; tests connect
// with a nil websocket conn and inspect the client's send queue directly.
func testGateway(t *testing.T, cfg Config) (*Manager, *Router) {
	t.Helper()

	registry := NewRegistry()
	verifier := auth.NewVerifier(testSecret, 0)
	m := NewManager(registry, verifier, logging.NewNop(), metrics.NewForTest(), nil, cfg)
	r := NewRouter(registry, m, logging.NewNop(), metrics.NewForTest())
	return m, r
}

// recvMessage pops the next queued outbound message without blocking long.
func recvMessage(t *testing.T, c *Client) *Message {
	t.Helper()

	select {
	case v := <-c.send:
		msg, ok := v.(*Message)
		require.True(t, ok, "queued value is not a *Message: %T", v)
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message queued")
		return nil
	}
}

func drainClient(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func TestConnectRejectsBadToken(t *testing.T) {
	m, _ := testGateway(t, Config{})

	_, err := m.Connect(nil, "not-a-token")
	assert.ErrorIs(t, err, auth.ErrAuthentication)
	assert.Empty(t, m.Clients())
}

func TestConnectAutoJoinsStandardRooms(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "worker-17", "plant-a", "supervisor", "operator"))
	require.NoError(t, err)

	rooms := m.registry.Rooms(c.ID)
	assert.ElementsMatch(t, []string{
		"tenant:plant-a",
		"user:worker-17",
		"role:plant-a:supervisor",
		"role:plant-a:operator",
	}, rooms)

	ack := recvMessage(t, c)
	assert.Equal(t, EventConnectionEstablished, ack.Event)
}

func TestConnectAckCarriesConnectionID(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	ack := recvMessage(t, c)
	data, ok := ack.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, c.ID, data["connectionId"])
}

func TestDisconnectPurgesAllState(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "u1", "t1", "supervisor"))
	require.NoError(t, err)

	m.Disconnect(c)

	assert.Empty(t, m.Clients())
	assert.Empty(t, m.registry.Rooms(c.ID))
	assert.Empty(t, m.registry.RoomNames())

	// Second disconnect is a no-op.
	m.Disconnect(c)
	assert.Empty(t, m.Clients())
}

func TestHandleOpSubscribeJoinsEventRoom(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	resp := m.HandleOp(c, OpRequest{Op: OpSubscribe, Events: []string{"order.created", "task.assigned"}})
	assert.True(t, resp.Success)
	assert.Contains(t, m.registry.Rooms(c.ID), "event:t1:order.created")
	assert.Contains(t, m.registry.Rooms(c.ID), "event:t1:task.assigned")

	resp = m.HandleOp(c, OpRequest{Op: OpUnsubscribe, Events: []string{"order.created"}})
	assert.True(t, resp.Success)
	assert.NotContains(t, m.registry.Rooms(c.ID), "event:t1:order.created")
	assert.Contains(t, m.registry.Rooms(c.ID), "event:t1:task.assigned")
}

func TestHandleOpSubscribeRequiresEvents(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	resp := m.HandleOp(c, OpRequest{Op: OpSubscribe})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestHandleOpJoinLeaveRoom(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	resp := m.HandleOp(c, OpRequest{Op: OpJoinRoom, Room: "wc-7", Type: RoomTypeWorkCenter})
	assert.True(t, resp.Success)
	assert.Contains(t, m.registry.Rooms(c.ID), "work_center:t1:wc-7")

	resp = m.HandleOp(c, OpRequest{Op: OpLeaveRoom, Room: "wc-7", Type: RoomTypeWorkCenter})
	assert.True(t, resp.Success)
	assert.NotContains(t, m.registry.Rooms(c.ID), "work_center:t1:wc-7")
}

func TestHandleOpRejectsUnknownRoomType(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	resp := m.HandleOp(c, OpRequest{Op: OpJoinRoom, Room: "x", Type: "warehouse"})
	assert.False(t, resp.Success)
	assert.NotContains(t, m.registry.Rooms(c.ID), "warehouse:t1:x")
}

func TestHandleOpRejectsUnknownOp(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	resp := m.HandleOp(c, OpRequest{Op: "teleport"})
	assert.False(t, resp.Success)
}

func TestJoinAfterDisconnectFails(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	m.Disconnect(c)

	resp := m.HandleOp(c, OpRequest{Op: OpSubscribe, Events: []string{"order.created"}})
	assert.False(t, resp.Success)
	assert.Empty(t, m.registry.Rooms(c.ID))
}

func TestSendToUnknownClient(t *testing.T) {
	m, _ := testGateway(t, Config{})

	err := m.Send("no-such-conn", NewMessage("x", "t1", nil))
	assert.ErrorIs(t, err, ErrUnknownClient)
}

func TestSlowClientIsDropped(t *testing.T) {
	m, _ := testGateway(t, Config{SendBuffer: 1})

	c, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)

	// The connect ack already fills the 1-slot buffer.
	err = m.Send(c.ID, NewMessage("order.created", "t1", nil))
	assert.ErrorIs(t, err, ErrSlowClient)

	// The drop happens asynchronously.
	assert.Eventually(t, func() bool {
		return len(m.Clients()) == 0
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, m.registry.Rooms(c.ID))
}

func TestPresenceBroadcastExcludesSelf(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c1, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)
	drainClient(c1)

	c2, err := m.Connect(nil, testToken(t, "u2", "t1"))
	require.NoError(t, err)

	// c1 sees u2 arrive; c2 only has its own ack queued.
	presence := recvMessage(t, c1)
	assert.Equal(t, EventUserConnected, presence.Event)

	ack := recvMessage(t, c2)
	assert.Equal(t, EventConnectionEstablished, ack.Event)
	select {
	case v := <-c2.send:
		t.Fatalf("unexpected extra message for c2: %v", v)
	default:
	}
}

func TestPresenceStaysWithinTenant(t *testing.T) {
	m, _ := testGateway(t, Config{})

	c1, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)
	drainClient(c1)

	_, err = m.Connect(nil, testToken(t, "u2", "t2"))
	require.NoError(t, err)

	select {
	case v := <-c1.send:
		t.Fatalf("presence leaked across tenants: %v", v)
	default:
	}
}

func TestClientsByTenant(t *testing.T) {
	m, _ := testGateway(t, Config{})

	_, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)
	_, err = m.Connect(nil, testToken(t, "u2", "t1"))
	require.NoError(t, err)
	_, err = m.Connect(nil, testToken(t, "u3", "t2"))
	require.NoError(t, err)

	assert.Len(t, m.Clients(), 3)
	assert.Len(t, m.ClientsByTenant("t1"), 2)
	assert.Len(t, m.ClientsByTenant("t2"), 1)
	assert.Empty(t, m.ClientsByTenant("t3"))
}

func TestShutdownDisconnectsEveryone(t *testing.T) {
	m, _ := testGateway(t, Config{})

	for i := 0; i < 5; i++ {
		_, err := m.Connect(nil, testToken(t, "u1", "t1"))
		require.NoError(t, err)
	}

	m.Shutdown()

	assert.Empty(t, m.Clients())
	assert.Empty(t, m.registry.RoomNames())
}
