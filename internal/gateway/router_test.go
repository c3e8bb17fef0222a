package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	_, r := testGateway(t, Config{})

	tests := []struct {
		name   string
		target Target
		want   []string
	}{
		{
			name:   "explicit rooms win over everything",
			target: Target{Rooms: []string{"x", "y"}, UserIDs: []string{"u1"}, Roles: []string{"supervisor"}, TenantID: "t1"},
			want:   []string{"x", "y"},
		},
		{
			name:   "user ids win over roles and tenant",
			target: Target{UserIDs: []string{"u1", "u2"}, Roles: []string{"supervisor"}, TenantID: "t1"},
			want:   []string{"user:u1", "user:u2"},
		},
		{
			name:   "roles scoped to tenant",
			target: Target{Roles: []string{"supervisor", "operator"}, TenantID: "t1"},
			want:   []string{"role:t1:supervisor", "role:t1:operator"},
		},
		{
			name:   "roles without tenant fall through to nothing",
			target: Target{Roles: []string{"supervisor"}},
			want:   nil,
		},
		{
			name:   "tenant only",
			target: Target{TenantID: "t1"},
			want:   []string{"tenant:t1"},
		},
		{
			name:   "empty target",
			target: Target{},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.target))
		})
	}
}

func TestBroadcastToTenant(t *testing.T) {
	m, r := testGateway(t, Config{})

	c1, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)
	c2, err := m.Connect(nil, testToken(t, "u2", "t1"))
	require.NoError(t, err)
	c3, err := m.Connect(nil, testToken(t, "u3", "t2"))
	require.NoError(t, err)
	drainClient(c1)
	drainClient(c2)
	drainClient(c3)

	delivered := r.Broadcast(Target{TenantID: "t1"}, NewMessage("order.created", "t1", nil))
	assert.Equal(t, 2, delivered)

	assert.Equal(t, "order.created", recvMessage(t, c1).Event)
	assert.Equal(t, "order.created", recvMessage(t, c2).Event)

	select {
	case v := <-c3.send:
		t.Fatalf("broadcast leaked across tenants: %v", v)
	default:
	}
}

func TestBroadcastExcludesConnections(t *testing.T) {
	m, r := testGateway(t, Config{})

	c1, err := m.Connect(nil, testToken(t, "u1", "t1"))
	require.NoError(t, err)
	c2, err := m.Connect(nil, testToken(t, "u2", "t1"))
	require.NoError(t, err)
	drainClient(c1)
	drainClient(c2)

	delivered := r.Broadcast(
		Target{TenantID: "t1", ExcludeConnectionIDs: []string{c1.ID}},
		NewMessage("order.created", "t1", nil),
	)
	assert.Equal(t, 1, delivered)

	select {
	case v := <-c1.send:
		t.Fatalf("excluded connection received message: %v", v)
	default:
	}
	assert.Equal(t, "order.created", recvMessage(t, c2).Event)
}

func TestBroadcastDeduplicatesAcrossRooms(t *testing.T) {
	m, r := testGateway(t, Config{})

	// Connection reachable through its user room and its role room.
	c, err := m.Connect(nil, testToken(t, "u1", "t1", "supervisor"))
	require.NoError(t, err)
	drainClient(c)

	delivered := r.Broadcast(
		Target{Rooms: []string{"user:u1", "role:t1:supervisor"}},
		NewMessage("task.assigned", "t1", nil),
	)
	assert.Equal(t, 1, delivered)

	recvMessage(t, c)
	select {
	case v := <-c.send:
		t.Fatalf("duplicate delivery: %v", v)
	default:
	}
}

func TestBroadcastEmptyRoleIsNoop(t *testing.T) {
	m, r := testGateway(t, Config{})

	c, err := m.Connect(nil, testToken(t, "u1", "t1", "operator"))
	require.NoError(t, err)
	drainClient(c)

	delivered := r.Broadcast(
		Target{Roles: []string{"quality_manager"}, TenantID: "t1"},
		NewMessage("quality.inspection_failed", "t1", nil),
	)
	assert.Equal(t, 0, delivered)
}

func TestBroadcastDuringConnectionChurn(t *testing.T) {
	m, r := testGateway(t, Config{})

	token := testToken(t, "u1", "t1", "operator")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			c, err := m.Connect(nil, token)
			if err != nil {
				t.Error(err)
				return
			}
			m.Disconnect(c)
		}
	}()

	for i := 0; i < 50; i++ {
		r.Broadcast(Target{TenantID: "t1"}, NewMessage("production.metrics_updated", "t1", nil))
	}
	<-done

	// After the churn settles nothing may remain in either index.
	assert.Empty(t, m.Clients())
	assert.Empty(t, m.registry.RoomNames())
}

func TestBroadcastUnknownRoom(t *testing.T) {
	_, r := testGateway(t, Config{})

	delivered := r.Broadcast(Target{Rooms: []string{"no-such-room"}}, NewMessage("x", "t1", nil))
	assert.Equal(t, 0, delivered)
}
