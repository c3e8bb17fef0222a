package gateway

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryJoinLeave(t *testing.T) {
	r := NewRegistry()

	r.Join("c1", "tenant:plant-a")
	r.Join("c2", "tenant:plant-a")
	r.Join("c1", "user:worker-17")

	assert.ElementsMatch(t, []string{"c1", "c2"}, r.Members("tenant:plant-a"))
	assert.ElementsMatch(t, []string{"tenant:plant-a", "user:worker-17"}, r.Rooms("c1"))
	assert.Equal(t, 2, r.MemberCount("tenant:plant-a"))

	r.Leave("c1", "tenant:plant-a")
	assert.ElementsMatch(t, []string{"c2"}, r.Members("tenant:plant-a"))
	assert.ElementsMatch(t, []string{"user:worker-17"}, r.Rooms("c1"))
}

func TestRegistryJoinIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Join("c1", "room-a")
	r.Join("c1", "room-a")

	assert.Equal(t, []string{"c1"}, r.Members("room-a"))
	assert.Equal(t, []string{"room-a"}, r.Rooms("c1"))
}

func TestRegistryLeaveUnknownIsNoop(t *testing.T) {
	r := NewRegistry()

	r.Leave("ghost", "nowhere")
	r.LeaveAll("ghost")

	assert.Empty(t, r.RoomNames())
}

func TestRegistryEmptyRoomIsDropped(t *testing.T) {
	r := NewRegistry()

	r.Join("c1", "room-a")
	r.Leave("c1", "room-a")

	assert.Empty(t, r.RoomNames())
	assert.Empty(t, r.Rooms("c1"))
	assert.Equal(t, 0, r.MemberCount("room-a"))
}

func TestRegistryLeaveAll(t *testing.T) {
	r := NewRegistry()

	r.Join("c1", "room-a")
	r.Join("c1", "room-b")
	r.Join("c2", "room-a")

	r.LeaveAll("c1")

	assert.Empty(t, r.Rooms("c1"))
	assert.Equal(t, []string{"c2"}, r.Members("room-a"))
	assert.ElementsMatch(t, []string{"room-a"}, r.RoomNames())
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			connID := fmt.Sprintf("c%d", n)
			for j := 0; j < 100; j++ {
				room := fmt.Sprintf("room-%d", j%4)
				r.Join(connID, room)
				r.Members(room)
				r.Rooms(connID)
				r.Leave(connID, room)
			}
			r.LeaveAll(connID)
		}(i)
	}
	wg.Wait()

	// Both indexes must end up empty; a mismatch means a dangling entry.
	assert.Empty(t, r.RoomNames())
	for i := 0; i < 16; i++ {
		assert.Empty(t, r.Rooms(fmt.Sprintf("c%d", i)))
	}
}
