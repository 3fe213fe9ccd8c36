package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"printhub/internal/domain"
	"printhub/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame it is handed; optionally it fails all
// sends, standing in for a transport that just dropped.
type fakeConn struct {
	id     string
	userID string
	fail   bool

	mu     sync.Mutex
	frames [][]byte
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (c *fakeConn) ID() string     { return c.id }
func (c *fakeConn) UserID() string { return c.userID }
func (c *fakeConn) Close() error   { return nil }

func (c *fakeConn) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

func (c *fakeConn) SendRaw(message []byte) error {
	if c.fail {
		return errors.New("transport gone")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, message)
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

func memberIDs(conns []domain.Connection) []string {
	ids := make([]string, 0, len(conns))
	for _, conn := range conns {
		ids = append(ids, conn.ID())
	}
	return ids
}

func TestRegisterIsIdempotent(t *testing.T) {
	registry := NewRegistry(logger.NewNop())

	first := newFakeConn("c1", "alice")
	registry.Register(first)
	registry.Join("c1", domain.GlobalGroup)

	// Reconnect race: same id registers again with a new handle and a new
	// identity. Membership must not duplicate.
	second := newFakeConn("c1", "bob")
	registry.Register(second)

	members := registry.MembersOf(domain.GlobalGroup)
	require.Len(t, members, 1)
	assert.Equal(t, "bob", members[0].UserID())
}

func TestJoinAndLeaveAreIdempotent(t *testing.T) {
	registry := NewRegistry(logger.NewNop())
	registry.Register(newFakeConn("c1", "alice"))

	registry.Join("c1", domain.MachineGroup(12))
	registry.Join("c1", domain.MachineGroup(12))
	assert.Len(t, registry.MembersOf(domain.MachineGroup(12)), 1)

	registry.Leave("c1", domain.MachineGroup(12))
	registry.Leave("c1", domain.MachineGroup(12))
	assert.Empty(t, registry.MembersOf(domain.MachineGroup(12)))
}

func TestUnregisterRemovesAllMemberships(t *testing.T) {
	registry := NewRegistry(logger.NewNop())
	registry.Register(newFakeConn("c1", "alice"))
	registry.Join("c1", domain.GlobalGroup)
	registry.Join("c1", domain.MachineGroup(3))
	registry.Join("c1", domain.MachineGroup(7))

	registry.Unregister("c1")

	assert.Empty(t, registry.MembersOf(domain.GlobalGroup))
	assert.Empty(t, registry.MembersOf(domain.MachineGroup(3)))
	assert.Empty(t, registry.MembersOf(domain.MachineGroup(7)))
	_, ok := registry.Get("c1")
	assert.False(t, ok)
}

func TestUnregisterUnknownConnectionIsSafe(t *testing.T) {
	registry := NewRegistry(logger.NewNop())

	// Abrupt disconnect before registration completed.
	registry.Unregister("never-seen")
}

func TestJoinUnknownConnectionIsIgnored(t *testing.T) {
	registry := NewRegistry(logger.NewNop())

	registry.Join("ghost", domain.GlobalGroup)
	assert.Empty(t, registry.MembersOf(domain.GlobalGroup))
}

func TestMembersOfReturnsSnapshot(t *testing.T) {
	registry := NewRegistry(logger.NewNop())
	registry.Register(newFakeConn("c1", "alice"))
	registry.Register(newFakeConn("c2", "bob"))
	registry.Join("c1", domain.GlobalGroup)
	registry.Join("c2", domain.GlobalGroup)

	members := registry.MembersOf(domain.GlobalGroup)
	require.Len(t, members, 2)
	assert.ElementsMatch(t, []string{"c1", "c2"}, memberIDs(members))

	// Mutating after the snapshot does not affect it.
	registry.Unregister("c2")
	assert.Len(t, members, 2)
	assert.Len(t, registry.MembersOf(domain.GlobalGroup), 1)
}

func TestConcurrentRegistryAccess(t *testing.T) {
	registry := NewRegistry(logger.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			registry.Register(newFakeConn(id, "user"))
			registry.Join(id, domain.GlobalGroup)
			registry.MembersOf(domain.GlobalGroup)
			registry.Leave(id, domain.GlobalGroup)
			registry.Unregister(id)
		}(i)
	}
	wg.Wait()

	assert.Empty(t, registry.MembersOf(domain.GlobalGroup))
}
