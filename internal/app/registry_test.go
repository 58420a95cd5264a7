package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/apod/internal/core"
	"github.com/dkeye/apod/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	err    error
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) Frames() []core.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Frame(nil), f.frames...)
}

func register(t *testing.T, reg *Registry, role domain.Role) (*fakeConn, domain.Slot) {
	t.Helper()
	conn := &fakeConn{}
	slot := reg.Register(core.NewMemberSession(domain.NewMember(role, ""), conn), nil)
	return conn, slot
}

func TestRegistryRegisterAssignsSequentialSlots(t *testing.T) {
	reg := NewRegistry("rec", nil)
	for i := 0; i < 4; i++ {
		_, slot := register(t, reg, domain.RoleFollower)
		assert.Equal(t, domain.Slot(i), slot)
	}
	assert.Equal(t, 4, reg.Len())
	assert.Equal(t, []domain.Slot{0, 1, 2, 3}, reg.Slots())
}

func TestRegistrySlotsNotReusedAfterUnregister(t *testing.T) {
	reg := NewRegistry("rec", nil)
	register(t, reg, domain.RoleLeader)
	register(t, reg, domain.RoleFollower)
	_, two := register(t, reg, domain.RoleFollower)

	require.True(t, reg.Unregister(0))
	_, next := register(t, reg, domain.RoleFollower)
	assert.NotEqual(t, two, next)
	assert.Equal(t, []domain.Slot{1, 2, 3}, reg.Slots())
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	reg := NewRegistry("rec", nil)
	conn, slot := register(t, reg, domain.RoleFollower)

	assert.True(t, reg.Unregister(slot))
	assert.True(t, conn.closed)
	assert.False(t, reg.Unregister(slot))
	assert.False(t, reg.Unregister(42))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryBroadcastDeliversToAll(t *testing.T) {
	reg := NewRegistry("rec", nil)
	var conns []*fakeConn
	for i := 0; i < 3; i++ {
		c, _ := register(t, reg, domain.RoleFollower)
		conns = append(conns, c)
	}
	msg := core.Frame(`{"event":"hello","n":1}`)

	res := reg.Broadcast(msg)

	assert.Equal(t, 3, res.SentTo)
	assert.Empty(t, res.Evicted)
	for _, c := range conns {
		require.Len(t, c.Frames(), 1)
		assert.Equal(t, msg, c.Frames()[0])
	}
}

func TestRegistryBroadcastEvictsFailedRecipient(t *testing.T) {
	reg := NewRegistry("rec", nil)
	ok1, _ := register(t, reg, domain.RoleLeader)
	bad, badSlot := register(t, reg, domain.RoleFollower)
	ok2, _ := register(t, reg, domain.RoleFollower)
	bad.err = core.ErrConnectionClosed

	res := reg.Broadcast(core.Frame(`{}`))

	assert.Equal(t, 2, res.SentTo)
	assert.Equal(t, []domain.Slot{badSlot}, res.Evicted)
	assert.Equal(t, []domain.Slot{0, 2}, reg.Slots())
	assert.True(t, bad.closed)
	assert.Len(t, ok1.Frames(), 1)
	assert.Len(t, ok2.Frames(), 1)
}

func TestRegistryBroadcastEvictsEveryFailedRecipient(t *testing.T) {
	reg := NewRegistry("rec", nil)
	a, _ := register(t, reg, domain.RoleFollower)
	register(t, reg, domain.RoleFollower)
	c, _ := register(t, reg, domain.RoleFollower)
	a.err = core.ErrConnectionClosed
	c.err = core.ErrBackpressure

	res := reg.Broadcast(core.Frame(`{}`))

	assert.Equal(t, 1, res.SentTo)
	assert.ElementsMatch(t, []domain.Slot{0, 2}, res.Evicted)
	assert.Equal(t, []domain.Slot{1}, reg.Slots())
}

func TestRegistryTolerantPolicyKeepsSlowPeer(t *testing.T) {
	reg := NewRegistry("rec", TolerantPolicy{})
	slow, slowSlot := register(t, reg, domain.RoleFollower)
	gone, _ := register(t, reg, domain.RoleFollower)
	slow.err = core.ErrBackpressure
	gone.err = core.ErrConnectionClosed

	res := reg.Broadcast(core.Frame(`{}`))

	assert.Equal(t, 0, res.SentTo)
	assert.Equal(t, []domain.Slot{1}, res.Evicted)
	assert.Equal(t, []domain.Slot{slowSlot}, reg.Slots())
	assert.False(t, slow.closed)
}

func TestRegistryEvictionCallsCancel(t *testing.T) {
	reg := NewRegistry("rec", nil)
	conn := &fakeConn{err: core.ErrConnectionClosed}
	called := false
	reg.Register(core.NewMemberSession(domain.NewMember(domain.RoleFollower, ""), conn), func() { called = true })

	reg.Broadcast(core.Frame(`{}`))
	assert.True(t, called)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistrySendAndSaveDir(t *testing.T) {
	reg := NewRegistry("first", nil)
	conn, slot := register(t, reg, domain.RoleLeader)

	require.NoError(t, reg.Send(slot, core.Frame(`{"x":1}`)))
	assert.Len(t, conn.Frames(), 1)
	assert.ErrorIs(t, reg.Send(99, core.Frame(`{}`)), core.ErrConnectionClosed)

	assert.Equal(t, "first", reg.SaveDir())
	reg.SetSaveDir("/data/second")
	assert.Equal(t, "/data/second", reg.SaveDir())

	sess, ok := reg.Get(slot)
	require.True(t, ok)
	assert.Equal(t, domain.RoleLeader, sess.Meta().Role)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry("rec", nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, slot := register(t, reg, domain.RoleFollower)
			reg.Broadcast(core.Frame(`{}`))
			reg.SetSaveDir("dir")
			_ = reg.SaveDir()
			reg.Unregister(slot)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, reg.Len())
}

func TestPolicyByName(t *testing.T) {
	assert.IsType(t, TolerantPolicy{}, PolicyByName("drop"))
	assert.IsType(t, SimplePolicy{}, PolicyByName("evict"))
	assert.IsType(t, SimplePolicy{}, PolicyByName(""))
}
