package space_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/adapters/loopback"
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/session"
	"github.com/dkeye/vspace/internal/app/space"
	"github.com/dkeye/vspace/internal/auth"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type visual struct {
	mu     sync.Mutex
	spawns []core.SpawnRequest
	names  []string
}

func (v *visual) SetDisplayName(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.names = append(v.names, name)
	return nil
}

func (v *visual) SpawnAvatar(req core.SpawnRequest) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spawns = append(v.spawns, req)
	return nil
}

func (v *visual) counts() (int, []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.spawns), append([]string(nil), v.names...)
}

func newSpace(t *testing.T, hub *loopback.Hub, name string, retry time.Duration) (*space.Space, *visual) {
	t.Helper()
	tok, err := auth.NewJWTService("test", time.Hour).Generate(name, "")
	require.NoError(t, err)
	v := &visual{}
	s := space.New(session.NewConference(hub, nil), peer.NewSelf(loopback.NewDevices()), v, space.Config{
		Token:              tok,
		AvatarURL:          "https://example.test/" + name + ".glb",
		SpawnRetryInterval: retry,
	})
	t.Cleanup(func() { _ = s.Exit(context.Background()) })
	return s, v
}

func TestEnterPreconditions(t *testing.T) {
	hub := loopback.NewHub()
	ctx := context.Background()

	s, _ := newSpace(t, hub, "alice", 0)
	s.SetToken("")
	assert.ErrorIs(t, s.Enter(ctx, "hall"), space.ErrLoginRequired)

	s, _ = newSpace(t, hub, "alice", 0)
	assert.ErrorIs(t, s.Enter(ctx, ""), domain.ErrEmptySpaceName)
	require.NoError(t, s.Enter(ctx, "hall"))
	assert.ErrorIs(t, s.Enter(ctx, "hall"), space.ErrAlreadyInSpace)
	assert.Equal(t, "hall", s.Name())

	require.NoError(t, s.Exit(ctx))
	assert.Empty(t, s.Name())
	require.NoError(t, s.Enter(ctx, "hall"))
}

func TestZonesMapToRooms(t *testing.T) {
	hub := loopback.NewHub()
	ctx := context.Background()
	alice, _ := newSpace(t, hub, "alice", 0)
	bob, _ := newSpace(t, hub, "bob", 0)
	require.NoError(t, alice.Enter(ctx, "hall"))
	require.NoError(t, bob.Enter(ctx, "hall"))
	bobID := bob.Conference.MyUserID()
	require.Eventually(t, func() bool { return len(alice.Conference.Participants()) == 1 }, waitFor, tick)

	require.NoError(t, alice.OnPrivateZone(core.ZoneEvent{State: core.ZoneEnter, ID: "7"}))
	require.NoError(t, bob.OnGroupZone(core.ZoneEvent{State: core.ZoneEnter, ID: "7"}))
	assert.Equal(t, domain.RoomName("hall-7"), alice.Conference.CurrentRoom())

	require.Eventually(t, func() bool {
		ps := alice.RoomParticipants()
		return len(ps) == 1 && ps[0].ID == bobID
	}, waitFor, tick)

	require.NoError(t, bob.OnGroupZone(core.ZoneEvent{State: core.ZoneExit, ID: "7"}))
	require.Eventually(t, func() bool { return len(alice.RoomParticipants()) == 0 }, waitFor, tick)
}

func TestStageZone(t *testing.T) {
	hub := loopback.NewHub()
	ctx := context.Background()
	alice, _ := newSpace(t, hub, "alice", 0)
	bob, _ := newSpace(t, hub, "bob", 0)
	require.NoError(t, alice.Enter(ctx, "hall"))
	require.NoError(t, bob.Enter(ctx, "hall"))
	bobID := bob.Conference.MyUserID()
	require.Eventually(t, func() bool { return len(alice.Conference.Participants()) == 1 }, waitFor, tick)

	require.NoError(t, bob.OnStageZone(true))
	require.Eventually(t, func() bool {
		ps := alice.Presenters()
		return len(ps) == 1 && ps[0].ID == bobID
	}, waitFor, tick)

	require.NoError(t, bob.OnStageZone(false))
	require.Eventually(t, func() bool { return len(alice.Presenters()) == 0 }, waitFor, tick)
}

func TestSpawnRetriesUntilAcknowledged(t *testing.T) {
	s, v := newSpace(t, loopback.NewHub(), "alice", 10*time.Millisecond)

	s.SpawnAvatar(context.Background(), "u1")
	require.Eventually(t, func() bool {
		n, _ := v.counts()
		return n >= 3
	}, waitFor, tick)

	assert.False(t, s.AckSpawn(core.SpawnResult{ID: "someone-else", State: core.SpawnSuccess}))
	assert.False(t, s.AckSpawn(core.SpawnResult{ID: "u1", State: "FAILED"}))
	assert.True(t, s.Spawning())

	assert.True(t, s.AckSpawn(core.SpawnResult{ID: "u1", State: core.SpawnSuccess}))
	assert.False(t, s.Spawning())
	n, names := v.counts()
	assert.Equal(t, []string{"alice"}, names)

	time.Sleep(50 * time.Millisecond)
	after, _ := v.counts()
	assert.Equal(t, n, after)
	assert.False(t, s.AckSpawn(core.SpawnResult{ID: "u1", State: core.SpawnSuccess}))
}
