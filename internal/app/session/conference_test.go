package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/adapters/loopback"
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/rooms"
	"github.com/dkeye/vspace/internal/app/session"
	"github.com/dkeye/vspace/internal/auth"
	"github.com/dkeye/vspace/internal/domain"
	"github.com/dkeye/vspace/internal/metrics"
)

const (
	space   = "lobby"
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type actor struct {
	conf    *session.Conference
	self    *peer.Self
	devices *loopback.Devices
	token   string
}

func token(t *testing.T, name string) string {
	t.Helper()
	tok, err := auth.NewJWTService("test", time.Hour).Generate(name, "")
	require.NoError(t, err)
	return tok
}

func newActor(t *testing.T, hub *loopback.Hub, name string) *actor {
	t.Helper()
	devices := loopback.NewDevices()
	return &actor{
		conf:    session.NewConference(hub, metrics.NewSession(prometheus.NewRegistry())),
		self:    peer.NewSelf(devices),
		devices: devices,
		token:   token(t, name),
	}
}

func enter(t *testing.T, hub *loopback.Hub, name string) *actor {
	t.Helper()
	a := newActor(t, hub, name)
	require.NoError(t, a.conf.Enter(context.Background(), space, a.token, a.self))
	t.Cleanup(func() { _ = a.conf.Exit(context.Background()) })
	return a
}

func (a *actor) id() domain.ParticipantID { return a.conf.MyUserID() }

func sees(a *actor, ids ...domain.ParticipantID) func() bool {
	return func() bool {
		if len(a.conf.Participants()) != len(ids) {
			return false
		}
		for _, id := range ids {
			if _, ok := a.conf.Participant(id); !ok {
				return false
			}
		}
		return true
	}
}

func TestEnterPreconditions(t *testing.T) {
	hub := loopback.NewHub()
	a := newActor(t, hub, "alice")
	ctx := context.Background()

	assert.ErrorIs(t, a.conf.Enter(ctx, "", a.token, a.self), domain.ErrEmptySpaceName)
	assert.ErrorIs(t, a.conf.Enter(ctx, space, "", a.self), domain.ErrMissingToken)
	assert.ErrorIs(t, a.conf.Enter(ctx, space, a.token, nil), domain.ErrNoLocalActor)
	assert.ErrorIs(t, a.conf.Enter(ctx, space, "garbage", a.self), auth.ErrInvalidToken)
	assert.Equal(t, session.StateIdle, a.conf.State())

	require.NoError(t, a.conf.Enter(ctx, space, a.token, a.self))
	assert.Equal(t, session.StateJoined, a.conf.State())
	assert.Equal(t, "alice", a.conf.DisplayName())
	assert.ErrorIs(t, a.conf.Enter(ctx, space, a.token, a.self), domain.ErrAlreadyEntered)
	require.NoError(t, a.conf.Exit(ctx))
	assert.Equal(t, session.StateIdle, a.conf.State())
	require.NoError(t, a.conf.Exit(ctx))
}

func TestOperationsRequireEntered(t *testing.T) {
	a := newActor(t, loopback.NewHub(), "alice")
	assert.ErrorIs(t, a.conf.EnterRoom("r1"), domain.ErrNotEntered)
	assert.ErrorIs(t, a.conf.ExitRoom("r1"), domain.ErrNotEntered)
	assert.ErrorIs(t, a.conf.TakeStage(), domain.ErrNotEntered)
	assert.ErrorIs(t, a.conf.ReleaseStage(), domain.ErrNotEntered)
}

func TestConnectFailureLeavesIdle(t *testing.T) {
	hub := loopback.NewHub()
	refused := errors.New("connection refused")
	hub.FailConnect(refused)

	a := newActor(t, hub, "alice")
	err := a.conf.Enter(context.Background(), space, a.token, a.self)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, session.StateIdle, a.conf.State())

	hub.FailConnect(nil)
	require.NoError(t, a.conf.Enter(context.Background(), space, a.token, a.self))
	require.NoError(t, a.conf.Exit(context.Background()))
}

func TestEnterHonoursContext(t *testing.T) {
	a := newActor(t, loopback.NewHub(), "alice")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.conf.Enter(ctx, space, a.token, a.self), context.Canceled)
	assert.Equal(t, session.StateIdle, a.conf.State())
}

func TestRosterFollowsJoinAndLeave(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")

	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)
	require.Eventually(t, sees(bob, alice.id()), waitFor, tick)
	p, _ := alice.conf.Participant(bob.id())
	assert.Equal(t, "bob", p.DisplayName)
	assert.False(t, p.IsSelf)

	require.NoError(t, bob.conf.Exit(context.Background()))
	require.Eventually(t, sees(alice), waitFor, tick)
	assert.Empty(t, bob.conf.Participants())
}

func TestRemoteTrackSlots(t *testing.T) {
	hub := loopback.NewHub()
	ctx := context.Background()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)

	first, err := bob.self.CreateVideo(ctx, "")
	require.NoError(t, err)
	require.NoError(t, bob.self.SetVideo(ctx, first))

	videoID := func() domain.TrackID {
		p, ok := alice.conf.Participant(bob.id())
		if !ok || p.Video == nil {
			return ""
		}
		return p.Video.ID()
	}
	require.Eventually(t, func() bool { return videoID() == first.ID() }, waitFor, tick)
	p, _ := alice.conf.Participant(bob.id())
	oldRemote := p.Video
	assert.Equal(t, domain.OriginRemote, oldRemote.Origin())

	second, err := bob.self.ChangeVideoMode(ctx, domain.VideoScreen)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return videoID() == second.ID() }, waitFor, tick)
	assert.True(t, oldRemote.Disposed())

	require.NoError(t, bob.self.SetVideo(ctx, nil))
	require.Eventually(t, func() bool { return videoID() == "" }, waitFor, tick)
}

func TestExistingTracksReachLateJoiner(t *testing.T) {
	hub := loopback.NewHub()
	ctx := context.Background()

	bob := newActor(t, hub, "bob")
	audio, err := bob.self.CreateAudio(ctx, "")
	require.NoError(t, err)
	require.NoError(t, bob.self.SetAudio(ctx, audio))
	require.NoError(t, bob.conf.Enter(ctx, space, bob.token, bob.self))
	t.Cleanup(func() { _ = bob.conf.Exit(ctx) })

	alice := enter(t, hub, "alice")
	require.Eventually(t, func() bool {
		p, ok := alice.conf.Participant(bob.id())
		return ok && p.Audio != nil && p.Audio.ID() == audio.ID()
	}, waitFor, tick)
}

func TestExitNotifiesEmptyState(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)
	require.NoError(t, alice.conf.EnterRoom("r1"))
	require.Eventually(t, func() bool { return alice.conf.Rooms().Len() == 1 }, waitFor, tick)

	var mu sync.Mutex
	var lastRoster peer.Roster
	var lastRooms *rooms.Membership
	alice.conf.OnParticipantsChanged(func(r peer.Roster) {
		mu.Lock()
		lastRoster = r
		mu.Unlock()
	})
	alice.conf.OnRoomsChanged(func(m rooms.Membership) {
		mu.Lock()
		lastRooms = &m
		mu.Unlock()
	})

	require.NoError(t, alice.conf.Exit(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.NotNil(t, lastRoster)
	assert.Empty(t, lastRoster)
	require.NotNil(t, lastRooms)
	assert.Zero(t, lastRooms.Len())
	assert.Empty(t, alice.conf.CurrentRoom())

	require.Eventually(t, func() bool { return bob.conf.Rooms().Len() == 0 }, waitFor, tick)
}

func TestReentryStartsEmpty(t *testing.T) {
	hub := loopback.NewHub()
	ctx := context.Background()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)

	require.NoError(t, alice.conf.Exit(ctx))
	require.NoError(t, bob.conf.Exit(ctx))
	require.NoError(t, alice.conf.Enter(ctx, space, alice.token, alice.self))
	assert.Empty(t, alice.conf.Participants())
	assert.Nil(t, alice.conf.Occupier())
}

func TestDroppedConnectionResets(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)

	assert.Contains(t, hub.Members(space, domain.ConferenceName(space)), bob.id())
	bobConn := hub.Connection(bob.id())
	require.NotNil(t, bobConn)
	bobConn.Drop()

	require.Eventually(t, func() bool { return bob.conf.State() == session.StateIdle }, waitFor, tick)
	require.Eventually(t, sees(alice), waitFor, tick)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")

	calls := 0
	tok := alice.conf.OnParticipantsChanged(func(peer.Roster) { calls++ })
	assert.True(t, alice.conf.Unsubscribe(tok))
	assert.False(t, alice.conf.Unsubscribe(tok))

	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)
	assert.Zero(t, calls)
}
