package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/adapters/loopback"
	"github.com/dkeye/vspace/internal/app/rooms"
	"github.com/dkeye/vspace/internal/domain"
)

func members(a *actor, room domain.RoomName) func() []domain.ParticipantID {
	return func() []domain.ParticipantID { return a.conf.Rooms().Members(room) }
}

func TestLobbyScenario(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)

	require.ErrorIs(t, alice.conf.EnterRoom(""), domain.ErrEmptyRoomName)
	require.NoError(t, alice.conf.EnterRoom("lobby-table"))
	require.NoError(t, bob.conf.EnterRoom("lobby-table"))
	assert.Equal(t, domain.RoomName("lobby-table"), alice.conf.CurrentRoom())

	both := []domain.ParticipantID{alice.id(), bob.id()}
	if both[0] > both[1] {
		both[0], both[1] = both[1], both[0]
	}
	for _, a := range []*actor{alice, bob} {
		require.Eventually(t, func() bool {
			return assert.ObjectsAreEqual(both, members(a, "lobby-table")())
		}, waitFor, tick)
	}

	// moving leaves the previous room first
	require.NoError(t, alice.conf.EnterRoom("lobby-bar"))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]domain.ParticipantID{bob.id()}, members(bob, "lobby-table")()) &&
			assert.ObjectsAreEqual([]domain.ParticipantID{alice.id()}, members(bob, "lobby-bar")())
	}, waitFor, tick)

	require.NoError(t, bob.conf.ExitRoom("lobby-table"))
	assert.Empty(t, bob.conf.CurrentRoom())
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]domain.RoomName{"lobby-bar"}, alice.conf.Rooms().Names())
	}, waitFor, tick)
}

func TestReenterCurrentRoomIsNoop(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")

	require.NoError(t, alice.conf.EnterRoom("r1"))
	require.Eventually(t, func() bool { return alice.conf.Rooms().Has("r1", alice.id()) }, waitFor, tick)

	changes := 0
	alice.conf.OnRoomsChanged(func(rooms.Membership) { changes++ })
	require.NoError(t, alice.conf.EnterRoom("r1"))
	require.NoError(t, alice.conf.TakeStage())
	require.Eventually(t, func() bool { return alice.conf.Occupier() != nil }, waitFor, tick)
	assert.Zero(t, changes)
}

func TestLeaverIsPrunedFromRooms(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)

	require.NoError(t, bob.conf.EnterRoom("r1"))
	require.Eventually(t, func() bool { return alice.conf.Rooms().Has("r1", bob.id()) }, waitFor, tick)

	bobConn := hub.Connection(bob.id())
	require.NotNil(t, bobConn)
	bobConn.Drop()
	require.Eventually(t, func() bool { return alice.conf.Rooms().Len() == 0 }, waitFor, tick)
}

func TestConcurrentRoomEntriesAreNotLost(t *testing.T) {
	hub := loopback.NewHub()
	actors := make([]*actor, 6)
	for i := range actors {
		actors[i] = enter(t, hub, "user")
	}
	observer := actors[0]

	var wg sync.WaitGroup
	for _, a := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.conf.EnterRoom("hall"))
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return len(observer.conf.Rooms().Members("hall")) == len(actors) }, waitFor, tick)
	for _, a := range actors {
		assert.True(t, observer.conf.Rooms().Has("hall", a.id()))
	}
	require.NoError(t, observer.conf.Exit(context.Background()))
}
