package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/adapters/loopback"
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

func occupier(a *actor) domain.ParticipantID {
	if occ := a.conf.Occupier(); occ != nil {
		return occ.ID
	}
	return ""
}

func TestStageScenario(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)
	require.Eventually(t, sees(bob, alice.id()), waitFor, tick)

	assert.ErrorIs(t, alice.conf.ReleaseStage(), domain.ErrNotOccupied)
	require.NoError(t, alice.conf.TakeStage())
	for _, a := range []*actor{alice, bob} {
		require.Eventually(t, func() bool { return occupier(a) == alice.id() }, waitFor, tick)
	}
	assert.True(t, alice.conf.Occupier().IsSelf)
	assert.False(t, bob.conf.Occupier().IsSelf)

	assert.ErrorIs(t, bob.conf.TakeStage(), domain.ErrAlreadyOccupied)
	assert.ErrorIs(t, bob.conf.ReleaseStage(), domain.ErrNotOwner)

	require.NoError(t, alice.conf.ReleaseStage())
	for _, a := range []*actor{alice, bob} {
		require.Eventually(t, func() bool { return a.conf.Occupier() == nil }, waitFor, tick)
	}
}

func TestFirstTakeInTransportOrderWins(t *testing.T) {
	hub := loopback.NewHub()
	actors := []*actor{enter(t, hub, "a"), enter(t, hub, "b"), enter(t, hub, "c")}
	for _, a := range actors {
		require.Eventually(t, func() bool { return len(a.conf.Participants()) == len(actors)-1 }, waitFor, tick)
	}

	var wg sync.WaitGroup
	for _, a := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.conf.TakeStage()
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return occupier(actors[0]) != "" }, waitFor, tick)
	winner := occupier(actors[0])
	for _, a := range actors[1:] {
		require.Eventually(t, func() bool { return occupier(a) == winner }, waitFor, tick)
	}
}

func TestOccupierRefreshedOnTrackChange(t *testing.T) {
	hub := loopback.NewHub()
	ctx := context.Background()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)

	require.NoError(t, bob.conf.TakeStage())
	require.Eventually(t, func() bool { return occupier(alice) == bob.id() && occupier(bob) == bob.id() }, waitFor, tick)

	var changes []*peer.Participant
	var mu sync.Mutex
	alice.conf.OnOccupierChanged(func(p *peer.Participant) {
		mu.Lock()
		changes = append(changes, p)
		mu.Unlock()
	})

	cam, err := bob.self.CreateVideo(ctx, "")
	require.NoError(t, err)
	require.NoError(t, bob.self.SetVideo(ctx, cam))

	// the local view follows the published track
	occ := bob.conf.Occupier()
	require.NotNil(t, occ)
	require.NotNil(t, occ.Video)
	assert.Equal(t, cam.ID(), occ.Video.ID())

	require.Eventually(t, func() bool {
		occ := alice.conf.Occupier()
		return occ != nil && occ.Video != nil && occ.Video.ID() == cam.ID()
	}, waitFor, tick)
	mu.Lock()
	require.NotEmpty(t, changes)
	assert.Equal(t, bob.id(), changes[len(changes)-1].ID)
	mu.Unlock()
}

func TestOccupierLeavingClearsStage(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)

	require.NoError(t, bob.conf.TakeStage())
	require.Eventually(t, func() bool { return occupier(alice) == bob.id() }, waitFor, tick)

	require.NoError(t, bob.conf.Exit(context.Background()))
	require.Eventually(t, func() bool { return alice.conf.Occupier() == nil }, waitFor, tick)
	require.NoError(t, alice.conf.TakeStage())
	require.Eventually(t, func() bool { return occupier(alice) == alice.id() }, waitFor, tick)
}

func TestReleaseClearsStageWhateverTheSender(t *testing.T) {
	hub := loopback.NewHub()
	alice := enter(t, hub, "alice")
	bob := enter(t, hub, "bob")
	require.Eventually(t, sees(alice, bob.id()), waitFor, tick)

	require.NoError(t, bob.conf.TakeStage())
	for _, a := range []*actor{alice, bob} {
		require.Eventually(t, func() bool { return occupier(a) == bob.id() }, waitFor, tick)
	}

	raw := hub.Connection(alice.id()).Conference(domain.ConferenceName(space))
	require.NoError(t, raw.SendCommand(domain.TagReleaseStage, core.Command{Value: string(alice.id())}))
	for _, a := range []*actor{alice, bob} {
		require.Eventually(t, func() bool { return a.conf.Occupier() == nil }, waitFor, tick)
	}
}
