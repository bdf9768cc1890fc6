package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/adapters/loopback"
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/session"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
	"github.com/dkeye/vspace/internal/metrics"
)

// hookConnector runs onAdd before every AddTrack reaches the hub.
type hookConnector struct {
	hub   *loopback.Hub
	onAdd func(core.TrackHandle)
}

func (h hookConnector) Open(space, token string) core.Connection {
	return hookConnection{Connection: h.hub.Open(space, token), onAdd: h.onAdd}
}

type hookConnection struct {
	core.Connection
	onAdd func(core.TrackHandle)
}

func (c hookConnection) Conference(name domain.ConferenceName) core.Conference {
	return hookConference{Conference: c.Connection.Conference(name), onAdd: c.onAdd}
}

type hookConference struct {
	core.Conference
	onAdd func(core.TrackHandle)
}

func (c hookConference) AddTrack(ctx context.Context, h core.TrackHandle) error {
	c.onAdd(h)
	return c.Conference.AddTrack(ctx, h)
}

func TestTrackReplacedDuringEnterIsPublished(t *testing.T) {
	hub := loopback.NewHub()
	ctx := context.Background()
	self := peer.NewSelf(loopback.NewDevices())

	first, err := self.CreateAudio(ctx, "")
	require.NoError(t, err)
	require.NoError(t, self.SetAudio(ctx, first))
	second, err := self.CreateAudio(ctx, "")
	require.NoError(t, err)

	var once sync.Once
	connector := hookConnector{hub: hub, onAdd: func(h core.TrackHandle) {
		if h.ID() != first.ID() {
			return
		}
		once.Do(func() { require.NoError(t, self.SetAudio(ctx, second)) })
	}}
	conf := session.NewConference(connector, metrics.NewSession(prometheus.NewRegistry()))
	require.NoError(t, conf.Enter(ctx, space, token(t, "bob"), self))
	t.Cleanup(func() { _ = conf.Exit(ctx) })

	published := hub.Connection(conf.MyUserID()).Conference(domain.ConferenceName(space)).LocalTracks()
	require.Len(t, published, 1)
	assert.Equal(t, second.ID(), published[0].ID())
	assert.True(t, first.Disposed())

	alice := enter(t, hub, "alice")
	require.Eventually(t, func() bool {
		p, ok := alice.conf.Participant(conf.MyUserID())
		return ok && p.Audio != nil && p.Audio.ID() == second.ID()
	}, waitFor, tick)
}
