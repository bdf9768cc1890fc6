package peer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/domain"
)

func TestRosterIsReplacedNotMutated(t *testing.T) {
	empty := peer.Roster{}
	one := empty.With(&peer.Participant{ID: "b"})
	two := one.With(&peer.Participant{ID: "a"})

	assert.Empty(t, empty)
	assert.Len(t, one, 1)
	assert.Equal(t, []domain.ParticipantID{"a", "b"}, two.IDs())

	back := two.Without("a")
	assert.Len(t, two, 2)
	assert.Equal(t, []domain.ParticipantID{"b"}, back.IDs())
}

func TestWithTrackCopies(t *testing.T) {
	p := &peer.Participant{ID: "bob"}
	v := peer.NewRemoteTrack(remoteHandle("v1", domain.KindVideo))

	next := p.WithTrack(domain.KindVideo, v)
	assert.Nil(t, p.Video)
	assert.Equal(t, v, next.Slot(domain.KindVideo))
	assert.Nil(t, next.Slot(domain.KindAudio))
	assert.False(t, peer.SameTracks(p, next))

	other := p.WithTrack(domain.KindVideo, peer.NewRemoteTrack(remoteHandle("v1", domain.KindVideo)))
	assert.True(t, peer.SameTracks(next, other))
}
