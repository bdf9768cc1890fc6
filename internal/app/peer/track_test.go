package peer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/adapters/dispatch"
	"github.com/dkeye/vspace/internal/adapters/loopback"
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/domain"
)

func remoteHandle(id string, kind domain.TrackKind) *dispatch.Track {
	return dispatch.NewRemoteTrack(domain.TrackInfo{ID: domain.TrackID(id), Kind: kind, ParticipantID: "bob"})
}

func TestLocalTrackMuteStopsProducing(t *testing.T) {
	h, err := loopback.NewDevices().CreateLocalTrack(context.Background(), domain.DeviceAudioInput, "")
	require.NoError(t, err)
	tr := peer.NewLocalTrack(h, "")

	var seen []bool
	tr.OnMuteChanged(func(m bool) { seen = append(seen, m) })

	require.NoError(t, tr.Mute())
	assert.True(t, tr.Muted())
	require.NoError(t, tr.Unmute())
	assert.False(t, tr.Muted())
	assert.Equal(t, []bool{true, false}, seen)
	assert.Equal(t, domain.OriginLocal, tr.Origin())
	assert.Empty(t, tr.Mode())
}

func TestLocalVideoDefaultsToCamera(t *testing.T) {
	h, err := loopback.NewDevices().CreateLocalTrack(context.Background(), domain.DeviceVideoInput, "")
	require.NoError(t, err)
	assert.Equal(t, domain.VideoCamera, peer.NewLocalTrack(h, "").Mode())
}

func TestRemoteTrackMuteDetachesAndUnmuteReattaches(t *testing.T) {
	h := remoteHandle("t1", domain.KindAudio)
	tr := peer.NewRemoteTrack(h)
	sink := loopback.NewSink()

	require.NoError(t, tr.Attach(sink))
	assert.Equal(t, []domain.TrackID{"t1"}, sink.Playing())

	require.NoError(t, tr.Mute())
	assert.Empty(t, sink.Playing())
	assert.Nil(t, tr.Sink())

	require.NoError(t, tr.Unmute())
	assert.Equal(t, []domain.TrackID{"t1"}, sink.Playing())
	assert.Equal(t, sink, tr.Sink())
}

func TestAttachMovesBetweenSinks(t *testing.T) {
	tr := peer.NewRemoteTrack(remoteHandle("t1", domain.KindVideo))
	a, b := loopback.NewSink(), loopback.NewSink()

	require.NoError(t, tr.Attach(a))
	require.NoError(t, tr.Attach(b))
	assert.Empty(t, a.Playing())
	assert.Equal(t, []domain.TrackID{"t1"}, b.Playing())
}

func TestDisposedTrackCannotAttach(t *testing.T) {
	h := remoteHandle("t1", domain.KindAudio)
	tr := peer.NewRemoteTrack(h)
	sink := loopback.NewSink()
	require.NoError(t, tr.Attach(sink))

	require.NoError(t, tr.Dispose())
	require.NoError(t, tr.Dispose())
	assert.True(t, tr.Disposed())
	assert.True(t, h.Disposed())
	assert.Empty(t, sink.Playing())
	assert.ErrorIs(t, tr.Attach(sink), domain.ErrTrackDisposed)
}

func TestRemoteMuteAnnouncementReachesSubscribers(t *testing.T) {
	h := remoteHandle("t1", domain.KindAudio)
	tr := peer.NewRemoteTrack(h)

	var got []bool
	tok := tr.OnMuteChanged(func(m bool) { got = append(got, m) })
	h.ApplyMuted(true)
	assert.True(t, tr.Unsubscribe(tok))
	h.ApplyMuted(false)
	assert.Equal(t, []bool{true}, got)
}

func TestBorrowedTrackDisposeLeavesHandle(t *testing.T) {
	h := remoteHandle("t1", domain.KindVideo)
	owner := peer.NewRemoteTrack(h)
	view := peer.NewBorrowedTrack(h)

	var seen []bool
	view.OnMuteChanged(func(m bool) { seen = append(seen, m) })

	p := (&peer.Participant{ID: "bob"}).WithTrack(domain.KindVideo, view)
	require.True(t, p.HasBorrowed())
	p.DisposeBorrowed()

	assert.True(t, view.Disposed())
	assert.False(t, h.Disposed())
	assert.False(t, owner.Disposed())

	h.ApplyMuted(true)
	assert.Empty(t, seen)
	assert.True(t, owner.Muted())
}

func TestDisposeBorrowedSkipsOwnedTracks(t *testing.T) {
	h := remoteHandle("t1", domain.KindAudio)
	owned := peer.NewRemoteTrack(h)
	p := (&peer.Participant{ID: "bob"}).WithTrack(domain.KindAudio, owned)
	assert.False(t, p.HasBorrowed())

	p.DisposeBorrowed()
	assert.False(t, owned.Disposed())
	assert.False(t, h.Disposed())
}
