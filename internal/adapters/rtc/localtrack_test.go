package rtc_test

import (
	"context"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/adapters/rtc"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

func TestLocalTrackStateFollowsMute(t *testing.T) {
	lt, err := rtc.NewLocalTrack(domain.KindAudio, "stream")
	require.NoError(t, err)
	assert.True(t, lt.IsLocal())
	assert.Equal(t, rtc.TrackStateOk, lt.GetState())

	require.NoError(t, lt.SetMuted(true))
	assert.Equal(t, rtc.TrackStateMuted, lt.GetState())
	wrote, err := lt.WriteRTP(&rtp.Packet{Header: rtp.Header{Version: 2}})
	require.NoError(t, err)
	assert.False(t, wrote)

	require.NoError(t, lt.SetMuted(false))
	assert.Equal(t, rtc.TrackStateOk, lt.GetState())
}

func TestLocalTrackDisposeIsFinal(t *testing.T) {
	lt, err := rtc.NewLocalTrack(domain.KindVideo, "stream")
	require.NoError(t, err)

	require.NoError(t, lt.Dispose())
	assert.Equal(t, rtc.TrackStateDelete, lt.GetState())
	select {
	case <-lt.Done():
	default:
		t.Fatal("done not closed after dispose")
	}

	lt.MarkOk()
	assert.Equal(t, rtc.TrackStateDelete, lt.GetState())
	assert.ErrorIs(t, lt.SetMuted(true), domain.ErrTrackDisposed)
}

func TestDevicesCreateTracks(t *testing.T) {
	d := rtc.NewDevices("stream")
	ctx := context.Background()

	audio, err := d.CreateLocalTrack(ctx, domain.DeviceAudioInput, "default")
	require.NoError(t, err)
	assert.Equal(t, domain.KindAudio, audio.Kind())
	defer audio.Dispose()

	video, err := d.CreateLocalTrack(ctx, domain.DeviceDesktop, "screen")
	require.NoError(t, err)
	assert.Equal(t, domain.KindVideo, video.Kind())
	defer video.Dispose()

	_, err = d.CreateLocalTrack(ctx, domain.DeviceAudioOutput, "default")
	assert.Error(t, err)
	assert.ErrorIs(t, d.SetAudioOutput(ctx, "x"), core.ErrNoOutputSwitch)
}
