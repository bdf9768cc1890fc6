package rtc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

const (
	opusFrame       = 20 * time.Millisecond
	opusFrameSample = 960
	opusPayloadType = 111
	rtpMTU          = 1200
)

// opusSilence is a single Opus frame carrying silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// Devices is a core.DeviceSource for headless clients. Audio tracks carry
// generated silence so the remote end sees live RTP; video tracks are
// published without frames.
type Devices struct {
	streamID string
}

func NewDevices(streamID string) *Devices {
	return &Devices{streamID: streamID}
}

func (d *Devices) CreateLocalTrack(ctx context.Context, kind domain.DeviceKind, deviceID string) (core.TrackHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var tk domain.TrackKind
	switch kind {
	case domain.DeviceAudioInput:
		tk = domain.KindAudio
	case domain.DeviceVideoInput, domain.DeviceDesktop:
		tk = domain.KindVideo
	default:
		return nil, fmt.Errorf("device kind %q cannot produce a track", kind)
	}
	lt, err := NewLocalTrack(tk, d.streamID)
	if err != nil {
		return nil, fmt.Errorf("create %s track: %w", kind, err)
	}
	if tk == domain.KindAudio {
		go feedSilence(lt)
	}
	return lt, nil
}

func feedSilence(lt *LocalTrack) {
	logger := log.With().Str("module", "rtc").Str("track_id", string(lt.ID())).Logger()
	p := rtp.NewPacketizer(rtpMTU, opusPayloadType, rand.Uint32(), &codecs.OpusPayloader{}, rtp.NewRandomSequencer(), 48000)
	ticker := time.NewTicker(opusFrame)
	defer ticker.Stop()
	for {
		select {
		case <-lt.Done():
			logger.Debug().Msg("silence feed stopped")
			return
		case <-ticker.C:
			for _, pkt := range p.Packetize(opusSilence, opusFrameSample) {
				if _, err := lt.WriteRTP(pkt); err != nil {
					logger.Debug().Err(err).Msg("write RTP")
				}
			}
		}
	}
}

func (d *Devices) Devices(ctx context.Context) ([]core.Device, error) {
	return []core.Device{
		{ID: "default", Label: "Silence generator", Kind: domain.DeviceAudioInput},
		{ID: "default", Label: "Null camera", Kind: domain.DeviceVideoInput},
		{ID: "screen", Label: "Null screen", Kind: domain.DeviceDesktop},
	}, nil
}

// SetAudioOutput fails: a headless client has nothing to play into.
func (d *Devices) SetAudioOutput(ctx context.Context, deviceID string) error {
	return core.ErrNoOutputSwitch
}
