package rtc

import (
	"context"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// Drain reads RTP from a received track until ctx ends or the track fails,
// handing every packet to onPacket (which may be nil). Media forwarding is
// not the server's job; reading keeps the receiver buffers from filling up.
func Drain(ctx context.Context, src *webrtc.TrackRemote, logger *zerolog.Logger, onPacket func(*rtp.Packet)) {
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("drain ctx done")
			return
		default:
		}
		pkt, _, err := src.ReadRTP()
		if err != nil {
			logger.Debug().Err(err).Msg("drain read RTP stopped")
			return
		}
		if onPacket != nil {
			onPacket(pkt)
		}
	}
}
