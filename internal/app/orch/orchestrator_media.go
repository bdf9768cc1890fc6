package orch

import (
	"context"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/rtc"
	"github.com/dkeye/vspace/internal/core"
)

func (o *Orchestrator) BindMediaHandlers(mc core.MediaConnection, sid core.SessionID) {
	mc.OnTrack(func(trackCtx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		o.OnTrack(trackCtx, sid, track)
	})
	mc.OnClosed(func() { o.OnMediaDisconnect(sid) })
}

func (o *Orchestrator) OnMediaDisconnect(sid core.SessionID) {
	if sess, ok := o.Registry.GetSession(sid); ok {
		sess.UpdateMedia(nil)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("media disconnected")
}

func (o *Orchestrator) cleanupMedia(sid core.SessionID) {
	if sess, ok := o.Registry.GetSession(sid); ok {
		if mc := sess.Media(); mc != nil {
			mc.Close()
		}
	}
}

// OnTrack drains a published media track until it ends. Tracks of sessions
// without a media connection are ignored.
func (o *Orchestrator) OnTrack(ctx context.Context, sid core.SessionID, track *webrtc.TrackRemote) {
	if sess, ok := o.Registry.GetSession(sid); !ok || sess.Media() == nil {
		return
	}
	logger := log.With().
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("track_id", track.ID()).
		Logger()

	var packets atomic.Uint64
	go func() {
		rtc.Drain(ctx, track, &logger, func(*rtp.Packet) { packets.Add(1) })
		logger.Info().Uint64("packets", packets.Load()).Msg("track drained")
	}()
}
