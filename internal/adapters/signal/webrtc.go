package signal

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/rtc"
	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/core"
)

// handleOffer answers a publisher offer. The first offer of a session creates
// its PeerConnection; later offers renegotiate it.
func (ctl *SignalWSController) handleOffer(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p wire.SDP
	if _, err := wire.Decode(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad offer payload")
		ctl.sendJSON(conn, wire.Errorf("bad_payload"))
		return
	}
	sess, ok := ctl.Orch.Registry.GetSession(sid)
	if !ok {
		return
	}

	mc := sess.Media()
	if mc == nil {
		wc, err := rtc.NewWebRTCConnection(ctl.Opts.WebRTC, sid)
		if err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("webrtc new pc")
			ctl.sendJSON(conn, wire.Errorf("webrtc: %v", err))
			return
		}
		ctl.Orch.BindMediaHandlers(wc, sid)
		if err = wc.Start(ctx); err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("webrtc start")
			wc.Close()
			ctl.sendJSON(conn, wire.Errorf("webrtc: %v", err))
			return
		}
		sess.UpdateMedia(wc)
		mc = wc
	}

	answer, err := mc.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  p.SDP,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc apply offer")
		ctl.sendJSON(conn, wire.Errorf("webrtc: %v", err))
		return
	}

	ctl.sendJSON(conn, wire.SDP{Type: wire.TypeAnswer, SDP: answer.SDP})
}
