package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/core"
)

func (ctl *SignalWSController) decodeTrack(conn *WsSignalConn, data []byte) (wire.Track, bool) {
	var p wire.Track
	if _, err := wire.Decode(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad track payload")
		ctl.sendJSON(conn, wire.Errorf("bad_payload"))
		return p, false
	}
	if p.ID == "" {
		ctl.sendJSON(conn, wire.Errorf("track id is empty"))
		return p, false
	}
	return p, true
}

func (ctl *SignalWSController) handleTrackAdd(sid core.SessionID, conn *WsSignalConn, data []byte) {
	p, ok := ctl.decodeTrack(conn, data)
	if !ok {
		return
	}
	if err := ctl.Orch.AddTrack(sid, p.Info()); err != nil {
		ctl.sendJSON(conn, wire.Errorf("track_add: %v", err))
	}
}

func (ctl *SignalWSController) handleTrackRemove(sid core.SessionID, conn *WsSignalConn, data []byte) {
	p, ok := ctl.decodeTrack(conn, data)
	if !ok {
		return
	}
	if err := ctl.Orch.RemoveTrack(sid, p.ID); err != nil {
		ctl.sendJSON(conn, wire.Errorf("track_remove: %v", err))
	}
}

func (ctl *SignalWSController) handleTrackMute(sid core.SessionID, conn *WsSignalConn, data []byte) {
	p, ok := ctl.decodeTrack(conn, data)
	if !ok {
		return
	}
	if err := ctl.Orch.MuteTrack(sid, p.ID, p.Muted); err != nil {
		ctl.sendJSON(conn, wire.Errorf("track_mute: %v", err))
	}
}
