package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p wire.Join
	if _, err := wire.Decode(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendJSON(conn, wire.Errorf("bad_payload"))
		return
	}
	if p.Conference == "" {
		ctl.sendJSON(conn, wire.Errorf("conference name is empty"))
		return
	}

	if p.Name != "" {
		if err := ctl.Orch.Registry.UpdateUsername(sid, p.Name); err != nil {
			ctl.sendJSON(conn, wire.Errorf("invalid_name: %v", err))
			return
		}
		log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", p.Name).Msg("rename on join")
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("conference", string(p.Conference)).Msg("join")
	if err := ctl.Orch.Join(sid, p.Conference); err != nil {
		ctl.sendJSON(conn, wire.Errorf("join: %v", err))
	}
}

// handleLeave leaves the current conference; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid core.SessionID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(sid, true)
}

func (ctl *SignalWSController) handleCommand(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p wire.Command
	if _, err := wire.Decode(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad command payload")
		ctl.sendJSON(conn, wire.Errorf("bad_payload"))
		return
	}
	if p.Tag == "" {
		ctl.sendJSON(conn, wire.Errorf("command tag is empty"))
		return
	}
	if !ctl.Limiter.Allow(domain.ParticipantID(sid)) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("tag", p.Tag).Msg("command rate limited")
		ctl.sendJSON(conn, wire.Errorf("rate_limited"))
		return
	}
	if err := ctl.Orch.Command(sid, p); err != nil {
		ctl.sendJSON(conn, wire.Errorf("command: %v", err))
	}
}
