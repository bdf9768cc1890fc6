package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var ping <-chan time.Time
	if ctl.Opts.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.Opts.PingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Orch.Disconnect(sid)
		ctl.Limiter.Forget(domain.ParticipantID(sid))
		ctl.Metrics.ConnClosed()
	}()

	if ctl.Opts.PingPeriod > 0 {
		pongWait := ctl.Opts.PingPeriod * 10 / 9
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(ctx, sid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) {
	typ, err := wire.Decode(data, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendJSON(c, wire.Errorf("bad_payload"))
		return
	}
	ctl.Metrics.Frame(typ)

	switch typ {
	case wire.TypeJoin:
		ctl.handleJoin(sid, c, data)
	case wire.TypeLeave:
		ctl.handleLeave(sid)
	case wire.TypeCommand:
		ctl.handleCommand(sid, c, data)
	case wire.TypeTrackAdd:
		ctl.handleTrackAdd(sid, c, data)
	case wire.TypeTrackRemove:
		ctl.handleTrackRemove(sid, c, data)
	case wire.TypeTrackMute:
		ctl.handleTrackMute(sid, c, data)
	case wire.TypeOffer:
		ctl.handleOffer(ctx, sid, c, data)
	case wire.TypePing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", typ).Msg("unknown signal")
		ctl.sendJSON(c, wire.Errorf("unknown type %q", typ))
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := wire.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
