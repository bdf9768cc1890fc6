package signal

import "github.com/dkeye/vspace/internal/adapters/wire"

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.sendJSON(conn, wire.Envelope{Type: wire.TypePong})
}
