package wsclient

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/core"
)

func (c *Connection) handleFrame(data []byte) {
	typ, err := wire.Decode(data, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "wsclient").Msg("bad json")
		return
	}

	if typ == wire.TypeAnswer {
		var p wire.SDP
		if _, err := wire.Decode(data, &p); err != nil {
			log.Error().Err(err).Str("module", "wsclient").Msg("bad answer")
			return
		}
		select {
		case c.answers <- webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}:
		default:
			log.Warn().Str("module", "wsclient").Msg("unexpected answer")
		}
		return
	}

	conf := c.current()
	if conf == nil {
		log.Debug().Str("module", "wsclient").Str("type", typ).Msg("frame before conference")
		return
	}
	disp := conf.disp

	switch typ {
	case wire.TypeConferenceJoined:
		var p wire.Participant
		if _, err := wire.Decode(data, &p); err != nil {
			log.Error().Err(err).Str("module", "wsclient").Msg("bad conference_joined")
			return
		}
		conf.setMyID(p.ID)
		disp.Joined()
	case wire.TypeConferenceLeft:
		disp.Left()
	case wire.TypeParticipantJoined:
		var p wire.Participant
		if _, err := wire.Decode(data, &p); err == nil {
			disp.ParticipantJoined(p.ID, p.Name)
		}
	case wire.TypeParticipantLeft:
		var p wire.Participant
		if _, err := wire.Decode(data, &p); err == nil {
			disp.ParticipantLeft(p.ID)
		}
	case wire.TypeTrackAdded:
		var p wire.Track
		if _, err := wire.Decode(data, &p); err == nil {
			disp.TrackAdded(p.Info())
		}
	case wire.TypeTrackRemoved:
		var p wire.Track
		if _, err := wire.Decode(data, &p); err == nil {
			disp.TrackRemoved(p.ParticipantID, p.ID)
		}
	case wire.TypeTrackMuted:
		var p wire.Track
		if _, err := wire.Decode(data, &p); err == nil {
			disp.TrackMuted(p.ParticipantID, p.ID, p.Muted)
		}
	case wire.TypeCommand:
		var p wire.Command
		if _, err := wire.Decode(data, &p); err == nil {
			disp.Command(p.Tag, core.Command{Value: p.Value, Attributes: p.Attributes, From: p.From})
		}
	case wire.TypeError:
		var p wire.Error
		if _, err := wire.Decode(data, &p); err == nil {
			log.Warn().Str("module", "wsclient").Str("error", p.Error).Msg("server error")
		}
	case wire.TypePong:
	default:
		log.Warn().Str("module", "wsclient").Str("type", typ).Msg("unknown frame")
	}
}
