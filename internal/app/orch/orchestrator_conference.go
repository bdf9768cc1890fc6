package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

// Join adds sid to the named conference. The joiner first learns its own id,
// then every present member with their tracks; the others learn about the
// joiner afterwards.
func (o *Orchestrator) Join(sid core.SessionID, name domain.ConferenceName) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if current, _, ok := o.Registry.ConferenceOf(sid); ok {
		o.leave(sid, false)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_conference", string(current)).Msg("left previous conference")
	}
	session, ok := o.Registry.GetSession(sid)
	if !ok {
		return core.ErrUnknownMember
	}

	conf := o.Conferences.GetOrCreate(name)
	present := conf.MembersSnapshot()

	o.SendTo(sid, wire.Participant{Type: wire.TypeConferenceJoined, ID: domain.ParticipantID(sid)})
	for _, m := range present {
		o.SendTo(sid, wire.Participant{Type: wire.TypeParticipantJoined, ID: m.ID, Name: m.Username})
		for _, t := range m.Tracks {
			o.SendTo(sid, wire.TrackFrame(wire.TypeTrackAdded, t))
		}
	}

	conf.AddMember(sid, session)
	o.Registry.UpdateConference(sid, name)
	user := session.Meta().User
	o.broadcast(conf, sid, wire.Participant{Type: wire.TypeParticipantJoined, ID: user.ID, Name: user.Username}, false)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("conference", string(name)).Int("members", conf.MemberCount()).Msg("joined conference")
	return nil
}

// Leave removes sid from its conference; notifySelf echoes conference_left
// to the leaver.
func (o *Orchestrator) Leave(sid core.SessionID, notifySelf bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.leave(sid, notifySelf)
}

func (o *Orchestrator) leave(sid core.SessionID, notifySelf bool) {
	name, _, ok := o.Registry.ConferenceOf(sid)
	if !ok {
		if notifySelf {
			o.SendTo(sid, wire.Participant{Type: wire.TypeConferenceLeft})
		}
		return
	}
	o.Registry.RemoveConference(sid)
	conf, ok := o.Conferences.Get(name)
	if !ok {
		return
	}
	dto, ok := conf.RemoveMember(sid)
	if ok {
		for _, t := range dto.Tracks {
			o.broadcast(conf, sid, wire.TrackFrame(wire.TypeTrackRemoved, t), false)
		}
		o.broadcast(conf, sid, wire.Participant{Type: wire.TypeParticipantLeft, ID: dto.ID}, false)
	}
	if notifySelf {
		o.SendTo(sid, wire.Participant{Type: wire.TypeConferenceLeft})
	}
	o.Conferences.StopIfEmpty(name)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("conference", string(name)).Msg("left conference")
}

// Disconnect drops everything bound to sid once its signalling connection is gone.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	o.Leave(sid, false)
	o.cleanupMedia(sid)
	o.Registry.Unbind(sid)
}
