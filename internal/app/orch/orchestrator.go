package orch

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/app"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

// Orchestrator owns every membership and track mutation of the server.
// Mutations are serialized so each member observes one conference order.
type Orchestrator struct {
	Registry    *app.Registry
	Conferences core.ConferenceManager
	Policy      app.Policy

	mu sync.Mutex
}

// broadcast must be called with o.mu held.
func (o *Orchestrator) broadcast(conf core.ConferenceService, from core.SessionID, v any, includeSender bool) {
	data, err := wire.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("broadcast marshal")
		return
	}
	res := conf.Broadcast(from, data, includeSender)
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		sid := core.SessionID(slow.Meta().User.ID)
		action := o.Policy.OnBackPressure(conf, slow)
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Stringer("action", action).Msg("member queue full")
		if action == app.KickMember {
			o.Registry.Cancel(sid)
		}
	}
}

// SendTo delivers one frame to a single session, joined or not.
func (o *Orchestrator) SendTo(sid core.SessionID, v any) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok || sess.Signal() == nil {
		return
	}
	data, err := wire.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("send marshal")
		return
	}
	if err := sess.Signal().TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("send dropped")
	}
}

// Command fans a tagged command out to every member, sender included.
func (o *Orchestrator) Command(sid core.SessionID, cmd wire.Command) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	conf, ok := o.conferenceOf(sid)
	if !ok {
		return domain.ErrNotEntered
	}
	cmd.Type = wire.TypeCommand
	cmd.From = domain.ParticipantID(sid)
	o.broadcast(conf, sid, cmd, true)
	return nil
}

func (o *Orchestrator) conferenceOf(sid core.SessionID) (core.ConferenceService, bool) {
	name, _, ok := o.Registry.ConferenceOf(sid)
	if !ok {
		return nil, false
	}
	return o.Conferences.Get(name)
}
