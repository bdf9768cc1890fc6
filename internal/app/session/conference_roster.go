package session

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/rooms"
	"github.com/dkeye/vspace/internal/app/stage"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

func (c *Conference) myID(gen uint64) domain.ParticipantID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active(gen) || c.conf == nil {
		return ""
	}
	return c.conf.MyUserID()
}

func (c *Conference) onParticipantJoined(gen uint64, ev core.Event) {
	if !c.active(gen) || ev.ParticipantID == "" {
		return
	}
	me := c.myID(gen)
	changed := c.roster.Update(func(cur peer.Roster) (peer.Roster, bool) {
		if !c.active(gen) {
			return cur, false
		}
		if _, ok := cur.Get(ev.ParticipantID); ok {
			return cur, false
		}
		next := cur.With(&peer.Participant{ID: ev.ParticipantID, DisplayName: ev.Name, IsSelf: ev.ParticipantID == me})
		c.Metrics.Participants(len(next))
		return next, true
	})
	if changed {
		log.Debug().Str("module", "session").Str("participant", string(ev.ParticipantID)).Str("name", ev.Name).Msg("participant joined")
		c.reconcileStage(gen)
	}
}

func (c *Conference) onParticipantLeft(gen uint64, ev core.Event) {
	if !c.active(gen) {
		return
	}
	id := ev.ParticipantID
	changed := c.roster.Update(func(cur peer.Roster) (peer.Roster, bool) {
		if !c.active(gen) {
			return cur, false
		}
		p, ok := cur.Get(id)
		if !ok {
			return cur, false
		}
		disposeTracks(p)
		next := cur.Without(id)
		c.Metrics.Participants(len(next))
		return next, true
	})
	c.rooms.Update(func(cur rooms.Membership) (rooms.Membership, bool) {
		if !c.active(gen) {
			return cur, false
		}
		next, pruned := cur.Prune(id)
		if pruned {
			c.Metrics.Rooms(next.Len())
		}
		return next, pruned
	})
	if c.updateStage(func(cur *peer.Participant) (*peer.Participant, bool) {
		if !c.active(gen) {
			return cur, false
		}
		return stage.Vacate(cur, id)
	}) {
		c.Metrics.StageChanged()
		log.Info().Str("module", "session").Str("participant", string(id)).Msg("occupier left, stage cleared")
	}
	if changed {
		log.Debug().Str("module", "session").Str("participant", string(id)).Msg("participant left")
		c.reconcileStage(gen)
	}
}

func (c *Conference) onTrackAdded(gen uint64, ev core.Event) {
	h := ev.Track
	if !c.active(gen) || h == nil || h.IsLocal() {
		return
	}
	owner, kind := h.ParticipantID(), h.Kind()
	if !kind.Valid() {
		return
	}
	changed := c.roster.Update(func(cur peer.Roster) (peer.Roster, bool) {
		if !c.active(gen) {
			return cur, false
		}
		p, ok := cur.Get(owner)
		if !ok {
			log.Debug().Str("module", "session").Str("track", string(h.ID())).Msg("track for unknown participant ignored")
			return cur, false
		}
		prior := p.Slot(kind)
		if prior != nil && prior.ID() == h.ID() {
			return cur, false
		}
		if prior != nil {
			_ = prior.Dispose()
		}
		return cur.With(p.WithTrack(kind, peer.NewRemoteTrack(h))), true
	})
	if changed {
		c.reconcileStage(gen)
	}
}

func (c *Conference) onTrackRemoved(gen uint64, ev core.Event) {
	h := ev.Track
	if !c.active(gen) || h == nil || h.IsLocal() {
		return
	}
	owner, kind := h.ParticipantID(), h.Kind()
	changed := c.roster.Update(func(cur peer.Roster) (peer.Roster, bool) {
		if !c.active(gen) {
			return cur, false
		}
		p, ok := cur.Get(owner)
		if !ok {
			return cur, false
		}
		slot := p.Slot(kind)
		if slot == nil || slot.ID() != h.ID() {
			return cur, false
		}
		_ = slot.Dispose()
		return cur.With(p.WithTrack(kind, nil)), true
	})
	if changed {
		c.reconcileStage(gen)
	}
}
