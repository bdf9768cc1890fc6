package session

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/stage"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
	"github.com/dkeye/vspace/internal/metrics"
)

// TakeStage asks for the stage. The occupier only changes when the command
// comes back and nobody took the stage first.
func (c *Conference) TakeStage() error {
	conf, _, ok := c.handle()
	if !ok {
		return domain.ErrNotEntered
	}
	if c.Occupier() != nil {
		return domain.ErrAlreadyOccupied
	}
	return c.send(conf, domain.TagTakeStage, conf.MyUserID(), "")
}

func (c *Conference) ReleaseStage() error {
	conf, _, ok := c.handle()
	if !ok {
		return domain.ErrNotEntered
	}
	occ := c.Occupier()
	if occ == nil {
		return domain.ErrNotOccupied
	}
	me := conf.MyUserID()
	if occ.ID != me {
		return domain.ErrNotOwner
	}
	return c.send(conf, domain.TagReleaseStage, me, "")
}

func (c *Conference) onTakeStage(gen uint64, cmd core.Command) {
	if !c.active(gen) {
		return
	}
	id := domain.ParticipantID(cmd.Value)
	cand := c.resolve(gen, id)
	if cand == nil {
		c.Metrics.Command(domain.TagTakeStage, metrics.ResultIgnored)
		log.Warn().Str("module", "session").Str("participant", string(id)).Msg("stage taker not found")
		return
	}
	var outcome stage.Outcome
	var holder domain.ParticipantID
	c.updateStage(func(cur *peer.Participant) (*peer.Participant, bool) {
		if !c.active(gen) {
			return cur, false
		}
		next, out := stage.Take(cur, cand)
		outcome = out
		if cur != nil {
			holder = cur.ID
		}
		return next, out == stage.Taken || out == stage.Refreshed
	})
	if outcome != stage.Taken && outcome != stage.Refreshed {
		cand.DisposeBorrowed()
	}
	switch outcome {
	case stage.Lost:
		c.Metrics.Command(domain.TagTakeStage, metrics.ResultIgnored)
		log.Info().Str("module", "session").Str("participant", string(id)).Str("occupier", string(holder)).Msg("stage already taken")
	case stage.Unchanged:
		c.Metrics.Command(domain.TagTakeStage, metrics.ResultIgnored)
	default:
		c.Metrics.Command(domain.TagTakeStage, metrics.ResultApplied)
		c.Metrics.StageChanged()
		log.Info().Str("module", "session").Str("participant", string(id)).Str("outcome", outcome.String()).Msg("stage taken")
	}
}

func (c *Conference) onReleaseStage(gen uint64, cmd core.Command) {
	if !c.active(gen) {
		return
	}
	id := domain.ParticipantID(cmd.Value)
	if c.updateStage(func(cur *peer.Participant) (*peer.Participant, bool) {
		if !c.active(gen) {
			return cur, false
		}
		return stage.Release(cur)
	}) {
		c.Metrics.Command(domain.TagReleaseStage, metrics.ResultApplied)
		c.Metrics.StageChanged()
		log.Info().Str("module", "session").Str("participant", string(id)).Msg("stage released")
		return
	}
	c.Metrics.Command(domain.TagReleaseStage, metrics.ResultIgnored)
	log.Debug().Str("module", "session").Str("participant", string(id)).Msg("stage already free")
}

// updateStage applies fn to the occupier and disposes the borrowed tracks of
// the occupier it replaced.
func (c *Conference) updateStage(fn func(cur *peer.Participant) (*peer.Participant, bool)) bool {
	var prev, next *peer.Participant
	changed := c.stage.Update(func(cur *peer.Participant) (*peer.Participant, bool) {
		n, ok := fn(cur)
		prev, next = cur, n
		return n, ok
	})
	if changed && prev != nil && prev != next {
		prev.DisposeBorrowed()
	}
	return changed
}

// resolve builds the stage view of id: the local actor from its published
// tracks, anybody else from the roster, falling back to the transport
// directory with borrowed tracks until the roster catches up.
func (c *Conference) resolve(gen uint64, id domain.ParticipantID) *peer.Participant {
	if id == "" {
		return nil
	}
	c.mu.Lock()
	conf, self, name := c.conf, c.self, c.displayName
	ok := c.active(gen) && conf != nil
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if id == conf.MyUserID() {
		return selfView(conf, self, name)
	}
	if p, ok := c.roster.Load().Get(id); ok {
		return p
	}
	for _, rp := range conf.Participants() {
		if rp.ID() != id {
			continue
		}
		p := &peer.Participant{ID: id, DisplayName: rp.DisplayName()}
		for _, kind := range []domain.TrackKind{domain.KindAudio, domain.KindVideo} {
			if hs := rp.Tracks(kind); len(hs) > 0 {
				p = p.WithTrack(kind, peer.NewBorrowedTrack(hs[0]))
			}
		}
		return p
	}
	return nil
}

func inDirectory(conf core.Conference, id domain.ParticipantID) bool {
	for _, rp := range conf.Participants() {
		if rp.ID() == id {
			return true
		}
	}
	return false
}

func selfView(conf core.Conference, self *peer.Self, name string) *peer.Participant {
	p := &peer.Participant{ID: conf.MyUserID(), DisplayName: name, IsSelf: true}
	if self == nil {
		return p
	}
	published := make(map[domain.TrackID]bool)
	for _, h := range conf.LocalTracks() {
		published[h.ID()] = true
	}
	if a := self.Audio(); a != nil && published[a.ID()] {
		p.Audio = a
	}
	if v := self.Video(); v != nil && published[v.ID()] {
		p.Video = v
	}
	return p
}

// reconcileStage refreshes the cached occupier after roster or local track
// changes, and clears it when a remote occupier is gone.
func (c *Conference) reconcileStage(gen uint64) {
	if !c.active(gen) || c.Occupier() == nil {
		return
	}
	c.mu.Lock()
	conf, self, name := c.conf, c.self, c.displayName
	c.mu.Unlock()
	if conf == nil {
		return
	}
	me := conf.MyUserID()
	var cleared bool
	c.updateStage(func(cur *peer.Participant) (*peer.Participant, bool) {
		if !c.active(gen) {
			return cur, false
		}
		if cur == nil {
			return nil, false
		}
		var fresh *peer.Participant
		if cur.ID == me {
			fresh = selfView(conf, self, name)
		} else if p, ok := c.roster.Load().Get(cur.ID); ok {
			if cur.HasBorrowed() {
				return p, true
			}
			fresh = p
		} else if inDirectory(conf, cur.ID) {
			return cur, false
		}
		next, changed := stage.Reconcile(cur, fresh)
		cleared = changed && next == nil
		return next, changed
	})
	if cleared {
		c.Metrics.StageChanged()
		log.Info().Str("module", "session").Msg("occupier gone, stage cleared")
	}
}
