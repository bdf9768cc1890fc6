package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/app/notify"
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/core"
)

// publishLocal adds the tracks the local actor already holds. Runs after
// bindSelf; a track replaced meanwhile is taken back off the transport.
func (c *Conference) publishLocal(ctx context.Context, gen uint64, conf core.Conference, self *peer.Self) {
	slots := []func() *peer.Track{self.Audio, self.Video}
	for _, slot := range slots {
		t := slot()
		if t == nil || !c.active(gen) {
			continue
		}
		if err := conf.AddTrack(ctx, t.Handle()); err != nil {
			log.Warn().Str("module", "session").Str("track", string(t.ID())).Err(err).Msg("add local track failed")
			continue
		}
		if slot() != t {
			if err := conf.RemoveTrack(ctx, t.Handle()); err != nil {
				log.Warn().Str("module", "session").Str("track", string(t.ID())).Err(err).Msg("remove local track failed")
			}
		}
	}
}

// bindSelf propagates local track replacement to the transport.
func (c *Conference) bindSelf(gen uint64, self *peer.Self) {
	changed := func(ctx context.Context, old, new *peer.Track) { c.onLocalTrackChanged(ctx, gen, old, new) }
	tokens := []notify.Token{self.OnAudioChanged(changed), self.OnVideoChanged(changed)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active(gen) {
		for _, tok := range tokens {
			self.Unsubscribe(tok)
		}
		return
	}
	c.selfTokens = tokens
}

func (c *Conference) onLocalTrackChanged(ctx context.Context, gen uint64, old, new *peer.Track) {
	c.mu.Lock()
	conf := c.conf
	ok := c.active(gen) && conf != nil
	c.mu.Unlock()
	if !ok {
		return
	}
	if old != nil {
		if err := conf.RemoveTrack(ctx, old.Handle()); err != nil {
			log.Warn().Str("module", "session").Str("track", string(old.ID())).Err(err).Msg("remove local track failed")
		}
	}
	if new != nil {
		if err := conf.AddTrack(ctx, new.Handle()); err != nil {
			log.Warn().Str("module", "session").Str("track", string(new.ID())).Err(err).Msg("add local track failed")
		}
	}
	c.reconcileStage(gen)
}
