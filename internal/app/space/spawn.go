package space

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/auth"
	"github.com/dkeye/vspace/internal/core"
)

type spawner struct {
	req    core.SpawnRequest
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (sp *spawner) stop() {
	sp.once.Do(sp.cancel)
	<-sp.done
}

// SpawnAvatar asks the visual layer to spawn the avatar of userID right away
// and then every SpawnRetryInterval until AckSpawn confirms it. A new call
// replaces a pending one.
func (s *Space) SpawnAvatar(ctx context.Context, userID string) {
	s.mu.Lock()
	prev := s.spawner
	ctx, cancel := context.WithCancel(ctx)
	sp := &spawner{
		req:    core.SpawnRequest{UserID: userID, AvatarURL: s.cfg.AvatarURL},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.spawner = sp
	interval := s.cfg.SpawnRetryInterval
	s.mu.Unlock()

	if prev != nil {
		prev.stop()
	}
	go s.spawnLoop(ctx, sp, interval)
}

func (s *Space) spawnLoop(ctx context.Context, sp *spawner, interval time.Duration) {
	defer close(sp.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.Visual.SpawnAvatar(sp.req); err != nil {
			log.Warn().Str("module", "space").Str("user", sp.req.UserID).Err(err).Msg("spawn avatar")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// AckSpawn handles a spawn result from the visual layer. It reports whether
// the result confirmed the pending spawn; on success the retries stop and the
// display name is set.
func (s *Space) AckSpawn(res core.SpawnResult) bool {
	s.mu.Lock()
	sp := s.spawner
	if sp == nil || res.ID != sp.req.UserID || res.State != core.SpawnSuccess {
		s.mu.Unlock()
		return false
	}
	s.spawner = nil
	s.mu.Unlock()

	sp.stop()
	name := s.Conference.DisplayName()
	if name == "" {
		if claims, err := auth.Decode(s.token()); err == nil {
			name = claims.DisplayName()
		}
	}
	if err := s.Visual.SetDisplayName(name); err != nil {
		log.Warn().Str("module", "space").Err(err).Msg("set display name")
	}
	log.Info().Str("module", "space").Str("user", res.ID).Msg("avatar spawned")
	return true
}

// Spawning reports whether a spawn is waiting for its acknowledgement.
func (s *Space) Spawning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawner != nil
}
