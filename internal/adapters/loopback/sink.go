package loopback

import (
	"maps"
	"slices"
	"sync"

	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

// Sink records which tracks are playing into it.
type Sink struct {
	mu      sync.Mutex
	playing map[domain.TrackID]core.TrackHandle
}

func NewSink() *Sink {
	return &Sink{playing: make(map[domain.TrackID]core.TrackHandle)}
}

func (s *Sink) Play(t core.TrackHandle) error {
	s.mu.Lock()
	s.playing[t.ID()] = t
	s.mu.Unlock()
	return nil
}

func (s *Sink) Stop(t core.TrackHandle) {
	s.mu.Lock()
	delete(s.playing, t.ID())
	s.mu.Unlock()
}

func (s *Sink) Playing() []domain.TrackID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.playing))
}
