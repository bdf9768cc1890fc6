// Package space drives a session conference from the virtual world: zone
// triggers become room and stage requests, and the local avatar is spawned
// once the world is connected.
package space

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/session"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

var (
	ErrAlreadyInSpace = errors.New("already in space")
	ErrLoginRequired  = errors.New("login is needed")
)

const DefaultSpawnRetryInterval = 2 * time.Second

type Config struct {
	Token              string
	AvatarURL          string
	SpawnRetryInterval time.Duration
}

// Space owns one session conference and the local actor taking part in it.
type Space struct {
	Conference *session.Conference
	Self       *peer.Self
	Visual     core.VisualLayer

	mu      sync.Mutex
	cfg     Config
	name    string
	spawner *spawner
}

func New(conf *session.Conference, self *peer.Self, visual core.VisualLayer, cfg Config) *Space {
	if cfg.SpawnRetryInterval <= 0 {
		cfg.SpawnRetryInterval = DefaultSpawnRetryInterval
	}
	return &Space{Conference: conf, Self: self, Visual: visual, cfg: cfg}
}

// SetToken replaces the access token used by the next Enter.
func (s *Space) SetToken(token string) {
	s.mu.Lock()
	s.cfg.Token = token
	s.mu.Unlock()
}

func (s *Space) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Token
}

func (s *Space) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Space) Enter(ctx context.Context, name string) error {
	s.mu.Lock()
	token := s.cfg.Token
	switch {
	case token == "":
		s.mu.Unlock()
		return ErrLoginRequired
	case s.Self == nil:
		s.mu.Unlock()
		return domain.ErrNoLocalActor
	case s.name != "":
		s.mu.Unlock()
		return ErrAlreadyInSpace
	case name == "":
		s.mu.Unlock()
		return domain.ErrEmptySpaceName
	}
	s.name = name
	s.mu.Unlock()

	if err := s.Conference.Enter(ctx, name, token, s.Self); err != nil {
		s.mu.Lock()
		s.name = ""
		s.mu.Unlock()
		return err
	}
	log.Info().Str("module", "space").Str("space", name).Msg("entered space")
	return nil
}

func (s *Space) Exit(ctx context.Context) error {
	s.mu.Lock()
	name := s.name
	s.name = ""
	sp := s.spawner
	s.spawner = nil
	s.mu.Unlock()
	if sp != nil {
		sp.stop()
	}
	if name == "" {
		return nil
	}
	log.Info().Str("module", "space").Str("space", name).Msg("exiting space")
	return s.Conference.Exit(ctx)
}

// OnStageZone reacts to the avatar stepping onto or off the stage.
func (s *Space) OnStageZone(entered bool) error {
	if entered {
		return s.Conference.TakeStage()
	}
	return s.Conference.ReleaseStage()
}

func (s *Space) OnPrivateZone(ev core.ZoneEvent) error { return s.onZone(ev) }
func (s *Space) OnGroupZone(ev core.ZoneEvent) error   { return s.onZone(ev) }

func (s *Space) onZone(ev core.ZoneEvent) error {
	name := s.Name()
	if name == "" {
		return domain.ErrNotEntered
	}
	room := domain.ZoneRoom(name, ev.ID)
	switch ev.State {
	case core.ZoneEnter:
		return s.Conference.EnterRoom(room)
	case core.ZoneExit:
		return s.Conference.ExitRoom(room)
	default:
		log.Warn().Str("module", "space").Str("state", string(ev.State)).Msg("unknown zone state")
		return nil
	}
}

func byID(a, b *peer.Participant) int { return cmp.Compare(a.ID, b.ID) }

// RoomParticipants lists the known participants of the current room.
func (s *Space) RoomParticipants() []*peer.Participant {
	room := s.Conference.CurrentRoom()
	if room == "" {
		return nil
	}
	roster := s.Conference.Participants()
	var out []*peer.Participant
	for _, id := range s.Conference.Rooms().Members(room) {
		if p, ok := roster.Get(id); ok {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, byID)
	return out
}

// Presenters lists the stage occupier when it is a known remote participant.
func (s *Space) Presenters() []*peer.Participant {
	occ := s.Conference.Occupier()
	if occ == nil {
		return nil
	}
	if p, ok := s.Conference.Participants().Get(occ.ID); ok {
		return []*peer.Participant{p}
	}
	return nil
}
