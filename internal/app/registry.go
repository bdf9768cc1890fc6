package app

import (
	"context"
	"sync"

	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Conference domain.ConferenceName
	Session    core.MemberSession
	Cancel     context.CancelFunc
}

// Registry tracks every live signalling session of the server and the
// conference it joined, if any.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	users    map[core.SessionID]*domain.User
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		users:    make(map[core.SessionID]*domain.User),
	}
}

// CreateUser registers the user behind sid; the session id is the participant id.
func (r *Registry) CreateUser(sid core.SessionID, name string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &domain.User{ID: domain.ParticipantID(sid), Username: name}
	r.users[sid] = u
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", name).Msg("created new user")
	return u
}

func (r *Registry) User(sid core.SessionID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[sid]
	return u, ok
}

func (r *Registry) UpdateUsername(sid core.SessionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[sid]
	if !ok {
		return core.ErrUnknownMember
	}
	if err := u.SetUsername(name); err != nil {
		return err
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", name).Msg("updated username")
	return nil
}

func (r *Registry) BindSignal(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind forgets the session and its user.
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	delete(r.users, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *Registry) ConferenceOf(sid core.SessionID) (domain.ConferenceName, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.Conference == "" {
		return "", nil, false
	}
	return entry.Conference, entry.Session, true
}

func (r *Registry) UpdateConference(sid core.SessionID, name domain.ConferenceName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.Conference = name
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("conference", string(name)).Msg("updated conference")
	return true
}

func (r *Registry) RemoveConference(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[sid]; ok {
		entry.Conference = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed conference association")
}

// Count reports the number of bound sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
