package core

import (
	"cmp"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/dkeye/vspace/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrUnknownMember = errors.New("unknown member")

// conferenceImpl is a threadsafe in-memory conference.
// It never closes adapter-owned resources.
type conferenceImpl struct {
	name  domain.ConferenceName
	mu    sync.RWMutex
	bySID map[SessionID]MemberSession
	order []SessionID
}

func NewConferenceService(name domain.ConferenceName) ConferenceService {
	return &conferenceImpl{
		name:  name,
		bySID: make(map[SessionID]MemberSession),
	}
}

func (c *conferenceImpl) Name() domain.ConferenceName { return c.name }

func (c *conferenceImpl) MemberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bySID)
}

func (c *conferenceImpl) AddMember(sid SessionID, ms MemberSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.bySID[sid]; !ok {
		c.order = append(c.order, sid)
	}
	c.bySID[sid] = ms
	log.Info().Str("module", "core.conference").Str("conference", string(c.name)).Str("sid", string(sid)).Msg("member added")
}

func (c *conferenceImpl) RemoveMember(sid SessionID) (MemberDTO, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms, ok := c.bySID[sid]
	if !ok {
		return MemberDTO{}, false
	}
	dto := toDTO(ms)
	delete(c.bySID, sid)
	c.order = slices.DeleteFunc(c.order, func(s SessionID) bool { return s == sid })
	log.Info().Str("module", "core.conference").Str("conference", string(c.name)).Str("sid", string(sid)).Msg("member removed")
	return dto, true
}

func (c *conferenceImpl) AddTrack(sid SessionID, info domain.TrackInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms, ok := c.bySID[sid]
	if !ok {
		return false
	}
	if _, dup := ms.Meta().Tracks[info.ID]; dup {
		return false
	}
	ms.Meta().Tracks[info.ID] = info
	return true
}

func (c *conferenceImpl) RemoveTrack(sid SessionID, id domain.TrackID) (domain.TrackInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms, ok := c.bySID[sid]
	if !ok {
		return domain.TrackInfo{}, false
	}
	info, ok := ms.Meta().Tracks[id]
	if ok {
		delete(ms.Meta().Tracks, id)
	}
	return info, ok
}

func (c *conferenceImpl) SetTrackMuted(sid SessionID, id domain.TrackID, muted bool) (domain.TrackInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms, ok := c.bySID[sid]
	if !ok {
		return domain.TrackInfo{}, false
	}
	info, ok := ms.Meta().Tracks[id]
	if !ok {
		return domain.TrackInfo{}, false
	}
	info.Muted = muted
	ms.Meta().Tracks[id] = info
	return info, true
}

func (c *conferenceImpl) Broadcast(from SessionID, data Frame, includeSender bool) PublishResult {
	c.mu.RLock()
	targets := make([]MemberSession, 0, len(c.order))
	for _, sid := range c.order {
		if sid == from && !includeSender {
			continue
		}
		targets = append(targets, c.bySID[sid])
	}
	c.mu.RUnlock()

	res := PublishResult{}
	for _, m := range targets {
		sig := m.Signal()
		if sig == nil {
			continue
		}
		if err := sig.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.conference").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (c *conferenceImpl) SendTo(sid SessionID, data Frame) error {
	c.mu.RLock()
	ms, ok := c.bySID[sid]
	c.mu.RUnlock()
	if !ok || ms.Signal() == nil {
		return ErrUnknownMember
	}
	return ms.Signal().TrySend(data)
}

func (c *conferenceImpl) MembersSnapshot() []MemberDTO {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MemberDTO, 0, len(c.order))
	for _, sid := range c.order {
		out = append(out, toDTO(c.bySID[sid]))
	}
	return out
}

// toDTO must be called with the conference lock held.
func toDTO(ms MemberSession) MemberDTO {
	meta := ms.Meta()
	tracks := slices.Collect(maps.Values(meta.Tracks))
	slices.SortFunc(tracks, func(a, b domain.TrackInfo) int { return cmp.Compare(a.ID, b.ID) })
	return MemberDTO{ID: meta.User.ID, Username: meta.User.Username, Tracks: tracks}
}
