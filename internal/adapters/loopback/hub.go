// Package loopback is an in-process conference transport. Connections opened
// on the same Hub share conferences, which makes multi participant scenarios
// runnable without a signalling server.
package loopback

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

type hubConference struct {
	members []*Conference
}

// Hub plays the signalling server. Every fan-out happens under its lock so all
// members observe one conference order.
type Hub struct {
	mu         sync.Mutex
	confs      map[string]*hubConference
	conns      map[domain.ParticipantID]*Connection
	connectErr error
}

func NewHub() *Hub {
	return &Hub{
		confs: make(map[string]*hubConference),
		conns: make(map[domain.ParticipantID]*Connection),
	}
}

// FailConnect makes every following Connect return err (nil restores).
func (h *Hub) FailConnect(err error) {
	h.mu.Lock()
	h.connectErr = err
	h.mu.Unlock()
}

func (h *Hub) Open(space string, token string) core.Connection {
	c := &Connection{
		hub:   h,
		space: space,
		token: token,
		id:    domain.ParticipantID(uuid.NewString()),
		done:  make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	return c
}

// Connection returns the open connection of participant id.
func (h *Hub) Connection(id domain.ParticipantID) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[id]
}

func (h *Hub) forget(id domain.ParticipantID) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// Members lists the joined participant ids of a conference in join order.
func (h *Hub) Members(space string, name domain.ConferenceName) []domain.ParticipantID {
	h.mu.Lock()
	defer h.mu.Unlock()
	hc, ok := h.confs[confKey(space, name)]
	if !ok {
		return nil
	}
	out := make([]domain.ParticipantID, 0, len(hc.members))
	for _, m := range hc.members {
		out = append(out, m.conn.id)
	}
	return out
}

func confKey(space string, name domain.ConferenceName) string {
	return space + "/" + string(name)
}

func (h *Hub) join(c *Conference) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := confKey(c.conn.space, c.name)
	hc, ok := h.confs[key]
	if !ok {
		hc = &hubConference{}
		h.confs[key] = hc
	}
	if slices.Contains(hc.members, c) {
		return
	}
	c.disp.Joined()
	for _, m := range hc.members {
		c.disp.ParticipantJoined(m.conn.id, m.DisplayName())
		for _, info := range m.published() {
			c.disp.TrackAdded(info)
		}
	}
	for _, m := range hc.members {
		m.disp.ParticipantJoined(c.conn.id, c.DisplayName())
	}
	hc.members = append(hc.members, c)
	log.Debug().Str("module", "loopback").Str("conference", key).Str("participant", string(c.conn.id)).Msg("joined")
}

// leave reports whether c was a member. notifySelf is false when the
// connection dropped and there is nobody left to tell.
func (h *Hub) leave(c *Conference, notifySelf bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := confKey(c.conn.space, c.name)
	hc, ok := h.confs[key]
	if !ok {
		return false
	}
	idx := slices.Index(hc.members, c)
	if idx < 0 {
		return false
	}
	hc.members = slices.Delete(hc.members, idx, idx+1)
	tracks := c.published()
	for _, m := range hc.members {
		for _, info := range tracks {
			m.disp.TrackRemoved(info.ParticipantID, info.ID)
		}
		m.disp.ParticipantLeft(c.conn.id)
	}
	if notifySelf {
		c.disp.Left()
	}
	if len(hc.members) == 0 {
		delete(h.confs, key)
	}
	return true
}

func (h *Hub) others(c *Conference) []*Conference {
	hc, ok := h.confs[confKey(c.conn.space, c.name)]
	if !ok || !slices.Contains(hc.members, c) {
		return nil
	}
	return slices.DeleteFunc(slices.Clone(hc.members), func(m *Conference) bool { return m == c })
}

func (h *Hub) command(c *Conference, tag string, cmd core.Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	hc, ok := h.confs[confKey(c.conn.space, c.name)]
	if !ok || !slices.Contains(hc.members, c) {
		return domain.ErrNotEntered
	}
	cmd.From = c.conn.id
	for _, m := range hc.members {
		m.disp.Command(tag, cmd)
	}
	return nil
}

func (h *Hub) trackAdded(c *Conference, info domain.TrackInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.others(c) {
		m.disp.TrackAdded(info)
	}
}

func (h *Hub) trackRemoved(c *Conference, info domain.TrackInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.others(c) {
		m.disp.TrackRemoved(info.ParticipantID, info.ID)
	}
}

func (h *Hub) trackMuted(c *Conference, info domain.TrackInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.others(c) {
		m.disp.TrackMuted(info.ParticipantID, info.ID, info.Muted)
	}
}

func (h *Hub) connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connectErr
}
