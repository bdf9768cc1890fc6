package loopback

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dkeye/vspace/internal/adapters/dispatch"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

type published struct {
	handle    core.TrackHandle
	stopWatch func()
}

// Conference is one member's handle on a hub conference.
type Conference struct {
	conn *Connection
	name domain.ConferenceName
	disp *dispatch.Dispatcher

	mu          sync.Mutex
	displayName string
	local       map[domain.TrackID]*published
}

func (c *Conference) On(kind core.EventKind, h core.EventHandler) core.ListenerID {
	return c.disp.On(kind, h)
}

func (c *Conference) Off(id core.ListenerID) { c.disp.Off(id) }

func (c *Conference) AddCommandListener(tag string, h core.CommandHandler) core.ListenerID {
	return c.disp.AddCommandListener(tag, h)
}

func (c *Conference) RemoveCommandListener(id core.ListenerID) { c.disp.RemoveCommandListener(id) }

func (c *Conference) Join(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.conn.done:
		return domain.ErrDisconnected
	default:
	}
	c.conn.hub.join(c)
	return nil
}

func (c *Conference) Leave(ctx context.Context) error {
	c.conn.hub.leave(c, true)
	c.mu.Lock()
	for id, p := range c.local {
		p.stopWatch()
		delete(c.local, id)
	}
	c.mu.Unlock()
	return nil
}

func (c *Conference) SetDisplayName(name string) {
	c.mu.Lock()
	c.displayName = name
	c.mu.Unlock()
}

func (c *Conference) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayName
}

func (c *Conference) SendCommand(tag string, cmd core.Command) error {
	return c.conn.hub.command(c, tag, cmd)
}

func (c *Conference) Participants() []core.RemoteParticipant {
	return c.disp.Directory().Participants()
}

func (c *Conference) MyUserID() domain.ParticipantID { return c.conn.id }

func (c *Conference) LocalTracks() []core.TrackHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := slices.Sorted(maps.Keys(c.local))
	out := make([]core.TrackHandle, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.local[id].handle)
	}
	return out
}

func (c *Conference) published() []domain.TrackInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.TrackInfo, 0, len(c.local))
	for _, p := range c.local {
		out = append(out, c.infoOf(p.handle))
	}
	return out
}

func (c *Conference) infoOf(h core.TrackHandle) domain.TrackInfo {
	return domain.TrackInfo{ID: h.ID(), Kind: h.Kind(), ParticipantID: c.conn.id, Muted: h.Muted()}
}

// Flush waits until every event queued for this member so far has been delivered.
func (c *Conference) Flush() { c.disp.Flush() }

func (c *Conference) AddTrack(ctx context.Context, h core.TrackHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if owned, ok := h.(interface{ SetOwner(domain.ParticipantID) }); ok {
		owned.SetOwner(c.conn.id)
	}
	c.mu.Lock()
	if _, ok := c.local[h.ID()]; ok {
		c.mu.Unlock()
		return nil
	}
	p := &published{handle: h}
	p.stopWatch = h.OnMuteChanged(func(muted bool) {
		c.conn.hub.trackMuted(c, c.infoOf(h))
	})
	c.local[h.ID()] = p
	info := c.infoOf(h)
	c.mu.Unlock()

	c.conn.hub.trackAdded(c, info)
	return nil
}

func (c *Conference) RemoveTrack(ctx context.Context, h core.TrackHandle) error {
	c.mu.Lock()
	p, ok := c.local[h.ID()]
	if ok {
		delete(c.local, h.ID())
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	p.stopWatch()
	c.conn.hub.trackRemoved(c, c.infoOf(h))
	return nil
}
