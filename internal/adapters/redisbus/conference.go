package redisbus

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/dispatch"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

type published struct {
	handle    core.TrackHandle
	stopWatch func()
}

// Conference is one participant's view of a bus conference.
type Conference struct {
	conn *Connection
	name domain.ConferenceName
	disp *dispatch.Dispatcher

	mu          sync.Mutex
	joined      bool
	displayName string
	local       map[domain.TrackID]*published
}

func newConference(conn *Connection, name domain.ConferenceName) *Conference {
	return &Conference{conn: conn, name: name, disp: dispatch.New(), local: make(map[domain.TrackID]*published)}
}

func (c *Conference) On(kind core.EventKind, h core.EventHandler) core.ListenerID {
	return c.disp.On(kind, h)
}

func (c *Conference) Off(id core.ListenerID) { c.disp.Off(id) }

func (c *Conference) AddCommandListener(tag string, h core.CommandHandler) core.ListenerID {
	return c.disp.AddCommandListener(tag, h)
}

func (c *Conference) RemoveCommandListener(id core.ListenerID) { c.disp.RemoveCommandListener(id) }

func (c *Conference) message(typ string) Message {
	c.mu.Lock()
	name := c.displayName
	c.mu.Unlock()
	return Message{Type: typ, Conference: c.name, From: c.conn.id, Name: name}
}

func (c *Conference) isJoined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

func (c *Conference) Join(ctx context.Context) error {
	if err := c.conn.publish(ctx, c.message(msgJoin)); err != nil {
		return domain.ErrDisconnected
	}
	return nil
}

// Leave announces the leave. The conference counts as left from here on, so
// only the own leave echo is still applied.
func (c *Conference) Leave(ctx context.Context) error {
	c.mu.Lock()
	local := c.local
	c.local = make(map[domain.TrackID]*published)
	c.joined = false
	c.mu.Unlock()
	for _, p := range local {
		p.stopWatch()
	}
	return c.conn.publish(ctx, c.message(msgLeave))
}

func (c *Conference) SetDisplayName(name string) {
	c.mu.Lock()
	c.displayName = name
	c.mu.Unlock()
}

func (c *Conference) SendCommand(tag string, cmd core.Command) error {
	m := c.message(msgCommand)
	m.Tag, m.Value, m.Attributes = tag, cmd.Value, cmd.Attributes
	return c.conn.publish(context.Background(), m)
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

func (c *Conference) infoOf(h core.TrackHandle) domain.TrackInfo {
	return domain.TrackInfo{ID: h.ID(), Kind: h.Kind(), ParticipantID: c.conn.id, Muted: h.Muted()}
}

func (c *Conference) publishedTracks() []domain.TrackInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.TrackInfo, 0, len(c.local))
	for _, id := range slices.Sorted(maps.Keys(c.local)) {
		out = append(out, c.infoOf(c.local[id].handle))
	}
	return out
}

func (c *Conference) trackMessage(typ string, h core.TrackHandle) Message {
	m := c.message(typ)
	m.Tracks = []domain.TrackInfo{c.infoOf(h)}
	return m
}

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
		if err := c.conn.publish(context.Background(), c.trackMessage(msgTrackMuted, h)); err != nil {
			log.Warn().Err(err).Str("module", "redisbus").Msg("track_muted not published")
		}
	})
	c.local[h.ID()] = p
	c.mu.Unlock()

	return c.conn.publish(ctx, c.trackMessage(msgTrackAdded, h))
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
	return c.conn.publish(ctx, c.trackMessage(msgTrackRemoved, h))
}

// handle applies one bus message. Messages published before this
// participant's own join echo are ignored; the present replies to that join
// bring the directory up to date.
func (c *Conference) handle(m Message) {
	self := m.From == c.conn.id

	if m.Type == msgJoin && self {
		c.mu.Lock()
		c.joined = true
		c.mu.Unlock()
		c.disp.Joined()
		return
	}
	if m.Type == msgLeave && self {
		c.mu.Lock()
		c.joined = false
		c.mu.Unlock()
		c.disp.Left()
		return
	}
	if !c.isJoined() {
		return
	}

	switch m.Type {
	case msgJoin:
		c.disp.ParticipantJoined(m.From, m.Name)
		reply := c.message(msgPresent)
		reply.To = m.From
		reply.Tracks = c.publishedTracks()
		if err := c.conn.publish(context.Background(), reply); err != nil {
			log.Warn().Err(err).Str("module", "redisbus").Msg("present not published")
		}
	case msgPresent:
		if m.To != c.conn.id {
			return
		}
		c.disp.ParticipantJoined(m.From, m.Name)
		for _, t := range m.Tracks {
			c.disp.TrackAdded(t)
		}
	case msgLeave:
		c.disp.ParticipantLeft(m.From)
	case msgCommand:
		c.disp.Command(m.Tag, core.Command{Value: m.Value, Attributes: m.Attributes, From: m.From})
	case msgTrackAdded, msgTrackRemoved, msgTrackMuted:
		if self {
			return
		}
		for _, t := range m.Tracks {
			switch m.Type {
			case msgTrackAdded:
				c.disp.TrackAdded(t)
			case msgTrackRemoved:
				c.disp.TrackRemoved(m.From, t.ID)
			case msgTrackMuted:
				c.disp.TrackMuted(m.From, t.ID, t.Muted)
			}
		}
	default:
		log.Warn().Str("module", "redisbus").Str("type", m.Type).Msg("unknown message")
	}
}
