package wsclient

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/dispatch"
	"github.com/dkeye/vspace/internal/adapters/rtc"
	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

type published struct {
	handle    core.TrackHandle
	stopWatch func()
}

// Conference is the websocket handle of one server conference.
type Conference struct {
	conn *Connection
	name domain.ConferenceName
	disp *dispatch.Dispatcher

	mu          sync.Mutex
	myID        domain.ParticipantID
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
	c.mu.Lock()
	name := c.displayName
	c.mu.Unlock()
	if err := c.conn.write(wire.Join{Type: wire.TypeJoin, Conference: c.name, Name: name}); err != nil {
		return domain.ErrDisconnected
	}
	return nil
}

func (c *Conference) Leave(ctx context.Context) error {
	c.mu.Lock()
	local := c.local
	c.local = make(map[domain.TrackID]*published)
	c.mu.Unlock()
	for _, p := range local {
		p.stopWatch()
	}
	return c.conn.write(wire.Envelope{Type: wire.TypeLeave})
}

func (c *Conference) SetDisplayName(name string) {
	c.mu.Lock()
	c.displayName = name
	c.mu.Unlock()
}

func (c *Conference) SendCommand(tag string, cmd core.Command) error {
	return c.conn.write(wire.Command{Type: wire.TypeCommand, Tag: tag, Value: cmd.Value, Attributes: cmd.Attributes})
}

func (c *Conference) Participants() []core.RemoteParticipant {
	return c.disp.Directory().Participants()
}

func (c *Conference) setMyID(id domain.ParticipantID) {
	c.mu.Lock()
	c.myID = id
	c.mu.Unlock()
}

func (c *Conference) MyUserID() domain.ParticipantID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.myID
}

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

// AddTrack announces h to the conference. RTP backed tracks are published
// over the PeerConnection first when media is enabled.
func (c *Conference) AddTrack(ctx context.Context, h core.TrackHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	me := c.MyUserID()
	if owned, ok := h.(interface{ SetOwner(domain.ParticipantID) }); ok {
		owned.SetOwner(me)
	}
	c.mu.Lock()
	if _, ok := c.local[h.ID()]; ok {
		c.mu.Unlock()
		return nil
	}
	p := &published{handle: h}
	p.stopWatch = h.OnMuteChanged(func(muted bool) {
		if err := c.conn.write(wire.Track{Type: wire.TypeTrackMute, ID: h.ID(), Muted: muted}); err != nil {
			log.Warn().Err(err).Str("module", "wsclient").Msg("track_mute not sent")
		}
	})
	c.local[h.ID()] = p
	c.mu.Unlock()

	if lt, ok := h.(*rtc.LocalTrack); ok && c.conn.media {
		pub, err := c.conn.publisherFor()
		if err == nil {
			err = pub.AddTrack(ctx, lt)
		}
		if err != nil {
			log.Error().Err(err).Str("module", "wsclient").Str("track_id", string(h.ID())).Msg("publish media")
		}
	}
	return c.conn.write(wire.Track{Type: wire.TypeTrackAdd, ID: h.ID(), Kind: h.Kind(), Muted: h.Muted()})
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

	if _, isRTP := h.(*rtc.LocalTrack); isRTP {
		if pub := c.conn.activePublisher(); pub != nil {
			if err := pub.RemoveTrack(ctx, h.ID()); err != nil {
				log.Error().Err(err).Str("module", "wsclient").Str("track_id", string(h.ID())).Msg("unpublish media")
			}
		}
	}
	return c.conn.write(wire.Track{Type: wire.TypeTrackRemove, ID: h.ID(), Kind: h.Kind()})
}
