package session

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/app/rooms"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
	"github.com/dkeye/vspace/internal/metrics"
)

// send broadcasts a command on behalf of id. room is only set for room commands.
func (c *Conference) send(conf core.Conference, tag string, id domain.ParticipantID, room domain.RoomName) error {
	cmd := core.Command{
		Value:      string(id),
		Attributes: map[string]string{domain.AttrSeq: strconv.FormatUint(c.seq.Add(1), 10)},
	}
	if room != "" {
		cmd.Attributes[domain.AttrRoom] = string(room)
	}
	if err := conf.SendCommand(tag, cmd); err != nil {
		c.Metrics.Command(tag, metrics.ResultFailed)
		log.Warn().Str("module", "session").Str("tag", tag).Err(err).Msg("send command failed")
		return fmt.Errorf("send %s: %w", tag, err)
	}
	c.Metrics.Command(tag, metrics.ResultSent)
	return nil
}

// EnterRoom moves the local actor to room, leaving its current room first.
// Membership changes once the commands come back from the transport.
func (c *Conference) EnterRoom(room domain.RoomName) error {
	conf, _, ok := c.handle()
	if !ok {
		return domain.ErrNotEntered
	}
	if room == "" {
		return domain.ErrEmptyRoomName
	}
	c.roomMu.Lock()
	defer c.roomMu.Unlock()

	cur := c.CurrentRoom()
	if cur == room {
		return nil
	}
	me := conf.MyUserID()
	if cur != "" {
		if err := c.send(conf, domain.TagExitRoom, me, cur); err != nil {
			return err
		}
		c.setCurrent("")
	}
	if err := c.send(conf, domain.TagEnterRoom, me, room); err != nil {
		return err
	}
	c.setCurrent(room)
	return nil
}

func (c *Conference) ExitRoom(room domain.RoomName) error {
	conf, _, ok := c.handle()
	if !ok {
		return domain.ErrNotEntered
	}
	if room == "" {
		return domain.ErrEmptyRoomName
	}
	c.roomMu.Lock()
	defer c.roomMu.Unlock()

	if err := c.send(conf, domain.TagExitRoom, conf.MyUserID(), room); err != nil {
		return err
	}
	if c.CurrentRoom() == room {
		c.setCurrent("")
	}
	return nil
}

// RoomMembers lists the members of room.
func (c *Conference) RoomMembers(room domain.RoomName) []domain.ParticipantID {
	return c.rooms.Load().Members(room)
}

func parseRoomCommand(cmd core.Command) (domain.ParticipantID, domain.RoomName, bool) {
	id := domain.ParticipantID(cmd.Value)
	room := domain.RoomName(cmd.Attributes[domain.AttrRoom])
	return id, room, id != "" && room != ""
}

func (c *Conference) onEnterRoom(gen uint64, cmd core.Command) {
	if !c.active(gen) {
		return
	}
	id, room, ok := parseRoomCommand(cmd)
	if !ok {
		c.Metrics.Command(domain.TagEnterRoom, metrics.ResultIgnored)
		log.Warn().Str("module", "session").Interface("cmd", cmd).Msg("malformed ENTER_ROOM")
		return
	}
	c.applyRooms(gen, domain.TagEnterRoom, func(cur rooms.Membership) (rooms.Membership, bool) {
		return cur.Enter(room, id)
	})
}

func (c *Conference) onExitRoom(gen uint64, cmd core.Command) {
	if !c.active(gen) {
		return
	}
	id, room, ok := parseRoomCommand(cmd)
	if !ok {
		c.Metrics.Command(domain.TagExitRoom, metrics.ResultIgnored)
		log.Warn().Str("module", "session").Interface("cmd", cmd).Msg("malformed EXIT_ROOM")
		return
	}
	c.applyRooms(gen, domain.TagExitRoom, func(cur rooms.Membership) (rooms.Membership, bool) {
		return cur.Exit(room, id)
	})
}

func (c *Conference) applyRooms(gen uint64, tag string, fn func(rooms.Membership) (rooms.Membership, bool)) {
	changed := c.rooms.Update(func(cur rooms.Membership) (rooms.Membership, bool) {
		if !c.active(gen) {
			return cur, false
		}
		next, changed := fn(cur)
		if changed {
			c.Metrics.Rooms(next.Len())
		}
		return next, changed
	})
	if changed {
		c.Metrics.Command(tag, metrics.ResultApplied)
	} else {
		c.Metrics.Command(tag, metrics.ResultIgnored)
	}
}
