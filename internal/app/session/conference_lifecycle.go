package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/rooms"
	"github.com/dkeye/vspace/internal/auth"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

const (
	evConnect = "connect"
	evJoin    = "join"
	evJoined  = "joined"
	evLeave   = "leave"
	evLeft    = "left"
	evFail    = "fail"
)

func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: evConnect, Src: []string{string(StateIdle)}, Dst: string(StateConnecting)},
			{Name: evJoin, Src: []string{string(StateConnecting)}, Dst: string(StateJoining)},
			{Name: evJoined, Src: []string{string(StateJoining)}, Dst: string(StateJoined)},
			{Name: evLeave, Src: []string{string(StateJoined)}, Dst: string(StateLeaving)},
			{Name: evLeft, Src: []string{string(StateLeaving)}, Dst: string(StateIdle)},
			{Name: evFail, Src: []string{string(StateConnecting), string(StateJoining), string(StateJoined)}, Dst: string(StateIdle)},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				log.Debug().Str("module", "session").Str("from", e.Src).Str("to", e.Dst).Msg("lifecycle")
			},
		},
	)
}

// transition must be called with c.mu held.
func (c *Conference) transition(event string) error {
	if err := c.fsm.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return nil
		}
		return err
	}
	return nil
}

// Enter connects to the space and joins its conference. It returns once the
// transport reports the conference joined.
func (c *Conference) Enter(ctx context.Context, space, token string, self *peer.Self) error {
	switch {
	case c.State() != StateIdle:
		return domain.ErrAlreadyEntered
	case space == "":
		return domain.ErrEmptySpaceName
	case token == "":
		return domain.ErrMissingToken
	case self == nil:
		return domain.ErrNoLocalActor
	}
	claims, err := auth.Decode(token)
	if err != nil {
		return fmt.Errorf("enter %s: %w", space, err)
	}

	c.mu.Lock()
	if c.State() != StateIdle {
		c.mu.Unlock()
		return domain.ErrAlreadyEntered
	}
	if err := c.transition(evConnect); err != nil {
		c.mu.Unlock()
		return err
	}
	gen := c.gen.Add(1)
	c.space = space
	c.displayName = claims.DisplayName()
	c.self = self
	c.joined = make(chan struct{})
	c.joinedOnce = &sync.Once{}
	joined := c.joined
	c.mu.Unlock()

	logger := log.With().Str("module", "session").Str("space", space).Logger()
	logger.Info().Msg("connecting")

	conn := c.Connector.Open(space, token)
	if err := conn.Connect(ctx); err != nil {
		c.abort(gen, conn, nil)
		return fmt.Errorf("connect to %s: %w", space, err)
	}

	conf := conn.Conference(domain.ConferenceName(space))
	c.mu.Lock()
	if !c.active(gen) {
		c.mu.Unlock()
		_ = conn.Disconnect(ctx)
		return domain.ErrDisconnected
	}
	c.conn = conn
	c.conf = conf
	_ = c.transition(evJoin)
	c.install(gen, conf)
	c.mu.Unlock()

	conf.SetDisplayName(claims.DisplayName())
	if err := conf.Join(ctx); err != nil {
		c.abort(gen, conn, conf)
		return fmt.Errorf("join %s: %w", space, err)
	}

	select {
	case <-joined:
	case <-conn.Done():
		c.abort(gen, conn, conf)
		return domain.ErrDisconnected
	case <-ctx.Done():
		c.abort(gen, conn, conf)
		return ctx.Err()
	}

	c.mu.Lock()
	if !c.active(gen) {
		c.mu.Unlock()
		return domain.ErrDisconnected
	}
	_ = c.transition(evJoined)
	c.mu.Unlock()

	c.bindSelf(gen, self)
	c.publishLocal(ctx, gen, conf, self)
	c.reconcileStage(gen)

	go c.watch(gen, conn)
	logger.Info().Str("participant", string(conf.MyUserID())).Msg("entered")
	return nil
}

// install registers every event and command handler. Called with c.mu held.
func (c *Conference) install(gen uint64, conf core.Conference) {
	c.listeners = []core.ListenerID{
		conf.On(core.EventConferenceJoined, func(core.Event) { c.onConferenceJoined(gen) }),
		conf.On(core.EventConferenceLeft, func(core.Event) { c.onConferenceLeft(gen) }),
		conf.On(core.EventParticipantJoined, func(ev core.Event) { c.onParticipantJoined(gen, ev) }),
		conf.On(core.EventParticipantLeft, func(ev core.Event) { c.onParticipantLeft(gen, ev) }),
		conf.On(core.EventTrackAdded, func(ev core.Event) { c.onTrackAdded(gen, ev) }),
		conf.On(core.EventTrackRemoved, func(ev core.Event) { c.onTrackRemoved(gen, ev) }),
	}
	c.commands = []core.ListenerID{
		conf.AddCommandListener(domain.TagEnterRoom, func(_ string, cmd core.Command) { c.onEnterRoom(gen, cmd) }),
		conf.AddCommandListener(domain.TagExitRoom, func(_ string, cmd core.Command) { c.onExitRoom(gen, cmd) }),
		conf.AddCommandListener(domain.TagTakeStage, func(_ string, cmd core.Command) { c.onTakeStage(gen, cmd) }),
		conf.AddCommandListener(domain.TagReleaseStage, func(_ string, cmd core.Command) { c.onReleaseStage(gen, cmd) }),
	}
}

// uninstall removes the handlers. Called with c.mu held.
func (c *Conference) uninstall(conf core.Conference) {
	for _, id := range c.listeners {
		conf.Off(id)
	}
	for _, id := range c.commands {
		conf.RemoveCommandListener(id)
	}
	c.listeners, c.commands = nil, nil
}

func (c *Conference) onConferenceJoined(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active(gen) || c.joinedOnce == nil {
		return
	}
	c.joinedOnce.Do(func() { close(c.joined) })
}

// onConferenceLeft handles a leave the local actor did not ask for.
func (c *Conference) onConferenceLeft(gen uint64) {
	if c.drop(gen) {
		log.Warn().Str("module", "session").Msg("conference left by transport")
	}
}

func (c *Conference) watch(gen uint64, conn core.Connection) {
	<-conn.Done()
	if c.drop(gen) {
		log.Warn().Str("module", "session").Msg("connection lost")
	}
}

// drop tears down a joined instance without sending anything.
func (c *Conference) drop(gen uint64) bool {
	c.mu.Lock()
	if !c.active(gen) || c.State() != StateJoined {
		c.mu.Unlock()
		return false
	}
	conn, conf, self := c.conn, c.conf, c.self
	c.detach(conf, self)
	_ = c.transition(evFail)
	c.mu.Unlock()

	_ = conn.Disconnect(context.Background())
	c.reset()
	return true
}

// abort undoes a failed Enter.
func (c *Conference) abort(gen uint64, conn core.Connection, conf core.Conference) {
	c.mu.Lock()
	if !c.active(gen) {
		c.mu.Unlock()
		return
	}
	if conf != nil {
		c.uninstall(conf)
	}
	c.gen.Add(1)
	c.conn, c.conf, c.self = nil, nil, nil
	_ = c.transition(evFail)
	c.mu.Unlock()

	if conf != nil {
		_ = conf.Leave(context.Background())
	}
	_ = conn.Disconnect(context.Background())
	c.reset()
}

// detach unbinds the local actor, removes handlers and retires the
// generation. Called with c.mu held.
func (c *Conference) detach(conf core.Conference, self *peer.Self) {
	if self != nil {
		for _, tok := range c.selfTokens {
			self.Unsubscribe(tok)
		}
	}
	c.selfTokens = nil
	if conf != nil {
		c.uninstall(conf)
	}
	c.gen.Add(1)
	c.conn, c.conf, c.self = nil, nil, nil
}

// Exit announces the local actor leaving its room and the stage, then leaves
// the conference and resets every derived view. It is a no-op unless joined.
func (c *Conference) Exit(ctx context.Context) error {
	c.mu.Lock()
	if c.State() != StateJoined {
		c.mu.Unlock()
		return nil
	}
	_ = c.transition(evLeave)
	conn, conf, self := c.conn, c.conf, c.self
	c.mu.Unlock()

	me := conf.MyUserID()
	if room := c.CurrentRoom(); room != "" {
		c.send(conf, domain.TagExitRoom, me, room)
	}
	if occ := c.Occupier(); occ != nil && occ.ID == me {
		c.send(conf, domain.TagReleaseStage, me, "")
	}

	c.mu.Lock()
	c.detach(conf, self)
	c.mu.Unlock()

	var errs []error
	if err := conf.Leave(ctx); err != nil {
		errs = append(errs, fmt.Errorf("leave conference: %w", err))
	}
	if err := conn.Disconnect(ctx); err != nil {
		errs = append(errs, fmt.Errorf("disconnect: %w", err))
	}
	c.reset()

	c.mu.Lock()
	_ = c.transition(evLeft)
	c.mu.Unlock()

	log.Info().Str("module", "session").Str("space", c.Space()).Msg("exited")
	return errors.Join(errs...)
}

// reset empties every derived view and releases the remote tracks the roster owned.
func (c *Conference) reset() {
	c.roster.Update(func(cur peer.Roster) (peer.Roster, bool) {
		for _, p := range cur {
			disposeTracks(p)
		}
		return peer.Roster{}, len(cur) > 0
	})
	c.rooms.Update(func(cur rooms.Membership) (rooms.Membership, bool) {
		return rooms.Membership{}, cur.Len() > 0
	})
	c.updateStage(func(cur *peer.Participant) (*peer.Participant, bool) {
		return nil, cur != nil
	})
	c.setCurrent("")
	c.seq.Store(0)
	c.Metrics.Participants(0)
	c.Metrics.Rooms(0)
}

func disposeTracks(p *peer.Participant) {
	if p.IsSelf {
		return
	}
	for _, t := range []*peer.Track{p.Audio, p.Video} {
		if t != nil {
			_ = t.Dispose()
		}
	}
}
