// Package dispatch is the client side plumbing shared by conference transports:
// an ordered single goroutine event loop, the participant directory it keeps
// and announcement based track handles.
package dispatch

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/app/notify"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

type tagged struct {
	tag string
	cmd core.Command
}

// Dispatcher applies transport input to its Directory and delivers the
// resulting events and commands from one goroutine, in the order they were
// queued. Queueing never blocks the transport read loop.
type Dispatcher struct {
	dir *Directory

	events   notify.Topics[core.EventKind, core.Event]
	commands notify.Topics[string, tagged]

	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func New() *Dispatcher {
	d := &Dispatcher{
		dir:  NewDirectory(),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) Directory() *Directory { return d.dir }

func (d *Dispatcher) loop() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for {
			d.mu.Lock()
			if d.stopped || len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			fn := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mu.Unlock()
			d.run(fn)
		}
	}
}

func (d *Dispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "dispatch").Interface("panic", r).Msg("listener panicked")
		}
	}()
	fn()
}

// Enqueue schedules fn on the delivery goroutine. It is dropped after Stop.
func (d *Dispatcher) Enqueue(fn func()) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Stop drops pending deliveries and ends the loop.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		d.mu.Lock()
		d.stopped = true
		d.queue = nil
		d.mu.Unlock()
		close(d.done)
	})
}

// Flush blocks until everything queued before the call has been delivered
// or the dispatcher stops.
func (d *Dispatcher) Flush() {
	ch := make(chan struct{})
	d.Enqueue(func() { close(ch) })
	select {
	case <-ch:
	case <-d.done:
	}
}

func (d *Dispatcher) On(kind core.EventKind, h core.EventHandler) core.ListenerID {
	return d.events.Subscribe(kind, h)
}

func (d *Dispatcher) Off(id core.ListenerID) { d.events.Unsubscribe(id) }

func (d *Dispatcher) AddCommandListener(tag string, h core.CommandHandler) core.ListenerID {
	return d.commands.Subscribe(tag, func(t tagged) { h(t.tag, t.cmd) })
}

func (d *Dispatcher) RemoveCommandListener(id core.ListenerID) { d.commands.Unsubscribe(id) }

// ClearListeners removes every event and command listener.
func (d *Dispatcher) ClearListeners() {
	d.events.Clear()
	d.commands.Clear()
}

func (d *Dispatcher) emit(ev core.Event) { d.events.Publish(ev.Kind, ev) }

func (d *Dispatcher) Joined() {
	d.Enqueue(func() { d.emit(core.Event{Kind: core.EventConferenceJoined}) })
}

// Left forgets the directory and reports conference-left.
func (d *Dispatcher) Left() {
	d.Enqueue(func() {
		for _, t := range d.dir.Reset() {
			_ = t.Dispose()
		}
		d.emit(core.Event{Kind: core.EventConferenceLeft})
	})
}

func (d *Dispatcher) ParticipantJoined(id domain.ParticipantID, name string) {
	d.Enqueue(func() {
		if !d.dir.Join(id, name) {
			return
		}
		d.emit(core.Event{Kind: core.EventParticipantJoined, ParticipantID: id, Name: name})
	})
}

func (d *Dispatcher) ParticipantLeft(id domain.ParticipantID) {
	d.Enqueue(func() {
		tracks, ok := d.dir.Leave(id)
		if !ok {
			return
		}
		d.emit(core.Event{Kind: core.EventParticipantLeft, ParticipantID: id})
		for _, t := range tracks {
			_ = t.Dispose()
		}
	})
}

// TrackAdded creates a remote handle for info. Announcements for unknown
// owners or already known tracks are dropped.
func (d *Dispatcher) TrackAdded(info domain.TrackInfo) {
	d.Enqueue(func() {
		if _, ok := d.dir.Track(info.ParticipantID, info.ID); ok {
			return
		}
		t := NewRemoteTrack(info)
		if !d.dir.AddTrack(t) {
			log.Debug().Str("module", "dispatch").Str("track", string(info.ID)).Msg("track for unknown participant")
			return
		}
		d.emit(core.Event{Kind: core.EventTrackAdded, ParticipantID: info.ParticipantID, Track: t})
	})
}

func (d *Dispatcher) TrackRemoved(owner domain.ParticipantID, id domain.TrackID) {
	d.Enqueue(func() {
		t, ok := d.dir.RemoveTrack(owner, id)
		if !ok {
			return
		}
		d.emit(core.Event{Kind: core.EventTrackRemoved, ParticipantID: owner, Track: t})
	})
}

func (d *Dispatcher) TrackMuted(owner domain.ParticipantID, id domain.TrackID, muted bool) {
	d.Enqueue(func() {
		if t, ok := d.dir.Track(owner, id); ok {
			t.ApplyMuted(muted)
		}
	})
}

func (d *Dispatcher) Command(tag string, cmd core.Command) {
	d.Enqueue(func() { d.commands.Publish(tag, tagged{tag: tag, cmd: cmd}) })
}
