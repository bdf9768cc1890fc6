// Package peer holds participants, their media tracks and the local actor.
package peer

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/vspace/internal/app/notify"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateDisposed
)

// Track wraps one transport track handle. Origin selects how mute works:
// a local track stops producing, a remote track is detached from its sink.
type Track struct {
	handle core.TrackHandle
	origin domain.Origin
	mode   domain.VideoMode

	state atomic.Int32 // Zero by default (TrackStateOk)

	mu       sync.Mutex
	sink     core.Sink // last-known sink, kept across remote mute
	attached bool

	muteChanged notify.Registry[bool]
	stopWatch   func()
	borrowed    bool
}

func NewLocalTrack(h core.TrackHandle, mode domain.VideoMode) *Track {
	t := &Track{handle: h, origin: domain.OriginLocal}
	if h.Kind() == domain.KindVideo {
		if mode == "" {
			mode = domain.VideoCamera
		}
		t.mode = mode
	}
	t.watch()
	return t
}

func NewRemoteTrack(h core.TrackHandle) *Track {
	t := &Track{handle: h, origin: domain.OriginRemote}
	t.watch()
	return t
}

// NewBorrowedTrack wraps a remote handle owned by somebody else. Dispose
// stops the wrapper but leaves h alive.
func NewBorrowedTrack(h core.TrackHandle) *Track {
	t := NewRemoteTrack(h)
	t.borrowed = true
	return t
}

func (t *Track) Borrowed() bool { return t.borrowed }

func (t *Track) watch() {
	t.stopWatch = t.handle.OnMuteChanged(func(muted bool) {
		if t.Disposed() {
			return
		}
		t.muteChanged.Publish(muted)
	})
}

func (t *Track) ID() domain.TrackID          { return t.handle.ID() }
func (t *Track) Kind() domain.TrackKind      { return t.handle.Kind() }
func (t *Track) Origin() domain.Origin       { return t.origin }
func (t *Track) Handle() core.TrackHandle    { return t.handle }
func (t *Track) Mode() domain.VideoMode      { return t.mode }
func (t *Track) Disposed() bool              { return TrackState(t.state.Load()) == TrackStateDisposed }
func (t *Track) Muted() bool                 { return t.handle.Muted() }
func (t *Track) IsLocal() bool               { return t.origin == domain.OriginLocal }
func (t *Track) Owner() domain.ParticipantID { return t.handle.ParticipantID() }

// Sink returns the sink the track is attached to, or nil.
func (t *Track) Sink() core.Sink {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.attached {
		return nil
	}
	return t.sink
}

// Attach binds the track to one sink, detaching it from any previous one.
func (t *Track) Attach(s core.Sink) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attachLocked(s)
}

func (t *Track) attachLocked(s core.Sink) error {
	if t.Disposed() {
		return domain.ErrTrackDisposed
	}
	if t.attached && t.sink != s {
		t.handle.Detach(t.sink)
		t.attached = false
	}
	if err := t.handle.Attach(s); err != nil {
		return err
	}
	t.sink = s
	t.attached = true
	return nil
}

func (t *Track) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detachLocked()
}

func (t *Track) detachLocked() {
	if !t.attached {
		return
	}
	t.handle.Detach(t.sink)
	t.attached = false
}

func (t *Track) Mute() error {
	switch t.origin {
	case domain.OriginLocal:
		if t.Disposed() {
			return domain.ErrTrackDisposed
		}
		return t.handle.SetMuted(true)
	default:
		t.Detach()
		return nil
	}
}

func (t *Track) Unmute() error {
	switch t.origin {
	case domain.OriginLocal:
		if t.Disposed() {
			return domain.ErrTrackDisposed
		}
		return t.handle.SetMuted(false)
	default:
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.sink == nil || t.attached {
			return nil
		}
		return t.attachLocked(t.sink)
	}
}

func (t *Track) OnMuteChanged(fn func(muted bool)) notify.Token {
	return t.muteChanged.Subscribe(fn)
}

func (t *Track) Unsubscribe(tok notify.Token) bool {
	return t.muteChanged.Unsubscribe(tok)
}

// Dispose detaches and releases the handle. Only the first call has effect.
func (t *Track) Dispose() error {
	if !t.state.CompareAndSwap(int32(TrackStateOk), int32(TrackStateDisposed)) {
		return nil
	}
	t.mu.Lock()
	t.detachLocked()
	t.sink = nil
	t.mu.Unlock()
	if t.stopWatch != nil {
		t.stopWatch()
	}
	t.muteChanged.Clear()
	if t.borrowed {
		return nil
	}
	return t.handle.Dispose()
}
