package dispatch

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dkeye/vspace/internal/app/notify"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

// Track is a core.TrackHandle known to a transport by announcement.
// Remote tracks follow mute announcements; local tracks call the
// transport hooks so the change reaches the other participants.
type Track struct {
	id    domain.TrackID
	kind  domain.TrackKind
	local bool

	owner    atomic.Pointer[domain.ParticipantID]
	muted    atomic.Bool
	disposed atomic.Bool

	mu    sync.Mutex
	sinks []core.Sink

	muteChanged notify.Registry[bool]

	onSetMuted func(bool) error
	onDispose  func() error
}

func NewRemoteTrack(info domain.TrackInfo) *Track {
	t := &Track{id: info.ID, kind: info.Kind}
	t.SetOwner(info.ParticipantID)
	t.muted.Store(info.Muted)
	return t
}

// NewLocalTrack builds a local handle; either hook may be nil.
func NewLocalTrack(id domain.TrackID, kind domain.TrackKind, onSetMuted func(bool) error, onDispose func() error) *Track {
	t := &Track{id: id, kind: kind, local: true, onSetMuted: onSetMuted, onDispose: onDispose}
	t.SetOwner("")
	return t
}

func (t *Track) ID() domain.TrackID     { return t.id }
func (t *Track) Kind() domain.TrackKind { return t.kind }
func (t *Track) IsLocal() bool          { return t.local }
func (t *Track) Muted() bool            { return t.muted.Load() }
func (t *Track) Disposed() bool         { return t.disposed.Load() }

func (t *Track) ParticipantID() domain.ParticipantID { return *t.owner.Load() }

// SetOwner binds a local track to the participant that published it.
func (t *Track) SetOwner(id domain.ParticipantID) { t.owner.Store(&id) }

func (t *Track) Info() domain.TrackInfo {
	return domain.TrackInfo{ID: t.id, Kind: t.kind, ParticipantID: t.ParticipantID(), Muted: t.Muted()}
}

func (t *Track) SetMuted(muted bool) error {
	if !t.local {
		return core.ErrRemoteMute
	}
	if t.Disposed() {
		return domain.ErrTrackDisposed
	}
	if t.onSetMuted != nil {
		if err := t.onSetMuted(muted); err != nil {
			return err
		}
	}
	t.ApplyMuted(muted)
	return nil
}

// ApplyMuted records a mute state reported by the transport and notifies on change.
func (t *Track) ApplyMuted(muted bool) {
	if t.muted.Swap(muted) != muted && !t.Disposed() {
		t.muteChanged.Publish(muted)
	}
}

func (t *Track) Attach(s core.Sink) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Disposed() {
		return domain.ErrTrackDisposed
	}
	if slices.Contains(t.sinks, s) {
		return nil
	}
	if err := s.Play(t); err != nil {
		return err
	}
	t.sinks = append(t.sinks, s)
	return nil
}

func (t *Track) Detach(s core.Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := slices.Index(t.sinks, s)
	if idx < 0 {
		return
	}
	t.sinks = slices.Delete(t.sinks, idx, idx+1)
	s.Stop(t)
}

// Sinks returns the sinks the track currently plays into.
func (t *Track) Sinks() []core.Sink {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.sinks)
}

func (t *Track) Dispose() error {
	if !t.disposed.CompareAndSwap(false, true) {
		return nil
	}
	t.mu.Lock()
	sinks := t.sinks
	t.sinks = nil
	t.mu.Unlock()
	for _, s := range sinks {
		s.Stop(t)
	}
	t.muteChanged.Clear()
	if t.onDispose != nil {
		return t.onDispose()
	}
	return nil
}

func (t *Track) OnMuteChanged(fn func(muted bool)) (cancel func()) {
	tok := t.muteChanged.Subscribe(fn)
	return func() { t.muteChanged.Unsubscribe(tok) }
}
