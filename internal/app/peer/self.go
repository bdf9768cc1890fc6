package peer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/vspace/internal/app/notify"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

// TrackChangeFunc observes a local track replacement. It runs before the old
// track is disposed; old or new may be nil.
type TrackChangeFunc func(ctx context.Context, old, new *Track)

type trackChange struct {
	ctx      context.Context
	old, new *Track
}

// Self is the local actor: it owns local device tracks and reports their replacement.
type Self struct {
	devices core.DeviceSource

	// mu serialises track replacement; listeners run while it is held and
	// must not call SetAudio, SetVideo or ChangeVideoMode.
	mu    sync.Mutex
	audio atomic.Pointer[Track]
	video atomic.Pointer[Track]

	audioOutput atomic.Pointer[string]

	audioChanged notify.Registry[trackChange]
	videoChanged notify.Registry[trackChange]
}

func NewSelf(devices core.DeviceSource) *Self {
	return &Self{devices: devices}
}

func (s *Self) Audio() *Track { return s.audio.Load() }
func (s *Self) Video() *Track { return s.video.Load() }

// VideoMode is the mode of the current video track, empty without one.
func (s *Self) VideoMode() domain.VideoMode {
	if v := s.video.Load(); v != nil {
		return v.Mode()
	}
	return ""
}

func (s *Self) OnAudioChanged(fn TrackChangeFunc) notify.Token {
	return s.audioChanged.Subscribe(func(c trackChange) { fn(c.ctx, c.old, c.new) })
}

func (s *Self) OnVideoChanged(fn TrackChangeFunc) notify.Token {
	return s.videoChanged.Subscribe(func(c trackChange) { fn(c.ctx, c.old, c.new) })
}

func (s *Self) Unsubscribe(tok notify.Token) bool {
	return s.audioChanged.Unsubscribe(tok) || s.videoChanged.Unsubscribe(tok)
}

// CreateAudio acquires a microphone track without installing it.
func (s *Self) CreateAudio(ctx context.Context, deviceID string) (*Track, error) {
	h, err := s.devices.CreateLocalTrack(ctx, domain.DeviceAudioInput, deviceID)
	if err != nil {
		return nil, fmt.Errorf("create local audio: %w", err)
	}
	return NewLocalTrack(h, ""), nil
}

// CreateVideo acquires a camera track without installing it.
func (s *Self) CreateVideo(ctx context.Context, deviceID string) (*Track, error) {
	h, err := s.devices.CreateLocalTrack(ctx, domain.DeviceVideoInput, deviceID)
	if err != nil {
		return nil, fmt.Errorf("create local video: %w", err)
	}
	return NewLocalTrack(h, domain.VideoCamera), nil
}

func (s *Self) SetAudio(ctx context.Context, t *Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(ctx, &s.audio, &s.audioChanged, t)
}

func (s *Self) SetVideo(ctx context.Context, t *Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(ctx, &s.video, &s.videoChanged, t)
}

// replace installs t, lets listeners rebind the transport, then disposes the old track.
func (s *Self) replace(ctx context.Context, slot *atomic.Pointer[Track], reg *notify.Registry[trackChange], t *Track) error {
	old := slot.Load()
	if old == t {
		return nil
	}
	slot.Store(t)
	reg.Publish(trackChange{ctx: ctx, old: old, new: t})
	if old != nil {
		return old.Dispose()
	}
	return nil
}

// ChangeVideoMode switches between camera and screen share. When the new
// device cannot be acquired the current video is dropped and the error returned.
func (s *Self) ChangeVideoMode(ctx context.Context, mode domain.VideoMode) (*Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.video.Load(); cur != nil && cur.Mode() == mode {
		return nil, domain.ErrSameMode
	}
	h, err := s.devices.CreateLocalTrack(ctx, mode.DeviceFor(), "")
	if err != nil {
		if derr := s.replace(ctx, &s.video, &s.videoChanged, nil); derr != nil {
			return nil, fmt.Errorf("change video mode to %s: %w (dispose: %v)", mode, err, derr)
		}
		return nil, fmt.Errorf("change video mode to %s: %w", mode, err)
	}
	t := NewLocalTrack(h, mode)
	if err := s.replace(ctx, &s.video, &s.videoChanged, t); err != nil {
		return t, err
	}
	return t, nil
}

func (s *Self) Devices(ctx context.Context) ([]core.Device, error) {
	return s.devices.Devices(ctx)
}

// SetAudioOutput switches the playback device and remembers it on success.
func (s *Self) SetAudioOutput(ctx context.Context, deviceID string) error {
	if err := s.devices.SetAudioOutput(ctx, deviceID); err != nil {
		return fmt.Errorf("set audio output %q: %w", deviceID, err)
	}
	s.audioOutput.Store(&deviceID)
	return nil
}

func (s *Self) AudioOutput() string {
	if id := s.audioOutput.Load(); id != nil {
		return *id
	}
	return ""
}

// Close drops both local tracks.
func (s *Self) Close(ctx context.Context) error {
	errA := s.SetAudio(ctx, nil)
	errV := s.SetVideo(ctx, nil)
	if errA != nil {
		return errA
	}
	return errV
}
