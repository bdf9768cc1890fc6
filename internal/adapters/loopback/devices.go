package loopback

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dkeye/vspace/internal/adapters/dispatch"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

// Devices is a core.DeviceSource producing media-less local tracks.
type Devices struct {
	mu      sync.Mutex
	fail    map[domain.DeviceKind]error
	output  string
	created []*dispatch.Track
}

func NewDevices() *Devices {
	return &Devices{fail: make(map[domain.DeviceKind]error)}
}

// Fail makes CreateLocalTrack for kind return err (nil restores).
func (d *Devices) Fail(kind domain.DeviceKind, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.fail, kind)
		return
	}
	d.fail[kind] = err
}

func (d *Devices) CreateLocalTrack(ctx context.Context, kind domain.DeviceKind, deviceID string) (core.TrackHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[kind]; err != nil {
		return nil, err
	}
	var tk domain.TrackKind
	switch kind {
	case domain.DeviceAudioInput:
		tk = domain.KindAudio
	case domain.DeviceVideoInput, domain.DeviceDesktop:
		tk = domain.KindVideo
	default:
		return nil, fmt.Errorf("device kind %q cannot produce a track", kind)
	}
	t := dispatch.NewLocalTrack(domain.TrackID(uuid.NewString()), tk, nil, nil)
	d.created = append(d.created, t)
	return t, nil
}

// Created lists every track handed out so far.
func (d *Devices) Created() []*dispatch.Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*dispatch.Track(nil), d.created...)
}

func (d *Devices) Devices(ctx context.Context) ([]core.Device, error) {
	return []core.Device{
		{ID: "default", Label: "Loopback microphone", Kind: domain.DeviceAudioInput},
		{ID: "default", Label: "Loopback speaker", Kind: domain.DeviceAudioOutput},
		{ID: "default", Label: "Loopback camera", Kind: domain.DeviceVideoInput},
		{ID: "screen", Label: "Loopback screen", Kind: domain.DeviceDesktop},
	}, nil
}

func (d *Devices) SetAudioOutput(ctx context.Context, deviceID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.output = deviceID
	return nil
}

func (d *Devices) AudioOutput() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.output
}
