package core

import (
	"context"
	"errors"

	"github.com/dkeye/vspace/internal/domain"
)

var (
	ErrRemoteMute     = errors.New("remote track mute is not locally controllable")
	ErrNoOutputSwitch = errors.New("audio output switching is not available")
)

type Device struct {
	ID    string            `json:"id"`
	Label string            `json:"label"`
	Kind  domain.DeviceKind `json:"kind"`
}

// DeviceSource acquires local device tracks.
type DeviceSource interface {
	CreateLocalTrack(ctx context.Context, kind domain.DeviceKind, deviceID string) (TrackHandle, error)
	Devices(ctx context.Context) ([]Device, error)
	SetAudioOutput(ctx context.Context, deviceID string) error
}
