package rtc

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/vspace/internal/adapters/dispatch"
	"github.com/dkeye/vspace/internal/domain"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateMuted
	TrackStateDelete
)

// LocalTrack is a device track published through a PeerConnection. Packets
// written while muted or after disposal are dropped.
type LocalTrack struct {
	*dispatch.Track
	rtp   *webrtc.TrackLocalStaticRTP
	state atomic.Int32 // Zero by default (TrackStateOk)

	done     chan struct{}
	doneOnce sync.Once
}

func codecFor(kind domain.TrackKind) webrtc.RTPCodecCapability {
	if kind == domain.KindVideo {
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	}
	return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
}

func NewLocalTrack(kind domain.TrackKind, streamID string) (*LocalTrack, error) {
	id := uuid.NewString()
	rt, err := webrtc.NewTrackLocalStaticRTP(codecFor(kind), id, streamID)
	if err != nil {
		return nil, err
	}
	lt := &LocalTrack{rtp: rt, done: make(chan struct{})}
	lt.Track = dispatch.NewLocalTrack(domain.TrackID(id), kind,
		func(muted bool) error {
			if muted {
				lt.MarkMuted()
			} else {
				lt.MarkOk()
			}
			return nil
		},
		func() error {
			lt.MarkDelete()
			return nil
		},
	)
	return lt, nil
}

func (lt *LocalTrack) RTP() *webrtc.TrackLocalStaticRTP { return lt.rtp }

func (lt *LocalTrack) GetState() TrackState { return TrackState(lt.state.Load()) }

func (lt *LocalTrack) MarkOk() {
	if lt.GetState() != TrackStateDelete {
		lt.state.Store(int32(TrackStateOk))
	}
}

func (lt *LocalTrack) MarkMuted() {
	if lt.GetState() != TrackStateDelete {
		lt.state.Store(int32(TrackStateMuted))
	}
}

func (lt *LocalTrack) MarkDelete() {
	lt.state.Store(int32(TrackStateDelete))
	lt.doneOnce.Do(func() { close(lt.done) })
}

// Done is closed once the track is disposed.
func (lt *LocalTrack) Done() <-chan struct{} { return lt.done }

// WriteRTP forwards pkt unless the track is muted or disposed. It reports
// whether the packet was written.
func (lt *LocalTrack) WriteRTP(pkt *rtp.Packet) (bool, error) {
	if lt.GetState() != TrackStateOk {
		return false, nil
	}
	if err := lt.rtp.WriteRTP(pkt); err != nil {
		return false, err
	}
	return true, nil
}
