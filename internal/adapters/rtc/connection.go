package rtc

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/core"
)

// WebRTCConnection is the server end of one publisher PeerConnection.
// Negotiation is non-trickle: answers carry every gathered candidate.
type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	sid    core.SessionID
	cancel context.CancelFunc

	mu        sync.Mutex
	onTrack   func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onClosed  func()
	closeOnce sync.Once
}

// WebRTCConfig builds a configuration with one ICE server per url.
func WebRTCConfig(iceURLs []string) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	if len(iceURLs) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceURLs}}
	}
	return cfg
}

func DefaultWebRTCConfig() webrtc.Configuration {
	return WebRTCConfig([]string{"stun:stun.l.google.com:19302"})
}

func NewWebRTCConnection(cfg webrtc.Configuration, sid core.SessionID) (*WebRTCConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &WebRTCConnection{pc: pc, sid: sid}, nil
}

func (c *WebRTCConnection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("sid", string(c.sid)).Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateFailed ||
			s == webrtc.ICEConnectionStateClosed {
			cancel()
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("sid", string(c.sid)).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			c.fireClosed()
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("sid", string(c.sid)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		c.mu.Lock()
		fn := c.onTrack
		c.mu.Unlock()
		if fn != nil {
			fn(ctx, track, receiver)
		}
	})

	return nil
}

func (c *WebRTCConnection) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	<-gatherComplete

	return c.pc.LocalDescription(), nil
}

func (c *WebRTCConnection) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("sid", string(c.sid)).Msg("close error")
	} else {
		log.Info().Str("module", "rtc").Str("sid", string(c.sid)).Msg("closed")
	}
	c.fireClosed()
}

func (c *WebRTCConnection) fireClosed() {
	c.mu.Lock()
	fn := c.onClosed
	c.mu.Unlock()
	if fn != nil {
		c.closeOnce.Do(fn)
	}
}

// OnTrack sets application-level callback for remote tracks.
func (c *WebRTCConnection) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

// OnClosed sets application-level callback for cleanup tracks
func (c *WebRTCConnection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}
