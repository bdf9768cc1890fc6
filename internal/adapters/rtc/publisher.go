package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/domain"
)

var ErrPublisherClosed = errors.New("publisher closed")

// Negotiator delivers an offer to the server and returns its answer.
type Negotiator func(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error)

// Publisher is the client end of the publishing PeerConnection. Every track
// change renegotiates with a complete (non-trickle) offer.
type Publisher struct {
	pc        *webrtc.PeerConnection
	negotiate Negotiator

	negMu sync.Mutex

	mu      sync.Mutex
	senders map[domain.TrackID]*webrtc.RTPSender
	closed  bool
}

func NewPublisher(cfg webrtc.Configuration, negotiate Negotiator) (*Publisher, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("peer_connection_state", s.String()).Msg("Publisher state")
	})
	return &Publisher{pc: pc, negotiate: negotiate, senders: make(map[domain.TrackID]*webrtc.RTPSender)}, nil
}

func (p *Publisher) AddTrack(ctx context.Context, lt *LocalTrack) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	if _, ok := p.senders[lt.ID()]; ok {
		p.mu.Unlock()
		return nil
	}
	sender, err := p.pc.AddTrack(lt.RTP())
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("add track: %w", err)
	}
	p.senders[lt.ID()] = sender
	p.mu.Unlock()

	go drainRTCP(sender)
	return p.renegotiate(ctx)
}

func (p *Publisher) RemoveTrack(ctx context.Context, id domain.TrackID) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	sender, ok := p.senders[id]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	delete(p.senders, id)
	err := p.pc.RemoveTrack(sender)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("remove track: %w", err)
	}
	return p.renegotiate(ctx)
}

func (p *Publisher) renegotiate(ctx context.Context) error {
	p.negMu.Lock()
	defer p.negMu.Unlock()
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return ctx.Err()
	}

	answer, err := p.negotiate(ctx, *p.pc.LocalDescription())
	if err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}
	if err := p.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

// drainRTCP reads sender reports so interceptors keep working.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.senders = nil
	p.mu.Unlock()
	return p.pc.Close()
}
