package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// MediaConnection is the server end of a publisher PeerConnection.
type MediaConnection interface {
	// Start configures internal callbacks and binds the connection lifetime to ctx.
	Start(ctx context.Context) error
	// Close should stop all underlying media resources.
	Close()
	// ApplyOfferAndCreateAnswer answers a (re)negotiation from the publisher.
	ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	// OnTrack sets a callback that will be invoked when a new remote track arrives.
	OnTrack(func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))
	// OnClosed sets a callback for cleanup media session.
	OnClosed(func())
}
