// Package wsclient is the conference transport speaking the signalling
// server's websocket protocol.
package wsclient

import (
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/vspace/internal/core"
)

const defaultNegotiateTimeout = 10 * time.Second

type Connector struct {
	// URL of the server websocket endpoint, e.g. ws://host/api/ws/conference.
	URL    string
	Dialer *websocket.Dialer
	// Media enables publishing local tracks over a PeerConnection.
	Media            bool
	WebRTC           webrtc.Configuration
	NegotiateTimeout time.Duration
}

func (c *Connector) Open(space string, token string) core.Connection {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	timeout := c.NegotiateTimeout
	if timeout <= 0 {
		timeout = defaultNegotiateTimeout
	}
	return &Connection{
		url:              withToken(c.URL, token),
		dialer:           dialer,
		media:            c.Media,
		webrtc:           c.WebRTC,
		negotiateTimeout: timeout,
		space:            space,
		send:             make(chan []byte, sendBufferSize),
		answers:          make(chan webrtc.SessionDescription, 1),
		done:             make(chan struct{}),
		flushed:          make(chan struct{}),
	}
}

func withToken(raw, token string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
