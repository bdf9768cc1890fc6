package wsclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/dispatch"
	"github.com/dkeye/vspace/internal/adapters/rtc"
	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

const (
	writeWait      = 5 * time.Second
	sendBufferSize = 64
)

var ErrClosed = errors.New("connection closed")

type Connection struct {
	url              string
	dialer           *websocket.Dialer
	media            bool
	webrtc           webrtc.Configuration
	negotiateTimeout time.Duration
	space            string

	ws      *websocket.Conn
	send    chan []byte
	answers chan webrtc.SessionDescription

	mu        sync.Mutex
	conf      *Conference
	publisher *rtc.Publisher

	done      chan struct{}
	flushed   chan struct{}
	closeOnce sync.Once
}

func (c *Connection) Connect(ctx context.Context) error {
	ws, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", c.url, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.ws = ws
	log.Info().Str("module", "wsclient").Str("space", c.space).Msg("connected")

	go c.writePump()
	go c.readPump()
	return nil
}

func (c *Connection) Conference(name domain.ConferenceName) core.Conference {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conf == nil || c.conf.name != name {
		c.conf = &Conference{conn: c, name: name, disp: dispatch.New(), local: make(map[domain.TrackID]*published)}
	}
	return c.conf
}

func (c *Connection) current() *Conference {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conf
}

func (c *Connection) Disconnect(ctx context.Context) error {
	c.flush(ctx)
	if c.ws != nil {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	}
	c.close()
	if conf := c.current(); conf != nil {
		conf.disp.Stop()
	}
	return nil
}

// flush waits, at most writeWait, until the write pump has written every
// frame queued before the call. The pump stops after the flush.
func (c *Connection) flush(ctx context.Context) {
	if c.ws == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	select {
	case c.send <- nil:
	case <-c.done:
		return
	case <-ctx.Done():
		return
	}
	select {
	case <-c.flushed:
	case <-c.done:
	case <-ctx.Done():
		log.Warn().Str("module", "wsclient").Msg("flush timed out")
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
		c.mu.Lock()
		pub := c.publisher
		c.publisher = nil
		c.mu.Unlock()
		if pub != nil {
			_ = pub.Close()
		}
		log.Info().Str("module", "wsclient").Str("space", c.space).Msg("disconnected")
	})
}

func (c *Connection) Done() <-chan struct{} { return c.done }

// write queues one frame for the write pump.
func (c *Connection) write(v any) error {
	data, err := wire.Encode(v)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	case c.send <- data:
		return nil
	}
}

func (c *Connection) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if data == nil {
				close(c.flushed)
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "wsclient").Msg("writePump set deadline")
				c.close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "wsclient").Msg("writePump write error")
				c.close()
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer c.close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Warn().Err(err).Str("module", "wsclient").Msg("readPump read error")
			}
			return
		}
		c.handleFrame(data)
	}
}

// publisherFor lazily creates the PeerConnection used for local media.
func (c *Connection) publisherFor() (*rtc.Publisher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publisher != nil {
		return c.publisher, nil
	}
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}
	pub, err := rtc.NewPublisher(c.webrtc, c.negotiate)
	if err != nil {
		return nil, err
	}
	c.publisher = pub
	return pub, nil
}

func (c *Connection) activePublisher() *rtc.Publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publisher
}

func (c *Connection) negotiate(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	// drop an answer left over from a timed out negotiation
	select {
	case <-c.answers:
	default:
	}
	if err := c.write(wire.SDP{Type: wire.TypeOffer, SDP: offer.SDP}); err != nil {
		return webrtc.SessionDescription{}, err
	}
	timer := time.NewTimer(c.negotiateTimeout)
	defer timer.Stop()
	select {
	case answer := <-c.answers:
		return answer, nil
	case <-c.done:
		return webrtc.SessionDescription{}, ErrClosed
	case <-ctx.Done():
		return webrtc.SessionDescription{}, ctx.Err()
	case <-timer.C:
		return webrtc.SessionDescription{}, errors.New("no answer from server")
	}
}
