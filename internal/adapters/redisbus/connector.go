// Package redisbus is a serverless conference transport: participants of a
// space meet on one Redis pub/sub channel and keep their directories from
// join, present and leave gossip.
package redisbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

const publishTimeout = 5 * time.Second

var ErrClosed = errors.New("bus connection closed")

type Connector struct {
	Client *redis.Client
}

// NewConnector builds a connector on a fresh client for addr.
func NewConnector(addr string) *Connector {
	return &Connector{Client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *Connector) Open(space string, token string) core.Connection {
	conn := newConnection(space, domain.ParticipantID(uuid.NewString()))
	conn.client = c.Client
	conn.publish = conn.redisPublish
	return conn
}

type Connection struct {
	space  string
	id     domain.ParticipantID
	client *redis.Client

	publish func(ctx context.Context, m Message) error
	pubsub  *redis.PubSub
	cancel  context.CancelFunc

	mu   sync.Mutex
	conf *Conference

	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(space string, id domain.ParticipantID) *Connection {
	return &Connection{space: space, id: id, done: make(chan struct{})}
}

func (c *Connection) Connect(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	subCtx, cancel := context.WithCancel(context.Background())
	pubsub := c.client.Subscribe(subCtx, channel(c.space))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	c.pubsub = pubsub
	c.cancel = cancel
	log.Info().Str("module", "redisbus").Str("space", c.space).Str("id", string(c.id)).Msg("subscribed")

	go c.receive(subCtx, pubsub.Channel())
	return nil
}

func (c *Connection) receive(ctx context.Context, ch <-chan *redis.Message) {
	defer c.close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			m, err := decode(msg.Payload)
			if err != nil {
				log.Warn().Err(err).Str("module", "redisbus").Msg("bad message")
				continue
			}
			c.deliver(m)
		}
	}
}

func (c *Connection) deliver(m Message) {
	if conf := c.current(); conf != nil && conf.name == m.Conference {
		conf.handle(m)
	}
}

func (c *Connection) redisPublish(ctx context.Context, m Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	body, err := encode(m)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return c.client.Publish(ctx, channel(c.space), body).Err()
}

func (c *Connection) Conference(name domain.ConferenceName) core.Conference {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conf == nil || c.conf.name != name {
		c.conf = newConference(c, name)
	}
	return c.conf
}

func (c *Connection) current() *Conference {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conf
}

// Disconnect announces the leave when still joined and drops the subscription.
func (c *Connection) Disconnect(ctx context.Context) error {
	if conf := c.current(); conf != nil {
		if conf.isJoined() {
			_ = c.publish(ctx, conf.message(msgLeave))
		}
		conf.disp.Stop()
	}
	c.close()
	return nil
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.cancel != nil {
			c.cancel()
		}
		if c.pubsub != nil {
			_ = c.pubsub.Close()
		}
		log.Info().Str("module", "redisbus").Str("space", c.space).Str("id", string(c.id)).Msg("closed")
	})
}

func (c *Connection) Done() <-chan struct{} { return c.done }
