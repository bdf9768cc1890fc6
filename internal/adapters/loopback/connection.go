package loopback

import (
	"context"
	"sync"

	"github.com/dkeye/vspace/internal/adapters/dispatch"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

type Connection struct {
	hub   *Hub
	space string
	token string
	id    domain.ParticipantID

	mu   sync.Mutex
	conf *Conference

	done      chan struct{}
	closeOnce sync.Once
}

func (c *Connection) ID() domain.ParticipantID { return c.id }

func (c *Connection) Connect(ctx context.Context) error {
	return c.hub.connect(ctx)
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
	if conf := c.current(); conf != nil {
		c.hub.leave(conf, false)
		conf.disp.Stop()
	}
	c.hub.forget(c.id)
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// Drop simulates losing the connection: peers see the participant leave,
// the local side only sees Done close.
func (c *Connection) Drop() {
	_ = c.Disconnect(context.Background())
}

func (c *Connection) Done() <-chan struct{} { return c.done }
