package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/app/orch"
	"github.com/dkeye/vspace/internal/auth"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
	"github.com/dkeye/vspace/internal/metrics"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const (
	writeWait      = 5 * time.Second
	sendBufferSize = 64
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	WebRTC     webrtc.Configuration
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Auth    *auth.JWTService
	Metrics *metrics.Server
	Limiter *CommandRateLimiter
	Opts    Options
}

func NewSignalWSController(o *orch.Orchestrator, jwt *auth.JWTService, m *metrics.Server, limiter *CommandRateLimiter, opts Options) *SignalWSController {
	return &SignalWSController{
		Orch:    o,
		Auth:    jwt,
		Metrics: m,
		Limiter: limiter,
		Opts:    opts,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal authenticates the token query parameter and upgrades the
// request. Every connection gets a fresh session id, which is also the
// participant id of its user.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	claims, err := ctl.Auth.Validate(c.Query("token"))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("rejected token")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	name := claims.DisplayName()
	if len(name) > domain.MaxUsernameLen {
		name = name[:domain.MaxUsernameLen]
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.Opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Opts.ReadLimit)
	}

	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", name).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, sendBufferSize),
	}

	user := ctl.Orch.Registry.CreateUser(sid, name)
	sess := core.NewMemberSession(domain.NewMember(user)).UpdateSignal(conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(sid, sess, cancel)
	ctl.Metrics.ConnOpened()

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
