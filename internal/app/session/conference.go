// Package session derives the shared state of one space conference from the
// ordered event and command stream of its transport: the roster, sub-room
// membership and the stage occupier.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/looplab/fsm"

	"github.com/dkeye/vspace/internal/app/notify"
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/rooms"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
	"github.com/dkeye/vspace/internal/metrics"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateJoining    State = "joining"
	StateJoined     State = "joined"
	StateLeaving    State = "leaving"
)

// Conference is the client side view of a space. Derived state is only ever
// changed by transport events and echoed commands, never by the caller.
type Conference struct {
	Connector core.Connector
	Metrics   *metrics.Session

	// mu guards the lifecycle fields below and every fsm transition.
	mu          sync.Mutex
	fsm         *fsm.FSM
	space       string
	displayName string
	conn        core.Connection
	conf        core.Conference
	self        *peer.Self
	listeners   []core.ListenerID
	commands    []core.ListenerID
	selfTokens  []notify.Token
	joined      chan struct{}
	joinedOnce  *sync.Once

	// gen identifies the current Enter. Handlers installed for an older
	// generation return without touching state.
	gen atomic.Uint64
	seq atomic.Uint64

	// roomMu serialises the local room intent (EnterRoom, ExitRoom).
	roomMu  sync.Mutex
	current atomic.Pointer[domain.RoomName]

	roster *notify.State[peer.Roster]
	rooms  *notify.State[rooms.Membership]
	stage  *notify.State[*peer.Participant]
}

func NewConference(connector core.Connector, m *metrics.Session) *Conference {
	c := &Conference{
		Connector: connector,
		Metrics:   m,
		roster:    notify.NewState(peer.Roster{}),
		rooms:     notify.NewState(rooms.Membership{}),
		stage:     notify.NewState[*peer.Participant](nil),
	}
	c.fsm = newLifecycle()
	return c
}

func (c *Conference) State() State { return State(c.fsm.Current()) }

func (c *Conference) active(gen uint64) bool { return c.gen.Load() == gen }

// handle returns the transport conference when joined.
func (c *Conference) handle() (core.Conference, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateJoined || c.conf == nil {
		return nil, 0, false
	}
	return c.conf, c.gen.Load(), true
}

func (c *Conference) Space() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.space
}

func (c *Conference) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayName
}

// MyUserID is empty unless joined.
func (c *Conference) MyUserID() domain.ParticipantID {
	if conf, _, ok := c.handle(); ok {
		return conf.MyUserID()
	}
	return ""
}

func (c *Conference) Participants() peer.Roster   { return c.roster.Load() }
func (c *Conference) Rooms() rooms.Membership     { return c.rooms.Load() }
func (c *Conference) Occupier() *peer.Participant { return c.stage.Load() }
func (c *Conference) Participant(id domain.ParticipantID) (*peer.Participant, bool) {
	return c.roster.Load().Get(id)
}

// CurrentRoom is the room the local actor last asked to be in.
func (c *Conference) CurrentRoom() domain.RoomName {
	if r := c.current.Load(); r != nil {
		return *r
	}
	return ""
}

func (c *Conference) setCurrent(room domain.RoomName) {
	if room == "" {
		c.current.Store(nil)
		return
	}
	c.current.Store(&room)
}

func (c *Conference) OnParticipantsChanged(fn func(peer.Roster)) notify.Token {
	return c.roster.Subscribe(fn)
}

func (c *Conference) OnRoomsChanged(fn func(rooms.Membership)) notify.Token {
	return c.rooms.Subscribe(fn)
}

func (c *Conference) OnOccupierChanged(fn func(*peer.Participant)) notify.Token {
	return c.stage.Subscribe(fn)
}

// Unsubscribe removes a subscription made through any of the On* methods.
func (c *Conference) Unsubscribe(tok notify.Token) bool {
	return c.roster.Unsubscribe(tok) || c.rooms.Unsubscribe(tok) || c.stage.Unsubscribe(tok)
}
