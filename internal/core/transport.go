package core

import (
	"context"

	"github.com/dkeye/vspace/internal/app/notify"
	"github.com/dkeye/vspace/internal/domain"
)

// ListenerID is returned by every listener registration and passed back to remove it.
type ListenerID = notify.Token

type EventKind string

const (
	EventParticipantJoined EventKind = "participant-joined"
	EventParticipantLeft   EventKind = "participant-left"
	EventTrackAdded        EventKind = "track-added"
	EventTrackRemoved      EventKind = "track-removed"
	EventConferenceJoined  EventKind = "conference-joined"
	EventConferenceLeft    EventKind = "conference-left"
)

// Event is one conference event. Only the fields relevant to Kind are set.
type Event struct {
	Kind          EventKind
	ParticipantID domain.ParticipantID
	Name          string
	Track         TrackHandle
}

type EventHandler func(Event)

// Command is a small tagged broadcast message, delivered to every participant
// including the sender.
type Command struct {
	Value      string               `json:"value"`
	Attributes map[string]string    `json:"attributes,omitempty"`
	From       domain.ParticipantID `json:"from,omitempty"`
}

type CommandHandler func(tag string, cmd Command)

// Connector opens signalling connections for a space.
type Connector interface {
	Open(space string, token string) Connection
}

// Connection is one signalling connection.
type Connection interface {
	// Connect blocks until the connection is established or fails.
	Connect(ctx context.Context) error
	// Conference creates the conference handle without joining it.
	Conference(name domain.ConferenceName) Conference
	Disconnect(ctx context.Context) error
	// Done is closed once the connection is gone.
	Done() <-chan struct{}
}

// Conference is the handle of one joined (or joining) signalling conference.
// Implementations deliver events and commands from a single goroutine in
// conference order.
type Conference interface {
	On(kind EventKind, h EventHandler) ListenerID
	Off(id ListenerID)
	Join(ctx context.Context) error
	Leave(ctx context.Context) error
	SetDisplayName(name string)

	SendCommand(tag string, cmd Command) error
	AddCommandListener(tag string, h CommandHandler) ListenerID
	RemoveCommandListener(id ListenerID)

	Participants() []RemoteParticipant
	MyUserID() domain.ParticipantID
	LocalTracks() []TrackHandle
	AddTrack(ctx context.Context, t TrackHandle) error
	RemoveTrack(ctx context.Context, t TrackHandle) error
}

// RemoteParticipant is the transport's own directory entry for a participant.
type RemoteParticipant interface {
	ID() domain.ParticipantID
	DisplayName() string
	Tracks(kind domain.TrackKind) []TrackHandle
}

// Sink is a playback element a track can be attached to.
type Sink interface {
	Play(t TrackHandle) error
	Stop(t TrackHandle)
}

// TrackHandle is the transport's handle of one audio or video track.
type TrackHandle interface {
	ID() domain.TrackID
	Kind() domain.TrackKind
	ParticipantID() domain.ParticipantID
	IsLocal() bool
	Muted() bool
	// SetMuted is only honoured by local tracks.
	SetMuted(muted bool) error
	Attach(s Sink) error
	Detach(s Sink)
	Dispose() error
	OnMuteChanged(fn func(muted bool)) (cancel func())
}
