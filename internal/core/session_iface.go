package core

import "github.com/dkeye/vspace/internal/domain"

// SessionID identifies one signalling connection on the server.
// It doubles as the participant id handed to the client.
type SessionID string

// Frame is a raw encoded signalling message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds domain.Member and its transport endpoints.
// This is what a conference stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
	Media() MediaConnection
	UpdateSignal(SignalConnection) MemberSession
	UpdateMedia(MediaConnection) MemberSession
}
