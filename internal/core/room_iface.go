package core

import (
	"github.com/dkeye/vspace/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.ParticipantID `json:"id"`
	Username string               `json:"username"`
	Tracks   []domain.TrackInfo   `json:"tracks,omitempty"`
}

// ConferenceService is the core-facing API of one signalling conference.
// It owns the membership set and published track metadata but never touches
// transport resources.
type ConferenceService interface {
	Name() domain.ConferenceName
	MemberCount() int
	// MembersSnapshot lists members in join order.
	MembersSnapshot() []MemberDTO

	AddMember(sid SessionID, ms MemberSession)
	RemoveMember(sid SessionID) (MemberDTO, bool)

	// AddTrack reports false for unknown members and already known tracks.
	AddTrack(sid SessionID, info domain.TrackInfo) bool
	RemoveTrack(sid SessionID, id domain.TrackID) (domain.TrackInfo, bool)
	SetTrackMuted(sid SessionID, id domain.TrackID, muted bool) (domain.TrackInfo, bool)

	// Broadcast sends data to every member; the sender is skipped unless includeSender is set.
	Broadcast(from SessionID, data Frame, includeSender bool) PublishResult
	SendTo(sid SessionID, data Frame) error
}

type ConferenceInfo struct {
	Name        domain.ConferenceName `json:"name"`
	MemberCount int                   `json:"client_count"`
}

type ConferenceManager interface {
	GetOrCreate(name domain.ConferenceName) ConferenceService
	Get(name domain.ConferenceName) (ConferenceService, bool)
	List() []ConferenceInfo
	// StopIfEmpty drops the conference when its last member left.
	StopIfEmpty(name domain.ConferenceName)
}
