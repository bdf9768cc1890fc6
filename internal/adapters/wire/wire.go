// Package wire holds the JSON frames exchanged between the signalling
// server and its websocket clients.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/vspace/internal/domain"
)

// Client to server frame types.
const (
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypeCommand     = "command"
	TypeTrackAdd    = "track_add"
	TypeTrackRemove = "track_remove"
	TypeTrackMute   = "track_mute"
	TypeOffer       = "offer"
	TypePing        = "ping"
)

// Server to client frame types.
const (
	TypeConferenceJoined  = "conference_joined"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeTrackAdded        = "track_added"
	TypeTrackRemoved      = "track_removed"
	TypeTrackMuted        = "track_muted"
	TypeConferenceLeft    = "conference_left"
	TypeAnswer            = "answer"
	TypePong              = "pong"
	TypeError             = "error"
)

type Envelope struct {
	Type string `json:"type"`
}

type Join struct {
	Type       string                `json:"type"`
	Conference domain.ConferenceName `json:"conference"`
	Name       string                `json:"name,omitempty"`
}

type Command struct {
	Type       string               `json:"type"`
	Tag        string               `json:"tag"`
	Value      string               `json:"value"`
	Attributes map[string]string    `json:"attributes,omitempty"`
	From       domain.ParticipantID `json:"from,omitempty"`
}

// Track carries track_add, track_remove, track_mute and their server echoes.
type Track struct {
	Type          string               `json:"type"`
	ID            domain.TrackID       `json:"id"`
	Kind          domain.TrackKind     `json:"kind,omitempty"`
	ParticipantID domain.ParticipantID `json:"participant_id,omitempty"`
	Muted         bool                 `json:"muted"`
}

func (t Track) Info() domain.TrackInfo {
	return domain.TrackInfo{ID: t.ID, Kind: t.Kind, ParticipantID: t.ParticipantID, Muted: t.Muted}
}

func TrackFrame(typ string, info domain.TrackInfo) Track {
	return Track{Type: typ, ID: info.ID, Kind: info.Kind, ParticipantID: info.ParticipantID, Muted: info.Muted}
}

type SDP struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Participant carries conference_joined, participant_joined and participant_left.
type Participant struct {
	Type string               `json:"type"`
	ID   domain.ParticipantID `json:"id"`
	Name string               `json:"name,omitempty"`
}

type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func Errorf(format string, args ...any) Error {
	return Error{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}

// Encode marshals one frame.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode reads the envelope type of data and unmarshals it into v when v is non-nil.
func Decode(data []byte, v any) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("bad frame: %w", err)
	}
	if v != nil {
		if err := json.Unmarshal(data, v); err != nil {
			return env.Type, fmt.Errorf("bad %s payload: %w", env.Type, err)
		}
	}
	return env.Type, nil
}
