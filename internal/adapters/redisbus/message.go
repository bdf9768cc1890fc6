package redisbus

import (
	"encoding/json"

	"github.com/dkeye/vspace/internal/domain"
)

const channelPrefix = "vspace:"

// Bus message types.
const (
	msgJoin         = "join"
	msgPresent      = "present"
	msgLeave        = "leave"
	msgCommand      = "command"
	msgTrackAdded   = "track_added"
	msgTrackRemoved = "track_removed"
	msgTrackMuted   = "track_muted"
)

// Message is one frame on a space channel. Every subscriber, the publisher
// included, receives it in publish order.
type Message struct {
	Type       string                `json:"type"`
	Conference domain.ConferenceName `json:"conference"`
	From       domain.ParticipantID  `json:"from"`
	// To addresses a present reply to the joiner it answers.
	To         domain.ParticipantID `json:"to,omitempty"`
	Name       string               `json:"name,omitempty"`
	Tracks     []domain.TrackInfo   `json:"tracks,omitempty"`
	Tag        string               `json:"tag,omitempty"`
	Value      string               `json:"value,omitempty"`
	Attributes map[string]string    `json:"attributes,omitempty"`
}

func channel(space string) string { return channelPrefix + space }

func encode(m Message) ([]byte, error) { return json.Marshal(m) }

func decode(payload string) (Message, error) {
	var m Message
	err := json.Unmarshal([]byte(payload), &m)
	return m, err
}
