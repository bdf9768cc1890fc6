package domain

import "fmt"

type (
	// ConferenceName names the single signalling conference of a space.
	ConferenceName string
	// RoomName names a sub-room layered on top of a conference.
	RoomName string
)

// ZoneRoom derives the sub-room name for a visual-layer zone of a space.
func ZoneRoom(space string, zoneID string) RoomName {
	return RoomName(fmt.Sprintf("%s-%s", space, zoneID))
}
