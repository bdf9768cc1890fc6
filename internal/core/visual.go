package core

// Spawn acknowledgement states reported by the visual layer.
const (
	SpawnSuccess = "SUCCESS"
)

type SpawnRequest struct {
	UserID    string `json:"userId"`
	AvatarURL string `json:"avatarUrl"`
}

type SpawnResult struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// ZoneState is ENTER or EXIT.
type ZoneState string

const (
	ZoneEnter ZoneState = "ENTER"
	ZoneExit  ZoneState = "EXIT"
)

// ZoneEvent is emitted by the visual layer when the avatar crosses a private
// or group zone boundary.
type ZoneEvent struct {
	State ZoneState `json:"state"`
	ID    string    `json:"id"`
}

// VisualLayer is the outbound side of the rendered virtual world.
type VisualLayer interface {
	SetDisplayName(name string) error
	SpawnAvatar(req SpawnRequest) error
}
