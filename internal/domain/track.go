package domain

type TrackID string

type TrackKind string

const (
	KindAudio TrackKind = "audio"
	KindVideo TrackKind = "video"
)

func (k TrackKind) Valid() bool {
	return k == KindAudio || k == KindVideo
}

type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginLocal {
		return "local"
	}
	return "remote"
}

// VideoMode selects the device behind the local video track.
type VideoMode string

const (
	VideoCamera VideoMode = "camera"
	VideoScreen VideoMode = "screen"
)

// DeviceKind is what a device source is asked to open.
type DeviceKind string

const (
	DeviceAudioInput  DeviceKind = "audioinput"
	DeviceAudioOutput DeviceKind = "audiooutput"
	DeviceVideoInput  DeviceKind = "videoinput"
	DeviceDesktop     DeviceKind = "desktop"
)

// DeviceFor maps a video mode to the device that backs it.
func (m VideoMode) DeviceFor() DeviceKind {
	if m == VideoScreen {
		return DeviceDesktop
	}
	return DeviceVideoInput
}

// TrackInfo is the wire description of a published track.
type TrackInfo struct {
	ID            TrackID       `json:"id"`
	Kind          TrackKind     `json:"kind"`
	ParticipantID ParticipantID `json:"participant_id"`
	Muted         bool          `json:"muted"`
}
