package domain

// Command tags broadcast on the conference command channel.
const (
	TagEnterRoom    = "ENTER_ROOM"
	TagExitRoom     = "EXIT_ROOM"
	TagTakeStage    = "TAKE_STAGE"
	TagReleaseStage = "RELEASE_STAGE"
)

// Command attribute keys.
const (
	AttrRoom = "room"
	AttrSeq  = "seq"
)
