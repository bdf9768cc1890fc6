package domain

import "errors"

// Precondition errors are returned to the caller and never mutate shared state.
var (
	ErrAlreadyEntered  = errors.New("conference already entered")
	ErrNotEntered      = errors.New("conference not entered")
	ErrEmptySpaceName  = errors.New("space name is empty")
	ErrMissingToken    = errors.New("access token is missing")
	ErrNoLocalActor    = errors.New("local actor is missing")
	ErrEmptyRoomName   = errors.New("room name is empty")
	ErrAlreadyOccupied = errors.New("stage is already occupied")
	ErrNotOccupied     = errors.New("stage is not occupied")
	ErrNotOwner        = errors.New("stage is occupied by another participant")
	ErrSameMode        = errors.New("video mode is same with now")
	ErrTrackDisposed   = errors.New("track disposed")
	ErrDisconnected    = errors.New("disconnected before join")
)
