// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 64
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// ParticipantID is the transport-assigned identity of one connection.
// It is unknown before join and stable for the conference lifetime.
type ParticipantID string

type User struct {
	ID       ParticipantID `json:"id"`
	Username string        `json:"username"`
}

// NewUser assigns a fresh connection identity.
func NewUser(username string) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	return &User{ID: ParticipantID(uuid.NewString()), Username: username}, nil
}

func (u *User) SetUsername(username string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	u.Username = username
	return nil
}

func validateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
