package models

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	// IsEphemeral marks guests who joined a room with only a display name.
	IsEphemeral bool `json:"is_ephemeral"`
}
