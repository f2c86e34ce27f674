package game

import "fmt"

// MsgNoUnbeaten is the mistake shown to a defender who tries to defend with nothing left to beat.
const MsgNoUnbeaten = "No any way to put card as a defender"

// IllegalActionError is a well-formed action that the rules do not allow in the current state.
// The reason is shown to the player who sent it.
type IllegalActionError struct {
	Reason string
}

func (e *IllegalActionError) Error() string {
	return e.Reason
}

func illegal(format string, args ...interface{}) error {
	return &IllegalActionError{Reason: fmt.Sprintf(format, args...)}
}

// ProtocolError is a message that cannot be turned into a game action at all:
// bad JSON, an unknown action name, a malformed card, or a sender that is not seated.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// ErrGameOver is returned for any action sent after the match has ended.
var ErrGameOver = &IllegalActionError{Reason: "The game is over"}

// ErrUnknownPlayer is returned when the acting id is not part of the game.
var ErrUnknownPlayer = &ProtocolError{Reason: "unknown player"}
