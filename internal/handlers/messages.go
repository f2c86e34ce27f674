// internal/handlers/messages.go
package handlers

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/game"
)

// Server to client message types.
const (
	MsgGameState     = "game_state"
	MsgPlayerMistake = "player_mistake"
	MsgPlayerRemoved = "player_removed"
	MsgGameOver      = "game_over"
	MsgPong          = "pong"
)

// GameMessage is one inbound message on the game socket. Action selects the variant.
type GameMessage struct {
	Action     string  `json:"action"`
	Card       *string `json:"card,omitempty"`
	BottomCard *string `json:"bottom_card,omitempty"`
	TopCard    *string `json:"top_card,omitempty"`
}

// GameStateMessage carries the recipient's view of the match and the action that produced it.
// PlayerID is null for spectators; LastAction is null on sync.
type GameStateMessage struct {
	Type       string             `json:"type"`
	State      game.GameStateView `json:"state"`
	PlayerID   *uuid.UUID         `json:"player_id"`
	LastAction *game.ActionRecord `json:"last_action"`
}

type PlayerMistakeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type PlayerRemovedMessage struct {
	Type     string    `json:"type"`
	PlayerID uuid.UUID `json:"player_id"`
}

type GameOverMessage struct {
	Type    string      `json:"type"`
	Winners []uuid.UUID `json:"winners"`
	Durak   *uuid.UUID  `json:"durak"`
}

type PongMessage struct {
	Type string `json:"type"`
}

// encodeState builds the game_state frame for one recipient.
func encodeState(snap game.Snapshot, recipient uuid.UUID, last *game.ActionRecord) ([]byte, error) {
	msg := GameStateMessage{
		Type:       MsgGameState,
		State:      snap.For(recipient),
		LastAction: last,
	}
	if recipient != uuid.Nil {
		id := recipient
		msg.PlayerID = &id
	}
	return json.Marshal(msg)
}
