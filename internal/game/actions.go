// internal/game/actions.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/models"
)

// ActionType is the wire name of a player intent.
type ActionType string

const (
	ActionPlayTurn        ActionType = "play_turn"
	ActionThrowAdditional ActionType = "throw_additional"
	ActionDefend          ActionType = "defend"
	ActionTakeCards       ActionType = "take_cards"
	ActionFinished        ActionType = "finished"
	ActionLeave           ActionType = "leave"
)

// Action is one decoded player intent. Exactly one of the types below implements it.
type Action interface {
	Type() ActionType
}

// PlayTurn opens an attack with a single card.
type PlayTurn struct {
	Card models.Card
}

// ThrowAdditional adds a card whose rank is already on the table.
type ThrowAdditional struct {
	Card models.Card
}

// Defend covers Bottom with Top.
type Defend struct {
	Bottom models.Card
	Top    models.Card
}

// TakeCards picks up everything on the table.
type TakeCards struct{}

// Finished declines to throw any more cards this round.
type Finished struct{}

// Leave removes the player from the match. A closed socket is turned into Leave.
type Leave struct{}

func (PlayTurn) Type() ActionType        { return ActionPlayTurn }
func (ThrowAdditional) Type() ActionType { return ActionThrowAdditional }
func (Defend) Type() ActionType          { return ActionDefend }
func (TakeCards) Type() ActionType       { return ActionTakeCards }
func (Finished) Type() ActionType        { return ActionFinished }
func (Leave) Type() ActionType           { return ActionLeave }

// ActionRecord describes an applied action. It is echoed to clients as last_action
// and written to the action log.
type ActionRecord struct {
	GameID     uuid.UUID    `json:"game_id"`
	Index      int          `json:"index"`
	Action     ActionType   `json:"action"`
	PlayerID   uuid.UUID    `json:"player_id"`
	Card       *models.Card `json:"card,omitempty"`
	BottomCard *models.Card `json:"bottom_card,omitempty"`
	TopCard    *models.Card `json:"top_card,omitempty"`
	Timestamp  int64        `json:"timestamp"`
}

func newActionRecord(gameID uuid.UUID, index int, playerID uuid.UUID, action Action) ActionRecord {
	rec := ActionRecord{
		GameID:    gameID,
		Index:     index,
		Action:    action.Type(),
		PlayerID:  playerID,
		Timestamp: time.Now().UnixMilli(),
	}
	switch a := action.(type) {
	case PlayTurn:
		rec.Card = &a.Card
	case ThrowAdditional:
		rec.Card = &a.Card
	case Defend:
		rec.BottomCard = &a.Bottom
		rec.TopCard = &a.Top
	}
	return rec
}
