// internal/game/snapshot.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/models"
)

// PlayerSnapshot is a frozen copy of one player, hand included.
type PlayerSnapshot struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Hand      []models.Card `json:"hand"`
	Finished  bool          `json:"finished"`
	IsWinner  bool          `json:"is_winner"`
	Connected bool          `json:"connected"`
}

// Snapshot is an immutable, unredacted copy of the match after an applied action.
// It must never be sent as is; use For to build a per-recipient view.
type Snapshot struct {
	GameID            uuid.UUID        `json:"game_id"`
	TrumpCard         models.Card      `json:"trump_card"`
	DeckLen           int              `json:"deck_len"`
	Players           []PlayerSnapshot `json:"players"`
	Winners           []PlayerSnapshot `json:"winners"`
	Turn              int              `json:"turn"`
	NextTurn          int              `json:"next_turn"`
	AttackState       []AttackSlot     `json:"attack_state"`
	DefenderTakes     bool             `json:"defender_takes"`
	FinishedPlayerIDs []uuid.UUID      `json:"finished_player_ids"`
	Durak             *uuid.UUID       `json:"durak"`
	GameOver          bool             `json:"game_over"`
	DiscardLen        int              `json:"discard_len"`
	Round             int              `json:"round"`
	Phase             Phase            `json:"phase"`
}

// DeckView is the public part of the deck.
type DeckView struct {
	Trump     models.Card `json:"trump"`
	TrumpSuit string      `json:"trump_suit"`
	Length    int         `json:"length"`
}

// PlayerView is one player as seen by a recipient. Hand is only set on the recipient's own entry.
type PlayerView struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	HandLen   int            `json:"hand_len"`
	Hand      *[]models.Card `json:"hand,omitempty"`
	Finished  bool           `json:"finished"`
	IsWinner  bool           `json:"is_winner"`
	Connected bool           `json:"connected"`
}

// GameStateView is the redacted state sent to one recipient.
type GameStateView struct {
	GameID            uuid.UUID    `json:"game_id"`
	Deck              DeckView     `json:"deck"`
	Players           []PlayerView `json:"players"`
	Turn              int          `json:"turn"`
	NextTurn          int          `json:"next_turn"`
	AttackState       []AttackSlot `json:"attack_state"`
	DefenderTakes     bool         `json:"defender_takes"`
	FinishedPlayerIDs []uuid.UUID  `json:"finished_player_ids"`
	Winners           []PlayerView `json:"winners"`
	Durak             *uuid.UUID   `json:"durak"`
	GameOver          bool         `json:"game_over"`
	DiscardLen        int          `json:"discard_len"`
	Round             int          `json:"round"`
	Phase             Phase        `json:"phase"`
}

// Snapshot copies the current state. Nothing in the result aliases engine memory.
func (g *DurakGame) Snapshot() Snapshot {
	snap := Snapshot{
		GameID:            g.ID,
		TrumpCard:         g.Deck.TrumpCard(),
		DeckLen:           g.Deck.Remaining(),
		Players:           snapshotPlayers(g.Players),
		Winners:           snapshotPlayers(g.Winners),
		Turn:              g.turn,
		NextTurn:          g.nextTurn,
		AttackState:       g.Table.Slots(),
		DefenderTakes:     g.DefenderTakes,
		FinishedPlayerIDs: append([]uuid.UUID{}, g.FinishedPlayerIDs...),
		GameOver:          g.GameOver,
		DiscardLen:        len(g.Discard),
		Round:             g.Round,
		Phase:             g.Phase(),
	}
	if g.Durak != nil {
		id := g.Durak.ID
		snap.Durak = &id
	}
	return snap
}

func snapshotPlayers(players []*models.Player) []PlayerSnapshot {
	out := make([]PlayerSnapshot, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerSnapshot{
			ID:        p.ID,
			Name:      p.Name,
			Hand:      append([]models.Card{}, p.Hand...),
			Finished:  p.Finished,
			IsWinner:  p.IsWinner,
			Connected: p.Connected,
		})
	}
	return out
}

// For builds the view for recipient: their own hand in full, everyone else as a count.
// Spectators pass an id that is not seated and see no hands at all.
func (s Snapshot) For(recipient uuid.UUID) GameStateView {
	return GameStateView{
		GameID: s.GameID,
		Deck: DeckView{
			Trump:     s.TrumpCard,
			TrumpSuit: s.TrumpCard.Suit.String(),
			Length:    s.DeckLen,
		},
		Players:           viewPlayers(s.Players, recipient),
		Turn:              s.Turn,
		NextTurn:          s.NextTurn,
		AttackState:       s.AttackState,
		DefenderTakes:     s.DefenderTakes,
		FinishedPlayerIDs: s.FinishedPlayerIDs,
		Winners:           viewPlayers(s.Winners, recipient),
		Durak:             s.Durak,
		GameOver:          s.GameOver,
		DiscardLen:        s.DiscardLen,
		Round:             s.Round,
		Phase:             s.Phase,
	}
}

// Public is the view with every hand hidden, used for caching and spectators.
func (s Snapshot) Public() GameStateView {
	return s.For(uuid.Nil)
}

func viewPlayers(players []PlayerSnapshot, recipient uuid.UUID) []PlayerView {
	out := make([]PlayerView, 0, len(players))
	for _, p := range players {
		v := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			HandLen:   len(p.Hand),
			Finished:  p.Finished,
			IsWinner:  p.IsWinner,
			Connected: p.Connected,
		}
		if recipient != uuid.Nil && p.ID == recipient {
			hand := append([]models.Card{}, p.Hand...)
			v.Hand = &hand
		}
		out = append(out, v)
	}
	return out
}

// HasPlayer reports whether id is seated, as an active player or a winner.
func (s Snapshot) HasPlayer(id uuid.UUID) bool {
	for _, p := range s.Players {
		if p.ID == id {
			return true
		}
	}
	for _, p := range s.Winners {
		if p.ID == id {
			return true
		}
	}
	return false
}

// WinnerIDs lists the winners in the order they went out.
func (s Snapshot) WinnerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.Winners))
	for _, p := range s.Winners {
		ids = append(ids, p.ID)
	}
	return ids
}
