// internal/game/table.go
package game

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/models"
)

// noCard is the wire marker for a slot that has not been beaten yet.
const noCard = "None"

// AttackSlot is one attacking card and the card that covers it, if any.
type AttackSlot struct {
	Bottom models.Card
	Top    *models.Card

	// AttackerID is who put the bottom card down; used to hand it back if the round is cancelled.
	AttackerID uuid.UUID
}

// Beaten reports whether the slot has been covered.
func (s AttackSlot) Beaten() bool {
	return s.Top != nil
}

// MarshalJSON encodes the slot as [bottom, top|"None"].
func (s AttackSlot) MarshalJSON() ([]byte, error) {
	top := noCard
	if s.Top != nil {
		top = s.Top.String()
	}
	return json.Marshal([2]string{s.Bottom.String(), top})
}

// AttackTable holds the slots of the current round in placement order.
type AttackTable struct {
	slots []AttackSlot
}

func (t *AttackTable) Len() int {
	return len(t.slots)
}

func (t *AttackTable) Empty() bool {
	return len(t.slots) == 0
}

// Place adds an unbeaten attacking card.
func (t *AttackTable) Place(card models.Card, attacker uuid.UUID) {
	t.slots = append(t.slots, AttackSlot{Bottom: card, AttackerID: attacker})
}

// Cover puts top on the slot whose bottom card is bottom.
// It returns false if bottom is not on the table or is already covered.
func (t *AttackTable) Cover(bottom, top models.Card) bool {
	for i := range t.slots {
		if t.slots[i].Bottom != bottom {
			continue
		}
		if t.slots[i].Top != nil {
			return false
		}
		covered := top
		t.slots[i].Top = &covered
		return true
	}
	return false
}

// Slot returns the slot for a bottom card.
func (t *AttackTable) Slot(bottom models.Card) (AttackSlot, bool) {
	for _, s := range t.slots {
		if s.Bottom == bottom {
			return s, true
		}
	}
	return AttackSlot{}, false
}

// HasUnbeaten reports whether any slot still waits for a defending card.
func (t *AttackTable) HasUnbeaten() bool {
	for _, s := range t.slots {
		if s.Top == nil {
			return true
		}
	}
	return false
}

// AllBeaten reports whether the table is non-empty and every slot is covered.
func (t *AttackTable) AllBeaten() bool {
	return !t.Empty() && !t.HasUnbeaten()
}

// HasRank reports whether rank shows on any card, bottom or top.
func (t *AttackTable) HasRank(rank models.Rank) bool {
	for _, s := range t.slots {
		if s.Bottom.Rank == rank || (s.Top != nil && s.Top.Rank == rank) {
			return true
		}
	}
	return false
}

// Cards returns every card on the table, bottoms and tops.
func (t *AttackTable) Cards() []models.Card {
	cards := make([]models.Card, 0, 2*len(t.slots))
	for _, s := range t.slots {
		cards = append(cards, s.Bottom)
		if s.Top != nil {
			cards = append(cards, *s.Top)
		}
	}
	return cards
}

// Slots returns a deep copy of the slots.
func (t *AttackTable) Slots() []AttackSlot {
	out := make([]AttackSlot, len(t.slots))
	for i, s := range t.slots {
		out[i] = s
		if s.Top != nil {
			top := *s.Top
			out[i].Top = &top
		}
	}
	return out
}

// Clear removes every slot and returns them.
func (t *AttackTable) Clear() []AttackSlot {
	slots := t.slots
	t.slots = nil
	return slots
}
