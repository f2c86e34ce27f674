package models

import (
	"github.com/google/uuid"
)

type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Hand      []Card    `json:"hand"`
	Connected bool      `json:"connected"`

	// Finished is set once the player declines to throw more cards this round.
	Finished bool `json:"finished"`

	// IsWinner is set when the player runs out of cards after the deck is exhausted.
	IsWinner bool `json:"is_winner"`

	User *User `json:"-"`
}

func NewPlayer(id uuid.UUID, name string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Hand:      []Card{},
		Connected: true,
	}
}

// HasCard reports whether c is in the player's hand.
func (p *Player) HasCard(c Card) bool {
	return p.cardIndex(c) >= 0
}

// TakeCards appends cards to the hand.
func (p *Player) TakeCards(cards ...Card) {
	p.Hand = append(p.Hand, cards...)
}

// ThrowCard removes c from the hand, reporting whether it was present.
func (p *Player) ThrowCard(c Card) bool {
	idx := p.cardIndex(c)
	if idx < 0 {
		return false
	}
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	return true
}

// EmptyHand removes and returns every card in the hand.
func (p *Player) EmptyHand() []Card {
	cards := p.Hand
	p.Hand = []Card{}
	return cards
}

func (p *Player) cardIndex(c Card) int {
	for i, hc := range p.Hand {
		if hc == c {
			return i
		}
	}
	return -1
}
