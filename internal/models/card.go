// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit is one of the four French suits.
type Suit int

const (
	Hearts Suit = iota + 1
	Clubs
	Diamonds
	Spades
)

var suitNames = map[Suit]string{
	Hearts:   "HEARTS",
	Clubs:    "CLUBS",
	Diamonds: "DIAMONDS",
	Spades:   "SPADES",
}

// Suits lists every suit in deck-building order.
var Suits = []Suit{Hearts, Clubs, Diamonds, Spades}

func (s Suit) String() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SUIT(%d)", int(s))
}

// Rank is the card rank. Durak only uses six through ace.
type Rank int

const (
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// MinRank and MaxRank bound the playable rank domain.
const (
	MinRank = Six
	MaxRank = Ace
)

var rankNames = map[Rank]string{
	Six:   "SIX",
	Seven: "SEVEN",
	Eight: "EIGHT",
	Nine:  "NINE",
	Ten:   "TEN",
	Jack:  "JACK",
	Queen: "QUEEN",
	King:  "KING",
	Ace:   "ACE",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RANK(%d)", int(r))
}

// Valid reports whether r is within the Durak rank domain.
func (r Rank) Valid() bool {
	return r >= MinRank && r <= MaxRank
}

// cardSeparator joins rank and suit in the wire form, e.g. "NINE_SPADES".
const cardSeparator = "_"

// Card is an immutable rank/suit pair. Two cards are equal when rank and suit match.
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard builds a card, panicking on values outside the domain. Intended for literals and tests.
func NewCard(rank Rank, suit Suit) Card {
	if !rank.Valid() {
		panic(fmt.Sprintf("invalid rank %d", rank))
	}
	if _, ok := suitNames[suit]; !ok {
		panic(fmt.Sprintf("invalid suit %d", suit))
	}
	return Card{Rank: rank, Suit: suit}
}

// String returns the wire form used by clients (it also matches the card image names).
func (c Card) String() string {
	return c.Rank.String() + cardSeparator + c.Suit.String()
}

// ParseCard parses the "RANK_SUIT" wire form, case-insensitively.
func ParseCard(s string) (Card, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(s)), cardSeparator)
	if len(parts) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}

	var card Card
	for r, name := range rankNames {
		if name == parts[0] {
			card.Rank = r
			break
		}
	}
	for st, name := range suitNames {
		if name == parts[1] {
			card.Suit = st
			break
		}
	}
	if card.Rank == 0 || card.Suit == 0 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	return card, nil
}

// MarshalJSON encodes the card as its wire string.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a card from its wire string.
func (c *Card) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("card must be a string: %w", err)
	}
	parsed, err := ParseCard(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Beats reports whether top legally covers bottom given the trump suit:
// a trump beats any non-trump, otherwise the suits must match and top must rank higher.
func (c Card) Beats(bottom Card, trump Suit) bool {
	if c.Suit == bottom.Suit {
		return c.Rank > bottom.Rank
	}
	return c.Suit == trump
}
