// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/jason-s-yu/durak/internal/models"
)

// Deck is the draw pile. cards[0] is the bottom card, which is also the face-up trump card,
// so it is the last card drawn. Draws come off the end of the slice.
type Deck struct {
	cards     []models.Card
	trumpCard models.Card
}

// NewDeck builds and shuffles a deck holding every card from lowest up to ace in every suit.
// The bottom card of the shuffled deck decides the trump suit.
func NewDeck(r *rand.Rand, lowest models.Rank) *Deck {
	if !lowest.Valid() {
		lowest = models.MinRank
	}

	cards := make([]models.Card, 0, len(models.Suits)*int(models.MaxRank-lowest+1))
	for _, suit := range models.Suits {
		for rank := lowest; rank <= models.MaxRank; rank++ {
			cards = append(cards, models.NewCard(rank, suit))
		}
	}
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return NewDeckFromCards(cards)
}

// NewDeckFromCards builds a deck with a fixed order. cards[0] is the trump card and
// cards[len-1] is drawn first. The slice is copied.
func NewDeckFromCards(cards []models.Card) *Deck {
	d := &Deck{cards: append([]models.Card(nil), cards...)}
	if len(cards) > 0 {
		d.trumpCard = cards[0]
	}
	return d
}

// Draw removes up to n cards from the top. It returns fewer when the deck runs out;
// the trump card comes out last.
func (d *Deck) Draw(n int) []models.Card {
	if n <= 0 || len(d.cards) == 0 {
		return nil
	}
	if n > len(d.cards) {
		n = len(d.cards)
	}

	drawn := make([]models.Card, 0, n)
	for i := 0; i < n; i++ {
		last := len(d.cards) - 1
		drawn = append(drawn, d.cards[last])
		d.cards = d.cards[:last]
	}
	return drawn
}

// Trump returns the trump suit. It stays fixed after the trump card itself is drawn.
func (d *Deck) Trump() models.Suit {
	return d.trumpCard.Suit
}

// TrumpCard returns the face-up card that set the trump suit.
func (d *Deck) TrumpCard() models.Card {
	return d.trumpCard
}

// Remaining is the number of drawable cards, trump card included while it is still in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// ReturnCards puts cards back just above the trump card, so they are drawn right before it.
func (d *Deck) ReturnCards(cards ...models.Card) {
	if len(cards) == 0 {
		return
	}
	if len(d.cards) == 0 || d.cards[0] != d.trumpCard {
		d.cards = append(append([]models.Card(nil), cards...), d.cards...)
		return
	}

	rest := append([]models.Card(nil), d.cards[1:]...)
	d.cards = append(append(d.cards[:1], cards...), rest...)
}

// Cards returns a copy of the deck order, bottom first.
func (d *Deck) Cards() []models.Card {
	return append([]models.Card(nil), d.cards...)
}
