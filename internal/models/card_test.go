package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	c, err := ParseCard("nine_spades")
	require.NoError(t, err)
	assert.Equal(t, NewCard(Nine, Spades), c)
	assert.Equal(t, "NINE_SPADES", c.String())

	for _, bad := range []string{"", "NINE", "NINE_SPADES_X", "TWO_HEARTS", "ACE_STARS", "None"} {
		_, err := ParseCard(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestCardJSON(t *testing.T) {
	data, err := json.Marshal([]Card{NewCard(Ace, Hearts)})
	require.NoError(t, err)
	assert.JSONEq(t, `["ACE_HEARTS"]`, string(data))

	var c Card
	require.NoError(t, json.Unmarshal([]byte(`"queen_clubs"`), &c))
	assert.Equal(t, NewCard(Queen, Clubs), c)
	assert.Error(t, json.Unmarshal([]byte(`12`), &c))
}

func TestBeats(t *testing.T) {
	trump := Spades
	tests := []struct {
		name   string
		top    Card
		bottom Card
		want   bool
	}{
		{"higher same suit", NewCard(Ten, Hearts), NewCard(Nine, Hearts), true},
		{"lower same suit", NewCard(Eight, Hearts), NewCard(Nine, Hearts), false},
		{"equal rank same suit", NewCard(Nine, Hearts), NewCard(Nine, Hearts), false},
		{"off suit non trump", NewCard(Ace, Clubs), NewCard(Six, Hearts), false},
		{"low trump over high non trump", NewCard(Six, Spades), NewCard(Ace, Hearts), true},
		{"non trump over trump", NewCard(Ace, Hearts), NewCard(Six, Spades), false},
		{"higher trump over trump", NewCard(Ten, Spades), NewCard(Nine, Spades), true},
		{"lower trump over trump", NewCard(Seven, Spades), NewCard(Nine, Spades), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.top.Beats(tt.bottom, trump))
		})
	}
}

// Any trump beats any non-trump and no non-trump beats a trump, across the whole domain.
func TestBeatsTrumpProperty(t *testing.T) {
	for _, trump := range Suits {
		for tr := MinRank; tr <= MaxRank; tr++ {
			for _, s := range Suits {
				if s == trump {
					continue
				}
				for r := MinRank; r <= MaxRank; r++ {
					trumpCard := NewCard(tr, trump)
					plain := NewCard(r, s)
					assert.True(t, trumpCard.Beats(plain, trump))
					assert.False(t, plain.Beats(trumpCard, trump))
				}
			}
		}
	}
}

func TestPlayerHand(t *testing.T) {
	p := NewPlayer(uuid.New(), "alice")
	p.TakeCards(NewCard(Six, Hearts), NewCard(Seven, Clubs))
	assert.True(t, p.HasCard(NewCard(Seven, Clubs)))
	assert.True(t, p.ThrowCard(NewCard(Six, Hearts)))
	assert.False(t, p.ThrowCard(NewCard(Six, Hearts)))
	assert.Equal(t, []Card{NewCard(Seven, Clubs)}, p.EmptyHand())
	assert.Empty(t, p.Hand)
}
