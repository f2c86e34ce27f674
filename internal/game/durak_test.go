// internal/game/durak_test.go
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(r models.Rank, s models.Suit) models.Card {
	return models.NewCard(r, s)
}

// stackDeck orders a deck so that player i is dealt hands[i], rest is drawn afterwards
// in the given order and the trump card comes out last.
func stackDeck(trump models.Card, hands [][]models.Card, rest ...models.Card) *Deck {
	var draws []models.Card
	for _, h := range hands {
		draws = append(draws, h...)
	}
	draws = append(draws, rest...)

	cards := []models.Card{trump}
	for i := len(draws) - 1; i >= 0; i-- {
		cards = append(cards, draws[i])
	}
	return NewDeckFromCards(cards)
}

// remainingCards lists every card from lowest to ace that is not in used, suit by suit.
func remainingCards(lowest models.Rank, used ...[]models.Card) []models.Card {
	taken := make(map[models.Card]bool)
	for _, set := range used {
		for _, c := range set {
			taken[c] = true
		}
	}
	var out []models.Card
	for _, s := range models.Suits {
		for r := lowest; r <= models.MaxRank; r++ {
			if c := card(r, s); !taken[c] {
				out = append(out, c)
			}
		}
	}
	return out
}

// setupDurakGame seats one player per hand and deals from a stacked deck.
func setupDurakGame(t *testing.T, rules HouseRules, deck *Deck, numPlayers int) (*DurakGame, []*models.Player) {
	t.Helper()
	players := make([]*models.Player, numPlayers)
	for i := range players {
		players[i] = models.NewPlayer(uuid.New(), fmt.Sprintf("player%d", i))
	}
	g, err := NewDurakGame(uuid.New(), players, deck, rules)
	require.NoError(t, err)
	return g, players
}

func requireIllegal(t *testing.T, err error) *IllegalActionError {
	t.Helper()
	var illegalErr *IllegalActionError
	require.Error(t, err)
	require.True(t, errors.As(err, &illegalErr), "expected an illegal action, got %v", err)
	return illegalErr
}

func TestNewDurakGameDealsAndPicksLowestTrump(t *testing.T) {
	trump := card(models.Ace, models.Spades)
	hands := [][]models.Card{
		{card(models.Six, models.Hearts), card(models.Seven, models.Hearts), card(models.Eight, models.Hearts), card(models.Nine, models.Hearts), card(models.Ten, models.Hearts), card(models.Jack, models.Hearts)},
		{card(models.Eight, models.Spades), card(models.Seven, models.Clubs), card(models.Eight, models.Clubs), card(models.Nine, models.Clubs), card(models.Ten, models.Clubs), card(models.Jack, models.Clubs)},
		{card(models.Seven, models.Spades), card(models.Seven, models.Diamonds), card(models.Eight, models.Diamonds), card(models.Nine, models.Diamonds), card(models.Ten, models.Diamonds), card(models.Jack, models.Diamonds)},
	}
	rest := remainingCards(models.Six, hands...)
	rest = rest[:len(rest)-1] // ace of spades is the trump card
	deck := stackDeck(trump, hands, rest...)
	require.Equal(t, 36, deck.Remaining())

	g, players := setupDurakGame(t, DefaultHouseRules(), deck, 3)

	for i, p := range players {
		assert.Equal(t, hands[i], p.Hand)
	}
	assert.Equal(t, 18, g.Deck.Remaining())
	assert.Equal(t, models.Spades, g.Deck.Trump())
	assert.Equal(t, 2, g.Turn(), "the seven of spades is the lowest trump")
	assert.Equal(t, 0, g.NextTurn())
	assert.Equal(t, PhaseAwaitingFirstAttack, g.Phase())
	assert.Equal(t, 36, g.CardCount())
}

func TestNewDurakGameRejectsBadSetups(t *testing.T) {
	rules := DefaultHouseRules()
	one := []*models.Player{models.NewPlayer(uuid.New(), "solo")}
	_, err := NewDurakGame(uuid.New(), one, NewDeck(rand.New(rand.NewSource(1)), models.Six), rules)
	assert.Error(t, err)

	small := NewDeckFromCards([]models.Card{card(models.Ace, models.Spades), card(models.Six, models.Hearts)})
	two := []*models.Player{models.NewPlayer(uuid.New(), "a"), models.NewPlayer(uuid.New(), "b")}
	_, err = NewDurakGame(uuid.New(), two, small, rules)
	assert.Error(t, err)
}

// A 24 card deck, spades trump. The defender holds no spades and has to take.
func TestScenarioDefenderTakes(t *testing.T) {
	rules := DefaultHouseRules()
	rules.LowestRank = int(models.Nine)

	trump := card(models.Ace, models.Spades)
	attackerHand := []models.Card{card(models.Nine, models.Spades), card(models.Ten, models.Hearts), card(models.Jack, models.Hearts), card(models.Queen, models.Hearts), card(models.King, models.Hearts), card(models.Ace, models.Hearts)}
	defenderHand := []models.Card{card(models.Nine, models.Hearts), card(models.Ten, models.Clubs), card(models.Jack, models.Clubs), card(models.Queen, models.Clubs), card(models.King, models.Clubs), card(models.Ace, models.Clubs)}
	rest := remainingCards(models.Nine, attackerHand, defenderHand, []models.Card{trump})
	g, players := setupDurakGame(t, rules, stackDeck(trump, [][]models.Card{attackerHand, defenderHand}, rest...), 2)

	require.Equal(t, 12, g.Deck.Remaining())
	require.Equal(t, 0, g.Turn())
	require.Equal(t, 1, g.NextTurn())
	attacker, defender := players[0], players[1]

	require.NoError(t, g.PlayTurn(attacker.ID, card(models.Nine, models.Spades)))
	assert.Equal(t, PhaseAttackInProgress, g.Phase())

	requireIllegal(t, g.Defend(defender.ID, card(models.Nine, models.Spades), card(models.Ace, models.Clubs)))
	requireIllegal(t, g.Defend(defender.ID, card(models.Nine, models.Spades), card(models.Nine, models.Hearts)))

	before := len(defender.Hand)
	require.NoError(t, g.TakeCards(defender.ID))

	assert.Len(t, defender.Hand, before+1)
	assert.True(t, defender.HasCard(card(models.Nine, models.Spades)))
	assert.Len(t, attacker.Hand, 6, "attacker refills")
	assert.Equal(t, 0, g.Turn(), "attacker keeps the turn after a take")
	assert.Equal(t, 1, g.NextTurn())
	assert.False(t, g.DefenderTakes)
	assert.True(t, g.Table.Empty())
	assert.Equal(t, 2, g.Round)
	assert.Equal(t, 24, g.CardCount())
}

func TestScenarioSuccessfulDefence(t *testing.T) {
	trump := card(models.Ace, models.Spades)
	hands := [][]models.Card{
		{card(models.Six, models.Hearts), card(models.Six, models.Spades), card(models.Seven, models.Clubs), card(models.Eight, models.Clubs), card(models.Nine, models.Clubs), card(models.Ten, models.Clubs)},
		{card(models.Ten, models.Hearts), card(models.Jack, models.Hearts), card(models.Queen, models.Hearts), card(models.King, models.Hearts), card(models.Ace, models.Hearts), card(models.Ace, models.Diamonds)},
	}
	rest := []models.Card{card(models.Seven, models.Diamonds), card(models.Eight, models.Diamonds), card(models.Nine, models.Diamonds), card(models.Ten, models.Diamonds)}
	g, players := setupDurakGame(t, DefaultHouseRules(), stackDeck(trump, hands, rest...), 2)
	attacker, defender := players[0], players[1]
	total := g.CardCount()

	require.NoError(t, g.PlayTurn(attacker.ID, card(models.Six, models.Hearts)))
	require.NoError(t, g.Defend(defender.ID, card(models.Six, models.Hearts), card(models.Ten, models.Hearts)))
	assert.False(t, g.Table.Empty(), "attacker can still throw in")

	err := g.Defend(defender.ID, card(models.Six, models.Hearts), card(models.Jack, models.Hearts))
	assert.Equal(t, MsgNoUnbeaten, requireIllegal(t, err).Reason)

	requireIllegal(t, g.Finished(defender.ID))
	require.NoError(t, g.Finished(attacker.ID))

	assert.True(t, g.Table.Empty())
	assert.Len(t, g.Discard, 2)
	assert.Len(t, attacker.Hand, 6)
	assert.Len(t, defender.Hand, 6)
	assert.True(t, attacker.HasCard(card(models.Seven, models.Diamonds)), "attacker draws first")
	assert.True(t, defender.HasCard(card(models.Eight, models.Diamonds)))
	assert.Equal(t, 1, g.Turn(), "the defender attacks next")
	assert.Equal(t, 0, g.NextTurn())
	assert.Empty(t, g.FinishedPlayerIDs)
	assert.False(t, attacker.Finished)
	assert.Equal(t, total, g.CardCount())
}

func TestScenarioLastPlayerIsDurak(t *testing.T) {
	rules := DefaultHouseRules()
	rules.HandSize = 2
	rules.FirstRoundLimit = false

	trump := card(models.Ace, models.Spades)
	hands := [][]models.Card{
		{card(models.Six, models.Spades), card(models.Seven, models.Hearts)},
		{card(models.Eight, models.Hearts), card(models.Nine, models.Clubs)},
	}
	g, players := setupDurakGame(t, rules, stackDeck(trump, hands), 2)
	p0, p1 := players[0], players[1]

	require.NoError(t, g.PlayTurn(p0.ID, card(models.Seven, models.Hearts)))
	require.NoError(t, g.Defend(p1.ID, card(models.Seven, models.Hearts), card(models.Eight, models.Hearts)))
	require.NoError(t, g.Finished(p0.ID))

	assert.Equal(t, 0, g.Deck.Remaining())
	assert.True(t, p0.HasCard(trump), "the trump card is drawn last")
	assert.Len(t, p1.Hand, 1)
	require.Equal(t, p1.ID, g.Attacker().ID)

	require.NoError(t, g.PlayTurn(p1.ID, card(models.Nine, models.Clubs)))
	require.NoError(t, g.Defend(p0.ID, card(models.Nine, models.Clubs), card(models.Six, models.Spades)))

	assert.True(t, g.GameOver)
	assert.Equal(t, PhaseGameOver, g.Phase())
	assert.True(t, p1.IsWinner)
	require.Len(t, g.Winners, 1)
	assert.Equal(t, p1.ID, g.Winners[0].ID)
	require.NotNil(t, g.Durak)
	assert.Equal(t, p0.ID, g.Durak.ID)
	assert.Nil(t, g.Attacker())
	assert.Equal(t, 5, g.CardCount())

	requireIllegal(t, g.PlayTurn(p0.ID, trump))
}

func TestTableLimitFirstRound(t *testing.T) {
	trump := card(models.Ace, models.Spades)
	hands := [][]models.Card{
		{card(models.Seven, models.Hearts), card(models.Seven, models.Clubs), card(models.Seven, models.Diamonds), card(models.Seven, models.Spades), card(models.Nine, models.Spades), card(models.Ten, models.Spades)},
		{card(models.Nine, models.Hearts), card(models.Nine, models.Clubs), card(models.Ten, models.Diamonds), card(models.Ten, models.Hearts), card(models.Ten, models.Clubs), card(models.Jack, models.Diamonds)},
	}
	g, players := setupDurakGame(t, DefaultHouseRules(), stackDeck(trump, hands), 2)
	attacker, defender := players[0], players[1]

	require.NoError(t, g.PlayTurn(attacker.ID, card(models.Seven, models.Hearts)))
	assert.Equal(t, 5, g.TableLimit(), "first round holds one less than a full hand")

	requireIllegal(t, g.ThrowAdditional(defender.ID, card(models.Nine, models.Clubs)))
	requireIllegal(t, g.ThrowAdditional(attacker.ID, card(models.Nine, models.Spades)))

	for _, c := range []models.Card{card(models.Seven, models.Clubs), card(models.Seven, models.Diamonds), card(models.Seven, models.Spades)} {
		require.NoError(t, g.ThrowAdditional(attacker.ID, c))
	}
	require.NoError(t, g.Defend(defender.ID, card(models.Seven, models.Hearts), card(models.Nine, models.Hearts)))
	require.NoError(t, g.Defend(defender.ID, card(models.Seven, models.Diamonds), card(models.Ten, models.Diamonds)))
	require.NoError(t, g.ThrowAdditional(attacker.ID, card(models.Nine, models.Spades)))
	assert.Equal(t, 5, g.Table.Len())

	err := g.ThrowAdditional(attacker.ID, card(models.Ten, models.Spades))
	assert.Contains(t, requireIllegal(t, err).Reason, "maximum")

	require.NoError(t, g.TakeCards(defender.ID))
	assert.Len(t, defender.Hand, 11)
	requireIllegal(t, g.ThrowAdditional(attacker.ID, card(models.Ten, models.Spades)))
	assert.Equal(t, 13, g.CardCount())
}

func threePlayerHands() [][]models.Card {
	return [][]models.Card{
		{card(models.Six, models.Spades), card(models.Six, models.Hearts), card(models.Seven, models.Hearts), card(models.Eight, models.Hearts), card(models.Nine, models.Hearts), card(models.Ten, models.Hearts)},
		{card(models.Jack, models.Hearts), card(models.Eight, models.Clubs), card(models.Nine, models.Clubs), card(models.Ten, models.Clubs), card(models.Jack, models.Clubs), card(models.Queen, models.Clubs)},
		{card(models.Seven, models.Diamonds), card(models.Eight, models.Diamonds), card(models.Nine, models.Diamonds), card(models.Ten, models.Diamonds), card(models.Jack, models.Diamonds), card(models.Queen, models.Diamonds)},
	}
}

func setupThreePlayerGame(t *testing.T) (*DurakGame, []*models.Player) {
	hands := threePlayerHands()
	trump := card(models.Ace, models.Spades)
	rest := remainingCards(models.Six, append(hands, []models.Card{trump})...)
	return setupDurakGame(t, DefaultHouseRules(), stackDeck(trump, hands, rest...), 3)
}

func TestRotationAfterDefenceThreePlayers(t *testing.T) {
	g, players := setupThreePlayerGame(t)
	require.Equal(t, 0, g.Turn())
	require.Equal(t, 1, g.NextTurn())

	require.NoError(t, g.PlayTurn(players[0].ID, card(models.Six, models.Hearts)))
	require.NoError(t, g.Defend(players[1].ID, card(models.Six, models.Hearts), card(models.Jack, models.Hearts)))
	require.NoError(t, g.Finished(players[0].ID))
	assert.False(t, g.Table.Empty(), "the third player has not finished yet")

	require.NoError(t, g.Finished(players[2].ID))
	assert.True(t, g.Table.Empty())
	assert.Equal(t, 1, g.Turn())
	assert.Equal(t, 2, g.NextTurn())
	assert.Equal(t, 36, g.CardCount())
}

func TestTakeSkipsTakerThreePlayers(t *testing.T) {
	g, players := setupThreePlayerGame(t)

	require.NoError(t, g.PlayTurn(players[0].ID, card(models.Seven, models.Hearts)))
	requireIllegal(t, g.TakeCards(players[2].ID))
	require.NoError(t, g.TakeCards(players[1].ID))

	assert.Len(t, players[1].Hand, 7)
	assert.Equal(t, 0, g.Turn(), "attacker keeps the turn")
	assert.Equal(t, 2, g.NextTurn(), "the taker is skipped as defender")
	assert.Equal(t, 36, g.CardCount())
}

func TestFinishedAndTurnErrors(t *testing.T) {
	g, players := setupThreePlayerGame(t)

	requireIllegal(t, g.PlayTurn(players[1].ID, card(models.Jack, models.Hearts)))
	requireIllegal(t, g.PlayTurn(players[0].ID, card(models.Ace, models.Clubs)))
	requireIllegal(t, g.Finished(players[0].ID))
	requireIllegal(t, g.TakeCards(players[1].ID))

	require.NoError(t, g.PlayTurn(players[0].ID, card(models.Six, models.Hearts)))
	requireIllegal(t, g.PlayTurn(players[0].ID, card(models.Seven, models.Hearts)))
	require.NoError(t, g.Finished(players[2].ID))
	requireIllegal(t, g.Finished(players[2].ID))
	requireIllegal(t, g.ThrowAdditional(players[2].ID, card(models.Seven, models.Diamonds)))

	err := g.PlayTurn(uuid.New(), card(models.Six, models.Hearts))
	assert.True(t, errors.Is(err, ErrUnknownPlayer))
	var protoErr *ProtocolError
	assert.True(t, errors.As(err, &protoErr))
}

func TestDefenderLeavesCancelsRound(t *testing.T) {
	g, players := setupThreePlayerGame(t)
	attacker, defender, third := players[0], players[1], players[2]

	require.NoError(t, g.PlayTurn(attacker.ID, card(models.Six, models.Hearts)))
	require.NoError(t, g.Defend(defender.ID, card(models.Six, models.Hearts), card(models.Jack, models.Hearts)))
	deckBefore := g.Deck.Remaining()

	require.NoError(t, g.Apply(defender.ID, Leave{}))

	assert.True(t, g.Table.Empty())
	assert.True(t, attacker.HasCard(card(models.Six, models.Hearts)), "the attack card goes back to its owner")
	assert.Len(t, attacker.Hand, 6)
	assert.Equal(t, deckBefore+6, g.Deck.Remaining(), "the leaver's hand and cover card return to the deck")
	assert.Equal(t, card(models.Ace, models.Spades), g.Deck.Cards()[0], "trump card stays at the bottom")
	require.Len(t, g.Players, 2)
	assert.Equal(t, attacker.ID, g.Attacker().ID)
	assert.Equal(t, third.ID, g.Defender().ID)
	assert.Equal(t, 36, g.CardCount())

	assert.False(t, g.RemovePlayer(defender.ID))
	assert.True(t, errors.Is(g.Apply(defender.ID, Leave{}), ErrUnknownPlayer))
}

func TestAttackerLeavesWithEmptyTable(t *testing.T) {
	g, players := setupThreePlayerGame(t)

	require.True(t, g.RemovePlayer(players[0].ID))
	assert.Equal(t, players[1].ID, g.Attacker().ID)
	assert.Equal(t, players[2].ID, g.Defender().ID)
	assert.Equal(t, 36, g.CardCount())
}

func TestBystanderLeavesKeepsRound(t *testing.T) {
	g, players := setupThreePlayerGame(t)

	require.NoError(t, g.PlayTurn(players[0].ID, card(models.Six, models.Hearts)))
	require.NoError(t, g.Defend(players[1].ID, card(models.Six, models.Hearts), card(models.Jack, models.Hearts)))
	require.NoError(t, g.Finished(players[0].ID))
	require.False(t, g.Table.Empty())

	// the only player still able to throw leaves, so the round resolves
	require.True(t, g.RemovePlayer(players[2].ID))
	assert.True(t, g.Table.Empty())
	assert.Len(t, g.Discard, 2)
	assert.Equal(t, players[1].ID, g.Attacker().ID)
	assert.Equal(t, players[0].ID, g.Defender().ID)
	assert.Equal(t, 36, g.CardCount())
}

func TestLeaveEndsTwoPlayerGame(t *testing.T) {
	g, players := setupThreePlayerGame(t)
	require.True(t, g.RemovePlayer(players[2].ID))
	require.True(t, g.RemovePlayer(players[1].ID))

	assert.True(t, g.GameOver)
	assert.Nil(t, g.Durak, "nobody loses when everyone else walks away")
	require.Len(t, g.Winners, 1)
	assert.Equal(t, players[0].ID, g.Winners[0].ID)
	assert.True(t, players[0].IsWinner)

	require.True(t, g.RemovePlayer(players[0].ID), "a winner can still leave")
	assert.Empty(t, g.Winners)
	assert.False(t, g.RemovePlayer(players[0].ID))
}

// playOut drives a match with a simple strategy and checks the engine invariants after every step.
func playOut(t *testing.T, g *DurakGame, total int) {
	t.Helper()
	for step := 0; step < 3000 && !g.GameOver; step++ {
		attacker, defender := g.Attacker(), g.Defender()
		require.NotNil(t, attacker)
		require.NotNil(t, defender)
		require.NotEqual(t, attacker.ID, defender.ID)

		switch {
		case g.Table.Empty():
			require.NotEmpty(t, attacker.Hand)
			require.NoError(t, g.PlayTurn(attacker.ID, attacker.Hand[0]))
		case g.Table.HasUnbeaten():
			if !defendOnce(t, g, defender) {
				require.NoError(t, g.TakeCards(defender.ID))
			}
		default:
			if !throwOnce(t, g, defender.ID) {
				finishOnce(t, g, defender.ID)
			}
		}

		require.Equal(t, total, g.CardCount(), "cards are never created or lost")
		if !g.Table.Empty() {
			require.LessOrEqual(t, g.Table.Len(), g.TableLimit())
		}
		for _, w := range g.Winners {
			require.Empty(t, w.Hand)
			require.Negative(t, g.playerIndex(w.ID))
		}
	}
}

func defendOnce(t *testing.T, g *DurakGame, defender *models.Player) bool {
	for _, s := range g.Table.Slots() {
		if s.Beaten() {
			continue
		}
		for _, c := range defender.Hand {
			if c.Beats(s.Bottom, g.Deck.Trump()) {
				require.NoError(t, g.Defend(defender.ID, s.Bottom, c))
				return true
			}
		}
	}
	return false
}

func throwOnce(t *testing.T, g *DurakGame, defenderID uuid.UUID) bool {
	if g.Table.Len() >= g.TableLimit() {
		return false
	}
	for _, p := range g.Players {
		if p.ID == defenderID || g.isFinished(p.ID) {
			continue
		}
		for _, c := range p.Hand {
			if g.Table.HasRank(c.Rank) {
				require.NoError(t, g.ThrowAdditional(p.ID, c))
				return true
			}
		}
	}
	return false
}

func finishOnce(t *testing.T, g *DurakGame, defenderID uuid.UUID) {
	for _, p := range g.Players {
		if p.ID != defenderID && !g.isFinished(p.ID) {
			require.NoError(t, g.Finished(p.ID))
			return
		}
	}
	t.Fatalf("round is fully beaten but nobody is left to finish it")
}

func TestRandomMatchesKeepInvariants(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		numPlayers := 2 + int(seed%3)
		t.Run(fmt.Sprintf("seed%d_players%d", seed, numPlayers), func(t *testing.T) {
			rules := DefaultHouseRules()
			deck := NewDeck(rand.New(rand.NewSource(seed)), models.Six)
			g, _ := setupDurakGame(t, rules, deck, numPlayers)
			playOut(t, g, rules.DeckSize())

			if g.GameOver {
				assert.LessOrEqual(t, len(g.Players), 1)
				if g.Durak != nil {
					assert.NotEmpty(t, g.Durak.Hand)
				}
			}
		})
	}
}
