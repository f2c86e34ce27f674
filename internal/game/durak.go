// internal/game/durak.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/models"
	log "github.com/sirupsen/logrus"
)

// Phase is the coarse state of the turn engine. A round that is being resolved never
// escapes a single call, so it has no phase of its own.
type Phase string

const (
	PhaseAwaitingFirstAttack Phase = "awaiting_first_attack"
	PhaseAttackInProgress    Phase = "attack_in_progress"
	PhaseGameOver            Phase = "game_over"
)

// DurakGame holds the authoritative state of one match and enforces the rules.
// It is not safe for concurrent use; GameSession serializes access to it.
type DurakGame struct {
	ID    uuid.UUID
	Rules HouseRules
	Deck  *Deck

	// Players are the active players in seat order. Turn and NextTurn index this slice.
	Players []*models.Player
	// Winners ran out of cards once the deck was empty, in the order they did so.
	Winners []*models.Player
	// Durak is the loser, set when the match ends with one player still holding cards.
	Durak *models.Player

	Table   AttackTable
	Discard []models.Card

	DefenderTakes     bool
	FinishedPlayerIDs []uuid.UUID
	GameOver          bool
	Round             int

	turn     int
	nextTurn int

	// seating is every player ever seated, in seat order. Rotation walks it so that
	// positions stay correct after players drop out of Players.
	seating []uuid.UUID

	defenderStartHand int
	logger            log.FieldLogger
}

// NewDurakGame seats the players, deals from deck and picks the first attacker:
// whoever holds the lowest trump, or seat 0 when nobody does.
func NewDurakGame(id uuid.UUID, players []*models.Player, deck *Deck, rules HouseRules) (*DurakGame, error) {
	if len(players) < rules.MinPlayers || len(players) > rules.MaxPlayers {
		return nil, fmt.Errorf("a match needs %d to %d players, got %d", rules.MinPlayers, rules.MaxPlayers, len(players))
	}
	if deck.Remaining() < rules.HandSize*len(players) {
		return nil, fmt.Errorf("deck of %d cannot deal %d cards to %d players", deck.Remaining(), rules.HandSize, len(players))
	}

	g := &DurakGame{
		ID:      id,
		Rules:   rules,
		Deck:    deck,
		Players: append([]*models.Player(nil), players...),
		Round:   1,
		logger:  log.WithField("game_id", id),
	}

	seen := make(map[uuid.UUID]bool, len(players))
	for _, p := range players {
		if seen[p.ID] {
			return nil, fmt.Errorf("player %s seated twice", p.ID)
		}
		seen[p.ID] = true
		g.seating = append(g.seating, p.ID)
		p.TakeCards(deck.Draw(rules.HandSize)...)
	}

	g.turn = g.lowestTrumpHolder()
	g.nextTurn = (g.turn + 1) % len(g.Players)
	return g, nil
}

// SetLogger replaces the logger used for engine events.
func (g *DurakGame) SetLogger(l log.FieldLogger) {
	g.logger = l
}

func (g *DurakGame) lowestTrumpHolder() int {
	trump := g.Deck.Trump()
	holder := 0
	var lowest models.Rank
	for i, p := range g.Players {
		for _, c := range p.Hand {
			if c.Suit == trump && (lowest == 0 || c.Rank < lowest) {
				lowest = c.Rank
				holder = i
			}
		}
	}
	return holder
}

// Turn is the attacker's position in Players.
func (g *DurakGame) Turn() int {
	return g.turn
}

// NextTurn is the defender's position in Players.
func (g *DurakGame) NextTurn() int {
	return g.nextTurn
}

// Attacker returns the current attacker, or nil once the match is over.
func (g *DurakGame) Attacker() *models.Player {
	if g.GameOver || g.turn >= len(g.Players) {
		return nil
	}
	return g.Players[g.turn]
}

// Defender returns the current defender, or nil once the match is over.
func (g *DurakGame) Defender() *models.Player {
	if g.GameOver || g.nextTurn >= len(g.Players) {
		return nil
	}
	return g.Players[g.nextTurn]
}

// Phase derives the engine state from the table.
func (g *DurakGame) Phase() Phase {
	switch {
	case g.GameOver:
		return PhaseGameOver
	case g.Table.Empty():
		return PhaseAwaitingFirstAttack
	default:
		return PhaseAttackInProgress
	}
}

// Apply validates and applies one action on behalf of playerID.
func (g *DurakGame) Apply(playerID uuid.UUID, action Action) error {
	switch a := action.(type) {
	case PlayTurn:
		return g.PlayTurn(playerID, a.Card)
	case ThrowAdditional:
		return g.ThrowAdditional(playerID, a.Card)
	case Defend:
		return g.Defend(playerID, a.Bottom, a.Top)
	case TakeCards:
		return g.TakeCards(playerID)
	case Finished:
		return g.Finished(playerID)
	case Leave:
		if !g.RemovePlayer(playerID) {
			return ErrUnknownPlayer
		}
		return nil
	default:
		return &ProtocolError{Reason: fmt.Sprintf("unsupported action %T", action)}
	}
}

// actor resolves playerID to an active player, rejecting anyone who cannot act.
func (g *DurakGame) actor(playerID uuid.UUID) (int, error) {
	if g.GameOver {
		return -1, ErrGameOver
	}
	if idx := g.playerIndex(playerID); idx >= 0 {
		return idx, nil
	}
	if g.winnerIndex(playerID) >= 0 {
		return -1, illegal("You have no cards left and are out of the game")
	}
	return -1, ErrUnknownPlayer
}

// PlayTurn opens a round: only the attacker, only on an empty table.
func (g *DurakGame) PlayTurn(playerID uuid.UUID, card models.Card) error {
	idx, err := g.actor(playerID)
	if err != nil {
		return err
	}
	if idx != g.turn {
		return illegal("It is not your turn to attack")
	}
	if !g.Table.Empty() {
		return illegal("The attack has already started, throw an additional card instead")
	}

	p := g.Players[idx]
	if !p.ThrowCard(card) {
		return illegal("Cannot play a card that is not in your hand")
	}
	g.Table.Place(card, p.ID)
	g.defenderStartHand = len(g.Players[g.nextTurn].Hand)
	g.logger.Debugf("Player %s attacks %s with %s", p.ID, g.Players[g.nextTurn].ID, card)
	return nil
}

// ThrowAdditional adds a matching-rank card to a running attack.
func (g *DurakGame) ThrowAdditional(playerID uuid.UUID, card models.Card) error {
	idx, err := g.actor(playerID)
	if err != nil {
		return err
	}
	if g.Table.Empty() {
		return illegal("Cannot throw additional cards while the attack has not started yet")
	}
	if idx == g.nextTurn {
		return illegal("Defender cannot throw additional cards")
	}
	if g.DefenderTakes {
		return illegal("Defender is already taking the cards")
	}
	if g.isFinished(playerID) {
		return illegal("You confirmed that you finished with throwing additional cards")
	}
	if g.Table.Len() >= g.TableLimit() {
		return illegal("The maximum number of cards on the table was already reached")
	}

	p := g.Players[idx]
	if !p.HasCard(card) {
		return illegal("Cannot throw a card that is not in your hand")
	}
	if !g.Table.HasRank(card.Rank) {
		return illegal("Cannot throw an additional card with not valid rank")
	}

	p.ThrowCard(card)
	g.Table.Place(card, p.ID)
	g.logger.Debugf("Player %s throws in %s", p.ID, card)
	return nil
}

// Defend covers an unbeaten bottom card with top.
func (g *DurakGame) Defend(playerID uuid.UUID, bottom, top models.Card) error {
	idx, err := g.actor(playerID)
	if err != nil {
		return err
	}
	if idx != g.nextTurn {
		return illegal("Only the defender can beat cards")
	}
	if !g.Table.HasUnbeaten() {
		return illegal(MsgNoUnbeaten)
	}
	if g.DefenderTakes {
		return illegal("You already decided to take the cards")
	}

	slot, ok := g.Table.Slot(bottom)
	if !ok {
		return illegal("Cannot beat a card that is not on the table")
	}
	if slot.Beaten() {
		return illegal("Cannot beat a card that is already beaten")
	}

	p := g.Players[idx]
	if !p.HasCard(top) {
		return illegal("Cannot play a card that is not in your hand")
	}
	if !top.Beats(bottom, g.Deck.Trump()) {
		return illegal("%s does not beat %s", top, bottom)
	}

	p.ThrowCard(top)
	g.Table.Cover(bottom, top)
	g.logger.Debugf("Player %s beats %s with %s", p.ID, bottom, top)

	g.resolveIfDone()
	return nil
}

// TakeCards gives up the defence. Nobody may throw in after that, so the round ends at once.
func (g *DurakGame) TakeCards(playerID uuid.UUID) error {
	idx, err := g.actor(playerID)
	if err != nil {
		return err
	}
	if idx != g.nextTurn {
		return illegal("Only the defender can take the cards")
	}
	if g.Table.Empty() {
		return illegal("There are no cards to take")
	}

	g.DefenderTakes = true
	g.logger.Debugf("Player %s takes %d cards", playerID, len(g.Table.Cards()))
	g.resolveRound(true)
	return nil
}

// Finished records that a non-defender will not throw more cards this round.
func (g *DurakGame) Finished(playerID uuid.UUID) error {
	idx, err := g.actor(playerID)
	if err != nil {
		return err
	}
	if idx == g.nextTurn {
		return illegal("Defender cannot finish the attack")
	}
	if g.Table.Empty() {
		return illegal("The attack has not started yet")
	}
	if g.isFinished(playerID) {
		return illegal("You have already finished")
	}

	g.FinishedPlayerIDs = append(g.FinishedPlayerIDs, playerID)
	g.Players[idx].Finished = true

	g.resolveIfDone()
	return nil
}

// TableLimit is how many attacking cards the current round may hold: the defender's hand at
// round start, never more than a full hand, and one less than a full hand in the first round.
func (g *DurakGame) TableLimit() int {
	limit := g.defenderStartHand
	if limit > g.Rules.HandSize {
		limit = g.Rules.HandSize
	}
	if g.Round == 1 && g.Rules.FirstRoundLimit && limit > g.Rules.HandSize-1 {
		limit = g.Rules.HandSize - 1
	}
	return limit
}

// resolveIfDone ends a fully beaten round once nothing more can be thrown in.
func (g *DurakGame) resolveIfDone() {
	if !g.Table.AllBeaten() {
		return
	}
	if g.Table.Len() >= g.TableLimit() || g.attackersDone() {
		g.resolveRound(false)
	}
}

// attackersDone reports whether every non-defender has finished or has nothing left to throw.
func (g *DurakGame) attackersDone() bool {
	for i, p := range g.Players {
		if i == g.nextTurn {
			continue
		}
		if !g.isFinished(p.ID) && len(p.Hand) > 0 {
			return false
		}
	}
	return true
}

// resolveRound clears the table, refills hands, retires winners and moves the turn.
// After a successful defence the defender attacks next; after a take the attacker keeps
// the turn and the taker is skipped as defender.
func (g *DurakGame) resolveRound(took bool) {
	attacker := g.Players[g.turn]
	defender := g.Players[g.nextTurn]

	slots := g.Table.Clear()
	for _, s := range slots {
		cards := []models.Card{s.Bottom}
		if s.Top != nil {
			cards = append(cards, *s.Top)
		}
		if took {
			defender.TakeCards(cards...)
		} else {
			g.Discard = append(g.Discard, cards...)
		}
	}

	// attacker first, the rest in seat order, defender last
	order := make([]*models.Player, 0, len(g.Players))
	for i := 0; i < len(g.Players); i++ {
		idx := (g.turn + i) % len(g.Players)
		if idx != g.nextTurn {
			order = append(order, g.Players[idx])
		}
	}
	order = append(order, defender)
	for _, p := range order {
		if need := g.Rules.HandSize - len(p.Hand); need > 0 {
			p.TakeCards(g.Deck.Draw(need)...)
		}
	}

	if g.Deck.Remaining() == 0 {
		for _, p := range order {
			if len(p.Hand) == 0 {
				p.IsWinner = true
				g.Winners = append(g.Winners, p)
				g.removeActive(p.ID)
				g.logger.Infof("Player %s has no cards left and wins", p.ID)
			}
		}
	}

	g.DefenderTakes = false
	g.FinishedPlayerIDs = nil
	for _, p := range g.Players {
		p.Finished = false
	}
	g.Round++

	if len(g.Players) <= 1 {
		g.finish()
		return
	}

	var attackerID uuid.UUID
	if took {
		attackerID = attacker.ID
		if g.playerIndex(attackerID) < 0 {
			attackerID = g.nextActiveAfter(defender.ID)
		}
	} else {
		attackerID = defender.ID
		if g.playerIndex(attackerID) < 0 {
			attackerID = g.nextActiveAfter(defender.ID)
		}
	}
	defenderID := g.nextActiveAfter(attackerID)
	if took && defenderID == defender.ID && len(g.Players) > 2 {
		defenderID = g.nextActiveAfter(defender.ID)
	}

	g.turn = g.playerIndex(attackerID)
	g.nextTurn = g.playerIndex(defenderID)
	g.logger.Debugf("Round %d: %s attacks %s", g.Round, attackerID, defenderID)
}

// finish ends the match. A single player left holding cards is the durak.
func (g *DurakGame) finish() {
	g.GameOver = true
	if len(g.Players) == 1 {
		g.Durak = g.Players[0]
		g.logger.Infof("Game over, %s is the durak", g.Durak.ID)
	} else {
		g.logger.Info("Game over, nobody is left holding cards")
	}
	g.turn, g.nextTurn = 0, 0
}

// RemovePlayer takes a player out of the match. It reports false when the player was
// already gone, so calling it twice has no further effect.
func (g *DurakGame) RemovePlayer(playerID uuid.UUID) bool {
	if wi := g.winnerIndex(playerID); wi >= 0 {
		g.Winners = append(g.Winners[:wi], g.Winners[wi+1:]...)
		return true
	}
	idx := g.playerIndex(playerID)
	if idx < 0 {
		return false
	}
	p := g.Players[idx]

	if g.GameOver {
		g.removeActive(playerID)
		return true
	}

	attackerID := g.Players[g.turn].ID
	defenderID := g.Players[g.nextTurn].ID

	involved := playerID == attackerID || playerID == defenderID
	for _, s := range g.Table.Slots() {
		if s.AttackerID == playerID {
			involved = true
		}
	}
	cancelled := involved && !g.Table.Empty()
	if cancelled {
		g.cancelRound(playerID, defenderID)
	} else {
		g.unfinish(playerID)
	}

	g.Deck.ReturnCards(p.EmptyHand()...)
	g.removeActive(playerID)
	g.logger.Infof("Player %s left the game", playerID)

	if len(g.Players) <= 1 {
		// whoever is left outlasted everyone else
		for _, last := range g.Players {
			last.IsWinner = true
			g.Winners = append(g.Winners, last)
		}
		g.Players = nil
		g.finish()
		return true
	}

	seatChanged := playerID == attackerID || playerID == defenderID
	if playerID == attackerID {
		attackerID = g.nextActiveAfter(playerID)
	}
	if cancelled || seatChanged {
		defenderID = g.nextActiveAfter(attackerID)
	}
	g.turn = g.playerIndex(attackerID)
	g.nextTurn = g.playerIndex(defenderID)

	if !cancelled {
		g.resolveIfDone()
	}
	return true
}

// cancelRound hands every table card back to whoever played it; the leaver's cards go to the deck.
func (g *DurakGame) cancelRound(leaverID, defenderID uuid.UUID) {
	giveBack := func(owner uuid.UUID, c models.Card) {
		if owner != leaverID {
			if idx := g.playerIndex(owner); idx >= 0 {
				g.Players[idx].TakeCards(c)
				return
			}
		}
		g.Deck.ReturnCards(c)
	}
	for _, s := range g.Table.Clear() {
		giveBack(s.AttackerID, s.Bottom)
		if s.Top != nil {
			giveBack(defenderID, *s.Top)
		}
	}
	g.DefenderTakes = false
	g.FinishedPlayerIDs = nil
	for _, p := range g.Players {
		p.Finished = false
	}
}

func (g *DurakGame) unfinish(playerID uuid.UUID) {
	for i, id := range g.FinishedPlayerIDs {
		if id == playerID {
			g.FinishedPlayerIDs = append(g.FinishedPlayerIDs[:i], g.FinishedPlayerIDs[i+1:]...)
			return
		}
	}
}

func (g *DurakGame) removeActive(playerID uuid.UUID) {
	if idx := g.playerIndex(playerID); idx >= 0 {
		g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	}
}

// nextActiveAfter walks the seating clockwise from id and returns the first other active player.
func (g *DurakGame) nextActiveAfter(id uuid.UUID) uuid.UUID {
	start := 0
	for i, sid := range g.seating {
		if sid == id {
			start = i
			break
		}
	}
	for step := 1; step <= len(g.seating); step++ {
		candidate := g.seating[(start+step)%len(g.seating)]
		if candidate != id && g.playerIndex(candidate) >= 0 {
			return candidate
		}
	}
	return id
}

func (g *DurakGame) isFinished(playerID uuid.UUID) bool {
	for _, id := range g.FinishedPlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

func (g *DurakGame) playerIndex(playerID uuid.UUID) int {
	for i, p := range g.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (g *DurakGame) winnerIndex(playerID uuid.UUID) int {
	for i, p := range g.Winners {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// CardCount is every card the match holds: hands, deck, table and discard pile.
func (g *DurakGame) CardCount() int {
	n := g.Deck.Remaining() + len(g.Discard) + len(g.Table.Cards())
	for _, p := range g.Players {
		n += len(p.Hand)
	}
	for _, p := range g.Winners {
		n += len(p.Hand)
	}
	return n
}
