// internal/handlers/game_server.go
package handlers

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/cache"
	"github.com/jason-s-yu/durak/internal/database"
	"github.com/jason-s-yu/durak/internal/game"
	"github.com/jason-s-yu/durak/internal/models"
	"github.com/sirupsen/logrus"
)

// GameServer holds the live rooms and games and turns a full room into a running match.
type GameServer struct {
	GameStore *game.GameStore
	RoomStore *game.RoomStore
	Rules     game.HouseRules
	Logger    *logrus.Logger

	// ActionLog and Checkpoints are optional recorders attached to every new session.
	ActionLog   *cache.ActionLog
	Checkpoints *database.GameStateStore

	SendQueueSize  int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	OriginPatterns []string

	// NewDeck builds the deck for a new match. Tests replace it with a stacked deck.
	NewDeck func(rules game.HouseRules) *game.Deck

	mu   sync.Mutex
	hubs map[uuid.UUID]*Hub
}

// NewGameServer returns a server with empty stores and shuffled decks.
func NewGameServer(logger *logrus.Logger, rules game.HouseRules) *GameServer {
	var rngMu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &GameServer{
		GameStore:      game.NewGameStore(),
		RoomStore:      game.NewRoomStore(),
		Rules:          rules,
		Logger:         logger,
		SendQueueSize:  64,
		WriteTimeout:   5 * time.Second,
		PingInterval:   30 * time.Second,
		OriginPatterns: []string{"*"},
		NewDeck: func(rules game.HouseRules) *game.Deck {
			rngMu.Lock()
			defer rngMu.Unlock()
			return game.NewDeck(rng, models.Rank(rules.LowestRank))
		},
		hubs: make(map[uuid.UUID]*Hub),
	}
}

// StartGame deals a match for every member of room. Only the first call for a room deals;
// later calls return game.ErrRoomStarted.
func (gs *GameServer) StartGame(room *game.Room) (*game.GameSession, error) {
	gameID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	if !room.MarkStarted(gameID) {
		return nil, fmt.Errorf("room %s: %w", room.ID, game.ErrRoomStarted)
	}

	players := room.Players()
	for _, p := range players {
		p.Connected = false
	}

	var recorders []game.Recorder
	if gs.Checkpoints != nil {
		gs.Checkpoints.Bind(gameID, room.ID)
		recorders = append(recorders, gs.Checkpoints)
	}
	if gs.ActionLog != nil {
		recorders = append(recorders, gs.ActionLog)
	}

	session, err := game.NewGameSession(gameID, room.ID, players, gs.NewDeck(room.Rules), room.Rules, gs.Logger, recorders...)
	if err != nil {
		return nil, err
	}

	hub := newHub(gameID, gs.Logger)
	session.BroadcastFn = hub.broadcast

	gs.mu.Lock()
	gs.hubs[gameID] = hub
	gs.mu.Unlock()
	gs.GameStore.AddGame(session)

	gs.Logger.WithFields(logrus.Fields{
		"game_id": gameID,
		"room_id": room.ID,
		"players": len(players),
	}).Info("Game started")
	return session, nil
}

func (gs *GameServer) hub(gameID uuid.UUID) (*Hub, bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	h, ok := gs.hubs[gameID]
	return h, ok
}

// maybeEndGame drops a game once nobody is watching and nothing can change any more.
func (gs *GameServer) maybeEndGame(session *game.GameSession) {
	h, ok := gs.hub(session.ID)
	if !ok || h.Len() > 0 {
		return
	}
	if !session.Empty() && !session.Snapshot().GameOver {
		return
	}
	gs.endGame(session)
}

func (gs *GameServer) endGame(session *game.GameSession) {
	gs.mu.Lock()
	delete(gs.hubs, session.ID)
	gs.mu.Unlock()

	gs.GameStore.DeleteGame(session.ID)
	gs.RoomStore.DeleteRoom(session.RoomID)
	gs.Logger.WithField("game_id", session.ID).Info("Game removed")
}
