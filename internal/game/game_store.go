package game

import (
	"sync"

	"github.com/google/uuid"
)

type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*GameSession
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*GameSession),
	}
}

func (s *GameStore) AddGame(game *GameSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
}

func (s *GameStore) GetGame(id uuid.UUID) (*GameSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[id]
	return g, exists
}

// DeleteGame removes the session and stops its recorder loop.
func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	g, exists := s.games[id]
	delete(s.games, id)
	s.mu.Unlock()
	if exists {
		g.Close()
	}
}

// Len is the number of live games.
func (s *GameStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}
