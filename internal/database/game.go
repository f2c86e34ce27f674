// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/durak/internal/game"
)

// GameStateStore checkpoints the full state of a running match after every applied action,
// hands included. It implements game.Recorder.
type GameStateStore struct {
	pool *pgxpool.Pool

	mu     sync.Mutex
	roomID map[uuid.UUID]uuid.UUID
}

// NewGameStateStore writes through pool. A nil pool falls back to the global DB.
func NewGameStateStore(pool *pgxpool.Pool) *GameStateStore {
	if pool == nil {
		pool = DB
	}
	return &GameStateStore{pool: pool, roomID: make(map[uuid.UUID]uuid.UUID)}
}

// Bind remembers which room a game came from so the checkpoint row carries it.
// It must be called before the game's first action is recorded.
func (s *GameStateStore) Bind(gameID, roomID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID[gameID] = roomID
}

// roomFor returns the bound room and forgets it once the game is over.
func (s *GameStateStore) roomFor(gameID uuid.UUID, over bool) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID := s.roomID[gameID]
	if over {
		delete(s.roomID, gameID)
	}
	return roomID
}

// checkpointStatus names the stored status of a snapshot.
func checkpointStatus(snap game.Snapshot) string {
	if snap.GameOver {
		return "completed"
	}
	return "in_progress"
}

// Record upserts the checkpoint row. Older actions never overwrite newer ones.
func (s *GameStateStore) Record(ctx context.Context, rec game.ActionRecord, snap game.Snapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	roomID := s.roomFor(rec.GameID, snap.GameOver)

	q := `
		INSERT INTO games (id, room_id, status, action_index, game_state, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE
		SET status = $3, action_index = $4, game_state = $5, updated_at = now()
		WHERE games.action_index < $4
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, rec.GameID, roomID, checkpointStatus(snap), rec.Index, state)
		return execErr
	})
}
