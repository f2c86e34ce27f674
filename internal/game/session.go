// internal/game/session.go
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/models"
	log "github.com/sirupsen/logrus"
)

// recordQueueSize bounds the backlog of action records waiting for the recorders.
const recordQueueSize = 256

// recordTimeout caps a single recorder call.
const recordTimeout = 2 * time.Second

// Recorder persists applied actions. Implementations must be safe for use from one goroutine
// at a time; GameSession never calls a recorder while holding its lock.
type Recorder interface {
	Record(ctx context.Context, rec ActionRecord, snap Snapshot) error
}

// SessionEvent is published after every state change, in the order the changes were applied.
type SessionEvent struct {
	Snapshot Snapshot
	// LastAction is nil for changes that are not player actions, such as a reconnect.
	LastAction *ActionRecord
	// RemovedPlayerID is set when the change removed a player.
	RemovedPlayerID *uuid.UUID
	// GameEnded is set on the one event that moved the match into its terminal state.
	GameEnded bool
}

type recordJob struct {
	rec  ActionRecord
	snap Snapshot
}

// GameSession owns a DurakGame and serializes every action against it.
type GameSession struct {
	ID     uuid.UUID
	RoomID uuid.UUID

	mu          sync.Mutex
	game        *DurakGame
	actionIndex int
	ended       bool
	closed      bool

	// BroadcastFn receives every SessionEvent. It is called with the session lock held,
	// so it must not block and must not call back into the session.
	BroadcastFn func(ev SessionEvent)

	recorders []Recorder
	records   chan recordJob
	done      chan struct{}
	logger    log.FieldLogger
}

// NewGameSession deals a new match and starts the background recorder loop. The session and its
// engine log through logger; nil falls back to the logrus standard logger.
func NewGameSession(id, roomID uuid.UUID, players []*models.Player, deck *Deck, rules HouseRules, logger log.FieldLogger, recorders ...Recorder) (*GameSession, error) {
	g, err := NewDurakGame(id, players, deck, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to create game %s: %w", id, err)
	}

	s := &GameSession{
		ID:        id,
		RoomID:    roomID,
		game:      g,
		recorders: recorders,
		records:   make(chan recordJob, recordQueueSize),
		done:      make(chan struct{}),
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	s.logger = logger.WithFields(log.Fields{"game_id": id, "room_id": roomID})
	g.SetLogger(s.logger)
	s.logger.Infof("Dealt %d cards to %d players, trump %s, %s attacks first",
		rules.HandSize, len(players), deck.Trump(), g.Players[g.Turn()].ID)
	go s.recordLoop()
	return s, nil
}

// Apply validates and applies action for playerID. On success the new snapshot is published
// through BroadcastFn before Apply returns; on error nothing changes and nothing is published.
func (s *GameSession) Apply(playerID uuid.UUID, action Action) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.game.Apply(playerID, action); err != nil {
		return Snapshot{}, err
	}

	s.actionIndex++
	rec := newActionRecord(s.ID, s.actionIndex, playerID, action)
	snap := s.game.Snapshot()

	ev := SessionEvent{Snapshot: snap, LastAction: &rec}
	if action.Type() == ActionLeave {
		removed := playerID
		ev.RemovedPlayerID = &removed
	}
	if snap.GameOver && !s.ended {
		s.ended = true
		ev.GameEnded = true
	}

	s.publish(ev)
	s.enqueue(rec, snap)
	return snap, nil
}

// Leave removes playerID. It reports false when the player was not seated, so a socket close
// racing an explicit leave only removes the player once.
func (s *GameSession) Leave(playerID uuid.UUID) bool {
	_, err := s.Apply(playerID, Leave{})
	return err == nil
}

// SetConnected flags whether a seated player currently has a live socket and publishes the change.
func (s *GameSession) SetConnected(playerID uuid.UUID, connected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPlayer(playerID)
	if p == nil {
		return false
	}
	if p.Connected == connected {
		return true
	}
	p.Connected = connected
	s.publish(SessionEvent{Snapshot: s.game.Snapshot()})
	return true
}

func (s *GameSession) findPlayer(playerID uuid.UUID) *models.Player {
	for _, p := range s.game.Players {
		if p.ID == playerID {
			return p
		}
	}
	for _, p := range s.game.Winners {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// Snapshot returns the current state.
func (s *GameSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Snapshot()
}

// WithSnapshot runs fn with the current state while holding the session lock, so nothing
// published afterwards can be ordered before what fn sends. fn must not block.
func (s *GameSession) WithSnapshot(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.game.Snapshot())
}

// IsPlayer reports whether playerID is still seated.
func (s *GameSession) IsPlayer(playerID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findPlayer(playerID) != nil
}

// Empty reports whether every player has left.
func (s *GameSession) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.game.Players) == 0 && len(s.game.Winners) == 0
}

// Close stops the recorder loop once the queued records are flushed. It is safe to call twice.
func (s *GameSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.records)
	s.mu.Unlock()
	<-s.done
}

// publish assumes the lock is held.
func (s *GameSession) publish(ev SessionEvent) {
	if s.BroadcastFn != nil {
		s.BroadcastFn(ev)
	}
}

// enqueue assumes the lock is held. A full queue drops the record rather than stall play.
func (s *GameSession) enqueue(rec ActionRecord, snap Snapshot) {
	if s.closed || len(s.recorders) == 0 {
		return
	}
	select {
	case s.records <- recordJob{rec: rec, snap: snap}:
	default:
		s.logger.Warnf("Record queue full, dropping action %d", rec.Index)
	}
}

func (s *GameSession) recordLoop() {
	defer close(s.done)
	for job := range s.records {
		for _, r := range s.recorders {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			if err := r.Record(ctx, job.rec, job.snap); err != nil {
				s.logger.WithError(err).Errorf("Failed to record action %d", job.rec.Index)
			}
			cancel()
		}
	}
}
