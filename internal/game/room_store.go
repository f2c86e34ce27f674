// internal/game/room_store.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout is how long a member may hold a seat without a room socket.
const DefaultIdleTimeout = time.Minute

// RoomStore manages ephemeral waiting rooms in memory only.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room

	// IdleTimeout frees seats of members without a room socket. Zero keeps them forever.
	IdleTimeout time.Duration
	now         func() time.Time
}

// NewRoomStore returns an in-memory store for rooms.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:       make(map[uuid.UUID]*Room),
		IdleTimeout: DefaultIdleTimeout,
		now:         time.Now,
	}
}

// AddRoom stores the room in memory.
func (s *RoomStore) AddRoom(room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room
}

// DeleteRoom removes the room from memory.
func (s *RoomStore) DeleteRoom(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
}

// GetRoom retrieves a room if it exists.
func (s *RoomStore) GetRoom(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// JoinWaiting adds member to the first waiting room with the same capacity and rules, creating
// one when none has a free seat. Idle members are expired first so an abandoned join cannot
// hold a seat forever. The lookup and the join happen under the store lock so two joins
// cannot both take the last seat.
func (s *RoomStore) JoinWaiting(capacity int, rules HouseRules, member *RoomMember) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIdle()
	for _, r := range s.rooms {
		if r.Capacity == capacity && r.Rules == rules && r.Waiting() {
			if err := r.Join(member); err == nil {
				return r, nil
			}
		}
	}

	r := NewRoom(capacity, rules)
	if err := r.Join(member); err != nil {
		return nil, err
	}
	s.rooms[r.ID] = r
	return r, nil
}

// expireIdle assumes the lock is held. Waiting rooms left without members are dropped.
func (s *RoomStore) expireIdle() {
	if s.IdleTimeout <= 0 {
		return
	}
	now := s.now()
	for id, r := range s.rooms {
		r.ExpireIdle(now, s.IdleTimeout)
		if _, started := r.GameID(); !started && r.MemberCount() == 0 {
			delete(s.rooms, id)
		}
	}
}

// FindByMember returns the room userID most recently joined, preferring rooms that have not started.
func (s *RoomStore) FindByMember(userID uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *Room
	for _, r := range s.rooms {
		if !r.IsMember(userID) {
			continue
		}
		if _, started := r.GameID(); !started {
			return r, true
		}
		found = r
	}
	return found, found != nil
}

// Len is the number of rooms held.
func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
