// internal/game/room.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/models"
)

var (
	// ErrRoomFull is returned when a room already holds its capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomStarted is returned when the room has already turned into a game.
	ErrRoomStarted = errors.New("game already started")
	// ErrNotMember is returned for a connection from someone who never joined the room.
	ErrNotMember = errors.New("not a member of this room")
)

// RoomMember is someone who joined a waiting room and will get a seat once it fills up.
type RoomMember struct {
	ID   uuid.UUID
	Name string
	User *models.User

	// idleSince is when the member last had no room socket: the join, or the last disconnect.
	idleSince time.Time
}

// RoomConnection wraps a single member's active WebSocket connection for the waiting room.
type RoomConnection struct {
	UserID  uuid.UUID
	Cancel  context.CancelFunc
	OutChan chan map[string]interface{}
}

// Write pushes a message to the member's message channel. A full channel drops the message.
func (conn *RoomConnection) Write(msg map[string]interface{}) bool {
	select {
	case conn.OutChan <- msg:
		return true
	default:
		return false
	}
}

// Room is a waiting room that fills up to Capacity members and then starts a game.
type Room struct {
	ID       uuid.UUID  `json:"id"`
	Capacity int        `json:"capacity"`
	Rules    HouseRules `json:"houseRules"`

	mu          sync.Mutex
	members     []*RoomMember
	connections map[uuid.UUID]*RoomConnection

	started bool
	gameID  uuid.UUID
}

// NewRoom creates an empty waiting room.
func NewRoom(capacity int, rules HouseRules) *Room {
	roomID, _ := uuid.NewV7()
	return &Room{
		ID:          roomID,
		Capacity:    capacity,
		Rules:       rules,
		connections: make(map[uuid.UUID]*RoomConnection),
	}
}

// Join adds a member. Joining twice only refreshes the member's idle clock.
func (room *Room) Join(member *RoomMember) error {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.started {
		return ErrRoomStarted
	}
	if idx := room.memberIndex(member.ID); idx >= 0 {
		room.members[idx].idleSince = time.Now()
		return nil
	}
	if len(room.members) >= room.Capacity {
		return ErrRoomFull
	}
	member.idleSince = time.Now()
	room.members = append(room.members, member)
	return nil
}

// IsMember reports whether userID joined this room.
func (room *Room) IsMember(userID uuid.UUID) bool {
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.memberIndex(userID) >= 0
}

// AddConnection registers a member's socket and returns how many members are connected.
func (room *Room) AddConnection(userID uuid.UUID, conn *RoomConnection) (int, error) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.memberIndex(userID) < 0 {
		return 0, ErrNotMember
	}
	if _, exists := room.connections[userID]; !exists && len(room.connections) >= room.Capacity {
		return 0, ErrRoomFull
	}
	if room.started {
		return 0, ErrRoomStarted
	}
	room.connections[userID] = conn
	return len(room.connections), nil
}

// RemoveConnection drops the socket of userID if conn is still the registered one.
func (room *Room) RemoveConnection(userID uuid.UUID, conn *RoomConnection) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if current, ok := room.connections[userID]; ok && current == conn {
		delete(room.connections, userID)
		if idx := room.memberIndex(userID); idx >= 0 {
			room.members[idx].idleSince = time.Now()
		}
	}
}

// ExpireIdle removes members that have had no room socket since before now-ttl and returns
// their ids. Started rooms keep their roster.
func (room *Room) ExpireIdle(now time.Time, ttl time.Duration) []uuid.UUID {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.started {
		return nil
	}

	var expired []uuid.UUID
	kept := room.members[:0]
	for _, m := range room.members {
		if _, connected := room.connections[m.ID]; !connected && now.Sub(m.idleSince) > ttl {
			expired = append(expired, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	room.members = kept
	return expired
}

// RemoveMember takes userID out of the room entirely. Started rooms keep their roster.
func (room *Room) RemoveMember(userID uuid.UUID) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.started {
		return
	}
	if idx := room.memberIndex(userID); idx >= 0 {
		room.members = append(room.members[:idx], room.members[idx+1:]...)
	}
	delete(room.connections, userID)
}

// ConnectedCount is the number of members with a live socket.
func (room *Room) ConnectedCount() int {
	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.connections)
}

// MemberCount is the number of members.
func (room *Room) MemberCount() int {
	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.members)
}

// Waiting reports whether the room still accepts members.
func (room *Room) Waiting() bool {
	room.mu.Lock()
	defer room.mu.Unlock()
	return !room.started && len(room.members) < room.Capacity
}

// Ready reports whether every seat is taken and every member is connected.
func (room *Room) Ready() bool {
	room.mu.Lock()
	defer room.mu.Unlock()
	return !room.started && len(room.members) == room.Capacity && len(room.connections) == room.Capacity
}

// MarkStarted records that gameID was started from this room. Only the first call succeeds.
func (room *Room) MarkStarted(gameID uuid.UUID) bool {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.started {
		return false
	}
	room.started = true
	room.gameID = gameID
	return true
}

// GameID returns the started game, if any.
func (room *Room) GameID() (uuid.UUID, bool) {
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.gameID, room.started
}

// Players builds a fresh player for every member, in join order.
func (room *Room) Players() []*models.Player {
	room.mu.Lock()
	defer room.mu.Unlock()
	players := make([]*models.Player, 0, len(room.members))
	for _, m := range room.members {
		p := models.NewPlayer(m.ID, m.Name)
		p.User = m.User
		players = append(players, p)
	}
	return players
}

// BroadcastAll sends a JSON object to all connected members' OutChan.
func (room *Room) BroadcastAll(msg map[string]interface{}) {
	room.mu.Lock()
	defer room.mu.Unlock()
	for _, conn := range room.connections {
		conn.Write(msg)
	}
}

// BroadcastPlayersCount tells everyone how many members are connected.
func (room *Room) BroadcastPlayersCount() {
	room.BroadcastAll(map[string]interface{}{
		"type":                  "players_count",
		"connected_users_count": room.ConnectedCount(),
		"max_players_count":     room.Capacity,
	})
}

// BroadcastStart redirects every member to the started game.
func (room *Room) BroadcastStart(gameID uuid.UUID) {
	room.BroadcastAll(map[string]interface{}{
		"type":         "start_game",
		"redirect_url": fmt.Sprintf("/game/ws/%s", gameID),
		"game_id":      gameID.String(),
	})
}

func (room *Room) memberIndex(userID uuid.UUID) int {
	for i, m := range room.members {
		if m.ID == userID {
			return i
		}
	}
	return -1
}
