// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/game"
	"github.com/sirupsen/logrus"
)

// client is one socket attached to a game. playerID is uuid.Nil for spectators.
type client struct {
	playerID uuid.UUID
	conn     *websocket.Conn
	send     chan []byte

	done      chan struct{}
	closeOnce sync.Once
	closing   chan struct{}
	flushOnce sync.Once
	flushed   chan struct{}
	logger    *logrus.Entry
}

func newClient(playerID uuid.UUID, conn *websocket.Conn, queueSize int, logger *logrus.Entry) *client {
	if queueSize < 1 {
		queueSize = 1
	}
	return &client{
		playerID: playerID,
		conn:     conn,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
		flushed:  make(chan struct{}),
		logger:   logger,
	}
}

// enqueue never blocks. A client whose queue is full is disconnected.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("Send queue overflow, disconnecting")
		c.kick(websocket.StatusPolicyViolation, "send queue overflow")
		return false
	}
}

func (c *client) enqueueJSON(v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.WithError(err).Error("Failed to marshal message")
		return false
	}
	return c.enqueue(data)
}

// kick stops the write pump and closes the socket without waiting for the close handshake.
func (c *client) kick(code websocket.StatusCode, reason string) {
	c.stop()
	if c.conn != nil {
		go c.conn.Close(code, reason)
	}
}

func (c *client) stop() {
	c.closeOnce.Do(func() { close(c.done) })
}

// flush asks the write pump to send what is still queued and waits until it has returned.
// The pump must be running.
func (c *client) flush() {
	c.flushOnce.Do(func() { close(c.closing) })
	<-c.flushed
}

// drain writes the queued frames until the queue is empty or the deadline passes.
func (c *client) drain(ctx context.Context, deadline time.Time) {
	writeCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	for {
		select {
		case data := <-c.send:
			if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
				c.logger.WithError(err).Debug("Flush failed")
				return
			}
		default:
			return
		}
	}
}

// writePump drains the send queue to the socket and pings on an interval. Once flush is
// requested it writes whatever is left within one writeTimeout and returns.
func writePump(ctx context.Context, c *client, writeTimeout, pingInterval time.Duration) {
	defer close(c.flushed)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-c.closing:
			c.drain(ctx, time.Now().Add(writeTimeout))
			return
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.logger.WithError(err).Debug("Write failed")
				c.kick(websocket.StatusGoingAway, "write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.WithError(err).Debug("Ping failed")
				c.kick(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}

// Hub fans session events out to every socket attached to one game.
type Hub struct {
	gameID  uuid.UUID
	mu      sync.Mutex
	clients map[*client]struct{}
	sockets map[uuid.UUID]int
	logger  *logrus.Entry
}

func newHub(gameID uuid.UUID, logger *logrus.Logger) *Hub {
	return &Hub{
		gameID:  gameID,
		clients: make(map[*client]struct{}),
		sockets: make(map[uuid.UUID]int),
		logger:  logger.WithField("game_id", gameID),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if c.playerID != uuid.Nil {
		h.sockets[c.playerID]++
	}
}

// unregister reports whether c was the last socket of its player.
func (h *Hub) unregister(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	if c.playerID == uuid.Nil {
		return false
	}
	h.sockets[c.playerID]--
	if h.sockets[c.playerID] > 0 {
		return false
	}
	delete(h.sockets, c.playerID)
	return true
}

// Len is the number of attached sockets.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast is the session's BroadcastFn. It runs under the session lock and only enqueues.
func (h *Hub) broadcast(ev game.SessionEvent) {
	var extra [][]byte
	if ev.RemovedPlayerID != nil {
		extra = append(extra, h.marshal(PlayerRemovedMessage{Type: MsgPlayerRemoved, PlayerID: *ev.RemovedPlayerID}))
	}
	if ev.GameEnded {
		extra = append(extra, h.marshal(GameOverMessage{
			Type:    MsgGameOver,
			Winners: ev.Snapshot.WinnerIDs(),
			Durak:   ev.Snapshot.Durak,
		}))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Every spectator gets the same frame, so it is built at most once.
	var public []byte
	for c := range h.clients {
		var data []byte
		if viewer := viewerID(ev.Snapshot, c.playerID); viewer == uuid.Nil {
			if public == nil {
				public = h.state(ev.Snapshot, uuid.Nil, ev.LastAction)
			}
			data = public
		} else {
			data = h.state(ev.Snapshot, viewer, ev.LastAction)
		}
		if data == nil || !c.enqueue(data) {
			continue
		}
		for _, msg := range extra {
			if msg != nil && !c.enqueue(msg) {
				break
			}
		}
	}
}

func (h *Hub) state(snap game.Snapshot, viewer uuid.UUID, last *game.ActionRecord) []byte {
	data, err := encodeState(snap, viewer, last)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal game state")
		return nil
	}
	return data
}

func (h *Hub) marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal event")
		return nil
	}
	return data
}

// viewerID is the id whose hand a socket may see. Removed players and spectators see none.
func viewerID(snap game.Snapshot, playerID uuid.UUID) uuid.UUID {
	if playerID != uuid.Nil && snap.HasPlayer(playerID) {
		return playerID
	}
	return uuid.Nil
}
