// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/durak/internal/game"
	"github.com/jason-s-yu/durak/internal/middleware"
	"github.com/sirupsen/logrus"
)

// RoomWSHandler keeps a member connected to their waiting room. Every connect and disconnect
// broadcasts players_count; the connection that fills the room starts the game and every
// member receives start_game.
func RoomWSHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"room"},
			OriginPatterns: gs.OriginPatterns,
		})
		if err != nil {
			gs.Logger.Warnf("WebSocket accept error for room socket: %v", err)
			return
		}
		if c.Subprotocol() != "room" {
			c.Close(BadSubprotocolError, "client must use the room subprotocol")
			return
		}

		claims, userID, err := playerFromRequest(r)
		if err != nil {
			if claims != nil {
				c.Close(InvalidUserIDError, "invalid player id")
			} else {
				c.Close(InvalidAuthTokenError, "invalid auth_token")
			}
			return
		}

		room, ok := gs.RoomStore.FindByMember(userID)
		if !ok {
			c.Close(UnknownRoomError, "join a room first")
			return
		}

		logger := gs.Logger.WithFields(logrus.Fields{"room_id": room.ID, "player_id": userID})

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := &game.RoomConnection{
			UserID:  userID,
			Cancel:  cancel,
			OutChan: make(chan map[string]interface{}, gs.SendQueueSize),
		}
		if _, err := room.AddConnection(userID, conn); err != nil {
			switch {
			case errors.Is(err, game.ErrNotMember):
				c.Close(UnknownRoomError, err.Error())
			default:
				c.Close(RoomOverCapacityError, err.Error())
			}
			return
		}
		middleware.LogWebSocketConnect(logger, r)

		go roomWritePump(ctx, c, conn, gs.WriteTimeout, gs.PingInterval, logger)

		if room.Ready() {
			session, err := gs.StartGame(room)
			switch {
			case err == nil:
				room.BroadcastStart(session.ID)
			case errors.Is(err, game.ErrRoomStarted):
				// another connection won the race and broadcasts the start
			default:
				logger.WithError(err).Error("Failed to start game")
				room.BroadcastAll(map[string]interface{}{"type": "error", "message": "failed to start game"})
				c.Close(GameStartError, "failed to start game")
				room.RemoveConnection(userID, conn)
				return
			}
		} else {
			room.BroadcastPlayersCount()
		}

		status, readErr := readRoomMessages(ctx, c)

		room.RemoveConnection(userID, conn)
		if _, started := room.GameID(); !started {
			if status != websocket.StatusNormalClosure {
				room.RemoveMember(userID)
				logger.Info("Player left waiting room")
			}
			room.BroadcastPlayersCount()
			if room.MemberCount() == 0 {
				gs.RoomStore.DeleteRoom(room.ID)
			}
		}

		middleware.LogWebSocketDisconnect(logger, r, readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readRoomMessages discards inbound frames until the socket closes and returns the close code.
func readRoomMessages(ctx context.Context, c *websocket.Conn) (websocket.StatusCode, error) {
	for {
		if _, _, err := c.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return status, nil
			}
			return status, err
		}
	}
}

func roomWritePump(ctx context.Context, c *websocket.Conn, conn *game.RoomConnection, writeTimeout, pingInterval time.Duration, logger *logrus.Entry) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c, msg)
			cancel()
			if err != nil {
				logger.WithError(err).Debug("Room write failed")
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.WithError(err).Debug("Room ping failed")
				conn.Cancel()
				return
			}
		}
	}
}
