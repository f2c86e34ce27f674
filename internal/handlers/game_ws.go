// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/game"
	"github.com/jason-s-yu/durak/internal/middleware"
	"github.com/jason-s-yu/durak/internal/models"
	"github.com/sirupsen/logrus"
)

const actionPing = "ping"

// GameWSHandler attaches a socket to a running game. Seated players act through it;
// anyone else connects as a spectator and only receives redacted state.
func GameWSHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := uuid.Parse(chi.URLParam(r, "gameID"))
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}
		session, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		hub, ok := gs.hub(gameID)
		if !ok {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: gs.OriginPatterns,
		})
		if err != nil {
			gs.Logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		if c.Subprotocol() != "game" {
			c.Close(BadSubprotocolError, "client must use the game subprotocol")
			return
		}

		playerID := uuid.Nil
		if _, id, err := playerFromRequest(r); err == nil && session.IsPlayer(id) {
			playerID = id
		} else if err != nil && !errors.Is(err, errNoToken) {
			gs.Logger.WithError(err).Debug("Invalid token on game socket, joining as spectator")
		}

		logger := gs.Logger.WithFields(logrus.Fields{"game_id": gameID, "player_id": playerID})
		middleware.LogWebSocketConnect(logger, r)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		cl := newClient(playerID, c, gs.SendQueueSize, logger)
		session.WithSnapshot(func(snap game.Snapshot) {
			hub.register(cl)
			if data, err := encodeState(snap, viewerID(snap, playerID), nil); err == nil {
				cl.enqueue(data)
			}
		})
		if playerID != uuid.Nil {
			session.SetConnected(playerID, true)
		}

		go writePump(ctx, cl, gs.WriteTimeout, gs.PingInterval)
		left, readErr := readGameMessages(ctx, c, session, cl, logger)
		if left {
			// the leaver still gets its own leave, removal and game over frames
			cl.flush()
		}

		cl.stop()
		if hub.unregister(cl) && session.Leave(playerID) {
			logger.Info("Player left by closing the last socket")
		}
		gs.maybeEndGame(session)

		middleware.LogWebSocketDisconnect(logger, r, readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readGameMessages applies inbound actions until the socket closes or the player leaves.
// left reports an applied leave. err is the read error of an abnormal closure.
func readGameMessages(ctx context.Context, c *websocket.Conn, session *game.GameSession, cl *client, logger *logrus.Entry) (left bool, err error) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return false, nil
			}
			return false, err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.WithError(err).Debug("Dropping malformed message")
			continue
		}
		if msg.Action == actionPing {
			cl.enqueueJSON(PongMessage{Type: MsgPong})
			continue
		}
		if cl.playerID == uuid.Nil {
			logger.Debugf("Dropping %q from spectator", msg.Action)
			continue
		}

		action, err := decodeAction(msg)
		if err == nil {
			_, err = session.Apply(cl.playerID, action)
		}
		if err != nil {
			var mistake *game.IllegalActionError
			if errors.As(err, &mistake) {
				cl.enqueueJSON(PlayerMistakeMessage{Type: MsgPlayerMistake, Message: mistake.Reason})
			} else {
				logger.WithError(err).Debug("Dropping action")
			}
			continue
		}
		if action.Type() == game.ActionLeave {
			return true, nil
		}
	}
}

// decodeAction turns a wire message into a typed action. Every failure is a ProtocolError.
func decodeAction(msg GameMessage) (game.Action, error) {
	switch game.ActionType(msg.Action) {
	case game.ActionPlayTurn:
		card, err := parseCardField(msg.Card, "card")
		return game.PlayTurn{Card: card}, err
	case game.ActionThrowAdditional:
		card, err := parseCardField(msg.Card, "card")
		return game.ThrowAdditional{Card: card}, err
	case game.ActionDefend:
		bottom, err := parseCardField(msg.BottomCard, "bottom_card")
		if err != nil {
			return nil, err
		}
		top, err := parseCardField(msg.TopCard, "top_card")
		return game.Defend{Bottom: bottom, Top: top}, err
	case game.ActionTakeCards:
		return game.TakeCards{}, nil
	case game.ActionFinished:
		return game.Finished{}, nil
	case game.ActionLeave:
		return game.Leave{}, nil
	default:
		return nil, &game.ProtocolError{Reason: fmt.Sprintf("unknown action %q", msg.Action)}
	}
}

func parseCardField(s *string, field string) (models.Card, error) {
	if s == nil {
		return models.Card{}, &game.ProtocolError{Reason: "missing " + field}
	}
	card, err := models.ParseCard(*s)
	if err != nil {
		return models.Card{}, &game.ProtocolError{Reason: fmt.Sprintf("bad %s: %v", field, err)}
	}
	return card, nil
}
