// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/auth"
	"github.com/jason-s-yu/durak/internal/game"
	"github.com/jason-s-yu/durak/internal/models"
	"github.com/sirupsen/logrus"
)

var errNameRequired = errors.New("Either sign in or provide a name")

// JoinRoomRequest is the body of POST /room/join.
type JoinRoomRequest struct {
	PlayersCount int    `json:"players_count"`
	Username     string `json:"username"`
	// Rules optionally overrides the server's house rules. Only rooms with equal rules are shared.
	Rules map[string]interface{} `json:"rules,omitempty"`
}

// JoinRoomResponse tells the client which room it is waiting in and under which id it plays.
type JoinRoomResponse struct {
	RoomID       uuid.UUID `json:"room_id"`
	PlayerID     uuid.UUID `json:"player_id"`
	PlayersCount int       `json:"players_count"`
}

// JoinRoomHandler puts the caller into a waiting room of the requested size and issues the
// auth_token cookie the room and game sockets identify them by.
func JoinRoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		rules, err := game.ParseRules(req.Rules, gs.Rules)
		if err != nil {
			http.Error(w, "invalid rules: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.PlayersCount < rules.MinPlayers || req.PlayersCount > rules.MaxPlayers {
			http.Error(w, "Options available are: "+playerCountOptions(rules), http.StatusBadRequest)
			return
		}

		member, registered, err := roomMember(r, strings.TrimSpace(req.Username))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		room, err := gs.RoomStore.JoinWaiting(req.PlayersCount, rules, member)
		if err != nil {
			gs.Logger.WithError(err).Warn("Failed to join a waiting room")
			http.Error(w, "failed to join room", http.StatusConflict)
			return
		}

		token, err := auth.CreateJWT(member.ID, member.Name, registered)
		if err != nil {
			gs.Logger.WithError(err).Error("Failed to sign player token")
			http.Error(w, "failed to create token", http.StatusInternalServerError)
			return
		}
		setAuthCookie(w, token)

		gs.Logger.WithFields(logrus.Fields{
			"room_id":   room.ID,
			"player_id": member.ID,
			"capacity":  room.Capacity,
		}).Info("Player joined room")

		writeJSON(w, http.StatusOK, JoinRoomResponse{
			RoomID:       room.ID,
			PlayerID:     member.ID,
			PlayersCount: room.Capacity,
		})
	}
}

// roomMember identifies the caller. A valid token keeps its player id; registered accounts
// also keep their username. Everyone else has to bring a name.
func roomMember(r *http.Request, username string) (*game.RoomMember, bool, error) {
	claims, id, err := playerFromRequest(r)
	if err == nil && claims.Registered {
		return &game.RoomMember{
			ID:   id,
			Name: claims.Name,
			User: &models.User{ID: id, Username: claims.Name},
		}, true, nil
	}

	if username == "" {
		if err == nil && claims.Name != "" {
			username = claims.Name
		} else {
			return nil, false, errNameRequired
		}
	}
	if err != nil {
		if id, err = uuid.NewRandom(); err != nil {
			return nil, false, err
		}
	}
	return &game.RoomMember{
		ID:   id,
		Name: username,
		User: &models.User{ID: id, Username: username, IsEphemeral: true},
	}, false, nil
}

func playerCountOptions(rules game.HouseRules) string {
	opts := make([]string, 0, rules.MaxPlayers-rules.MinPlayers+1)
	for n := rules.MinPlayers; n <= rules.MaxPlayers; n++ {
		opts = append(opts, fmt.Sprint(n))
	}
	if len(opts) == 1 {
		return opts[0]
	}
	return strings.Join(opts[:len(opts)-1], ", ") + " or " + opts[len(opts)-1]
}
