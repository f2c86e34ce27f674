package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// GameLogHandler returns every logged action of a game, oldest first.
func GameLogHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDParam(w, r, gs)
		if !ok {
			return
		}
		actions, err := gs.ActionLog.Actions(r.Context(), gameID)
		if err != nil {
			gs.Logger.WithError(err).WithField("game_id", gameID).Error("Failed to read action log")
			http.Error(w, "failed to read action log", http.StatusInternalServerError)
			return
		}
		if len(actions) == 0 {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, actions)
	}
}

// GameStateHandler returns the latest public snapshot of a game.
func GameStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDParam(w, r, gs)
		if !ok {
			return
		}
		state, err := gs.ActionLog.LatestSnapshot(r.Context(), gameID)
		if errors.Is(err, redis.Nil) {
			// nothing recorded yet; a running game still has its deal
			if session, ok := gs.GameStore.GetGame(gameID); ok {
				writeJSON(w, http.StatusOK, session.Snapshot().Public())
				return
			}
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		if err != nil {
			gs.Logger.WithError(err).WithField("game_id", gameID).Error("Failed to read snapshot")
			http.Error(w, "failed to read snapshot", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(state)
	}
}

func gameIDParam(w http.ResponseWriter, r *http.Request, gs *GameServer) (uuid.UUID, bool) {
	if gs.ActionLog == nil {
		http.Error(w, "action log is unavailable", http.StatusServiceUnavailable)
		return uuid.Nil, false
	}
	gameID, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		http.Error(w, "Invalid game_id format", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return gameID, true
}
