package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/cache"
	"github.com/jason-s-yu/durak/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRoomGame(t *testing.T, gs *GameServer, names ...string) *game.GameSession {
	t.Helper()
	room := game.NewRoom(len(names), gs.Rules)
	for _, name := range names {
		require.NoError(t, room.Join(&game.RoomMember{ID: uuid.New(), Name: name}))
	}
	gs.RoomStore.AddRoom(room)

	session, err := gs.StartGame(room)
	require.NoError(t, err)

	_, err = gs.StartGame(room)
	assert.ErrorIs(t, err, game.ErrRoomStarted, "a room deals only once")
	return session
}

func TestGameLogAndState(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	gs := newTestServer()
	gs.ActionLog = cache.NewActionLog(client, time.Hour)
	srv := httptest.NewServer(NewRouter(gs, []string{"*"}))
	defer srv.Close()

	session := startRoomGame(t, gs, "kim", "lee")

	// before any action the state endpoint falls back to the live deal
	resp, err := http.Get(srv.URL + "/game/" + session.ID.String() + "/state")
	require.NoError(t, err)
	var state map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	resp.Body.Close()
	assert.Equal(t, session.ID.String(), state["game_id"])

	snap := session.Snapshot()
	attacker := snap.Players[snap.Turn]
	_, err = session.Apply(attacker.ID, game.PlayTurn{Card: attacker.Hand[0]})
	require.NoError(t, err)

	var actions []game.ActionRecord
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/game/" + session.ID.String() + "/log")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&actions) == nil && len(actions) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, game.ActionPlayTurn, actions[0].Action)
	assert.Equal(t, attacker.ID, actions[0].PlayerID)

	resp, err = http.Get(srv.URL + "/game/" + session.ID.String() + "/state")
	require.NoError(t, err)
	state = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	resp.Body.Close()
	assert.Len(t, state["attack_state"], 1)
	for _, p := range state["players"].([]interface{}) {
		assert.NotContains(t, p.(map[string]interface{}), "hand", "cached state is public")
	}

	resp, err = http.Get(srv.URL + "/game/" + uuid.NewString() + "/log")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	gs.endGame(session)
	assert.Equal(t, 0, gs.GameStore.Len())
	assert.Equal(t, 0, gs.RoomStore.Len())
}
