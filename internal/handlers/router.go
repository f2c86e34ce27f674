package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/durak/internal/middleware"
)

// NewRouter mounts every HTTP and WebSocket endpoint of the server.
func NewRouter(gs *GameServer, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.LogMiddleware(gs.Logger))

	r.Post("/user/create", CreateUserHandler(gs.Logger))
	r.Post("/user/login", LoginHandler(gs.Logger))

	r.Post("/room/join", JoinRoomHandler(gs))
	r.Get("/room/ws", RoomWSHandler(gs))
	r.Get("/room/ws/", RoomWSHandler(gs))

	r.Get("/game/ws/{gameID}", GameWSHandler(gs))
	r.Get("/game/{gameID}/log", GameLogHandler(gs))
	r.Get("/game/{gameID}/state", GameStateHandler(gs))
	return r
}
