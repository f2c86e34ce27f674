package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/durak/internal/auth"
	"github.com/jason-s-yu/durak/internal/database"
	"github.com/jason-s-yu/durak/internal/models"
	"github.com/sirupsen/logrus"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (req *credentialsRequest) decode(r *http.Request) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return false
	}
	req.Username = strings.TrimSpace(req.Username)
	return req.Username != "" && req.Password != ""
}

// CreateUserHandler registers an account. Registered players keep their name and id across rooms.
func CreateUserHandler(logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !database.Enabled() {
			http.Error(w, "registration is unavailable", http.StatusServiceUnavailable)
			return
		}
		var req credentialsRequest
		if !req.decode(r) {
			http.Error(w, "username and password are required", http.StatusBadRequest)
			return
		}

		user := models.User{Username: req.Username, Password: req.Password}
		if err := database.CreateUser(r.Context(), &user); err != nil {
			if errors.Is(err, database.ErrUserExists) {
				http.Error(w, "username already exists", http.StatusConflict)
				return
			}
			logger.WithError(err).Error("Failed to create user")
			http.Error(w, "error creating user", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
		})
	}
}

// LoginHandler checks a username and password and returns a token, also sent as the auth_token cookie.
//
// Request payload:
//
//	{
//	  "username": "someone",
//	  "password": "password"
//	}
//
// Response payload:
//
//	{
//	  "token": "{jwt}"
//	}
func LoginHandler(logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !database.Enabled() {
			http.Error(w, "login is unavailable", http.StatusServiceUnavailable)
			return
		}
		var req credentialsRequest
		if !req.decode(r) {
			http.Error(w, "invalid request payload", http.StatusBadRequest)
			return
		}

		user, err := database.AuthenticateUser(r.Context(), req.Username, req.Password)
		if err != nil {
			if !errors.Is(err, database.ErrInvalidCredentials) {
				logger.WithError(err).Error("Failed to authenticate user")
			}
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		token, err := auth.CreateJWT(user.ID, user.Username, true)
		if err != nil {
			logger.WithError(err).Error("Failed to sign token")
			http.Error(w, "failed to create token", http.StatusInternalServerError)
			return
		}
		setAuthCookie(w, token)
		writeJSON(w, http.StatusOK, loginResponse{Token: token})
	}
}
