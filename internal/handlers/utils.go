package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/auth"
)

var errNoToken = errors.New("missing auth_token")

// playerFromRequest authenticates the auth_token cookie and returns the token's claims and player id.
// Claims are nil when the token itself is missing or invalid.
func playerFromRequest(r *http.Request) (*auth.Claims, uuid.UUID, error) {
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, uuid.Nil, errNoToken
	}
	claims, err := auth.AuthenticateJWT(cookie.Value)
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err := claims.PlayerID()
	if err != nil {
		return claims, uuid.Nil, err
	}
	return claims, id, nil
}

// setAuthCookie stores token in the auth_token cookie.
func setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.CookieMaxAge(),
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// OriginPatterns turns configured origins into the host patterns websocket.Accept matches against.
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if idx := strings.Index(o, "://"); idx >= 0 {
			o = o[idx+3:]
		}
		if o = strings.TrimSuffix(o, "/"); o != "" {
			patterns = append(patterns, o)
		}
	}
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	return patterns
}
