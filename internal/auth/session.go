// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie that carries the player token over HTTP and WebSocket upgrades.
const CookieName = "auth_token"

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TokenExpire is how long a token lives. Zero means tokens carry no exp claim.
	TokenExpire time.Duration
)

// Claims identify a player. Subject is the player id.
type Claims struct {
	Name       string `json:"name"`
	Registered bool   `json:"registered,omitempty"`
	jwt.RegisteredClaims
}

// PlayerID parses the subject as a player id.
func (c *Claims) PlayerID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid player id in token: %w", err)
	}
	return id, nil
}

// Init generates a fresh ed25519 key pair at runtime and sets the token lifetime.
// Tokens do not survive a restart, and neither do the games they point at.
func Init(expire time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey = pub, priv
	TokenExpire = expire
	return nil
}

// CreateJWT creates a signed token with sub = playerID and the display name.
func CreateJWT(playerID uuid.UUID, name string, registered bool) (string, error) {
	if privateKey == nil {
		return "", fmt.Errorf("auth keys are not initialized")
	}
	now := time.Now()
	claims := Claims{
		Name:       name,
		Registered: registered,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  playerID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if TokenExpire > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(TokenExpire))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token and returns its claims.
func AuthenticateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing sub in jwt")
	}
	return claims, nil
}

// CookieMaxAge is the cookie lifetime in seconds matching TokenExpire; 0 makes a session cookie.
func CookieMaxAge() int {
	return int(TokenExpire.Seconds())
}
