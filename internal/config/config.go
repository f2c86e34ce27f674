// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is everything the server reads from its environment at startup.
type Config struct {
	Port     string
	LogLevel logrus.Level

	// DatabaseURL is optional. Without it users cannot register and checkpoints are skipped.
	DatabaseURL string
	// RedisAddr is optional. Without it no action log is kept.
	RedisAddr    string
	RedisDB      int
	ActionLogTTL time.Duration

	// TokenExpire of zero means tokens never expire.
	TokenExpire    time.Duration
	AllowedOrigins []string

	SendQueueSize int
	WriteTimeout  time.Duration
	// RoomIdleTimeout frees the seat of a member without a room socket. Zero disables it.
	RoomIdleTimeout time.Duration

	HandSize   int
	LowestRank int
}

// Load reads the configuration from the process environment. A .env file, if any, is loaded by
// the godotenv autoload import in main before this runs.
func Load() (*Config, error) {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "debug"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	tokenExpire, err := parseTokenExpire(getEnv("TOKEN_EXPIRE_TIME", "72h"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        level,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		ActionLogTTL:    getEnvDuration("ACTION_LOG_TTL", 2*time.Hour),
		TokenExpire:     tokenExpire,
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "*")),
		SendQueueSize:   getEnvInt("SEND_QUEUE_SIZE", 64),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 5*time.Second),
		RoomIdleTimeout: getEnvDuration("ROOM_IDLE_TIMEOUT", time.Minute),
		HandSize:        getEnvInt("HAND_SIZE", 6),
		LowestRank:      getEnvInt("LOWEST_RANK", 6),
	}
	if cfg.SendQueueSize < 1 {
		return nil, fmt.Errorf("SEND_QUEUE_SIZE must be positive, got %d", cfg.SendQueueSize)
	}
	return cfg, nil
}

// parseTokenExpire accepts a Go duration, or "never"/"0" for tokens without an exp claim.
func parseTokenExpire(s string) (time.Duration, error) {
	if s == "never" || s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
