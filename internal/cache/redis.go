// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/durak/internal/game"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. It stays nil when no REDIS_ADDR is configured.
var Rdb *redis.Client

const keyPrefix = "durak"

// ActionsKey is the list holding every applied action of a game, oldest first.
func ActionsKey(gameID uuid.UUID) string {
	return fmt.Sprintf("%s:actions:%s", keyPrefix, gameID)
}

// SnapshotKey holds the latest public view of a game.
func SnapshotKey(gameID uuid.UUID) string {
	return fmt.Sprintf("%s:snapshot:%s", keyPrefix, gameID)
}

// ConnectRedis initializes the global Redis client and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// ActionLog appends applied actions to a Redis list and caches the public snapshot.
// It implements game.Recorder.
type ActionLog struct {
	client *redis.Client
	ttl    time.Duration
}

// NewActionLog writes through client, or the global Rdb when client is nil.
// Keys expire ttl after the last write; zero keeps them forever.
func NewActionLog(client *redis.Client, ttl time.Duration) *ActionLog {
	if client == nil {
		client = Rdb
	}
	return &ActionLog{client: client, ttl: ttl}
}

// Record pushes rec and replaces the cached snapshot in one round trip.
func (l *ActionLog) Record(ctx context.Context, rec game.ActionRecord, snap game.Snapshot) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal action record: %w", err)
	}
	view, err := json.Marshal(snap.Public())
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	actionsKey, snapshotKey := ActionsKey(rec.GameID), SnapshotKey(rec.GameID)
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, actionsKey, data)
		pipe.Set(ctx, snapshotKey, view, l.ttl)
		if l.ttl > 0 {
			pipe.Expire(ctx, actionsKey, l.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record action %d of game %s: %w", rec.Index, rec.GameID, err)
	}
	return nil
}

// Actions returns every logged action of a game in order.
func (l *ActionLog) Actions(ctx context.Context, gameID uuid.UUID) ([]game.ActionRecord, error) {
	raw, err := l.client.LRange(ctx, ActionsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]game.ActionRecord, 0, len(raw))
	for _, item := range raw {
		var rec game.ActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("corrupt action record in %s: %w", ActionsKey(gameID), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// LatestSnapshot returns the cached public view as raw JSON, or redis.Nil if none is stored.
func (l *ActionLog) LatestSnapshot(ctx context.Context, gameID uuid.UUID) (json.RawMessage, error) {
	data, err := l.client.Get(ctx, SnapshotKey(gameID)).Bytes()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
