// internal/cache/store.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
	"github.com/jason-s-yu/twentynine/internal/store"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps match state as JSON under one key per match. Writes are
// conditional on the stored version through WATCH/MULTI.
type RedisStore struct {
	rdb *redis.Client
	// TTL bounds how long an idle match survives; zero keeps it forever.
	TTL time.Duration
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, TTL: 24 * time.Hour}
}

func stateKey(matchID uuid.UUID) string {
	return "twentynine:match:" + matchID.String() + ":state"
}

func (s *RedisStore) Create(ctx context.Context, matchID uuid.UUID, g engine.GameState) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, stateKey(matchID), data, s.TTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context, matchID uuid.UUID) (engine.GameState, error) {
	return readState(ctx, s.rdb, matchID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readState(ctx context.Context, c getter, matchID uuid.UUID) (engine.GameState, error) {
	data, err := c.Get(ctx, stateKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return engine.GameState{}, store.ErrNotFound
	}
	if err != nil {
		return engine.GameState{}, err
	}
	var g engine.GameState
	if err := json.Unmarshal(data, &g); err != nil {
		return engine.GameState{}, fmt.Errorf("decode state of %s: %w", matchID, err)
	}
	return g, nil
}

func (s *RedisStore) Write(ctx context.Context, matchID uuid.UUID, expected uint64, g engine.GameState) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	key := stateKey(matchID)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readState(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if cur.Version != expected {
			return store.ErrStaleState
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.TTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return store.ErrStaleState
	}
	return err
}
