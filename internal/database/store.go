// internal/database/store.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	engine "github.com/jason-s-yu/twentynine/engine"
	"github.com/jason-s-yu/twentynine/internal/store"
)

// PostgresStore keeps match state in the match_states table. The version
// column carries the state's Version so writes can be conditional on it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, matchID uuid.UUID, g engine.GameState) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO match_states (match_id, version, state) VALUES ($1, $2, $3)
		 ON CONFLICT (match_id) DO NOTHING`,
		matchID, int64(g.Version), data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, matchID uuid.UUID) (engine.GameState, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM match_states WHERE match_id = $1`, matchID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (s *PostgresStore) Write(ctx context.Context, matchID uuid.UUID, expected uint64, g engine.GameState) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE match_states SET state = $3, version = $4, updated_at = now()
		 WHERE match_id = $1 AND version = $2`,
		matchID, int64(expected), data, int64(g.Version))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM match_states WHERE match_id = $1)`, matchID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrStaleState
}
