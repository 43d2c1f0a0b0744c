// internal/database/db.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the process-wide connection pool, nil when Postgres is not configured.
var DB *pgxpool.Pool

// ConnectDB opens a pool for url, checks it and stores it in DB.
func ConnectDB(ctx context.Context, url string) error {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	DB = pool
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS match_states (
	match_id   UUID PRIMARY KEY,
	version    BIGINT NOT NULL,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS round_results (
	match_id     UUID NOT NULL,
	set_no       INT NOT NULL,
	round_no     INT NOT NULL,
	bidder_team  INT NOT NULL,
	bid          INT NOT NULL,
	target       INT NOT NULL,
	multiplier   INT NOT NULL,
	team0_points INT NOT NULL,
	team1_points INT NOT NULL,
	draw         BOOLEAN NOT NULL,
	made         BOOLEAN NOT NULL,
	team0_delta  INT NOT NULL,
	team1_delta  INT NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (match_id, set_no, round_no)
);

CREATE TABLE IF NOT EXISTS match_results (
	match_id    UUID PRIMARY KEY,
	winner_team INT NOT NULL,
	winners     UUID[] NOT NULL,
	sets_won    INT[] NOT NULL,
	game_points INT[] NOT NULL,
	final_state JSONB NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the tables this package writes to.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
