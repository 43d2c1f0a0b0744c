// internal/database/results.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
	"github.com/sirupsen/logrus"
)

// MatchResult is the durable summary of a finished match.
type MatchResult struct {
	MatchID    uuid.UUID
	WinnerTeam int
	Winners    []uuid.UUID
	SetsWon    [engine.NumTeams]int
	GamePoints [engine.NumTeams]int
	FinalState engine.GameState
}

// StoreMatchResult records a finished match. Called asynchronously by the
// game package; errors are logged, not returned.
func StoreMatchResult(ctx context.Context, res MatchResult) {
	if DB == nil {
		return
	}
	entry := logrus.WithField("match", res.MatchID)
	state, err := json.Marshal(res.FinalState)
	if err != nil {
		entry.WithError(err).Error("marshal final state")
		return
	}
	winners := make([]string, len(res.Winners))
	for i, id := range res.Winners {
		winners[i] = id.String()
	}
	_, err = DB.Exec(ctx,
		`INSERT INTO match_results (match_id, winner_team, winners, sets_won, game_points, final_state)
		 VALUES ($1, $2, $3::uuid[], $4, $5, $6)
		 ON CONFLICT (match_id) DO NOTHING`,
		res.MatchID, res.WinnerTeam, winners, res.SetsWon[:], res.GamePoints[:], state)
	if err != nil {
		entry.WithError(err).Error("store match result")
	}
}

// StoreRoundResult appends one scored round to the match history.
func StoreRoundResult(ctx context.Context, matchID uuid.UUID, set int, r engine.RoundResult) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	_, err := DB.Exec(ctx,
		`INSERT INTO round_results (match_id, set_no, round_no, bidder_team, bid, target, multiplier,
		     team0_points, team1_points, draw, made, team0_delta, team1_delta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (match_id, set_no, round_no) DO NOTHING`,
		matchID, set, r.Round, r.BidderTeam, r.Bid, r.Target, r.Multiplier,
		r.TeamPoints[0], r.TeamPoints[1], r.Draw, r.Made, r.PipDelta[0], r.PipDelta[1])
	return err
}

// RoundHistory returns the scored rounds of a match in play order.
func RoundHistory(ctx context.Context, matchID uuid.UUID) ([]engine.RoundResult, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not connected")
	}
	rows, err := DB.Query(ctx,
		`SELECT round_no, bidder_team, bid, target, multiplier, team0_points, team1_points,
		        draw, made, team0_delta, team1_delta
		 FROM round_results WHERE match_id = $1 ORDER BY set_no, round_no`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.RoundResult
	for rows.Next() {
		r := engine.RoundResult{Active: true}
		if err := rows.Scan(&r.Round, &r.BidderTeam, &r.Bid, &r.Target, &r.Multiplier,
			&r.TeamPoints[0], &r.TeamPoints[1], &r.Draw, &r.Made, &r.PipDelta[0], &r.PipDelta[1]); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
