// internal/game/engine_adapter.go
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
	"github.com/jason-s-yu/twentynine/internal/database"
	"github.com/sirupsen/logrus"
)

// onTransition turns an accepted command into client events, action log
// entries and persistence. prev and next are the states either side of cmd.
// Assumes lock is held by caller.
func (m *Match) onTransition(prev, next engine.GameState, cmd engine.Command) {
	actorID := uuid.Nil
	if p := m.playerAt(cmd.Seat); p != nil {
		actorID = p.ID
	}
	user := &EventUser{ID: actorID, Seat: cmd.Seat}

	switch cmd.Kind {
	case engine.CmdBid:
		if cmd.Amount == 0 {
			m.fireEvent(GameEvent{Type: EventBidPassed, User: user})
			m.logAction(actorID, string(EventBidPassed), nil)
			break
		}
		payload := map[string]interface{}{
			"amount":  cmd.Amount,
			"matched": prev.HasHighestBid() && prev.HighestBid.Amount == cmd.Amount,
		}
		if next.Phase != engine.PhaseBidding {
			payload["winner"] = next.BidWinner
		}
		m.fireEvent(GameEvent{Type: EventBidPlaced, User: user, Payload: payload})
		m.logAction(actorID, string(EventBidPlaced), payload)

	case engine.CmdSelectTrump:
		// The suit stays with the bid winner until revealed.
		m.fireEvent(GameEvent{Type: EventTrumpSelected, User: user})
		m.logAction(actorID, string(EventTrumpSelected), map[string]interface{}{"suit": next.TrumpSuit.String()})

	case engine.CmdRevealTrump:
		payload := map[string]interface{}{"suit": next.TrumpSuit.String()}
		m.fireEvent(GameEvent{Type: EventTrumpRevealed, User: user, Payload: payload})
		m.logAction(actorID, string(EventTrumpRevealed), payload)

	case engine.CmdDeclarePair:
		payload := map[string]interface{}{
			"adjustment": next.BidAdjustment,
			"target":     next.Target(),
		}
		m.fireEvent(GameEvent{Type: EventPairDeclared, User: user, Payload: payload})
		m.logAction(actorID, string(EventPairDeclared), payload)

	case engine.CmdBain:
		payload := map[string]interface{}{
			"escalate":   cmd.Escalate,
			"doubled":    next.IsDoubled,
			"redoubled":  next.IsRedoubled,
			"bainPhase":  next.BainPhase.String(),
			"multiplier": next.Multiplier(),
		}
		m.fireEvent(GameEvent{Type: EventBainResolved, User: user, Payload: payload})
		m.logAction(actorID, string(EventBainResolved), payload)

	case engine.CmdPlayCard:
		card := cmd.Card
		m.fireEvent(GameEvent{Type: EventCardPlayed, User: user, Card: &card})
		m.logAction(actorID, string(EventCardPlayed), map[string]interface{}{"card": card.String()})
		if int(prev.CurrentTrick.Len) == engine.NumSeats-1 {
			m.fireTrickWon(prev, cmd)
		}

	case engine.CmdDismissRound, engine.CmdDismissSet:
		m.logAction(actorID, cmd.Kind.String(), nil)
	}

	ended := next.IsTerminal() && !prev.IsTerminal()
	if next.Round != prev.Round || ended {
		m.onRoundScored(prev, next)
	}
	if next.SetPopup.Active && (next.Set != prev.Set || ended) {
		m.fireEvent(GameEvent{Type: EventSetEnd, Payload: map[string]interface{}{
			"set":        next.SetPopup.Set,
			"winnerTeam": next.SetPopup.Winner,
			"gamePoints": next.SetPopup.GamePoints,
			"setsWon":    next.SetsWon,
		}})
		m.logAction(uuid.Nil, string(EventSetEnd), map[string]interface{}{"set": next.SetPopup.Set, "winnerTeam": next.SetPopup.Winner})
	}

	m.broadcastSyncStateToAll(next)
	if ended {
		m.endMatch(next)
		return
	}
	m.broadcastPlayerTurn(next)
}

// fireTrickWon announces the trick completed by cmd, the fourth play.
// Assumes lock is held by caller.
func (m *Match) fireTrickWon(prev engine.GameState, cmd engine.Command) {
	plays := append(prev.CurrentTrick.Slice(), engine.Play{Seat: cmd.Seat, Card: cmd.Card})
	winner := engine.ResolveTrick(plays, prev.TrumpSuit, prev.TrumpRevealed, prev.Rules.SingleHand)
	points := engine.TrickPoints(plays)
	w := m.playerAt(winner)
	payload := map[string]interface{}{
		"trick":  int(prev.TricksLen) + 1,
		"points": points,
		"team":   engine.Team(winner),
		"plays":  plays,
	}
	m.fireEvent(GameEvent{Type: EventTrickWon, User: &EventUser{ID: w.ID, Seat: winner}, Payload: payload})
	m.logAction(w.ID, string(EventTrickWon), map[string]interface{}{"trick": payload["trick"], "points": points})
}

// onRoundScored announces the round result and stores it.
// Assumes lock is held by caller.
func (m *Match) onRoundScored(prev, next engine.GameState) {
	res := next.RoundPopup
	m.fireEvent(GameEvent{Type: EventRoundScored, Payload: map[string]interface{}{
		"result":     res,
		"gamePoints": next.GamePoints,
	}})
	m.logAction(uuid.Nil, string(EventRoundScored), map[string]interface{}{
		"round":    res.Round,
		"made":     res.Made,
		"draw":     res.Draw,
		"pipDelta": res.PipDelta,
	})
	m.logger().WithFields(logrus.Fields{"round": res.Round, "made": res.Made, "draw": res.Draw, "pipDelta": res.PipDelta}).
		Info("round scored")

	if database.DB != nil {
		go func(matchID uuid.UUID, set int, r engine.RoundResult) {
			ctx, cancel := resultContext()
			defer cancel()
			if err := database.StoreRoundResult(ctx, matchID, set, r); err != nil {
				m.logger().WithError(err).WithField("round", r.Round).Error("store round result")
			}
		}(m.ID, prev.Set, res)
	}
}

// broadcastPlayerTurn announces the seat that must act next.
// Assumes lock is held by caller.
func (m *Match) broadcastPlayerTurn(s engine.GameState) {
	seat, ok := s.ActingSeat()
	if !ok {
		return
	}
	p := m.playerAt(seat)
	payload := map[string]interface{}{
		"phase":   s.Phase.String(),
		"version": s.Version,
	}
	if s.TurnDuration > 0 && !s.TurnStartedAt.IsZero() {
		payload["deadline"] = s.TurnStartedAt.Add(s.TurnDuration).UnixMilli()
	}
	m.fireEvent(GameEvent{Type: EventPlayerTurn, User: &EventUser{ID: p.ID, Seat: seat}, Payload: payload})
}

// teamPlayers returns the IDs of the two players on team.
func (m *Match) teamPlayers(team int) []uuid.UUID {
	var ids []uuid.UUID
	for seat, p := range m.Players {
		if engine.Team(seat) == team {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// endMatch broadcasts the result, persists it and triggers OnGameEnd.
// Assumes lock is held by caller.
func (m *Match) endMatch(s engine.GameState) {
	winners := m.teamPlayers(s.Winner)
	m.logAction(uuid.Nil, string(EventGameEnd), map[string]interface{}{
		"winnerTeam": s.Winner,
		"winners":    winners,
		"setsWon":    s.SetsWon,
		"gamePoints": s.GamePoints,
	})
	m.persistFinalGameState(s, winners)

	ids := make([]string, len(winners))
	for i, id := range winners {
		ids[i] = id.String()
	}
	m.fireEvent(GameEvent{Type: EventGameEnd, Payload: map[string]interface{}{
		"winnerTeam": s.Winner,
		"winners":    ids,
		"setsWon":    s.SetsWon,
		"gamePoints": s.GamePoints,
	}})

	if m.OnGameEnd != nil {
		m.OnGameEnd(m.ID, winners, s.GamePoints)
	}
	m.logger().WithFields(logrus.Fields{"winnerTeam": s.Winner, "setsWon": s.SetsWon}).Info("match ended")
}

// Assumes lock is held by caller.
func (m *Match) persistFinalGameState(s engine.GameState, winners []uuid.UUID) {
	if database.DB == nil {
		return
	}
	res := database.MatchResult{
		MatchID:    m.ID,
		WinnerTeam: s.Winner,
		Winners:    winners,
		SetsWon:    s.SetsWon,
		GamePoints: s.GamePoints,
		FinalState: s,
	}
	go func() {
		ctx, cancel := resultContext()
		defer cancel()
		database.StoreMatchResult(ctx, res)
	}()
}

// resultWriteTimeout bounds each background write of a round or match result.
const resultWriteTimeout = 5 * time.Second

func resultContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), resultWriteTimeout)
}
