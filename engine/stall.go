package engine

import "time"

// Elapsed returns how long the acting seat has been idle at now.
func (g *GameState) Elapsed(now time.Time) time.Duration {
	if g.TurnStartedAt.IsZero() {
		return 0
	}
	return now.Sub(g.TurnStartedAt)
}

// TimedOut reports whether the acting seat has run past its turn budget.
// A state that was never stamped does not time out.
func TimedOut(g GameState, now time.Time) bool {
	if g.IsTerminal() || g.TurnDuration <= 0 || g.TurnStartedAt.IsZero() {
		return false
	}
	return g.Elapsed(now) > g.TurnDuration
}

// DefaultCommand builds the action the stall guard submits for an idle seat:
// a pass while bidding, hearts for an unset trump, a skip in the bain window,
// otherwise a legal card (led suit if held, else the first card in hand).
func DefaultCommand(g GameState, now time.Time) (Command, bool) {
	seat, ok := g.ActingSeat()
	if !ok {
		return Command{}, false
	}
	c := Command{Seat: seat, At: now}
	switch {
	case g.Phase == PhaseBidding:
		c.Kind = CmdBid
	case !g.TrumpSelected():
		c.Kind = CmdSelectTrump
		c.Suit = Suits[0]
	case g.BainPhase != BainNone:
		c.Kind = CmdBain
	default:
		legal := g.LegalCards(seat)
		if len(legal) == 0 {
			return Command{}, false
		}
		c.Kind = CmdPlayCard
		c.Card = legal[0]
	}
	return c, true
}
