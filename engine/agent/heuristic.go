// Package agent implements the autonomous seat: stateless heuristics that
// turn a game state into the next command for one seat.
//
// The heuristics only read what that seat could see at the table: its own
// hand, the trick on the felt, the public bidding record and, once revealed
// or when the seat chose it, the trump suit.
package agent

import (
	engine "github.com/jason-s-yu/twentynine/engine"
)

// Bid limits by hand strength.
const (
	strongHand = 8
	goodHand   = 6
	fairHand   = 4

	strongLimit = 20
	goodLimit   = 18
	fairLimit   = 16

	doubleStrength   = 6
	redoubleStrength = 8
)

// Heuristic is the default bot policy. The zero value is ready to use.
type Heuristic struct{}

// Decide returns the command seat should submit in s, or false when seat has
// nothing to do.
func (Heuristic) Decide(s engine.GameState, seat int) (engine.Command, bool) {
	return Decide(s, seat)
}

// Decide returns the command seat should submit in s, or false when seat has
// nothing to do. A pair is declared as soon as it is allowed, even out of turn.
func Decide(s engine.GameState, seat int) (engine.Command, bool) {
	if !engine.ValidSeat(seat) || s.IsTerminal() {
		return engine.Command{}, false
	}
	if s.CanDeclarePair(seat) {
		return engine.Command{Kind: engine.CmdDeclarePair, Seat: seat}, true
	}

	if acting, ok := s.ActingSeat(); !ok || acting != seat {
		return engine.Command{}, false
	}

	switch {
	case s.Phase == engine.PhaseBidding:
		return engine.BidCommand(seat, chooseBid(&s, seat)), true
	case !s.TrumpSelected():
		return engine.Command{Kind: engine.CmdSelectTrump, Seat: seat, Suit: ChooseTrump(s.Hands[seat].Slice())}, true
	case s.BainPhase != engine.BainNone:
		return decideBain(&s, seat), true
	}

	if s.CanRequestReveal(seat) && !partnerWinning(&s, seat) && trickWorthTaking(&s) {
		return engine.Command{Kind: engine.CmdRevealTrump, Seat: seat}, true
	}
	card, ok := choosePlay(&s, seat)
	if !ok {
		return engine.Command{}, false
	}
	return engine.PlayCommand(seat, card), true
}

// Strength is the weighted point-card count of a hand: J=3, 9=2, A and 10=1.
func Strength(hand []engine.Card) int {
	total := 0
	for _, c := range hand {
		total += c.Points()
	}
	return total
}

// BidLimit returns the highest amount a hand of the given strength will hold,
// or 0 when it should not bid at all.
func BidLimit(strength int) int {
	switch {
	case strength >= strongHand:
		return strongLimit
	case strength >= goodHand:
		return goodLimit
	case strength >= fairHand:
		return fairLimit
	}
	return 0
}

// chooseBid returns the amount to bid, 0 to pass. It opens at the floor,
// matches a standing bid within its limit, raises by one when challenged and
// never competes with its partner.
func chooseBid(s *engine.GameState, seat int) int {
	limit := BidLimit(Strength(s.Hands[seat].Slice()))
	if limit > s.Rules.MaxBid {
		limit = s.Rules.MaxBid
	}
	if !s.HasHighestBid() {
		if limit >= s.Rules.MinBid {
			return s.Rules.MinBid
		}
		return 0
	}

	high := s.HighestBid
	switch {
	case high.Seat == engine.Partner(seat):
		return 0
	case high.Seat == seat:
		if high.Amount+1 <= limit {
			return high.Amount + 1
		}
		return 0
	case high.Amount <= limit:
		return high.Amount
	}
	return 0
}

// ChooseTrump picks the suit with the most cards; ties go to the earlier suit
// in H, D, C, S order.
func ChooseTrump(hand []engine.Card) engine.Suit {
	var counts [engine.NumSuits]int
	for _, c := range hand {
		if c.Valid() {
			counts[c.Suit()]++
		}
	}
	best := engine.Suits[0]
	for _, suit := range engine.Suits[1:] {
		if counts[suit] > counts[best] {
			best = suit
		}
	}
	return best
}

func decideBain(s *engine.GameState, seat int) engine.Command {
	strength := Strength(s.Hands[seat].Slice())
	escalate := false
	switch s.BainPhase {
	case engine.BainDoubleChance:
		escalate = strength >= doubleStrength
	case engine.BainRedoubleChance:
		escalate = strength >= redoubleStrength
	}
	return engine.Command{Kind: engine.CmdBain, Seat: seat, Escalate: escalate}
}
