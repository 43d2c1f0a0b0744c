package agent

import (
	engine "github.com/jason-s-yu/twentynine/engine"
)

// highPower is the power of an Ace; a trick holding a card at least this
// strong is worth contesting even without points in it.
var highPower = engine.Power(engine.RankAce)

// knownTrump returns the trump suit if seat is entitled to know it.
func knownTrump(s *engine.GameState, seat int) engine.Suit {
	if s.TrumpRevealed || seat == s.BidWinner {
		return s.TrumpSuit
	}
	return engine.NoSuit
}

// trickWinner returns the seat currently taking the trick in progress.
func trickWinner(s *engine.GameState) int {
	return engine.ResolveTrick(s.CurrentTrick.Slice(), s.TrumpSuit, s.TrumpRevealed, s.Rules.SingleHand)
}

func partnerWinning(s *engine.GameState, seat int) bool {
	if s.CurrentTrick.Len == 0 {
		return false
	}
	return trickWinner(s) == engine.Partner(seat)
}

// trickWorthTaking reports whether the trick carries points or a high card.
func trickWorthTaking(s *engine.GameState) bool {
	plays := s.CurrentTrick.Slice()
	if engine.TrickPoints(plays) > 0 {
		return true
	}
	for _, p := range plays {
		if p.Card.Power() >= highPower {
			return true
		}
	}
	return false
}

// wins reports whether seat playing c would take the trick as it stands.
func wins(s *engine.GameState, seat int, c engine.Card) bool {
	plays := append(s.CurrentTrick.Slice(), engine.Play{Seat: seat, Card: c})
	return engine.ResolveTrick(plays, s.TrumpSuit, s.TrumpRevealed, s.Rules.SingleHand) == seat
}

// choosePlay picks a card from the legal set.
//
// Leading, it cashes its best point card, else sheds its lowest. Following
// suit behind a winning partner it plays low, feeding points only when it
// holds nothing else. Otherwise it takes the trick as cheaply as it can or
// ducks with its lowest card. When void it trumps a worthwhile trick if trump
// is revealed, and otherwise discards its lowest non-trump.
func choosePlay(s *engine.GameState, seat int) (engine.Card, bool) {
	legal := s.LegalCards(seat)
	if len(legal) == 0 {
		return engine.EmptyCard, false
	}

	if s.CurrentTrick.Len == 0 {
		if c, ok := highest(legal, scoring); ok {
			return c, true
		}
		return lowest(legal, anyCard), true
	}

	led := s.CurrentTrick.LedSuit()
	following := legal[0].Suit() == led

	if partnerWinning(s, seat) {
		if c, ok := lowestOk(legal, nonScoring); ok {
			return c, true
		}
		if following {
			// Nothing safe to play: give partner the points.
			return highestPoints(legal), true
		}
		return lowest(legal, anyCard), true
	}

	if following {
		if c, ok := lowestOk(legal, func(c engine.Card) bool { return wins(s, seat, c) }); ok {
			return c, true
		}
		return lowest(legal, anyCard), true
	}

	trump := knownTrump(s, seat)
	if s.TrumpRevealed && trickWorthTaking(s) {
		if c, ok := lowestOk(legal, func(c engine.Card) bool { return c.Suit() == trump && wins(s, seat, c) }); ok {
			return c, true
		}
	}
	if c, ok := lowestOk(legal, func(c engine.Card) bool { return c.Suit() != trump }); ok {
		return c, true
	}
	return lowest(legal, anyCard), true
}

func anyCard(engine.Card) bool { return true }

func scoring(c engine.Card) bool { return c.Points() > 0 }

func nonScoring(c engine.Card) bool { return c.Points() == 0 }

// lowest returns the lowest-power card passing keep. cards must be non-empty
// and keep must accept at least one of them.
func lowest(cards []engine.Card, keep func(engine.Card) bool) engine.Card {
	c, _ := lowestOk(cards, keep)
	return c
}

func lowestOk(cards []engine.Card, keep func(engine.Card) bool) (engine.Card, bool) {
	best, found := engine.EmptyCard, false
	for _, c := range cards {
		if !keep(c) {
			continue
		}
		if !found || c.Power() < best.Power() {
			best, found = c, true
		}
	}
	return best, found
}

func highest(cards []engine.Card, keep func(engine.Card) bool) (engine.Card, bool) {
	best, found := engine.EmptyCard, false
	for _, c := range cards {
		if !keep(c) {
			continue
		}
		if !found || c.Power() > best.Power() {
			best, found = c, true
		}
	}
	return best, found
}

func highestPoints(cards []engine.Card) engine.Card {
	best := cards[0]
	for _, c := range cards[1:] {
		if c.Points() > best.Points() {
			best = c
		}
	}
	return best
}
