package engine

// LegalCards returns the cards seat may play to the current trick: the
// led-suit cards when it holds any, otherwise its whole hand. It returns nil
// when seat is not due to play.
func (g *GameState) LegalCards(seat int) []Card {
	if !g.CanPlay(seat) {
		return nil
	}
	hand := &g.Hands[seat]
	led := g.CurrentTrick.LedSuit()
	if led == NoSuit || !hand.HasSuit(led) {
		return hand.Slice()
	}
	out := make([]Card, 0, hand.Len)
	for i := uint8(0); i < hand.Len; i++ {
		if hand.Cards[i].Suit() == led {
			out = append(out, hand.Cards[i])
		}
	}
	return out
}

// CanPlay reports whether seat is the one a card play is waiting on.
func (g *GameState) CanPlay(seat int) bool {
	return g.Phase == PhasePlaying &&
		g.TrumpSelected() &&
		g.BainPhase == BainNone &&
		seat == g.CurrentPlayer &&
		!g.CurrentTrick.HasPlayed(seat) &&
		g.Hands[seat].Len > 0
}

// CanRequestReveal reports whether seat may ask for the trump to be shown.
func (g *GameState) CanRequestReveal(seat int) bool {
	if !g.CanPlay(seat) || g.TrumpRevealed {
		return false
	}
	led := g.CurrentTrick.LedSuit()
	return led != NoSuit && !g.Hands[seat].HasSuit(led)
}

// CanDeclarePair reports whether seat may declare the trump King and Queen.
func (g *GameState) CanDeclarePair(seat int) bool {
	return g.Phase == PhasePlaying &&
		g.TrumpRevealed &&
		g.PairDeclaredBy == NoSeat &&
		g.HoldsPair(seat)
}

// BainEligible reports whether seat may answer the open double/redouble window.
func (g *GameState) BainEligible(seat int) bool {
	switch g.BainPhase {
	case BainDoubleChance:
		return Team(seat) != g.BidderTeam()
	case BainRedoubleChance:
		return seat == g.BidWinner
	}
	return false
}
