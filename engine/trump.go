package engine

// selectTrump records the bid winner's trump suit, dealing the second batch
// first if it is still in the stock.
func (g *GameState) selectTrump(seat int, suit Suit) error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if seat != g.BidWinner {
		return ErrNotBidWinner
	}
	if g.TrumpSelected() {
		return ErrTrumpAlreadySelected
	}
	if !suit.Valid() {
		return ErrInvalidSuit
	}
	if !g.SecondDealDone {
		g.secondDeal()
	}
	g.TrumpSuit = suit
	return nil
}

// revealTrump exposes the concealed trump. Only the seat to play may ask, and
// only when it cannot follow the led suit.
func (g *GameState) revealTrump(seat int) error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if !g.TrumpSelected() {
		return ErrTrumpNotSelected
	}
	if g.TrumpRevealed {
		return ErrTrumpRevealed
	}
	if g.BainPhase != BainNone {
		return ErrBainPending
	}
	if seat != g.CurrentPlayer {
		return ErrOutOfTurn
	}
	led := g.CurrentTrick.LedSuit()
	if led == NoSuit {
		return ErrNoLedSuit
	}
	if g.Hands[seat].HasSuit(led) {
		return ErrCanFollowSuit
	}
	g.TrumpRevealed = true
	g.RevealedBy = seat
	return nil
}

// HoldsPair reports whether seat holds both King and Queen of trump.
func (g *GameState) HoldsPair(seat int) bool {
	if !g.TrumpSelected() {
		return false
	}
	h := &g.Hands[seat]
	return h.Has(NewCard(g.TrumpSuit, RankKing)) && h.Has(NewCard(g.TrumpSuit, RankQueen))
}

// declarePair shifts the bid target once per round: down for the bidding
// partnership, up for the defenders.
func (g *GameState) declarePair(seat int) error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if !g.TrumpRevealed {
		return ErrTrumpNotRevealed
	}
	if g.PairDeclaredBy != NoSeat {
		return ErrPairAlreadyDeclared
	}
	if !g.HoldsPair(seat) {
		return ErrNoPairHeld
	}
	if Team(seat) == g.BidderTeam() {
		g.BidAdjustment = -g.Rules.PairAdjustment
	} else {
		g.BidAdjustment = g.Rules.PairAdjustment
	}
	g.PairDeclaredBy = seat
	return nil
}

// resolveBain steps the none -> double_chance -> redouble_chance -> none
// machine. Declining at either step closes it.
func (g *GameState) resolveBain(seat int, escalate bool) error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	switch g.BainPhase {
	case BainDoubleChance:
		if Team(seat) == g.BidderTeam() {
			return ErrNotEligible
		}
		if escalate {
			g.IsDoubled = true
			g.BainPhase = BainRedoubleChance
			return nil
		}
		g.BainPhase = BainNone
		return nil
	case BainRedoubleChance:
		if seat != g.BidWinner {
			return ErrNotEligible
		}
		g.IsRedoubled = escalate
		g.BainPhase = BainNone
		return nil
	}
	return ErrWrongPhase
}
