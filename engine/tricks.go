package engine

// ResolveTrick returns the seat that wins plays. It is a pure function of its
// inputs.
//
// The fold keeps a running winner; a later play takes over when it is an
// active trump over a non-trump, or the same suit with strictly greater power.
// Trump only counts once revealed, and a card of a third suit never wins.
// With singleHand, power alone decides regardless of suit.
func ResolveTrick(plays []Play, trump Suit, revealed, singleHand bool) int {
	if len(plays) == 0 {
		return NoSeat
	}
	trumpActive := revealed && trump.Valid()
	win := plays[0]
	for _, p := range plays[1:] {
		if singleHand {
			if p.Card.Power() > win.Card.Power() {
				win = p
			}
			continue
		}
		ps, ws := p.Card.Suit(), win.Card.Suit()
		switch {
		case trumpActive && ps == trump && ws != trump:
			win = p
		case ps == ws && p.Card.Power() > win.Card.Power():
			win = p
		}
	}
	return win.Seat
}

// TrickPoints sums the card points of plays.
func TrickPoints(plays []Play) int {
	total := 0
	for _, p := range plays {
		total += p.Card.Points()
	}
	return total
}

// playCard validates and records a card. The fourth play resolves the trick.
func (g *GameState) playCard(seat int, card Card) error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if !g.TrumpSelected() {
		return ErrTrumpNotSelected
	}
	if g.BainPhase != BainNone {
		return ErrBainPending
	}
	if g.CurrentTrick.HasPlayed(seat) {
		return ErrDuplicatePlay
	}
	if seat != g.CurrentPlayer {
		return ErrOutOfTurn
	}
	hand := &g.Hands[seat]
	if !hand.Has(card) {
		return ErrCardNotOwned
	}
	if led := g.CurrentTrick.LedSuit(); led != NoSuit && card.Suit() != led && hand.HasSuit(led) {
		return ErrMustFollowSuit
	}

	hand.remove(card)
	g.CurrentTrick.Plays[g.CurrentTrick.Len] = Play{Seat: seat, Card: card}
	g.CurrentTrick.Len++

	if g.CurrentTrick.Len < NumSeats {
		g.CurrentPlayer = NextSeat(seat)
		return nil
	}
	g.completeTrick()
	return nil
}

func (g *GameState) completeTrick() {
	plays := g.CurrentTrick.Plays[:]
	winner := ResolveTrick(plays, g.TrumpSuit, g.TrumpRevealed, g.Rules.SingleHand)
	pts := TrickPoints(plays)

	g.TeamPoints[Team(winner)] += pts
	g.CompletedTricks[g.TricksLen] = CompletedTrick{
		Plays:  g.CurrentTrick.Plays,
		Winner: winner,
		Points: pts,
	}
	g.TricksLen++
	g.LastTrick = g.CurrentTrick
	g.CurrentTrick.clear()
	g.CurrentPlayer = winner

	if g.Rules.SingleHand {
		g.scoreSingleHand(winner)
		return
	}
	if g.TricksLen == TricksPerRound {
		g.scoreRound()
	}
}
