package engine

import "fmt"

// placeBid handles CmdBid. Amount 0 is a pass.
func (g *GameState) placeBid(seat, amount int) error {
	if g.Phase != PhaseBidding {
		return ErrWrongPhase
	}
	if g.Passed[seat] {
		return ErrAlreadyPassed
	}
	if seat != g.CurrentBidder {
		return ErrOutOfTurn
	}
	if amount == 0 {
		g.pass(seat)
		return nil
	}

	if amount < g.Rules.MinBid || amount > g.Rules.MaxBid {
		return fmt.Errorf("%w: %d outside [%d,%d]", ErrInvalidBid, amount, g.Rules.MinBid, g.Rules.MaxBid)
	}
	if g.HasHighestBid() {
		high := g.HighestBid
		if amount < high.Amount {
			return fmt.Errorf("%w: %d below highest %d", ErrInvalidBid, amount, high.Amount)
		}
		// The holder answers a challenge by raising, never by repeating.
		if high.Seat == seat && amount == high.Amount {
			return fmt.Errorf("%w: holder must raise above %d", ErrInvalidBid, high.Amount)
		}
	}

	g.Bids[seat] = amount
	g.BidSeq++
	g.BidOrder[seat] = g.BidSeq

	if amount == g.Rules.MaxBid {
		g.HighestBid = Bid{Seat: seat, Amount: amount}
		g.finishBidding(seat)
		return nil
	}

	// Match: equal to another seat's highest. The original holder keeps the
	// bid and must raise or pass.
	if g.HasHighestBid() && amount == g.HighestBid.Amount {
		g.CurrentBidder = g.HighestBid.Seat
		return nil
	}

	g.HighestBid = Bid{Seat: seat, Amount: amount}
	g.advanceBidder(seat)
	return nil
}

func (g *GameState) pass(seat int) {
	g.Passed[seat] = true
	g.Bids[seat] = 0
	from := seat
	if g.HighestBid.Seat == seat {
		g.HighestBid = g.recomputeHighest()
		// A holder folding to a match hands the bid to the matcher; the
		// turn moves on from there.
		if g.HasHighestBid() {
			from = g.HighestBid.Seat
		}
	}
	g.advanceBidder(from)
}

// recomputeHighest finds the largest standing bid among unpassed seats. Ties
// go to the seat that bid most recently.
func (g *GameState) recomputeHighest() Bid {
	best := Bid{Seat: NoSeat}
	var bestOrder uint16
	for s := 0; s < NumSeats; s++ {
		if g.Passed[s] || g.Bids[s] == 0 {
			continue
		}
		if g.Bids[s] > best.Amount || (g.Bids[s] == best.Amount && g.BidOrder[s] > bestOrder) {
			best = Bid{Seat: s, Amount: g.Bids[s]}
			bestOrder = g.BidOrder[s]
		}
	}
	return best
}

// advanceBidder ends bidding if it is decided, otherwise hands the turn to
// the next unpassed seat counter-clockwise from seat.
func (g *GameState) advanceBidder(seat int) {
	remaining, last := 0, NoSeat
	for s := 0; s < NumSeats; s++ {
		if !g.Passed[s] {
			remaining++
			last = s
		}
	}

	switch {
	case remaining == 0:
		dealer := g.DealerIndex
		g.Bids[dealer] = g.Rules.MinBid
		g.HighestBid = Bid{Seat: dealer, Amount: g.Rules.MinBid}
		g.finishBidding(dealer)
		return
	case remaining == 1 && g.Bids[last] > 0:
		g.HighestBid = Bid{Seat: last, Amount: g.Bids[last]}
		g.finishBidding(last)
		return
	}

	next := seat
	for i := 0; i < NumSeats; i++ {
		next = NextSeat(next)
		if !g.Passed[next] {
			g.CurrentBidder = next
			return
		}
	}
}

func (g *GameState) finishBidding(winner int) {
	g.BidWinner = winner
	g.Phase = PhasePlaying
	g.CurrentPlayer = winner
	g.CurrentBidder = winner
	g.BainPhase = BainDoubleChance
}
