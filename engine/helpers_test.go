package engine

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

// mustCard parses a card literal or fails the test.
func mustCard(t *testing.T, s string) Card {
	t.Helper()
	c, err := ParseCard(s)
	if err != nil {
		t.Fatalf("ParseCard(%q): %v", s, err)
	}
	return c
}

func cards(t *testing.T, ss ...string) []Card {
	t.Helper()
	out := make([]Card, len(ss))
	for i, s := range ss {
		out[i] = mustCard(t, s)
	}
	return out
}

// apply runs Apply and fails the test on rejection.
func apply(t *testing.T, g GameState, c Command) GameState {
	t.Helper()
	if c.At.IsZero() {
		c.At = t0
	}
	next, err := Apply(g, c)
	if err != nil {
		t.Fatalf("Apply(%s seat=%d): %v", c.Kind, c.Seat, err)
	}
	return next
}

// reject runs Apply, expects want, and checks the state did not move.
func reject(t *testing.T, g GameState, c Command, want error) {
	t.Helper()
	next, err := Apply(g, c)
	if !errors.Is(err, want) {
		t.Fatalf("Apply(%s seat=%d): want %v, got %v", c.Kind, c.Seat, want, err)
	}
	if next != g {
		t.Fatalf("Apply(%s seat=%d): rejected command changed state", c.Kind, c.Seat)
	}
}

// playingState builds a mid-round state with fixed hands. leader won the bid
// at bid and leads the first trick. The stock is empty and bain is closed.
func playingState(t *testing.T, hands [NumSeats][]Card, trump Suit, revealed bool, leader, bid int) GameState {
	t.Helper()
	g := NewGame(7, DefaultRules())
	for s := range g.Hands {
		g.Hands[s].clear()
		for _, c := range hands[s] {
			g.Hands[s].add(c)
		}
	}
	for i := range g.Stock {
		g.Stock[i] = EmptyCard
	}
	g.StockLen = 0
	g.SecondDealDone = true
	g.Phase = PhasePlaying
	g.Bids = [NumSeats]int{}
	g.Bids[leader] = bid
	g.HighestBid = Bid{Seat: leader, Amount: bid}
	g.BidWinner = leader
	g.TrumpSuit = trump
	g.TrumpRevealed = revealed
	if revealed {
		g.RevealedBy = leader
	}
	g.BainPhase = BainNone
	g.CurrentPlayer = leader
	return g
}

// dealtToPlay runs the bidding and trump steps on a fresh game: seat 3 (the
// dealer's right) bids amount, everyone else passes, and it picks trump.
func dealtToPlay(t *testing.T, seed uint64, amount int, trump Suit) GameState {
	t.Helper()
	g := NewGame(seed, DefaultRules())
	g = apply(t, g, BidCommand(3, amount))
	for g.Phase == PhaseBidding {
		g = apply(t, g, BidCommand(g.CurrentBidder, 0))
	}
	g = apply(t, g, Command{Kind: CmdSelectTrump, Seat: 3, Suit: trump})
	return g
}
