// Package engine implements the rules of the four-player trick-taking game 29.
//
// The engine is a pure state machine: GameState is a flat value type and every
// transition goes through Apply, which either returns the next state or an error
// and leaves the input untouched. It has no clock, no I/O and no goroutines; the
// service layer stamps commands with the server time and persists the result.
package engine

import (
	"fmt"
	"time"
)

const (
	NumSeats       = 4
	DeckSize       = 32
	HandSize       = 8
	DealBatch      = 4 // cards per seat in each of the two deals
	TricksPerRound = 8
	NumTeams       = 2
)

// NoSeat marks an unset seat reference.
const NoSeat = -1

// Hand is the ordered set of cards one seat holds.
type Hand struct {
	Cards [HandSize]Card `json:"cards"`
	Len   uint8          `json:"len"`
}

// Slice returns a copy of the held cards.
func (h *Hand) Slice() []Card {
	out := make([]Card, h.Len)
	copy(out, h.Cards[:h.Len])
	return out
}

// Has reports whether the hand holds c.
func (h *Hand) Has(c Card) bool {
	for i := uint8(0); i < h.Len; i++ {
		if h.Cards[i] == c {
			return true
		}
	}
	return false
}

// HasSuit reports whether the hand holds any card of suit s.
func (h *Hand) HasSuit(s Suit) bool {
	for i := uint8(0); i < h.Len; i++ {
		if h.Cards[i].Suit() == s {
			return true
		}
	}
	return false
}

func (h *Hand) add(c Card) {
	h.Cards[h.Len] = c
	h.Len++
}

// remove deletes c preserving order. Returns false if c is not held.
func (h *Hand) remove(c Card) bool {
	for i := uint8(0); i < h.Len; i++ {
		if h.Cards[i] != c {
			continue
		}
		copy(h.Cards[i:h.Len], h.Cards[i+1:h.Len])
		h.Len--
		h.Cards[h.Len] = EmptyCard
		return true
	}
	return false
}

func (h *Hand) clear() {
	for i := range h.Cards {
		h.Cards[i] = EmptyCard
	}
	h.Len = 0
}

// Play is one card laid by one seat.
type Play struct {
	Seat int  `json:"seat"`
	Card Card `json:"card"`
}

// Trick is the in-progress (or last completed) set of up to four plays.
type Trick struct {
	Plays [NumSeats]Play `json:"plays"`
	Len   uint8          `json:"len"`
}

// Slice returns a copy of the plays made so far.
func (t *Trick) Slice() []Play {
	out := make([]Play, t.Len)
	copy(out, t.Plays[:t.Len])
	return out
}

// LedSuit returns the suit of the first play, or NoSuit for an empty trick.
func (t *Trick) LedSuit() Suit {
	if t.Len == 0 {
		return NoSuit
	}
	return t.Plays[0].Card.Suit()
}

// HasPlayed reports whether seat already contributed to the trick.
func (t *Trick) HasPlayed(seat int) bool {
	for i := uint8(0); i < t.Len; i++ {
		if t.Plays[i].Seat == seat {
			return true
		}
	}
	return false
}

func (t *Trick) clear() {
	for i := range t.Plays {
		t.Plays[i] = Play{Seat: NoSeat, Card: EmptyCard}
	}
	t.Len = 0
}

// CompletedTrick is a resolved trick.
type CompletedTrick struct {
	Plays  [NumSeats]Play `json:"plays"`
	Winner int            `json:"winner"`
	Points int            `json:"points"`
}

// Bid is a seat's declared amount. Amount 0 means no bid is held.
type Bid struct {
	Seat   int `json:"seat"`
	Amount int `json:"amount"`
}

// RoundResult is the outcome of a scored round, shown until dismissed.
type RoundResult struct {
	Active     bool          `json:"active"`
	Round      int           `json:"round"`
	BidderTeam int           `json:"bidderTeam"`
	Bid        int           `json:"bid"`
	Target     int           `json:"target"`
	Multiplier int           `json:"multiplier"`
	TeamPoints [NumTeams]int `json:"teamPoints"`
	Draw       bool          `json:"draw"`
	Made       bool          `json:"made"`
	PipDelta   [NumTeams]int `json:"pipDelta"`
}

// SetResult is the outcome of a finished set, shown until dismissed.
type SetResult struct {
	Active     bool          `json:"active"`
	Set        int           `json:"set"`
	Winner     int           `json:"winner"`
	GamePoints [NumTeams]int `json:"gamePoints"`
}

// GameState holds the complete, self-contained state of a 29 match.
// It is a flat value type (arrays only, no maps or pointers) so a plain
// assignment is a deep copy.
type GameState struct {
	Phase         Phase `json:"phase"`
	Round         int   `json:"round"`
	Set           int   `json:"set"`
	DealerIndex   int   `json:"dealerIndex"`
	CurrentBidder int   `json:"currentBidder"`
	CurrentPlayer int   `json:"currentPlayer"`

	Hands          [NumSeats]Hand `json:"hands"`
	Stock          [DeckSize]Card `json:"stock"`
	StockLen       uint8          `json:"stockLen"`
	SecondDealDone bool           `json:"secondDealDone"`

	Bids       [NumSeats]int    `json:"bids"`
	BidOrder   [NumSeats]uint16 `json:"bidOrder"` // sequence of each seat's latest bid
	BidSeq     uint16           `json:"bidSeq"`
	Passed     [NumSeats]bool   `json:"passedPlayers"`
	HighestBid Bid              `json:"highestBid"`
	BidWinner  int              `json:"bidWinner"`

	TrumpSuit      Suit `json:"trumpSuit"`
	TrumpRevealed  bool `json:"trumpRevealed"`
	RevealedBy     int  `json:"revealedBy"`
	BidAdjustment  int  `json:"bidAdjustment"`
	PairDeclaredBy int  `json:"pairDeclaredBy"`

	IsDoubled   bool      `json:"isDoubled"`
	IsRedoubled bool      `json:"isRedoubled"`
	BainPhase   BainPhase `json:"bainPhase"`

	CurrentTrick    Trick                          `json:"currentTrick"`
	CompletedTricks [TricksPerRound]CompletedTrick `json:"completedTricks"`
	TricksLen       uint8                          `json:"tricksLen"`
	LastTrick       Trick                          `json:"lastTrickCards"`
	TeamPoints      [NumTeams]int                  `json:"teamPoints"`

	GamePoints [NumTeams]int `json:"gamePoints"`
	SetsWon    [NumTeams]int `json:"setsWon"`
	Winner     int           `json:"winner"` // winning team once completed, else NoSeat

	RoundPopup RoundResult `json:"roundPopup"`
	SetPopup   SetResult   `json:"setPopup"`

	TurnStartedAt time.Time     `json:"turnStartedAt"`
	TurnDuration  time.Duration `json:"turnDuration"`

	Version uint64 `json:"version"`
	RNG     uint64 `json:"rng"`
	Rules   Rules  `json:"rules"`
}

// ---------------------------------------------------------------------------
// xorshift64 RNG
// ---------------------------------------------------------------------------

func (g *GameState) nextRand() uint64 {
	x := g.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.RNG = x
	return x
}

// randN returns a random number in [0, n).
func (g *GameState) randN(n uint64) uint64 {
	return g.nextRand() % n
}

// ---------------------------------------------------------------------------
// Seats and partnerships
// ---------------------------------------------------------------------------

// NextSeat returns the seat after seat in counter-clockwise order.
func NextSeat(seat int) int { return (seat + NumSeats - 1) % NumSeats }

// Partner returns the seat across the table.
func Partner(seat int) int { return (seat + 2) % NumSeats }

// Team returns the partnership index: seats 0/2 are team 0, seats 1/3 team 1.
func Team(seat int) int { return seat % NumTeams }

// ValidSeat reports whether seat is 0..3.
func ValidSeat(seat int) bool { return seat >= 0 && seat < NumSeats }

// ---------------------------------------------------------------------------
// NewGame and Deal
// ---------------------------------------------------------------------------

// NewGame initializes a match with the given seed and rules and deals the
// first round. The zero seed is corrected to 1 because xorshift cannot leave 0.
func NewGame(seed uint64, rules Rules) GameState {
	var g GameState
	g.RNG = seed
	if g.RNG == 0 {
		g.RNG = 1
	}
	g.Rules = rules
	g.Round = 1
	g.Set = 1
	g.DealerIndex = 0
	g.Winner = NoSeat
	g.TurnDuration = rules.TurnDuration
	g.startRound()
	return g
}

// startRound clears every per-round field, shuffles and deals the first batch.
func (g *GameState) startRound() {
	g.Phase = PhaseBidding
	for s := range g.Hands {
		g.Hands[s].clear()
	}
	g.Bids = [NumSeats]int{}
	g.BidOrder = [NumSeats]uint16{}
	g.BidSeq = 0
	g.Passed = [NumSeats]bool{}
	g.HighestBid = Bid{Seat: NoSeat}
	g.BidWinner = NoSeat
	g.TrumpSuit = NoSuit
	g.TrumpRevealed = false
	g.RevealedBy = NoSeat
	g.BidAdjustment = 0
	g.PairDeclaredBy = NoSeat
	g.IsDoubled = false
	g.IsRedoubled = false
	g.BainPhase = BainNone
	g.CurrentTrick.clear()
	g.LastTrick.clear()
	g.CompletedTricks = [TricksPerRound]CompletedTrick{}
	g.TricksLen = 0
	g.TeamPoints = [NumTeams]int{}
	g.SecondDealDone = false

	g.deal()
	g.CurrentBidder = NextSeat(g.DealerIndex)
	g.CurrentPlayer = g.CurrentBidder
}

// deal shuffles the full deck, hands out the first batch counter-clockwise
// from the dealer's right and keeps the rest as stock for the second deal.
func (g *GameState) deal() {
	deck := NewDeck()
	for i := DeckSize - 1; i > 0; i-- {
		j := int(g.randN(uint64(i + 1)))
		deck[i], deck[j] = deck[j], deck[i]
	}

	idx := 0
	seat := NextSeat(g.DealerIndex)
	for n := 0; n < NumSeats; n++ {
		for c := 0; c < DealBatch; c++ {
			g.Hands[seat].add(deck[idx])
			idx++
		}
		seat = NextSeat(seat)
	}

	for i := range g.Stock {
		g.Stock[i] = EmptyCard
	}
	g.StockLen = uint8(copy(g.Stock[:], deck[idx:]))
}

// secondDeal hands the remaining stock out in batches of four, counter-clockwise
// starting from the bid winner's right.
func (g *GameState) secondDeal() {
	seat := NextSeat(g.BidWinner)
	for n := 0; n < NumSeats; n++ {
		for c := 0; c < DealBatch && g.StockLen > 0; c++ {
			g.StockLen--
			g.Hands[seat].add(g.Stock[g.StockLen])
			g.Stock[g.StockLen] = EmptyCard
		}
		seat = NextSeat(seat)
	}
	g.SecondDealDone = true
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// IsTerminal returns true when the match is over.
func (g *GameState) IsTerminal() bool { return g.Phase == PhaseCompleted }

// TrumpSelected reports whether the bid winner has fixed the trump suit.
func (g *GameState) TrumpSelected() bool { return g.TrumpSuit.Valid() }

// HasHighestBid reports whether any seat currently holds a bid.
func (g *GameState) HasHighestBid() bool { return g.HighestBid.Amount > 0 }

// BidderTeam returns the bid-winning partnership, or NoSeat during bidding.
func (g *GameState) BidderTeam() int {
	if !ValidSeat(g.BidWinner) {
		return NoSeat
	}
	return Team(g.BidWinner)
}

// Multiplier returns 4 if redoubled, 2 if doubled, else 1.
func (g *GameState) Multiplier() int {
	switch {
	case g.IsRedoubled:
		return 4
	case g.IsDoubled:
		return 2
	}
	return 1
}

// Target returns the effective bid target after any pair declaration.
func (g *GameState) Target() int { return g.HighestBid.Amount + g.BidAdjustment }

// ActingSeat returns the seat whose decision the match is waiting on.
// Pending decisions are ordered trump selection, bain, then card play.
func (g *GameState) ActingSeat() (int, bool) {
	switch g.Phase {
	case PhaseBidding:
		return g.CurrentBidder, true
	case PhasePlaying:
		if !g.TrumpSelected() {
			return g.BidWinner, true
		}
		switch g.BainPhase {
		case BainDoubleChance:
			return NextSeat(g.BidWinner), true
		case BainRedoubleChance:
			return g.BidWinner, true
		}
		return g.CurrentPlayer, true
	}
	return NoSeat, false
}

// CheckConservation verifies that each of the 32 cards sits in exactly one of
// the stock, a hand, the current trick or a completed trick.
func (g *GameState) CheckConservation() error {
	var seen [256]int
	count := func(c Card, where string) error {
		if !c.Valid() {
			return fmt.Errorf("invalid card %#x in %s", uint8(c), where)
		}
		seen[c]++
		if seen[c] > 1 {
			return fmt.Errorf("card %s duplicated (found again in %s)", c, where)
		}
		return nil
	}
	for i := uint8(0); i < g.StockLen; i++ {
		if err := count(g.Stock[i], "stock"); err != nil {
			return err
		}
	}
	for s := range g.Hands {
		for i := uint8(0); i < g.Hands[s].Len; i++ {
			if err := count(g.Hands[s].Cards[i], fmt.Sprintf("hand %d", s)); err != nil {
				return err
			}
		}
	}
	for i := uint8(0); i < g.CurrentTrick.Len; i++ {
		if err := count(g.CurrentTrick.Plays[i].Card, "current trick"); err != nil {
			return err
		}
	}
	for t := uint8(0); t < g.TricksLen; t++ {
		for _, p := range g.CompletedTricks[t].Plays {
			if err := count(p.Card, fmt.Sprintf("trick %d", t)); err != nil {
				return err
			}
		}
	}
	deck := NewDeck()
	for _, c := range deck {
		if seen[c] != 1 {
			return fmt.Errorf("card %s missing", c)
		}
	}
	return nil
}
