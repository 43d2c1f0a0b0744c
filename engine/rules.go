package engine

import "time"

// Rules holds configurable game rule settings.
type Rules struct {
	MinBid         int           // floor bid, also the forced bid when all four pass
	MaxBid         int           // bidding ends immediately at this amount
	PairAdjustment int           // magnitude of the King+Queen target shift
	SetThreshold   int           // |game points| that ends a set
	Sets           int           // sets per match; 0 treated as 1
	SingleHand     bool          // one trick decided by power alone
	TurnDuration   time.Duration // stall-guard budget per action
}

// DefaultRules returns the standard 29 rules.
func DefaultRules() Rules {
	return Rules{
		MinBid:         16,
		MaxBid:         28,
		PairAdjustment: 4,
		SetThreshold:   6,
		Sets:           1,
		SingleHand:     false,
		TurnDuration:   30 * time.Second,
	}
}

// numSets returns the effective number of sets, treating 0 as 1.
func (r *Rules) numSets() int {
	if r.Sets <= 0 {
		return 1
	}
	return r.Sets
}
