// internal/game/sync_state.go
package game

import (
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
	"github.com/jason-s-yu/twentynine/internal/models"
)

// ObfPlayerState is one seat as seen by a particular observer.
type ObfPlayerState struct {
	PlayerID      uuid.UUID       `json:"playerId"`
	Username      string          `json:"username"`
	Seat          int             `json:"seat"`
	Team          int             `json:"team"`
	Kind          models.SeatKind `json:"kind"`
	Connected     bool            `json:"connected"`
	IsCurrentTurn bool            `json:"isCurrentTurn"`
	HandSize      int             `json:"handSize"`
	Bid           int             `json:"bid"`
	Passed        bool            `json:"passed"`
	// RevealedHand is populated only for the observer's own seat.
	RevealedHand []engine.Card `json:"revealedHand,omitempty"`
}

// ObfGameState is the match as a particular observer may see it: other
// hands are hidden, and the trump suit is hidden from everyone but the bid
// winner until it is revealed.
type ObfGameState struct {
	GameID  uuid.UUID    `json:"gameId"`
	Version uint64       `json:"version"`
	Phase   engine.Phase `json:"phase"`
	Round   int          `json:"round"`
	Set     int          `json:"set"`
	Dealer  int          `json:"dealer"`

	CurrentPlayerID uuid.UUID `json:"currentPlayerId"`
	ActingSeat      int       `json:"actingSeat"`
	TurnDeadline    time.Time `json:"turnDeadline"`

	HighestBid    engine.Bid       `json:"highestBid"`
	BidWinner     int              `json:"bidWinner"`
	TrumpSelected bool             `json:"trumpSelected"`
	TrumpRevealed bool             `json:"trumpRevealed"`
	TrumpSuit     engine.Suit      `json:"trumpSuit"`
	RevealedBy    int              `json:"revealedBy"`
	Target        int              `json:"target"`
	PairDeclared  int              `json:"pairDeclaredBy"`
	IsDoubled     bool             `json:"isDoubled"`
	IsRedoubled   bool             `json:"isRedoubled"`
	BainPhase     engine.BainPhase `json:"bainPhase"`
	StockSize     int              `json:"stockSize"`

	CurrentTrick []engine.Play        `json:"currentTrick"`
	LastTrick    []engine.Play        `json:"lastTrick,omitempty"`
	TricksPlayed int                  `json:"tricksPlayed"`
	TeamPoints   [engine.NumTeams]int `json:"teamPoints"`
	GamePoints   [engine.NumTeams]int `json:"gamePoints"`
	SetsWon      [engine.NumTeams]int `json:"setsWon"`
	Winner       int                  `json:"winner"`
	RoundPopup   *engine.RoundResult  `json:"roundPopup,omitempty"`
	SetPopup     *engine.SetResult    `json:"setPopup,omitempty"`
	Players      []ObfPlayerState     `json:"players"`
	LegalCards   []engine.Card        `json:"legalCards,omitempty"`
	Rules        engine.Rules         `json:"rules"`
}

// GetCurrentObfuscatedGameState builds the view of s for forUser. A user not
// seated at the table gets the public view.
func (m *Match) GetCurrentObfuscatedGameState(s engine.GameState, forUser uuid.UUID) ObfGameState {
	self := engine.NoSeat
	if p := m.getPlayerByID(forUser); p != nil {
		self = p.Seat
	}

	obf := ObfGameState{
		GameID:        m.ID,
		Version:       s.Version,
		Phase:         s.Phase,
		Round:         s.Round,
		Set:           s.Set,
		Dealer:        s.DealerIndex,
		ActingSeat:    engine.NoSeat,
		HighestBid:    s.HighestBid,
		BidWinner:     s.BidWinner,
		TrumpSelected: s.TrumpSelected(),
		TrumpRevealed: s.TrumpRevealed,
		TrumpSuit:     engine.NoSuit,
		RevealedBy:    s.RevealedBy,
		Target:        s.Target(),
		PairDeclared:  s.PairDeclaredBy,
		IsDoubled:     s.IsDoubled,
		IsRedoubled:   s.IsRedoubled,
		BainPhase:     s.BainPhase,
		StockSize:     int(s.StockLen),
		CurrentTrick:  s.CurrentTrick.Slice(),
		LastTrick:     s.LastTrick.Slice(),
		TricksPlayed:  int(s.TricksLen),
		TeamPoints:    s.TeamPoints,
		GamePoints:    s.GamePoints,
		SetsWon:       s.SetsWon,
		Winner:        s.Winner,
		Rules:         s.Rules,
	}
	if s.TrumpRevealed || (self != engine.NoSeat && self == s.BidWinner) {
		obf.TrumpSuit = s.TrumpSuit
	}
	if s.RoundPopup.Active {
		r := s.RoundPopup
		obf.RoundPopup = &r
	}
	if s.SetPopup.Active {
		sp := s.SetPopup
		obf.SetPopup = &sp
	}

	acting, ok := s.ActingSeat()
	if ok {
		obf.ActingSeat = acting
		obf.CurrentPlayerID = m.Players[acting].ID
		if s.TurnDuration > 0 && !s.TurnStartedAt.IsZero() {
			obf.TurnDeadline = s.TurnStartedAt.Add(s.TurnDuration)
		}
	}

	obf.Players = make([]ObfPlayerState, 0, engine.NumSeats)
	for seat, p := range m.Players {
		ps := ObfPlayerState{
			PlayerID:      p.ID,
			Username:      p.Name(),
			Seat:          seat,
			Team:          engine.Team(seat),
			Kind:          p.Kind,
			Connected:     p.Connected,
			IsCurrentTurn: ok && acting == seat,
			HandSize:      int(s.Hands[seat].Len),
			Bid:           s.Bids[seat],
			Passed:        s.Passed[seat],
		}
		if seat == self {
			ps.RevealedHand = s.Hands[seat].Slice()
		}
		obf.Players = append(obf.Players, ps)
	}
	if self != engine.NoSeat {
		obf.LegalCards = s.LegalCards(self)
	}
	return obf
}

// sendSyncState sends playerID its view of s.
// Assumes lock is held by caller.
func (m *Match) sendSyncState(s engine.GameState, playerID uuid.UUID) {
	obf := m.GetCurrentObfuscatedGameState(s, playerID)
	m.fireEventToPlayer(playerID, GameEvent{Type: EventPrivateSyncState, State: &obf})
}

// broadcastSyncStateToAll sends every human seat its own view of s.
// Assumes lock is held by caller.
func (m *Match) broadcastSyncStateToAll(s engine.GameState) {
	for _, p := range m.Players {
		if p.Autonomous() {
			continue
		}
		m.sendSyncState(s, p.ID)
	}
}
