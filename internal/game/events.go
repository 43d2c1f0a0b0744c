// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
)

// OnGameEndFunc is called once when a match completes, with the two players
// of the winning team and the final set scores.
type OnGameEndFunc func(matchID uuid.UUID, winners []uuid.UUID, gamePoints [engine.NumTeams]int)

// GameEventType names an event sent to clients.
type GameEventType string

const (
	EventBidPlaced         GameEventType = "bid_placed"          // Public: a seat bid or matched.
	EventBidPassed         GameEventType = "bid_passed"          // Public: a seat passed.
	EventTrumpSelected     GameEventType = "trump_selected"      // Public: the bid winner chose trump (suit hidden).
	EventTrumpRevealed     GameEventType = "trump_revealed"      // Public: trump suit made known.
	EventPairDeclared      GameEventType = "pair_declared"       // Public: K+Q of trump declared, target adjusted.
	EventBainResolved      GameEventType = "bain_resolved"       // Public: double or redouble decided.
	EventCardPlayed        GameEventType = "card_played"         // Public: a card went to the trick.
	EventTrickWon          GameEventType = "trick_won"           // Public: a trick completed.
	EventRoundScored       GameEventType = "round_scored"        // Public: round result, shown until dismissed.
	EventSetEnd            GameEventType = "set_end"             // Public: a set finished.
	EventGameEnd           GameEventType = "game_end"            // Public: match over, includes results.
	EventPlayerTurn        GameEventType = "player_turn"         // Public: who must act next.
	EventPlayerTimeout     GameEventType = "player_timeout"      // Public: the stall guard acted for a seat.
	EventPrivateSyncState  GameEventType = "private_sync_state"  // Private: the recipient's view of the match.
	EventPrivateActionFail GameEventType = "private_action_fail" // Private: the recipient's command was rejected.
)

// EventUser identifies a seated player within a GameEvent.
type EventUser struct {
	ID   uuid.UUID `json:"id"`
	Seat int       `json:"seat"`
}

// GameEvent is the envelope for everything sent to clients.
type GameEvent struct {
	Type GameEventType `json:"type"`
	User *EventUser    `json:"user,omitempty"`
	Card *engine.Card  `json:"card,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	State *ObfGameState `json:"state,omitempty"` // Sync events only.
}
