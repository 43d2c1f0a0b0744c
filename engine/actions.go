package engine

import (
	"fmt"
	"time"
)

// CommandKind identifies a player decision.
type CommandKind uint8

const (
	CmdBid CommandKind = iota
	CmdSelectTrump
	CmdRevealTrump
	CmdDeclarePair
	CmdPlayCard
	CmdBain
	CmdDismissRound
	CmdDismissSet
)

var commandNames = [...]string{
	"bid", "select_trump", "reveal_trump", "declare_pair",
	"play_card", "bain", "dismiss_round", "dismiss_set",
}

func (k CommandKind) String() string {
	if int(k) < len(commandNames) {
		return commandNames[k]
	}
	return fmt.Sprintf("command(%d)", uint8(k))
}

// Command is one decision submitted by a seat, stamped with the server time
// it was accepted at. Amount is read by CmdBid (0 passes), Suit by
// CmdSelectTrump, Card by CmdPlayCard and Escalate by CmdBain.
type Command struct {
	Kind     CommandKind `json:"kind"`
	Seat     int         `json:"seat"`
	Amount   int         `json:"amount,omitempty"`
	Card     Card        `json:"card"`
	Suit     Suit        `json:"suit"`
	Escalate bool        `json:"escalate,omitempty"`
	At       time.Time   `json:"at"`
}

// BidCommand returns a bid (or, with amount 0, a pass) command.
func BidCommand(seat, amount int) Command {
	return Command{Kind: CmdBid, Seat: seat, Amount: amount}
}

// PlayCommand returns a card-play command.
func PlayCommand(seat int, c Card) Command {
	return Command{Kind: CmdPlayCard, Seat: seat, Card: c}
}

// Apply validates c against s and returns the successor state. On any
// rejection the input state is returned unchanged along with the reason.
func Apply(s GameState, c Command) (GameState, error) {
	next := s
	if err := next.apply(c); err != nil {
		return s, err
	}
	next.TurnStartedAt = c.At
	next.TurnDuration = next.Rules.TurnDuration
	next.Version++
	return next, nil
}

// apply mutates g in place. Callers must discard g when it returns an error.
func (g *GameState) apply(c Command) error {
	// Dismissals stay legal after the match ends so the final popups clear.
	switch c.Kind {
	case CmdDismissRound:
		return g.dismissRound()
	case CmdDismissSet:
		return g.dismissSet()
	}

	if g.IsTerminal() {
		return ErrGameOver
	}
	if !ValidSeat(c.Seat) {
		return fmt.Errorf("%w: %d", ErrInvalidSeat, c.Seat)
	}

	switch c.Kind {
	case CmdBid:
		return g.placeBid(c.Seat, c.Amount)
	case CmdSelectTrump:
		return g.selectTrump(c.Seat, c.Suit)
	case CmdRevealTrump:
		return g.revealTrump(c.Seat)
	case CmdDeclarePair:
		return g.declarePair(c.Seat)
	case CmdPlayCard:
		return g.playCard(c.Seat, c.Card)
	case CmdBain:
		return g.resolveBain(c.Seat, c.Escalate)
	}
	return fmt.Errorf("%w: %d", ErrUnknownCommand, c.Kind)
}

func (g *GameState) dismissRound() error {
	if !g.RoundPopup.Active {
		return ErrNoPopup
	}
	g.RoundPopup.Active = false
	return nil
}

func (g *GameState) dismissSet() error {
	if !g.SetPopup.Active {
		return ErrNoPopup
	}
	g.SetPopup.Active = false
	return nil
}
