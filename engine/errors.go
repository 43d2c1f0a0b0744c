package engine

import "errors"

// Rejection reasons returned by Apply. Callers match them with errors.Is.
var (
	ErrOutOfTurn      = errors.New("not your turn")
	ErrDuplicatePlay  = errors.New("seat already played to this trick")
	ErrCardNotOwned   = errors.New("card not in hand")
	ErrMustFollowSuit = errors.New("must follow the led suit")

	ErrInvalidBid    = errors.New("invalid bid")
	ErrAlreadyPassed = errors.New("seat has already passed")

	ErrNotBidWinner         = errors.New("only the bid winner may do that")
	ErrTrumpAlreadySelected = errors.New("trump already selected")
	ErrTrumpNotSelected     = errors.New("trump not selected yet")
	ErrInvalidSuit          = errors.New("invalid suit")
	ErrNoLedSuit            = errors.New("no suit has been led")
	ErrCanFollowSuit        = errors.New("seat can follow the led suit")
	ErrTrumpRevealed        = errors.New("trump already revealed")
	ErrTrumpNotRevealed     = errors.New("trump not revealed")
	ErrNoPairHeld           = errors.New("king and queen of trump not held")
	ErrPairAlreadyDeclared  = errors.New("pair already declared this round")

	ErrBainPending = errors.New("double/redouble decision pending")
	ErrNotEligible = errors.New("seat not eligible for this decision")

	ErrNoPopup        = errors.New("nothing to dismiss")
	ErrInvalidSeat    = errors.New("invalid seat")
	ErrWrongPhase     = errors.New("action not allowed in this phase")
	ErrGameOver       = errors.New("game is already over")
	ErrUnknownCommand = errors.New("unknown command")
)

