package game

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTurn         = errors.New("invalid_turn")
	ErrIllegalAction       = errors.New("illegal_action")
	ErrInsufficientStack   = errors.New("insufficient_stack")
	ErrSeatUnavailable     = errors.New("seat_unavailable")
	ErrTableNotReady       = errors.New("table_not_ready")
	ErrConnectionExhausted = errors.New("connection_exhausted")

	// ErrStaleTurn is an action aimed at a turn that already moved on,
	// usually because a timeout fired first.
	ErrStaleTurn = fmt.Errorf("%w: stale turn", ErrInvalidTurn)

	// Fatal to the hand in progress; the engine aborts and refunds.
	ErrDeckExhausted = errors.New("deck_exhausted")
	ErrCorruptPot    = errors.New("corrupt_pot")
)

func illegal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalAction, fmt.Sprintf(format, args...))
}
