package session

import (
	"context"
	"errors"
	"fmt"

	"poker-club/internal/game"
)

var (
	ErrTableClosed = errors.New("table_closed")
	ErrTableExists = errors.New("table_exists")
	ErrNoTable     = errors.New("table_not_found")
	ErrSeatToken   = errors.New("seat_token_invalid")

	ErrFeatureDisabled = fmt.Errorf("%w: feature disabled", game.ErrIllegalAction)
)

// ErrorCode maps a command error to the snake_case code clients see.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, game.ErrStaleTurn):
		return "stale_turn"
	case errors.Is(err, game.ErrInvalidTurn):
		return "invalid_turn"
	case errors.Is(err, ErrFeatureDisabled):
		return "feature_disabled"
	case errors.Is(err, game.ErrIllegalAction):
		return "illegal_action"
	case errors.Is(err, game.ErrInsufficientStack):
		return "insufficient_stack"
	case errors.Is(err, game.ErrSeatUnavailable):
		return "seat_unavailable"
	case errors.Is(err, game.ErrTableNotReady):
		return "table_not_ready"
	case errors.Is(err, game.ErrConnectionExhausted):
		return "connection_exhausted"
	case errors.Is(err, ErrTableClosed):
		return "table_closed"
	case errors.Is(err, ErrNoTable):
		return "table_not_found"
	case errors.Is(err, ErrTableExists):
		return "table_exists"
	case errors.Is(err, ErrSeatToken):
		return "seat_token_invalid"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "request_cancelled"
	default:
		return "internal_error"
	}
}
