package httptransport

import (
	"net/http"

	"poker-club/internal/session"
)

// MapCommandError turns a command error into a status and error code.
func MapCommandError(err error) (int, string) {
	code := session.ErrorCode(err)
	switch code {
	case "stale_turn", "invalid_turn", "seat_unavailable", "table_not_ready", "table_exists":
		return http.StatusConflict, code
	case "illegal_action", "feature_disabled", "insufficient_stack":
		return http.StatusUnprocessableEntity, code
	case "connection_exhausted", "table_closed":
		return http.StatusGone, code
	case "table_not_found":
		return http.StatusNotFound, code
	case "seat_token_invalid":
		return http.StatusUnauthorized, code
	case "request_cancelled":
		return http.StatusRequestTimeout, code
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
