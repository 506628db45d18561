package game

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAction = errors.New("invalid action")
	ErrMatchNotFound = errors.New("match not found")
	ErrConflict      = errors.New("match was modified concurrently")

	ErrNotYourTurn = fmt.Errorf("%w: not your turn", ErrInvalidAction)
	ErrWrongPhase  = fmt.Errorf("%w: not allowed in current phase", ErrInvalidAction)
	ErrMatchFull   = fmt.Errorf("%w: match already has two players", ErrInvalidAction)
	ErrNotInMatch  = fmt.Errorf("%w: player is not part of this match", ErrInvalidAction)
)

// ErrorCode maps an error to the stable code sent to clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "bad_input"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, ErrMatchFull):
		return "match_full"
	case errors.Is(err, ErrNotInMatch):
		return "not_in_match"
	case errors.Is(err, ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, ErrMatchNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error to the response status of the match API.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotInMatch):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidAction), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrMatchNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// userMessage hides internal errors from clients.
func userMessage(err error) string {
	if ErrorCode(err) == "internal" {
		return "internal error"
	}
	return err.Error()
}
