package server

import (
	"errors"
	"net/http"

	"github.com/jackc/pgconn"
)

// Sentinel errors for the rule checks that run before any mutation.
// Handlers map them to HTTP statuses in one place; everything else is
// treated as an internal error.
var (
	errGameNotFound   = errors.New("game not found")
	errRunNotFound    = errors.New("run not found")
	errUserNotFound   = errors.New("user not found")
	errVotingClosed   = errors.New("voting is closed for this game")
	errInvalidStatus  = errors.New("invalid game status")
	errInvalidVote    = errors.New("vote value must be 0 or 1")
	errInvalidScore   = errors.New("score must be between 1 and 10")
	errNotPlayer      = errors.New("only players of this game may rate runs")
	errDuplicateTitle = errors.New("a game with this title already exists")
	errDuplicateAPIID = errors.New("a game with this provider id already exists")
	errForbidden      = errors.New("forbidden")
	errNoProviders    = errors.New("no metadata provider contributed")
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, errGameNotFound), errors.Is(err, errRunNotFound), errors.Is(err, errUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, errVotingClosed), errors.Is(err, errInvalidStatus),
		errors.Is(err, errInvalidVote), errors.Is(err, errInvalidScore):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNotPlayer), errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, errDuplicateTitle), errors.Is(err, errDuplicateAPIID):
		return http.StatusConflict
	case errors.Is(err, errNoProviders):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
