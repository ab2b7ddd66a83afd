package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/anshumansaged/kyokushin--sub000/internal/bout"
	"github.com/anshumansaged/kyokushin--sub000/internal/bracket"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	http.Error(w, msg, http.StatusNotFound)
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	slog.Warn("conflict", "message", msg, "error", err)
	http.Error(w, msg, http.StatusConflict)
}

// WriteError maps the core's sentinel errors onto HTTP statuses so the
// route handlers stay free of error-classification chains.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bracket.ErrBracketNotFound),
		errors.Is(err, bracket.ErrMatchNotFound),
		errors.Is(err, bout.ErrBoutNotFound):
		NotFound(w, err.Error(), err)
	case errors.Is(err, bracket.ErrValidation),
		errors.Is(err, bout.ErrValidation),
		errors.Is(err, bracket.ErrInsufficientParticipants),
		errors.Is(err, bracket.ErrInvalidWinner):
		BadRequest(w, err.Error(), err)
	case errors.Is(err, bracket.ErrInvalidStateTransition),
		errors.Is(err, bout.ErrInvalidStateTransition),
		errors.Is(err, bout.ErrBoutNotRunning),
		errors.Is(err, bout.ErrBoutAlreadyFinalized),
		errors.Is(err, bout.ErrExtensionsExhausted),
		errors.Is(err, bout.ErrConcurrencyConflict):
		Conflict(w, err.Error(), err)
	default:
		InternalServerError(w, "unexpected error", err)
	}
}
