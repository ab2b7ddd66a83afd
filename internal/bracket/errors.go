package bracket

import "errors"

var (
	ErrBracketNotFound          = errors.New("bracket not found")
	ErrMatchNotFound            = errors.New("match not found")
	ErrInsufficientParticipants = errors.New("at least 2 participants are required")
	ErrInvalidWinner            = errors.New("winner is not part of this match")
	ErrInvalidStateTransition   = errors.New("operation not allowed in current bracket state")
	ErrValidation               = errors.New("invalid input")
)
