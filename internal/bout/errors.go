package bout

import "errors"

var (
	ErrBoutNotFound           = errors.New("bout not found")
	ErrInvalidStateTransition = errors.New("operation not allowed in current bout state")
	ErrBoutNotRunning         = errors.New("bout is not in progress")
	ErrBoutAlreadyFinalized   = errors.New("bout is already finalized")
	ErrExtensionsExhausted    = errors.New("no extensions remaining")
	ErrConcurrencyConflict    = errors.New("bout was modified concurrently, reload and retry")
	ErrValidation             = errors.New("invalid input")
)
