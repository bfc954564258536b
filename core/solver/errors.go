package solver

import "errors"

var (
	// ErrCompileFailed is returned when the model cannot be (re)compiled.
	ErrCompileFailed = errors.New("solver: compile failed")
	// ErrSolveFailed is returned when a time step does not converge.
	ErrSolveFailed = errors.New("solver: solve step failed")
	// ErrCommandRejected is returned when the engine refuses a command.
	ErrCommandRejected = errors.New("solver: command rejected")
	// ErrNoSession is returned when a session is used before Reset.
	ErrNoSession = errors.New("solver: session not initialised")
)
