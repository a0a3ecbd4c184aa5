package registry

import "errors"

var (
	// ErrInvalidInput is returned when a request has no hosts, no interfaces
	// or no backend. The registry is left unchanged.
	ErrInvalidInput = errors.New("invalid registration")

	// ErrAlreadyExists is returned under PolicyError when the target slot of
	// some group already holds a backend.
	ErrAlreadyExists = errors.New("cannot overwrite existing server")

	// ErrUnknownPolicy is returned by ParsePolicy.
	ErrUnknownPolicy = errors.New("unknown overwrite policy")
)
