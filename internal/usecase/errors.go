package usecase

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAmbiguousMatch      = errors.New("ambiguous identity match")
	ErrAlreadyArchived     = errors.New("game already archived")
	ErrIncompleteLifecycle = errors.New("incomplete line lifecycle")
	ErrStoreUnavailable    = errors.New("store unavailable")

	// ErrDependencyUnavailable marks failures of upstream feed providers,
	// including circuit breaker rejections.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
