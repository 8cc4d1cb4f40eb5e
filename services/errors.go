// services/errors.go
package services

import "errors"

var (
	// ErrNotAuthenticated: no user id reached the service layer.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrBookNotFound: book does not exist or is not published.
	ErrBookNotFound = errors.New("book not found")

	// ErrDuplicateValidation: the segment was already validated. Benign —
	// callers receive the original record and treat the call as success.
	ErrDuplicateValidation = errors.New("segment already validated")

	// ErrQuotaExceeded: no jokers left for this book. Not retryable.
	ErrQuotaExceeded = errors.New("no jokers left for this book")

	// ErrIntegrityViolation: segment out of order (skipping ahead). Not
	// retryable; surfaced to the caller.
	ErrIntegrityViolation = errors.New("segment out of order")

	// ErrFetchInFlight: another fetch for the same key is still running.
	ErrFetchInFlight = errors.New("fetch already in flight")

	// ErrRefreshTooSoon: refresh rejected by the minimum-interval guard.
	ErrRefreshTooSoon = errors.New("refresh requested too soon")

	// ErrControllerClosed: the refresh controller was torn down.
	ErrControllerClosed = errors.New("refresh controller closed")
)
