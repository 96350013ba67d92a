package domain

import "errors"

var (
	// ErrInvalidDimension is returned by the geometry engine when a required
	// dimension is missing or not positive. Non-fatal: no result is produced.
	ErrInvalidDimension = errors.New("invalid shape dimension")
	// ErrNotFound indicates a document does not exist in the store.
	ErrNotFound = errors.New("document not found")
	// ErrConflict indicates a create raced with an existing document.
	ErrConflict = errors.New("document already exists")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrAttemptNotFound is returned when no quiz attempt exists for a session.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrAttemptInProgress is returned when restarting is requested on an
	// attempt that has not completed yet.
	ErrAttemptInProgress = errors.New("quiz attempt still in progress")
)
