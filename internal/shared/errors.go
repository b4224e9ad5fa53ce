package shared

import "errors"

// Error kinds shared across domain packages. Services wrap these with %w and
// context (record type, identifier); the HTTP boundary maps each kind to a
// stable status code.
var (
	// ErrNotFound indicates a missing client, article or order.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a malformed or missing input field.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique-key collision (article number, client email).
	ErrDuplicate = errors.New("already exists")
	// ErrInsufficientStock indicates a reservation exceeding available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStateConflict indicates an operation invalid for the record's current status.
	ErrStateConflict = errors.New("state conflict")
)
