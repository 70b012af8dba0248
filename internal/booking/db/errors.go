package db

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no order exists with the given id.
	ErrNotFound = errors.New("order not found")

	// ErrInvalidTransition means the requested status change violates the
	// order state machine. It signals a client or logic bug, not a retry.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrAlreadyProcessed is returned to the losers of a concurrent
	// conditional update. It is not a failure: the order already carries a
	// transaction reference and callers should treat the call as an
	// idempotent no-op.
	ErrAlreadyProcessed = errors.New("order already processed")
)

// ValidationError reports bad input. It is never retried automatically;
// the caller must correct the request and resubmit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
