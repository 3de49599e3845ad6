package orders

import (
	"errors"
	"strings"

	"storefront/internal/store"
)

var (
	// ErrSignatureMismatch means the payment callback could not be proven to
	// come from the gateway. Nothing is persisted when it is returned.
	ErrSignatureMismatch = errors.New("payment verification failed")
	ErrNotFound          = store.ErrNotFound
	// ErrPaymentRecorded means the gateway order already has a stored order.
	ErrPaymentRecorded   = store.ErrPaymentRecorded
)

// ValidationError reports input rejected before any external call.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func invalid(problems ...string) error {
	return &ValidationError{Problems: problems}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
