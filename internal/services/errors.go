package services

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable means the payment gateway could not be reached
	// or timed out. The purchase request is marked Failed; the caller may
	// retry, which creates a fresh request with a new idempotency key.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayRejected means the gateway answered but refused to queue
	// the debit. The purchase request is marked Failed.
	ErrGatewayRejected = errors.New("payment gateway rejected the request")

	// ErrInsufficientPoints means the account held fewer points than the
	// redemption threshold at the moment of the atomic update.
	ErrInsufficientPoints = errors.New("insufficient points to redeem")

	// ErrAccountNotFound means the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists means an account with that phone number already exists.
	ErrAccountExists = errors.New("account already exists")
)

// ValidationError reports an invalid purchase request. No state is created
// and no external call is made when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
