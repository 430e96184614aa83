package services

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidAmount is returned when a ledger operation is called with a
	// non-positive amount. Direction is encoded by the operation, never by sign.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds means the balance check failed while the wallet
	// row lock was held.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares means a settlement would oversell the project,
	// detected after acquiring the project row lock.
	ErrInsufficientShares = errors.New("insufficient shares available")

	// ErrConcurrencyConflict means an optimistic version check failed.
	// The atomic unit rolled back; the caller may safely retry.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrDistributionInProgress means another dividend distribution for the
	// same project holds the distribution lock.
	ErrDistributionInProgress = errors.New("distribution already in progress for project")

	ErrWalletNotFound  = errors.New("wallet not found")
	ErrProjectNotFound = errors.New("project not found")
)

// ValidationError collects every violated precondition so the caller can
// surface all of them in one round trip. No mutation happened when it is
// returned.
type ValidationError struct {
	Reasons []string `json:"reasons"`
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
