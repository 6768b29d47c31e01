package mint

import (
	"errors"
	"fmt"
)

var (
	// ErrClientUnavailable means no blockchain client handle is configured; callers skip the update
	ErrClientUnavailable = errors.New("blockchain client unavailable")

	// ErrIdentityUnavailable means the wallet exposes no address; the workflow aborts without retry
	ErrIdentityUnavailable = errors.New("wallet address unavailable")

	// ErrInvalidAmount rejects non-positive deposit amounts
	ErrInvalidAmount = errors.New("deposit amount must be positive")

	// ErrConfirmationTimeout means no qualifying receipt was seen before the timeout.
	// The transaction may still confirm later.
	ErrConfirmationTimeout = errors.New("transaction not confirmed before timeout")

	// ErrReceiptUnavailable means the receipt poll exhausted its retry budget on transport errors
	ErrReceiptUnavailable = errors.New("receipt polling retries exhausted")

	// ErrTransactionReverted means the transaction was mined with a failed status
	ErrTransactionReverted = errors.New("transaction reverted")
)

// SimulationError is returned when the dry run of a call is rejected; nothing was broadcast
type SimulationError struct {
	Method string
	Reason string
	Err    error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation of %s failed: %s", e.Method, e.Reason)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

// SubmissionError is returned when signing or broadcasting fails
type SubmissionError struct {
	Method string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission of %s failed: %v", e.Method, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// IsIndeterminate reports whether err leaves a submitted transaction's outcome unknown
func IsIndeterminate(err error) bool {
	return errors.Is(err, ErrConfirmationTimeout) || errors.Is(err, ErrReceiptUnavailable)
}
