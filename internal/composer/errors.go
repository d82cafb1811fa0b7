package composer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrSelectionRejected  = errors.New("selection rejected")
	ErrSubmissionConflict = errors.New("submission rejected")
	ErrTransport          = errors.New("transport failure")
	ErrSubmitInFlight     = errors.New("submission already in flight")
	ErrUnknownItem        = errors.New("unknown catalog item")
)

// ValidationError is returned by Submit before any network call is made.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type RejectReason string

const (
	ReasonOutOfStock RejectReason = "OUT_OF_STOCK"
	ReasonStockBound RejectReason = "STOCK_BOUND"
)

// SelectionRejected reports a selection or quantity change that was ignored
// or bounded. The composition is still consistent when it is returned.
type SelectionRejected struct {
	ItemID string
	Reason RejectReason
	Bound  int
}

func (e *SelectionRejected) Error() string {
	if e.Reason == ReasonStockBound {
		return fmt.Sprintf("medicine %s: quantity limited to %d", e.ItemID, e.Bound)
	}
	return fmt.Sprintf("medicine %s: out of stock", e.ItemID)
}

func (e *SelectionRejected) Is(target error) bool { return target == ErrSelectionRejected }

// Shortage describes one medicine line the sink could not fill.
type Shortage struct {
	ItemID    string `json:"item_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// SubmissionConflict is the sink's rejection of a commit, e.g. stock taken
// by a concurrent order. Sinks return it to signal a non-transport failure.
type SubmissionConflict struct {
	Reason    string
	Shortages []Shortage
}

func (e *SubmissionConflict) Error() string {
	if e.Reason == "" {
		return ErrSubmissionConflict.Error()
	}
	return e.Reason
}

func (e *SubmissionConflict) Is(target error) bool { return target == ErrSubmissionConflict }

// TransportFailure wraps network errors and timeouts raised while committing.
type TransportFailure struct {
	Err     error
	Timeout bool
}

func (e *TransportFailure) Error() string {
	if e.Timeout {
		return "submission timed out: " + e.Err.Error()
	}
	return "submission failed: " + e.Err.Error()
}

func (e *TransportFailure) Unwrap() error { return e.Err }

func (e *TransportFailure) Is(target error) bool { return target == ErrTransport }

// Retryable reports whether resubmitting the same composition is reasonable.
// The composer itself never retries.
func (e *TransportFailure) Retryable() bool { return true }
