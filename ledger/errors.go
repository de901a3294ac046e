/*
errors.go - Centralized error types for the settlement core

PURPOSE:
  All error types in one place. The taxonomy is deliberately small:

  1. Rejections - a proposed payment or return failed validation. Always
     recoverable locally, always carries the specific reason, never
     partially applied.
  2. Conflicts - the compare-and-append detected a concurrent write.
     Recoverable by re-fetch-and-revalidate; the core never retries
     silently on the caller's behalf.
  3. Not-found / store failures - surfaced unchanged from the store.

  There are no fatal errors inside the core itself.

USAGE:
  p, err := svc.SubmitPayment(ctx, invID, req)
  if ledger.IsRejection(err) {
      var rej *ledger.RejectionError
      errors.As(err, &rej)
      // rej.Reason says exactly why
  }
  if ledger.IsConflict(err) {
      // re-fetch and re-validate, do not blindly resubmit
  }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrVersionConflict is returned when a compare-and-append fails because
	// another payment or return was appended since the caller's read.
	ErrVersionConflict = errors.New("version conflict: transaction set changed since read")

	// ErrRejected is the root of all validation rejections.
	ErrRejected = errors.New("validation rejected")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrLineItemNotFound is returned when a referenced line item doesn't exist.
	ErrLineItemNotFound = errors.New("line item not found")

	// ErrDuplicateID is returned when creating a record whose ID already exists.
	ErrDuplicateID = errors.New("duplicate identifier")
)

// =============================================================================
// REJECTION - Validation failure with the specific reason
// =============================================================================

// RejectReason identifies why a proposed payment or return was rejected.
type RejectReason string

const (
	// Payment rejections.
	ReasonNonPositiveAmount RejectReason = "non_positive_amount"
	ReasonExceedsDue        RejectReason = "exceeds_due"
	ReasonInvalidModeFields RejectReason = "invalid_mode_fields"

	// Return rejections.
	ReasonNonPositiveQuantity RejectReason = "non_positive_quantity"
	ReasonExceedsSoldQuantity RejectReason = "exceeds_sold_quantity"
)

// RejectionError reports a rejected mutation. A rejection is final and
// carries no partial state; nothing was written.
type RejectionError struct {
	Reason    RejectReason
	Requested decimal.Decimal
	Allowed   decimal.Decimal // remaining due or remaining returnable quantity
	Detail    string
}

func (e *RejectionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s: requested %s, allowed %s", e.Reason, e.Requested, e.Allowed)
}

func (e *RejectionError) Unwrap() error { return ErrRejected }

func reject(reason RejectReason, requested, allowed decimal.Decimal) *RejectionError {
	return &RejectionError{Reason: reason, Requested: requested, Allowed: allowed}
}

func rejectf(reason RejectReason, format string, args ...any) *RejectionError {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRejection returns true if the error is a validation rejection.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRejected)
}

// ReasonOf extracts the rejection reason, or "" if err is not a rejection.
func ReasonOf(err error) RejectReason {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

// IsConflict returns true if the error is a concurrency conflict. The caller
// should re-fetch and re-validate, never resubmit the original request blind.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrLineItemNotFound)
}
