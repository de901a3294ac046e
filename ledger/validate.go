/*
validate.go - Payment and return validators

PURPOSE:
  Gatekeepers for the only two mutations the core accepts. A validator takes
  the proposed mutation plus the complete prior history it must be checked
  against, and either emits a record ready for append or a RejectionError
  with the specific reason. Nothing is ever partially applied: a rejection
  writes nothing.

PAYMENT RULES:
  - amount must be > 0                          (NonPositiveAmount)
  - amount must not exceed the current due      (ExceedsDue, strict)
  - mode fields are mutually exclusive          (InvalidModeFields)

  Overpayment is rejected outright. A business that wants credit for genuine
  overpayment models it as a separate credit-note entity, not as a payment.

RETURN RULES:
  - quantity must be > 0                        (NonPositiveQuantity)
  - quantity + all prior returned quantity on the same line item must not
    exceed the sold quantity                    (ExceedsSoldQuantity)

  The accepted Return snapshots the line item's unit price at validation
  time. Later product price changes never change past returns.

CONCURRENCY:
  Validators are pure; they see only the history the caller read. The race
  where two concurrent payments both validate against a stale due is closed
  at the store boundary: the caller reads history at version v and the
  append is compare-and-append on v. See store.go.
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT VALIDATOR
// =============================================================================

// PaymentRequest is a proposed payment against one invoice.
type PaymentRequest struct {
	Amount decimal.Decimal
	Date   time.Time
	Mode   PaymentMode

	// Bank mode only.
	BankName    string
	BankAccount string

	// Cheque mode only.
	ChequeNumber string
}

// ValidatePayment checks a proposed payment against the invoice's current
// due, computed from the complete existing payment set. On success it
// returns a Payment record ready for append; the store sequence fields are
// filled in by the store at append time.
func ValidatePayment(inv Invoice, existing []Payment, req PaymentRequest) (Payment, error) {
	if !req.Amount.IsPositive() {
		return Payment{}, reject(ReasonNonPositiveAmount, req.Amount, decimal.Zero)
	}

	if err := validateModeFields(req); err != nil {
		return Payment{}, err
	}

	due := Settle(inv, existing).Due
	if req.Amount.GreaterThan(due) {
		return Payment{}, reject(ReasonExceedsDue, req.Amount, due)
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	return Payment{
		ID:           PaymentID(uuid.NewString()),
		InvoiceID:    inv.ID,
		Date:         date,
		Mode:         req.Mode,
		Amount:       req.Amount,
		BankName:     req.BankName,
		BankAccount:  req.BankAccount,
		ChequeNumber: req.ChequeNumber,
	}, nil
}

func validateModeFields(req PaymentRequest) error {
	switch req.Mode {
	case ModeCash:
		if req.BankName != "" || req.BankAccount != "" || req.ChequeNumber != "" {
			return rejectf(ReasonInvalidModeFields, "cash payment carries bank or cheque fields")
		}
	case ModeBank:
		if req.ChequeNumber != "" {
			return rejectf(ReasonInvalidModeFields, "bank payment carries a cheque number")
		}
		if req.BankName == "" {
			return rejectf(ReasonInvalidModeFields, "bank payment requires a bank name")
		}
	case ModeCheque:
		if req.BankName != "" || req.BankAccount != "" {
			return rejectf(ReasonInvalidModeFields, "cheque payment carries bank fields")
		}
		if req.ChequeNumber == "" {
			return rejectf(ReasonInvalidModeFields, "cheque payment requires a cheque number")
		}
	default:
		return rejectf(ReasonInvalidModeFields, "unknown payment mode %q", req.Mode)
	}
	return nil
}

// =============================================================================
// RETURN VALIDATOR
// =============================================================================

// ReturnRequest is a proposed return against one sold line item.
type ReturnRequest struct {
	Quantity decimal.Decimal
	Date     time.Time
	Remarks  string
}

// ValidateReturn checks a proposed return against the originating line item
// and all prior returns on that line. On success the returned Return carries
// a snapshot of the line item's current unit price.
//
// The validator does not adjust stock. The emitted record must be appended
// to the store atomically with the stock adjustment; see Service.SubmitReturn.
func ValidateReturn(line LineItem, prior []Return, req ReturnRequest) (Return, error) {
	if !req.Quantity.IsPositive() {
		return Return{}, reject(ReasonNonPositiveQuantity, req.Quantity, decimal.Zero)
	}

	returnable := line.Quantity.Sub(ReturnedQuantity(prior))
	if req.Quantity.GreaterThan(returnable) {
		return Return{}, reject(ReasonExceedsSoldQuantity, req.Quantity, returnable)
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	return Return{
		ID:         ReturnID(uuid.NewString()),
		LineItemID: line.ID,
		InvoiceID:  line.InvoiceID,
		Date:       date,
		Quantity:   req.Quantity,
		UnitPrice:  line.UnitPrice, // price snapshot, fixed at validation time
		Remarks:    req.Remarks,
	}, nil
}
