/*
Package ledger provides the settlement and statement core.

PURPOSE:
  This package contains the data model and pure calculators for the one
  subsystem of the dashboard with real correctness risk: deciding how much
  is owed on an invoice or bill, what settlement status it currently has,
  and what an account's chronological running balance looks like. Every
  screen that shows a due amount, a status chip, or a statement must get
  the number from here, so the numbers agree everywhere.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: a customer or vendor with a signed opening balance
  - Invoice: a sale invoice or purchase bill with immutable line items
  - Payment: one settlement event against exactly one invoice
  - Return: a partial reversal of one sold line item's quantity
  - Status: the derived settlement status of an invoice

DESIGN PRINCIPLES:
  1. Derived, never stored: paid/due/status/balance are recomputed from the
     transaction log on every read. There is no mutable "due" field to drift.
  2. Precision: decimal.Decimal for every amount and quantity, never float64.
  3. Immutability: invoices, payments and returns are append-only records.
     Corrections are new records, not edits.

SEE ALSO:
  - settlement.go: due/status calculator
  - validate.go:   payment and return validators
  - statement.go:  running-balance statement builder
  - report.go:     portfolio aggregation
  - store.go:      transaction store boundary
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type InvoiceID string
type LineItemID string
type PaymentID string
type ReturnID string

// =============================================================================
// ACCOUNT - Customer or vendor
// =============================================================================

type AccountKind string

const (
	// AccountCustomer: positive opening balance means the customer owes the business.
	AccountCustomer AccountKind = "customer"
	// AccountVendor: positive opening balance means the business owes the vendor.
	AccountVendor AccountKind = "vendor"
)

// Account is a customer or vendor. The sign convention of OpeningBalance is
// fixed by Kind at creation and never flipped afterwards.
type Account struct {
	ID             AccountID
	Name           string
	Kind           AccountKind
	OpeningBalance decimal.Decimal
	CreatedAt      time.Time
}

// =============================================================================
// INVOICE - Sale invoice or purchase bill (structurally identical)
// =============================================================================

type InvoiceKind string

const (
	InvoiceSale     InvoiceKind = "sale"
	InvoicePurchase InvoiceKind = "purchase"
)

// LineItem is one product/quantity/price entry within an invoice.
// Line items are immutable after invoice creation; returns reference them,
// they never mutate them.
type LineItem struct {
	ID          LineItemID
	InvoiceID   InvoiceID
	ProductID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Total returns quantity x unit price for this line.
func (li LineItem) Total() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Invoice represents one transaction: a sale invoice (customer owes us) or a
// purchase bill (we owe the vendor). Totals are always recomputed from the
// line items; they are never stored independently of their inputs.
type Invoice struct {
	ID             InvoiceID
	AccountID      AccountID
	Kind           InvoiceKind
	Date           time.Time
	Lines          []LineItem
	DiscountAmount decimal.Decimal

	// Seq is the insertion sequence assigned by the store. It breaks
	// same-day ordering ties in statements deterministically.
	Seq       int64
	CreatedAt time.Time
}

// TotalAmount is the sum of all line totals before discount.
func (inv Invoice) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, li := range inv.Lines {
		total = total.Add(li.Total())
	}
	return total
}

// TotalPayable is the amount owed on the invoice after discount, before payments.
func (inv Invoice) TotalPayable() decimal.Decimal {
	return inv.TotalAmount().Sub(inv.DiscountAmount)
}

// Line looks up a line item by ID.
func (inv Invoice) Line(id LineItemID) (LineItem, bool) {
	for _, li := range inv.Lines {
		if li.ID == id {
			return li, true
		}
	}
	return LineItem{}, false
}

// Malformed reports whether the invoice cannot be settled meaningfully:
// a negative line quantity or unit price, or a negative discount. Malformed
// invoices are excluded (and counted) by the aggregation reporter rather
// than silently dropped.
func (inv Invoice) Malformed() bool {
	if inv.DiscountAmount.IsNegative() {
		return true
	}
	for _, li := range inv.Lines {
		if li.Quantity.IsNegative() || li.UnitPrice.IsNegative() {
			return true
		}
	}
	return false
}

// =============================================================================
// PAYMENT - One settlement event against exactly one invoice
// =============================================================================

type PaymentMode string

const (
	ModeCash   PaymentMode = "cash"
	ModeBank   PaymentMode = "bank"
	ModeCheque PaymentMode = "cheque"
)

// Payment records money received (sale) or paid out (purchase bill) against
// one invoice. Mode-specific fields are mutually exclusive: bank fields are
// only valid for ModeBank, the cheque number only for ModeCheque.
// Payments are append-only; a mistaken payment is superseded by a corrective
// record, never deleted.
type Payment struct {
	ID        PaymentID
	InvoiceID InvoiceID
	Date      time.Time
	Mode      PaymentMode
	Amount    decimal.Decimal

	// Bank mode only.
	BankName    string
	BankAccount string

	// Cheque mode only.
	ChequeNumber string

	// Seq is the insertion sequence assigned by the store.
	Seq       int64
	CreatedAt time.Time
}

// =============================================================================
// RETURN - Partial or full reversal of one line item's quantity
// =============================================================================

// Return reverses part of a sold line item's quantity. UnitPrice is a
// snapshot of the line item's price at validation time, so later price
// changes to the product never retroactively change past returns.
//
// INVARIANT: for a line item, sum(returns.Quantity) <= LineItem.Quantity.
// The return validator enforces this before a return is ever accepted.
type Return struct {
	ID         ReturnID
	LineItemID LineItemID
	InvoiceID  InvoiceID
	Date       time.Time
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Remarks    string
	CreatedAt  time.Time
}

// Amount is quantity x snapshotted unit price.
func (r Return) Amount() decimal.Decimal {
	return r.Quantity.Mul(r.UnitPrice)
}

// ReturnedAmount sums the amounts of a set of returns.
func ReturnedAmount(returns []Return) decimal.Decimal {
	total := decimal.Zero
	for _, r := range returns {
		total = total.Add(r.Amount())
	}
	return total
}

// ReturnedQuantity sums the quantities of a set of returns.
func ReturnedQuantity(returns []Return) decimal.Decimal {
	total := decimal.Zero
	for _, r := range returns {
		total = total.Add(r.Quantity)
	}
	return total
}

// =============================================================================
// SETTLEMENT STATUS
// =============================================================================

type Status string

const (
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusNotApplicable Status = "not_applicable"
)

// ValidStatus reports whether s is one of the four settlement statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusUnpaid, StatusPartiallyPaid, StatusPaid, StatusNotApplicable:
		return true
	}
	return false
}
