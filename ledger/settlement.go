/*
settlement.go - Due amount and settlement status calculator

PURPOSE:
  The single answer to "how much is owed on this invoice and what state is
  it in?". The dashboard screens used to compute this independently (invoice
  list, bills list, payment dialog, statements) with subtly different rules;
  this calculator is the one authoritative path.

CONTRACT:
  Settle(invoice, payments) -> {Paid, Due, Status}

  - Deterministic function of its inputs, no hidden state, no side effects.
  - The caller supplies the complete current payment set for the invoice.
  - Due is never negative.
  - Missing/zero fields count as zero; the calculator never panics on
    absent optional data.

STATUS PRECEDENCE (evaluated in this order):
  NotApplicable  payable <= 0, regardless of payments
  Paid           due == 0
  Unpaid         paid == 0 and payable > 0
  PartiallyPaid  everything else (0 < paid, due > 0)

  A zero-payable invoice with no payments is NotApplicable, not Paid:
  NotApplicable is checked first.
*/
package ledger

import "github.com/shopspring/decimal"

// Settlement is the derived settlement state of one invoice.
type Settlement struct {
	Paid   decimal.Decimal
	Due    decimal.Decimal
	Status Status
}

// Settle computes paid/due/status for one invoice from its complete payment
// set. Payments referencing a different invoice are ignored rather than
// summed; supplying a mismatched set is the caller's bug, but it must not
// corrupt the numbers of this invoice.
func Settle(inv Invoice, payments []Payment) Settlement {
	paid := decimal.Zero
	for _, p := range payments {
		if p.InvoiceID != "" && inv.ID != "" && p.InvoiceID != inv.ID {
			continue
		}
		paid = paid.Add(p.Amount)
	}

	payable := inv.TotalPayable()

	due := payable.Sub(paid)
	if due.IsNegative() {
		due = decimal.Zero
	}

	var status Status
	switch {
	case !payable.IsPositive():
		status = StatusNotApplicable
	case due.IsZero():
		status = StatusPaid
	case paid.IsZero():
		status = StatusUnpaid
	default:
		status = StatusPartiallyPaid
	}

	return Settlement{Paid: paid, Due: due, Status: status}
}
