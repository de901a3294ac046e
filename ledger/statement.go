/*
statement.go - Account statement with running balance

PURPOSE:
  Turns an account's opening balance plus its invoices and payments into an
  ordered ledger where every row carries the running balance. This is the
  customer/vendor statement screen's data source, and its final balance must
  agree with the sum of per-invoice dues - that equivalence is tested, not
  assumed.

ROW MATERIALIZATION:
  - One row per invoice: debit = total payable.
  - One row per payment: credit = paid amount.
  - If the opening balance is non-zero, one synthetic OpeningBalance row
    dated at the zero time so it always sorts first. A positive opening
    balance is a debit, a negative one a credit.
  - Returns do not get statement rows. They reduce stock and show up in the
    return history, not in the cash position. Deliberate; see DESIGN.md.

ORDERING:
  Rows sort by calendar date ascending. Same-day ties break by type
  precedence OpeningBalance < Invoice < Payment, then by store insertion
  sequence. A payment can therefore never precede the invoice it settles
  on the same day, and re-sorting is idempotent regardless of the order
  rows were materialized in.

RUNNING BALANCE:
  balance[i] = balance[i-1] + debit[i] - credit[i], seeded at zero. The
  opening-balance row itself establishes the true starting balance.

  BuildStatement holds no state between calls; re-invoke it with an updated
  transaction set and it rebuilds the whole ledger from scratch.
*/
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATEMENT ROWS
// =============================================================================

// RowType identifies what a statement row was materialized from.
type RowType string

const (
	RowOpeningBalance RowType = "opening_balance"
	RowInvoice        RowType = "invoice"
	RowPayment        RowType = "payment"
)

// rowRank is the same-day tie-break precedence.
func rowRank(t RowType) int {
	switch t {
	case RowOpeningBalance:
		return 0
	case RowInvoice:
		return 1
	default:
		return 2
	}
}

// StatementRow is one line of an account statement.
type StatementRow struct {
	Type        RowType
	Date        time.Time
	RefID       string // invoice or payment ID; empty for the opening row
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.Decimal // running balance after this row
	Seq         int64
}

// =============================================================================
// STATEMENT BUILDER
// =============================================================================

// BuildStatement produces the ordered running-balance ledger for an account.
// invoices and payments must belong to the account; the builder orders them,
// it does not filter ownership.
func BuildStatement(account Account, invoices []Invoice, payments []Payment) []StatementRow {
	rows := make([]StatementRow, 0, len(invoices)+len(payments)+1)

	if !account.OpeningBalance.IsZero() {
		debit := account.OpeningBalance
		credit := decimal.Zero
		if debit.IsNegative() {
			credit = debit.Neg()
			debit = decimal.Zero
		}
		rows = append(rows, StatementRow{
			Type:        RowOpeningBalance,
			Date:        time.Time{}, // zero time sorts before every real date
			Description: "Opening balance",
			Debit:       debit,
			Credit:      credit,
		})
	}

	for _, inv := range invoices {
		rows = append(rows, StatementRow{
			Type:        RowInvoice,
			Date:        inv.Date,
			RefID:       string(inv.ID),
			Description: invoiceDescription(inv.Kind),
			Debit:       inv.TotalPayable(),
			Credit:      decimal.Zero,
			Seq:         inv.Seq,
		})
	}

	for _, p := range payments {
		rows = append(rows, StatementRow{
			Type:        RowPayment,
			Date:        p.Date,
			RefID:       string(p.ID),
			Description: "Payment (" + string(p.Mode) + ")",
			Debit:       decimal.Zero,
			Credit:      p.Amount,
			Seq:         p.Seq,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := day(rows[i].Date), day(rows[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		ri, rj := rowRank(rows[i].Type), rowRank(rows[j].Type)
		if ri != rj {
			return ri < rj
		}
		return rows[i].Seq < rows[j].Seq
	})

	balance := decimal.Zero
	for i := range rows {
		balance = balance.Add(rows[i].Debit).Sub(rows[i].Credit)
		rows[i].Balance = balance
	}

	return rows
}

// ClosingBalance returns the final running balance, or zero for an empty
// statement.
func ClosingBalance(rows []StatementRow) decimal.Decimal {
	if len(rows) == 0 {
		return decimal.Zero
	}
	return rows[len(rows)-1].Balance
}

// day truncates to calendar date in UTC. Statement ordering is day-granular;
// intraday clock times must not defeat the type-precedence tie-break.
func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func invoiceDescription(kind InvoiceKind) string {
	if kind == InvoicePurchase {
		return "Purchase bill"
	}
	return "Sale invoice"
}
