/*
report.go - Portfolio aggregation across many invoices

PURPOSE:
  Folds a set of invoices (optionally filtered) into the totals the list
  screens and dashboards show: how much is payable in total, how much has
  been paid, how much is still due, and how many invoices sit in each
  settlement status. Every invoice contributes through the same settlement
  calculator the detail screens use, so the portfolio numbers can never
  disagree with the per-invoice numbers.

MALFORMED INVOICES:
  An invoice that cannot be settled (negative quantity/price/discount) is
  excluded from the totals, and the exclusion is counted and reported.
  Nothing is silently dropped.
*/
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FILTER
// =============================================================================

// ReportFilter narrows the invoice set before folding. Nil/empty fields
// match everything. Status is matched against the derived settlement status.
type ReportFilter struct {
	Status  *Status
	Search  string // case-insensitive match on invoice ID or account ID
	From    *time.Time
	To      *time.Time
	Account *AccountID
}

func (f ReportFilter) matchMeta(inv Invoice) bool {
	if f.Account != nil && inv.AccountID != *f.Account {
		return false
	}
	if f.From != nil && day(inv.Date).Before(day(*f.From)) {
		return false
	}
	if f.To != nil && day(inv.Date).After(day(*f.To)) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(string(inv.ID)), q) &&
			!strings.Contains(strings.ToLower(string(inv.AccountID)), q) {
			return false
		}
	}
	return true
}

// =============================================================================
// PORTFOLIO TOTALS
// =============================================================================

// PortfolioTotals is the fold result over a filtered invoice set.
type PortfolioTotals struct {
	Count        int // invoices included in the totals
	Excluded     int // malformed invoices left out, never silently dropped
	TotalPayable decimal.Decimal
	TotalPaid    decimal.Decimal
	TotalDue     decimal.Decimal
	ByStatus     map[Status]int
}

// Aggregate folds invoices into portfolio totals. paymentsByInvoice supplies
// the complete payment set per invoice; a missing entry means no payments.
func Aggregate(invoices []Invoice, paymentsByInvoice map[InvoiceID][]Payment, f ReportFilter) PortfolioTotals {
	totals := PortfolioTotals{
		TotalPayable: decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalDue:     decimal.Zero,
		ByStatus:     make(map[Status]int),
	}

	for _, inv := range invoices {
		if !f.matchMeta(inv) {
			continue
		}
		if inv.Malformed() {
			totals.Excluded++
			continue
		}

		s := Settle(inv, paymentsByInvoice[inv.ID])
		if f.Status != nil && s.Status != *f.Status {
			continue
		}

		totals.Count++
		totals.TotalPayable = totals.TotalPayable.Add(inv.TotalPayable())
		totals.TotalPaid = totals.TotalPaid.Add(s.Paid)
		totals.TotalDue = totals.TotalDue.Add(s.Due)
		totals.ByStatus[s.Status]++
	}

	return totals
}
