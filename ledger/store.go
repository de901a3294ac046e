/*
store.go - Transaction store boundary

PURPOSE:
  Defines the interface between the settlement core and durable storage.
  The store holds the authoritative transaction log: accounts, invoices
  with their line items, payments, and returns. Reads are snapshots;
  writes are append-only.

APPEND-ONLY CONTRACT:
  Invoices, payments and returns are never updated or deleted. There are
  no Update or Delete methods on this interface. Paid/due/status/balance
  are always derived from the log, so there is no stale-derived-field
  class of bug.

COMPARE-AND-APPEND:
  The validate-then-append step must be safe against concurrent writers:
  two payments validated against the same stale due must not both land.
  ListPayments/ListReturns therefore return the history together with a
  version (the count of records appended so far), and AppendPayment/
  AppendReturn accept the expected version. If anything was appended since
  the read, the append fails with ErrVersionConflict and nothing is
  written. The caller re-fetches and re-validates; the core never retries
  silently.

IMPLEMENTATIONS:
  - store/sqlite:       durable store, version check inside a DB transaction
  - ledger/store:       in-memory store for tests and development
*/
package ledger

import "context"

// =============================================================================
// STORE - Read snapshots + append-only writes
// =============================================================================

// InvoiceFilter narrows ListInvoices at the store level. Status and search
// filters apply to derived values and therefore live in ReportFilter, not
// here.
type InvoiceFilter struct {
	Account *AccountID
	From    *int64 // unix seconds, inclusive
	To      *int64 // unix seconds, inclusive
}

// Store is the Transaction Store boundary. All methods take a context;
// suspension only happens here, never inside a calculator.
type Store interface {
	// Accounts (master data is managed externally; the core reads it and
	// the supplemental endpoints create it).
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	SaveAccount(ctx context.Context, a Account) error

	// Invoices are created once with their line items, then immutable.
	CreateInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)
	ListInvoices(ctx context.Context, f InvoiceFilter) ([]Invoice, error)
	GetLineItem(ctx context.Context, id LineItemID) (*LineItem, error)

	// Payments. The returned version is the count of payments appended to
	// the invoice so far; AppendPayment is compare-and-append on it.
	ListPayments(ctx context.Context, invoiceID InvoiceID) ([]Payment, int64, error)
	ListPaymentsByAccount(ctx context.Context, accountID AccountID) ([]Payment, error)
	AppendPayment(ctx context.Context, invoiceID InvoiceID, expectedVersion int64, p Payment) (int64, error)

	// Returns, versioned per line item the same way.
	ListReturns(ctx context.Context, lineItemID LineItemID) ([]Return, int64, error)
	ListReturnsByInvoice(ctx context.Context, invoiceID InvoiceID) ([]Return, error)
	AppendReturn(ctx context.Context, lineItemID LineItemID, expectedVersion int64, r Return) (int64, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic append + collaborator side effect
// =============================================================================

// TxStore wraps Store with transaction support. An accepted return must be
// appended atomically with the external stock adjustment; stores that can
// do that implement WithTx.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back and nothing was written.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// STOCK ADJUSTER - External collaborator applied with return appends
// =============================================================================

// StockAdjuster restocks returned quantities. The real implementation lives
// in the inventory subsystem; the core only requires that it either succeeds
// or reports an error so the return append can be rolled back with it.
type StockAdjuster interface {
	ApplyReturn(ctx context.Context, r Return) error
}

// NopStockAdjuster ignores stock. Used when inventory is managed elsewhere.
type NopStockAdjuster struct{}

func (NopStockAdjuster) ApplyReturn(context.Context, Return) error { return nil }
