/*
Package sqlite provides the SQLite-backed Transaction Store.

PURPOSE:
  Durable implementation of ledger.Store and ledger.TxStore. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for invoices, payments or returns.
  Accounts are the single upsertable table (master data, managed externally
  in the full system).

COMPARE-AND-APPEND:
  AppendPayment/AppendReturn run inside a database transaction: the current
  record count for the invoice/line item is read and compared against the
  caller's expected version before the insert. On mismatch the transaction
  rolls back and ledger.ErrVersionConflict is returned. This closes the race
  where two payments validated against the same stale due both land.

KEY TABLES:
  accounts:    customers and vendors with signed opening balances
  invoices:    sale invoices and purchase bills (immutable after create)
  line_items:  invoice lines; the unit a return is applied against
  payments:    append-only settlement events
  returns:     append-only quantity reversals with price snapshots

AMOUNTS:
  Stored as decimal strings, never as REAL. Parsing goes through
  shopspring/decimal on the way out.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers,
  single writer, better crash recovery. A sync.RWMutex serializes writers
  in-process; with PostgreSQL the database handles this instead.

USAGE:
  st, err := sqlite.New("./data/ledger.db")   // ":memory:" for tests
  defer st.Close()
  svc := ledger.NewService(st)

SEE ALSO:
  - ledger/store.go:        interface definitions and the CAS contract
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
)

// Store implements ledger.Store and ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Access is serialized by s.mu anyway, and a single connection keeps
	// ":memory:" databases from evaporating between pooled connections.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Accounts (customers and vendors)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		opening_balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Invoices (immutable after creation)
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		kind TEXT NOT NULL,
		date TEXT NOT NULL,
		discount_amount TEXT NOT NULL DEFAULT '0',
		seq INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_invoices_account ON invoices(account_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_account_date ON invoices(account_id, date);

	-- Line items (immutable; returns reference them, never mutate them)
	CREATE TABLE IF NOT EXISTS line_items (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id),
		product_id TEXT,
		description TEXT,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_line_items_invoice ON line_items(invoice_id);

	-- Payments (append-only settlement events)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id),
		date TEXT NOT NULL,
		mode TEXT NOT NULL,
		amount TEXT NOT NULL,
		bank_name TEXT,
		bank_account TEXT,
		cheque_number TEXT,
		seq INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_invoice ON payments(invoice_id);

	-- Returns (append-only quantity reversals, price snapshot at accept time)
	CREATE TABLE IF NOT EXISTS returns (
		id TEXT PRIMARY KEY,
		line_item_id TEXT NOT NULL REFERENCES line_items(id),
		invoice_id TEXT NOT NULL REFERENCES invoices(id),
		date TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		remarks TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_returns_line_item ON returns(line_item_id);
	CREATE INDEX IF NOT EXISTS idx_returns_invoice ON returns(invoice_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the subset of *sql.DB and *sql.Tx the helpers need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, id)
}

func getAccount(ctx context.Context, db dbtx, id ledger.AccountID) (*ledger.Account, error) {
	var (
		a                  ledger.Account
		opening, createdAt string
	)
	err := db.QueryRowContext(ctx,
		"SELECT id, name, kind, opening_balance, created_at FROM accounts WHERE id = ?",
		id,
	).Scan(&a.ID, &a.Name, &a.Kind, &opening, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.OpeningBalance = mustDecimal(opening)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, kind, opening_balance, created_at FROM accounts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var (
			a                  ledger.Account
			opening, createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Kind, &opening, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.OpeningBalance = mustDecimal(opening)
		a.CreatedAt = parseTime(createdAt)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) SaveAccount(ctx context.Context, a ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	// Accounts are master data: opening-balance corrections arrive from the
	// external master-data manager, so this is an upsert.
	query := `
		INSERT INTO accounts (id, name, kind, opening_balance, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			opening_balance = excluded.opening_balance
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Kind, a.OpeningBalance.String(), createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// =============================================================================
// INVOICES
// =============================================================================

func (s *Store) CreateInvoice(ctx context.Context, inv ledger.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := getAccount(ctx, tx, inv.AccountID); err != nil {
		return err
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM invoices").Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	createdAt := inv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, account_id, kind, date, discount_amount, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.AccountID, inv.Kind,
		inv.Date.UTC().Format(time.RFC3339),
		inv.DiscountAmount.String(),
		seq,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateID
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	for _, li := range inv.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO line_items (id, invoice_id, product_id, description, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			li.ID, inv.ID, li.ProductID, li.Description,
			li.Quantity.String(), li.UnitPrice.String(),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return ledger.ErrDuplicateID
			}
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetInvoice(ctx context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getInvoice(ctx, s.db, id)
}

func getInvoice(ctx context.Context, db dbtx, id ledger.InvoiceID) (*ledger.Invoice, error) {
	var (
		inv                       ledger.Invoice
		date, discount, createdAt string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, account_id, kind, date, discount_amount, seq, created_at
		FROM invoices WHERE id = ?`, id,
	).Scan(&inv.ID, &inv.AccountID, &inv.Kind, &date, &discount, &inv.Seq, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	inv.Date = parseTime(date)
	inv.DiscountAmount = mustDecimal(discount)
	inv.CreatedAt = parseTime(createdAt)

	lines, err := loadLines(ctx, db, id)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return &inv, nil
}

func loadLines(ctx context.Context, db dbtx, invoiceID ledger.InvoiceID) ([]ledger.LineItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, invoice_id, product_id, description, quantity, unit_price
		FROM line_items WHERE invoice_id = ? ORDER BY rowid`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	var lines []ledger.LineItem
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, li)
	}
	return lines, rows.Err()
}

func scanLineItem(rows *sql.Rows) (ledger.LineItem, error) {
	var (
		li                  ledger.LineItem
		product, desc       sql.NullString
		quantity, unitPrice string
	)
	if err := rows.Scan(&li.ID, &li.InvoiceID, &product, &desc, &quantity, &unitPrice); err != nil {
		return li, fmt.Errorf("failed to scan line item: %w", err)
	}
	li.ProductID = product.String
	li.Description = desc.String
	li.Quantity = mustDecimal(quantity)
	li.UnitPrice = mustDecimal(unitPrice)
	return li, nil
}

func (s *Store) ListInvoices(ctx context.Context, f ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, account_id, kind, date, discount_amount, seq, created_at
		FROM invoices`
	var (
		where []string
		args  []any
	)
	if f.Account != nil {
		where = append(where, "account_id = ?")
		args = append(args, *f.Account)
	}
	if f.From != nil {
		where = append(where, "date(date) >= date(?, 'unixepoch')")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "date(date) <= date(?, 'unixepoch')")
		args = append(args, *f.To)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []ledger.Invoice
	for rows.Next() {
		var (
			inv                       ledger.Invoice
			date, discount, createdAt string
		)
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.Kind, &date, &discount, &inv.Seq, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.Date = parseTime(date)
		inv.DiscountAmount = mustDecimal(discount)
		inv.CreatedAt = parseTime(createdAt)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range invoices {
		lines, err := loadLines(ctx, s.db, invoices[i].ID)
		if err != nil {
			return nil, err
		}
		invoices[i].Lines = lines
	}
	return invoices, nil
}

func (s *Store) GetLineItem(ctx context.Context, id ledger.LineItemID) (*ledger.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLineItem(ctx, s.db, id)
}

func getLineItem(ctx context.Context, db dbtx, id ledger.LineItemID) (*ledger.LineItem, error) {
	var (
		li                  ledger.LineItem
		product, desc       sql.NullString
		quantity, unitPrice string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, invoice_id, product_id, description, quantity, unit_price
		FROM line_items WHERE id = ?`, id,
	).Scan(&li.ID, &li.InvoiceID, &product, &desc, &quantity, &unitPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrLineItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get line item: %w", err)
	}
	li.ProductID = product.String
	li.Description = desc.String
	li.Quantity = mustDecimal(quantity)
	li.UnitPrice = mustDecimal(unitPrice)
	return &li, nil
}

// =============================================================================
// PAYMENTS - compare-and-append on the per-invoice payment count
// =============================================================================

func (s *Store) ListPayments(ctx context.Context, invoiceID ledger.InvoiceID) ([]ledger.Payment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPayments(ctx, s.db, invoiceID)
}

func listPayments(ctx context.Context, db dbtx, invoiceID ledger.InvoiceID) ([]ledger.Payment, int64, error) {
	if _, err := getInvoice(ctx, db, invoiceID); err != nil {
		return nil, 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, invoice_id, date, mode, amount, bank_name, bank_account, cheque_number, seq, created_at
		FROM payments WHERE invoice_id = ? ORDER BY seq ASC`, invoiceID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments, err := scanPayments(rows)
	if err != nil {
		return nil, 0, err
	}
	// The version is the count of payments appended so far. Deriving it
	// from the same result set keeps the read and the version consistent.
	return payments, int64(len(payments)), nil
}

func (s *Store) ListPaymentsByAccount(ctx context.Context, accountID ledger.AccountID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.invoice_id, p.date, p.mode, p.amount, p.bank_name, p.bank_account, p.cheque_number, p.seq, p.created_at
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.account_id = ?
		ORDER BY p.seq ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by account: %w", err)
	}
	defer rows.Close()

	return scanPayments(rows)
}

func scanPayments(rows *sql.Rows) ([]ledger.Payment, error) {
	var payments []ledger.Payment
	for rows.Next() {
		var (
			p                       ledger.Payment
			date, amount, createdAt string
			bank, acct, cheque      sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.InvoiceID, &date, &p.Mode, &amount, &bank, &acct, &cheque, &p.Seq, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Date = parseTime(date)
		p.Amount = mustDecimal(amount)
		p.BankName = bank.String
		p.BankAccount = acct.String
		p.ChequeNumber = cheque.String
		p.CreatedAt = parseTime(createdAt)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) AppendPayment(ctx context.Context, invoiceID ledger.InvoiceID, expectedVersion int64, p ledger.Payment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	newVersion, err := appendPayment(ctx, tx, invoiceID, expectedVersion, p)
	if err != nil {
		return 0, err
	}
	return newVersion, tx.Commit()
}

func appendPayment(ctx context.Context, db dbtx, invoiceID ledger.InvoiceID, expectedVersion int64, p ledger.Payment) (int64, error) {
	if _, err := getInvoice(ctx, db, invoiceID); err != nil {
		return 0, err
	}

	var current int64
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE invoice_id = ?", invoiceID,
	).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read payment version: %w", err)
	}
	if current != expectedVersion {
		return 0, ledger.ErrVersionConflict
	}

	var seq int64
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM payments").Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to allocate sequence: %w", err)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO payments (id, invoice_id, date, mode, amount, bank_name, bank_account, cheque_number, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, invoiceID,
		p.Date.UTC().Format(time.RFC3339),
		p.Mode, p.Amount.String(),
		nullString(p.BankName), nullString(p.BankAccount), nullString(p.ChequeNumber),
		seq, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, ledger.ErrDuplicateID
		}
		return 0, fmt.Errorf("failed to append payment: %w", err)
	}
	return current + 1, nil
}

// =============================================================================
// RETURNS - compare-and-append on the per-line-item return count
// =============================================================================

func (s *Store) ListReturns(ctx context.Context, lineItemID ledger.LineItemID) ([]ledger.Return, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listReturns(ctx, s.db, lineItemID)
}

func listReturns(ctx context.Context, db dbtx, lineItemID ledger.LineItemID) ([]ledger.Return, int64, error) {
	if _, err := getLineItem(ctx, db, lineItemID); err != nil {
		return nil, 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, line_item_id, invoice_id, date, quantity, unit_price, remarks, created_at
		FROM returns WHERE line_item_id = ? ORDER BY created_at ASC, rowid ASC`, lineItemID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list returns: %w", err)
	}
	defer rows.Close()

	returns, err := scanReturns(rows)
	if err != nil {
		return nil, 0, err
	}
	return returns, int64(len(returns)), nil
}

func (s *Store) ListReturnsByInvoice(ctx context.Context, invoiceID ledger.InvoiceID) ([]ledger.Return, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, line_item_id, invoice_id, date, quantity, unit_price, remarks, created_at
		FROM returns WHERE invoice_id = ? ORDER BY created_at ASC, rowid ASC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list returns by invoice: %w", err)
	}
	defer rows.Close()

	return scanReturns(rows)
}

func scanReturns(rows *sql.Rows) ([]ledger.Return, error) {
	var returns []ledger.Return
	for rows.Next() {
		var (
			r                                ledger.Return
			date, quantity, price, createdAt string
			remarks                          sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.LineItemID, &r.InvoiceID, &date, &quantity, &price, &remarks, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		r.Date = parseTime(date)
		r.Quantity = mustDecimal(quantity)
		r.UnitPrice = mustDecimal(price)
		r.Remarks = remarks.String
		r.CreatedAt = parseTime(createdAt)
		returns = append(returns, r)
	}
	return returns, rows.Err()
}

func (s *Store) AppendReturn(ctx context.Context, lineItemID ledger.LineItemID, expectedVersion int64, r ledger.Return) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	newVersion, err := appendReturn(ctx, tx, lineItemID, expectedVersion, r)
	if err != nil {
		return 0, err
	}
	return newVersion, tx.Commit()
}

func appendReturn(ctx context.Context, db dbtx, lineItemID ledger.LineItemID, expectedVersion int64, r ledger.Return) (int64, error) {
	li, err := getLineItem(ctx, db, lineItemID)
	if err != nil {
		return 0, err
	}

	var current int64
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM returns WHERE line_item_id = ?", lineItemID,
	).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read return version: %w", err)
	}
	if current != expectedVersion {
		return 0, ledger.ErrVersionConflict
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO returns (id, line_item_id, invoice_id, date, quantity, unit_price, remarks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, lineItemID, li.InvoiceID,
		r.Date.UTC().Format(time.RFC3339),
		r.Quantity.String(), r.UnitPrice.String(),
		nullString(r.Remarks),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, ledger.ErrDuplicateID
		}
		return 0, fmt.Errorf("failed to append return: %w", err)
	}
	return current + 1, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The inner store view
// talks to the transaction directly; the write lock is held for the whole
// call, so the view never re-locks.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore exposes the append path and the reads it depends on inside a
// transaction. List operations that only serve presentation are not
// available transactionally.
type txStore struct {
	tx *sql.Tx
}

var errNotInTx = errors.New("operation not available inside a transaction")

func (ts *txStore) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return getAccount(ctx, ts.tx, id)
}

func (ts *txStore) ListAccounts(context.Context) ([]ledger.Account, error) { return nil, errNotInTx }

func (ts *txStore) SaveAccount(context.Context, ledger.Account) error { return errNotInTx }

func (ts *txStore) CreateInvoice(context.Context, ledger.Invoice) error { return errNotInTx }

func (ts *txStore) GetInvoice(ctx context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	return getInvoice(ctx, ts.tx, id)
}

func (ts *txStore) ListInvoices(context.Context, ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	return nil, errNotInTx
}

func (ts *txStore) GetLineItem(ctx context.Context, id ledger.LineItemID) (*ledger.LineItem, error) {
	return getLineItem(ctx, ts.tx, id)
}

func (ts *txStore) ListPayments(ctx context.Context, invoiceID ledger.InvoiceID) ([]ledger.Payment, int64, error) {
	return listPayments(ctx, ts.tx, invoiceID)
}

func (ts *txStore) ListPaymentsByAccount(context.Context, ledger.AccountID) ([]ledger.Payment, error) {
	return nil, errNotInTx
}

func (ts *txStore) AppendPayment(ctx context.Context, invoiceID ledger.InvoiceID, expectedVersion int64, p ledger.Payment) (int64, error) {
	return appendPayment(ctx, ts.tx, invoiceID, expectedVersion, p)
}

func (ts *txStore) ListReturns(ctx context.Context, lineItemID ledger.LineItemID) ([]ledger.Return, int64, error) {
	return listReturns(ctx, ts.tx, lineItemID)
}

func (ts *txStore) ListReturnsByInvoice(context.Context, ledger.InvoiceID) ([]ledger.Return, error) {
	return nil, errNotInTx
}

func (ts *txStore) AppendReturn(ctx context.Context, lineItemID ledger.LineItemID, expectedVersion int64, r ledger.Return) (int64, error) {
	return appendReturn(ctx, ts.tx, lineItemID, expectedVersion, r)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
