// Package store provides an in-memory ledger.Store for tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	accounts  map[ledger.AccountID]ledger.Account
	invoices  map[ledger.InvoiceID]ledger.Invoice
	lineItems map[ledger.LineItemID]ledger.LineItem
	payments  map[ledger.InvoiceID][]ledger.Payment
	returns   map[ledger.LineItemID][]ledger.Return
	nextSeq   int64
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[ledger.AccountID]ledger.Account),
		invoices:  make(map[ledger.InvoiceID]ledger.Invoice),
		lineItems: make(map[ledger.LineItemID]ledger.LineItem),
		payments:  make(map[ledger.InvoiceID][]ledger.Payment),
		returns:   make(map[ledger.LineItemID][]ledger.Return),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return &a, nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.accounts[a.ID] = a
	return nil
}

// =============================================================================
// INVOICES
// =============================================================================

func (m *Memory) CreateInvoice(_ context.Context, inv ledger.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.invoices[inv.ID]; exists {
		return ledger.ErrDuplicateID
	}
	if _, ok := m.accounts[inv.AccountID]; !ok {
		return ledger.ErrAccountNotFound
	}

	m.nextSeq++
	inv.Seq = m.nextSeq
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	m.invoices[inv.ID] = inv
	for _, li := range inv.Lines {
		m.lineItems[li.ID] = li
	}
	return nil
}

func (m *Memory) GetInvoice(_ context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.invoices[id]
	if !ok {
		return nil, ledger.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (m *Memory) ListInvoices(_ context.Context, f ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Invoice
	for _, inv := range m.invoices {
		if !matchInvoice(inv, f) {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *Memory) GetLineItem(_ context.Context, id ledger.LineItemID) (*ledger.LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	li, ok := m.lineItems[id]
	if !ok {
		return nil, ledger.ErrLineItemNotFound
	}
	return &li, nil
}

// =============================================================================
// PAYMENTS - versioned compare-and-append
// =============================================================================

func (m *Memory) ListPayments(_ context.Context, invoiceID ledger.InvoiceID) ([]ledger.Payment, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.invoices[invoiceID]; !ok {
		return nil, 0, ledger.ErrInvoiceNotFound
	}
	src := m.payments[invoiceID]
	out := make([]ledger.Payment, len(src))
	copy(out, src)
	return out, int64(len(src)), nil
}

func (m *Memory) ListPaymentsByAccount(_ context.Context, accountID ledger.AccountID) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Payment
	for invID, ps := range m.payments {
		if inv, ok := m.invoices[invID]; ok && inv.AccountID == accountID {
			out = append(out, ps...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *Memory) AppendPayment(_ context.Context, invoiceID ledger.InvoiceID, expectedVersion int64, p ledger.Payment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invoices[invoiceID]; !ok {
		return 0, ledger.ErrInvoiceNotFound
	}
	current := int64(len(m.payments[invoiceID]))
	if current != expectedVersion {
		return 0, ledger.ErrVersionConflict
	}

	m.nextSeq++
	p.Seq = m.nextSeq
	p.InvoiceID = invoiceID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.payments[invoiceID] = append(m.payments[invoiceID], p)
	return current + 1, nil
}

// =============================================================================
// RETURNS - versioned compare-and-append
// =============================================================================

func (m *Memory) ListReturns(_ context.Context, lineItemID ledger.LineItemID) ([]ledger.Return, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.lineItems[lineItemID]; !ok {
		return nil, 0, ledger.ErrLineItemNotFound
	}
	src := m.returns[lineItemID]
	out := make([]ledger.Return, len(src))
	copy(out, src)
	return out, int64(len(src)), nil
}

func (m *Memory) ListReturnsByInvoice(_ context.Context, invoiceID ledger.InvoiceID) ([]ledger.Return, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Return
	for _, rs := range m.returns {
		for _, r := range rs {
			if r.InvoiceID == invoiceID {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) AppendReturn(_ context.Context, lineItemID ledger.LineItemID, expectedVersion int64, r ledger.Return) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.appendReturnLocked(lineItemID, expectedVersion, r)
}

func (m *Memory) appendReturnLocked(lineItemID ledger.LineItemID, expectedVersion int64, r ledger.Return) (int64, error) {
	li, ok := m.lineItems[lineItemID]
	if !ok {
		return 0, ledger.ErrLineItemNotFound
	}
	current := int64(len(m.returns[lineItemID]))
	if current != expectedVersion {
		return 0, ledger.ErrVersionConflict
	}

	r.LineItemID = lineItemID
	r.InvoiceID = li.InvoiceID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.returns[lineItemID] = append(m.returns[lineItemID], r)
	return current + 1, nil
}

func matchInvoice(inv ledger.Invoice, f ledger.InvoiceFilter) bool {
	if f.Account != nil && inv.AccountID != *f.Account {
		return false
	}
	d := dayUnix(inv.Date)
	if f.From != nil && d < *f.From {
		return false
	}
	if f.To != nil && d > *f.To {
		return false
	}
	return true
}

func dayUnix(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a
// snapshot + rollback on error.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn against a transactional view. On error the pre-call
// state is restored.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	payments map[ledger.InvoiceID][]ledger.Payment
	returns  map[ledger.LineItemID][]ledger.Return
	nextSeq  int64
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		payments: make(map[ledger.InvoiceID][]ledger.Payment, len(tm.payments)),
		returns:  make(map[ledger.LineItemID][]ledger.Return, len(tm.returns)),
		nextSeq:  tm.nextSeq,
	}
	for k, v := range tm.payments {
		s.payments[k] = append([]ledger.Payment{}, v...)
	}
	for k, v := range tm.returns {
		s.returns[k] = append([]ledger.Return{}, v...)
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.payments = s.payments
	tm.returns = s.returns
	tm.nextSeq = s.nextSeq
}

// txMemoryView operates on the parent without re-locking; the parent mutex
// is held for the whole WithTx call.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	a, ok := tv.parent.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return &a, nil
}

func (tv *txMemoryView) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0, len(tv.parent.accounts))
	for _, a := range tv.parent.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tv *txMemoryView) SaveAccount(_ context.Context, a ledger.Account) error {
	tv.parent.accounts[a.ID] = a
	return nil
}

func (tv *txMemoryView) CreateInvoice(_ context.Context, inv ledger.Invoice) error {
	if _, exists := tv.parent.invoices[inv.ID]; exists {
		return ledger.ErrDuplicateID
	}
	tv.parent.nextSeq++
	inv.Seq = tv.parent.nextSeq
	tv.parent.invoices[inv.ID] = inv
	for _, li := range inv.Lines {
		tv.parent.lineItems[li.ID] = li
	}
	return nil
}

func (tv *txMemoryView) GetInvoice(_ context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	inv, ok := tv.parent.invoices[id]
	if !ok {
		return nil, ledger.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (tv *txMemoryView) ListInvoices(_ context.Context, f ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	var out []ledger.Invoice
	for _, inv := range tv.parent.invoices {
		if matchInvoice(inv, f) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (tv *txMemoryView) GetLineItem(_ context.Context, id ledger.LineItemID) (*ledger.LineItem, error) {
	li, ok := tv.parent.lineItems[id]
	if !ok {
		return nil, ledger.ErrLineItemNotFound
	}
	return &li, nil
}

func (tv *txMemoryView) ListPayments(_ context.Context, invoiceID ledger.InvoiceID) ([]ledger.Payment, int64, error) {
	src := tv.parent.payments[invoiceID]
	return src, int64(len(src)), nil
}

func (tv *txMemoryView) ListPaymentsByAccount(ctx context.Context, accountID ledger.AccountID) ([]ledger.Payment, error) {
	var out []ledger.Payment
	for invID, ps := range tv.parent.payments {
		if inv, ok := tv.parent.invoices[invID]; ok && inv.AccountID == accountID {
			out = append(out, ps...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (tv *txMemoryView) AppendPayment(_ context.Context, invoiceID ledger.InvoiceID, expectedVersion int64, p ledger.Payment) (int64, error) {
	if _, ok := tv.parent.invoices[invoiceID]; !ok {
		return 0, ledger.ErrInvoiceNotFound
	}
	current := int64(len(tv.parent.payments[invoiceID]))
	if current != expectedVersion {
		return 0, ledger.ErrVersionConflict
	}
	tv.parent.nextSeq++
	p.Seq = tv.parent.nextSeq
	p.InvoiceID = invoiceID
	tv.parent.payments[invoiceID] = append(tv.parent.payments[invoiceID], p)
	return current + 1, nil
}

func (tv *txMemoryView) ListReturns(_ context.Context, lineItemID ledger.LineItemID) ([]ledger.Return, int64, error) {
	src := tv.parent.returns[lineItemID]
	return src, int64(len(src)), nil
}

func (tv *txMemoryView) ListReturnsByInvoice(_ context.Context, invoiceID ledger.InvoiceID) ([]ledger.Return, error) {
	var out []ledger.Return
	for _, rs := range tv.parent.returns {
		for _, r := range rs {
			if r.InvoiceID == invoiceID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (tv *txMemoryView) AppendReturn(_ context.Context, lineItemID ledger.LineItemID, expectedVersion int64, r ledger.Return) (int64, error) {
	return tv.parent.appendReturnLocked(lineItemID, expectedVersion, r)
}
