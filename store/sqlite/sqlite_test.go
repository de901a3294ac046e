package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
	"github.com/fahimfaisal1454/jjbb-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedAccount(t *testing.T, store *sqlite.Store, id, name string, kind ledger.AccountKind, opening string) {
	t.Helper()
	require.NoError(t, store.SaveAccount(context.Background(), ledger.Account{
		ID:             ledger.AccountID(id),
		Name:           name,
		Kind:           kind,
		OpeningBalance: dec(opening),
	}))
}

func testInvoice(id, account, qty, price, discount string, day time.Time) ledger.Invoice {
	return ledger.Invoice{
		ID:        ledger.InvoiceID(id),
		AccountID: ledger.AccountID(account),
		Kind:      ledger.InvoiceSale,
		Date:      day,
		Lines: []ledger.LineItem{{
			ID:          ledger.LineItemID(id + "-line-1"),
			InvoiceID:   ledger.InvoiceID(id),
			ProductID:   "prod-1",
			Description: "Rice 25kg",
			Quantity:    dec(qty),
			UnitPrice:   dec(price),
		}},
		DiscountAmount: dec(discount),
	}
}

func testPayment(id, invoiceID, amount string, day time.Time) ledger.Payment {
	return ledger.Payment{
		ID:        ledger.PaymentID(id),
		InvoiceID: ledger.InvoiceID(invoiceID),
		Date:      day,
		Mode:      ledger.ModeCash,
		Amount:    dec(amount),
	}
}

// =============================================================================
// ACCOUNT TESTS
// =============================================================================

func TestStore_AccountRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim Traders", ledger.AccountCustomer, "500.50")

	got, err := store.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "Rahim Traders", got.Name)
	assert.Equal(t, ledger.AccountCustomer, got.Kind)
	assert.True(t, dec("500.50").Equal(got.OpeningBalance), "decimal must survive storage exactly")

	_, err = store.GetAccount(ctx, "acct-missing")
	assert.True(t, errors.Is(err, ledger.ErrAccountNotFound))
}

func TestStore_ListAccountsSorted(t *testing.T) {
	store := newTestStore(t)

	seedAccount(t, store, "acct-b", "B", ledger.AccountVendor, "0")
	seedAccount(t, store, "acct-a", "A", ledger.AccountCustomer, "0")

	accounts, err := store.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, ledger.AccountID("acct-a"), accounts[0].ID)
}

// =============================================================================
// INVOICE TESTS
// =============================================================================

func TestStore_InvoiceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim", ledger.AccountCustomer, "0")
	inv := testInvoice("inv-1", "acct-1", "10", "150.25", "100", date(2025, time.March, 1))
	require.NoError(t, store.CreateInvoice(ctx, inv))

	got, err := store.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoiceSale, got.Kind)
	require.Len(t, got.Lines, 1)
	assert.True(t, dec("150.25").Equal(got.Lines[0].UnitPrice))
	assert.True(t, dec("1402.5").Equal(got.TotalPayable()))
	assert.Greater(t, got.Seq, int64(0), "store assigns the insertion sequence")

	line, err := store.GetLineItem(ctx, got.Lines[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoiceID("inv-1"), line.InvoiceID)
}

func TestStore_CreateInvoice_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim", ledger.AccountCustomer, "0")
	inv := testInvoice("inv-1", "acct-1", "1", "100", "0", date(2025, time.March, 1))
	require.NoError(t, store.CreateInvoice(ctx, inv))

	err := store.CreateInvoice(ctx, inv)
	assert.True(t, errors.Is(err, ledger.ErrDuplicateID))
}

func TestStore_ListInvoices_Filter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim", ledger.AccountCustomer, "0")
	seedAccount(t, store, "acct-2", "Karim", ledger.AccountVendor, "0")

	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-1", "acct-1", "1", "100", "0", date(2025, time.March, 1))))
	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-2", "acct-1", "1", "100", "0", date(2025, time.March, 10))))
	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-3", "acct-2", "1", "100", "0", date(2025, time.March, 5))))

	// By account
	acct := ledger.AccountID("acct-1")
	invoices, err := store.ListInvoices(ctx, ledger.InvoiceFilter{Account: &acct})
	require.NoError(t, err)
	assert.Len(t, invoices, 2)

	// By date range (inclusive day bounds)
	from := date(2025, time.March, 5).Unix()
	to := date(2025, time.March, 10).Unix()
	invoices, err = store.ListInvoices(ctx, ledger.InvoiceFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	for _, inv := range invoices {
		assert.NotEqual(t, ledger.InvoiceID("inv-1"), inv.ID)
	}
}

// =============================================================================
// COMPARE-AND-APPEND TESTS
// =============================================================================

func TestStore_AppendPayment_VersionConflict(t *testing.T) {
	// GIVEN: Two writers that both observed the payment set at version 0
	// WHEN: Both append with expectedVersion 0
	// THEN: The second append fails with ErrVersionConflict

	store := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim", ledger.AccountCustomer, "0")
	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-1", "acct-1", "10", "150", "0", date(2025, time.March, 1))))

	_, version, err := store.ListPayments(ctx, "inv-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), version)

	newVersion, err := store.AppendPayment(ctx, "inv-1", version, testPayment("pay-1", "inv-1", "500", date(2025, time.March, 2)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), newVersion)

	_, err = store.AppendPayment(ctx, "inv-1", version, testPayment("pay-2", "inv-1", "400", date(2025, time.March, 2)))
	require.Error(t, err)
	assert.True(t, ledger.IsConflict(err))

	payments, version, err := store.ListPayments(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(1), version)
	assert.True(t, dec("500").Equal(payments[0].Amount))
}

func TestStore_AppendPayment_SeqMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim", ledger.AccountCustomer, "0")
	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-1", "acct-1", "10", "150", "0", date(2025, time.March, 1))))

	day := date(2025, time.March, 2)
	for i, amount := range []string{"100", "200", "300"} {
		_, err := store.AppendPayment(ctx, "inv-1", int64(i),
			testPayment("pay-"+amount, "inv-1", amount, day))
		require.NoError(t, err)
	}

	payments, _, err := store.ListPayments(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Less(t, payments[0].Seq, payments[1].Seq)
	assert.Less(t, payments[1].Seq, payments[2].Seq)
}

func TestStore_AppendReturn_VersionConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim", ledger.AccountCustomer, "0")
	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-1", "acct-1", "10", "150", "0", date(2025, time.March, 1))))

	ret := ledger.Return{
		ID:         "ret-1",
		LineItemID: "inv-1-line-1",
		InvoiceID:  "inv-1",
		Date:       date(2025, time.March, 3),
		Quantity:   dec("2"),
		UnitPrice:  dec("150"),
	}
	_, err := store.AppendReturn(ctx, "inv-1-line-1", 0, ret)
	require.NoError(t, err)

	ret.ID = "ret-2"
	_, err = store.AppendReturn(ctx, "inv-1-line-1", 0, ret)
	require.Error(t, err)
	assert.True(t, ledger.IsConflict(err))

	returns, version, err := store.ListReturns(ctx, "inv-1-line-1")
	require.NoError(t, err)
	assert.Len(t, returns, 1)
	assert.Equal(t, int64(1), version)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that appends a return, then fails
	// THEN: The append is rolled back; version stays 0

	store := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim", ledger.AccountCustomer, "0")
	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-1", "acct-1", "10", "150", "0", date(2025, time.March, 1))))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx ledger.Store) error {
		_, err := tx.AppendReturn(ctx, "inv-1-line-1", 0, ledger.Return{
			ID:         "ret-1",
			LineItemID: "inv-1-line-1",
			InvoiceID:  "inv-1",
			Date:       date(2025, time.March, 3),
			Quantity:   dec("2"),
			UnitPrice:  dec("150"),
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	returns, version, err := store.ListReturns(ctx, "inv-1-line-1")
	require.NoError(t, err)
	assert.Empty(t, returns)
	assert.Equal(t, int64(0), version)
}

func TestStore_WithTx_Commits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim", ledger.AccountCustomer, "0")
	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-1", "acct-1", "10", "150", "0", date(2025, time.March, 1))))

	err := store.WithTx(ctx, func(tx ledger.Store) error {
		_, err := tx.AppendPayment(ctx, "inv-1", 0, testPayment("pay-1", "inv-1", "500", date(2025, time.March, 2)))
		return err
	})
	require.NoError(t, err)

	payments, version, err := store.ListPayments(ctx, "inv-1")
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.Equal(t, int64(1), version)
}

// =============================================================================
// SERVICE OVER SQLITE - end to end through the real store
// =============================================================================

func TestService_OverSQLite_FullFlow(t *testing.T) {
	// GIVEN: An account with an opening balance and one invoice
	// WHEN: A payment and a return flow through the service
	// THEN: Settlement and statement reflect both, read back from SQLite

	store := newTestStore(t)
	svc := ledger.NewService(store)
	ctx := context.Background()

	seedAccount(t, store, "acct-1", "Rahim", ledger.AccountCustomer, "500")
	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-1", "acct-1", "10", "150", "100", date(2025, time.March, 1))))

	_, err := svc.SubmitPayment(ctx, "inv-1", ledger.PaymentRequest{
		Amount: dec("800"),
		Date:   date(2025, time.March, 5),
		Mode:   ledger.ModeBank,
		// exercising the bank fields through storage
		BankName:    "BRAC",
		BankAccount: "00123",
	})
	require.NoError(t, err)

	ret, err := svc.SubmitReturn(ctx, "inv-1-line-1", ledger.ReturnRequest{
		Quantity: dec("2"),
		Date:     date(2025, time.March, 7),
		Remarks:  "damaged bags",
	})
	require.NoError(t, err)
	assert.True(t, dec("300").Equal(ret.Amount()))

	s, err := svc.Settle(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPartiallyPaid, s.Status)
	assert.True(t, dec("600").Equal(s.Due))

	rows, err := svc.BuildStatement(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ledger.RowOpeningBalance, rows[0].Type)
	assert.True(t, dec("1100").Equal(ledger.ClosingBalance(rows)))

	payments, err := store.ListPaymentsByAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "BRAC", payments[0].BankName)

	returns, err := svc.InvoiceReturns(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, returns, 1)
	assert.Equal(t, "damaged bags", returns[0].Remarks)
}
