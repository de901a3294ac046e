package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
	memstore "github.com/fahimfaisal1454/jjbb-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T, opts ...ledger.Option) (*ledger.Service, *memstore.TxMemory) {
	t.Helper()
	store := memstore.NewTxMemory()
	return ledger.NewService(store, opts...), store
}

// seedSale writes an account and one sale invoice (payable 1400) with a
// single line of quantity 10 at price 150, and returns the line's ID.
func seedSale(t *testing.T, store ledger.Store) ledger.LineItemID {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, ledger.Account{
		ID:   "acct-1",
		Name: "Rahim Traders",
		Kind: ledger.AccountCustomer,
	}))

	inv := saleInvoice("inv-1", "10", "150", "100", date(2025, time.March, 1))
	require.NoError(t, store.CreateInvoice(ctx, inv))
	return inv.Lines[0].ID
}

// failingAdjuster always refuses the stock adjustment.
type failingAdjuster struct{}

func (failingAdjuster) ApplyReturn(context.Context, ledger.Return) error {
	return errors.New("warehouse offline")
}

// recordingAdjuster remembers what it was asked to restock.
type recordingAdjuster struct {
	applied []ledger.Return
}

func (a *recordingAdjuster) ApplyReturn(_ context.Context, r ledger.Return) error {
	a.applied = append(a.applied, r)
	return nil
}

// =============================================================================
// PAYMENT FLOW TESTS
// =============================================================================

func TestService_SubmitPayment_AcceptedAndSettled(t *testing.T) {
	svc, store := newTestService(t)
	seedSale(t, store)
	ctx := context.Background()

	p, err := svc.SubmitPayment(ctx, "inv-1", ledger.PaymentRequest{
		Amount: dec("500"),
		Mode:   ledger.ModeCash,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	s, err := svc.Settle(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPartiallyPaid, s.Status)
	assert.True(t, dec("900").Equal(s.Due))
}

func TestService_SubmitPayment_RejectionNotPersisted(t *testing.T) {
	// GIVEN: An invoice with 1400 due
	// WHEN: A payment of 2000 is submitted
	// THEN: It is rejected and no payment record exists afterwards

	svc, store := newTestService(t)
	seedSale(t, store)
	ctx := context.Background()

	_, err := svc.SubmitPayment(ctx, "inv-1", ledger.PaymentRequest{
		Amount: dec("2000"),
		Mode:   ledger.ModeCash,
	})
	require.Error(t, err)
	assert.True(t, ledger.IsRejection(err))

	payments, version, err := store.ListPayments(ctx, "inv-1")
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.Equal(t, int64(0), version)
}

func TestService_SubmitPayment_UnknownInvoice(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SubmitPayment(context.Background(), "inv-missing", ledger.PaymentRequest{
		Amount: dec("10"),
		Mode:   ledger.ModeCash,
	})
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

func TestStore_AppendPayment_StaleVersionConflicts(t *testing.T) {
	// GIVEN: Two writers that both read the payment set at version 0
	// WHEN: Both append with expectedVersion 0
	// THEN: The first wins, the second gets ErrVersionConflict

	_, store := newTestService(t)
	seedSale(t, store)
	ctx := context.Background()

	_, version, err := store.ListPayments(ctx, "inv-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), version)

	first := cashPayment("inv-1", "500", date(2025, time.March, 2))
	newVersion, err := store.AppendPayment(ctx, "inv-1", version, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), newVersion)

	second := cashPayment("inv-1", "400", date(2025, time.March, 2))
	_, err = store.AppendPayment(ctx, "inv-1", version, second)
	require.Error(t, err)
	assert.True(t, ledger.IsConflict(err))

	// Only the winner's record is on the ledger.
	payments, _, err := store.ListPayments(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, dec("500").Equal(payments[0].Amount))
}

// =============================================================================
// RETURN FLOW TESTS
// =============================================================================

func TestService_SubmitReturn_AppliesStockAdjustment(t *testing.T) {
	adjuster := &recordingAdjuster{}
	svc, store := newTestService(t, ledger.WithStockAdjuster(adjuster))
	lineID := seedSale(t, store)
	ctx := context.Background()

	ret, err := svc.SubmitReturn(ctx, lineID, ledger.ReturnRequest{
		Quantity: dec("2"),
		Remarks:  "damaged",
	})
	require.NoError(t, err)
	assert.True(t, dec("300").Equal(ret.Amount()))

	require.Len(t, adjuster.applied, 1)
	assert.True(t, dec("2").Equal(adjuster.applied[0].Quantity))

	returns, version, err := store.ListReturns(ctx, lineID)
	require.NoError(t, err)
	assert.Len(t, returns, 1)
	assert.Equal(t, int64(1), version)
}

func TestService_SubmitReturn_RolledBackWhenAdjusterFails(t *testing.T) {
	// GIVEN: A store with transaction support and a failing stock adjuster
	// WHEN: A valid return is submitted
	// THEN: The append is rolled back with the adjustment; no return persists

	svc, store := newTestService(t, ledger.WithStockAdjuster(failingAdjuster{}))
	lineID := seedSale(t, store)
	ctx := context.Background()

	_, err := svc.SubmitReturn(ctx, lineID, ledger.ReturnRequest{Quantity: dec("2")})
	require.Error(t, err)
	assert.False(t, ledger.IsRejection(err), "infrastructure failure, not a validation rejection")

	returns, version, err := store.ListReturns(ctx, lineID)
	require.NoError(t, err)
	assert.Empty(t, returns, "failed transaction must leave no trace")
	assert.Equal(t, int64(0), version)
}

func TestService_SubmitReturn_ExceedsSoldQuantity(t *testing.T) {
	svc, store := newTestService(t)
	lineID := seedSale(t, store)
	ctx := context.Background()

	_, err := svc.SubmitReturn(ctx, lineID, ledger.ReturnRequest{Quantity: dec("4")})
	require.NoError(t, err)

	_, err = svc.SubmitReturn(ctx, lineID, ledger.ReturnRequest{Quantity: dec("7")})
	require.Error(t, err)
	assert.Equal(t, ledger.ReasonExceedsSoldQuantity, ledger.ReasonOf(err))
}

// =============================================================================
// READ FLOW TESTS
// =============================================================================

func TestService_ListInvoices_WithSettlement(t *testing.T) {
	svc, store := newTestService(t)
	seedSale(t, store)
	ctx := context.Background()

	_, err := svc.SubmitPayment(ctx, "inv-1", ledger.PaymentRequest{
		Amount: dec("1400"),
		Mode:   ledger.ModeCash,
	})
	require.NoError(t, err)

	settled, err := svc.ListInvoices(ctx, ledger.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, ledger.StatusPaid, settled[0].Settlement.Status)

	// Filtering by a status no invoice has yields an empty set.
	unpaid := ledger.StatusUnpaid
	settled, err = svc.ListInvoices(ctx, ledger.ReportFilter{Status: &unpaid})
	require.NoError(t, err)
	assert.Empty(t, settled)
}

func TestService_BuildStatement_EndToEnd(t *testing.T) {
	svc, store := newTestService(t)
	seedSale(t, store)
	ctx := context.Background()

	_, err := svc.SubmitPayment(ctx, "inv-1", ledger.PaymentRequest{
		Amount: dec("800"),
		Mode:   ledger.ModeCash,
		Date:   date(2025, time.March, 5),
	})
	require.NoError(t, err)

	rows, err := svc.BuildStatement(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ledger.RowInvoice, rows[0].Type)
	assert.Equal(t, ledger.RowPayment, rows[1].Type)
	assert.True(t, dec("600").Equal(ledger.ClosingBalance(rows)))
}

func TestService_BuildStatement_UnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.BuildStatement(context.Background(), "acct-missing")
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

func TestService_Aggregate_EndToEnd(t *testing.T) {
	svc, store := newTestService(t)
	seedSale(t, store)
	ctx := context.Background()

	_, err := svc.SubmitPayment(ctx, "inv-1", ledger.PaymentRequest{
		Amount: dec("500"),
		Mode:   ledger.ModeCash,
	})
	require.NoError(t, err)

	totals, err := svc.Aggregate(ctx, ledger.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Count)
	assert.True(t, dec("500").Equal(totals.TotalPaid))
	assert.True(t, dec("900").Equal(totals.TotalDue))
}
