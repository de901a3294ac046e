package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
)

// =============================================================================
// PAYMENT VALIDATOR TESTS
// =============================================================================

func TestValidatePayment_ExceedsDue_Rejected(t *testing.T) {
	// GIVEN: Invoice with 900 due after a first payment of 500
	// WHEN: A payment of 1000 is proposed
	// THEN: Rejected as exceeds_due with the allowed amount in the error

	inv := saleInvoice("inv-1", "10", "150", "100", date(2025, time.March, 1))
	existing := []ledger.Payment{cashPayment("inv-1", "500", date(2025, time.March, 2))}

	_, err := ledger.ValidatePayment(inv, existing, ledger.PaymentRequest{
		Amount: dec("1000"),
		Mode:   ledger.ModeCash,
	})

	require.Error(t, err)
	assert.True(t, ledger.IsRejection(err))
	assert.Equal(t, ledger.ReasonExceedsDue, ledger.ReasonOf(err))

	var rej *ledger.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.True(t, dec("900").Equal(rej.Allowed))
	assert.True(t, dec("1000").Equal(rej.Requested))
}

func TestValidatePayment_SequentialUpToDue(t *testing.T) {
	// GIVEN: Invoice payable 1400 with two accepted payments of 800 and 600
	// WHEN: A third payment of 600 arrives against the empty remaining due
	// THEN: It is rejected; the first two exactly settle the invoice

	inv := saleInvoice("inv-1", "10", "150", "100", date(2025, time.March, 1))

	p1, err := ledger.ValidatePayment(inv, nil, ledger.PaymentRequest{
		Amount: dec("800"), Mode: ledger.ModeCash,
	})
	require.NoError(t, err)

	p2, err := ledger.ValidatePayment(inv, []ledger.Payment{p1}, ledger.PaymentRequest{
		Amount: dec("600"), Mode: ledger.ModeCash,
	})
	require.NoError(t, err)

	_, err = ledger.ValidatePayment(inv, []ledger.Payment{p1, p2}, ledger.PaymentRequest{
		Amount: dec("600"), Mode: ledger.ModeCash,
	})
	require.Error(t, err)
	assert.Equal(t, ledger.ReasonExceedsDue, ledger.ReasonOf(err))

	s := ledger.Settle(inv, []ledger.Payment{p1, p2})
	assert.Equal(t, ledger.StatusPaid, s.Status)
}

func TestValidatePayment_NonPositiveAmount_Rejected(t *testing.T) {
	inv := saleInvoice("inv-1", "1", "100", "0", date(2025, time.March, 1))

	for _, amount := range []string{"0", "-5"} {
		_, err := ledger.ValidatePayment(inv, nil, ledger.PaymentRequest{
			Amount: dec(amount), Mode: ledger.ModeCash,
		})
		require.Error(t, err, "amount %s must be rejected", amount)
		assert.Equal(t, ledger.ReasonNonPositiveAmount, ledger.ReasonOf(err))
	}
}

func TestValidatePayment_ModeFields(t *testing.T) {
	// Mode-specific fields are mutually exclusive: bank fields only with
	// bank mode, cheque number only with cheque mode.

	inv := saleInvoice("inv-1", "1", "1000", "0", date(2025, time.March, 1))

	tests := []struct {
		name    string
		req     ledger.PaymentRequest
		wantErr bool
	}{
		{
			name:    "cash clean",
			req:     ledger.PaymentRequest{Amount: dec("100"), Mode: ledger.ModeCash},
			wantErr: false,
		},
		{
			name:    "cash with bank name",
			req:     ledger.PaymentRequest{Amount: dec("100"), Mode: ledger.ModeCash, BankName: "BRAC"},
			wantErr: true,
		},
		{
			name:    "bank with name",
			req:     ledger.PaymentRequest{Amount: dec("100"), Mode: ledger.ModeBank, BankName: "BRAC", BankAccount: "00123"},
			wantErr: false,
		},
		{
			name:    "bank without name",
			req:     ledger.PaymentRequest{Amount: dec("100"), Mode: ledger.ModeBank},
			wantErr: true,
		},
		{
			name:    "bank with cheque number",
			req:     ledger.PaymentRequest{Amount: dec("100"), Mode: ledger.ModeBank, BankName: "BRAC", ChequeNumber: "CH-9"},
			wantErr: true,
		},
		{
			name:    "cheque with number",
			req:     ledger.PaymentRequest{Amount: dec("100"), Mode: ledger.ModeCheque, ChequeNumber: "CH-9"},
			wantErr: false,
		},
		{
			name:    "cheque without number",
			req:     ledger.PaymentRequest{Amount: dec("100"), Mode: ledger.ModeCheque},
			wantErr: true,
		},
		{
			name:    "cheque with bank fields",
			req:     ledger.PaymentRequest{Amount: dec("100"), Mode: ledger.ModeCheque, ChequeNumber: "CH-9", BankName: "BRAC"},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			req:     ledger.PaymentRequest{Amount: dec("100"), Mode: "crypto"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.ValidatePayment(inv, nil, tt.req)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ledger.ReasonInvalidModeFields, ledger.ReasonOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// =============================================================================
// RETURN VALIDATOR TESTS
// =============================================================================

func TestValidateReturn_CumulativeCap(t *testing.T) {
	// GIVEN: Line item with quantity 10 and a prior accepted return of 4
	// WHEN: A return of 7 is proposed, then one of 6
	// THEN: 7 is rejected (only 6 remain returnable), 6 is accepted

	line := ledger.LineItem{
		ID:        "line-1",
		InvoiceID: "inv-1",
		Quantity:  dec("10"),
		UnitPrice: dec("150"),
	}

	r1, err := ledger.ValidateReturn(line, nil, ledger.ReturnRequest{Quantity: dec("4")})
	require.NoError(t, err)

	_, err = ledger.ValidateReturn(line, []ledger.Return{r1}, ledger.ReturnRequest{Quantity: dec("7")})
	require.Error(t, err)
	assert.Equal(t, ledger.ReasonExceedsSoldQuantity, ledger.ReasonOf(err))

	var rej *ledger.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.True(t, dec("6").Equal(rej.Allowed))

	r2, err := ledger.ValidateReturn(line, []ledger.Return{r1}, ledger.ReturnRequest{Quantity: dec("6")})
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(ledger.ReturnedQuantity([]ledger.Return{r1, r2})))
}

func TestValidateReturn_NonPositiveQuantity_Rejected(t *testing.T) {
	line := ledger.LineItem{ID: "line-1", InvoiceID: "inv-1", Quantity: dec("5"), UnitPrice: dec("10")}

	for _, qty := range []string{"0", "-2"} {
		_, err := ledger.ValidateReturn(line, nil, ledger.ReturnRequest{Quantity: dec(qty)})
		require.Error(t, err, "quantity %s must be rejected", qty)
		assert.Equal(t, ledger.ReasonNonPositiveQuantity, ledger.ReasonOf(err))
	}
}

func TestValidateReturn_PriceSnapshot(t *testing.T) {
	// GIVEN: A return accepted while the line's unit price was 150
	// WHEN: The product's price later changes
	// THEN: The return's amount stays 2 x 150; the snapshot never moves

	line := ledger.LineItem{ID: "line-1", InvoiceID: "inv-1", Quantity: dec("10"), UnitPrice: dec("150")}

	ret, err := ledger.ValidateReturn(line, nil, ledger.ReturnRequest{Quantity: dec("2")})
	require.NoError(t, err)
	assert.True(t, dec("150").Equal(ret.UnitPrice))
	assert.True(t, dec("300").Equal(ret.Amount()))

	// Price changes live in catalog data; the accepted record is immutable.
	line.UnitPrice = dec("999")
	assert.True(t, dec("300").Equal(ret.Amount()))
}

func TestValidateReturn_CarriesLineAndInvoiceRefs(t *testing.T) {
	line := ledger.LineItem{ID: "line-1", InvoiceID: "inv-1", Quantity: dec("3"), UnitPrice: dec("20")}

	ret, err := ledger.ValidateReturn(line, nil, ledger.ReturnRequest{
		Quantity: dec("1"),
		Remarks:  "wrong size",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.LineItemID("line-1"), ret.LineItemID)
	assert.Equal(t, ledger.InvoiceID("inv-1"), ret.InvoiceID)
	assert.Equal(t, "wrong size", ret.Remarks)
	assert.NotEmpty(t, ret.ID)
}
