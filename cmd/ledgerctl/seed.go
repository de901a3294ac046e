package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
)

// seedCmd loads a small demo dataset: one customer with a partially paid
// invoice and a return, one vendor with an unpaid bill. Handy for poking at
// the API without a frontend.
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a demo dataset into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()
			return seed(cmd.Context(), svc, store)
		},
	}
}

func seed(ctx context.Context, svc *ledger.Service, store ledger.Store) error {
	now := time.Now().UTC()
	dec := decimal.RequireFromString

	customer := ledger.Account{
		ID:             "acct-rahim",
		Name:           "Rahim Traders",
		Kind:           ledger.AccountCustomer,
		OpeningBalance: dec("500"),
		CreatedAt:      now,
	}
	vendor := ledger.Account{
		ID:        "acct-karim",
		Name:      "Karim Supplies",
		Kind:      ledger.AccountVendor,
		CreatedAt: now,
	}
	for _, a := range []ledger.Account{customer, vendor} {
		if err := store.SaveAccount(ctx, a); err != nil {
			return fmt.Errorf("save account %s: %w", a.ID, err)
		}
	}

	// Sale invoice: 10 units at 150, 100 discount. Payable 1400.
	lineID := ledger.LineItemID(uuid.NewString())
	sale := ledger.Invoice{
		ID:        "inv-1001",
		AccountID: customer.ID,
		Kind:      ledger.InvoiceSale,
		Date:      now.AddDate(0, 0, -14),
		Lines: []ledger.LineItem{{
			ID:          lineID,
			InvoiceID:   "inv-1001",
			ProductID:   "prod-rice-25kg",
			Description: "Rice 25kg",
			Quantity:    dec("10"),
			UnitPrice:   dec("150"),
		}},
		DiscountAmount: dec("100"),
		CreatedAt:      now,
	}
	if err := store.CreateInvoice(ctx, sale); err != nil {
		return fmt.Errorf("create invoice %s: %w", sale.ID, err)
	}

	// Purchase bill, left unpaid.
	bill := ledger.Invoice{
		ID:        "bill-2001",
		AccountID: vendor.ID,
		Kind:      ledger.InvoicePurchase,
		Date:      now.AddDate(0, 0, -7),
		Lines: []ledger.LineItem{{
			ID:          ledger.LineItemID(uuid.NewString()),
			InvoiceID:   "bill-2001",
			ProductID:   "prod-flour-50kg",
			Description: "Flour 50kg",
			Quantity:    dec("20"),
			UnitPrice:   dec("90"),
		}},
		CreatedAt: now,
	}
	if err := store.CreateInvoice(ctx, bill); err != nil {
		return fmt.Errorf("create invoice %s: %w", bill.ID, err)
	}

	// Partial payment on the sale, through the full validation flow.
	if _, err := svc.SubmitPayment(ctx, sale.ID, ledger.PaymentRequest{
		Amount: dec("800"),
		Date:   now.AddDate(0, 0, -10),
		Mode:   ledger.ModeCash,
	}); err != nil {
		return fmt.Errorf("submit payment: %w", err)
	}

	// One return of 2 units against the sold line.
	if _, err := svc.SubmitReturn(ctx, lineID, ledger.ReturnRequest{
		Quantity: dec("2"),
		Date:     now.AddDate(0, 0, -5),
		Remarks:  "damaged bags",
	}); err != nil {
		return fmt.Errorf("submit return: %w", err)
	}

	fmt.Println("Seeded demo data:")
	fmt.Println("  accounts:  acct-rahim (customer), acct-karim (vendor)")
	fmt.Println("  invoices:  inv-1001 (sale, partially paid), bill-2001 (purchase, unpaid)")
	fmt.Println("  payments:  800 cash on inv-1001")
	fmt.Println("  returns:   2 units on inv-1001's line")
	return nil
}
