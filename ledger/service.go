/*
service.go - Orchestration over the store and the pure calculators

PURPOSE:
  The Service is what presentation and reporting collaborators call. It
  fetches snapshots from the store, runs the pure calculators/validators,
  and performs compare-and-append writes. It owns no business rules itself;
  every number comes from settlement.go/statement.go/report.go and every
  accept/reject decision from validate.go.

MUTATION FLOW (SubmitPayment, SubmitReturn):
  1. Read the relevant history at version v.
  2. Validate the proposal against that history (pure).
  3. Compare-and-append on v. ErrVersionConflict is surfaced to the caller,
     who decides whether to re-fetch and retry. The service never retries
     silently.

ATOMICITY:
  When the store implements TxStore, an accepted return and its stock
  adjustment commit or roll back together.
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Service exposes the settlement core to presentation and reporting.
type Service struct {
	store    Store
	adjuster StockAdjuster
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStockAdjuster wires the external inventory collaborator that restocks
// accepted returns.
func WithStockAdjuster(a StockAdjuster) Option {
	return func(s *Service) { s.adjuster = a }
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a Service over the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		adjuster: NopStockAdjuster{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Settle returns the derived settlement of one invoice.
func (s *Service) Settle(ctx context.Context, id InvoiceID) (Settlement, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return Settlement{}, err
	}
	payments, _, err := s.store.ListPayments(ctx, id)
	if err != nil {
		return Settlement{}, err
	}
	return Settle(*inv, payments), nil
}

// SettledInvoice is one invoice with everything the list screens show.
type SettledInvoice struct {
	Invoice    Invoice
	Settlement Settlement
}

// ListInvoices returns invoices with derived settlement, filtered. The
// store narrows by account/date; status and search filter on derived
// values here.
func (s *Service) ListInvoices(ctx context.Context, f ReportFilter) ([]SettledInvoice, error) {
	invoices, err := s.store.ListInvoices(ctx, storeFilter(f))
	if err != nil {
		return nil, err
	}

	out := make([]SettledInvoice, 0, len(invoices))
	for _, inv := range invoices {
		if !f.matchMeta(inv) || inv.Malformed() {
			continue
		}
		payments, _, err := s.store.ListPayments(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		settled := Settle(inv, payments)
		if f.Status != nil && settled.Status != *f.Status {
			continue
		}
		out = append(out, SettledInvoice{Invoice: inv, Settlement: settled})
	}
	return out, nil
}

// BuildStatement builds the running-balance statement for an account.
func (s *Service) BuildStatement(ctx context.Context, accountID AccountID) ([]StatementRow, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.store.ListInvoices(ctx, InvoiceFilter{Account: &accountID})
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListPaymentsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return BuildStatement(*account, invoices, payments), nil
}

// Aggregate folds the filtered invoice set into portfolio totals.
func (s *Service) Aggregate(ctx context.Context, f ReportFilter) (PortfolioTotals, error) {
	invoices, err := s.store.ListInvoices(ctx, storeFilter(f))
	if err != nil {
		return PortfolioTotals{}, err
	}

	paymentsByInvoice := make(map[InvoiceID][]Payment, len(invoices))
	for _, inv := range invoices {
		payments, _, err := s.store.ListPayments(ctx, inv.ID)
		if err != nil {
			return PortfolioTotals{}, err
		}
		paymentsByInvoice[inv.ID] = payments
	}

	return Aggregate(invoices, paymentsByInvoice, f), nil
}

// InvoiceReturns returns the return history of an invoice's line items.
func (s *Service) InvoiceReturns(ctx context.Context, id InvoiceID) ([]Return, error) {
	if _, err := s.store.GetInvoice(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListReturnsByInvoice(ctx, id)
}

// =============================================================================
// MUTATIONS - read at version v, validate, compare-and-append
// =============================================================================

// SubmitPayment validates and appends one payment against an invoice.
// Returns a RejectionError for invalid proposals and ErrVersionConflict if
// the payment set changed between read and append.
func (s *Service) SubmitPayment(ctx context.Context, invoiceID InvoiceID, req PaymentRequest) (Payment, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return Payment{}, err
	}

	existing, version, err := s.store.ListPayments(ctx, invoiceID)
	if err != nil {
		return Payment{}, err
	}

	p, err := ValidatePayment(*inv, existing, req)
	if err != nil {
		s.log.Info().
			Str("invoice_id", string(invoiceID)).
			Str("reason", string(ReasonOf(err))).
			Msg("payment rejected")
		return Payment{}, err
	}

	newVersion, err := s.store.AppendPayment(ctx, invoiceID, version, p)
	if err != nil {
		return Payment{}, err
	}

	s.log.Info().
		Str("invoice_id", string(invoiceID)).
		Str("payment_id", string(p.ID)).
		Str("amount", p.Amount.String()).
		Int64("version", newVersion).
		Msg("payment accepted")
	return p, nil
}

// SubmitReturn validates and appends one return against a sold line item.
// When the store supports transactions, the append and the stock adjustment
// commit or roll back together.
func (s *Service) SubmitReturn(ctx context.Context, lineItemID LineItemID, req ReturnRequest) (Return, error) {
	line, err := s.store.GetLineItem(ctx, lineItemID)
	if err != nil {
		return Return{}, err
	}

	prior, version, err := s.store.ListReturns(ctx, lineItemID)
	if err != nil {
		return Return{}, err
	}

	ret, err := ValidateReturn(*line, prior, req)
	if err != nil {
		s.log.Info().
			Str("line_item_id", string(lineItemID)).
			Str("reason", string(ReasonOf(err))).
			Msg("return rejected")
		return Return{}, err
	}

	if tx, ok := s.store.(TxStore); ok {
		err = tx.WithTx(ctx, func(st Store) error {
			if _, err := st.AppendReturn(ctx, lineItemID, version, ret); err != nil {
				return err
			}
			if err := s.adjuster.ApplyReturn(ctx, ret); err != nil {
				return fmt.Errorf("stock adjustment failed: %w", err)
			}
			return nil
		})
	} else {
		_, err = s.store.AppendReturn(ctx, lineItemID, version, ret)
		if err == nil {
			err = s.adjuster.ApplyReturn(ctx, ret)
		}
	}
	if err != nil {
		return Return{}, err
	}

	s.log.Info().
		Str("line_item_id", string(lineItemID)).
		Str("return_id", string(ret.ID)).
		Str("quantity", ret.Quantity.String()).
		Msg("return accepted")
	return ret, nil
}

func storeFilter(f ReportFilter) InvoiceFilter {
	sf := InvoiceFilter{Account: f.Account}
	if f.From != nil {
		from := day(*f.From).Unix()
		sf.From = &from
	}
	if f.To != nil {
		to := day(*f.To).Unix()
		sf.To = &to
	}
	return sf
}
