/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  All amounts travel as decimal strings ("1500.00"), never as floats.
  Parsing happens in handlers via decimal.NewFromString; a float anywhere
  on the wire is a bug.

TYPES:
  Account:
    AccountDTO, CreateAccountRequest

  Invoice:
    InvoiceDTO, LineItemDTO, CreateInvoiceRequest, CreateLineItemRequest

  Settlement:
    SettlementDTO (derived, embedded in InvoiceDTO)

  Payment:
    PaymentDTO, SubmitPaymentRequest

  Return:
    ReturnDTO, SubmitReturnRequest

  Statement:
    StatementRowDTO, StatementDTO

  Reports:
    PortfolioDTO

VALIDATION:
  Structural validation (parseable decimals, known enum values) is done in
  handlers. Business validation (exceeds-due, exceeds-sold-quantity) is done
  by the ledger validators; handlers only translate the resulting errors.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain model these map from
*/
package api

import (
	"time"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
)

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

// AccountDTO represents a customer or vendor account in API responses.
type AccountDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	OpeningBalance string `json:"opening_balance"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	OpeningBalance string `json:"opening_balance"`
}

// =============================================================================
// INVOICE TYPES
// =============================================================================

// LineItemDTO represents one invoice line in API responses.
type LineItemDTO struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id,omitempty"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

// SettlementDTO is the derived settlement state of an invoice. It is
// computed per response and never stored.
type SettlementDTO struct {
	Paid   string `json:"paid"`
	Due    string `json:"due"`
	Status string `json:"status"`
}

// InvoiceDTO represents an invoice with its derived settlement.
type InvoiceDTO struct {
	ID             string        `json:"id"`
	AccountID      string        `json:"account_id"`
	Kind           string        `json:"kind"`
	Date           string        `json:"date"`
	Lines          []LineItemDTO `json:"lines,omitempty"`
	DiscountAmount string        `json:"discount_amount"`
	TotalAmount    string        `json:"total_amount"`
	TotalPayable   string        `json:"total_payable"`
	Settlement     SettlementDTO `json:"settlement"`
	CreatedAt      string        `json:"created_at,omitempty"`
}

// CreateLineItemRequest is one line of an invoice creation request.
type CreateLineItemRequest struct {
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// CreateInvoiceRequest is the request to create an invoice with its lines.
type CreateInvoiceRequest struct {
	ID             string                  `json:"id"`
	AccountID      string                  `json:"account_id"`
	Kind           string                  `json:"kind"`
	Date           string                  `json:"date"`
	Lines          []CreateLineItemRequest `json:"lines"`
	DiscountAmount string                  `json:"discount_amount"`
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// PaymentDTO represents a recorded payment.
type PaymentDTO struct {
	ID           string `json:"id"`
	InvoiceID    string `json:"invoice_id"`
	Date         string `json:"date"`
	Mode         string `json:"mode"`
	Amount       string `json:"amount"`
	BankName     string `json:"bank_name,omitempty"`
	BankAccount  string `json:"bank_account,omitempty"`
	ChequeNumber string `json:"cheque_number,omitempty"`
	Seq          int64  `json:"seq"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// SubmitPaymentRequest is the request to record a payment against an invoice.
type SubmitPaymentRequest struct {
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	Mode         string `json:"mode"`
	BankName     string `json:"bank_name,omitempty"`
	BankAccount  string `json:"bank_account,omitempty"`
	ChequeNumber string `json:"cheque_number,omitempty"`
}

// =============================================================================
// RETURN TYPES
// =============================================================================

// ReturnDTO represents a recorded return against one line item.
type ReturnDTO struct {
	ID         string `json:"id"`
	LineItemID string `json:"line_item_id"`
	InvoiceID  string `json:"invoice_id"`
	Date       string `json:"date"`
	Quantity   string `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	Amount     string `json:"amount"`
	Remarks    string `json:"remarks,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// SubmitReturnRequest is the request to record a return against a line item.
type SubmitReturnRequest struct {
	Quantity string `json:"quantity"`
	Date     string `json:"date"`
	Remarks  string `json:"remarks,omitempty"`
}

// =============================================================================
// STATEMENT TYPES
// =============================================================================

// StatementRowDTO is one line of an account statement.
type StatementRowDTO struct {
	Type        string `json:"type"`
	Date        string `json:"date,omitempty"` // empty for the opening row
	RefID       string `json:"ref_id,omitempty"`
	Description string `json:"description"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Balance     string `json:"balance"`
}

// StatementDTO wraps statement rows with the closing balance.
type StatementDTO struct {
	AccountID      string            `json:"account_id"`
	Rows           []StatementRowDTO `json:"rows"`
	ClosingBalance string            `json:"closing_balance"`
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// PortfolioDTO is the aggregated view across invoices.
type PortfolioDTO struct {
	Count        int            `json:"count"`
	Excluded     int            `json:"excluded"`
	TotalPayable string         `json:"total_payable"`
	TotalPaid    string         `json:"total_paid"`
	TotalDue     string         `json:"total_due"`
	ByStatus     map[string]int `json:"by_status"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"` // machine-readable rejection reason
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:             string(a.ID),
		Name:           a.Name,
		Kind:           string(a.Kind),
		OpeningBalance: a.OpeningBalance.String(),
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

func toLineItemDTO(li ledger.LineItem) LineItemDTO {
	return LineItemDTO{
		ID:          string(li.ID),
		ProductID:   li.ProductID,
		Description: li.Description,
		Quantity:    li.Quantity.String(),
		UnitPrice:   li.UnitPrice.String(),
		Total:       li.Total().String(),
	}
}

func toInvoiceDTO(si ledger.SettledInvoice) InvoiceDTO {
	inv := si.Invoice
	lines := make([]LineItemDTO, len(inv.Lines))
	for i, li := range inv.Lines {
		lines[i] = toLineItemDTO(li)
	}
	return InvoiceDTO{
		ID:             string(inv.ID),
		AccountID:      string(inv.AccountID),
		Kind:           string(inv.Kind),
		Date:           inv.Date.Format("2006-01-02"),
		Lines:          lines,
		DiscountAmount: inv.DiscountAmount.String(),
		TotalAmount:    inv.TotalAmount().String(),
		TotalPayable:   inv.TotalPayable().String(),
		Settlement: SettlementDTO{
			Paid:   si.Settlement.Paid.String(),
			Due:    si.Settlement.Due.String(),
			Status: string(si.Settlement.Status),
		},
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTO(p ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:           string(p.ID),
		InvoiceID:    string(p.InvoiceID),
		Date:         p.Date.Format("2006-01-02"),
		Mode:         string(p.Mode),
		Amount:       p.Amount.String(),
		BankName:     p.BankName,
		BankAccount:  p.BankAccount,
		ChequeNumber: p.ChequeNumber,
		Seq:          p.Seq,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}

func toReturnDTO(r ledger.Return) ReturnDTO {
	return ReturnDTO{
		ID:         string(r.ID),
		LineItemID: string(r.LineItemID),
		InvoiceID:  string(r.InvoiceID),
		Date:       r.Date.Format("2006-01-02"),
		Quantity:   r.Quantity.String(),
		UnitPrice:  r.UnitPrice.String(),
		Amount:     r.Amount().String(),
		Remarks:    r.Remarks,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
}

func toStatementRowDTO(row ledger.StatementRow) StatementRowDTO {
	dto := StatementRowDTO{
		Type:        string(row.Type),
		RefID:       row.RefID,
		Description: row.Description,
		Debit:       row.Debit.String(),
		Credit:      row.Credit.String(),
		Balance:     row.Balance.String(),
	}
	if !row.Date.IsZero() {
		dto.Date = row.Date.Format("2006-01-02")
	}
	return dto
}
