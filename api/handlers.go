/*
handlers.go - HTTP API handlers for the settlement ledger

PURPOSE:
  Exposes the settlement and statement engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                     List all accounts
    POST   /api/accounts                     Create account
    GET    /api/accounts/{id}                Get account details
    GET    /api/accounts/{id}/statement      Running-balance statement
    GET    /api/accounts/{id}/payments       Payment history across invoices

  Invoices:
    GET    /api/invoices                     List invoices with settlement
    POST   /api/invoices                     Create invoice with line items
    GET    /api/invoices/{id}                Get invoice with settlement
    GET    /api/invoices/{id}/payments       Payment history
    POST   /api/invoices/{id}/payments       Record payment
    GET    /api/invoices/{id}/returns        Return history

  Returns:
    POST   /api/line-items/{id}/returns      Record return

  Reports:
    GET    /api/reports/portfolio            Aggregated totals

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: settlement calculators, validators, compare-and-append flow
  - Store: direct reads for master data (accounts, raw invoices)

REQUEST FLOW:
  1. Parse HTTP request
  2. Structural validation (decimals parse, enums known)
  3. Call domain logic (settle, validate, append)
  4. Serialize response
  5. Translate domain errors to HTTP status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input (bad JSON, unparseable decimal or date)
  - 404: Account, invoice, or line item not found
  - 409: Version conflict on append, duplicate ID
  - 422: Rejected by a validator (body carries the rejection reason)
  - 500: Store failures

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/service.go: The domain flows these handlers call
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *ledger.Service
	Store   ledger.Store
}

// NewHandler creates a new handler.
func NewHandler(svc *ledger.Service, store ledger.Store) *Handler {
	return &Handler{Service: svc, Store: store}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates a customer or vendor account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	kind := ledger.AccountKind(req.Kind)
	if kind != ledger.AccountCustomer && kind != ledger.AccountVendor {
		writeError(w, http.StatusBadRequest, "Kind must be customer or vendor", nil)
		return
	}

	opening := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		opening, err = decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid opening_balance", err)
			return
		}
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	account := ledger.Account{
		ID:             ledger.AccountID(id),
		Name:           req.Name,
		Kind:           kind,
		OpeningBalance: opening,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.Store.SaveAccount(r.Context(), account); err != nil {
		writeDomainError(w, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	account, err := h.Store.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// GetStatement returns the ordered running-balance statement of an account.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	rows, err := h.Service.BuildStatement(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to build statement", err)
		return
	}

	dtos := make([]StatementRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toStatementRowDTO(row)
	}
	writeJSON(w, http.StatusOK, StatementDTO{
		AccountID:      string(id),
		Rows:           dtos,
		ClosingBalance: ledger.ClosingBalance(rows).String(),
	})
}

// GetAccountPayments returns all payments recorded against the account's
// invoices, across invoices.
func (h *Handler) GetAccountPayments(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetAccount(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get account", err)
		return
	}
	payments, err := h.Store.ListPaymentsByAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns invoices with derived settlement, filtered by query
// parameters: status, q (search), from, to, account_id.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	settled, err := h.Service.ListInvoices(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(settled))
	for i, si := range settled {
		dtos[i] = toInvoiceDTO(si)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateInvoice creates an invoice with its line items in one shot.
// Invoices are immutable once created; corrections happen through payments
// and returns, never through edits.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	kind := ledger.InvoiceKind(req.Kind)
	if kind != ledger.InvoiceSale && kind != ledger.InvoicePurchase {
		writeError(w, http.StatusBadRequest, "Kind must be sale or purchase", nil)
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "At least one line item is required", nil)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	discount := decimal.Zero
	if req.DiscountAmount != "" {
		discount, err = decimal.NewFromString(req.DiscountAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid discount_amount", err)
			return
		}
	}

	accountID := ledger.AccountID(req.AccountID)
	if _, err := h.Store.GetAccount(r.Context(), accountID); err != nil {
		writeDomainError(w, "Failed to resolve account", err)
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	inv := ledger.Invoice{
		ID:             ledger.InvoiceID(id),
		AccountID:      accountID,
		Kind:           kind,
		Date:           date,
		DiscountAmount: discount,
		CreatedAt:      time.Now().UTC(),
	}
	for _, lr := range req.Lines {
		qty, err := decimal.NewFromString(lr.Quantity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid line quantity", err)
			return
		}
		price, err := decimal.NewFromString(lr.UnitPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid line unit_price", err)
			return
		}
		inv.Lines = append(inv.Lines, ledger.LineItem{
			ID:          ledger.LineItemID(uuid.NewString()),
			InvoiceID:   inv.ID,
			ProductID:   lr.ProductID,
			Description: lr.Description,
			Quantity:    qty,
			UnitPrice:   price,
		})
	}

	if err := h.Store.CreateInvoice(r.Context(), inv); err != nil {
		writeDomainError(w, "Failed to create invoice", err)
		return
	}

	settlement, err := h.Service.Settle(r.Context(), inv.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to settle invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(ledger.SettledInvoice{Invoice: inv, Settlement: settlement}))
}

// GetInvoice returns one invoice with its derived settlement.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))

	inv, err := h.Store.GetInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get invoice", err)
		return
	}
	settlement, err := h.Service.Settle(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to settle invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(ledger.SettledInvoice{Invoice: *inv, Settlement: settlement}))
}

// GetInvoicePayments returns the payment history of an invoice.
func (h *Handler) GetInvoicePayments(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetInvoice(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get invoice", err)
		return
	}
	payments, _, err := h.Store.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitPayment records a payment against an invoice.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))

	var req SubmitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	payment, err := h.Service.SubmitPayment(r.Context(), id, ledger.PaymentRequest{
		Amount:       amount,
		Date:         date,
		Mode:         ledger.PaymentMode(req.Mode),
		BankName:     req.BankName,
		BankAccount:  req.BankAccount,
		ChequeNumber: req.ChequeNumber,
	})
	if err != nil {
		writeDomainError(w, "Payment not recorded", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

// GetInvoiceReturns returns the return history across an invoice's lines.
func (h *Handler) GetInvoiceReturns(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))

	returns, err := h.Service.InvoiceReturns(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list returns", err)
		return
	}

	dtos := make([]ReturnDTO, len(returns))
	for i, ret := range returns {
		dtos[i] = toReturnDTO(ret)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RETURN HANDLERS
// =============================================================================

// SubmitReturn records a return against a sold line item.
func (h *Handler) SubmitReturn(w http.ResponseWriter, r *http.Request) {
	id := ledger.LineItemID(chi.URLParam(r, "id"))

	var req SubmitReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quantity", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	ret, err := h.Service.SubmitReturn(r.Context(), id, ledger.ReturnRequest{
		Quantity: qty,
		Date:     date,
		Remarks:  req.Remarks,
	})
	if err != nil {
		writeDomainError(w, "Return not recorded", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReturnDTO(ret))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetPortfolio returns aggregated totals over the filtered invoice set.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	totals, err := h.Service.Aggregate(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate", err)
		return
	}

	byStatus := make(map[string]int, len(totals.ByStatus))
	for status, n := range totals.ByStatus {
		byStatus[string(status)] = n
	}
	writeJSON(w, http.StatusOK, PortfolioDTO{
		Count:        totals.Count,
		Excluded:     totals.Excluded,
		TotalPayable: totals.TotalPayable.String(),
		TotalPaid:    totals.TotalPaid.String(),
		TotalDue:     totals.TotalDue.String(),
		ByStatus:     byStatus,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseReportFilter(r *http.Request) (ledger.ReportFilter, error) {
	var f ledger.ReportFilter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status := ledger.Status(s)
		if !ledger.ValidStatus(status) {
			return f, errors.New("unknown status: " + s)
		}
		f.Status = &status
	}
	f.Search = strings.TrimSpace(q.Get("q"))
	if s := q.Get("account_id"); s != "" {
		id := ledger.AccountID(s)
		f.Account = &id
	}
	if s := q.Get("from"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return f, err
		}
		f.To = &t
	}
	return f, nil
}

// writeDomainError translates ledger errors to HTTP statuses. Rejections
// carry their machine-readable reason so the dashboard can show a specific
// message instead of a generic failure.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsRejection(err):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   message,
			Reason:  string(ledger.ReasonOf(err)),
			Details: err.Error(),
		})
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, "Record changed concurrently, retry", err)
	case errors.Is(err, ledger.ErrDuplicateID):
		writeError(w, http.StatusConflict, "Duplicate ID", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
