package quote

import (
	"time"

	"github.com/erp/quotefinance/internal/domain/invoice"
	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/erp/quotefinance/internal/domain/statement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Quote DTOs ====================

// CreateQuoteRequest represents a request to create a draft quote
type CreateQuoteRequest struct {
	CustomerID   uuid.UUID              `json:"customer_id"`
	CustomerName string                 `json:"customer_name" binding:"max=200"`
	Currency     string                 `json:"currency" binding:"omitempty,len=3"`
	CollectorID  *uuid.UUID             `json:"collector_id"`
	Recipient    string                 `json:"recipient" binding:"max=100"`
	Phone        string                 `json:"phone" binding:"max=50"`
	Address      string                 `json:"address" binding:"max=500"`
	Remark       string                 `json:"remark" binding:"max=1000"`
	Items        []CreateQuoteItemInput `json:"items" binding:"dive"`
}

// CreateQuoteItemInput represents an item in the create quote request
type CreateQuoteItemInput struct {
	FeeType     string          `json:"fee_type" binding:"required,min=1,max=50"`
	Description string          `json:"description" binding:"max=500"`
	Spec        string          `json:"spec" binding:"max=200"`
	Unit        string          `json:"unit" binding:"max=20"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

func (in CreateQuoteItemInput) toDomain() quote.ItemInput {
	return quote.ItemInput{
		FeeType:     in.FeeType,
		Description: in.Description,
		Spec:        in.Spec,
		Unit:        in.Unit,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
	}
}

// UpdateQuoteHeaderRequest represents a request to update a draft quote's header.
// Nil fields are left untouched.
type UpdateQuoteHeaderRequest struct {
	Currency     *string    `json:"currency" binding:"omitempty,len=3"`
	CustomerID   *uuid.UUID `json:"customer_id"`
	CustomerName *string    `json:"customer_name" binding:"omitempty,max=200"`
	Recipient    *string    `json:"recipient" binding:"omitempty,max=100"`
	Phone        *string    `json:"phone" binding:"omitempty,max=50"`
	Address      *string    `json:"address" binding:"omitempty,max=500"`
	Remark       *string    `json:"remark" binding:"omitempty,max=1000"`
}

// CancelQuoteRequest represents a request to cancel a quote
type CancelQuoteRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ChangeCollectorRequest represents a request to reassign payment collection
type ChangeCollectorRequest struct {
	CollectorID uuid.UUID `json:"collector_id" binding:"required"`
}

// QuoteListFilter represents filter options for quote list
type QuoteListFilter struct {
	Search        string     `form:"search"`
	CustomerID    *uuid.UUID `form:"customer_id"`
	CollectorID   *uuid.UUID `form:"collector_id"`
	Status        string     `form:"status" binding:"omitempty,oneof=DRAFT CONFIRMED CANCELLED"`
	PaymentStatus string     `form:"payment_status" binding:"omitempty,oneof=UNPAID PARTIAL PAID"`
	InvoiceStatus string     `form:"invoice_status" binding:"omitempty,oneof=UNINVOICED IN_PROCESS PARTIAL FULLY_INVOICED"`
	Page          int        `form:"page" binding:"omitempty,min=1"`
	PageSize      int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string     `form:"order_by"`
	OrderDir      string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// QuoteItemResponse represents a quote line in API responses
type QuoteItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	LineNo      int             `json:"line_no"`
	FeeType     string          `json:"fee_type"`
	Description string          `json:"description"`
	Spec        string          `json:"spec,omitempty"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID             uuid.UUID           `json:"id"`
	QuoteNo        string              `json:"quote_no"`
	Status         string              `json:"status"`
	PaymentStatus  string              `json:"payment_status"`
	InvoiceStatus  string              `json:"invoice_status"`
	VoidStatus     string              `json:"void_status"`
	Currency       string              `json:"currency"`
	CustomerID     uuid.UUID           `json:"customer_id"`
	CustomerName   string              `json:"customer_name"`
	CollectorID    uuid.UUID           `json:"collector_id"`
	CreatorID      uuid.UUID           `json:"creator_id"`
	ParentQuoteID  *uuid.UUID          `json:"parent_quote_id,omitempty"`
	Recipient      string              `json:"recipient"`
	Phone          string              `json:"phone"`
	Address        string              `json:"address"`
	Remark         string              `json:"remark"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	PaidAmount     decimal.Decimal     `json:"paid_amount"`
	InvoicedAmount decimal.Decimal     `json:"invoiced_amount"`
	Items          []QuoteItemResponse `json:"items"`
	ConfirmedAt    *time.Time          `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason   string              `json:"cancel_reason,omitempty"`
	Version        int                 `json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ToQuoteResponse converts a domain Quote to QuoteResponse
func ToQuoteResponse(q *quote.Quote) QuoteResponse {
	items := make([]QuoteItemResponse, len(q.Items))
	for i, item := range q.Items {
		items[i] = QuoteItemResponse{
			ID:          item.ID,
			LineNo:      item.LineNo,
			FeeType:     item.FeeType,
			Description: item.Description,
			Spec:        item.Spec,
			Unit:        item.Unit,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		}
	}
	return QuoteResponse{
		ID:             q.ID,
		QuoteNo:        q.QuoteNo,
		Status:         string(q.Status),
		PaymentStatus:  string(q.PaymentStatus),
		InvoiceStatus:  string(q.InvoiceStatus),
		VoidStatus:     string(q.VoidStatus),
		Currency:       q.Currency.String(),
		CustomerID:     q.CustomerID,
		CustomerName:   q.CustomerName,
		CollectorID:    q.CollectorID,
		CreatorID:      q.CreatorID,
		ParentQuoteID:  q.ParentQuoteID,
		Recipient:      q.Recipient,
		Phone:          q.Phone,
		Address:        q.Address,
		Remark:         q.Remark,
		TotalAmount:    q.ItemTotal(),
		PaidAmount:     q.PaidAmount,
		InvoicedAmount: q.InvoicedAmount,
		Items:          items,
		ConfirmedAt:    q.ConfirmedAt,
		CancelledAt:    q.CancelledAt,
		CancelReason:   q.CancelReason,
		Version:        q.Version,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}
}

// ToQuoteResponses converts a slice of quotes
func ToQuoteResponses(quotes []quote.Quote) []QuoteResponse {
	responses := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		responses[i] = ToQuoteResponse(&quotes[i])
	}
	return responses
}

// WorkflowHistoryResponse represents a quote history entry in API responses
type WorkflowHistoryResponse struct {
	ID             uuid.UUID `json:"id"`
	Action         string    `json:"action"`
	OperatorID     uuid.UUID `json:"operator_id"`
	PreviousStatus string    `json:"previous_status"`
	CurrentStatus  string    `json:"current_status"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToWorkflowHistoryResponses converts history entries
func ToWorkflowHistoryResponses(entries []quote.WorkflowHistory) []WorkflowHistoryResponse {
	responses := make([]WorkflowHistoryResponse, len(entries))
	for i, h := range entries {
		responses[i] = WorkflowHistoryResponse{
			ID:             h.ID,
			Action:         string(h.Action),
			OperatorID:     h.OperatorID,
			PreviousStatus: h.PreviousStatus,
			CurrentStatus:  h.CurrentStatus,
			Reason:         h.Reason,
			CreatedAt:      h.CreatedAt,
		}
	}
	return responses
}

// ==================== Payment DTOs ====================

// SubmitPaymentRequest represents a payment submission against a confirmed quote
type SubmitPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	MethodID    uuid.UUID       `json:"method_id"`
	PaidAt      time.Time       `json:"paid_at" binding:"required"`
	BatchNo     string          `json:"batch_no" binding:"max=64"`
	Note        string          `json:"note" binding:"max=500"`
	Attachments []string        `json:"attachments" binding:"max=20"`
}

// ConfirmPaymentRequest represents finance's decision on a submitted payment
type ConfirmPaymentRequest struct {
	Action   string `json:"action" binding:"required,oneof=CONFIRM RETURN"`
	Note     string `json:"note" binding:"max=500"`
	Strategy string `json:"overpayment_strategy" binding:"omitempty,oneof=REJECT CREATE_BALANCE"`
}

// PaymentSourceResponse describes how an overpayment was resolved
type PaymentSourceResponse struct {
	Strategy    string          `json:"strategy"`
	ReferenceID uuid.UUID       `json:"reference_id"`
	Balance     decimal.Decimal `json:"balance"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID             uuid.UUID              `json:"id"`
	QuoteID        uuid.UUID              `json:"quote_id"`
	CustomerID     uuid.UUID              `json:"customer_id"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	MethodID       uuid.UUID              `json:"method_id"`
	PaidAt         time.Time              `json:"paid_at"`
	Status         string                 `json:"status"`
	SubmitterID    uuid.UUID              `json:"submitter_id"`
	SubmittedAt    time.Time              `json:"submitted_at"`
	ConfirmerID    *uuid.UUID             `json:"confirmer_id,omitempty"`
	ConfirmedAt    *time.Time             `json:"confirmed_at,omitempty"`
	ConfirmNote    string                 `json:"confirm_note,omitempty"`
	BatchNo        string                 `json:"batch_no,omitempty"`
	Note           string                 `json:"note,omitempty"`
	AttachmentURLs []string               `json:"attachment_urls"`
	StatementID    *uuid.UUID             `json:"statement_id,omitempty"`
	Source         *PaymentSourceResponse `json:"source,omitempty"`
}

// ToPaymentResponse converts a domain Payment to PaymentResponse
func ToPaymentResponse(p *payment.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:             p.ID,
		QuoteID:        p.QuoteID,
		CustomerID:     p.CustomerID,
		Amount:         p.Amount,
		Currency:       p.Currency.String(),
		MethodID:       p.MethodID,
		PaidAt:         p.PaidAt,
		Status:         string(p.Status),
		SubmitterID:    p.SubmitterID,
		SubmittedAt:    p.SubmittedAt,
		ConfirmerID:    p.ConfirmerID,
		ConfirmedAt:    p.ConfirmedAt,
		ConfirmNote:    p.ConfirmNote,
		BatchNo:        p.BatchNo,
		Note:           p.Note,
		AttachmentURLs: p.AttachmentURLs,
		StatementID:    p.StatementID,
	}
	if resp.AttachmentURLs == nil {
		resp.AttachmentURLs = []string{}
	}
	if p.Source != nil {
		resp.Source = &PaymentSourceResponse{
			Strategy:    string(p.Source.Strategy),
			ReferenceID: p.Source.ReferenceID,
			Balance:     p.Source.Balance,
		}
	}
	return resp
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []payment.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = ToPaymentResponse(&payments[i])
	}
	return responses
}

// UnpaidAmountResponse reports the outstanding amount of a quote
type UnpaidAmountResponse struct {
	QuoteID  uuid.UUID       `json:"quote_id"`
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Paid     decimal.Decimal `json:"paid"`
	Unpaid   decimal.Decimal `json:"unpaid"`
}

// CreateBatchPaymentRequest settles several quotes of one customer with a
// single transfer. When StatementID is set the statement's quotes are used
// and QuoteIDs is ignored.
type CreateBatchPaymentRequest struct {
	QuoteIDs    []uuid.UUID     `json:"quote_ids" binding:"omitempty,max=200"`
	StatementID *uuid.UUID      `json:"statement_id"`
	CustomerID  *uuid.UUID      `json:"customer_id"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
	MethodID    uuid.UUID       `json:"method_id"`
	PaidAt      time.Time       `json:"paid_at" binding:"required"`
	Note        string          `json:"note" binding:"max=500"`
	Attachments []string        `json:"attachments" binding:"max=20"`
}

// BatchPaymentResponse lists the payments created for one batch
type BatchPaymentResponse struct {
	BatchNo     string            `json:"batch_no"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Currency    string            `json:"currency"`
	Payments    []PaymentResponse `json:"payments"`
}

// ==================== Invoice DTOs ====================

// InvoiceItemSelection selects an amount of one quote line
type InvoiceItemSelection struct {
	QuoteID     uuid.UUID       `json:"quote_id" binding:"required"`
	QuoteItemID uuid.UUID       `json:"quote_item_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

// InvoiceGroupInput is one invoice to be issued
type InvoiceGroupInput struct {
	InvoiceType string                 `json:"invoice_type" binding:"omitempty,oneof=NORMAL VAT_SPECIAL"`
	TaxRate     decimal.Decimal        `json:"tax_rate"`
	Content     string                 `json:"content" binding:"max=200"`
	Items       []InvoiceItemSelection `json:"items" binding:"required,min=1,dive"`
}

// CreateInvoiceApplicationRequest represents a request to apply for invoices
type CreateInvoiceApplicationRequest struct {
	Groups []InvoiceGroupInput `json:"groups" binding:"required,min=1,dive"`
}

func (r CreateInvoiceApplicationRequest) toDomain() []invoice.RecordInput {
	groups := make([]invoice.RecordInput, len(r.Groups))
	for i, g := range r.Groups {
		items := make([]invoice.ItemSelection, len(g.Items))
		for j, sel := range g.Items {
			items[j] = invoice.ItemSelection{
				QuoteID:     sel.QuoteID,
				QuoteItemID: sel.QuoteItemID,
				Amount:      sel.Amount,
			}
		}
		groups[i] = invoice.RecordInput{
			Items:       items,
			InvoiceType: invoice.InvoiceType(g.InvoiceType),
			TaxRate:     g.TaxRate,
			Content:     g.Content,
		}
	}
	return groups
}

// AuditInvoiceApplicationRequest represents finance's decision on an invoice application
type AuditInvoiceApplicationRequest struct {
	Result string `json:"result" binding:"required,oneof=APPROVE REJECT"`
	Reason string `json:"reason" binding:"max=500"`
}

// InvoiceItemRefResponse represents a selected quote line
type InvoiceItemRefResponse struct {
	QuoteID     uuid.UUID       `json:"quote_id"`
	QuoteItemID uuid.UUID       `json:"quote_item_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceRecordResponse represents one invoice of an application
type InvoiceRecordResponse struct {
	ID          uuid.UUID                `json:"id"`
	InvoiceType string                   `json:"invoice_type"`
	TaxRate     decimal.Decimal          `json:"tax_rate"`
	Content     string                   `json:"content"`
	Amount      decimal.Decimal          `json:"amount"`
	Items       []InvoiceItemRefResponse `json:"items"`
}

// InvoiceApplicationResponse represents an invoice application in API responses
type InvoiceApplicationResponse struct {
	ID            uuid.UUID               `json:"id"`
	ApplicationNo string                  `json:"application_no"`
	CollectorID   uuid.UUID               `json:"collector_id"`
	CustomerID    uuid.UUID               `json:"customer_id"`
	Currency      string                  `json:"currency"`
	TotalAmount   decimal.Decimal         `json:"total_amount"`
	Status        string                  `json:"status"`
	Records       []InvoiceRecordResponse `json:"records"`
	AuditorID     *uuid.UUID              `json:"auditor_id,omitempty"`
	AuditedAt     *time.Time              `json:"audited_at,omitempty"`
	RejectReason  string                  `json:"reject_reason,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// ToInvoiceApplicationResponse converts a domain InvoiceApplication
func ToInvoiceApplicationResponse(a *invoice.InvoiceApplication) InvoiceApplicationResponse {
	records := make([]InvoiceRecordResponse, len(a.Records))
	for i, r := range a.Records {
		refs := make([]InvoiceItemRefResponse, len(r.Items))
		for j, ref := range r.Items {
			refs[j] = InvoiceItemRefResponse{
				QuoteID:     ref.QuoteID,
				QuoteItemID: ref.QuoteItemID,
				Amount:      ref.Amount,
			}
		}
		records[i] = InvoiceRecordResponse{
			ID:          r.ID,
			InvoiceType: string(r.InvoiceType),
			TaxRate:     r.TaxRate,
			Content:     r.Content,
			Amount:      r.Amount,
			Items:       refs,
		}
	}
	return InvoiceApplicationResponse{
		ID:            a.ID,
		ApplicationNo: a.ApplicationNo,
		CollectorID:   a.CollectorID,
		CustomerID:    a.CustomerID,
		Currency:      a.Currency.String(),
		TotalAmount:   a.TotalAmount,
		Status:        string(a.Status),
		Records:       records,
		AuditorID:     a.AuditorID,
		AuditedAt:     a.AuditedAt,
		RejectReason:  a.RejectReason,
		CreatedAt:     a.CreatedAt,
	}
}

// ToInvoiceApplicationResponses converts a slice of applications
func ToInvoiceApplicationResponses(apps []invoice.InvoiceApplication) []InvoiceApplicationResponse {
	responses := make([]InvoiceApplicationResponse, len(apps))
	for i := range apps {
		responses[i] = ToInvoiceApplicationResponse(&apps[i])
	}
	return responses
}

// ==================== Statement DTOs ====================

// StatementListFilter represents filter options for the statement list
type StatementListFilter struct {
	CustomerID *uuid.UUID
	Status     string
}

// GenerateStatementRequest represents a request to batch quotes into a statement
type GenerateStatementRequest struct {
	CustomerID uuid.UUID   `json:"customer_id" binding:"required"`
	QuoteIDs   []uuid.UUID `json:"quote_ids" binding:"required,min=1"`
}

// BindPaymentsRequest represents a request to reconcile a statement
type BindPaymentsRequest struct {
	PaymentIDs []uuid.UUID `json:"payment_ids" binding:"required,min=1"`
}

// StatementItemResponse represents a quote snapshot on a statement
type StatementItemResponse struct {
	QuoteID     uuid.UUID       `json:"quote_id"`
	QuoteNo     string          `json:"quote_no"`
	QuoteTotal  decimal.Decimal `json:"quote_total"`
	QuotePaid   decimal.Decimal `json:"quote_paid"`
	QuoteUnpaid decimal.Decimal `json:"quote_unpaid"`
}

// StatementResponse represents an account statement in API responses
type StatementResponse struct {
	ID           uuid.UUID               `json:"id"`
	StatementNo  string                  `json:"statement_no"`
	CustomerID   uuid.UUID               `json:"customer_id"`
	CustomerName string                  `json:"customer_name"`
	Currency     string                  `json:"currency"`
	TotalAmount  decimal.Decimal         `json:"total_amount"`
	Status       string                  `json:"status"`
	CreatorID    uuid.UUID               `json:"creator_id"`
	Items        []StatementItemResponse `json:"items"`
	ReconciledBy *uuid.UUID              `json:"reconciled_by,omitempty"`
	ReconciledAt *time.Time              `json:"reconciled_at,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// ToStatementResponse converts a domain AccountStatement
func ToStatementResponse(s *statement.AccountStatement) StatementResponse {
	items := make([]StatementItemResponse, len(s.Items))
	for i, it := range s.Items {
		items[i] = StatementItemResponse{
			QuoteID:     it.QuoteID,
			QuoteNo:     it.QuoteNo,
			QuoteTotal:  it.QuoteTotal,
			QuotePaid:   it.QuotePaid,
			QuoteUnpaid: it.QuoteUnpaid,
		}
	}
	return StatementResponse{
		ID:           s.ID,
		StatementNo:  s.StatementNo,
		CustomerID:   s.CustomerID,
		CustomerName: s.CustomerName,
		Currency:     s.Currency.String(),
		TotalAmount:  s.TotalAmount,
		Status:       string(s.Status),
		CreatorID:    s.CreatorID,
		Items:        items,
		ReconciledBy: s.ReconciledBy,
		ReconciledAt: s.ReconciledAt,
		CreatedAt:    s.CreatedAt,
	}
}

// ToStatementResponses converts a slice of statements
func ToStatementResponses(statements []statement.AccountStatement) []StatementResponse {
	responses := make([]StatementResponse, len(statements))
	for i := range statements {
		responses[i] = ToStatementResponse(&statements[i])
	}
	return responses
}

// ==================== Void DTOs ====================

// ApplyVoidRequest represents a collector's request to void a quote
type ApplyVoidRequest struct {
	Reason      string   `json:"reason" binding:"required,min=1,max=500"`
	Attachments []string `json:"attachments" binding:"max=20"`
}

// AuditVoidRequest represents finance's decision on a void application
type AuditVoidRequest struct {
	Result string `json:"result" binding:"required,oneof=PASS REJECT"`
	Note   string `json:"note" binding:"max=500"`
}

// DirectVoidRequest represents a finance void without an application
type DirectVoidRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// VoidApplicationResponse represents a void application in API responses
type VoidApplicationResponse struct {
	ID             uuid.UUID  `json:"id"`
	QuoteID        uuid.UUID  `json:"quote_id"`
	ApplicantID    uuid.UUID  `json:"applicant_id"`
	Reason         string     `json:"reason"`
	AttachmentURLs []string   `json:"attachment_urls"`
	AppliedAt      time.Time  `json:"applied_at"`
	Status         string     `json:"status"`
	AuditorID      *uuid.UUID `json:"auditor_id,omitempty"`
	AuditNote      string     `json:"audit_note,omitempty"`
	AuditedAt      *time.Time `json:"audited_at,omitempty"`
	Direct         bool       `json:"direct"`
}

// ToVoidApplicationResponse converts a domain VoidApplication
func ToVoidApplicationResponse(a *quote.VoidApplication) VoidApplicationResponse {
	attachments := a.AttachmentURLs
	if attachments == nil {
		attachments = []string{}
	}
	return VoidApplicationResponse{
		ID:             a.ID,
		QuoteID:        a.QuoteID,
		ApplicantID:    a.ApplicantID,
		Reason:         a.Reason,
		AttachmentURLs: attachments,
		AppliedAt:      a.AppliedAt,
		Status:         string(a.Status),
		AuditorID:      a.AuditorID,
		AuditNote:      a.AuditNote,
		AuditedAt:      a.AuditedAt,
		Direct:         a.Direct,
	}
}

// ToVoidApplicationResponses converts a slice of void applications
func ToVoidApplicationResponses(apps []quote.VoidApplication) []VoidApplicationResponse {
	responses := make([]VoidApplicationResponse, len(apps))
	for i := range apps {
		responses[i] = ToVoidApplicationResponse(&apps[i])
	}
	return responses
}

func parseCurrencyOrDefault(code string, fallback valueobject.Currency) (valueobject.Currency, error) {
	if code == "" {
		return fallback, nil
	}
	return valueobject.ParseCurrency(code)
}
