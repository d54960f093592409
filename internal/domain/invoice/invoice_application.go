package invoice

import (
	"sort"
	"strings"
	"time"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateType is the aggregate type name used in domain events
const AggregateType = "InvoiceApplication"

// DefaultContent is the invoice content used when a group leaves it empty
const DefaultContent = "Software Service"

// Status represents the state of an invoice application
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// AuditResult is the closed set of decisions on an invoice application
type AuditResult string

const (
	AuditApprove AuditResult = "APPROVE"
	AuditReject  AuditResult = "REJECT"
)

// IsValid checks if the result is a valid AuditResult
func (r AuditResult) IsValid() bool {
	switch r {
	case AuditApprove, AuditReject:
		return true
	}
	return false
}

// String returns the string representation of AuditResult
func (r AuditResult) String() string {
	return string(r)
}

// InvoiceType distinguishes ordinary from special VAT invoices
type InvoiceType string

const (
	InvoiceTypeNormal     InvoiceType = "NORMAL"
	InvoiceTypeVATSpecial InvoiceType = "VAT_SPECIAL"
)

// IsValid checks if the type is a valid InvoiceType
func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeNormal, InvoiceTypeVATSpecial:
		return true
	}
	return false
}

// InvoiceItemRef selects an amount of one quote line for invoicing
type InvoiceItemRef struct {
	ID          uuid.UUID
	RecordID    uuid.UUID
	QuoteID     uuid.UUID
	QuoteItemID uuid.UUID
	Amount      decimal.Decimal
}

// InvoiceRecord is one invoice to be issued, covering one or more item refs
type InvoiceRecord struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	InvoiceType   InvoiceType
	TaxRate       decimal.Decimal
	Content       string
	Amount        decimal.Decimal
	Items         []InvoiceItemRef
}

// ItemSelection is the caller's pick of a quote line and an amount
type ItemSelection struct {
	QuoteID     uuid.UUID
	QuoteItemID uuid.UUID
	Amount      decimal.Decimal
}

// RecordInput describes one group of selections that becomes an InvoiceRecord
type RecordInput struct {
	Items       []ItemSelection
	InvoiceType InvoiceType
	TaxRate     decimal.Decimal
	Content     string
}

// InvoiceApplication groups invoice records awaiting finance approval
type InvoiceApplication struct {
	shared.BaseAggregateRoot
	ApplicationNo string
	CollectorID   uuid.UUID
	CustomerID    uuid.UUID
	Currency      valueobject.Currency
	TotalAmount   decimal.Decimal
	Status        Status
	Records       []InvoiceRecord
	AuditorID     *uuid.UUID
	AuditedAt     *time.Time
	RejectReason  string
}

// ValidateGroups checks the shape of the requested groups before any quote is loaded.
func ValidateGroups(groups []RecordInput) error {
	if len(groups) == 0 {
		return shared.NewValidationError("at least one invoice group is required")
	}
	for gi, g := range groups {
		if len(g.Items) == 0 {
			return shared.NewValidationError("invoice group %d has no items", gi+1)
		}
		if g.InvoiceType != "" && !g.InvoiceType.IsValid() {
			return shared.NewValidationError("invalid invoice type: %s", g.InvoiceType)
		}
		if g.TaxRate.IsNegative() || g.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return shared.NewValidationError("tax rate must be within [0, 1)")
		}
		for _, sel := range g.Items {
			if sel.QuoteID == uuid.Nil || sel.QuoteItemID == uuid.Nil {
				return shared.NewValidationError("quote id and quote item id are required")
			}
			// Amounts are booked at cent scale, so the rounded value must stay positive.
			if !valueobject.Round2(sel.Amount).IsPositive() {
				return shared.NewValidationError("invoice item amount must be at least 0.01")
			}
		}
	}
	return nil
}

// NewInvoiceApplication builds a PENDING application. Quote-level checks
// (state, customer, currency, collector, remaining quota) are done by the caller.
func NewInvoiceApplication(
	applicationNo string,
	collectorID uuid.UUID,
	customerID uuid.UUID,
	currency valueobject.Currency,
	groups []RecordInput,
) (*InvoiceApplication, error) {
	if err := ValidateGroups(groups); err != nil {
		return nil, err
	}
	if collectorID == uuid.Nil {
		return nil, shared.NewValidationError("collector id is required")
	}

	app := &InvoiceApplication{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ApplicationNo:     applicationNo,
		CollectorID:       collectorID,
		CustomerID:        customerID,
		Currency:          currency,
		Status:            StatusPending,
		Records:           make([]InvoiceRecord, 0, len(groups)),
	}

	recordTotals := make([]decimal.Decimal, 0, len(groups))
	for _, g := range groups {
		record := InvoiceRecord{
			ID:            uuid.New(),
			ApplicationID: app.ID,
			InvoiceType:   g.InvoiceType,
			TaxRate:       g.TaxRate,
			Content:       strings.TrimSpace(g.Content),
			Items:         make([]InvoiceItemRef, 0, len(g.Items)),
		}
		if record.InvoiceType == "" {
			record.InvoiceType = InvoiceTypeNormal
		}
		if record.Content == "" {
			record.Content = DefaultContent
		}

		amounts := make([]decimal.Decimal, 0, len(g.Items))
		for _, sel := range g.Items {
			amount := valueobject.Round2(sel.Amount)
			record.Items = append(record.Items, InvoiceItemRef{
				ID:          uuid.New(),
				RecordID:    record.ID,
				QuoteID:     sel.QuoteID,
				QuoteItemID: sel.QuoteItemID,
				Amount:      amount,
			})
			amounts = append(amounts, amount)
		}
		record.Amount = valueobject.SumMoney(amounts...)
		recordTotals = append(recordTotals, record.Amount)
		app.Records = append(app.Records, record)
	}
	app.TotalAmount = valueobject.SumMoney(recordTotals...)

	app.AddDomainEvent(NewApplicationCreatedEvent(app))
	return app, nil
}

// AmountsByQuote sums item ref amounts per referenced quote
func (a *InvoiceApplication) AmountsByQuote() map[uuid.UUID]decimal.Decimal {
	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, r := range a.Records {
		for _, ref := range r.Items {
			sums[ref.QuoteID] = valueobject.SumMoney(sums[ref.QuoteID], ref.Amount)
		}
	}
	return sums
}

// QuoteIDs returns the referenced quote ids in ascending order
func (a *InvoiceApplication) QuoteIDs() []uuid.UUID {
	return SortedQuoteIDs(a.AmountsByQuote())
}

// ReferencesQuote reports whether any record selects a line of the quote
func (a *InvoiceApplication) ReferencesQuote(quoteID uuid.UUID) bool {
	_, ok := a.AmountsByQuote()[quoteID]
	return ok
}

// Audit decides a PENDING application
func (a *InvoiceApplication) Audit(auditorID uuid.UUID, result AuditResult, reason string) error {
	if !result.IsValid() {
		return shared.NewValidationError("invalid invoice audit result: %s", result)
	}
	if auditorID == uuid.Nil {
		return shared.NewValidationError("auditor id is required")
	}
	if a.Status != StatusPending {
		return shared.NewInvalidStateError("only PENDING invoice applications can be audited, application is %s", a.Status)
	}

	now := shared.Now()
	switch result {
	case AuditApprove:
		a.Status = StatusApproved
	case AuditReject:
		a.Status = StatusRejected
		a.RejectReason = reason
	}
	a.AuditorID = &auditorID
	a.AuditedAt = &now
	a.Touch()

	a.AddDomainEvent(NewApplicationAuditedEvent(a, result))
	return nil
}

// Cancel withdraws a PENDING application, e.g. because a referenced quote was voided
func (a *InvoiceApplication) Cancel() error {
	if a.Status != StatusPending {
		return shared.NewInvalidStateError("only PENDING invoice applications can be cancelled, application is %s", a.Status)
	}
	a.Status = StatusCancelled
	a.Touch()
	return nil
}

// SortedQuoteIDs returns the keys of a per-quote map in ascending order so
// that row locks are always taken in the same order.
func SortedQuoteIDs(m map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}
