package quote

import (
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeQuoteCreated         = "QuoteCreated"
	EventTypeQuoteConfirmed       = "QuoteConfirmed"
	EventTypeQuoteCancelled       = "QuoteCancelled"
	EventTypePaymentStatusChanged = "QuotePaymentStatusChanged"
	EventTypeVoidApplied          = "QuoteVoidApplied"
	EventTypeVoidAudited          = "QuoteVoidAudited"
)

// QuoteCreatedEvent is raised when a draft quote is created
type QuoteCreatedEvent struct {
	shared.BaseDomainEvent
	QuoteID       uuid.UUID  `json:"quote_id"`
	QuoteNo       string     `json:"quote_no"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	CollectorID   uuid.UUID  `json:"collector_id"`
	ParentQuoteID *uuid.UUID `json:"parent_quote_id,omitempty"`
}

// NewQuoteCreatedEvent creates a new QuoteCreatedEvent
func NewQuoteCreatedEvent(q *Quote) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteCreated, AggregateType, q.ID),
		QuoteID:         q.ID,
		QuoteNo:         q.QuoteNo,
		CustomerID:      q.CustomerID,
		CollectorID:     q.CollectorID,
		ParentQuoteID:   q.ParentQuoteID,
	}
}

// QuoteConfirmedEvent is raised when a quote becomes CONFIRMED
type QuoteConfirmedEvent struct {
	shared.BaseDomainEvent
	QuoteID   uuid.UUID       `json:"quote_id"`
	QuoteNo   string          `json:"quote_no"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Confirmer uuid.UUID       `json:"confirmer"`
}

// NewQuoteConfirmedEvent creates a new QuoteConfirmedEvent
func NewQuoteConfirmedEvent(q *Quote) *QuoteConfirmedEvent {
	var confirmer uuid.UUID
	if q.ConfirmedBy != nil {
		confirmer = *q.ConfirmedBy
	}
	return &QuoteConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteConfirmed, AggregateType, q.ID),
		QuoteID:         q.ID,
		QuoteNo:         q.QuoteNo,
		Total:           q.ItemTotal(),
		Currency:        q.Currency.String(),
		Confirmer:       confirmer,
	}
}

// QuoteCancelledEvent is raised when a quote is cancelled or voided
type QuoteCancelledEvent struct {
	shared.BaseDomainEvent
	QuoteID     uuid.UUID     `json:"quote_id"`
	QuoteNo     string        `json:"quote_no"`
	Voided      bool          `json:"voided"`
	PaidStatus  PaymentStatus `json:"payment_status"`
	Reason      string        `json:"reason,omitempty"`
	CollectorID uuid.UUID     `json:"collector_id"`
}

// NewQuoteCancelledEvent creates a new QuoteCancelledEvent
func NewQuoteCancelledEvent(q *Quote) *QuoteCancelledEvent {
	return &QuoteCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteCancelled, AggregateType, q.ID),
		QuoteID:         q.ID,
		QuoteNo:         q.QuoteNo,
		Voided:          q.VoidStatus == VoidStatusVoided,
		PaidStatus:      q.PaymentStatus,
		Reason:          q.CancelReason,
		CollectorID:     q.CollectorID,
	}
}

// PaymentStatusChangedEvent is raised when the derived payment status moves.
// Reaching PAID is the signal that locks the collector assignment.
type PaymentStatusChangedEvent struct {
	shared.BaseDomainEvent
	QuoteID        uuid.UUID       `json:"quote_id"`
	QuoteNo        string          `json:"quote_no"`
	PreviousStatus PaymentStatus   `json:"previous_status"`
	CurrentStatus  PaymentStatus   `json:"current_status"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
}

// NewPaymentStatusChangedEvent creates a new PaymentStatusChangedEvent
func NewPaymentStatusChangedEvent(q *Quote, previous PaymentStatus) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentStatusChanged, AggregateType, q.ID),
		QuoteID:         q.ID,
		QuoteNo:         q.QuoteNo,
		PreviousStatus:  previous,
		CurrentStatus:   q.PaymentStatus,
		PaidAmount:      q.PaidAmount,
	}
}

// VoidAppliedEvent is raised when a collector applies to void a quote
type VoidAppliedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID `json:"application_id"`
	QuoteID       uuid.UUID `json:"quote_id"`
	ApplicantID   uuid.UUID `json:"applicant_id"`
	Reason        string    `json:"reason"`
}

// NewVoidAppliedEvent creates a new VoidAppliedEvent
func NewVoidAppliedEvent(a *VoidApplication) *VoidAppliedEvent {
	return &VoidAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVoidApplied, VoidApplicationAggregateType, a.ID),
		ApplicationID:   a.ID,
		QuoteID:         a.QuoteID,
		ApplicantID:     a.ApplicantID,
		Reason:          a.Reason,
	}
}

// VoidAuditedEvent is raised when a void application is decided
type VoidAuditedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID       `json:"application_id"`
	QuoteID       uuid.UUID       `json:"quote_id"`
	ApplicantID   uuid.UUID       `json:"applicant_id"`
	AuditorID     uuid.UUID       `json:"auditor_id"`
	Result        VoidAuditResult `json:"result"`
	Direct        bool            `json:"direct"`
	Note          string          `json:"note,omitempty"`
}

// NewVoidAuditedEvent creates a new VoidAuditedEvent
func NewVoidAuditedEvent(a *VoidApplication, result VoidAuditResult) *VoidAuditedEvent {
	var auditor uuid.UUID
	if a.AuditorID != nil {
		auditor = *a.AuditorID
	}
	return &VoidAuditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVoidAudited, VoidApplicationAggregateType, a.ID),
		ApplicationID:   a.ID,
		QuoteID:         a.QuoteID,
		ApplicantID:     a.ApplicantID,
		AuditorID:       auditor,
		Result:          result,
		Direct:          a.Direct,
		Note:            a.AuditNote,
	}
}
