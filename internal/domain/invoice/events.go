package invoice

import (
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeApplicationCreated = "InvoiceApplicationCreated"
	EventTypeApplicationAudited = "InvoiceApplicationAudited"
)

// ApplicationCreatedEvent is raised when an invoice application is submitted
type ApplicationCreatedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID       `json:"application_id"`
	ApplicationNo string          `json:"application_no"`
	CollectorID   uuid.UUID       `json:"collector_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	QuoteIDs      []uuid.UUID     `json:"quote_ids"`
}

// NewApplicationCreatedEvent creates a new ApplicationCreatedEvent
func NewApplicationCreatedEvent(a *InvoiceApplication) *ApplicationCreatedEvent {
	return &ApplicationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationCreated, AggregateType, a.ID),
		ApplicationID:   a.ID,
		ApplicationNo:   a.ApplicationNo,
		CollectorID:     a.CollectorID,
		TotalAmount:     a.TotalAmount,
		QuoteIDs:        a.QuoteIDs(),
	}
}

// ApplicationAuditedEvent is raised when an invoice application is approved or rejected
type ApplicationAuditedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID       `json:"application_id"`
	ApplicationNo string          `json:"application_no"`
	CollectorID   uuid.UUID       `json:"collector_id"`
	Result        AuditResult     `json:"result"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Reason        string          `json:"reason,omitempty"`
}

// NewApplicationAuditedEvent creates a new ApplicationAuditedEvent
func NewApplicationAuditedEvent(a *InvoiceApplication, result AuditResult) *ApplicationAuditedEvent {
	return &ApplicationAuditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationAudited, AggregateType, a.ID),
		ApplicationID:   a.ID,
		ApplicationNo:   a.ApplicationNo,
		CollectorID:     a.CollectorID,
		Result:          result,
		TotalAmount:     a.TotalAmount,
		Reason:          a.RejectReason,
	}
}
