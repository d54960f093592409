package statement

import (
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeStatementGenerated  = "AccountStatementGenerated"
	EventTypeStatementReconciled = "AccountStatementReconciled"
)

// StatementGeneratedEvent is raised when a statement is created
type StatementGeneratedEvent struct {
	shared.BaseDomainEvent
	StatementID uuid.UUID       `json:"statement_id"`
	StatementNo string          `json:"statement_no"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	QuoteCount  int             `json:"quote_count"`
}

// NewStatementGeneratedEvent creates a new StatementGeneratedEvent
func NewStatementGeneratedEvent(s *AccountStatement) *StatementGeneratedEvent {
	return &StatementGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStatementGenerated, AggregateType, s.ID),
		StatementID:     s.ID,
		StatementNo:     s.StatementNo,
		CustomerID:      s.CustomerID,
		TotalAmount:     s.TotalAmount,
		QuoteCount:      len(s.Items),
	}
}

// StatementReconciledEvent is raised when payments are bound to a statement
type StatementReconciledEvent struct {
	shared.BaseDomainEvent
	StatementID  uuid.UUID       `json:"statement_id"`
	StatementNo  string          `json:"statement_no"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ReconciledBy uuid.UUID       `json:"reconciled_by"`
}

// NewStatementReconciledEvent creates a new StatementReconciledEvent
func NewStatementReconciledEvent(s *AccountStatement) *StatementReconciledEvent {
	e := &StatementReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStatementReconciled, AggregateType, s.ID),
		StatementID:     s.ID,
		StatementNo:     s.StatementNo,
		CustomerID:      s.CustomerID,
		TotalAmount:     s.TotalAmount,
	}
	if s.ReconciledBy != nil {
		e.ReconciledBy = *s.ReconciledBy
	}
	return e
}
