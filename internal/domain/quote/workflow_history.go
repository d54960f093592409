package quote

import (
	"time"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
)

// WorkflowAction names a recorded lifecycle step
type WorkflowAction string

const (
	WorkflowActionConfirm         WorkflowAction = "CONFIRM"
	WorkflowActionCancel          WorkflowAction = "CANCEL"
	WorkflowActionVoid            WorkflowAction = "VOID"
	WorkflowActionChangeCollector WorkflowAction = "CHANGE_COLLECTOR"
)

// WorkflowHistory is an append-only audit trail entry for a quote
type WorkflowHistory struct {
	ID             uuid.UUID
	QuoteID        uuid.UUID
	Action         WorkflowAction
	OperatorID     uuid.UUID
	PreviousStatus string
	CurrentStatus  string
	Reason         string
	CreatedAt      time.Time
}

// NewWorkflowHistory records a transition of the given quote
func NewWorkflowHistory(quoteID uuid.UUID, action WorkflowAction, operatorID uuid.UUID, previous, current, reason string) *WorkflowHistory {
	return &WorkflowHistory{
		ID:             uuid.New(),
		QuoteID:        quoteID,
		Action:         action,
		OperatorID:     operatorID,
		PreviousStatus: previous,
		CurrentStatus:  current,
		Reason:         reason,
		CreatedAt:      shared.Now(),
	}
}
