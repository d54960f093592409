package quote

import (
	"context"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
)

// QuoteFilter narrows quote listings
type QuoteFilter struct {
	shared.Filter
	CustomerID    *uuid.UUID
	CollectorID   *uuid.UUID
	Status        Status
	PaymentStatus PaymentStatus
	InvoiceStatus InvoiceStatus
}

// QuoteRepository persists the Quote aggregate together with its items
type QuoteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)
	// FindByIDForUpdate loads the quote and holds a row lock until the
	// surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Quote, error)
	// FindByIDsForUpdate locks several quotes in ascending id order.
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Quote, error)
	FindByQuoteNo(ctx context.Context, quoteNo string) (*Quote, error)
	FindAll(ctx context.Context, filter QuoteFilter) ([]Quote, int64, error)
	Save(ctx context.Context, q *Quote) error
}

// VoidApplicationRepository persists void applications
type VoidApplicationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*VoidApplication, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*VoidApplication, error)
	FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]VoidApplication, error)
	Save(ctx context.Context, a *VoidApplication) error
}

// WorkflowHistoryRepository appends and reads quote history
type WorkflowHistoryRepository interface {
	Append(ctx context.Context, h *WorkflowHistory) error
	FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]WorkflowHistory, error)
}
