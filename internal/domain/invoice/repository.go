package invoice

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceApplicationRepository persists invoice applications with their records and item refs
type InvoiceApplicationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InvoiceApplication, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InvoiceApplication, error)
	// FindPendingByQuote returns PENDING applications with at least one ref to the quote.
	FindPendingByQuote(ctx context.Context, quoteID uuid.UUID) ([]InvoiceApplication, error)
	// FindByCollector lists a collector's applications newest first.
	FindByCollector(ctx context.Context, collectorID uuid.UUID) ([]InvoiceApplication, error)
	Save(ctx context.Context, a *InvoiceApplication) error
}
