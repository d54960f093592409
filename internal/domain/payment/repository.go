package payment

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository persists quote payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByIDsForUpdate locks the payments in ascending id order.
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Payment, error)
	FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]Payment, error)
	FindByQuoteAndStatus(ctx context.Context, quoteID uuid.UUID, status Status) ([]Payment, error)
	FindByStatement(ctx context.Context, statementID uuid.UUID) ([]Payment, error)
	FindByBatch(ctx context.Context, batchNo string) ([]Payment, error)
	Save(ctx context.Context, p *Payment) error
}
