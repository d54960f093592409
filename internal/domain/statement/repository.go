package statement

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a statement listing
type ListFilter struct {
	CustomerID *uuid.UUID
	Status     Status
}

// AccountStatementRepository persists statements with their item snapshots
type AccountStatementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*AccountStatement, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*AccountStatement, error)
	// FindAll lists statements newest first. Zero filter fields match everything.
	FindAll(ctx context.Context, filter ListFilter) ([]AccountStatement, error)
	Save(ctx context.Context, s *AccountStatement) error
}
