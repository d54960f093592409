package persistence

import (
	"context"
	"errors"
	"fmt"

	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/domain/invoice"
	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/statement"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction, rolling back on error.
// PostgreSQL lock contention failures surface as CONCURRENCY_CONFLICT so
// clients know the operation can be retried.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos quoteapp.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	return translateConflict(err)
}

// SQLSTATEs that mean another transaction won the race
var conflictStates = map[string]string{
	"40001": "serialization failure",
	"40P01": "deadlock detected",
	"55P03": "lock not available",
}

func translateConflict(err error) error {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return err
	}
	reason, ok := conflictStates[pgErr.Code]
	if !ok {
		return err
	}
	return shared.NewDomainError(shared.CodeConcurrencyConflict,
		fmt.Sprintf("the record was changed by a concurrent request (%s), please retry", reason))
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) QuoteRepo() quote.QuoteRepository {
	return NewGormQuoteRepository(r.tx)
}

func (r *gormTransactionalRepositories) VoidApplicationRepo() quote.VoidApplicationRepository {
	return NewGormVoidApplicationRepository(r.tx)
}

func (r *gormTransactionalRepositories) HistoryRepo() quote.WorkflowHistoryRepository {
	return NewGormWorkflowHistoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() payment.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) InvoiceApplicationRepo() invoice.InvoiceApplicationRepository {
	return NewGormInvoiceApplicationRepository(r.tx)
}

func (r *gormTransactionalRepositories) StatementRepo() statement.AccountStatementRepository {
	return NewGormAccountStatementRepository(r.tx)
}

func (r *gormTransactionalRepositories) Sequence() shared.NumberSequence {
	return NewGormNumberSequence(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ quoteapp.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ quoteapp.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
