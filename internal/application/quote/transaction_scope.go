package quote

import (
	"context"

	"github.com/erp/quotefinance/internal/domain/invoice"
	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/statement"
)

// TransactionScope provides transactional access to the quote finance repositories.
// Every mutating operation runs inside exactly one Execute call; when fn returns
// an error the transaction is rolled back and nothing it wrote is visible.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Aggregate boundaries:
//   - QuoteRepo owns the quote header and its items. Its row lock is the
//     serialization point for payments and invoice audits on that quote.
//   - PaymentRepo, InvoiceApplicationRepo and StatementRepo reference quotes
//     by id only and never write quote rows.
//   - HistoryRepo is append-only.
type TransactionalRepositories interface {
	QuoteRepo() quote.QuoteRepository
	VoidApplicationRepo() quote.VoidApplicationRepository
	HistoryRepo() quote.WorkflowHistoryRepository
	PaymentRepo() payment.PaymentRepository
	InvoiceApplicationRepo() invoice.InvoiceApplicationRepository
	StatementRepo() statement.AccountStatementRepository
	// Sequence issues daily document numbers inside the transaction.
	Sequence() shared.NumberSequence
}
