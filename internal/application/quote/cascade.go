package quote

import (
	"context"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/invoice"
	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Helpers shared by the services. All of them run inside the caller's
// transaction and expect the quote row to be locked already.

// confirmedSum totals the CONFIRMED payments of a quote
func confirmedSum(ctx context.Context, repos TransactionalRepositories, quoteID uuid.UUID) (decimal.Decimal, error) {
	confirmed, err := repos.PaymentRepo().FindByQuoteAndStatus(ctx, quoteID, payment.StatusConfirmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load confirmed payments: %w", err)
	}
	return payment.SumAmounts(confirmed), nil
}

// unpaidAmount is max(0, total - Σ confirmed)
func unpaidAmount(ctx context.Context, repos TransactionalRepositories, q *quote.Quote) (decimal.Decimal, decimal.Decimal, error) {
	paid, err := confirmedSum(ctx, repos, q.ID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return valueobject.NonNegative(valueobject.SubMoney(q.ItemTotal(), paid)), paid, nil
}

// cancelUnconfirmedPayments withdraws every SUBMITTED payment of a quote
func cancelUnconfirmedPayments(ctx context.Context, repos TransactionalRepositories, quoteID uuid.UUID, buf *eventBuffer) (int, error) {
	submitted, err := repos.PaymentRepo().FindByQuoteAndStatus(ctx, quoteID, payment.StatusSubmitted)
	if err != nil {
		return 0, fmt.Errorf("failed to load submitted payments: %w", err)
	}
	for i := range submitted {
		p := &submitted[i]
		if err := p.Cancel(); err != nil {
			return 0, err
		}
		if err := repos.PaymentRepo().Save(ctx, p); err != nil {
			return 0, fmt.Errorf("failed to save payment: %w", err)
		}
		buf.collect(p)
	}
	return len(submitted), nil
}

// cancelPendingInvoiceApplications cancels PENDING applications that
// reference the quote and refreshes the invoice status of the other quotes
// they touched. The quote itself is refreshed by the caller.
func cancelPendingInvoiceApplications(ctx context.Context, repos TransactionalRepositories, quoteID uuid.UUID, buf *eventBuffer) (int, error) {
	pending, err := repos.InvoiceApplicationRepo().FindPendingByQuote(ctx, quoteID)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending invoice applications: %w", err)
	}

	others := make(map[uuid.UUID]decimal.Decimal)
	for i := range pending {
		app := &pending[i]
		if err := app.Cancel(); err != nil {
			return 0, err
		}
		if err := repos.InvoiceApplicationRepo().Save(ctx, app); err != nil {
			return 0, fmt.Errorf("failed to save invoice application: %w", err)
		}
		buf.collect(app)
		for id, amount := range app.AmountsByQuote() {
			if id != quoteID {
				others[id] = amount
			}
		}
	}

	if len(others) > 0 {
		quotes, err := repos.QuoteRepo().FindByIDsForUpdate(ctx, invoice.SortedQuoteIDs(others))
		if err != nil {
			return 0, err
		}
		for i := range quotes {
			if err := refreshInvoiceStatus(ctx, repos, &quotes[i]); err != nil {
				return 0, err
			}
			if err := repos.QuoteRepo().Save(ctx, &quotes[i]); err != nil {
				return 0, fmt.Errorf("failed to save quote: %w", err)
			}
		}
	}
	return len(pending), nil
}

// refreshInvoiceStatus recomputes the invoice status from the approved
// total and keeps IN_PROCESS while another application is still pending.
func refreshInvoiceStatus(ctx context.Context, repos TransactionalRepositories, q *quote.Quote) error {
	q.ReleaseInvoiceProcess()
	pending, err := repos.InvoiceApplicationRepo().FindPendingByQuote(ctx, q.ID)
	if err != nil {
		return fmt.Errorf("failed to load pending invoice applications: %w", err)
	}
	if len(pending) > 0 {
		q.MarkInvoiceInProcess()
	}
	return nil
}

func appendHistory(ctx context.Context, repos TransactionalRepositories, q *quote.Quote, action quote.WorkflowAction, operatorID uuid.UUID, previous, reason string) error {
	h := quote.NewWorkflowHistory(q.ID, action, operatorID, previous, string(q.Status), reason)
	if err := repos.HistoryRepo().Append(ctx, h); err != nil {
		return fmt.Errorf("failed to record workflow history: %w", err)
	}
	return nil
}
