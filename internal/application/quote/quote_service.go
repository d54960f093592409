package quote

import (
	"context"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/erp/quotefinance/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuoteService handles the quote aggregate: drafting, confirmation,
// cancellation and collector assignment.
type QuoteService struct {
	eventPublishing
	txScope   TransactionScope
	validator ItemValidator
	cfg       Config
}

// NewQuoteService creates a new QuoteService. A nil validator accepts every item.
func NewQuoteService(txScope TransactionScope, validator ItemValidator, cfg Config, logger *zap.Logger) *QuoteService {
	return &QuoteService{
		eventPublishing: eventPublishing{logger: nopIfNil(logger)},
		txScope:         txScope,
		validator:       validator,
		cfg:             cfg.withDefaults(),
	}
}

// CreateDraft creates a DRAFT quote with an optional initial set of items
func (s *QuoteService) CreateDraft(ctx context.Context, actorID uuid.UUID, req CreateQuoteRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "create_draft")
	defer span.End()

	currency, err := parseCurrencyOrDefault(req.Currency, s.cfg.DefaultCurrency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewValidationError("%s", err.Error())
	}
	collectorID := actorID
	if req.CollectorID != nil {
		collectorID = *req.CollectorID
	}

	var q *quote.Quote
	buf := &eventBuffer{}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		quoteNo, err := nextQuoteNo(ctx, repos.Sequence(), s.cfg.QuoteNoPrefix)
		if err != nil {
			return err
		}
		q, err = quote.NewQuote(quoteNo, req.CustomerID, req.CustomerName, currency, collectorID, actorID)
		if err != nil {
			return err
		}
		q.Recipient = req.Recipient
		q.Phone = req.Phone
		q.Address = req.Address
		q.Remark = req.Remark
		for _, in := range req.Items {
			if _, err := q.AddItem(in.toDomain()); err != nil {
				return err
			}
		}
		if err := repos.QuoteRepo().Save(ctx, q); err != nil {
			return fmt.Errorf("failed to save quote: %w", err)
		}
		buf.collect(q)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteID, q.ID.String(),
		telemetry.SpanAttrQuoteNo, q.QuoteNo,
	)
	s.logger.Info("quote drafted",
		zap.String("quote_id", q.ID.String()),
		zap.String("quote_no", q.QuoteNo),
		zap.String("actor_id", actorID.String()),
	)
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// Get retrieves a quote by ID
func (s *QuoteService) Get(ctx context.Context, quoteID uuid.UUID) (*QuoteResponse, error) {
	var resp QuoteResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		q, err := repos.QuoteRepo().FindByID(ctx, quoteID)
		if err != nil {
			return err
		}
		resp = ToQuoteResponse(q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// List retrieves a page of quotes and the total match count
func (s *QuoteService) List(ctx context.Context, filter QuoteListFilter) ([]QuoteResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := quote.QuoteFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		CustomerID:    filter.CustomerID,
		CollectorID:   filter.CollectorID,
		Status:        quote.Status(filter.Status),
		PaymentStatus: quote.PaymentStatus(filter.PaymentStatus),
		InvoiceStatus: quote.InvoiceStatus(filter.InvoiceStatus),
	}

	var (
		quotes []quote.Quote
		total  int64
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		quotes, total, err = repos.QuoteRepo().FindAll(ctx, domainFilter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return ToQuoteResponses(quotes), total, nil
}

// UpdateHeader changes header fields of a DRAFT quote
func (s *QuoteService) UpdateHeader(ctx context.Context, quoteID, actorID uuid.UUID, req UpdateQuoteHeaderRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "update_header")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrQuoteID, quoteID.String())

	update := quote.HeaderUpdate{
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Recipient:    req.Recipient,
		Phone:        req.Phone,
		Address:      req.Address,
		Remark:       req.Remark,
	}

	resp, err := s.mutate(ctx, quoteID, func(repos TransactionalRepositories, q *quote.Quote) error {
		if err := q.EnsureNotFrozen(); err != nil {
			return err
		}
		if req.Currency != nil {
			c, err := valueobject.ParseCurrency(*req.Currency)
			if err != nil {
				return shared.NewValidationError("%s", err.Error())
			}
			update.Currency = &c
		}
		return q.UpdateHeader(update)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("quote header updated",
		zap.String("quote_id", quoteID.String()),
		zap.String("actor_id", actorID.String()),
	)
	return resp, nil
}

// AddItem appends a line to a DRAFT quote
func (s *QuoteService) AddItem(ctx context.Context, quoteID, actorID uuid.UUID, req CreateQuoteItemInput) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "add_item")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrQuoteID, quoteID.String())

	resp, err := s.mutate(ctx, quoteID, func(_ TransactionalRepositories, q *quote.Quote) error {
		_, err := q.AddItem(req.toDomain())
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

// RemoveItem deletes a line from a DRAFT quote
func (s *QuoteService) RemoveItem(ctx context.Context, quoteID, itemID, actorID uuid.UUID) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "remove_item")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrQuoteID, quoteID.String())

	resp, err := s.mutate(ctx, quoteID, func(_ TransactionalRepositories, q *quote.Quote) error {
		return q.RemoveItem(itemID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

// Confirm validates the items and moves a DRAFT quote to CONFIRMED.
// Check order: freeze, status, item dictionary, items present.
func (s *QuoteService) Confirm(ctx context.Context, quoteID, actorID uuid.UUID) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "confirm")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteID, quoteID.String(),
		telemetry.SpanAttrActorID, actorID.String(),
	)

	resp, err := s.mutate(ctx, quoteID, func(repos TransactionalRepositories, q *quote.Quote) error {
		if err := q.EnsureNotFrozen(); err != nil {
			return err
		}
		if !q.Status.CanConfirm() {
			return shared.NewInvalidStateError("cannot confirm quote in %s status", q.Status)
		}
		if s.validator != nil {
			if err := s.validator.Validate(ctx, q); err != nil {
				return err
			}
		}
		previous := string(q.Status)
		if err := q.Confirm(actorID); err != nil {
			return err
		}
		return appendHistory(ctx, repos, q, quote.WorkflowActionConfirm, actorID, previous, "")
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("quote confirmed",
		zap.String("quote_id", quoteID.String()),
		zap.String("quote_no", resp.QuoteNo),
		zap.String("total", resp.TotalAmount.StringFixed(valueobject.MoneyScale)),
	)
	return resp, nil
}

// Cancel terminates a DRAFT or CONFIRMED quote. Unconfirmed payments and
// pending invoice applications of the quote are cancelled with it.
func (s *QuoteService) Cancel(ctx context.Context, quoteID, actorID uuid.UUID, reason string) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "cancel")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteID, quoteID.String(),
		telemetry.SpanAttrActorID, actorID.String(),
	)

	var payments, applications int
	resp, err := s.mutateWithEvents(ctx, quoteID, func(repos TransactionalRepositories, q *quote.Quote, buf *eventBuffer) error {
		previous := string(q.Status)
		if err := q.Cancel(actorID, reason); err != nil {
			return err
		}
		var err error
		if payments, err = cancelUnconfirmedPayments(ctx, repos, q.ID, buf); err != nil {
			return err
		}
		if applications, err = cancelPendingInvoiceApplications(ctx, repos, q.ID, buf); err != nil {
			return err
		}
		if applications > 0 {
			if err := refreshInvoiceStatus(ctx, repos, q); err != nil {
				return err
			}
		}
		return appendHistory(ctx, repos, q, quote.WorkflowActionCancel, actorID, previous, reason)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("quote cancelled",
		zap.String("quote_id", quoteID.String()),
		zap.Int("cancelled_payments", payments),
		zap.Int("cancelled_invoice_applications", applications),
	)
	return resp, nil
}

// ChangeCollector reassigns payment collection. Locked once the quote is PAID.
func (s *QuoteService) ChangeCollector(ctx context.Context, quoteID, actorID, collectorID uuid.UUID) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "change_collector")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrQuoteID, quoteID.String())

	resp, err := s.mutate(ctx, quoteID, func(repos TransactionalRepositories, q *quote.Quote) error {
		previous := q.CollectorID.String()
		if err := q.ChangeCollector(collectorID); err != nil {
			return err
		}
		h := quote.NewWorkflowHistory(q.ID, quote.WorkflowActionChangeCollector, actorID, previous, collectorID.String(), "")
		if err := repos.HistoryRepo().Append(ctx, h); err != nil {
			return fmt.Errorf("failed to record workflow history: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("quote collector changed",
		zap.String("quote_id", quoteID.String()),
		zap.String("collector_id", collectorID.String()),
	)
	return resp, nil
}

// History returns the workflow trail of a quote
func (s *QuoteService) History(ctx context.Context, quoteID uuid.UUID) ([]WorkflowHistoryResponse, error) {
	var entries []quote.WorkflowHistory
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.QuoteRepo().FindByID(ctx, quoteID); err != nil {
			return err
		}
		var err error
		entries, err = repos.HistoryRepo().FindByQuote(ctx, quoteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToWorkflowHistoryResponses(entries), nil
}

// CreateBalanceQuote implements BalanceQuoteFactory
func (s *QuoteService) CreateBalanceQuote(
	ctx context.Context,
	repos TransactionalRepositories,
	source *quote.Quote,
	amount decimal.Decimal,
	actorID uuid.UUID,
) (*quote.Quote, error) {
	quoteNo, err := nextQuoteNo(ctx, repos.Sequence(), s.cfg.QuoteNoPrefix)
	if err != nil {
		return nil, err
	}
	bq, err := quote.NewBalanceQuote(quoteNo, source, amount, actorID, s.cfg.BalanceUnit)
	if err != nil {
		return nil, err
	}
	if err := repos.QuoteRepo().Save(ctx, bq); err != nil {
		return nil, fmt.Errorf("failed to save balance quote: %w", err)
	}
	s.logger.Info("balance quote created",
		zap.String("quote_id", bq.ID.String()),
		zap.String("quote_no", bq.QuoteNo),
		zap.String("source_quote_id", source.ID.String()),
		zap.String("amount", valueobject.FormatMoney(amount)),
	)
	return bq, nil
}

// mutate loads the quote under a row lock, applies fn and saves it
func (s *QuoteService) mutate(ctx context.Context, quoteID uuid.UUID, fn func(repos TransactionalRepositories, q *quote.Quote) error) (*QuoteResponse, error) {
	return s.mutateWithEvents(ctx, quoteID, func(repos TransactionalRepositories, q *quote.Quote, _ *eventBuffer) error {
		return fn(repos, q)
	})
}

func (s *QuoteService) mutateWithEvents(ctx context.Context, quoteID uuid.UUID, fn func(repos TransactionalRepositories, q *quote.Quote, buf *eventBuffer) error) (*QuoteResponse, error) {
	var resp QuoteResponse
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		q, err := repos.QuoteRepo().FindByIDForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := fn(repos, q, buf); err != nil {
			return err
		}
		if err := repos.QuoteRepo().Save(ctx, q); err != nil {
			return fmt.Errorf("failed to save quote: %w", err)
		}
		buf.collect(q)
		resp = ToQuoteResponse(q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, buf)
	return &resp, nil
}

// Ensure QuoteService implements BalanceQuoteFactory
var _ BalanceQuoteFactory = (*QuoteService)(nil)
