package quote

import (
	"context"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/erp/quotefinance/internal/domain/statement"
	"github.com/erp/quotefinance/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatementService batches a customer's unpaid quotes into account
// statements and reconciles them against confirmed payments.
type StatementService struct {
	eventPublishing
	txScope TransactionScope
}

// NewStatementService creates a new StatementService
func NewStatementService(txScope TransactionScope, logger *zap.Logger) *StatementService {
	return &StatementService{
		eventPublishing: eventPublishing{logger: nopIfNil(logger)},
		txScope:         txScope,
	}
}

// Generate snapshots the unpaid amounts of the given quotes into a PENDING statement
func (s *StatementService) Generate(ctx context.Context, creatorID uuid.UUID, req GenerateStatementRequest) (*StatementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "generate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
		telemetry.SpanAttrActorID, creatorID.String(),
	)

	if len(req.QuoteIDs) == 0 {
		err := shared.NewValidationError("at least one quote is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var st *statement.AccountStatement
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		quotes, err := repos.QuoteRepo().FindByIDsForUpdate(ctx, sortedIDs(req.QuoteIDs))
		if err != nil {
			return err
		}

		// Snapshots follow the caller's order; locks were taken in id order.
		byID := make(map[uuid.UUID]int, len(quotes))
		for i := range quotes {
			byID[quotes[i].ID] = i
		}
		var currency valueobject.Currency
		customerName := ""
		snapshots := make([]statement.ItemSnapshot, 0, len(req.QuoteIDs))
		for _, id := range req.QuoteIDs {
			q := &quotes[byID[id]]
			if q.CustomerID != req.CustomerID {
				return shared.NewValidationError("quote %s does not belong to the customer", q.QuoteNo)
			}
			if currency == "" {
				currency = q.Currency
				customerName = q.CustomerName
			} else if q.Currency != currency {
				return shared.NewValidationError("quote %s is in %s, statement currency is %s", q.QuoteNo, q.Currency, currency)
			}
			unpaid, _, err := unpaidAmount(ctx, repos, q)
			if err != nil {
				return err
			}
			snapshots = append(snapshots, statement.ItemSnapshot{
				QuoteID: q.ID,
				QuoteNo: q.QuoteNo,
				Total:   q.ItemTotal(),
				Unpaid:  unpaid,
			})
		}

		statementNo, err := nextStatementNo(ctx, repos.Sequence())
		if err != nil {
			return err
		}
		st, err = statement.NewAccountStatement(statementNo, req.CustomerID, customerName, currency, creatorID, snapshots)
		if err != nil {
			return err
		}
		if err := repos.StatementRepo().Save(ctx, st); err != nil {
			return fmt.Errorf("failed to save account statement: %w", err)
		}
		buf.collect(st)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	telemetry.SetAttributes(span, telemetry.SpanAttrStatementID, st.ID.String())
	s.logger.Info("account statement generated",
		zap.String("statement_id", st.ID.String()),
		zap.String("statement_no", st.StatementNo),
		zap.String("total", valueobject.FormatMoney(st.TotalAmount)),
		zap.Int("items", len(st.Items)),
	)
	resp := ToStatementResponse(st)
	return &resp, nil
}

// RemoveItem drops one quote snapshot from a PENDING statement
func (s *StatementService) RemoveItem(ctx context.Context, statementID, quoteID, actorID uuid.UUID) (*StatementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "remove_item")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatementID, statementID.String(),
		telemetry.SpanAttrQuoteID, quoteID.String(),
	)

	var st *statement.AccountStatement
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		st, err = repos.StatementRepo().FindByIDForUpdate(ctx, statementID)
		if err != nil {
			return err
		}
		if _, err := st.RemoveItem(quoteID); err != nil {
			return err
		}
		if err := repos.StatementRepo().Save(ctx, st); err != nil {
			return fmt.Errorf("failed to save account statement: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("account statement item removed",
		zap.String("statement_id", statementID.String()),
		zap.String("quote_id", quoteID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("total", valueobject.FormatMoney(st.TotalAmount)),
	)
	resp := ToStatementResponse(st)
	return &resp, nil
}

// BindPayments reconciles a PENDING statement. The payments must be
// CONFIRMED, unbound, of the statement's customer and currency, and sum to
// the statement total exactly. Nothing is bound unless everything matches.
func (s *StatementService) BindPayments(ctx context.Context, statementID, actorID uuid.UUID, req BindPaymentsRequest) (*StatementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "bind_payments")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatementID, statementID.String(),
		telemetry.SpanAttrActorID, actorID.String(),
	)

	if len(req.PaymentIDs) == 0 {
		err := shared.NewValidationError("at least one payment is required")
		telemetry.RecordError(span, err)
		return nil, err
	}
	seen := make(map[uuid.UUID]bool, len(req.PaymentIDs))
	for _, id := range req.PaymentIDs {
		if seen[id] {
			err := shared.NewValidationError("payment %s is listed twice", id)
			telemetry.RecordError(span, err)
			return nil, err
		}
		seen[id] = true
	}

	var st *statement.AccountStatement
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		st, err = repos.StatementRepo().FindByIDForUpdate(ctx, statementID)
		if err != nil {
			return err
		}
		if st.Status != statement.StatusPending {
			return shared.NewInvalidStateError("statement %s is %s, only PENDING statements can be reconciled", st.StatementNo, st.Status)
		}

		payments, err := repos.PaymentRepo().FindByIDsForUpdate(ctx, req.PaymentIDs)
		if err != nil {
			return err
		}
		for i := range payments {
			p := &payments[i]
			if p.Status != payment.StatusConfirmed {
				return shared.NewValidationError("payment %s is %s, only CONFIRMED payments can be bound", p.ID, p.Status)
			}
			if p.IsBound() {
				return shared.NewValidationError("payment %s is already bound to a statement", p.ID)
			}
			if p.CustomerID != st.CustomerID {
				return shared.NewValidationError("payment %s belongs to a different customer", p.ID)
			}
			if p.Currency != st.Currency {
				return shared.NewValidationError("payment %s is in %s, statement currency is %s", p.ID, p.Currency, st.Currency)
			}
		}

		if err := st.Reconcile(payment.SumAmounts(payments), actorID); err != nil {
			return err
		}
		for i := range payments {
			if err := payments[i].BindToStatement(st.ID); err != nil {
				return err
			}
			if err := repos.PaymentRepo().Save(ctx, &payments[i]); err != nil {
				return fmt.Errorf("failed to save payment: %w", err)
			}
		}
		if err := repos.StatementRepo().Save(ctx, st); err != nil {
			return fmt.Errorf("failed to save account statement: %w", err)
		}
		buf.collect(st)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	s.logger.Info("account statement reconciled",
		zap.String("statement_id", st.ID.String()),
		zap.String("statement_no", st.StatementNo),
		zap.Int("payments", len(req.PaymentIDs)),
	)
	resp := ToStatementResponse(st)
	return &resp, nil
}

// Get retrieves a statement by ID
func (s *StatementService) Get(ctx context.Context, statementID uuid.UUID) (*StatementResponse, error) {
	var resp StatementResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		st, err := repos.StatementRepo().FindByID(ctx, statementID)
		if err != nil {
			return err
		}
		resp = ToStatementResponse(st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns statements newest first, optionally narrowed to one customer
// and one status
func (s *StatementService) List(ctx context.Context, filter StatementListFilter) ([]StatementResponse, error) {
	status := statement.Status(filter.Status)
	if status != "" && !status.IsValid() {
		return nil, shared.NewValidationError("invalid statement status: %s", filter.Status)
	}

	var statements []statement.AccountStatement
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		statements, err = repos.StatementRepo().FindAll(ctx, statement.ListFilter{
			CustomerID: filter.CustomerID,
			Status:     status,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToStatementResponses(statements), nil
}
