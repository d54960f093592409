package quote

import (
	"context"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/erp/quotefinance/internal/domain/statement"
	"github.com/erp/quotefinance/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records payments against confirmed quotes and applies
// finance decisions, including overpayment resolution.
type PaymentService struct {
	eventPublishing
	txScope  TransactionScope
	balances BalanceQuoteFactory
	cfg      Config
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(txScope TransactionScope, balances BalanceQuoteFactory, cfg Config, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		eventPublishing: eventPublishing{logger: nopIfNil(logger)},
		txScope:         txScope,
		balances:        balances,
		cfg:             cfg.withDefaults(),
	}
}

// Submit records a payment. Checks run in a fixed order: freeze, quote
// CONFIRMED, payment time, amount. A privileged submitter's payment is
// confirmed in the same transaction with CREATE_BALANCE on overpayment.
func (s *PaymentService) Submit(ctx context.Context, quoteID, submitterID uuid.UUID, privileged bool, req SubmitPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "submit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteID, quoteID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrActorID, submitterID.String(),
	)

	var p *payment.Payment
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		q, err := repos.QuoteRepo().FindByIDForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := q.EnsureNotFrozen(); err != nil {
			return err
		}
		if err := q.EnsureConfirmed("payments"); err != nil {
			return err
		}

		currency, err := parseCurrencyOrDefault(req.Currency, q.Currency)
		if err != nil {
			return shared.NewValidationError("%s", err.Error())
		}
		p, err = payment.NewPayment(payment.SubmitInput{
			QuoteID:     q.ID,
			CustomerID:  q.CustomerID,
			Currency:    currency,
			Amount:      req.Amount,
			MethodID:    req.MethodID,
			PaidAt:      req.PaidAt,
			SubmitterID: submitterID,
			BatchNo:     req.BatchNo,
			Note:        req.Note,
			Attachments: req.Attachments,
		})
		if err != nil {
			return err
		}
		if p.Currency != q.Currency {
			return shared.NewValidationError("payment currency %s does not match quote currency %s", p.Currency, q.Currency)
		}

		if !privileged && s.cfg.CapSubmissionToUnpaid {
			unpaid, _, err := unpaidAmount(ctx, repos, q)
			if err != nil {
				return err
			}
			if p.Amount.GreaterThan(unpaid) {
				return shared.NewValidationError("payment amount cannot exceed the unpaid amount %s", valueobject.FormatMoney(unpaid))
			}
		}

		if err := repos.PaymentRepo().Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		buf.collect(p)

		if privileged {
			return s.confirm(ctx, repos, q, p, submitterID, "", payment.StrategyCreateBalance, buf)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, p.ID.String())
	s.logger.Info("payment submitted",
		zap.String("payment_id", p.ID.String()),
		zap.String("quote_id", quoteID.String()),
		zap.String("amount", valueobject.FormatMoney(p.Amount)),
		zap.String("status", string(p.Status)),
		zap.Bool("privileged", privileged),
	)
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// FinanceConfirm applies finance's decision to a SUBMITTED payment.
// The quote row is locked first; a frozen quote fails before anything else.
func (s *PaymentService) FinanceConfirm(ctx context.Context, paymentID, confirmerID uuid.UUID, req ConfirmPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "finance_confirm")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, paymentID.String(),
		telemetry.SpanAttrAction, req.Action,
		telemetry.SpanAttrActorID, confirmerID.String(),
	)

	action := payment.ConfirmAction(req.Action)
	if !action.IsValid() {
		err := shared.NewValidationError("invalid confirm action: %s", req.Action)
		telemetry.RecordError(span, err)
		return nil, err
	}
	strategy := payment.OverpaymentStrategy(req.Strategy)
	if !strategy.IsValid() {
		err := shared.NewValidationError("invalid overpayment strategy: %s", req.Strategy)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var p *payment.Payment
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		unlocked, err := repos.PaymentRepo().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		q, err := repos.QuoteRepo().FindByIDForUpdate(ctx, unlocked.QuoteID)
		if err != nil {
			return err
		}
		if err := q.EnsureNotFrozen(); err != nil {
			return err
		}
		p, err = repos.PaymentRepo().FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if !p.Status.CanReview() {
			return shared.NewInvalidStateError("payment is %s, only SUBMITTED payments can be reviewed", p.Status)
		}

		switch action {
		case payment.ActionReturn:
			if err := p.Return(confirmerID, req.Note); err != nil {
				return err
			}
			if err := repos.PaymentRepo().Save(ctx, p); err != nil {
				return fmt.Errorf("failed to save payment: %w", err)
			}
			buf.collect(p)
			return nil
		case payment.ActionConfirm:
			return s.confirm(ctx, repos, q, p, confirmerID, req.Note, strategy, buf)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	s.logger.Info("payment reviewed",
		zap.String("payment_id", p.ID.String()),
		zap.String("quote_id", p.QuoteID.String()),
		zap.String("action", string(action)),
		zap.String("status", string(p.Status)),
	)
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// confirm counts p toward the quote. The quote must already be locked.
func (s *PaymentService) confirm(
	ctx context.Context,
	repos TransactionalRepositories,
	q *quote.Quote,
	p *payment.Payment,
	confirmerID uuid.UUID,
	note string,
	strategy payment.OverpaymentStrategy,
	buf *eventBuffer,
) error {
	sum, err := confirmedSum(ctx, repos, q.ID)
	if err != nil {
		return err
	}
	c, err := payment.EvaluateConfirmation(sum, p.Amount, q.ItemTotal(), strategy)
	if err != nil {
		return err
	}

	var source *payment.SourceInfo
	if c.Overpaid {
		if s.balances == nil {
			return fmt.Errorf("no balance quote factory configured")
		}
		bq, err := s.balances.CreateBalanceQuote(ctx, repos, q, c.Balance, confirmerID)
		if err != nil {
			return fmt.Errorf("failed to create balance quote: %w", err)
		}
		buf.collect(bq)
		source = &payment.SourceInfo{
			Strategy:    payment.StrategyCreateBalance,
			ReferenceID: bq.ID,
			Balance:     c.Balance,
		}
	}

	if err := p.Confirm(confirmerID, note, source); err != nil {
		return err
	}
	if err := repos.PaymentRepo().Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}

	q.ApplyConfirmedPayments(c.TotalPaid)
	if err := repos.QuoteRepo().Save(ctx, q); err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	buf.collect(p, q)
	return nil
}

// CreateBatch records one SUBMITTED payment per quote, each for that
// quote's unpaid amount, linked by a shared batch number. The declared total
// must equal the sum of the unpaid amounts. With a statement as the source,
// the statement's quotes are settled and the total must also equal the
// statement total. The statement stays PENDING until finance binds the
// confirmed payments.
func (s *PaymentService) CreateBatch(ctx context.Context, collectorID uuid.UUID, req CreateBatchPaymentRequest) (*BatchPaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create_batch")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAmount, req.TotalAmount.String(),
		telemetry.SpanAttrActorID, collectorID.String(),
	)

	total := valueobject.Round2(req.TotalAmount)
	if !total.IsPositive() {
		err := shared.NewValidationError("batch total must be at least 0.01")
		telemetry.RecordError(span, err)
		return nil, err
	}
	var requested valueobject.Currency
	if req.Currency != "" {
		c, err := valueobject.ParseCurrency(req.Currency)
		if err != nil {
			err = shared.NewValidationError("%s", err.Error())
			telemetry.RecordError(span, err)
			return nil, err
		}
		requested = c
	}

	batchNo := uuid.NewString()
	var created []payment.Payment
	var currency valueobject.Currency
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		quoteIDs := req.QuoteIDs
		if req.StatementID != nil {
			st, err := repos.StatementRepo().FindByIDForUpdate(ctx, *req.StatementID)
			if err != nil {
				return err
			}
			if st.Status != statement.StatusPending {
				return shared.NewInvalidStateError("statement %s is already %s", st.StatementNo, st.Status)
			}
			if !total.Equal(st.TotalAmount) {
				return shared.NewReconciliationMismatchError("batch total %s does not match statement %s total %s",
					valueobject.FormatMoney(total), st.StatementNo, valueobject.FormatMoney(st.TotalAmount))
			}
			if req.CustomerID == nil || *req.CustomerID != st.CustomerID {
				return shared.NewValidationError("customer does not match statement %s", st.StatementNo)
			}
			if requested != "" && requested != st.Currency {
				return shared.NewValidationError("currency %s does not match statement currency %s", requested, st.Currency)
			}
			quoteIDs = st.QuoteIDs()
		}
		if len(quoteIDs) == 0 {
			return shared.NewValidationError("at least one quote is required")
		}
		seen := make(map[uuid.UUID]bool, len(quoteIDs))
		for _, id := range quoteIDs {
			if seen[id] {
				return shared.NewValidationError("quote %s is listed twice", id)
			}
			seen[id] = true
		}

		locked, err := repos.QuoteRepo().FindByIDsForUpdate(ctx, sortedIDs(quoteIDs))
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*quote.Quote, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}
		for _, id := range quoteIDs {
			if err := byID[id].EnsureNotFrozen(); err != nil {
				return err
			}
		}

		first := byID[quoteIDs[0]]
		currency = first.Currency
		if requested != "" && requested != currency {
			return shared.NewValidationError("currency %s does not match quote currency %s", requested, currency)
		}
		unpaid := make([]decimal.Decimal, len(quoteIDs))
		for i, id := range quoteIDs {
			q := byID[id]
			if err := q.EnsureConfirmed("payments"); err != nil {
				return err
			}
			if q.CustomerID != first.CustomerID {
				return shared.NewValidationError("quote %s belongs to a different customer than quote %s", q.QuoteNo, first.QuoteNo)
			}
			if q.Currency != currency {
				return shared.NewValidationError("quote %s is in %s, expected %s", q.QuoteNo, q.Currency, currency)
			}
			if q.CollectorID != collectorID {
				return shared.NewValidationError("quote %s is not assigned to this collector", q.QuoteNo)
			}
			if unpaid[i], _, err = unpaidAmount(ctx, repos, q); err != nil {
				return err
			}
			if !unpaid[i].IsPositive() {
				return shared.NewValidationError("quote %s has nothing left to pay", q.QuoteNo)
			}
		}
		if expected := valueobject.SumMoney(unpaid...); !total.Equal(expected) {
			return shared.NewReconciliationMismatchError("batch total %s does not match the unpaid sum %s",
				valueobject.FormatMoney(total), valueobject.FormatMoney(expected))
		}

		created = make([]payment.Payment, 0, len(quoteIDs))
		for i, id := range quoteIDs {
			q := byID[id]
			p, err := payment.NewPayment(payment.SubmitInput{
				QuoteID:     q.ID,
				CustomerID:  q.CustomerID,
				Currency:    currency,
				Amount:      unpaid[i],
				MethodID:    req.MethodID,
				PaidAt:      req.PaidAt,
				SubmitterID: collectorID,
				BatchNo:     batchNo,
				Note:        req.Note,
				Attachments: req.Attachments,
			})
			if err != nil {
				return err
			}
			if err := repos.PaymentRepo().Save(ctx, p); err != nil {
				return fmt.Errorf("failed to save payment: %w", err)
			}
			buf.collect(p)
			created = append(created, *p)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	s.logger.Info("batch payment submitted",
		zap.String("batch_no", batchNo),
		zap.String("total", valueobject.FormatMoney(total)),
		zap.Int("quotes", len(created)),
		zap.String("collector_id", collectorID.String()),
	)
	return &BatchPaymentResponse{
		BatchNo:     batchNo,
		TotalAmount: total,
		Currency:    currency.String(),
		Payments:    ToPaymentResponses(created),
	}, nil
}

// ListByBatch lists the payments of one batch
func (s *PaymentService) ListByBatch(ctx context.Context, batchNo string) ([]PaymentResponse, error) {
	if batchNo == "" {
		return nil, shared.NewValidationError("batch number is required")
	}
	var payments []payment.Payment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		payments, err = repos.PaymentRepo().FindByBatch(ctx, batchNo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToPaymentResponses(payments), nil
}

// GetUnpaidAmount returns max(0, total - Σ confirmed payments)
func (s *PaymentService) GetUnpaidAmount(ctx context.Context, quoteID uuid.UUID) (*UnpaidAmountResponse, error) {
	var resp UnpaidAmountResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		q, err := repos.QuoteRepo().FindByID(ctx, quoteID)
		if err != nil {
			return err
		}
		unpaid, paid, err := unpaidAmount(ctx, repos, q)
		if err != nil {
			return err
		}
		resp = UnpaidAmountResponse{
			QuoteID:  q.ID,
			Currency: q.Currency.String(),
			Total:    q.ItemTotal(),
			Paid:     paid,
			Unpaid:   unpaid,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unpaid is GetUnpaidAmount reduced to the amount
func (s *PaymentService) Unpaid(ctx context.Context, quoteID uuid.UUID) (decimal.Decimal, error) {
	resp, err := s.GetUnpaidAmount(ctx, quoteID)
	if err != nil {
		return decimal.Zero, err
	}
	return resp.Unpaid, nil
}

// CancelUnconfirmed withdraws every SUBMITTED payment of a quote and
// returns how many were cancelled.
func (s *PaymentService) CancelUnconfirmed(ctx context.Context, quoteID uuid.UUID) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "cancel_unconfirmed")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrQuoteID, quoteID.String())

	var count int
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.QuoteRepo().FindByIDForUpdate(ctx, quoteID); err != nil {
			return err
		}
		var err error
		count, err = cancelUnconfirmedPayments(ctx, repos, quoteID, buf)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	s.publish(ctx, buf)
	return count, nil
}

// ListByQuote lists the payments of a quote in submission order
func (s *PaymentService) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]PaymentResponse, error) {
	var payments []payment.Payment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.QuoteRepo().FindByID(ctx, quoteID); err != nil {
			return err
		}
		var err error
		payments, err = repos.PaymentRepo().FindByQuote(ctx, quoteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToPaymentResponses(payments), nil
}

// Get retrieves a payment by ID
func (s *PaymentService) Get(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	var resp PaymentResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PaymentRepo().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		resp = ToPaymentResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
