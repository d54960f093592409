package quote

import (
	"context"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VoidService runs the void protocol: a collector applies, the quote is
// frozen, finance passes or rejects. Finance may also void directly.
type VoidService struct {
	eventPublishing
	txScope TransactionScope
}

// NewVoidService creates a new VoidService
func NewVoidService(txScope TransactionScope, logger *zap.Logger) *VoidService {
	return &VoidService{
		eventPublishing: eventPublishing{logger: nopIfNil(logger)},
		txScope:         txScope,
	}
}

// Apply freezes the quote with a PENDING void application
func (s *VoidService) Apply(ctx context.Context, quoteID, applicantID uuid.UUID, req ApplyVoidRequest) (*VoidApplicationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "void", "apply")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteID, quoteID.String(),
		telemetry.SpanAttrActorID, applicantID.String(),
	)

	var app *quote.VoidApplication
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		q, err := repos.QuoteRepo().FindByIDForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		app, err = quote.NewVoidApplication(q, applicantID, req.Reason, req.Attachments)
		if err != nil {
			return err
		}
		if err := repos.VoidApplicationRepo().Save(ctx, app); err != nil {
			return fmt.Errorf("failed to save void application: %w", err)
		}
		if err := repos.QuoteRepo().Save(ctx, q); err != nil {
			return fmt.Errorf("failed to save quote: %w", err)
		}
		buf.collect(app, q)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	s.logger.Info("void application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("quote_id", quoteID.String()),
		zap.String("applicant_id", applicantID.String()),
	)
	resp := ToVoidApplicationResponse(app)
	return &resp, nil
}

// Audit decides a PENDING void application. PASS cancels the quote and
// everything still pending on it; REJECT lifts the freeze.
func (s *VoidService) Audit(ctx context.Context, applicationID, auditorID uuid.UUID, req AuditVoidRequest) (*VoidApplicationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "void", "audit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrApplicationID, applicationID.String(),
		telemetry.SpanAttrAction, req.Result,
		telemetry.SpanAttrActorID, auditorID.String(),
	)

	result := quote.VoidAuditResult(req.Result)
	if !result.IsValid() {
		err := shared.NewValidationError("invalid void audit result: %s", req.Result)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var app *quote.VoidApplication
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		unlocked, err := repos.VoidApplicationRepo().FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		q, err := repos.QuoteRepo().FindByIDForUpdate(ctx, unlocked.QuoteID)
		if err != nil {
			return err
		}
		app, err = repos.VoidApplicationRepo().FindByIDForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := app.Audit(auditorID, result, req.Note); err != nil {
			return err
		}

		switch result {
		case quote.VoidAuditPass:
			reason := req.Note
			if reason == "" {
				reason = app.Reason
			}
			if err := s.voidQuote(ctx, repos, q, auditorID, reason, buf); err != nil {
				return err
			}
		case quote.VoidAuditReject:
			if err := q.RejectVoid(); err != nil {
				return err
			}
		}

		if err := repos.VoidApplicationRepo().Save(ctx, app); err != nil {
			return fmt.Errorf("failed to save void application: %w", err)
		}
		if err := repos.QuoteRepo().Save(ctx, q); err != nil {
			return fmt.Errorf("failed to save quote: %w", err)
		}
		buf.collect(app, q)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	s.logger.Info("void application audited",
		zap.String("application_id", app.ID.String()),
		zap.String("quote_id", app.QuoteID.String()),
		zap.String("result", string(result)),
	)
	resp := ToVoidApplicationResponse(app)
	return &resp, nil
}

// DirectVoid cancels a quote on finance's authority, recorded as an
// application audited PASS in the same step. A frozen quote must be
// decided through its pending application instead.
func (s *VoidService) DirectVoid(ctx context.Context, quoteID, financeID uuid.UUID, req DirectVoidRequest) (*VoidApplicationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "void", "direct_void")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteID, quoteID.String(),
		telemetry.SpanAttrActorID, financeID.String(),
	)

	var app *quote.VoidApplication
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		q, err := repos.QuoteRepo().FindByIDForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := q.EnsureNotFrozen(); err != nil {
			return err
		}
		app, err = quote.NewDirectVoidApplication(q, financeID, req.Reason)
		if err != nil {
			return err
		}
		if err := s.voidQuote(ctx, repos, q, financeID, app.Reason, buf); err != nil {
			return err
		}
		if err := repos.VoidApplicationRepo().Save(ctx, app); err != nil {
			return fmt.Errorf("failed to save void application: %w", err)
		}
		if err := repos.QuoteRepo().Save(ctx, q); err != nil {
			return fmt.Errorf("failed to save quote: %w", err)
		}
		buf.collect(app, q)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	s.logger.Info("quote voided directly",
		zap.String("quote_id", quoteID.String()),
		zap.String("finance_id", financeID.String()),
	)
	resp := ToVoidApplicationResponse(app)
	return &resp, nil
}

// ListByQuote lists the void applications of a quote, newest first
func (s *VoidService) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]VoidApplicationResponse, error) {
	var apps []quote.VoidApplication
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.QuoteRepo().FindByID(ctx, quoteID); err != nil {
			return err
		}
		var err error
		apps, err = repos.VoidApplicationRepo().FindByQuote(ctx, quoteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToVoidApplicationResponses(apps), nil
}

// voidQuote cancels the quote and withdraws its unconfirmed payments and
// pending invoice applications. The caller saves the quote.
func (s *VoidService) voidQuote(ctx context.Context, repos TransactionalRepositories, q *quote.Quote, actorID uuid.UUID, reason string, buf *eventBuffer) error {
	previous := string(q.Status)
	if err := q.CompleteVoid(actorID, reason); err != nil {
		return err
	}
	payments, err := cancelUnconfirmedPayments(ctx, repos, q.ID, buf)
	if err != nil {
		return err
	}
	applications, err := cancelPendingInvoiceApplications(ctx, repos, q.ID, buf)
	if err != nil {
		return err
	}
	if applications > 0 {
		if err := refreshInvoiceStatus(ctx, repos, q); err != nil {
			return err
		}
	}
	if err := appendHistory(ctx, repos, q, quote.WorkflowActionVoid, actorID, previous, reason); err != nil {
		return err
	}

	s.logger.Info("quote voided",
		zap.String("quote_id", q.ID.String()),
		zap.String("quote_no", q.QuoteNo),
		zap.Int("cancelled_payments", payments),
		zap.Int("cancelled_invoice_applications", applications),
	)
	return nil
}
