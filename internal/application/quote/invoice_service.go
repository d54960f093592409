package quote

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/erp/quotefinance/internal/domain/invoice"
	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/erp/quotefinance/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceService handles invoice applications over confirmed quotes
type InvoiceService struct {
	eventPublishing
	txScope TransactionScope
	node    *snowflake.Node
}

// NewInvoiceService creates a new InvoiceService. nodeID identifies this
// instance in application numbers and must be unique per running process.
func NewInvoiceService(txScope TransactionScope, nodeID int64, logger *zap.Logger) (*InvoiceService, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &InvoiceService{
		eventPublishing: eventPublishing{logger: nopIfNil(logger)},
		txScope:         txScope,
		node:            node,
	}, nil
}

func (s *InvoiceService) nextApplicationNo() string {
	return fmt.Sprintf("INV-%s-%s", shared.Now().Format("20060102150405"), s.node.Generate().String())
}

// Create validates the requested groups against the referenced quotes and
// saves one PENDING application.
func (s *InvoiceService) Create(ctx context.Context, collectorID uuid.UUID, req CreateInvoiceApplicationRequest) (*InvoiceApplicationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrActorID, collectorID.String())

	groups := req.toDomain()
	if err := invoice.ValidateGroups(groups); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Selections per quote, and the order in which quotes were first referenced.
	var order []uuid.UUID
	selections := make(map[uuid.UUID][]invoice.ItemSelection)
	for _, g := range groups {
		for _, sel := range g.Items {
			if _, seen := selections[sel.QuoteID]; !seen {
				order = append(order, sel.QuoteID)
			}
			selections[sel.QuoteID] = append(selections[sel.QuoteID], sel)
		}
	}

	var app *invoice.InvoiceApplication
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := repos.QuoteRepo().FindByIDsForUpdate(ctx, sortedIDs(order))
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*quote.Quote, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		// The freeze guard runs for every touched quote before any other rule.
		for _, id := range order {
			if err := byID[id].EnsureNotFrozen(); err != nil {
				return err
			}
		}

		first := byID[order[0]]
		for _, id := range order {
			q := byID[id]
			if err := q.EnsureConfirmed("invoice applications"); err != nil {
				return err
			}
			if q.CustomerID != first.CustomerID {
				return shared.NewValidationError("quote %s belongs to a different customer than quote %s", q.QuoteNo, first.QuoteNo)
			}
			if q.Currency != first.Currency {
				return shared.NewValidationError("quote %s is in %s, expected %s", q.QuoteNo, q.Currency, first.Currency)
			}
			if q.CollectorID != collectorID {
				return shared.NewValidationError("quote %s is not assigned to this collector", q.QuoteNo)
			}

			requested := valueobject.SumMoney()
			for _, sel := range selections[id] {
				if q.FindItem(sel.QuoteItemID) == nil {
					return shared.NewValidationError("item %s does not belong to quote %s", sel.QuoteItemID, q.QuoteNo)
				}
				requested = valueobject.SumMoney(requested, valueobject.Round2(sel.Amount))
			}
			remaining := q.RemainingInvoiceable()
			if requested.GreaterThan(remaining) {
				return shared.NewValidationError("invoice amount %s of quote %s exceeds the remaining invoiceable amount %s",
					valueobject.FormatMoney(requested), q.QuoteNo, valueobject.FormatMoney(remaining))
			}
		}

		app, err = invoice.NewInvoiceApplication(s.nextApplicationNo(), collectorID, first.CustomerID, first.Currency, groups)
		if err != nil {
			return err
		}
		if err := repos.InvoiceApplicationRepo().Save(ctx, app); err != nil {
			return fmt.Errorf("failed to save invoice application: %w", err)
		}
		buf.collect(app)

		for _, id := range order {
			q := byID[id]
			q.MarkInvoiceInProcess()
			if err := repos.QuoteRepo().Save(ctx, q); err != nil {
				return fmt.Errorf("failed to save quote: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	telemetry.SetAttributes(span, telemetry.SpanAttrApplicationID, app.ID.String())
	s.logger.Info("invoice application created",
		zap.String("application_id", app.ID.String()),
		zap.String("application_no", app.ApplicationNo),
		zap.String("total", valueobject.FormatMoney(app.TotalAmount)),
		zap.Int("quotes", len(order)),
	)
	resp := ToInvoiceApplicationResponse(app)
	return &resp, nil
}

// Audit approves or rejects a PENDING application. Approval books the
// per-quote sums; any quote that would exceed its total aborts the audit.
func (s *InvoiceService) Audit(ctx context.Context, applicationID, auditorID uuid.UUID, req AuditInvoiceApplicationRequest) (*InvoiceApplicationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "audit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrApplicationID, applicationID.String(),
		telemetry.SpanAttrAction, req.Result,
	)

	result := invoice.AuditResult(req.Result)
	if !result.IsValid() {
		err := shared.NewValidationError("invalid invoice audit result: %s", req.Result)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var app *invoice.InvoiceApplication
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		app, err = repos.InvoiceApplicationRepo().FindByIDForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		sums := app.AmountsByQuote()
		quotes, err := repos.QuoteRepo().FindByIDsForUpdate(ctx, invoice.SortedQuoteIDs(sums))
		if err != nil {
			return err
		}
		for i := range quotes {
			if err := quotes[i].EnsureNotFrozen(); err != nil {
				return err
			}
		}
		if app.Status != invoice.StatusPending {
			return shared.NewInvalidStateError("only PENDING invoice applications can be audited, application is %s", app.Status)
		}

		if err := app.Audit(auditorID, result, req.Reason); err != nil {
			return err
		}
		if err := repos.InvoiceApplicationRepo().Save(ctx, app); err != nil {
			return fmt.Errorf("failed to save invoice application: %w", err)
		}

		for i := range quotes {
			q := &quotes[i]
			if result == invoice.AuditApprove {
				if err := q.AddInvoiced(sums[q.ID]); err != nil {
					return err
				}
			}
			if err := refreshInvoiceStatus(ctx, repos, q); err != nil {
				return err
			}
			if err := repos.QuoteRepo().Save(ctx, q); err != nil {
				return fmt.Errorf("failed to save quote: %w", err)
			}
		}
		buf.collect(app)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, buf)

	s.logger.Info("invoice application audited",
		zap.String("application_id", app.ID.String()),
		zap.String("result", string(result)),
		zap.String("auditor_id", auditorID.String()),
	)
	resp := ToInvoiceApplicationResponse(app)
	return &resp, nil
}

// CancelPending cancels PENDING applications referencing the quote and
// returns how many were cancelled.
func (s *InvoiceService) CancelPending(ctx context.Context, quoteID uuid.UUID) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "cancel_pending")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrQuoteID, quoteID.String())

	var count int
	buf := &eventBuffer{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		q, err := repos.QuoteRepo().FindByIDForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if count, err = cancelPendingInvoiceApplications(ctx, repos, quoteID, buf); err != nil {
			return err
		}
		if err := refreshInvoiceStatus(ctx, repos, q); err != nil {
			return err
		}
		if err := repos.QuoteRepo().Save(ctx, q); err != nil {
			return fmt.Errorf("failed to save quote: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	s.publish(ctx, buf)

	s.logger.Info("pending invoice applications cancelled",
		zap.String("quote_id", quoteID.String()),
		zap.Int("count", count),
	)
	return count, nil
}

// Get retrieves an invoice application by ID
func (s *InvoiceService) Get(ctx context.Context, applicationID uuid.UUID) (*InvoiceApplicationResponse, error) {
	var resp InvoiceApplicationResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		app, err := repos.InvoiceApplicationRepo().FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		resp = ToInvoiceApplicationResponse(app)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListByCollector lists the applications a collector has filed, newest first
func (s *InvoiceService) ListByCollector(ctx context.Context, collectorID uuid.UUID) ([]InvoiceApplicationResponse, error) {
	var apps []invoice.InvoiceApplication
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		apps, err = repos.InvoiceApplicationRepo().FindByCollector(ctx, collectorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceApplicationResponses(apps), nil
}

// sortedIDs returns a sorted copy of ids, matching the repository lock order
func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})
	return sorted
}
