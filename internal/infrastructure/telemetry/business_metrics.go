package telemetry

import (
	"context"

	"github.com/erp/quotefinance/internal/domain/invoice"
	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/statement"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics counts finance lifecycle outcomes. It subscribes to the
// event bus, so every figure reflects committed state only.
type BusinessMetrics struct {
	logger *zap.Logger

	quotesConfirmed      *Counter
	quotesCancelled      *Counter
	paymentsSubmitted    *Counter
	paymentsConfirmed    *Counter
	paymentsReturned     *Counter
	paymentAmountFen     *Counter
	invoiceApplications  *Counter
	voidDecisions        *Counter
	statementsReconciled *Counter
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBusinessMetrics creates the business counters on cfg.Meter.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}
	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&bm.quotesConfirmed, "qf_quote_confirmed_total", "Total number of quotes confirmed", "{quotes}"},
		{&bm.quotesCancelled, "qf_quote_cancelled_total", "Total number of quotes cancelled or voided", "{quotes}"},
		{&bm.paymentsSubmitted, "qf_payment_submitted_total", "Total number of payment submissions", "{payments}"},
		{&bm.paymentsConfirmed, "qf_payment_confirmed_total", "Total number of payments confirmed by finance", "{payments}"},
		{&bm.paymentsReturned, "qf_payment_returned_total", "Total number of payments returned by finance", "{payments}"},
		{&bm.paymentAmountFen, "qf_payment_confirmed_amount_total", "Confirmed payment amount in the smallest currency unit", "{fen}"},
		{&bm.invoiceApplications, "qf_invoice_application_audited_total", "Total number of invoice application decisions", "{applications}"},
		{&bm.voidDecisions, "qf_void_audited_total", "Total number of void decisions", "{applications}"},
		{&bm.statementsReconciled, "qf_statement_reconciled_total", "Total number of account statements reconciled", "{statements}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}
	return bm, nil
}

// EventTypes returns the event types this handler is interested in
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		quote.EventTypeQuoteConfirmed,
		quote.EventTypeQuoteCancelled,
		quote.EventTypeVoidAudited,
		payment.EventTypePaymentSubmitted,
		payment.EventTypePaymentConfirmed,
		payment.EventTypePaymentReturned,
		invoice.EventTypeApplicationAudited,
		statement.EventTypeStatementReconciled,
	}
}

// Handle records the event. It never fails the publisher.
func (bm *BusinessMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *quote.QuoteConfirmedEvent:
		bm.quotesConfirmed.Inc(ctx, AttrCurrency.String(e.Currency))
	case *quote.QuoteCancelledEvent:
		bm.quotesCancelled.Inc(ctx,
			AttrQuoteVoided.Bool(e.Voided),
			AttrPaidStatus.String(string(e.PaidStatus)),
		)
	case *quote.VoidAuditedEvent:
		bm.voidDecisions.Inc(ctx,
			AttrAuditResult.String(string(e.Result)),
			AttrVoidDirect.Bool(e.Direct),
		)
	case *payment.PaymentSubmittedEvent:
		bm.paymentsSubmitted.Inc(ctx, AttrCurrency.String(e.Currency))
	case *payment.PaymentConfirmedEvent:
		bm.paymentsConfirmed.Inc(ctx,
			AttrCurrency.String(e.Currency),
			AttrOverpaid.Bool(e.Overpaid),
		)
		bm.paymentAmountFen.Add(ctx, toFen(e.Amount), AttrCurrency.String(e.Currency))
	case *payment.PaymentReturnedEvent:
		bm.paymentsReturned.Inc(ctx)
	case *invoice.ApplicationAuditedEvent:
		bm.invoiceApplications.Inc(ctx, AttrAuditResult.String(string(e.Result)))
	case *statement.StatementReconciledEvent:
		bm.statementsReconciled.Inc(ctx)
	default:
		bm.logger.Debug("business metrics ignored event", zap.String("event_type", event.EventType()))
	}
	return nil
}

// toFen converts an amount to the smallest currency unit, rounding half up.
func toFen(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)
