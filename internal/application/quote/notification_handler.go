package quote

import (
	"context"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/invoice"
	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// NotificationHandler turns finance decisions into user notifications.
// It runs after commit, so delivery failures are logged and swallowed.
type NotificationHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifier Notifier, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		logger:   nopIfNil(logger),
	}
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		payment.EventTypePaymentConfirmed,
		payment.EventTypePaymentReturned,
		invoice.EventTypeApplicationAudited,
		quote.EventTypeVoidAudited,
	}
}

// Handle sends one notification per decision event
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, ok := h.build(event)
	if !ok {
		return nil
	}
	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Warn("failed to deliver notification",
			zap.String("event_type", event.EventType()),
			zap.String("user_id", n.UserID.String()),
			zap.Error(err),
		)
	}
	return nil
}

func (h *NotificationHandler) build(event shared.DomainEvent) (Notification, bool) {
	switch e := event.(type) {
	case *payment.PaymentConfirmedEvent:
		body := fmt.Sprintf("Your payment of %s %s was confirmed.", valueobject.FormatMoney(e.Amount), e.Currency)
		if e.Overpaid {
			body += fmt.Sprintf(" The overpaid balance of %s was moved to a new quote.", valueobject.FormatMoney(e.Balance))
		}
		return Notification{
			UserID: e.SubmitterID,
			Title:  "Payment confirmed",
			Body:   body,
			Link:   "/quotes/" + e.QuoteID.String() + "/payments",
		}, true
	case *payment.PaymentReturnedEvent:
		return Notification{
			UserID: e.SubmitterID,
			Title:  "Payment returned",
			Body:   "Finance returned your payment submission. " + e.Note,
			Link:   "/quotes/" + e.QuoteID.String() + "/payments",
		}, true
	case *invoice.ApplicationAuditedEvent:
		title := "Invoice application approved"
		body := fmt.Sprintf("Invoice application %s for %s was approved.", e.ApplicationNo, valueobject.FormatMoney(e.TotalAmount))
		if e.Result == invoice.AuditReject {
			title = "Invoice application rejected"
			body = fmt.Sprintf("Invoice application %s was rejected. %s", e.ApplicationNo, e.Reason)
		}
		return Notification{
			UserID: e.CollectorID,
			Title:  title,
			Body:   body,
			Link:   "/invoice-applications/" + e.ApplicationID.String(),
		}, true
	case *quote.VoidAuditedEvent:
		if e.Direct {
			return Notification{}, false
		}
		title := "Void application passed"
		body := "The quote was voided."
		if e.Result == quote.VoidAuditReject {
			title = "Void application rejected"
			body = "The quote is active again. " + e.Note
		}
		return Notification{
			UserID: e.ApplicantID,
			Title:  title,
			Body:   body,
			Link:   "/quotes/" + e.QuoteID.String(),
		}, true
	default:
		h.logger.Debug("no notification for event", zap.String("event_type", event.EventType()))
		return Notification{}, false
	}
}

// Ensure NotificationHandler implements EventHandler
var _ shared.EventHandler = (*NotificationHandler)(nil)
