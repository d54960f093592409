package payment

import (
	"time"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypePaymentSubmitted = "QuotePaymentSubmitted"
	EventTypePaymentConfirmed = "QuotePaymentConfirmed"
	EventTypePaymentReturned  = "QuotePaymentReturned"
)

// PaymentSubmittedEvent is raised when a payment is recorded
type PaymentSubmittedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	QuoteID     uuid.UUID       `json:"quote_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	SubmitterID uuid.UUID       `json:"submitter_id"`
	PaidAt      time.Time       `json:"paid_at"`
}

// NewPaymentSubmittedEvent creates a new PaymentSubmittedEvent
func NewPaymentSubmittedEvent(p *Payment) *PaymentSubmittedEvent {
	return &PaymentSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentSubmitted, AggregateType, p.ID),
		PaymentID:       p.ID,
		QuoteID:         p.QuoteID,
		Amount:          p.Amount,
		Currency:        p.Currency.String(),
		SubmitterID:     p.SubmitterID,
		PaidAt:          p.PaidAt,
	}
}

// PaymentConfirmedEvent is raised when finance confirms a payment
type PaymentConfirmedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	QuoteID     uuid.UUID       `json:"quote_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	SubmitterID uuid.UUID       `json:"submitter_id"`
	ConfirmerID uuid.UUID       `json:"confirmer_id"`
	Overpaid    bool            `json:"overpaid"`
	Balance     decimal.Decimal `json:"balance"`
}

// NewPaymentConfirmedEvent creates a new PaymentConfirmedEvent
func NewPaymentConfirmedEvent(p *Payment) *PaymentConfirmedEvent {
	e := &PaymentConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentConfirmed, AggregateType, p.ID),
		PaymentID:       p.ID,
		QuoteID:         p.QuoteID,
		Amount:          p.Amount,
		Currency:        p.Currency.String(),
		SubmitterID:     p.SubmitterID,
		Balance:         decimal.Zero,
	}
	if p.ConfirmerID != nil {
		e.ConfirmerID = *p.ConfirmerID
	}
	if p.Source != nil {
		e.Overpaid = true
		e.Balance = p.Source.Balance
	}
	return e
}

// PaymentReturnedEvent is raised when finance returns a payment
type PaymentReturnedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID `json:"payment_id"`
	QuoteID     uuid.UUID `json:"quote_id"`
	SubmitterID uuid.UUID `json:"submitter_id"`
	Note        string    `json:"note,omitempty"`
}

// NewPaymentReturnedEvent creates a new PaymentReturnedEvent
func NewPaymentReturnedEvent(p *Payment) *PaymentReturnedEvent {
	return &PaymentReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReturned, AggregateType, p.ID),
		PaymentID:       p.ID,
		QuoteID:         p.QuoteID,
		SubmitterID:     p.SubmitterID,
		Note:            p.ConfirmNote,
	}
}
