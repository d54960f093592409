package payment

import (
	"strings"
	"time"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateType is the aggregate type name used in domain events
const AggregateType = "QuotePayment"

// Status represents the state of a payment submission
type Status string

const (
	StatusSubmitted Status = "SUBMITTED" // Awaiting finance review
	StatusConfirmed Status = "CONFIRMED" // Counted toward the quote's paid total
	StatusReturned  Status = "RETURNED"  // Rejected by finance, no effect on totals
	StatusCancelled Status = "CANCELLED" // Withdrawn because the quote was voided
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusConfirmed, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanReview returns true if finance may confirm or return the payment
func (s Status) CanReview() bool {
	return s == StatusSubmitted
}

// ConfirmAction is the closed set of finance decisions on a submitted payment
type ConfirmAction string

const (
	ActionConfirm ConfirmAction = "CONFIRM"
	ActionReturn  ConfirmAction = "RETURN"
)

// IsValid checks if the action is a valid ConfirmAction
func (a ConfirmAction) IsValid() bool {
	switch a {
	case ActionConfirm, ActionReturn:
		return true
	}
	return false
}

// String returns the string representation of ConfirmAction
func (a ConfirmAction) String() string {
	return string(a)
}

// Payment is one payment submission against a quote
type Payment struct {
	shared.BaseAggregateRoot
	QuoteID        uuid.UUID
	CustomerID     uuid.UUID
	Amount         decimal.Decimal
	Currency       valueobject.Currency
	MethodID       uuid.UUID
	PaidAt         time.Time
	Status         Status
	SubmitterID    uuid.UUID
	SubmittedAt    time.Time
	ConfirmerID    *uuid.UUID
	ConfirmedAt    *time.Time
	ConfirmNote    string
	BatchNo        string
	Note           string
	AttachmentURLs []string
	StatementID    *uuid.UUID
	Source         *SourceInfo
}

// SubmitInput carries the fields of a new payment submission
type SubmitInput struct {
	QuoteID     uuid.UUID
	CustomerID  uuid.UUID
	Currency    valueobject.Currency
	Amount      decimal.Decimal
	MethodID    uuid.UUID
	PaidAt      time.Time
	SubmitterID uuid.UUID
	BatchNo     string
	Note        string
	Attachments []string
}

// NewPayment validates a submission and creates a SUBMITTED payment.
// Quote-level checks (freeze, CONFIRMED) are the caller's and run first.
func NewPayment(in SubmitInput) (*Payment, error) {
	now := shared.Now()
	if in.PaidAt.IsZero() {
		return nil, shared.NewValidationError("payment time is required")
	}
	if in.PaidAt.After(now) {
		return nil, shared.NewValidationError("payment time cannot be in the future")
	}
	amount := valueobject.Round2(in.Amount)
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("payment amount must be at least 0.01")
	}
	if in.SubmitterID == uuid.Nil {
		return nil, shared.NewValidationError("submitter id is required")
	}
	if in.QuoteID == uuid.Nil {
		return nil, shared.NewValidationError("quote id is required")
	}
	if !in.Currency.IsValid() {
		return nil, shared.NewValidationError("unsupported currency: %s", in.Currency)
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuoteID:           in.QuoteID,
		CustomerID:        in.CustomerID,
		Amount:            amount,
		Currency:          in.Currency,
		MethodID:          in.MethodID,
		PaidAt:            in.PaidAt,
		Status:            StatusSubmitted,
		SubmitterID:       in.SubmitterID,
		SubmittedAt:       now,
		BatchNo:           strings.TrimSpace(in.BatchNo),
		Note:              strings.TrimSpace(in.Note),
		AttachmentURLs:    append([]string(nil), in.Attachments...),
	}

	p.AddDomainEvent(NewPaymentSubmittedEvent(p))
	return p, nil
}

// Confirm marks a SUBMITTED payment as counted. source is non-nil when the
// confirmation resolved an overpayment.
func (p *Payment) Confirm(confirmerID uuid.UUID, note string, source *SourceInfo) error {
	if !p.Status.CanReview() {
		return shared.NewInvalidStateError("only SUBMITTED payments can be confirmed, payment is %s", p.Status)
	}
	if confirmerID == uuid.Nil {
		return shared.NewValidationError("confirmer id is required")
	}

	now := shared.Now()
	p.Status = StatusConfirmed
	p.ConfirmerID = &confirmerID
	p.ConfirmedAt = &now
	p.ConfirmNote = note
	p.Source = source
	p.Touch()

	p.AddDomainEvent(NewPaymentConfirmedEvent(p))
	return nil
}

// Return hands a SUBMITTED payment back to the submitter
func (p *Payment) Return(confirmerID uuid.UUID, note string) error {
	if !p.Status.CanReview() {
		return shared.NewInvalidStateError("only SUBMITTED payments can be returned, payment is %s", p.Status)
	}
	if confirmerID == uuid.Nil {
		return shared.NewValidationError("confirmer id is required")
	}

	now := shared.Now()
	p.Status = StatusReturned
	p.ConfirmerID = &confirmerID
	p.ConfirmedAt = &now
	p.ConfirmNote = note
	p.Touch()

	p.AddDomainEvent(NewPaymentReturnedEvent(p))
	return nil
}

// Cancel withdraws an unreviewed payment when its quote is voided
func (p *Payment) Cancel() error {
	if !p.Status.CanReview() {
		return shared.NewInvalidStateError("only SUBMITTED payments can be cancelled, payment is %s", p.Status)
	}
	p.Status = StatusCancelled
	p.Touch()
	return nil
}

// IsBound reports whether the payment is already reconciled on a statement
func (p *Payment) IsBound() bool {
	return p.StatementID != nil
}

// BindToStatement attaches a CONFIRMED, unbound payment to a statement
func (p *Payment) BindToStatement(statementID uuid.UUID) error {
	if p.Status != StatusConfirmed {
		return shared.NewValidationError("payment %s is %s, only CONFIRMED payments can be bound", p.ID, p.Status)
	}
	if p.IsBound() {
		return shared.NewValidationError("payment %s is already bound to a statement", p.ID)
	}
	p.StatementID = &statementID
	p.Touch()
	return nil
}

// SumAmounts adds the amounts of the given payments at money scale
func SumAmounts(payments []Payment) decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(payments))
	for _, p := range payments {
		amounts = append(amounts, p.Amount)
	}
	return valueobject.SumMoney(amounts...)
}
