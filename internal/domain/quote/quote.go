package quote

import (
	"strings"
	"time"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateType is the aggregate type name used in domain events
const AggregateType = "Quote"

// Quote is the aggregate root of the financial lifecycle. Payments, invoice
// applications and statements reference it by id and move its running totals.
type Quote struct {
	shared.BaseAggregateRoot
	QuoteNo        string
	Status         Status
	PaymentStatus  PaymentStatus
	InvoiceStatus  InvoiceStatus
	VoidStatus     VoidStatus
	Currency       valueobject.Currency
	CustomerID     uuid.UUID
	CustomerName   string
	CollectorID    uuid.UUID
	CreatorID      uuid.UUID
	ParentQuoteID  *uuid.UUID
	Recipient      string
	Phone          string
	Address        string
	Remark         string
	PaidAmount     decimal.Decimal
	InvoicedAmount decimal.Decimal
	Items          []QuoteItem
	ConfirmedAt    *time.Time
	ConfirmedBy    *uuid.UUID
	CancelledAt    *time.Time
	CancelledBy    *uuid.UUID
	CancelReason   string
}

// NewQuote creates a DRAFT quote. The collector defaults to the creator.
func NewQuote(
	quoteNo string,
	customerID uuid.UUID,
	customerName string,
	currency valueobject.Currency,
	collectorID uuid.UUID,
	creatorID uuid.UUID,
) (*Quote, error) {
	if strings.TrimSpace(quoteNo) == "" {
		return nil, shared.NewValidationError("quote number is required")
	}
	if customerID == uuid.Nil && strings.TrimSpace(customerName) == "" {
		return nil, shared.NewValidationError("customer id or customer name is required")
	}
	if creatorID == uuid.Nil {
		return nil, shared.NewValidationError("creator id is required")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		return nil, shared.NewValidationError("unsupported currency: %s", currency)
	}
	if collectorID == uuid.Nil {
		collectorID = creatorID
	}

	q := &Quote{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuoteNo:           quoteNo,
		Status:            StatusDraft,
		PaymentStatus:     PaymentStatusUnpaid,
		InvoiceStatus:     InvoiceStatusUninvoiced,
		VoidStatus:        VoidStatusNone,
		Currency:          currency,
		CustomerID:        customerID,
		CustomerName:      strings.TrimSpace(customerName),
		CollectorID:       collectorID,
		CreatorID:         creatorID,
		PaidAmount:        decimal.Zero,
		InvoicedAmount:    decimal.Zero,
		Items:             make([]QuoteItem, 0),
	}

	q.AddDomainEvent(NewQuoteCreatedEvent(q))

	return q, nil
}

// EnsureNotFrozen is the first check of every quote-scoped mutation.
func (q *Quote) EnsureNotFrozen() error {
	if q.VoidStatus.IsFrozen() {
		return shared.NewFrozenError("quote %s has a pending void application, operation is frozen", q.QuoteNo)
	}
	return nil
}

// EnsureConfirmed fails with InvalidState unless the quote is CONFIRMED.
// what names the thing being attached, e.g. "payments".
func (q *Quote) EnsureConfirmed(what string) error {
	if q.Status != StatusConfirmed {
		return shared.NewInvalidStateError("only CONFIRMED quotes accept %s, quote %s is %s", what, q.QuoteNo, q.Status)
	}
	return nil
}

// ItemTotal returns the sum of all line amounts
func (q *Quote) ItemTotal() decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(q.Items))
	for _, item := range q.Items {
		amounts = append(amounts, item.Amount)
	}
	return valueobject.SumMoney(amounts...)
}

// RemainingInvoiceable returns the amount not yet covered by approved invoices
func (q *Quote) RemainingInvoiceable() decimal.Decimal {
	return valueobject.NonNegative(valueobject.SubMoney(q.ItemTotal(), q.InvoicedAmount))
}

// FindItem returns the line with the given id
func (q *Quote) FindItem(itemID uuid.UUID) *QuoteItem {
	for i := range q.Items {
		if q.Items[i].ID == itemID {
			return &q.Items[i]
		}
	}
	return nil
}

// AddItem appends a line to a DRAFT quote
func (q *Quote) AddItem(in ItemInput) (*QuoteItem, error) {
	if err := q.EnsureNotFrozen(); err != nil {
		return nil, err
	}
	if !q.Status.CanEdit() {
		return nil, shared.NewInvalidStateError("cannot add items to quote in %s status", q.Status)
	}

	item, err := NewQuoteItem(q.ID, q.nextLineNo(), in)
	if err != nil {
		return nil, err
	}
	q.Items = append(q.Items, *item)
	q.Touch()

	return &q.Items[len(q.Items)-1], nil
}

// RemoveItem deletes a line from a DRAFT quote
func (q *Quote) RemoveItem(itemID uuid.UUID) error {
	if err := q.EnsureNotFrozen(); err != nil {
		return err
	}
	if !q.Status.CanEdit() {
		return shared.NewInvalidStateError("cannot remove items from quote in %s status", q.Status)
	}

	for i := range q.Items {
		if q.Items[i].ID == itemID {
			q.Items = append(q.Items[:i], q.Items[i+1:]...)
			q.Touch()
			return nil
		}
	}
	return shared.NewNotFoundError("quote item %s not found", itemID)
}

func (q *Quote) nextLineNo() int {
	last := 0
	for _, item := range q.Items {
		if item.LineNo > last {
			last = item.LineNo
		}
	}
	return last + 1
}

// HeaderUpdate holds optional header changes; nil fields are left untouched.
type HeaderUpdate struct {
	Currency     *valueobject.Currency
	CustomerID   *uuid.UUID
	CustomerName *string
	Recipient    *string
	Phone        *string
	Address      *string
	Remark       *string
}

// UpdateHeader applies header changes. Only DRAFT quotes are editable.
func (q *Quote) UpdateHeader(u HeaderUpdate) error {
	if err := q.EnsureNotFrozen(); err != nil {
		return err
	}
	if !q.Status.CanEdit() {
		return shared.NewInvalidStateError("cannot update header of quote in %s status", q.Status)
	}

	if u.Currency != nil {
		if !u.Currency.IsValid() {
			return shared.NewValidationError("unsupported currency: %s", *u.Currency)
		}
		q.Currency = *u.Currency
	}
	if u.CustomerID != nil {
		q.CustomerID = *u.CustomerID
	}
	if u.CustomerName != nil {
		q.CustomerName = strings.TrimSpace(*u.CustomerName)
	}
	if q.CustomerID == uuid.Nil && q.CustomerName == "" {
		return shared.NewValidationError("customer id or customer name is required")
	}
	if u.Recipient != nil {
		q.Recipient = *u.Recipient
	}
	if u.Phone != nil {
		q.Phone = *u.Phone
	}
	if u.Address != nil {
		q.Address = *u.Address
	}
	if u.Remark != nil {
		q.Remark = *u.Remark
	}

	q.Touch()
	return nil
}

// Confirm moves a validated DRAFT quote to CONFIRMED
func (q *Quote) Confirm(actorID uuid.UUID) error {
	if err := q.EnsureNotFrozen(); err != nil {
		return err
	}
	if !q.Status.CanConfirm() {
		return shared.NewInvalidStateError("cannot confirm quote in %s status", q.Status)
	}
	if actorID == uuid.Nil {
		return shared.NewValidationError("confirming user id is required")
	}
	if len(q.Items) == 0 {
		return shared.NewValidationError("quote %s has no items", q.QuoteNo)
	}
	if !q.ItemTotal().IsPositive() {
		return shared.NewValidationError("quote %s total must be positive", q.QuoteNo)
	}

	now := shared.Now()
	q.Status = StatusConfirmed
	q.ConfirmedAt = &now
	q.ConfirmedBy = &actorID
	q.Touch()

	q.AddDomainEvent(NewQuoteConfirmedEvent(q))
	return nil
}

// Cancel terminates a DRAFT or CONFIRMED quote. The quote number is kept.
func (q *Quote) Cancel(actorID uuid.UUID, reason string) error {
	if err := q.EnsureNotFrozen(); err != nil {
		return err
	}
	if !q.Status.CanCancel() {
		return shared.NewInvalidStateError("cannot cancel quote in %s status", q.Status)
	}
	q.markCancelled(actorID, reason)
	return nil
}

func (q *Quote) markCancelled(actorID uuid.UUID, reason string) {
	now := shared.Now()
	q.Status = StatusCancelled
	q.CancelledAt = &now
	q.CancelledBy = &actorID
	q.CancelReason = reason
	q.Touch()

	q.AddDomainEvent(NewQuoteCancelledEvent(q))
}

// ChangeCollector reassigns payment collection. A fully paid quote keeps its collector.
func (q *Quote) ChangeCollector(collectorID uuid.UUID) error {
	if err := q.EnsureNotFrozen(); err != nil {
		return err
	}
	if q.Status.IsTerminal() {
		return shared.NewInvalidStateError("cannot change collector of quote in %s status", q.Status)
	}
	if q.PaymentStatus == PaymentStatusPaid {
		return shared.NewInvalidStateError("quote %s is fully paid, collector is locked", q.QuoteNo)
	}
	if collectorID == uuid.Nil {
		return shared.NewValidationError("collector id is required")
	}
	q.CollectorID = collectorID
	q.Touch()
	return nil
}

// ApplyConfirmedPayments sets the paid total from the sum of confirmed
// payments and recomputes the payment status. Any excess over the item
// total has been moved to a balance quote, so the stored total is capped.
func (q *Quote) ApplyConfirmedPayments(confirmedSum decimal.Decimal) {
	total := q.ItemTotal()
	paid := valueobject.Round2(confirmedSum)
	if paid.GreaterThan(total) {
		paid = total
	}
	previous := q.PaymentStatus
	q.PaidAmount = paid
	q.RecomputePaymentStatus()
	q.Touch()

	if previous != q.PaymentStatus {
		q.AddDomainEvent(NewPaymentStatusChangedEvent(q, previous))
	}
}

// RecomputePaymentStatus derives PaymentStatus from the stored totals
func (q *Quote) RecomputePaymentStatus() {
	q.PaymentStatus = ComputePaymentStatus(q.PaidAmount, q.ItemTotal())
}

// RecomputeInvoiceStatus derives InvoiceStatus from the stored totals
func (q *Quote) RecomputeInvoiceStatus() {
	q.InvoiceStatus = ComputeInvoiceStatus(q.InvoicedAmount, q.ItemTotal())
}

// MarkInvoiceInProcess flips an UNINVOICED quote to IN_PROCESS when an
// application referencing it is created. Other statuses are left alone.
func (q *Quote) MarkInvoiceInProcess() {
	if q.InvoiceStatus == InvoiceStatusUninvoiced {
		q.InvoiceStatus = InvoiceStatusInProcess
		q.Touch()
	}
}

// AddInvoiced books an approved invoice amount against the quote
func (q *Quote) AddInvoiced(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("invoiced amount must be positive")
	}
	next := valueobject.SumMoney(q.InvoicedAmount, amount)
	if next.GreaterThan(q.ItemTotal()) {
		return shared.NewValidationError("invoiced amount of quote %s would exceed its total, remaining %s",
			q.QuoteNo, valueobject.FormatMoney(q.RemainingInvoiceable()))
	}
	q.InvoicedAmount = next
	q.RecomputeInvoiceStatus()
	q.Touch()
	return nil
}

// ReleaseInvoiceProcess recomputes the invoice status after an application
// referencing the quote was rejected or cancelled.
func (q *Quote) ReleaseInvoiceProcess() {
	q.RecomputeInvoiceStatus()
	q.Touch()
}

// StartVoid freezes the quote while a void application is pending
func (q *Quote) StartVoid() error {
	if q.Status.IsTerminal() {
		return shared.NewInvalidStateError("quote %s is already cancelled", q.QuoteNo)
	}
	if q.VoidStatus.IsFrozen() {
		return shared.NewInvalidStateError("quote %s already has a pending void application", q.QuoteNo)
	}
	q.VoidStatus = VoidStatusApplying
	q.Touch()
	return nil
}

// RejectVoid lifts the freeze
func (q *Quote) RejectVoid() error {
	if !q.VoidStatus.IsFrozen() {
		return shared.NewInvalidStateError("quote %s has no pending void application", q.QuoteNo)
	}
	q.VoidStatus = VoidStatusRejected
	q.Touch()
	return nil
}

// CompleteVoid cancels the quote permanently. It runs from APPLYING
// (audit PASS) or directly (finance void), so the freeze is not checked.
func (q *Quote) CompleteVoid(actorID uuid.UUID, reason string) error {
	if q.Status.IsTerminal() {
		return shared.NewInvalidStateError("quote %s is already cancelled", q.QuoteNo)
	}
	q.VoidStatus = VoidStatusVoided
	q.markCancelled(actorID, reason)
	return nil
}

// NewBalanceQuote creates a DRAFT quote carrying an overpayment residual,
// inheriting customer, currency, contact and collector from the source.
func NewBalanceQuote(quoteNo string, source *Quote, amount decimal.Decimal, creatorID uuid.UUID, unit string) (*Quote, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("balance amount must be positive")
	}

	bq, err := NewQuote(quoteNo, source.CustomerID, source.CustomerName, source.Currency, source.CollectorID, creatorID)
	if err != nil {
		return nil, err
	}
	parentID := source.ID
	bq.ParentQuoteID = &parentID
	bq.Recipient = source.Recipient
	bq.Phone = source.Phone
	bq.Address = source.Address
	bq.Remark = "balance of quote " + source.QuoteNo

	if _, err := bq.AddItem(ItemInput{
		FeeType:     BalanceFeeType,
		Description: "overpayment balance of " + source.QuoteNo,
		Unit:        unit,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   amount,
	}); err != nil {
		return nil, err
	}

	return bq, nil
}
