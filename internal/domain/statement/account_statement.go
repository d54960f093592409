package statement

import (
	"time"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateType is the aggregate type name used in domain events
const AggregateType = "AccountStatement"

// Status represents the state of an account statement
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusReconciled Status = "RECONCILED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusReconciled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Item snapshots one quote's balances when the statement was generated.
// The values are never recomputed afterwards.
type Item struct {
	ID          uuid.UUID
	StatementID uuid.UUID
	QuoteID     uuid.UUID
	QuoteNo     string
	QuoteTotal  decimal.Decimal
	QuotePaid   decimal.Decimal
	QuoteUnpaid decimal.Decimal
}

// ItemSnapshot is the caller-computed balance of one quote
type ItemSnapshot struct {
	QuoteID uuid.UUID
	QuoteNo string
	Total   decimal.Decimal
	Unpaid  decimal.Decimal
}

// AccountStatement batches a customer's unpaid quote balances
type AccountStatement struct {
	shared.BaseAggregateRoot
	StatementNo  string
	CustomerID   uuid.UUID
	CustomerName string
	Currency     valueobject.Currency
	TotalAmount  decimal.Decimal
	Status       Status
	CreatorID    uuid.UUID
	Items        []Item
	ReconciledBy *uuid.UUID
	ReconciledAt *time.Time
}

// NewAccountStatement builds a PENDING statement from quote snapshots.
// Every snapshot must carry a positive unpaid amount.
func NewAccountStatement(
	statementNo string,
	customerID uuid.UUID,
	customerName string,
	currency valueobject.Currency,
	creatorID uuid.UUID,
	snapshots []ItemSnapshot,
) (*AccountStatement, error) {
	if len(snapshots) == 0 {
		return nil, shared.NewValidationError("at least one quote is required")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("customer id is required")
	}
	if creatorID == uuid.Nil {
		return nil, shared.NewValidationError("creator id is required")
	}

	s := &AccountStatement{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		StatementNo:       statementNo,
		CustomerID:        customerID,
		CustomerName:      customerName,
		Currency:          currency,
		Status:            StatusPending,
		CreatorID:         creatorID,
		Items:             make([]Item, 0, len(snapshots)),
	}

	seen := make(map[uuid.UUID]bool, len(snapshots))
	unpaids := make([]decimal.Decimal, 0, len(snapshots))
	for _, snap := range snapshots {
		if seen[snap.QuoteID] {
			return nil, shared.NewValidationError("quote %s is listed twice", snap.QuoteNo)
		}
		seen[snap.QuoteID] = true

		unpaid := valueobject.Round2(snap.Unpaid)
		if !unpaid.IsPositive() {
			return nil, shared.NewValidationError("quote %s has no unpaid amount", snap.QuoteNo)
		}
		total := valueobject.Round2(snap.Total)
		s.Items = append(s.Items, Item{
			ID:          uuid.New(),
			StatementID: s.ID,
			QuoteID:     snap.QuoteID,
			QuoteNo:     snap.QuoteNo,
			QuoteTotal:  total,
			QuotePaid:   valueobject.SubMoney(total, unpaid),
			QuoteUnpaid: unpaid,
		})
		unpaids = append(unpaids, unpaid)
	}
	s.TotalAmount = valueobject.SumMoney(unpaids...)

	s.AddDomainEvent(NewStatementGeneratedEvent(s))
	return s, nil
}

// QuoteIDs returns the quotes on the statement in item order
func (s *AccountStatement) QuoteIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Items))
	for i, it := range s.Items {
		ids[i] = it.QuoteID
	}
	return ids
}

// RemoveItem drops a quote from a PENDING statement and reduces the total by its snapshot
func (s *AccountStatement) RemoveItem(quoteID uuid.UUID) (*Item, error) {
	if s.Status != StatusPending {
		return nil, shared.NewInvalidStateError("only PENDING statements can be edited, statement is %s", s.Status)
	}
	for i := range s.Items {
		if s.Items[i].QuoteID == quoteID {
			removed := s.Items[i]
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			s.TotalAmount = valueobject.SubMoney(s.TotalAmount, removed.QuoteUnpaid)
			s.Touch()
			return &removed, nil
		}
	}
	return nil, shared.NewNotFoundError("quote %s is not on statement %s", quoteID, s.StatementNo)
}

// Reconcile closes a PENDING statement once bound payments sum exactly to its total
func (s *AccountStatement) Reconcile(boundSum decimal.Decimal, actorID uuid.UUID) error {
	if s.Status != StatusPending {
		return shared.NewInvalidStateError("statement %s is already %s", s.StatementNo, s.Status)
	}
	boundSum = valueobject.Round2(boundSum)
	if !boundSum.Equal(s.TotalAmount) {
		return shared.NewReconciliationMismatchError("payments sum to %s but statement %s totals %s",
			valueobject.FormatMoney(boundSum), s.StatementNo, valueobject.FormatMoney(s.TotalAmount))
	}

	now := shared.Now()
	s.Status = StatusReconciled
	s.ReconciledBy = &actorID
	s.ReconciledAt = &now
	s.Touch()

	s.AddDomainEvent(NewStatementReconciledEvent(s))
	return nil
}
