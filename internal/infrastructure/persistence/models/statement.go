package models

import (
	"time"

	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/erp/quotefinance/internal/domain/statement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountStatementModel is the persistence model for the AccountStatement aggregate root.
type AccountStatementModel struct {
	AggregateModel
	StatementNo  string               `gorm:"type:varchar(30);not null;uniqueIndex"`
	CustomerID   uuid.UUID            `gorm:"type:uuid;not null;index"`
	CustomerName string               `gorm:"type:varchar(200)"`
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null"`
	TotalAmount  decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Status       statement.Status     `gorm:"type:varchar(20);not null;index"`
	CreatorID    uuid.UUID            `gorm:"type:uuid;not null"`
	ReconciledBy *uuid.UUID           `gorm:"type:uuid"`
	ReconciledAt *time.Time
	Items        []AccountStatementItemModel `gorm:"foreignKey:StatementID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (AccountStatementModel) TableName() string {
	return "account_statements"
}

// ToDomain converts the persistence model to a domain AccountStatement
func (m *AccountStatementModel) ToDomain() *statement.AccountStatement {
	s := &statement.AccountStatement{
		BaseAggregateRoot: m.ToAggregateRoot(),
		StatementNo:       m.StatementNo,
		CustomerID:        m.CustomerID,
		CustomerName:      m.CustomerName,
		Currency:          m.Currency,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		CreatorID:         m.CreatorID,
		ReconciledBy:      m.ReconciledBy,
		ReconciledAt:      m.ReconciledAt,
		Items:             make([]statement.Item, len(m.Items)),
	}
	for i, it := range m.Items {
		s.Items[i] = statement.Item{
			ID:          it.ID,
			StatementID: it.StatementID,
			QuoteID:     it.QuoteID,
			QuoteNo:     it.QuoteNo,
			QuoteTotal:  it.QuoteTotal,
			QuotePaid:   it.QuotePaid,
			QuoteUnpaid: it.QuoteUnpaid,
		}
	}
	return s
}

// FromDomain populates the persistence model from a domain AccountStatement
func (m *AccountStatementModel) FromDomain(s *statement.AccountStatement) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.StatementNo = s.StatementNo
	m.CustomerID = s.CustomerID
	m.CustomerName = s.CustomerName
	m.Currency = s.Currency
	m.TotalAmount = s.TotalAmount
	m.Status = s.Status
	m.CreatorID = s.CreatorID
	m.ReconciledBy = s.ReconciledBy
	m.ReconciledAt = s.ReconciledAt
	m.Items = make([]AccountStatementItemModel, len(s.Items))
	for i, it := range s.Items {
		m.Items[i] = AccountStatementItemModel{
			ID:          it.ID,
			StatementID: it.StatementID,
			QuoteID:     it.QuoteID,
			QuoteNo:     it.QuoteNo,
			QuoteTotal:  it.QuoteTotal,
			QuotePaid:   it.QuotePaid,
			QuoteUnpaid: it.QuoteUnpaid,
		}
	}
}

// AccountStatementItemModel is the snapshot of one quote on a statement.
type AccountStatementItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	StatementID uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuoteID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuoteNo     string          `gorm:"type:varchar(50);not null"`
	QuoteTotal  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	QuotePaid   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	QuoteUnpaid decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (AccountStatementItemModel) TableName() string {
	return "account_statement_items"
}
