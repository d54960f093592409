package models

import (
	"time"

	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentModel is the persistence model for a quote payment.
// Source holds the overpayment resolution as a JSON column; it is null for
// ordinary confirmations.
type PaymentModel struct {
	AggregateModel
	QuoteID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	CustomerID     uuid.UUID            `gorm:"type:uuid;index"`
	Amount         decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null"`
	MethodID       uuid.UUID            `gorm:"type:uuid"`
	PaidAt         time.Time            `gorm:"not null"`
	Status         payment.Status       `gorm:"type:varchar(20);not null;index"`
	SubmitterID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	SubmittedAt    time.Time            `gorm:"not null"`
	ConfirmerID    *uuid.UUID           `gorm:"type:uuid"`
	ConfirmedAt    *time.Time
	ConfirmNote    string                                  `gorm:"type:varchar(500)"`
	BatchNo        string                                  `gorm:"type:varchar(50)"`
	Note           string                                  `gorm:"type:varchar(500)"`
	AttachmentURLs datatypes.JSONSlice[string]             `gorm:"column:attachment_urls"`
	StatementID    *uuid.UUID                              `gorm:"type:uuid;index"`
	Source         datatypes.JSONType[*payment.SourceInfo] `gorm:"column:source_info"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "quote_payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *payment.Payment {
	return &payment.Payment{
		BaseAggregateRoot: m.ToAggregateRoot(),
		QuoteID:           m.QuoteID,
		CustomerID:        m.CustomerID,
		Amount:            m.Amount,
		Currency:          m.Currency,
		MethodID:          m.MethodID,
		PaidAt:            m.PaidAt,
		Status:            m.Status,
		SubmitterID:       m.SubmitterID,
		SubmittedAt:       m.SubmittedAt,
		ConfirmerID:       m.ConfirmerID,
		ConfirmedAt:       m.ConfirmedAt,
		ConfirmNote:       m.ConfirmNote,
		BatchNo:           m.BatchNo,
		Note:              m.Note,
		AttachmentURLs:    []string(m.AttachmentURLs),
		StatementID:       m.StatementID,
		Source:            m.Source.Data(),
	}
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *payment.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.QuoteID = p.QuoteID
	m.CustomerID = p.CustomerID
	m.Amount = p.Amount
	m.Currency = p.Currency
	m.MethodID = p.MethodID
	m.PaidAt = p.PaidAt
	m.Status = p.Status
	m.SubmitterID = p.SubmitterID
	m.SubmittedAt = p.SubmittedAt
	m.ConfirmerID = p.ConfirmerID
	m.ConfirmedAt = p.ConfirmedAt
	m.ConfirmNote = p.ConfirmNote
	m.BatchNo = p.BatchNo
	m.Note = p.Note
	m.AttachmentURLs = datatypes.NewJSONSlice(nonNilStrings(p.AttachmentURLs))
	m.StatementID = p.StatementID
	m.Source = datatypes.NewJSONType(p.Source)
}
