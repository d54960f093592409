package models

import (
	"time"

	"github.com/erp/quotefinance/internal/domain/invoice"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceApplicationModel is the persistence model for the InvoiceApplication aggregate root.
type InvoiceApplicationModel struct {
	AggregateModel
	ApplicationNo string               `gorm:"type:varchar(60);not null;uniqueIndex"`
	CollectorID   uuid.UUID            `gorm:"type:uuid;not null;index"`
	CustomerID    uuid.UUID            `gorm:"type:uuid;index"`
	Currency      valueobject.Currency `gorm:"type:varchar(3);not null"`
	TotalAmount   decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Status        invoice.Status       `gorm:"type:varchar(20);not null;index"`
	AuditorID     *uuid.UUID           `gorm:"type:uuid"`
	AuditedAt     *time.Time
	RejectReason  string               `gorm:"type:varchar(500)"`
	Records       []InvoiceRecordModel `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceApplicationModel) TableName() string {
	return "invoice_applications"
}

// ToDomain converts the persistence model to a domain InvoiceApplication
func (m *InvoiceApplicationModel) ToDomain() *invoice.InvoiceApplication {
	a := &invoice.InvoiceApplication{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ApplicationNo:     m.ApplicationNo,
		CollectorID:       m.CollectorID,
		CustomerID:        m.CustomerID,
		Currency:          m.Currency,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		AuditorID:         m.AuditorID,
		AuditedAt:         m.AuditedAt,
		RejectReason:      m.RejectReason,
		Records:           make([]invoice.InvoiceRecord, len(m.Records)),
	}
	for i := range m.Records {
		a.Records[i] = m.Records[i].ToDomain()
	}
	return a
}

// FromDomain populates the persistence model from a domain InvoiceApplication
func (m *InvoiceApplicationModel) FromDomain(a *invoice.InvoiceApplication) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.ApplicationNo = a.ApplicationNo
	m.CollectorID = a.CollectorID
	m.CustomerID = a.CustomerID
	m.Currency = a.Currency
	m.TotalAmount = a.TotalAmount
	m.Status = a.Status
	m.AuditorID = a.AuditorID
	m.AuditedAt = a.AuditedAt
	m.RejectReason = a.RejectReason
	m.Records = make([]InvoiceRecordModel, len(a.Records))
	for i := range a.Records {
		m.Records[i].FromDomain(&a.Records[i])
	}
}

// InvoiceRecordModel is one invoice inside an application.
type InvoiceRecordModel struct {
	ID            uuid.UUID             `gorm:"type:uuid;primary_key"`
	ApplicationID uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceType   invoice.InvoiceType   `gorm:"type:varchar(20);not null"`
	TaxRate       decimal.Decimal       `gorm:"type:decimal(5,4);not null"`
	Content       string                `gorm:"type:varchar(200)"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Items         []InvoiceItemRefModel `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceRecordModel) TableName() string {
	return "invoice_records"
}

// ToDomain converts the persistence model to a domain InvoiceRecord
func (m *InvoiceRecordModel) ToDomain() invoice.InvoiceRecord {
	r := invoice.InvoiceRecord{
		ID:            m.ID,
		ApplicationID: m.ApplicationID,
		InvoiceType:   m.InvoiceType,
		TaxRate:       m.TaxRate,
		Content:       m.Content,
		Amount:        m.Amount,
		Items:         make([]invoice.InvoiceItemRef, len(m.Items)),
	}
	for i, ref := range m.Items {
		r.Items[i] = invoice.InvoiceItemRef{
			ID:          ref.ID,
			RecordID:    ref.RecordID,
			QuoteID:     ref.QuoteID,
			QuoteItemID: ref.QuoteItemID,
			Amount:      ref.Amount,
		}
	}
	return r
}

// FromDomain populates the persistence model from a domain InvoiceRecord
func (m *InvoiceRecordModel) FromDomain(r *invoice.InvoiceRecord) {
	m.ID = r.ID
	m.ApplicationID = r.ApplicationID
	m.InvoiceType = r.InvoiceType
	m.TaxRate = r.TaxRate
	m.Content = r.Content
	m.Amount = r.Amount
	m.Items = make([]InvoiceItemRefModel, len(r.Items))
	for i, ref := range r.Items {
		m.Items[i] = InvoiceItemRefModel{
			ID:          ref.ID,
			RecordID:    ref.RecordID,
			QuoteID:     ref.QuoteID,
			QuoteItemID: ref.QuoteItemID,
			Amount:      ref.Amount,
		}
	}
}

// InvoiceItemRefModel links an invoice record to a quote line.
type InvoiceItemRefModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	RecordID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuoteID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuoteItemID uuid.UUID       `gorm:"type:uuid;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemRefModel) TableName() string {
	return "invoice_item_refs"
}
