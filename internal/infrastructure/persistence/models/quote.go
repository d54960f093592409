package models

import (
	"time"

	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// QuoteModel is the persistence model for the Quote aggregate root.
type QuoteModel struct {
	AggregateModel
	QuoteNo        string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Status         quote.Status         `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	PaymentStatus  quote.PaymentStatus  `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	InvoiceStatus  quote.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'UNINVOICED';index"`
	VoidStatus     quote.VoidStatus     `gorm:"type:varchar(20);not null;default:'NONE'"`
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null"`
	CustomerID     uuid.UUID            `gorm:"type:uuid;index"`
	CustomerName   string               `gorm:"type:varchar(200)"`
	CollectorID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	CreatorID      uuid.UUID            `gorm:"type:uuid;not null"`
	ParentQuoteID  *uuid.UUID           `gorm:"type:uuid;index"`
	Recipient      string               `gorm:"type:varchar(100)"`
	Phone          string               `gorm:"type:varchar(50)"`
	Address        string               `gorm:"type:varchar(500)"`
	Remark         string               `gorm:"type:text"`
	PaidAmount     decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	InvoicedAmount decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	ConfirmedAt    *time.Time
	ConfirmedBy    *uuid.UUID `gorm:"type:uuid"`
	CancelledAt    *time.Time
	CancelledBy    *uuid.UUID       `gorm:"type:uuid"`
	CancelReason   string           `gorm:"type:varchar(500)"`
	Items          []QuoteItemModel `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the persistence model to a domain Quote
func (m *QuoteModel) ToDomain() *quote.Quote {
	q := &quote.Quote{
		BaseAggregateRoot: m.ToAggregateRoot(),
		QuoteNo:           m.QuoteNo,
		Status:            m.Status,
		PaymentStatus:     m.PaymentStatus,
		InvoiceStatus:     m.InvoiceStatus,
		VoidStatus:        m.VoidStatus,
		Currency:          m.Currency,
		CustomerID:        m.CustomerID,
		CustomerName:      m.CustomerName,
		CollectorID:       m.CollectorID,
		CreatorID:         m.CreatorID,
		ParentQuoteID:     m.ParentQuoteID,
		Recipient:         m.Recipient,
		Phone:             m.Phone,
		Address:           m.Address,
		Remark:            m.Remark,
		PaidAmount:        m.PaidAmount,
		InvoicedAmount:    m.InvoicedAmount,
		ConfirmedAt:       m.ConfirmedAt,
		ConfirmedBy:       m.ConfirmedBy,
		CancelledAt:       m.CancelledAt,
		CancelledBy:       m.CancelledBy,
		CancelReason:      m.CancelReason,
		Items:             make([]quote.QuoteItem, len(m.Items)),
	}
	for i := range m.Items {
		q.Items[i] = *m.Items[i].ToDomain()
	}
	return q
}

// FromDomain populates the persistence model from a domain Quote
func (m *QuoteModel) FromDomain(q *quote.Quote) {
	m.FromDomainAggregateRoot(q.BaseAggregateRoot)
	m.QuoteNo = q.QuoteNo
	m.Status = q.Status
	m.PaymentStatus = q.PaymentStatus
	m.InvoiceStatus = q.InvoiceStatus
	m.VoidStatus = q.VoidStatus
	m.Currency = q.Currency
	m.CustomerID = q.CustomerID
	m.CustomerName = q.CustomerName
	m.CollectorID = q.CollectorID
	m.CreatorID = q.CreatorID
	m.ParentQuoteID = q.ParentQuoteID
	m.Recipient = q.Recipient
	m.Phone = q.Phone
	m.Address = q.Address
	m.Remark = q.Remark
	m.PaidAmount = q.PaidAmount
	m.InvoicedAmount = q.InvoicedAmount
	m.ConfirmedAt = q.ConfirmedAt
	m.ConfirmedBy = q.ConfirmedBy
	m.CancelledAt = q.CancelledAt
	m.CancelledBy = q.CancelledBy
	m.CancelReason = q.CancelReason
	m.Items = make([]QuoteItemModel, len(q.Items))
	for i := range q.Items {
		m.Items[i].FromDomain(&q.Items[i])
	}
}

// QuoteFromDomain creates a persistence model from a domain Quote
func QuoteFromDomain(q *quote.Quote) *QuoteModel {
	m := &QuoteModel{}
	m.FromDomain(q)
	return m
}

// QuoteItemModel is the persistence model for a quote line.
type QuoteItemModel struct {
	BaseModel
	QuoteID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	FeeType     string          `gorm:"type:varchar(50);not null"`
	Description string          `gorm:"type:varchar(500)"`
	Spec        string          `gorm:"type:varchar(200)"`
	Unit        string          `gorm:"type:varchar(20)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (QuoteItemModel) TableName() string {
	return "quote_items"
}

// ToDomain converts the persistence model to a domain QuoteItem
func (m *QuoteItemModel) ToDomain() *quote.QuoteItem {
	return &quote.QuoteItem{
		BaseEntity:  m.BaseModel.ToDomain(),
		QuoteID:     m.QuoteID,
		LineNo:      m.LineNo,
		FeeType:     m.FeeType,
		Description: m.Description,
		Spec:        m.Spec,
		Unit:        m.Unit,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
	}
}

// FromDomain populates the persistence model from a domain QuoteItem
func (m *QuoteItemModel) FromDomain(item *quote.QuoteItem) {
	m.FromDomainBaseEntity(item.BaseEntity)
	m.QuoteID = item.QuoteID
	m.LineNo = item.LineNo
	m.FeeType = item.FeeType
	m.Description = item.Description
	m.Spec = item.Spec
	m.Unit = item.Unit
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.Amount = item.Amount
}

// VoidApplicationModel is the persistence model for a quote void application.
type VoidApplicationModel struct {
	AggregateModel
	QuoteID        uuid.UUID                   `gorm:"type:uuid;not null;index"`
	ApplicantID    uuid.UUID                   `gorm:"type:uuid;not null"`
	Reason         string                      `gorm:"type:varchar(500)"`
	AttachmentURLs datatypes.JSONSlice[string] `gorm:"column:attachment_urls"`
	AppliedAt      time.Time                   `gorm:"not null"`
	Status         quote.VoidApplicationStatus `gorm:"type:varchar(20);not null;index"`
	AuditorID      *uuid.UUID                  `gorm:"type:uuid"`
	AuditNote      string                      `gorm:"type:varchar(500)"`
	AuditedAt      *time.Time
	Direct         bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (VoidApplicationModel) TableName() string {
	return "quote_void_applications"
}

// ToDomain converts the persistence model to a domain VoidApplication
func (m *VoidApplicationModel) ToDomain() *quote.VoidApplication {
	return &quote.VoidApplication{
		BaseAggregateRoot: m.ToAggregateRoot(),
		QuoteID:           m.QuoteID,
		ApplicantID:       m.ApplicantID,
		Reason:            m.Reason,
		AttachmentURLs:    []string(m.AttachmentURLs),
		AppliedAt:         m.AppliedAt,
		Status:            m.Status,
		AuditorID:         m.AuditorID,
		AuditNote:         m.AuditNote,
		AuditedAt:         m.AuditedAt,
		Direct:            m.Direct,
	}
}

// FromDomain populates the persistence model from a domain VoidApplication
func (m *VoidApplicationModel) FromDomain(a *quote.VoidApplication) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.QuoteID = a.QuoteID
	m.ApplicantID = a.ApplicantID
	m.Reason = a.Reason
	m.AttachmentURLs = datatypes.NewJSONSlice(nonNilStrings(a.AttachmentURLs))
	m.AppliedAt = a.AppliedAt
	m.Status = a.Status
	m.AuditorID = a.AuditorID
	m.AuditNote = a.AuditNote
	m.AuditedAt = a.AuditedAt
	m.Direct = a.Direct
}

// WorkflowHistoryModel is the persistence model for the quote audit trail.
type WorkflowHistoryModel struct {
	ID             uuid.UUID            `gorm:"type:uuid;primary_key"`
	QuoteID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	Action         quote.WorkflowAction `gorm:"type:varchar(30);not null"`
	OperatorID     uuid.UUID            `gorm:"type:uuid;not null"`
	PreviousStatus string               `gorm:"type:varchar(20)"`
	CurrentStatus  string               `gorm:"type:varchar(20)"`
	Reason         string               `gorm:"type:varchar(500)"`
	CreatedAt      time.Time            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (WorkflowHistoryModel) TableName() string {
	return "quote_workflow_histories"
}

// ToDomain converts the persistence model to a domain WorkflowHistory
func (m *WorkflowHistoryModel) ToDomain() *quote.WorkflowHistory {
	return &quote.WorkflowHistory{
		ID:             m.ID,
		QuoteID:        m.QuoteID,
		Action:         m.Action,
		OperatorID:     m.OperatorID,
		PreviousStatus: m.PreviousStatus,
		CurrentStatus:  m.CurrentStatus,
		Reason:         m.Reason,
		CreatedAt:      m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain WorkflowHistory
func (m *WorkflowHistoryModel) FromDomain(h *quote.WorkflowHistory) {
	m.ID = h.ID
	m.QuoteID = h.QuoteID
	m.Action = h.Action
	m.OperatorID = h.OperatorID
	m.PreviousStatus = h.PreviousStatus
	m.CurrentStatus = h.CurrentStatus
	m.Reason = h.Reason
	m.CreatedAt = h.CreatedAt
}

// NumberSequenceModel stores the last issued value of a daily counter.
type NumberSequenceModel struct {
	Scope     string    `gorm:"type:varchar(50);primaryKey"`
	Day       string    `gorm:"type:varchar(8);primaryKey"`
	LastValue int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NumberSequenceModel) TableName() string {
	return "number_sequences"
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
