package quote

import (
	"strings"
	"time"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
)

// VoidApplicationAggregateType is the aggregate type name used in domain events
const VoidApplicationAggregateType = "QuoteVoidApplication"

// DirectVoidNote is the audit note recorded on finance-initiated voids
const DirectVoidNote = "voided directly by finance"

// VoidAuditResult is the closed set of decisions on a void application
type VoidAuditResult string

const (
	VoidAuditPass   VoidAuditResult = "PASS"
	VoidAuditReject VoidAuditResult = "REJECT"
)

// IsValid checks if the result is a valid VoidAuditResult
func (r VoidAuditResult) IsValid() bool {
	switch r {
	case VoidAuditPass, VoidAuditReject:
		return true
	}
	return false
}

// String returns the string representation of VoidAuditResult
func (r VoidAuditResult) String() string {
	return string(r)
}

// VoidApplicationStatus represents the state of a void application
type VoidApplicationStatus string

const (
	VoidApplicationPending  VoidApplicationStatus = "PENDING"
	VoidApplicationPassed   VoidApplicationStatus = "PASSED"
	VoidApplicationRejected VoidApplicationStatus = "REJECTED"
)

// IsValid checks if the status is a valid VoidApplicationStatus
func (s VoidApplicationStatus) IsValid() bool {
	switch s {
	case VoidApplicationPending, VoidApplicationPassed, VoidApplicationRejected:
		return true
	}
	return false
}

// String returns the string representation of VoidApplicationStatus
func (s VoidApplicationStatus) String() string {
	return string(s)
}

// VoidApplication is a request to cancel a confirmed quote
type VoidApplication struct {
	shared.BaseAggregateRoot
	QuoteID        uuid.UUID
	ApplicantID    uuid.UUID
	Reason         string
	AttachmentURLs []string
	AppliedAt      time.Time
	Status         VoidApplicationStatus
	AuditorID      *uuid.UUID
	AuditNote      string
	AuditedAt      *time.Time
	Direct         bool
}

// NewVoidApplication creates a PENDING application. Only the quote's
// collector may apply, and the quote must not already be frozen or cancelled.
func NewVoidApplication(q *Quote, applicantID uuid.UUID, reason string, attachments []string) (*VoidApplication, error) {
	if applicantID == uuid.Nil || applicantID != q.CollectorID {
		return nil, shared.NewForbiddenError("only the collector of quote %s may apply to void it", q.QuoteNo)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewValidationError("void reason is required")
	}
	if err := q.StartVoid(); err != nil {
		return nil, err
	}

	a := &VoidApplication{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuoteID:           q.ID,
		ApplicantID:       applicantID,
		Reason:            reason,
		AttachmentURLs:    append([]string(nil), attachments...),
		AppliedAt:         shared.Now(),
		Status:            VoidApplicationPending,
	}
	a.AddDomainEvent(NewVoidAppliedEvent(a))
	return a, nil
}

// NewDirectVoidApplication records a finance void as an application that is
// audited PASS in the same step. A reason is mandatory once the quote is PAID.
func NewDirectVoidApplication(q *Quote, financeID uuid.UUID, reason string) (*VoidApplication, error) {
	if financeID == uuid.Nil {
		return nil, shared.NewValidationError("finance user id is required")
	}
	if q.Status.IsTerminal() {
		return nil, shared.NewInvalidStateError("quote %s is already cancelled", q.QuoteNo)
	}
	reason = strings.TrimSpace(reason)
	if q.PaymentStatus == PaymentStatusPaid && reason == "" {
		return nil, shared.NewValidationError("a reason is required to void the fully paid quote %s", q.QuoteNo)
	}

	now := shared.Now()
	a := &VoidApplication{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuoteID:           q.ID,
		ApplicantID:       financeID,
		Reason:            reason,
		AppliedAt:         now,
		Status:            VoidApplicationPending,
		Direct:            true,
	}
	if err := a.Audit(financeID, VoidAuditPass, DirectVoidNote); err != nil {
		return nil, err
	}
	return a, nil
}

// Audit decides a PENDING application. The caller applies the quote side effects.
func (a *VoidApplication) Audit(auditorID uuid.UUID, result VoidAuditResult, note string) error {
	if !result.IsValid() {
		return shared.NewValidationError("invalid void audit result: %s", result)
	}
	if auditorID == uuid.Nil {
		return shared.NewValidationError("auditor id is required")
	}
	if a.Status != VoidApplicationPending {
		return shared.NewInvalidStateError("void application was already audited")
	}

	now := shared.Now()
	switch result {
	case VoidAuditPass:
		a.Status = VoidApplicationPassed
	case VoidAuditReject:
		a.Status = VoidApplicationRejected
	}
	a.AuditorID = &auditorID
	a.AuditNote = note
	a.AuditedAt = &now
	a.Touch()

	a.AddDomainEvent(NewVoidAuditedEvent(a, result))
	return nil
}
