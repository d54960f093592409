package quote

import "github.com/shopspring/decimal"

// Status represents the document status of a quote
type Status string

const (
	StatusDraft     Status = "DRAFT"     // Editable, items may change
	StatusConfirmed Status = "CONFIRMED" // Accepts payments and invoices
	StatusCancelled Status = "CANCELLED" // Terminal, read only
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the quote can no longer change
func (s Status) IsTerminal() bool {
	return s == StatusCancelled
}

// CanEdit returns true if header and items may be modified
func (s Status) CanEdit() bool {
	return s == StatusDraft
}

// CanConfirm returns true if the quote can be confirmed in this status
func (s Status) CanConfirm() bool {
	return s == StatusDraft
}

// CanCancel returns true if the quote can be cancelled in this status
func (s Status) CanCancel() bool {
	return s == StatusDraft || s == StatusConfirmed
}

// PaymentStatus is derived from the confirmed payment total
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// InvoiceStatus is derived from the approved invoice total
type InvoiceStatus string

const (
	InvoiceStatusUninvoiced    InvoiceStatus = "UNINVOICED"
	InvoiceStatusInProcess     InvoiceStatus = "IN_PROCESS"
	InvoiceStatusPartial       InvoiceStatus = "PARTIAL"
	InvoiceStatusFullyInvoiced InvoiceStatus = "FULLY_INVOICED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUninvoiced, InvoiceStatusInProcess, InvoiceStatusPartial, InvoiceStatusFullyInvoiced:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// VoidStatus tracks the void application protocol. While APPLYING the quote is frozen.
type VoidStatus string

const (
	VoidStatusNone     VoidStatus = "NONE"
	VoidStatusApplying VoidStatus = "APPLYING"
	VoidStatusVoided   VoidStatus = "VOIDED"
	VoidStatusRejected VoidStatus = "REJECTED"
)

// IsValid checks if the status is a valid VoidStatus
func (s VoidStatus) IsValid() bool {
	switch s {
	case VoidStatusNone, VoidStatusApplying, VoidStatusVoided, VoidStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of VoidStatus
func (s VoidStatus) String() string {
	return string(s)
}

// IsFrozen returns true while a void decision is pending
func (s VoidStatus) IsFrozen() bool {
	return s == VoidStatusApplying
}

// ComputePaymentStatus derives the payment status from the paid and item totals.
func ComputePaymentStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	case paid.IsPositive():
		return PaymentStatusPartial
	default:
		return PaymentStatusUnpaid
	}
}

// ComputeInvoiceStatus derives the invoice status from the invoiced and item totals.
// IN_PROCESS is never produced here; it is set explicitly when an application is created.
func ComputeInvoiceStatus(invoiced, total decimal.Decimal) InvoiceStatus {
	switch {
	case invoiced.GreaterThanOrEqual(total):
		return InvoiceStatusFullyInvoiced
	case invoiced.IsPositive():
		return InvoiceStatusPartial
	default:
		return InvoiceStatusUninvoiced
	}
}
