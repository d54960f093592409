package shared

import "fmt"

// Error codes understood by every layer. The HTTP layer maps them to status codes.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidState           = "INVALID_STATE"
	CodeFrozen                 = "FROZEN"
	CodeForbidden              = "FORBIDDEN"
	CodeOverpayment            = "OVERPAYMENT"
	CodeReconciliationMismatch = "RECONCILIATION_MISMATCH"
	CodeNotFound               = "NOT_FOUND"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrFrozen) matches any freeze failure regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports malformed input or a cross-entity mismatch.
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewInvalidStateError reports an operation the current state does not allow.
func NewInvalidStateError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

// NewFrozenError reports a mutation blocked by a pending void application.
func NewFrozenError(format string, args ...any) *DomainError {
	return NewDomainError(CodeFrozen, fmt.Sprintf(format, args...))
}

// NewForbiddenError reports an actor identity mismatch.
func NewForbiddenError(format string, args ...any) *DomainError {
	return NewDomainError(CodeForbidden, fmt.Sprintf(format, args...))
}

// NewOverpaymentError reports a confirmation that would push the paid total past the quote total.
func NewOverpaymentError(format string, args ...any) *DomainError {
	return NewDomainError(CodeOverpayment, fmt.Sprintf(format, args...))
}

// NewReconciliationMismatchError reports a statement binding whose sum differs from the statement total.
func NewReconciliationMismatchError(format string, args ...any) *DomainError {
	return NewDomainError(CodeReconciliationMismatch, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a missing aggregate.
func NewNotFoundError(format string, args ...any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf(format, args...))
}

// Sentinel errors for errors.Is matching
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrValidation             = NewDomainError(CodeValidation, "Validation failed")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrFrozen                 = NewDomainError(CodeFrozen, "Quote is frozen by a pending void application")
	ErrForbidden              = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrOverpayment            = NewDomainError(CodeOverpayment, "Payment exceeds quote total")
	ErrReconciliationMismatch = NewDomainError(CodeReconciliationMismatch, "Payment sum does not match statement total")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
)
