package dto

import (
	"net/http"

	"github.com/erp/quotefinance/internal/domain/shared"
)

// Transport-level error codes. Domain failures keep the code of their
// shared.DomainError.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Domain errors
	shared.CodeValidation:             http.StatusBadRequest,
	shared.CodeInvalidState:           http.StatusUnprocessableEntity,
	shared.CodeFrozen:                 http.StatusLocked,
	shared.CodeForbidden:              http.StatusForbidden,
	shared.CodeOverpayment:            http.StatusUnprocessableEntity,
	shared.CodeReconciliationMismatch: http.StatusUnprocessableEntity,
	shared.CodeNotFound:               http.StatusNotFound,
	shared.CodeConcurrencyConflict:    http.StatusConflict,

	// Transport errors
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
