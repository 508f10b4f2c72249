package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeInvalidOption      = "INVALID_OPTION"
	ErrCodePriceMismatch      = "PRICE_MISMATCH"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeLineNotFound       = "LINE_NOT_FOUND"
	ErrCodeMergeConflict      = "MERGE_CONFLICT"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// DomainError is a business error carrying a machine-readable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Cart domain errors. Callers wrap them with %w to add detail.
var (
	ErrInvalidOption   = NewDomainError(ErrCodeInvalidOption, "invalid product option")
	ErrPriceMismatch   = NewDomainError(ErrCodePriceMismatch, "unit price does not match catalog price")
	ErrInvalidQuantity = NewDomainError(ErrCodeInvalidQuantity, fmt.Sprintf("quantity must be between 1 and %d", MaxLineQuantity))
	ErrProductNotFound = NewDomainError(ErrCodeProductNotFound, "product not found")
	ErrLineNotFound    = NewDomainError(ErrCodeLineNotFound, "cart line not found")

	// ErrMergeConflict and ErrStorage are transient and retried before they surface.
	ErrMergeConflict = NewDomainError(ErrCodeMergeConflict, "cart merge conflict")
	ErrStorage       = NewDomainError(ErrCodeStorageUnavailable, "cart storage unavailable")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrMergeConflict) || errors.Is(err, ErrStorage)
}
