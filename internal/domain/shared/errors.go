package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies errors by how callers are expected to react to them
type ErrorKind string

const (
	// KindNotFound means a referenced product or order does not exist or is soft-deleted
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindInvalidOperation means a business rule was violated; the caller must correct the request
	KindInvalidOperation ErrorKind = "INVALID_OPERATION"
	// KindInfrastructure means the store or transaction failed; the whole operation may be retried
	KindInfrastructure ErrorKind = "INFRASTRUCTURE_FAILURE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets errors.Is match a sentinel even when the message was customised.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error of kind InvalidOperation
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    KindInvalidOperation,
	}
}

// NewNotFoundError creates a NOT_FOUND error with a specific message
func NewNotFoundError(message string) *DomainError {
	return &DomainError{
		Code:    ErrNotFound.Code,
		Message: message,
		Kind:    KindNotFound,
	}
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
		Kind:    e.Kind,
	}
}

// Common domain errors
var (
	ErrNotFound           = &DomainError{Code: "NOT_FOUND", Message: "Resource not found", Kind: KindNotFound}
	ErrInvalidInput       = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState       = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInvalidOperation   = NewDomainError("INVALID_OPERATION", "Operation is not allowed")
	ErrNegativeStock      = NewDomainError("NEGATIVE_STOCK", "Updating quantity resulted in negative stock level")
	ErrNonPhysicalProduct = NewDomainError("NON_PHYSICAL_PRODUCT", "Quantity can only be changed for physical products")
)

// InfrastructureError wraps a store or transaction failure
type InfrastructureError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying driver error
func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// NewInfrastructureError wraps err unless it is nil or already classified
func NewInfrastructureError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	var infraErr *InfrastructureError
	if errors.As(err, &infraErr) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

// KindOf classifies err. Anything that is not a DomainError is an infrastructure failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Kind == "" {
			return KindInvalidOperation
		}
		return domainErr.Kind
	}
	return KindInfrastructure
}

// IsRetryable reports whether the whole atomic operation may be retried
func IsRetryable(err error) bool {
	return KindOf(err) == KindInfrastructure
}
