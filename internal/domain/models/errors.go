package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation marks input rejected before anything is persisted.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock marks a processing request larger than the purchase availability.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNotFound marks a missing referenced record.
	ErrNotFound = errors.New("not found")
	// ErrCorruptRecord marks a stored row whose fields cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrBadTimestamp marks a stored row whose only defect is an unparseable
	// timestamp. It always travels with ErrCorruptRecord.
	ErrBadTimestamp = errors.New("unreadable timestamp")
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports how much was requested against what a
// purchase still holds.
type InsufficientStockError struct {
	PurchaseID string
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("purchase %s has %s kg available, %s kg requested", e.PurchaseID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NotFoundError names the collection and id that could not be resolved.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Collection, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
