package ledger

import (
	"context"
	"errors"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

// ErrorKind classifies a failed ledger call for the caller.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindNotFound          ErrorKind = "not_found"
	KindStorage           ErrorKind = "storage"
	KindInternal          ErrorKind = "internal"
)

// KindOf maps err onto the error taxonomy. It returns "" for nil.
func KindOf(err error) ErrorKind {
	var storageErr *tabular.StorageError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrValidation):
		return KindValidation
	case errors.Is(err, models.ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, models.ErrNotFound):
		return KindNotFound
	case errors.As(err, &storageErr), errors.Is(err, models.ErrCorruptRecord):
		return KindStorage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindStorage
	default:
		return KindInternal
	}
}

// Outcome is the structured result handed back for every registration.
type Outcome struct {
	Success   bool        `json:"success"`
	Record    interface{} `json:"record,omitempty"`
	ErrorKind ErrorKind   `json:"error_kind,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// NewOutcome folds a registration result into an Outcome.
func NewOutcome(record interface{}, err error) Outcome {
	if err != nil {
		return Outcome{Success: false, ErrorKind: KindOf(err), Message: err.Error()}
	}
	return Outcome{Success: true, Record: record}
}
