// Package tabular defines the storage-engine agnostic contract over named
// record collections, plus the helpers shared by every backend.
package tabular

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// Store is implemented by every backend (CSV files, Google Sheets, Excel
// workbook). Implementations keep no collection state in memory between calls.
type Store interface {
	// Append adds one record, creating the collection with a header taken
	// from the record's fields when it does not exist yet.
	Append(ctx context.Context, collection string, record Record) error
	// ReadAll returns every record in insertion order. A missing collection
	// yields an empty slice.
	ReadAll(ctx context.Context, collection string) ([]Record, error)
	// ReplaceAll atomically overwrites the whole collection.
	ReplaceAll(ctx context.Context, collection string, records []Record) error
	// UpdateOne merges patch into the first record whose idField equals
	// idValue. It returns false when nothing matched.
	UpdateOne(ctx context.Context, collection, idField, idValue string, patch Record) (bool, error)
	// FindOne returns the first record whose idField equals idValue.
	FindOne(ctx context.Context, collection, idField, idValue string) (Record, bool, error)
}

var (
	// ErrSchemaMismatch is returned when a record's fields do not match the
	// collection header.
	ErrSchemaMismatch = errors.New("tabular: fields do not match collection header")
	// ErrInvalidCollection is returned for empty or unsafe collection names.
	ErrInvalidCollection = errors.New("tabular: invalid collection name")
	// ErrEmptyRecord is returned when appending a record without fields.
	ErrEmptyRecord = errors.New("tabular: record has no fields")
)

// StorageError wraps any failure of the underlying storage engine.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Wrap turns err into a *StorageError unless it already is one.
func Wrap(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Collection: collection, Err: err}
}

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,30}$`)

// ValidateName checks that collection can be used as a file or sheet name.
func ValidateName(collection string) error {
	if !collectionName.MatchString(collection) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	return nil
}

// Header returns the shared field list of records. Every record must carry
// exactly the same field set as the first one.
func Header(records []Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0].Keys()
	if len(header) == 0 {
		return nil, ErrEmptyRecord
	}
	for i, rec := range records[1:] {
		if !rec.HasFields(header) {
			return nil, fmt.Errorf("%w: record %d differs from record 0", ErrSchemaMismatch, i+1)
		}
	}
	return header, nil
}

// IndexOf returns the position of the first record whose idField equals
// idValue, or -1.
func IndexOf(records []Record, idField, idValue string) int {
	for i, rec := range records {
		if v, ok := rec.Lookup(idField); ok && v == idValue {
			return i
		}
	}
	return -1
}

// ApplyPatch merges patch into rec, refusing fields outside header.
func ApplyPatch(header []string, rec, patch Record) (Record, error) {
	known := make(map[string]struct{}, len(header))
	for _, name := range header {
		known[name] = struct{}{}
	}
	for _, k := range patch.Keys() {
		if _, ok := known[k]; !ok {
			return Record{}, fmt.Errorf("%w: unknown field %q", ErrSchemaMismatch, k)
		}
	}
	return rec.Merge(patch), nil
}

// Locks hands out one RWMutex per collection name.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.RWMutex)}
}

// For returns the lock guarding collection.
func (l *Locks) For(collection string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[collection]
	if !ok {
		lock = &sync.RWMutex{}
		l.locks[collection] = lock
	}
	return lock
}
