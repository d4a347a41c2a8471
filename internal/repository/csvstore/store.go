// Package csvstore is the local development backend: one CSV file with a
// header row per collection, rewritten through a temp file and rename so
// readers never observe a half-written collection.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

// Store implements tabular.Store on top of a directory of CSV files.
type Store struct {
	dir    string
	locks  *tabular.Locks
	logger *zap.Logger
}

var _ tabular.Store = (*Store)(nil)

// New returns a store rooted at dir, creating the directory when needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		return nil, errors.New("csv data directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir, locks: tabular.NewLocks(), logger: logger}, nil
}

// Append adds record to the end of collection.
func (s *Store) Append(ctx context.Context, collection string, record tabular.Record) error {
	if err := s.precheck(ctx, collection); err != nil {
		return tabular.Wrap("append", collection, err)
	}
	if record.Len() == 0 {
		return tabular.Wrap("append", collection, tabular.ErrEmptyRecord)
	}

	lock := s.locks.For(collection)
	lock.Lock()
	defer lock.Unlock()

	header, rows, exists, err := s.load(collection)
	if err != nil {
		return tabular.Wrap("append", collection, err)
	}
	if !exists {
		header = record.Keys()
	} else if !record.HasFields(header) {
		return tabular.Wrap("append", collection, tabular.ErrSchemaMismatch)
	}

	rows = append(rows, record.Row(header))
	if err := s.write(collection, header, rows); err != nil {
		return tabular.Wrap("append", collection, err)
	}

	s.logger.Debug("record appended", zap.String("collection", collection), zap.Int("rows", len(rows)))
	return nil
}

// ReadAll returns every record of collection in file order.
func (s *Store) ReadAll(ctx context.Context, collection string) ([]tabular.Record, error) {
	if err := s.precheck(ctx, collection); err != nil {
		return nil, tabular.Wrap("read", collection, err)
	}

	lock := s.locks.For(collection)
	lock.RLock()
	defer lock.RUnlock()

	header, rows, _, err := s.load(collection)
	if err != nil {
		return nil, tabular.Wrap("read", collection, err)
	}
	return toRecords(header, rows), nil
}

// ReplaceAll overwrites collection with records.
func (s *Store) ReplaceAll(ctx context.Context, collection string, records []tabular.Record) error {
	if err := s.precheck(ctx, collection); err != nil {
		return tabular.Wrap("replace", collection, err)
	}
	header, err := tabular.Header(records)
	if err != nil {
		return tabular.Wrap("replace", collection, err)
	}

	lock := s.locks.For(collection)
	lock.Lock()
	defer lock.Unlock()

	if header == nil {
		// Keep the existing header so the collection stays self-describing.
		existing, _, exists, err := s.load(collection)
		if err != nil {
			return tabular.Wrap("replace", collection, err)
		}
		if !exists {
			return nil
		}
		header = existing
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Row(header))
	}
	if err := s.write(collection, header, rows); err != nil {
		return tabular.Wrap("replace", collection, err)
	}
	return nil
}

// UpdateOne merges patch into the first matching record.
func (s *Store) UpdateOne(ctx context.Context, collection, idField, idValue string, patch tabular.Record) (bool, error) {
	if err := s.precheck(ctx, collection); err != nil {
		return false, tabular.Wrap("update", collection, err)
	}

	lock := s.locks.For(collection)
	lock.Lock()
	defer lock.Unlock()

	header, rows, exists, err := s.load(collection)
	if err != nil {
		return false, tabular.Wrap("update", collection, err)
	}
	if !exists {
		return false, nil
	}

	records := toRecords(header, rows)
	idx := tabular.IndexOf(records, idField, idValue)
	if idx < 0 {
		return false, nil
	}

	merged, err := tabular.ApplyPatch(header, records[idx], patch)
	if err != nil {
		return false, tabular.Wrap("update", collection, err)
	}
	rows[idx] = merged.Row(header)

	if err := s.write(collection, header, rows); err != nil {
		return false, tabular.Wrap("update", collection, err)
	}
	return true, nil
}

// FindOne returns the first record whose idField equals idValue.
func (s *Store) FindOne(ctx context.Context, collection, idField, idValue string) (tabular.Record, bool, error) {
	records, err := s.ReadAll(ctx, collection)
	if err != nil {
		return tabular.Record{}, false, err
	}
	idx := tabular.IndexOf(records, idField, idValue)
	if idx < 0 {
		return tabular.Record{}, false, nil
	}
	return records[idx], true, nil
}

func (s *Store) precheck(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return tabular.ValidateName(collection)
}

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".csv")
}

// load reads the header and data rows. exists is false when the file is
// missing or holds no header yet.
func (s *Store) load(collection string) (header []string, rows [][]string, exists bool, err error) {
	f, err := os.Open(s.path(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err = reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("read header: %w", err)
	}

	rows, err = reader.ReadAll()
	if err != nil {
		return nil, nil, false, fmt.Errorf("read rows: %w", err)
	}
	return header, rows, true, nil
}

func (s *Store) write(collection string, header []string, rows [][]string) (err error) {
	tmp, err := os.CreateTemp(s.dir, "."+collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	writer := csv.NewWriter(tmp)
	if err = writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err = writer.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path(collection)); err != nil {
		return fmt.Errorf("replace %s: %w", s.path(collection), err)
	}
	return nil
}

func toRecords(header []string, rows [][]string) []tabular.Record {
	records := make([]tabular.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, tabular.RecordFromRow(header, row))
	}
	return records
}
