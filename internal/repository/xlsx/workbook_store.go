// Package xlsx stores every collection as one worksheet of a single Excel
// workbook. The workbook is saved to a temp file and renamed into place on
// every mutation.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

const defaultSheet = "Sheet1"

// WorkbookStore implements tabular.Store on an .xlsx file.
type WorkbookStore struct {
	path   string
	mu     sync.RWMutex // one file backs every sheet
	logger *zap.Logger
}

var _ tabular.Store = (*WorkbookStore)(nil)

// NewWorkbookStore returns a store persisting to path. The file is created
// lazily on the first write.
func NewWorkbookStore(path string, logger *zap.Logger) (*WorkbookStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, errors.New("workbook path must not be empty")
	}
	if filepath.Ext(path) != ".xlsx" {
		return nil, fmt.Errorf("workbook path %s must end in .xlsx", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create workbook dir: %w", err)
	}
	return &WorkbookStore{path: path, logger: logger}, nil
}

// Append adds record as the last row of the collection's sheet.
func (s *WorkbookStore) Append(ctx context.Context, collection string, record tabular.Record) error {
	if err := precheck(ctx, collection); err != nil {
		return tabular.Wrap("append", collection, err)
	}
	if record.Len() == 0 {
		return tabular.Wrap("append", collection, tabular.ErrEmptyRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.mutate(collection, func(header []string, records []tabular.Record) ([]string, []tabular.Record, error) {
		if header == nil {
			header = record.Keys()
		} else if !record.HasFields(header) {
			return nil, nil, tabular.ErrSchemaMismatch
		}
		return header, append(records, record), nil
	})
	return tabular.Wrap("append", collection, err)
}

// ReadAll returns all rows of the collection's sheet.
func (s *WorkbookStore) ReadAll(ctx context.Context, collection string) ([]tabular.Record, error) {
	if err := precheck(ctx, collection); err != nil {
		return nil, tabular.Wrap("read", collection, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.open()
	if err != nil {
		return nil, tabular.Wrap("read", collection, err)
	}
	if f == nil {
		return []tabular.Record{}, nil
	}
	defer f.Close()

	_, records, err := readSheet(f, collection)
	if err != nil {
		return nil, tabular.Wrap("read", collection, err)
	}
	return records, nil
}

// ReplaceAll rewrites the collection's sheet with records.
func (s *WorkbookStore) ReplaceAll(ctx context.Context, collection string, records []tabular.Record) error {
	if err := precheck(ctx, collection); err != nil {
		return tabular.Wrap("replace", collection, err)
	}
	newHeader, err := tabular.Header(records)
	if err != nil {
		return tabular.Wrap("replace", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.mutate(collection, func(header []string, _ []tabular.Record) ([]string, []tabular.Record, error) {
		if newHeader != nil {
			header = newHeader
		}
		return header, records, nil
	})
	return tabular.Wrap("replace", collection, err)
}

// UpdateOne merges patch into the first matching row.
func (s *WorkbookStore) UpdateOne(ctx context.Context, collection, idField, idValue string, patch tabular.Record) (bool, error) {
	if err := precheck(ctx, collection); err != nil {
		return false, tabular.Wrap("update", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := false
	err := s.mutate(collection, func(header []string, records []tabular.Record) ([]string, []tabular.Record, error) {
		idx := tabular.IndexOf(records, idField, idValue)
		if idx < 0 {
			return nil, nil, nil
		}
		merged, err := tabular.ApplyPatch(header, records[idx], patch)
		if err != nil {
			return nil, nil, err
		}
		records[idx] = merged
		updated = true
		return header, records, nil
	})
	if err != nil {
		return false, tabular.Wrap("update", collection, err)
	}
	return updated, nil
}

// FindOne returns the first row whose idField equals idValue.
func (s *WorkbookStore) FindOne(ctx context.Context, collection, idField, idValue string) (tabular.Record, bool, error) {
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

type mutation func(header []string, records []tabular.Record) ([]string, []tabular.Record, error)

// mutate loads the sheet, applies fn and saves the workbook atomically. When
// fn returns a nil header nothing is written.
func (s *WorkbookStore) mutate(collection string, fn mutation) error {
	f, err := s.open()
	if err != nil {
		return err
	}
	fresh := f == nil
	if fresh {
		f = excelize.NewFile()
	}
	defer f.Close()

	header, records, err := readSheet(f, collection)
	if err != nil {
		return err
	}
	previousRows, previousCols := len(records), len(header)

	header, records, err = fn(header, records)
	if err != nil || header == nil {
		return err
	}

	if err := ensureSheet(f, collection, fresh); err != nil {
		return err
	}
	if err := writeSheet(f, collection, header, records, previousRows, previousCols); err != nil {
		return err
	}
	return s.save(f)
}

func (s *WorkbookStore) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return f, nil
}

func (s *WorkbookStore) save(f *excelize.File) error {
	dir, base := filepath.Split(s.path)
	tmp, err := os.CreateTemp(dir, "."+base+"-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close workbook: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace workbook: %w", err)
	}
	s.logger.Debug("workbook saved", zap.String("path", s.path))
	return nil
}

func precheck(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return tabular.ValidateName(collection)
}

func readSheet(f *excelize.File, sheet string) ([]string, []tabular.Record, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup sheet: %w", err)
	}
	if idx < 0 {
		return nil, []tabular.Record{}, nil
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, []tabular.Record{}, nil
	}

	header := rows[0]
	records := make([]tabular.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, tabular.RecordFromRow(header, row))
	}
	return header, records, nil
}

func ensureSheet(f *excelize.File, sheet string, fresh bool) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("lookup sheet: %w", err)
	}
	if idx >= 0 {
		return nil
	}
	if fresh {
		// A new workbook ships with an empty default sheet; reuse it.
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("rename default sheet: %w", err)
		}
		return nil
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, records []tabular.Record, previousRows, previousCols int) error {
	// Drop columns a wider previous header left behind, right to left.
	for c := previousCols; c > len(header); c-- {
		name, err := excelize.ColumnNumberToName(c)
		if err != nil {
			return err
		}
		if err := f.RemoveCol(sheet, name); err != nil {
			return fmt.Errorf("remove column %s: %w", name, err)
		}
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, rec := range records {
		if err := setRow(f, sheet, i+2, rec.Row(header)); err != nil {
			return err
		}
	}
	// Drop leftovers from a longer previous version, bottom-up.
	for r := previousRows + 1; r > len(records)+1; r-- {
		if err := f.RemoveRow(sheet, r); err != nil {
			return fmt.Errorf("remove row %d: %w", r, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}
