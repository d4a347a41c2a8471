package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/cafeledger/internal/config"
	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

// valuesAPI is the slice of the Sheets API the repository relies on.
type valuesAPI interface {
	SheetTitles(ctx context.Context) ([]string, error)
	AddSheet(ctx context.Context, title string) error
	Get(ctx context.Context, sheetRange string) ([][]interface{}, error)
	Append(ctx context.Context, sheetRange string, rows [][]interface{}) error
	Update(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

// GoogleSheetRepository implements tabular.Store with one sheet per collection
// inside a single spreadsheet. Row 1 of every sheet holds the header.
type GoogleSheetRepository struct {
	api    valuesAPI
	locks  *tabular.Locks
	logger *zap.Logger
}

var _ tabular.Store = (*GoogleSheetRepository)(nil)

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return newRepository(&serviceAPI{service: service, spreadsheetID: cfg.SpreadsheetID}, logger), nil
}

func newRepository(api valuesAPI, logger *zap.Logger) *GoogleSheetRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleSheetRepository{api: api, locks: tabular.NewLocks(), logger: logger}
}

// Append appends record to the collection sheet, creating it with a header row
// when missing.
func (r *GoogleSheetRepository) Append(ctx context.Context, collection string, record tabular.Record) error {
	if err := tabular.ValidateName(collection); err != nil {
		return tabular.Wrap("append", collection, err)
	}
	if record.Len() == 0 {
		return tabular.Wrap("append", collection, tabular.ErrEmptyRecord)
	}

	lock := r.locks.For(collection)
	lock.Lock()
	defer lock.Unlock()

	header, _, _, exists, err := r.load(ctx, collection)
	if err != nil {
		return tabular.Wrap("append", collection, err)
	}

	if header == nil {
		header = record.Keys()
		if !exists {
			if err := r.api.AddSheet(ctx, collection); err != nil {
				return tabular.Wrap("append", collection, fmt.Errorf("add sheet: %w", err))
			}
		}
		if err := r.api.Update(ctx, collection+"!A1", [][]interface{}{cells(header)}); err != nil {
			return tabular.Wrap("append", collection, fmt.Errorf("write header: %w", err))
		}
	} else if !record.HasFields(header) {
		return tabular.Wrap("append", collection, tabular.ErrSchemaMismatch)
	}

	if err := r.api.Append(ctx, collection+"!A1", [][]interface{}{cells(record.Row(header))}); err != nil {
		return tabular.Wrap("append", collection, fmt.Errorf("append row: %w", err))
	}

	r.logger.Debug("row appended to sheet", zap.String("sheet", collection))
	return nil
}

// ReadAll fetches every data row of the collection sheet.
func (r *GoogleSheetRepository) ReadAll(ctx context.Context, collection string) ([]tabular.Record, error) {
	if err := tabular.ValidateName(collection); err != nil {
		return nil, tabular.Wrap("read", collection, err)
	}

	lock := r.locks.For(collection)
	lock.RLock()
	defer lock.RUnlock()

	_, records, _, _, err := r.load(ctx, collection)
	if err != nil {
		return nil, tabular.Wrap("read", collection, err)
	}
	return records, nil
}

// ReplaceAll rewrites the sheet in a single values update. Rows and columns
// left over from a larger previous version are blanked in the same call.
func (r *GoogleSheetRepository) ReplaceAll(ctx context.Context, collection string, records []tabular.Record) error {
	if err := tabular.ValidateName(collection); err != nil {
		return tabular.Wrap("replace", collection, err)
	}
	newHeader, err := tabular.Header(records)
	if err != nil {
		return tabular.Wrap("replace", collection, err)
	}

	lock := r.locks.For(collection)
	lock.Lock()
	defer lock.Unlock()

	header, _, rowNums, exists, err := r.load(ctx, collection)
	if err != nil {
		return tabular.Wrap("replace", collection, err)
	}
	width := len(header)
	if newHeader != nil {
		header = newHeader
	}
	if header == nil {
		return nil
	}
	if !exists {
		if err := r.api.AddSheet(ctx, collection); err != nil {
			return tabular.Wrap("replace", collection, fmt.Errorf("add sheet: %w", err))
		}
	}

	lastRow := 1
	if n := len(rowNums); n > 0 {
		lastRow = rowNums[n-1]
	}
	if len(header) > width {
		width = len(header)
	}
	rows := make([][]interface{}, 0, lastRow)
	rows = append(rows, padded(header, width))
	for _, rec := range records {
		rows = append(rows, padded(rec.Row(header), width))
	}
	for len(rows) < lastRow {
		rows = append(rows, cells(make([]string, width)))
	}

	if err := r.api.Update(ctx, collection+"!A1", rows); err != nil {
		return tabular.Wrap("replace", collection, fmt.Errorf("update range: %w", err))
	}
	return nil
}

// UpdateOne rewrites only the row of the first matching record.
func (r *GoogleSheetRepository) UpdateOne(ctx context.Context, collection, idField, idValue string, patch tabular.Record) (bool, error) {
	if err := tabular.ValidateName(collection); err != nil {
		return false, tabular.Wrap("update", collection, err)
	}

	lock := r.locks.For(collection)
	lock.Lock()
	defer lock.Unlock()

	header, records, rowNums, _, err := r.load(ctx, collection)
	if err != nil {
		return false, tabular.Wrap("update", collection, err)
	}
	idx := tabular.IndexOf(records, idField, idValue)
	if idx < 0 {
		return false, nil
	}

	merged, err := tabular.ApplyPatch(header, records[idx], patch)
	if err != nil {
		return false, tabular.Wrap("update", collection, err)
	}

	target := collection + "!A" + strconv.Itoa(rowNums[idx])
	if err := r.api.Update(ctx, target, [][]interface{}{cells(merged.Row(header))}); err != nil {
		return false, tabular.Wrap("update", collection, fmt.Errorf("update row: %w", err))
	}
	return true, nil
}

// FindOne returns the first record whose idField equals idValue.
func (r *GoogleSheetRepository) FindOne(ctx context.Context, collection, idField, idValue string) (tabular.Record, bool, error) {
	records, err := r.ReadAll(ctx, collection)
	if err != nil {
		return tabular.Record{}, false, err
	}
	idx := tabular.IndexOf(records, idField, idValue)
	if idx < 0 {
		return tabular.Record{}, false, nil
	}
	return records[idx], true, nil
}

// load returns the header and records of a sheet along with the 1-based sheet
// row of every record. exists reports whether the sheet itself is present;
// header is nil for a missing or blank sheet. Blank rows are skipped.
func (r *GoogleSheetRepository) load(ctx context.Context, collection string) ([]string, []tabular.Record, []int, bool, error) {
	titles, err := r.api.SheetTitles(ctx)
	if err != nil {
		return nil, nil, nil, false, fmt.Errorf("list sheets: %w", err)
	}
	exists := false
	for _, title := range titles {
		if title == collection {
			exists = true
			break
		}
	}
	if !exists {
		return nil, []tabular.Record{}, nil, false, nil
	}

	values, err := r.api.Get(ctx, collection)
	if err != nil {
		return nil, nil, nil, true, fmt.Errorf("read range %s: %w", collection, err)
	}
	if len(values) == 0 {
		return nil, []tabular.Record{}, nil, true, nil
	}

	header := texts(values[0])
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	records := make([]tabular.Record, 0, len(values)-1)
	rowNums := make([]int, 0, len(values)-1)
	for i, raw := range values[1:] {
		row := texts(raw)
		if blank(row) {
			continue
		}
		records = append(records, tabular.RecordFromRow(header, row))
		rowNums = append(rowNums, i+2)
	}
	return header, records, rowNums, true, nil
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// padded extends values with blank cells up to width.
func padded(values []string, width int) []interface{} {
	out := cells(values)
	for len(out) < width {
		out = append(out, "")
	}
	return out
}

func texts(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// serviceAPI adapts *sheetsapi.Service to valuesAPI. Values are written RAW so
// that numbers keep the exact textual form the ledger stored.
type serviceAPI struct {
	service       *sheetsapi.Service
	spreadsheetID string
}

func (a *serviceAPI) SheetTitles(ctx context.Context) ([]string, error) {
	resp, err := a.service.Spreadsheets.Get(a.spreadsheetID).
		Fields(googleapi.Field("sheets.properties.title")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet.Properties != nil {
			titles = append(titles, sheet.Properties.Title)
		}
	}
	return titles, nil
}

func (a *serviceAPI) AddSheet(ctx context.Context, title string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}
	_, err := a.service.Spreadsheets.BatchUpdate(a.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (a *serviceAPI) Get(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	resp, err := a.service.Spreadsheets.Values.Get(a.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (a *serviceAPI) Append(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return errors.New("sheetRange must not be empty")
	}
	_, err := a.service.Spreadsheets.Values.Append(a.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (a *serviceAPI) Update(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return errors.New("sheetRange must not be empty")
	}
	_, err := a.service.Spreadsheets.Values.Update(a.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
