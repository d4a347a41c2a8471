package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
	"github.com/mamadbah2/cafeledger/internal/repository/tabular/tabulartest"
)

func TestWorkbookStoreContract(t *testing.T) {
	tabulartest.Run(t, func(t *testing.T) tabular.Store {
		store, err := NewWorkbookStore(filepath.Join(t.TempDir(), "ledger.xlsx"), nil)
		if err != nil {
			t.Fatalf("NewWorkbookStore: %v", err)
		}
		return store
	})
}

func TestNewWorkbookStoreRejectsExtension(t *testing.T) {
	if _, err := NewWorkbookStore(filepath.Join(t.TempDir(), "ledger.csv"), nil); err == nil {
		t.Fatal("expected error for non-xlsx path")
	}
}

func TestOneSheetPerCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	store, err := NewWorkbookStore(path, nil)
	if err != nil {
		t.Fatalf("NewWorkbookStore: %v", err)
	}

	ctx := context.Background()
	for _, collection := range []string{"purchases", "sales"} {
		rec := tabular.NewRecord()
		rec.Set("id", collection+"-1")
		rec.Set("timestamp", "2025-03-01 08:00:00")
		if err := store.Append(ctx, collection, rec); err != nil {
			t.Fatalf("Append %s: %v", collection, err)
		}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "purchases" || sheets[1] != "sales" {
		t.Fatalf("sheets: got %v, want [purchases sales]", sheets)
	}

	rows, err := f.GetRows("sales")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "id" || rows[1][0] != "sales-1" {
		t.Fatalf("sales rows: %v", rows)
	}
}
