package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
	"github.com/mamadbah2/cafeledger/internal/repository/tabular/tabulartest"
)

func TestStoreContract(t *testing.T) {
	tabulartest.Run(t, func(t *testing.T) tabular.Store {
		store, err := New(t.TempDir(), nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return store
	})
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, id := range []string{"1", "2"} {
		rec := tabular.NewRecord()
		rec.Set("id", id)
		rec.Set("timestamp", "2025-03-01 08:00:00")
		if err := store.Append(context.Background(), "expenses", rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "expenses.csv"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "id,timestamp\n1,2025-03-01 08:00:00\n2,2025-03-01 08:00:00\n"
	if string(raw) != want {
		t.Fatalf("file contents:\n%s\nwant:\n%s", raw, want)
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := tabular.NewRecord()
	rec.Set("id", "1")
	if err := store.Append(context.Background(), "orders", rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestCorruptFileIsStorageError(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sales.csv"), []byte("id,total\n1,2,3\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = store.ReadAll(context.Background(), "sales")
	if err == nil {
		t.Fatal("expected error for ragged row")
	}
	if _, ok := err.(*tabular.StorageError); !ok {
		t.Fatalf("expected *tabular.StorageError, got %T", err)
	}
}
