// Package tabulartest holds the behaviour every tabular.Store backend must
// share. Backends call Run from their own tests.
package tabulartest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) tabular.Store

// Run executes the shared contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("ReadAllMissingCollection", func(t *testing.T) {
		store := newStore(t)
		records, err := store.ReadAll(context.Background(), "nothing_here")
		if err != nil {
			t.Fatalf("ReadAll: unexpected error %v", err)
		}
		if len(records) != 0 {
			t.Fatalf("ReadAll: got %d records, want 0", len(records))
		}
	})

	t.Run("AppendReadAllRoundTrip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		written := []tabular.Record{
			row("a1", "2025-03-01 08:00:00", "Finca A", "100"),
			row("a2", "2025-03-01 09:30:00", "Finca B, Sector 2", "8.50"),
			row("a3", "2025-03-02 10:00:00", `Say "hi"`, ""),
		}
		for _, rec := range written {
			if err := store.Append(ctx, "purchases", rec); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}

		got, err := store.ReadAll(ctx, "purchases")
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if len(got) != len(written) {
			t.Fatalf("ReadAll: got %d records, want %d", len(got), len(written))
		}
		for i := range written {
			if !got[i].Equal(written[i]) {
				t.Errorf("record %d: got %v, want %v", i, got[i], written[i])
			}
		}
		if keys := got[0].Keys(); fmt.Sprint(keys) != fmt.Sprint(written[0].Keys()) {
			t.Errorf("column order: got %v, want %v", keys, written[0].Keys())
		}
	})

	t.Run("AppendSchemaMismatch", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.Append(ctx, "expenses", row("e1", "2025-03-01 08:00:00", "fuel", "20")); err != nil {
			t.Fatalf("Append: %v", err)
		}
		odd := tabular.NewRecord()
		odd.Set("id", "e2")
		odd.Set("other", "x")
		err := store.Append(ctx, "expenses", odd)
		assertStorageError(t, err, tabular.ErrSchemaMismatch)
	})

	t.Run("InvalidCollectionName", func(t *testing.T) {
		store := newStore(t)
		err := store.Append(context.Background(), "../escape", row("x", "", "", ""))
		assertStorageError(t, err, tabular.ErrInvalidCollection)
	})

	t.Run("UpdateOneFirstMatchOnly", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		for _, rec := range []tabular.Record{
			row("dup", "2025-03-01 08:00:00", "first", "1"),
			row("dup", "2025-03-01 08:00:00", "second", "2"),
		} {
			if err := store.Append(ctx, "advances", rec); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}

		patch := tabular.NewRecord()
		patch.Set("amount", "99")
		ok, err := store.UpdateOne(ctx, "advances", "id", "dup", patch)
		if err != nil || !ok {
			t.Fatalf("UpdateOne: ok=%v err=%v", ok, err)
		}

		got, err := store.ReadAll(ctx, "advances")
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if got[0].Get("amount") != "99" || got[1].Get("amount") != "2" {
			t.Fatalf("UpdateOne touched wrong rows: %v", got)
		}
		if got[0].Get("name") != "first" {
			t.Fatalf("UpdateOne dropped untouched field: %v", got[0])
		}
	})

	t.Run("UpdateOneNoMatch", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		patch := tabular.NewRecord()
		patch.Set("amount", "1")

		ok, err := store.UpdateOne(ctx, "orders", "id", "missing", patch)
		if err != nil || ok {
			t.Fatalf("UpdateOne on missing collection: ok=%v err=%v", ok, err)
		}

		if err := store.Append(ctx, "orders", row("o1", "2025-03-01 08:00:00", "x", "1")); err != nil {
			t.Fatalf("Append: %v", err)
		}
		ok, err = store.UpdateOne(ctx, "orders", "id", "missing", patch)
		if err != nil || ok {
			t.Fatalf("UpdateOne on missing id: ok=%v err=%v", ok, err)
		}
	})

	t.Run("UpdateOneUnknownField", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.Append(ctx, "orders", row("o1", "2025-03-01 08:00:00", "x", "1")); err != nil {
			t.Fatalf("Append: %v", err)
		}
		patch := tabular.NewRecord()
		patch.Set("bogus", "1")
		_, err := store.UpdateOne(ctx, "orders", "id", "o1", patch)
		assertStorageError(t, err, tabular.ErrSchemaMismatch)
	})

	t.Run("FindOne", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		want := row("s1", "2025-03-01 08:00:00", "Cliente", "3")
		if err := store.Append(ctx, "sales", want); err != nil {
			t.Fatalf("Append: %v", err)
		}

		got, ok, err := store.FindOne(ctx, "sales", "id", "s1")
		if err != nil || !ok {
			t.Fatalf("FindOne: ok=%v err=%v", ok, err)
		}
		if !got.Equal(want) {
			t.Fatalf("FindOne: got %v, want %v", got, want)
		}

		_, ok, err = store.FindOne(ctx, "sales", "id", "nope")
		if err != nil || ok {
			t.Fatalf("FindOne missing: ok=%v err=%v", ok, err)
		}
	})

	t.Run("ReplaceAll", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			rec := row(fmt.Sprintf("p%d", i), "2025-03-01 08:00:00", "x", "1")
			if err := store.Append(ctx, "processing", rec); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}

		replacement := []tabular.Record{row("p9", "2025-04-01 08:00:00", "y", "7")}
		if err := store.ReplaceAll(ctx, "processing", replacement); err != nil {
			t.Fatalf("ReplaceAll: %v", err)
		}

		got, err := store.ReadAll(ctx, "processing")
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if len(got) != 1 || !got[0].Equal(replacement[0]) {
			t.Fatalf("ReplaceAll: got %v, want %v", got, replacement)
		}
	})

	t.Run("ReplaceAllNarrowerHeader", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		wide := tabular.NewRecord()
		wide.Set("id", "1")
		wide.Set("a", "x")
		wide.Set("b", "y")
		if err := store.Append(ctx, "processing", wide); err != nil {
			t.Fatalf("Append: %v", err)
		}

		narrow := tabular.NewRecord()
		narrow.Set("id", "1")
		narrow.Set("a", "z")
		if err := store.ReplaceAll(ctx, "processing", []tabular.Record{narrow}); err != nil {
			t.Fatalf("ReplaceAll: %v", err)
		}

		got, err := store.ReadAll(ctx, "processing")
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("ReadAll: got %d records, want 1", len(got))
		}
		if keys := fmt.Sprint(got[0].Keys()); keys != "[id a]" {
			t.Fatalf("fields after replace: got %s, want [id a]", keys)
		}
		if got[0].Get("a") != "z" {
			t.Fatalf("ReplaceAll: got %v, want a=z", got[0])
		}
	})

	t.Run("ReplaceAllNonUniform", func(t *testing.T) {
		store := newStore(t)
		odd := tabular.NewRecord()
		odd.Set("id", "2")
		err := store.ReplaceAll(context.Background(), "processing", []tabular.Record{
			row("1", "2025-03-01 08:00:00", "x", "1"),
			odd,
		})
		assertStorageError(t, err, tabular.ErrSchemaMismatch)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := store.Append(ctx, "purchases", row("x", "", "", ""))
		assertStorageError(t, err, context.Canceled)
	})
}

func row(id, ts, name, amount string) tabular.Record {
	rec := tabular.NewRecord()
	rec.Set("id", id)
	rec.Set("timestamp", ts)
	rec.Set("name", name)
	rec.Set("amount", amount)
	return rec
}

func assertStorageError(t *testing.T, err error, target error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error wrapping %v, got nil", target)
	}
	var se *tabular.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *tabular.StorageError, got %T: %v", err, err)
	}
	if !errors.Is(err, target) {
		t.Fatalf("expected error wrapping %v, got %v", target, err)
	}
}
