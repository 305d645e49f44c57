package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"flujo/internal/core"
	"flujo/internal/ledger"
)

func TestMemoryStoreSaveAndRecords(t *testing.T) {
	ctx := context.Background()
	s := New(ledger.Records{Categories: []core.Category{{ID: "1", Name: "1-Ventas"}}})

	stats, err := s.Save(ctx, ledger.Records{
		Categories: []core.Category{{ID: "1", Name: "1-Ventas P1001"}, {ID: "2", Name: "2-Nómina"}},
		Transactions: []core.Transaction{
			{ID: "t1", Date: "2024-01-05", Guide: "1", AmountMN: 100, Type: core.Income},
		},
	})
	if err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if stats.Total() != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	recs, err := s.Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs.Categories) != 2 || recs.Categories[0].Name != "1-Ventas P1001" {
		t.Fatalf("expected upsert in place, got %+v", recs.Categories)
	}
	if len(recs.Transactions) != 1 {
		t.Fatalf("unexpected transactions: %+v", recs.Transactions)
	}

	// returned slices are copies
	recs.Categories[0].Name = "changed"
	again, _ := s.Records(ctx)
	if again.Categories[0].Name != "1-Ventas P1001" {
		t.Fatal("store leaked its internal slice")
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New(ledger.Records{})
	_, err := s.Save(context.Background(), ledger.Records{
		Transactions: []core.Transaction{{ID: "t1", Date: "05/01/2024", Type: core.Income}},
	})
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	var recErr *ledger.RecordError
	if !errors.As(err, &recErr) || recErr.ID != "t1" {
		t.Fatalf("expected RecordError for t1, got %v", err)
	}
	recs, _ := s.Records(context.Background())
	if recs.Len() != 0 {
		t.Fatal("invalid batch must not be stored")
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("missing files should be skipped: %v", err)
	}
	if recs, _ := s.Records(context.Background()); recs.Len() != 0 {
		t.Fatal("expected empty store")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite(CategoriesFile, `[{"id":"13","name":"13-Traspasos"},{"id":"1","name":"1-Ventas"}]`)
	mustWrite(TransactionsFile, `[{"id":"t1","bank":"A","guide":"1","date":"2024-01-05","amountMN":100,"type":"Income"}]`)
	mustWrite(ScheduledFile, `[{"id":"p1","concept":"Renta","amount":-40,"date":"2024-02-01"}]`)

	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	recs, _ := s.Records(context.Background())
	if len(recs.Categories) != 2 || len(recs.Transactions) != 1 || len(recs.Scheduled) != 1 {
		t.Fatalf("unexpected seed: %+v", recs)
	}
	if recs.Catalog().TransferName() != "13-Traspasos" {
		t.Fatalf("unexpected transfer name %q", recs.Catalog().TransferName())
	}

	mustWrite(AccountsFile, `{not json`)
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMemoryStoreBatches(t *testing.T) {
	s := New(ledger.Records{})
	ctx := context.Background()
	for _, id := range []string{"b1", "b2", "b3"} {
		if err := s.RecordBatch(ctx, ledger.Batch{ID: id, Source: "api"}); err != nil {
			t.Fatalf("RecordBatch %s: %v", id, err)
		}
	}
	if err := s.RecordBatch(ctx, ledger.Batch{ID: "b2"}); err == nil {
		t.Fatal("expected duplicate batch error")
	}

	got, err := s.Batches(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "b3" || got[1].ID != "b2" {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped")
	}
}
