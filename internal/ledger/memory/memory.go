package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"flujo/internal/core"
	"flujo/internal/ledger"
)

// Seed file names read by NewFromFiles.
const (
	CategoriesFile   = "categories.json"
	AccountsFile     = "accounts.json"
	TransactionsFile = "transactions.json"
	ScheduledFile    = "scheduled_payments.json"
)

type Store struct {
	mu      sync.RWMutex
	recs    ledger.Records
	batches []ledger.Batch
}

func New(seed ledger.Records) *Store {
	s := &Store{}
	// seed data is trusted; upsert keeps the last duplicate
	s.upsert(seed)
	return s
}

// NewFromFiles seeds a store from the JSON files in base. Missing files are
// skipped; malformed ones are an error.
func NewFromFiles(base string) (*Store, error) {
	var seed ledger.Records
	if err := readJSON(filepath.Join(base, CategoriesFile), &seed.Categories); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(base, AccountsFile), &seed.Accounts); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(base, TransactionsFile), &seed.Transactions); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(base, ScheduledFile), &seed.Scheduled); err != nil {
		return nil, err
	}
	return New(seed), nil
}

// Records returns a copy of the stored records.
func (s *Store) Records(_ context.Context) (ledger.Records, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.Records{
		Categories:   append([]core.Category(nil), s.recs.Categories...),
		Accounts:     append([]core.Account(nil), s.recs.Accounts...),
		Transactions: append([]core.Transaction(nil), s.recs.Transactions...),
		Scheduled:    append([]core.ScheduledPayment(nil), s.recs.Scheduled...),
	}, nil
}

// Save validates and upserts r by id.
func (s *Store) Save(_ context.Context, r ledger.Records) (ledger.Stats, error) {
	if err := r.Validate(); err != nil {
		return ledger.Stats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsert(r), nil
}

// RecordBatch appends b to the import audit trail.
func (s *Store) RecordBatch(_ context.Context, b ledger.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.batches {
		if existing.ID == b.ID {
			return fmt.Errorf("record import batch %s: duplicate id", b.ID)
		}
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	s.batches = append(s.batches, b)
	return nil
}

// Batches returns up to limit batches, newest first.
func (s *Store) Batches(_ context.Context, limit int) ([]ledger.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]ledger.Batch, 0, min(limit, len(s.batches)))
	for i := len(s.batches) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.batches[i])
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) upsert(r ledger.Records) ledger.Stats {
	s.recs.Categories = upsertByID(s.recs.Categories, r.Categories, func(c core.Category) string { return c.ID })
	s.recs.Accounts = upsertByID(s.recs.Accounts, r.Accounts, func(a core.Account) string { return a.ID })
	s.recs.Transactions = upsertByID(s.recs.Transactions, r.Transactions, func(t core.Transaction) string { return t.ID })
	s.recs.Scheduled = upsertByID(s.recs.Scheduled, r.Scheduled, func(p core.ScheduledPayment) string { return p.ID })
	return ledger.Stats{
		Categories:   len(r.Categories),
		Accounts:     len(r.Accounts),
		Transactions: len(r.Transactions),
		Scheduled:    len(r.Scheduled),
	}
}

// upsertByID replaces records with a known id in place and appends the rest.
func upsertByID[T any](dst, src []T, id func(T) string) []T {
	pos := make(map[string]int, len(dst))
	for i, v := range dst {
		pos[id(v)] = i
	}
	for _, v := range src {
		if i, ok := pos[id(v)]; ok {
			dst[i] = v
			continue
		}
		pos[id(v)] = len(dst)
		dst = append(dst, v)
	}
	return dst
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
