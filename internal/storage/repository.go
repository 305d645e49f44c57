package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"flujo/internal/core"
	"flujo/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Records implements ledger.RecordReader
func (r *SQLiteRepository) Records(ctx context.Context) (ledger.Records, error) {
	var (
		recs ledger.Records
		err  error
	)
	if recs.Categories, err = r.listCategories(ctx); err != nil {
		return recs, err
	}
	if recs.Accounts, err = r.listAccounts(ctx); err != nil {
		return recs, err
	}
	if recs.Transactions, err = r.listTransactions(ctx); err != nil {
		return recs, err
	}
	if recs.Scheduled, err = r.listScheduled(ctx); err != nil {
		return recs, err
	}
	return recs, nil
}

// Save implements ledger.RecordWriter. The whole batch is written in one
// transaction.
func (r *SQLiteRepository) Save(ctx context.Context, recs ledger.Records) (ledger.Stats, error) {
	if err := recs.Validate(); err != nil {
		return ledger.Stats{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Stats{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range recs.Categories {
		if _, err := tx.ExecContext(ctx, upsertCategory, c.ID, c.Name, boolToInt(c.InactiveForForecast)); err != nil {
			return ledger.Stats{}, fmt.Errorf("upsert category %s: %w", c.ID, err)
		}
	}
	for _, a := range recs.Accounts {
		if _, err := tx.ExecContext(ctx, upsertAccount, a.ID, a.Name); err != nil {
			return ledger.Stats{}, fmt.Errorf("upsert account %s: %w", a.ID, err)
		}
	}
	for _, t := range recs.Transactions {
		if _, err := tx.ExecContext(ctx, upsertTransaction,
			t.ID, t.Bank, t.Guide, t.Date, t.Description,
			core.AmountToText(t.AmountMN), core.AmountToText(t.AmountME),
			string(t.Type), boolToInt(t.Assigned),
		); err != nil {
			return ledger.Stats{}, fmt.Errorf("upsert transaction %s: %w", t.ID, err)
		}
	}
	for _, p := range recs.Scheduled {
		if _, err := tx.ExecContext(ctx, upsertScheduledPayment,
			p.ID, p.Responsible, p.Supplier, p.Concept,
			core.AmountToText(p.AmountME), core.AmountToText(p.ExchangeRate), core.AmountToText(p.Amount),
			p.Guide, p.Date,
		); err != nil {
			return ledger.Stats{}, fmt.Errorf("upsert scheduled payment %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ledger.Stats{}, fmt.Errorf("commit records: %w", err)
	}

	stats := ledger.Stats{
		Categories:   len(recs.Categories),
		Accounts:     len(recs.Accounts),
		Transactions: len(recs.Transactions),
		Scheduled:    len(recs.Scheduled),
	}
	slog.InfoContext(ctx, "Records saved to SQLite",
		"categories", stats.Categories,
		"accounts", stats.Accounts,
		"transactions", stats.Transactions,
		"scheduled_payments", stats.Scheduled)

	return stats, nil
}

// RecordBatch implements ledger.BatchRecorder
func (r *SQLiteRepository) RecordBatch(ctx context.Context, b ledger.Batch) error {
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertBatch,
		b.ID, b.Source, b.Stats.Categories, b.Stats.Accounts, b.Stats.Transactions, b.Stats.Scheduled,
		created.UTC())
	if err != nil {
		return fmt.Errorf("record import batch %s: %w", b.ID, err)
	}
	return nil
}

// Batches implements ledger.BatchRecorder, newest first.
func (r *SQLiteRepository) Batches(ctx context.Context, limit int) ([]ledger.Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, listBatches, limit)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	defer rows.Close()

	var out []ledger.Batch
	for rows.Next() {
		var b ledger.Batch
		if err := rows.Scan(&b.ID, &b.Source, &b.Stats.Categories, &b.Stats.Accounts,
			&b.Stats.Transactions, &b.Stats.Scheduled, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c        core.Category
			inactive int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &inactive); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.InactiveForForecast = inactive != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t           core.Transaction
			mn, me, typ string
			assigned    int64
		)
		if err := rows.Scan(&t.ID, &t.Bank, &t.Guide, &t.Date, &t.Description, &mn, &me, &typ, &assigned); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.AmountMN, err = core.AmountFromText(mn); err != nil {
			return nil, fmt.Errorf("transaction %s amount_mn: %w", t.ID, err)
		}
		if t.AmountME, err = core.AmountFromText(me); err != nil {
			return nil, fmt.Errorf("transaction %s amount_me: %w", t.ID, err)
		}
		t.Type = core.TransactionType(typ)
		t.Assigned = assigned != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listScheduled(ctx context.Context) ([]core.ScheduledPayment, error) {
	rows, err := r.db.QueryContext(ctx, listScheduledPayments)
	if err != nil {
		return nil, fmt.Errorf("list scheduled payments: %w", err)
	}
	defer rows.Close()

	var out []core.ScheduledPayment
	for rows.Next() {
		var (
			p                core.ScheduledPayment
			me, rate, amount string
		)
		if err := rows.Scan(&p.ID, &p.Responsible, &p.Supplier, &p.Concept, &me, &rate, &amount, &p.Guide, &p.Date); err != nil {
			return nil, fmt.Errorf("scan scheduled payment: %w", err)
		}
		if p.AmountME, err = core.AmountFromText(me); err != nil {
			return nil, fmt.Errorf("scheduled payment %s amount_me: %w", p.ID, err)
		}
		if p.ExchangeRate, err = core.AmountFromText(rate); err != nil {
			return nil, fmt.Errorf("scheduled payment %s exchange_rate: %w", p.ID, err)
		}
		if p.Amount, err = core.AmountFromText(amount); err != nil {
			return nil, fmt.Errorf("scheduled payment %s amount: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
