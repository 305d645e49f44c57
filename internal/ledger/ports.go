// Package ledger defines the persistence ports of the flow engine.
package ledger

import (
	"context"
	"time"

	"flujo/internal/core"
	"flujo/internal/flow"
)

// Records is a snapshot of every stored record.
type Records struct {
	Categories   []core.Category         `json:"categories,omitempty"`
	Accounts     []core.Account          `json:"accounts,omitempty"`
	Transactions []core.Transaction      `json:"transactions,omitempty"`
	Scheduled    []core.ScheduledPayment `json:"scheduledPayments,omitempty"`
}

// Stats counts records written by a Save call.
type Stats struct {
	Categories   int `json:"categories"`
	Accounts     int `json:"accounts"`
	Transactions int `json:"transactions"`
	Scheduled    int `json:"scheduledPayments"`
}

func (s Stats) Total() int {
	return s.Categories + s.Accounts + s.Transactions + s.Scheduled
}

// Batch is the audit entry of one import.
type Batch struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Stats     Stats     `json:"stats"`
	CreatedAt time.Time `json:"createdAt"`
}

// Len is the number of records in r.
func (r Records) Len() int {
	return len(r.Categories) + len(r.Accounts) + len(r.Transactions) + len(r.Scheduled)
}

// Catalog builds the read-only id lookups of r.
func (r Records) Catalog() *core.Catalog {
	return core.NewCatalog(r.Categories, r.Accounts)
}

// Sources adapts r to the flow engine inputs.
func (r Records) Sources() flow.Sources {
	return flow.Sources{
		Transactions: r.Transactions,
		Scheduled:    r.Scheduled,
		Catalog:      r.Catalog(),
	}
}

// Validate checks every record and returns the first problem found.
func (r Records) Validate() error {
	for _, c := range r.Categories {
		if err := c.Validate(); err != nil {
			return &RecordError{Kind: "category", ID: c.ID, Err: err}
		}
	}
	for _, a := range r.Accounts {
		if err := a.Validate(); err != nil {
			return &RecordError{Kind: "account", ID: a.ID, Err: err}
		}
	}
	for _, t := range r.Transactions {
		if t.ID == "" {
			return &RecordError{Kind: "transaction", Err: core.ErrEmptyID}
		}
		if err := t.Validate(); err != nil {
			return &RecordError{Kind: "transaction", ID: t.ID, Err: err}
		}
	}
	for _, p := range r.Scheduled {
		if p.ID == "" {
			return &RecordError{Kind: "scheduled payment", Err: core.ErrEmptyID}
		}
		if err := p.Validate(); err != nil {
			return &RecordError{Kind: "scheduled payment", ID: p.ID, Err: err}
		}
	}
	return nil
}

// RecordError reports an invalid record.
type RecordError struct {
	Kind string
	ID   string
	Err  error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return e.Kind + ": " + e.Err.Error()
	}
	return e.Kind + " " + e.ID + ": " + e.Err.Error()
}

func (e *RecordError) Unwrap() error { return e.Err }

// Ports for outbound adapters.
type (
	RecordReader interface {
		Records(ctx context.Context) (Records, error)
	}

	// RecordWriter upserts records by id.
	RecordWriter interface {
		Save(ctx context.Context, r Records) (Stats, error)
	}

	// BatchRecorder keeps an audit trail of imports.
	BatchRecorder interface {
		RecordBatch(ctx context.Context, b Batch) error
		Batches(ctx context.Context, limit int) ([]Batch, error)
	}

	// TableExporter publishes an export table under name and returns a
	// reference to where it was written.
	TableExporter interface {
		Export(ctx context.Context, name string, t flow.ExportTable) (ref string, err error)
	}
)
