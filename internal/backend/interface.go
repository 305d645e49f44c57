package backend

import (
	"context"

	"flujo/internal/amqp"
	"flujo/internal/ledger"
	"flujo/internal/services"
)

// Backend represents a unified record store
type Backend interface {
	ledger.RecordReader
	ledger.RecordWriter
	ledger.BatchRecorder
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance, its optional companions and
// a cleanup function releasing all of them
type BackendResult struct {
	Backend Backend
	// Queue is nil unless AMQP is configured for a shared store.
	Queue *amqp.Client
	// Exporter is nil unless a spreadsheet is configured.
	Exporter ledger.TableExporter
	Cleanup  CleanupFunc
}

// Publisher returns the import queue as a publisher, or nil without one.
func (r *BackendResult) Publisher() services.Publisher {
	if r.Queue == nil {
		return nil
	}
	return r.Queue
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	DataDirectory string

	// Import queue, only used with a shared store
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	AMQPPrefetch int

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Shared reports whether separate processes see the same records, which is
// what makes queueing imports for the worker meaningful.
func (bt BackendType) Shared() bool {
	return bt == SQLiteBackend
}
