package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flujo/internal/amqp"
	"flujo/internal/core"
	"flujo/internal/ledger"
	ledgermem "flujo/internal/ledger/memory"
)

type fakePublisher struct {
	msgs []*amqp.ImportMessage
	err  error
}

func (p *fakePublisher) PublishImport(_ context.Context, msg *amqp.ImportMessage) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func newImportService(store *ledgermem.Store, pub Publisher) *ImportService {
	s := NewImportService(store, store, store, pub, nil)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func TestImportServiceSubmitStoresDirectly(t *testing.T) {
	store := ledgermem.New(ledger.Records{Categories: []core.Category{
		{ID: "1", Name: "1-Ventas P1001"},
		{ID: "2", Name: "2-Nómina"},
	}})
	s := newImportService(store, nil)
	ctx := context.Background()

	res, err := s.Submit(ctx, "api", ledger.Records{
		Transactions: []core.Transaction{
			{Guide: "nomina", Date: "2024-01-15", AmountMN: -500, Type: core.Expense},
			{ID: "t2", Guide: "1", Date: "2024-01-16", AmountMN: 900, Type: core.Income},
			{ID: "t3", Guide: "Desconocida", Date: "2024-01-17", AmountMN: 10, Type: core.Income},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", res.BatchID)
	assert.False(t, res.Queued)
	assert.Equal(t, 3, res.Stats.Transactions)

	recs, err := store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, recs.Transactions, 3)
	assert.Equal(t, "id-2", recs.Transactions[0].ID, "missing ids are generated")
	assert.Equal(t, "2", recs.Transactions[0].Guide, "category names resolve to ids")
	assert.Equal(t, "1", recs.Transactions[1].Guide)
	assert.Equal(t, "Desconocida", recs.Transactions[2].Guide, "unknown guides are kept")

	batches, err := s.Batches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "id-1", batches[0].ID)
	assert.Equal(t, "api", batches[0].Source)
	assert.Equal(t, 3, batches[0].Stats.Transactions)
}

func TestImportServiceResolvesAgainstIncomingCategories(t *testing.T) {
	store := ledgermem.New(ledger.Records{})
	s := newImportService(store, nil)

	_, err := s.Submit(context.Background(), "cli", ledger.Records{
		Categories: []core.Category{{ID: "7", Name: "7-Papelería"}},
		Scheduled:  []core.ScheduledPayment{{ID: "p1", Guide: "papeleria", Amount: -20, Date: "2024-02-01"}},
	})
	require.NoError(t, err)

	recs, _ := store.Records(context.Background())
	require.Len(t, recs.Scheduled, 1)
	assert.Equal(t, "7", recs.Scheduled[0].Guide)
}

func TestImportServiceRejectsInvalid(t *testing.T) {
	store := ledgermem.New(ledger.Records{})
	s := newImportService(store, nil)
	ctx := context.Background()

	_, err := s.Submit(ctx, "api", ledger.Records{})
	assert.ErrorIs(t, err, ErrEmptyImport)
	assert.True(t, IsValidationError(err))

	_, err = s.Submit(ctx, "api", ledger.Records{
		Transactions: []core.Transaction{{ID: "t1", Date: "15/01/2024", Type: core.Income}},
	})
	var recErr *ledger.RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "t1", recErr.ID)
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	recs, _ := store.Records(ctx)
	assert.Zero(t, recs.Len())
}

func TestImportServiceSubmitQueues(t *testing.T) {
	store := ledgermem.New(ledger.Records{})
	pub := &fakePublisher{}
	s := newImportService(store, pub)

	res, err := s.Submit(context.Background(), "api", ledger.Records{
		Transactions: []core.Transaction{{Date: "2024-01-15", AmountMN: 5, Type: core.Income}},
	})
	require.NoError(t, err)

	assert.True(t, res.Queued)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, res.BatchID, pub.msgs[0].BatchID)
	assert.Equal(t, "id-2", pub.msgs[0].Transactions[0].ID, "ids are assigned before queueing")

	recs, _ := store.Records(context.Background())
	assert.Zero(t, recs.Len(), "queued batches are stored by the worker")
}

func TestImportServiceSubmitFallsBackWhenQueueFails(t *testing.T) {
	store := ledgermem.New(ledger.Records{})
	s := newImportService(store, &fakePublisher{err: amqp.ErrCircuitOpen})

	res, err := s.Submit(context.Background(), "api", ledger.Records{
		Accounts: []core.Account{{ID: "A", Name: "Banorte"}},
	})
	require.NoError(t, err)

	assert.False(t, res.Queued)
	assert.Equal(t, 1, res.Stats.Accounts)
}

func TestImportServiceApply(t *testing.T) {
	store := ledgermem.New(ledger.Records{Categories: []core.Category{{ID: "2", Name: "2-Nómina"}}})
	s := newImportService(store, &fakePublisher{})
	ctx := context.Background()

	stats, err := s.Apply(ctx, "batch-9", "queue", ledger.Records{
		Transactions: []core.Transaction{{ID: "t1", Guide: "Nomina", Date: "2024-03-01", AmountMN: -1, Type: core.Expense}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Transactions)

	recs, _ := store.Records(ctx)
	require.Len(t, recs.Transactions, 1, "Apply stores even when a publisher is configured")
	assert.Equal(t, "2", recs.Transactions[0].Guide)

	batches, _ := s.Batches(ctx, 1)
	require.Len(t, batches, 1)
	assert.Equal(t, "batch-9", batches[0].ID)
	assert.Equal(t, "queue", batches[0].Source)

	_, err = s.Apply(ctx, "batch-10", "queue", ledger.Records{
		Transactions: []core.Transaction{{ID: "t2", Date: "2024-03-01", Type: "Transfer"}},
	})
	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, core.ErrInvalidType)
}
