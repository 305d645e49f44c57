package storage

const (
	upsertCategory = `
INSERT INTO categories (id, name, inactive_for_forecast, position)
VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM categories))
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    inactive_for_forecast = excluded.inactive_for_forecast`

	listCategories = `
SELECT id, name, inactive_for_forecast FROM categories ORDER BY position`

	upsertAccount = `
INSERT INTO accounts (id, name) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name`

	listAccounts = `
SELECT id, name FROM accounts ORDER BY id`

	upsertTransaction = `
INSERT INTO transactions (id, bank, guide, date, description, amount_mn, amount_me, type, assigned)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    bank = excluded.bank,
    guide = excluded.guide,
    date = excluded.date,
    description = excluded.description,
    amount_mn = excluded.amount_mn,
    amount_me = excluded.amount_me,
    type = excluded.type,
    assigned = excluded.assigned,
    updated_at = CURRENT_TIMESTAMP`

	listTransactions = `
SELECT id, bank, guide, date, description, amount_mn, amount_me, type, assigned
FROM transactions ORDER BY rowid`

	upsertScheduledPayment = `
INSERT INTO scheduled_payments (id, responsible, supplier, concept, amount_me, exchange_rate, amount, guide, date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    responsible = excluded.responsible,
    supplier = excluded.supplier,
    concept = excluded.concept,
    amount_me = excluded.amount_me,
    exchange_rate = excluded.exchange_rate,
    amount = excluded.amount,
    guide = excluded.guide,
    date = excluded.date,
    updated_at = CURRENT_TIMESTAMP`

	listScheduledPayments = `
SELECT id, responsible, supplier, concept, amount_me, exchange_rate, amount, guide, date
FROM scheduled_payments ORDER BY rowid`

	insertBatch = `
INSERT INTO import_batches (id, source, categories, accounts, transactions, scheduled_payments, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	listBatches = `
SELECT id, source, categories, accounts, transactions, scheduled_payments, created_at
FROM import_batches ORDER BY created_at DESC, rowid DESC LIMIT ?`
)
