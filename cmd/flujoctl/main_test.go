package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flujo/internal/config"
	"flujo/internal/flow"
)

func TestQueryFlags(t *testing.T) {
	tests := []struct {
		name    string
		view    string
		flags   queryFlags
		wantErr string
	}{
		{name: "defaults", flags: queryFlags{}},
		{name: "full", view: "weekly", flags: queryFlags{start: "2024-01-01", end: "2024-03-31", amount: "foreign", granularity: "daily", banks: []string{"A"}}},
		{name: "unknown view", view: "yearly", wantErr: "yearly"},
		{name: "bad start", flags: queryFlags{start: "01/01/2024"}, wantErr: "--start"},
		{name: "end before start", flags: queryFlags{start: "2024-03-01", end: "2024-02-01"}, wantErr: "before"},
		{name: "bad amount", flags: queryFlags{amount: "usd"}, wantErr: "--amount"},
		{name: "bad granularity", flags: queryFlags{granularity: "hourly"}, wantErr: "hourly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.flags.query(tt.view)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.flags.start, q.Range.Start)
			assert.Equal(t, tt.flags.end, q.Range.End)
			assert.Equal(t, tt.flags.banks, q.Banks)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	table := flow.ExportTable{
		Headers: []string{"Concepto", "ene 2024", "Total"},
		Rows: [][]any{
			{"Ingresos", nil, nil},
			{"1-Ventas, P1001", 1234.5, 1234.5},
		},
	}

	require.NoError(t, writeCSV(&buf, table))
	assert.Equal(t, "Concepto,ene 2024,Total\nIngresos,,\n\"1-Ventas, P1001\",1234.50,1234.50\n", buf.String())
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{DataBackend: "memory", LogLevel: "info", AmountField: "home"}
	v := viper.New()
	v.Set("backend", "sqlite")
	v.Set("sqlite_db_path", "/tmp/x.db")
	v.Set("flow.amount", "foreign")
	v.Set("flow.excluded_categories", []string{"13", "29"})
	v.Set("flow.seed", 7)

	applyOverrides(cfg, v)

	assert.Equal(t, "sqlite", cfg.DataBackend)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "foreign", cfg.AmountField)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep the environment value")
	assert.Equal(t, []string{"13", "29"}, cfg.ExcludedCategoryIDs)
	assert.EqualValues(t, 7, cfg.ForecastSeed)
}

func TestReadBatch(t *testing.T) {
	recs, err := readBatch(strings.NewReader(`{"transactions":[{"id":"t1","date":"2024-01-02","amountMN":5,"type":"Income"}]}`), "-")
	require.NoError(t, err)
	require.Len(t, recs.Transactions, 1)
	assert.Equal(t, "t1", recs.Transactions[0].ID)

	_, err = readBatch(strings.NewReader(`{"expenses":[]}`), "-")
	assert.Error(t, err, "unknown fields are rejected")

	_, err = readBatch(nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFlowCommandCSV(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, "categories.json", `[{"id":"1","name":"1-Ventas P1001"},{"id":"2","name":"2-Nómina"}]`)
	writeSeed(t, dir, "accounts.json", `[{"id":"A","name":"Banorte"}]`)
	writeSeed(t, dir, "transactions.json", `[
		{"id":"t1","bank":"A","guide":"1","date":"2024-02-10","amountMN":1000,"type":"Income"},
		{"id":"t2","bank":"A","guide":"2","date":"2024-03-05","amountMN":-400,"type":"Expense"}
	]`)

	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"flow", "monthly", "--format", "csv"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "Concepto,"))
	assert.Equal(t, "Saldo inicial,0.00,1000.00,0.00", lines[1])
	assert.Equal(t, "Saldo final,1000.00,600.00,600.00", lines[len(lines)-1])
}

func TestForecastCommandSeasonalLines(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, "categories.json", `[{"id":"2","name":"2-Nómina"},{"id":"4","name":"4-Aguinaldo"},{"id":"5","name":"5-PTU"}]`)
	writeSeed(t, dir, "accounts.json", `[{"id":"A","name":"Banorte"}]`)
	writeSeed(t, dir, "transactions.json", `[
		{"id":"t1","bank":"A","guide":"2","date":"2024-01-15","amountMN":-8000,"type":"Expense"},
		{"id":"t2","bank":"A","guide":"2","date":"2024-02-15","amountMN":-8000,"type":"Expense"}
	]`)

	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"forecast", "--year", "2024", "--format", "csv"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var bonus, profit []string
	for _, line := range strings.Split(out.String(), "\n") {
		switch {
		case strings.HasPrefix(line, "4-Aguinaldo,"):
			bonus = strings.Split(line, ",")
		case strings.HasPrefix(line, "5-PTU,"):
			profit = strings.Split(line, ",")
		}
	}
	// columns: concept, ene..dic, total
	require.Len(t, bonus, 14)
	assert.Equal(t, "-4000.00", bonus[12])
	require.Len(t, profit, 14)
	assert.Equal(t, "-4000.00", profit[5])

	forecast, _, err := rootCmd.Find([]string{"forecast"})
	require.NoError(t, err)
	assert.Contains(t, forecast.Long, "half the payroll average")
	assert.NotContains(t, forecast.Long, "last year")
}

func writeSeed(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}
