//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"flujo/internal/flow"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_Export(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, Config{
		SpreadsheetID:   spreadsheetID,
		SheetName:       "Flujo test",
		CredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	table := flow.ExportTable{
		Headers: []string{"Concepto", "ene 2024", "Total"},
		Rows: [][]any{
			{"Saldo inicial", 100.0, nil},
			{"Flujo neto", 25.5, 25.5},
		},
	}
	ref, err := client.Export(ctx, time.Now().Format("20060102150405"), table)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	t.Logf("Exported to %s", ref)
}
