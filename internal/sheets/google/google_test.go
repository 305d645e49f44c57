package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flujo/internal/flow"

	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{SheetName: "Flujo"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Config{SpreadsheetID: "test-id"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID:   "test-id",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil {
		t.Fatal("expected error for missing credentials file")
	}
	if !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadCredentials_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0600); err != nil {
		t.Fatal(err)
	}
	adc := filepath.Join(dir, "adc.json")
	if err := os.WriteFile(adc, []byte(`{"from":"adc"}`), 0600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"from":"inline"}`)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", adc)

	got, err := loadCredentials(ctx, file)
	if err != nil || string(got) != `{"from":"file"}` {
		t.Errorf("explicit file should win, got %s %v", got, err)
	}

	got, err = loadCredentials(ctx, "")
	if err != nil || string(got) != `{"from":"inline"}` {
		t.Errorf("inline json should win over ADC, got %s %v", got, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	got, err = loadCredentials(ctx, "")
	if err != nil || string(got) != `{"from":"adc"}` {
		t.Errorf("expected ADC fallback, got %s %v", got, err)
	}
}

func TestClient_ExportWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Flujo"}
	_, err := c.Export(context.Background(), "monthly", flow.ExportTable{})
	if err == nil || err.Error() != "sheets service not initialized" {
		t.Fatalf("expected uninitialized service error, got %v", err)
	}
}

func TestHasTab(t *testing.T) {
	list := []*gsheet.Sheet{
		{Properties: &gsheet.SheetProperties{Title: "Flujo monthly"}},
		nil,
		{},
	}
	if !hasTab(list, "flujo monthly") {
		t.Error("expected case-insensitive match")
	}
	if hasTab(list, "Flujo weekly") {
		t.Error("unexpected match")
	}
}
