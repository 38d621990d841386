package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"invoice-reconciliation-service/internal/parsers"

	"github.com/xuri/excelize/v2"
)

func createTestTable() *parsers.Table {
	return &parsers.Table{
		Columns: []string{"CustomerID", "CustomerName", "OrderedAmount", "MatchMethod"},
		Rows: [][]string{
			{"AB123", "John Smith", "100", "ID_Amount_Match"},
			{"", "Jane Doe", "0", "Unmatched"},
		},
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected OutputFormat
	}{
		{"report.csv", FormatCSV},
		{"report.xlsx", FormatXLSX},
		{"report.XLSX", FormatXLSX},
		{"report.json", FormatJSON},
		{"report.txt", FormatCSV},
		{"report", FormatCSV},
	}

	for _, tt := range tests {
		if got := FormatFromPath(tt.path); got != tt.expected {
			t.Errorf("FormatFromPath(%q) = %s, expected %s", tt.path, got, tt.expected)
		}
	}
}

func TestReportConfigValidate(t *testing.T) {
	if err := DefaultReportConfig().Validate(); err != nil {
		t.Errorf("Expected default config to validate, got: %v", err)
	}

	bad := &ReportConfig{Format: "yaml", SheetName: "Reconciled"}
	if err := bad.Validate(); err == nil {
		t.Error("Expected unsupported format to be rejected")
	}

	noSheet := &ReportConfig{Format: FormatXLSX}
	if err := noSheet.Validate(); err == nil {
		t.Error("Expected empty sheet name to be rejected")
	}
}

func TestWriteTableCSV(t *testing.T) {
	reporter, err := NewReporter(nil)
	if err != nil {
		t.Fatalf("Failed to create reporter: %v", err)
	}

	var buf bytes.Buffer
	if err := reporter.WriteTable(&buf, createTestTable()); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "CustomerID,CustomerName,OrderedAmount,MatchMethod" {
		t.Errorf("Unexpected header line: %q", lines[0])
	}
	if lines[1] != "AB123,John Smith,100,ID_Amount_Match" {
		t.Errorf("Unexpected first row: %q", lines[1])
	}
}

func TestWriteTableXLSX(t *testing.T) {
	reporter, err := NewReporter(&ReportConfig{
		Format:    FormatXLSX,
		SheetName: "Reconciled",
	})
	if err != nil {
		t.Fatalf("Failed to create reporter: %v", err)
	}

	var buf bytes.Buffer
	if err := reporter.WriteTable(&buf, createTestTable()); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Output is not a readable workbook: %v", err)
	}
	defer f.Close()

	if f.GetSheetName(0) != "Reconciled" {
		t.Errorf("Expected sheet name Reconciled, got %q", f.GetSheetName(0))
	}

	rows, err := f.GetRows("Reconciled")
	if err != nil {
		t.Fatalf("Failed to read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "CustomerID" {
		t.Errorf("Unexpected header cell: %q", rows[0][0])
	}
	if rows[1][0] != "AB123" || rows[1][3] != "ID_Amount_Match" {
		t.Errorf("Unexpected data row: %v", rows[1])
	}
}

func TestWriteTableJSON(t *testing.T) {
	reporter, err := NewReporter(&ReportConfig{
		Format:    FormatJSON,
		SheetName: "Reconciled",
	})
	if err != nil {
		t.Fatalf("Failed to create reporter: %v", err)
	}

	var buf bytes.Buffer
	if err := reporter.WriteTable(&buf, createTestTable()); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}

	var rows []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0]["CustomerID"] != "AB123" {
		t.Errorf("Unexpected first row: %v", rows[0])
	}
	if rows[1]["MatchMethod"] != "Unmatched" {
		t.Errorf("Unexpected second row: %v", rows[1])
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.csv")

	reporter, err := NewReporter(nil)
	if err != nil {
		t.Fatalf("Failed to create reporter: %v", err)
	}

	if err := reporter.WriteFile(path, createTestTable()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if !strings.HasPrefix(string(data), "CustomerID,") {
		t.Errorf("Unexpected file content: %q", string(data[:40]))
	}
}
