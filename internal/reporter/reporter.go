// Package reporter renders the reconciled output dataset.
//
// The reporter takes the engine's output table and writes it as CSV, XLSX,
// or JSON, either to a writer or to a file with format detection by
// extension. It adds no business meaning of its own; every column is already
// final when the table reaches this package.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/pkg/errors"

	"github.com/xuri/excelize/v2"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatCSV  OutputFormat = "csv"
	FormatXLSX OutputFormat = "xlsx"
	FormatJSON OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return true
	default:
		return false
	}
}

// FormatFromPath derives the output format from a file extension, defaulting
// to CSV.
func FormatFromPath(path string) OutputFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX
	case ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format       OutputFormat `json:"format"`
	CSVDelimiter rune         `json:"csv_delimiter"`
	SheetName    string       `json:"sheet_name"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:       FormatCSV,
		CSVDelimiter: ',',
		SheetName:    "Reconciled",
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.SheetName == "" {
		return fmt.Errorf("sheet name cannot be empty")
	}
	return nil
}

// Reporter writes output tables in the configured format.
type Reporter struct {
	config *ReportConfig
}

// NewReporter creates a reporter with the given configuration.
func NewReporter(config *ReportConfig) (*Reporter, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(errors.CodeInvalidConfig, "reporter", err)
	}
	return &Reporter{config: config}, nil
}

// WriteTable renders a table to a writer in the configured format.
func (r *Reporter) WriteTable(w io.Writer, table *parsers.Table) error {
	switch r.config.Format {
	case FormatXLSX:
		return r.writeXLSX(w, table)
	case FormatJSON:
		return r.writeJSON(w, table)
	default:
		return r.writeCSV(w, table)
	}
}

// WriteFile renders a table to a file, creating parent directories as needed.
func (r *Reporter) WriteFile(path string, table *parsers.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	defer f.Close()

	return r.WriteTable(f, table)
}

func (r *Reporter) writeCSV(w io.Writer, table *parsers.Table) error {
	writer := csv.NewWriter(w)
	if r.config.CSVDelimiter != 0 {
		writer.Comma = r.config.CSVDelimiter
	}

	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range table.Rows {
		row := make([]string, len(table.Columns))
		for j := range table.Columns {
			row[j] = table.Cell(i, j)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func (r *Reporter) writeXLSX(w io.Writer, table *parsers.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := r.config.SheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write XLSX header: %w", err)
	}

	for i := range table.Rows {
		row := make([]interface{}, len(table.Columns))
		for j := range table.Columns {
			row[j] = table.Cell(i, j)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address XLSX row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write XLSX row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

func (r *Reporter) writeJSON(w io.Writer, table *parsers.Table) error {
	rows := make([]map[string]string, 0, len(table.Rows))
	for i := range table.Rows {
		row := make(map[string]string, len(table.Columns))
		for j, col := range table.Columns {
			row[col] = table.Cell(i, j)
		}
		rows = append(rows, row)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}
