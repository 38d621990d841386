// Package parsers turns raw invoice and purchase-order exports into typed
// record sets.
//
// Ingestion is two-phase: a file (CSV or XLSX) is first read into a Table, an
// ordered, stringly-typed grid that preserves every source column; the Table
// is then bound against a parser configuration that locates the required
// columns (honoring aliases), coerces amounts, and extracts the customer
// fields encoded in purchase-order item descriptions. Row order in the source
// defines the stable line IDs used through the rest of the pipeline.
package parsers

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"invoice-reconciliation-service/pkg/errors"

	"github.com/xuri/excelize/v2"
)

// Table is an ordered tabular dataset with string cells. Missing trailing
// cells in ragged rows read as empty strings.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of a column by exact name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Cell returns the value at (row, col), tolerating ragged rows.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// FileFormat identifies a supported tabular file format
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
)

// DetectFormat determines the file format from a file name or path.
func DetectFormat(name string) (FileFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", errors.ParseError(errors.CodeUnsupportedFormat, name, nil)
	}
}

// ReadCSVTable reads a CSV document into a Table. The first record is the
// header row; ragged data rows are accepted.
func ReadCSVTable(r io.Reader, delimiter rune) (*Table, error) {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "csv", err)
	}
	if len(records) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyDataset, "csv", nil)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	table := &Table{Columns: header}
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// ReadXLSXTable reads the first sheet of an XLSX document into a Table.
func ReadXLSXTable(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "xlsx", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyDataset, "xlsx", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "xlsx", err)
	}
	if len(rows) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyDataset, "xlsx", nil)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	table := &Table{Columns: header}
	for _, row := range rows[1:] {
		if isEmptyRecord(row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// ParseBytes reads an in-memory document into a Table, detecting the format
// from the file name.
func ParseBytes(name string, data []byte) (*Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		return ReadXLSXTable(bytes.NewReader(data))
	default:
		return ReadCSVTable(bytes.NewReader(data), ',')
	}
}

// LoadTable reads a file from disk into a Table, detecting the format from
// the file extension.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	return ParseBytes(path, data)
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
