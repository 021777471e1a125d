// Package tabular loads, validates, and batches spreadsheet-like input
// files for processing: .xlsx/.xlsm via excelize, .csv via encoding/csv.
package tabular

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// Table is one loaded input file. The first row is treated as the header.
// A Table is owned exclusively by whoever loaded it; concurrent jobs load
// their own copies.
type Table struct {
	Path    string
	Columns []string
	Rows    [][]string
}

// Source loads tabular input files
type Source struct {
	logger *zap.SugaredLogger
}

// NewSource creates a tabular data source
func NewSource(logger *zap.SugaredLogger) *Source {
	return &Source{logger: logger}
}

// Load reads the file at path into a Table. Unsupported or unreadable
// files fail with ErrLoadFailed.
func (s *Source) Load(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(errors.ErrLoadFailed, "file not found: %s", path)
	}

	var table *Table
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = loadWorkbook(path)
	case ".csv":
		table, err = loadCSV(path)
	case ".xls":
		// Legacy binary workbooks are not parsed; convert upstream
		err = errors.WithHint(
			errors.Wrapf(errors.ErrLoadFailed, "legacy .xls not supported: %s", path),
			"save the file as .xlsx and retry")
	default:
		err = errors.Wrapf(errors.ErrLoadFailed, "unsupported file type: %s", path)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Loaded tabular file",
		"path", path,
		"rows", len(table.Rows),
		"columns", len(table.Columns))
	return table, nil
}

func loadWorkbook(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrLoadFailed, "failed to open workbook %s: %v", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Wrapf(errors.ErrLoadFailed, "workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(errors.ErrLoadFailed, "failed to read sheet %q: %v", sheets[0], err)
	}

	return tableFromRows(path, rows), nil
}

func loadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrLoadFailed, "failed to open %s: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are the caller's problem, not a parse error

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrLoadFailed, "failed to parse %s: %v", path, err)
	}

	return tableFromRows(path, rows), nil
}

func tableFromRows(path string, rows [][]string) *Table {
	table := &Table{Path: path}
	if len(rows) == 0 {
		return table
	}
	table.Columns = rows[0]
	table.Rows = rows[1:]
	return table
}

// Summary returns the success payload recorded on a completed spreadsheet job
func (t *Table) Summary() map[string]interface{} {
	return map[string]interface{}{
		"rows_processed": len(t.Rows),
		"columns":        t.Columns,
	}
}

// Validate reports whether every required column is present in the header
func (t *Table) Validate(required []string) error {
	var missing []string
	for _, col := range required {
		found := false
		for _, have := range t.Columns {
			if have == col {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return errors.Newf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Batches splits the data rows into chunks of at most size rows
func (t *Table) Batches(size int) [][][]string {
	if size < 1 {
		size = 1
	}

	var batches [][][]string
	for start := 0; start < len(t.Rows); start += size {
		end := start + size
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		batches = append(batches, t.Rows[start:end])
	}
	return batches
}
