package tabular

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

const (
	statusColumn    = "Processed"
	timestampColumn = "Processed_Time"
)

// MarkProcessed writes processing status back into an .xlsx workbook:
// appends a status and timestamp column if missing, stamps the given data
// row indexes (0-based, excluding the header), and saves the file after
// writing a timestamped backup copy alongside it.
func (s *Source) MarkProcessed(path string, processedRows []int) error {
	if strings.ToLower(filepath.Ext(path)) != ".xlsx" {
		return errors.Wrapf(errors.ErrLoadFailed, "status writeback requires .xlsx, got %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrLoadFailed, "failed to open workbook %s: %v", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return errors.Wrapf(errors.ErrLoadFailed, "workbook %s has no sheets", path)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return errors.Wrapf(errors.ErrLoadFailed, "failed to read sheet %q: %v", sheet, err)
	}
	if len(rows) == 0 {
		return errors.Newf("workbook %s is empty", path)
	}

	// Back up the workbook as loaded, before any status cells change
	backup := fmt.Sprintf("%s_backup_%s.xlsx",
		strings.TrimSuffix(path, filepath.Ext(path)),
		time.Now().Format("20060102150405"))
	if err := f.SaveAs(backup); err != nil {
		return errors.Wrapf(err, "failed to write backup %s", backup)
	}

	header := rows[0]
	statusCol := columnIndex(header, statusColumn)
	if statusCol < 0 {
		statusCol = len(header)
		header = append(header, statusColumn)
	}
	timeCol := columnIndex(header, timestampColumn)
	if timeCol < 0 {
		timeCol = len(header)
	}

	if err := setHeaderCell(f, sheet, statusCol, statusColumn); err != nil {
		return err
	}
	if err := setHeaderCell(f, sheet, timeCol, timestampColumn); err != nil {
		return err
	}

	stamp := time.Now().Format("2006-01-02 15:04:05")
	for _, rowIdx := range processedRows {
		if rowIdx < 0 || rowIdx >= len(rows)-1 {
			continue
		}
		// +2: 1-based sheet rows, plus the header row
		sheetRow := rowIdx + 2
		if err := setCell(f, sheet, statusCol, sheetRow, "Processed"); err != nil {
			return err
		}
		if err := setCell(f, sheet, timeCol, sheetRow, stamp); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}

	s.logger.Infow("Updated processing status",
		"path", path,
		"rows", len(processedRows),
		"backup", backup)
	return nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}

func setHeaderCell(f *excelize.File, sheet string, col int, value string) error {
	return setCell(f, sheet, col, 1, value)
}

func setCell(f *excelize.File, sheet string, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return errors.Wrap(err, "bad cell coordinates")
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return errors.Wrapf(err, "failed to set cell %s", cell)
	}
	return nil
}
