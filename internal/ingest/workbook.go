package ingest

// workbook.go reads uploaded files into a raw string grid and locates the
// header row. Real exports rarely start at A1: title banners, report dates,
// and blank padding precede the actual table, so the header row is found by
// scoring each early row against the column catalog.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/biogene/stockdash/internal/resolve"
)

const (
	// maxHeaderSearchRows bounds how deep into the grid the header scan
	// looks before giving up.
	maxHeaderSearchRows = 20

	// minHeaderMatches is the fewest catalog fields a row must resolve
	// to be accepted as the header row.
	minHeaderMatches = 3
)

// ReadRows parses an uploaded file into a raw string grid.
// .xlsx and .xlsm go through excelize; everything else is treated as CSV.
func ReadRows(fileName string, data []byte) (sheetName string, rows [][]string, err error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return readExcelRows(data)
	default:
		rows, err = readCSVRows(data)
		return "", rows, err
	}
}

// readExcelRows extracts the first visible sheet as a string grid.
func readExcelRows(data []byte) (string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	name := firstVisibleSheet(f)
	if name == "" {
		return "", nil, fmt.Errorf("workbook has no visible sheets")
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return "", nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return name, rows, nil
}

func firstVisibleSheet(f *excelize.File) string {
	for _, name := range f.GetSheetList() {
		visible, err := f.GetSheetVisible(name)
		if err == nil && visible {
			return name
		}
	}
	return ""
}

// readCSVRows parses CSV data, tolerating ragged rows and invalid UTF-8.
func readCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse CSV: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// findHeaderRow returns the index of the best header candidate within the
// first maxHeaderSearchRows rows, or -1 when no row resolves at least
// minHeaderMatches catalog fields. The earliest row wins a score tie.
func findHeaderRow(rows [][]string, fields []resolve.Field) int {
	limit := len(rows)
	if limit > maxHeaderSearchRows {
		limit = maxHeaderSearchRows
	}

	best, bestScore := -1, 0
	for i := 0; i < limit; i++ {
		score := len(resolve.ResolveAll(rows[i], fields))
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if bestScore < minHeaderMatches {
		return -1
	}
	return best
}

// isEmptyRow reports whether every cell in the record is blank after cleanup.
func isEmptyRow(record []string) bool {
	for _, cell := range record {
		if CleanCell(cell) != "" {
			return false
		}
	}
	return true
}
