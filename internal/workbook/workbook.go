// Package workbook wraps an excelize file with the lookups the validation and
// import phases need: header-text column location, reference-set extraction
// and cell annotation state.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrSheetNotFound  = errors.New("sheet not found")
)

// Header rows are located by text search, not by a fixed index. The format
// never pushes headers below the first few rows.
const headerScanRows = 5

type Workbook struct {
	File *excelize.File
}

func OpenBytes(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{File: f}, nil
}

func Wrap(f *excelize.File) *Workbook {
	return &Workbook{File: f}
}

func (w *Workbook) HasSheet(name string) bool {
	for _, s := range w.File.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

// MissingRequired returns the first sheet from names that the workbook does
// not contain, or "" when all are present.
func (w *Workbook) MissingRequired(names []string) string {
	for _, name := range names {
		if !w.HasSheet(name) {
			return name
		}
	}
	return ""
}

func (w *Workbook) Rows(sheet string) ([][]string, error) {
	if !w.HasSheet(sheet) {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	return w.File.GetRows(sheet)
}

// HeaderCell locates the cell whose value is exactly header within the first
// few rows of sheet. Returns 1-based column and row.
func (w *Workbook) HeaderCell(sheet, header string) (int, int, error) {
	rows, err := w.Rows(sheet)
	if err != nil {
		return 0, 0, err
	}
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for r := 0; r < limit; r++ {
		for c, value := range rows[r] {
			if value == header {
				return c + 1, r + 1, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: %q in sheet %q", ErrColumnNotFound, header, sheet)
}

// ColumnValues builds the deduplicated reference set for a named column:
// every non-empty value below the header, passed through normalize when one
// is given. It works against any sheet of the workbook.
func (w *Workbook) ColumnValues(sheet, header string, normalize func(string) string) (map[string]struct{}, error) {
	col, headerRow, err := w.HeaderCell(sheet, header)
	if err != nil {
		return nil, err
	}
	rows, err := w.Rows(sheet)
	if err != nil {
		return nil, err
	}

	values := map[string]struct{}{}
	for r := headerRow + 1; r <= len(rows); r++ {
		value := CellAt(rows, r, col)
		if value == "" {
			continue
		}
		if normalize != nil {
			value = normalize(value)
		}
		values[value] = struct{}{}
	}
	return values, nil
}

// HasRedFill reports whether a cell carries the red validation fill. It reads
// the style off the file itself so it also works on a freshly loaded
// document.
func (w *Workbook) HasRedFill(sheet, cell string) (bool, error) {
	styleID, err := w.File.GetCellStyle(sheet, cell)
	if err != nil {
		return false, err
	}
	if styleID == 0 {
		return false, nil
	}
	style, err := w.File.GetStyle(styleID)
	if err != nil {
		return false, err
	}
	for _, color := range style.Fill.Color {
		if strings.HasSuffix(strings.ToUpper(color), redFillColor) {
			return true, nil
		}
	}
	return false, nil
}

func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.File.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CellAt reads a value from a GetRows result using 1-based coordinates.
// Coordinates outside the materialized grid read as empty.
func CellAt(rows [][]string, row, col int) string {
	if row < 1 || row > len(rows) {
		return ""
	}
	cells := rows[row-1]
	if col < 1 || col > len(cells) {
		return ""
	}
	return cells[col-1]
}

func CellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
