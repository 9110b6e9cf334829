package validate

import (
	"errors"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"cosaflow/internal"
	"cosaflow/internal/workbook"
)

// ExpandRows splits every Manual Sheet row whose Coop ID value holds a
// comma-separated list into one row per token, all other columns carried over
// verbatim. The expanded rows replace the sheet contents in place,
// left-aligned, and each source row's annotations are duplicated onto every
// row produced from it. Returns the number of rows added.
//
// This runs after the validation passes, so statistics keyed to row indices
// describe the pre-expansion layout.
func ExpandRows(wb *workbook.Workbook, ann *workbook.Annotator) (int, error) {
	rows, err := wb.Rows(internal.SheetManual)
	if err != nil {
		return 0, err
	}

	col, _, err := wb.HeaderCell(internal.SheetManual, internal.ColCoopID)
	if errors.Is(err, workbook.ErrColumnNotFound) {
		log.Printf("row expansion skipped: %v", err)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	expanded := make([][]string, 0, len(rows))
	source := make([]int, 0, len(rows))
	for i, row := range rows {
		value := workbook.CellAt(rows, i+1, col)
		if !strings.Contains(value, ",") {
			expanded = append(expanded, row)
			source = append(source, i+1)
			continue
		}
		for _, token := range strings.Split(value, ",") {
			clone := make([]string, len(row))
			copy(clone, row)
			for len(clone) < col {
				clone = append(clone, "")
			}
			clone[col-1] = strings.TrimSpace(token)
			expanded = append(expanded, clone)
			source = append(source, i+1)
		}
	}

	added := len(expanded) - len(rows)
	if added == 0 {
		return 0, nil
	}

	state, err := ann.SheetState(internal.SheetManual)
	if err != nil {
		return 0, err
	}

	if err := writeRows(wb, expanded); err != nil {
		return 0, err
	}

	// Rows below the expansion points shifted; rebuild every annotation at
	// its new location, duplicating marks onto rows cloned from a marked
	// source row.
	for cell := range state {
		if err := ann.Clear(internal.SheetManual, cell); err != nil {
			return 0, err
		}
	}
	byRow := map[int]map[int][]workbook.Issue{}
	for cell, issues := range state {
		c, r, err := excelize.CellNameToCoordinates(cell)
		if err != nil {
			return 0, err
		}
		if byRow[r] == nil {
			byRow[r] = map[int][]workbook.Issue{}
		}
		byRow[r][c] = issues
	}
	for i, src := range source {
		for c, issues := range byRow[src] {
			for _, issue := range issues {
				if err := ann.Mark(internal.SheetManual, workbook.CellName(c, i+1), issue); err != nil {
					return 0, err
				}
			}
		}
	}

	return added, nil
}

func writeRows(wb *workbook.Workbook, rows [][]string) error {
	left, err := wb.File.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left"},
	})
	if err != nil {
		return err
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	for i, row := range rows {
		// Write the full width so shifted rows leave no stale trailing cells.
		for j := 0; j < maxCols; j++ {
			value := ""
			if j < len(row) {
				value = row[j]
			}
			cell := workbook.CellName(j+1, i+1)
			if err := wb.File.SetCellValue(internal.SheetManual, cell, value); err != nil {
				return err
			}
		}
	}
	if maxCols == 0 || len(rows) == 0 {
		return nil
	}
	last := workbook.CellName(maxCols, len(rows))
	return wb.File.SetCellStyle(internal.SheetManual, "A1", last, left)
}
