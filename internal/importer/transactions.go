package importer

import (
	"fmt"
	"log"
	"strings"
	"time"

	"cosaflow/internal"
	"cosaflow/internal/util"
	"cosaflow/internal/workbook"
)

// Fixed-position columns inspected by the row validity gate. These are
// positional by design and may diverge from the columns the validation
// passes actually marked.
var validityGateColumns = []int{3, 4, 5}

// ImportTransactions builds the chained transactions for every processable
// Manual Sheet row: a primary transaction, and a secondary one when the
// row's container number resolves to a vendor in the Coffee or Tea sheet.
func (im *Importer) ImportTransactions(wb *workbook.Workbook) (int, []string) {
	for _, sheet := range []string{internal.SheetManual, internal.SheetCoffee, internal.SheetTea} {
		if !wb.HasSheet(sheet) {
			log.Printf("transaction phase skipped: sheet %q missing", sheet)
			return 0, nil
		}
	}

	headerRow, columns, order := headerColumns(wb, internal.SheetManual,
		internal.ColExporterName, internal.ColContainerNumber)
	if headerRow == 0 {
		log.Printf("transaction phase skipped: Manual Sheet header row not found")
		return 0, nil
	}

	rows, err := wb.Rows(internal.SheetManual)
	if err != nil {
		return 0, []string{err.Error()}
	}

	toProcess := 0
	for r := headerRow + 1; r <= len(rows); r++ {
		if strings.TrimSpace(workbook.CellAt(rows, r, columns[internal.ColExporterName])) != "" {
			toProcess += 2
		}
	}
	log.Printf("up to %d transactions to process (2 per usable row)", toProcess)

	created := 0
	var errs []string
	for r := headerRow + 1; r <= len(rows); r++ {
		exporter := workbook.CellAt(rows, r, columns[internal.ColExporterName])
		if strings.TrimSpace(exporter) == "" {
			continue
		}

		valid, err := im.isValidRow(wb, r)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: %v", r, err))
			continue
		}
		if !valid {
			log.Printf("row %d skipped: marked cells", r)
			continue
		}

		data := map[string]string{}
		for name, col := range columns {
			data[name] = workbook.CellAt(rows, r, col)
		}

		fromID, err := im.db.FindEntityIDByName(exporter)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: %v", r, err))
			continue
		}
		if fromID == nil {
			log.Printf("row %d skipped: from entity %q not found", r, exporter)
			continue
		}

		id, err := im.createTransaction(*fromID, data, order, nil)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d primary transaction: %v", r, err))
		} else {
			created++
			log.Printf("primary transaction created id=%d row=%d", id, r)
		}

		if vendor := im.lookupVendor(wb, data[internal.ColContainerNumber]); vendor != "" {
			id, err := im.createTransaction(*fromID, data, order, &vendor)
			if err != nil {
				errs = append(errs, fmt.Sprintf("row %d secondary transaction: %v", r, err))
			} else {
				created++
				log.Printf("secondary transaction created id=%d row=%d vendor=%q", id, r, vendor)
			}
		} else {
			log.Printf("row %d: no container match with a vendor, secondary transaction skipped", r)
		}

		if im.cfg.SingleRecordMode && created > 0 {
			log.Printf("single record mode: stopping after %d transaction(s)", created)
			break
		}
	}

	return created, errs
}

// isValidRow checks the fixed gate columns for the red validation fill.
func (im *Importer) isValidRow(wb *workbook.Workbook, row int) (bool, error) {
	for _, col := range validityGateColumns {
		red, err := wb.HasRedFill(internal.SheetManual, workbook.CellName(col, row))
		if err != nil {
			return false, err
		}
		if red {
			return false, nil
		}
	}
	return true, nil
}

// createTransaction persists one transaction with every mappable non-empty
// column as a parameter, in sheet column order. For the secondary transaction
// the Mill Name parameter is overridden with the discovered vendor.
func (im *Importer) createTransaction(fromID int64, data map[string]string, order []string, vendor *string) (int64, error) {
	now := time.Now()
	record := internal.TransactionRecord{
		ClientID:         im.cfg.ClientID,
		FromEntityID:     fromID,
		ToEntityID:       im.cfg.DefaultToEntityID,
		EngagementID:     im.cfg.EngagementID,
		CreatedDate:      now,
		CreatedUser:      im.cfg.CreatedUser,
		LastModifiedDate: now,
		LastModifiedUser: im.cfg.CreatedUser,
	}

	var params []internal.ParamValue
	for _, column := range order {
		value := data[column]
		if value == "" {
			continue
		}
		if vendor != nil && column == internal.ColMillName {
			value = *vendor
		}
		paramID, err := im.resolveParam(column)
		if err != nil {
			return 0, err
		}
		if paramID == nil {
			continue
		}
		params = append(params, internal.ParamValue{ParamID: *paramID, Value: value})
	}

	return im.db.CreateTransaction(record, params)
}

// lookupVendor finds the row with a matching normalized container number in
// the Coffee sheet first, then Tea, and returns its Vendor value.
func (im *Importer) lookupVendor(wb *workbook.Workbook, container string) string {
	if strings.TrimSpace(container) == "" {
		return ""
	}
	for _, sheet := range []string{internal.SheetCoffee, internal.SheetTea} {
		if vendor := matchContainer(wb, sheet, container); vendor != "" {
			return vendor
		}
	}
	return ""
}

func matchContainer(wb *workbook.Workbook, sheet, container string) string {
	headerRow, columns, _ := headerColumns(wb, sheet, internal.ColContainerRef)
	if headerRow == 0 {
		return ""
	}
	vendorCol, hasVendor := columns[internal.ColVendor]
	if !hasVendor {
		return ""
	}

	rows, err := wb.Rows(sheet)
	if err != nil {
		return ""
	}

	target := util.NormalizeContainer(container)
	containerCol := columns[internal.ColContainerRef]
	for r := headerRow + 1; r <= len(rows); r++ {
		value := workbook.CellAt(rows, r, containerCol)
		if value == "" {
			continue
		}
		if util.NormalizeContainer(value) == target {
			return workbook.CellAt(rows, r, vendorCol)
		}
	}
	return ""
}

// headerColumns locates the first row carrying all required headers and maps
// every header on it to its column, preserving sheet order.
func headerColumns(wb *workbook.Workbook, sheet string, required ...string) (int, map[string]int, []string) {
	rows, err := wb.Rows(sheet)
	if err != nil {
		return 0, nil, nil
	}
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}
	for r := 0; r < limit; r++ {
		present := map[string]bool{}
		for _, value := range rows[r] {
			present[value] = true
		}
		ok := true
		for _, name := range required {
			if !present[name] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		columns := map[string]int{}
		var order []string
		for c, value := range rows[r] {
			if value == "" {
				continue
			}
			// Repeated headers keep first position, last column.
			if _, seen := columns[value]; !seen {
				order = append(order, value)
			}
			columns[value] = c + 1
		}
		return r + 1, columns, order
	}
	return 0, nil, nil
}
