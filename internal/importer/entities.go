// Package importer converts a validated workbook into persisted entity and
// transaction records. Every record is its own unit of work; a failing record
// is skipped and reported, never fatal to the run.
package importer

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"cosaflow/internal"
	"cosaflow/internal/config"
	"cosaflow/internal/storage"
	"cosaflow/internal/util"
	"cosaflow/internal/workbook"
)

type Importer struct {
	db  *storage.DB
	cfg config.Config

	// Per-run column-name to parameter-id cache; nil entries are negative
	// hits so unmapped columns are scanned once.
	paramCache map[string]*int64
}

func New(db *storage.DB, cfg config.Config) *Importer {
	return &Importer{db: db, cfg: cfg, paramCache: map[string]*int64{}}
}

// Run executes both persistence phases: entity ingestion from the reference
// sheets, then transaction construction from the Manual Sheet.
func (im *Importer) Run(wb *workbook.Workbook) internal.ImportResults {
	results := internal.ImportResults{Errors: []string{}}

	entities, errs := im.ImportEntities(wb)
	results.EntitiesProcessed = entities
	results.Errors = append(results.Errors, errs...)

	transactions, errs := im.ImportTransactions(wb)
	results.TransactionsProcessed = transactions
	results.Errors = append(results.Errors, errs...)

	log.Printf("import complete entities=%d transactions=%d errors=%d",
		results.EntitiesProcessed, results.TransactionsProcessed, len(results.Errors))
	return results
}

// entitySheets are walked in order; each data row with a company name becomes
// a resolve-or-create attempt.
var entitySheets = []string{
	internal.SheetDatabaseOthers,
	internal.SheetDatabaseCoop,
	internal.SheetSingleSupplier,
}

func (im *Importer) ImportEntities(wb *workbook.Workbook) (int, []string) {
	processed := 0
	var errs []string

	for _, sheet := range entitySheets {
		if !wb.HasSheet(sheet) {
			log.Printf("entity sheet %q missing, skipping", sheet)
			continue
		}

		nameCol, headerRow, err := wb.HeaderCell(sheet, internal.ColCompanyName)
		if err != nil {
			log.Printf("entity sheet %q skipped: %v", sheet, err)
			continue
		}
		columns, _ := columnMap(wb, sheet, headerRow)

		rows, err := wb.Rows(sheet)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		inSheet := 0
		for r := headerRow + 1; r <= len(rows); r++ {
			if workbook.CellAt(rows, r, nameCol) == "" {
				continue
			}
			data := map[string]string{}
			for name, col := range columns {
				data[name] = workbook.CellAt(rows, r, col)
			}

			id, err := im.ResolveOrCreateEntity(data)
			if err != nil {
				errs = append(errs, fmt.Sprintf("entity %q: %v", data[internal.ColCompanyName], err))
				continue
			}
			processed++
			inSheet++
			log.Printf("entity resolved sheet=%q name=%q id=%d", sheet, data[internal.ColCompanyName], id)

			if im.cfg.SingleRecordMode {
				log.Printf("single record mode: one entity taken from %q", sheet)
				break
			}
		}
	}

	return processed, errs
}

// ResolveOrCreateEntity looks an entity up by its exact display name and
// returns the existing id unchanged, or creates it from the row data. The
// country reference is resolved after title-casing the raw value.
func (im *Importer) ResolveOrCreateEntity(data map[string]string) (int64, error) {
	name := strings.TrimSpace(data[internal.ColCompanyName])
	if name == "" {
		return 0, fmt.Errorf("entity without a company name")
	}

	existing, err := im.db.FindEntityIDByName(name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return *existing, nil
	}

	var countryID *int64
	if country := data["Country"]; country != "" {
		countryID, err = im.db.FindCountryIDByName(util.FormatCountryName(country))
		if err != nil {
			return 0, err
		}
		if countryID == nil {
			log.Printf("country not found: %q", util.FormatCountryName(country))
		}
	}

	now := time.Now()
	record := internal.EntityRecord{
		Name:             name,
		ContactMail:      optional(data["Email"]),
		Latitude:         optionalFloat(data["Latitude"]),
		Longitude:        optionalFloat(data["Longitude"]),
		PhoneNumber:      optional(data["Phone"]),
		MobileNumber:     optional(data["Whatsapp"]),
		Address:          optional(data["Address"]),
		CountryID:        countryID,
		StateProvince:    optional(data["Province/State"]),
		ZipCode:          optional(data["Postal/Zip Code"]),
		Enabled:          true,
		Duplicated:       false,
		CreatedDate:      now,
		CreatedUser:      im.cfg.CreatedUser,
		LastModifiedDate: now,
		LastModifiedUser: im.cfg.CreatedUser,
	}

	return im.db.CreateEntity(record, im.cfg.EngagementID, im.cfg.ClientID)
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return util.StringPtr(value)
}

func optionalFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return util.FloatPtr(parsed)
}

// columnMap reads a header row into a name-to-column mapping plus the names
// in sheet column order.
func columnMap(wb *workbook.Workbook, sheet string, headerRow int) (map[string]int, []string) {
	rows, err := wb.Rows(sheet)
	if err != nil || headerRow > len(rows) {
		return map[string]int{}, nil
	}
	columns := map[string]int{}
	var order []string
	for c, value := range rows[headerRow-1] {
		if value == "" {
			continue
		}
		// A repeated header keeps its first position in order but maps to
		// the last column carrying it.
		if _, seen := columns[value]; !seen {
			order = append(order, value)
		}
		columns[value] = c + 1
	}
	return columns, order
}
