// Package validate runs the cross-reference passes over the primary sheet,
// expands multi-value rows and builds the run report.
package validate

import (
	"errors"
	"log"

	"cosaflow/internal"
	"cosaflow/internal/util"
	"cosaflow/internal/workbook"
)

// Validator walks the Manual Sheet in three fixed-order passes (vendor,
// container, entity), marking or clearing cells against reference sets built
// from the auxiliary sheets. No pass is fatal: a missing reference or target
// column skips that pass and leaves the workbook unchanged for its scope.
type Validator struct {
	wb    *workbook.Workbook
	ann   *workbook.Annotator
	stats *Stats
}

func New(wb *workbook.Workbook) *Validator {
	return &Validator{
		wb:    wb,
		ann:   workbook.NewAnnotator(wb),
		stats: NewStats(),
	}
}

func (v *Validator) Annotator() *workbook.Annotator { return v.ann }

func (v *Validator) Stats() *Stats { return v.stats }

// Run executes the three passes. Statistics are counted against row indices
// as they exist now, before any row expansion.
func (v *Validator) Run() error {
	rows, err := v.wb.Rows(internal.SheetManual)
	if err != nil {
		return err
	}
	v.stats.TotalRows = len(rows) - 1
	if v.stats.TotalRows < 0 {
		v.stats.TotalRows = 0
	}

	if err := v.validateVendors(); err != nil {
		return err
	}
	if err := v.validateContainers(); err != nil {
		return err
	}
	return v.validateEntities()
}

func (v *Validator) validateVendors() error {
	companyNames, err := v.refSet(internal.SheetSingleSupplier, internal.ColCompanyName, util.Slugify)
	if err != nil {
		return err
	}
	if len(companyNames) == 0 {
		log.Printf("vendor pass skipped: no company names in %q", internal.SheetSingleSupplier)
		return nil
	}

	return v.checkColumn(internal.ColExporterName, "vendor", func(value string) bool {
		_, ok := companyNames[util.Slugify(value)]
		return ok
	}, workbook.IssueVendorNotFound, &v.stats.VendorNotFound)
}

func (v *Validator) validateContainers() error {
	containers := map[string]struct{}{}
	for _, sheet := range []string{internal.SheetCoffee, internal.SheetTea} {
		values, err := v.refSet(sheet, internal.ColContainerRef, util.NormalizeContainer)
		if err != nil {
			return err
		}
		for value := range values {
			containers[value] = struct{}{}
		}
	}
	if len(containers) == 0 {
		log.Printf("container pass skipped: no container numbers in reference sheets")
		return nil
	}

	return v.checkColumn(internal.ColContainerNumber, "container", func(value string) bool {
		_, ok := containers[util.NormalizeContainer(value)]
		return ok
	}, workbook.IssueContainerNotFound, &v.stats.ContainerNotFound)
}

func (v *Validator) validateEntities() error {
	companyNames := map[string]struct{}{}
	for _, sheet := range []string{internal.SheetDatabaseOthers, internal.SheetDatabaseCoop} {
		values, err := v.refSet(sheet, internal.ColCompanyName, util.Slugify)
		if err != nil {
			return err
		}
		for value := range values {
			companyNames[value] = struct{}{}
		}
	}
	if len(companyNames) == 0 {
		log.Printf("entity pass skipped: no company names in database sheets")
		return nil
	}

	// Two target columns checked independently under the same issue label.
	for _, target := range []string{internal.ColExporterName, internal.ColMillName} {
		err := v.checkColumn(target, "entity", func(value string) bool {
			_, ok := companyNames[util.Slugify(value)]
			return ok
		}, workbook.IssueEntityNotFound, &v.stats.EntityNotFound)
		if err != nil {
			return err
		}
	}
	return nil
}

// refSet builds a reference set from an auxiliary sheet. A missing column is
// logged and yields an empty set; callers decide whether the pass can still
// run.
func (v *Validator) refSet(sheet, header string, normalize func(string) string) (map[string]struct{}, error) {
	values, err := v.wb.ColumnValues(sheet, header, normalize)
	if errors.Is(err, workbook.ErrColumnNotFound) {
		log.Printf("reference column missing: %v", err)
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}

// checkColumn walks one Manual Sheet column and marks or clears each
// non-empty cell based on the membership predicate.
func (v *Validator) checkColumn(header, pass string, found func(string) bool, issue workbook.Issue, counter *int) error {
	col, headerRow, err := v.wb.HeaderCell(internal.SheetManual, header)
	if skip, err := skippablePass(err, pass); skip {
		return err
	}
	rows, err := v.wb.Rows(internal.SheetManual)
	if err != nil {
		return err
	}

	for r := headerRow + 1; r <= len(rows); r++ {
		value := workbook.CellAt(rows, r, col)
		if value == "" {
			continue
		}
		cell := workbook.CellName(col, r)
		if found(value) {
			if err := v.ann.Unmark(internal.SheetManual, cell, issue); err != nil {
				return err
			}
			continue
		}
		if err := v.ann.Mark(internal.SheetManual, cell, issue); err != nil {
			return err
		}
		*counter++
		v.stats.recordError(r, issue)
	}
	return nil
}

// skippablePass maps a missing column to a logged pass skip; anything else is
// a real failure.
func skippablePass(err error, pass string) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, workbook.ErrColumnNotFound) {
		log.Printf("%s pass skipped: %v", pass, err)
		return true, nil
	}
	return true, err
}

// Stats tracks validation counters against pre-expansion row indices.
type Stats struct {
	TotalRows         int
	VendorNotFound    int
	ContainerNotFound int
	EntityNotFound    int

	errorKinds map[int]map[workbook.Issue]struct{}
}

func NewStats() *Stats {
	return &Stats{errorKinds: map[int]map[workbook.Issue]struct{}{}}
}

func (s *Stats) recordError(row int, issue workbook.Issue) {
	set, ok := s.errorKinds[row]
	if !ok {
		set = map[workbook.Issue]struct{}{}
		s.errorKinds[row] = set
	}
	set[issue] = struct{}{}
}

func (s *Stats) ErrorRowCount() int { return len(s.errorKinds) }

// MultipleErrorRowCount counts rows flagged under at least two distinct
// issue kinds.
func (s *Stats) MultipleErrorRowCount() int {
	count := 0
	for _, kinds := range s.errorKinds {
		if len(kinds) > 1 {
			count++
		}
	}
	return count
}

func (s *Stats) ValidRows() int {
	valid := s.TotalRows - s.ErrorRowCount()
	if valid < 0 {
		return 0
	}
	return valid
}
