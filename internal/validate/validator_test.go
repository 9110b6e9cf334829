package validate

import (
	"testing"

	"github.com/xuri/excelize/v2"

	"cosaflow/internal"
	"cosaflow/internal/workbook"
)

func mkWorkbook(t *testing.T, sheets map[string][][]any) *workbook.Workbook {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for r, row := range rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(name, cell, v); err != nil {
					t.Fatal(err)
				}
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatal(err)
	}
	return workbook.Wrap(f)
}

// fullWorkbook builds a complete six-sheet fixture around the given Manual
// Sheet rows. Reference data knows one vendor/entity and one container.
func fullWorkbook(t *testing.T, manual [][]any) *workbook.Workbook {
	t.Helper()
	return mkWorkbook(t, map[string][][]any{
		internal.SheetManual: manual,
		internal.SheetSingleSupplier: {
			{"Company Name", "Country"},
			{"Finca Esperanza", "Peru"},
		},
		internal.SheetCoffee: {
			{"Container #", "Vendor"},
			{"ABCD1234567", "Roast Partners"},
		},
		internal.SheetTea: {
			{"Container #", "Vendor"},
			{"TEAX7654321", "Leaf Brokers"},
		},
		internal.SheetDatabaseOthers: {
			{"Company Name"},
			{"Finca Esperanza"},
		},
		internal.SheetDatabaseCoop: {
			{"Company Name"},
			{"Monte Azul Mill"},
		},
	})
}

var manualHeader = []any{"Exporter Name", "Mill Name", "Container Number", "Coop ID"}

func TestValidatorCleanRow(t *testing.T) {
	wb := fullWorkbook(t, [][]any{
		manualHeader,
		{"Finca Esperanza", "Monte Azul Mill", "abcd 123 4567", "C1"},
	})
	v := New(wb)
	if err := v.Run(); err != nil {
		t.Fatal(err)
	}

	s := v.Stats()
	if s.TotalRows != 1 || s.ErrorRowCount() != 0 {
		t.Fatalf("total=%d errors=%d", s.TotalRows, s.ErrorRowCount())
	}
	for _, cell := range []string{"A2", "B2", "C2"} {
		marked, err := v.Annotator().Marked(internal.SheetManual, cell)
		if err != nil {
			t.Fatal(err)
		}
		if marked {
			t.Fatalf("cell %s should not be marked", cell)
		}
	}
}

func TestContainerNormalizationMatches(t *testing.T) {
	// "abcd 123 4567" must be recognized against reference "ABCD1234567".
	wb := fullWorkbook(t, [][]any{
		manualHeader,
		{"Finca Esperanza", "Monte Azul Mill", "abcd 123 4567", ""},
	})
	v := New(wb)
	if err := v.Run(); err != nil {
		t.Fatal(err)
	}
	if v.Stats().ContainerNotFound != 0 {
		t.Fatalf("container_not_found=%d", v.Stats().ContainerNotFound)
	}
	marked, _ := v.Annotator().Marked(internal.SheetManual, "C2")
	if marked {
		t.Fatal("normalized container should not be marked")
	}
}

func TestValidatorMarksUnknownValues(t *testing.T) {
	wb := fullWorkbook(t, [][]any{
		manualHeader,
		{"Ghost Exporter", "Unknown Mill", "ZZZZ0000000", "C1"},
		{"Finca Esperanza", "Monte Azul Mill", "ABCD1234567", "C2"},
	})
	v := New(wb)
	if err := v.Run(); err != nil {
		t.Fatal(err)
	}

	s := v.Stats()
	if s.VendorNotFound != 1 {
		t.Fatalf("vendor_not_found=%d", s.VendorNotFound)
	}
	if s.ContainerNotFound != 1 {
		t.Fatalf("container_not_found=%d", s.ContainerNotFound)
	}
	// Exporter and mill both miss the database sheets on row 2.
	if s.EntityNotFound != 2 {
		t.Fatalf("entity_not_found=%d", s.EntityNotFound)
	}
	if s.ErrorRowCount() != 1 || s.ValidRows() != 1 {
		t.Fatalf("errorRows=%d valid=%d", s.ErrorRowCount(), s.ValidRows())
	}
	// Row 2 carries three distinct issue kinds.
	if s.MultipleErrorRowCount() != 1 {
		t.Fatalf("multiple=%d", s.MultipleErrorRowCount())
	}

	issues, err := v.Annotator().Issues(internal.SheetManual, "A2")
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 2 {
		t.Fatalf("A2 issues=%v", issues)
	}
}

func TestRevalidationClearsFixedCells(t *testing.T) {
	wb := fullWorkbook(t, [][]any{
		manualHeader,
		{"Ghost Exporter", "Monte Azul Mill", "ABCD1234567", ""},
	})
	v := New(wb)
	if err := v.Run(); err != nil {
		t.Fatal(err)
	}
	if marked, _ := v.Annotator().Marked(internal.SheetManual, "A2"); !marked {
		t.Fatal("A2 should be marked on first run")
	}

	// Fix the exporter name and run a fresh validation over the saved file.
	blob, err := wb.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	reloaded, err := workbook.OpenBytes(blob)
	if err != nil {
		t.Fatal(err)
	}
	if err := reloaded.File.SetCellValue(internal.SheetManual, "A2", "Finca Esperanza"); err != nil {
		t.Fatal(err)
	}

	v2 := New(reloaded)
	if err := v2.Run(); err != nil {
		t.Fatal(err)
	}
	if marked, _ := v2.Annotator().Marked(internal.SheetManual, "A2"); marked {
		t.Fatal("A2 should be cleared after the value was fixed")
	}
	if red, _ := reloaded.HasRedFill(internal.SheetManual, "A2"); red {
		t.Fatal("red fill should be cleared after the value was fixed")
	}
}

func TestMissingReferenceColumnSkipsPass(t *testing.T) {
	wb := fullWorkbook(t, [][]any{
		manualHeader,
		{"Ghost Exporter", "Monte Azul Mill", "ABCD1234567", ""},
	})
	// Break the vendor reference sheet's header.
	if err := wb.File.SetCellValue(internal.SheetSingleSupplier, "A1", "Supplier"); err != nil {
		t.Fatal(err)
	}

	v := New(wb)
	if err := v.Run(); err != nil {
		t.Fatal(err)
	}
	if v.Stats().VendorNotFound != 0 {
		t.Fatalf("vendor pass should have been skipped, got %d", v.Stats().VendorNotFound)
	}
	// The entity pass still runs and flags the unknown exporter.
	if v.Stats().EntityNotFound != 1 {
		t.Fatalf("entity_not_found=%d", v.Stats().EntityNotFound)
	}
}

func TestEmptyCellsAreSkipped(t *testing.T) {
	wb := fullWorkbook(t, [][]any{
		manualHeader,
		{"", "", "", ""},
	})
	v := New(wb)
	if err := v.Run(); err != nil {
		t.Fatal(err)
	}
	if v.Stats().ErrorRowCount() != 0 {
		t.Fatalf("empty row should not be flagged: %d", v.Stats().ErrorRowCount())
	}
}
