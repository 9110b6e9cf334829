package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"cosaflow/internal"
	"cosaflow/internal/blob"
	"cosaflow/internal/config"
	"cosaflow/internal/storage"
	"cosaflow/internal/workbook"
)

func testConfig() config.Config {
	return config.Config{
		ClientID:          1,
		EngagementID:      1,
		DefaultToEntityID: 1,
		CreatedUser:       "system",
		UseDB:             true,
	}
}

func mkWorkbookBytes(t *testing.T, sheets map[string][][]any) []byte {
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
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func fullWorkbookBytes(t *testing.T, manual [][]any) []byte {
	t.Helper()
	return mkWorkbookBytes(t, map[string][][]any{
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

func TestSmokeWorkbookToReport(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for _, name := range []string{"Exporter Name", "Mill Name", "Container Number", "Coop ID"} {
		if _, err := db.InsertParam(name); err != nil {
			t.Fatal(err)
		}
	}

	input := fullWorkbookBytes(t, [][]any{
		{"Exporter Name", "Mill Name", "Container Number", "Coop ID"},
		{"Finca Esperanza", "Monte Azul Mill", "abcd 123 4567", "C1"},
	})

	svc := NewProcessingService(db, testConfig(), blob.NewLocalStore(filepath.Join(tmp, "blobs")))
	outcome, err := svc.ProcessWorkbookBytes("shipments.xlsx", input)
	if err != nil {
		t.Fatal(err)
	}

	report := outcome.Report
	if report.Error != "" {
		t.Fatalf("unexpected error: %s", report.Error)
	}
	if report.Stats.TotalRows != 1 || report.Stats.ValidRows != 1 || report.Stats.InvalidRows != 0 {
		t.Fatalf("stats=%+v", report.Stats)
	}
	if report.Stats.ValidPercentage != 100.0 {
		t.Fatalf("valid_percentage=%v", report.Stats.ValidPercentage)
	}
	if report.Projections.ValidRecordsToProcess != 1 || report.Projections.TotalTransactionsToCreate != 2 {
		t.Fatalf("projections=%+v", report.Projections)
	}

	if report.Database == nil {
		t.Fatal("database results missing")
	}
	// Entity sheets carry three resolvable rows; the container matches with
	// a vendor, so the row yields both chained transactions.
	if report.Database.EntitiesProcessed != 3 {
		t.Fatalf("entities=%d", report.Database.EntitiesProcessed)
	}
	if report.Database.TransactionsProcessed != 2 {
		t.Fatalf("transactions=%d", report.Database.TransactionsProcessed)
	}
	if len(report.Database.Errors) != 0 {
		t.Fatalf("errors=%v", report.Database.Errors)
	}

	// Output is a loadable workbook with the Manual Sheet intact.
	out, err := workbook.OpenBytes(outcome.Output)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := out.Rows(internal.SheetManual)
	if err != nil {
		t.Fatal(err)
	}
	if workbook.CellAt(rows, 2, 1) != "Finca Esperanza" {
		t.Fatalf("rows=%v", rows)
	}

	// The blob store kept a backup and the processed output.
	entries, err := os.ReadDir(filepath.Join(tmp, "blobs", "backups"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("backups: %v %v", entries, err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "blobs", "processed", "shipments.xlsx")); err != nil {
		t.Fatal(err)
	}
}

func TestInvalidRowIsAnnotatedAndExcluded(t *testing.T) {
	input := fullWorkbookBytes(t, [][]any{
		{"Exporter Name", "Mill Name", "Container Number", "Coop ID"},
		{"Ghost Exporter", "Monte Azul Mill", "ZZZZ0000000", "C1"},
		{"Finca Esperanza", "Monte Azul Mill", "ABCD1234567", "C2, C3"},
	})

	cfg := testConfig()
	cfg.UseDB = false
	svc := NewProcessingService(nil, cfg, nil)
	outcome, err := svc.ProcessWorkbookBytes("shipments.xlsx", input)
	if err != nil {
		t.Fatal(err)
	}

	report := outcome.Report
	if report.Stats.TotalRows != 2 || report.Stats.ValidRows != 1 || report.Stats.InvalidRows != 1 {
		t.Fatalf("stats=%+v", report.Stats)
	}
	if report.Errors.VendorsNotFound != 1 || report.Errors.ContainerNumbersNotFound != 1 {
		t.Fatalf("errors=%+v", report.Errors)
	}
	if report.Errors.RowsWithMultipleErrors != 1 {
		t.Fatalf("errors=%+v", report.Errors)
	}

	out, err := workbook.OpenBytes(outcome.Output)
	if err != nil {
		t.Fatal(err)
	}
	// The bad exporter is annotated in the returned document.
	ann := workbook.NewAnnotator(out)
	marked, err := ann.Marked(internal.SheetManual, "A2")
	if err != nil {
		t.Fatal(err)
	}
	if !marked {
		t.Fatal("A2 should be marked in the output")
	}
	// The comma row was expanded in the output.
	rows, err := out.Rows(internal.SheetManual)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows=%d", len(rows))
	}
	if workbook.CellAt(rows, 3, 4) != "C2" || workbook.CellAt(rows, 4, 4) != "C3" {
		t.Fatalf("expansion rows=%v", rows)
	}
}

func TestMissingRequiredSheetAborts(t *testing.T) {
	input := mkWorkbookBytes(t, map[string][][]any{
		internal.SheetManual: {{"Exporter Name"}},
	})

	svc := NewProcessingService(nil, testConfig(), nil)
	outcome, err := svc.ProcessWorkbookBytes("shipments.xlsx", input)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Report.Error != "Required sheet 'Single Supplier Table' not found" {
		t.Fatalf("error=%q", outcome.Report.Error)
	}
	// Input bytes pass through untouched on a structural abort.
	if len(outcome.Output) != len(input) {
		t.Fatal("output should be the unmodified input")
	}
}

func TestIsSupportedWorkbook(t *testing.T) {
	if IsSupportedWorkbook([]byte("not a workbook")) {
		t.Fatal("garbage classified as workbook")
	}
	partial := mkWorkbookBytes(t, map[string][][]any{internal.SheetManual: {{"x"}}})
	if IsSupportedWorkbook(partial) {
		t.Fatal("partial workbook classified as supported")
	}
	full := fullWorkbookBytes(t, [][]any{{"Exporter Name"}})
	if !IsSupportedWorkbook(full) {
		t.Fatal("full workbook rejected")
	}
}
