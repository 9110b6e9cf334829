package validate

import (
	"testing"

	"cosaflow/internal"
	"cosaflow/internal/workbook"
)

func TestExpandRows(t *testing.T) {
	wb := mkWorkbook(t, map[string][][]any{
		internal.SheetManual: {
			{"Exporter Name", "Container Number", "Coop ID"},
			{"Finca Esperanza", "ABCD1234567", "C1, C2,C3"},
			{"Alta Vista", "TEAX7654321", "C9"},
		},
	})
	ann := workbook.NewAnnotator(wb)

	added, err := ExpandRows(wb, ann)
	if err != nil {
		t.Fatal(err)
	}
	if added != 2 {
		t.Fatalf("added=%d", added)
	}

	rows, err := wb.Rows(internal.SheetManual)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows=%d", len(rows))
	}

	wantCoop := []string{"C1", "C2", "C3", "C9"}
	for i, want := range wantCoop {
		if got := workbook.CellAt(rows, i+2, 3); got != want {
			t.Fatalf("row %d coop id = %q, want %q", i+2, got, want)
		}
	}
	// Other columns carried over verbatim onto every expanded row.
	for r := 2; r <= 4; r++ {
		if got := workbook.CellAt(rows, r, 1); got != "Finca Esperanza" {
			t.Fatalf("row %d exporter = %q", r, got)
		}
		if got := workbook.CellAt(rows, r, 2); got != "ABCD1234567" {
			t.Fatalf("row %d container = %q", r, got)
		}
	}
	if got := workbook.CellAt(rows, 5, 1); got != "Alta Vista" {
		t.Fatalf("shifted row exporter = %q", got)
	}
}

func TestExpandRowsNoCommaPassThrough(t *testing.T) {
	wb := mkWorkbook(t, map[string][][]any{
		internal.SheetManual: {
			{"Exporter Name", "Coop ID"},
			{"Finca Esperanza", "C1"},
		},
	})
	added, err := ExpandRows(wb, workbook.NewAnnotator(wb))
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Fatalf("added=%d", added)
	}
}

func TestExpandRowsMissingColumn(t *testing.T) {
	wb := mkWorkbook(t, map[string][][]any{
		internal.SheetManual: {
			{"Exporter Name"},
			{"Finca Esperanza"},
		},
	})
	added, err := ExpandRows(wb, workbook.NewAnnotator(wb))
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Fatalf("added=%d", added)
	}
}

func TestExpandRowsDuplicatesAnnotations(t *testing.T) {
	wb := mkWorkbook(t, map[string][][]any{
		internal.SheetManual: {
			{"Exporter Name", "Coop ID"},
			{"Ghost Exporter", "C1,C2"},
			{"Alta Vista", "C9"},
		},
	})
	ann := workbook.NewAnnotator(wb)
	if err := ann.Mark(internal.SheetManual, "A2", workbook.IssueVendorNotFound); err != nil {
		t.Fatal(err)
	}
	if err := ann.Mark(internal.SheetManual, "A3", workbook.IssueEntityNotFound); err != nil {
		t.Fatal(err)
	}

	if _, err := ExpandRows(wb, ann); err != nil {
		t.Fatal(err)
	}

	// The marked source row became rows 2 and 3; its annotation is on both.
	for _, cell := range []string{"A2", "A3"} {
		issues, err := ann.Issues(internal.SheetManual, cell)
		if err != nil {
			t.Fatal(err)
		}
		if len(issues) != 1 || issues[0] != workbook.IssueVendorNotFound {
			t.Fatalf("%s issues=%v", cell, issues)
		}
		red, err := wb.HasRedFill(internal.SheetManual, cell)
		if err != nil {
			t.Fatal(err)
		}
		if !red {
			t.Fatalf("%s should carry red fill", cell)
		}
	}

	// The unmarked-at-A2-issue row that shifted from 3 to 4 kept its own mark.
	issues, err := ann.Issues(internal.SheetManual, "A4")
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 || issues[0] != workbook.IssueEntityNotFound {
		t.Fatalf("A4 issues=%v", issues)
	}
}
