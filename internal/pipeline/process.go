// Package pipeline orchestrates one workbook run: backup, structural checks,
// the validation passes, row expansion, reporting and the persistence phase.
package pipeline

import (
	"fmt"
	"log"
	"path/filepath"

	"cosaflow/internal"
	"cosaflow/internal/blob"
	"cosaflow/internal/config"
	"cosaflow/internal/importer"
	"cosaflow/internal/storage"
	"cosaflow/internal/validate"
	"cosaflow/internal/workbook"
)

type ProcessingService struct {
	db    *storage.DB
	cfg   config.Config
	blobs blob.Store
}

// NewProcessingService wires a run's collaborators. db and blobs may be nil:
// without a store the persistence phase is skipped, without blob storage no
// backup or output copy is kept.
func NewProcessingService(db *storage.DB, cfg config.Config, blobs blob.Store) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg, blobs: blobs}
}

type ProcessOutcome struct {
	Output []byte
	Report validate.Report
}

// ProcessWorkbookBytes runs the whole engine over one document. Every
// failure path resolves into the report: the caller always gets a report and
// an output byte stream, annotated when processing ran, verbatim when it
// could not.
func (s *ProcessingService) ProcessWorkbookBytes(name string, data []byte) (ProcessOutcome, error) {
	if s.blobs != nil {
		if path, err := s.blobs.Backup(name, data); err != nil {
			log.Printf("backup failed: %v", err)
		} else {
			log.Printf("backup stored at %s", path)
		}
	}

	wb, err := workbook.OpenBytes(data)
	if err != nil {
		return ProcessOutcome{Output: data, Report: validate.ErrorReport(err.Error())}, nil
	}
	log.Printf("workbook loaded, sheets: %v", wb.File.GetSheetList())

	if missing := wb.MissingRequired(internal.RequiredSheets()); missing != "" {
		report := validate.ErrorReport(fmt.Sprintf("Required sheet '%s' not found", missing))
		return ProcessOutcome{Output: data, Report: report}, nil
	}

	v := validate.New(wb)
	if err := v.Run(); err != nil {
		return ProcessOutcome{Output: data, Report: validate.ErrorReport(err.Error())}, nil
	}

	added, err := validate.ExpandRows(wb, v.Annotator())
	if err != nil {
		return ProcessOutcome{Output: data, Report: validate.ErrorReport(err.Error())}, nil
	}
	if added > 0 {
		log.Printf("row expansion added %d rows", added)
	}

	report := v.Stats().Report()
	log.Printf("validation complete: %d/%d rows valid", report.Stats.ValidRows, report.Stats.TotalRows)

	if report.Stats.ValidRows > 0 && s.cfg.UseDB && s.db != nil {
		results := importer.New(s.db, s.cfg).Run(wb)
		report.Database = &results
	}

	output, err := wb.Bytes()
	if err != nil {
		return ProcessOutcome{Output: data, Report: validate.ErrorReport(err.Error())}, nil
	}

	if s.blobs != nil {
		if path, err := s.blobs.Put(filepath.Join("processed", filepath.Base(name)), output); err != nil {
			log.Printf("storing output failed: %v", err)
		} else {
			log.Printf("output stored at %s", path)
		}
	}

	return ProcessOutcome{Output: output, Report: report}, nil
}

// IsSupportedWorkbook classifies a byte stream as a processable document:
// loadable as a spreadsheet and carrying every required sheet.
func IsSupportedWorkbook(data []byte) bool {
	wb, err := workbook.OpenBytes(data)
	if err != nil {
		return false
	}
	return wb.MissingRequired(internal.RequiredSheets()) == ""
}
