package validate

import (
	"math"

	"cosaflow/internal"
)

type ReportStats struct {
	TotalRows       int     `json:"total_rows"`
	ValidRows       int     `json:"valid_rows"`
	InvalidRows     int     `json:"invalid_rows"`
	ValidPercentage float64 `json:"valid_percentage"`
}

type ReportErrors struct {
	ContainerNumbersNotFound int `json:"container_numbers_not_found"`
	VendorsNotFound          int `json:"vendors_not_found"`
	EntitiesNotFound         int `json:"entities_not_found"`
	RowsWithMultipleErrors   int `json:"rows_with_multiple_errors"`
}

type ReportProjections struct {
	ValidRecordsToProcess     int `json:"valid_records_to_process"`
	TotalTransactionsToCreate int `json:"total_transactions_to_create"`
}

// Report is what the caller always receives, whether the run succeeded or
// aborted on a structural error. Row counts describe the sheet as it was
// during validation, before row expansion.
type Report struct {
	Error       string                  `json:"error,omitempty"`
	Stats       *ReportStats            `json:"stats,omitempty"`
	Errors      *ReportErrors           `json:"errors,omitempty"`
	Projections *ReportProjections      `json:"projections,omitempty"`
	Database    *internal.ImportResults `json:"database_results,omitempty"`
}

func ErrorReport(message string) Report {
	return Report{Error: message}
}

// Report aggregates the run statistics. Two transactions are projected per
// valid row (primary plus chained secondary).
func (s *Stats) Report() Report {
	valid := s.ValidRows()
	percentage := 0.0
	if s.TotalRows > 0 {
		percentage = float64(valid) / float64(s.TotalRows) * 100
	}

	return Report{
		Stats: &ReportStats{
			TotalRows:       s.TotalRows,
			ValidRows:       valid,
			InvalidRows:     s.ErrorRowCount(),
			ValidPercentage: math.Round(percentage*100) / 100,
		},
		Errors: &ReportErrors{
			ContainerNumbersNotFound: s.ContainerNotFound,
			VendorsNotFound:          s.VendorNotFound,
			EntitiesNotFound:         s.EntityNotFound,
			RowsWithMultipleErrors:   s.MultipleErrorRowCount(),
		},
		Projections: &ReportProjections{
			ValidRecordsToProcess:     valid,
			TotalTransactionsToCreate: valid * 2,
		},
	}
}
