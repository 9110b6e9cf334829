package internal

import "time"

// Sheet names fixed by the workbook format. A document missing any of these is
// not processable.
const (
	SheetManual         = "Manual Sheet"
	SheetSingleSupplier = "Single Supplier Table"
	SheetCoffee         = "Worksheet- Coffee"
	SheetTea            = "Worksheet- Tea"
	SheetDatabaseOthers = "Database - Others"
	SheetDatabaseCoop   = "Database-RA+FT Coop"
)

func RequiredSheets() []string {
	return []string{
		SheetManual,
		SheetSingleSupplier,
		SheetCoffee,
		SheetTea,
		SheetDatabaseOthers,
		SheetDatabaseCoop,
	}
}

// Column headers referenced by the validation passes and the importer.
const (
	ColCompanyName     = "Company Name"
	ColExporterName    = "Exporter Name"
	ColMillName        = "Mill Name"
	ColContainerNumber = "Container Number"
	ColContainerRef    = "Container #"
	ColCoopID          = "Coop ID"
	ColVendor          = "Vendor"
)

type EntityRecord struct {
	EntityID         int64
	Name             string
	ContactMail      *string
	Latitude         *float64
	Longitude        *float64
	PhoneNumber      *string
	MobileNumber     *string
	Address          *string
	CountryID        *int64
	StateProvince    *string
	ZipCode          *string
	Enabled          bool
	Duplicated       bool
	CreatedDate      time.Time
	CreatedUser      string
	LastModifiedDate time.Time
	LastModifiedUser string
}

type TransactionRecord struct {
	ClientID         int64
	TransactionID    int64
	FromEntityID     int64
	ToEntityID       int64
	EngagementID     int64
	CreatedDate      time.Time
	CreatedUser      string
	LastModifiedDate time.Time
	LastModifiedUser string
}

// ParamValue is one parameter attached to a transaction. Values are stored as
// strings regardless of the source cell type.
type ParamValue struct {
	ParamID int64
	Value   string
}

type ParamRecord struct {
	ID   int64
	Name string
}

type CountryRecord struct {
	ID   int64
	Name string
}

// ImportResults summarizes the persistence phase of one workbook run. Errors
// holds per-record failures; a failed record never aborts the run.
type ImportResults struct {
	EntitiesProcessed     int      `json:"entities_processed"`
	TransactionsProcessed int      `json:"transactions_processed"`
	Errors                []string `json:"errors"`
}
