package models

import "time"

// ImportBatch records one ingestion call that inserted at least one row.
type ImportBatch struct {
	ID         string
	MinDate    time.Time
	MaxDate    time.Time
	RowCount   int
	SourceName string
	ImportedAt time.Time
}

// ImportResult is returned to the caller of an import.
type ImportResult struct {
	Inserted  int
	Skipped   int
	PeriodMin time.Time // zero when the file held no rows
	PeriodMax time.Time
	Errors    []string
	BatchID   string // empty when nothing was inserted
}

// OK reports whether the import finished without a fatal error.
func (r ImportResult) OK() bool {
	return len(r.Errors) == 0
}
