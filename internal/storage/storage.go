// Package storage persists raw transactions, import batches and the derived
// processed/anomaly tables. Three backends share the Repository contract: SQLite
// (default), PostgreSQL and an in-memory store used by tests and dry runs.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fjacquet/fueltrack/internal/models"
)

// ErrBatchNotFound is returned by DeleteBatch for an unknown batch id.
var ErrBatchNotFound = errors.New("import batch not found")

// Repository is the persistence contract used by the importer, the processor and the
// read-side commands. Every mutating call is atomic.
type Repository interface {
	// ExistingKeys returns the identity key of every stored raw transaction.
	ExistingKeys(ctx context.Context) (models.KeySet, error)
	// InsertBatch stores batch and its transactions in one transaction.
	InsertBatch(ctx context.Context, batch models.ImportBatch, txs []models.Transaction) error
	// AllTransactions returns every raw transaction ordered by vehicle, timestamp and
	// insertion order.
	AllTransactions(ctx context.Context) ([]models.Transaction, error)
	// TransactionsForVehicle returns the raw transactions of one vehicle ordered by time.
	TransactionsForVehicle(ctx context.Context, vehicleID string) ([]models.Transaction, error)
	// ReplaceDerived deletes all processed rows and anomalies and inserts the given ones
	// in a single transaction. On failure the previous derived data is kept.
	ReplaceDerived(ctx context.Context, processed []models.ProcessedTransaction, anomalies []models.Anomaly) error
	// ProcessedForVehicle returns the processed rows of one vehicle ordered by time.
	ProcessedForVehicle(ctx context.Context, vehicleID string) ([]models.ProcessedTransaction, error)
	// AnomaliesBetween returns anomalies with from <= timestamp <= to. A zero bound is open.
	AnomaliesBetween(ctx context.Context, from, to time.Time) ([]models.Anomaly, error)
	DistinctVehicles(ctx context.Context) ([]string, error)
	DistinctPersons(ctx context.Context) ([]string, error)
	// ListBatches returns import batches, most recent first.
	ListBatches(ctx context.Context) ([]models.ImportBatch, error)
	// DeleteBatch removes a batch and its transactions, returning how many transactions
	// were removed.
	DeleteBatch(ctx context.Context, id string) (int64, error)
	// Reset deletes all data.
	Reset(ctx context.Context) error
	Close() error
}

// timestampLayout is the text form of timestamps in SQLite. It sorts chronologically.
const timestampLayout = "2006-01-02 15:04:05.999999999"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func validateBatch(batch models.ImportBatch, txs []models.Transaction) error {
	if batch.ID == "" {
		return errors.New("import batch has no id")
	}
	if len(txs) == 0 {
		return fmt.Errorf("import batch %s has no transactions", batch.ID)
	}
	return nil
}
