package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema/sqlite.sql schema/postgres.sql
var schemaFS embed.FS

const (
	rawColumns = `id, COALESCE(batch_id, ''), timestamp, vehicle_id, vehicle_service, person,
		person_service, product, quantity, counter, unit, imported_at`
	processedColumns = `raw_id, vehicle_id, timestamp, prev_timestamp, person, product, quantity,
		quantity_before, quantity_after, counter, counter_before, counter_after, counter_delta`
	anomalyColumns = `id, vehicle_id, type, timestamp, prev_timestamp, person, counter_before,
		counter_after, quantity_before, quantity_after, details`
)

// SQLiteRepository stores data in a single SQLite file.
type SQLiteRepository struct {
	db     *sql.DB
	path   string
	logger logging.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at path and applies
// the schema.
func NewSQLiteRepository(path string, logger logging.Logger) (*SQLiteRepository, error) {
	logger = logging.OrDefault(logger)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps PRAGMAs consistent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &SQLiteRepository{db: db, path: path, logger: logger}
	if err := repo.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug("Opened SQLite database", logging.F(logging.FieldFile, path))
	return repo, nil
}

func (r *SQLiteRepository) initSchema() error {
	schemaSQL, err := schemaFS.ReadFile("schema/sqlite.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := r.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ExistingKeys implements Repository.
func (r *SQLiteRepository) ExistingKeys(ctx context.Context) (models.KeySet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT timestamp, vehicle_id FROM raw_transactions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing keys: %w", err)
	}
	defer closeRows(rows, r.logger)

	keys := make(models.KeySet)
	for rows.Next() {
		var ts, vehicle string
		if err := rows.Scan(&ts, &vehicle); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		keys.Add(models.NewTransactionKey(t, vehicle))
	}
	return keys, rows.Err()
}

// InsertBatch implements Repository.
func (r *SQLiteRepository) InsertBatch(ctx context.Context, batch models.ImportBatch, txs []models.Transaction) error {
	if err := validateBatch(batch, txs); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_batches (id, min_date, max_date, row_count, source_name, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		batch.ID, formatTime(batch.MinDate), formatTime(batch.MaxDate), batch.RowCount,
		batch.SourceName, formatTime(batch.ImportedAt)); err != nil {
		return fmt.Errorf("failed to insert import batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO raw_transactions (batch_id, timestamp, vehicle_id, vehicle_service, person,
		 person_service, product, quantity, counter, unit, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx,
			nullString(t.BatchID), formatTime(t.Timestamp), t.VehicleID, t.VehicleService, t.Person,
			t.PersonService, t.Product, t.Quantity, t.Counter, t.Unit, formatTime(t.ImportedAt)); err != nil {
			return fmt.Errorf("failed to insert transaction %s at %s: %w",
				t.VehicleID, formatTime(t.Timestamp), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import batch: %w", err)
	}
	return nil
}

// AllTransactions implements Repository.
func (r *SQLiteRepository) AllTransactions(ctx context.Context) ([]models.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+rawColumns+` FROM raw_transactions ORDER BY vehicle_id, timestamp, id`)
}

// TransactionsForVehicle implements Repository.
func (r *SQLiteRepository) TransactionsForVehicle(ctx context.Context, vehicleID string) ([]models.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+rawColumns+` FROM raw_transactions WHERE vehicle_id = ? ORDER BY timestamp, id`,
		vehicleID)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer closeRows(rows, r.logger)

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var ts, importedAt string
		if err := rows.Scan(&t.ID, &t.BatchID, &ts, &t.VehicleID, &t.VehicleService, &t.Person,
			&t.PersonService, &t.Product, &t.Quantity, &t.Counter, &t.Unit, &importedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if t.ImportedAt, err = parseTime(importedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReplaceDerived implements Repository.
func (r *SQLiteRepository) ReplaceDerived(ctx context.Context, processed []models.ProcessedTransaction, anomalies []models.Anomaly) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"processed_transactions", "anomalies"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if len(processed) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO processed_transactions (`+processedColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare processed insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, p := range processed {
			if _, err := stmt.ExecContext(ctx,
				p.RawID, p.VehicleID, formatTime(p.Timestamp), nullTime(p.PrevTimestamp), p.Person,
				p.Product, p.Quantity, p.QuantityBefore, p.QuantityAfter, p.Counter,
				p.CounterBefore, p.CounterAfter, p.CounterDelta); err != nil {
				return fmt.Errorf("failed to insert processed row %d: %w", p.RawID, err)
			}
		}
	}

	if len(anomalies) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO anomalies (vehicle_id, type, timestamp, prev_timestamp, person,
			 counter_before, counter_after, quantity_before, quantity_after, details)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare anomaly insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, a := range anomalies {
			if _, err := stmt.ExecContext(ctx,
				a.VehicleID, a.Type, formatTime(a.Timestamp), nullTime(a.PrevTimestamp), a.Person,
				a.CounterBefore, a.CounterAfter, a.QuantityBefore, a.QuantityAfter, a.Details); err != nil {
				return fmt.Errorf("failed to insert anomaly for %s: %w", a.VehicleID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit derived tables: %w", err)
	}
	return nil
}

// ProcessedForVehicle implements Repository.
func (r *SQLiteRepository) ProcessedForVehicle(ctx context.Context, vehicleID string) ([]models.ProcessedTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+processedColumns+` FROM processed_transactions
		 WHERE vehicle_id = ? ORDER BY timestamp, raw_id`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed rows: %w", err)
	}
	defer closeRows(rows, r.logger)

	var out []models.ProcessedTransaction
	for rows.Next() {
		var p models.ProcessedTransaction
		var ts string
		var prev sql.NullString
		if err := rows.Scan(&p.RawID, &p.VehicleID, &ts, &prev, &p.Person, &p.Product, &p.Quantity,
			&p.QuantityBefore, &p.QuantityAfter, &p.Counter, &p.CounterBefore, &p.CounterAfter,
			&p.CounterDelta); err != nil {
			return nil, fmt.Errorf("failed to scan processed row: %w", err)
		}
		if p.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if p.PrevTimestamp, err = parseNullTime(prev); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AnomaliesBetween implements Repository.
func (r *SQLiteRepository) AnomaliesBetween(ctx context.Context, from, to time.Time) ([]models.Anomaly, error) {
	query := `SELECT ` + anomalyColumns + ` FROM anomalies WHERE 1 = 1`
	var args []interface{}
	if !from.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, formatTime(to))
	}
	query += ` ORDER BY timestamp, vehicle_id, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer closeRows(rows, r.logger)

	var out []models.Anomaly
	for rows.Next() {
		var a models.Anomaly
		var ts string
		var prev sql.NullString
		if err := rows.Scan(&a.ID, &a.VehicleID, &a.Type, &ts, &prev, &a.Person, &a.CounterBefore,
			&a.CounterAfter, &a.QuantityBefore, &a.QuantityAfter, &a.Details); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		if a.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if a.PrevTimestamp, err = parseNullTime(prev); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DistinctVehicles implements Repository.
func (r *SQLiteRepository) DistinctVehicles(ctx context.Context) ([]string, error) {
	return r.queryStrings(ctx, `SELECT DISTINCT vehicle_id FROM raw_transactions ORDER BY vehicle_id`)
}

// DistinctPersons implements Repository.
func (r *SQLiteRepository) DistinctPersons(ctx context.Context) ([]string, error) {
	return r.queryStrings(ctx,
		`SELECT DISTINCT person FROM raw_transactions WHERE person <> '' ORDER BY person`)
}

func (r *SQLiteRepository) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	defer closeRows(rows, r.logger)

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListBatches implements Repository.
func (r *SQLiteRepository) ListBatches(ctx context.Context) ([]models.ImportBatch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, min_date, max_date, row_count, source_name, imported_at
		 FROM import_batches ORDER BY imported_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query import batches: %w", err)
	}
	defer closeRows(rows, r.logger)

	var out []models.ImportBatch
	for rows.Next() {
		var b models.ImportBatch
		var minDate, maxDate, importedAt string
		if err := rows.Scan(&b.ID, &minDate, &maxDate, &b.RowCount, &b.SourceName, &importedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		if b.MinDate, err = parseTime(minDate); err != nil {
			return nil, err
		}
		if b.MaxDate, err = parseTime(maxDate); err != nil {
			return nil, err
		}
		if b.ImportedAt, err = parseTime(importedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBatch implements Repository.
func (r *SQLiteRepository) DeleteBatch(ctx context.Context, id string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM raw_transactions WHERE batch_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete batch transactions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted transactions: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM import_batches WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete import batch: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("failed to count deleted batches: %w", err)
	} else if n == 0 {
		return 0, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch deletion: %w", err)
	}
	return removed, nil
}

// Reset implements Repository.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"anomalies", "processed_transactions", "raw_transactions", "import_batches"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows, logger logging.Logger) {
	if err := rows.Close(); err != nil {
		logger.Warn("Failed to close result set", logging.F(logging.FieldError, err.Error()))
	}
}
