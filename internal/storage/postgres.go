package storage

import (
	"context"
	"fmt"
	"time"

	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores data in PostgreSQL through a pgx connection pool. Bulk
// inserts use COPY.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewPostgresRepository connects to url, verifies the connection and applies the schema.
func NewPostgresRepository(ctx context.Context, url string, logger logging.Logger) (*PostgresRepository, error) {
	logger = logging.OrDefault(logger)

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schemaSQL, err := schemaFS.ReadFile("schema/postgres.sql")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := pool.Exec(ctx, string(schemaSQL)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	logger.Debug("Connected to PostgreSQL", logging.F("database", poolConfig.ConnConfig.Database))
	return &PostgresRepository{pool: pool, logger: logger}, nil
}

// Close closes the pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// ExistingKeys implements Repository.
func (r *PostgresRepository) ExistingKeys(ctx context.Context) (models.KeySet, error) {
	rows, err := r.pool.Query(ctx, `SELECT timestamp, vehicle_id FROM raw_transactions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing keys: %w", err)
	}
	defer rows.Close()

	keys := make(models.KeySet)
	for rows.Next() {
		var ts time.Time
		var vehicle string
		if err := rows.Scan(&ts, &vehicle); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys.Add(models.NewTransactionKey(ts, vehicle))
	}
	return keys, rows.Err()
}

// InsertBatch implements Repository.
func (r *PostgresRepository) InsertBatch(ctx context.Context, batch models.ImportBatch, txs []models.Transaction) error {
	if err := validateBatch(batch, txs); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op once committed

	if _, err := tx.Exec(ctx,
		`INSERT INTO import_batches (id, min_date, max_date, row_count, source_name, imported_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		batch.ID, batch.MinDate, batch.MaxDate, batch.RowCount, batch.SourceName, batch.ImportedAt); err != nil {
		return fmt.Errorf("failed to insert import batch: %w", err)
	}

	rows := make([][]interface{}, 0, len(txs))
	for _, t := range txs {
		var batchID interface{}
		if t.BatchID != "" {
			batchID = t.BatchID
		}
		rows = append(rows, []interface{}{
			batchID, t.Timestamp, t.VehicleID, t.VehicleService, t.Person, t.PersonService,
			t.Product, t.Quantity, t.Counter, t.Unit, t.ImportedAt,
		})
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"raw_transactions"},
		[]string{"batch_id", "timestamp", "vehicle_id", "vehicle_service", "person", "person_service",
			"product", "quantity", "counter", "unit", "imported_at"},
		pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to copy transactions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import batch: %w", err)
	}
	return nil
}

// AllTransactions implements Repository.
func (r *PostgresRepository) AllTransactions(ctx context.Context) ([]models.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+rawColumns+` FROM raw_transactions ORDER BY vehicle_id, timestamp, id`)
}

// TransactionsForVehicle implements Repository.
func (r *PostgresRepository) TransactionsForVehicle(ctx context.Context, vehicleID string) ([]models.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+rawColumns+` FROM raw_transactions WHERE vehicle_id = $1 ORDER BY timestamp, id`,
		vehicleID)
}

func (r *PostgresRepository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.BatchID, &t.Timestamp, &t.VehicleID, &t.VehicleService,
			&t.Person, &t.PersonService, &t.Product, &t.Quantity, &t.Counter, &t.Unit,
			&t.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReplaceDerived implements Repository.
func (r *PostgresRepository) ReplaceDerived(ctx context.Context, processed []models.ProcessedTransaction, anomalies []models.Anomaly) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM processed_transactions`); err != nil {
		return fmt.Errorf("failed to clear processed_transactions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM anomalies`); err != nil {
		return fmt.Errorf("failed to clear anomalies: %w", err)
	}

	if len(processed) > 0 {
		rows := make([][]interface{}, 0, len(processed))
		for _, p := range processed {
			rows = append(rows, []interface{}{
				p.RawID, p.VehicleID, p.Timestamp, p.PrevTimestamp, p.Person, p.Product, p.Quantity,
				p.QuantityBefore, p.QuantityAfter, p.Counter, p.CounterBefore, p.CounterAfter,
				p.CounterDelta,
			})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"processed_transactions"},
			[]string{"raw_id", "vehicle_id", "timestamp", "prev_timestamp", "person", "product",
				"quantity", "quantity_before", "quantity_after", "counter", "counter_before",
				"counter_after", "counter_delta"},
			pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy processed rows: %w", err)
		}
	}

	if len(anomalies) > 0 {
		rows := make([][]interface{}, 0, len(anomalies))
		for _, a := range anomalies {
			rows = append(rows, []interface{}{
				a.VehicleID, a.Type, a.Timestamp, a.PrevTimestamp, a.Person, a.CounterBefore,
				a.CounterAfter, a.QuantityBefore, a.QuantityAfter, a.Details,
			})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"anomalies"},
			[]string{"vehicle_id", "type", "timestamp", "prev_timestamp", "person", "counter_before",
				"counter_after", "quantity_before", "quantity_after", "details"},
			pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy anomalies: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit derived tables: %w", err)
	}
	return nil
}

// ProcessedForVehicle implements Repository.
func (r *PostgresRepository) ProcessedForVehicle(ctx context.Context, vehicleID string) ([]models.ProcessedTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+processedColumns+` FROM processed_transactions
		 WHERE vehicle_id = $1 ORDER BY timestamp, raw_id`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed rows: %w", err)
	}
	defer rows.Close()

	var out []models.ProcessedTransaction
	for rows.Next() {
		var p models.ProcessedTransaction
		if err := rows.Scan(&p.RawID, &p.VehicleID, &p.Timestamp, &p.PrevTimestamp, &p.Person,
			&p.Product, &p.Quantity, &p.QuantityBefore, &p.QuantityAfter, &p.Counter,
			&p.CounterBefore, &p.CounterAfter, &p.CounterDelta); err != nil {
			return nil, fmt.Errorf("failed to scan processed row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AnomaliesBetween implements Repository.
func (r *PostgresRepository) AnomaliesBetween(ctx context.Context, from, to time.Time) ([]models.Anomaly, error) {
	query := `SELECT ` + anomalyColumns + ` FROM anomalies WHERE 1 = 1`
	var args []interface{}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(` AND timestamp >= $%d`, len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(` AND timestamp <= $%d`, len(args))
	}
	query += ` ORDER BY timestamp, vehicle_id, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var out []models.Anomaly
	for rows.Next() {
		var a models.Anomaly
		if err := rows.Scan(&a.ID, &a.VehicleID, &a.Type, &a.Timestamp, &a.PrevTimestamp, &a.Person,
			&a.CounterBefore, &a.CounterAfter, &a.QuantityBefore, &a.QuantityAfter, &a.Details); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DistinctVehicles implements Repository.
func (r *PostgresRepository) DistinctVehicles(ctx context.Context) ([]string, error) {
	return r.queryStrings(ctx, `SELECT DISTINCT vehicle_id FROM raw_transactions ORDER BY vehicle_id`)
}

// DistinctPersons implements Repository.
func (r *PostgresRepository) DistinctPersons(ctx context.Context) ([]string, error) {
	return r.queryStrings(ctx,
		`SELECT DISTINCT person FROM raw_transactions WHERE person <> '' ORDER BY person`)
}

func (r *PostgresRepository) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan values: %w", err)
	}
	return values, nil
}

// ListBatches implements Repository.
func (r *PostgresRepository) ListBatches(ctx context.Context) ([]models.ImportBatch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, min_date, max_date, row_count, source_name, imported_at
		 FROM import_batches ORDER BY imported_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query import batches: %w", err)
	}
	defer rows.Close()

	var out []models.ImportBatch
	for rows.Next() {
		var b models.ImportBatch
		if err := rows.Scan(&b.ID, &b.MinDate, &b.MaxDate, &b.RowCount, &b.SourceName, &b.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBatch implements Repository.
func (r *PostgresRepository) DeleteBatch(ctx context.Context, id string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM raw_transactions WHERE batch_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete batch transactions: %w", err)
	}
	removed := tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM import_batches WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete import batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit batch deletion: %w", err)
	}
	return removed, nil
}

// Reset implements Repository.
func (r *PostgresRepository) Reset(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx,
		`TRUNCATE anomalies, processed_transactions, raw_transactions, import_batches RESTART IDENTITY`); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}
