// Package fleetcore is the entry point for programs embedding fuel ingestion and
// anomaly detection, such as a web front end. An Engine owns its storage and must be
// closed.
package fleetcore

import (
	"context"
	"time"

	"fjacquet/fueltrack/internal/config"
	"fjacquet/fueltrack/internal/container"
	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
)

// Engine imports fuel exports and answers queries over the stored history.
type Engine struct {
	c *container.Container
}

// New builds an Engine from cfg. A nil logger is replaced by the configured one.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = config.ConfigureLoggingFromConfig(cfg)
	}
	c, err := container.NewContainerWithLogger(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{c: c}, nil
}

// Import stores the new rows of path and rebuilds the derived tables when anything
// was inserted. Failures, including a failed rebuild, are reported in Errors.
func (e *Engine) Import(ctx context.Context, path, label string) models.ImportResult {
	result := e.c.GetImporter().ImportFile(ctx, path, label)
	if result.OK() && result.Inserted > 0 {
		if err := e.ReprocessAll(ctx); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}
	return result
}

// ReprocessAll rebuilds processed transactions and anomalies from the raw history.
func (e *Engine) ReprocessAll(ctx context.Context) error {
	return e.c.GetProcessor().ReprocessAll(ctx)
}

// Anomalies returns the anomalies between from and to inclusive; zero bounds are open.
func (e *Engine) Anomalies(ctx context.Context, from, to time.Time) ([]models.Anomaly, error) {
	return e.c.GetRepository().AnomaliesBetween(ctx, from, to)
}

// Transactions returns the raw transactions of a vehicle ordered by time.
func (e *Engine) Transactions(ctx context.Context, vehicleID string) ([]models.Transaction, error) {
	return e.c.GetRepository().TransactionsForVehicle(ctx, vehicleID)
}

// Processed returns the processed transactions of a vehicle ordered by time.
func (e *Engine) Processed(ctx context.Context, vehicleID string) ([]models.ProcessedTransaction, error) {
	return e.c.GetRepository().ProcessedForVehicle(ctx, vehicleID)
}

// Vehicles lists the distinct vehicle identifiers.
func (e *Engine) Vehicles(ctx context.Context) ([]string, error) {
	return e.c.GetRepository().DistinctVehicles(ctx)
}

// Persons lists the distinct non-empty person names.
func (e *Engine) Persons(ctx context.Context) ([]string, error) {
	return e.c.GetRepository().DistinctPersons(ctx)
}

// Summaries returns the consumption summary of every vehicle.
func (e *Engine) Summaries(ctx context.Context) ([]models.VehicleSummary, error) {
	return e.c.GetProcessor().Summaries(ctx)
}

// Batches lists import batches, most recent first.
func (e *Engine) Batches(ctx context.Context) ([]models.ImportBatch, error) {
	return e.c.GetRepository().ListBatches(ctx)
}

// DeleteBatch removes a batch with its transactions and rebuilds the derived tables.
func (e *Engine) DeleteBatch(ctx context.Context, id string) (int64, error) {
	removed, err := e.c.GetRepository().DeleteBatch(ctx, id)
	if err != nil {
		return 0, err
	}
	return removed, e.ReprocessAll(ctx)
}

// Reset deletes all stored data.
func (e *Engine) Reset(ctx context.Context) error {
	return e.c.GetRepository().Reset(ctx)
}

// Close releases the storage.
func (e *Engine) Close() error {
	return e.c.Close()
}
