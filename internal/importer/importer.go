// Package importer is the ingestion entry point: it loads a file, extracts its rows,
// drops rows already stored and writes the rest as one import batch.
package importer

import (
	"context"
	"path/filepath"
	"time"

	"fjacquet/fueltrack/internal/extractor"
	"fjacquet/fueltrack/internal/loader"
	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/parsererror"
	"fjacquet/fueltrack/internal/storage"

	"github.com/google/uuid"
)

// TableLoader reads a file into a mapped table.
type TableLoader interface {
	Load(ctx context.Context, path string) (*loader.Table, error)
}

// Option configures an Importer.
type Option func(*Importer)

// WithDayFirst sets how ambiguous numeric dates are read.
func WithDayFirst(dayFirst bool) Option {
	return func(i *Importer) { i.dayFirst = dayFirst }
}

// WithClock overrides the import timestamp source.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// WithIDGenerator overrides batch id generation.
func WithIDGenerator(newID func() string) Option {
	return func(i *Importer) { i.newID = newID }
}

// Importer ingests fuel exports into a Repository.
type Importer struct {
	loader   TableLoader
	repo     storage.Repository
	logger   logging.Logger
	dayFirst bool
	now      func() time.Time
	newID    func() string
}

// New creates an Importer.
func New(l TableLoader, repo storage.Repository, logger logging.Logger, opts ...Option) *Importer {
	i := &Importer{
		loader:   l,
		repo:     repo,
		logger:   logging.OrDefault(logger),
		dayFirst: true,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportFile runs Import and reports any failure through ImportResult.Errors.
func (i *Importer) ImportFile(ctx context.Context, path, label string) models.ImportResult {
	result, err := i.Import(ctx, path, label)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	return result
}

// Import loads path and stores its new transactions under one batch labelled label
// (the file name when empty). Load failures come back as
// *parsererror.UnparsableSourceError, a file without usable rows as
// *parsererror.NoValidRowsError; storage errors are returned unchanged.
func (i *Importer) Import(ctx context.Context, path, label string) (models.ImportResult, error) {
	if label == "" {
		label = filepath.Base(path)
	}
	log := i.logger.WithFields(logging.F(logging.FieldFile, path))

	table, err := i.loader.Load(ctx, path)
	if err != nil {
		log.WithError(err).Warn("Failed to load source")
		return models.ImportResult{}, err
	}

	return i.ImportTable(ctx, table, label)
}

// ImportTable stores the transactions of an already loaded table.
func (i *Importer) ImportTable(ctx context.Context, table *loader.Table, label string) (models.ImportResult, error) {
	var result models.ImportResult
	log := i.logger.WithFields(
		logging.F(logging.FieldFile, table.Source),
		logging.F(logging.FieldStrategy, table.Strategy))

	existing, err := i.repo.ExistingKeys(ctx)
	if err != nil {
		return result, err
	}

	ext := extractor.New(table, i.logger, extractor.WithDayFirst(i.dayFirst))
	var staged []models.Transaction
	var inputMin, inputMax time.Time
	seen := 0

	for tx := range ext.Records() {
		seen++
		inputMin, inputMax = widen(inputMin, inputMax, tx.Timestamp)

		key := tx.Key()
		if existing.Has(key) {
			result.Skipped++
			continue
		}
		existing.Add(key)
		staged = append(staged, tx)
	}

	if seen == 0 {
		err := &parsererror.NoValidRowsError{FilePath: table.Source}
		log.Warn("No valid rows extracted", logging.F(logging.FieldDropped, ext.Dropped()))
		return result, err
	}

	if len(staged) == 0 {
		result.PeriodMin, result.PeriodMax = inputMin, inputMax
		log.Info("Nothing new to import", logging.F(logging.FieldSkipped, result.Skipped))
		return result, nil
	}

	batch := i.newBatch(label, staged)
	for idx := range staged {
		staged[idx].BatchID = batch.ID
		staged[idx].ImportedAt = batch.ImportedAt
	}

	if err := i.repo.InsertBatch(ctx, batch, staged); err != nil {
		return result, err
	}

	result.Inserted = len(staged)
	result.PeriodMin, result.PeriodMax = batch.MinDate, batch.MaxDate
	result.BatchID = batch.ID

	log.Info("Imported transactions",
		logging.F(logging.FieldBatch, batch.ID),
		logging.F(logging.FieldInserted, result.Inserted),
		logging.F(logging.FieldSkipped, result.Skipped),
		logging.F(logging.FieldDropped, ext.Dropped()))
	return result, nil
}

func (i *Importer) newBatch(label string, staged []models.Transaction) models.ImportBatch {
	var minDate, maxDate time.Time
	for _, tx := range staged {
		minDate, maxDate = widen(minDate, maxDate, tx.Timestamp)
	}
	return models.ImportBatch{
		ID:         i.newID(),
		MinDate:    minDate,
		MaxDate:    maxDate,
		RowCount:   len(staged),
		SourceName: label,
		ImportedAt: i.now(),
	}
}

// widen extends [lo, hi] to include t; zero bounds are unset.
func widen(lo, hi, t time.Time) (time.Time, time.Time) {
	if lo.IsZero() || t.Before(lo) {
		lo = t
	}
	if hi.IsZero() || t.After(hi) {
		hi = t
	}
	return lo, hi
}
