package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"fjacquet/fueltrack/internal/models"
)

// MemoryRepository keeps everything in process memory. Mutations build new slices and
// swap them under the lock, so a failed call leaves the previous state untouched.
type MemoryRepository struct {
	mu        sync.RWMutex
	nextRawID int64
	nextAnoID int64
	batches   []models.ImportBatch
	raw       []models.Transaction
	processed []models.ProcessedTransaction
	anomalies []models.Anomaly

	// FailReplace makes ReplaceDerived fail, for exercising rollback paths.
	FailReplace error
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Close is a no-op.
func (r *MemoryRepository) Close() error { return nil }

// ExistingKeys implements Repository.
func (r *MemoryRepository) ExistingKeys(ctx context.Context) (models.KeySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make(models.KeySet, len(r.raw))
	for _, t := range r.raw {
		keys.Add(t.Key())
	}
	return keys, nil
}

// InsertBatch implements Repository.
func (r *MemoryRepository) InsertBatch(ctx context.Context, batch models.ImportBatch, txs []models.Transaction) error {
	if err := validateBatch(batch, txs); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.batches {
		if b.ID == batch.ID {
			return fmt.Errorf("failed to insert import batch: duplicate id %s", batch.ID)
		}
	}

	existing := make(models.KeySet, len(r.raw)+len(txs))
	for _, t := range r.raw {
		existing.Add(t.Key())
	}

	raw := slices.Clone(r.raw)
	nextID := r.nextRawID
	for _, t := range txs {
		if existing.Has(t.Key()) {
			return fmt.Errorf("failed to insert transaction %s at %s: duplicate key",
				t.VehicleID, formatTime(t.Timestamp))
		}
		existing.Add(t.Key())
		nextID++
		t.ID = nextID
		raw = append(raw, t)
	}

	r.raw = raw
	r.nextRawID = nextID
	r.batches = append(r.batches, batch)
	return nil
}

// AllTransactions implements Repository.
func (r *MemoryRepository) AllTransactions(ctx context.Context) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := slices.Clone(r.raw)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VehicleID != out[j].VehicleID {
			return out[i].VehicleID < out[j].VehicleID
		}
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// TransactionsForVehicle implements Repository.
func (r *MemoryRepository) TransactionsForVehicle(ctx context.Context, vehicleID string) ([]models.Transaction, error) {
	all, err := r.AllTransactions(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Transaction
	for _, t := range all {
		if t.VehicleID == vehicleID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ReplaceDerived implements Repository.
func (r *MemoryRepository) ReplaceDerived(ctx context.Context, processed []models.ProcessedTransaction, anomalies []models.Anomaly) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailReplace != nil {
		return fmt.Errorf("failed to replace derived tables: %w", r.FailReplace)
	}

	known := make(map[int64]bool, len(r.raw))
	for _, t := range r.raw {
		known[t.ID] = true
	}
	seen := make(map[int64]bool, len(processed))
	for _, p := range processed {
		if !known[p.RawID] {
			return fmt.Errorf("failed to insert processed row %d: unknown raw transaction", p.RawID)
		}
		if seen[p.RawID] {
			return fmt.Errorf("failed to insert processed row %d: duplicate", p.RawID)
		}
		seen[p.RawID] = true
	}

	nextID := r.nextAnoID
	newAnomalies := make([]models.Anomaly, len(anomalies))
	for i, a := range anomalies {
		nextID++
		a.ID = nextID
		newAnomalies[i] = a
	}

	r.processed = slices.Clone(processed)
	r.anomalies = newAnomalies
	r.nextAnoID = nextID
	return nil
}

// ProcessedForVehicle implements Repository.
func (r *MemoryRepository) ProcessedForVehicle(ctx context.Context, vehicleID string) ([]models.ProcessedTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.ProcessedTransaction
	for _, p := range r.processed {
		if p.VehicleID == vehicleID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].RawID < out[j].RawID
	})
	return out, nil
}

// AnomaliesBetween implements Repository.
func (r *MemoryRepository) AnomaliesBetween(ctx context.Context, from, to time.Time) ([]models.Anomaly, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Anomaly
	for _, a := range r.anomalies {
		if inRange(a.Timestamp, from, to) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		if out[i].VehicleID != out[j].VehicleID {
			return out[i].VehicleID < out[j].VehicleID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DistinctVehicles implements Repository.
func (r *MemoryRepository) DistinctVehicles(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, func(t models.Transaction) string { return t.VehicleID })
}

// DistinctPersons implements Repository.
func (r *MemoryRepository) DistinctPersons(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, func(t models.Transaction) string { return t.Person })
}

func (r *MemoryRepository) distinct(ctx context.Context, value func(models.Transaction) string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, t := range r.raw {
		v := value(t)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// ListBatches implements Repository.
func (r *MemoryRepository) ListBatches(ctx context.Context) ([]models.ImportBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := slices.Clone(r.batches)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ImportedAt.Equal(out[j].ImportedAt) {
			return out[i].ImportedAt.After(out[j].ImportedAt)
		}
		return strings.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, nil
}

// DeleteBatch implements Repository. Processed rows of the removed transactions go
// with them; anomalies stay until the next rebuild, as in the SQL backends.
func (r *MemoryRepository) DeleteBatch(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.batches, func(b models.ImportBatch) bool { return b.ID == id })
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}

	removedIDs := make(map[int64]bool)
	raw := make([]models.Transaction, 0, len(r.raw))
	for _, t := range r.raw {
		if t.BatchID == id {
			removedIDs[t.ID] = true
			continue
		}
		raw = append(raw, t)
	}
	processed := make([]models.ProcessedTransaction, 0, len(r.processed))
	for _, p := range r.processed {
		if !removedIDs[p.RawID] {
			processed = append(processed, p)
		}
	}

	r.raw = raw
	r.processed = processed
	r.batches = slices.Delete(slices.Clone(r.batches), idx, idx+1)
	return int64(len(removedIDs)), nil
}

// Reset implements Repository.
func (r *MemoryRepository) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.batches = nil
	r.raw = nil
	r.processed = nil
	r.anomalies = nil
	return nil
}
