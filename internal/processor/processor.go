// Package processor rebuilds the derived tables: per-vehicle before/after deltas and
// the anomalies raised on them.
package processor

import (
	"context"
	"sort"
	"time"

	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/storage"
)

// Option configures a Processor.
type Option func(*Processor)

// WithMaxCounterJump sets the jump threshold of the default rule set.
func WithMaxCounterJump(threshold float64) Option {
	return func(p *Processor) { p.rules = DefaultRules(threshold) }
}

// WithRules replaces the rule set.
func WithRules(rules []Rule) Option {
	return func(p *Processor) { p.rules = rules }
}

// WithWorkers sets how many vehicles are scanned concurrently.
func WithWorkers(n int) Option {
	return func(p *Processor) { p.workers = n }
}

// Processor derives processed rows and anomalies from the raw transactions.
type Processor struct {
	repo    storage.Repository
	logger  logging.Logger
	rules   []Rule
	workers int
}

// Report summarizes one rebuild.
type Report struct {
	Vehicles  int
	Processed int
	Anomalies int
	Duration  time.Duration
}

// New creates a Processor with the default rules and one worker.
func New(repo storage.Repository, logger logging.Logger, opts ...Option) *Processor {
	p := &Processor{
		repo:    repo,
		logger:  logging.OrDefault(logger),
		rules:   DefaultRules(DefaultMaxCounterJump),
		workers: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReprocessAll rebuilds the processed and anomaly tables from every raw transaction.
// The replacement is atomic: on error the previous derived data stays in place.
func (p *Processor) ReprocessAll(ctx context.Context) error {
	_, err := p.Rebuild(ctx)
	return err
}

// Rebuild is ReprocessAll returning what was written.
func (p *Processor) Rebuild(ctx context.Context) (Report, error) {
	start := time.Now()

	raw, err := p.repo.AllTransactions(ctx)
	if err != nil {
		return Report{}, err
	}

	groups := GroupByVehicle(raw)
	results, err := scanAll(ctx, groups, p.workers, p.ScanVehicle)
	if err != nil {
		return Report{}, err
	}

	var processed []models.ProcessedTransaction
	var anomalies []models.Anomaly
	for _, r := range results {
		processed = append(processed, r.processed...)
		anomalies = append(anomalies, r.anomalies...)
	}

	if err := p.repo.ReplaceDerived(ctx, processed, anomalies); err != nil {
		p.logger.WithError(err).Error("Failed to replace derived tables")
		return Report{}, err
	}

	report := Report{
		Vehicles:  len(groups),
		Processed: len(processed),
		Anomalies: len(anomalies),
		Duration:  time.Since(start),
	}
	p.logger.Info("Reprocessed transactions",
		logging.F("vehicles", report.Vehicles),
		logging.F(logging.FieldCount, report.Processed),
		logging.F("anomalies", report.Anomalies),
		logging.F(logging.FieldDuration, report.Duration.String()))
	return report, nil
}

// GroupByVehicle splits transactions per vehicle, each group ordered by timestamp with
// insertion order (ID) kept on ties. Groups are ordered by vehicle id.
func GroupByVehicle(txs []models.Transaction) [][]models.Transaction {
	byVehicle := make(map[string][]models.Transaction)
	var vehicles []string
	for _, t := range txs {
		if _, ok := byVehicle[t.VehicleID]; !ok {
			vehicles = append(vehicles, t.VehicleID)
		}
		byVehicle[t.VehicleID] = append(byVehicle[t.VehicleID], t)
	}
	sort.Strings(vehicles)

	groups := make([][]models.Transaction, 0, len(vehicles))
	for _, v := range vehicles {
		g := byVehicle[v]
		sort.SliceStable(g, func(i, j int) bool {
			if !g[i].Timestamp.Equal(g[j].Timestamp) {
				return g[i].Timestamp.Before(g[j].Timestamp)
			}
			return g[i].ID < g[j].ID
		})
		groups = append(groups, g)
	}
	return groups
}

// ScanVehicle computes the processed rows of one vehicle's time-ordered transactions
// and evaluates every rule on each of them.
func (p *Processor) ScanVehicle(txs []models.Transaction) ([]models.ProcessedTransaction, []models.Anomaly) {
	processed := make([]models.ProcessedTransaction, 0, len(txs))
	var anomalies []models.Anomaly

	var prev *models.Transaction
	for i := range txs {
		row := derive(txs[i], prev)
		processed = append(processed, row)

		for _, rule := range p.rules {
			if a, ok := rule.Evaluate(row); ok {
				anomalies = append(anomalies, a)
			}
		}
		prev = &txs[i]
	}
	return processed, anomalies
}

// derive pairs t with its predecessor. Without one, the before values are t's own and
// the delta is 0.
func derive(t models.Transaction, prev *models.Transaction) models.ProcessedTransaction {
	row := models.ProcessedTransaction{
		RawID:          t.ID,
		VehicleID:      t.VehicleID,
		Timestamp:      t.Timestamp,
		Person:         t.Person,
		Product:        t.Product,
		Quantity:       t.Quantity,
		QuantityBefore: t.Quantity,
		QuantityAfter:  t.Quantity,
		Counter:        t.Counter,
		CounterBefore:  t.Counter,
		CounterAfter:   t.Counter,
	}
	if prev != nil {
		ts := prev.Timestamp
		row.PrevTimestamp = &ts
		row.QuantityBefore = prev.Quantity
		row.CounterBefore = prev.Counter
		row.CounterDelta = t.Counter - prev.Counter
	}
	return row
}
