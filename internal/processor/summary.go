package processor

import (
	"context"
	"time"

	"fjacquet/fueltrack/internal/models"

	"github.com/shopspring/decimal"
)

// Summarize aggregates one vehicle's processed rows. Distance is the sum of positive
// counter deltas; consumption is litres per 100 counter units, rounded to 2 places.
func Summarize(vehicleID string, rows []models.ProcessedTransaction, anomalies int) models.VehicleSummary {
	s := models.VehicleSummary{
		VehicleID:    vehicleID,
		Transactions: len(rows),
		Anomalies:    anomalies,
	}

	quantity := decimal.Zero
	distance := decimal.Zero
	for _, r := range rows {
		quantity = quantity.Add(decimal.NewFromFloat(r.Quantity))
		if r.CounterDelta > 0 {
			distance = distance.Add(decimal.NewFromFloat(r.CounterDelta))
		}
		if s.FirstTransaction.IsZero() || r.Timestamp.Before(s.FirstTransaction) {
			s.FirstTransaction = r.Timestamp
		}
		if r.Timestamp.After(s.LastTransaction) {
			s.LastTransaction = r.Timestamp
		}
	}

	s.TotalQuantity = quantity.InexactFloat64()
	s.Distance = distance.InexactFloat64()
	if distance.IsPositive() {
		s.LitersPer100 = quantity.Mul(decimal.NewFromInt(100)).Div(distance).Round(2).InexactFloat64()
	}
	return s
}

// Summaries returns one summary per vehicle from the stored derived tables.
func (p *Processor) Summaries(ctx context.Context) ([]models.VehicleSummary, error) {
	vehicles, err := p.repo.DistinctVehicles(ctx)
	if err != nil {
		return nil, err
	}
	anomalies, err := p.repo.AnomaliesBetween(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, a := range anomalies {
		counts[a.VehicleID]++
	}

	out := make([]models.VehicleSummary, 0, len(vehicles))
	for _, v := range vehicles {
		rows, err := p.repo.ProcessedForVehicle(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, Summarize(v, rows, counts[v]))
	}
	return out, nil
}
