package processor

import (
	"fmt"

	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/textutils"

	"github.com/shopspring/decimal"
)

// DefaultMaxCounterJump is the counter increase above which a jump is flagged.
const DefaultMaxCounterJump = 1000.0

// Rule is one anomaly check. Rules are evaluated independently, so a row can raise
// several anomalies.
type Rule struct {
	Type string
	// NeedsPrevious restricts the rule to rows that have a predecessor.
	NeedsPrevious bool
	Match         func(p models.ProcessedTransaction) bool
	Details       func(p models.ProcessedTransaction) string
}

// Evaluate returns the anomaly raised by r on p, if any.
func (r Rule) Evaluate(p models.ProcessedTransaction) (models.Anomaly, bool) {
	if r.NeedsPrevious && !p.HasPrevious() {
		return models.Anomaly{}, false
	}
	if !r.Match(p) {
		return models.Anomaly{}, false
	}
	a := models.Anomaly{
		VehicleID:      p.VehicleID,
		Type:           r.Type,
		Timestamp:      p.Timestamp,
		PrevTimestamp:  p.PrevTimestamp,
		Person:         p.Person,
		CounterBefore:  p.CounterBefore,
		CounterAfter:   p.CounterAfter,
		QuantityBefore: p.QuantityBefore,
		QuantityAfter:  p.QuantityAfter,
	}
	if r.Details != nil {
		a.Details = r.Details(p)
	}
	return a, true
}

// DefaultRules returns the standard rule set with the given jump threshold.
func DefaultRules(maxCounterJump float64) []Rule {
	threshold := textutils.FormatNumber(maxCounterJump)

	return []Rule{
		{
			Type:  models.AnomalyZeroQuantity,
			Match: func(p models.ProcessedTransaction) bool { return p.QuantityAfter == 0 },
			Details: func(models.ProcessedTransaction) string {
				return "quantity is 0"
			},
		},
		{
			Type:          models.AnomalyCounterDecreased,
			NeedsPrevious: true,
			Match:         func(p models.ProcessedTransaction) bool { return p.CounterAfter < p.CounterBefore },
			Details: func(p models.ProcessedTransaction) string {
				return fmt.Sprintf("counter went from %s to %s",
					textutils.FormatNumber(p.CounterBefore), textutils.FormatNumber(p.CounterAfter))
			},
		},
		{
			Type:          models.AnomalyJump(threshold),
			NeedsPrevious: true,
			Match:         func(p models.ProcessedTransaction) bool { return p.CounterDelta > maxCounterJump },
			Details: func(p models.ProcessedTransaction) string {
				return fmt.Sprintf("counter jumped by %s (threshold %s)", delta(p), threshold)
			},
		},
		{
			Type:  models.AnomalyCounterZero,
			Match: func(p models.ProcessedTransaction) bool { return p.CounterAfter == 0 },
			Details: func(models.ProcessedTransaction) string {
				return "counter is 0"
			},
		},
		{
			Type:          models.AnomalyStaleCounter,
			NeedsPrevious: true,
			Match: func(p models.ProcessedTransaction) bool {
				return p.QuantityAfter > 0 && p.CounterDelta == 0
			},
			Details: func(p models.ProcessedTransaction) string {
				return fmt.Sprintf("quantity %s but counter unchanged at %s",
					textutils.FormatNumber(p.QuantityAfter), textutils.FormatNumber(p.CounterAfter))
			},
		},
	}
}

// delta renders after - before without binary float noise (1500 - 100.1 = 1399.9).
func delta(p models.ProcessedTransaction) string {
	return decimal.NewFromFloat(p.CounterAfter).Sub(decimal.NewFromFloat(p.CounterBefore)).String()
}
