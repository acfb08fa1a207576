package models

import (
	"fmt"
	"time"
)

// ProcessedTransaction pairs a raw transaction with the deltas computed against the
// previous transaction of the same vehicle.
type ProcessedTransaction struct {
	RawID          int64
	VehicleID      string
	Timestamp      time.Time
	PrevTimestamp  *time.Time
	Person         string
	Product        string
	Quantity       float64
	QuantityBefore float64
	QuantityAfter  float64
	Counter        float64
	CounterBefore  float64
	CounterAfter   float64
	CounterDelta   float64
}

// HasPrevious reports whether a previous transaction existed for the vehicle.
func (p ProcessedTransaction) HasPrevious() bool {
	return p.PrevTimestamp != nil
}

// Anomaly types.
const (
	AnomalyZeroQuantity     = "Zero quantity"
	AnomalyCounterDecreased = "Counter decreased"
	AnomalyCounterZero      = "Counter zero"
	AnomalyStaleCounter     = "Stale counter despite fill"
)

// AnomalyJump returns the type name of the counter jump rule for a threshold.
func AnomalyJump(threshold string) string {
	return fmt.Sprintf("Jump >%s", threshold)
}

// Anomaly is a rule hit on one processed transaction.
type Anomaly struct {
	ID             int64
	VehicleID      string
	Type           string
	Timestamp      time.Time
	PrevTimestamp  *time.Time
	Person         string
	CounterBefore  float64
	CounterAfter   float64
	QuantityBefore float64
	QuantityAfter  float64
	Details        string
}

// VehicleSummary aggregates the processed rows of one vehicle.
type VehicleSummary struct {
	VehicleID        string
	Transactions     int
	TotalQuantity    float64
	Distance         float64 // sum of positive counter deltas
	LitersPer100     float64 // zero when Distance is zero
	Anomalies        int
	FirstTransaction time.Time
	LastTransaction  time.Time
}
