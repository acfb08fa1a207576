package models

import (
	"time"
)

// Transaction is one fuel dispensing event as read from an export. Timestamp and
// VehicleID are always set; other fields default to "" or 0.
type Transaction struct {
	ID             int64
	BatchID        string // empty for rows imported before batches were tracked
	Timestamp      time.Time
	VehicleID      string
	VehicleService string
	Person         string
	PersonService  string
	Product        string
	Quantity       float64
	Counter        float64
	Unit           string
	ImportedAt     time.Time
}

// TransactionKey is the deduplication identity of a transaction. The instant is kept
// as seconds plus nanoseconds so dates past 2262 do not overflow.
type TransactionKey struct {
	Seconds   int64
	Nanos     int
	VehicleID string
}

// Key returns the identity key of t.
func (t Transaction) Key() TransactionKey {
	return NewTransactionKey(t.Timestamp, t.VehicleID)
}

// NewTransactionKey builds a key from its parts.
func NewTransactionKey(ts time.Time, vehicleID string) TransactionKey {
	u := ts.UTC()
	return TransactionKey{Seconds: u.Unix(), Nanos: u.Nanosecond(), VehicleID: vehicleID}
}

// KeySet is a set of transaction keys.
type KeySet map[TransactionKey]struct{}

// Has reports whether k is in the set.
func (s KeySet) Has(k TransactionKey) bool {
	_, ok := s[k]
	return ok
}

// Add inserts k.
func (s KeySet) Add(k TransactionKey) {
	s[k] = struct{}{}
}
