// Package extractor walks a loaded table and yields normalized transactions.
package extractor

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"fjacquet/fueltrack/internal/dateutils"
	"fjacquet/fueltrack/internal/loader"
	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/textutils"
)

// Option configures an Extractor.
type Option func(*Extractor)

// WithDayFirst selects day-first (default) or month-first reading of numeric dates.
func WithDayFirst(dayFirst bool) Option {
	return func(e *Extractor) { e.dayFirst = dayFirst }
}

// Extractor converts table rows to transactions. Rows without a usable timestamp or
// vehicle id are dropped; other defects degrade to defaults.
type Extractor struct {
	table    *loader.Table
	logger   logging.Logger
	dayFirst bool

	consumed  bool
	extracted int
	dropped   int
}

// New creates an Extractor over table.
func New(table *loader.Table, logger logging.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		table:    table,
		logger:   logging.OrDefault(logger),
		dayFirst: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Records yields one transaction per usable row, in table order. The sequence can be
// consumed once; later calls yield nothing.
func (e *Extractor) Records() iter.Seq[models.Transaction] {
	return func(yield func(models.Transaction) bool) {
		if e.consumed {
			return
		}
		e.consumed = true
		defer e.logSummary()

		for i := range e.table.Rows {
			tx, err := e.extract(i)
			if err != nil {
				e.dropped++
				e.logger.Debug("Row dropped",
					logging.F("row", i+1),
					logging.F(logging.FieldError, err.Error()))
				continue
			}
			e.extracted++
			if !yield(tx) {
				return
			}
		}
	}
}

// Collect drains Records into a slice.
func (e *Extractor) Collect() []models.Transaction {
	var out []models.Transaction
	for tx := range e.Records() {
		out = append(out, tx)
	}
	return out
}

// Extracted is the number of rows yielded so far.
func (e *Extractor) Extracted() int { return e.extracted }

// Dropped is the number of rows discarded so far.
func (e *Extractor) Dropped() int { return e.dropped }

func (e *Extractor) logSummary() {
	e.logger.Info("Extracted transactions",
		logging.F(logging.FieldFile, e.table.Source),
		logging.F(logging.FieldCount, e.extracted),
		logging.F(logging.FieldDropped, e.dropped))
}

var errMissingVehicle = errors.New("missing vehicle id")

func (e *Extractor) extract(row int) (models.Transaction, error) {
	ts, err := e.timestamp(row)
	if err != nil {
		return models.Transaction{}, err
	}

	vehicle := e.cell(row, models.FieldVehicleID)
	if isBlank(vehicle) {
		return models.Transaction{}, errMissingVehicle
	}

	return models.Transaction{
		Timestamp:      ts,
		VehicleID:      textutils.Truncate(vehicle, models.MaxVehicleIDLength),
		VehicleService: e.text(row, models.FieldVehicleService, models.MaxTextLength),
		Person:         e.text(row, models.FieldPerson, models.MaxTextLength),
		PersonService:  e.text(row, models.FieldPersonService, models.MaxTextLength),
		Product:        e.text(row, models.FieldProduct, models.MaxTextLength),
		Quantity:       textutils.ParseFloat(e.cell(row, models.FieldQuantity)),
		Counter:        textutils.ParseFloat(e.cell(row, models.FieldCounter)),
		Unit:           e.unit(row),
	}, nil
}

func (e *Extractor) cell(row int, f models.Field) string {
	idx, ok := e.table.Mapping.Index(f)
	if !ok {
		return ""
	}
	return e.table.Cell(row, idx)
}

func (e *Extractor) text(row int, f models.Field, max int) string {
	v := e.cell(row, f)
	if isBlank(v) {
		return ""
	}
	return textutils.CleanText(v, max)
}

func (e *Extractor) unit(row int) string {
	if u := e.text(row, models.FieldUnit, models.MaxUnitLength); u != "" {
		return u
	}
	return models.DefaultUnit
}

// timestamp resolves the row's date and optional time of day.
func (e *Extractor) timestamp(row int) (time.Time, error) {
	if _, ok := e.table.Mapping.Index(models.FieldDateTimeCombined); ok {
		return e.parseDateCell(e.cell(row, models.FieldDateTimeCombined))
	}

	day, err := e.parseDateCell(e.cell(row, models.FieldDate))
	if err != nil {
		return time.Time{}, err
	}

	clockText := e.cell(row, models.FieldTime)
	if isBlank(clockText) {
		return day, nil
	}

	clock, ok, err := e.parseClockCell(clockText)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return day, nil
	}
	return dateutils.Combine(day, clock), nil
}

func (e *Extractor) parseDateCell(v string) (time.Time, error) {
	if isBlank(v) {
		return time.Time{}, errors.New("missing date")
	}
	if e.table.Serials {
		if serial, err := strconv.ParseFloat(v, 64); err == nil {
			return dateutils.FromSerial(serial, e.table.Date1904)
		}
	}
	return dateutils.ParseDate(v, e.dayFirst)
}

// parseClockCell reads a time-of-day cell. ok is false when the cell carries no
// clock component, in which case the date stands alone.
func (e *Extractor) parseClockCell(v string) (dateutils.Clock, bool, error) {
	if e.table.Serials {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return dateutils.ClockFromFraction(f), true, nil
		}
	}
	if !strings.Contains(v, ":") {
		return dateutils.Clock{}, false, nil
	}

	// a full date-time rendered in the time column keeps only its clock
	if t, err := dateutils.ParseDate(v, e.dayFirst); err == nil && strings.ContainsAny(v, "-/") {
		return dateutils.Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, true, nil
	}

	clock, err := dateutils.ParseClock(v)
	if err != nil {
		return dateutils.Clock{}, false, fmt.Errorf("time %q: %w", v, err)
	}
	return clock, true, nil
}

// isBlank treats empty cells and the textual null markers some exports emit as missing.
func isBlank(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "none":
		return true
	}
	return false
}
