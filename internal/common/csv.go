// Package common holds the CSV export shared by the read-side commands.
package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"fjacquet/fueltrack/internal/dateutils"
	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/textutils"
	"fjacquet/fueltrack/internal/validation"

	"github.com/gocarina/gocsv"
)

// DefaultDelimiter is the export field separator.
const DefaultDelimiter = ','

// AnomalyRow is the export shape of an anomaly.
type AnomalyRow struct {
	VehicleID      string `csv:"vehicle_id"`
	Type           string `csv:"type"`
	Timestamp      string `csv:"timestamp"`
	PrevTimestamp  string `csv:"prev_timestamp"`
	Person         string `csv:"person"`
	CounterBefore  string `csv:"counter_before"`
	CounterAfter   string `csv:"counter_after"`
	QuantityBefore string `csv:"quantity_before"`
	QuantityAfter  string `csv:"quantity_after"`
	Details        string `csv:"details"`
}

// ProcessedRow is the export shape of a processed transaction.
type ProcessedRow struct {
	VehicleID      string `csv:"vehicle_id"`
	Timestamp      string `csv:"timestamp"`
	PrevTimestamp  string `csv:"prev_timestamp"`
	Person         string `csv:"person"`
	Product        string `csv:"product"`
	Quantity       string `csv:"quantity"`
	QuantityBefore string `csv:"quantity_before"`
	QuantityAfter  string `csv:"quantity_after"`
	Counter        string `csv:"counter"`
	CounterBefore  string `csv:"counter_before"`
	CounterAfter   string `csv:"counter_after"`
	CounterDelta   string `csv:"counter_delta"`
}

// SummaryRow is the export shape of a vehicle summary.
type SummaryRow struct {
	VehicleID        string `csv:"vehicle_id"`
	Transactions     int    `csv:"transactions"`
	TotalQuantity    string `csv:"total_quantity"`
	Distance         string `csv:"distance"`
	LitersPer100     string `csv:"liters_per_100"`
	Anomalies        int    `csv:"anomalies"`
	FirstTransaction string `csv:"first_transaction"`
	LastTransaction  string `csv:"last_transaction"`
}

// AnomalyRows converts anomalies to export rows.
func AnomalyRows(anomalies []models.Anomaly) []AnomalyRow {
	rows := make([]AnomalyRow, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, AnomalyRow{
			VehicleID:      a.VehicleID,
			Type:           a.Type,
			Timestamp:      dateutils.FormatTimestamp(a.Timestamp),
			PrevTimestamp:  formatOptional(a.PrevTimestamp),
			Person:         a.Person,
			CounterBefore:  textutils.FormatNumber(a.CounterBefore),
			CounterAfter:   textutils.FormatNumber(a.CounterAfter),
			QuantityBefore: textutils.FormatNumber(a.QuantityBefore),
			QuantityAfter:  textutils.FormatNumber(a.QuantityAfter),
			Details:        a.Details,
		})
	}
	return rows
}

// ProcessedRows converts processed transactions to export rows.
func ProcessedRows(processed []models.ProcessedTransaction) []ProcessedRow {
	rows := make([]ProcessedRow, 0, len(processed))
	for _, p := range processed {
		rows = append(rows, ProcessedRow{
			VehicleID:      p.VehicleID,
			Timestamp:      dateutils.FormatTimestamp(p.Timestamp),
			PrevTimestamp:  formatOptional(p.PrevTimestamp),
			Person:         p.Person,
			Product:        p.Product,
			Quantity:       textutils.FormatNumber(p.Quantity),
			QuantityBefore: textutils.FormatNumber(p.QuantityBefore),
			QuantityAfter:  textutils.FormatNumber(p.QuantityAfter),
			Counter:        textutils.FormatNumber(p.Counter),
			CounterBefore:  textutils.FormatNumber(p.CounterBefore),
			CounterAfter:   textutils.FormatNumber(p.CounterAfter),
			CounterDelta:   textutils.FormatNumber(p.CounterDelta),
		})
	}
	return rows
}

// SummaryRows converts vehicle summaries to export rows.
func SummaryRows(summaries []models.VehicleSummary) []SummaryRow {
	rows := make([]SummaryRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, SummaryRow{
			VehicleID:        s.VehicleID,
			Transactions:     s.Transactions,
			TotalQuantity:    textutils.FormatNumber(s.TotalQuantity),
			Distance:         textutils.FormatNumber(s.Distance),
			LitersPer100:     textutils.FormatNumber(s.LitersPer100),
			Anomalies:        s.Anomalies,
			FirstTransaction: dateutils.FormatTimestamp(s.FirstTransaction),
			LastTransaction:  dateutils.FormatTimestamp(s.LastTransaction),
		})
	}
	return rows
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return dateutils.FormatTimestamp(*t)
}

// WriteCSV marshals rows to w with the given delimiter. A header line is written even
// when rows is empty.
func WriteCSV[TRow any](w io.Writer, rows []TRow, delimiter rune) error {
	if rows == nil {
		rows = []TRow{}
	}
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteCSVFile writes rows to path, creating parent directories, or to stdout when path
// is empty or "-".
func WriteCSVFile[TRow any](path string, rows []TRow, delimiter rune, logger logging.Logger) error {
	logger = logging.OrDefault(logger)

	if validation.IsStdout(path) {
		return WriteCSV(os.Stdout, rows, delimiter)
	}
	if err := validation.OutputPath(path); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), models.PermissionDirectory); err != nil {
		logger.WithError(err).Error("Failed to create directory")
		return fmt.Errorf("error creating directory: %w", err)
	}

	// #nosec G304 -- output path chosen by the operator
	file, err := os.Create(path)
	if err != nil {
		logger.WithError(err).Error("Failed to create CSV file")
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	if err := WriteCSV(file, rows, delimiter); err != nil {
		logger.WithError(err).Error("Failed to marshal rows to CSV")
		return err
	}

	logger.Info("Wrote CSV file",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldCount, len(rows)))
	return nil
}
