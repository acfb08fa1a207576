// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	export "fjacquet/fueltrack/internal/common"
	"fjacquet/fueltrack/internal/container"
	"fjacquet/fueltrack/internal/dateutils"
	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/validation"
)

// ErrNoStorage is returned when a command needs the database but the container was
// built without one.
var ErrNoStorage = errors.New("storage is not configured for this command")

// SupportedExtensions are the file types picked up by a directory import.
var SupportedExtensions = []string{".xls", ".xlsx", ".csv", ".txt"}

// FileResult is the outcome of importing one file of a directory.
type FileResult struct {
	Path   string
	Result models.ImportResult
}

func requireStorage(c *container.Container) error {
	if c == nil || !c.HasStorage() {
		return ErrNoStorage
	}
	return nil
}

// ImportFile imports path and, unless reprocess is false, rebuilds the derived tables
// when at least one row was inserted.
func ImportFile(ctx context.Context, c *container.Container, path, label string, reprocess bool) (models.ImportResult, error) {
	if err := requireStorage(c); err != nil {
		return models.ImportResult{}, err
	}
	if err := validation.InputFile(path); err != nil {
		return models.ImportResult{Errors: []string{err.Error()}}, err
	}
	result := c.GetImporter().ImportFile(ctx, path, label)
	if !result.OK() {
		return result, fmt.Errorf("import of %s failed: %s", path, strings.Join(result.Errors, "; "))
	}
	if reprocess && result.Inserted > 0 {
		if err := c.GetProcessor().ReprocessAll(ctx); err != nil {
			return result, fmt.Errorf("reprocess after import failed: %w", err)
		}
	}
	return result, nil
}

// SupportedFiles lists the importable files directly inside dir, sorted by name.
func SupportedFiles(dir string) ([]string, error) {
	if err := validation.InputDirectory(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, supported := range SupportedExtensions {
			if ext == supported {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// ImportDirectory imports every supported file of dir one by one and reprocesses once
// at the end if anything was inserted. A failing file is logged and does not stop the
// others.
func ImportDirectory(ctx context.Context, c *container.Container, dir string) ([]FileResult, error) {
	if err := requireStorage(c); err != nil {
		return nil, err
	}
	files, err := SupportedFiles(dir)
	if err != nil {
		return nil, err
	}

	log := c.GetLogger()
	results := make([]FileResult, 0, len(files))
	inserted := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := c.GetImporter().ImportFile(ctx, path, "")
		if !result.OK() {
			log.Warn("Import failed",
				logging.F(logging.FieldFile, path),
				logging.F(logging.FieldError, strings.Join(result.Errors, "; ")))
		}
		inserted += result.Inserted
		results = append(results, FileResult{Path: path, Result: result})
	}

	if inserted > 0 {
		if err := c.GetProcessor().ReprocessAll(ctx); err != nil {
			return results, fmt.Errorf("reprocess after batch import failed: %w", err)
		}
	}
	log.Info("Batch import completed",
		logging.F(logging.FieldCount, len(files)),
		logging.F(logging.FieldInserted, inserted))
	return results, nil
}

// DeleteBatch removes one import batch and its rows, then rebuilds the derived tables.
func DeleteBatch(ctx context.Context, c *container.Container, id string) (int64, error) {
	if err := requireStorage(c); err != nil {
		return 0, err
	}
	removed, err := c.GetRepository().DeleteBatch(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := c.GetProcessor().ReprocessAll(ctx); err != nil {
		return removed, fmt.Errorf("reprocess after delete failed: %w", err)
	}
	return removed, nil
}

// ParseRange turns optional --from/--to values into inclusive bounds. An empty value
// leaves that side open; a bare date for to covers the whole day.
func ParseRange(from, to string, dayFirst bool) (time.Time, time.Time, error) {
	var lo, hi time.Time
	if strings.TrimSpace(from) != "" {
		t, err := dateutils.ParseDate(from, dayFirst)
		if err != nil {
			return lo, hi, fmt.Errorf("invalid --from date: %w", err)
		}
		lo = t
	}
	if strings.TrimSpace(to) != "" {
		t, err := dateutils.ParseDate(to, dayFirst)
		if err != nil {
			return lo, hi, fmt.Errorf("invalid --to date: %w", err)
		}
		if t.Equal(dateutils.DateOnly(t)) {
			t = dateutils.EndOfDay(t)
		}
		hi = t
	}
	if !lo.IsZero() && !hi.IsZero() && hi.Before(lo) {
		return lo, hi, fmt.Errorf("--to %s is before --from %s", dateutils.FormatTimestamp(hi), dateutils.FormatTimestamp(lo))
	}
	return lo, hi, nil
}

// ExportAnomalies writes the anomalies between from and to as CSV to output.
func ExportAnomalies(ctx context.Context, c *container.Container, from, to time.Time, output string) (int, error) {
	if err := requireStorage(c); err != nil {
		return 0, err
	}
	anomalies, err := c.GetRepository().AnomaliesBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	rows := export.AnomalyRows(anomalies)
	return len(rows), export.WriteCSVFile(output, rows, c.GetConfig().ExportDelimiter(), c.GetLogger())
}

// ExportProcessed writes the processed rows of one vehicle as CSV to output.
func ExportProcessed(ctx context.Context, c *container.Container, vehicle, output string) (int, error) {
	if err := requireStorage(c); err != nil {
		return 0, err
	}
	processed, err := c.GetRepository().ProcessedForVehicle(ctx, vehicle)
	if err != nil {
		return 0, err
	}
	rows := export.ProcessedRows(processed)
	return len(rows), export.WriteCSVFile(output, rows, c.GetConfig().ExportDelimiter(), c.GetLogger())
}

// ExportSummaries writes one consumption summary per vehicle as CSV to output.
func ExportSummaries(ctx context.Context, c *container.Container, output string) (int, error) {
	if err := requireStorage(c); err != nil {
		return 0, err
	}
	summaries, err := c.GetProcessor().Summaries(ctx)
	if err != nil {
		return 0, err
	}
	rows := export.SummaryRows(summaries)
	return len(rows), export.WriteCSVFile(output, rows, c.GetConfig().ExportDelimiter(), c.GetLogger())
}

// PrintLines writes one value per line.
func PrintLines(w io.Writer, values []string) error {
	for _, v := range values {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	return nil
}

// FormatResult renders an import result for the terminal.
func FormatResult(path string, r models.ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d inserted, %d skipped", filepath.Base(path), r.Inserted, r.Skipped)
	if !r.PeriodMin.IsZero() {
		fmt.Fprintf(&b, ", period %s to %s", dateutils.FormatTimestamp(r.PeriodMin), dateutils.FormatTimestamp(r.PeriodMax))
	}
	if r.BatchID != "" {
		fmt.Fprintf(&b, ", batch %s", r.BatchID)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\n  error: %s", e)
	}
	return b.String()
}

// FormatBatch renders one import batch as a tab-separated line.
func FormatBatch(b models.ImportBatch) string {
	return strings.Join([]string{
		b.ID,
		dateutils.FormatTimestamp(b.ImportedAt),
		fmt.Sprintf("%d", b.RowCount),
		dateutils.ToISODate(b.MinDate),
		dateutils.ToISODate(b.MaxDate),
		b.SourceName,
	}, "\t")
}
