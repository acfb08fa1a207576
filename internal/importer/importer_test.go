package importer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fjacquet/fueltrack/internal/loader"
	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/mapper"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/parsererror"
	"fjacquet/fueltrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

type stubLoader struct {
	table *loader.Table
	err   error
}

func (s *stubLoader) Load(_ context.Context, path string) (*loader.Table, error) {
	if s.err != nil {
		return nil, s.err
	}
	t := *s.table
	t.Source = path
	return &t, nil
}

type failingRepo struct {
	storage.Repository
	err error
}

func (f *failingRepo) InsertBatch(context.Context, models.ImportBatch, []models.Transaction) error {
	return f.err
}

func table(headers []string, rows ...[]string) *loader.Table {
	return &loader.Table{
		Strategy: loader.StrategyCSV,
		Headers:  headers,
		Rows:     rows,
		Mapping:  mapper.Map(headers, models.DefaultKeywordDictionary()),
	}
}

func newImporter(l TableLoader, repo storage.Repository, logger logging.Logger) *Importer {
	n := 0
	return New(l, repo, logger,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return []string{"batch-1", "batch-2", "batch-3"}[n-1]
		}))
}

var fuelHeaders = []string{"Date", "Heure", "Parc", "Conducteur", "Quantité", "Compteur"}

func TestImport_ScenarioA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "janvier.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Date", "N° Parc", "Quantité", "Compteur"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"01/02/2025", "H56-001", 45.5, 125000}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	repo := storage.NewMemoryRepository()
	l := loader.New(models.DefaultKeywordDictionary(), loader.DefaultOptions(), logging.NewMockLogger())
	imp := newImporter(l, repo, logging.NewMockLogger())

	result, err := imp.Import(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, "batch-1", result.BatchID)

	all, err := repo.AllTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	tx := all[0]
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), tx.Timestamp)
	assert.Equal(t, "H56-001", tx.VehicleID)
	assert.InDelta(t, 45.5, tx.Quantity, 1e-9)
	assert.InDelta(t, 125000.0, tx.Counter, 1e-9)
	assert.Equal(t, "batch-1", tx.BatchID)
	assert.Equal(t, fixedNow, tx.ImportedAt)

	batches, err := repo.ListBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "janvier.xlsx", batches[0].SourceName)
}

func TestImport_ReimportSkipsEverything(t *testing.T) {
	repo := storage.NewMemoryRepository()
	l := &stubLoader{table: table(fuelHeaders,
		[]string{"15/01/2024", "08:00", "V1", "Alice", "40", "1000"},
		[]string{"16/01/2024", "09:00", "V1", "Alice", "35", "1300"},
		[]string{"16/01/2024", "10:00", "V2", "Bob", "20", "500"},
	)}
	imp := newImporter(l, repo, nil)
	ctx := context.Background()

	first, err := imp.Import(ctx, "fuel.csv", "janvier")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), first.PeriodMin)
	assert.Equal(t, time.Date(2024, 1, 16, 10, 0, 0, 0, time.UTC), first.PeriodMax)

	second, err := imp.Import(ctx, "fuel.csv", "janvier")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Skipped)
	assert.Empty(t, second.BatchID)
	assert.Equal(t, first.PeriodMin, second.PeriodMin)
	assert.Equal(t, first.PeriodMax, second.PeriodMax)

	batches, err := repo.ListBatches(ctx)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
	assert.Equal(t, "janvier", batches[0].SourceName)
}

func TestImport_InFileDuplicates(t *testing.T) {
	repo := storage.NewMemoryRepository()
	l := &stubLoader{table: table(fuelHeaders,
		[]string{"15/01/2024", "08:00", "V1", "Alice", "40", "1000"},
		[]string{"15/01/2024", "08:00", "V1", "Alice", "41", "1001"},
		[]string{"15/01/2024", "08:00", "V2", "Alice", "41", "1001"},
	)}

	result, err := newImporter(l, repo, nil).Import(context.Background(), "dup.csv", "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Skipped)

	v1, err := repo.TransactionsForVehicle(context.Background(), "V1")
	require.NoError(t, err)
	require.Len(t, v1, 1)
	assert.InDelta(t, 40, v1[0].Quantity, 1e-9)
}

func TestImport_AccountingMatchesExtraction(t *testing.T) {
	rows := [][]string{
		{"15/01/2024", "08:00", "V1", "", "40", "1000"},
		{"", "08:00", "V1", "", "40", "1000"},
		{"16/01/2024", "08:00", "", "", "40", "1000"},
		{"17/01/2024", "08:00", "V1", "", "40", "1000"},
		{"15/01/2024", "08:00", "V1", "", "40", "1000"},
	}
	repo := storage.NewMemoryRepository()
	imp := newImporter(&stubLoader{table: table(fuelHeaders, rows...)}, repo, nil)

	result, err := imp.Import(context.Background(), "mixed.csv", "")
	require.NoError(t, err)
	// two rows are dropped by extraction, three are yielded
	assert.Equal(t, 3, result.Inserted+result.Skipped)
	assert.Equal(t, 2, result.Inserted)
}

func TestImport_NoValidRows(t *testing.T) {
	repo := storage.NewMemoryRepository()
	l := &stubLoader{table: table(fuelHeaders,
		[]string{"", "", "V1", "", "40", "1000"},
		[]string{"15/01/2024", "", "nan", "", "40", "1000"},
	)}
	imp := newImporter(l, repo, nil)

	_, err := imp.Import(context.Background(), "empty.csv", "")
	var noRows *parsererror.NoValidRowsError
	require.ErrorAs(t, err, &noRows)
	assert.Equal(t, "empty.csv", noRows.FilePath)

	result := imp.ImportFile(context.Background(), "empty.csv", "")
	assert.False(t, result.OK())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no valid rows")

	batches, err := repo.ListBatches(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestImport_UnparsableSource(t *testing.T) {
	unparsable := &parsererror.UnparsableSourceError{FilePath: "bad.xls", Required: models.RequiredFields}
	imp := newImporter(&stubLoader{err: unparsable}, storage.NewMemoryRepository(), nil)

	_, err := imp.Import(context.Background(), "bad.xls", "")
	assert.ErrorIs(t, err, unparsable)

	result := imp.ImportFile(context.Background(), "bad.xls", "")
	require.Len(t, result.Errors, 1)
	assert.Equal(t, unparsable.Error(), result.Errors[0])
	assert.Zero(t, result.Inserted)
}

func TestImport_StorageErrorPropagates(t *testing.T) {
	diskFull := errors.New("disk full")
	repo := &failingRepo{Repository: storage.NewMemoryRepository(), err: diskFull}
	l := &stubLoader{table: table(fuelHeaders, []string{"15/01/2024", "08:00", "V1", "", "40", "1000"})}

	_, err := newImporter(l, repo, nil).Import(context.Background(), "fuel.csv", "")
	assert.Same(t, diskFull, err)

	keys, kerr := repo.ExistingKeys(context.Background())
	require.NoError(t, kerr)
	assert.Empty(t, keys)
}

func TestImport_LogsOutcome(t *testing.T) {
	logger := logging.NewMockLogger()
	l := &stubLoader{table: table(fuelHeaders, []string{"15/01/2024", "08:00", "V1", "", "40", "1000"})}

	_, err := newImporter(l, storage.NewMemoryRepository(), logger).Import(context.Background(), "fuel.csv", "")
	require.NoError(t, err)

	assert.True(t, logger.HasEntry("INFO", "Imported transactions"))
	inserted, ok := logger.FieldValue("Imported transactions", logging.FieldInserted)
	require.True(t, ok)
	assert.Equal(t, 1, inserted)
}

func TestImport_MonthFirst(t *testing.T) {
	repo := storage.NewMemoryRepository()
	l := &stubLoader{table: table(fuelHeaders, []string{"02/01/2024", "", "V1", "", "40", "1000"})}

	imp := New(l, repo, nil, WithDayFirst(false))
	result, err := imp.Import(context.Background(), "us.csv", "")
	require.NoError(t, err)
	assert.Equal(t, time.February, result.PeriodMin.Month())
	assert.NotEmpty(t, result.BatchID)
}
