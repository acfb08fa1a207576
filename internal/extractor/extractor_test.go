package extractor

import (
	"testing"
	"time"

	"fjacquet/fueltrack/internal/loader"
	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/mapper"
	"fjacquet/fueltrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(serials bool, headers []string, rows ...[]string) *loader.Table {
	return &loader.Table{
		Source:   "test.xlsx",
		Strategy: loader.StrategyXLSX,
		Serials:  serials,
		Headers:  headers,
		Rows:     rows,
		Mapping:  mapper.Map(headers, models.DefaultKeywordDictionary()),
	}
}

func ts(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestRecords_TextCells(t *testing.T) {
	table := newTable(false,
		[]string{"Date", "Heure", "N° Parc", "Conducteur", "Produit", "Quantité", "Compteur", "Unité"},
		[]string{"15/01/2024", "08:30", "V1", "Alice", "Diesel", "45,5", "12 000", ""},
		[]string{"16/01/2024", "", " V2 ", "Bob", "Essence", "30", "8000", "gal"},
	)

	txs := New(table, nil).Collect()
	require.Len(t, txs, 2)

	assert.Equal(t, ts(2024, 1, 15, 8, 30, 0), txs[0].Timestamp)
	assert.Equal(t, "V1", txs[0].VehicleID)
	assert.Equal(t, "Alice", txs[0].Person)
	assert.Equal(t, "Diesel", txs[0].Product)
	assert.InDelta(t, 45.5, txs[0].Quantity, 1e-9)
	assert.InDelta(t, 12000, txs[0].Counter, 1e-9)
	assert.Equal(t, models.DefaultUnit, txs[0].Unit)

	assert.Equal(t, ts(2024, 1, 16, 0, 0, 0), txs[1].Timestamp)
	assert.Equal(t, "V2", txs[1].VehicleID)
	assert.Equal(t, "gal", txs[1].Unit)
}

func TestRecords_SerialCells(t *testing.T) {
	table := newTable(true,
		[]string{"Date", "Heure", "Parc", "Quantité"},
		[]string{"45306", "0.354166666666667", "V1", "10"},
		[]string{"45307.5", "", "V1", "12"},
	)

	txs := New(table, nil).Collect()
	require.Len(t, txs, 2)
	assert.Equal(t, ts(2024, 1, 15, 8, 30, 0), txs[0].Timestamp)
	assert.Equal(t, ts(2024, 1, 16, 12, 0, 0), txs[1].Timestamp)
}

func TestRecords_SerialCellsDateSystem(t *testing.T) {
	tests := []struct {
		name     string
		date1904 bool
		serial   string
		want     time.Time
	}{
		{"1900 workbook", false, "45306", ts(2024, 1, 15, 8, 30, 0)},
		{"1904 workbook", true, "43844", ts(2024, 1, 15, 8, 30, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTable(true,
				[]string{"Date", "Heure", "Parc", "Quantité"},
				[]string{tt.serial, "0.354166666666667", "V1", "10"},
			)
			table.Date1904 = tt.date1904

			txs := New(table, nil).Collect()
			require.Len(t, txs, 1)
			assert.Equal(t, tt.want, txs[0].Timestamp)
		})
	}
}

func TestRecords_TimeColumnVariants(t *testing.T) {
	tests := []struct {
		name    string
		clock   string
		want    time.Time
		dropped bool
	}{
		{name: "clock", clock: "7:05:09", want: ts(2024, 3, 2, 7, 5, 9)},
		{name: "out of range clamps", clock: "25:70", want: ts(2024, 3, 2, 23, 59, 0)},
		{name: "no colon keeps date", clock: "matin", want: ts(2024, 3, 2, 0, 0, 0)},
		{name: "full datetime keeps clock", clock: "1899-12-30 14:15:00", want: ts(2024, 3, 2, 14, 15, 0)},
		{name: "garbage with colon drops row", clock: "ab:cd", dropped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTable(false,
				[]string{"Date", "Heure", "Parc", "Quantité"},
				[]string{"02/03/2024", tt.clock, "V1", "10"},
			)
			e := New(table, nil)
			txs := e.Collect()
			if tt.dropped {
				assert.Empty(t, txs)
				assert.Equal(t, 1, e.Dropped())
				return
			}
			require.Len(t, txs, 1)
			assert.Equal(t, tt.want, txs[0].Timestamp)
		})
	}
}

func TestRecords_DateCarriesClock(t *testing.T) {
	table := newTable(false,
		[]string{"Date", "Parc", "Quantité"},
		[]string{"2024-01-15T10:20:30", "V1", "10"},
		[]string{"15/01/2024 11:00", "V1", "10"},
	)

	txs := New(table, nil).Collect()
	require.Len(t, txs, 2)
	assert.Equal(t, ts(2024, 1, 15, 10, 20, 30), txs[0].Timestamp)
	assert.Equal(t, ts(2024, 1, 15, 11, 0, 0), txs[1].Timestamp)
}

func TestRecords_ClaimedDateClockIsNotOverwritten(t *testing.T) {
	// time's first match is the date column, so "Heure fin" is never read.
	table := newTable(false,
		[]string{"Date/Heure", "N° Parc", "Heure fin", "Quantité", "Compteur"},
		[]string{"01/02/2025 08:30", "V1", "17:45", "10", "100"},
	)
	_, hasTime := table.Mapping.Index(models.FieldTime)
	require.False(t, hasTime)

	txs := New(table, nil).Collect()
	require.Len(t, txs, 1)
	assert.Equal(t, ts(2025, 2, 1, 8, 30, 0), txs[0].Timestamp)
	assert.Equal(t, "V1", txs[0].VehicleID)
}

func TestRecords_CombinedColumn(t *testing.T) {
	dict, err := models.NewKeywordDictionary([]models.KeywordEntry{
		{Field: models.FieldDate, Keywords: []string{"jour"}},
		{Field: models.FieldVehicleID, Keywords: []string{"parc"}},
		{Field: models.FieldQuantity, Keywords: []string{"quantite"}},
	}, nil, nil)
	require.NoError(t, err)

	headers := []string{"Date/Heure", "Parc", "Quantité"}
	table := &loader.Table{
		Headers: headers,
		Rows:    [][]string{{"15/01/2024 08:30", "V1", "10"}},
		Mapping: mapper.Map(headers, dict),
	}
	_, combined := table.Mapping.Index(models.FieldDateTimeCombined)
	require.True(t, combined)

	txs := New(table, nil).Collect()
	require.Len(t, txs, 1)
	assert.Equal(t, ts(2024, 1, 15, 8, 30, 0), txs[0].Timestamp)
}

func TestRecords_MonthFirst(t *testing.T) {
	table := newTable(false,
		[]string{"Date", "Parc", "Quantité"},
		[]string{"01/02/2024", "V1", "10"},
	)

	dayFirst := New(table, nil).Collect()
	monthFirst := New(table, nil, WithDayFirst(false)).Collect()

	require.Len(t, dayFirst, 1)
	require.Len(t, monthFirst, 1)
	assert.Equal(t, time.February, dayFirst[0].Timestamp.Month())
	assert.Equal(t, time.January, monthFirst[0].Timestamp.Month())
}

func TestRecords_DropsUnusableRows(t *testing.T) {
	table := newTable(false,
		[]string{"Date", "Parc", "Quantité", "Compteur"},
		[]string{"", "V1", "10", "100"},
		[]string{"pas une date", "V1", "10", "100"},
		[]string{"15/01/2024", "", "10", "100"},
		[]string{"15/01/2024", "nan", "10", "100"},
		[]string{"15/01/2024", "None", "10", "100"},
		[]string{"15/01/2024", "V1", "abc", ""},
	)
	logger := logging.NewMockLogger()

	e := New(table, logger)
	txs := e.Collect()

	require.Len(t, txs, 1)
	assert.Equal(t, 0.0, txs[0].Quantity)
	assert.Equal(t, 0.0, txs[0].Counter)
	assert.Equal(t, 1, e.Extracted())
	assert.Equal(t, 5, e.Dropped())
	assert.True(t, logger.HasEntry("INFO", "Extracted transactions"))
	dropped, ok := logger.FieldValue("Extracted transactions", logging.FieldDropped)
	require.True(t, ok)
	assert.Equal(t, 5, dropped)
}

func TestRecords_TruncatesText(t *testing.T) {
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	table := newTable(false,
		[]string{"Date", "Parc", "Conducteur", "Unité"},
		[]string{"15/01/2024", string(long), string(long), string(long)},
	)

	txs := New(table, nil).Collect()
	require.Len(t, txs, 1)
	assert.Len(t, txs[0].VehicleID, models.MaxVehicleIDLength)
	assert.Len(t, txs[0].Person, models.MaxTextLength)
	assert.Len(t, txs[0].Unit, models.MaxUnitLength)
}

func TestRecords_SingleUse(t *testing.T) {
	table := newTable(false,
		[]string{"Date", "Parc", "Quantité"},
		[]string{"15/01/2024", "V1", "10"},
		[]string{"16/01/2024", "V1", "10"},
	)
	e := New(table, nil)

	first := 0
	for range e.Records() {
		first++
		break
	}
	assert.Equal(t, 1, first)
	assert.Empty(t, e.Collect())
	assert.Equal(t, 1, e.Extracted())
}
