package loader

import (
	"context"
	"errors"
	"testing"

	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/parsererror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestLoader(logger logging.Logger) *Loader {
	return New(models.DefaultKeywordDictionary(), DefaultOptions(), logger)
}

func TestLoad_XLSXWithTitleRows(t *testing.T) {
	path := tempPath(t, "export.xlsx")
	writeWorkbook(t, path, sheetData{name: "Transactions", rows: [][]interface{}{
		{"Rapport carburant janvier"},
		{},
		{"Date", "Heure", "N° Parc", "Quantité", "Compteur"},
		{"15/01/2024", "08:30", "V1", 45.5, 12000},
		{"16/01/2024", "09:00", "V2", 30, 8000},
	}})

	table, err := newTestLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, StrategyXLSX, table.Strategy)
	assert.Equal(t, 0, table.Sheet)
	assert.Equal(t, "Transactions", table.SheetName)
	assert.Equal(t, 2, table.HeaderOffset)
	assert.True(t, table.Serials)
	assert.False(t, table.Date1904)
	assert.Equal(t, path, table.Source)
	assert.Equal(t, []string{"Date", "Heure", "N° Parc", "Quantité", "Compteur"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "V1", table.Cell(0, 2))
	assert.Equal(t, "45.5", table.Cell(0, 3))
	assert.Equal(t, "", table.Cell(0, 42))
	assert.True(t, table.Mapping.HasRequired())
}

func TestLoad_XLSX1904DateSystem(t *testing.T) {
	path := tempPath(t, "mac.xlsx")
	writeWorkbook(t, path, sheetData{name: "Transactions", rows: [][]interface{}{
		{"Date", "Parc", "Quantité"},
		{43844, "V1", 40},
	}})

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	date1904 := true
	require.NoError(t, f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &date1904}))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	table, err := newTestLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, table.Serials)
	assert.True(t, table.Date1904)
	assert.Equal(t, "43844", table.Cell(0, 0))
}

func TestLoad_XLSXSecondSheet(t *testing.T) {
	path := tempPath(t, "export.xlsx")
	writeWorkbook(t, path,
		sheetData{name: "Notes", rows: [][]interface{}{{"Exported by pump controller", "v2", "x"}, {"a", "b", "c"}}},
		sheetData{name: "Data", rows: [][]interface{}{
			{"Véhicule", "Date", "Litres"},
			{"V9", "01/02/2024", 20},
		}},
	)

	table, err := newTestLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, table.Sheet)
	assert.Equal(t, "Data", table.SheetName)
	assert.Equal(t, 0, table.HeaderOffset)
}

func TestLoad_XLSXHeaderBeyondSearchWindow(t *testing.T) {
	rows := [][]interface{}{}
	for i := 0; i < 6; i++ {
		rows = append(rows, []interface{}{"filler", "filler", "filler"})
	}
	rows = append(rows, []interface{}{"Date", "Parc", "Quantité"}, []interface{}{"15/01/2024", "V1", 10})
	path := tempPath(t, "deep.xlsx")
	writeWorkbook(t, path, sheetData{name: "S", rows: rows})

	_, err := newTestLoader(nil).Load(context.Background(), path)

	var unparsable *parsererror.UnparsableSourceError
	require.ErrorAs(t, err, &unparsable)
	assert.Equal(t, []string{"filler", "filler", "filler"}, unparsable.Headers)
	assert.Equal(t, models.RequiredFields, unparsable.Required)
}

func TestLoad_MislabeledXLSIsReadAsText(t *testing.T) {
	path := tempPath(t, "madic.xls")
	writeWindows1252(t, path, "Date\tHeure\tVéhicule\tPersonne\tQuantité\tCompteur\r\n"+
		"15/01/2024\t08:30\tV1\tJérôme\t45,5\t12000\r\n"+
		"15/01/2024\t09:10\tV2\tAnaïs\t30,0\t8000\r\n")
	logger := logging.NewMockLogger()

	table, err := newTestLoader(logger).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, StrategyCSV, table.Strategy)
	assert.Equal(t, "windows-1252", table.Encoding)
	assert.Equal(t, '\t', table.Delimiter)
	assert.False(t, table.Serials)
	assert.Equal(t, "Véhicule", table.Headers[2])
	assert.Equal(t, "Jérôme", table.Cell(0, 3))
	assert.True(t, logger.HasEntry("INFO", "Legacy workbook signature not found, reading as delimited text"))
}

func TestLoad_UTF8WithBOMAndSemicolons(t *testing.T) {
	path := tempPath(t, "export.csv")
	writeText(t, path, "\ufeffDate;Parc;Quantité;Compteur\n15/01/2024 08:30;V1;45,5;12000\n")

	table, err := newTestLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "utf-8", table.Encoding)
	assert.Equal(t, ';', table.Delimiter)
	assert.Equal(t, "Date", table.Headers[0])
}

func TestLoad_TextSkipsMalformedLines(t *testing.T) {
	path := tempPath(t, "export.csv")
	writeText(t, path, "Date,Parc,Quantite\n"+
		"15/01/2024,V1,10\n"+
		"15/01/2024,V2,10,extra,fields\n"+
		"16/01/2024,V3\n")

	table, err := newTestLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, ',', table.Delimiter)
	assert.Equal(t, 1, table.SkippedLines)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "V3", table.Cell(1, 1))
	assert.Equal(t, "", table.Cell(1, 2))
}

func TestLoad_TextWithoutRecognizableHeader(t *testing.T) {
	path := tempPath(t, "export.csv")
	writeText(t, path, "Foo;Bar;Baz\n1;2;3\n")

	_, err := newTestLoader(nil).Load(context.Background(), path)

	var unparsable *parsererror.UnparsableSourceError
	require.ErrorAs(t, err, &unparsable)
	assert.Nil(t, unparsable.Headers)
	assert.Len(t, unparsable.Attempts, 1)
}

func TestLoad_ReportsHeadersFound(t *testing.T) {
	path := tempPath(t, "export.csv")
	writeText(t, path, "Date;Montant;Libellé\n15/01/2024;10;x\n")

	_, err := newTestLoader(nil).Load(context.Background(), path)

	var unparsable *parsererror.UnparsableSourceError
	require.ErrorAs(t, err, &unparsable)
	assert.Equal(t, []string{"Date", "Montant", "Libellé"}, unparsable.Headers)
	assert.Contains(t, err.Error(), "Date, Montant, Libellé")

	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"vehicle_id"}, missing.Missing)
}

func TestLoad_BinaryWithLegacyName(t *testing.T) {
	path := tempPath(t, "broken.xls")
	writeText(t, path, string([]byte{0x00, 0x01, 0xFE, 0x42, 0x13, 0x37, 0x00, 0x00, 0x9A}))

	_, err := newTestLoader(nil).Load(context.Background(), path)

	var unparsable *parsererror.UnparsableSourceError
	require.ErrorAs(t, err, &unparsable)
	assert.ErrorIs(t, err, parsererror.ErrNotSpreadsheet)

	var strategyErr *parsererror.StrategyError
	require.ErrorAs(t, err, &strategyErr)
	assert.Equal(t, StrategyXLS, strategyErr.Strategy)
}

func TestLoad_TruncatedLegacyContainer(t *testing.T) {
	path := tempPath(t, "truncated.xls")
	content := append([]byte{}, ole2Signature...)
	content = append(content, make([]byte, 24)...)
	writeText(t, path, string(content))

	_, err := newTestLoader(nil).Load(context.Background(), path)

	var unparsable *parsererror.UnparsableSourceError
	require.ErrorAs(t, err, &unparsable)
	assert.ErrorIs(t, err, parsererror.ErrNotSpreadsheet)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := newTestLoader(nil).Load(context.Background(), tempPath(t, "nope.xlsx"))

	require.Error(t, err)
	var unparsable *parsererror.UnparsableSourceError
	assert.False(t, errors.As(err, &unparsable))
}

func TestLoad_CancelledContext(t *testing.T) {
	path := tempPath(t, "export.csv")
	writeText(t, path, "Date;Parc;Quantite\n15/01/2024;V1;1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader(nil).Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlan(t *testing.T) {
	l := newTestLoader(nil)

	names := func(path string) []string {
		var out []string
		for _, s := range l.Plan(path) {
			out = append(out, s.Name())
		}
		return out
	}

	assert.Equal(t, []string{StrategyXLS, StrategyXLSX, StrategyCSV}, names("a.XLS"))
	assert.Equal(t, []string{StrategyXLSX, StrategyXLS}, names("a.xlsx"))
	assert.Equal(t, []string{StrategyCSV}, names("a.csv"))
	assert.Equal(t, []string{StrategyXLSX, StrategyXLS, StrategyCSV}, names("export"))
}

func TestScanGrid_Shape(t *testing.T) {
	_, err := scanGrid([][]string{{"Date", "Parc"}, {"15/01/2024", "V1"}}, models.DefaultKeywordDictionary(), 5)
	var shape *ShapeError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, 2, shape.Columns)

	_, err = scanGrid([][]string{{"Date", "Parc", "Quantite"}, {"", "", ""}}, models.DefaultKeywordDictionary(), 5)
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, 0, shape.Rows)
}
