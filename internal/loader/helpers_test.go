package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

type sheetData struct {
	name string
	rows [][]interface{}
}

func writeWorkbook(t *testing.T, path string, sheets ...sheetData) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			row := row
			require.NoError(t, f.SetSheetRow(s.name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func writeText(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func writeWindows1252(t *testing.T, path, content string) {
	t.Helper()
	encoded, err := charmap.Windows1252.NewEncoder().String(content)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0600))
}

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
