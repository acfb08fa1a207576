// Package loader turns a fuel export of unknown layout into a Table whose columns the
// mapper can resolve. It tries an ordered list of strategies (OOXML workbook, legacy
// BIFF workbook, delimited text) and stops at the first that yields the required
// columns.
package loader

import (
	"fmt"
	"strings"

	"fjacquet/fueltrack/internal/mapper"
	"fjacquet/fueltrack/internal/models"
)

// Strategy names.
const (
	StrategyXLSX = "xlsx"
	StrategyXLS  = "xls"
	StrategyCSV  = "csv"
)

// Table is a loaded header row plus data rows and how they were obtained.
type Table struct {
	Source       string
	Strategy     string
	Sheet        int
	SheetName    string
	HeaderOffset int
	Encoding     string
	Delimiter    rune
	// Serials is set when numeric cells may hold spreadsheet serial dates.
	Serials      bool
	// Date1904 is set when serial dates count from 1904-01-01.
	Date1904     bool
	Headers      []string
	Rows         [][]string
	Mapping      mapper.Result
	SkippedLines int
}

// Cell returns the trimmed cell at row, col or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Width is the number of columns of the widest row, header included.
func (t *Table) Width() int {
	return gridWidth(t.Headers, t.Rows)
}

// Describe summarizes how the table was read.
func (t *Table) Describe() string {
	switch t.Strategy {
	case StrategyCSV:
		return fmt.Sprintf("%s (encoding %s, delimiter %q)", t.Strategy, t.Encoding, t.Delimiter)
	default:
		return fmt.Sprintf("%s (sheet %d %q, header row %d)", t.Strategy, t.Sheet, t.SheetName, t.HeaderOffset)
	}
}

// MissingColumnsError reports a header row that did not resolve the required fields.
type MissingColumnsError struct {
	Headers []string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("required columns missing: %s (headers: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Headers, " | "))
}

// ShapeError reports a grid too small to be a transaction table.
type ShapeError struct {
	Columns, Rows int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("table too small: %d columns, %d data rows (need at least %d and %d)",
		e.Columns, e.Rows, minColumns, minRows)
}

const (
	minColumns = 3
	minRows    = 1
)

// scanGrid tries header rows 0..maxOffset of grid and returns the first that maps the
// required fields.
func scanGrid(grid [][]string, dict models.KeywordDictionary, maxOffset int) (*Table, error) {
	var firstErr error
	for offset := 0; offset <= maxOffset && offset < len(grid); offset++ {
		headers := trimAll(grid[offset])
		rows := nonBlankRows(grid[offset+1:])

		width := gridWidth(headers, rows)
		if width < minColumns || len(rows) < minRows {
			if firstErr == nil {
				firstErr = &ShapeError{Columns: width, Rows: len(rows)}
			}
			continue
		}

		result := mapper.Map(headers, dict)
		if !result.HasRequired() {
			if _, isShape := firstErr.(*ShapeError); firstErr == nil || isShape {
				firstErr = &MissingColumnsError{Headers: headers, Missing: result.Missing()}
			}
			continue
		}

		return &Table{HeaderOffset: offset, Headers: headers, Rows: rows, Mapping: result}, nil
	}
	if firstErr == nil {
		firstErr = &ShapeError{}
	}
	return nil, firstErr
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func nonBlankRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func gridWidth(headers []string, rows [][]string) int {
	width := len(headers)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}
