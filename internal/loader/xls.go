package loader

import (
	"errors"
	"fmt"
	"os"

	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/parsererror"

	"github.com/extrame/xls"
)

// xlsStrategy reads legacy BIFF (Excel 97-2003) workbooks.
type xlsStrategy struct {
	dict   models.KeywordDictionary
	opts   Options
	logger logging.Logger
}

func (s *xlsStrategy) Name() string { return StrategyXLS }

func (s *xlsStrategy) Load(path string) (table *Table, err error) {
	if err := checkOLE2Header(path); err != nil {
		return nil, &parsererror.StrategyError{Strategy: s.Name(), Err: err}
	}

	// #nosec G304 -- caller supplied import path
	file, err := os.Open(path)
	if err != nil {
		return nil, &parsererror.StrategyError{Strategy: s.Name(), Err: err}
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close file")
		}
	}()

	// the BIFF decoder panics on truncated or corrupt containers
	defer func() {
		if r := recover(); r != nil {
			table = nil
			err = &parsererror.StrategyError{
				Strategy: s.Name(),
				Err:      fmt.Errorf("%w: corrupt container: %v", parsererror.ErrNotSpreadsheet, r),
			}
		}
	}()

	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, &parsererror.StrategyError{Strategy: s.Name(), Err: fmt.Errorf("%w: %v", parsererror.ErrNotSpreadsheet, err)}
	}

	var attempts []error
	for i := 0; i < wb.NumSheets() && i < s.opts.MaxSheets; i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}

		t, err := scanGrid(sheetGrid(sheet), s.dict, s.opts.MaxHeaderOffset)
		if err != nil {
			attempts = append(attempts, &parsererror.StrategyError{Strategy: s.Name(), Sheet: i, Err: err})
			continue
		}
		t.Strategy = s.Name()
		t.Sheet = i
		t.SheetName = sheet.Name
		t.Serials = true
		return t, nil
	}

	if len(attempts) == 0 {
		return nil, &parsererror.StrategyError{Strategy: s.Name(), Err: errors.New("workbook has no sheets")}
	}
	return nil, errors.Join(attempts...)
}

func sheetGrid(sheet *xls.WorkSheet) [][]string {
	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		last := row.LastCol()
		if last <= 0 {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, last)
		first := row.FirstCol()
		if first < 0 {
			first = 0
		}
		for c := first; c < last; c++ {
			cells[c] = row.Col(c)
		}
		grid = append(grid, cells)
	}
	return grid
}
