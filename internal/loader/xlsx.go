package loader

import (
	"errors"
	"fmt"

	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/parsererror"

	"github.com/xuri/excelize/v2"
)

// xlsxStrategy reads Office Open XML workbooks.
type xlsxStrategy struct {
	dict   models.KeywordDictionary
	opts   Options
	logger logging.Logger
}

func (s *xlsxStrategy) Name() string { return StrategyXLSX }

func (s *xlsxStrategy) Load(path string) (*Table, error) {
	if err := checkSignature(path, zipSignature); err != nil {
		return nil, &parsererror.StrategyError{Strategy: s.Name(), Err: err}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &parsererror.StrategyError{Strategy: s.Name(), Err: fmt.Errorf("%w: %v", parsererror.ErrNotSpreadsheet, err)}
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close workbook")
		}
	}()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err != nil {
		s.logger.WithError(err).Warn("Failed to read workbook properties")
	} else if props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	var attempts []error
	for i, name := range f.GetSheetList() {
		if i >= s.opts.MaxSheets {
			break
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			attempts = append(attempts, &parsererror.StrategyError{Strategy: s.Name(), Sheet: i, Err: err})
			continue
		}

		t, err := scanGrid(rows, s.dict, s.opts.MaxHeaderOffset)
		if err != nil {
			attempts = append(attempts, &parsererror.StrategyError{Strategy: s.Name(), Sheet: i, Err: err})
			continue
		}
		t.Strategy = s.Name()
		t.Sheet = i
		t.SheetName = name
		t.Serials = true
		t.Date1904 = date1904
		return t, nil
	}

	if len(attempts) == 0 {
		return nil, &parsererror.StrategyError{Strategy: s.Name(), Err: errors.New("workbook has no sheets")}
	}
	return nil, errors.Join(attempts...)
}
