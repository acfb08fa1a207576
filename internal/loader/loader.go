package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/parsererror"
)

// Strategy is one way of reading a file into a Table.
type Strategy interface {
	Name() string
	Load(path string) (*Table, error)
}

// Options bound the spreadsheet search.
type Options struct {
	MaxSheets       int
	MaxHeaderOffset int
}

// DefaultOptions are the first two sheets and header rows 0 to 5.
func DefaultOptions() Options {
	return Options{MaxSheets: 2, MaxHeaderOffset: 5}
}

// Loader picks the strategies for a file and runs them in order.
type Loader struct {
	xlsx   Strategy
	xls    Strategy
	text   Strategy
	logger logging.Logger
}

// New creates a Loader using dict to recognize header rows.
func New(dict models.KeywordDictionary, opts Options, logger logging.Logger) *Loader {
	logger = logging.OrDefault(logger)
	if opts.MaxSheets < 1 {
		opts.MaxSheets = 1
	}
	if opts.MaxHeaderOffset < 0 {
		opts.MaxHeaderOffset = 0
	}
	return &Loader{
		xlsx:   &xlsxStrategy{dict: dict, opts: opts, logger: logger},
		xls:    &xlsStrategy{dict: dict, opts: opts, logger: logger},
		text:   &textStrategy{dict: dict, logger: logger},
		logger: logger,
	}
}

// Plan returns the strategies tried for path, in order.
func (l *Loader) Plan(path string) []Strategy {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls":
		return []Strategy{l.xls, l.xlsx, l.text}
	case ".xlsx", ".xlsm":
		return []Strategy{l.xlsx, l.xls}
	case ".csv", ".txt", ".tsv":
		return []Strategy{l.text}
	default:
		return []Strategy{l.xlsx, l.xls, l.text}
	}
}

// Load reads path with the first strategy whose table resolves the required columns.
// An .xls file whose bytes are not a BIFF container goes to delimited text right away.
func (l *Loader) Load(ctx context.Context, path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}

	plan := l.Plan(path)
	legacyName := strings.EqualFold(filepath.Ext(path), ".xls")
	log := l.logger.WithField(logging.FieldFile, path)

	var attempts []error
	var headers []string
	textTried := false

	try := func(s Strategy) (*Table, bool) {
		t, err := s.Load(path)
		if err != nil {
			attempts = append(attempts, err)
			if headers == nil {
				headers = headersOf(err)
			}
			log.WithError(err).Debug("Strategy failed", logging.F(logging.FieldStrategy, s.Name()))
			return nil, false
		}
		t.Source = path
		return t, true
	}

	for _, s := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s == l.text {
			if textTried {
				continue
			}
			textTried = true
		}

		if t, ok := try(s); ok {
			l.logLoaded(log, t)
			return t, nil
		}

		if s == l.xls && legacyName && !textTried && errors.Is(attempts[len(attempts)-1], parsererror.ErrNotSpreadsheet) {
			textTried = true
			log.Info("Legacy workbook signature not found, reading as delimited text")
			if t, ok := try(l.text); ok {
				l.logLoaded(log, t)
				return t, nil
			}
		}
	}

	return nil, &parsererror.UnparsableSourceError{
		FilePath: path,
		Headers:  headers,
		Required: models.RequiredFields,
		Attempts: attempts,
	}
}

func (l *Loader) logLoaded(log logging.Logger, t *Table) {
	log.Info("Loaded table",
		logging.F(logging.FieldStrategy, t.Strategy),
		logging.F(logging.FieldSheet, t.Sheet),
		logging.F(logging.FieldOffset, t.HeaderOffset),
		logging.F(logging.FieldEncoding, t.Encoding),
		logging.F(logging.FieldCount, len(t.Rows)))
}

func headersOf(err error) []string {
	var missing *MissingColumnsError
	if errors.As(err, &missing) {
		return missing.Headers
	}
	return nil
}
