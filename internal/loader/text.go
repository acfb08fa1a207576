package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/parsererror"
	"fjacquet/fueltrack/internal/textutils"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type textEncoding struct {
	name    string
	decoder encoding.Encoding // nil means UTF-8
}

// Encodings tried in order. Latin-1 and ISO-8859-1 are the same table; both names are
// kept because exports label them either way.
var textEncodings = []textEncoding{
	{name: "utf-8"},
	{name: "windows-1252", decoder: charmap.Windows1252},
	{name: "latin-1", decoder: charmap.ISO8859_1},
	{name: "iso-8859-1", decoder: charmap.ISO8859_1},
}

var textDelimiters = []rune{'\t', ';', ','}

// sniff words: a first line holding none of them is not a transaction header
var sniffWords = []string{"date", "parc", "heure"}

const sniffBytes = 2000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// textStrategy reads delimited text, including text exports saved with an .xls name.
type textStrategy struct {
	dict   models.KeywordDictionary
	logger logging.Logger
}

func (s *textStrategy) Name() string { return StrategyCSV }

func (s *textStrategy) Load(path string) (*Table, error) {
	// #nosec G304 -- caller supplied import path
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &parsererror.StrategyError{Strategy: s.Name(), Err: err}
	}

	var attempts []error
	for _, enc := range textEncodings {
		content, err := decode(raw, enc)
		if err != nil {
			attempts = append(attempts, &parsererror.StrategyError{Strategy: s.Name() + "/" + enc.name, Err: err})
			continue
		}

		if !plausibleHeader(content) {
			attempts = append(attempts, &parsererror.StrategyError{
				Strategy: s.Name() + "/" + enc.name,
				Err:      fmt.Errorf("first line has none of %s", strings.Join(sniffWords, ", ")),
			})
			continue
		}

		for _, delim := range textDelimiters {
			t, err := s.parse(content, delim)
			if err != nil {
				attempts = append(attempts, &parsererror.StrategyError{
					Strategy: fmt.Sprintf("%s/%s/%q", s.Name(), enc.name, delim),
					Err:      err,
				})
				continue
			}
			t.Strategy = s.Name()
			t.Encoding = enc.name
			t.Delimiter = delim
			return t, nil
		}
	}
	return nil, errors.Join(attempts...)
}

func decode(raw []byte, enc textEncoding) (string, error) {
	if enc.decoder == nil {
		body := bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(body) {
			return "", errors.New("invalid UTF-8")
		}
		return string(body), nil
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), enc.decoder.NewDecoder()))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func plausibleHeader(content string) bool {
	sample := content
	if len(sample) > sniffBytes {
		sample = sample[:sniffBytes]
	}
	firstLine, _, _ := strings.Cut(sample, "\n")
	return textutils.ContainsAny(textutils.Normalize(firstLine), sniffWords)
}

// parse reads content with one delimiter. Lines that fail to parse or carry more
// fields than the header are skipped.
func (s *textStrategy) parse(content string, delim rune) (*Table, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]string
	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, err
		}
		if len(grid) > 0 && len(record) > len(grid[0]) {
			skipped++
			continue
		}
		grid = append(grid, record)
	}

	t, err := scanGrid(grid, s.dict, 0)
	if err != nil {
		return nil, err
	}
	t.SkippedLines = skipped
	return t, nil
}
