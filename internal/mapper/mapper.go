// Package mapper resolves the physical columns of a table to semantic fields using a
// keyword dictionary.
package mapper

import (
	"sort"

	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/textutils"
)

// Result is the outcome of mapping one header row.
type Result struct {
	Columns map[models.Field]int
	Headers []string // original labels, unchanged
}

// Map resolves each field of dict to at most one column. Fields are visited in
// dictionary order; each takes the leftmost column whose normalized header contains
// one of its keywords, and stays unresolved when that column is already claimed. When neither date nor time resolves, an unclaimed
// header holding both a date word (date keyword or date hint) and a time hint is
// registered as FieldDateTimeCombined.
func Map(headers []string, dict models.KeywordDictionary) Result {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = textutils.Normalize(h)
	}

	columns := make(map[models.Field]int)
	claimed := make(map[int]bool)

	for _, entry := range dict.Entries {
		i := firstMatch(normalized, entry.Keywords)
		if i < 0 || claimed[i] {
			continue
		}
		columns[entry.Field] = i
		claimed[i] = true
	}

	_, hasDate := columns[models.FieldDate]
	_, hasTime := columns[models.FieldTime]
	if !hasDate && !hasTime {
		dateKeywords := dict.Keywords(models.FieldDate)
		for i, header := range normalized {
			if claimed[i] {
				continue
			}
			hasDateWord := textutils.ContainsAny(header, dateKeywords) || textutils.ContainsAny(header, dict.DateHints)
			if hasDateWord && textutils.ContainsAny(header, dict.TimeHints) {
				columns[models.FieldDateTimeCombined] = i
				claimed[i] = true
				break
			}
		}
	}

	return Result{Columns: columns, Headers: headers}
}

// firstMatch returns the leftmost header containing one of keywords, or -1.
func firstMatch(normalized []string, keywords []string) int {
	for i, header := range normalized {
		if header != "" && textutils.ContainsAny(header, keywords) {
			return i
		}
	}
	return -1
}

// Index returns the column of f.
func (r Result) Index(f models.Field) (int, bool) {
	idx, ok := r.Columns[f]
	return idx, ok
}

// HasRequired reports whether the vehicle id and a date source were resolved.
func (r Result) HasRequired() bool {
	_, vehicle := r.Columns[models.FieldVehicleID]
	_, date := r.Columns[models.FieldDate]
	_, combined := r.Columns[models.FieldDateTimeCombined]
	return vehicle && (date || combined)
}

// Missing lists the required fields that did not resolve.
func (r Result) Missing() []string {
	var missing []string
	if _, ok := r.Columns[models.FieldVehicleID]; !ok {
		missing = append(missing, string(models.FieldVehicleID))
	}
	_, date := r.Columns[models.FieldDate]
	_, combined := r.Columns[models.FieldDateTimeCombined]
	if !date && !combined {
		missing = append(missing, string(models.FieldDate))
	}
	return missing
}

// Assignment is one resolved field, for display.
type Assignment struct {
	Field  models.Field
	Column int
	Header string
}

// Assignments returns the resolved fields ordered by column.
func (r Result) Assignments() []Assignment {
	out := make([]Assignment, 0, len(r.Columns))
	for f, idx := range r.Columns {
		header := ""
		if idx < len(r.Headers) {
			header = r.Headers[idx]
		}
		out = append(out, Assignment{Field: f, Column: idx, Header: header})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column < out[j].Column })
	return out
}
