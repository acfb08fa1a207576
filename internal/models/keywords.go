package models

import (
	"fmt"

	"fjacquet/fueltrack/internal/textutils"
)

// KeywordEntry lists the header substrings that identify one field.
type KeywordEntry struct {
	Field    Field    `yaml:"field"`
	Keywords []string `yaml:"keywords"`
}

// KeywordDictionary is the ordered field→keywords vocabulary used by the column mapper.
// Entry order is mapping priority. Keywords are stored normalized.
type KeywordDictionary struct {
	Entries []KeywordEntry `yaml:"fields"`

	// DateHints and TimeHints mark a combined date-time header: one holding a word of
	// each (or a date keyword and a time hint).
	DateHints []string `yaml:"date_hints"`
	TimeHints []string `yaml:"time_hints"`
}

// NewKeywordDictionary validates entries and returns a dictionary with every keyword
// normalized and de-duplicated. Fields may appear at most once. Empty hint lists
// fall back to the built-in ones.
func NewKeywordDictionary(entries []KeywordEntry, dateHints, timeHints []string) (KeywordDictionary, error) {
	seen := make(map[Field]bool, len(entries))
	out := make([]KeywordEntry, 0, len(entries))

	for _, e := range entries {
		if !e.Field.Valid() {
			return KeywordDictionary{}, fmt.Errorf("unknown field %q", e.Field)
		}
		if seen[e.Field] {
			return KeywordDictionary{}, fmt.Errorf("field %q declared twice", e.Field)
		}
		seen[e.Field] = true

		keywords := normalizeAll(e.Keywords)
		if len(keywords) == 0 {
			return KeywordDictionary{}, fmt.Errorf("field %q has no keywords", e.Field)
		}
		out = append(out, KeywordEntry{Field: e.Field, Keywords: keywords})
	}

	if !seen[FieldVehicleID] || !seen[FieldDate] {
		return KeywordDictionary{}, fmt.Errorf("dictionary must declare %s and %s", FieldVehicleID, FieldDate)
	}

	dates := normalizeAll(dateHints)
	if len(dates) == 0 {
		dates = normalizeAll(defaultDateHints)
	}
	times := normalizeAll(timeHints)
	if len(times) == 0 {
		times = normalizeAll(defaultTimeHints)
	}

	return KeywordDictionary{Entries: out, DateHints: dates, TimeHints: times}, nil
}

// Keywords returns the keywords of f, or nil.
func (d KeywordDictionary) Keywords(f Field) []string {
	for _, e := range d.Entries {
		if e.Field == f {
			return e.Keywords
		}
	}
	return nil
}

func normalizeAll(keywords []string) []string {
	var out []string
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		n := textutils.Normalize(kw)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

var (
	defaultDateHints = []string{"date"}
	defaultTimeHints = []string{"heure", "horaire", "time"}
)

// DefaultKeywordEntries is the built-in French/English vocabulary of fuel-card and
// pump-management exports.
var DefaultKeywordEntries = []KeywordEntry{
	{Field: FieldDate, Keywords: []string{"date", "dat", "jour"}},
	{Field: FieldTime, Keywords: []string{"heure", "horaire", "time", "heure debut", "heure fin", "hr"}},
	{Field: FieldVehicleID, Keywords: []string{"parc", "véhicule", "vehicule", "immatriculation", "n° parc", "no parc", "machine", "engin", "matricule"}},
	{Field: FieldVehicleService, Keywords: []string{"service véhicule", "service vehicule", "département", "departement", "service"}},
	{Field: FieldPerson, Keywords: []string{"personne", "conducteur", "chauffeur", "driver", "employé", "employe"}},
	{Field: FieldPersonService, Keywords: []string{"service personne", "service personnes"}},
	{Field: FieldProduct, Keywords: []string{"produit", "product", "carburant", "fuel", "gasoil", "diesel", "essence"}},
	{Field: FieldQuantity, Keywords: []string{"quantité", "quantite", "qte", "volume", "litre", "litres", "consommation"}},
	{Field: FieldCounter, Keywords: []string{"compteur", "odomètre", "odometre", "kilométrage", "kilometrage", "km", "compte"}},
	{Field: FieldUnit, Keywords: []string{"unité", "unite", "unit"}},
}

// DefaultKeywordDictionary returns the built-in dictionary.
func DefaultKeywordDictionary() KeywordDictionary {
	d, err := NewKeywordDictionary(DefaultKeywordEntries, defaultDateHints, defaultTimeHints)
	if err != nil {
		panic(fmt.Sprintf("built-in keyword dictionary is invalid: %v", err))
	}
	return d
}
