package mapper

import (
	"testing"

	"fjacquet/fueltrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_FrenchExport(t *testing.T) {
	headers := []string{"Date", "Heure", "N° Parc", "Personne", "Produit", "Quantité", "Compteur"}

	result := Map(headers, models.DefaultKeywordDictionary())

	assert.Equal(t, map[models.Field]int{
		models.FieldDate:      0,
		models.FieldTime:      1,
		models.FieldVehicleID: 2,
		models.FieldPerson:    3,
		models.FieldProduct:   4,
		models.FieldQuantity:  5,
		models.FieldCounter:   6,
	}, result.Columns)
	assert.Equal(t, headers, result.Headers)
	assert.True(t, result.HasRequired())
	assert.Empty(t, result.Missing())
}

func TestMap_ReorderedAccentedHeaders(t *testing.T) {
	headers := []string{"KILOMÉTRAGE", "Véhicule", "Date opération", "Volume (L)"}

	result := Map(headers, models.DefaultKeywordDictionary())

	assert.Equal(t, 0, result.Columns[models.FieldCounter])
	assert.Equal(t, 1, result.Columns[models.FieldVehicleID])
	assert.Equal(t, 2, result.Columns[models.FieldDate])
	assert.Equal(t, 3, result.Columns[models.FieldQuantity])
}

func TestMap_ClaimedColumnIsNotReassigned(t *testing.T) {
	// person is declared before person_service and its keyword "personne" also matches
	// "Service personnes"; once claimed, that column is not available to person_service.
	headers := []string{"Date", "Parc", "Service véhicule", "Service personnes"}

	result := Map(headers, models.DefaultKeywordDictionary())

	assert.Equal(t, 2, result.Columns[models.FieldVehicleService])
	assert.Equal(t, 3, result.Columns[models.FieldPerson])
	_, ok := result.Index(models.FieldPersonService)
	assert.False(t, ok)
}

func TestMap_FieldWhoseFirstMatchIsClaimedStaysUnresolved(t *testing.T) {
	// "Date/Heure" is claimed by date; time does not fall through to "Heure fin".
	headers := []string{"Date/Heure", "N° Parc", "Heure fin"}

	result := Map(headers, models.DefaultKeywordDictionary())

	assert.Equal(t, 0, result.Columns[models.FieldDate])
	assert.Equal(t, 1, result.Columns[models.FieldVehicleID])
	_, hasTime := result.Index(models.FieldTime)
	assert.False(t, hasTime)
	_, combined := result.Index(models.FieldDateTimeCombined)
	assert.False(t, combined)
}

func TestMap_PriorityOrderWinsOnTies(t *testing.T) {
	// "date heure" matches both date and time keywords; date is declared first.
	headers := []string{"Date heure", "Parc", "Litres"}

	result := Map(headers, models.DefaultKeywordDictionary())

	assert.Equal(t, 0, result.Columns[models.FieldDate])
	_, hasTime := result.Index(models.FieldTime)
	assert.False(t, hasTime)
	_, combined := result.Index(models.FieldDateTimeCombined)
	assert.False(t, combined)
}

func TestMap_CombinedDateTimePass(t *testing.T) {
	// A vocabulary whose date keywords do not match "Date/Heure" and that declares no
	// time field: the combined pass picks the column up.
	dict, err := models.NewKeywordDictionary([]models.KeywordEntry{
		{Field: models.FieldDate, Keywords: []string{"jour"}},
		{Field: models.FieldVehicleID, Keywords: []string{"parc"}},
		{Field: models.FieldQuantity, Keywords: []string{"litre"}},
	}, nil, nil)
	require.NoError(t, err)

	result := Map([]string{"Parc", "Date/Heure", "Litres"}, dict)

	assert.Equal(t, 1, result.Columns[models.FieldDateTimeCombined])
	assert.True(t, result.HasRequired())
	_, hasDate := result.Index(models.FieldDate)
	assert.False(t, hasDate)
}

func TestMap_CombinedPassSkippedWhenTimeResolved(t *testing.T) {
	dict, err := models.NewKeywordDictionary([]models.KeywordEntry{
		{Field: models.FieldDate, Keywords: []string{"jour"}},
		{Field: models.FieldTime, Keywords: []string{"clock"}},
		{Field: models.FieldVehicleID, Keywords: []string{"parc"}},
	}, nil, nil)
	require.NoError(t, err)

	result := Map([]string{"Parc", "Date/Heure", "Clock"}, dict)

	_, combined := result.Index(models.FieldDateTimeCombined)
	assert.False(t, combined)
	assert.False(t, result.HasRequired())
	assert.Equal(t, []string{"date"}, result.Missing())
}

func TestMap_MissingRequired(t *testing.T) {
	result := Map([]string{"Foo", "Bar", "Baz"}, models.DefaultKeywordDictionary())

	assert.Empty(t, result.Columns)
	assert.False(t, result.HasRequired())
	assert.Equal(t, []string{"vehicle_id", "date"}, result.Missing())
}

func TestMap_IsPure(t *testing.T) {
	headers := []string{"Date", "Parc", "Quantité"}
	dict := models.DefaultKeywordDictionary()

	first := Map(headers, dict)
	second := Map(headers, dict)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"Date", "Parc", "Quantité"}, headers)
}

func TestAssignments(t *testing.T) {
	result := Map([]string{"Parc", "Date", "Compteur"}, models.DefaultKeywordDictionary())

	assert.Equal(t, []Assignment{
		{Field: models.FieldVehicleID, Column: 0, Header: "Parc"},
		{Field: models.FieldDate, Column: 1, Header: "Date"},
		{Field: models.FieldCounter, Column: 2, Header: "Compteur"},
	}, result.Assignments())
}

func TestMap_OrderIndependentOnDistinctHeaders(t *testing.T) {
	headers := []string{"Date", "Heure", "Parc", "Conducteur", "Produit", "Quantité", "Compteur", "Unité"}
	row := []string{"15/01/2024", "08:30", "V1", "Martin", "Gasoil", "40", "12500", "L"}
	dict := models.DefaultKeywordDictionary()

	contents := func(order []int) map[models.Field]string {
		h := make([]string, len(order))
		r := make([]string, len(order))
		for i, src := range order {
			h[i] = headers[src]
			r[i] = row[src]
		}
		out := make(map[models.Field]string)
		for f, idx := range Map(h, dict).Columns {
			out[f] = r[idx]
		}
		return out
	}

	want := contents([]int{0, 1, 2, 3, 4, 5, 6, 7})
	require.Len(t, want, len(headers))

	tests := []struct {
		name  string
		order []int
	}{
		{name: "reversed", order: []int{7, 6, 5, 4, 3, 2, 1, 0}},
		{name: "rotated", order: []int{3, 4, 5, 6, 7, 0, 1, 2}},
		{name: "interleaved", order: []int{6, 0, 5, 1, 4, 2, 7, 3}},
		{name: "vehicle first", order: []int{2, 7, 1, 6, 0, 5, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, contents(tt.order))
		})
	}
}
