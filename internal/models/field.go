// Package models defines the domain types shared by ingestion, processing and storage.
package models

// Field is a semantic column of a fuel export.
type Field string

// Semantic fields, in mapping priority order.
const (
	FieldDate           Field = "date"
	FieldTime           Field = "time"
	FieldVehicleID      Field = "vehicle_id"
	FieldVehicleService Field = "vehicle_service"
	FieldPerson         Field = "person"
	FieldPersonService  Field = "person_service"
	FieldProduct        Field = "product"
	FieldQuantity       Field = "quantity"
	FieldCounter        Field = "counter"
	FieldUnit           Field = "unit"

	// FieldDateTimeCombined is registered when one column carries both date and time.
	FieldDateTimeCombined Field = "date_time_combined"
)

// Fields lists the semantic fields in priority order.
var Fields = []Field{
	FieldDate,
	FieldTime,
	FieldVehicleID,
	FieldVehicleService,
	FieldPerson,
	FieldPersonService,
	FieldProduct,
	FieldQuantity,
	FieldCounter,
	FieldUnit,
}

// RequiredFields names the fields a table must resolve, for diagnostics.
var RequiredFields = []string{string(FieldVehicleID), string(FieldDate) + " (or " + string(FieldDateTimeCombined) + ")"}

// Valid reports whether f is one of the declared fields.
func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Text limits applied when storing extracted values.
const (
	MaxVehicleIDLength = 50
	MaxTextLength      = 100
	MaxUnitLength      = 20
	DefaultUnit        = "L"
)

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
)
