package logging

// Standardized field names for structured logging across ingestion and processing.
const (
	FieldFile      = "file_path"
	FieldSource    = "source"
	FieldStrategy  = "strategy"
	FieldSheet     = "sheet"
	FieldOffset    = "header_offset"
	FieldEncoding  = "encoding"
	FieldDelimiter = "delimiter"
	FieldVehicle   = "vehicle_id"
	FieldBatch     = "batch_id"
	FieldInserted  = "inserted"
	FieldSkipped   = "skipped"
	FieldDropped   = "dropped"
	FieldCount     = "count"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldDriver    = "driver"
)
