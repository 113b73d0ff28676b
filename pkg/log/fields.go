package log

// Canonical structured-log field names, shared so every component logs the
// same keys.
const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Service
	FieldService = "service"

	// Generator
	FieldIDType       = "id_type"
	FieldDataCenterID = "data_center_id"
	FieldMachineID    = "machine_id"
	FieldEpoch        = "epoch"
)
