package constants

// Stage is a pipeline state. Stored and returned verbatim.
type Stage string

const (
	StageReceived              Stage = "RECEIVED"
	StageTextExtracted         Stage = "TEXT_EXTRACTED"
	StageFieldsExtracted       Stage = "FIELDS_EXTRACTED"
	StageVehicleResolved       Stage = "VEHICLE_RESOLVED"
	StageRecordCommitted       Stage = "RECORD_COMMITTED" // terminal success
	StageNeedsManualResolution Stage = "NEEDS_MANUAL_RESOLUTION"
	StageFailed                Stage = "FAILED" // terminal failure
)

// Provenance tags which strategy produced a record's fields.
type Provenance string

const (
	ProvenanceAI      Provenance = "document-ai"
	ProvenancePattern Provenance = "document-regex"
)

// VehicleStatus values as stored in the vehicles table.
const (
	VehicleActive        = "Active"
	VehicleInMaintenance = "In Maintenance"
	VehicleRetired       = "Retired"
)
