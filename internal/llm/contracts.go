package llm

import "context"

// VehicleContext is a roster entry shown to the model so it can name the
// vehicle the way the fleet does.
type VehicleContext struct {
	VIN          string `json:"vin"`
	LicensePlate string `json:"license_plate"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
}

// MaintenanceFields is the normalized shape we want from the LLM. All values
// are strings after sanitizing; empty means absent.
type MaintenanceFields struct {
	VehicleIdentifier  string `json:"vehicle_identifier,omitempty"`
	MaintenanceType    string `json:"maintenance_type,omitempty"` // one of constants.MaintenanceType
	ServiceDate        string `json:"service_date,omitempty"`     // YYYY-MM-DD
	Mileage            string `json:"mileage,omitempty"`          // digits only
	Cost               string `json:"cost,omitempty"`             // decimal, 2 places
	Provider           string `json:"provider,omitempty"`
	Description        string `json:"description,omitempty"`
	NextServiceMileage string `json:"next_service_mileage,omitempty"`
	NextServiceDate    string `json:"next_service_date,omitempty"`
}

type ExtractRequest struct {
	Text          string
	FilenameHint  string
	AllowedTypes  []string
	KnownVehicles []VehicleContext
}

// FieldExtractor is the interface the extraction strategy depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (MaintenanceFields, []byte /*rawJSON*/, error)
}
