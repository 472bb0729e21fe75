package constants

import (
	"strings"
)

type MaintenanceType string

const (
	OilChange    MaintenanceType = "OilChange"
	TireRotation MaintenanceType = "TireRotation"
	Inspection   MaintenanceType = "Inspection"
	Repair       MaintenanceType = "Repair"
	BrakeService MaintenanceType = "BrakeService"
	Other        MaintenanceType = "Other"
)

var allMaintenanceTypes = []MaintenanceType{
	OilChange,
	TireRotation,
	Inspection,
	Repair,
	BrakeService,
	Other,
}

// AllMaintenanceTypes returns the enum values in their canonical order.
func AllMaintenanceTypes() []MaintenanceType {
	out := make([]MaintenanceType, len(allMaintenanceTypes))
	copy(out, allMaintenanceTypes)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allMaintenanceTypes))
	for i, t := range allMaintenanceTypes {
		result[i] = string(t)
	}
	return result
}

// Label is the human-readable form used in exports.
func (t MaintenanceType) Label() string {
	switch t {
	case OilChange:
		return "Oil Change"
	case TireRotation:
		return "Tire Rotation"
	case BrakeService:
		return "Brake Service"
	case "":
		return ""
	}
	return string(t)
}

// Canonicalize maps a free-form label onto the enum. The bool reports whether
// the input was recognized; unrecognized input maps to Other.
func Canonicalize(input string) (MaintenanceType, bool) {
	if strings.TrimSpace(input) == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)
	normalized = strings.Join(strings.Fields(normalized), " ")

	synonyms := map[string]MaintenanceType{
		"oil change":       OilChange,
		"oil":              OilChange,
		"oil and filter":   OilChange,
		"lube":             OilChange,
		"lube oil filter":  OilChange,
		"tire rotation":    TireRotation,
		"tyre rotation":    TireRotation,
		"rotation":         TireRotation,
		"rotate tires":     TireRotation,
		"inspection":       Inspection,
		"state inspection": Inspection,
		"smog":             Inspection,
		"smog check":       Inspection,
		"emissions":        Inspection,
		"emissions test":   Inspection,
		"repair":           Repair,
		"tune up":          Repair,
		"brake service":    BrakeService,
		"brakes":           BrakeService,
		"brake":            BrakeService,
		"brake pads":       BrakeService,
		"other":            Other,
	}

	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	compact := strings.ReplaceAll(normalized, " ", "")
	for _, t := range allMaintenanceTypes {
		if compact == strings.ToLower(string(t)) {
			return t, true
		}
	}

	return Other, false
}

// IsValid reports whether t is one of the enum values.
func (t MaintenanceType) IsValid() bool {
	for _, v := range allMaintenanceTypes {
		if v == t {
			return true
		}
	}
	return false
}
