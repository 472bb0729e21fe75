package llm

// BuildMaintenanceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It is sent to the model as an output constraint and used locally to validate.
func BuildMaintenanceJSONSchema(allowedTypes []string) map[string]any {
	props := map[string]any{
		"vehicle_identifier":   map[string]any{"type": "string", "minLength": 1, "maxLength": 100},
		"maintenance_type":     map[string]any{"type": "string", "minLength": 1},
		"service_date":         dateProp(),
		"mileage":              integerProp(),
		"cost":                 map[string]any{"type": "string", "pattern": `^\d+\.\d{2}$`},
		"provider":             map[string]any{"type": "string", "minLength": 1, "maxLength": 100},
		"description":          map[string]any{"type": "string"},
		"next_service_mileage": integerProp(),
		"next_service_date":    dateProp(),
	}

	if len(allowedTypes) > 0 {
		props["maintenance_type"] = map[string]any{
			"type": "string",
			"enum": allowedTypes,
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
}

func integerProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{1,9}$`}
}
