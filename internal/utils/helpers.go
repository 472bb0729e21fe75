package utils

import (
	"time"

	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/pipeline"
)

const ymd = "2006-01-02"

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ParseYMD parses a YYYY-MM-DD date at midnight UTC.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ymd, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseOptionalYMD returns nil for an empty string.
func ParseOptionalYMD(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseYMD(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// The maps below are the wire shape shared by the HTTP handlers and the gRPC
// service (which wraps them in a structpb.Struct). Values are limited to
// types structpb accepts: string, float64/int, bool, []any, map[string]any.

func VehicleToMap(v *entity.Vehicle) map[string]any {
	if v == nil {
		return nil
	}
	return map[string]any{
		"id":              v.ID.String(),
		"vin":             v.VIN,
		"license_plate":   v.LicensePlate,
		"make":            v.Make,
		"model":           v.Model,
		"year":            v.Year,
		"current_mileage": v.CurrentMileage,
		"status":          v.Status,
		"assigned_driver": strOrEmpty(v.AssignedDriver),
		"display_name":    v.DisplayName(),
	}
}

func VehiclesToList(vs []*entity.Vehicle) []any {
	out := make([]any, 0, len(vs))
	for _, v := range vs {
		out = append(out, VehicleToMap(v))
	}
	return out
}

func FieldsToMap(f entity.FieldSet) map[string]any {
	m := map[string]any{}
	if f.VehicleIdentifier != nil {
		m["vehicle_identifier"] = *f.VehicleIdentifier
	}
	if f.MaintenanceType != nil {
		m["maintenance_type"] = string(*f.MaintenanceType)
	}
	if f.ServiceDate != nil {
		m["service_date"] = f.ServiceDate.Format(ymd)
	}
	if f.Mileage != nil {
		m["mileage"] = *f.Mileage
	}
	if f.Cost != nil {
		m["cost"] = f.Cost.StringFixed(2)
	}
	if f.Provider != nil {
		m["provider"] = *f.Provider
	}
	if f.Description != nil {
		m["description"] = *f.Description
	}
	if f.NextServiceMileage != nil {
		m["next_service_mileage"] = *f.NextServiceMileage
	}
	if f.NextServiceDate != nil {
		m["next_service_date"] = f.NextServiceDate.Format(ymd)
	}
	return m
}

func RecordToMap(r *entity.MaintenanceRecord) map[string]any {
	if r == nil {
		return nil
	}
	m := FieldsToMap(entity.FieldSet{
		ServiceDate:        r.ServiceDate,
		Mileage:            r.Mileage,
		Cost:               r.Cost,
		Provider:           r.Provider,
		Description:        r.Description,
		NextServiceMileage: r.NextServiceMileage,
		NextServiceDate:    r.NextServiceDate,
	})
	m["id"] = r.ID.String()
	m["vehicle_id"] = r.VehicleID.String()
	m["maintenance_type"] = string(r.MaintenanceType)
	m["source"] = string(r.Source)
	m["document_name"] = strOrEmpty(r.DocumentName)
	m["created_at"] = r.CreatedAt.UTC().Format(time.RFC3339)
	return m
}

// OutcomeToMap renders a pipeline outcome. Committed outcomes carry the
// record; manual-resolution outcomes carry the partial fields, the ranked
// candidates and a text preview.
func OutcomeToMap(o *pipeline.Outcome) map[string]any {
	m := map[string]any{
		"document": o.Document,
		"stage":    string(o.Stage),
		"fields":   FieldsToMap(o.Fields),
	}
	if o.Provenance != "" {
		m["source"] = string(o.Provenance)
	}
	if o.Kind != "" {
		m["kind"] = string(o.Kind)
		m["message"] = o.Message
		m["failed_stage"] = string(o.FailedStage)
	}
	if o.Vehicle != nil {
		m["vehicle"] = VehicleToMap(o.Vehicle)
	}
	if o.Record != nil {
		m["record"] = RecordToMap(o.Record)
		m["mileage_updated"] = o.MileageUpdated
	}
	if o.HintMismatch {
		m["hint_mismatch"] = true
	}
	if len(o.Candidates) > 0 {
		cands := make([]any, 0, len(o.Candidates))
		for _, c := range o.Candidates {
			vm := VehicleToMap(c.Vehicle)
			vm["match_strength"] = c.Strength.String()
			vm["match_score"] = c.Score
			cands = append(cands, vm)
		}
		m["candidates"] = cands
	}
	if o.NeedsManualResolution() {
		m["raw_text_preview"] = o.TextPreview
		if _, ok := m["candidates"]; !ok {
			m["candidates"] = []any{}
		}
	}
	if len(o.Warnings) > 0 {
		ws := make([]any, 0, len(o.Warnings))
		for _, w := range o.Warnings {
			ws = append(ws, w)
		}
		m["warnings"] = ws
	}
	return m
}
