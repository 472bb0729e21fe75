package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/fleet-tracker/constants"
)

// FieldSet is the structured result of information extraction. A nil field
// is absent; a non-nil field has been parsed and validated.
type FieldSet struct {
	VehicleIdentifier  *string                    `json:"vehicle_identifier,omitempty"`
	MaintenanceType    *constants.MaintenanceType `json:"maintenance_type,omitempty"`
	ServiceDate        *time.Time                 `json:"service_date,omitempty"`
	Mileage            *int64                     `json:"mileage,omitempty"`
	Cost               *decimal.Decimal           `json:"cost,omitempty"`
	Provider           *string                    `json:"provider,omitempty"`
	Description        *string                    `json:"description,omitempty"`
	NextServiceMileage *int64                     `json:"next_service_mileage,omitempty"`
	NextServiceDate    *time.Time                 `json:"next_service_date,omitempty"`
}

// Present lists the names of populated fields in a fixed order.
func (f FieldSet) Present() []string {
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	add(f.VehicleIdentifier != nil, "vehicle_identifier")
	add(f.MaintenanceType != nil, "maintenance_type")
	add(f.ServiceDate != nil, "service_date")
	add(f.Mileage != nil, "mileage")
	add(f.Cost != nil, "cost")
	add(f.Provider != nil, "provider")
	add(f.Description != nil, "description")
	add(f.NextServiceMileage != nil, "next_service_mileage")
	add(f.NextServiceDate != nil, "next_service_date")
	return out
}

// IsEmpty reports whether no field was extracted.
func (f FieldSet) IsEmpty() bool {
	return len(f.Present()) == 0
}
