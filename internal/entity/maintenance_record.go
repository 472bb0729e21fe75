package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/fleet-tracker/constants"
)

// MaintenanceRecord is a committed service event attached to a vehicle.
type MaintenanceRecord struct {
	ID                 uuid.UUID                 `json:"id"`
	VehicleID          uuid.UUID                 `json:"vehicle_id"`
	MaintenanceType    constants.MaintenanceType `json:"maintenance_type"`
	ServiceDate        *time.Time                `json:"service_date,omitempty"`
	Mileage            *int64                    `json:"mileage,omitempty"`
	Cost               *decimal.Decimal          `json:"cost,omitempty"`
	Provider           *string                   `json:"provider,omitempty"`
	Description        *string                   `json:"description,omitempty"`
	NextServiceMileage *int64                    `json:"next_service_mileage,omitempty"`
	NextServiceDate    *time.Time                `json:"next_service_date,omitempty"`
	Source             constants.Provenance      `json:"source"`
	DocumentName       *string                   `json:"document_name,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
}
