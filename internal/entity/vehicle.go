package entity

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Vehicle is a roster entry for data transfer between layers.
type Vehicle struct {
	ID             uuid.UUID `json:"id"`
	VIN            string    `json:"vin"`
	LicensePlate   string    `json:"license_plate"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	CurrentMileage int64     `json:"current_mileage"`
	Status         string    `json:"status"`
	AssignedDriver *string   `json:"assigned_driver,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayName is "2019 Toyota Camry (ABC1234)".
func (v *Vehicle) DisplayName() string {
	if v == nil {
		return ""
	}
	name := v.Make + " " + v.Model
	if v.Year > 0 {
		name = strconv.Itoa(v.Year) + " " + name
	}
	if v.LicensePlate != "" {
		name += " (" + v.LicensePlate + ")"
	}
	return name
}
