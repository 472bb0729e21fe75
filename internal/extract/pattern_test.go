package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

const sampleReceipt = "Joe's Auto — Oil Change — 03/15/2024 — Mileage: 45,230 — Total: $89.50 — VIN: 1HGCM82633A123456"

func runPattern(t *testing.T, text string) entity.FieldSet {
	t.Helper()
	fs, err := NewPatternStrategy().Extract(context.Background(), Request{Text: text})
	require.NoError(t, err)
	return fs
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPatternStrategy_SampleReceipt(t *testing.T) {
	fs := runPattern(t, sampleReceipt)

	require.NotNil(t, fs.VehicleIdentifier)
	assert.Equal(t, "1HGCM82633A123456", *fs.VehicleIdentifier)
	require.NotNil(t, fs.MaintenanceType)
	assert.Equal(t, constants.OilChange, *fs.MaintenanceType)
	require.NotNil(t, fs.ServiceDate)
	assert.Equal(t, date(2024, time.March, 15), *fs.ServiceDate)
	require.NotNil(t, fs.Mileage)
	assert.EqualValues(t, 45230, *fs.Mileage)
	require.NotNil(t, fs.Cost)
	assert.Equal(t, "89.50", fs.Cost.StringFixed(2))
	require.NotNil(t, fs.Provider)
	assert.Contains(t, *fs.Provider, "Joe's Auto")
	assert.Nil(t, fs.NextServiceMileage)
	assert.Nil(t, fs.NextServiceDate)
}

func TestPatternStrategy_NextServiceClauseKeepsOdometer(t *testing.T) {
	fs := runPattern(t, "Joe's Auto — Oil Change — 03/15/2024 — Next oil change due 06/15/2024 — Mileage: 45,230 — Total: $89.50 — VIN: 1HGCM82633A123456")

	require.NotNil(t, fs.Mileage)
	assert.EqualValues(t, 45230, *fs.Mileage)
	assert.Nil(t, fs.NextServiceMileage)
	require.NotNil(t, fs.NextServiceDate)
	assert.Equal(t, date(2024, time.June, 15), *fs.NextServiceDate)
	require.NotNil(t, fs.ServiceDate)
	assert.Equal(t, date(2024, time.March, 15), *fs.ServiceDate)
	require.NotNil(t, fs.MaintenanceType)
	assert.Equal(t, constants.OilChange, *fs.MaintenanceType)
	require.NotNil(t, fs.Cost)
	assert.Equal(t, "89.50", fs.Cost.StringFixed(2))
}

func TestPatternStrategy_EmptyText(t *testing.T) {
	fs := runPattern(t, "")
	assert.True(t, fs.IsEmpty())
}

func TestPatternStrategy_ProvenanceIsPattern(t *testing.T) {
	assert.Equal(t, constants.ProvenancePattern, NewPatternStrategy().Provenance())
}

func TestRecognizeVehicle(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"vin wins over plate", "Plate: ABC1234\nVIN 1FTBW2CM5HKA12345", "1FTBW2CM5HKA12345"},
		{"labelled plate", "License Plate: 7XYZ123\nBrake pads", "7XYZ123"},
		{"bare plate", "Customer vehicle FLT101 in bay 3", "FLT101"},
		{"digit first plate", "Unit 12ABC34 serviced", "12ABC34"},
		{"lower case plate", "customer vehicle flt101 in bay 3", "FLT101"},
		{"vehicle label", "Vehicle: White Transit van\nOil change", "White Transit van"},
		{"year make model", "Serviced a 2019 ford F-150 today", "2019 Ford F-150"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var fs entity.FieldSet
			RecognizeVehicle(tc.text, &fs)
			require.NotNil(t, fs.VehicleIdentifier)
			assert.Equal(t, tc.want, *fs.VehicleIdentifier)
		})
	}

	t.Run("all digits is not a vin", func(t *testing.T) {
		var fs entity.FieldSet
		RecognizeVehicle("Invoice 12345678901234567", &fs)
		assert.Nil(t, fs.VehicleIdentifier)
	})
}

func TestRecognizeServiceDate(t *testing.T) {
	cases := []struct {
		name string
		text string
		want time.Time
	}{
		{"iso", "Date 2024-02-09", date(2024, time.February, 9)},
		{"us slash", "on 7/4/2023", date(2023, time.July, 4)},
		{"us dash", "on 07-04-2023", date(2023, time.July, 4)},
		{"two digit year", "on 12/31/22", date(2022, time.December, 31)},
		{"month name", "Serviced January 5th, 2024", date(2024, time.January, 5)},
		{"earliest wins", "Printed 2024-05-01 for work on 04/28/2024", date(2024, time.May, 1)},
		{"skips invalid", "13/45/2024 then 2024-06-02", date(2024, time.June, 2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var fs entity.FieldSet
			RecognizeServiceDate(tc.text, &fs)
			require.NotNil(t, fs.ServiceDate)
			assert.Equal(t, tc.want, *fs.ServiceDate)
		})
	}

	t.Run("none", func(t *testing.T) {
		var fs entity.FieldSet
		RecognizeServiceDate("no dates here", &fs)
		assert.Nil(t, fs.ServiceDate)
	})
}

func TestRecognizeMileage(t *testing.T) {
	var fs entity.FieldSet
	RecognizeMileage("Odometer: 61000\nNext service at 66,000 miles", &fs)
	require.NotNil(t, fs.Mileage)
	assert.EqualValues(t, 61000, *fs.Mileage)

	fs = entity.FieldSet{}
	RecognizeMileage("Vehicle in at 23,456 mi", &fs)
	require.NotNil(t, fs.Mileage)
	assert.EqualValues(t, 23456, *fs.Mileage)

	fs = entity.FieldSet{}
	RecognizeMileage("Bay 4", &fs)
	assert.Nil(t, fs.Mileage)
}

func TestRecognizeCost(t *testing.T) {
	var fs entity.FieldSet
	RecognizeCost("Subtotal: $80.00\nTax: $9.50\nTotal: $89.50", &fs)
	require.NotNil(t, fs.Cost)
	assert.Equal(t, "89.50", fs.Cost.StringFixed(2))

	fs = entity.FieldSet{}
	RecognizeCost("Filter $12.99\nLabor $1,250.00\nDeposit $0.50", &fs)
	require.NotNil(t, fs.Cost)
	assert.Equal(t, "1250.00", fs.Cost.StringFixed(2))

	fs = entity.FieldSet{}
	RecognizeCost("Labor $75000.00", &fs)
	assert.Nil(t, fs.Cost)
}

func TestRecognizeMaintenanceType(t *testing.T) {
	cases := map[string]constants.MaintenanceType{
		"Full synthetic oil change":     constants.OilChange,
		"Tire rotation and balance":     constants.TireRotation,
		"Front brake pads":              constants.BrakeService,
		"Annual state inspection":       constants.Inspection,
		"Replaced alternator":           constants.Repair,
		"Car wash and detail":           constants.Other,
		"Oil change and tire rotation":  constants.OilChange,
		"Brake inspection, pads at 40%": constants.BrakeService,
		"Engine oil 5 qt, filter":       constants.OilChange,
		"OIL CHG":                       constants.OilChange,
		"Rotated all four tires":        constants.TireRotation,
		"Rotate tires":                  constants.TireRotation,
		"Vehicle inspected, no issues":  constants.Inspection,
		"Safety check":                  constants.Inspection,
		"Tuneup and new battery":        constants.Repair,
	}
	for text, want := range cases {
		var fs entity.FieldSet
		RecognizeMaintenanceType(text, &fs)
		require.NotNil(t, fs.MaintenanceType, text)
		assert.Equal(t, want, *fs.MaintenanceType, text)
	}
}

func TestRecognizeNextService(t *testing.T) {
	var fs entity.FieldSet
	RecognizeNextService("Next service due 09/15/2024 or 50,230 miles", &fs)
	require.NotNil(t, fs.NextServiceDate)
	assert.Equal(t, date(2024, time.September, 15), *fs.NextServiceDate)
	require.NotNil(t, fs.NextServiceMileage)
	assert.EqualValues(t, 50230, *fs.NextServiceMileage)

	t.Run("clause stops at the next field", func(t *testing.T) {
		var fs entity.FieldSet
		RecognizeNextService("Next service 50,000 mi | Odometer 45,230", &fs)
		require.NotNil(t, fs.NextServiceMileage)
		assert.EqualValues(t, 50000, *fs.NextServiceMileage)

		fs = entity.FieldSet{}
		RecognizeNextService("Next service due — Mileage: 45,230", &fs)
		assert.Nil(t, fs.NextServiceMileage)
	})
}

func TestRecognizeProvider(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"INVOICE\nQuick Lube Express\n123 Main St", "Quick Lube Express"},
		{"Date: 2024-01-02\nMidtown Tire | Invoice #4411", "Midtown Tire"},
		{"Oil Change - Fleet Garage LLC", "Fleet Garage LLC"},
	}
	for _, tc := range cases {
		var fs entity.FieldSet
		RecognizeProvider(tc.text, &fs)
		require.NotNil(t, fs.Provider, tc.text)
		assert.Equal(t, tc.want, *fs.Provider)
	}
}
