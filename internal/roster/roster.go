// Package roster imports the fleet roster from an Excel workbook and writes
// the blank template users fill in.
package roster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
)

const (
	SheetName = "Vehicles"
	// firstDataRow skips the header and the description row.
	firstDataRow = 3

	exampleVIN = "1FTYR1ZM5HKB10739"
)

type column struct {
	header      string
	description string
	width       float64
}

var columns = []column{
	{"VIN*", "Vehicle Identification Number (17 characters)", 20},
	{"Make*", "Vehicle manufacturer (e.g., Ford, Toyota)", 15},
	{"Model*", "Vehicle model (e.g., Transit 250)", 20},
	{"Year*", "Model year (e.g., 2024)", 10},
	{"License Plate*", "License plate number", 15},
	{"Current Mileage", "Current odometer reading", 15},
	{"Status", "Active, In Maintenance, or Retired", 15},
	{"Assigned Driver", "Driver name", 20},
}

var statuses = []string{constants.VehicleActive, constants.VehicleInMaintenance, constants.VehicleRetired}

// ImportResult reports what an import did. Row errors do not stop the import.
type ImportResult struct {
	Created  int
	Updated  int
	Errors   []string
	Warnings []string
}

type Importer struct {
	vehicles repository.VehicleRepository
	logger   *slog.Logger
}

func NewImporter(vehicles repository.VehicleRepository, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{vehicles: vehicles, logger: logger}
}

// Import reads the Vehicles sheet and upserts every valid row by VIN.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("%q sheet not found: %w", SheetName, err)
	}

	res := &ImportResult{}
	for i := firstDataRow - 1; i < len(rows); i++ {
		rowNum := i + 1
		cells := rows[i]
		cell := func(c int) string {
			if c < len(cells) {
				return strings.TrimSpace(cells[c])
			}
			return ""
		}
		if cell(0) == "" {
			continue
		}
		if strings.EqualFold(cell(0), exampleVIN) && cell(1) == "Ford" && cell(2) == "Transit 250" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: skipped example row", rowNum))
			continue
		}

		v, err := parseRow(cell)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d (VIN: %s): %v", rowNum, cell(0), err))
			continue
		}
		_, created, err := im.vehicles.UpsertByVIN(ctx, v)
		if err != nil {
			im.logger.Error("roster.import.upsert_failed", "row", rowNum, "vin", v.VIN, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d (VIN: %s): could not be saved", rowNum, v.VIN))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	im.logger.Info("roster.import.done",
		"created", res.Created,
		"updated", res.Updated,
		"errors", len(res.Errors),
		"warnings", len(res.Warnings))
	return res, nil
}

func parseRow(cell func(int) string) (*entity.Vehicle, error) {
	v := &entity.Vehicle{
		VIN:          strings.ToUpper(cell(0)),
		Make:         cell(1),
		Model:        cell(2),
		LicensePlate: strings.ToUpper(cell(4)),
		Status:       cell(6),
	}
	if v.Status == "" {
		v.Status = constants.VehicleActive
	}
	if d := cell(7); d != "" {
		v.AssignedDriver = &d
	}

	val := common.NewValidator().
		Field("VIN", v.VIN, common.Required, common.VIN).
		Field("Make", v.Make, common.Required, common.MaxLength(50)).
		Field("Model", v.Model, common.Required, common.MaxLength(50)).
		Field("License Plate", v.LicensePlate, common.Required, common.MaxLength(20)).
		Field("Status", v.Status, common.OneOf(statuses...))

	year, err := strconv.Atoi(cell(3))
	if err != nil {
		val.Field("Year", cell(3), common.Required, func(string, interface{}) *common.ValidationError {
			return &common.ValidationError{Field: "Year", Value: cell(3), Message: "must be a number"}
		})
	} else {
		v.Year = year
		val.Field("Year", year, common.ModelYear)
	}

	if m := strings.ReplaceAll(cell(5), ",", ""); m != "" {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			val.Field("Current Mileage", m, func(string, interface{}) *common.ValidationError {
				return &common.ValidationError{Field: "Current Mileage", Value: m, Message: "must be a number"}
			})
		} else {
			v.CurrentMileage = n
			val.Field("Current Mileage", n, common.NonNegative)
		}
	}

	if err := val.Error(); err != nil {
		return nil, err
	}
	return v, nil
}
