// Package records turns a resolved vehicle and an extracted field set into a
// committed maintenance record.
package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
)

type AssembleOptions struct {
	Source       constants.Provenance
	DocumentName string
}

type Result struct {
	Record         *entity.MaintenanceRecord
	MileageUpdated bool
	Warnings       []string
}

type Assembler struct {
	repo repository.MaintenanceRepository
	// maxIncrease caps how far one document may raise a vehicle's mileage.
	// Zero disables the check.
	maxIncrease int64
	logger      *slog.Logger
}

func NewAssembler(repo repository.MaintenanceRepository, maxIncrease int64, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{repo: repo, maxIncrease: maxIncrease, logger: logger}
}

// Assemble validates fields against vehicle and commits the record. The
// insert and any mileage raise are one transaction.
func (a *Assembler) Assemble(ctx context.Context, vehicle *entity.Vehicle, fields entity.FieldSet, opts AssembleOptions) (*Result, error) {
	if vehicle == nil {
		return nil, common.NewKindError(common.KindUnresolvedVehicle, "a vehicle must be selected before the record can be saved", nil)
	}

	rec := &entity.MaintenanceRecord{
		VehicleID:          vehicle.ID,
		MaintenanceType:    constants.Other,
		ServiceDate:        fields.ServiceDate,
		Mileage:            fields.Mileage,
		Cost:               fields.Cost,
		Provider:           fields.Provider,
		Description:        fields.Description,
		NextServiceMileage: fields.NextServiceMileage,
		NextServiceDate:    fields.NextServiceDate,
		Source:             opts.Source,
	}
	if fields.MaintenanceType != nil && fields.MaintenanceType.IsValid() {
		rec.MaintenanceType = *fields.MaintenanceType
	}
	if opts.DocumentName != "" {
		name := opts.DocumentName
		rec.DocumentName = &name
	}

	res := &Result{Record: rec}
	raise := rec.Mileage != nil && *rec.Mileage > vehicle.CurrentMileage
	if raise && a.maxIncrease > 0 && *rec.Mileage-vehicle.CurrentMileage > a.maxIncrease {
		raise = false
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"mileage %d is more than %d above the %d on file; vehicle mileage was not updated",
			*rec.Mileage, a.maxIncrease, vehicle.CurrentMileage))
		a.logger.Warn("records.mileage.implausible",
			"vehicle_id", vehicle.ID, "on_file", vehicle.CurrentMileage, "extracted", *rec.Mileage)
	}

	updated, err := a.repo.CommitRecord(ctx, rec, raise)
	if err != nil {
		a.logger.Error("records.commit.failed", "vehicle_id", vehicle.ID, "error", err)
		return nil, common.NewKindError(common.KindPersistenceFailure, "the maintenance record could not be saved", err)
	}
	res.MileageUpdated = updated
	if updated {
		vehicle.CurrentMileage = *rec.Mileage
	}

	a.logger.Info("records.commit.ok",
		"record_id", rec.ID,
		"vehicle_id", vehicle.ID,
		"type", rec.MaintenanceType,
		"mileage_updated", updated)
	return res, nil
}
