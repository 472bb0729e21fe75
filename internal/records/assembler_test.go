package records

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
)

type fixture struct {
	vehicles repository.VehicleRepository
	records  repository.MaintenanceRepository
	vehicle  *entity.Vehicle
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, repository.InMemoryDSN(fmt.Sprintf("records_%s", uuid.NewString())), nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	vr := repository.NewVehicleRepository(db, nil)
	v, _, err := vr.UpsertByVIN(ctx, &entity.Vehicle{
		VIN: "1FTBW2CM5HKA12345", LicensePlate: "FLT101", Make: "Ford", Model: "Transit", Year: 2018, CurrentMileage: 45000,
	})
	require.NoError(t, err)
	return fixture{vehicles: vr, records: repository.NewMaintenanceRepository(db, nil), vehicle: v}
}

func ptr[T any](v T) *T { return &v }

func TestAssemble_RaisesMileage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cost := decimal.RequireFromString("89.50")
	oil := constants.OilChange

	res, err := NewAssembler(f.records, 0, nil).Assemble(ctx, f.vehicle, entity.FieldSet{
		MaintenanceType: &oil,
		ServiceDate:     ptr(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
		Mileage:         ptr(int64(45230)),
		Cost:            &cost,
		Provider:        ptr("Joe's Auto"),
	}, AssembleOptions{Source: constants.ProvenancePattern, DocumentName: "joes.pdf"})
	require.NoError(t, err)
	assert.True(t, res.MileageUpdated)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, constants.OilChange, res.Record.MaintenanceType)
	assert.Equal(t, "joes.pdf", *res.Record.DocumentName)

	v, err := f.vehicles.GetByID(ctx, f.vehicle.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 45230, v.CurrentMileage)

	recs, err := f.records.ListRecords(ctx, repository.RecordFilter{VehicleID: &f.vehicle.ID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "89.50", recs[0].Cost.StringFixed(2))
	assert.Equal(t, constants.ProvenancePattern, recs[0].Source)
}

func TestAssemble_LowerMileageLeavesVehicle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := NewAssembler(f.records, 0, nil).Assemble(ctx, f.vehicle, entity.FieldSet{
		Mileage: ptr(int64(44000)),
	}, AssembleOptions{Source: constants.ProvenanceAI})
	require.NoError(t, err)
	assert.False(t, res.MileageUpdated)
	assert.Equal(t, constants.Other, res.Record.MaintenanceType)

	v, err := f.vehicles.GetByID(ctx, f.vehicle.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 45000, v.CurrentMileage)
}

func TestAssemble_MileageCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := NewAssembler(f.records, 10000, nil).Assemble(ctx, f.vehicle, entity.FieldSet{
		Mileage: ptr(int64(450000)),
	}, AssembleOptions{Source: constants.ProvenancePattern})
	require.NoError(t, err)
	assert.False(t, res.MileageUpdated)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "not updated")

	v, err := f.vehicles.GetByID(ctx, f.vehicle.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 45000, v.CurrentMileage)

	recs, err := f.records.ListRecords(ctx, repository.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.EqualValues(t, 450000, *recs[0].Mileage)
}

func TestAssemble_NilVehicle(t *testing.T) {
	_, err := NewAssembler(nil, 0, nil).Assemble(context.Background(), nil, entity.FieldSet{}, AssembleOptions{})
	require.Error(t, err)
	assert.Equal(t, common.KindUnresolvedVehicle, common.KindOf(err))
	assert.ErrorIs(t, err, common.ErrUnresolvedVehicle)
}

type failingRepo struct{ repository.MaintenanceRepository }

func (failingRepo) CommitRecord(context.Context, *entity.MaintenanceRecord, bool) (bool, error) {
	return false, errors.New("disk I/O error")
}

func TestAssemble_PersistenceFailureHidesDriverError(t *testing.T) {
	v := &entity.Vehicle{ID: uuid.New(), CurrentMileage: 10}
	_, err := NewAssembler(failingRepo{}, 0, nil).Assemble(context.Background(), v, entity.FieldSet{
		Mileage: ptr(int64(20)),
	}, AssembleOptions{})
	require.Error(t, err)
	assert.Equal(t, common.KindPersistenceFailure, common.KindOf(err))
	assert.NotContains(t, common.PublicMessage(err), "disk")
	assert.EqualValues(t, 10, v.CurrentMileage)
}
