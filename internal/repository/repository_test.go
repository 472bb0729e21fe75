package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, InMemoryDSN(fmt.Sprintf("repo_%s", uuid.NewString())), nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func seedVehicle(t *testing.T, repo VehicleRepository, vin, plate string, mileage int64) *entity.Vehicle {
	t.Helper()
	v, created, err := repo.UpsertByVIN(context.Background(), &entity.Vehicle{
		VIN: vin, LicensePlate: plate, Make: "Ford", Model: "Transit", Year: 2020, CurrentMileage: mileage,
	})
	require.NoError(t, err)
	require.True(t, created)
	return v
}

func ptr[T any](v T) *T { return &v }

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestVehicleUpsertByVIN(t *testing.T) {
	db := newTestDB(t)
	repo := NewVehicleRepository(db, nil)
	ctx := context.Background()

	v := seedVehicle(t, repo, "1FTBW2CM5HKA12345", "FLT101", 40000)
	assert.Equal(t, constants.VehicleActive, v.Status)

	got, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "FLT101", got.LicensePlate)
	assert.EqualValues(t, 40000, got.CurrentMileage)

	// lower mileage on re-import never decreases the odometer
	updated, created, err := repo.UpsertByVIN(ctx, &entity.Vehicle{
		VIN: "1FTBW2CM5HKA12345", LicensePlate: "FLT102", Make: "Ford", Model: "Transit", Year: 2020,
		CurrentMileage: 1000, AssignedDriver: ptr("Dana"),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, v.ID, updated.ID)
	assert.EqualValues(t, 40000, updated.CurrentMileage)

	got, err = repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "FLT102", got.LicensePlate)
	assert.EqualValues(t, 40000, got.CurrentMileage)
	require.NotNil(t, got.AssignedDriver)
	assert.Equal(t, "Dana", *got.AssignedDriver)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListActiveSkipsRetired(t *testing.T) {
	db := newTestDB(t)
	repo := NewVehicleRepository(db, nil)
	ctx := context.Background()

	seedVehicle(t, repo, "1FTBW2CM5HKA00001", "AAA111", 0)
	_, _, err := repo.UpsertByVIN(ctx, &entity.Vehicle{
		VIN: "1FTBW2CM5HKA00002", LicensePlate: "AAA111", Make: "Ford", Model: "F-150", Year: 2012,
		Status: constants.VehicleRetired,
	})
	require.NoError(t, err, "retired vehicles may reuse an active plate")

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "1FTBW2CM5HKA00001", active[0].VIN)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCommitRecordRoundTrip(t *testing.T) {
	db := newTestDB(t)
	vehicles := NewVehicleRepository(db, nil)
	records := NewMaintenanceRepository(db, nil)
	ctx := context.Background()

	v := seedVehicle(t, vehicles, "1HGCM82633A123456", "ABC1234", 40000)
	cost := decimal.RequireFromString("89.50")
	serviceDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	rec := &entity.MaintenanceRecord{
		VehicleID:          v.ID,
		MaintenanceType:    constants.OilChange,
		ServiceDate:        &serviceDate,
		Mileage:            ptr(int64(45230)),
		Cost:               &cost,
		Provider:           ptr("Joe's Auto"),
		NextServiceMileage: ptr(int64(50230)),
		Source:             constants.ProvenancePattern,
		DocumentName:       ptr("receipt.pdf"),
	}

	updated, err := records.CommitRecord(ctx, rec, true)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := vehicles.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 45230, got.CurrentMileage)

	list, err := records.ListRecords(ctx, RecordFilter{VehicleID: &v.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	r := list[0]
	assert.Equal(t, rec.ID, r.ID)
	assert.Equal(t, constants.OilChange, r.MaintenanceType)
	require.NotNil(t, r.ServiceDate)
	assert.True(t, serviceDate.Equal(*r.ServiceDate))
	require.NotNil(t, r.Cost)
	assert.True(t, cost.Equal(*r.Cost))
	assert.Equal(t, int64(45230), *r.Mileage)
	assert.Equal(t, "Joe's Auto", *r.Provider)
	assert.Nil(t, r.Description)
	assert.Nil(t, r.NextServiceDate)
	assert.Equal(t, constants.ProvenancePattern, r.Source)
}

func TestCommitRecordLowerMileageLeavesVehicle(t *testing.T) {
	db := newTestDB(t)
	vehicles := NewVehicleRepository(db, nil)
	records := NewMaintenanceRepository(db, nil)
	ctx := context.Background()

	v := seedVehicle(t, vehicles, "1HGCM82633A123456", "ABC1234", 50000)
	updated, err := records.CommitRecord(ctx, &entity.MaintenanceRecord{
		VehicleID: v.ID, MaintenanceType: constants.Repair, Mileage: ptr(int64(45230)),
		Source: constants.ProvenanceAI,
	}, true)
	require.NoError(t, err)
	assert.False(t, updated)

	got, err := vehicles.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 50000, got.CurrentMileage)

	list, err := records.ListRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCommitRecordUnknownVehicleRollsBack(t *testing.T) {
	db := newTestDB(t)
	records := NewMaintenanceRepository(db, nil)
	ctx := context.Background()

	_, err := records.CommitRecord(ctx, &entity.MaintenanceRecord{
		VehicleID: uuid.New(), MaintenanceType: constants.Other, Source: constants.ProvenancePattern,
	}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)

	list, err := records.ListRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConcurrentCommitsKeepHighestMileage(t *testing.T) {
	db := newTestDB(t)
	vehicles := NewVehicleRepository(db, nil)
	records := NewMaintenanceRepository(db, nil)
	ctx := context.Background()

	v := seedVehicle(t, vehicles, "1HGCM82633A123456", "ABC1234", 10000)
	mileages := []int64{12000, 48000, 15000, 47999, 30000, 11000}

	var wg sync.WaitGroup
	errs := make(chan error, len(mileages))
	for _, m := range mileages {
		wg.Add(1)
		go func(m int64) {
			defer wg.Done()
			_, err := records.CommitRecord(ctx, &entity.MaintenanceRecord{
				VehicleID: v.ID, MaintenanceType: constants.Inspection, Mileage: ptr(m),
				Source: constants.ProvenancePattern,
			}, true)
			errs <- err
		}(m)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := vehicles.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 48000, got.CurrentMileage)
}

func TestListRecordsDateFilter(t *testing.T) {
	db := newTestDB(t)
	vehicles := NewVehicleRepository(db, nil)
	records := NewMaintenanceRepository(db, nil)
	ctx := context.Background()

	v := seedVehicle(t, vehicles, "1HGCM82633A123456", "ABC1234", 0)
	for _, d := range []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	} {
		d := d
		_, err := records.CommitRecord(ctx, &entity.MaintenanceRecord{
			VehicleID: v.ID, MaintenanceType: constants.OilChange, ServiceDate: &d,
			Source: constants.ProvenancePattern,
		}, false)
		require.NoError(t, err)
	}

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	list, err := records.ListRecords(ctx, RecordFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, time.February, list[0].ServiceDate.Month())
}
