package roster

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
)

func newVehicles(t *testing.T) repository.VehicleRepository {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, repository.InMemoryDSN(fmt.Sprintf("roster_%s", uuid.NewString())), nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return repository.NewVehicleRepository(db, nil)
}

// workbook starts from the template so the header, description and example
// rows are present, then appends rows from row 4.
func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	var tmpl bytes.Buffer
	require.NoError(t, WriteTemplate(&tmpl))
	f, err := excelize.OpenReader(&tmpl)
	require.NoError(t, err)
	defer f.Close()
	for i, row := range rows {
		r := row
		require.NoError(t, f.SetSheetRow(SheetName, fmt.Sprintf("A%d", i+4), &r))
	}
	var out bytes.Buffer
	_, err = f.WriteTo(&out)
	require.NoError(t, err)
	return &out
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "VIN*", rows[0][0])
	assert.Equal(t, "Assigned Driver", rows[0][7])
	assert.Equal(t, exampleVIN, rows[2][0])

	dvs, err := f.GetDataValidations(SheetName)
	require.NoError(t, err)
	require.Len(t, dvs, 1)
	assert.Equal(t, "G3:G1000", dvs[0].Sqref)
}

func TestImport_CreatesAndUpdates(t *testing.T) {
	repo := newVehicles(t)
	ctx := context.Background()
	im := NewImporter(repo, nil)

	res, err := im.Import(ctx, workbook(t,
		[]any{"1ftbw2cm5hka12345", "Ford", "Transit", 2018, "flt-101", "45,000", "Active", "Dana"},
		[]any{"2T1BURHE0JC123456", "Toyota", "Corolla", 2019, "FLT102", 30000, "", ""},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Empty(t, res.Errors)
	assert.Len(t, res.Warnings, 1, "example row is skipped")

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1FTBW2CM5HKA12345", all[0].VIN)
	assert.Equal(t, "FLT-101", all[0].LicensePlate)
	assert.Equal(t, int64(45000), all[0].CurrentMileage)
	require.NotNil(t, all[0].AssignedDriver)
	assert.Equal(t, "Dana", *all[0].AssignedDriver)
	assert.Equal(t, constants.VehicleActive, all[1].Status)

	// Re-import with a lower mileage and a new status.
	res, err = im.Import(ctx, workbook(t,
		[]any{"1FTBW2CM5HKA12345", "Ford", "Transit", 2018, "FLT101", 40000, "In Maintenance", ""},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Updated)

	v, err := repo.GetByID(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(45000), v.CurrentMileage)
	assert.Equal(t, constants.VehicleInMaintenance, v.Status)
}

func TestImport_RowErrors(t *testing.T) {
	repo := newVehicles(t)
	res, err := NewImporter(repo, nil).Import(context.Background(), workbook(t,
		[]any{"SHORTVIN", "Ford", "Transit", 2018, "FLT101"},
		[]any{"2T1BURHE0JC123456", "", "Corolla", 2019, "FLT102"},
		[]any{"3VWFE21C04M000001", "VW", "Jetta", 1850, "FLT103"},
		[]any{"3VWFE21C04M000002", "VW", "Jetta", 2004, "FLT104", "-5"},
		[]any{"3VWFE21C04M000003", "VW", "Jetta", 2004, "FLT105", "", "Sold"},
		[]any{"3VWFE21C04M000004", "VW", "Jetta", 2004, "FLT106"},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Errors, 5)
	assert.Contains(t, res.Errors[0], "Row 4")
	assert.Contains(t, res.Errors[1], "Make")
	assert.Contains(t, res.Errors[2], "Year")
	assert.Contains(t, res.Errors[3], "Current Mileage")
	assert.Contains(t, res.Errors[4], "Status")
}

func TestImport_MissingSheet(t *testing.T) {
	f := excelize.NewFile()
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = NewImporter(newVehicles(t), nil).Import(context.Background(), &buf)
	require.Error(t, err)
}
