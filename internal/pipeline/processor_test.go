package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/extract"
	"github.com/joseph-ayodele/fleet-tracker/internal/llm"
	"github.com/joseph-ayodele/fleet-tracker/internal/matcher"
	"github.com/joseph-ayodele/fleet-tracker/internal/records"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
)

const joesReceipt = "Joe's Auto — Oil Change — 03/15/2024 — Mileage: 45,230 — Total: $89.50 — VIN: 1HGCM82633A123456"

type stubText struct {
	text string
	err  error
	seen *entity.UploadedDocument
}

func (s *stubText) Extract(_ context.Context, doc *entity.UploadedDocument) (extract.TextExtractionResult, error) {
	s.seen = doc
	if s.err != nil {
		return extract.TextExtractionResult{}, s.err
	}
	return extract.TextExtractionResult{Text: s.text, Pages: 1, Method: "pdf-text"}, nil
}

type brokenLLM struct{}

func (brokenLLM) ExtractFields(context.Context, llm.ExtractRequest) (llm.MaintenanceFields, []byte, error) {
	return llm.MaintenanceFields{}, nil, errors.New("503 service unavailable")
}

type env struct {
	vehicles repository.VehicleRepository
	records  repository.MaintenanceRepository
	text     *stubText
	proc     *Processor
}

func newEnv(t *testing.T, primary extract.Strategy, text string) env {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, repository.InMemoryDSN(fmt.Sprintf("pipeline_%s", uuid.NewString())), nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	e := env{
		vehicles: repository.NewVehicleRepository(db, nil),
		records:  repository.NewMaintenanceRepository(db, nil),
		text:     &stubText{text: text},
	}
	e.proc = NewProcessor(nil,
		e.text,
		extract.NewFallbackExtractor(primary, extract.NewPatternStrategy(), nil),
		matcher.New(nil),
		records.NewAssembler(e.records, 0, nil),
		e.vehicles,
	)
	return e
}

func (e env) addVehicle(t *testing.T, vin, plate string, mileage int64) *entity.Vehicle {
	t.Helper()
	v, _, err := e.vehicles.UpsertByVIN(context.Background(), &entity.Vehicle{
		VIN: vin, LicensePlate: plate, Make: "Honda", Model: "Accord", Year: 2003, CurrentMileage: mileage,
	})
	require.NoError(t, err)
	return v
}

func pdfDoc() *entity.UploadedDocument {
	return entity.NewUploadedDocument("joes.pdf", constants.MediaTypePDF, []byte("%PDF-1.4 stub"))
}

func TestProcess_CommitsAndRaisesMileage(t *testing.T) {
	e := newEnv(t, nil, joesReceipt)
	v := e.addVehicle(t, "1HGCM82633A123456", "JOE123", 45000)
	e.addVehicle(t, "1FTBW2CM5HKA12345", "FLT101", 10000)

	doc := pdfDoc()
	out, err := e.proc.Process(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.True(t, out.Committed())
	assert.Equal(t, constants.StageRecordCommitted, out.Stage)
	assert.Equal(t, constants.ProvenancePattern, out.Provenance)
	assert.Equal(t, v.ID, out.Vehicle.ID)
	assert.True(t, out.MileageUpdated)
	assert.Nil(t, doc.Content, "document bytes must be released")

	got, err := e.vehicles.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 45230, got.CurrentMileage)

	recs, err := e.records.ListRecords(context.Background(), repository.RecordFilter{VehicleID: &v.ID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, constants.OilChange, recs[0].MaintenanceType)
	assert.Equal(t, "89.50", recs[0].Cost.StringFixed(2))
	assert.Equal(t, "joes.pdf", *recs[0].DocumentName)
}

func TestProcess_AIFailureFallsBackToPattern(t *testing.T) {
	e := newEnv(t, extract.NewAIStrategy(brokenLLM{}, 0, nil), joesReceipt)
	e.addVehicle(t, "1HGCM82633A123456", "JOE123", 45000)

	out, err := e.proc.Process(context.Background(), pdfDoc(), nil)
	require.NoError(t, err)
	assert.True(t, out.Committed())
	assert.Equal(t, constants.ProvenancePattern, out.Provenance)
	assert.Equal(t, constants.ProvenancePattern, out.Record.Source)
	assert.NotEmpty(t, out.Warnings)
}

func TestProcess_NoMatchKeepsFields(t *testing.T) {
	e := newEnv(t, nil, joesReceipt)
	e.addVehicle(t, "1FTBW2CM5HKA12345", "FLT101", 10000)

	out, err := e.proc.Process(context.Background(), pdfDoc(), nil)
	require.Error(t, err)
	assert.True(t, common.IsSoftFailure(err))
	assert.True(t, out.NeedsManualResolution())
	assert.Equal(t, common.KindNoVehicleMatch, out.Kind)
	assert.Equal(t, constants.StageFieldsExtracted, out.FailedStage)
	assert.Empty(t, out.Candidates)
	require.NotNil(t, out.Fields.Mileage)
	assert.EqualValues(t, 45230, *out.Fields.Mileage)
	require.NotNil(t, out.Fields.Cost)
	assert.Equal(t, joesReceipt, out.TextPreview)

	recs, err := e.records.ListRecords(context.Background(), repository.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestProcess_AmbiguousPlateSubstring(t *testing.T) {
	e := newEnv(t, nil, "Unit: FLT10\nBrake pads replaced\nTotal: $210.00\n"+strings.Repeat("x", 40))
	a := e.addVehicle(t, "1FTBW2CM5HKA00001", "FLT101", 10000)
	b := e.addVehicle(t, "1FTBW2CM5HKA00002", "FLT102", 12000)

	out, err := e.proc.Process(context.Background(), pdfDoc(), nil)
	require.Error(t, err)
	assert.Equal(t, common.KindAmbiguousVehicleMatch, common.KindOf(err))
	require.Len(t, out.Candidates, 2)
	ids := []uuid.UUID{out.Candidates[0].Vehicle.ID, out.Candidates[1].Vehicle.ID}
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)
	require.NotNil(t, out.Fields.MaintenanceType)
	assert.Equal(t, constants.BrakeService, *out.Fields.MaintenanceType)
}

func TestProcess_HintOverridesAndFlagsMismatch(t *testing.T) {
	e := newEnv(t, nil, joesReceipt)
	e.addVehicle(t, "1HGCM82633A123456", "JOE123", 45000)
	other := e.addVehicle(t, "1FTBW2CM5HKA12345", "FLT101", 10000)

	out, err := e.proc.Process(context.Background(), pdfDoc(), &other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, out.Vehicle.ID)
	assert.True(t, out.HintMismatch)
	assert.NotEmpty(t, out.Warnings)
}

func TestProcess_UnknownHintIsIgnored(t *testing.T) {
	e := newEnv(t, nil, joesReceipt)
	v := e.addVehicle(t, "1HGCM82633A123456", "JOE123", 45000)

	unknown := uuid.New()
	out, err := e.proc.Process(context.Background(), pdfDoc(), &unknown)
	require.NoError(t, err)
	assert.Equal(t, v.ID, out.Vehicle.ID)
	assert.Contains(t, out.Warnings, "selected vehicle was not found and was ignored")
}

func TestProcess_TextFailureIsFatal(t *testing.T) {
	e := newEnv(t, nil, "")
	e.text.err = common.NewKindError(common.KindUnsupportedInput, "unsupported file type", nil)

	doc := pdfDoc()
	out, err := e.proc.Process(context.Background(), doc, nil)
	require.Error(t, err)
	assert.False(t, common.IsSoftFailure(err))
	assert.Equal(t, constants.StageFailed, out.Stage)
	assert.Equal(t, constants.StageReceived, out.FailedStage)
	assert.Equal(t, common.KindUnsupportedInput, out.Kind)
	assert.Nil(t, doc.Content)
}

func TestProcess_UntypedTextErrorIsInsufficientText(t *testing.T) {
	e := newEnv(t, nil, "")
	e.text.err = errors.New("tesseract exploded")

	out, err := e.proc.Process(context.Background(), pdfDoc(), nil)
	require.Error(t, err)
	assert.Equal(t, common.KindInsufficientText, out.Kind)
	assert.NotContains(t, out.Message, "tesseract")
}
