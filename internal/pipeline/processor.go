// Package pipeline sequences text extraction, field extraction, vehicle
// matching and record assembly for one uploaded document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/extract"
	"github.com/joseph-ayodele/fleet-tracker/internal/matcher"
	"github.com/joseph-ayodele/fleet-tracker/internal/records"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
)

// FieldExtractor is satisfied by *extract.FallbackExtractor.
type FieldExtractor interface {
	Extract(ctx context.Context, req extract.Request) (extract.Result, error)
}

// Processor runs the document pipeline. It holds no per-call state and is
// safe for concurrent use.
type Processor struct {
	Logger    *slog.Logger
	Text      extract.TextExtractor
	Fields    FieldExtractor
	Matcher   *matcher.Matcher
	Assembler *records.Assembler
	Vehicles  repository.VehicleRepository
}

func NewProcessor(
	logger *slog.Logger,
	text extract.TextExtractor,
	fields FieldExtractor,
	m *matcher.Matcher,
	asm *records.Assembler,
	vehicles repository.VehicleRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = matcher.New(logger)
	}
	return &Processor{Logger: logger, Text: text, Fields: fields, Matcher: m, Assembler: asm, Vehicles: vehicles}
}

// Process runs doc through every stage. The returned Outcome is never nil;
// err is non-nil for both fatal and soft failures and carries the kind
// (common.KindOf, common.IsSoftFailure). doc's bytes are released before
// Process returns.
func (p *Processor) Process(ctx context.Context, doc *entity.UploadedDocument, hint *uuid.UUID) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{Stage: constants.StageReceived}
	if doc == nil {
		return p.fail(out, common.NewKindError(common.KindUnsupportedInput, "no document was uploaded", nil), start)
	}
	defer doc.Release()

	out.Document = doc.Filename
	ctx = common.WithDocumentName(ctx, doc.Filename)
	log := p.Logger.With("doc", doc.Filename, "request_id", common.RequestIDFromContext(ctx))
	log.Info("pipeline.received", "media_type", doc.MediaType, "size", doc.Size, "sha256", doc.ContentHashHex())

	hinted, err := p.lookupHint(ctx, hint, out)
	if err != nil {
		return p.fail(out, err, start)
	}

	// 1) text
	text, err := p.Text.Extract(ctx, doc)
	if err != nil {
		if common.KindOf(err) == "" {
			err = common.NewKindError(common.KindInsufficientText, "no usable text could be read from the document", err)
		}
		return p.fail(out, err, start)
	}
	out.Stage = constants.StageTextExtracted
	out.TextMethod = text.Method
	out.Pages = text.Pages
	out.Warnings = append(out.Warnings, text.Warnings...)
	log.Info("pipeline.text.ok", "method", text.Method, "pages", text.Pages, "chars", len(text.Text), "elapsed_ms", time.Since(start).Milliseconds())

	roster, err := p.Vehicles.ListActive(ctx)
	if err != nil {
		return p.fail(out, common.NewKindError(common.KindPersistenceFailure, "the vehicle roster is unavailable", err), start)
	}

	// 2) fields
	res, err := p.Fields.Extract(ctx, extract.Request{Text: text.Text, Filename: doc.Filename, Vehicles: roster})
	if err != nil {
		return p.fail(out, err, start)
	}
	out.Stage = constants.StageFieldsExtracted
	out.Fields = res.Fields
	out.Provenance = res.Provenance
	out.Warnings = append(out.Warnings, res.Warnings...)
	log.Info("pipeline.fields.ok", "provenance", res.Provenance, "fields", res.Fields.Present())

	// 3) vehicle
	match := p.Matcher.Match(res.Fields, hinted, roster)
	out.Candidates = match.Candidates
	out.HintMismatch = match.HintMismatch
	out.warn(match.Warning)
	switch match.Status {
	case matcher.NoCandidate:
		out.TextPreview = preview(text.Text)
		return p.soft(out, common.NewKindError(common.KindNoVehicleMatch, "no vehicle in the fleet matches this document; select one to continue", nil), start)
	case matcher.Ambiguous:
		out.TextPreview = preview(text.Text)
		msg := fmt.Sprintf("%d vehicles match this document; select one to continue", len(match.Candidates))
		return p.soft(out, common.NewKindError(common.KindAmbiguousVehicleMatch, msg, nil), start)
	}
	out.Stage = constants.StageVehicleResolved
	out.Vehicle = match.Vehicle
	log.Info("pipeline.vehicle.ok", "vehicle_id", match.Vehicle.ID, "hint", hinted != nil)

	// 4) record
	asm, err := p.Assembler.Assemble(ctx, match.Vehicle, res.Fields, records.AssembleOptions{
		Source:       res.Provenance,
		DocumentName: doc.Filename,
	})
	if err != nil {
		return p.fail(out, err, start)
	}
	out.Stage = constants.StageRecordCommitted
	out.Record = asm.Record
	out.MileageUpdated = asm.MileageUpdated
	out.Warnings = append(out.Warnings, asm.Warnings...)
	out.Duration = time.Since(start)
	log.Info("pipeline.committed",
		"record_id", asm.Record.ID,
		"vehicle_id", match.Vehicle.ID,
		"mileage_updated", asm.MileageUpdated,
		"elapsed_ms", out.Duration.Milliseconds())
	return out, nil
}

// lookupHint resolves the caller's vehicle choice. An unknown ID is dropped
// with a warning and matching proceeds without it.
func (p *Processor) lookupHint(ctx context.Context, hint *uuid.UUID, out *Outcome) (*entity.Vehicle, error) {
	if hint == nil || *hint == uuid.Nil {
		return nil, nil
	}
	v, err := p.Vehicles.GetByID(ctx, *hint)
	switch {
	case errors.Is(err, common.ErrNotFound):
		p.Logger.Warn("pipeline.hint.unknown", "vehicle_id", *hint)
		out.warn("selected vehicle was not found and was ignored")
		return nil, nil
	case err != nil:
		return nil, common.NewKindError(common.KindPersistenceFailure, "the selected vehicle could not be loaded", err)
	}
	return v, nil
}

func (p *Processor) fail(out *Outcome, err error, start time.Time) (*Outcome, error) {
	out.FailedStage = out.Stage
	out.Stage = constants.StageFailed
	out.Kind = common.KindOf(err)
	out.Message = common.PublicMessage(err)
	out.Duration = time.Since(start)
	p.Logger.Error("pipeline.failed",
		"doc", out.Document,
		"stage", out.FailedStage,
		"kind", out.Kind,
		"err", err)
	return out, err
}

func (p *Processor) soft(out *Outcome, err error, start time.Time) (*Outcome, error) {
	out.FailedStage = out.Stage
	out.Stage = constants.StageNeedsManualResolution
	out.Kind = common.KindOf(err)
	out.Message = common.PublicMessage(err)
	out.Duration = time.Since(start)
	p.Logger.Warn("pipeline.manual_resolution",
		"doc", out.Document,
		"kind", out.Kind,
		"candidates", len(out.Candidates),
		"fields", out.Fields.Present())
	return out, err
}
