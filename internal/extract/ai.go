package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/llm"
)

// AIStrategy asks a language model for the fields.
type AIStrategy struct {
	client  llm.FieldExtractor
	timeout time.Duration
	logger  *slog.Logger
}

func NewAIStrategy(client llm.FieldExtractor, timeout time.Duration, logger *slog.Logger) *AIStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &AIStrategy{client: client, timeout: timeout, logger: logger}
}

func (a *AIStrategy) Provenance() constants.Provenance {
	return constants.ProvenanceAI
}

func (a *AIStrategy) Extract(ctx context.Context, req Request) (entity.FieldSet, error) {
	ctx, cancel := common.WithTimeout(ctx, a.timeout)
	defer cancel()

	known := make([]llm.VehicleContext, 0, len(req.Vehicles))
	for _, v := range req.Vehicles {
		known = append(known, llm.VehicleContext{
			VIN:          v.VIN,
			LicensePlate: v.LicensePlate,
			Make:         v.Make,
			Model:        v.Model,
			Year:         v.Year,
		})
	}

	start := time.Now()
	fields, _, err := a.client.ExtractFields(ctx, llm.ExtractRequest{
		Text:          req.Text,
		FilenameHint:  req.Filename,
		AllowedTypes:  constants.AsStringSlice(),
		KnownVehicles: known,
	})
	if err != nil {
		msg := "model request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "model request timed out"
		}
		return entity.FieldSet{}, common.NewKindError(common.KindExtractionStrategyFailure, msg, err)
	}
	a.logger.Debug("extract.ai.done", "duration_ms", time.Since(start).Milliseconds())
	return FieldsFromLLM(fields), nil
}

// FieldsFromLLM converts sanitized model output into a FieldSet, dropping
// anything that does not parse.
func FieldsFromLLM(f llm.MaintenanceFields) entity.FieldSet {
	var fs entity.FieldSet
	fs.VehicleIdentifier = strPtr(f.VehicleIdentifier)
	if f.MaintenanceType != "" {
		t, _ := constants.Canonicalize(f.MaintenanceType)
		fs.MaintenanceType = &t
	}
	fs.ServiceDate = parseISODate(f.ServiceDate)
	fs.Mileage = parseMileage(f.Mileage)
	fs.Cost = parseCost(f.Cost)
	if p := strPtr(f.Provider); p != nil {
		v := truncateRunes(*p, 100)
		fs.Provider = &v
	}
	fs.Description = strPtr(f.Description)
	fs.NextServiceMileage = parseMileage(f.NextServiceMileage)
	fs.NextServiceDate = parseISODate(f.NextServiceDate)
	return fs
}
