package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/fleet-tracker/internal/common"
)

// FallbackExtractor runs the primary strategy and, if it fails, the
// fallback. A nil primary means the fallback runs alone.
type FallbackExtractor struct {
	primary  Strategy
	fallback Strategy
	logger   *slog.Logger
}

func NewFallbackExtractor(primary, fallback Strategy, logger *slog.Logger) *FallbackExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackExtractor{primary: primary, fallback: fallback, logger: logger}
}

// HasAI reports whether a primary strategy is configured.
func (f *FallbackExtractor) HasAI() bool {
	return f.primary != nil
}

func (f *FallbackExtractor) Extract(ctx context.Context, req Request) (Result, error) {
	var warnings []string
	if f.primary != nil {
		fs, err := f.primary.Extract(ctx, req)
		if err == nil {
			return Result{Fields: fs, Provenance: f.primary.Provenance()}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		f.logger.Warn("extract.primary.failed",
			"provenance", f.primary.Provenance(),
			"document", common.DocumentNameFromContext(ctx),
			"error", err)
		warnings = append(warnings, "AI extraction unavailable, used pattern extraction: "+common.PublicMessage(err))
	}

	fs, err := f.fallback.Extract(ctx, req)
	if err != nil {
		return Result{}, common.NewKindError(common.KindExtractionStrategyFailure, "pattern extraction failed", err)
	}
	return Result{Fields: fs, Provenance: f.fallback.Provenance(), Warnings: warnings}, nil
}
