package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

// TextExtractor is stage 1: document -> text.
type TextExtractor interface {
	Extract(ctx context.Context, doc *entity.UploadedDocument) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	MediaType  string
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Request is the input to a field extraction strategy.
type Request struct {
	Text     string
	Filename string
	Vehicles []*entity.Vehicle // known roster, offered to strategies that can use it
}

// Strategy is stage 2: text -> fields. Implementations must leave a field
// nil rather than guess.
type Strategy interface {
	Provenance() constants.Provenance
	Extract(ctx context.Context, req Request) (entity.FieldSet, error)
}

// Result is a field set together with the strategy that produced it.
type Result struct {
	Fields     entity.FieldSet
	Provenance constants.Provenance
	Warnings   []string
}
