package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/pipeline"
)

// DocumentProcessor is satisfied by *pipeline.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, doc *entity.UploadedDocument, hint *uuid.UUID) (*pipeline.Outcome, error)
}

// IngestionResult is the per-file outcome.
type IngestionResult struct {
	SourcePath string
	HashHex    string
	Stage      constants.Stage
	Kind       common.ErrorKind
	RecordID   string
	VehicleID  string
	Err        string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned     uint32
	Matched     uint32
	Committed   uint32
	NeedsManual uint32
	Failed      uint32
}

// Ingestor is the behavior the CLI depends on.
type Ingestor interface {
	// IngestPath runs a single file through the pipeline.
	IngestPath(ctx context.Context, path string, hint *uuid.UUID) (IngestionResult, error)
	// IngestDirectory processes all supported files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
