package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/async"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

// FSIngestor feeds files from the local filesystem into the pipeline.
type FSIngestor struct {
	Processor DocumentProcessor
	MaxBytes  int64
	Workers   int
	Logger    *slog.Logger
}

func NewFSIngestor(proc DocumentProcessor, maxBytes int64, workers int, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	if workers <= 0 {
		workers = 4
	}
	return &FSIngestor{Processor: proc, MaxBytes: maxBytes, Workers: workers, Logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string, hint *uuid.UUID) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path, Stage: constants.StageFailed}
	if abs, err := filepath.Abs(path); err == nil {
		out.SourcePath = abs
	}

	doc, err := LoadDocument(out.SourcePath, i.MaxBytes)
	if err != nil {
		out.Kind, out.Err = common.KindOf(err), err.Error()
		return out, err
	}
	out.HashHex = doc.ContentHashHex()

	res, err := i.Processor.Process(ctx, doc, hint)
	if res != nil {
		out.Stage = res.Stage
		out.Kind = res.Kind
		if res.Record != nil {
			out.RecordID = res.Record.ID.String()
		}
		if res.Vehicle != nil {
			out.VehicleID = res.Vehicle.ID.String()
		}
	}
	if err != nil {
		out.Err = common.PublicMessage(err)
		return out, err
	}
	return out, nil
}

// LoadDocument reads a local file as an upload. The extension and size are
// checked before the file is read.
func LoadDocument(path string, maxBytes int64) (*entity.UploadedDocument, error) {
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext == "" || !AllowedExt(ext) {
		return nil, common.NewKindError(common.KindUnsupportedInput, fmt.Sprintf("unsupported or missing extension %q", ext), nil)
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if st.Size() > maxBytes {
		return nil, common.NewKindError(common.KindUnsupportedInput, "file is larger than the upload limit", nil)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return entity.NewUploadedDocument(filepath.Base(path), constants.MediaTypeForExt(ext), content), nil
}

// IngestDirectory walks root, skips hidden entries if requested, and runs
// every supported file through the pipeline on a bounded worker pool.
// Results are in walk order.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var (
		results []IngestionResult
		stats   DirStats
		paths   []int // indexes into results awaiting processing
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Stage: constants.StageFailed, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, len(results))
		results = append(results, IngestionResult{SourcePath: path})
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	var mu sync.Mutex
	q := async.NewProcessorQueue(func(jctx context.Context, job async.Job) error {
		idx := job.Index
		r, err := i.IngestPath(jctx, job.Path, nil)
		mu.Lock()
		results[idx] = r
		mu.Unlock()
		if err != nil && !common.IsSoftFailure(err) {
			return err
		}
		return nil
	}, i.Logger, async.WithWorkers(i.Workers))

	for _, idx := range paths {
		if err := q.Enqueue(ctx, async.Job{Path: results[idx].SourcePath, Index: idx}); err != nil {
			results[idx] = IngestionResult{SourcePath: results[idx].SourcePath, Stage: constants.StageFailed, Err: err.Error()}
		}
	}
	q.Shutdown(context.Background())

	for _, idx := range paths {
		switch results[idx].Stage {
		case constants.StageRecordCommitted:
			stats.Committed++
		case constants.StageNeedsManualResolution:
			stats.NeedsManual++
		default:
			stats.Failed++
		}
	}
	i.Logger.Info("ingest.dir.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"committed", stats.Committed,
		"needs_manual", stats.NeedsManual,
		"failed", stats.Failed)
	return results, stats, nil
}
