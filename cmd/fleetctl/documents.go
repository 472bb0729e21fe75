package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/fleet-tracker/internal/async"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/ingest"
	"github.com/joseph-ayodele/fleet-tracker/internal/ocr"
	"github.com/joseph-ayodele/fleet-tracker/internal/utils"
)

func newOCRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ocr <file>",
		Short: "Print the normalized text of a PDF, JPEG or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			doc, err := ingest.LoadDocument(args[0], cfg.Pipeline.MaxUploadBytes)
			if err != nil {
				return err
			}
			x := ocr.NewExtractor(ocr.Config{
				Pdftoppm:      cfg.OCR.PdftoppmPath,
				Tesseract:     cfg.OCR.TesseractPath,
				TesseractLang: cfg.OCR.Lang,
				TessdataDir:   cfg.OCR.TessdataDir,
				DPI:           cfg.OCR.DPI,
				MaxPages:      cfg.OCR.MaxPages,
				MaxBytes:      cfg.Pipeline.MaxUploadBytes,
				MinTextLength: cfg.Pipeline.MinTextLength,
			}, logger)

			start := time.Now()
			res, err := x.Extract(ctx, doc)
			if err != nil {
				return fmt.Errorf("text extraction failed: %s", common.PublicMessage(err))
			}
			logger.Info("text extraction OK",
				"method", res.Method,
				"pages", res.Pages,
				"chars", len(res.Text),
				"confidence", res.Confidence,
				"duration_ms", time.Since(start).Milliseconds())
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}
}

func newProcessCmd() *cobra.Command {
	var vehicle string
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Run one document through the pipeline and print the outcome",
		Long: `Process extracts text and fields from the document, matches it to a
vehicle and commits a maintenance record. When no single vehicle matches,
the partial fields and ranked candidates are printed; rerun with --vehicle
to choose one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
			defer cancel()

			var hint *uuid.UUID
			if vehicle != "" {
				id, err := uuid.Parse(vehicle)
				if err != nil {
					return fmt.Errorf("--vehicle must be a UUID: %w", err)
				}
				hint = &id
			}

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := ingest.LoadDocument(args[0], cfg.Pipeline.MaxUploadBytes)
			if err != nil {
				return err
			}
			out, err := a.Processor.Process(ctx, doc, hint)
			if perr := printJSON(utils.OutcomeToMap(out)); perr != nil {
				return perr
			}
			if err != nil {
				return errors.New(common.PublicMessage(err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "vehicle ID to attach the record to")
	return cmd
}

func newIngestDirCmd() *cobra.Command {
	var (
		workers    int
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "ingest-dir <root>",
		Short: "Process every supported document under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			ing := ingest.NewFSIngestor(a.Processor, cfg.Pipeline.MaxUploadBytes, workers, logger)
			results, stats, err := ing.IngestDirectory(ctx, args[0], skipHidden)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Err != "" {
					fmt.Fprintf(out, "%-28s %s  %s\n", r.Stage, filepath.Base(r.SourcePath), r.Err)
					continue
				}
				fmt.Fprintf(out, "%-28s %s  record=%s\n", r.Stage, filepath.Base(r.SourcePath), r.RecordID)
			}
			fmt.Fprintf(out, "\nscanned=%d matched=%d committed=%d needs_manual=%d failed=%d\n",
				stats.Scanned, stats.Matched, stats.Committed, stats.NeedsManual, stats.Failed)
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "number of documents processed concurrently")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot-files and dot-directories")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var (
		workers     int
		initialScan bool
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Watch directories and process documents as they arrive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			ing := ingest.NewFSIngestor(a.Processor, cfg.Pipeline.MaxUploadBytes, workers, logger)
			queue := async.NewProcessorQueue(func(jctx context.Context, job async.Job) error {
				r, err := ing.IngestPath(jctx, job.Path, job.VehicleHint)
				logger.Info("watch.processed", "path", job.Path, "stage", r.Stage, "record_id", r.RecordID)
				if err != nil && !common.IsSoftFailure(err) {
					return err
				}
				return nil
			}, logger,
				async.WithWorkers(workers),
				async.WithQueueSize(512),
				async.WithProcessTimeout(3*time.Minute),
			)
			defer queue.Shutdown(context.Background())

			paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initialScan,
				Debounce:    debounce,
				SkipHidden:  true,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			logger.Info("watch.started", "roots", args, "workers", workers)

			for {
				select {
				case p, ok := <-paths:
					if !ok {
						return nil
					}
					if err := queue.Enqueue(ctx, async.Job{Path: p, SubmittedAt: time.Now(), TraceID: uuid.NewString()}); err != nil {
						if ctx.Err() != nil {
							return nil
						}
						logger.Error("watch.enqueue_failed", "path", p, "error", err)
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					logger.Warn("watch.error", "error", err)
				}
			}
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 2, "number of documents processed concurrently")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", false, "process files already present at start")
	cmd.Flags().DurationVar(&debounce, "debounce", 750*time.Millisecond, "wait for writes to settle before processing")
	return cmd
}
