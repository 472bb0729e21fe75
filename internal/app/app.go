// Package app wires configuration into the pipeline and its stores. Both
// binaries build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/export"
	"github.com/joseph-ayodele/fleet-tracker/internal/extract"
	"github.com/joseph-ayodele/fleet-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/fleet-tracker/internal/matcher"
	"github.com/joseph-ayodele/fleet-tracker/internal/ocr"
	"github.com/joseph-ayodele/fleet-tracker/internal/pipeline"
	"github.com/joseph-ayodele/fleet-tracker/internal/records"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
	"github.com/joseph-ayodele/fleet-tracker/internal/roster"
)

type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	DB        *repository.DB
	Vehicles  repository.VehicleRepository
	Records   repository.MaintenanceRepository
	OCR       *ocr.Extractor
	Fields    *extract.FallbackExtractor
	Processor *pipeline.Processor
	Exporter  *export.Service
	Importer  *roster.Importer
}

// Options adjusts how the store is opened.
type Options struct {
	// InMemory swaps the configured store for a private in-memory SQLite
	// database, migrated on open.
	InMemory bool
	// Migrate applies the schema after connecting.
	Migrate bool
}

// New opens the store and builds every pipeline stage. The LLM strategy is
// only wired when an API key is configured.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dbCfg := repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}
	if opts.InMemory {
		dbCfg.Driver = "sqlite"
		dbCfg.DSN = repository.InMemoryDSN("fleet_" + uuid.NewString())
		opts.Migrate = true
	}

	db, err := repository.Open(ctx, dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.Migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Vehicles: repository.NewVehicleRepository(db, logger),
		Records:  repository.NewMaintenanceRepository(db, logger),
	}
	a.OCR = ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.OCR.PdftoppmPath,
		Tesseract:     cfg.OCR.TesseractPath,
		TesseractLang: cfg.OCR.Lang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		MaxBytes:      cfg.Pipeline.MaxUploadBytes,
		MinTextLength: cfg.Pipeline.MinTextLength,
	}, logger)

	var primary extract.Strategy
	if cfg.AIEnabled() {
		client, err := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("llm client: %w", err)
		}
		primary = extract.NewAIStrategy(client, cfg.LLM.Timeout, logger)
		logger.Info("app.llm.enabled", "model", cfg.LLM.Model)
	} else {
		logger.Warn("app.llm.disabled", "reason", "OPENAI_API_KEY not set; using pattern extraction only")
	}
	a.Fields = extract.NewFallbackExtractor(primary, extract.NewPatternStrategy(), logger)

	a.Processor = pipeline.NewProcessor(
		logger,
		extract.NewOCRAdapter(a.OCR),
		a.Fields,
		matcher.New(logger),
		records.NewAssembler(a.Records, cfg.Pipeline.MaxMileageIncrease, logger),
		a.Vehicles,
	)
	a.Exporter = export.NewService(a.Records, a.Vehicles, logger)
	a.Importer = roster.NewImporter(a.Vehicles, logger)
	return a, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.DB.Close()
}
