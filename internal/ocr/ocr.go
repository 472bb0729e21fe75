package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit
	PSM           int // default 6, uniform block of text
	OEM           int // default 3

	MaxBytes      int64 // default constants.MaxUploadBytes
	MinTextLength int   // default constants.MinTextLength
}

type ExtractionResult struct {
	Text       string
	Pages      int
	MediaType  string
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the external command runner.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

type Extractor struct {
	cfg       Config
	runner    Runner
	textLayer func(content []byte) (string, int, error)
	logger    *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 3
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = constants.MaxUploadBytes
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = constants.MinTextLength
	}
	e := &Extractor{
		cfg:       cfg,
		runner:    execRunner{logger: logger},
		textLayer: readPDFTextLayer,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the normalized text of doc. Unsupported or oversized input
// fails with UnsupportedInput before any conversion work; text shorter than
// the configured minimum fails with InsufficientText.
func (e *Extractor) Extract(ctx context.Context, doc *entity.UploadedDocument) (ExtractionResult, error) {
	start := time.Now()
	if doc == nil {
		e.logger.Warn("ocr.input.rejected", "reason", "nil document")
		return ExtractionResult{}, common.NewKindError(common.KindUnsupportedInput, "document is empty", nil)
	}
	mediaType, err := e.checkInput(doc)
	if err != nil {
		e.logger.Warn("ocr.input.rejected", "filename", doc.Filename, "media_type", doc.MediaType, "size", doc.Size, "err", err)
		return ExtractionResult{MediaType: doc.MediaType}, err
	}
	e.logger.Debug("ocr.extract.start", "filename", doc.Filename, "media_type", mediaType, "size", doc.Size)

	var res ExtractionResult
	switch mediaType {
	case constants.MediaTypePDF:
		res, err = e.extractPDF(ctx, doc.Content)
	default:
		res, err = e.extractImage(ctx, doc.Content, mediaType)
	}
	res.MediaType = mediaType
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	if usableLength(res.Text) < e.cfg.MinTextLength {
		e.logger.Warn("ocr.text.insufficient", "filename", doc.Filename, "method", res.Method, "chars", usableLength(res.Text))
		return res, common.NewKindError(common.KindInsufficientText,
			"could not read enough text from the document", nil)
	}
	res.Confidence = heuristicConfidence(res.Text)
	e.logger.Info("ocr.extract.ok",
		"filename", doc.Filename,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// checkInput enforces the size ceiling and resolves the media type. An empty
// or generic declared type is inferred from the filename; the declared type
// must agree with the content's signature.
func (e *Extractor) checkInput(doc *entity.UploadedDocument) (string, error) {
	if doc == nil || len(doc.Content) == 0 {
		return "", common.NewKindError(common.KindUnsupportedInput, "document is empty", nil)
	}
	size := doc.Size
	if size < int64(len(doc.Content)) {
		size = int64(len(doc.Content))
	}
	if size > e.cfg.MaxBytes {
		return "", common.NewKindError(common.KindUnsupportedInput,
			fmt.Sprintf("document exceeds the %d MB limit", e.cfg.MaxBytes>>20), nil)
	}

	declared := strings.ToLower(strings.TrimSpace(doc.MediaType))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared == "image/jpg" {
		declared = constants.MediaTypeJPEG
	}
	if declared == "" || declared == "application/octet-stream" {
		declared = constants.MediaTypeForExt(filepath.Ext(doc.Filename))
	}
	if !constants.IsSupportedMediaType(declared) {
		return "", common.NewKindError(common.KindUnsupportedInput,
			"only PDF, JPEG and PNG documents are accepted", nil)
	}

	sniffed := http.DetectContentType(doc.Content)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed != declared {
		return "", common.NewKindError(common.KindUnsupportedInput,
			fmt.Sprintf("document content does not match declared type %s", declared), nil)
	}
	return declared, nil
}
