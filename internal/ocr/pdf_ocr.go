package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/fleet-tracker/internal/common"
)

const pageBreak = "\n\f\n"

// extractPDF prefers the embedded text layer and falls back to rasterizing
// and OCR when the layer is missing or too short to use.
func (e *Extractor) extractPDF(ctx context.Context, content []byte) (ExtractionResult, error) {
	var warns []string
	text, pages, err := e.textLayer(content)
	if err != nil {
		e.logger.Debug("ocr.pdf.text_layer_failed", "err", err)
		warns = append(warns, "text layer: "+err.Error())
	} else {
		text = Normalize(text)
		if usableLength(text) >= e.cfg.MinTextLength {
			return ExtractionResult{
				Text:     text,
				Pages:    pages,
				Method:   "pdf-text",
				Language: e.cfg.TesseractLang,
				Warnings: warns,
			}, nil
		}
		e.logger.Debug("ocr.pdf.text_layer_short", "chars", usableLength(text), "pages", pages)
	}

	text, pages, w, err := e.pdfToOCR(ctx, content)
	warns = append(warns, w...)
	if err != nil {
		return ExtractionResult{Method: "pdf-ocr", Warnings: warns}, err
	}
	return ExtractionResult{
		Text:     Normalize(text),
		Pages:    pages,
		Method:   "pdf-ocr",
		Language: e.cfg.TesseractLang,
		Warnings: warns,
	}, nil
}

// readPDFTextLayer concatenates the plain text of every page in order.
func readPDFTextLayer(content []byte) (text string, pages int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader panic: %v", p)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	pages = r.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pt, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(pageBreak)
		}
		b.WriteString(pt)
	}
	return b.String(), pages, nil
}

// pageCount reads the page count with pdfcpu; 0 means unknown.
func (e *Extractor) pageCount(content []byte) (n int) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Debug("ocr.pdf.page_count_panic", "panic", p)
			n = 0
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(content), conf)
	if err != nil {
		e.logger.Debug("ocr.pdf.page_count_failed", "err", err)
		return 0
	}
	return n
}

func (e *Extractor) pdfToOCR(ctx context.Context, content []byte) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "fleet-pdf-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("ocr.tmp.cleanup_failed", "dir", tmpDir, "err", rmErr)
		}
	}()

	in := filepath.Join(tmpDir, "document.pdf")
	if err := os.WriteFile(in, content, 0o600); err != nil {
		return "", 0, nil, err
	}

	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if total := e.pageCount(content); total > 0 && e.cfg.MaxPages > 0 && total > e.cfg.MaxPages {
		warnings = append(warnings, fmt.Sprintf("only the first %d of %d pages were read", e.cfg.MaxPages, total))
		args = append(args, "-f", "1", "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	prefix := filepath.Join(tmpDir, "page")
	args = append(args, in, prefix)

	// pdftoppm -r 300 -png [-f 1 -l N] <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...)
	if err != nil {
		return "", 0, append(warnings, string(errb)), common.NewKindError(common.KindInsufficientText,
			"could not render the PDF for OCR", fmt.Errorf("pdftoppm: %w", err))
	}

	// pdftoppm zero-pads page numbers to a common width, so lexical order is page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, append(warnings, "pdftoppm produced no images"), common.NewKindError(common.KindInsufficientText,
			"the PDF has no readable pages", nil)
	}

	var b strings.Builder
	for _, img := range matches {
		txt, err := e.tesseractOCR(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return "", 0, warnings, ctx.Err()
			}
			warnings = append(warnings, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString(pageBreak)
		}
		b.WriteString(txt)
	}
	return b.String(), len(matches), warnings, nil
}
