package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
)

func (e *Extractor) extractImage(ctx context.Context, content []byte, mediaType string) (ExtractionResult, error) {
	tmpDir, err := os.MkdirTemp("", "fleet-img-*")
	if err != nil {
		return ExtractionResult{Method: "image-ocr"}, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("ocr.tmp.cleanup_failed", "dir", tmpDir, "err", rmErr)
		}
	}()

	ext := ".png"
	if mediaType == constants.MediaTypeJPEG {
		ext = ".jpg"
	}
	path := filepath.Join(tmpDir, "document"+ext)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return ExtractionResult{Method: "image-ocr"}, err
	}

	txt, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return ExtractionResult{Method: "image-ocr", Warnings: []string{err.Error()}},
			common.NewKindError(common.KindInsufficientText, "could not read text from the image", err)
	}
	return ExtractionResult{
		Text:     Normalize(txt),
		Pages:    1,
		Method:   "image-ocr",
		Language: e.cfg.TesseractLang,
	}, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang,
		"--oem", strconv.Itoa(e.cfg.OEM), "--psm", strconv.Itoa(e.cfg.PSM)}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang> --oem 3 --psm 6
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", filepath.Base(path), err, truncate(string(errb), 512))
	}
	return string(out), nil
}
