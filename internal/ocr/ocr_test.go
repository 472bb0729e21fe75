package ocr

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
)

var (
	pdfMagic  = []byte("%PDF-1.4\n%fake test document\n")
	pngMagic  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegMagic = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

const serviceText = "Joe's Auto - Oil Change - 03/15/2024 - Mileage: 45,230 - Total: $89.50 - VIN: 1HGCM82633A123456"

type fakeRunner struct {
	mu       sync.Mutex
	calls    []string
	dirs     []string
	pages    int
	pageText map[string]string
	failOn   string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return nil, []byte("boom"), errors.New("exit status 1")
	}
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		f.dirs = append(f.dirs, filepath.Dir(prefix))
		for i := 1; i <= f.pages; i++ {
			p := prefix + "-" + string(rune('0'+i)) + ".png"
			if err := os.WriteFile(p, pngMagic, 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		in := args[0]
		f.dirs = append(f.dirs, filepath.Dir(in))
		base := filepath.Base(in)
		if txt, ok := f.pageText[base]; ok {
			return []byte(txt), nil, nil
		}
		return []byte(f.pageText["*"]), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func (f *fakeRunner) assertCleaned(t *testing.T) {
	t.Helper()
	for _, d := range f.dirs {
		_, err := os.Stat(d)
		assert.True(t, os.IsNotExist(err), "temp dir %s should be removed", d)
	}
}

func newTestExtractor(r Runner, layer func([]byte) (string, int, error)) *Extractor {
	e := NewExtractor(Config{MaxPages: 5}, nil, WithRunner(r))
	if layer != nil {
		e.textLayer = layer
	}
	return e
}

func noTextLayer([]byte) (string, int, error) { return "", 0, errors.New("no text layer") }

func TestExtractRejectsOversizeBeforeAnyWork(t *testing.T) {
	r := &fakeRunner{}
	e := newTestExtractor(r, nil)

	big := append(append([]byte{}, pdfMagic...), bytes.Repeat([]byte{'x'}, 15<<20)...)
	_, err := e.Extract(context.Background(), entity.NewUploadedDocument("big.pdf", constants.MediaTypePDF, big))

	require.Error(t, err)
	assert.Equal(t, common.KindUnsupportedInput, common.KindOf(err))
	assert.Empty(t, r.calls)
}

func TestExtractRejectsNilDocument(t *testing.T) {
	r := &fakeRunner{}
	e := newTestExtractor(r, nil)

	_, err := e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrUnsupportedInput)
	assert.Empty(t, r.calls)
}

func TestExtractRejectsUnsupportedMediaType(t *testing.T) {
	r := &fakeRunner{}
	e := newTestExtractor(r, nil)

	_, err := e.Extract(context.Background(), entity.NewUploadedDocument("scan.gif", "image/gif", []byte("GIF89a....")))
	assert.ErrorIs(t, err, common.ErrUnsupportedInput)

	// declared PDF but the bytes are a PNG
	_, err = e.Extract(context.Background(), entity.NewUploadedDocument("scan.pdf", constants.MediaTypePDF, pngMagic))
	assert.ErrorIs(t, err, common.ErrUnsupportedInput)
	assert.Empty(t, r.calls)
}

func TestExtractPDFTextLayer(t *testing.T) {
	r := &fakeRunner{}
	e := newTestExtractor(r, func([]byte) (string, int, error) {
		return "  " + serviceText + "\r\n\r\n\r\n\r\nThank you\t\tfor your business  ", 1, nil
	})

	res, err := e.Extract(context.Background(), entity.NewUploadedDocument("r.pdf", constants.MediaTypePDF, pdfMagic))
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, serviceText+"\n\nThank you for your business", res.Text)
	assert.Empty(t, r.calls, "text layer hit must not shell out")
}

func TestExtractPDFFallsBackToOCRInPageOrder(t *testing.T) {
	r := &fakeRunner{
		pages: 3,
		pageText: map[string]string{
			"page-1.png": "PAGE ONE Joe's Auto service invoice for fleet unit",
			"page-2.png": "PAGE TWO Mileage: 45,230",
			"page-3.png": "PAGE THREE Total: $89.50",
		},
	}
	e := newTestExtractor(r, func([]byte) (string, int, error) { return "tiny", 3, nil })

	res, err := e.Extract(context.Background(), entity.NewUploadedDocument("scan.pdf", "", pdfMagic))
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 3, res.Pages)

	one := strings.Index(res.Text, "PAGE ONE")
	two := strings.Index(res.Text, "PAGE TWO")
	three := strings.Index(res.Text, "PAGE THREE")
	assert.True(t, one >= 0 && one < two && two < three, res.Text)
	assert.Equal(t, []string{"pdftoppm", "tesseract", "tesseract", "tesseract"}, r.calls)
	r.assertCleaned(t)
}

func TestExtractImage(t *testing.T) {
	r := &fakeRunner{pageText: map[string]string{"*": serviceText}}
	e := newTestExtractor(r, nil)

	res, err := e.Extract(context.Background(), entity.NewUploadedDocument("photo.jpg", "image/jpg", jpegMagic))
	require.NoError(t, err)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, constants.MediaTypeJPEG, res.MediaType)
	assert.Equal(t, serviceText, res.Text)
	assert.Greater(t, res.Confidence, float32(0.5))
	r.assertCleaned(t)
}

func TestExtractInsufficientText(t *testing.T) {
	r := &fakeRunner{pageText: map[string]string{"*": "  blurry  \n"}}
	e := newTestExtractor(r, nil)

	_, err := e.Extract(context.Background(), entity.NewUploadedDocument("photo.png", constants.MediaTypePNG, pngMagic))
	require.Error(t, err)
	assert.Equal(t, common.KindInsufficientText, common.KindOf(err))
	r.assertCleaned(t)
}

func TestExtractOCRToolFailureCleansUp(t *testing.T) {
	r := &fakeRunner{pages: 1, failOn: "tesseract"}
	e := newTestExtractor(r, noTextLayer)

	_, err := e.Extract(context.Background(), entity.NewUploadedDocument("scan.pdf", constants.MediaTypePDF, pdfMagic))
	require.Error(t, err)
	assert.Equal(t, common.KindInsufficientText, common.KindOf(err))
	r.assertCleaned(t)

	r = &fakeRunner{failOn: "pdftoppm"}
	e = newTestExtractor(r, noTextLayer)
	_, err = e.Extract(context.Background(), entity.NewUploadedDocument("scan.pdf", constants.MediaTypePDF, pdfMagic))
	assert.Equal(t, common.KindInsufficientText, common.KindOf(err))
	r.assertCleaned(t)
}

func TestNormalize(t *testing.T) {
	in := "Line one\t\twith tabs  \r\n-----\r\n\n\n\nLine two   spaced"
	assert.Equal(t, "Line one with tabs\n\nLine two spaced", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}
