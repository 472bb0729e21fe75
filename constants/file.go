package constants

import "strings"

const (
	MediaTypePDF  = "application/pdf"
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"

	// MaxUploadBytes is the default ceiling for an uploaded document.
	MaxUploadBytes int64 = 10 << 20

	// MinTextLength is the shortest normalized text treated as usable.
	MinTextLength = 50
)

// AllowedExtensions holds the file extensions accepted for ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

var extMediaTypes = map[string]string{
	"pdf":  MediaTypePDF,
	"jpg":  MediaTypeJPEG,
	"jpeg": MediaTypeJPEG,
	"png":  MediaTypePNG,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MediaTypeForExt returns the media type for an allowed extension, or "".
func MediaTypeForExt(ext string) string {
	return extMediaTypes[NormalizeExt(ext)]
}

// IsSupportedMediaType reports whether mt is one of PDF, JPEG or PNG.
func IsSupportedMediaType(mt string) bool {
	switch mt {
	case MediaTypePDF, MediaTypeJPEG, MediaTypePNG:
		return true
	}
	return false
}
