package entity

import (
	"crypto/sha256"
	"encoding/hex"
)

// UploadedDocument is the transient input to the pipeline. Its bytes are
// dropped by Release once processing ends.
type UploadedDocument struct {
	Filename  string
	MediaType string
	Content   []byte
	Size      int64
}

func NewUploadedDocument(filename, mediaType string, content []byte) *UploadedDocument {
	return &UploadedDocument{
		Filename:  filename,
		MediaType: mediaType,
		Content:   content,
		Size:      int64(len(content)),
	}
}

// ContentHashHex is the sha256 of the content, used for log correlation.
func (d *UploadedDocument) ContentHashHex() string {
	if d == nil || d.Content == nil {
		return ""
	}
	sum := sha256.Sum256(d.Content)
	return hex.EncodeToString(sum[:])
}

// Release drops the document bytes.
func (d *UploadedDocument) Release() {
	if d == nil {
		return
	}
	d.Content = nil
}
