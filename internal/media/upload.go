// Package media validates, crops and compresses uploaded images and keeps the
// results in a content-addressed store.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes is the largest accepted upload.
const DefaultMaxUploadBytes = 5 << 20

var (
	// ErrEmptyUpload is returned for zero-byte uploads.
	ErrEmptyUpload = errors.New("media: empty upload")
	// ErrTooLarge is returned when an upload exceeds the size ceiling.
	ErrTooLarge = errors.New("media: upload too large")
	// ErrNotImage is returned when the sniffed content type is not image/*.
	ErrNotImage = errors.New("media: not an image")
	// ErrTooManyPixels is returned when the declared dimensions exceed the
	// pixel ceiling.
	ErrTooManyPixels = errors.New("media: image dimensions too large")
)

// Upload is an accepted image file. Width and Height are zero when the format
// can be sniffed but not decoded (for example SVG).
type Upload struct {
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Ext      string `json:"ext"`
	Size     int64  `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Data     []byte `json:"-"`
}

// Inspect sniffs data and accepts it as an image upload when its content type
// is image/* and it is at most maxBytes long. maxBytes <= 0 selects
// DefaultMaxUploadBytes. Images declaring more than DefaultMaxPixels are
// rejected without being decoded.
func Inspect(filename string, data []byte, maxBytes int64) (Upload, error) {
	return InspectWithin(filename, data, maxBytes, DefaultMaxPixels)
}

// InspectWithin is Inspect with an explicit pixel ceiling, checked against the
// header dimensions. maxPixels <= 0 selects DefaultMaxPixels.
func InspectWithin(filename string, data []byte, maxBytes, maxPixels int64) (Upload, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if len(data) == 0 {
		return Upload{}, ErrEmptyUpload
	}
	if int64(len(data)) > maxBytes {
		return Upload{}, fmt.Errorf("%w: %s exceeds %s", ErrTooLarge, FormatBytes(int64(len(data))), FormatBytes(maxBytes))
	}
	mt := mimetype.Detect(data)
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		return Upload{}, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}
	up := Upload{
		Filename: filepath.Base(strings.TrimSpace(filename)),
		MIME:     mime,
		Ext:      mt.Extension(),
		Size:     int64(len(data)),
		Data:     data,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if px := int64(cfg.Width) * int64(cfg.Height); px > maxPixels {
			return Upload{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
		}
		up.Width, up.Height = cfg.Width, cfg.Height
	}
	return up, nil
}
