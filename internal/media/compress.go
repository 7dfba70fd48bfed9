package media

import (
	"context"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Options bounds a resize and re-encode pass.
type Options struct {
	// Threshold skips re-encoding for inputs at or below this many bytes.
	Threshold int64
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// CompressOptions is the upload policy: anything above 1 MB is fit into
// 1200x1200 and re-encoded as JPEG quality 80.
var CompressOptions = Options{Threshold: 1 << 20, MaxWidth: 1200, MaxHeight: 1200, Quality: DefaultQuality}

// ThumbnailOptions produces 200x200 previews.
var ThumbnailOptions = Options{MaxWidth: 200, MaxHeight: 200, Quality: DefaultQuality}

// Result describes one compress pass.
type Result struct {
	Data           []byte  `json:"-"`
	MIME           string  `json:"mime"`
	OriginalSize   int64   `json:"original_size"`
	Size           int64   `json:"size"`
	OriginalWidth  int     `json:"original_width"`
	OriginalHeight int     `json:"original_height"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	SavedPercent   float64 `json:"saved_percent"`
	Reencoded      bool    `json:"reencoded"`
}

// FitWithin scales w x h down to fit maxW x maxH preserving aspect ratio. It
// never upscales and never returns a zero dimension.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if (maxW <= 0 || w <= maxW) && (maxH <= 0 || h <= maxH) {
		return w, h
	}
	ratio := math.Inf(1)
	if maxW > 0 {
		ratio = float64(maxW) / float64(w)
	}
	if maxH > 0 {
		ratio = math.Min(ratio, float64(maxH)/float64(h))
	}
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	return max(nw, 1), max(nh, 1)
}

// Resize returns img scaled to fit the bounds; img itself when it already fits.
func Resize(img image.Image, maxW, maxH int, scaler draw.Scaler) image.Image {
	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxW, maxH)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	if scaler == nil {
		scaler = draw.CatmullRom
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Compress applies the upload policy to data. Inputs at or below the threshold
// are returned untouched; otherwise the image is fit into the bounds and
// re-encoded as JPEG. The original bytes are kept when they already fit the
// bounds and the re-encode is not smaller. An oversized original is always
// replaced, by a PNG of the resized image when that beats the JPEG.
func Compress(ctx context.Context, data []byte, mime string, opts Options) (Result, error) {
	res := Result{Data: data, MIME: mime, OriginalSize: int64(len(data)), Size: int64(len(data))}
	if opts.Threshold > 0 && int64(len(data)) <= opts.Threshold {
		if cfg, _, err := image.DecodeConfig(bytesReader(data)); err == nil {
			res.OriginalWidth, res.OriginalHeight = cfg.Width, cfg.Height
			res.Width, res.Height = cfg.Width, cfg.Height
		}
		return res, nil
	}
	img, _, err := Decode(data)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	b := img.Bounds()
	res.OriginalWidth, res.OriginalHeight = b.Dx(), b.Dy()
	res.Width, res.Height = b.Dx(), b.Dy()

	scaled := Resize(img, opts.MaxWidth, opts.MaxHeight, draw.CatmullRom)
	encoded, err := EncodeJPEG(scaled, opts.Quality)
	if err != nil {
		return Result{}, err
	}
	sb := scaled.Bounds()
	outMIME := "image/jpeg"
	if len(encoded) >= len(data) {
		if sb.Dx() == b.Dx() && sb.Dy() == b.Dy() {
			return res, nil
		}
		// The original exceeds the bounds; a lossless encode of the resized
		// image is often smaller for flat artwork.
		if lossless, err := EncodePNG(scaled); err == nil && len(lossless) < len(encoded) {
			encoded, outMIME = lossless, "image/png"
		}
	}
	res.Data = encoded
	res.MIME = outMIME
	res.Size = int64(len(encoded))
	res.Width, res.Height = sb.Dx(), sb.Dy()
	res.Reencoded = true
	res.SavedPercent = savedPercent(res.OriginalSize, res.Size)
	return res, nil
}

// Thumbnail always re-encodes data into a small JPEG preview.
func Thumbnail(ctx context.Context, data []byte) (Result, error) {
	img, _, err := Decode(data)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	b := img.Bounds()
	thumb := Resize(img, ThumbnailOptions.MaxWidth, ThumbnailOptions.MaxHeight, draw.ApproxBiLinear)
	encoded, err := EncodeJPEG(thumb, ThumbnailOptions.Quality)
	if err != nil {
		return Result{}, err
	}
	tb := thumb.Bounds()
	return Result{
		Data:           encoded,
		MIME:           "image/jpeg",
		OriginalSize:   int64(len(data)),
		Size:           int64(len(encoded)),
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
		Width:          tb.Dx(),
		Height:         tb.Dy(),
		SavedPercent:   savedPercent(int64(len(data)), int64(len(encoded))),
		Reencoded:      true,
	}, nil
}

func savedPercent(before, after int64) float64 {
	if before <= 0 || after >= before {
		return 0
	}
	return math.Round(float64(before-after)/float64(before)*1000) / 10
}
