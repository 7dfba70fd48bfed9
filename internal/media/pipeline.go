package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// FallbackWarning is attached to results that could not be optimized.
const FallbackWarning = "image could not be optimized; the original file will be used"

// Processed is the outcome of running an upload through the pipeline.
type Processed struct {
	Upload       Upload `json:"upload"`
	Key          string `json:"key"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	Result       Result `json:"result"`
	Thumbnail    Result `json:"thumbnail"`
	Cropped      bool   `json:"cropped"`
	Degraded     bool   `json:"degraded"`
	Warning      string `json:"warning,omitempty"`
	FallbackURL  string `json:"fallback_url,omitempty"`
}

// Pipeline validates, optionally crops, compresses and stores uploads.
type Pipeline struct {
	store    Store
	logger   *slog.Logger
	metrics  *Metrics
	maxBytes  int64
	maxPixels int64
	compress  Options
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithMaxBytes overrides the upload size ceiling.
func WithMaxBytes(n int64) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithMaxPixels overrides the ceiling on declared image dimensions and crop
// canvases.
func WithMaxPixels(n int64) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxPixels = n
		}
	}
}

// WithMetrics records outcomes.
func WithMetrics(m *Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithCompressOptions overrides the compression policy.
func WithCompressOptions(o Options) PipelineOption {
	return func(p *Pipeline) { p.compress = o }
}

// NewPipeline wires a pipeline to its store.
func NewPipeline(store Store, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{store: store, logger: logger, maxBytes: DefaultMaxUploadBytes, maxPixels: DefaultMaxPixels, compress: CompressOptions}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxBytes is the configured upload ceiling.
func (p *Pipeline) MaxBytes() int64 { return p.maxBytes }

// Inspect validates raw bytes against the pipeline's limits.
func (p *Pipeline) Inspect(filename string, data []byte) (Upload, error) {
	up, err := InspectWithin(filename, data, p.maxBytes, p.maxPixels)
	if err != nil {
		p.metrics.observe(OutcomeRejected, 0)
	}
	return up, err
}

// Optimize compresses an accepted upload, cropping it first when crop is set.
// Decode or encode failures are not returned: the result is marked Degraded
// and carries a data URL of the original bytes. Only storage and context
// errors are returned.
func (p *Pipeline) Optimize(ctx context.Context, up Upload, crop *CropParams) (Processed, error) {
	if int64(up.Width)*int64(up.Height) > p.maxPixels {
		p.metrics.observe(OutcomeRejected, 0)
		return Processed{}, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, up.Width, up.Height)
	}
	out := Processed{Upload: up}
	working, mime := up.Data, up.MIME

	if crop != nil {
		img, _, err := Decode(working)
		if err == nil {
			var cropped []byte
			if canvas, cerr := CropWithin(img, *crop, p.maxPixels); cerr != nil {
				err = cerr
			} else if cropped, err = EncodeJPEG(canvas, DefaultQuality); err == nil {
				working, mime = cropped, "image/jpeg"
				out.Cropped = true
			}
		}
		if err != nil {
			if errors.Is(err, ErrEmptyCrop) || errors.Is(err, ErrCropTooLarge) {
				return Processed{}, err
			}
			return p.fallback(ctx, out, err)
		}
	}

	res, err := Compress(ctx, working, mime, p.compress)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Processed{}, ctxErr
		}
		return p.fallback(ctx, out, err)
	}
	out.Result = res

	if thumb, err := Thumbnail(ctx, res.Data); err != nil {
		p.logger.Warn("media thumbnail", slog.String("file", up.Filename), slog.String("error", err.Error()))
	} else {
		out.Thumbnail = thumb
		if out.ThumbnailKey, err = p.store.Put(ctx, thumb.Data, "jpg"); err != nil {
			return Processed{}, err
		}
	}

	if out.Key, err = p.store.Put(ctx, res.Data, extFor(res.MIME, up.Ext)); err != nil {
		return Processed{}, err
	}
	outcome := OutcomeUnchanged
	if res.Reencoded || out.Cropped {
		outcome = OutcomeOptimized
	}
	p.metrics.observe(outcome, res.OriginalSize-res.Size)
	p.logger.Debug("media optimized",
		slog.String("file", up.Filename),
		slog.String("original", FormatBytes(res.OriginalSize)),
		slog.String("size", FormatBytes(res.Size)),
		slog.Float64("saved_percent", res.SavedPercent),
	)
	return out, nil
}

// Process validates data and optimizes it.
func (p *Pipeline) Process(ctx context.Context, filename string, data []byte, crop *CropParams) (Processed, error) {
	up, err := p.Inspect(filename, data)
	if err != nil {
		return Processed{}, err
	}
	return p.Optimize(ctx, up, crop)
}

func (p *Pipeline) fallback(ctx context.Context, out Processed, cause error) (Processed, error) {
	p.logger.Warn("media optimize failed; using original",
		slog.String("file", out.Upload.Filename),
		slog.String("error", cause.Error()),
	)
	up := out.Upload
	out.Cropped = false
	out.Degraded = true
	out.Warning = FallbackWarning
	out.FallbackURL = DataURL(up.MIME, up.Data)
	out.Result = Result{
		Data:           up.Data,
		MIME:           up.MIME,
		OriginalSize:   up.Size,
		Size:           up.Size,
		OriginalWidth:  up.Width,
		OriginalHeight: up.Height,
		Width:          up.Width,
		Height:         up.Height,
	}
	key, err := p.store.Put(ctx, up.Data, up.Ext)
	if err != nil {
		return Processed{}, err
	}
	out.Key = key
	p.metrics.observe(OutcomeFallback, 0)
	return out, nil
}

func extFor(mime, fallback string) string {
	if mime == "image/jpeg" {
		return "jpg"
	}
	return strings.TrimPrefix(fallback, ".")
}
