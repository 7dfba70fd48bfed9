package documents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mercato-hq/mercato/report"
)

// Output is an exported file ready to be downloaded.
type Output struct {
	Filename    string
	ContentType string
	Data        []byte
	// Fallback is set when a PDF was requested but plain text was produced.
	Fallback bool
	Warning  string
}

// Exporter renders documents into downloadable files.
type Exporter struct {
	renderer report.Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewExporter wraps a PDF renderer. A nil renderer makes every PDF export fall
// back to plain text.
func NewExporter(renderer report.Renderer, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{renderer: renderer, logger: logger, now: time.Now}
}

// Export encodes doc in format. PDF conversion is attempted once; on failure the
// plain-text rendering is returned with Fallback set and no error.
func (e *Exporter) Export(ctx context.Context, doc Document, format Format) (Output, error) {
	base := doc.Slug()
	switch format {
	case FormatPDF:
		return e.pdf(ctx, doc, base)
	case FormatDOCX:
		data, err := DOCX(doc, e.now())
		if err != nil {
			return Output{}, err
		}
		return Output{Filename: base + ".docx", ContentType: FormatDOCX.ContentType(), Data: data}, nil
	case FormatText:
		return textOutput(doc, base), nil
	}
	return Output{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func (e *Exporter) pdf(ctx context.Context, doc Document, base string) (Output, error) {
	html, err := HTML(doc)
	if err != nil {
		return Output{}, err
	}
	if e.renderer == nil {
		return e.fallback(doc, base, report.ErrNotConfigured), nil
	}
	data, err := e.renderer.RenderHTML(ctx, base+".html", html)
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		return e.fallback(doc, base, err), nil
	}
	return Output{Filename: base + ".pdf", ContentType: FormatPDF.ContentType(), Data: data}, nil
}

func (e *Exporter) fallback(doc Document, base string, cause error) Output {
	e.logger.Warn("document pdf fallback", slog.String("document", base), slog.Any("error", cause))
	out := textOutput(doc, base)
	out.Fallback = true
	out.Warning = "PDF generation failed; a plain-text copy was produced instead"
	return out
}

func textOutput(doc Document, base string) Output {
	return Output{Filename: base + ".txt", ContentType: FormatText.ContentType(), Data: []byte(Text(doc))}
}
