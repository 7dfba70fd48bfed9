// Package documents builds partnership and patent paperwork from validated
// input and exports it as PDF (through Gotenberg) or Word.
package documents

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrUnknownFormat is returned for unsupported export formats.
var ErrUnknownFormat = errors.New("documents: unknown format")

// Document is renderer-neutral structured content.
type Document struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle,omitempty"`
	Date     time.Time `json:"date"`
	Parties  []Party   `json:"parties,omitempty"`
	Sections []Section `json:"sections"`
}

// Party is a signatory or named participant.
type Party struct {
	Role    string `json:"role"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Section is a headed block of paragraphs and an optional numbered list.
type Section struct {
	Heading    string   `json:"heading"`
	Paragraphs []string `json:"paragraphs,omitempty"`
	Items      []string `json:"items,omitempty"`
}

// DateLine renders the document date the way it appears in the header.
func (d Document) DateLine() string {
	if d.Date.IsZero() {
		return ""
	}
	return d.Date.Format("January 2, 2006")
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug is a filesystem-safe base name derived from the title.
func (d Document) Slug() string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(d.Title), "-"), "-")
	if s == "" {
		return "document"
	}
	return s
}

// Format selects an export encoding.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "txt"
)

// ParseFormat accepts pdf, docx or txt, defaulting to pdf.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPDF, nil
	case FormatPDF, FormatDOCX, FormatText:
		return f, nil
	}
	return "", ErrUnknownFormat
}

// ContentType is the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain; charset=utf-8"
	}
}
