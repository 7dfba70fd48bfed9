package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>
</Types>`
	rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`
	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>
</Relationships>`
	numberingXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="decimal"/><w:lvlText w:val="%1."/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl></w:abstractNum>
<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>
</w:numbering>`
)

// DOCX encodes doc as a minimal Office Open XML word document.
func DOCX(doc Document, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/numbering.xml", numberingXML},
		{"word/document.xml", documentXML(doc)},
	}
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate, Modified: now.UTC()})
		if err != nil {
			return nil, fmt.Errorf("documents: docx %s: %w", p.name, err)
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("documents: docx %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("documents: docx close: %w", err)
	}
	return buf.Bytes(), nil
}

func documentXML(doc Document) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	paragraph(&b, doc.Title, runStyle{bold: true, size: 36}, "center", false)
	if doc.Subtitle != "" {
		paragraph(&b, doc.Subtitle, runStyle{italic: true}, "center", false)
	}
	if line := doc.DateLine(); line != "" {
		paragraph(&b, line, runStyle{}, "center", false)
	}
	for _, p := range doc.Parties {
		text := p.Role + ": " + p.Name
		if p.Address != "" {
			text += ", " + p.Address
		}
		paragraph(&b, text, runStyle{}, "", false)
	}
	for i, s := range doc.Sections {
		paragraph(&b, fmt.Sprintf("%d. %s", i+1, s.Heading), runStyle{bold: true, size: 28}, "", false)
		for _, p := range s.Paragraphs {
			paragraph(&b, p, runStyle{}, "both", false)
		}
		for _, item := range s.Items {
			paragraph(&b, item, runStyle{}, "", true)
		}
	}
	b.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`)
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

type runStyle struct {
	bold   bool
	italic bool
	size   int // half-points
}

func paragraph(b *strings.Builder, text string, style runStyle, align string, numbered bool) {
	b.WriteString("<w:p>")
	if align != "" || numbered {
		b.WriteString("<w:pPr>")
		if numbered {
			b.WriteString(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr>`)
		}
		if align != "" {
			fmt.Fprintf(b, `<w:jc w:val="%s"/>`, align)
		}
		b.WriteString("</w:pPr>")
	}
	b.WriteString("<w:r>")
	if style.bold || style.italic || style.size > 0 {
		b.WriteString("<w:rPr>")
		if style.bold {
			b.WriteString("<w:b/>")
		}
		if style.italic {
			b.WriteString("<w:i/>")
		}
		if style.size > 0 {
			fmt.Fprintf(b, `<w:sz w:val="%d"/>`, style.size)
		}
		b.WriteString("</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(b, []byte(text))
	b.WriteString("</w:t></w:r></w:p>")
}
