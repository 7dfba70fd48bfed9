package documents

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var htmlTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title><style>
body{font-family:Georgia,serif;margin:48px;line-height:1.5;color:#111;}
h1{font-size:22px;text-align:center;margin-bottom:4px;}.subtitle{text-align:center;color:#555;margin-top:0;}
h2{font-size:16px;border-bottom:1px solid #ccc;padding-bottom:2px;margin-top:24px;}
table.parties{width:100%;border-collapse:collapse;margin:16px 0;}table.parties td{padding:4px 8px;vertical-align:top;}
.signatures{margin-top:48px;}.signature{display:inline-block;width:45%;margin:24px 2% 0 0;border-top:1px solid #111;padding-top:4px;}
</style></head><body>
<h1>{{.Title}}</h1>
{{with .Subtitle}}<p class="subtitle">{{.}}</p>{{end}}
{{with .DateLine}}<p class="subtitle">{{.}}</p>{{end}}
{{if .Parties}}<table class="parties"><tbody>
{{range .Parties}}<tr><td><strong>{{.Role}}</strong></td><td>{{.Name}}{{with .Address}}<br>{{.}}{{end}}</td></tr>
{{end}}</tbody></table>{{end}}
{{range $i, $s := .Sections}}<section><h2>{{inc $i}}. {{$s.Heading}}</h2>
{{range $s.Paragraphs}}<p>{{.}}</p>
{{end}}{{if $s.Items}}<ol>{{range $s.Items}}<li>{{.}}</li>{{end}}</ol>{{end}}
</section>
{{end}}{{if .Parties}}<div class="signatures">{{range .Parties}}<div class="signature">{{.Name}}, {{.Role}}</div>{{end}}</div>{{end}}
</body></html>`))

// HTML renders doc as a printable page.
func HTML(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("documents: render html: %w", err)
	}
	return buf.String(), nil
}

// Text renders doc as plain text. It is the fallback when PDF conversion fails.
func Text(doc Document) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(doc.Title))
	b.WriteString("\n")
	if doc.Subtitle != "" {
		b.WriteString(doc.Subtitle + "\n")
	}
	if line := doc.DateLine(); line != "" {
		b.WriteString(line + "\n")
	}
	if len(doc.Parties) > 0 {
		b.WriteString("\n")
		for _, p := range doc.Parties {
			fmt.Fprintf(&b, "%s: %s", p.Role, p.Name)
			if p.Address != "" {
				fmt.Fprintf(&b, ", %s", p.Address)
			}
			b.WriteString("\n")
		}
	}
	for i, s := range doc.Sections {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, s.Heading)
		for _, p := range s.Paragraphs {
			b.WriteString(p + "\n")
		}
		for j, item := range s.Items {
			fmt.Fprintf(&b, "  %d) %s\n", j+1, item)
		}
	}
	return b.String()
}
