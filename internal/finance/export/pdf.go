package export

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mercato-hq/mercato/internal/finance"
	"github.com/mercato-hq/mercato/report"
)

// SummaryPayload aggregates finance data destined for PDF rendering.
type SummaryPayload struct {
	BusinessName string
	Currency     string
	Period       finance.Period
	PL           finance.PLReport
	CashFlow     finance.CashFlowStatement
	Aging        finance.AgingReport
	Budgets      []finance.BudgetComparison
	Balance      finance.BalanceSheet
}

// PDFExporter renders finance summaries through Gotenberg.
type PDFExporter struct {
	renderer report.Renderer
}

// NewPDFExporter wraps a renderer.
func NewPDFExporter(renderer report.Renderer) *PDFExporter {
	return &PDFExporter{renderer: renderer}
}

// RenderSummary renders the payload to HTML and converts it to PDF.
func (p *PDFExporter) RenderSummary(ctx context.Context, payload SummaryPayload) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, errors.New("pdf exporter not initialised")
	}
	html, err := SummaryHTML(payload)
	if err != nil {
		return nil, err
	}
	return p.renderer.RenderHTML(ctx, "finance-summary.html", html)
}

// SummaryHTML renders the printable finance summary.
func SummaryHTML(payload SummaryPayload) (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, payload); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func itoa(n int) string { return strconv.Itoa(n) }

var summaryTemplate = template.Must(template.New("summary").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal, currency string) string { return finance.FormatMoney(d, currency) },
	"color": finance.UsageLevel.Color,
	"cashLines": func(cf finance.CashFlowStatement) []finance.Line {
		return []finance.Line{cf.Operating, cf.Investing, cf.Financing}
	},
}).Parse(`<html><head><meta charset="utf-8"><style>
body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}
th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;}.label{text-align:left;}
.green{color:#15803d;}.amber{color:#b45309;}.red{color:#b91c1c;}.muted{color:#888;}
</style></head><body>
<h1>{{.BusinessName}} Finance Summary ({{.Period}})</h1>
<section><h2>Profit &amp; Loss</h2><table><tbody>
<tr><td class="label">Revenue</td><td>{{money .PL.TotalRevenue .Currency}}</td></tr>
<tr><td class="label">Expenses</td><td>{{money .PL.TotalExpenses .Currency}}</td></tr>
<tr><td class="label">Net Profit</td><td>{{money .PL.NetProfit .Currency}}</td></tr>
</tbody></table></section>
<section><h2>Cash Flow</h2><table><tbody>
{{range $line := (cashLines .CashFlow)}}<tr><td class="label">{{$line.Label}}</td><td{{if not $line.Modeled}} class="muted"{{end}}>{{if $line.Modeled}}{{money $line.Amount $.Currency}}{{else}}Not modeled{{end}}</td></tr>
{{end}}<tr><td class="label">Net</td><td>{{money .CashFlow.Net .Currency}}</td></tr>
</tbody></table></section>
<section><h2>Receivables Aging</h2><table><thead><tr><th>Bucket</th><th>Count</th><th>Amount</th></tr></thead><tbody>
{{range .Aging.Buckets}}<tr><td class="label">{{.Label}}</td><td>{{.Count}}</td><td>{{money .Amount $.Currency}}</td></tr>
{{end}}</tbody></table></section>
{{if .Budgets}}<section><h2>Budgets</h2><table><thead><tr><th>Category</th><th>Budgeted</th><th>Actual</th><th>Variance</th><th>Used</th></tr></thead><tbody>
{{range .Budgets}}<tr><td class="label">{{.Category}}</td><td>{{money .Budgeted $.Currency}}</td><td>{{money .Actual $.Currency}}</td><td>{{money .Variance $.Currency}}</td><td class="{{color .Level}}">{{.PercentUsed.StringFixed 2}}%</td></tr>
{{end}}</tbody></table></section>{{end}}
<section><h2>Balance Sheet</h2><table><tbody>
<tr><td class="label">Cash</td><td>{{money .Balance.Cash .Currency}}</td></tr>
<tr><td class="label">Receivables</td><td>{{money .Balance.Receivables .Currency}}</td></tr>
<tr><td class="label">Fixed Assets</td><td>{{money .Balance.FixedAssets .Currency}}</td></tr>
<tr><td class="label">Total Assets</td><td>{{money .Balance.TotalAssets .Currency}}</td></tr>
<tr><td class="label">{{.Balance.Liabilities.Label}}</td><td class="muted">Not modeled</td></tr>
<tr><td class="label">Equity</td><td>{{money .Balance.Equity .Currency}}</td></tr>
</tbody></table></section>
</body></html>`))
