package documents

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercato-hq/mercato/internal/validate"
)

const dateLayout = "2006-01-02"

// PartnerForm describes one partner.
type PartnerForm struct {
	Name         string `json:"name" validate:"required,max=200"`
	Address      string `json:"address" validate:"max=500"`
	Contribution string `json:"contribution" validate:"required,decimal_gte0"`
	ProfitShare  string `json:"profit_share" validate:"required,decimal_gte0"`
}

// PartnershipForm is the raw partnership agreement submission.
type PartnershipForm struct {
	BusinessName  string        `json:"business_name" validate:"required,max=200"`
	Purpose       string        `json:"purpose" validate:"required,max=2000"`
	EffectiveDate string        `json:"effective_date" validate:"required,datetime=2006-01-02"`
	TermMonths    int           `json:"term_months" validate:"gte=0,lte=1200"`
	Currency      string        `json:"currency" validate:"omitempty,len=3"`
	Jurisdiction  string        `json:"jurisdiction" validate:"required,max=200"`
	Partners      []PartnerForm `json:"partners" validate:"required,min=2,max=10,dive"`
}

// BuildPartnership validates form into a partnership agreement. Profit shares
// must add up to 100.
func BuildPartnership(form PartnershipForm) validate.Result[Document] {
	if errs := validate.Struct(form); errs != nil {
		return validate.Invalid[Document](errs)
	}
	effective, _ := time.Parse(dateLayout, form.EffectiveDate)
	currency := strings.ToUpper(form.Currency)
	if currency == "" {
		currency = "USD"
	}

	total := decimal.Zero
	parties := make([]Party, 0, len(form.Partners))
	var contributions, shares []string
	for i, p := range form.Partners {
		share, _ := validate.ParseDecimal(p.ProfitShare)
		amount, _ := validate.ParseDecimal(p.Contribution)
		total = total.Add(share)
		name := strings.TrimSpace(p.Name)
		parties = append(parties, Party{Role: fmt.Sprintf("Partner %d", i+1), Name: name, Address: strings.TrimSpace(p.Address)})
		contributions = append(contributions, fmt.Sprintf("%s contributes %s %s.", name, currency, amount.StringFixed(2)))
		shares = append(shares, fmt.Sprintf("%s receives %s%% of net profits and bears the same share of losses.", name, share.String()))
	}
	if !total.Equal(decimal.NewFromInt(100)) {
		return validate.Invalid[Document](validate.FieldErrors{"partners": "profit shares must total 100"})
	}

	term := "The partnership continues until dissolved by agreement of all partners."
	if form.TermMonths > 0 {
		term = fmt.Sprintf("The partnership runs for %d months from the effective date unless dissolved earlier by agreement of all partners.", form.TermMonths)
	}
	business := strings.TrimSpace(form.BusinessName)
	return validate.Valid(Document{
		Title:    business + " Partnership Agreement",
		Subtitle: "Effective " + effective.Format("January 2, 2006"),
		Date:     effective,
		Parties:  parties,
		Sections: []Section{
			{Heading: "Formation", Paragraphs: []string{
				fmt.Sprintf("The partners named above form a general partnership under the name %s.", business),
				term,
			}},
			{Heading: "Purpose", Paragraphs: []string{strings.TrimSpace(form.Purpose)}},
			{Heading: "Capital Contributions", Items: contributions},
			{Heading: "Profits and Losses", Items: shares},
			{Heading: "Management", Paragraphs: []string{
				"Each partner has an equal vote in management decisions. Decisions outside the ordinary course of business require unanimous consent.",
			}},
			{Heading: "Governing Law", Paragraphs: []string{
				fmt.Sprintf("This agreement is governed by the laws of %s.", strings.TrimSpace(form.Jurisdiction)),
			}},
		},
	})
}

// PatentForm is the raw patent application submission.
type PatentForm struct {
	Title       string   `json:"title" validate:"required,max=300"`
	Inventors   []string `json:"inventors" validate:"required,min=1,dive,required,max=200"`
	Applicant   string   `json:"applicant" validate:"max=200"`
	FilingDate  string   `json:"filing_date" validate:"required,datetime=2006-01-02"`
	Field       string   `json:"field" validate:"required,max=2000"`
	Background  string   `json:"background" validate:"required,max=10000"`
	Summary     string   `json:"summary" validate:"required,max=10000"`
	Description string   `json:"description" validate:"max=50000"`
	Claims      []string `json:"claims" validate:"required,min=1,dive,required,max=5000"`
	Abstract    string   `json:"abstract" validate:"required,max=1500"`
}

// BuildPatent validates form into a patent application. The abstract is
// limited to 150 words.
func BuildPatent(form PatentForm) validate.Result[Document] {
	if errs := validate.Struct(form); errs != nil {
		return validate.Invalid[Document](errs)
	}
	if n := len(strings.Fields(form.Abstract)); n > 150 {
		return validate.Invalid[Document](validate.FieldErrors{"abstract": fmt.Sprintf("must be at most 150 words, got %d", n)})
	}
	filed, _ := time.Parse(dateLayout, form.FilingDate)

	parties := make([]Party, 0, len(form.Inventors)+1)
	for _, inv := range form.Inventors {
		parties = append(parties, Party{Role: "Inventor", Name: strings.TrimSpace(inv)})
	}
	if a := strings.TrimSpace(form.Applicant); a != "" {
		parties = append(parties, Party{Role: "Applicant", Name: a})
	}
	claims := make([]string, len(form.Claims))
	for i, c := range form.Claims {
		claims[i] = strings.TrimSpace(c)
	}

	sections := []Section{
		{Heading: "Field of the Invention", Paragraphs: paragraphs(form.Field)},
		{Heading: "Background", Paragraphs: paragraphs(form.Background)},
		{Heading: "Summary of the Invention", Paragraphs: paragraphs(form.Summary)},
	}
	if strings.TrimSpace(form.Description) != "" {
		sections = append(sections, Section{Heading: "Detailed Description", Paragraphs: paragraphs(form.Description)})
	}
	sections = append(sections,
		Section{Heading: "Claims", Paragraphs: []string{"What is claimed is:"}, Items: claims},
		Section{Heading: "Abstract", Paragraphs: []string{strings.Join(strings.Fields(form.Abstract), " ")}},
	)
	return validate.Valid(Document{
		Title:    strings.TrimSpace(form.Title),
		Subtitle: "Patent Application",
		Date:     filed,
		Parties:  parties,
		Sections: sections,
	})
}

// paragraphs splits on blank lines and drops empty blocks.
func paragraphs(s string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if b := strings.Join(strings.Fields(block), " "); b != "" {
			out = append(out, b)
		}
	}
	return out
}
