package finance

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const daysPerYear = 365

// DepreciationResult is the book position of an asset at a point in time.
type DepreciationResult struct {
	AssetID       uuid.UUID          `json:"asset_id"`
	Name          string             `json:"name"`
	Method        DepreciationMethod `json:"method"`
	PurchasePrice decimal.Decimal    `json:"purchase_price"`
	SalvageValue  decimal.Decimal    `json:"salvage_value"`
	YearsElapsed  decimal.Decimal    `json:"years_elapsed"`
	Depreciation  decimal.Decimal    `json:"depreciation"`
	BookValue     decimal.Decimal    `json:"book_value"`
}

// DepreciationReport totals depreciation across assets.
type DepreciationReport struct {
	AsOf              Date                 `json:"as_of"`
	Assets            []DepreciationResult `json:"assets"`
	TotalCost         decimal.Decimal      `json:"total_cost"`
	TotalDepreciation decimal.Decimal      `json:"total_depreciation"`
	TotalBookValue    decimal.Decimal      `json:"total_book_value"`
}

// ScheduleRow is one year of a depreciation schedule.
type ScheduleRow struct {
	Year         int             `json:"year"`
	Depreciation decimal.Decimal `json:"depreciation"`
	Accumulated  decimal.Decimal `json:"accumulated"`
	BookValue    decimal.Decimal `json:"book_value"`
}

// YearsElapsed is the fractional number of 365-day years between purchase and
// today, floored at zero and capped at the useful life.
func YearsElapsed(asset FixedAsset, today time.Time) float64 {
	years := today.Sub(asset.PurchaseDate.Time).Hours() / 24 / daysPerYear
	if years < 0 || math.IsNaN(years) {
		return 0
	}
	if life := float64(asset.UsefulLifeYears); years > life {
		return life
	}
	return years
}

// Depreciate computes depreciation and book value as of today.
func Depreciate(asset FixedAsset, today time.Time) DepreciationResult {
	years := YearsElapsed(asset, today)
	dep := depreciationAt(asset, years)
	return DepreciationResult{
		AssetID:       asset.ID,
		Name:          asset.Name,
		Method:        asset.DepreciationMethod,
		PurchasePrice: asset.PurchasePrice,
		SalvageValue:  asset.SalvageValue,
		YearsElapsed:  decimal.NewFromFloat(years).Round(4),
		Depreciation:  dep,
		BookValue:     asset.PurchasePrice.Sub(dep),
	}
}

// Schedule lists the book value at the end of each year of useful life.
func Schedule(asset FixedAsset) []ScheduleRow {
	if asset.UsefulLifeYears <= 0 {
		return []ScheduleRow{}
	}
	rows := make([]ScheduleRow, 0, asset.UsefulLifeYears)
	prev := decimal.Zero
	for year := 1; year <= asset.UsefulLifeYears; year++ {
		acc := depreciationAt(asset, float64(year))
		rows = append(rows, ScheduleRow{
			Year:         year,
			Depreciation: acc.Sub(prev),
			Accumulated:  acc,
			BookValue:    asset.PurchasePrice.Sub(acc),
		})
		prev = acc
	}
	return rows
}

// depreciationAt applies the asset's formula for an already capped number of
// years and caps the result at price - salvage.
func depreciationAt(asset FixedAsset, years float64) decimal.Decimal {
	price := nonNegative(asset.PurchasePrice)
	salvage := nonNegative(asset.SalvageValue)
	maxDep := nonNegative(price.Sub(salvage))
	life := asset.UsefulLifeYears
	if life <= 0 || years <= 0 {
		return decimal.Zero
	}

	var dep decimal.Decimal
	switch asset.DepreciationMethod {
	case DecliningBalance:
		base := 1 - 2/float64(life)
		if base < 0 {
			base = 0
		}
		factor := 1 - math.Pow(base, years)
		dep = price.Mul(decimal.NewFromFloat(factor))
	default:
		yearsDec := decimal.NewFromFloat(years)
		if years >= float64(life) {
			yearsDec = decimal.NewFromInt(int64(life))
		}
		dep = price.Sub(salvage).Mul(yearsDec).Div(decimal.NewFromInt(int64(life)))
	}
	dep = round2(dep)
	if dep.GreaterThan(maxDep) {
		dep = maxDep
	}
	if dep.IsNegative() {
		dep = decimal.Zero
	}
	return dep
}

// BuildDepreciationReport depreciates every asset as of today.
func BuildDepreciationReport(assets []FixedAsset, today time.Time) DepreciationReport {
	report := DepreciationReport{
		AsOf:              DateOf(today),
		Assets:            make([]DepreciationResult, 0, len(assets)),
		TotalCost:         decimal.Zero,
		TotalDepreciation: decimal.Zero,
		TotalBookValue:    decimal.Zero,
	}
	for _, asset := range assets {
		res := Depreciate(asset, today)
		report.Assets = append(report.Assets, res)
		report.TotalCost = report.TotalCost.Add(res.PurchasePrice)
		report.TotalDepreciation = report.TotalDepreciation.Add(res.Depreciation)
		report.TotalBookValue = report.TotalBookValue.Add(res.BookValue)
	}
	return report
}
