// Package risk scores a deal from 0 (lowest risk) to 100 using a fixed
// table of weighted factors.
package risk

import (
	"time"

	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/shopspring/decimal"
)

// Labels of the composite score.
const (
	LabelLow      = "Low"
	LabelModerate = "Moderate"
	LabelHigh     = "High"
)

var (
	lowCeiling      = decimal.NewFromInt(33)
	moderateCeiling = decimal.NewFromInt(66)
)

// DealSnapshot carries the deal figures the factors read. Pointer fields
// are optional; percentages are in percent (11.1 for 11.1%).
type DealSnapshot struct {
	PurchasePrice      decimal.Decimal
	LoanAmount         decimal.Decimal
	GrossMonthlyRent   decimal.Decimal
	OtherMonthlyIncome decimal.Decimal
	VacancyRatePct     decimal.Decimal
	NOI                decimal.Decimal

	DSCR          *decimal.Decimal
	CashOnCashPct *decimal.Decimal

	// Derived from the figures above when nil.
	ExpenseRatioPct *decimal.Decimal
	RentToPricePct  *decimal.Decimal

	YearBuilt    *int
	DaysOnMarket *int
}

// MarketData is optional zip-level context.
type MarketData struct {
	AvgVacancyRatePct   *decimal.Decimal
	YoYAppreciationPct  *decimal.Decimal
	PopulationGrowthPct *decimal.Decimal
}

// PortfolioData is optional context from the investor's other deals.
type PortfolioData struct {
	PctInZip *decimal.Decimal
}

// Factor is one scored factor. Unavailable factors score 0.
type Factor struct {
	FactorInfo
	Score     decimal.Decimal  `json:"score"`
	Weighted  decimal.Decimal  `json:"weighted"`
	Raw       *decimal.Decimal `json:"raw"`
	Available bool             `json:"available"`
}

// Result is the composite score, its label and the per-factor breakdown.
type Result struct {
	Score   decimal.Decimal `json:"score"`
	Label   string          `json:"label"`
	Factors []Factor        `json:"factors"`
}

type evaluation struct {
	deal      DealSnapshot
	market    MarketData
	portfolio PortfolioData
	now       time.Time
}

// Engine evaluates the factor table. The clock only affects property age.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine reading the given clock; nil means time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// CalculateRiskScore scores the deal with the wall clock.
func CalculateRiskScore(deal DealSnapshot, market *MarketData, portfolio *PortfolioData) Result {
	return NewEngine(nil).CalculateRiskScore(deal, market, portfolio)
}

// CalculateRiskScore scores every factor and combines them. Missing market
// or portfolio context leaves the dependent factors unavailable.
func (e *Engine) CalculateRiskScore(deal DealSnapshot, market *MarketData, portfolio *PortfolioData) Result {
	ev := evaluation{deal: deal, now: e.now()}
	if market != nil {
		ev.market = *market
	}
	if portfolio != nil {
		ev.portfolio = *portfolio
	}

	factors := make([]Factor, 0, len(factorTable))
	total := decimal.Zero
	for _, def := range factorTable {
		f := Factor{FactorInfo: def.FactorInfo, Score: finance.RoundMoney(zero)}
		if raw := def.raw(ev); raw != nil {
			f.Raw = raw
			f.Available = true
			f.Score = def.score(*raw)
		}
		product := def.Weight.Mul(f.Score)
		f.Weighted = finance.RoundRate(product)
		total = total.Add(product)
		factors = append(factors, f)
	}

	score := clampScore(total)
	return Result{Score: score, Label: Label(score), Factors: factors}
}

// Label maps a composite score to Low, Moderate or High.
func Label(score decimal.Decimal) string {
	switch {
	case score.LessThanOrEqual(lowCeiling):
		return LabelLow
	case score.LessThanOrEqual(moderateCeiling):
		return LabelModerate
	default:
		return LabelHigh
	}
}
