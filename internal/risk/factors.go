package risk

import (
	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/shopspring/decimal"
)

// Factor names, in evaluation order.
const (
	FactorDSCR               = "dscr_coverage"
	FactorCashOnCash         = "cash_on_cash"
	FactorVacancyVsMarket    = "vacancy_vs_market"
	FactorLTV                = "ltv_ratio"
	FactorMarketAppreciation = "market_appreciation"
	FactorRentToPrice        = "rent_to_price"
	FactorPropertyAge        = "property_age"
	FactorDaysOnMarket       = "days_on_market"
	FactorPopulationGrowth   = "population_growth"
	FactorConcentration      = "concentration_risk"
	FactorExpenseRatio       = "expense_ratio"
)

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	one     = decimal.NewFromInt(1)
)

// FactorInfo describes one factor of the composite score.
type FactorInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Weight      decimal.Decimal `json:"weight"`
}

type factorDef struct {
	FactorInfo
	raw   func(evaluation) *decimal.Decimal
	score func(decimal.Decimal) decimal.Decimal
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var factorTable = []factorDef{
	{
		FactorInfo: FactorInfo{FactorDSCR, "Debt Service Coverage Ratio", d("0.20")},
		raw:        func(e evaluation) *decimal.Decimal { return e.deal.DSCR },
		score:      linearBand(d("1.5"), d("1.0")),
	},
	{
		FactorInfo: FactorInfo{FactorCashOnCash, "Cash-on-Cash Return", d("0.15")},
		raw:        func(e evaluation) *decimal.Decimal { return e.deal.CashOnCashPct },
		score:      linearBand(d("10"), d("4")),
	},
	{
		FactorInfo: FactorInfo{FactorVacancyVsMarket, "Vacancy Rate vs Market Average", d("0.10")},
		raw:        vacancyDiff,
		score:      linearBand(d("-10"), d("10")),
	},
	{
		FactorInfo: FactorInfo{FactorLTV, "Loan-to-Value Ratio", d("0.10")},
		raw:        ltvPct,
		score:      linearBand(d("80"), d("100")),
	},
	{
		FactorInfo: FactorInfo{FactorMarketAppreciation, "Market Appreciation Trend", d("0.10")},
		raw:        func(e evaluation) *decimal.Decimal { return e.market.YoYAppreciationPct },
		score:      linearBand(d("5"), d("-2")),
	},
	{
		FactorInfo: FactorInfo{FactorRentToPrice, "Rent-to-Price Ratio", d("0.10")},
		raw:        rentToPricePct,
		score:      linearBand(d("1.0"), d("0.6")),
	},
	{
		FactorInfo: FactorInfo{FactorPropertyAge, "Property Age", d("0.05")},
		raw:        propertyAge,
		score:      ageScore,
	},
	{
		FactorInfo: FactorInfo{FactorDaysOnMarket, "Days on Market", d("0.05")},
		raw:        daysOnMarket,
		score:      linearBand(d("90"), d("180")),
	},
	{
		FactorInfo: FactorInfo{FactorPopulationGrowth, "Population Growth", d("0.05")},
		raw:        func(e evaluation) *decimal.Decimal { return e.market.PopulationGrowthPct },
		score:      linearBand(d("2"), d("-1")),
	},
	{
		FactorInfo: FactorInfo{FactorConcentration, "Portfolio Concentration", d("0.05")},
		raw:        func(e evaluation) *decimal.Decimal { return e.portfolio.PctInZip },
		score:      linearBand(d("50"), d("100")),
	},
	{
		FactorInfo: FactorInfo{FactorExpenseRatio, "Operating Expense Ratio", d("0.05")},
		raw:        expenseRatioPct,
		score:      linearBand(d("55"), d("105")),
	},
}

// Factors lists every factor with its weight, in evaluation order.
func Factors() []FactorInfo {
	out := make([]FactorInfo, len(factorTable))
	for i, f := range factorTable {
		out[i] = f.FactorInfo
	}
	return out
}

// linearBand scores 0 at zeroAt and 100 at hundredAt, linear between and
// clamped outside. Either end may be the larger one.
func linearBand(zeroAt, hundredAt decimal.Decimal) func(decimal.Decimal) decimal.Decimal {
	span := hundredAt.Sub(zeroAt)
	return func(v decimal.Decimal) decimal.Decimal {
		return clampScore(finance.Div(v.Sub(zeroAt), span).Mul(hundred))
	}
}

// ageScore rises one point per year up to 50, then two points per year.
func ageScore(age decimal.Decimal) decimal.Decimal {
	fifty := decimal.NewFromInt(50)
	if !age.IsPositive() {
		return finance.RoundMoney(zero)
	}
	if age.LessThan(fifty) {
		return clampScore(age)
	}
	return clampScore(fifty.Add(age.Sub(fifty).Mul(decimal.NewFromInt(2))))
}

func clampScore(v decimal.Decimal) decimal.Decimal {
	return finance.RoundMoney(decimal.Min(decimal.Max(v, zero), hundred))
}

func vacancyDiff(e evaluation) *decimal.Decimal {
	if e.market.AvgVacancyRatePct == nil {
		return nil
	}
	v := e.deal.VacancyRatePct.Sub(*e.market.AvgVacancyRatePct)
	return &v
}

func ltvPct(e evaluation) *decimal.Decimal {
	if !e.deal.PurchasePrice.IsPositive() {
		return nil
	}
	v := finance.RoundRate(finance.Div(e.deal.LoanAmount, e.deal.PurchasePrice).Mul(hundred))
	return &v
}

func rentToPricePct(e evaluation) *decimal.Decimal {
	if e.deal.RentToPricePct != nil {
		return e.deal.RentToPricePct
	}
	if !e.deal.PurchasePrice.IsPositive() {
		return nil
	}
	v := finance.RoundRate(finance.Div(e.deal.GrossMonthlyRent, e.deal.PurchasePrice).Mul(hundred))
	return &v
}

func expenseRatioPct(e evaluation) *decimal.Decimal {
	if e.deal.ExpenseRatioPct != nil {
		return e.deal.ExpenseRatioPct
	}
	occupancy := one.Sub(finance.Pct(e.deal.VacancyRatePct))
	egiAnnual := e.deal.GrossMonthlyRent.Mul(occupancy).Add(e.deal.OtherMonthlyIncome).Mul(twelve)
	if !egiAnnual.IsPositive() {
		return nil
	}
	v := finance.RoundRate(one.Sub(finance.Div(e.deal.NOI, egiAnnual)).Mul(hundred))
	return &v
}

func propertyAge(e evaluation) *decimal.Decimal {
	if e.deal.YearBuilt == nil {
		return nil
	}
	v := decimal.NewFromInt(int64(e.now.Year() - *e.deal.YearBuilt))
	return &v
}

func daysOnMarket(e evaluation) *decimal.Decimal {
	if e.deal.DaysOnMarket == nil {
		return nil
	}
	v := decimal.NewFromInt(int64(*e.deal.DaysOnMarket))
	return &v
}
