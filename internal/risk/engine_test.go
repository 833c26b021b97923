package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func intp(v int) *int {
	return &v
}

func fixedClock() time.Time {
	return time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
}

func scoreOf(t *testing.T, name, raw string) decimal.Decimal {
	t.Helper()
	for _, def := range factorTable {
		if def.Name == name {
			return def.score(d(raw))
		}
	}
	t.Fatalf("unknown factor %s", name)
	return decimal.Zero
}

func factorByName(t *testing.T, res Result, name string) Factor {
	t.Helper()
	for _, f := range res.Factors {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("factor %s missing from result", name)
	return Factor{}
}

func sheboyganDuplex() DealSnapshot {
	return DealSnapshot{
		PurchasePrice:    d("185000"),
		LoanAmount:       d("148000"),
		GrossMonthlyRent: d("1800"),
		VacancyRatePct:   d("5"),
		NOI:              d("13320"),
		DSCR:             p("1.45"),
		CashOnCashPct:    p("11.1"),
		ExpenseRatioPct:  p("43"),
		YearBuilt:        intp(1965),
		DaysOnMarket:     intp(45),
	}
}

func TestFactorBoundaries(t *testing.T) {
	tests := []struct {
		factor   string
		raw      string
		expected string
	}{
		{FactorDSCR, "1.0", "100"},
		{FactorDSCR, "1.5", "0"},
		{FactorDSCR, "1.25", "50"},
		{FactorDSCR, "0.7", "100"},
		{FactorDSCR, "2.4", "0"},
		{FactorCashOnCash, "4", "100"},
		{FactorCashOnCash, "10", "0"},
		{FactorCashOnCash, "7", "50"},
		{FactorVacancyVsMarket, "0", "50"},
		{FactorVacancyVsMarket, "10", "100"},
		{FactorVacancyVsMarket, "-10", "0"},
		{FactorLTV, "80", "0"},
		{FactorLTV, "90", "50"},
		{FactorLTV, "100", "100"},
		{FactorMarketAppreciation, "5", "0"},
		{FactorMarketAppreciation, "-2", "100"},
		{FactorRentToPrice, "1.0", "0"},
		{FactorRentToPrice, "0.8", "50"},
		{FactorRentToPrice, "0.6", "100"},
		{FactorPropertyAge, "0", "0"},
		{FactorPropertyAge, "-3", "0"},
		{FactorPropertyAge, "25", "25"},
		{FactorPropertyAge, "50", "50"},
		{FactorPropertyAge, "61", "72"},
		{FactorPropertyAge, "80", "100"},
		{FactorDaysOnMarket, "90", "0"},
		{FactorDaysOnMarket, "135", "50"},
		{FactorDaysOnMarket, "180", "100"},
		{FactorPopulationGrowth, "2", "0"},
		{FactorPopulationGrowth, "-1", "100"},
		{FactorConcentration, "50", "0"},
		{FactorConcentration, "75", "50"},
		{FactorConcentration, "100", "100"},
		{FactorExpenseRatio, "55", "0"},
		{FactorExpenseRatio, "43", "0"},
		{FactorExpenseRatio, "80", "50"},
	}

	for _, tt := range tests {
		t.Run(tt.factor+"="+tt.raw, func(t *testing.T) {
			got := scoreOf(t, tt.factor, tt.raw)
			assert.True(t, d(tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestWeightsSumToOne(t *testing.T) {
	factors := Factors()
	require.Len(t, factors, 11)

	total := decimal.Zero
	for _, f := range factors {
		total = total.Add(f.Weight)
	}
	assert.True(t, decimal.NewFromInt(1).Equal(total), "weights sum to %s", total)
	assert.Equal(t, FactorDSCR, factors[0].Name)
	assert.Equal(t, FactorExpenseRatio, factors[10].Name)
}

func TestSheboyganDuplexIsLowRisk(t *testing.T) {
	engine := NewEngine(fixedClock)
	market := &MarketData{
		AvgVacancyRatePct:   p("5"),
		YoYAppreciationPct:  p("3.2"),
		PopulationGrowthPct: p("0.8"),
	}
	portfolio := &PortfolioData{PctInZip: p("35")}

	res := engine.CalculateRiskScore(sheboyganDuplex(), market, portfolio)

	assert.True(t, d("15.85").Equal(res.Score), "got %s", res.Score)
	assert.Equal(t, LabelLow, res.Label)
	require.Len(t, res.Factors, 11)

	age := factorByName(t, res, FactorPropertyAge)
	require.NotNil(t, age.Raw)
	assert.True(t, d("61").Equal(*age.Raw))
	assert.True(t, d("72").Equal(age.Score))

	ltv := factorByName(t, res, FactorLTV)
	assert.True(t, ltv.Score.IsZero())
	assert.True(t, d("80").Equal(*ltv.Raw))

	rtp := factorByName(t, res, FactorRentToPrice)
	assert.True(t, d("0.973").Equal(*rtp.Raw), "got %s", rtp.Raw)
	assert.True(t, d("6.75").Equal(rtp.Score))

	for _, f := range res.Factors {
		assert.True(t, f.Available, f.Name)
	}
}

func TestSheboyganDuplexWithoutContext(t *testing.T) {
	res := NewEngine(fixedClock).CalculateRiskScore(sheboyganDuplex(), nil, nil)

	assert.True(t, res.Score.LessThanOrEqual(d("33")))
	assert.Equal(t, LabelLow, res.Label)

	for _, name := range []string{FactorVacancyVsMarket, FactorMarketAppreciation, FactorPopulationGrowth, FactorConcentration} {
		f := factorByName(t, res, name)
		assert.False(t, f.Available, name)
		assert.Nil(t, f.Raw, name)
		assert.True(t, f.Score.IsZero(), name)
	}
}

func TestMissingDealValuesDegradeToZero(t *testing.T) {
	res := NewEngine(fixedClock).CalculateRiskScore(DealSnapshot{
		PurchasePrice: d("200000"),
	}, nil, nil)

	for _, name := range []string{FactorDSCR, FactorCashOnCash, FactorPropertyAge, FactorDaysOnMarket, FactorExpenseRatio} {
		f := factorByName(t, res, name)
		assert.False(t, f.Available, name)
		assert.True(t, f.Score.IsZero(), name)
	}

	// Zero rent is a real value and scores as the worst rent-to-price.
	rtp := factorByName(t, res, FactorRentToPrice)
	assert.True(t, rtp.Available)
	assert.True(t, d("100").Equal(rtp.Score))
	assert.True(t, d("10").Equal(res.Score), "got %s", res.Score)
}

func TestExpenseRatioDerivedFromNOI(t *testing.T) {
	deal := sheboyganDuplex()
	deal.ExpenseRatioPct = nil
	deal.NOI = d("8208")

	res := NewEngine(fixedClock).CalculateRiskScore(deal, nil, nil)
	f := factorByName(t, res, FactorExpenseRatio)

	// EGI 1710 x 12 = 20520, NOI is 40% of it.
	require.NotNil(t, f.Raw)
	assert.True(t, d("60").Equal(*f.Raw), "got %s", f.Raw)
	assert.True(t, d("10").Equal(f.Score))
}

func TestHighRiskDeal(t *testing.T) {
	deal := DealSnapshot{
		PurchasePrice:    d("300000"),
		LoanAmount:       d("300000"),
		GrossMonthlyRent: d("1500"),
		VacancyRatePct:   d("15"),
		NOI:              d("5000"),
		DSCR:             p("0.6"),
		CashOnCashPct:    p("-3"),
		ExpenseRatioPct:  p("110"),
		YearBuilt:        intp(1920),
		DaysOnMarket:     intp(200),
	}
	market := &MarketData{
		AvgVacancyRatePct:   p("5"),
		YoYAppreciationPct:  p("-3"),
		PopulationGrowthPct: p("-1.5"),
	}

	res := NewEngine(fixedClock).CalculateRiskScore(deal, market, &PortfolioData{PctInZip: p("100")})
	assert.True(t, d("100").Equal(res.Score), "got %s", res.Score)
	assert.Equal(t, LabelHigh, res.Label)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, LabelLow, Label(d("0")))
	assert.Equal(t, LabelLow, Label(d("33")))
	assert.Equal(t, LabelModerate, Label(d("33.01")))
	assert.Equal(t, LabelModerate, Label(d("66")))
	assert.Equal(t, LabelHigh, Label(d("66.01")))
	assert.Equal(t, LabelHigh, Label(d("100")))
}

func TestWeightedSumsToScore(t *testing.T) {
	res := NewEngine(fixedClock).CalculateRiskScore(sheboyganDuplex(), nil, &PortfolioData{PctInZip: p("80")})

	total := decimal.Zero
	for _, f := range res.Factors {
		total = total.Add(f.Weighted)
	}
	assert.True(t, total.Round(2).Equal(res.Score), "weighted %s vs score %s", total, res.Score)
}
