package projection

import (
	"testing"

	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func duplexTerms() Terms {
	return Terms{
		PurchasePrice:       d("185000"),
		LoanAmount:          d("148000"),
		InterestRate:        d("7.0"),
		LoanTermYears:       30,
		MonthlyMortgage:     d("984.65"),
		GrossMonthlyRent:    d("1800"),
		BaseMonthlyExpenses: d("760"),
		TotalCashInvested:   d("42550"),
	}
}

func TestComputeYearlyDuplex(t *testing.T) {
	res, err := ComputeYearly(duplexTerms(), DefaultAssumptions())
	require.NoError(t, err)
	require.Len(t, res.Yearly, 10)

	first := res.Yearly[0]
	assert.Equal(t, 1, first.Year)
	assert.True(t, d("190550.00").Equal(first.PropertyValue), "got %s", first.PropertyValue)
	assert.True(t, d("21600").Equal(first.AnnualGrossRent))
	assert.True(t, d("9120").Equal(first.AnnualExpenses))
	assert.True(t, d("11815.80").Equal(first.AnnualMortgagePayment))
	assert.True(t, d("664.20").Equal(first.AnnualNetCashFlow), "got %s", first.AnnualNetCashFlow)
	assert.True(t, first.PrincipalPaid.IsPositive())
	assert.True(t, first.InterestPaid.GreaterThan(first.PrincipalPaid))

	second := res.Yearly[1]
	assert.True(t, d("22032.00").Equal(second.AnnualGrossRent), "got %s", second.AnnualGrossRent)
	assert.True(t, d("9302.40").Equal(second.AnnualExpenses), "got %s", second.AnnualExpenses)

	cumulative := decimal.Zero
	for i, row := range res.Yearly {
		cumulative = cumulative.Add(row.AnnualNetCashFlow)
		assert.True(t, cumulative.Equal(row.CumulativeCashFlow))
		assert.True(t, row.Equity.Equal(row.PropertyValue.Sub(row.LoanBalance)))
		assert.True(t, row.AnnualMortgagePayment.Equal(first.AnnualMortgagePayment))
		if i > 0 {
			assert.True(t, row.LoanBalance.LessThan(res.Yearly[i-1].LoanBalance))
		}
	}

	require.NotNil(t, res.IRR5Yr)
	require.NotNil(t, res.IRR10Yr)
}

func TestComputeYearlyBalanceMatchesSchedule(t *testing.T) {
	terms := duplexTerms()
	res, err := ComputeYearly(terms, DefaultAssumptions())
	require.NoError(t, err)

	remaining, err := finance.RemainingBalance(terms.LoanAmount, terms.InterestRate, terms.LoanTermYears, 5)
	require.NoError(t, err)
	assert.True(t, remaining.Equal(res.Yearly[4].LoanBalance))

	paid := decimal.Zero
	for _, row := range res.Yearly[:5] {
		paid = paid.Add(row.PrincipalPaid)
	}
	diff := terms.LoanAmount.Sub(remaining).Sub(paid).Abs()
	assert.True(t, diff.LessThanOrEqual(d("0.05")), "principal paid %s", paid)
}

func TestComputeYearlyAllCash(t *testing.T) {
	terms := duplexTerms()
	terms.LoanAmount = decimal.Zero
	terms.MonthlyMortgage = decimal.Zero
	terms.TotalCashInvested = d("190550")

	res, err := ComputeYearly(terms, DefaultAssumptions())
	require.NoError(t, err)

	for _, row := range res.Yearly {
		assert.True(t, row.LoanBalance.IsZero())
		assert.True(t, row.PrincipalPaid.IsZero())
		assert.True(t, row.InterestPaid.IsZero())
		assert.True(t, row.AnnualMortgagePayment.IsZero())
		assert.True(t, row.Equity.Equal(row.PropertyValue))
	}
}

func TestComputeYearlyZeroAppreciation(t *testing.T) {
	a := DefaultAssumptions()
	a.AppreciationPct = decimal.Zero

	res, err := ComputeYearly(duplexTerms(), a)
	require.NoError(t, err)
	for _, row := range res.Yearly {
		assert.True(t, d("185000").Equal(row.PropertyValue), "year %d: %s", row.Year, row.PropertyValue)
	}
}

func TestComputeYearlyHorizonLimitsIRR(t *testing.T) {
	a := DefaultAssumptions()

	a.Years = 5
	res, err := ComputeYearly(duplexTerms(), a)
	require.NoError(t, err)
	assert.Len(t, res.Yearly, 5)
	assert.NotNil(t, res.IRR5Yr)
	assert.Nil(t, res.IRR10Yr)

	a.Years = 3
	res, err = ComputeYearly(duplexTerms(), a)
	require.NoError(t, err)
	assert.Nil(t, res.IRR5Yr)
	assert.Nil(t, res.IRR10Yr)
}

func TestComputeYearlyNoInvestedCapital(t *testing.T) {
	terms := duplexTerms()
	terms.TotalCashInvested = decimal.Zero

	res, err := ComputeYearly(terms, DefaultAssumptions())
	require.NoError(t, err)
	assert.Nil(t, res.IRR5Yr)
	assert.Nil(t, res.IRR10Yr)
}

func TestComputeYearlyAfterPayoff(t *testing.T) {
	terms := duplexTerms()
	terms.LoanTermYears = 5
	terms.MonthlyMortgage = d("2930.57")

	a := DefaultAssumptions()
	a.Years = 8
	res, err := ComputeYearly(terms, a)
	require.NoError(t, err)

	assert.True(t, res.Yearly[4].LoanBalance.IsZero())
	for _, row := range res.Yearly[5:] {
		assert.True(t, row.LoanBalance.IsZero())
		assert.True(t, row.PrincipalPaid.IsZero())
		assert.True(t, row.InterestPaid.IsZero())
	}
}

func TestSellingCostsLowerIRR(t *testing.T) {
	a := DefaultAssumptions()
	a.SellingCostPct = decimal.Zero
	noCost, err := ComputeYearly(duplexTerms(), a)
	require.NoError(t, err)

	a.SellingCostPct = d("10")
	withCost, err := ComputeYearly(duplexTerms(), a)
	require.NoError(t, err)

	require.NotNil(t, noCost.IRR5Yr)
	require.NotNil(t, withCost.IRR5Yr)
	assert.True(t, withCost.IRR5Yr.LessThan(*noCost.IRR5Yr))
}

func TestAssumptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Assumptions)
	}{
		{"zero years", func(a *Assumptions) { a.Years = 0 }},
		{"too many years", func(a *Assumptions) { a.Years = 31 }},
		{"negative selling costs", func(a *Assumptions) { a.SellingCostPct = d("-1") }},
		{"selling costs above 100", func(a *Assumptions) { a.SellingCostPct = d("101") }},
		{"total depreciation", func(a *Assumptions) { a.AppreciationPct = d("-100") }},
		{"runaway rent growth", func(a *Assumptions) { a.RentGrowthPct = d("150") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DefaultAssumptions()
			tt.mutate(&a)
			_, err := ComputeYearly(duplexTerms(), a)
			assert.ErrorIs(t, err, finance.ErrInvalidInput)
		})
	}

	assert.NoError(t, DefaultAssumptions().Validate())
}
