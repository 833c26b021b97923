// Package projection simulates a deal year by year under growth
// assumptions and reports the hold-period IRR from those cash flows.
package projection

import (
	"fmt"

	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/shopspring/decimal"
)

const (
	MinYears = 1
	MaxYears = 30

	monthsPerYear = 12
)

// IRR horizons reported alongside the yearly rows.
const (
	ShortHoldYears = 5
	LongHoldYears  = 10
)

var (
	hundred      = decimal.NewFromInt(100)
	minusHundred = decimal.NewFromInt(-100)
	twelve       = decimal.NewFromInt(monthsPerYear)
	one          = decimal.NewFromInt(1)
)

// Terms are the resolved year-1 figures of a deal. BaseMonthlyExpenses
// excludes debt service but includes vacancy loss.
type Terms struct {
	PurchasePrice       decimal.Decimal
	LoanAmount          decimal.Decimal
	InterestRate        decimal.Decimal // annual %
	LoanTermYears       int
	MonthlyMortgage     decimal.Decimal
	GrossMonthlyRent    decimal.Decimal
	BaseMonthlyExpenses decimal.Decimal
	TotalCashInvested   decimal.Decimal
}

// Assumptions are per-request growth parameters, all in percent.
type Assumptions struct {
	Years            int             `json:"projection_years"`
	AppreciationPct  decimal.Decimal `json:"annual_appreciation_pct"`
	RentGrowthPct    decimal.Decimal `json:"annual_rent_growth_pct"`
	ExpenseGrowthPct decimal.Decimal `json:"annual_expense_growth_pct"`
	SellingCostPct   decimal.Decimal `json:"selling_cost_pct"`
}

// DefaultAssumptions returns a ten-year hold at 3% appreciation, 2% rent
// and expense growth and 6% selling costs.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		Years:            10,
		AppreciationPct:  decimal.NewFromInt(3),
		RentGrowthPct:    decimal.NewFromInt(2),
		ExpenseGrowthPct: decimal.NewFromInt(2),
		SellingCostPct:   decimal.NewFromInt(6),
	}
}

// Validate checks the horizon and percentage ranges.
func (a Assumptions) Validate() error {
	if a.Years < MinYears || a.Years > MaxYears {
		return fmt.Errorf("%w: projection_years must be between %d and %d", finance.ErrInvalidInput, MinYears, MaxYears)
	}
	if a.SellingCostPct.IsNegative() || a.SellingCostPct.GreaterThan(hundred) {
		return fmt.Errorf("%w: selling_cost_pct must be between 0 and 100", finance.ErrInvalidInput)
	}
	growth := []struct {
		name  string
		value decimal.Decimal
	}{
		{"annual_appreciation_pct", a.AppreciationPct},
		{"annual_rent_growth_pct", a.RentGrowthPct},
		{"annual_expense_growth_pct", a.ExpenseGrowthPct},
	}
	for _, g := range growth {
		if g.value.LessThanOrEqual(minusHundred) || g.value.GreaterThan(hundred) {
			return fmt.Errorf("%w: %s must be above -100 and at most 100", finance.ErrInvalidInput, g.name)
		}
	}
	return nil
}

// YearlyRow is one simulated year of ownership.
type YearlyRow struct {
	Year                  int             `json:"year"`
	PropertyValue         decimal.Decimal `json:"property_value"`
	LoanBalance           decimal.Decimal `json:"loan_balance"`
	Equity                decimal.Decimal `json:"equity"`
	PrincipalPaid         decimal.Decimal `json:"principal_paid"`
	InterestPaid          decimal.Decimal `json:"interest_paid"`
	AnnualGrossRent       decimal.Decimal `json:"annual_gross_rent"`
	AnnualExpenses        decimal.Decimal `json:"annual_expenses"`
	AnnualMortgagePayment decimal.Decimal `json:"annual_mortgage_payment"`
	AnnualNetCashFlow     decimal.Decimal `json:"annual_net_cash_flow"`
	CumulativeCashFlow    decimal.Decimal `json:"cumulative_cash_flow"`
}

// Result holds the yearly rows and the IRR of the horizons covered.
type Result struct {
	Yearly  []YearlyRow      `json:"yearly_projections"`
	IRR5Yr  *decimal.Decimal `json:"irr_5_year"`
	IRR10Yr *decimal.Decimal `json:"irr_10_year"`
}

type debtYear struct {
	principal decimal.Decimal
	interest  decimal.Decimal
	balance   decimal.Decimal
}

// annualDebt buckets the monthly schedule into years. Years after payoff
// and every year of an all-cash deal are zero.
func annualDebt(t Terms, years int) ([]debtYear, error) {
	out := make([]debtYear, years)
	if !t.LoanAmount.IsPositive() {
		return out, nil
	}

	schedule, err := finance.AmortizationSchedule(t.LoanAmount, t.InterestRate, t.LoanTermYears)
	if err != nil {
		return nil, fmt.Errorf("building amortization schedule: %w", err)
	}

	for y := 0; y < years; y++ {
		start := y * monthsPerYear
		if start >= len(schedule) {
			break
		}
		end := min(start+monthsPerYear, len(schedule))
		months := schedule[start:end]

		var principal, interest decimal.Decimal
		for _, m := range months {
			principal = principal.Add(m.Principal)
			interest = interest.Add(m.Interest)
		}
		out[y] = debtYear{
			principal: finance.RoundMoney(principal),
			interest:  finance.RoundMoney(interest),
			balance:   months[len(months)-1].RemainingBalance,
		}
	}
	return out, nil
}

func growthFactor(pct decimal.Decimal, years int) decimal.Decimal {
	return finance.PowInt(one.Add(finance.Pct(pct)), years)
}

// ComputeYearly runs the projection for the given terms and assumptions.
func ComputeYearly(t Terms, a Assumptions) (Result, error) {
	if err := a.Validate(); err != nil {
		return Result{}, err
	}
	if !t.PurchasePrice.IsPositive() {
		return Result{}, fmt.Errorf("%w: purchase price must be positive", finance.ErrInvalidInput)
	}

	debt, err := annualDebt(t, a.Years)
	if err != nil {
		return Result{}, err
	}

	baseRent := t.GrossMonthlyRent.Mul(twelve)
	baseExpenses := t.BaseMonthlyExpenses.Mul(twelve)
	mortgage := finance.RoundMoney(t.MonthlyMortgage.Mul(twelve))

	rows := make([]YearlyRow, 0, a.Years)
	cumulative := decimal.Zero
	for y := 1; y <= a.Years; y++ {
		d := debt[y-1]
		value := finance.RoundMoney(t.PurchasePrice.Mul(growthFactor(a.AppreciationPct, y)))
		rent := finance.RoundMoney(baseRent.Mul(growthFactor(a.RentGrowthPct, y-1)))
		expenses := finance.RoundMoney(baseExpenses.Mul(growthFactor(a.ExpenseGrowthPct, y-1)))
		net := finance.RoundMoney(rent.Sub(expenses).Sub(mortgage))
		cumulative = finance.RoundMoney(cumulative.Add(net))

		rows = append(rows, YearlyRow{
			Year:                  y,
			PropertyValue:         value,
			LoanBalance:           d.balance,
			Equity:                finance.RoundMoney(value.Sub(d.balance)),
			PrincipalPaid:         d.principal,
			InterestPaid:          d.interest,
			AnnualGrossRent:       rent,
			AnnualExpenses:        expenses,
			AnnualMortgagePayment: mortgage,
			AnnualNetCashFlow:     net,
			CumulativeCashFlow:    cumulative,
		})
	}

	return Result{
		Yearly:  rows,
		IRR5Yr:  holdIRR(rows, t.TotalCashInvested, a.SellingCostPct, ShortHoldYears),
		IRR10Yr: holdIRR(rows, t.TotalCashInvested, a.SellingCostPct, LongHoldYears),
	}, nil
}

// holdIRR returns nil when the rows do not cover the hold, nothing was
// invested or the solver fails.
func holdIRR(rows []YearlyRow, invested, sellingCostPct decimal.Decimal, hold int) *decimal.Decimal {
	if hold > len(rows) || !invested.IsPositive() {
		return nil
	}

	exitRow := rows[hold-1]
	keep := one.Sub(finance.Pct(sellingCostPct))
	exit := finance.RoundMoney(exitRow.PropertyValue.Mul(keep).Sub(exitRow.LoanBalance))

	flows := make([]decimal.Decimal, 0, hold+1)
	flows = append(flows, invested.Neg())
	for _, r := range rows[:hold-1] {
		flows = append(flows, r.AnnualNetCashFlow)
	}
	flows = append(flows, exitRow.AnnualNetCashFlow.Add(exit))

	irr, err := finance.IRR(flows)
	if err != nil {
		return nil
	}
	return &irr
}
