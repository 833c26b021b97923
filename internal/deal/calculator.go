// Package deal computes the derived investment metrics of a rental deal
// from its raw inputs.
package deal

import (
	"errors"
	"fmt"

	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Projection horizons reported in Metrics.
const (
	ShortHoldYears = 5
	LongHoldYears  = 10
)

// Metrics is the full derived-metrics set of a deal. Nil pointers are
// values that are undefined for this deal (DSCR without debt service,
// cash-on-cash without invested capital, IRR that did not converge).
type Metrics struct {
	NOI               decimal.Decimal  `json:"noi"`
	CapRate           decimal.Decimal  `json:"cap_rate"`
	CashOnCash        *decimal.Decimal `json:"cash_on_cash"`
	MonthlyCashFlow   decimal.Decimal  `json:"monthly_cash_flow"`
	AnnualCashFlow    decimal.Decimal  `json:"annual_cash_flow"`
	TotalCashInvested decimal.Decimal  `json:"total_cash_invested"`
	DSCR              *decimal.Decimal `json:"dscr"`
	GRM               decimal.Decimal  `json:"grm"`
	IRR5Yr            *decimal.Decimal `json:"irr_5yr"`
	IRR10Yr           *decimal.Decimal `json:"irr_10yr"`
	EquityBuildup5Yr  decimal.Decimal  `json:"equity_buildup_5yr"`
	EquityBuildup10Yr decimal.Decimal  `json:"equity_buildup_10yr"`

	// Resolved terms, reused by projections and risk scoring.
	LoanAmount           decimal.Decimal `json:"loan_amount"`
	MonthlyMortgage      decimal.Decimal `json:"monthly_mortgage"`
	DownPaymentAmount    decimal.Decimal `json:"down_payment_amount"`
	VacancyLoss          decimal.Decimal `json:"vacancy_loss"`
	EffectiveGrossIncome decimal.Decimal `json:"effective_gross_income"`
	OperatingExpenses    decimal.Decimal `json:"operating_expenses"`
}

// CalculateAll resolves missing financing terms and computes every derived
// metric. Domain validation errors are returned unchanged; IRR failures are
// reported as nil IRR values.
func CalculateAll(in Inputs) (Metrics, error) {
	if err := in.Validate(); err != nil {
		return Metrics{}, err
	}

	price := in.PurchasePrice
	rent := in.GrossMonthlyRent
	term := in.TermYears()
	rate := in.Rate()

	loan, down := resolveFinancing(in)

	mortgage := zeroIfNil(in.MonthlyMortgage)
	if mortgage.IsZero() && loan.IsPositive() {
		var err error
		mortgage, err = finance.MonthlyPayment(loan, rate, term)
		if err != nil {
			return Metrics{}, fmt.Errorf("resolving monthly mortgage: %w", err)
		}
	}

	vacancyLoss := pctOf(rent, in.VacancyPct())
	egi := finance.RoundMoney(rent.Add(in.OtherIncome()).Sub(vacancyLoss))
	opex := OperatingExpenses(in)

	noi := NOI(in)
	monthlyCF := finance.RoundMoney(egi.Sub(opex).Sub(mortgage))
	annualCF := finance.RoundMoney(monthlyCF.Mul(twelve))
	invested := TotalCashInvested(down, zeroIfNil(in.ClosingCosts), zeroIfNil(in.RehabCosts))

	capRate, err := CapRate(noi, price)
	if err != nil {
		return Metrics{}, err
	}
	grm, err := GRM(price, finance.RoundMoney(rent.Mul(twelve)))
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		NOI:                  noi,
		CapRate:              capRate,
		MonthlyCashFlow:      monthlyCF,
		AnnualCashFlow:       annualCF,
		TotalCashInvested:    invested,
		DSCR:                 DSCR(noi, finance.RoundMoney(mortgage.Mul(twelve))),
		GRM:                  grm,
		LoanAmount:           loan,
		MonthlyMortgage:      mortgage,
		DownPaymentAmount:    down,
		VacancyLoss:          vacancyLoss,
		EffectiveGrossIncome: egi,
		OperatingExpenses:    opex,
	}

	if invested.IsPositive() {
		coc, err := CashOnCash(annualCF, invested)
		if err != nil {
			return Metrics{}, err
		}
		m.CashOnCash = &coc
	}

	if m.EquityBuildup5Yr, err = EquityBuildup(loan, rate, term, ShortHoldYears); err != nil {
		return Metrics{}, err
	}
	if m.EquityBuildup10Yr, err = EquityBuildup(loan, rate, term, LongHoldYears); err != nil {
		return Metrics{}, err
	}

	hold := HoldInputs{
		TotalCashInvested: invested,
		AnnualCashFlow:    annualCF,
		LoanAmount:        loan,
		InterestRate:      rate,
		LoanTermYears:     term,
		SalePrice:         valueOr(in.AfterRepairValue, price),
		SellingCosts:      zeroIfNil(in.SellingCosts),
	}
	m.IRR5Yr = optionalIRR(hold, ShortHoldYears)
	m.IRR10Yr = optionalIRR(hold, LongHoldYears)

	return m, nil
}

// resolveFinancing returns the loan amount and the down payment. A given
// loan amount wins over the down-payment percentage; with a loan and no
// percentage the down payment is whatever the loan does not cover.
func resolveFinancing(in Inputs) (loan, down decimal.Decimal) {
	price := in.PurchasePrice
	if in.LoanAmount == nil {
		pct := valueOr(in.DownPaymentPct, DefaultDownPaymentPct)
		down = pctOf(price, pct)
		return finance.RoundMoney(price.Sub(down)), down
	}

	loan = finance.RoundMoney(*in.LoanAmount)
	if in.DownPaymentPct != nil {
		return loan, pctOf(price, *in.DownPaymentPct)
	}
	down = finance.RoundMoney(price.Sub(loan))
	if down.IsNegative() {
		down = decimal.Zero
	}
	return loan, down
}

func optionalIRR(hold HoldInputs, years int) *decimal.Decimal {
	irr, err := IRRProjection(hold, years)
	if err != nil {
		return nil
	}
	return &irr
}

// pctOf returns base × pct/100 rounded to cents.
func pctOf(base, pct decimal.Decimal) decimal.Decimal {
	return finance.RoundMoney(finance.Div(base.Mul(pct), hundred))
}

// OperatingExpenses returns monthly operating expenses excluding debt
// service: tax, insurance, maintenance and management reserves, HOA and
// utilities.
func OperatingExpenses(in Inputs) decimal.Decimal {
	rent := in.GrossMonthlyRent
	maintenance := pctOf(rent, valueOr(in.MaintenanceRatePct, DefaultMaintenanceRatePct))
	management := pctOf(rent, valueOr(in.ManagementFeePct, DefaultManagementFeePct))
	return finance.RoundMoney(
		zeroIfNil(in.PropertyTaxMonthly).
			Add(zeroIfNil(in.InsuranceMonthly)).
			Add(maintenance).
			Add(management).
			Add(zeroIfNil(in.HOAMonthly)).
			Add(zeroIfNil(in.UtilitiesMonthly)),
	)
}

// NOI returns annual net operating income for the given inputs.
func NOI(in Inputs) decimal.Decimal {
	rent := in.GrossMonthlyRent
	egi := finance.RoundMoney(rent.Add(in.OtherIncome()).Sub(pctOf(rent, in.VacancyPct())))
	monthly := finance.RoundMoney(egi.Sub(OperatingExpenses(in)))
	return finance.RoundMoney(monthly.Mul(twelve))
}

// CapRate is NOI / purchase price.
func CapRate(noi, purchasePrice decimal.Decimal) (decimal.Decimal, error) {
	if !purchasePrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: purchase price must be positive", finance.ErrInvalidInput)
	}
	return finance.RoundRate(finance.Div(noi, purchasePrice)), nil
}

// CashOnCash is annual cash flow / total cash invested.
func CashOnCash(annualCashFlow, totalCashInvested decimal.Decimal) (decimal.Decimal, error) {
	if !totalCashInvested.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: total cash invested must be positive", finance.ErrInvalidInput)
	}
	return finance.RoundRate(finance.Div(annualCashFlow, totalCashInvested)), nil
}

// DSCR is NOI / annual debt service, nil for an all-cash deal.
func DSCR(noi, annualDebtService decimal.Decimal) *decimal.Decimal {
	if annualDebtService.IsZero() {
		return nil
	}
	v := finance.RoundRate(finance.Div(noi, annualDebtService))
	return &v
}

// GRM is purchase price / annual gross rent, to two decimal places.
func GRM(purchasePrice, annualGrossRent decimal.Decimal) (decimal.Decimal, error) {
	if !annualGrossRent.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: annual gross rent must be positive", finance.ErrInvalidInput)
	}
	return finance.RoundMoney(finance.Div(purchasePrice, annualGrossRent)), nil
}

// TotalCashInvested is down payment + closing costs + rehab costs.
func TotalCashInvested(downPayment, closingCosts, rehabCosts decimal.Decimal) decimal.Decimal {
	return finance.RoundMoney(downPayment.Add(closingCosts).Add(rehabCosts))
}

// EquityBuildup is the principal paid down after the given number of years.
func EquityBuildup(loan, annualRatePct decimal.Decimal, termYears, years int) (decimal.Decimal, error) {
	if !loan.IsPositive() {
		return finance.RoundMoney(decimal.Zero), nil
	}
	remaining, err := finance.RemainingBalance(loan, annualRatePct, termYears, years)
	if err != nil {
		return decimal.Zero, err
	}
	return finance.RoundMoney(loan.Sub(remaining)), nil
}

// HoldInputs are the resolved figures an IRR projection needs.
type HoldInputs struct {
	TotalCashInvested decimal.Decimal
	AnnualCashFlow    decimal.Decimal
	LoanAmount        decimal.Decimal
	InterestRate      decimal.Decimal
	LoanTermYears     int
	SalePrice         decimal.Decimal
	SellingCosts      decimal.Decimal
}

// ErrNoInvestedCapital is returned by IRRProjection when there is no
// initial outlay to earn a return on.
var ErrNoInvestedCapital = errors.New("no invested capital")

// IRRProjection returns the IRR of holding the deal for the given number of
// years: the initial outlay, a flat annual cash flow each year, and exit
// proceeds (sale price − selling costs − remaining balance) added to the
// final year.
func IRRProjection(h HoldInputs, years int) (decimal.Decimal, error) {
	if years < 1 {
		return decimal.Zero, fmt.Errorf("%w: hold period must be at least 1 year", finance.ErrInvalidInput)
	}
	if !h.TotalCashInvested.IsPositive() {
		return decimal.Zero, ErrNoInvestedCapital
	}

	remaining := decimal.Zero
	if h.LoanAmount.IsPositive() && years < h.LoanTermYears {
		var err error
		remaining, err = finance.RemainingBalance(h.LoanAmount, h.InterestRate, h.LoanTermYears, years)
		if err != nil {
			return decimal.Zero, err
		}
	}
	exit := finance.RoundMoney(h.SalePrice.Sub(h.SellingCosts).Sub(remaining))

	flows := make([]decimal.Decimal, 0, years+1)
	flows = append(flows, h.TotalCashInvested.Neg())
	for y := 1; y <= years; y++ {
		cf := h.AnnualCashFlow
		if y == years {
			cf = cf.Add(exit)
		}
		flows = append(flows, cf)
	}
	return finance.IRR(flows)
}
