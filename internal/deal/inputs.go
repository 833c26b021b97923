package deal

import (
	"fmt"

	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/shopspring/decimal"
)

// Defaults applied when an optional input is absent.
var (
	DefaultDownPaymentPct     = decimal.NewFromInt(20)
	DefaultVacancyRatePct     = decimal.NewFromInt(5)
	DefaultMaintenanceRatePct = decimal.NewFromInt(5)
	DefaultManagementFeePct   = decimal.NewFromInt(10)
)

const DefaultLoanTermYears = 30

var (
	maxPct          = decimal.NewFromInt(100)
	maxInterestRate = decimal.NewFromInt(30)
)

const maxLoanTermYears = 50

// Inputs are the raw figures of a prospective deal. Nil pointers are
// absent values; defaults are resolved by CalculateAll.
type Inputs struct {
	PurchasePrice    decimal.Decimal  `json:"purchase_price"`
	ClosingCosts     *decimal.Decimal `json:"closing_costs,omitempty"`
	RehabCosts       *decimal.Decimal `json:"rehab_costs,omitempty"`
	AfterRepairValue *decimal.Decimal `json:"after_repair_value,omitempty"`
	SellingCosts     *decimal.Decimal `json:"selling_costs,omitempty"`

	DownPaymentPct  *decimal.Decimal `json:"down_payment_pct,omitempty"`
	LoanAmount      *decimal.Decimal `json:"loan_amount,omitempty"`
	InterestRate    *decimal.Decimal `json:"interest_rate,omitempty"` // annual %
	LoanTermYears   *int             `json:"loan_term_years,omitempty"`
	MonthlyMortgage *decimal.Decimal `json:"monthly_mortgage,omitempty"`

	GrossMonthlyRent   decimal.Decimal  `json:"gross_monthly_rent"`
	OtherMonthlyIncome *decimal.Decimal `json:"other_monthly_income,omitempty"`

	PropertyTaxMonthly *decimal.Decimal `json:"property_tax_monthly,omitempty"`
	InsuranceMonthly   *decimal.Decimal `json:"insurance_monthly,omitempty"`
	HOAMonthly         *decimal.Decimal `json:"hoa_monthly,omitempty"`
	UtilitiesMonthly   *decimal.Decimal `json:"utilities_monthly,omitempty"`

	VacancyRatePct     *decimal.Decimal `json:"vacancy_rate_pct,omitempty"`
	MaintenanceRatePct *decimal.Decimal `json:"maintenance_rate_pct,omitempty"`
	ManagementFeePct   *decimal.Decimal `json:"management_fee_pct,omitempty"`
}

type namedValue struct {
	name  string
	value *decimal.Decimal
}

// Validate checks every supplied field against its allowed range.
func (in Inputs) Validate() error {
	if !in.PurchasePrice.IsPositive() {
		return fmt.Errorf("%w: purchase_price must be positive", finance.ErrInvalidInput)
	}
	if in.GrossMonthlyRent.IsNegative() {
		return fmt.Errorf("%w: gross_monthly_rent must be non-negative", finance.ErrInvalidInput)
	}

	nonNegative := []namedValue{
		{"closing_costs", in.ClosingCosts},
		{"rehab_costs", in.RehabCosts},
		{"selling_costs", in.SellingCosts},
		{"loan_amount", in.LoanAmount},
		{"monthly_mortgage", in.MonthlyMortgage},
		{"other_monthly_income", in.OtherMonthlyIncome},
		{"property_tax_monthly", in.PropertyTaxMonthly},
		{"insurance_monthly", in.InsuranceMonthly},
		{"hoa_monthly", in.HOAMonthly},
		{"utilities_monthly", in.UtilitiesMonthly},
	}
	for _, f := range nonNegative {
		if f.value != nil && f.value.IsNegative() {
			return fmt.Errorf("%w: %s must be non-negative", finance.ErrInvalidInput, f.name)
		}
	}

	percentages := []namedValue{
		{"down_payment_pct", in.DownPaymentPct},
		{"vacancy_rate_pct", in.VacancyRatePct},
		{"maintenance_rate_pct", in.MaintenanceRatePct},
		{"management_fee_pct", in.ManagementFeePct},
	}
	for _, f := range percentages {
		if f.value != nil && (f.value.IsNegative() || f.value.GreaterThan(maxPct)) {
			return fmt.Errorf("%w: %s must be between 0 and 100", finance.ErrInvalidInput, f.name)
		}
	}

	if in.AfterRepairValue != nil && !in.AfterRepairValue.IsPositive() {
		return fmt.Errorf("%w: after_repair_value must be positive", finance.ErrInvalidInput)
	}
	if in.InterestRate != nil && (in.InterestRate.IsNegative() || in.InterestRate.GreaterThan(maxInterestRate)) {
		return fmt.Errorf("%w: interest_rate must be between 0 and 30", finance.ErrInvalidInput)
	}
	if in.LoanTermYears != nil && (*in.LoanTermYears < 1 || *in.LoanTermYears > maxLoanTermYears) {
		return fmt.Errorf("%w: loan_term_years must be between 1 and 50", finance.ErrInvalidInput)
	}
	return nil
}

func valueOr(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return *v
}

func zeroIfNil(v *decimal.Decimal) decimal.Decimal {
	return valueOr(v, decimal.Zero)
}

// TermYears returns the loan term, defaulting to 30 years.
func (in Inputs) TermYears() int {
	if in.LoanTermYears == nil {
		return DefaultLoanTermYears
	}
	return *in.LoanTermYears
}

// Rate returns the annual interest rate in percent, zero when absent.
func (in Inputs) Rate() decimal.Decimal {
	return zeroIfNil(in.InterestRate)
}

// VacancyPct returns the vacancy percentage with its default applied.
func (in Inputs) VacancyPct() decimal.Decimal {
	return valueOr(in.VacancyRatePct, DefaultVacancyRatePct)
}

// OtherIncome returns other monthly income, zero when absent.
func (in Inputs) OtherIncome() decimal.Decimal {
	return zeroIfNil(in.OtherMonthlyIncome)
}
