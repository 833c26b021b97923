package finance

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Quantization scales. Money is stored to the cent, rates and ratios to
// four decimal places. Intermediate division keeps divPrecision digits.
const (
	MoneyPlaces  int32 = 2
	RatePlaces   int32 = 4
	divPrecision int32 = 28
)

var (
	// ErrInvalidInput marks caller-supplied data that violates a domain rule.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoConvergence is returned when the IRR solver cannot find a root.
	ErrNoConvergence = errors.New("irr did not converge")
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	one     = decimal.NewFromInt(1)
)

// Round rounds half away from zero to the given number of places.
func Round(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// RoundMoney rounds a monetary figure to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundRate rounds a rate or ratio to four decimal places.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePlaces)
}

// Div divides with a fixed working precision instead of the package-level
// decimal.DivisionPrecision.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, divPrecision)
}

// Pct converts a percentage (e.g. 7.5) to a fraction (0.075).
func Pct(p decimal.Decimal) decimal.Decimal {
	return Div(p, hundred)
}

// PowInt raises base to a non-negative integer power by repeated squaring,
// rounding every product to the working precision so digit counts stay
// bounded for long loan terms.
func PowInt(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	b := base
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(b).Round(divPrecision)
		}
		n >>= 1
		if n > 0 {
			b = b.Mul(b).Round(divPrecision)
		}
	}
	return result
}

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(annualRatePct decimal.Decimal) decimal.Decimal {
	return Div(annualRatePct, hundred.Mul(twelve))
}
