package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	irrMaxIterations    = 100
	bisectMaxIterations = 200
)

var (
	irrGuess     = decimal.RequireFromString("0.1")
	irrFloor     = decimal.RequireFromString("-0.99")
	irrCeiling   = decimal.NewFromInt(10)
	irrDivergent = decimal.NewFromInt(1_000_000)
	npvTolerance = decimal.RequireFromString("0.0001")
	rateEpsilon  = decimal.New(1, -12)
	two          = decimal.NewFromInt(2)
)

// npv returns the net present value of cashFlows at rate r and its
// derivative with respect to r.
func npv(cashFlows []decimal.Decimal, r decimal.Decimal) (value, slope decimal.Decimal) {
	discount := Div(one, one.Add(r))
	factor := one // (1+r)^-t
	for t, cf := range cashFlows {
		if t > 0 {
			factor = factor.Mul(discount).Round(divPrecision)
		}
		value = value.Add(cf.Mul(factor))
		if t > 0 {
			// d/dr cf·(1+r)^-t = −t·cf·(1+r)^-(t+1)
			slope = slope.Sub(decimal.NewFromInt(int64(t)).Mul(cf).Mul(factor).Mul(discount))
		}
	}
	return value.Round(divPrecision), slope.Round(divPrecision)
}

// IRR solves Σ CF_t / (1+r)^t = 0 for r, where cashFlows[0] is the initial
// outlay. Newton–Raphson seeded at 10% runs first; when it stalls or
// diverges a bisection over [-99%, 1000%] is attempted. The result is
// rounded to four decimal places.
func IRR(cashFlows []decimal.Decimal) (decimal.Decimal, error) {
	if len(cashFlows) < 2 {
		return decimal.Zero, fmt.Errorf("%w: at least 2 cash flows are required", ErrInvalidInput)
	}

	if r, ok := newton(cashFlows); ok {
		return RoundRate(r), nil
	}
	if r, ok := bisect(cashFlows); ok {
		return RoundRate(r), nil
	}
	return decimal.Zero, ErrNoConvergence
}

func newton(cashFlows []decimal.Decimal) (decimal.Decimal, bool) {
	r := irrGuess
	for i := 0; i < irrMaxIterations; i++ {
		value, slope := npv(cashFlows, r)
		if value.Abs().LessThan(npvTolerance) {
			return r, true
		}
		if slope.IsZero() {
			return decimal.Zero, false
		}
		r = r.Sub(Div(value, slope))
		if r.LessThan(irrFloor) {
			r = irrFloor
		}
		if r.GreaterThan(irrDivergent) {
			return decimal.Zero, false
		}
	}
	return decimal.Zero, false
}

func bisect(cashFlows []decimal.Decimal) (decimal.Decimal, bool) {
	lo, hi := irrFloor, irrCeiling
	fLo, _ := npv(cashFlows, lo)
	fHi, _ := npv(cashFlows, hi)
	if fLo.Sign()*fHi.Sign() > 0 {
		return decimal.Zero, false
	}

	for i := 0; i < bisectMaxIterations; i++ {
		mid := Div(lo.Add(hi), two)
		fMid, _ := npv(cashFlows, mid)
		if fMid.Abs().LessThan(npvTolerance) || hi.Sub(lo).LessThan(rateEpsilon) {
			return mid, true
		}
		if fMid.Sign() == fLo.Sign() {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return decimal.Zero, false
}
