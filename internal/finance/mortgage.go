package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmortizationRow is one scheduled payment of a fixed-rate loan.
type AmortizationRow struct {
	PaymentNumber    int             `json:"payment_number"`
	Payment          decimal.Decimal `json:"payment"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

func validateLoan(loan, annualRatePct decimal.Decimal, termYears int) error {
	if loan.IsNegative() {
		return fmt.Errorf("%w: loan amount must be non-negative", ErrInvalidInput)
	}
	if annualRatePct.IsNegative() {
		return fmt.Errorf("%w: interest rate must be non-negative", ErrInvalidInput)
	}
	if termYears < 1 {
		return fmt.Errorf("%w: loan term must be at least 1 year", ErrInvalidInput)
	}
	return nil
}

// MonthlyPayment returns the fixed principal+interest payment of an
// amortizing loan: M = P·r(1+r)^n / ((1+r)^n − 1).
// A zero loan pays nothing and a zero rate pays loan/n.
func MonthlyPayment(loan, annualRatePct decimal.Decimal, termYears int) (decimal.Decimal, error) {
	if err := validateLoan(loan, annualRatePct, termYears); err != nil {
		return decimal.Zero, err
	}
	if loan.IsZero() {
		return RoundMoney(decimal.Zero), nil
	}

	n := termYears * 12
	r := MonthlyRate(annualRatePct)
	if r.IsZero() {
		return RoundMoney(Div(loan, decimal.NewFromInt(int64(n)))), nil
	}

	growth := PowInt(one.Add(r), n)
	payment := Div(loan.Mul(r).Mul(growth), growth.Sub(one))
	return RoundMoney(payment), nil
}

// AmortizationSchedule builds the payment-by-payment schedule of a
// fixed-rate loan. The final period absorbs any rounding residue so the
// balance ends at exactly zero. A non-positive loan yields no rows.
func AmortizationSchedule(loan, annualRatePct decimal.Decimal, termYears int) ([]AmortizationRow, error) {
	if annualRatePct.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate must be non-negative", ErrInvalidInput)
	}
	if termYears < 1 {
		return nil, fmt.Errorf("%w: loan term must be at least 1 year", ErrInvalidInput)
	}
	if !loan.IsPositive() {
		return []AmortizationRow{}, nil
	}

	payment, err := MonthlyPayment(loan, annualRatePct, termYears)
	if err != nil {
		return nil, err
	}

	n := termYears * 12
	r := MonthlyRate(annualRatePct)
	remaining := RoundMoney(loan)
	schedule := make([]AmortizationRow, 0, n)

	// Straight-line principal for interest-free loans, truncated so the
	// final period takes a positive residue.
	flat := Div(loan, decimal.NewFromInt(int64(n))).Truncate(2)

	for i := 1; i <= n; i++ {
		var interest, principal decimal.Decimal
		if r.IsZero() {
			interest = decimal.Zero
			principal = flat
		} else {
			interest = RoundMoney(remaining.Mul(r))
			principal = RoundMoney(payment.Sub(interest))
		}
		if principal.IsNegative() {
			principal = decimal.Zero
		}
		if i == n || principal.GreaterThan(remaining) {
			principal = remaining
		}
		remaining = remaining.Sub(principal)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		rowPayment := payment
		if !principal.Add(interest).Equal(payment) {
			rowPayment = principal.Add(interest)
		}

		schedule = append(schedule, AmortizationRow{
			PaymentNumber:    i,
			Payment:          RoundMoney(rowPayment),
			Principal:        principal,
			Interest:         interest,
			RemainingBalance: RoundMoney(remaining),
		})
	}

	return schedule, nil
}

// RemainingBalance returns the loan balance after yearsElapsed years of
// scheduled payments.
func RemainingBalance(loan, annualRatePct decimal.Decimal, termYears, yearsElapsed int) (decimal.Decimal, error) {
	if err := validateLoan(loan, annualRatePct, termYears); err != nil {
		return decimal.Zero, err
	}
	if yearsElapsed <= 0 {
		return RoundMoney(loan), nil
	}
	if yearsElapsed >= termYears || loan.IsZero() {
		return RoundMoney(decimal.Zero), nil
	}

	schedule, err := AmortizationSchedule(loan, annualRatePct, termYears)
	if err != nil {
		return decimal.Zero, err
	}
	months := yearsElapsed * 12
	if months > len(schedule) {
		return RoundMoney(decimal.Zero), nil
	}
	return schedule[months-1].RemainingBalance, nil
}
