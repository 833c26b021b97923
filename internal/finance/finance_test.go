package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMonthlyPayment(t *testing.T) {
	tests := []struct {
		name     string
		loan     string
		rate     string
		term     int
		expected string
	}{
		{name: "example duplex loan", loan: "148000", rate: "7.0", term: 30, expected: "984.65"},
		{name: "six percent thirty year", loan: "100000", rate: "6", term: 30, expected: "599.55"},
		{name: "zero rate is straight line", loan: "200000", rate: "0", term: 30, expected: "555.56"},
		{name: "zero loan pays nothing", loan: "0", rate: "7", term: 30, expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthlyPayment(d(tt.loan), d(tt.rate), tt.term)
			require.NoError(t, err)
			assert.True(t, d(tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestMonthlyPaymentRejectsBadInput(t *testing.T) {
	_, err := MonthlyPayment(d("-1"), d("5"), 30)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = MonthlyPayment(d("1000"), d("-0.5"), 30)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = MonthlyPayment(d("1000"), d("5"), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAmortizationScheduleSumsToLoan(t *testing.T) {
	cases := []struct {
		loan string
		rate string
		term int
	}{
		{"148000", "7.0", 30},
		{"250000", "6.25", 15},
		{"200000", "0", 30},
		{"12345.67", "3.1", 5},
		{"0.10", "0", 1},
	}

	for _, c := range cases {
		schedule, err := AmortizationSchedule(d(c.loan), d(c.rate), c.term)
		require.NoError(t, err)
		require.Len(t, schedule, c.term*12)

		total := decimal.Zero
		for i, row := range schedule {
			assert.Equal(t, i+1, row.PaymentNumber)
			assert.False(t, row.RemainingBalance.IsNegative())
			total = total.Add(row.Principal)
		}

		diff := total.Sub(d(c.loan)).Abs()
		assert.True(t, diff.LessThanOrEqual(d("0.01")), "principal sum %s vs loan %s", total, c.loan)
		assert.True(t, schedule[len(schedule)-1].RemainingBalance.IsZero())
	}
}

func TestAmortizationScheduleZeroRateEvenPrincipal(t *testing.T) {
	schedule, err := AmortizationSchedule(d("200000"), d("0"), 30)
	require.NoError(t, err)

	for _, row := range schedule[:len(schedule)-1] {
		assert.True(t, d("555.55").Equal(row.Principal))
		assert.True(t, row.Interest.IsZero())
	}
	last := schedule[len(schedule)-1]
	assert.True(t, d("557.55").Equal(last.Principal), "got %s", last.Principal)
	assert.True(t, last.RemainingBalance.IsZero())
}

func TestAmortizationScheduleZeroRateNoEmptyPayments(t *testing.T) {
	tests := []struct {
		name string
		loan string
		term int
	}{
		{"small loan", "200", 30},
		{"uneven split", "1000", 30},
		{"short term", "99.99", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := AmortizationSchedule(d(tt.loan), d("0"), tt.term)
			require.NoError(t, err)
			require.Len(t, schedule, tt.term*12)

			total := decimal.Zero
			for _, row := range schedule {
				assert.True(t, row.Payment.IsPositive(), "payment %d is %s", row.PaymentNumber, row.Payment)
				total = total.Add(row.Principal)
			}
			assert.True(t, d(tt.loan).Equal(total), "principal sum %s", total)
			assert.True(t, schedule[len(schedule)-1].RemainingBalance.IsZero())
		})
	}
}

func TestAmortizationScheduleFirstPaymentSplit(t *testing.T) {
	schedule, err := AmortizationSchedule(d("148000"), d("7.0"), 30)
	require.NoError(t, err)

	first := schedule[0]
	assert.True(t, d("863.33").Equal(first.Interest), "got %s", first.Interest)
	assert.True(t, d("121.32").Equal(first.Principal), "got %s", first.Principal)
	assert.True(t, d("147878.68").Equal(first.RemainingBalance), "got %s", first.RemainingBalance)
}

func TestAmortizationScheduleEmptyForNoLoan(t *testing.T) {
	schedule, err := AmortizationSchedule(d("0"), d("5"), 30)
	require.NoError(t, err)
	assert.Empty(t, schedule)

	schedule, err = AmortizationSchedule(d("-10"), d("5"), 30)
	require.NoError(t, err)
	assert.Empty(t, schedule)
}

func TestRemainingBalance(t *testing.T) {
	loan := d("100000")

	got, err := RemainingBalance(loan, d("6"), 30, 0)
	require.NoError(t, err)
	assert.True(t, loan.Equal(got))

	got, err = RemainingBalance(loan, d("6"), 30, 30)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = RemainingBalance(loan, d("6"), 30, 40)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = RemainingBalance(loan, d("6"), 30, 5)
	require.NoError(t, err)
	f, _ := got.Float64()
	assert.InDelta(t, 93054, f, 5)

	got, err = RemainingBalance(d("12000"), d("0"), 10, 5)
	require.NoError(t, err)
	assert.True(t, d("6000").Equal(got), "got %s", got)
}

func TestIRR(t *testing.T) {
	tests := []struct {
		name     string
		flows    []string
		expected float64
	}{
		{name: "single period", flows: []string{"-100", "110"}, expected: 0.10},
		{name: "bond-like", flows: []string{"-1000", "100", "100", "100", "100", "1100"}, expected: 0.10},
		{name: "two equal receipts", flows: []string{"-100", "60", "60"}, expected: 0.1307},
		{name: "loss", flows: []string{"-1000", "100", "100", "500"}, expected: -0.1279},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flows := make([]decimal.Decimal, len(tt.flows))
			for i, s := range tt.flows {
				flows[i] = d(s)
			}
			got, err := IRR(flows)
			require.NoError(t, err)
			f, _ := got.Float64()
			assert.InDelta(t, tt.expected, f, 0.0005)
			assert.LessOrEqual(t, -got.Exponent(), RatePlaces)
		})
	}
}

func TestIRRErrors(t *testing.T) {
	_, err := IRR([]decimal.Decimal{d("-100")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = IRR([]decimal.Decimal{d("100"), d("100")})
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, "0.13", RoundMoney(d("0.125")).String())
	assert.Equal(t, "-0.13", RoundMoney(d("-0.125")).String())
	assert.Equal(t, "0.0739", RoundRate(d("0.073945")).String())
}

func TestPowInt(t *testing.T) {
	assert.True(t, d("1.21").Equal(PowInt(d("1.1"), 2)))
	assert.True(t, one.Equal(PowInt(d("1.07"), 0)))
	assert.True(t, d("1.157625").Equal(PowInt(d("1.05"), 3)))
}
