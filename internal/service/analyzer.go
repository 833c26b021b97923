package service

import (
	"time"

	"github.com/mauv0809/dealscope/internal/deal"
	"github.com/mauv0809/dealscope/internal/projection"
	"github.com/mauv0809/dealscope/internal/risk"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RiskContext is the optional information beyond the deal inputs that the
// risk engine can use.
type RiskContext struct {
	YearBuilt    *int
	DaysOnMarket *int
	Market       *risk.MarketData
	Portfolio    *risk.PortfolioData
}

// Analysis is a deal's metrics and risk score.
type Analysis struct {
	Metrics deal.Metrics `json:"metrics"`
	Risk    risk.Result  `json:"risk"`
}

// Analyzer runs the calculator and then the risk engine over its output.
type Analyzer struct {
	engine *risk.Engine
}

// NewAnalyzer creates an analyzer whose property-age factor reads now.
func NewAnalyzer(now func() time.Time) *Analyzer {
	return &Analyzer{engine: risk.NewEngine(now)}
}

// Analyze computes metrics and scores the deal.
func (a *Analyzer) Analyze(in deal.Inputs, rc RiskContext) (Analysis, error) {
	m, err := deal.CalculateAll(in)
	if err != nil {
		return Analysis{}, err
	}

	res := a.engine.CalculateRiskScore(RiskSnapshot(in, m, rc), rc.Market, rc.Portfolio)
	return Analysis{Metrics: m, Risk: res}, nil
}

// RiskSnapshot converts inputs and metrics into the risk engine's view.
// Cash-on-cash is a fraction in the metrics and a percentage for scoring.
func RiskSnapshot(in deal.Inputs, m deal.Metrics, rc RiskContext) risk.DealSnapshot {
	snap := risk.DealSnapshot{
		PurchasePrice:      in.PurchasePrice,
		LoanAmount:         m.LoanAmount,
		GrossMonthlyRent:   in.GrossMonthlyRent,
		OtherMonthlyIncome: in.OtherIncome(),
		VacancyRatePct:     in.VacancyPct(),
		NOI:                m.NOI,
		DSCR:               m.DSCR,
		YearBuilt:          rc.YearBuilt,
		DaysOnMarket:       rc.DaysOnMarket,
	}
	if m.CashOnCash != nil {
		pct := m.CashOnCash.Mul(hundred)
		snap.CashOnCashPct = &pct
	}
	return snap
}

// ProjectionTerms resolves the year-1 figures a projection starts from.
// Other income grows with rent; vacancy loss grows with expenses.
func ProjectionTerms(in deal.Inputs, m deal.Metrics) projection.Terms {
	return projection.Terms{
		PurchasePrice:       in.PurchasePrice,
		LoanAmount:          m.LoanAmount,
		InterestRate:        in.Rate(),
		LoanTermYears:       in.TermYears(),
		MonthlyMortgage:     m.MonthlyMortgage,
		GrossMonthlyRent:    in.GrossMonthlyRent.Add(in.OtherIncome()),
		BaseMonthlyExpenses: m.VacancyLoss.Add(m.OperatingExpenses),
		TotalCashInvested:   m.TotalCashInvested,
	}
}

// Project runs a projection over deal inputs.
func Project(in deal.Inputs, a projection.Assumptions) (projection.Result, error) {
	if err := a.Validate(); err != nil {
		return projection.Result{}, err
	}

	m, err := deal.CalculateAll(in)
	if err != nil {
		return projection.Result{}, err
	}

	return projection.ComputeYearly(ProjectionTerms(in, m), a)
}
