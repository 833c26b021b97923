package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mauv0809/dealscope/internal/deal"
	"github.com/mauv0809/dealscope/internal/risk"
	"github.com/shopspring/decimal"
)

const DefaultDealStatus = "draft"

type Property struct {
	ID            uuid.UUID        `json:"id"`
	Address       string           `json:"address"`
	City          string           `json:"city,omitempty"`
	State         string           `json:"state,omitempty"`
	ZipCode       string           `json:"zip_code"`
	County        string           `json:"county,omitempty"`
	PropertyType  string           `json:"property_type,omitempty"`
	NumUnits      *int             `json:"num_units,omitempty"`
	Bedrooms      *int             `json:"bedrooms,omitempty"`
	Bathrooms     *decimal.Decimal `json:"bathrooms,omitempty"`
	SquareFootage *int             `json:"square_footage,omitempty"`
	LotSize       *int             `json:"lot_size,omitempty"`
	YearBuilt     *int             `json:"year_built,omitempty"`
	RentcastID    string           `json:"rentcast_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Deal is a saved analysis. Metrics and risk are recomputed on every save.
type Deal struct {
	ID           uuid.UUID    `json:"id"`
	PropertyID   *uuid.UUID   `json:"property_id,omitempty"`
	DealName     string       `json:"deal_name,omitempty"`
	Status       string       `json:"status"`
	ZipCode      string       `json:"zip_code,omitempty"`
	DaysOnMarket *int         `json:"days_on_market,omitempty"`
	Inputs       deal.Inputs  `json:"inputs"`
	Metrics      deal.Metrics `json:"metrics"`

	RiskScore   *decimal.Decimal `json:"risk_score"`
	RiskLabel   string           `json:"risk_label,omitempty"`
	RiskFactors []risk.Factor    `json:"risk_factors,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarketSnapshot is one day of zip-level market figures from a source.
type MarketSnapshot struct {
	ID                  int64            `json:"id"`
	ZipCode             string           `json:"zip_code"`
	City                string           `json:"city,omitempty"`
	State               string           `json:"state,omitempty"`
	SnapshotDate        time.Time        `json:"snapshot_date"`
	MedianHomeValue     *decimal.Decimal `json:"median_home_value"`
	MedianRent          *decimal.Decimal `json:"median_rent"`
	AvgVacancyRatePct   *decimal.Decimal `json:"avg_vacancy_rate"`
	YoYAppreciationPct  *decimal.Decimal `json:"yoy_appreciation_pct"`
	PopulationGrowthPct *decimal.Decimal `json:"population_growth_pct"`
	RentToPriceRatio    *decimal.Decimal `json:"rent_to_price_ratio"`
	DataSource          string           `json:"data_source"`
	CreatedAt           time.Time        `json:"created_at"`
}

// MarketData returns the fields the risk engine reads.
func (s MarketSnapshot) MarketData() *risk.MarketData {
	return &risk.MarketData{
		AvgVacancyRatePct:   s.AvgVacancyRatePct,
		YoYAppreciationPct:  s.YoYAppreciationPct,
		PopulationGrowthPct: s.PopulationGrowthPct,
	}
}
