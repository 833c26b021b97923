package ingest

import (
	"github.com/shopspring/decimal"
)

// payload is a decoded provider response. Top-level arrays are wrapped
// under "items".
type payload map[string]interface{}

// Property holds the normalized attributes of a property lookup.
type Property struct {
	Address       string           `json:"address"`
	City          string           `json:"city,omitempty"`
	State         string           `json:"state,omitempty"`
	ZipCode       string           `json:"zip_code,omitempty"`
	County        string           `json:"county,omitempty"`
	PropertyType  string           `json:"property_type,omitempty"`
	NumUnits      *int             `json:"num_units,omitempty"`
	Bedrooms      *int             `json:"bedrooms,omitempty"`
	Bathrooms     *decimal.Decimal `json:"bathrooms,omitempty"`
	SquareFootage *int             `json:"square_footage,omitempty"`
	LotSize       *int             `json:"lot_size,omitempty"`
	YearBuilt     *int             `json:"year_built,omitempty"`
	RentcastID    string           `json:"rentcast_id,omitempty"`
}

// RentEstimate is a long-term monthly rent valuation.
type RentEstimate struct {
	Monthly    *decimal.Decimal `json:"rent_estimate_monthly"`
	Low        *decimal.Decimal `json:"rent_estimate_low"`
	High       *decimal.Decimal `json:"rent_estimate_high"`
	Confidence *decimal.Decimal `json:"rent_estimate_confidence"`
}

// ValueEstimate is an automated market value.
type ValueEstimate struct {
	Value      *decimal.Decimal `json:"estimated_value"`
	Low        *decimal.Decimal `json:"estimated_value_low"`
	High       *decimal.Decimal `json:"estimated_value_high"`
	Confidence *decimal.Decimal `json:"value_estimate_confidence"`
}

// RentalComp is one comparable rental listing.
type RentalComp struct {
	Address       string           `json:"address"`
	City          string           `json:"city,omitempty"`
	State         string           `json:"state,omitempty"`
	ZipCode       string           `json:"zip_code,omitempty"`
	PropertyType  string           `json:"property_type,omitempty"`
	Bedrooms      *int             `json:"bedrooms,omitempty"`
	Bathrooms     *decimal.Decimal `json:"bathrooms,omitempty"`
	SquareFootage *int             `json:"square_footage,omitempty"`
	Rent          *decimal.Decimal `json:"rent"`
	DistanceMiles *decimal.Decimal `json:"distance_miles,omitempty"`
}

// MarketStats are zip-level market figures. Percentages are in percent.
type MarketStats struct {
	ZipCode             string           `json:"zip_code"`
	City                string           `json:"city,omitempty"`
	State               string           `json:"state,omitempty"`
	MedianHomeValue     *decimal.Decimal `json:"median_home_value"`
	MedianRent          *decimal.Decimal `json:"median_rent"`
	AvgVacancyRatePct   *decimal.Decimal `json:"avg_vacancy_rate"`
	YoYAppreciationPct  *decimal.Decimal `json:"yoy_appreciation_pct"`
	PopulationGrowthPct *decimal.Decimal `json:"population_growth_pct"`
	RentToPriceRatio    *decimal.Decimal `json:"rent_to_price_ratio"`
}
