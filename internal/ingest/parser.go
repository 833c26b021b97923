package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// record is one JSON object from a provider response.
type record map[string]interface{}

// extractRecord picks the primary object out of the envelopes the provider
// uses: {"items": [...]}, {"data": [...] | {...}}, {"property": {...}} or a
// bare object.
func extractRecord(p payload) record {
	if items, ok := p["items"].([]interface{}); ok {
		return firstRecord(items)
	}
	if data, ok := p["data"]; ok {
		switch v := data.(type) {
		case []interface{}:
			return firstRecord(v)
		case map[string]interface{}:
			return v
		}
	}
	if prop, ok := p["property"].(map[string]interface{}); ok {
		return prop
	}
	return record(p)
}

func firstRecord(items []interface{}) record {
	if len(items) == 0 {
		return record{}
	}
	if m, ok := items[0].(map[string]interface{}); ok {
		return m
	}
	return record{}
}

// extractRecords returns every object of a list response.
func extractRecords(p payload) []record {
	var items []interface{}
	switch {
	case isList(p["items"]):
		items = p["items"].([]interface{})
	case isList(p["data"]):
		items = p["data"].([]interface{})
	default:
		return []record{record(p)}
	}

	out := make([]record, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func isList(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}

// getString returns the first non-empty value among the given keys.
func getString(r record, keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		default:
			s = fmt.Sprintf("%v", t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// getDecimal returns the first numeric value among the given keys.
func getDecimal(r record, keys ...string) *decimal.Decimal {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		var (
			d   decimal.Decimal
			err error
		)
		switch t := v.(type) {
		case json.Number:
			d, err = decimal.NewFromString(t.String())
		case float64:
			d = decimal.NewFromFloat(t)
		case string:
			d, err = decimal.NewFromString(strings.TrimSpace(t))
		default:
			continue
		}
		if err == nil {
			return &d
		}
	}
	return nil
}

// getInt returns the first integral value among the given keys. Fractions
// are truncated.
func getInt(r record, keys ...string) *int {
	d := getDecimal(r, keys...)
	if d == nil {
		return nil
	}
	n := int(d.IntPart())
	return &n
}

func normalizeProperty(p payload, fallbackAddress string) Property {
	r := extractRecord(p)
	prop := Property{
		Address:       getString(r, "addressLine1", "formattedAddress", "address"),
		City:          getString(r, "city"),
		State:         getState(r),
		ZipCode:       getString(r, "zipCode", "zip_code"),
		County:        getString(r, "county"),
		PropertyType:  getString(r, "propertyType", "property_type", "type"),
		NumUnits:      getInt(r, "numUnits", "units", "num_units"),
		Bedrooms:      getInt(r, "bedrooms"),
		Bathrooms:     getDecimal(r, "bathrooms"),
		SquareFootage: getInt(r, "squareFootage", "square_footage", "squareFeet"),
		LotSize:       getInt(r, "lotSize", "lot_size", "lotSizeSquareFeet"),
		YearBuilt:     getInt(r, "yearBuilt", "year_built"),
		RentcastID:    getString(r, "id", "propertyId", "rentcast_id"),
	}
	if prop.Address == "" {
		prop.Address = fallbackAddress
	}
	return prop
}

func normalizeRentEstimate(p payload) RentEstimate {
	r := extractRecord(p)
	return RentEstimate{
		Monthly:    getDecimal(r, "rent", "rentEstimate", "estimatedRent", "price", "rent_estimate_monthly"),
		Low:        getDecimal(r, "rentRangeLow", "rentLow", "low", "rent_estimate_low"),
		High:       getDecimal(r, "rentRangeHigh", "rentHigh", "high", "rent_estimate_high"),
		Confidence: getDecimal(r, "confidence", "confidenceScore", "rent_estimate_confidence"),
	}
}

func normalizeValueEstimate(p payload) ValueEstimate {
	r := extractRecord(p)
	return ValueEstimate{
		Value:      getDecimal(r, "value", "price", "estimate", "estimated_value"),
		Low:        getDecimal(r, "valueRangeLow", "low", "estimated_value_low"),
		High:       getDecimal(r, "valueRangeHigh", "high", "estimated_value_high"),
		Confidence: getDecimal(r, "confidence", "confidenceScore", "value_estimate_confidence"),
	}
}

func normalizeRentalComps(p payload) []RentalComp {
	records := extractRecords(p)
	comps := make([]RentalComp, 0, len(records))
	for _, r := range records {
		comps = append(comps, RentalComp{
			Address:       getString(r, "addressLine1", "formattedAddress", "address"),
			City:          getString(r, "city"),
			State:         getState(r),
			ZipCode:       getString(r, "zipCode", "zip_code"),
			PropertyType:  getString(r, "propertyType", "property_type"),
			Bedrooms:      getInt(r, "bedrooms"),
			Bathrooms:     getDecimal(r, "bathrooms"),
			SquareFootage: getInt(r, "squareFootage", "square_footage"),
			Rent:          getDecimal(r, "rent", "price"),
			DistanceMiles: getDecimal(r, "distance", "distanceMiles"),
		})
	}
	return comps
}

func normalizeMarketStats(p payload, fallbackZip string) MarketStats {
	r := extractRecord(p)
	stats := MarketStats{
		ZipCode:             getString(r, "zipCode", "zip_code"),
		City:                getString(r, "city"),
		State:               getState(r),
		MedianHomeValue:     getDecimal(r, "medianHomeValue", "median_home_value"),
		MedianRent:          getDecimal(r, "medianRent", "median_rent"),
		AvgVacancyRatePct:   getDecimal(r, "vacancyRate", "avg_vacancy_rate"),
		YoYAppreciationPct:  getDecimal(r, "yoyAppreciationPct", "yoy_appreciation_pct"),
		PopulationGrowthPct: getDecimal(r, "populationGrowthPct", "population_growth_pct"),
		RentToPriceRatio:    getDecimal(r, "rentToPriceRatio", "rent_to_price_ratio"),
	}
	if stats.ZipCode == "" {
		stats.ZipCode = fallbackZip
	}
	return stats
}

// stateCodes maps full US state names to their postal codes.
var stateCodes = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"district of columbia": "DC", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME",
	"maryland": "MD", "massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT", "nebraska": "NE",
	"nevada": "NV", "new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM",
	"new york": "NY", "north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA", "rhode island": "RI",
	"south carolina": "SC", "south dakota": "SD", "tennessee": "TN", "texas": "TX",
	"utah": "UT", "vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY", "puerto rico": "PR",
}

// maxStateLength is the width of the state columns.
const maxStateLength = 32

// getState returns the postal code for the record's state. Two-letter
// values are upper-cased, full names are mapped and anything else is
// trimmed to fit storage.
func getState(r record) string {
	s := strings.TrimSpace(getString(r, "state", "stateCode", "state_code"))
	if len(s) == 2 {
		return strings.ToUpper(s)
	}
	if code, ok := stateCodes[strings.ToLower(s)]; ok {
		return code
	}
	if len(s) > maxStateLength {
		s = s[:maxStateLength]
	}
	return s
}
