package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/mauv0809/dealscope/internal/ingest"
	"github.com/mauv0809/dealscope/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultCompsRadiusMiles = 1.0

// PropertyProvider supplies address-keyed property data.
type PropertyProvider interface {
	LookupProperty(ctx context.Context, address string) (ingest.Property, error)
	RentEstimate(ctx context.Context, address string) (ingest.RentEstimate, error)
	ValueEstimate(ctx context.Context, address string) (ingest.ValueEstimate, error)
	RentalComps(ctx context.Context, address string, radius float64) ([]ingest.RentalComp, error)
}

// PropertyStore persists properties.
type PropertyStore interface {
	CreateProperty(ctx context.Context, p *models.Property) error
	GetProperty(ctx context.Context, id uuid.UUID) (models.Property, error)
	ListProperties(ctx context.Context, limit, offset int) ([]models.Property, error)
	UpdateProperty(ctx context.Context, p *models.Property) error
	DeleteProperty(ctx context.Context, id uuid.UUID) (int, error)
}

// PropertyUpdate is a partial update. Nil fields are left unchanged.
type PropertyUpdate struct {
	Address       *string          `json:"address,omitempty"`
	City          *string          `json:"city,omitempty"`
	State         *string          `json:"state,omitempty"`
	ZipCode       *string          `json:"zip_code,omitempty"`
	County        *string          `json:"county,omitempty"`
	PropertyType  *string          `json:"property_type,omitempty"`
	NumUnits      *int             `json:"num_units,omitempty"`
	Bedrooms      *int             `json:"bedrooms,omitempty"`
	Bathrooms     *decimal.Decimal `json:"bathrooms,omitempty"`
	SquareFootage *int             `json:"square_footage,omitempty"`
	LotSize       *int             `json:"lot_size,omitempty"`
	YearBuilt     *int             `json:"year_built,omitempty"`
}

func (u PropertyUpdate) apply(p *models.Property) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&p.Address, u.Address)
	setString(&p.City, u.City)
	setString(&p.State, u.State)
	setString(&p.ZipCode, u.ZipCode)
	setString(&p.County, u.County)
	setString(&p.PropertyType, u.PropertyType)

	if u.NumUnits != nil {
		p.NumUnits = u.NumUnits
	}
	if u.Bedrooms != nil {
		p.Bedrooms = u.Bedrooms
	}
	if u.Bathrooms != nil {
		p.Bathrooms = u.Bathrooms
	}
	if u.SquareFootage != nil {
		p.SquareFootage = u.SquareFootage
	}
	if u.LotSize != nil {
		p.LotSize = u.LotSize
	}
	if u.YearBuilt != nil {
		p.YearBuilt = u.YearBuilt
	}
}

// LookupResult merges the property record with its rent and value
// estimates.
type LookupResult struct {
	ingest.Property
	ingest.RentEstimate
	ingest.ValueEstimate
}

// PropertyService stores properties and looks them up at the provider.
type PropertyService struct {
	provider PropertyProvider
	store    PropertyStore
	log      *logrus.Logger
}

// NewPropertyService creates a property service.
func NewPropertyService(provider PropertyProvider, store PropertyStore, log *logrus.Logger) *PropertyService {
	return &PropertyService{provider: provider, store: store, log: log}
}

// Create validates and stores a property.
func (s *PropertyService) Create(ctx context.Context, p models.Property) (models.Property, error) {
	if err := validateProperty(&p); err != nil {
		return models.Property{}, err
	}

	p.ID = uuid.New()
	if err := s.store.CreateProperty(ctx, &p); err != nil {
		return models.Property{}, err
	}
	return p, nil
}

// Update applies a partial update to a stored property.
func (s *PropertyService) Update(ctx context.Context, id uuid.UUID, u PropertyUpdate) (models.Property, error) {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return models.Property{}, err
	}

	u.apply(&p)
	if err := validateProperty(&p); err != nil {
		return models.Property{}, err
	}

	if err := s.store.UpdateProperty(ctx, &p); err != nil {
		return models.Property{}, err
	}
	return p, nil
}

// Delete removes a property together with its deals.
func (s *PropertyService) Delete(ctx context.Context, id uuid.UUID) error {
	deals, err := s.store.DeleteProperty(ctx, id)
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"property_id":   id,
		"deals_removed": deals,
	}).Info("property deleted")
	return nil
}

// SampleData returns a fixed lookup result for demos without provider
// calls.
func (s *PropertyService) SampleData() LookupResult {
	return sampleLookup()
}

func validateProperty(p *models.Property) error {
	p.Address = strings.TrimSpace(p.Address)
	p.ZipCode = strings.TrimSpace(p.ZipCode)
	switch {
	case p.Address == "":
		return fmt.Errorf("%w: address is required", finance.ErrInvalidInput)
	case p.ZipCode == "":
		return fmt.Errorf("%w: zip_code is required", finance.ErrInvalidInput)
	case p.YearBuilt != nil && *p.YearBuilt < 0:
		return fmt.Errorf("%w: year_built must be >= 0", finance.ErrInvalidInput)
	case p.NumUnits != nil && *p.NumUnits < 1:
		return fmt.Errorf("%w: num_units must be >= 1", finance.ErrInvalidInput)
	case p.SquareFootage != nil && *p.SquareFootage < 0:
		return fmt.Errorf("%w: square_footage must be >= 0", finance.ErrInvalidInput)
	case p.LotSize != nil && *p.LotSize < 0:
		return fmt.Errorf("%w: lot_size must be >= 0", finance.ErrInvalidInput)
	}
	return nil
}

func sampleLookup() LookupResult {
	units, beds, sqft, lot, year := 2, 5, 2330, 4356, 1900
	money := decimal.NewFromInt
	return LookupResult{
		Property: ingest.Property{
			Address:       "1515 N 7th St",
			City:          "Sheboygan",
			State:         "WI",
			ZipCode:       "53081",
			County:        "Sheboygan",
			PropertyType:  "duplex",
			NumUnits:      &units,
			Bedrooms:      &beds,
			Bathrooms:     decimalRef(decimal.NewFromInt(2)),
			SquareFootage: &sqft,
			LotSize:       &lot,
			YearBuilt:     &year,
			RentcastID:    "sample-rentcast-id-1515-n-7th",
		},
		RentEstimate: ingest.RentEstimate{
			Monthly:    decimalRef(money(1800)),
			Low:        decimalRef(money(1650)),
			High:       decimalRef(money(1950)),
			Confidence: decimalRef(decimal.RequireFromString("0.84")),
		},
		ValueEstimate: ingest.ValueEstimate{
			Value: decimalRef(money(220000)),
		},
	}
}

func decimalRef(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Get returns a stored property.
func (s *PropertyService) Get(ctx context.Context, id uuid.UUID) (models.Property, error) {
	return s.store.GetProperty(ctx, id)
}

// List returns stored properties, newest first.
func (s *PropertyService) List(ctx context.Context, limit, offset int) ([]models.Property, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return s.store.ListProperties(ctx, min(limit, MaxPageSize), max(offset, 0))
}

// Lookup fetches the property, rent and value for an address concurrently.
// A missing property fails the lookup; missing estimates are left empty.
func (s *PropertyService) Lookup(ctx context.Context, address string) (LookupResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return LookupResult{}, fmt.Errorf("%w: address is required", finance.ErrInvalidInput)
	}

	var res LookupResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.provider.LookupProperty(gctx, address)
		if err != nil {
			return err
		}
		res.Property = p
		return nil
	})
	g.Go(func() error {
		rent, err := s.provider.RentEstimate(gctx, address)
		if errors.Is(err, ingest.ErrPropertyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res.RentEstimate = rent
		return nil
	})
	g.Go(func() error {
		value, err := s.provider.ValueEstimate(gctx, address)
		if errors.Is(err, ingest.ErrPropertyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res.ValueEstimate = value
		return nil
	})

	if err := g.Wait(); err != nil {
		return LookupResult{}, err
	}

	if res.Address == "" {
		res.Address = address
	}

	s.log.WithFields(logrus.Fields{
		"zip_code":  res.ZipCode,
		"has_rent":  res.Monthly != nil,
		"has_value": res.Value != nil,
	}).Info("property lookup complete")
	return res, nil
}

// Comps returns rental comparables around an address. A non-positive
// radius uses DefaultCompsRadiusMiles.
func (s *PropertyService) Comps(ctx context.Context, address string, radius float64) ([]ingest.RentalComp, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: address is required", finance.ErrInvalidInput)
	}
	if radius <= 0 {
		radius = DefaultCompsRadiusMiles
	}
	return s.provider.RentalComps(ctx, address, radius)
}
