package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mauv0809/dealscope/internal/db"
	"github.com/mauv0809/dealscope/internal/deal"
	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/mauv0809/dealscope/internal/models"
	"github.com/mauv0809/dealscope/internal/projection"
	"github.com/mauv0809/dealscope/internal/risk"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	maxStatusLength = 20
	maxNameLength   = 100
)

// DealStore persists deals and supplies the context risk scoring needs.
type DealStore interface {
	CreateDeal(ctx context.Context, d *models.Deal) error
	GetDeal(ctx context.Context, id uuid.UUID) (models.Deal, error)
	ListDeals(ctx context.Context, f db.DealFilter) ([]models.Deal, error)
	UpdateDeal(ctx context.Context, d *models.Deal) error
	DeleteDeal(ctx context.Context, id uuid.UUID) error
	GetProperty(ctx context.Context, id uuid.UUID) (models.Property, error)
	LatestMarketSnapshot(ctx context.Context, zip string) (models.MarketSnapshot, error)
	ZipConcentration(ctx context.Context, zip string, exclude uuid.UUID) (inZip, total int, err error)
}

// DealRequest is the body of a create or update. The deal inputs are
// inlined.
type DealRequest struct {
	PropertyID   *uuid.UUID `json:"property_id,omitempty"`
	DealName     string     `json:"deal_name,omitempty"`
	Status       string     `json:"status,omitempty"`
	ZipCode      string     `json:"zip_code,omitempty"`
	DaysOnMarket *int       `json:"days_on_market,omitempty"`
	deal.Inputs
}

func (r DealRequest) validate() error {
	if len(r.DealName) > maxNameLength {
		return fmt.Errorf("%w: deal_name must be at most %d characters", finance.ErrInvalidInput, maxNameLength)
	}
	if len(r.Status) > maxStatusLength {
		return fmt.Errorf("%w: status must be at most %d characters", finance.ErrInvalidInput, maxStatusLength)
	}
	if r.DaysOnMarket != nil && *r.DaysOnMarket < 0 {
		return fmt.Errorf("%w: days_on_market must be >= 0", finance.ErrInvalidInput)
	}
	return nil
}

// DealService manages saved deals. Metrics and risk are recomputed in full
// on every save.
type DealService struct {
	store    DealStore
	analyzer *Analyzer
	log      *logrus.Logger
}

// NewDealService creates a deal service.
func NewDealService(store DealStore, analyzer *Analyzer, log *logrus.Logger) *DealService {
	return &DealService{store: store, analyzer: analyzer, log: log}
}

// Preview analyzes a deal without market or portfolio context and without
// saving it.
func (s *DealService) Preview(in deal.Inputs) (Analysis, error) {
	return s.analyzer.Analyze(in, RiskContext{})
}

// Create analyzes and stores a new deal.
func (s *DealService) Create(ctx context.Context, req DealRequest) (models.Deal, error) {
	d := models.Deal{ID: uuid.New(), Status: models.DefaultDealStatus}
	if err := s.apply(ctx, &d, req); err != nil {
		return models.Deal{}, err
	}

	if err := s.store.CreateDeal(ctx, &d); err != nil {
		return models.Deal{}, fmt.Errorf("creating deal: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"deal_id":    d.ID,
		"risk_score": d.RiskScore,
		"risk_label": d.RiskLabel,
	}).Info("deal created")
	return d, nil
}

// Get returns a stored deal.
func (s *DealService) Get(ctx context.Context, id uuid.UUID) (models.Deal, error) {
	return s.store.GetDeal(ctx, id)
}

// List returns stored deals. Limit is clamped to 1..MaxPageSize.
func (s *DealService) List(ctx context.Context, f db.DealFilter) ([]models.Deal, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	f.Limit = min(f.Limit, MaxPageSize)
	f.Offset = max(f.Offset, 0)
	return s.store.ListDeals(ctx, f)
}

// Update replaces a deal's inputs and recomputes metrics and risk. An
// empty status keeps the current one.
func (s *DealService) Update(ctx context.Context, id uuid.UUID, req DealRequest) (models.Deal, error) {
	d, err := s.store.GetDeal(ctx, id)
	if err != nil {
		return models.Deal{}, err
	}

	if err := s.apply(ctx, &d, req); err != nil {
		return models.Deal{}, err
	}

	if err := s.store.UpdateDeal(ctx, &d); err != nil {
		return models.Deal{}, err
	}

	s.log.WithFields(logrus.Fields{
		"deal_id":    d.ID,
		"risk_score": d.RiskScore,
	}).Info("deal updated")
	return d, nil
}

// Delete removes a stored deal.
func (s *DealService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteDeal(ctx, id); err != nil {
		return err
	}
	s.log.WithField("deal_id", id).Info("deal deleted")
	return nil
}

// Projections runs a projection over a stored deal's inputs.
func (s *DealService) Projections(ctx context.Context, id uuid.UUID, a projection.Assumptions) (projection.Result, error) {
	d, err := s.store.GetDeal(ctx, id)
	if err != nil {
		return projection.Result{}, err
	}
	return Project(d.Inputs, a)
}

// apply copies the request onto the deal, then recomputes metrics and
// risk with whatever context is stored.
func (s *DealService) apply(ctx context.Context, d *models.Deal, req DealRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	d.PropertyID = req.PropertyID
	d.DealName = strings.TrimSpace(req.DealName)
	if st := strings.TrimSpace(req.Status); st != "" {
		d.Status = st
	}
	d.ZipCode = strings.TrimSpace(req.ZipCode)
	d.DaysOnMarket = req.DaysOnMarket
	d.Inputs = req.Inputs

	rc := RiskContext{DaysOnMarket: d.DaysOnMarket}
	if d.PropertyID != nil {
		prop, err := s.store.GetProperty(ctx, *d.PropertyID)
		if err != nil {
			return err
		}
		rc.YearBuilt = prop.YearBuilt
		if d.ZipCode == "" {
			d.ZipCode = prop.ZipCode
		}
	}

	if d.ZipCode != "" {
		market, err := s.marketContext(ctx, d.ZipCode)
		if err != nil {
			return err
		}
		rc.Market = market

		portfolio, err := s.portfolioContext(ctx, d.ZipCode, d.ID)
		if err != nil {
			return err
		}
		rc.Portfolio = portfolio
	}

	analysis, err := s.analyzer.Analyze(d.Inputs, rc)
	if err != nil {
		return err
	}

	score := analysis.Risk.Score
	d.Metrics = analysis.Metrics
	d.RiskScore = &score
	d.RiskLabel = analysis.Risk.Label
	d.RiskFactors = analysis.Risk.Factors
	return nil
}

func (s *DealService) marketContext(ctx context.Context, zip string) (*risk.MarketData, error) {
	snap, err := s.store.LatestMarketSnapshot(ctx, zip)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading market context: %w", err)
	}
	return snap.MarketData(), nil
}

// portfolioContext returns the share of the portfolio, this deal included,
// that sits in zip. A deal with no other stored deals has no context.
func (s *DealService) portfolioContext(ctx context.Context, zip string, id uuid.UUID) (*risk.PortfolioData, error) {
	inZip, total, err := s.store.ZipConcentration(ctx, zip, id)
	if err != nil {
		return nil, fmt.Errorf("loading portfolio context: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	pct := finance.RoundRate(finance.Div(
		decimal.NewFromInt(int64(inZip+1)).Mul(hundred),
		decimal.NewFromInt(int64(total+1)),
	))
	return &risk.PortfolioData{PctInZip: &pct}, nil
}
