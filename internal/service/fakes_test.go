package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mauv0809/dealscope/internal/db"
	"github.com/mauv0809/dealscope/internal/deal"
	"github.com/mauv0809/dealscope/internal/ingest"
	"github.com/mauv0809/dealscope/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func intPtr(v int) *int {
	return &v
}

func assertDecimal(t *testing.T, expected string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(got), "expected %s, got %s", expected, got)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func fixedClock() time.Time {
	return time.Date(2026, time.June, 1, 15, 30, 0, 0, time.UTC)
}

func duplexInputs() deal.Inputs {
	return deal.Inputs{
		PurchasePrice:      dec("185000"),
		ClosingCosts:       ptr("5550"),
		DownPaymentPct:     ptr("20"),
		LoanAmount:         ptr("148000"),
		InterestRate:       ptr("7.0"),
		LoanTermYears:      intPtr(30),
		GrossMonthlyRent:   dec("1800"),
		VacancyRatePct:     ptr("5"),
		PropertyTaxMonthly: ptr("280"),
		InsuranceMonthly:   ptr("120"),
		MaintenanceRatePct: ptr("5"),
		ManagementFeePct:   ptr("10"),
	}
}

// memStore is an in-memory DealStore, PropertyStore and MarketStore.
type memStore struct {
	mu         sync.Mutex
	deals      map[uuid.UUID]models.Deal
	properties map[uuid.UUID]models.Property
	snapshots  []models.MarketSnapshot
	nextID     int64
	failWith   error
}

func newMemStore() *memStore {
	return &memStore{
		deals:      make(map[uuid.UUID]models.Deal),
		properties: make(map[uuid.UUID]models.Property),
	}
}

func (s *memStore) CreateDeal(_ context.Context, d *models.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	d.CreatedAt = fixedClock()
	d.UpdatedAt = d.CreatedAt
	s.deals[d.ID] = *d
	return nil
}

func (s *memStore) GetDeal(_ context.Context, id uuid.UUID) (models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok {
		return models.Deal{}, fmt.Errorf("deal: %w", db.ErrNotFound)
	}
	return d, nil
}

func (s *memStore) ListDeals(_ context.Context, f db.DealFilter) ([]models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Deal{}
	for _, d := range s.deals {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		out = append(out, d)
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) UpdateDeal(_ context.Context, d *models.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deals[d.ID]; !ok {
		return fmt.Errorf("deal: %w", db.ErrNotFound)
	}
	s.deals[d.ID] = *d
	return nil
}

func (s *memStore) DeleteDeal(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deals[id]; !ok {
		return fmt.Errorf("deal: %w", db.ErrNotFound)
	}
	delete(s.deals, id)
	return nil
}

func (s *memStore) CreateProperty(_ context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = *p
	return nil
}

func (s *memStore) GetProperty(_ context.Context, id uuid.UUID) (models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[id]
	if !ok {
		return models.Property{}, fmt.Errorf("property: %w", db.ErrNotFound)
	}
	return p, nil
}

func (s *memStore) ListProperties(_ context.Context, limit, offset int) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Property{}
	for _, p := range s.properties {
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) UpdateProperty(_ context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[p.ID]; !ok {
		return fmt.Errorf("property: %w", db.ErrNotFound)
	}
	s.properties[p.ID] = *p
	return nil
}

// DeleteProperty cascades to the property's deals like the foreign key does.
func (s *memStore) DeleteProperty(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[id]; !ok {
		return 0, fmt.Errorf("property: %w", db.ErrNotFound)
	}
	delete(s.properties, id)

	removed := 0
	for dealID, d := range s.deals {
		if d.PropertyID != nil && *d.PropertyID == id {
			delete(s.deals, dealID)
			removed++
		}
	}
	return removed, nil
}

func (s *memStore) ZipConcentration(_ context.Context, zip string, exclude uuid.UUID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inZip, total := 0, 0
	for id, d := range s.deals {
		if id == exclude {
			continue
		}
		total++
		if d.ZipCode == zip {
			inZip++
		}
	}
	return inZip, total, nil
}

func (s *memStore) UpsertMarketSnapshot(_ context.Context, snap *models.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	for i, existing := range s.snapshots {
		if existing.ZipCode == snap.ZipCode && existing.SnapshotDate.Equal(snap.SnapshotDate) && existing.DataSource == snap.DataSource {
			snap.ID = existing.ID
			s.snapshots[i] = *snap
			return nil
		}
	}
	s.nextID++
	snap.ID = s.nextID
	s.snapshots = append(s.snapshots, *snap)
	return nil
}

func (s *memStore) UpsertMarketSnapshots(ctx context.Context, snaps []*models.MarketSnapshot) (int, error) {
	for i, snap := range snaps {
		if err := s.UpsertMarketSnapshot(ctx, snap); err != nil {
			return i, err
		}
	}
	return len(snaps), nil
}

func (s *memStore) LatestMarketSnapshot(_ context.Context, zip string) (models.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		latest models.MarketSnapshot
		found  bool
	)
	for _, snap := range s.snapshots {
		if snap.ZipCode == zip && (!found || snap.SnapshotDate.After(latest.SnapshotDate)) {
			latest, found = snap, true
		}
	}
	if !found {
		return models.MarketSnapshot{}, fmt.Errorf("market snapshot: %w", db.ErrNotFound)
	}
	return latest, nil
}

func (s *memStore) LatestMarketSnapshots(ctx context.Context, zips []string) ([]models.MarketSnapshot, error) {
	out := []models.MarketSnapshot{}
	for _, zip := range zips {
		snap, err := s.LatestMarketSnapshot(ctx, zip)
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *memStore) MarketHistory(_ context.Context, zip string) ([]models.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.MarketSnapshot{}
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].ZipCode == zip {
			out = append(out, s.snapshots[i])
		}
	}
	return out, nil
}

// fakeProvider answers provider calls from fixed values.
type fakeProvider struct {
	property ingest.Property
	rent     ingest.RentEstimate
	value    ingest.ValueEstimate
	comps    []ingest.RentalComp
	stats    ingest.MarketStats

	propertyErr error
	rentErr     error
	valueErr    error
	statsErr    error

	statsErrByZip map[string]error

	mu          sync.Mutex
	compsRadius float64
}

func (f *fakeProvider) LookupProperty(context.Context, string) (ingest.Property, error) {
	return f.property, f.propertyErr
}

func (f *fakeProvider) RentEstimate(context.Context, string) (ingest.RentEstimate, error) {
	return f.rent, f.rentErr
}

func (f *fakeProvider) ValueEstimate(context.Context, string) (ingest.ValueEstimate, error) {
	return f.value, f.valueErr
}

func (f *fakeProvider) RentalComps(_ context.Context, _ string, radius float64) ([]ingest.RentalComp, error) {
	f.mu.Lock()
	f.compsRadius = radius
	f.mu.Unlock()
	return f.comps, nil
}

func (f *fakeProvider) MarketStats(_ context.Context, zip string) (ingest.MarketStats, error) {
	if err, ok := f.statsErrByZip[zip]; ok {
		return ingest.MarketStats{}, err
	}
	return f.stats, f.statsErr
}
