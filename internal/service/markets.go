package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mauv0809/dealscope/internal/finance"
	"github.com/mauv0809/dealscope/internal/ingest"
	"github.com/mauv0809/dealscope/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	MinCompareZips = 2
	MaxCompareZips = 5
	MaxIngestZips  = 50

	ingestConcurrency = 4

	sourceRentcast = "rentcast"
)

// MarketProvider supplies live zip-level statistics.
type MarketProvider interface {
	MarketStats(ctx context.Context, zip string) (ingest.MarketStats, error)
}

// MarketStore persists market snapshots.
type MarketStore interface {
	UpsertMarketSnapshot(ctx context.Context, s *models.MarketSnapshot) error
	UpsertMarketSnapshots(ctx context.Context, snaps []*models.MarketSnapshot) (int, error)
	LatestMarketSnapshot(ctx context.Context, zip string) (models.MarketSnapshot, error)
	LatestMarketSnapshots(ctx context.Context, zips []string) ([]models.MarketSnapshot, error)
	MarketHistory(ctx context.Context, zip string) ([]models.MarketSnapshot, error)
}

// MarketComparator serves market snapshots, preferring live data and
// falling back to what is stored.
type MarketComparator struct {
	provider MarketProvider
	store    MarketStore
	log      *logrus.Logger
	now      func() time.Time
}

// NewMarketComparator creates a comparator. now defaults to time.Now.
func NewMarketComparator(provider MarketProvider, store MarketStore, log *logrus.Logger, now func() time.Time) *MarketComparator {
	if now == nil {
		now = time.Now
	}
	return &MarketComparator{provider: provider, store: store, log: log, now: now}
}

// Snapshot fetches live statistics, stores them as today's snapshot and
// returns it. When the provider fails the latest stored snapshot is
// returned; with nothing stored the error is db.ErrNotFound. A failed store
// write is logged and the live data is still returned.
func (m *MarketComparator) Snapshot(ctx context.Context, zip string) (models.MarketSnapshot, error) {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return models.MarketSnapshot{}, fmt.Errorf("%w: zip code is required", finance.ErrInvalidInput)
	}

	stats, err := m.provider.MarketStats(ctx, zip)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"zip_code": zip,
			"error":    err.Error(),
		}).Warn("live market lookup failed, falling back to stored snapshot")
		return m.store.LatestMarketSnapshot(ctx, zip)
	}

	snap := m.fromStats(zip, stats)
	if err := m.store.UpsertMarketSnapshot(ctx, &snap); err != nil {
		m.log.WithFields(logrus.Fields{
			"zip_code": zip,
			"error":    err.Error(),
		}).Error("storing market snapshot failed, returning live data")
	}

	return snap, nil
}

func (m *MarketComparator) fromStats(zip string, stats ingest.MarketStats) models.MarketSnapshot {
	return models.MarketSnapshot{
		ZipCode:             zip,
		City:                stats.City,
		State:               stats.State,
		SnapshotDate:        today(m.now()),
		MedianHomeValue:     stats.MedianHomeValue,
		MedianRent:          stats.MedianRent,
		AvgVacancyRatePct:   stats.AvgVacancyRatePct,
		YoYAppreciationPct:  stats.YoYAppreciationPct,
		PopulationGrowthPct: stats.PopulationGrowthPct,
		RentToPriceRatio:    stats.RentToPriceRatio,
		DataSource:          sourceRentcast,
	}
}

// IngestResult summarizes a bulk market ingestion.
type IngestResult struct {
	Requested int      `json:"requested"`
	Ingested  int      `json:"ingested"`
	Skipped   []string `json:"skipped,omitempty"`
}

// Ingest fetches live statistics for each zip and stores them as today's
// snapshots in one batch. Zips the provider cannot answer are skipped; a
// missing API key or exhausted quota aborts the run before anything is
// stored.
func (m *MarketComparator) Ingest(ctx context.Context, zips []string) (IngestResult, error) {
	unique := uniqueZips(zips)
	if len(unique) == 0 {
		return IngestResult{}, fmt.Errorf("%w: at least one zip code is required", finance.ErrInvalidInput)
	}
	if len(unique) > MaxIngestZips {
		return IngestResult{}, fmt.Errorf("%w: at most %d zip codes are allowed per ingestion", finance.ErrInvalidInput, MaxIngestZips)
	}

	var (
		mu      sync.Mutex
		skipped []string
	)
	fetched := make([]*models.MarketSnapshot, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)
	for i, zip := range unique {
		i, zip := i, zip
		g.Go(func() error {
			stats, err := m.provider.MarketStats(gctx, zip)
			if errors.Is(err, ingest.ErrMissingAPIKey) || errors.Is(err, ingest.ErrQuotaExhausted) {
				return err
			}
			if err != nil {
				m.log.WithFields(logrus.Fields{
					"zip_code": zip,
					"error":    err.Error(),
				}).Warn("skipping zip during market ingestion")
				mu.Lock()
				skipped = append(skipped, zip)
				mu.Unlock()
				return nil
			}
			snap := m.fromStats(zip, stats)
			fetched[i] = &snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IngestResult{}, err
	}

	snaps := make([]*models.MarketSnapshot, 0, len(fetched))
	for _, s := range fetched {
		if s != nil {
			snaps = append(snaps, s)
		}
	}

	count, err := m.store.UpsertMarketSnapshots(ctx, snaps)
	if err != nil {
		return IngestResult{}, fmt.Errorf("storing market snapshots: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"requested": len(unique),
		"ingested":  count,
		"skipped":   len(skipped),
	}).Info("market ingestion complete")
	return IngestResult{Requested: len(unique), Ingested: count, Skipped: skipped}, nil
}

// History returns every stored snapshot of a zip, newest first.
func (m *MarketComparator) History(ctx context.Context, zip string) ([]models.MarketSnapshot, error) {
	return m.store.MarketHistory(ctx, strings.TrimSpace(zip))
}

// Compare returns the latest stored snapshot of each zip that has one.
// Between two and five distinct zips are accepted.
func (m *MarketComparator) Compare(ctx context.Context, zips []string) ([]models.MarketSnapshot, error) {
	unique := uniqueZips(zips)
	if len(unique) < MinCompareZips {
		return nil, fmt.Errorf("%w: at least %d zip codes are required for comparison", finance.ErrInvalidInput, MinCompareZips)
	}
	if len(unique) > MaxCompareZips {
		return nil, fmt.Errorf("%w: at most %d zip codes are allowed per comparison", finance.ErrInvalidInput, MaxCompareZips)
	}

	return m.store.LatestMarketSnapshots(ctx, unique)
}

// uniqueZips trims zips and drops blanks and repeats, keeping order.
func uniqueZips(zips []string) []string {
	seen := make(map[string]bool, len(zips))
	unique := make([]string, 0, len(zips))
	for _, z := range zips {
		z = strings.TrimSpace(z)
		if z == "" || seen[z] {
			continue
		}
		seen[z] = true
		unique = append(unique, z)
	}
	return unique
}

func today(now time.Time) time.Time {
	y, mo, d := now.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
