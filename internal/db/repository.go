package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mauv0809/dealscope/internal/models"
	"github.com/shopspring/decimal"
)

// Repository handles database operations for properties, deals and market
// snapshots.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// DealFilter narrows ListDeals. Zero values match everything.
type DealFilter struct {
	Status     string
	PropertyID *uuid.UUID
	Limit      int
	Offset     int
}

type rowScanner interface {
	Scan(dest ...any) error
}

const propertyColumns = `id, address, city, state, zip_code, county, property_type,
	num_units, bedrooms, bathrooms, square_footage, lot_size, year_built,
	rentcast_id, created_at, updated_at`

const dealColumns = `id, property_id, deal_name, status, zip_code, days_on_market,
	inputs, metrics, risk_score, risk_label, risk_factors, created_at, updated_at`

const snapshotColumns = `id, zip_code, city, state, snapshot_date, median_home_value,
	median_rent, avg_vacancy_rate, yoy_appreciation_pct, population_growth_pct,
	rent_to_price_ratio, data_source, created_at`

// CreateProperty inserts a property, assigning its id and timestamps.
func (r *Repository) CreateProperty(ctx context.Context, p *models.Property) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO properties (
			id, address, city, state, zip_code, county, property_type,
			num_units, bedrooms, bathrooms, square_footage, lot_size, year_built,
			rentcast_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`,
		p.ID, p.Address, nullString(p.City), nullString(p.State), p.ZipCode, nullString(p.County), nullString(p.PropertyType),
		p.NumUnits, p.Bedrooms, decimalPtr(p.Bathrooms), p.SquareFootage, p.LotSize, p.YearBuilt,
		nullString(p.RentcastID),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting property: %w", err)
	}

	return nil
}

// GetProperty returns a property by id.
func (r *Repository) GetProperty(ctx context.Context, id uuid.UUID) (models.Property, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+propertyColumns+" FROM properties WHERE id = $1", id)
	p, err := scanProperty(row)
	if err != nil {
		return models.Property{}, notFound(err, "property")
	}
	return p, nil
}

// ListProperties returns properties, newest first.
func (r *Repository) ListProperties(ctx context.Context, limit, offset int) ([]models.Property, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+propertyColumns+" FROM properties ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	properties := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, p)
	}

	return properties, rows.Err()
}

// UpdateProperty overwrites every mutable column of a property.
func (r *Repository) UpdateProperty(ctx context.Context, p *models.Property) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE properties SET
			address = $2,
			city = $3,
			state = $4,
			zip_code = $5,
			county = $6,
			property_type = $7,
			num_units = $8,
			bedrooms = $9,
			bathrooms = $10,
			square_footage = $11,
			lot_size = $12,
			year_built = $13,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`,
		p.ID, p.Address, nullString(p.City), nullString(p.State), p.ZipCode, nullString(p.County), nullString(p.PropertyType),
		p.NumUnits, p.Bedrooms, decimalPtr(p.Bathrooms), p.SquareFootage, p.LotSize, p.YearBuilt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return notFound(err, "property")
	}

	return nil
}

// DeleteProperty removes a property and, through the foreign key cascade,
// its deals. It returns how many deals went with it.
func (r *Repository) DeleteProperty(ctx context.Context, id uuid.UUID) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var deals int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM deals WHERE property_id = $1", id).Scan(&deals); err != nil {
		return 0, fmt.Errorf("counting property deals: %w", err)
	}

	tag, err := tx.Exec(ctx, "DELETE FROM properties WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("deleting property: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("property %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing property delete: %w", err)
	}
	return deals, nil
}

// CreateDeal inserts a deal, assigning its id and timestamps.
func (r *Repository) CreateDeal(ctx context.Context, d *models.Deal) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = models.DefaultDealStatus
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO deals (
			id, property_id, deal_name, status, zip_code, days_on_market,
			inputs, metrics, risk_score, risk_label, risk_factors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`,
		d.ID, d.PropertyID, nullString(d.DealName), d.Status, nullString(d.ZipCode), d.DaysOnMarket,
		d.Inputs, d.Metrics, decimalPtr(d.RiskScore), nullString(d.RiskLabel), d.RiskFactors,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting deal: %w", err)
	}

	return nil
}

// GetDeal returns a deal by id.
func (r *Repository) GetDeal(ctx context.Context, id uuid.UUID) (models.Deal, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+dealColumns+" FROM deals WHERE id = $1", id)
	d, err := scanDeal(row)
	if err != nil {
		return models.Deal{}, notFound(err, "deal")
	}
	return d, nil
}

// ListDeals returns deals matching the filter, newest first.
func (r *Repository) ListDeals(ctx context.Context, f DealFilter) ([]models.Deal, error) {
	query := "SELECT " + dealColumns + " FROM deals WHERE ($1 = '' OR status = $1)"
	args := []any{f.Status}
	if f.PropertyID != nil {
		args = append(args, *f.PropertyID)
		query += fmt.Sprintf(" AND property_id = $%d", len(args))
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deals: %w", err)
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning deal: %w", err)
		}
		deals = append(deals, d)
	}

	return deals, rows.Err()
}

// UpdateDeal overwrites every mutable column of a deal.
func (r *Repository) UpdateDeal(ctx context.Context, d *models.Deal) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE deals SET
			property_id = $2,
			deal_name = $3,
			status = $4,
			zip_code = $5,
			days_on_market = $6,
			inputs = $7,
			metrics = $8,
			risk_score = $9,
			risk_label = $10,
			risk_factors = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`,
		d.ID, d.PropertyID, nullString(d.DealName), d.Status, nullString(d.ZipCode), d.DaysOnMarket,
		d.Inputs, d.Metrics, decimalPtr(d.RiskScore), nullString(d.RiskLabel), d.RiskFactors,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return notFound(err, "deal")
	}

	return nil
}

// DeleteDeal removes a deal by id.
func (r *Repository) DeleteDeal(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM deals WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting deal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deal %s: %w", id, ErrNotFound)
	}
	return nil
}

// ZipConcentration counts stored deals in a zip and in total, leaving out
// the given deal.
func (r *Repository) ZipConcentration(ctx context.Context, zip string, exclude uuid.UUID) (inZip, total int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE zip_code = $1), COUNT(*)
		FROM deals
		WHERE id <> $2
	`, zip, exclude).Scan(&inZip, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("counting deals by zip: %w", err)
	}
	return inZip, total, nil
}

const upsertSnapshotQuery = `
	INSERT INTO market_snapshots (
		zip_code, city, state, snapshot_date, median_home_value, median_rent,
		avg_vacancy_rate, yoy_appreciation_pct, population_growth_pct,
		rent_to_price_ratio, data_source
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (zip_code, snapshot_date, data_source) DO UPDATE SET
		city = EXCLUDED.city,
		state = EXCLUDED.state,
		median_home_value = EXCLUDED.median_home_value,
		median_rent = EXCLUDED.median_rent,
		avg_vacancy_rate = EXCLUDED.avg_vacancy_rate,
		yoy_appreciation_pct = EXCLUDED.yoy_appreciation_pct,
		population_growth_pct = EXCLUDED.population_growth_pct,
		rent_to_price_ratio = EXCLUDED.rent_to_price_ratio
	RETURNING id, created_at
`

func snapshotArgs(s *models.MarketSnapshot) []any {
	return []any{
		s.ZipCode, nullString(s.City), s.State, s.SnapshotDate,
		decimalPtr(s.MedianHomeValue), decimalPtr(s.MedianRent),
		decimalPtr(s.AvgVacancyRatePct), decimalPtr(s.YoYAppreciationPct), decimalPtr(s.PopulationGrowthPct),
		decimalPtr(s.RentToPriceRatio), s.DataSource,
	}
}

// UpsertMarketSnapshot inserts or refreshes the snapshot for its zip, date
// and source.
func (r *Repository) UpsertMarketSnapshot(ctx context.Context, s *models.MarketSnapshot) error {
	err := r.pool.QueryRow(ctx, upsertSnapshotQuery, snapshotArgs(s)...).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting market snapshot: %w", err)
	}

	return nil
}

// UpsertMarketSnapshots upserts snapshots in a single batch, filling in
// their ids. It returns how many were written before any failure.
func (r *Repository) UpsertMarketSnapshots(ctx context.Context, snaps []*models.MarketSnapshot) (int, error) {
	if len(snaps) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, s := range snaps {
		batch.Queue(upsertSnapshotQuery, snapshotArgs(s)...)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	count := 0
	for _, s := range snaps {
		if err := br.QueryRow().Scan(&s.ID, &s.CreatedAt); err != nil {
			return count, fmt.Errorf("upserting market snapshot for %s: %w", s.ZipCode, err)
		}
		count++
	}

	return count, nil
}

const latestSnapshotQuery = "SELECT " + snapshotColumns + ` FROM market_snapshots
	WHERE zip_code = $1 ORDER BY snapshot_date DESC, id DESC LIMIT 1`

// LatestMarketSnapshot returns the most recent snapshot of a zip from any
// source.
func (r *Repository) LatestMarketSnapshot(ctx context.Context, zip string) (models.MarketSnapshot, error) {
	s, err := scanSnapshot(r.pool.QueryRow(ctx, latestSnapshotQuery, zip))
	if err != nil {
		return models.MarketSnapshot{}, notFound(err, "market snapshot")
	}
	return s, nil
}

// LatestMarketSnapshots returns the most recent snapshot for each zip that
// has one, in the order given.
func (r *Repository) LatestMarketSnapshots(ctx context.Context, zips []string) ([]models.MarketSnapshot, error) {
	snapshots := []models.MarketSnapshot{}
	if len(zips) == 0 {
		return snapshots, nil
	}

	batch := &pgx.Batch{}
	for _, zip := range zips {
		batch.Queue(latestSnapshotQuery, zip)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, zip := range zips {
		s, err := scanSnapshot(br.QueryRow())
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading snapshot for %s: %w", zip, err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, nil
}

// MarketHistory returns every snapshot of a zip, newest first.
func (r *Repository) MarketHistory(ctx context.Context, zip string) ([]models.MarketSnapshot, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+snapshotColumns+` FROM market_snapshots
		WHERE zip_code = $1 ORDER BY snapshot_date DESC, id DESC`, zip)
	if err != nil {
		return nil, fmt.Errorf("querying market history: %w", err)
	}
	defer rows.Close()

	snapshots := []models.MarketSnapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning market snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func scanProperty(row rowScanner) (models.Property, error) {
	var (
		p                                      models.Property
		city, state, county, ptype, rentcastID *string
		bathrooms                              decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.Address, &city, &state, &p.ZipCode, &county, &ptype,
		&p.NumUnits, &p.Bedrooms, &bathrooms, &p.SquareFootage, &p.LotSize, &p.YearBuilt,
		&rentcastID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return models.Property{}, err
	}

	p.City = deref(city)
	p.State = deref(state)
	p.County = deref(county)
	p.PropertyType = deref(ptype)
	p.RentcastID = deref(rentcastID)
	p.Bathrooms = fromNull(bathrooms)
	return p, nil
}

func scanDeal(row rowScanner) (models.Deal, error) {
	var (
		d                models.Deal
		propertyID       uuid.NullUUID
		name, zip, label *string
		score            decimal.NullDecimal
	)
	err := row.Scan(
		&d.ID, &propertyID, &name, &d.Status, &zip, &d.DaysOnMarket,
		&d.Inputs, &d.Metrics, &score, &label, &d.RiskFactors, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return models.Deal{}, err
	}

	if propertyID.Valid {
		id := propertyID.UUID
		d.PropertyID = &id
	}
	d.DealName = deref(name)
	d.ZipCode = deref(zip)
	d.RiskLabel = deref(label)
	d.RiskScore = fromNull(score)
	return d, nil
}

func scanSnapshot(row rowScanner) (models.MarketSnapshot, error) {
	var (
		s                                             models.MarketSnapshot
		city                                          *string
		home, rent, vacancy, appreciation, pop, ratio decimal.NullDecimal
	)
	err := row.Scan(
		&s.ID, &s.ZipCode, &city, &s.State, &s.SnapshotDate, &home,
		&rent, &vacancy, &appreciation, &pop,
		&ratio, &s.DataSource, &s.CreatedAt,
	)
	if err != nil {
		return models.MarketSnapshot{}, err
	}

	s.City = deref(city)
	s.MedianHomeValue = fromNull(home)
	s.MedianRent = fromNull(rent)
	s.AvgVacancyRatePct = fromNull(vacancy)
	s.YoYAppreciationPct = fromNull(appreciation)
	s.PopulationGrowthPct = fromNull(pop)
	s.RentToPriceRatio = fromNull(ratio)
	return s, nil
}

// notFound maps pgx.ErrNoRows to ErrNotFound and wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("querying %s: %w", what, err)
}

// decimalPtr converts a *decimal.Decimal to interface{} for database insertion.
func decimalPtr(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}

func fromNull(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
