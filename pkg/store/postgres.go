package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore is a Querier backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, runs pending migrations, and returns the
// store. Close releases the pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if err := migrate(ctx, databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GeocodeAddress(ctx context.Context, address string) (*GeocodeResult, error) {
	var r GeocodeResult
	err := s.pool.QueryRow(ctx,
		`SELECT label, longitude, latitude FROM geocodes WHERE lower(key) = lower(trim($1))`,
		address,
	).Scan(&r.Label, &r.Longitude, &r.Latitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("geocode address: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) SearchHomes(ctx context.Context, filter HomeFilter) ([]Home, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, address, neighborhood, price, bedrooms, bathrooms, square_feet, longitude, latitude, listed_at
		 FROM homes
		 WHERE ($1 = '' OR lower(neighborhood) = lower($1))
		   AND ($2 = 0 OR price <= $2)
		   AND ($3 = 0 OR bedrooms >= $3)
		 ORDER BY listed_at DESC`,
		filter.Neighborhood, filter.MaxPrice, filter.MinBedrooms,
	)
	if err != nil {
		return nil, fmt.Errorf("search homes: %w", err)
	}
	defer rows.Close()

	var out []Home
	for rows.Next() {
		var h Home
		if err := rows.Scan(&h.ID, &h.Address, &h.Neighborhood, &h.Price, &h.Bedrooms, &h.Bathrooms, &h.SquareFeet, &h.Longitude, &h.Latitude, &h.ListedAt); err != nil {
			return nil, fmt.Errorf("scan home row: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate home rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SearchCommercial(ctx context.Context, filter CommercialFilter) ([]CommercialProperty, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, address, neighborhood, property_type, price, square_feet, longitude, latitude
		 FROM commercial_properties
		 WHERE ($1 = '' OR lower(neighborhood) = lower($1))
		   AND ($2 = '' OR lower(property_type) = lower($2))
		   AND ($3 = 0 OR price <= $3)
		 ORDER BY price`,
		filter.Neighborhood, filter.PropertyType, filter.MaxPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("search commercial: %w", err)
	}
	defer rows.Close()

	var out []CommercialProperty
	for rows.Next() {
		var c CommercialProperty
		if err := rows.Scan(&c.ID, &c.Address, &c.Neighborhood, &c.PropertyType, &c.Price, &c.SquareFeet, &c.Longitude, &c.Latitude); err != nil {
			return nil, fmt.Errorf("scan commercial row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commercial rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SearchDevelopmentSites(ctx context.Context, filter SiteFilter) ([]DevelopmentSite, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, address, zoning, acre_lot, asking_usd, longitude, latitude, incentives
		 FROM development_sites
		 WHERE ($1 = '' OR lower(zoning) = lower($1))
		   AND ($2 = 0 OR acre_lot >= $2)
		 ORDER BY acre_lot DESC`,
		filter.Zoning, filter.MinAcres,
	)
	if err != nil {
		return nil, fmt.Errorf("search development sites: %w", err)
	}
	defer rows.Close()

	var out []DevelopmentSite
	for rows.Next() {
		var d DevelopmentSite
		if err := rows.Scan(&d.ID, &d.Address, &d.Zoning, &d.AcreLot, &d.AskingUSD, &d.Longitude, &d.Latitude, &d.Incentives); err != nil {
			return nil, fmt.Errorf("scan site row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) HomeByID(ctx context.Context, id string) (*Home, error) {
	var h Home
	err := s.pool.QueryRow(ctx,
		`SELECT id, address, neighborhood, price, bedrooms, bathrooms, square_feet, longitude, latitude, listed_at
		 FROM homes WHERE id = $1`, id,
	).Scan(&h.ID, &h.Address, &h.Neighborhood, &h.Price, &h.Bedrooms, &h.Bathrooms, &h.SquareFeet, &h.Longitude, &h.Latitude, &h.ListedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("home by id: %w", err)
	}
	return &h, nil
}

func (s *PostgresStore) CommercialByID(ctx context.Context, id string) (*CommercialProperty, error) {
	var c CommercialProperty
	err := s.pool.QueryRow(ctx,
		`SELECT id, address, neighborhood, property_type, price, square_feet, longitude, latitude
		 FROM commercial_properties WHERE id = $1`, id,
	).Scan(&c.ID, &c.Address, &c.Neighborhood, &c.PropertyType, &c.Price, &c.SquareFeet, &c.Longitude, &c.Latitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("commercial by id: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) DevelopmentSiteByID(ctx context.Context, id string) (*DevelopmentSite, error) {
	var d DevelopmentSite
	err := s.pool.QueryRow(ctx,
		`SELECT id, address, zoning, acre_lot, asking_usd, longitude, latitude, incentives
		 FROM development_sites WHERE id = $1`, id,
	).Scan(&d.ID, &d.Address, &d.Zoning, &d.AcreLot, &d.AskingUSD, &d.Longitude, &d.Latitude, &d.Incentives)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("development site by id: %w", err)
	}
	return &d, nil
}
