// Package store is the read-only data-query collaborator behind the voice
// session's property and geocoding functions. Two implementations ship: a
// Postgres store for deployments and a seeded in-memory store for demos
// and tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by detail lookups for unknown ids.
var ErrNotFound = errors.New("store: not found")

// Home is a residential listing.
type Home struct {
	ID           string
	Address      string
	Neighborhood string
	Price        int64
	Bedrooms     int
	Bathrooms    float64
	SquareFeet   int
	Longitude    float64
	Latitude     float64
	ListedAt     time.Time
}

// CommercialProperty is a commercial listing.
type CommercialProperty struct {
	ID           string
	Address      string
	Neighborhood string
	PropertyType string
	Price        int64
	SquareFeet   int
	Longitude    float64
	Latitude     float64
}

// DevelopmentSite is a vacant or redevelopable parcel.
type DevelopmentSite struct {
	ID         string
	Address    string
	Zoning     string
	AcreLot    float64
	AskingUSD  int64
	Longitude  float64
	Latitude   float64
	Incentives []string
}

// GeocodeResult is one resolved address.
type GeocodeResult struct {
	Label     string
	Longitude float64
	Latitude  float64
}

// HomeFilter narrows a home search. Zero values mean "any".
type HomeFilter struct {
	Neighborhood string
	MaxPrice     int64
	MinBedrooms  int
}

// CommercialFilter narrows a commercial search.
type CommercialFilter struct {
	Neighborhood string
	PropertyType string
	MaxPrice     int64
}

// SiteFilter narrows a development-site search.
type SiteFilter struct {
	Zoning   string
	MinAcres float64
}

// Querier is the read-only lookup surface consumed by function handlers.
type Querier interface {
	GeocodeAddress(ctx context.Context, address string) (*GeocodeResult, error)
	SearchHomes(ctx context.Context, filter HomeFilter) ([]Home, error)
	SearchCommercial(ctx context.Context, filter CommercialFilter) ([]CommercialProperty, error)
	SearchDevelopmentSites(ctx context.Context, filter SiteFilter) ([]DevelopmentSite, error)
	HomeByID(ctx context.Context, id string) (*Home, error)
	CommercialByID(ctx context.Context, id string) (*CommercialProperty, error)
	DevelopmentSiteByID(ctx context.Context, id string) (*DevelopmentSite, error)
}
