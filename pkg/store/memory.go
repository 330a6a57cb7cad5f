package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Querier seeded with Milwaukee sample data.
// It backs the demo client and tests; all methods are safe for concurrent
// use.
type MemoryStore struct {
	mu       sync.RWMutex
	homes    []Home
	comms    []CommercialProperty
	sites    []DevelopmentSite
	geocodes map[string]GeocodeResult
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{geocodes: make(map[string]GeocodeResult)}
}

// NewSeededMemoryStore returns a store preloaded with sample Milwaukee
// listings and landmarks.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	s.AddHomes(
		Home{ID: "home-001", Address: "2734 N Bremen St", Neighborhood: "Riverwest", Price: 289000, Bedrooms: 3, Bathrooms: 1.5, SquareFeet: 1640, Longitude: -87.8989, Latitude: 43.0707},
		Home{ID: "home-002", Address: "1818 N Warren Ave", Neighborhood: "Lower East Side", Price: 425000, Bedrooms: 4, Bathrooms: 2, SquareFeet: 2210, Longitude: -87.8903, Latitude: 43.0549},
		Home{ID: "home-003", Address: "3215 S Clement Ave", Neighborhood: "Bay View", Price: 315000, Bedrooms: 3, Bathrooms: 2, SquareFeet: 1790, Longitude: -87.8866, Latitude: 42.9953},
		Home{ID: "home-004", Address: "5478 N Diversey Blvd", Neighborhood: "Whitefish Bay", Price: 610000, Bedrooms: 5, Bathrooms: 3, SquareFeet: 3050, Longitude: -87.8934, Latitude: 43.1189},
	)
	s.AddCommercial(
		CommercialProperty{ID: "com-001", Address: "759 N Water St", Neighborhood: "Downtown", PropertyType: "office", Price: 2450000, SquareFeet: 18200, Longitude: -87.9095, Latitude: 43.0399},
		CommercialProperty{ID: "com-002", Address: "2246 S Kinnickinnic Ave", Neighborhood: "Bay View", PropertyType: "retail", Price: 780000, SquareFeet: 5400, Longitude: -87.9046, Latitude: 43.0096},
	)
	s.AddSites(
		DevelopmentSite{ID: "site-001", Address: "401 W Michigan St", Zoning: "C9F", AcreLot: 1.2, AskingUSD: 3900000, Longitude: -87.9163, Latitude: 43.0371, Incentives: []string{"TIF district", "opportunity zone"}},
		DevelopmentSite{ID: "site-002", Address: "3700 W North Ave", Zoning: "LB2", AcreLot: 0.6, AskingUSD: 450000, Longitude: -87.9587, Latitude: 43.0605, Incentives: []string{"brownfield grant"}},
	)
	s.AddGeocode("city hall", GeocodeResult{Label: "Milwaukee City Hall, 200 E Wells St", Longitude: -87.9098, Latitude: 43.0417})
	s.AddGeocode("200 e wells st", GeocodeResult{Label: "Milwaukee City Hall, 200 E Wells St", Longitude: -87.9098, Latitude: 43.0417})
	s.AddGeocode("fiserv forum", GeocodeResult{Label: "Fiserv Forum, 1111 Vel R. Phillips Ave", Longitude: -87.9172, Latitude: 43.0451})
	return s
}

// AddHomes appends homes to the store.
func (s *MemoryStore) AddHomes(homes ...Home) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.homes = append(s.homes, homes...)
}

// AddCommercial appends commercial properties to the store.
func (s *MemoryStore) AddCommercial(props ...CommercialProperty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comms = append(s.comms, props...)
}

// AddSites appends development sites to the store.
func (s *MemoryStore) AddSites(sites ...DevelopmentSite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites = append(s.sites, sites...)
}

// AddGeocode registers an address lookup. Keys match case-insensitively.
func (s *MemoryStore) AddGeocode(key string, result GeocodeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geocodes[strings.ToLower(strings.TrimSpace(key))] = result
}

func (s *MemoryStore) GeocodeAddress(_ context.Context, address string) (*GeocodeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.geocodes[strings.ToLower(strings.TrimSpace(address))]; ok {
		out := r
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SearchHomes(_ context.Context, filter HomeFilter) ([]Home, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Home
	for _, h := range s.homes {
		if filter.Neighborhood != "" && !strings.EqualFold(h.Neighborhood, filter.Neighborhood) {
			continue
		}
		if filter.MaxPrice > 0 && h.Price > filter.MaxPrice {
			continue
		}
		if filter.MinBedrooms > 0 && h.Bedrooms < filter.MinBedrooms {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (s *MemoryStore) SearchCommercial(_ context.Context, filter CommercialFilter) ([]CommercialProperty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CommercialProperty
	for _, c := range s.comms {
		if filter.Neighborhood != "" && !strings.EqualFold(c.Neighborhood, filter.Neighborhood) {
			continue
		}
		if filter.PropertyType != "" && !strings.EqualFold(c.PropertyType, filter.PropertyType) {
			continue
		}
		if filter.MaxPrice > 0 && c.Price > filter.MaxPrice {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *MemoryStore) SearchDevelopmentSites(_ context.Context, filter SiteFilter) ([]DevelopmentSite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DevelopmentSite
	for _, d := range s.sites {
		if filter.Zoning != "" && !strings.EqualFold(d.Zoning, filter.Zoning) {
			continue
		}
		if filter.MinAcres > 0 && d.AcreLot < filter.MinAcres {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *MemoryStore) HomeByID(_ context.Context, id string) (*Home, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.homes {
		if h.ID == id {
			out := h
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CommercialByID(_ context.Context, id string) (*CommercialProperty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.comms {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DevelopmentSiteByID(_ context.Context, id string) (*DevelopmentSite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.sites {
		if d.ID == id {
			out := d
			return &out, nil
		}
	}
	return nil, ErrNotFound
}
