package store

import (
	"context"
	"errors"
	"testing"
)

func TestGeocodeAddress_CaseInsensitive(t *testing.T) {
	t.Parallel()

	s := NewSeededMemoryStore()
	for _, query := range []string{"city hall", "City Hall", "  CITY HALL  "} {
		result, err := s.GeocodeAddress(context.Background(), query)
		if err != nil {
			t.Fatalf("GeocodeAddress(%q) error: %v", query, err)
		}
		if result.Label == "" {
			t.Fatalf("GeocodeAddress(%q) returned empty label", query)
		}
	}

	if _, err := s.GeocodeAddress(context.Background(), "nowhere special"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestSearchHomes_Filters(t *testing.T) {
	t.Parallel()

	s := NewSeededMemoryStore()

	all, err := s.SearchHomes(context.Background(), HomeFilter{})
	if err != nil {
		t.Fatalf("SearchHomes error: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("all=%d, want 4 seeded homes", len(all))
	}

	bayView, err := s.SearchHomes(context.Background(), HomeFilter{Neighborhood: "bay view"})
	if err != nil {
		t.Fatalf("SearchHomes error: %v", err)
	}
	if len(bayView) != 1 || bayView[0].ID != "home-003" {
		t.Fatalf("bayView=%+v", bayView)
	}

	affordable, err := s.SearchHomes(context.Background(), HomeFilter{MaxPrice: 320000, MinBedrooms: 3})
	if err != nil {
		t.Fatalf("SearchHomes error: %v", err)
	}
	for _, h := range affordable {
		if h.Price > 320000 || h.Bedrooms < 3 {
			t.Fatalf("filter leaked %+v", h)
		}
	}
}

func TestSearchCommercial_TypeFilter(t *testing.T) {
	t.Parallel()

	s := NewSeededMemoryStore()
	offices, err := s.SearchCommercial(context.Background(), CommercialFilter{PropertyType: "OFFICE"})
	if err != nil {
		t.Fatalf("SearchCommercial error: %v", err)
	}
	if len(offices) != 1 || offices[0].ID != "com-001" {
		t.Fatalf("offices=%+v", offices)
	}
}

func TestSearchDevelopmentSites_ZoningAndAcres(t *testing.T) {
	t.Parallel()

	s := NewSeededMemoryStore()
	sites, err := s.SearchDevelopmentSites(context.Background(), SiteFilter{Zoning: "c9f"})
	if err != nil {
		t.Fatalf("SearchDevelopmentSites error: %v", err)
	}
	if len(sites) != 1 || sites[0].ID != "site-001" {
		t.Fatalf("sites=%+v", sites)
	}

	big, err := s.SearchDevelopmentSites(context.Background(), SiteFilter{MinAcres: 1.0})
	if err != nil {
		t.Fatalf("SearchDevelopmentSites error: %v", err)
	}
	if len(big) != 1 || big[0].ID != "site-001" {
		t.Fatalf("big=%+v", big)
	}
}

func TestByID_Lookups(t *testing.T) {
	t.Parallel()

	s := NewSeededMemoryStore()

	home, err := s.HomeByID(context.Background(), "home-002")
	if err != nil || home.Neighborhood != "Lower East Side" {
		t.Fatalf("home=%+v err=%v", home, err)
	}
	if _, err := s.HomeByID(context.Background(), "home-x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}

	com, err := s.CommercialByID(context.Background(), "com-002")
	if err != nil || com.PropertyType != "retail" {
		t.Fatalf("com=%+v err=%v", com, err)
	}

	site, err := s.DevelopmentSiteByID(context.Background(), "site-002")
	if err != nil || len(site.Incentives) == 0 {
		t.Fatalf("site=%+v err=%v", site, err)
	}
}

func TestByID_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewSeededMemoryStore()
	home, err := s.HomeByID(context.Background(), "home-001")
	if err != nil {
		t.Fatalf("HomeByID error: %v", err)
	}
	home.Price = 1

	again, err := s.HomeByID(context.Background(), "home-001")
	if err != nil {
		t.Fatalf("HomeByID error: %v", err)
	}
	if again.Price == 1 {
		t.Fatal("mutating a returned home changed the store")
	}
}
