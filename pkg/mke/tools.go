package mke

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tmoody1973/mkedev-voice/pkg/store"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/cards"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/dispatch"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/wire"
)

// Function names declared to the voice model.
const (
	FuncSearchAddress    = "search_address"
	FuncAskZoningExpert  = "ask_zoning_expert"
	FuncSetLayerVisible  = "set_layer_visibility"
	FuncSetLayerOpacity  = "set_layer_opacity"
	FuncResetMapView     = "reset_map_view"
	FuncSearchHomes      = "search_homes"
	FuncSearchCommercial = "search_commercial_properties"
	FuncSearchSites      = "search_development_sites"
	FuncPropertyDetails  = "get_property_details"
	FuncCaptureVisual    = "capture_visualization"
)

// NoHomesMessage is returned when a home search matches nothing.
const NoHomesMessage = "No homes currently for sale matching those criteria."

// Results injected back into the model's context stay small: list results
// carry at most this many entries.
const maxListed = 5

const defaultFlyToZoom = 16

// Deps are the collaborators the handlers mutate or query.
type Deps struct {
	Map    MapController
	Data   store.Querier
	Zoning ZoningExpert
}

// NewRegistry builds the full MKE.dev dispatch table.
func NewRegistry(logger *zap.Logger, deps Deps) *dispatch.Registry {
	h := handlers{deps: deps}
	return dispatch.NewRegistry(logger,
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncSearchAddress,
				Description: "Look up an address or landmark and fly the map to it.",
				Parameters: &wire.Schema{
					Type: "OBJECT",
					Properties: map[string]*wire.Schema{
						"address": {Type: "STRING", Description: "Street address or landmark name."},
					},
					Required: []string{"address"},
				},
			},
			Handler: h.searchAddress,
		},
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncAskZoningExpert,
				Description: "Ask the Milwaukee zoning-code expert a question.",
				Parameters: &wire.Schema{
					Type: "OBJECT",
					Properties: map[string]*wire.Schema{
						"question": {Type: "STRING"},
					},
					Required: []string{"question"},
				},
			},
			Handler: h.askZoningExpert,
		},
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncSetLayerVisible,
				Description: "Show or hide a map layer.",
				Parameters: &wire.Schema{
					Type: "OBJECT",
					Properties: map[string]*wire.Schema{
						"layer":   {Type: "STRING", Description: "Layer id, e.g. zoning, parcels, transit."},
						"visible": {Type: "BOOLEAN"},
					},
					Required: []string{"layer", "visible"},
				},
			},
			Handler: h.setLayerVisibility,
		},
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncSetLayerOpacity,
				Description: "Set a map layer's opacity.",
				Parameters: &wire.Schema{
					Type: "OBJECT",
					Properties: map[string]*wire.Schema{
						"layer":   {Type: "STRING"},
						"opacity": {Type: "NUMBER", Description: "0 (transparent) to 1 (opaque)."},
					},
					Required: []string{"layer", "opacity"},
				},
			},
			Handler: h.setLayerOpacity,
		},
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncResetMapView,
				Description: "Reset the map to the default citywide view.",
				Parameters:  &wire.Schema{Type: "OBJECT"},
			},
			Handler: h.resetMapView,
		},
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncSearchHomes,
				Description: "Search homes for sale.",
				Parameters: &wire.Schema{
					Type: "OBJECT",
					Properties: map[string]*wire.Schema{
						"neighborhood": {Type: "STRING"},
						"max_price":    {Type: "NUMBER"},
						"min_bedrooms": {Type: "INTEGER"},
					},
				},
			},
			Handler: h.searchHomes,
		},
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncSearchCommercial,
				Description: "Search commercial properties for sale.",
				Parameters: &wire.Schema{
					Type: "OBJECT",
					Properties: map[string]*wire.Schema{
						"neighborhood":  {Type: "STRING"},
						"property_type": {Type: "STRING", Enum: []string{"office", "retail", "industrial", "mixed_use"}},
						"max_price":     {Type: "NUMBER"},
					},
				},
			},
			Handler: h.searchCommercial,
		},
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncSearchSites,
				Description: "Search development sites.",
				Parameters: &wire.Schema{
					Type: "OBJECT",
					Properties: map[string]*wire.Schema{
						"zoning":    {Type: "STRING"},
						"min_acres": {Type: "NUMBER"},
					},
				},
			},
			Handler: h.searchSites,
		},
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncPropertyDetails,
				Description: "Fetch full details for one property by id.",
				Parameters: &wire.Schema{
					Type: "OBJECT",
					Properties: map[string]*wire.Schema{
						"category": {Type: "STRING", Enum: []string{"home", "commercial", "development_site"}},
						"id":       {Type: "STRING"},
					},
					Required: []string{"category", "id"},
				},
			},
			Handler: h.propertyDetails,
		},
		dispatch.Descriptor{
			Declaration: wire.FunctionDeclaration{
				Name:        FuncCaptureVisual,
				Description: "Capture the current map view as an image.",
				Parameters: &wire.Schema{
					Type: "OBJECT",
					Properties: map[string]*wire.Schema{
						"description": {Type: "STRING"},
					},
				},
			},
			Handler: h.captureVisualization,
		},
	)
}

type handlers struct {
	deps Deps
}

func (h handlers) searchAddress(ctx context.Context, args dispatch.Args, sink dispatch.CardSink) dispatch.Result {
	address, _ := args.String("address")
	if address == "" {
		return dispatch.Failure("address must not be empty")
	}
	result, err := h.deps.Data.GeocodeAddress(ctx, address)
	if errors.Is(err, store.ErrNotFound) {
		return dispatch.Result{"success": true, "found": false, "message": fmt.Sprintf("No results for %q.", address)}
	}
	if err != nil {
		return dispatch.Failure("address lookup failed: %v", err)
	}
	if err := h.deps.Map.FlyTo(result.Longitude, result.Latitude, defaultFlyToZoom); err != nil {
		return dispatch.Failure("map navigation failed: %v", err)
	}
	sink.EmitCard(cards.NewMapHighlight(cards.MapHighlight{
		Label:     result.Label,
		Longitude: result.Longitude,
		Latitude:  result.Latitude,
		Zoom:      defaultFlyToZoom,
	}))
	return dispatch.Result{
		"success":   true,
		"found":     true,
		"label":     result.Label,
		"longitude": result.Longitude,
		"latitude":  result.Latitude,
	}
}

func (h handlers) askZoningExpert(ctx context.Context, args dispatch.Args, sink dispatch.CardSink) dispatch.Result {
	question, _ := args.String("question")
	if question == "" {
		return dispatch.Failure("question must not be empty")
	}
	answer, err := h.deps.Zoning.Ask(ctx, question)
	if err != nil {
		return dispatch.Failure("zoning expert unavailable: %v", err)
	}
	sink.EmitCard(cards.NewZoningInfo(cards.ZoningInfo{Question: question, Answer: answer}))
	return dispatch.Result{"success": true, "answer": answer}
}

func (h handlers) setLayerVisibility(_ context.Context, args dispatch.Args, _ dispatch.CardSink) dispatch.Result {
	layer, _ := args.String("layer")
	visible, ok := args.Bool("visible")
	if layer == "" || !ok {
		return dispatch.Failure("layer and visible are required")
	}
	if err := h.deps.Map.SetLayerVisibility(layer, visible); err != nil {
		return dispatch.Failure("layer toggle failed: %v", err)
	}
	return dispatch.Result{"success": true, "layer": layer, "visible": visible}
}

func (h handlers) setLayerOpacity(_ context.Context, args dispatch.Args, _ dispatch.CardSink) dispatch.Result {
	layer, _ := args.String("layer")
	opacity, ok := args.Float("opacity")
	if layer == "" || !ok {
		return dispatch.Failure("layer and opacity are required")
	}
	if opacity < 0 || opacity > 1 {
		return dispatch.Failure("opacity must be between 0 and 1")
	}
	if err := h.deps.Map.SetLayerOpacity(layer, opacity); err != nil {
		return dispatch.Failure("layer opacity change failed: %v", err)
	}
	return dispatch.Result{"success": true, "layer": layer, "opacity": opacity}
}

func (h handlers) resetMapView(_ context.Context, _ dispatch.Args, _ dispatch.CardSink) dispatch.Result {
	if err := h.deps.Map.ResetView(); err != nil {
		return dispatch.Failure("map reset failed: %v", err)
	}
	return dispatch.Result{"success": true}
}

func (h handlers) searchHomes(ctx context.Context, args dispatch.Args, sink dispatch.CardSink) dispatch.Result {
	filter := store.HomeFilter{}
	if v, ok := args.String("neighborhood"); ok {
		filter.Neighborhood = v
	}
	if v, ok := args.Float("max_price"); ok && v > 0 {
		filter.MaxPrice = int64(v)
	}
	if v, ok := args.Int("min_bedrooms"); ok && v > 0 {
		filter.MinBedrooms = v
	}

	homes, err := h.deps.Data.SearchHomes(ctx, filter)
	if err != nil {
		return dispatch.Failure("home search failed: %v", err)
	}
	if len(homes) == 0 {
		return dispatch.Result{"success": true, "count": 0, "message": NoHomesMessage}
	}

	listed := homes
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	ids := make([]string, 0, len(listed))
	summaries := make([]map[string]any, 0, len(listed))
	for _, home := range listed {
		ids = append(ids, home.ID)
		summaries = append(summaries, map[string]any{
			"id":           home.ID,
			"address":      home.Address,
			"neighborhood": home.Neighborhood,
			"price":        home.Price,
			"bedrooms":     home.Bedrooms,
			"bathrooms":    home.Bathrooms,
		})
	}
	sink.EmitCard(cards.NewPropertyList(cards.PropertyList{Category: "home", Total: len(homes), IDs: ids}))
	return dispatch.Result{"success": true, "count": len(homes), "homes": summaries}
}

func (h handlers) searchCommercial(ctx context.Context, args dispatch.Args, sink dispatch.CardSink) dispatch.Result {
	filter := store.CommercialFilter{}
	if v, ok := args.String("neighborhood"); ok {
		filter.Neighborhood = v
	}
	if v, ok := args.String("property_type"); ok {
		filter.PropertyType = v
	}
	if v, ok := args.Float("max_price"); ok && v > 0 {
		filter.MaxPrice = int64(v)
	}

	props, err := h.deps.Data.SearchCommercial(ctx, filter)
	if err != nil {
		return dispatch.Failure("commercial search failed: %v", err)
	}
	if len(props) == 0 {
		return dispatch.Result{"success": true, "count": 0, "message": "No commercial properties match those criteria."}
	}

	listed := props
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	ids := make([]string, 0, len(listed))
	summaries := make([]map[string]any, 0, len(listed))
	for _, p := range listed {
		ids = append(ids, p.ID)
		summaries = append(summaries, map[string]any{
			"id":            p.ID,
			"address":       p.Address,
			"neighborhood":  p.Neighborhood,
			"property_type": p.PropertyType,
			"price":         p.Price,
			"square_feet":   p.SquareFeet,
		})
	}
	sink.EmitCard(cards.NewPropertyList(cards.PropertyList{Category: "commercial", Total: len(props), IDs: ids}))
	return dispatch.Result{"success": true, "count": len(props), "properties": summaries}
}

func (h handlers) searchSites(ctx context.Context, args dispatch.Args, sink dispatch.CardSink) dispatch.Result {
	filter := store.SiteFilter{}
	if v, ok := args.String("zoning"); ok {
		filter.Zoning = v
	}
	if v, ok := args.Float("min_acres"); ok && v > 0 {
		filter.MinAcres = v
	}

	sites, err := h.deps.Data.SearchDevelopmentSites(ctx, filter)
	if err != nil {
		return dispatch.Failure("development site search failed: %v", err)
	}
	if len(sites) == 0 {
		return dispatch.Result{"success": true, "count": 0, "message": "No development sites match those criteria."}
	}

	listed := sites
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	ids := make([]string, 0, len(listed))
	summaries := make([]map[string]any, 0, len(listed))
	for _, site := range listed {
		ids = append(ids, site.ID)
		summaries = append(summaries, map[string]any{
			"id":         site.ID,
			"address":    site.Address,
			"zoning":     site.Zoning,
			"acres":      site.AcreLot,
			"asking_usd": site.AskingUSD,
		})
	}
	sink.EmitCard(cards.NewPropertyList(cards.PropertyList{Category: "development_site", Total: len(sites), IDs: ids}))
	return dispatch.Result{"success": true, "count": len(sites), "sites": summaries}
}

func (h handlers) propertyDetails(ctx context.Context, args dispatch.Args, sink dispatch.CardSink) dispatch.Result {
	category, _ := args.String("category")
	id, _ := args.String("id")
	if category == "" || id == "" {
		return dispatch.Failure("category and id are required")
	}

	var summary map[string]any
	switch category {
	case "home":
		home, err := h.deps.Data.HomeByID(ctx, id)
		if err != nil {
			return detailLookupFailure(category, id, err)
		}
		summary = map[string]any{
			"id":           home.ID,
			"address":      home.Address,
			"neighborhood": home.Neighborhood,
			"price":        home.Price,
			"bedrooms":     home.Bedrooms,
			"bathrooms":    home.Bathrooms,
			"square_feet":  home.SquareFeet,
		}
	case "commercial":
		p, err := h.deps.Data.CommercialByID(ctx, id)
		if err != nil {
			return detailLookupFailure(category, id, err)
		}
		summary = map[string]any{
			"id":            p.ID,
			"address":       p.Address,
			"property_type": p.PropertyType,
			"price":         p.Price,
			"square_feet":   p.SquareFeet,
		}
	case "development_site":
		site, err := h.deps.Data.DevelopmentSiteByID(ctx, id)
		if err != nil {
			return detailLookupFailure(category, id, err)
		}
		summary = map[string]any{
			"id":         site.ID,
			"address":    site.Address,
			"zoning":     site.Zoning,
			"acres":      site.AcreLot,
			"asking_usd": site.AskingUSD,
			"incentives": site.Incentives,
		}
	default:
		return dispatch.Failure("unknown category: %s", category)
	}

	sink.EmitCard(cards.NewPropertyDetail(cards.PropertyDetail{Category: category, ID: id}))
	return dispatch.Result{"success": true, "property": summary}
}

func detailLookupFailure(category, id string, err error) dispatch.Result {
	if errors.Is(err, store.ErrNotFound) {
		return dispatch.Failure("no %s with id %s", category, id)
	}
	return dispatch.Failure("detail lookup failed: %v", err)
}

func (h handlers) captureVisualization(ctx context.Context, args dispatch.Args, sink dispatch.CardSink) dispatch.Result {
	description, _ := args.String("description")
	ref, err := h.deps.Map.CaptureScreenshot(ctx)
	if err != nil {
		return dispatch.Failure("screenshot capture failed: %v", err)
	}
	sink.EmitCard(cards.NewVisualization(cards.Visualization{Description: description, ImageRef: ref}))
	return dispatch.Result{"success": true, "image_ref": ref}
}
