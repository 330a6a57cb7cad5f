package mke

import (
	"context"
	"fmt"
	"testing"

	"github.com/tmoody1973/mkedev-voice/pkg/store"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/cards"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/wire"
)

type fakeMap struct {
	flyTo       []float64
	layerID     string
	layerShown  bool
	opacityID   string
	opacity     float64
	resets      int
	screenshot  string
	failScreens bool
}

func (m *fakeMap) FlyTo(longitude, latitude, zoom float64) error {
	m.flyTo = []float64{longitude, latitude, zoom}
	return nil
}

func (m *fakeMap) SetLayerVisibility(id string, visible bool) error {
	m.layerID = id
	m.layerShown = visible
	return nil
}

func (m *fakeMap) SetLayerOpacity(id string, opacity float64) error {
	m.opacityID = id
	m.opacity = opacity
	return nil
}

func (m *fakeMap) ResetView() error {
	m.resets++
	return nil
}

func (m *fakeMap) CaptureScreenshot(context.Context) (string, error) {
	if m.failScreens {
		return "", fmt.Errorf("canvas unavailable")
	}
	if m.screenshot == "" {
		m.screenshot = "shot-1"
	}
	return m.screenshot, nil
}

type fakeExpert struct {
	answer string
	err    error
	asked  string
}

func (e *fakeExpert) Ask(_ context.Context, question string) (string, error) {
	e.asked = question
	return e.answer, e.err
}

type cardRecorder struct {
	cards []cards.Card
}

func (r *cardRecorder) EmitCard(card cards.Card) { r.cards = append(r.cards, card) }

func newTestDeps() (Deps, *fakeMap, *fakeExpert, *store.MemoryStore) {
	mapCtl := &fakeMap{}
	expert := &fakeExpert{answer: "RM4 allows multi-family housing."}
	data := store.NewSeededMemoryStore()
	return Deps{Map: mapCtl, Data: data, Zoning: expert}, mapCtl, expert, data
}

func dispatchCall(t *testing.T, deps Deps, name string, args map[string]any) (map[string]any, *cardRecorder) {
	t.Helper()
	registry := NewRegistry(nil, deps)
	recorder := &cardRecorder{}
	result := registry.Dispatch(context.Background(), wire.FunctionCall{
		ID:   "call-1",
		Name: name,
		Args: args,
	}, recorder)
	return result, recorder
}

func TestSearchAddress_FliesAndEmitsHighlight(t *testing.T) {
	t.Parallel()

	deps, mapCtl, _, _ := newTestDeps()
	result, recorder := dispatchCall(t, deps, FuncSearchAddress, map[string]any{"address": "City Hall"})

	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v", result)
	}
	if found, _ := result["found"].(bool); !found {
		t.Fatalf("result=%v, want found", result)
	}
	if len(mapCtl.flyTo) != 3 {
		t.Fatal("FlyTo never called")
	}
	if len(recorder.cards) != 1 || recorder.cards[0].Kind != cards.KindMapHighlight {
		t.Fatalf("cards=%+v, want one map highlight", recorder.cards)
	}
}

func TestSearchAddress_NotFoundIsSuccess(t *testing.T) {
	t.Parallel()

	deps, mapCtl, _, _ := newTestDeps()
	result, recorder := dispatchCall(t, deps, FuncSearchAddress, map[string]any{"address": "Atlantis Pier"})

	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v, unresolvable address is not a failure", result)
	}
	if found, _ := result["found"].(bool); found {
		t.Fatalf("result=%v, want found=false", result)
	}
	if len(mapCtl.flyTo) != 0 {
		t.Fatal("map moved for unresolved address")
	}
	if len(recorder.cards) != 0 {
		t.Fatalf("cards=%+v, want none", recorder.cards)
	}
}

func TestAskZoningExpert_EmitsZoningCard(t *testing.T) {
	t.Parallel()

	deps, _, expert, _ := newTestDeps()
	result, recorder := dispatchCall(t, deps, FuncAskZoningExpert, map[string]any{"question": "What does RM4 allow?"})

	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v", result)
	}
	if expert.asked != "What does RM4 allow?" {
		t.Fatalf("asked=%q", expert.asked)
	}
	if result["answer"] != expert.answer {
		t.Fatalf("answer=%v", result["answer"])
	}
	if len(recorder.cards) != 1 || recorder.cards[0].Kind != cards.KindZoningInfo {
		t.Fatalf("cards=%+v", recorder.cards)
	}
}

func TestAskZoningExpert_BackendErrorBecomesFailure(t *testing.T) {
	t.Parallel()

	deps, _, expert, _ := newTestDeps()
	expert.err = fmt.Errorf("model timeout")
	result, recorder := dispatchCall(t, deps, FuncAskZoningExpert, map[string]any{"question": "anything"})

	if ok, _ := result["success"].(bool); ok {
		t.Fatalf("result=%v, want failure", result)
	}
	if len(recorder.cards) != 0 {
		t.Fatalf("cards=%+v, failed ask must not emit a card", recorder.cards)
	}
}

func TestSetLayerVisibility_ResultShape(t *testing.T) {
	t.Parallel()

	deps, mapCtl, _, _ := newTestDeps()
	result, _ := dispatchCall(t, deps, FuncSetLayerVisible, map[string]any{"layer": "zoning", "visible": true})

	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v", result)
	}
	if result["layer"] != "zoning" {
		t.Fatalf("layer=%v", result["layer"])
	}
	if visible, _ := result["visible"].(bool); !visible {
		t.Fatalf("visible=%v", result["visible"])
	}
	if mapCtl.layerID != "zoning" || !mapCtl.layerShown {
		t.Fatalf("map saw layer=%q visible=%t", mapCtl.layerID, mapCtl.layerShown)
	}
}

func TestSetLayerOpacity_BoundsChecked(t *testing.T) {
	t.Parallel()

	deps, mapCtl, _, _ := newTestDeps()
	result, _ := dispatchCall(t, deps, FuncSetLayerOpacity, map[string]any{"layer": "parcels", "opacity": 1.5})
	if ok, _ := result["success"].(bool); ok {
		t.Fatalf("result=%v, opacity above 1 must fail", result)
	}
	if mapCtl.opacityID != "" {
		t.Fatal("map touched despite invalid opacity")
	}

	result, _ = dispatchCall(t, deps, FuncSetLayerOpacity, map[string]any{"layer": "parcels", "opacity": 0.4})
	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v", result)
	}
	if mapCtl.opacityID != "parcels" || mapCtl.opacity != 0.4 {
		t.Fatalf("map saw %q/%v", mapCtl.opacityID, mapCtl.opacity)
	}
}

func TestResetMapView(t *testing.T) {
	t.Parallel()

	deps, mapCtl, _, _ := newTestDeps()
	result, _ := dispatchCall(t, deps, FuncResetMapView, nil)
	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v", result)
	}
	if mapCtl.resets != 1 {
		t.Fatalf("resets=%d", mapCtl.resets)
	}
}

func TestSearchHomes_NoMatchesMessage(t *testing.T) {
	t.Parallel()

	deps, _, _, _ := newTestDeps()
	result, recorder := dispatchCall(t, deps, FuncSearchHomes, map[string]any{
		"neighborhood": "Nonexistentville",
	})

	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v, empty search is not a failure", result)
	}
	if count, _ := result["count"].(int); count != 0 {
		t.Fatalf("count=%v", result["count"])
	}
	if result["message"] != NoHomesMessage {
		t.Fatalf("message=%v", result["message"])
	}
	if len(recorder.cards) != 0 {
		t.Fatalf("cards=%+v, empty search must not emit a card", recorder.cards)
	}
}

func TestSearchHomes_CapsListAtFive(t *testing.T) {
	t.Parallel()

	deps, _, _, data := newTestDeps()
	for i := 0; i < 8; i++ {
		data.AddHomes(store.Home{
			ID:           fmt.Sprintf("bulk-%d", i),
			Address:      fmt.Sprintf("%d00 E Test St", i+1),
			Neighborhood: "Harambee",
			Price:        200000,
			Bedrooms:     3,
		})
	}

	result, recorder := dispatchCall(t, deps, FuncSearchHomes, map[string]any{"neighborhood": "Harambee"})
	if count, _ := result["count"].(int); count != 8 {
		t.Fatalf("count=%v, want total match count", result["count"])
	}
	summaries, _ := result["homes"].([]map[string]any)
	if len(summaries) != 5 {
		t.Fatalf("homes=%d, want capped at 5", len(summaries))
	}
	if len(recorder.cards) != 1 {
		t.Fatalf("cards=%d, want 1", len(recorder.cards))
	}
	card := recorder.cards[0]
	if card.Kind != cards.KindPropertyList {
		t.Fatalf("card=%v", card.Kind)
	}
	if card.PropertyList.Total != 8 || len(card.PropertyList.IDs) != 5 {
		t.Fatalf("card list=%+v", card.PropertyList)
	}
}

func TestSearchCommercial_FiltersByType(t *testing.T) {
	t.Parallel()

	deps, _, _, _ := newTestDeps()
	result, recorder := dispatchCall(t, deps, FuncSearchCommercial, map[string]any{"property_type": "office"})
	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v", result)
	}
	count, _ := result["count"].(int)
	if count == 0 {
		t.Fatal("seeded store has office listings")
	}
	if len(recorder.cards) != 1 || recorder.cards[0].PropertyList.Category != "commercial" {
		t.Fatalf("cards=%+v", recorder.cards)
	}
}

func TestSearchDevelopmentSites_MinAcres(t *testing.T) {
	t.Parallel()

	deps, _, _, data := newTestDeps()
	data.AddSites(store.DevelopmentSite{ID: "big-1", Address: "1 Acreage Way", Zoning: "IO", AcreLot: 40})

	result, _ := dispatchCall(t, deps, FuncSearchSites, map[string]any{"min_acres": 30.0})
	if count, _ := result["count"].(int); count != 1 {
		t.Fatalf("count=%v, want 1", result["count"])
	}
}

func TestGetPropertyDetails_EmitsDetailCard(t *testing.T) {
	t.Parallel()

	deps, _, _, _ := newTestDeps()
	result, recorder := dispatchCall(t, deps, FuncPropertyDetails, map[string]any{
		"category": "home",
		"id":       "home-001",
	})

	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v", result)
	}
	property, _ := result["property"].(map[string]any)
	if property["id"] != "home-001" {
		t.Fatalf("property=%v", property)
	}
	if len(recorder.cards) != 1 || recorder.cards[0].Kind != cards.KindPropertyDetail {
		t.Fatalf("cards=%+v", recorder.cards)
	}
}

func TestGetPropertyDetails_UnknownID(t *testing.T) {
	t.Parallel()

	deps, _, _, _ := newTestDeps()
	result, recorder := dispatchCall(t, deps, FuncPropertyDetails, map[string]any{
		"category": "home",
		"id":       "home-999",
	})
	if ok, _ := result["success"].(bool); ok {
		t.Fatalf("result=%v, want failure", result)
	}
	if len(recorder.cards) != 0 {
		t.Fatalf("cards=%+v", recorder.cards)
	}
}

func TestGetPropertyDetails_CategoryEnumEnforced(t *testing.T) {
	t.Parallel()

	deps, _, _, _ := newTestDeps()
	result, _ := dispatchCall(t, deps, FuncPropertyDetails, map[string]any{
		"category": "castle",
		"id":       "home-001",
	})
	if ok, _ := result["success"].(bool); ok {
		t.Fatalf("result=%v, want enum rejection", result)
	}
}

func TestCaptureVisualization(t *testing.T) {
	t.Parallel()

	deps, _, _, _ := newTestDeps()
	result, recorder := dispatchCall(t, deps, FuncCaptureVisual, map[string]any{"description": "zoning overview"})

	if ok, _ := result["success"].(bool); !ok {
		t.Fatalf("result=%v", result)
	}
	if len(recorder.cards) != 1 || recorder.cards[0].Kind != cards.KindVisualization {
		t.Fatalf("cards=%+v", recorder.cards)
	}
	if recorder.cards[0].Visualization.Description != "zoning overview" {
		t.Fatalf("card=%+v", recorder.cards[0].Visualization)
	}
}
