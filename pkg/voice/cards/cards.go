// Package cards defines the closed set of UI-renderable result payloads a
// function handler can attach to the chat transcript. Cards are produced
// only by local handlers, never decoded from the wire, so each variant is a
// concrete struct rather than an open map.
package cards

// Kind tags a card's shape.
type Kind string

const (
	KindMapHighlight   Kind = "map_highlight"
	KindPropertyList   Kind = "property_list"
	KindPropertyDetail Kind = "property_detail"
	KindZoningInfo     Kind = "zoning_info"
	KindVisualization  Kind = "visualization"
)

// Card is one structured, renderable result. Exactly one payload field is
// set, matching Kind.
type Card struct {
	Kind Kind

	MapHighlight   *MapHighlight
	PropertyList   *PropertyList
	PropertyDetail *PropertyDetail
	ZoningInfo     *ZoningInfo
	Visualization  *Visualization
}

// MapHighlight marks a geocoded location the map should fly to.
type MapHighlight struct {
	Label     string
	Longitude float64
	Latitude  float64
	Zoom      float64
}

// PropertyList summarizes a bounded search result.
type PropertyList struct {
	Category string
	Total    int
	IDs      []string
}

// PropertyDetail identifies a single property for a detail card.
type PropertyDetail struct {
	Category string
	ID       string
}

// ZoningInfo carries a zoning Q&A answer.
type ZoningInfo struct {
	Question string
	Answer   string
}

// Visualization references a captured or generated rendering.
type Visualization struct {
	Description string
	ImageRef    string
}

// NewMapHighlight builds a map highlight card.
func NewMapHighlight(h MapHighlight) Card {
	return Card{Kind: KindMapHighlight, MapHighlight: &h}
}

// NewPropertyList builds a property list card.
func NewPropertyList(p PropertyList) Card {
	return Card{Kind: KindPropertyList, PropertyList: &p}
}

// NewPropertyDetail builds a property detail card.
func NewPropertyDetail(p PropertyDetail) Card {
	return Card{Kind: KindPropertyDetail, PropertyDetail: &p}
}

// NewZoningInfo builds a zoning info card.
func NewZoningInfo(z ZoningInfo) Card {
	return Card{Kind: KindZoningInfo, ZoningInfo: &z}
}

// NewVisualization builds a visualization card.
func NewVisualization(v Visualization) Card {
	return Card{Kind: KindVisualization, Visualization: &v}
}
