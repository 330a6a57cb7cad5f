// Package mke is the MKE.dev function set: the dispatch descriptors the
// voice session declares at setup, wired to the map, data, and zoning
// collaborators the host application owns.
package mke

import "context"

// MapController is the map-state collaborator. Handlers mutate the map
// through it; the session client never touches it directly.
type MapController interface {
	FlyTo(longitude, latitude, zoom float64) error
	SetLayerVisibility(id string, visible bool) error
	SetLayerOpacity(id string, opacity float64) error
	ResetView() error
	CaptureScreenshot(ctx context.Context) (string, error)
}

// ZoningExpert answers zoning-code questions through a separate
// text-based agent.
type ZoningExpert interface {
	Ask(ctx context.Context, question string) (string, error)
}
