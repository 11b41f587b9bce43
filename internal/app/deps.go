package app

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-transit/internal/collab"
	"github.com/joeblew999/plat-transit/internal/mapview"
	"github.com/joeblew999/plat-transit/internal/quality"
	"github.com/joeblew999/plat-transit/internal/swisstopo"
)

// DataSource is the set of data collaborators a session consumes.
type DataSource interface {
	PopulationDensity(ctx context.Context) ([]collab.HeatPoint, error)
	PTData(ctx context.Context) (*geojson.FeatureCollection, error)
	PostPoints(ctx context.Context, fc *geojson.FeatureCollection) (*geojson.FeatureCollection, error)
}

// Lookuper resolves population info for a clicked position.
type Lookuper interface {
	Lookup(ctx context.Context, p orb.Point) (swisstopo.Info, error)
}

// AssetSource loads static overlays.
type AssetSource interface {
	Agency(ctx context.Context) (*geojson.FeatureCollection, error)
}

// Deps are the collaborators and settings shared by all sessions.
type Deps struct {
	Data    DataSource
	Lookup  Lookuper
	Assets  AssetSource
	Map     mapview.Options
	Heatmap HeatmapStyle
	Quality quality.Style
}

// HeatmapStyle holds heat layer rendering options.
type HeatmapStyle struct {
	Radius int
	Max    float64
}
