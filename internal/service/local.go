package service

import (
	"context"
	"errors"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-transit/internal/collab"
	"github.com/joeblew999/plat-transit/internal/layers"
)

// LocalSource serves the collaborator calls in-process from a
// DatasetService, for deployments without a separate data API.
type LocalSource struct {
	ds *DatasetService
}

// NewLocalSource wraps ds.
func NewLocalSource(ds *DatasetService) *LocalSource {
	return &LocalSource{ds: ds}
}

// PopulationDensity returns the population cells as heat points.
func (l *LocalSource) PopulationDensity(ctx context.Context) ([]collab.HeatPoint, error) {
	cells, err := l.ds.Population()
	if err != nil {
		return nil, noData(err)
	}
	out := make([]collab.HeatPoint, len(cells))
	for i, c := range cells {
		out[i] = collab.HeatPoint{c.Lat, c.Lng, c.Intensity}
	}
	return out, nil
}

// PTData returns the transit stops.
func (l *LocalSource) PTData(ctx context.Context) (*geojson.FeatureCollection, error) {
	fc, err := l.ds.StopCollection()
	if err != nil {
		return nil, noData(err)
	}
	return fc, nil
}

// PostPoints classifies the submitted user points.
func (l *LocalSource) PostPoints(ctx context.Context, fc *geojson.FeatureCollection) (*geojson.FeatureCollection, error) {
	return Classify(fc), nil
}

func noData(err error) error {
	if errors.Is(err, ErrNoDataset) {
		return layers.ErrNoData
	}
	return err
}
