package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
)

// AssetService serves the static GeoJSON overlays shipped with the data
// directory.
type AssetService struct {
	agencyPath string
}

// NewAssetService creates an asset service. agency is relative to dataDir
// unless absolute.
func NewAssetService(dataDir, agency string) *AssetService {
	if agency != "" && !filepath.IsAbs(agency) {
		agency = filepath.Join(dataDir, agency)
	}
	return &AssetService{agencyPath: agency}
}

// Agency reads the transit agency boundary overlay. It is read on every call
// so edits to the file show up on the next map mount.
func (s *AssetService) Agency(ctx context.Context) (*geojson.FeatureCollection, error) {
	if s.agencyPath == "" {
		return nil, ErrNoDataset
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.agencyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDataset, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.agencyPath, err)
	}
	return fc, nil
}
