// Package config loads the optional YAML configuration of the transit
// service. CLI flags (see cmd/transit) cover the server basics; this file
// covers data endpoints, map defaults and layer styling.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DataConfig points at the population/transit collaborators.
type DataConfig struct {
	// BaseURL of the collaborator API. Empty means this service's own
	// dataset endpoints.
	BaseURL    string `yaml:"baseURL" validate:"omitempty,url"`
	TimeoutMS  int    `yaml:"timeoutMS" validate:"gte=0"`
	CacheTTLMS int    `yaml:"cacheTTLMS" validate:"gte=0"`
	CacheSize  int    `yaml:"cacheSize" validate:"gte=0"`
}

// Timeout returns the request timeout.
func (c DataConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CacheTTL returns how long fetched collections are kept.
func (c DataConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMS) * time.Millisecond
}

// SwissTopoConfig describes the geo.admin.ch lookup services.
type SwissTopoConfig struct {
	IdentifyURL string `yaml:"identifyURL" validate:"required,url"`
	PopupURL    string `yaml:"popupURL" validate:"required,url"`
	Layer       string `yaml:"layer" validate:"required"`
	TimeInstant int    `yaml:"timeInstant" validate:"gte=0"`
	Lang        string `yaml:"lang" validate:"required,oneof=de fr it rm en"`
	TimeoutMS   int    `yaml:"timeoutMS" validate:"gte=0"`
}

// Timeout returns the lookup request timeout.
func (c SwissTopoConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// MapConfig holds the base map defaults.
type MapConfig struct {
	Center  [2]float64 `yaml:"center"` // lat, lng
	Zoom    int        `yaml:"zoom" validate:"gte=0,lte=20"`
	TileURL string     `yaml:"tileURL" validate:"required"`
	WMSURL  string     `yaml:"wmsURL" validate:"omitempty,url"`
}

// HeatmapConfig holds heat layer rendering options.
type HeatmapConfig struct {
	Radius int     `yaml:"radius" validate:"gt=0"`
	Max    float64 `yaml:"max" validate:"gt=0"`
}

// QualityConfig styles the quality-tier layers.
type QualityConfig struct {
	ZoomThreshold       int       `yaml:"zoomThreshold" validate:"gte=0,lte=20"`
	FinestTierZoomGated bool      `yaml:"finestTierZoomGated"`
	Colors              [4]string `yaml:"colors"`
	Opacity             float64   `yaml:"opacity" validate:"gte=0,lte=1"`
}

// DatasetConfig names the files loaded into DuckDB, relative to the data dir.
type DatasetConfig struct {
	PopulationCSV string `yaml:"populationCSV"`
	StopsGeoJSON  string `yaml:"stopsGeoJSON"`
	AgencyGeoJSON string `yaml:"agencyGeoJSON"`
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	MaxSessions int `yaml:"maxSessions" validate:"gt=0"`
	TTLMinutes  int `yaml:"ttlMinutes" validate:"gt=0"`
}

// TTL returns the idle lifetime of a session.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// Config is the root configuration.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	SwissTopo SwissTopoConfig `yaml:"swisstopo" validate:"required"`
	Map       MapConfig       `yaml:"map" validate:"required"`
	Heatmap   HeatmapConfig   `yaml:"heatmap" validate:"required"`
	Quality   QualityConfig   `yaml:"quality"`
	Datasets  DatasetConfig   `yaml:"datasets"`
	Sessions  SessionConfig   `yaml:"sessions" validate:"required"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Data: DataConfig{
			TimeoutMS:  10_000,
			CacheTTLMS: 5 * 60_000,
			CacheSize:  64,
		},
		SwissTopo: SwissTopoConfig{
			IdentifyURL: "https://api3.geo.admin.ch/rest/services/all/MapServer/identify",
			PopupURL:    "https://api3.geo.admin.ch/rest/services/ech/MapServer",
			Layer:       "ch.bfs.volkszaehlung-bevoelkerungsstatistik_einwohner",
			TimeInstant: 2021,
			Lang:        "en",
			TimeoutMS:   5_000,
		},
		Map: MapConfig{
			Center:  [2]float64{47.36, 8.53},
			Zoom:    10,
			TileURL: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			WMSURL:  "https://wms.geo.admin.ch/",
		},
		Heatmap: HeatmapConfig{Radius: 15, Max: 20},
		Quality: QualityConfig{
			ZoomThreshold: 12,
			Colors:        [4]string{"#700038", "#9966ff", "#00b000", "#b3ff40"},
			Opacity:       0.35,
		},
		Datasets: DatasetConfig{
			PopulationCSV: "sources/population.csv",
			StopsGeoJSON:  "sources/stops.geojson",
			AgencyGeoJSON: "assets/agency.geojson",
		},
		Sessions: SessionConfig{MaxSessions: 1000, TTLMinutes: 24 * 60},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func Validate(cfg Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
