// Package mapview assembles what a map should show: the base tile layer,
// the optional SwissTopo WMS layer and the overlays currently rendered in a
// layer registry.
package mapview

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-transit/internal/authoring"
	"github.com/joeblew999/plat-transit/internal/collab"
	"github.com/joeblew999/plat-transit/internal/layers"
	"github.com/joeblew999/plat-transit/internal/quality"
)

// Overlay kinds understood by the client.
const (
	KindHeat      = "heat"
	KindCircles   = "circles"
	KindMarkers   = "markers"
	KindPoints    = "points"
	KindPolylines = "polylines"
	KindGeoJSON   = "geojson"
)

// WMSPopulationLayer is the SwissTopo population statistics layer.
const WMSPopulationLayer = "ch.bfs.volkszaehlung-bevoelkerungsstatistik_einwohner"

// TileLayer is the raster base map.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// WMSLayer is a transparent WMS overlay.
type WMSLayer struct {
	URL         string  `json:"url"`
	Layers      string  `json:"layers"`
	Format      string  `json:"format"`
	Transparent bool    `json:"transparent"`
	Opacity     float64 `json:"opacity"`
}

// HeatLayer is the payload of the population layer.
type HeatLayer struct {
	Points []collab.HeatPoint `json:"points"`
	Radius int                `json:"radius"`
	Max    float64            `json:"max"`
}

// Overlay is one rendered layer in draw order.
type Overlay struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Generation uint64  `json:"generation"`
	Color      string  `json:"color,omitempty"`
	Opacity    float64 `json:"opacity,omitempty"`
	Data       any     `json:"data"`
}

// Composition is the full description of a map at one instant.
type Composition struct {
	Center   [2]float64 `json:"center"`
	Zoom     int        `json:"zoom"`
	Base     TileLayer  `json:"base"`
	WMS      *WMSLayer  `json:"wms,omitempty"`
	Overlays []Overlay  `json:"overlays"`
}

// Names returns overlay names in draw order.
func (c Composition) Names() []string {
	out := make([]string, len(c.Overlays))
	for i, o := range c.Overlays {
		out[i] = o.Name
	}
	return out
}

// Options are the static map settings.
type Options struct {
	Center  [2]float64
	Zoom    int
	TileURL string
	WMSURL  string
	Gate    quality.ZoomGate
}

// View is the per-session state that affects composition.
type View struct {
	Zoom      int
	SwissTopo bool
}

// Compose builds a composition from a registry snapshot. Overlays are drawn
// agency first, then population, quality tiers outer to inner, stop markers,
// user points and finally user polylines.
func Compose(snap map[string]layers.Handle, view View, opts Options) Composition {
	zoom := view.Zoom
	if zoom == 0 {
		zoom = opts.Zoom
	}
	c := Composition{
		Center: opts.Center,
		Zoom:   zoom,
		Base: TileLayer{
			URL:         opts.TileURL,
			Attribution: "&copy; OpenStreetMap contributors",
		},
		Overlays: []Overlay{},
	}
	if view.SwissTopo && opts.WMSURL != "" {
		c.WMS = &WMSLayer{
			URL:         opts.WMSURL,
			Layers:      WMSPopulationLayer,
			Format:      "image/png",
			Transparent: true,
			Opacity:     0.5,
		}
	}

	if h, ok := snap[layers.Agency]; ok {
		if fc, ok := h.Payload.(*geojson.FeatureCollection); ok {
			c.add(h, KindGeoJSON, fc)
		}
	}
	if h, ok := snap[layers.Population]; ok && !view.SwissTopo {
		if heat, ok := h.Payload.(*HeatLayer); ok {
			c.add(h, KindHeat, heat)
		}
	}
	if h, ok := snap[layers.Transit]; ok {
		if ql, ok := h.Payload.(*quality.Layers); ok {
			for _, tier := range ql.DrawOrder() {
				t := tierOf(tier.Tier)
				if !opts.Gate.TierVisible(t, zoom) {
					continue
				}
				c.Overlays = append(c.Overlays, Overlay{
					Name:       layers.Transit + "-" + tier.Tier,
					Kind:       KindCircles,
					Generation: h.Generation,
					Color:      tier.Color,
					Opacity:    tier.Opacity,
					Data:       tier.Circles,
				})
			}
		}
	}
	if h, ok := snap[layers.TransitInfo]; ok {
		if markers, ok := h.Payload.([]quality.Marker); ok {
			c.add(h, KindMarkers, markers)
		}
	}
	if h, ok := snap[layers.UserPoints]; ok {
		if fc, ok := h.Payload.(*geojson.FeatureCollection); ok {
			c.add(h, KindPoints, fc)
		}
	}
	if h, ok := snap[layers.Polylines]; ok {
		if polys, ok := h.Payload.([]authoring.Polyline); ok {
			c.add(h, KindPolylines, polys)
		}
	}
	return c
}

func (c *Composition) add(h layers.Handle, kind string, data any) {
	c.Overlays = append(c.Overlays, Overlay{
		Name:       h.Name,
		Kind:       kind,
		Generation: h.Generation,
		Data:       data,
	})
}

func tierOf(name string) quality.Tier {
	for _, t := range quality.Tiers {
		if t.String() == name {
			return t
		}
	}
	return quality.TierD
}
