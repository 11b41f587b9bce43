// Package app holds the per-session application state: layer visibility,
// the authoring log, the map zoom, the info panel and the layer registry.
//
// State is mutated only through named actions (SetVisibility, PlacePoint,
// SubmitLine, ZoomEnd, ClickStop, ClickMap, MountMap). Each action updates
// the registry synchronously or hands off to a layers.Sync, so a read that
// follows a write in the same request always observes it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-transit/internal/authoring"
	"github.com/joeblew999/plat-transit/internal/layers"
	"github.com/joeblew999/plat-transit/internal/mapview"
	"github.com/joeblew999/plat-transit/internal/quality"
	"github.com/joeblew999/plat-transit/internal/stops"
	"github.com/joeblew999/plat-transit/internal/swisstopo"
)

// Layer names a toggleable overlay.
type Layer string

const (
	LayerPopulation Layer = "population"
	LayerTransit    Layer = "transit"
	LayerSwissTopo  Layer = "swisstopo"
)

// ErrUnknownLayer is returned for a visibility toggle on an unknown layer.
var ErrUnknownLayer = errors.New("unknown layer")

// ErrNoTransit is returned when a stop is clicked while no transit data is
// rendered.
var ErrNoTransit = errors.New("transit layer not present")

// ErrUnknownStop is returned when a clicked stop is not in the info layer.
var ErrUnknownStop = errors.New("unknown stop")

// Visibility holds the layer flags shared by all views of a session.
type Visibility struct {
	Population bool `json:"population" doc:"Population heatmap on"`
	Transit    bool `json:"transit" doc:"Transit quality layers on"`
	SwissTopo  bool `json:"swisstopo" doc:"Use the SwissTopo population map instead of the heatmap"`
}

// InfoPanel is the content of the population info box.
type InfoPanel struct {
	HTML        string `json:"html"`
	Text        string `json:"text"`
	Placeholder bool   `json:"placeholder"`
}

func placeholder() InfoPanel {
	return InfoPanel{Text: swisstopo.Placeholder, Placeholder: true}
}

// State is one session's application state.
type State struct {
	ID string

	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	bus *layers.Bus
	reg *layers.Registry

	population *layers.Sync
	transit    *layers.Sync
	userPoints *layers.Sync

	mu        sync.Mutex
	vis       Visibility
	log       *authoring.Log
	zoom      int
	info      InfoPanel
	lookupGen uint64
}

// New creates the state for session id. Background fetches stop when parent
// is cancelled or Close is called.
func New(parent context.Context, id string, deps Deps) *State {
	ctx, cancel := context.WithCancel(parent)
	bus := layers.NewBus()
	reg := layers.NewRegistry(bus)

	s := &State{
		ID:     id,
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		bus:    bus,
		reg:    reg,
		log:    authoring.New(),
		zoom:   deps.Map.Zoom,
		info:   placeholder(),
	}

	s.population = layers.NewSync(ctx, layers.Population, reg, s.fetchPopulation)
	s.transit = layers.NewSync(ctx, layers.Transit, reg, s.fetchTransit)
	s.transit.OnSettled = func(layers.State) { s.syncInfoLayer() }
	s.userPoints = layers.NewSync(ctx, layers.UserPoints, reg, s.fetchUserPoints)
	return s
}

// Close stops all background work of the session.
func (s *State) Close() {
	s.population.Close()
	s.transit.Close()
	s.userPoints.Close()
	s.cancel()
	s.bus.Close()
}

// Wait blocks until every fetch started so far has been applied or dropped.
func (s *State) Wait() {
	s.population.Wait()
	s.transit.Wait()
	s.userPoints.Wait()
}

// Registry exposes the session's layer registry for reading.
func (s *State) Registry() *layers.Registry { return s.reg }

// Deps returns the shared collaborators and settings.
func (s *State) Deps() Deps { return s.deps }

// Bus exposes the session's registry event bus.
func (s *State) Bus() *layers.Bus { return s.bus }

// Visibility returns the current flags.
func (s *State) Visibility() Visibility {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vis
}

// SetVisibility toggles one layer flag and drives its layer sync.
func (s *State) SetVisibility(layer Layer, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch layer {
	case LayerPopulation:
		s.vis.Population = on
	case LayerTransit:
		s.vis.Transit = on
	case LayerSwissTopo:
		s.vis.SwissTopo = on
		if !on {
			s.lookupGen++
			s.info = placeholder()
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}

	// The heatmap and the SwissTopo WMS layer are alternative views of the
	// same data; only the heatmap is a fetched overlay.
	s.population.SetVisible(s.vis.Population && !s.vis.SwissTopo)
	s.transit.SetVisible(s.vis.Transit)
	s.syncInfoLayerLocked()
	return nil
}

// ZoomEnd records the zoom reached after a zoom gesture and updates the
// zoom-dependent layers. Repeating the same zoom is a no-op.
func (s *State) ZoomEnd(zoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = zoom
	s.syncInfoLayerLocked()
}

// Zoom returns the last recorded zoom.
func (s *State) Zoom() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

func (s *State) syncInfoLayer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncInfoLayerLocked()
}

// syncInfoLayerLocked keeps the info layer in step with the transit layer
// and the zoom gate.
func (s *State) syncInfoLayerLocked() {
	h, ok := s.reg.Get(layers.Transit)
	if !ok || !s.deps.Map.Gate.InfoVisible(s.zoom) {
		s.reg.Remove(layers.TransitInfo)
		return
	}
	ql, ok := h.Payload.(*quality.Layers)
	if !ok {
		return
	}
	if cur, ok := s.reg.Get(layers.TransitInfo); ok && cur.Generation == h.Generation {
		return
	}
	s.reg.Put(layers.TransitInfo, h.Generation, ql.Info)
}

// PlacePoint places a new user stop at (lat, lng) and attributes it to the
// current line.
func (s *State) PlacePoint(lat, lng float64, visible bool) stops.Stop {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.log.PlacePoint(lat, lng, visible)
	s.authoringChangedLocked()
	return st
}

// SubmitLine appends a line. Invalid submissions change nothing.
func (s *State) SubmitLine(line authoring.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.log.SubmitLine(line); err != nil {
		return err
	}
	s.authoringChangedLocked()
	return nil
}

// ClickStop handles a click on an info marker: it returns the marker with its
// tooltip and seeds a user point at the stop.
func (s *State) ClickStop(number string) (quality.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.reg.Get(layers.TransitInfo)
	if !ok {
		return quality.Marker{}, ErrNoTransit
	}
	markers, _ := h.Payload.([]quality.Marker)
	for _, m := range markers {
		if m.Stop.Number == number {
			s.log.PlaceStop(m.Stop)
			s.authoringChangedLocked()
			return m, nil
		}
	}
	return quality.Marker{}, fmt.Errorf("%w: %s", ErrUnknownStop, number)
}

// authoringChangedLocked redraws the polylines and resubmits the user points.
func (s *State) authoringChangedLocked() {
	s.reg.Put(layers.Polylines, uint64(s.log.Len()), s.log.Polylines())
	if s.userPoints.Visible() {
		s.userPoints.Refresh()
	} else {
		s.userPoints.SetVisible(true)
	}
}

// Points returns the placed user points.
func (s *State) Points() []stops.Stop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Points()
}

// ServedPoints returns the placed points with the interval of the line each
// belongs to, ready for classification.
func (s *State) ServedPoints() []stops.Stop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stops.FromCollection(s.log.FeatureCollection())
}

// Lines returns the submitted lines.
func (s *State) Lines() []authoring.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Lines()
}

// LineLookup returns the per-line point bookkeeping.
func (s *State) LineLookup() authoring.LineIndexLookup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Lookup()
}

// Polylines returns the current polyline geometry.
func (s *State) Polylines() []authoring.Polyline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Polylines()
}

// Info returns the info panel content.
func (s *State) Info() InfoPanel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// ClickMap runs a population lookup at (lat, lng) when the SwissTopo variant
// is active. Only the newest click may update the panel; a lookup that
// finds nothing resets it to the placeholder.
func (s *State) ClickMap(ctx context.Context, lat, lng float64) InfoPanel {
	s.mu.Lock()
	if !s.vis.SwissTopo || s.deps.Lookup == nil {
		info := s.info
		s.mu.Unlock()
		return info
	}
	s.lookupGen++
	gen := s.lookupGen
	s.mu.Unlock()

	res, err := s.deps.Lookup.Lookup(ctx, orb.Point{lng, lat})

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.lookupGen {
		return s.info
	}
	switch {
	case err != nil:
		if !errors.Is(err, swisstopo.ErrNoFeature) {
			log.Printf("[lookup] session %s: %v", s.ID, err)
		}
		s.info = placeholder()
	default:
		s.info = InfoPanel{HTML: res.HTML, Text: res.Text}
	}
	return s.info
}

// MountMap loads the static agency overlay for a freshly mounted map.
func (s *State) MountMap(ctx context.Context) {
	if s.deps.Assets == nil {
		return
	}
	fc, err := s.deps.Assets.Agency(ctx)
	if err != nil || fc == nil {
		if err != nil {
			log.Printf("[assets] session %s: agency overlay: %v", s.ID, err)
		}
		s.reg.Remove(layers.Agency)
		return
	}
	s.reg.Put(layers.Agency, 0, fc)
}

// LayerState reports the lifecycle state of a fetched layer.
func (s *State) LayerState(name string) layers.State {
	switch name {
	case layers.Population:
		return s.population.State()
	case layers.Transit:
		return s.transit.State()
	case layers.UserPoints:
		return s.userPoints.State()
	}
	if s.reg.Has(name) {
		return layers.Present
	}
	return layers.Absent
}

// Composition returns what the session's map should currently show.
func (s *State) Composition() mapview.Composition {
	s.mu.Lock()
	view := mapview.View{Zoom: s.zoom, SwissTopo: s.vis.SwissTopo}
	s.mu.Unlock()
	return mapview.Compose(s.reg.Snapshot(), view, s.deps.Map)
}

func (s *State) fetchPopulation(ctx context.Context) (any, error) {
	if s.deps.Data == nil {
		return nil, layers.ErrNoData
	}
	pts, err := s.deps.Data.PopulationDensity(ctx)
	if err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return nil, layers.ErrNoData
	}
	return &mapview.HeatLayer{Points: pts, Radius: s.deps.Heatmap.Radius, Max: s.deps.Heatmap.Max}, nil
}

func (s *State) fetchTransit(ctx context.Context) (any, error) {
	if s.deps.Data == nil {
		return nil, layers.ErrNoData
	}
	fc, err := s.deps.Data.PTData(ctx)
	if err != nil {
		return nil, err
	}
	all := stops.FromCollection(fc)
	if len(all) == 0 {
		return nil, layers.ErrNoData
	}
	return quality.Derive(all, s.deps.Quality), nil
}

func (s *State) fetchUserPoints(ctx context.Context) (any, error) {
	s.mu.Lock()
	fc := s.log.FeatureCollection()
	s.mu.Unlock()

	if len(fc.Features) == 0 {
		return nil, layers.ErrNoData
	}
	if s.deps.Data == nil {
		return fc, nil
	}
	out, err := s.deps.Data.PostPoints(ctx, fc)
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Features) == 0 {
		return nil, layers.ErrNoData
	}
	return out, nil
}
