package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-transit/internal/app"
	"github.com/joeblew999/plat-transit/internal/humastar"
)

// Mount loads the static overlays and streams the initial map state.
func (h *Handler) Mount(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	s := app.FromContext(ctx)
	s.MountMap(ctx)
	return h.Stream(func(sse humastar.SSE) {
		vis := s.Visibility()
		sse.Signals(map[string]any{
			"population": vis.Population,
			"transit":    vis.Transit,
			"swisstopo":  vis.SwissTopo,
		})
		sse.Patch(h.Render("infobox", infoboxOf(s.Info())), targetInfobox)
		h.pushAuthoring(sse, s)
	}), nil
}

// Visibility applies the layer checkbox signals that are present.
func (h *Handler) Visibility(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	s := app.FromContext(ctx)
	for _, layer := range []app.Layer{app.LayerSwissTopo, app.LayerPopulation, app.LayerTransit} {
		if !signals.Has(string(layer)) {
			continue
		}
		if err := s.SetVisibility(layer, signals.Bool(string(layer))); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.Render("infobox", infoboxOf(s.Info())), targetInfobox)
		h.push(sse, s)
	}), nil
}

// Zoom records a zoom-end.
func (h *Handler) Zoom(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("zoom") {
		return nil, huma.Error400BadRequest("zoom is required")
	}
	zoom := signals.Int("zoom")
	if zoom < 0 || zoom > 22 {
		return nil, huma.Error400BadRequest(fmt.Sprintf("zoom %d out of range", zoom))
	}
	s := app.FromContext(ctx)
	s.ZoomEnd(zoom)
	return h.Stream(func(sse humastar.SSE) {
		h.push(sse, s)
	}), nil
}

// Click runs the population lookup for a map click.
func (h *Handler) Click(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("lat") || !signals.Has("lng") {
		return nil, huma.Error400BadRequest("lat and lng are required")
	}
	s := app.FromContext(ctx)
	info := s.ClickMap(ctx, signals.Float("lat"), signals.Float("lng"))
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.Render("infobox", infoboxOf(info)), targetInfobox)
	}), nil
}

// StopClickInput names the clicked info marker.
type StopClickInput struct {
	ID string `path:"id" doc:"Stop number (Haltestellen_No)" example:"8503000"`
}

// TooltipData is the detail of the stop-tooltip event.
type TooltipData struct {
	Number string     `json:"number"`
	HTML   string     `json:"html"`
	At     [2]float64 `json:"at"`
}

// StopClick shows the stop tooltip and seeds a point at the stop.
func (h *Handler) StopClick(ctx context.Context, input *StopClickInput) (*huma.StreamResponse, error) {
	s := app.FromContext(ctx)
	m, err := s.ClickStop(input.ID)
	switch {
	case errors.Is(err, app.ErrUnknownStop):
		return nil, huma.Error404NotFound(err.Error())
	case errors.Is(err, app.ErrNoTransit):
		return nil, huma.Error409Conflict("stop markers are not shown")
	case err != nil:
		return nil, huma.Error500InternalServerError("stop click", err)
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Event(EventTooltip, TooltipData{
			Number: m.Stop.Number,
			HTML:   m.Tooltip,
			At:     [2]float64{m.Stop.Location.Lat(), m.Stop.Location.Lon()},
		})
		h.pushAuthoring(sse, s)
	}), nil
}
