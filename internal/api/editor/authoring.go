package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-transit/internal/app"
	"github.com/joeblew999/plat-transit/internal/authoring"
	"github.com/joeblew999/plat-transit/internal/geo"
	"github.com/joeblew999/plat-transit/internal/humastar"
)

// PlacePoint places a user point at the clicked position.
func (h *Handler) PlacePoint(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("lat") || !signals.Has("lng") {
		return nil, huma.Error400BadRequest("lat and lng are required")
	}
	lat, lng := signals.Float("lat"), signals.Float("lng")
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, huma.Error400BadRequest(fmt.Sprintf("position %v,%v out of range", lat, lng))
	}
	visible := true
	if signals.Has("visible") {
		visible = signals.Bool("visible")
	}

	s := app.FromContext(ctx)
	st := s.PlacePoint(lat, lng, visible)
	return h.Stream(func(sse humastar.SSE) {
		if !geo.InSwitzerland(st.Location) {
			sse.Error("Point is outside Switzerland")
		}
		h.pushAuthoring(sse, s)
	}), nil
}

// SubmitLine appends a line from the form signals. Invalid submissions are
// reported to the form and change nothing.
func (h *Handler) SubmitLine(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	line := authoring.Line{
		Type:     authoring.TransportType(signals.String("linetype")),
		Interval: signals.Int("interval"),
	}

	s := app.FromContext(ctx)
	err = s.SubmitLine(line)
	return h.Stream(func(sse humastar.SSE) {
		if errors.Is(err, authoring.ErrInvalidLine) {
			sse.Error("Choose a transport type and an interval between 1 and 240 minutes")
			return
		}
		sse.Signals(map[string]any{"linetype": "", "interval": "", "error": ""})
		sse.Success(fmt.Sprintf("%s line every %d min added", line.Type, line.Interval))
		h.pushAuthoring(sse, s)
	}), nil
}
