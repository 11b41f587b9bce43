package editor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-transit/internal/app"
	"github.com/joeblew999/plat-transit/internal/humastar"
)

// Events streams the session's map composition whenever a layer is added,
// replaced or removed, until the client disconnects.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	s := app.FromContext(ctx)
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ch := s.Bus().Subscribe()
			defer s.Bus().Unsubscribe(ch)

			h.push(sse, s)
			for {
				select {
				case <-humaCtx.Context().Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					h.push(sse, s)
					sse.Event("layer-changed", map[string]any{
						"layer":      ev.Layer,
						"action":     ev.Action,
						"generation": ev.Generation,
					})
				}
			}
		},
	}, nil
}
