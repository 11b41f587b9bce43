package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-transit/internal/app"
	"github.com/joeblew999/plat-transit/internal/authoring"
	"github.com/joeblew999/plat-transit/internal/coverage"
	"github.com/joeblew999/plat-transit/internal/humastar"
	"github.com/joeblew999/plat-transit/internal/layers"
	"github.com/joeblew999/plat-transit/internal/mapview"
	"github.com/joeblew999/plat-transit/internal/service"
	"github.com/joeblew999/plat-transit/internal/stops"
)

// SessionHandler serves the read side of the caller's session state. Routes
// must be wrapped by the session middleware.
type SessionHandler struct {
	dataset *service.DatasetService
}

func NewSessionHandler(dataset *service.DatasetService) *SessionHandler {
	return &SessionHandler{dataset: dataset}
}

func (h *SessionHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-session-state",
		Method:      "GET",
		Path:        "/api/v1/session/state",
		Summary:     "Session visibility, zoom, authoring state and info panel",
		Tags:        []string{"session"},
	}, h.GetState)
	huma.Register(api, huma.Operation{
		OperationID: "get-session-composition",
		Method:      "GET",
		Path:        "/api/v1/session/composition",
		Summary:     "Layers the session's map currently shows, in draw order",
		Tags:        []string{"session"},
	}, h.GetComposition)
	huma.Register(api, huma.Operation{
		OperationID: "get-coverage",
		Method:      "GET",
		Path:        "/api/v1/coverage",
		Summary:     "Population served by transit stops",
		Tags:        []string{"session"},
	}, h.GetCoverage)
}

// SessionStateBody is the session snapshot.
type SessionStateBody struct {
	ID         string                    `json:"id" doc:"Session id"`
	Visibility app.Visibility            `json:"visibility"`
	Zoom       int                       `json:"zoom" doc:"Last zoom-end level"`
	Layers     map[string]string         `json:"layers" doc:"Lifecycle state per fetched layer"`
	Points     []stops.Stop              `json:"points" doc:"Placed user points"`
	Lines      []authoring.Line          `json:"lines" doc:"Submitted lines"`
	Lookup     authoring.LineIndexLookup `json:"lookup" doc:"Points per line"`
	Info       app.InfoPanel             `json:"info" doc:"Population info panel"`
}

// Actions offers the lookup only under the SwissTopo variant and stop
// clicks only while stop markers are shown.
func (b SessionStateBody) Actions() []humastar.Action {
	var out []humastar.Action
	if b.Visibility.SwissTopo {
		out = append(out, humastar.Action{
			Rel: "lookup", Href: "/api/v1/editor/click", Method: "POST", Title: "Look up population",
		})
	}
	if b.Layers[layers.TransitInfo] == layers.Present.String() {
		out = append(out, humastar.Action{
			Rel: "stop-click", Href: "/api/v1/editor/stops/{id}/click", Method: "POST", Title: "Place a point at a stop",
		})
	}
	return out
}

// StateBody snapshots s.
func StateBody(s *app.State) SessionStateBody {
	states := map[string]string{}
	for _, name := range []string{layers.Population, layers.Transit, layers.TransitInfo, layers.UserPoints, layers.Polylines, layers.Agency} {
		states[name] = s.LayerState(name).String()
	}
	points := s.Points()
	if points == nil {
		points = []stops.Stop{}
	}
	lines := s.Lines()
	if lines == nil {
		lines = []authoring.Line{}
	}
	return SessionStateBody{
		ID:         s.ID,
		Visibility: s.Visibility(),
		Zoom:       s.Zoom(),
		Layers:     states,
		Points:     points,
		Lines:      lines,
		Lookup:     s.LineLookup(),
		Info:       s.Info(),
	}
}

func (h *SessionHandler) GetState(ctx context.Context, input *struct{}) (*struct{ Body SessionStateBody }, error) {
	return &struct{ Body SessionStateBody }{Body: StateBody(app.FromContext(ctx))}, nil
}

func (h *SessionHandler) GetComposition(ctx context.Context, input *struct{}) (*struct{ Body mapview.Composition }, error) {
	return &struct{ Body mapview.Composition }{Body: app.FromContext(ctx).Composition()}, nil
}

type CoverageInput struct {
	WithUserPoints bool `query:"withUserPoints" doc:"Count the session's user points as additional stops"`
	Unserved       bool `query:"unserved" doc:"Include the unserved cells"`
}

func (h *SessionHandler) GetCoverage(ctx context.Context, input *CoverageInput) (*struct{ Body coverage.Result }, error) {
	if h.dataset == nil {
		return nil, huma.Error503ServiceUnavailable("dataset service not available")
	}
	var extra []stops.Stop
	if input.WithUserPoints {
		extra = app.FromContext(ctx).ServedPoints()
	}
	res, err := h.dataset.Coverage(extra)
	if errors.Is(err, service.ErrNoDataset) {
		return nil, huma.Error503ServiceUnavailable("population or stop data not loaded")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("coverage", err)
	}
	if !input.Unserved {
		res.Unserved = nil
	}
	return &struct{ Body coverage.Result }{Body: res}, nil
}
