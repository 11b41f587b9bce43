// Package editor contains the Datastar SSE handlers behind the interactive
// map. Every handler resolves the caller's session state, invokes one named
// action and streams the resulting map composition and UI fragments back.
package editor

import (
	"html/template"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-transit/internal/app"
	"github.com/joeblew999/plat-transit/internal/authoring"
	"github.com/joeblew999/plat-transit/internal/humastar"
	"github.com/joeblew999/plat-transit/internal/layers"
	"github.com/joeblew999/plat-transit/internal/templates"
)

// Custom DOM events dispatched to the map client.
const (
	EventComposition = "map-composition"
	EventTooltip     = "stop-tooltip"
)

// Fragment targets on the content page.
const (
	targetInfobox = "#infobox"
	targetStatus  = "#layer-status"
	targetLines   = "#line-list"
)

// Handler serves every editor route.
type Handler struct {
	humastar.Handler
}

// New creates the editor handler. renderer may be nil, in which case only
// signals and map events are streamed.
func New(renderer *templates.Renderer) *Handler {
	return &Handler{Handler: humastar.Handler{Renderer: renderer}}
}

func op(id, method, path, summary string) huma.Operation {
	return huma.Operation{
		OperationID: id,
		Method:      method,
		Path:        path,
		Summary:     summary,
		Tags:        []string{"editor"},
	}
}

// RegisterRoutes registers the editor SSE routes.
func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Register(api, op("mount", "GET", "/api/v1/editor/map", "Mount the map and stream its composition"), h.Mount)
	huma.Register(api, op("visibility", "POST", "/api/v1/editor/visibility", "Apply layer checkboxes"), h.Visibility)
	huma.Register(api, op("zoom", "POST", "/api/v1/editor/zoom", "Record a zoom-end"), h.Zoom)
	huma.Register(api, op("click", "POST", "/api/v1/editor/click", "Map click: population lookup"), h.Click)
	huma.Register(api, op("stop-click", "POST", "/api/v1/editor/stops/{id}/click", "Stop marker click"), h.StopClick)
	huma.Register(api, op("points", "POST", "/api/v1/editor/points", "Place a point"), h.PlacePoint)
	huma.Register(api, op("lines", "POST", "/api/v1/editor/lines", "Submit a line"), h.SubmitLine)
	huma.Register(api, op("events", "GET", "/api/v1/editor/events", "Stream layer changes"), h.Events)
}

// StatusData feeds the layer-status fragment.
type StatusData struct {
	Population string
	Transit    string
	Info       string
	UserPoints string
	Zoom       int
	Points     int
	Lines      int
}

// InfoboxData feeds the infobox fragment. HTML was sanitised by the lookup.
type InfoboxData struct {
	Placeholder bool
	Text        string
	HTML        template.HTML
}

// LineRowData feeds one line-row fragment.
type LineRowData struct {
	Number   int
	Type     authoring.TransportType
	Color    string
	Interval int
	Points   int
}

func statusOf(s *app.State) StatusData {
	lk := s.LineLookup()
	return StatusData{
		Population: s.LayerState(layers.Population).String(),
		Transit:    s.LayerState(layers.Transit).String(),
		Info:       s.LayerState(layers.TransitInfo).String(),
		UserPoints: s.LayerState(layers.UserPoints).String(),
		Zoom:       s.Zoom(),
		Points:     lk.Total(),
		Lines:      lk.Lines,
	}
}

func infoboxOf(info app.InfoPanel) InfoboxData {
	return InfoboxData{
		Placeholder: info.Placeholder,
		Text:        info.Text,
		HTML:        template.HTML(info.HTML),
	}
}

func lineRows(s *app.State) []any {
	lk := s.LineLookup()
	rows := make([]any, 0, lk.Lines)
	for i, l := range s.Lines() {
		n := 0
		if i < len(lk.Counts) {
			n = lk.Counts[i]
		}
		rows = append(rows, LineRowData{
			Number:   i + 1,
			Type:     l.Type,
			Color:    l.Type.Color(),
			Interval: l.Interval,
			Points:   n,
		})
	}
	return rows
}

// push streams the map composition and the status fragment.
func (h *Handler) push(sse humastar.SSE, s *app.State) {
	sse.Event(EventComposition, s.Composition())
	sse.Patch(h.Render("layer-status", statusOf(s)), targetStatus)
}

// pushAuthoring additionally refreshes the line list and counters.
func (h *Handler) pushAuthoring(sse humastar.SSE, s *app.State) {
	lk := s.LineLookup()
	sse.Signals(map[string]any{"points": lk.Total(), "lines": lk.Lines})
	sse.Patch(h.RenderList("line-row", lineRows(s), "No lines yet", "Choose a transport type and interval, then click the map"), targetLines)
	h.push(sse, s)
}
