package humastar

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
)

// PageData holds what a page template needs from the API so the HTML never
// hardcodes URLs or signal names.
type PageData struct {
	// Signals is the JSON for data-signals initialisation.
	Signals string
	// Routes maps operation IDs of tagged operations to their paths.
	Routes map[string]string
}

// BuildPageData collects the routes of operations tagged tag and encodes
// the initial signals.
func BuildPageData(api huma.API, tag string, signals map[string]any) PageData {
	return PageData{
		Signals: SignalsJSON(signals),
		Routes:  Routes(api, tag),
	}
}

// Routes maps the operation ID of every operation tagged tag to its path.
func Routes(api huma.API, tag string) map[string]string {
	routes := map[string]string{}
	for p, pi := range api.OpenAPI().Paths {
		for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
			if op == nil || op.OperationID == "" || !hasTag(op.Tags, tag) {
				continue
			}
			routes[op.OperationID] = p
		}
	}
	return routes
}

// SignalsJSON encodes signals for a data-signals attribute.
func SignalsJSON(signals map[string]any) string {
	if signals == nil {
		return "{}"
	}
	b, err := json.Marshal(signals)
	if err != nil {
		return "{}"
	}
	return string(b)
}
