// Package api defines the Huma REST routes: health, the collaborator
// dataset endpoints, coverage and the read side of the session state.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-transit/internal/humastar"
	"github.com/joeblew999/plat-transit/internal/service"
	"github.com/joeblew999/plat-transit/internal/stops"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Dataset *service.DatasetService
	Assets  *service.AssetService
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// GeoJSONOutput writes a pre-encoded GeoJSON document.
type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func geoJSON(fc *geojson.FeatureCollection) (*GeoJSONOutput, error) {
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding GeoJSON", err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: b}, nil
}

// APIHandler holds the REST handlers. Methods named Register* are
// discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	if svc == nil {
		svc = &Services{}
	}
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"health"},
	}, h.GetHealth)
}

// RegisterDatasets registers the collaborator endpoints.
func (h *APIHandler) RegisterDatasets(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-population",
		Method:      "GET",
		Path:        "/api/v1/population",
		Summary:     "Population density cells",
		Tags:        []string{"datasets"},
	}, h.GetPopulation)
	huma.Register(api, huma.Operation{
		OperationID: "get-ptdata",
		Method:      "GET",
		Path:        "/api/v1/ptdata",
		Summary:     "Transit stops as GeoJSON",
		Tags:        []string{"datasets"},
	}, h.GetPTData)
	huma.Register(api, huma.Operation{
		OperationID: "post-points",
		Method:      "POST",
		Path:        "/api/v1/points",
		Summary:     "Classify user points",
		Description: "Echoes the posted GeoJSON point collection with the stop category (Hst_Kat) filled in.",
		Tags:        []string{"datasets"},
	}, h.PostPoints)
	huma.Register(api, huma.Operation{
		OperationID: "list-stops",
		Method:      "GET",
		Path:        "/api/v1/stops",
		Summary:     "Transit stops, paged",
		Tags:        []string{"datasets"},
	}, h.ListStops)
	huma.Register(api, huma.Operation{
		OperationID: "list-sources",
		Method:      "GET",
		Path:        "/api/v1/sources",
		Summary:     "Dataset files in the data directory",
		Tags:        []string{"datasets"},
	}, h.ListSources)
	huma.Register(api, huma.Operation{
		OperationID: "reload-datasets",
		Method:      "POST",
		Path:        "/api/v1/sources/reload",
		Summary:     "Re-import the dataset files",
		Tags:        []string{"datasets"},
	}, h.ReloadDatasets)
	huma.Register(api, huma.Operation{
		OperationID: "get-agency",
		Method:      "GET",
		Path:        "/api/v1/agency",
		Summary:     "Transit agency overlay as GeoJSON",
		Tags:        []string{"datasets"},
	}, h.GetAgency)
}

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetPopulation(ctx context.Context, input *struct{}) (*struct{ Body []service.PopulationCell }, error) {
	out := &struct{ Body []service.PopulationCell }{Body: []service.PopulationCell{}}
	if h.svc.Dataset == nil {
		return out, nil
	}
	cells, err := h.svc.Dataset.Population()
	if err != nil {
		return out, nil
	}
	out.Body = cells
	return out, nil
}

func (h *APIHandler) GetPTData(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	if h.svc.Dataset == nil {
		return geoJSON(geojson.NewFeatureCollection())
	}
	fc, err := h.svc.Dataset.StopCollection()
	if err != nil {
		return geoJSON(geojson.NewFeatureCollection())
	}
	return geoJSON(fc)
}

func (h *APIHandler) PostPoints(ctx context.Context, input *struct{ RawBody []byte }) (*GeoJSONOutput, error) {
	fc, err := geojson.UnmarshalFeatureCollection(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid GeoJSON feature collection: " + err.Error())
	}
	return geoJSON(service.Classify(fc))
}

type StopsOutput struct {
	Body humastar.PageBody[stops.Stop]
}

func (h *APIHandler) ListStops(ctx context.Context, input *humastar.PageInput) (*StopsOutput, error) {
	var all []stops.Stop
	if h.svc.Dataset != nil {
		all, _ = h.svc.Dataset.Stops()
	}
	return &StopsOutput{Body: humastar.Page(all, *input)}, nil
}

func (h *APIHandler) ListSources(ctx context.Context, input *struct{}) (*struct{ Body []service.DatasetFile }, error) {
	out := &struct{ Body []service.DatasetFile }{Body: []service.DatasetFile{}}
	if h.svc.Dataset == nil {
		return out, nil
	}
	files, err := h.svc.Dataset.Files()
	if err != nil {
		return nil, huma.Error500InternalServerError("listing sources", err)
	}
	out.Body = files
	return out, nil
}

func (h *APIHandler) ReloadDatasets(ctx context.Context, input *struct{}) (*struct{ Body service.DatasetStatus }, error) {
	if h.svc.Dataset == nil {
		return nil, huma.Error503ServiceUnavailable("dataset service not available")
	}
	return &struct{ Body service.DatasetStatus }{Body: h.svc.Dataset.Load(ctx)}, nil
}

func (h *APIHandler) GetAgency(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	if h.svc.Assets == nil {
		return nil, huma.Error404NotFound("agency overlay not configured")
	}
	fc, err := h.svc.Assets.Agency(ctx)
	if errors.Is(err, service.ErrNoDataset) {
		return nil, huma.Error404NotFound("agency overlay not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("loading agency overlay", err)
	}
	return geoJSON(fc)
}
