package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir string
	dataURL string
	dbOK    bool
}

// NewInfoHandler describes the running service. dataURL is empty when the
// collaborator calls are served in-process.
func NewInfoHandler(dataDir, dataURL string, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dataURL: dataURL, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-info",
		Method:      "GET",
		Path:        "/api/v1/info",
		Summary:     "Service information",
		Tags:        []string{"health"},
	}, h.GetInfo)
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DataURL  string   `json:"data_url,omitempty" doc:"External collaborator API, empty when served in-process"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-transit",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		DataURL:  h.dataURL,
		DB:       h.dbOK,
		Features: []string{"population-heatmap", "quality-tiers", "line-authoring", "swisstopo-lookup", "coverage", "duckdb"},
	}}, nil
}
