// Package server wires configuration, the dataset store, the session store
// and the Huma API into one http.Handler.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-transit/internal/api"
	"github.com/joeblew999/plat-transit/internal/api/editor"
	"github.com/joeblew999/plat-transit/internal/app"
	"github.com/joeblew999/plat-transit/internal/collab"
	"github.com/joeblew999/plat-transit/internal/config"
	"github.com/joeblew999/plat-transit/internal/db"
	"github.com/joeblew999/plat-transit/internal/humastar"
	"github.com/joeblew999/plat-transit/internal/mapview"
	"github.com/joeblew999/plat-transit/internal/quality"
	"github.com/joeblew999/plat-transit/internal/service"
	"github.com/joeblew999/plat-transit/internal/swisstopo"
	"github.com/joeblew999/plat-transit/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string
	WebDir     string // Path to web/ directory for static files and templates
	ConfigFile string // Optional YAML settings, see internal/config
}

// Server is the transit HTTP server.
type Server struct {
	config   Config
	settings config.Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	links    *humastar.Links
	db       *sql.DB
	services *api.Services
	store    *app.Store
	renderer *templates.Renderer
	page     *templates.Renderer
	cancel   context.CancelFunc
}

// New creates a transit server. Missing datasets and a missing database are
// logged and leave the affected layers empty; only an invalid config file is
// an error.
func New(cfg Config) (*Server, error) {
	settings, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	mux := http.NewServeMux()
	links := humastar.NewLinks()

	humaConfig := huma.DefaultConfig("plat-transit API", "1.0.0")
	humaConfig.Info.Description = "Population and public transport quality map of Switzerland with line authoring."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:   cfg,
		settings: settings,
		mux:      mux,
		humaAPI:  humaAPI,
		links:    links,
		cancel:   cancel,
	}

	conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "transit"})
	if err != nil {
		log.Printf("[server] duckdb unavailable: %v", err)
	} else {
		s.db = conn
	}

	dataset := service.NewDatasetService(s.db, cfg.DataDir, settings.Datasets)
	st := dataset.Load(ctx)
	fmt.Printf("Loaded %d population cells and %d stops\n", st.PopulationCells, st.Stops)

	s.services = &api.Services{
		Dataset: dataset,
		Assets:  service.NewAssetService(cfg.DataDir, settings.Datasets.AgencyGeoJSON),
	}

	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.New(fragmentsDir); err == nil {
			s.renderer = r
			fmt.Printf("Loaded fragment templates from %s\n", fragmentsDir)
		} else {
			log.Printf("[server] fragments: %v", err)
		}
		if r, err := templates.New(filepath.Join(cfg.WebDir, "templates"), fragmentsDir); err == nil {
			s.page = r
		} else {
			log.Printf("[server] page templates: %v", err)
		}
	}

	s.store = app.NewStore(ctx, s.deps(dataset), settings.Sessions.MaxSessions, settings.Sessions.TTL())

	s.routes()
	s.links.Build(humaAPI)
	s.handler = s.withSession(mux)
	return s, nil
}

// deps builds the collaborators shared by every session.
func (s *Server) deps(dataset *service.DatasetService) app.Deps {
	cfg := s.settings

	var data app.DataSource = service.NewLocalSource(dataset)
	if cfg.Data.BaseURL != "" {
		data = collab.New(cfg.Data.BaseURL, collab.Options{
			Timeout:   cfg.Data.Timeout(),
			CacheSize: cfg.Data.CacheSize,
			CacheTTL:  cfg.Data.CacheTTL(),
		})
	}

	style := quality.DefaultStyle
	for i, c := range cfg.Quality.Colors {
		if c != "" {
			style.Colors[i] = c
		}
	}
	if cfg.Quality.Opacity > 0 {
		style.Opacity = cfg.Quality.Opacity
	}

	return app.Deps{
		Data: data,
		Lookup: swisstopo.New(swisstopo.Options{
			IdentifyURL: cfg.SwissTopo.IdentifyURL,
			PopupURL:    cfg.SwissTopo.PopupURL,
			Layer:       cfg.SwissTopo.Layer,
			TimeInstant: cfg.SwissTopo.TimeInstant,
			Lang:        cfg.SwissTopo.Lang,
			Timeout:     cfg.SwissTopo.Timeout(),
		}),
		Assets: s.services.Assets,
		Map: mapview.Options{
			Center:  cfg.Map.Center,
			Zoom:    cfg.Map.Zoom,
			TileURL: cfg.Map.TileURL,
			WMSURL:  cfg.Map.WMSURL,
			Gate: quality.ZoomGate{
				Threshold:      cfg.Quality.ZoomThreshold,
				GateFinestTier: cfg.Quality.FinestTierZoomGated,
			},
		},
		Heatmap: app.HeatmapStyle{Radius: cfg.Heatmap.Radius, Max: cfg.Heatmap.Max},
		Quality: style,
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the live session count.
func (s *Server) Sessions() int {
	return s.store.Len()
}

// Close closes every session and the database.
func (s *Server) Close() error {
	s.store.Close()
	s.cancel()
	return db.Close()
}

func (s *Server) routes() {
	// REST routes: Register* methods are discovered by AutoRegister
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))

	dataURL := s.settings.Data.BaseURL
	api.NewInfoHandler(s.config.DataDir, dataURL, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)
	api.NewSessionHandler(s.services.Dataset).RegisterRoutes(s.humaAPI)

	// Editor SSE routes using Huma + Datastar SDK
	editor.New(s.renderer).RegisterRoutes(s.humaAPI)

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	s.mux.HandleFunc("/", s.handleContent)
}
