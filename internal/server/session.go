package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/joeblew999/plat-transit/internal/app"
	"github.com/joeblew999/plat-transit/internal/authoring"
	"github.com/joeblew999/plat-transit/internal/humastar"
	"github.com/joeblew999/plat-transit/internal/quality"
	"github.com/joeblew999/plat-transit/internal/swisstopo"
)

// SessionCookie carries the session id.
const SessionCookie = "transit_session"

// withSession installs the caller's session state in the request context for
// the content page and every session-scoped API route.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessionScoped(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
		st, sid := s.store.Get(id)
		if sid != id {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(s.settings.Sessions.TTL().Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(app.NewContext(r.Context(), st)))
	})
}

func sessionScoped(path string) bool {
	return path == "/" ||
		path == "/api/v1/coverage" ||
		strings.HasPrefix(path, "/api/v1/editor/") ||
		strings.HasPrefix(path, "/api/v1/session/")
}

// LegendEntry is one row of the quality legend.
type LegendEntry struct {
	Tier  string
	Color string
	Label string
}

// ContentData feeds content.html.
type ContentData struct {
	humastar.PageData
	Center         [2]float64
	Zoom           int
	Placeholder    string
	TransportTypes []authoring.TransportType
	Legend         []LegendEntry
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.page == nil {
		http.Error(w, "page templates not loaded", http.StatusServiceUnavailable)
		return
	}

	st := app.FromContext(r.Context())
	vis := st.Visibility()
	lk := st.LineLookup()
	signals := map[string]any{
		"population": vis.Population,
		"transit":    vis.Transit,
		"swisstopo":  vis.SwissTopo,
		"zoom":       st.Zoom(),
		"lat":        0,
		"lng":        0,
		"linetype":   "",
		"interval":   "",
		"points":     lk.Total(),
		"lines":      lk.Lines,
		"error":      "",
		"success":    "",
	}

	style := st.Deps().Quality
	legend := make([]LegendEntry, 0, len(quality.Tiers))
	for i, t := range quality.Tiers {
		legend = append(legend, LegendEntry{
			Tier:  t.String(),
			Color: style.Colors[i],
			Label: "Quality class " + t.String(),
		})
	}

	data := ContentData{
		PageData:       humastar.BuildPageData(s.humaAPI, "editor", signals),
		Center:         st.Deps().Map.Center,
		Zoom:           st.Deps().Map.Zoom,
		Placeholder:    swisstopo.Placeholder,
		TransportTypes: authoring.TransportTypes,
		Legend:         legend,
	}

	html, err := s.page.Render("content.html", data)
	if err != nil {
		log.Printf("[server] content page: %v", err)
		http.Error(w, "rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}
