package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(Config{
		Host:    "localhost",
		Port:    "8086",
		DataDir: t.TempDir(),
		WebDir:  "../../web",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.store.Close() })
	return srv
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func TestContentPageStartsSession(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{"data-signals", "/api/v1/editor/map", "S-Bahn", "Quality class A"} {
		if !strings.Contains(body, want) {
			t.Errorf("page lacks %q", want)
		}
	}

	c := sessionCookie(w.Result())
	if c == nil || c.Value == "" {
		t.Fatal("no session cookie")
	}
	if !c.HttpOnly {
		t.Error("session cookie readable from scripts")
	}

	// the same cookie resolves to the same session
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/state", nil)
	req.AddCookie(c)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("state status = %d: %s", w.Code, w.Body.String())
	}
	if sessionCookie(w.Result()) != nil {
		t.Error("known session got a new cookie")
	}
	var state struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &state)
	if state.ID != c.Value {
		t.Errorf("state id = %q, want %q", state.ID, c.Value)
	}
	if n := srv.Sessions(); n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
}

func TestUnknownSessionIsReplaced(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/composition", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	c := sessionCookie(w.Result())
	if c == nil || c.Value == "stale" {
		t.Errorf("cookie = %v, want a fresh session", c)
	}
}

func TestHealthHasNoSession(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if sessionCookie(w.Result()) != nil {
		t.Error("health check created a session")
	}
	if srv.Sessions() != 0 {
		t.Errorf("sessions = %d, want 0", srv.Sessions())
	}
}

func TestUnknownPath(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestOpenAPIListsEditorRoutes(t *testing.T) {
	srv := newTestServer(t)
	paths := srv.OpenAPI().Paths
	for _, p := range []string{"/health", "/api/v1/ptdata", "/api/v1/editor/lines", "/api/v1/session/state"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("path %s not registered", p)
		}
	}
}

func TestInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transit.yaml")
	os.WriteFile(path, []byte("sessions:\n  maxSessions: 0\n"), 0644)
	if _, err := New(Config{DataDir: t.TempDir(), ConfigFile: path}); err == nil {
		t.Error("invalid config accepted")
	}
}
