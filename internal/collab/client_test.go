package collab

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestPopulationDensityParsesStrings(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/population" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `[{"lat":"47.0","lng":"8.5","intensity":"5"},{"lat":"x","lng":"8","intensity":"1"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	pts, err := c.PopulationDensity(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 1 || pts[0] != (HeatPoint{47.0, 8.5, 5}) {
		t.Fatalf("points=%v, want [[47 8.5 5]]", pts)
	}

	// second call is served from cache
	if _, err := c.PopulationDensity(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("hits=%d, want 1", hits.Load())
	}

	c.Invalidate()
	c.PopulationDensity(context.Background())
	if hits.Load() != 2 {
		t.Errorf("hits after invalidate=%d, want 2", hits.Load())
	}
}

func TestEmptyAndFailingResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty array", 200, `[]`},
		{"no content", 204, ``},
		{"server error", 500, `{"error":"x"}`},
		{"garbage", 200, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			pts, err := New(srv.URL, Options{}).PopulationDensity(context.Background())
			if err == nil || pts != nil {
				t.Fatalf("pts=%v err=%v, want nil with error", pts, err)
			}
		})
	}
}

func TestPTDataEmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"type":"FeatureCollection","features":[]}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, Options{}).PTData(context.Background())
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("err=%v, want ErrEmpty", err)
	}
}

func TestPostPointsEcho(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{8.5, 47.0}))

	out, err := New(srv.URL+"/", Options{}).PostPoints(context.Background(), fc)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Features) != 1 {
		t.Fatalf("features=%d, want 1", len(out.Features))
	}
}

func TestSharedLoadSurvivesCallerCancel(t *testing.T) {
	hit := make(chan struct{}, 2)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit <- struct{}{}
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		io.WriteString(w, `[{"lat":47.0,"lng":8.5,"intensity":5}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.PopulationDensity(ctxA)
		errA <- err
	}()
	<-hit

	errB := make(chan error, 1)
	go func() {
		_, err := c.PopulationDensity(context.Background())
		errB <- err
	}()
	cancelA()
	time.Sleep(50 * time.Millisecond)
	close(release)

	select {
	case err := <-errB:
		if err != nil {
			t.Fatalf("second caller failed after first cancelled: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never returned")
	}
	<-errA

	if _, err := c.cache.Get(keyPopulation); err != nil {
		t.Errorf("shared load not cached: %v", err)
	}
}
