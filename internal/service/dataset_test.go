package service

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-transit/internal/config"
	"github.com/joeblew999/plat-transit/internal/db"
	"github.com/joeblew999/plat-transit/internal/layers"
	"github.com/joeblew999/plat-transit/internal/stops"
)

const stopsJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[8.5400,47.3780]},
  "properties":{"Haltestellen_No":"8503000","Name":"Zürich HB","Bahnknoten":1,"Bahnlinie_Anz":"12","A_Intervall":4}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[8.5600,47.3700]},
  "properties":{"Haltestellen_No":8591000,"Name":"Kreuzplatz","TramBus_Anz":2,"C_Intervall":"7.5"}}
]}`

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestService(t *testing.T, dir string) *DatasetService {
	t.Helper()
	conn, err := db.Open(db.Config{})
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewDatasetService(conn, dir, config.DatasetConfig{
		PopulationCSV: "sources/population.csv",
		StopsGeoJSON:  "sources/stops.geojson",
		AgencyGeoJSON: "assets/agency.geojson",
	})
}

func TestIntensity(t *testing.T) {
	tests := []struct {
		pop, want float64
	}{
		{0, 0.5},
		{20, 1.5},
		{40, 4.5},
		{1000, MaxIntensity},
	}
	for _, tt := range tests {
		if got := Intensity(tt.pop); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Intensity(%v) = %v, want %v", tt.pop, got, tt.want)
		}
	}
}

func TestLoadProcessedPopulation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sources/population.csv", "lat,lng,intensity,pop_actual\n47.0,8.5,5,40\n47.1,8.6,0.5,3\n")
	s := newTestService(t, dir)

	st := s.Load(context.Background())
	if st.PopulationCells != 2 {
		t.Fatalf("status = %+v", st)
	}
	cells, err := s.Population()
	if err != nil {
		t.Fatal(err)
	}
	if c := cells[0]; c.Lat != 47 || c.Lng != 8.5 || c.Intensity != 5 || c.Population != 40 {
		t.Errorf("cell = %+v", c)
	}
}

func TestLoadStatpopPopulation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sources/population.csv", "E_KOORD;N_KOORD;B22BTOT\n2600000;1200000;40\n")
	s := newTestService(t, dir)
	s.Load(context.Background())

	cells, err := s.Population()
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 1 {
		t.Fatalf("cells = %d", len(cells))
	}
	c := cells[0]
	if math.Abs(c.Lat-46.951) > 0.001 || math.Abs(c.Lng-7.4386) > 0.001 {
		t.Errorf("position = %v,%v, want Bern", c.Lat, c.Lng)
	}
	if c.Intensity != 4.5 || c.Population != 40 {
		t.Errorf("cell = %+v", c)
	}
}

func TestMissingDatasets(t *testing.T) {
	s := newTestService(t, t.TempDir())
	st := s.Load(context.Background())
	if st.PopulationError == "" || st.StopsError == "" {
		t.Errorf("status = %+v", st)
	}
	if _, err := s.Population(); !errors.Is(err, ErrNoDataset) {
		t.Errorf("err = %v, want ErrNoDataset", err)
	}

	local := NewLocalSource(s)
	if _, err := local.PopulationDensity(context.Background()); !errors.Is(err, layers.ErrNoData) {
		t.Errorf("err = %v, want layers.ErrNoData", err)
	}
}

func TestLoadStops(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sources/stops.geojson", stopsJSON)
	s := newTestService(t, dir)
	s.Load(context.Background())

	all, err := s.Stops()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("stops = %d", len(all))
	}
	if all[0].Category != 1 {
		t.Errorf("rail node every 4 min: category %d, want 1", all[0].Category)
	}
	if all[1].Number != "8591000" || all[1].Category != 3 {
		t.Errorf("tram every 7.5 min: %+v", all[1])
	}

	n, err := db.Count(context.Background(), s.db, stopsTable)
	if err != nil || n != 2 {
		t.Errorf("stops table rows = %d, %v", n, err)
	}
}

func TestClassify(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	st := stops.Default("u1", orb.Point{8.5, 47}, true)
	st.Serve(stops.GroupRail, 15)
	fc.Append(st.Feature())
	fc.Append(geojson.NewFeature(orb.LineString{{8, 47}, {8.1, 47}}))

	out := Classify(fc)
	if len(out.Features) != 2 {
		t.Fatalf("features = %d", len(out.Features))
	}
	got, err := stops.FromFeature(out.Features[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.Category != 3 || got.Origin != stops.OriginUser {
		t.Errorf("stop = %+v", got)
	}
	if _, ok := out.Features[1].Geometry.(orb.LineString); !ok {
		t.Error("non-point feature altered")
	}
}

func TestCoverage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sources/stops.geojson", stopsJSON)
	writeFile(t, dir, "sources/population.csv",
		"lat,lng,intensity,pop_actual\n47.3781,8.5401,5,100\n46.0,7.0,1,50\n")
	s := newTestService(t, dir)
	s.Load(context.Background())

	res, err := s.Coverage(nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Served != 100 || res.Total != 150 || len(res.Unserved) != 1 {
		t.Errorf("result = %+v", res)
	}

	extra := stops.Default("u1", orb.Point{7.0, 46.0}, true)
	extra.Category = 5
	res, _ = s.Coverage([]stops.Stop{extra})
	if res.Served != 150 {
		t.Errorf("served with extra stop = %v, want 150", res.Served)
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sources/population.csv", "lat,lng,pop_actual\n")
	writeFile(t, dir, "sources/notes.txt", "x")
	writeFile(t, dir, "assets/agency.geojson", `{"type":"FeatureCollection","features":[]}`)
	s := newTestService(t, dir)

	files, err := s.Files()
	if err != nil {
		t.Fatal(err)
	}
	roles := map[string]string{}
	for _, f := range files {
		roles[f.Name] = f.Role
	}
	if len(files) != 2 || roles[filepath.Join("sources", "population.csv")] != "population" ||
		roles[filepath.Join("assets", "agency.geojson")] != "agency" {
		t.Errorf("files = %+v", files)
	}
}

func TestAgency(t *testing.T) {
	dir := t.TempDir()
	a := NewAssetService(dir, "assets/agency.geojson")
	if _, err := a.Agency(context.Background()); !errors.Is(err, ErrNoDataset) {
		t.Errorf("missing file: err = %v", err)
	}

	writeFile(t, dir, "assets/agency.geojson",
		`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[8.5,47]},"properties":{}}]}`)
	fc, err := a.Agency(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 {
		t.Errorf("features = %d", len(fc.Features))
	}
}
