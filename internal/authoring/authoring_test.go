package authoring

import (
	"errors"
	"testing"

	"github.com/joeblew999/plat-transit/internal/stops"
	"github.com/paulmach/orb"
)

func TestSubmitLineRequiresBothFields(t *testing.T) {
	tests := []struct {
		name string
		line Line
	}{
		{"missing type", Line{Interval: 10}},
		{"missing interval", Line{Type: Tram}},
		{"unknown type", Line{Type: "Ferry", Interval: 10}},
		{"empty", Line{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			err := l.SubmitLine(tt.line)
			if !errors.Is(err, ErrInvalidLine) {
				t.Fatalf("err=%v, want ErrInvalidLine", err)
			}
			if l.Len() != 0 {
				t.Errorf("log grew to %d entries", l.Len())
			}
			if lk := l.Lookup(); lk.Lines != 0 || len(lk.Counts) != 0 {
				t.Errorf("rejected line opened a bucket: %+v", lk)
			}
		})
	}
}

func TestPointsAttributedToLatestLine(t *testing.T) {
	l := New()
	l.PlacePoint(47.0, 8.0, true) // before any line

	if err := l.SubmitLine(Line{Type: Bus, Interval: 15}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		l.PlacePoint(47.1+float64(i)/100, 8.1, true)
	}
	if err := l.SubmitLine(Line{Type: SBahn, Interval: 30}); err != nil {
		t.Fatal(err)
	}
	const n = 5
	for i := 0; i < n; i++ {
		l.PlacePoint(47.2+float64(i)/100, 8.2, true)
	}

	lk := l.Lookup()
	if lk.Lines != 2 || len(lk.Counts) != 2 {
		t.Fatalf("lookup=%+v, want 2 lines", lk)
	}
	if lk.Counts[1] != n {
		t.Errorf("latest bucket=%d, want %d", lk.Counts[1], n)
	}
	if lk.Total() != len(l.Points()) {
		t.Errorf("total=%d, points=%d", lk.Total(), len(l.Points()))
	}

	polys := l.Polylines()
	if len(polys) != 2 {
		t.Fatalf("got %d polylines, want 2", len(polys))
	}
	if len(polys[0].Path) != 3 || len(polys[1].Path) != n {
		t.Errorf("path sizes %d,%d", len(polys[0].Path), len(polys[1].Path))
	}
	if polys[1].Color != SBahn.Color() {
		t.Errorf("color=%s, want %s", polys[1].Color, SBahn.Color())
	}
	if polys[1].Path[0] != (orb.Point{8.2, 47.2}) {
		t.Errorf("first vertex=%v", polys[1].Path[0])
	}
}

func TestEmptyLineRendersEmptyPolyline(t *testing.T) {
	l := New()
	if err := l.SubmitLine(Line{Type: Tram, Interval: 7}); err != nil {
		t.Fatal(err)
	}

	polys := l.Polylines()
	if len(polys) != 1 {
		t.Fatalf("got %d polylines", len(polys))
	}
	if len(polys[0].Path) != 0 {
		t.Errorf("path=%v, want empty", polys[0].Path)
	}
}

func TestPlaceStopKeepsAttributes(t *testing.T) {
	l := New()
	src := stops.Stop{Number: "8503000", Name: "Zürich HB", Rail: 12, Location: orb.Point{8.54, 47.378}}

	got := l.PlaceStop(src)
	if got.Origin != stops.OriginStop || got.Name != "Zürich HB" || got.Rail != 12 {
		t.Fatalf("unexpected stop %+v", got)
	}
	if fc := l.FeatureCollection(); len(fc.Features) != 1 {
		t.Fatalf("feature count=%d", len(fc.Features))
	}
}

func TestFeatureCollectionCarriesLineInterval(t *testing.T) {
	l := New()
	l.PlacePoint(47.0, 8.0, true)
	if err := l.SubmitLine(Line{Type: SBahn, Interval: 15}); err != nil {
		t.Fatal(err)
	}
	l.PlacePoint(47.1, 8.1, true)

	fc := l.FeatureCollection()
	if len(fc.Features) != 2 {
		t.Fatalf("features=%d, want 2", len(fc.Features))
	}
	first, _ := stops.FromFeature(fc.Features[0])
	second, _ := stops.FromFeature(fc.Features[1])
	if first.IntervalB != 0 {
		t.Errorf("unassigned point got interval %v", first.IntervalB)
	}
	if second.IntervalB != 15 || second.IntervalC != 0 {
		t.Errorf("second point intervals B=%v C=%v", second.IntervalB, second.IntervalC)
	}
}
