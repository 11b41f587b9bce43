package quality

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-transit/internal/stops"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		group    stops.Group
		interval float64
		want     int
	}{
		{stops.GroupRailNode, 3, 1},
		{stops.GroupRail, 4.9, 1},
		{stops.GroupLocal, 4, 2},
		{stops.GroupLocal, 5, 3},
		{stops.GroupRail, 15, 3},
		{stops.GroupLocal, 30, 5},
		{stops.GroupRailNode, 60, 4},
		{stops.GroupLocal, 60, 0},
		{stops.GroupRail, 61, 0},
		{stops.GroupLocal, 0, 0},
	}

	for _, tt := range tests {
		if got := CategoryFor(tt.group, tt.interval); got != tt.want {
			t.Errorf("CategoryFor(%d, %v) = %d, want %d", tt.group, tt.interval, got, tt.want)
		}
	}
}

func TestClassifyPicksBestGroup(t *testing.T) {
	s := stops.Stop{IntervalB: 30, IntervalC: 7}
	if got := Classify(s); got != 3 {
		t.Fatalf("Classify = %d, want 3", got)
	}

	s.Category = 2
	if got := Classify(s); got != 2 {
		t.Fatalf("explicit category ignored: %d", got)
	}
}

func TestDeriveLayersRings(t *testing.T) {
	all := []stops.Stop{
		{Number: "1", Name: "Hub", Location: orb.Point{8.54, 47.37}, Category: 1, Rail: 4},
		{Number: "2", Name: "Village", Location: orb.Point{8.6, 47.4}, Category: 5},
		{Number: "3", Name: "Unserved", Location: orb.Point{8.7, 47.5}},
	}

	l := Derive(all, DefaultStyle)

	wantCounts := map[Tier]int{TierA: 1, TierB: 1, TierC: 1, TierD: 1}
	for tier, want := range wantCounts {
		if got := len(l.Tiers[tier].Circles); got != want {
			t.Errorf("tier %s: %d circles, want %d", tier, got, want)
		}
	}
	if r := l.Tiers[TierD].Circles[0].Radius; r != 300 {
		t.Errorf("village ring radius=%v, want 300", r)
	}
	if len(l.Info) != 3 {
		t.Errorf("info markers=%d, want 3", len(l.Info))
	}

	order := l.DrawOrder()
	if order[0].Tier != "D" || order[3].Tier != "A" {
		t.Errorf("draw order %s..%s, want D..A", order[0].Tier, order[3].Tier)
	}

	m, ok := l.Marker("1")
	if !ok || m.Tooltip != "Hub<br>Rail lines: 4" {
		t.Errorf("marker=%+v ok=%v", m, ok)
	}
}

func TestZoomGateBoundary(t *testing.T) {
	g := ZoomGate{Threshold: 12}
	if g.InfoVisible(11) {
		t.Error("zoom 11 should hide info layer")
	}
	if !g.InfoVisible(12) || !g.InfoVisible(16) {
		t.Error("zoom >= 12 should show info layer")
	}

	if !g.TierVisible(TierA, 8) {
		t.Error("tier A should be ungated by default")
	}
	g.GateFinestTier = true
	if g.TierVisible(TierA, 11) || !g.TierVisible(TierA, 12) || !g.TierVisible(TierB, 3) {
		t.Error("finest tier gating wrong")
	}

	if !(ZoomGate{}).InfoVisible(DefaultZoomThreshold) {
		t.Error("zero gate should use default threshold")
	}
}

func TestTooltipEscapesName(t *testing.T) {
	s := stops.Stop{Name: `<img src=x onerror=alert(1)>`, Rail: 2}
	got := Tooltip(s)
	if got != "&lt;img src=x onerror=alert(1)&gt;<br>Rail lines: 2" {
		t.Errorf("tooltip = %q", got)
	}
}
