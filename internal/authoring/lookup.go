package authoring

import (
	"github.com/paulmach/orb"
)

// LineIndexLookup is the per-line bookkeeping derived from the log.
//
// Counts has one bucket per line; the last bucket is the open one that new
// points fall into. Points placed before the first line are counted in
// Unassigned. Unassigned plus the sum of Counts equals the point total.
type LineIndexLookup struct {
	Lines      int             `json:"lines"`
	Counts     []int           `json:"counts"`
	Types      []TransportType `json:"types"`
	Unassigned int             `json:"unassigned"`
}

// Total returns the number of points accounted for.
func (lk LineIndexLookup) Total() int {
	n := lk.Unassigned
	for _, c := range lk.Counts {
		n += c
	}
	return n
}

// Lookup replays the log into per-line buckets.
func (l *Log) Lookup() LineIndexLookup {
	lk := LineIndexLookup{Counts: []int{}, Types: []TransportType{}}
	for _, a := range l.actions {
		switch a.Kind {
		case SubmitLineAction:
			lk.Lines++
			lk.Counts = append(lk.Counts, 0)
			lk.Types = append(lk.Types, a.Line.Type)
		case PlacePointAction:
			if lk.Lines == 0 {
				lk.Unassigned++
				continue
			}
			lk.Counts[lk.Lines-1]++
		}
	}
	return lk
}

// Polyline is the rendered geometry of one line.
type Polyline struct {
	Index    int            `json:"index"`
	Type     TransportType  `json:"type"`
	Interval int            `json:"interval"`
	Color    string         `json:"color"`
	Path     orb.LineString `json:"path"`
}

// Polylines partitions the placed points into one polyline per line, in
// submission order. A line without points yields an empty path.
func (l *Log) Polylines() []Polyline {
	lk := l.Lookup()
	lines := l.Lines()
	pts := l.Points()

	out := make([]Polyline, 0, len(lines))
	offset := lk.Unassigned
	for i, line := range lines {
		n := lk.Counts[i]
		path := make(orb.LineString, 0, n)
		for _, s := range pts[offset : offset+n] {
			path = append(path, s.Location)
		}
		offset += n

		out = append(out, Polyline{
			Index:    i,
			Type:     line.Type,
			Interval: line.Interval,
			Color:    line.Type.Color(),
			Path:     path,
		})
	}
	return out
}
