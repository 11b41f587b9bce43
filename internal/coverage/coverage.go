// Package coverage estimates how much of the population lives within walking
// distance of a public-transport stop.
package coverage

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/joeblew999/plat-transit/internal/quality"
	"github.com/joeblew999/plat-transit/internal/stops"
)

// Cell is one hectare of population statistics.
type Cell struct {
	Location   orb.Point `json:"location"`
	Population float64   `json:"population"`
}

// CatchmentRadius returns the walking radius in metres that a stop of the
// given category serves, or 0 for unclassified stops.
func CatchmentRadius(category int) float64 {
	switch category {
	case 1, 2:
		return 1000
	case 3:
		return 750
	case 4:
		return 500
	case 5:
		return 300
	}
	return 0
}

// Result is the outcome of a coverage run.
type Result struct {
	Served   float64 `json:"served" doc:"Population within reach of a stop"`
	Total    float64 `json:"total" doc:"Total population"`
	Ratio    float64 `json:"ratio" doc:"Served / total"`
	Stops    int     `json:"stops" doc:"Stops that served at least one cell"`
	Unserved []Cell  `json:"unserved,omitempty" doc:"Cells outside every catchment"`
}

// Calculate assigns every cell to the first stop, in input order, whose
// catchment contains it. Cells are counted once.
func Calculate(cells []Cell, all []stops.Stop) Result {
	remaining := make([]Cell, len(cells))
	copy(remaining, cells)

	var res Result
	for _, c := range cells {
		res.Total += c.Population
	}

	for _, s := range all {
		r := CatchmentRadius(quality.Classify(s))
		if r == 0 || len(remaining) == 0 {
			continue
		}
		bound := geo.NewBoundAroundPoint(s.Location, r)

		kept := remaining[:0]
		served := 0.0
		for _, c := range remaining {
			if bound.Contains(c.Location) && geo.DistanceHaversine(s.Location, c.Location) <= r {
				served += c.Population
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) < len(remaining) {
			res.Stops++
		}
		remaining = kept
		res.Served += served
	}

	if res.Total > 0 {
		res.Ratio = res.Served / res.Total
	}
	res.Unserved = remaining
	return res
}
