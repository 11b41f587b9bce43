// Package quality derives public-transport quality tiers (ÖV-Güteklassen
// A to D) from transit-stop attributes.
//
// A stop first gets a category from its best served transport group and the
// service interval of that group. Each category then contributes concentric
// rings of decreasing quality around the stop.
package quality

import (
	"github.com/joeblew999/plat-transit/internal/stops"
)

// categories[row][group] for interval rows <5, <10, <20, <40, <=60.
var categories = [5][3]int{
	{1, 1, 2},
	{1, 2, 3},
	{2, 3, 4},
	{3, 4, 5},
	{4, 5, 0},
}

// CategoryFor returns the stop category (1 best, 5 worst) of a service with
// the given group and interval in minutes, or 0 when it does not qualify.
func CategoryFor(g stops.Group, interval float64) int {
	if interval <= 0 || g < stops.GroupRailNode || g > stops.GroupLocal {
		return 0
	}
	var row int
	switch {
	case interval < 5:
		row = 0
	case interval < 10:
		row = 1
	case interval < 20:
		row = 2
	case interval < 40:
		row = 3
	case interval <= 60:
		row = 4
	default:
		return 0
	}
	return categories[row][g]
}

// Classify returns the category of s. An explicit Hst_Kat wins; otherwise
// the best category over the stop's group intervals is used.
func Classify(s stops.Stop) int {
	if s.Category > 0 {
		return s.Category
	}
	best := 0
	for _, c := range []int{
		CategoryFor(stops.GroupRailNode, s.IntervalA),
		CategoryFor(stops.GroupRail, s.IntervalB),
		CategoryFor(stops.GroupLocal, s.IntervalC),
	} {
		if c > 0 && (best == 0 || c < best) {
			best = c
		}
	}
	return best
}
