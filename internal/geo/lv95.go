// Package geo converts coordinates between WGS84 and the Swiss LV95
// projected reference system (EPSG:2056).
//
// The conversion uses the swisstopo approximate formulas, which are
// accurate to about one metre inside Switzerland. That is well below the
// tolerance of the geo.admin.ch identify service the lookup relies on.
package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// EPSG codes used in service requests.
const (
	WGS84 = 4326
	LV95  = 2056
)

// Bounds is the area in which the approximate formulas are valid.
var Bounds = orb.Bound{
	Min: orb.Point{5.9, 45.8},
	Max: orb.Point{10.5, 47.9},
}

// Projected is a point in LV95, easting and northing in metres.
type Projected struct {
	E float64 `json:"e" doc:"Easting (m)"`
	N float64 `json:"n" doc:"Northing (m)"`
}

func (p Projected) String() string {
	return fmt.Sprintf("%.2f,%.2f", p.E, p.N)
}

// ToLV95 projects a WGS84 point (lng, lat) to LV95.
func ToLV95(p orb.Point) Projected {
	phi := (p.Lat()*3600 - 169028.66) / 10000
	lambda := (p.Lon()*3600 - 26782.5) / 10000

	e := 2600072.37 +
		211455.93*lambda -
		10938.51*lambda*phi -
		0.36*lambda*phi*phi -
		44.54*lambda*lambda*lambda

	n := 1200147.07 +
		308807.95*phi +
		3745.25*lambda*lambda +
		76.63*phi*phi -
		194.56*lambda*lambda*phi +
		119.79*phi*phi*phi

	return Projected{E: e, N: n}
}

// ToWGS84 converts an LV95 point back to WGS84 (lng, lat).
func ToWGS84(p Projected) orb.Point {
	y := (p.E - 2600000) / 1000000
	x := (p.N - 1200000) / 1000000

	lambda := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y

	phi := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	return orb.Point{lambda * 100 / 36, phi * 100 / 36}
}

// InSwitzerland reports whether p lies inside the validity bounds.
func InSwitzerland(p orb.Point) bool {
	return Bounds.Contains(p)
}
