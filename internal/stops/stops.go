// Package stops maps transit-stop GeoJSON features to typed values.
//
// Property names follow the ARE "ÖV-Haltestellen" dataset that the
// population and transit collaborators serve.
package stops

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature property keys.
const (
	PropNumber    = "Haltestellen_No"
	PropName      = "Name"
	PropRailNode  = "Bahnknoten"
	PropRail      = "Bahnlinie_Anz"
	PropTramBus   = "TramBus_Anz"
	PropCable     = "Seilbahn_Anz"
	PropIntervalA = "A_Intervall"
	PropIntervalB = "B_Intervall"
	PropIntervalC = "C_Intervall"
	PropCategory  = "Hst_Kat"
	PropOrigin    = "origin"
	PropVisible   = "visible"
)

// Origin records how a point entered the authoring state.
type Origin string

const (
	OriginUser Origin = "user" // placed by a map click
	OriginStop Origin = "stop" // seeded from an existing stop marker
)

// Group is the transport group a service interval belongs to.
type Group int

const (
	GroupRailNode Group = iota // A: rail nodes
	GroupRail                  // B: rail lines
	GroupLocal                 // C: tram, bus, cable car
)

// Stop is the typed view of a stop feature.
type Stop struct {
	Number   string    `json:"number" doc:"Stop number (Haltestellen_No)"`
	Name     string    `json:"name" doc:"Stop name"`
	Location orb.Point `json:"location" doc:"WGS84 position [lng, lat]"`
	RailNode bool      `json:"railNode" doc:"Whether the stop is a rail node"`
	Rail     int       `json:"rail" doc:"Number of rail lines"`
	TramBus  int       `json:"tramBus" doc:"Number of tram and bus lines"`
	Cable    int       `json:"cable" doc:"Number of cable car lines"`

	// Service intervals in minutes per transport group, 0 when unserved.
	IntervalA float64 `json:"intervalA"`
	IntervalB float64 `json:"intervalB"`
	IntervalC float64 `json:"intervalC"`

	Category int    `json:"category" doc:"Stop category 1-5, 0 when unclassified"`
	Origin   Origin `json:"origin,omitempty"`
	Visible  bool   `json:"visible"`
}

// Default returns a blank user stop at p.
func Default(number string, p orb.Point, visible bool) Stop {
	return Stop{
		Number:   number,
		Name:     "New stop",
		Location: p,
		Origin:   OriginUser,
		Visible:  visible,
	}
}

// Serve records a service of group g every interval minutes, keeping the
// shorter interval when the group is already served.
func (s *Stop) Serve(g Group, interval float64) {
	if interval <= 0 {
		return
	}
	var cur *float64
	switch g {
	case GroupRailNode:
		cur = &s.IntervalA
	case GroupRail:
		cur = &s.IntervalB
	case GroupLocal:
		cur = &s.IntervalC
	default:
		return
	}
	if *cur == 0 || interval < *cur {
		*cur = interval
	}
}

// FromFeature reads a stop from a point feature. Non-point geometries are
// rejected; missing properties take their zero values.
func FromFeature(f *geojson.Feature) (Stop, error) {
	if f == nil {
		return Stop{}, fmt.Errorf("nil feature")
	}
	p, ok := f.Geometry.(orb.Point)
	if !ok {
		return Stop{}, fmt.Errorf("stop geometry is %T, want point", f.Geometry)
	}

	props := f.Properties
	s := Stop{
		Number:    str(props[PropNumber]),
		Name:      props.MustString(PropName, ""),
		Location:  p,
		RailNode:  truthy(props[PropRailNode]),
		Rail:      int(num(props[PropRail])),
		TramBus:   int(num(props[PropTramBus])),
		Cable:     int(num(props[PropCable])),
		IntervalA: num(props[PropIntervalA]),
		IntervalB: num(props[PropIntervalB]),
		IntervalC: num(props[PropIntervalC]),
		Category:  int(num(props[PropCategory])),
		Origin:    Origin(props.MustString(PropOrigin, "")),
		Visible:   props.MustBool(PropVisible, true),
	}
	return s, nil
}

// Feature converts the stop back to a GeoJSON feature.
func (s Stop) Feature() *geojson.Feature {
	f := geojson.NewFeature(s.Location)
	f.Properties[PropNumber] = s.Number
	f.Properties[PropName] = s.Name
	f.Properties[PropRailNode] = s.RailNode
	f.Properties[PropRail] = s.Rail
	f.Properties[PropTramBus] = s.TramBus
	f.Properties[PropCable] = s.Cable
	f.Properties[PropIntervalA] = s.IntervalA
	f.Properties[PropIntervalB] = s.IntervalB
	f.Properties[PropIntervalC] = s.IntervalC
	f.Properties[PropCategory] = s.Category
	if s.Origin != "" {
		f.Properties[PropOrigin] = string(s.Origin)
	}
	f.Properties[PropVisible] = s.Visible
	return f
}

// FromCollection reads every point feature of fc, skipping the rest.
func FromCollection(fc *geojson.FeatureCollection) []Stop {
	if fc == nil {
		return nil
	}
	out := make([]Stop, 0, len(fc.Features))
	for _, f := range fc.Features {
		s, err := FromFeature(f)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// num accepts JSON numbers and numeric strings, which the ARE export mixes.
func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	}
	return ""
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case string:
		return b == "1" || b == "true" || b == "ja"
	}
	return false
}
