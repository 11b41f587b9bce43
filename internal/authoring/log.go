// Package authoring holds the user-editable collection of hypothetical stops
// and transit lines.
//
// State is an append-only log of place-point and submit-line actions. Every
// derived view (points, lines, per-line buckets, polylines) is computed by
// replaying the log, so bucket boundaries never depend on slice mutation
// order. A Log is not safe for concurrent use; callers serialise access.
package authoring

import (
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-transit/internal/stops"
)

// ActionKind identifies a log entry.
type ActionKind int

const (
	PlacePointAction ActionKind = iota + 1
	SubmitLineAction
)

func (k ActionKind) String() string {
	switch k {
	case PlacePointAction:
		return "place-point"
	case SubmitLineAction:
		return "submit-line"
	}
	return "unknown"
}

// Action is one log entry. Exactly one of Stop or Line is set.
type Action struct {
	Kind ActionKind
	Stop *stops.Stop
	Line *Line
}

// Log is the authoring state of one session.
type Log struct {
	actions []Action
	points  int
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// PlacePoint appends a default stop at (lat, lng). The point is attributed to
// the most recently submitted line.
func (l *Log) PlacePoint(lat, lng float64, visible bool) stops.Stop {
	s := stops.Default(l.nextNumber(), orb.Point{lng, lat}, visible)
	l.append(s)
	return s
}

// PlaceStop seeds a point from an existing stop, keeping its attributes.
func (l *Log) PlaceStop(src stops.Stop) stops.Stop {
	s := src
	s.Origin = stops.OriginStop
	s.Visible = true
	l.append(s)
	return s
}

func (l *Log) append(s stops.Stop) {
	l.actions = append(l.actions, Action{Kind: PlacePointAction, Stop: &s})
	l.points++
}

func (l *Log) nextNumber() string {
	return "u" + strconv.Itoa(l.points+1)
}

// SubmitLine validates and appends a line. Rejected lines leave the log
// unchanged.
func (l *Log) SubmitLine(line Line) error {
	if err := line.Validate(); err != nil {
		return err
	}
	l.actions = append(l.actions, Action{Kind: SubmitLineAction, Line: &line})
	return nil
}

// Actions returns a copy of the log.
func (l *Log) Actions() []Action {
	out := make([]Action, len(l.actions))
	copy(out, l.actions)
	return out
}

// Len reports the number of logged actions.
func (l *Log) Len() int { return len(l.actions) }

// Points returns every placed point in placement order.
func (l *Log) Points() []stops.Stop {
	out := make([]stops.Stop, 0, l.points)
	for _, a := range l.actions {
		if a.Kind == PlacePointAction {
			out = append(out, *a.Stop)
		}
	}
	return out
}

// FeatureCollection returns the placed points as GeoJSON. Each point carries
// the interval of the line it belongs to in the matching transport group, so
// a collaborator can classify it like any other stop.
func (l *Log) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	var current *Line
	for _, a := range l.actions {
		switch a.Kind {
		case SubmitLineAction:
			current = a.Line
		case PlacePointAction:
			s := *a.Stop
			if current != nil {
				s.Serve(current.Group(), float64(current.Interval))
			}
			fc.Append(s.Feature())
		}
	}
	return fc
}

// Lines returns the submitted lines in submission order.
func (l *Log) Lines() []Line {
	var out []Line
	for _, a := range l.actions {
		if a.Kind == SubmitLineAction {
			out = append(out, *a.Line)
		}
	}
	return out
}
