package authoring

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/joeblew999/plat-transit/internal/stops"
)

// TransportType is the mode a user-drawn line is operated with.
type TransportType string

const (
	Bus   TransportType = "Bus"
	Tram  TransportType = "Tram"
	SBahn TransportType = "S-Bahn"
)

// TransportTypes lists the accepted types in form order.
var TransportTypes = []TransportType{Bus, Tram, SBahn}

var colors = map[TransportType]string{
	Bus:   "#f5a623",
	Tram:  "#2266cc",
	SBahn: "#d0021b",
}

// Color returns the polyline colour for the type.
func (t TransportType) Color() string {
	if c, ok := colors[t]; ok {
		return c
	}
	return "#666666"
}

// Group returns the stop transport group served by lines of type t.
func (t TransportType) Group() stops.Group {
	if t == SBahn {
		return stops.GroupRail
	}
	return stops.GroupLocal
}

// Line is a user-submitted transit line.
type Line struct {
	Type     TransportType `json:"type" validate:"required,oneof=Bus Tram S-Bahn" enum:"Bus,Tram,S-Bahn" doc:"Transport type"`
	Interval int           `json:"interval" validate:"required,min=1,max=240" minimum:"1" maximum:"240" doc:"Service interval in minutes"`
}

// Group returns the transport group the line serves.
func (l Line) Group() stops.Group { return l.Type.Group() }

// ErrInvalidLine is returned when a line submission lacks a required field.
var ErrInvalidLine = errors.New("invalid line")

var validate = validator.New()

// Validate checks that both fields are present and in range.
func (l Line) Validate() error {
	if err := validate.Struct(l); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", ErrInvalidLine, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidLine, err)
	}
	return nil
}
