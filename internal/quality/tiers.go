package quality

import (
	"fmt"
	"html"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-transit/internal/stops"
)

// Tier is a quality class from A (best) to D.
type Tier int

const (
	TierA Tier = iota
	TierB
	TierC
	TierD
)

// Tiers lists all tiers, best first.
var Tiers = []Tier{TierA, TierB, TierC, TierD}

func (t Tier) String() string {
	if t < TierA || t > TierD {
		return "?"
	}
	return string(rune('A' + int(t)))
}

// ringRadii[category-1][tier] in metres; 0 means no ring.
var ringRadii = [5][4]float64{
	{500, 750, 1000, 0},
	{300, 500, 750, 1000},
	{0, 300, 500, 750},
	{0, 0, 300, 500},
	{0, 0, 0, 300},
}

// Radius returns the outer ring radius of tier t around a stop of the given
// category, or 0 if the category does not reach that tier.
func Radius(category int, t Tier) float64 {
	if category < 1 || category > 5 || t < TierA || t > TierD {
		return 0
	}
	return ringRadii[category-1][t]
}

// Circle is one ring around a stop.
type Circle struct {
	Stop   string    `json:"stop"`
	Center orb.Point `json:"center"`
	Radius float64   `json:"radius"`
}

// TierLayer is the styled set of circles belonging to one tier.
type TierLayer struct {
	Tier    string   `json:"tier"`
	Color   string   `json:"color"`
	Opacity float64  `json:"opacity"`
	Circles []Circle `json:"circles"`
}

// Marker is a clickable stop in the info layer.
type Marker struct {
	Stop    stops.Stop `json:"stop"`
	Tooltip string     `json:"tooltip"`
}

// Layers is the full derived transit overlay.
type Layers struct {
	Tiers [4]TierLayer `json:"tiers"`
	Info  []Marker     `json:"info"`
}

// DrawOrder returns the tier layers outer to inner, D first.
func (l *Layers) DrawOrder() []TierLayer {
	out := make([]TierLayer, 0, len(l.Tiers))
	for i := len(l.Tiers) - 1; i >= 0; i-- {
		out = append(out, l.Tiers[i])
	}
	return out
}

// Marker returns the info marker for a stop number.
func (l *Layers) Marker(number string) (Marker, bool) {
	for _, m := range l.Info {
		if m.Stop.Number == number {
			return m, true
		}
	}
	return Marker{}, false
}

// Style holds tier colours.
type Style struct {
	Colors  [4]string
	Opacity float64
}

// DefaultStyle follows the ARE map colouring.
var DefaultStyle = Style{
	Colors:  [4]string{"#700038", "#9966ff", "#00b000", "#b3ff40"},
	Opacity: 0.35,
}

// Derive builds the tier layers and the info layer from stops.
func Derive(all []stops.Stop, style Style) *Layers {
	l := &Layers{Info: make([]Marker, 0, len(all))}
	for _, t := range Tiers {
		l.Tiers[t] = TierLayer{
			Tier:    t.String(),
			Color:   style.Colors[t],
			Opacity: style.Opacity,
			Circles: []Circle{},
		}
	}

	for _, s := range all {
		cat := Classify(s)
		for _, t := range Tiers {
			if r := Radius(cat, t); r > 0 {
				l.Tiers[t].Circles = append(l.Tiers[t].Circles, Circle{
					Stop:   s.Number,
					Center: s.Location,
					Radius: r,
				})
			}
		}
		l.Info = append(l.Info, Marker{Stop: s, Tooltip: Tooltip(s)})
	}
	return l
}

// Tooltip is the text shown when an info marker is clicked.
func Tooltip(s stops.Stop) string {
	return fmt.Sprintf("%s<br>Rail lines: %d", html.EscapeString(s.Name), s.Rail)
}
