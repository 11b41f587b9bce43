package quality

// DefaultZoomThreshold is the lowest zoom at which stop markers are shown.
const DefaultZoomThreshold = 12

// ZoomGate decides which zoom-dependent layers are on the map.
type ZoomGate struct {
	Threshold int
	// GateFinestTier also hides tier A below the threshold.
	GateFinestTier bool
}

// InfoVisible reports whether the info layer belongs on the map at zoom.
func (g ZoomGate) InfoVisible(zoom int) bool {
	return zoom >= g.threshold()
}

// TierVisible reports whether tier t belongs on the map at zoom.
func (g ZoomGate) TierVisible(t Tier, zoom int) bool {
	if t == TierA && g.GateFinestTier {
		return zoom >= g.threshold()
	}
	return true
}

func (g ZoomGate) threshold() int {
	if g.Threshold <= 0 {
		return DefaultZoomThreshold
	}
	return g.Threshold
}
