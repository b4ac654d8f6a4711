// Package estimate turns raw route measurements into per-mode travel-time and
// cost estimates. Fares are in PKR.
package estimate

import (
	"math"

	"github.com/transitmate/backend/internal/models"
)

// modeParams holds the per-mode constant table. ETAMultiplier scales the
// measured door-to-door driving duration; transit modes are slower to account
// for stops and transfers. Bus/Metro charge max(flat minimum, per-km fare);
// RideShare/Taxi charge base fare + per-km rate.
type modeParams struct {
	ETAMultiplier float64
	BaseFare      float64
	PerKm         float64
	MinFare       float64
}

var paramsByMode = map[models.TransportMode]modeParams{
	models.ModeBus:       {ETAMultiplier: 1.5, BaseFare: 0, PerKm: 4.0, MinFare: 30},
	models.ModeMetro:     {ETAMultiplier: 1.25, BaseFare: 0, PerKm: 3.5, MinFare: 40},
	models.ModeRideShare: {ETAMultiplier: 1.05, BaseFare: 100, PerKm: 6.25, MinFare: 100},
	models.ModeTaxi:      {ETAMultiplier: 1.0, BaseFare: 150, PerKm: 25.0, MinFare: 150},
}

const minETAMinutes = 1

// ForMode derives a ModeEstimate from a measurement. It is deterministic and
// never returns a zero ETA or a cost below the mode's minimum fare, so
// zero-distance trips cannot produce degenerate features.
func ForMode(m models.RouteMeasurement, mode models.TransportMode) models.ModeEstimate {
	p, ok := paramsByMode[mode]
	if !ok {
		p = paramsByMode[models.ModeTaxi]
	}

	etaMinutes := int(math.Round(m.DurationSeconds / 60 * p.ETAMultiplier))
	if etaMinutes < minETAMinutes {
		etaMinutes = minETAMinutes
	}

	distanceKm := m.DistanceMeters / 1000
	if distanceKm < 0 {
		distanceKm = 0
	}
	cost := p.BaseFare + p.PerKm*distanceKm
	if cost < p.MinFare {
		cost = p.MinFare
	}
	cost = math.Round(cost*100) / 100

	return models.ModeEstimate{Mode: mode, ETAMinutes: etaMinutes, Cost: cost}
}
