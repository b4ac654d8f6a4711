// Package feature maps a (trip, mode, estimate) triple into the fixed-length
// numeric vector the scoring model consumes. Extraction is pure: no I/O, no
// clock, no randomness, so the trainer can rebuild the exact vector a
// recommendation was scored with from a stored feedback record.
package feature

import (
	"strconv"
	"strings"

	"github.com/transitmate/backend/internal/models"
)

// VectorLen is the trained feature shape; artifacts with any other expected
// length are rejected before activation.
const VectorLen = 11

// Vector component order: origin name length, destination name length,
// airport flag, departure hour, mode index, four mode-preference flags
// (Bus, Metro, RideShare, Taxi), normalized ETA, normalized cost.
type Vector [VectorLen]float64

const (
	idxOriginLen = iota
	idxDestLen
	idxAirport
	idxHour
	idxModeIndex
	idxPrefBus
	idxPrefMetro
	idxPrefRideShare
	idxPrefTaxi
	idxETANorm
	idxCostNorm
)

const (
	defaultHour = 12
	etaCapHours = 2.0 // minutes/60, capped at two hours
	costDivisor = 5000.0
	costCap     = 2.0
)

func Extract(trip models.TripRequest, mode models.TransportMode, est models.ModeEstimate) Vector {
	var v Vector

	v[idxOriginLen] = float64(len(trip.Origin))
	v[idxDestLen] = float64(len(trip.Destination))
	v[idxAirport] = airportFlag(trip.Origin, trip.Destination)
	v[idxHour] = float64(departureHour(trip.PreferredTime))
	v[idxModeIndex] = float64(int(mode))

	for _, requested := range trip.Modes {
		switch requested {
		case models.ModeBus:
			v[idxPrefBus] = 1
		case models.ModeMetro:
			v[idxPrefMetro] = 1
		case models.ModeRideShare:
			v[idxPrefRideShare] = 1
		case models.ModeTaxi:
			v[idxPrefTaxi] = 1
		}
	}

	v[idxETANorm] = capped(float64(est.ETAMinutes)/60.0, etaCapHours)
	v[idxCostNorm] = capped(est.Cost/costDivisor, costCap)

	return v
}

// ETANorm and CostNorm expose the normalized components the heuristic scorer
// reads; ModeIndex and PrefFlag expose the mode encoding.
func (v Vector) ETANorm() float64  { return v[idxETANorm] }
func (v Vector) CostNorm() float64 { return v[idxCostNorm] }
func (v Vector) ModeIndex() int    { return int(v[idxModeIndex]) }

// PrefFlag returns the preference flag for the given mode index, 0 when the
// index is out of range.
func (v Vector) PrefFlag(modeIndex int) float64 {
	if modeIndex < 0 || modeIndex > 3 {
		return 0
	}
	return v[idxPrefBus+modeIndex]
}

func airportFlag(origin, destination string) float64 {
	text := strings.ToLower(origin + " " + destination)
	if strings.Contains(text, "airport") {
		return 1
	}
	return 0
}

// departureHour parses the hour prefix of "HH:MM"-style preferred times,
// defaulting to midday on absence or garbage.
func departureHour(preferred string) int {
	raw := strings.TrimSpace(preferred)
	if raw == "" {
		return defaultHour
	}
	if idx := strings.Index(raw, ":"); idx >= 0 {
		raw = raw[:idx]
	}
	hour, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || hour < 0 || hour > 23 {
		return defaultHour
	}
	return hour
}

func capped(value, limit float64) float64 {
	if value < 0 {
		return 0
	}
	if value > limit {
		return limit
	}
	return value
}
