package estimate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/transitmate/backend/internal/models"
	"github.com/transitmate/backend/internal/routing"
	"github.com/transitmate/backend/internal/utils"
)

// Road networks are longer than the crow flies; the factor scales straight-line
// distance for the degraded path, with driving time assumed at 60 km/h.
const (
	fallbackRoadFactor  = 1.3
	fallbackSpeedKmh    = 60.0
	defaultRouteTimeout = 10 * time.Second
)

// Measurer resolves two place names to a driving RouteMeasurement. Provider
// calls carry a bounded timeout; on provider failure it substitutes a
// straight-line fallback so a dead provider degrades quality instead of
// failing the request. Only an unresolvable place name is a hard error.
type Measurer struct {
	Geocoder routing.Geocoder
	Provider routing.Provider
	Timeout  time.Duration
	Logger   zerolog.Logger
}

func (m *Measurer) Measure(ctx context.Context, origin, destination string) (models.RouteMeasurement, error) {
	from, err := m.Geocoder.Locate(ctx, origin)
	if err != nil {
		return models.RouteMeasurement{}, fmt.Errorf("locate origin %q: %w", origin, err)
	}
	to, err := m.Geocoder.Locate(ctx, destination)
	if err != nil {
		return models.RouteMeasurement{}, fmt.Errorf("locate destination %q: %w", destination, err)
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultRouteTimeout
	}
	routeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	measurement, err := m.Provider.Measure(routeCtx, from, to)
	if err != nil {
		m.Logger.Warn().Err(err).
			Str("origin", origin).
			Str("destination", destination).
			Msg("routing provider failed, using straight-line fallback")
		return StraightLineFallback(from, to), nil
	}
	return measurement, nil
}

// StraightLineFallback builds a degraded measurement from coordinates alone.
func StraightLineFallback(from, to routing.Coordinate) models.RouteMeasurement {
	distanceKm := utils.HaversineKm(from.Lat, from.Lon, to.Lat, to.Lon) * fallbackRoadFactor
	return models.RouteMeasurement{
		DistanceMeters:  distanceKm * 1000,
		DurationSeconds: distanceKm / fallbackSpeedKmh * 3600,
		Fallback:        true,
	}
}
