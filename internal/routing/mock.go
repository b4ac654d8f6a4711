package routing

import (
	"context"
	"fmt"

	"github.com/transitmate/backend/internal/models"
	"github.com/transitmate/backend/internal/utils"
)

// MockProvider produces deterministic measurements without any external API:
// straight-line distance scaled by a road factor, driving time at an average
// speed nudged by a stable hash of the endpoints. Wired when no ORS key is
// configured.
type MockProvider struct{}

const (
	mockRoadFactor    = 1.3
	mockBaseSpeedKmh  = 60.0
	mockSpeedJitterKm = 20.0
)

func (MockProvider) Measure(_ context.Context, from, to Coordinate) (models.RouteMeasurement, error) {
	distanceKm := utils.HaversineKm(from.Lat, from.Lon, to.Lat, to.Lon) * mockRoadFactor

	key := fmt.Sprintf("%.4f,%.4f->%.4f,%.4f", from.Lat, from.Lon, to.Lat, to.Lon)
	h := utils.HashStringToUint64(key)
	speedKmh := mockBaseSpeedKmh + float64(h%uint64(mockSpeedJitterKm+1))

	return models.RouteMeasurement{
		DistanceMeters:  distanceKm * 1000,
		DurationSeconds: distanceKm / speedKmh * 3600,
	}, nil
}
