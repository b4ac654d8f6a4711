package routing

import (
	"context"
	"errors"

	"github.com/transitmate/backend/internal/models"
)

var (
	ErrPlaceNotFound = errors.New("place not found")
	ErrRouteNotFound = errors.New("route not found")
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves a free-form place name to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, name string) (Coordinate, error)
}

// Provider measures the driving route between two points. It may fail or time
// out; callers are expected to degrade to a straight-line estimate.
type Provider interface {
	Measure(ctx context.Context, from, to Coordinate) (models.RouteMeasurement, error)
}
