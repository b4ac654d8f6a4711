package routing

import (
	"context"
	"strings"

	"github.com/transitmate/backend/internal/utils"
)

// StaticGazetteer resolves well-known place names without a network call. It
// backs dev mode and tests, and acts as a safety net behind a live geocoder.
// With Synthesize set, unknown names map to stable pseudo-coordinates derived
// from the name hash, so a measurement is always obtainable.
type StaticGazetteer struct {
	Synthesize bool
}

var gazetteer = map[string]Coordinate{
	"islamabad":                       {Lat: 33.6844, Lon: 73.0479},
	"rawalpindi":                      {Lat: 33.5651, Lon: 73.0169},
	"lahore":                          {Lat: 31.5204, Lon: 74.3587},
	"karachi":                         {Lat: 24.8607, Lon: 67.0011},
	"faisalabad":                      {Lat: 31.4504, Lon: 73.1350},
	"multan":                          {Lat: 30.1575, Lon: 71.5249},
	"peshawar":                        {Lat: 34.0151, Lon: 71.5249},
	"quetta":                          {Lat: 30.1798, Lon: 66.9750},
	"hyderabad":                       {Lat: 25.3960, Lon: 68.3578},
	"sialkot":                         {Lat: 32.4945, Lon: 74.5229},
	"gujranwala":                      {Lat: 32.1877, Lon: 74.1945},
	"abbottabad":                      {Lat: 34.1688, Lon: 73.2215},
	"murree":                          {Lat: 33.9070, Lon: 73.3943},
	"islamabad international airport": {Lat: 33.5490, Lon: 72.8258},
	"lahore airport":                  {Lat: 31.5216, Lon: 74.4036},
	"karachi airport":                 {Lat: 24.9008, Lon: 67.1681},
}

func (g StaticGazetteer) Locate(_ context.Context, name string) (Coordinate, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if coord, ok := gazetteer[key]; ok {
		return coord, nil
	}
	for known, coord := range gazetteer {
		if strings.Contains(key, known) {
			return coord, nil
		}
	}
	if g.Synthesize {
		return synthesizeCoordinate(key), nil
	}
	return Coordinate{}, ErrPlaceNotFound
}

// synthesizeCoordinate spreads unknown names across a rough Pakistan bounding
// box (lat 24..36, lon 61..77) so distinct names get distinct routes.
func synthesizeCoordinate(key string) Coordinate {
	h := utils.HashStringToUint64(key)
	lat := 24.0 + float64(h%1200)/100.0
	lon := 61.0 + float64((h/1200)%1600)/100.0
	return Coordinate{Lat: lat, Lon: lon}
}

// FallbackGeocoder tries each geocoder in order until one resolves the name.
type FallbackGeocoder []Geocoder

func (f FallbackGeocoder) Locate(ctx context.Context, name string) (Coordinate, error) {
	var lastErr error = ErrPlaceNotFound
	for _, g := range f {
		coord, err := g.Locate(ctx, name)
		if err == nil {
			return coord, nil
		}
		lastErr = err
	}
	return Coordinate{}, lastErr
}
