package routing

import (
	"encoding/json"
	"testing"
)

func TestParseGeocodeResponse(t *testing.T) {
	raw := `{"features":[{"geometry":{"coordinates":[73.0479,33.6844]}}]}`
	var body geocodeResponse
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	coord, err := parseGeocodeResponse(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord.Lat != 33.6844 || coord.Lon != 73.0479 {
		t.Fatalf("lon/lat order not flipped: %+v", coord)
	}
}

func TestParseGeocodeResponseEmpty(t *testing.T) {
	if _, err := parseGeocodeResponse(geocodeResponse{}); err != ErrPlaceNotFound {
		t.Fatalf("expected ErrPlaceNotFound, got %v", err)
	}
}

func TestParseDirectionsResponse(t *testing.T) {
	raw := `{"routes":[{"summary":{"distance":375000,"duration":18000}}]}`
	var body directionsResponse
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	m, err := parseDirectionsResponse(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.DistanceMeters != 375000 || m.DurationSeconds != 18000 {
		t.Fatalf("unexpected measurement: %+v", m)
	}
	if m.Fallback {
		t.Fatalf("provider measurement must not be marked fallback")
	}
}

func TestParseDirectionsResponseEmpty(t *testing.T) {
	if _, err := parseDirectionsResponse(directionsResponse{}); err != ErrRouteNotFound {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}
