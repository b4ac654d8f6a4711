package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/transitmate/backend/internal/models"
)

const geocodeCacheSize = 512

// ORSClient talks to an OpenRouteService-compatible API: geocode search for
// place names and the directions endpoint for driving measurements. Requests
// are paced by MinInterval and geocode results are cached, so repeated trips
// between the same places hit the network once.
type ORSClient struct {
	BaseURL     string
	APIKey      string
	UserAgent   string
	MinInterval time.Duration
	Client      *http.Client

	mu        sync.Mutex
	lastReqAt time.Time
	geoCache  *lru.Cache[string, Coordinate]
}

func NewORSClient(baseURL, apiKey string) *ORSClient {
	cache, _ := lru.New[string, Coordinate](geocodeCacheSize)
	return &ORSClient{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		UserAgent:   "transitmate-backend",
		MinInterval: 200 * time.Millisecond,
		Client:      &http.Client{Timeout: 10 * time.Second},
		geoCache:    cache,
	}
}

func (c *ORSClient) pace() {
	c.mu.Lock()
	sleepFor := time.Until(c.lastReqAt.Add(c.MinInterval))
	if sleepFor > 0 {
		c.mu.Unlock()
		time.Sleep(sleepFor)
		c.mu.Lock()
	}
	c.lastReqAt = time.Now()
	c.mu.Unlock()
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

func (c *ORSClient) Locate(ctx context.Context, name string) (Coordinate, error) {
	if cached, ok := c.geoCache.Get(name); ok {
		return cached, nil
	}
	c.pace()

	endpoint := fmt.Sprintf("%s/geocode/search?api_key=%s&size=1&text=%s",
		c.BaseURL, url.QueryEscape(c.APIKey), url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinate{}, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return Coordinate{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Coordinate{}, fmt.Errorf("ors geocode http error: %s", resp.Status)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Coordinate{}, err
	}
	coord, err := parseGeocodeResponse(body)
	if err != nil {
		return Coordinate{}, err
	}
	c.geoCache.Add(name, coord)
	return coord, nil
}

// parseGeocodeResponse extracts the top hit. ORS geometry is [lon, lat].
func parseGeocodeResponse(body geocodeResponse) (Coordinate, error) {
	if len(body.Features) == 0 || len(body.Features[0].Geometry.Coordinates) < 2 {
		return Coordinate{}, ErrPlaceNotFound
	}
	coords := body.Features[0].Geometry.Coordinates
	return Coordinate{Lat: coords[1], Lon: coords[0]}, nil
}

type directionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"routes"`
}

func (c *ORSClient) Measure(ctx context.Context, from, to Coordinate) (models.RouteMeasurement, error) {
	c.pace()

	payload := directionsRequest{
		Coordinates: [][2]float64{{from.Lon, from.Lat}, {to.Lon, to.Lat}},
	}
	b, _ := json.Marshal(payload)

	endpoint := c.BaseURL + "/v2/directions/driving-car"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(b))
	if err != nil {
		return models.RouteMeasurement{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return models.RouteMeasurement{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.RouteMeasurement{}, fmt.Errorf("ors directions http error: %s", resp.Status)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.RouteMeasurement{}, err
	}
	return parseDirectionsResponse(body)
}

func parseDirectionsResponse(body directionsResponse) (models.RouteMeasurement, error) {
	if len(body.Routes) == 0 {
		return models.RouteMeasurement{}, ErrRouteNotFound
	}
	summary := body.Routes[0].Summary
	if summary.Distance <= 0 && summary.Duration <= 0 {
		return models.RouteMeasurement{}, ErrRouteNotFound
	}
	return models.RouteMeasurement{
		DistanceMeters:  summary.Distance,
		DurationSeconds: summary.Duration,
	}, nil
}
