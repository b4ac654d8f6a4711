package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/transitmate/backend/internal/db"
	"github.com/transitmate/backend/internal/model"
	"github.com/transitmate/backend/internal/models"
	"github.com/transitmate/backend/internal/recommend"
	"github.com/transitmate/backend/internal/scoring"
)

type fakeStore struct {
	trips    map[string]models.TripRequest
	feedback []models.FeedbackRecord
	archived map[string][]models.Recommendation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trips:    map[string]models.TripRequest{},
		archived: map[string][]models.Recommendation{},
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) CreateTrip(_ context.Context, trip models.TripRequest) error {
	f.trips[trip.ID] = trip
	return nil
}

func (f *fakeStore) GetTrip(_ context.Context, id string) (models.TripRequest, error) {
	trip, ok := f.trips[id]
	if !ok {
		return models.TripRequest{}, db.ErrNotFound
	}
	return trip, nil
}

func (f *fakeStore) SaveRecommendations(_ context.Context, tripID string, recs []models.Recommendation) error {
	f.archived[tripID] = recs
	return nil
}

func (f *fakeStore) AppendFeedback(_ context.Context, rec models.FeedbackRecord) error {
	f.feedback = append(f.feedback, rec)
	return nil
}

func (f *fakeStore) ListFeedback(context.Context) ([]models.FeedbackRecord, error) {
	return f.feedback, nil
}

type staticMeasurer struct {
	m models.RouteMeasurement
}

func (s staticMeasurer) Measure(context.Context, string, string) (models.RouteMeasurement, error) {
	return s.m, nil
}

func testSetup(t *testing.T) (*fakeStore, *model.Registry, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStore()
	registry := model.NewRegistry()
	engine := &scoring.Engine{Registry: registry, Logger: zerolog.Nop()}
	h := &Handler{
		Store: store,
		Ranker: &recommend.Ranker{
			Measurer: staticMeasurer{m: models.RouteMeasurement{DistanceMeters: 375000, DurationSeconds: 18000}},
			Engine:   engine,
			Logger:   zerolog.Nop(),
		},
		Recorder:  &recommend.Recorder{Store: store, Logger: zerolog.Nop()},
		Trainer:   &model.Trainer{Feedback: store, Registry: registry, Logger: zerolog.Nop()},
		Registry:  registry,
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.POST("/api/trips", h.TripCreate)
	r.GET("/api/trips/:id", h.TripGet)
	r.GET("/api/recommendations", h.RecommendationsList)
	r.POST("/api/feedback", h.FeedbackCreate)
	r.POST("/api/retrain", h.Retrain)
	r.GET("/api/model", h.ModelInfo)
	return store, registry, r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createTrip(t *testing.T, r *gin.Engine, body map[string]any) models.TripRequest {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/trips", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("trip create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var trip models.TripRequest
	if err := json.Unmarshal(w.Body.Bytes(), &trip); err != nil {
		t.Fatalf("decode trip: %v", err)
	}
	return trip
}

func TestTripCreateDefaultsToAllModes(t *testing.T) {
	_, _, r := testSetup(t)
	trip := createTrip(t, r, map[string]any{"origin": "Islamabad", "destination": "Lahore"})
	if trip.ID == "" {
		t.Fatalf("trip must get an id")
	}
	if len(trip.Modes) != 4 {
		t.Fatalf("empty mode set should default to all modes, got %v", trip.Modes)
	}
}

func TestTripGetRoundTrip(t *testing.T) {
	_, _, r := testSetup(t)
	created := createTrip(t, r, map[string]any{
		"origin": "Islamabad", "destination": "Lahore", "modes": []string{"Metro"},
	})

	w := doJSON(t, r, http.MethodGet, "/api/trips/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got models.TripRequest
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != created.ID || got.Origin != "Islamabad" || len(got.Modes) != 1 {
		t.Fatalf("unexpected trip: %+v", got)
	}

	w = doJSON(t, r, http.MethodGet, "/api/trips/absent", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestTripCreateValidation(t *testing.T) {
	_, _, r := testSetup(t)
	w := doJSON(t, r, http.MethodPost, "/api/trips", map[string]any{"origin": "Islamabad"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing destination: expected 400, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/api/trips", map[string]any{
		"origin": "A", "destination": "B", "modes": []string{"hoverboard"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown mode: expected 400, got %d", w.Code)
	}
}

func TestRecommendationsHappyPath(t *testing.T) {
	store, _, r := testSetup(t)
	trip := createTrip(t, r, map[string]any{
		"origin": "Islamabad", "destination": "Lahore", "modes": []string{"Bus", "Taxi"},
	})

	w := doJSON(t, r, http.MethodGet, "/api/recommendations?trip_id="+trip.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		TripID          string                  `json:"trip_id"`
		Recommendations []models.Recommendation `json:"recommendations"`
		UsedModel       bool                    `json:"used_model"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(resp.Recommendations))
	}
	if resp.UsedModel {
		t.Fatalf("no model trained yet, used_model must be false")
	}
	for i := 1; i < len(resp.Recommendations); i++ {
		if resp.Recommendations[i-1].Score < resp.Recommendations[i].Score {
			t.Fatalf("recommendations not score-descending")
		}
	}
	if len(store.archived[trip.ID]) != 2 {
		t.Fatalf("ranking result should be archived")
	}
}

func TestRecommendationsTripNotFound(t *testing.T) {
	_, _, r := testSetup(t)
	w := doJSON(t, r, http.MethodGet, "/api/recommendations?trip_id=missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	store, _, r := testSetup(t)
	trip := createTrip(t, r, map[string]any{"origin": "Islamabad", "destination": "Lahore"})

	w := doJSON(t, r, http.MethodPost, "/api/feedback", map[string]any{
		"trip_id": trip.ID, "mode": "Bus", "rating": 5,
		"eta_minutes": 450, "cost": 1500, "score": 0.8,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Target float64 `json:"target"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Target != 1.0 {
		t.Fatalf("rating 5 must map to target 1.0, got %v", resp.Target)
	}
	if len(store.feedback) != 1 {
		t.Fatalf("feedback must be appended")
	}
}

func TestFeedbackInvalidRating(t *testing.T) {
	store, _, r := testSetup(t)
	trip := createTrip(t, r, map[string]any{"origin": "A", "destination": "B"})
	w := doJSON(t, r, http.MethodPost, "/api/feedback", map[string]any{
		"trip_id": trip.ID, "mode": "Bus", "rating": 9,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.feedback) != 0 {
		t.Fatalf("invalid feedback must not be stored")
	}
}

func TestRetrainGateThenSuccess(t *testing.T) {
	store, registry, r := testSetup(t)
	trip := createTrip(t, r, map[string]any{"origin": "Islamabad", "destination": "Lahore"})

	submit := func(n int) {
		for i := 0; i < n; i++ {
			rating := 5
			if i%2 == 1 {
				rating = 1
			}
			w := doJSON(t, r, http.MethodPost, "/api/feedback", map[string]any{
				"trip_id": trip.ID, "mode": "Bus", "rating": rating,
				"eta_minutes": 40 + i, "cost": 350 + float64(i)*10, "score": 0.7,
			})
			if w.Code != http.StatusOK {
				t.Fatalf("feedback %d: %d %s", i, w.Code, w.Body.String())
			}
		}
	}

	submit(19)
	w := doJSON(t, r, http.MethodPost, "/api/retrain", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("19 samples: expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if registry.Active() != nil {
		t.Fatalf("no artifact may be active below the gate")
	}

	submit(1)
	if len(store.feedback) != 20 {
		t.Fatalf("expected 20 feedback records, got %d", len(store.feedback))
	}
	w = doJSON(t, r, http.MethodPost, "/api/retrain", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("20 samples: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	active := registry.Active()
	if active == nil || active.Meta.Version != 1 {
		t.Fatalf("expected active artifact v1, got %+v", active)
	}

	w = doJSON(t, r, http.MethodGet, "/api/model", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("model info: %d", w.Code)
	}
	var info struct {
		Active bool `json:"active"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !info.Active {
		t.Fatalf("model info should report an active model: %s", w.Body.String())
	}

	// The next ranking now reports model-sourced scores.
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/recommendations?trip_id=%s", trip.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rank after retrain: %d", w.Code)
	}
	var resp struct {
		UsedModel bool `json:"used_model"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.UsedModel {
		t.Fatalf("expected model-sourced scores after retrain")
	}
}

func TestUseMLFlagForcesHeuristic(t *testing.T) {
	_, registry, r := testSetup(t)
	trip := createTrip(t, r, map[string]any{"origin": "Islamabad", "destination": "Lahore"})

	art := &model.Artifact{Meta: model.Metadata{Version: 1, FeatureLength: 11}}
	if err := registry.Activate(art); err != nil {
		t.Fatalf("activate: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/recommendations?trip_id="+trip.ID+"&use_ml=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		UsedModel bool `json:"used_model"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UsedModel {
		t.Fatalf("use_ml=0 must force the heuristic")
	}
}

func TestHealthz(t *testing.T) {
	_, _, r := testSetup(t)
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
