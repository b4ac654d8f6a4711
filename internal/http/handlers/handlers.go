package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/transitmate/backend/internal/db"
	"github.com/transitmate/backend/internal/model"
	"github.com/transitmate/backend/internal/models"
	"github.com/transitmate/backend/internal/recommend"
)

// Store is the slice of persistence the HTTP layer touches directly;
// *db.Store satisfies it, tests plug in memory fakes.
type Store interface {
	Ping(ctx context.Context) error
	CreateTrip(ctx context.Context, trip models.TripRequest) error
	GetTrip(ctx context.Context, id string) (models.TripRequest, error)
	SaveRecommendations(ctx context.Context, tripID string, recs []models.Recommendation) error
}

type Handler struct {
	Store     Store
	Ranker    *recommend.Ranker
	Recorder  *recommend.Recorder
	Trainer   *model.Trainer
	Registry  *model.Registry
	Validator *validator.Validate
	Logger    zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type tripCreateRequest struct {
	Origin        string   `json:"origin" validate:"required"`
	Destination   string   `json:"destination" validate:"required"`
	PreferredTime string   `json:"preferred_time"`
	Modes         []string `json:"modes"`
}

// @Summary Create a trip request
// @Description Register a trip between two named places with optional mode preferences
// @Tags trips
// @Accept json
// @Produce json
// @Param trip body tripCreateRequest true "trip"
// @Success 201 {object} models.TripRequest
// @Failure 400 {object} map[string]any
// @Router /api/trips [post]
func (h *Handler) TripCreate(c *gin.Context) {
	var req tripCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "origin and destination are required", err.Error())
		return
	}

	modes, err := parseModes(req.Modes)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_MODE", err.Error(), nil)
		return
	}

	trip := models.TripRequest{
		ID:            uuid.NewString(),
		Origin:        strings.TrimSpace(req.Origin),
		Destination:   strings.TrimSpace(req.Destination),
		PreferredTime: strings.TrimSpace(req.PreferredTime),
		Modes:         modes,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Store.CreateTrip(c.Request.Context(), trip); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store trip", err.Error())
		return
	}
	c.JSON(http.StatusCreated, trip)
}

// @Summary Fetch a trip request
// @Tags trips
// @Produce json
// @Param id path string true "trip id"
// @Success 200 {object} models.TripRequest
// @Failure 404 {object} map[string]any
// @Router /api/trips/{id} [get]
func (h *Handler) TripGet(c *gin.Context) {
	trip, err := h.Store.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Trip not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load trip", err.Error())
		return
	}
	c.JSON(http.StatusOK, trip)
}

// @Summary Rank transport options for a trip
// @Description Score and rank the trip's requested modes; use_ml=0 forces the heuristic
// @Tags recommendations
// @Produce json
// @Param trip_id query string true "trip id"
// @Param use_ml query string false "set to 0/false/off to bypass the trained model"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Router /api/recommendations [get]
func (h *Handler) RecommendationsList(c *gin.Context) {
	tripID := c.Query("trip_id")
	if tripID == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "trip_id is required", nil)
		return
	}
	useModel := true
	if raw, ok := c.GetQuery("use_ml"); ok {
		switch strings.ToLower(raw) {
		case "0", "false", "off":
			useModel = false
		}
	}

	trip, err := h.Store.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Trip not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load trip", err.Error())
		return
	}

	recs, err := h.Ranker.Rank(c.Request.Context(), trip, useModel)
	if err != nil {
		if errors.Is(err, recommend.ErrNoCandidates) {
			writeError(c, http.StatusUnprocessableEntity, "NO_CANDIDATES", "No transport option could be evaluated for this trip", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "RANKING_ERROR", "Ranking failed", err.Error())
		return
	}

	// Archival only; ranking output does not depend on it.
	if err := h.Store.SaveRecommendations(c.Request.Context(), trip.ID, recs); err != nil {
		h.Logger.Warn().Err(err).Str("trip_id", trip.ID).Msg("failed to archive recommendations")
	}

	usedModel := false
	for _, rec := range recs {
		if rec.Source == models.SourceModel {
			usedModel = true
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"trip_id":         trip.ID,
		"recommendations": recs,
		"used_model":      usedModel,
	})
}

type feedbackCreateRequest struct {
	TripID     string  `json:"trip_id" validate:"required"`
	Mode       string  `json:"mode" validate:"required"`
	Rating     int     `json:"rating" validate:"required"`
	Comment    string  `json:"comment"`
	ETAMinutes int     `json:"eta_minutes"`
	Cost       float64 `json:"cost"`
	Score      float64 `json:"score"`
}

// @Summary Record feedback on a shown recommendation
// @Description Store a 1-5 star rating as a labeled training example
// @Tags feedback
// @Accept json
// @Produce json
// @Param feedback body feedbackCreateRequest true "feedback"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/feedback [post]
func (h *Handler) FeedbackCreate(c *gin.Context) {
	var req feedbackCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "trip_id, mode and rating are required", err.Error())
		return
	}

	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_MODE", err.Error(), nil)
		return
	}

	trip, err := h.Store.GetTrip(c.Request.Context(), req.TripID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Trip not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load trip", err.Error())
		return
	}

	rec, err := h.Recorder.Record(c.Request.Context(), trip, recommend.FeedbackInput{
		Mode:       mode,
		Rating:     req.Rating,
		Comment:    req.Comment,
		ETAMinutes: req.ETAMinutes,
		Cost:       req.Cost,
		ShownScore: req.Score,
	})
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidFeedback) {
			writeError(c, http.StatusBadRequest, "INVALID_FEEDBACK", "Rating must be between 1 and 5", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store feedback", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"feedback_id": rec.ID,
		"target":      rec.Target,
	})
}

// @Summary Retrain the scoring model
// @Description Batch-refit the model from all accumulated feedback
// @Tags model
// @Produce json
// @Success 200 {object} model.Metadata
// @Failure 422 {object} map[string]any
// @Router /api/retrain [post]
func (h *Handler) Retrain(c *gin.Context) {
	artifact, err := h.Trainer.Retrain(c.Request.Context())
	if err != nil {
		if errors.Is(err, model.ErrInsufficientData) {
			writeError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA", err.Error(), nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "TRAINING_ERROR", "Retraining failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": artifact.Meta})
}

// @Summary Active model metadata
// @Tags model
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/model [get]
func (h *Handler) ModelInfo(c *gin.Context) {
	artifact := h.Registry.Active()
	if artifact == nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true, "model": artifact.Meta})
}

func parseModes(names []string) ([]models.TransportMode, error) {
	if len(names) == 0 {
		return models.AllModes(), nil
	}
	seen := map[models.TransportMode]bool{}
	out := make([]models.TransportMode, 0, len(names))
	for _, name := range names {
		m, err := models.ParseMode(name)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

func writeError(c *gin.Context, status int, code, message string, details any) {
	errBody := gin.H{"code": code, "message": message}
	if details != nil {
		errBody["details"] = details
	}
	c.JSON(status, gin.H{"error": errBody})
}
