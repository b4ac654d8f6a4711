package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/transitmate/backend/internal/models"
)

// ErrInvalidFeedback rejects ratings outside the 1-5 star scale before any
// state is written.
var ErrInvalidFeedback = errors.New("invalid feedback")

// FeedbackStore is the append side of feedback history. Appends are
// independent rows; duplicates are legitimate re-ratings.
type FeedbackStore interface {
	AppendFeedback(ctx context.Context, rec models.FeedbackRecord) error
}

// FeedbackInput is what the caller saw at recommendation time. ETA, cost and
// score are echoed back so the trainer can rebuild the scored vector.
type FeedbackInput struct {
	Mode       models.TransportMode
	Rating     int
	Comment    string
	ETAMinutes int
	Cost       float64
	ShownScore float64
}

type Recorder struct {
	Store  FeedbackStore
	Logger zerolog.Logger
}

// Record validates the rating, derives the satisfaction target and appends a
// labeled example carrying the trip context needed for feature reconstruction.
func (r *Recorder) Record(ctx context.Context, trip models.TripRequest, in FeedbackInput) (models.FeedbackRecord, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return models.FeedbackRecord{}, fmt.Errorf("%w: rating %d not in 1..5", ErrInvalidFeedback, in.Rating)
	}
	if !in.Mode.Valid() {
		return models.FeedbackRecord{}, fmt.Errorf("%w: unknown mode", ErrInvalidFeedback)
	}

	rec := models.FeedbackRecord{
		ID:            uuid.NewString(),
		TripID:        trip.ID,
		Origin:        trip.Origin,
		Destination:   trip.Destination,
		PreferredTime: trip.PreferredTime,
		Modes:         trip.Modes,
		Mode:          in.Mode,
		Rating:        in.Rating,
		Comment:       in.Comment,
		ETAMinutes:    in.ETAMinutes,
		Cost:          in.Cost,
		ShownScore:    in.ShownScore,
		Target:        SatisfactionTarget(in.Rating),
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.Store.AppendFeedback(ctx, rec); err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("append feedback: %w", err)
	}
	r.Logger.Debug().
		Str("trip_id", rec.TripID).
		Str("mode", rec.Mode.String()).
		Int("rating", rec.Rating).
		Msg("feedback recorded")
	return rec, nil
}

// SatisfactionTarget maps a 1-5 star rating onto the [0,1] regression label.
func SatisfactionTarget(rating int) float64 {
	return float64(rating-1) / 4
}
