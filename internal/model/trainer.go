package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"github.com/transitmate/backend/internal/feature"
	"github.com/transitmate/backend/internal/models"
)

// ErrInsufficientData gates retraining: below the minimum sample count no
// model is produced at all, not even a degenerate one.
var ErrInsufficientData = errors.New("not enough feedback samples to train")

const (
	DefaultMinSamples = 20
	defaultRidge      = 1.0
)

// FeedbackSource is the read side of feedback history.
type FeedbackSource interface {
	ListFeedback(ctx context.Context) ([]models.FeedbackRecord, error)
}

// ArtifactSink durably saves a trained artifact. Saving is best-effort
// relative to activation: the registry swap is what serves traffic.
type ArtifactSink interface {
	SaveArtifact(ctx context.Context, a *Artifact) error
}

// Trainer batch-refits the scoring model from the full feedback history. It
// never holds a lock shared with the ranking path; in-flight rankings keep
// scoring against whichever artifact was active when they started.
type Trainer struct {
	Feedback   FeedbackSource
	Registry   *Registry
	Sink       ArtifactSink
	MinSamples int
	Ridge      float64
	Logger     zerolog.Logger
}

// Retrain reads all feedback, rebuilds each record's feature vector from its
// stored trip context, fits a fresh ridge regression and atomically activates
// the result. The feedback already recorded is retained either way.
func (t *Trainer) Retrain(ctx context.Context) (*Artifact, error) {
	minSamples := t.MinSamples
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	ridge := t.Ridge
	if ridge <= 0 {
		ridge = defaultRidge
	}

	records, err := t.Feedback.ListFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	if len(records) < minSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(records), minSamples)
	}

	vectors := make([]feature.Vector, 0, len(records))
	targets := make([]float64, 0, len(records))
	ratings := make([]float64, 0, len(records))
	for _, rec := range records {
		vectors = append(vectors, rebuildVector(rec))
		targets = append(targets, rec.Target)
		ratings = append(ratings, float64(rec.Rating))
	}

	fitted := fitRidge(vectors, targets, ridge)

	version := 1
	if prev := t.Registry.Active(); prev != nil {
		version = prev.Meta.Version + 1
	}

	meanRating, _ := stats.Mean(ratings)
	artifact := &Artifact{
		Model: fitted,
		Meta: Metadata{
			Version:       version,
			SampleCount:   len(records),
			CreatedAt:     time.Now().UTC(),
			FeatureLength: feature.VectorLen,
			TrainMSE:      trainingMSE(fitted, vectors, targets),
			MeanRating:    meanRating,
		},
	}

	if err := t.Registry.Activate(artifact); err != nil {
		return nil, err
	}
	if t.Sink != nil {
		if err := t.Sink.SaveArtifact(ctx, artifact); err != nil {
			t.Logger.Warn().Err(err).Int("version", version).Msg("failed to persist model artifact")
		}
	}

	t.Logger.Info().
		Int("version", version).
		Int("samples", len(records)).
		Float64("train_mse", artifact.Meta.TrainMSE).
		Msg("model retrained")
	return artifact, nil
}

// rebuildVector reconstructs the exact feature vector the record was scored
// with, from the trip context the record carries.
func rebuildVector(rec models.FeedbackRecord) feature.Vector {
	trip := models.TripRequest{
		Origin:        rec.Origin,
		Destination:   rec.Destination,
		PreferredTime: rec.PreferredTime,
		Modes:         rec.Modes,
	}
	est := models.ModeEstimate{Mode: rec.Mode, ETAMinutes: rec.ETAMinutes, Cost: rec.Cost}
	return feature.Extract(trip, rec.Mode, est)
}

func trainingMSE(m LinearModel, vectors []feature.Vector, targets []float64) float64 {
	residuals := make([]float64, len(vectors))
	for i, v := range vectors {
		d := m.Predict(v) - targets[i]
		residuals[i] = d * d
	}
	mse, err := stats.Mean(residuals)
	if err != nil {
		return 0
	}
	return mse
}
