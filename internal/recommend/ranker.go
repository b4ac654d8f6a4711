// Package recommend orchestrates the scoring core: ranking candidate modes
// for a trip and recording user feedback as training signal.
package recommend

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/transitmate/backend/internal/estimate"
	"github.com/transitmate/backend/internal/feature"
	"github.com/transitmate/backend/internal/models"
	"github.com/transitmate/backend/internal/scoring"
)

// ErrNoCandidates is the ranker's only terminal failure: an empty requested
// mode set, or no measurement obtainable for any mode.
var ErrNoCandidates = errors.New("no candidate recommendations")

// Measurer supplies the driving measurement between two named places.
type Measurer interface {
	Measure(ctx context.Context, origin, destination string) (models.RouteMeasurement, error)
}

type Ranker struct {
	Measurer Measurer
	Engine   *scoring.Engine
	Logger   zerolog.Logger
}

// Rank scores every requested mode and returns recommendations sorted by
// score descending, ties broken by ascending ETA, then ascending cost, then
// the fixed Bus/Metro/RideShare/Taxi order, so identical inputs against the
// same active model always produce the same ordering. Modes whose measurement
// cannot be obtained are dropped rather than failing the whole call.
func (r *Ranker) Rank(ctx context.Context, trip models.TripRequest, useModel bool) ([]models.Recommendation, error) {
	if len(trip.Modes) == 0 {
		return nil, ErrNoCandidates
	}

	// Measurements are keyed by place pair and cached for the lifetime of this
	// call, so the provider is consulted once however many modes share it.
	measurements := map[string]models.RouteMeasurement{}
	measure := func(origin, destination string) (models.RouteMeasurement, error) {
		key := origin + "\x00" + destination
		if m, ok := measurements[key]; ok {
			return m, nil
		}
		m, err := r.Measurer.Measure(ctx, origin, destination)
		if err != nil {
			return models.RouteMeasurement{}, err
		}
		measurements[key] = m
		return m, nil
	}

	recs := make([]models.Recommendation, 0, len(trip.Modes))
	for _, mode := range trip.Modes {
		measurement, err := measure(trip.Origin, trip.Destination)
		if err != nil {
			r.Logger.Warn().Err(err).
				Str("trip_id", trip.ID).
				Str("mode", mode.String()).
				Msg("no measurement obtainable, dropping mode")
			continue
		}

		est := estimate.ForMode(measurement, mode)
		v := feature.Extract(trip, mode, est)
		score, source := r.Engine.Score(v, useModel)

		recs = append(recs, models.Recommendation{
			Mode:       mode,
			ETAMinutes: est.ETAMinutes,
			Cost:       est.Cost,
			Score:      score,
			Source:     source,
		})
	}
	if len(recs) == 0 {
		return nil, ErrNoCandidates
	}

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ETAMinutes != b.ETAMinutes {
			return a.ETAMinutes < b.ETAMinutes
		}
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
		return a.Mode < b.Mode
	})
	return recs, nil
}
