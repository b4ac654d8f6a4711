// Package scoring turns feature vectors into satisfaction scores in [0,1],
// preferring the trained model and guaranteeing a heuristic baseline.
package scoring

import (
	"github.com/rs/zerolog"

	"github.com/transitmate/backend/internal/feature"
	"github.com/transitmate/backend/internal/model"
	"github.com/transitmate/backend/internal/models"
)

// Heuristic weighting: lower ETA and cost are better, ETA weighted heavier,
// with a small bonus when the scored mode was explicitly requested. Exact
// coefficients are a local choice; only the monotonic direction matters.
const (
	weightETA  = 0.6
	weightCost = 0.4
	prefBonus  = 0.05
)

type Engine struct {
	Registry *model.Registry
	Logger   zerolog.Logger
}

// Score produces a score in [0,1] and its source. The model path is used when
// useModel is set and a usable artifact is active; any model failure (missing,
// shape mismatch, non-finite output) silently degrades to the heuristic, so
// scoring itself can never fail.
func (e *Engine) Score(v feature.Vector, useModel bool) (float64, string) {
	if useModel {
		if art := e.Registry.Active(); art != nil {
			score, err := art.Score(v)
			if err == nil {
				return clamp01(score), models.SourceModel
			}
			e.Logger.Warn().Err(err).Msg("model scoring failed, falling back to heuristic")
		}
	}
	return Heuristic(v), models.SourceHeuristic
}

// Heuristic is the model-free baseline: a weighted linear combination of
// normalized ETA and cost mapped onto [0,1], plus the preference bonus for the
// scored mode. Total function of its input, safe for any vector.
func Heuristic(v feature.Vector) float64 {
	penalty := (weightETA*v.ETANorm() + weightCost*v.CostNorm()) / (weightETA + weightCost)
	score := 1 - penalty
	if v.PrefFlag(v.ModeIndex()) == 1 {
		score += prefBonus
	}
	return clamp01(score)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
