// Package model holds the trained scoring function, its registry slot and the
// batch trainer that refits it from feedback.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/transitmate/backend/internal/feature"
)

// LinearModel is the fitted scoring function: an intercept plus one weight per
// feature. Predict returns the raw linear response; callers clamp to [0,1].
type LinearModel struct {
	Intercept float64                    `json:"intercept"`
	Weights   [feature.VectorLen]float64 `json:"weights"`
}

func (m LinearModel) Predict(v feature.Vector) float64 {
	out := m.Intercept
	for i, w := range m.Weights {
		out += w * v[i]
	}
	return out
}

// Metadata is the sidecar record persisted next to the coefficients; the
// feature length is checked before an artifact is ever activated.
type Metadata struct {
	Version       int       `json:"version"`
	SampleCount   int       `json:"sample_count"`
	CreatedAt     time.Time `json:"created_at"`
	FeatureLength int       `json:"feature_length"`
	TrainMSE      float64   `json:"train_mse"`
	MeanRating    float64   `json:"mean_rating"`
}

// Artifact is an immutable trained model plus metadata. Replacement happens by
// swapping whole artifacts in the registry, never by mutating one in place.
type Artifact struct {
	Model LinearModel `json:"model"`
	Meta  Metadata    `json:"meta"`
}

// Score evaluates the model after verifying the trained shape still matches
// the extractor's. Any mismatch or non-finite output is an integrity error the
// scoring engine recovers from via the heuristic.
func (a *Artifact) Score(v feature.Vector) (float64, error) {
	if a.Meta.FeatureLength != feature.VectorLen {
		return 0, fmt.Errorf("artifact v%d trained on %d features, extractor emits %d",
			a.Meta.Version, a.Meta.FeatureLength, feature.VectorLen)
	}
	out := a.Model.Predict(v)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("artifact v%d produced non-finite score", a.Meta.Version)
	}
	return out, nil
}

// EncodeParams and EncodeMeta serialize the two persisted parts of an
// artifact: reloadable coefficients and the metadata sidecar.
func (a *Artifact) EncodeParams() ([]byte, error) {
	return json.Marshal(a.Model)
}

func (a *Artifact) EncodeMeta() ([]byte, error) {
	return json.Marshal(a.Meta)
}

// DecodeArtifact reassembles an artifact from its persisted parts.
func DecodeArtifact(params, meta []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(params, &a.Model); err != nil {
		return nil, fmt.Errorf("decode model params: %w", err)
	}
	if err := json.Unmarshal(meta, &a.Meta); err != nil {
		return nil, fmt.Errorf("decode model metadata: %w", err)
	}
	return &a, nil
}
