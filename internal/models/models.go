package models

import "time"

// Score sources reported per recommendation.
const (
	SourceModel     = "model"
	SourceHeuristic = "heuristic"
)

// TripRequest is immutable once created; the engine only reads it.
type TripRequest struct {
	ID            string          `json:"id"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	PreferredTime string          `json:"preferred_time,omitempty"`
	Modes         []TransportMode `json:"modes"`
	CreatedAt     time.Time       `json:"created_at"`
}

// WantsMode reports whether the mode is in the trip's requested set.
func (t TripRequest) WantsMode(m TransportMode) bool {
	for _, want := range t.Modes {
		if want == m {
			return true
		}
	}
	return false
}

// RouteMeasurement is raw driving distance/duration between origin and
// destination. Fallback marks a straight-line substitute produced when the
// routing provider was unavailable.
type RouteMeasurement struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	Fallback        bool    `json:"fallback,omitempty"`
}

// ModeEstimate is derived from a RouteMeasurement for one mode and consumed
// immediately by feature extraction; it is never persisted on its own.
type ModeEstimate struct {
	Mode       TransportMode `json:"mode"`
	ETAMinutes int           `json:"eta_minutes"`
	Cost       float64       `json:"cost"`
}

type Recommendation struct {
	Mode       TransportMode `json:"mode"`
	ETAMinutes int           `json:"eta_minutes"`
	Cost       float64       `json:"cost"`
	Score      float64       `json:"score"`
	Source     string        `json:"source"`
}

// FeedbackRecord is an append-only labeled training example. It carries enough
// trip context (names, preferred time, requested-mode set) to rebuild the exact
// feature vector at training time.
type FeedbackRecord struct {
	ID            string          `json:"id"`
	TripID        string          `json:"trip_id"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	PreferredTime string          `json:"preferred_time,omitempty"`
	Modes         []TransportMode `json:"modes"`
	Mode          TransportMode   `json:"mode"`
	Rating        int             `json:"rating"`
	Comment       string          `json:"comment,omitempty"`
	ETAMinutes    int             `json:"eta_minutes"`
	Cost          float64         `json:"cost"`
	ShownScore    float64         `json:"shown_score"`
	Target        float64         `json:"target"`
	CreatedAt     time.Time       `json:"created_at"`
}
