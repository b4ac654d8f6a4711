package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transitmate/backend/internal/model"
	"github.com/transitmate/backend/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// EnsureSchema creates the tables on startup; idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trips (
			id TEXT PRIMARY KEY,
			origin TEXT NOT NULL,
			destination TEXT NOT NULL,
			preferred_time TEXT NOT NULL DEFAULT '',
			modes TEXT[] NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS recommendations (
			id BIGSERIAL PRIMARY KEY,
			trip_id TEXT NOT NULL REFERENCES trips(id),
			mode TEXT NOT NULL,
			eta_minutes INT NOT NULL,
			cost DOUBLE PRECISION NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			source TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL,
			origin TEXT NOT NULL,
			destination TEXT NOT NULL,
			preferred_time TEXT NOT NULL DEFAULT '',
			modes TEXT[] NOT NULL,
			mode TEXT NOT NULL,
			rating INT NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			eta_minutes INT NOT NULL,
			cost DOUBLE PRECISION NOT NULL,
			shown_score DOUBLE PRECISION NOT NULL,
			target DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS model_artifacts (
			version INT PRIMARY KEY,
			params JSONB NOT NULL,
			meta JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

func (s *Store) CreateTrip(ctx context.Context, trip models.TripRequest) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO trips (id, origin, destination, preferred_time, modes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, trip.ID, trip.Origin, trip.Destination, trip.PreferredTime, modeNames(trip.Modes), trip.CreatedAt)
	return err
}

func (s *Store) GetTrip(ctx context.Context, id string) (models.TripRequest, error) {
	var trip models.TripRequest
	var names []string
	err := s.Pool.QueryRow(ctx, `
		SELECT id, origin, destination, preferred_time, modes, created_at
		FROM trips WHERE id = $1
	`, id).Scan(&trip.ID, &trip.Origin, &trip.Destination, &trip.PreferredTime, &names, &trip.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TripRequest{}, ErrNotFound
		}
		return models.TripRequest{}, err
	}
	trip.Modes, err = parseModes(names)
	if err != nil {
		return models.TripRequest{}, err
	}
	return trip, nil
}

// SaveRecommendations archives a ranking result; the core never reads it back.
func (s *Store) SaveRecommendations(ctx context.Context, tripID string, recs []models.Recommendation) error {
	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, []any{tripID, rec.Mode.String(), rec.ETAMinutes, rec.Cost, rec.Score, rec.Source})
	}
	_, err := s.Pool.CopyFrom(ctx, pgx.Identifier{"recommendations"},
		[]string{"trip_id", "mode", "eta_minutes", "cost", "score", "source"},
		pgx.CopyFromRows(rows))
	return err
}

// AppendFeedback inserts one independent row; no cross-record locking needed.
func (s *Store) AppendFeedback(ctx context.Context, rec models.FeedbackRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO feedback (id, trip_id, origin, destination, preferred_time, modes, mode,
			rating, comment, eta_minutes, cost, shown_score, target, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, rec.ID, rec.TripID, rec.Origin, rec.Destination, rec.PreferredTime, modeNames(rec.Modes),
		rec.Mode.String(), rec.Rating, rec.Comment, rec.ETAMinutes, rec.Cost, rec.ShownScore,
		rec.Target, rec.CreatedAt)
	return err
}

func (s *Store) ListFeedback(ctx context.Context) ([]models.FeedbackRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, trip_id, origin, destination, preferred_time, modes, mode,
			rating, comment, eta_minutes, cost, shown_score, target, created_at
		FROM feedback ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FeedbackRecord
	for rows.Next() {
		var rec models.FeedbackRecord
		var names []string
		var modeName string
		if err := rows.Scan(&rec.ID, &rec.TripID, &rec.Origin, &rec.Destination, &rec.PreferredTime,
			&names, &modeName, &rec.Rating, &rec.Comment, &rec.ETAMinutes, &rec.Cost,
			&rec.ShownScore, &rec.Target, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.Modes, err = parseModes(names); err != nil {
			return nil, err
		}
		if rec.Mode, err = models.ParseMode(modeName); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveArtifact persists coefficients and the metadata sidecar keyed by
// version. Old versions are retained for rollback.
func (s *Store) SaveArtifact(ctx context.Context, a *model.Artifact) error {
	params, err := a.EncodeParams()
	if err != nil {
		return err
	}
	meta, err := a.EncodeMeta()
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO model_artifacts (version, params, meta, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (version) DO UPDATE SET
			params = EXCLUDED.params,
			meta = EXCLUDED.meta,
			created_at = EXCLUDED.created_at
	`, a.Meta.Version, params, meta, a.Meta.CreatedAt)
	return err
}

// LoadArtifact returns the newest persisted artifact, or nil when none exists.
// Callers run the feature-length check before activation.
func (s *Store) LoadArtifact(ctx context.Context) (*model.Artifact, error) {
	var params, meta []byte
	err := s.Pool.QueryRow(ctx, `
		SELECT params, meta FROM model_artifacts ORDER BY version DESC LIMIT 1
	`).Scan(&params, &meta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return model.DecodeArtifact(params, meta)
}

func modeNames(modes []models.TransportMode) []string {
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		out = append(out, m.String())
	}
	return out
}

func parseModes(names []string) ([]models.TransportMode, error) {
	out := make([]models.TransportMode, 0, len(names))
	for _, name := range names {
		m, err := models.ParseMode(name)
		if err != nil {
			return nil, fmt.Errorf("stored mode: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}
