package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/transitmate/backend/internal/config"
	"github.com/transitmate/backend/internal/db"
	"github.com/transitmate/backend/internal/estimate"
	httpapi "github.com/transitmate/backend/internal/http"
	"github.com/transitmate/backend/internal/model"
	"github.com/transitmate/backend/internal/recommend"
	"github.com/transitmate/backend/internal/routing"
	"github.com/transitmate/backend/internal/scoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "transitmate-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	registry := model.NewRegistry()
	if artifact, err := store.LoadArtifact(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to load persisted model artifact")
	} else if artifact != nil {
		if err := registry.Activate(artifact); err != nil {
			logger.Warn().Err(err).Msg("persisted artifact rejected, serving heuristic until retrain")
		} else {
			logger.Info().
				Int("version", artifact.Meta.Version).
				Int("samples", artifact.Meta.SampleCount).
				Msg("model artifact reloaded")
		}
	}

	var geocoder routing.Geocoder
	var provider routing.Provider
	if cfg.ORSAPIKey == "" {
		geocoder = routing.StaticGazetteer{Synthesize: true}
		provider = routing.MockProvider{}
		logger.Info().Msg("no ORS key configured, using deterministic mock routing")
	} else {
		ors := routing.NewORSClient(cfg.ORSBaseURL, cfg.ORSAPIKey)
		geocoder = routing.FallbackGeocoder{ors, routing.StaticGazetteer{}}
		provider = ors
	}

	measurer := &estimate.Measurer{
		Geocoder: geocoder,
		Provider: provider,
		Timeout:  cfg.RouteTimeout,
		Logger:   logger,
	}
	engine := &scoring.Engine{Registry: registry, Logger: logger}
	ranker := &recommend.Ranker{Measurer: measurer, Engine: engine, Logger: logger}
	recorder := &recommend.Recorder{Store: store, Logger: logger}
	trainer := &model.Trainer{
		Feedback:   store,
		Registry:   registry,
		Sink:       store,
		MinSamples: cfg.MinTrainSamples,
		Logger:     logger,
	}

	router := httpapi.Router(cfg, store, ranker, recorder, trainer, registry, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
