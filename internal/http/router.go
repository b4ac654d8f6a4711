package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/transitmate/backend/internal/config"
	"github.com/transitmate/backend/internal/http/handlers"
	"github.com/transitmate/backend/internal/http/middleware"
	"github.com/transitmate/backend/internal/model"
	"github.com/transitmate/backend/internal/recommend"

	_ "github.com/transitmate/backend/docs"
)

func Router(cfg config.Config, store handlers.Store, ranker *recommend.Ranker, recorder *recommend.Recorder, trainer *model.Trainer, registry *model.Registry, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Ranker:    ranker,
		Recorder:  recorder,
		Trainer:   trainer,
		Registry:  registry,
		Validator: validator.New(),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/trips", h.TripCreate)
		api.GET("/trips/:id", h.TripGet)
		api.GET("/recommendations", h.RecommendationsList)
		api.POST("/feedback", h.FeedbackCreate)
		api.GET("/model", h.ModelInfo)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/retrain", h.Retrain)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
