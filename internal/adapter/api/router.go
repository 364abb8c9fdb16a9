// Package api serves the grid REST API and the live session websocket.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
)

// Renderer is the pipeline surface the API drives. *pipeline.Orchestrator implements it.
type Renderer interface {
	Models() []domain.Model
	Model(key string) (domain.Model, error)
	LatestRun(model string) (domain.ModelRun, bool)
	EnsureRun(ctx context.Context, m domain.Model) (domain.ModelRun, error)
	NewSession(ctx context.Context, model string) (*domain.Session, error)
	Render(ctx context.Context, s *domain.Session) (domain.RasterResult, error)
	RenderShared(ctx context.Context, s *domain.Session) (domain.RasterResult, error)
	Sample(ctx context.Context, m domain.Model, run domain.ModelRun, v domain.Variable, fh int, points []domain.LatLon) ([]domain.PointSample, error)
}

// RunHistory lists recorded runs. *postgres.Store implements it.
type RunHistory interface {
	ListRuns(ctx context.Context, model string, limit int) ([]domain.RunDiscovered, error)
}

// NewRouter creates the Gin router. history may be nil when no store is
// configured; an empty allowedOrigins allows every origin.
func NewRouter(r Renderer, history RunHistory, allowedOrigins []string, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.ExposeHeaders = exposedHeaders
	router.Use(cors.New(corsConfig))

	h := NewHandler(r, history, logger)
	ws := newSessionSocket(r, allowedOrigins, logger)

	v1 := router.Group("/v1")
	v1.GET("/models", h.ListModels)
	v1.GET("/runs", h.ListRuns)
	v1.GET("/ws", ws.Serve)

	model := v1.Group("/models/:model")
	model.GET("/run", h.GetRun)
	model.GET("/raster", h.GetRaster)
	model.GET("/legend", h.GetLegend)
	model.GET("/sample", h.GetSample)

	return router
}

// requestLogger logs one line per request at debug level, and at warn for 5xx.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= 500 {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
