// README: API gateway; builds the gin engine, registers routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dronequote/internal/http/handlers"
	"dronequote/internal/http/middleware"
	"dronequote/internal/metrics"
	"dronequote/internal/modules/pricing"
)

type ServerDeps struct {
	Pricing *pricing.Service
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Server struct {
	pricing *pricing.Service
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pricing: deps.Pricing,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(s.logger), middleware.Logging(s.logger))
	if s.metrics != nil {
		r.Use(middleware.Metrics(s.metrics))
		r.GET("/metrics", gin.WrapH(s.metrics.HTTPHandler()))
	}
	r.NoMethod(handlers.MethodNotAllowed)
	r.NoRoute(handlers.NotFound)

	quoteHandler := handlers.NewQuoteHandler(s.pricing, s.logger)
	api := r.Group("/api")
	api.POST("/quotes/estimate", quoteHandler.Estimate)
	api.GET("/quotes/held/:id", quoteHandler.Get)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}
