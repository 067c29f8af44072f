package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Icestreamm/baseer-backend/internal/adapters/primary/http/middleware"
)

// RouterOptions configures the middleware chain shared by both servers.
type RouterOptions struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	// Metrics and MetricsHandler are optional
	Metrics        middleware.HTTPObserver
	MetricsHandler http.Handler
	MetricsPath    string
}

func newEngine(opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())
	router.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics))
	}
	router.Use(middleware.BodyLimit(opts.MaxBodyBytes))

	if opts.MetricsHandler != nil && opts.MetricsPath != "" {
		router.GET(opts.MetricsPath, gin.WrapH(opts.MetricsHandler))
	}
	return router
}

// NewGatewayRouter builds the inference gateway engine.
func NewGatewayRouter(h *GatewayHandler, opts RouterOptions) *gin.Engine {
	router := newEngine(opts)
	h.RegisterRoutes(router)

	bots := NewBotFilter("/", "/health", "/ready", "/predict", "/yolo", opts.MetricsPath)
	router.NoRoute(bots.NotFound(GatewayEndpoints))
	return router
}

// NewAssessmentRouter builds the assessment API engine.
func NewAssessmentRouter(h *AssessmentHandler, opts RouterOptions) *gin.Engine {
	router := newEngine(opts)
	h.RegisterRoutes(router)

	bots := NewBotFilter("/", "/health", "/ready", "/api/assessments", opts.MetricsPath)
	router.NoRoute(bots.NotFound(AssessmentEndpoints))
	return router
}
