package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Icestreamm/baseer-backend/internal/adapters/primary/http/handlers"
	"github.com/Icestreamm/baseer-backend/internal/adapters/secondary/detectors"
	"github.com/Icestreamm/baseer-backend/internal/adapters/secondary/memory"
	"github.com/Icestreamm/baseer-backend/internal/adapters/secondary/photos"
	"github.com/Icestreamm/baseer-backend/internal/adapters/secondary/prometheus"
	"github.com/Icestreamm/baseer-backend/internal/adapters/secondary/report"
	"github.com/Icestreamm/baseer-backend/internal/config"
	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
	"github.com/Icestreamm/baseer-backend/internal/core/services"
	"github.com/Icestreamm/baseer-backend/internal/server"
)

const maxPhotoBytes = 25 << 20

func main() {
	cfg, err := config.Load(8000)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	server.InitLogger(cfg)
	gin.SetMode(gin.ReleaseMode)

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Metrics (Optional - based on config)
	var metrics output.MetricsRecorder = output.NopMetrics{}
	opts := handlers.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	}
	if cfg.Metrics.Enabled {
		recorder := prometheus.NewRecorder("baseer", "assessment-api")
		metrics = recorder
		opts.Metrics = recorder
		opts.MetricsHandler = recorder.Handler()
		opts.MetricsPath = cfg.Metrics.Path
		log.Info("Prometheus metrics enabled")
	}

	// Detectors (missing ones fail assessments, not the server)
	detectorSet := output.DetectorSet{}
	factory, err := detectors.NewFactory(cfg)
	if err != nil {
		log.WithError(err).Error("detector factory init failed, serving without models")
	} else {
		detectorSet = factory.Assessment(domain.AllModels)
	}
	defer detectorSet.Close()

	if missing := detectorSet.Missing(domain.RequiredModels); len(missing) > 0 {
		log.WithField("missing", missing).Warn("required models not loaded, assessments will fail")
	} else {
		log.WithField("models", len(detectorSet)).Info("assessment models loaded")
	}

	// Secondary Adapters (Output Ports)
	statusRepo := memory.NewAssessmentStatusRepo(cfg.Assessment.StatusTTL, cfg.Assessment.MaxStatuses)
	fetcher := photos.NewHTTPFetcher(cfg.Assessment.PhotoTimeout, maxPhotoBytes)
	renderer := report.NewRenderer()

	// Core Services (Application Layer)
	assessmentSvc := services.NewAssessmentService(statusRepo, fetcher, renderer, detectorSet, metrics,
		services.AssessmentOptions{
			MaxPhotos:      cfg.Assessment.MaxPhotos,
			IoUThreshold:   cfg.Assessment.IoUThreshold,
			MaxImagePixels: cfg.Server.MaxImagePixels,
		})

	// Primary Adapter (HTTP Handlers)
	router := handlers.NewAssessmentRouter(handlers.NewAssessmentHandler(assessmentSvc), opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := server.Run(ctx, cfg.Server, router)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := assessmentSvc.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("assessments still running at shutdown")
	}

	if runErr != nil {
		log.WithError(runErr).Error("server failed")
		detectorSet.Close()
		os.Exit(1)
	}
}
