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
	"github.com/Icestreamm/baseer-backend/internal/adapters/secondary/prometheus"
	"github.com/Icestreamm/baseer-backend/internal/config"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
	"github.com/Icestreamm/baseer-backend/internal/core/services"
	"github.com/Icestreamm/baseer-backend/internal/server"
)

func main() {
	cfg, err := config.Load(5000)
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
		recorder := prometheus.NewRecorder("baseer", "inference-gateway")
		metrics = recorder
		opts.Metrics = recorder
		opts.MetricsHandler = recorder.Handler()
		opts.MetricsPath = cfg.Metrics.Path
		log.Info("Prometheus metrics enabled")
	}

	// Detector (a load failure keeps the server up with model_loaded=false)
	var detector output.Detector
	factory, err := detectors.NewFactory(cfg)
	if err != nil {
		log.WithError(err).Error("detector factory init failed, serving without a model")
	} else if detector, err = factory.Gateway(); err != nil {
		log.WithError(err).WithField("model_path", cfg.Model.Path).Error("model load failed, serving without a model")
		detector = nil
	} else {
		log.WithFields(log.Fields{
			"backend": cfg.Model.Backend,
			"model":   detector.Name(),
		}).Info("model loaded")
	}

	// Core Services (Application Layer)
	inferenceSvc := services.NewInferenceService(detector, metrics, services.InferenceOptions{
		MaxImagePixels: cfg.Server.MaxImagePixels,
	})

	// Primary Adapter (HTTP Handlers)
	router := handlers.NewGatewayRouter(handlers.NewGatewayHandler(inferenceSvc), opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg.Server, router); err != nil {
		log.WithError(err).Error("server failed")
		closeDetector(detector)
		os.Exit(1)
	}
	closeDetector(detector)
}

func closeDetector(d output.Detector) {
	if d == nil {
		return
	}
	if err := d.Close(); err != nil {
		log.WithError(err).Warn("close detector")
	}
}
