// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package incidents composes the incident risk HTTP service.
//
// # Architecture
//
//	┌──────────────┐   ┌────────────┐   ┌──────────────┐
//	│ gin handlers │──▶│  analysis  │──▶│  predictor   │
//	└──────────────┘   └────────────┘   └──────────────┘
//	                          │
//	                          ▼
//	                   ┌────────────┐
//	                   │  records   │ badger / sqlite
//	                   └────────────┘
//
// New wires telemetry, the prometheus registry, the record store, the
// predictor and the router. Run serves until Shutdown.
package incidents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/racerisk/services/incidents/analysis"
	"github.com/AleutianAI/racerisk/services/incidents/middleware"
	"github.com/AleutianAI/racerisk/services/incidents/observability"
	"github.com/AleutianAI/racerisk/services/incidents/predictor"
	"github.com/AleutianAI/racerisk/services/incidents/records"
	"github.com/AleutianAI/racerisk/services/incidents/routes"
	"github.com/AleutianAI/racerisk/services/incidents/telemetry"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service is the incident risk HTTP service.
//
// # Thread Safety
//
// Run blocks and should be called once. Shutdown may be called from any
// goroutine, more than once.
type Service interface {
	// Run serves HTTP until Shutdown. It returns nil after a graceful
	// shutdown.
	Run() error

	// Router returns the configured gin engine, for tests.
	Router() *gin.Engine

	// Predictor returns the prediction service.
	Predictor() *predictor.Service

	// Shutdown stops the listener and releases every resource.
	Shutdown(ctx context.Context) error
}

// =============================================================================
// Construction
// =============================================================================

type service struct {
	config    Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *observability.PredictionMetrics
	store     records.Store
	predictor *predictor.Service
	router    *gin.Engine
	server    *http.Server

	telemetryShutdown func(context.Context) error
	shutdownOnce      sync.Once
	shutdownErr       error
}

// New builds a Service from cfg.
//
// # Description
//
// Initializes telemetry, opens the record store (applying the seed file),
// creates the predictor and, unless LazyLoad is set, loads the model. A
// model that fails to load is not an error: the service starts in TEST
// mode.
//
// # Outputs
//
//   - Service: Ready to Run.
//   - error: Telemetry, record store or router setup failed.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Service, error) {
	cfg = applyConfigDefaults(cfg)
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	tcfg := cfg.Telemetry
	tcfg.Registerer = s.registry
	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	s.metrics = observability.NewPredictionMetrics(s.registry)

	rcfg := cfg.Records
	rcfg.Logger = logger
	s.store, err = records.Open(ctx, rcfg)
	if err != nil {
		s.cleanup(ctx)
		return nil, fmt.Errorf("failed to open records store: %w", err)
	}

	s.predictor = predictor.NewService(predictor.Config{
		ResourceDir: cfg.Predictor.ResourceDir,
		Load: predictor.LoadOptions{
			ClassifierEndpoint: cfg.Predictor.ClassifierEndpoint,
			ClassifierTimeout:  cfg.Predictor.ClassifierTimeout,
		},
		SerializeClassifier: cfg.Predictor.SerializeClassifier,
		MaxParallel:         cfg.Predictor.MaxParallel,
		Logger:              logger,
		Observer:            s.metrics,
	})
	if !cfg.Predictor.LazyLoad {
		_ = s.predictor.Load()
	}

	if err := s.initRouter(); err != nil {
		s.cleanup(ctx)
		return nil, err
	}

	s.server = &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Server.Port)),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("incident service initialized",
		"mode", s.predictor.Mode(),
		"records_backend", cfg.Records.Backend,
		"trace_exporter", cfg.Telemetry.TraceExporter,
		"metric_exporter", cfg.Telemetry.MetricExporter)
	return s, nil
}

func (s *service) initRouter() error {
	httpMetrics, err := telemetry.NewHTTPMetrics(nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	if s.config.Server.GinMode != gin.Mode() {
		gin.SetMode(s.config.Server.GinMode)
	}
	s.router = gin.New()
	s.router.Use(
		gin.Recovery(),
		otelgin.Middleware(s.config.Telemetry.ServiceName),
		middleware.RequestID(),
		middleware.AccessLog(s.logger),
		httpMetrics.Middleware(),
	)

	rateLimit := s.config.Server.RateLimit
	if rateLimit < 0 {
		rateLimit = 0
	}
	routes.SetupRoutes(s.router, routes.Deps{
		Status:    s.predictor,
		Analyzer:  analysis.NewAnalyzer(s.store, s.predictor),
		Recorder:  s.metrics,
		Gatherer:  prometheus.Gatherers{s.registry, prometheus.DefaultGatherer},
		RateLimit: rateLimit,
		RateBurst: s.config.Server.RateBurst,
	})
	return nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

func (s *service) Run() error {
	s.logger.Info("starting incident server", "addr", s.server.Addr, "mode", s.predictor.Mode())
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *service) Router() *gin.Engine { return s.router }

func (s *service) Predictor() *predictor.Service { return s.predictor }

// Shutdown drains the HTTP server within ctx, then closes the record store
// and flushes telemetry.
func (s *service) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		var errs []error
		if s.server != nil {
			if err := s.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			}
		}
		if err := s.cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
		s.shutdownErr = errors.Join(errs...)
	})
	return s.shutdownErr
}

// cleanup releases the store and telemetry providers.
func (s *service) cleanup(ctx context.Context) error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close records store: %w", err))
		}
	}
	if s.telemetryShutdown != nil {
		if err := s.telemetryShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}
