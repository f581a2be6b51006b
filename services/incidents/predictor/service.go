// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("racerisk.incidents.predictor")

// =============================================================================
// State
// =============================================================================

// State is the lifecycle stage of a Service.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Mode is the externally visible prediction mode.
type Mode string

const (
	ModeAI   Mode = "AI"
	ModeTest Mode = "TEST"
)

// Label returns the human-readable mode used by the health endpoint.
func (m Mode) Label() string {
	if m == ModeAI {
		return "AI Powered"
	}
	return "Test Mode"
}

// Fallback reasons reported to the Observer.
const (
	FallbackUnavailable     = "unavailable"
	FallbackClassifierError = "classifier_error"
)

// Observer receives prediction events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObservePrediction(source Source, level RiskLevel)
	ObserveFallback(reason string)
	ObserveClassifierLatency(d time.Duration)
	ObserveMode(mode Mode)
}

type nopObserver struct{}

func (nopObserver) ObservePrediction(Source, RiskLevel)    {}
func (nopObserver) ObserveFallback(string)                 {}
func (nopObserver) ObserveClassifierLatency(time.Duration) {}
func (nopObserver) ObserveMode(Mode)                       {}

// =============================================================================
// Service
// =============================================================================

// Config configures a Service.
type Config struct {
	// ResourceDir holds the model artifacts.
	ResourceDir string

	// Load selects a remote classifier and its timeout.
	Load LoadOptions

	// SerializeClassifier runs at most one classifier call at a time.
	SerializeClassifier bool

	// MaxParallel bounds PredictBatch concurrency. Zero means GOMAXPROCS.
	MaxParallel int

	// RandSource drives the heuristic generator. Nil uses the global
	// generator.
	RandSource rand.Source

	Logger   *slog.Logger
	Observer Observer
}

// Prediction is the result for one driver.
type Prediction struct {
	Distribution RiskDistribution `json:"risks"`
	Assessment   RiskAssessment   `json:"assessment"`
	Source       Source           `json:"source"`
}

// Service owns the loaded model and answers predictions.
//
// # Description
//
// Loading happens at most once per Service. A failed load is never
// retried; the service stays in TEST mode and serves heuristic
// distributions.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent callers during loading block until
// it finishes.
type Service struct {
	config    Config
	logger    *slog.Logger
	observer  Observer
	generator *HeuristicGenerator

	state     atomic.Int32
	once      sync.Once
	resources *Resources
	loadErr   error
}

// NewService returns an UNINITIALIZED service. Call Load to load eagerly,
// or let the first prediction load lazily.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = runtime.GOMAXPROCS(0)
	}
	return &Service{
		config:    cfg,
		logger:    logger.With("component", "predictor"),
		observer:  observer,
		generator: NewHeuristicGenerator(cfg.RandSource),
	}
}

// Load reads the artifacts once. Later calls return the first result.
func (s *Service) Load() error {
	s.once.Do(s.load)
	return s.loadErr
}

func (s *Service) load() {
	s.state.Store(int32(StateLoading))
	start := time.Now()

	res, err := LoadResources(s.config.ResourceDir, s.config.Load)
	if err != nil {
		s.loadErr = err
		s.state.Store(int32(StateFailed))
		s.observer.ObserveMode(ModeTest)
		s.logger.Warn("model resources unavailable, serving heuristic predictions",
			"resource_dir", s.config.ResourceDir,
			"error", err)
		return
	}

	if s.config.SerializeClassifier {
		res.Classifier = Serialize(res.Classifier)
	}
	s.resources = res
	s.state.Store(int32(StateReady))
	s.observer.ObserveMode(ModeAI)
	s.logger.Info("model resources loaded",
		"resource_dir", s.config.ResourceDir,
		"model_version", res.Metadata.ModelVersion,
		"classes", len(res.Metadata.Classes),
		"seq_length", res.Metadata.SeqLength,
		"remote_classifier", s.config.Load.ClassifierEndpoint != "",
		"duration", time.Since(start))
}

// State returns the current lifecycle stage.
func (s *Service) State() State { return State(s.state.Load()) }

// LoadError returns the error that moved the service to FAILED, if any.
func (s *Service) LoadError() error {
	if s.State() != StateFailed {
		return nil
	}
	return s.loadErr
}

// Mode reports AI when loaded and TEST otherwise.
func (s *Service) Mode() Mode {
	if s.State() == StateReady {
		return ModeAI
	}
	return ModeTest
}

// Info returns the model metadata when the service is READY.
func (s *Service) Info() (ModelInfo, bool) {
	if s.State() != StateReady {
		return ModelInfo{}, false
	}
	return s.resources.Metadata.Info(), true
}

// Classes returns the active class list and neutral class.
func (s *Service) Classes() ([]string, string) {
	if s.State() == StateReady {
		return s.resources.Metadata.Classes, s.resources.Metadata.NeutralClass
	}
	return DefaultClasses, DefaultNeutralClass
}

// PredictDriver scores one driver.
//
// # Description
//
// Triggers loading on first use. In AI mode the features are scaled and
// passed to the classifier; any classifier failure falls back to the
// heuristic for this call only. In TEST mode the heuristic is used
// directly.
//
// # Outputs
//
//   - Prediction: Distribution, tier and the path that produced it.
//   - error: ErrNilContext, or an unexpected feature pipeline error.
//     Classifier failures never surface as errors.
func (s *Service) PredictDriver(ctx context.Context, in DriverInput) (Prediction, error) {
	if ctx == nil {
		return Prediction{}, ErrNilContext
	}
	_ = s.Load()

	if s.State() != StateReady {
		s.observer.ObserveFallback(FallbackUnavailable)
		return s.heuristic(in), nil
	}

	res := s.resources
	static, err := res.StaticScaler.Transform(BuildStaticFeatures(in, res.Encoder).Slice())
	if err != nil {
		return Prediction{}, fmt.Errorf("scale static features: %w", err)
	}
	sequence, err := res.SequenceScaler.Transform(WindowLapTimes(in.LapTimes, res.Metadata.SeqLength))
	if err != nil {
		return Prediction{}, fmt.Errorf("scale lap window: %w", err)
	}

	ctx, span := tracer.Start(ctx, "predictor.Classify")
	defer span.End()
	span.SetAttributes(
		attribute.String("pilot.code", in.Pilot.Code),
		attribute.Int("race.grid_position", in.GridPosition()),
		attribute.Int("laps", len(in.LapTimes)),
	)

	start := time.Now()
	probs, err := invokeClassifier(ctx, res.Classifier, static, sequence, len(res.Metadata.Classes))
	s.observer.ObserveClassifierLatency(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classifier failed")
		s.observer.ObserveFallback(FallbackClassifierError)
		s.logger.Warn("classifier failed, using heuristic",
			"pilot", in.Pilot.Code,
			"error", err)
		return s.heuristic(in), nil
	}

	dist, err := NewRiskDistribution(res.Metadata.Classes, probs, res.Metadata.NeutralClass)
	if err != nil {
		return Prediction{}, err
	}
	return s.finish(dist, SourceClassifier), nil
}

// PredictBatch scores every input in parallel. Results keep input order.
func (s *Service) PredictBatch(ctx context.Context, inputs []DriverInput) ([]Prediction, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	_ = s.Load()

	out := make([]Prediction, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxParallel)
	for i, in := range inputs {
		g.Go(func() error {
			p, err := s.PredictDriver(gctx, in)
			if err != nil {
				return fmt.Errorf("driver %d (%s): %w", i, in.Pilot.Code, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) heuristic(in DriverInput) Prediction {
	classes, neutral := s.Classes()
	return s.finish(s.generator.Generate(in.GridPosition(), classes, neutral), SourceHeuristic)
}

func (s *Service) finish(dist RiskDistribution, source Source) Prediction {
	assessment := Assess(dist)
	s.observer.ObservePrediction(source, assessment.Level)
	return Prediction{Distribution: dist, Assessment: assessment, Source: source}
}
