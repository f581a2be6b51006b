// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for incident
// predictions.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/racerisk/services/incidents/predictor"
)

const metricsNamespace = "racerisk"

const predictorSubsystem = "predictor"

// PredictionMetrics holds all Prometheus metrics for the predictor.
//
// # Description
//
// Implements predictor.Observer so the prediction service reports into it
// without depending on Prometheus.
//
// # Thread Safety
//
// All Prometheus metric types are thread-safe.
type PredictionMetrics struct {
	// PredictionsTotal counts predictions by source and tier.
	// Labels: source (classifier, heuristic), risk_level
	PredictionsTotal *prometheus.CounterVec

	// FallbacksTotal counts heuristic fallbacks.
	// Labels: reason (unavailable, classifier_error)
	FallbacksTotal *prometheus.CounterVec

	// ClassifierLatencySeconds measures classifier invocations.
	ClassifierLatencySeconds prometheus.Histogram

	// Mode is 1 for the active mode and 0 for the other.
	// Labels: mode (AI, TEST)
	Mode *prometheus.GaugeVec

	// AnalysesTotal counts analysis requests.
	// Labels: kind (race, pilot, drivers), status (success, not_found, invalid, error)
	AnalysesTotal *prometheus.CounterVec
}

// NewPredictionMetrics registers a fresh set of metrics on reg.
func NewPredictionMetrics(reg prometheus.Registerer) *PredictionMetrics {
	factory := promauto.With(reg)
	return &PredictionMetrics{
		PredictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: predictorSubsystem,
				Name:      "predictions_total",
				Help:      "Total predictions by source and risk level",
			},
			[]string{"source", "risk_level"},
		),

		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: predictorSubsystem,
				Name:      "fallbacks_total",
				Help:      "Total heuristic fallbacks by reason",
			},
			[]string{"reason"},
		),

		ClassifierLatencySeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: predictorSubsystem,
				Name:      "classifier_latency_seconds",
				Help:      "Classifier invocation latency in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
			},
		),

		Mode: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: predictorSubsystem,
				Name:      "mode",
				Help:      "Active prediction mode (1 = active)",
			},
			[]string{"mode"},
		),

		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "analysis",
				Name:      "requests_total",
				Help:      "Total analysis requests by kind and status",
			},
			[]string{"kind", "status"},
		),
	}
}

func (m *PredictionMetrics) ObservePrediction(source predictor.Source, level predictor.RiskLevel) {
	m.PredictionsTotal.WithLabelValues(string(source), string(level)).Inc()
}

func (m *PredictionMetrics) ObserveFallback(reason string) {
	m.FallbacksTotal.WithLabelValues(reason).Inc()
}

func (m *PredictionMetrics) ObserveClassifierLatency(d time.Duration) {
	m.ClassifierLatencySeconds.Observe(d.Seconds())
}

func (m *PredictionMetrics) ObserveMode(mode predictor.Mode) {
	for _, candidate := range []predictor.Mode{predictor.ModeAI, predictor.ModeTest} {
		value := 0.0
		if candidate == mode {
			value = 1
		}
		m.Mode.WithLabelValues(string(candidate)).Set(value)
	}
}

// RecordAnalysis counts one analysis request.
func (m *PredictionMetrics) RecordAnalysis(kind, status string) {
	m.AnalysesTotal.WithLabelValues(kind, status).Inc()
}
