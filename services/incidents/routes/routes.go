// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/racerisk/services/incidents/handlers"
	"github.com/AleutianAI/racerisk/services/incidents/middleware"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Status   handlers.StatusReporter
	Analyzer handlers.RaceAnalyzer
	Recorder handlers.AnalysisRecorder

	// Gatherer backs /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// RateLimit and RateBurst throttle the /api/incidents group. A
	// non-positive RateLimit disables throttling.
	RateLimit float64
	RateBurst int
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router.GET("/health", handlers.HealthCheck(deps.Status))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/incidents")
	api.Use(middleware.RateLimit(deps.RateLimit, deps.RateBurst))
	{
		api.GET("/model", handlers.GetModelInfo(deps.Status))
		api.GET("/race/:race_id", handlers.PredictRace(deps.Analyzer, deps.Recorder))
		api.GET("/pilot/:pilot_id", handlers.PredictPilot(deps.Analyzer, deps.Recorder))
		predict := api.Group("/predict")
		{
			predict.POST("/drivers", handlers.PredictDrivers(deps.Analyzer, deps.Recorder))
		}
	}
}
