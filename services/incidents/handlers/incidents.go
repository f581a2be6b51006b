// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/racerisk/services/incidents/analysis"
	"github.com/AleutianAI/racerisk/services/incidents/datatypes"
	"github.com/AleutianAI/racerisk/services/incidents/middleware"
	"github.com/AleutianAI/racerisk/services/incidents/predictor"
	"github.com/AleutianAI/racerisk/services/incidents/records"
	"github.com/AleutianAI/racerisk/services/incidents/telemetry"
)

const tracerName = "racerisk.incidents.handlers"

const healthMessage = "Incident prediction service running"

// Analysis kinds and outcomes reported to the AnalysisRecorder.
const (
	kindRace    = "race"
	kindPilot   = "pilot"
	kindDrivers = "drivers"

	statusSuccess  = "success"
	statusNotFound = "not_found"
	statusInvalid  = "invalid"
	statusError    = "error"
)

// StatusReporter exposes the predictor's mode and metadata.
type StatusReporter interface {
	Mode() predictor.Mode
	Info() (predictor.ModelInfo, bool)
}

// RaceAnalyzer produces the reports served by the prediction endpoints.
type RaceAnalyzer interface {
	AnalyzeRace(ctx context.Context, raceID int64) (*analysis.RaceAnalysis, error)
	AnalyzePilot(ctx context.Context, pilotID, raceID int64) (*analysis.PilotAnalysis, error)
	AnalyzeField(ctx context.Context, entries []analysis.FieldEntry) (*analysis.FieldAnalysis, error)
}

// AnalysisRecorder counts analysis requests by kind and outcome.
type AnalysisRecorder interface {
	RecordAnalysis(kind, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAnalysis(string, string) {}

func recorderOrNop(r AnalysisRecorder) AnalysisRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// HealthCheck reports liveness, the prediction mode and, in AI mode, the
// model metadata.
func HealthCheck(status StatusReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := status.Mode()
		resp := datatypes.HealthResponse{
			Status:  "OK",
			Message: healthMessage,
			Mode:    mode.Label(),
		}
		if info, ok := status.Info(); ok && mode == predictor.ModeAI {
			resp.ModelInfo = &info
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetModelInfo handles GET /api/incidents/model. It answers 503 while the
// service runs in TEST mode, since there is no model to describe.
func GetModelInfo(status StatusReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := status.Mode()
		info, ok := status.Info()
		if !ok || mode != predictor.ModeAI {
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{
				Error: "no model loaded: " + mode.Label(),
			})
			return
		}
		c.JSON(http.StatusOK, datatypes.ModelInfoResponse{Mode: mode.Label(), ModelInfo: info})
	}
}

// PredictRace handles GET /api/incidents/race/:race_id.
func PredictRace(an RaceAnalyzer, rec AnalysisRecorder) gin.HandlerFunc {
	rec = recorderOrNop(rec)
	return func(c *gin.Context) {
		raceID, ok := parseID(c, "race_id", c.Param("race_id"))
		if !ok {
			rec.RecordAnalysis(kindRace, statusInvalid)
			return
		}

		ctx, span := telemetry.StartSpan(c.Request.Context(), tracerName, "handlers.PredictRace")
		defer span.End()
		span.SetAttributes(attribute.Int64("race.id", raceID))

		result, err := an.AnalyzeRace(ctx, raceID)
		if err != nil {
			telemetry.RecordError(span, err)
			rec.RecordAnalysis(kindRace, writeError(c, err))
			return
		}
		rec.RecordAnalysis(kindRace, statusSuccess)
		c.JSON(http.StatusOK, result)
	}
}

// PredictPilot handles GET /api/incidents/pilot/:pilot_id?race_id=N.
func PredictPilot(an RaceAnalyzer, rec AnalysisRecorder) gin.HandlerFunc {
	rec = recorderOrNop(rec)
	return func(c *gin.Context) {
		pilotID, ok := parseID(c, "pilot_id", c.Param("pilot_id"))
		if !ok {
			rec.RecordAnalysis(kindPilot, statusInvalid)
			return
		}
		rawRace, present := c.GetQuery("race_id")
		if !present || rawRace == "" {
			rec.RecordAnalysis(kindPilot, statusInvalid)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "race_id required"})
			return
		}
		raceID, ok := parseID(c, "race_id", rawRace)
		if !ok {
			rec.RecordAnalysis(kindPilot, statusInvalid)
			return
		}

		ctx, span := telemetry.StartSpan(c.Request.Context(), tracerName, "handlers.PredictPilot")
		defer span.End()
		span.SetAttributes(attribute.Int64("pilot.id", pilotID), attribute.Int64("race.id", raceID))

		result, err := an.AnalyzePilot(ctx, pilotID, raceID)
		if err != nil {
			telemetry.RecordError(span, err)
			rec.RecordAnalysis(kindPilot, writeError(c, err))
			return
		}
		rec.RecordAnalysis(kindPilot, statusSuccess)
		c.JSON(http.StatusOK, result)
	}
}

// PredictDrivers handles POST /api/incidents/predict/drivers.
func PredictDrivers(an RaceAnalyzer, rec AnalysisRecorder) gin.HandlerFunc {
	rec = recorderOrNop(rec)
	return func(c *gin.Context) {
		var req datatypes.DriverPredictionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			rec.RecordAnalysis(kindDrivers, statusInvalid)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			rec.RecordAnalysis(kindDrivers, writeError(c, err))
			return
		}
		req.EnsureDefaults()

		ctx, span := telemetry.StartSpan(c.Request.Context(), tracerName, "handlers.PredictDrivers")
		defer span.End()
		span.SetAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.Int("drivers", len(req.Drivers)),
		)

		result, err := an.AnalyzeField(ctx, req.FieldEntries())
		if err != nil {
			telemetry.RecordError(span, err)
			rec.RecordAnalysis(kindDrivers, writeError(c, err))
			return
		}
		rec.RecordAnalysis(kindDrivers, statusSuccess)
		c.JSON(http.StatusOK, datatypes.DriverPredictionResponse{
			RequestID:     req.RequestID,
			Timestamp:     req.Timestamp,
			FieldAnalysis: result,
		})
	}
}

func parseID(c *gin.Context, name, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid " + name + ": " + raw})
		return 0, false
	}
	return id, true
}

// writeError maps err to a status code, writes it and returns the outcome
// label.
func writeError(c *gin.Context, err error) string {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, records.ErrNotFound):
		c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: err.Error()})
		return statusNotFound
	case errors.Is(err, analysis.ErrInvalidInput), errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
		return statusInvalid
	default:
		slog.Error("analysis failed",
			"path", c.Request.URL.Path,
			"request_id", middleware.GetRequestID(c),
			"error", err)
		c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
		return statusError
	}
}
