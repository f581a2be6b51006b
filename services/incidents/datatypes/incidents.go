// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/racerisk/pkg/validation"
	"github.com/AleutianAI/racerisk/services/incidents/analysis"
	"github.com/AleutianAI/racerisk/services/incidents/predictor"
)

const (
	// MaxFieldSize bounds the drivers in one ad-hoc request.
	MaxFieldSize = 40

	// MaxLapTimes bounds the lap times sent for one driver.
	MaxLapTimes = 200
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// incidentValidate is the validator instance for incident datatypes.
var incidentValidate *validator.Validate

func init() {
	incidentValidate = validator.New()
	_ = incidentValidate.RegisterValidation("slug", validateSlug)
}

// validateSlug accepts lowercase words joined by single hyphens.
func validateSlug(fl validator.FieldLevel) bool {
	return validation.IsSlug(fl.Field().String())
}

// =============================================================================
// Driver Prediction Request Types
// =============================================================================

// DriverPredictionRequest is the body of POST /api/incidents/predict/drivers.
//
// # Description
//
// Scores an ad-hoc field of drivers that need not exist in the records
// store. Optional race context falls back to the predictor defaults.
//
// # Validation
//
// Uses go-playground/validator:
//   - RequestID: optional, must be a UUID v4 when present
//   - Drivers: required, 1-40 elements, each element validated
type DriverPredictionRequest struct {
	RequestID string        `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp int64         `json:"timestamp" validate:"gte=0"`
	Drivers   []DriverEntry `json:"drivers" validate:"required,min=1,max=40,dive"`
}

// DriverEntry is one driver of an ad-hoc request.
type DriverEntry struct {
	PilotID   int64          `json:"pilot_id" validate:"gte=0"`
	PilotName string         `json:"pilot_name" validate:"max=120"`
	TeamName  string         `json:"team_name" validate:"max=120"`
	Pilot     PilotPayload   `json:"pilot"`
	Circuit   CircuitPayload `json:"circuit"`
	LapTimes  []int          `json:"lap_times" validate:"max=200,dive,gt=0,lt=600000"`
	Race      RacePayload    `json:"race"`
}

type PilotPayload struct {
	Code     string `json:"code" validate:"omitempty,alphanum,max=8"`
	TeamSlug string `json:"team_slug" validate:"omitempty,slug,max=64"`
}

type CircuitPayload struct {
	Slug string `json:"slug" validate:"omitempty,slug,max=64"`
}

type RacePayload struct {
	GridPosition   *int `json:"grid_position" validate:"omitempty,gte=1,lte=40"`
	Year           *int `json:"year" validate:"omitempty,gte=1950,lte=2100"`
	NumPitStops    *int `json:"num_pit_stops" validate:"omitempty,gte=0,lte=20"`
	PositionChange *int `json:"position_change" validate:"omitempty,gte=-40,lte=40"`
}

// Validate validates the request after binding.
func (r *DriverPredictionRequest) Validate() error {
	return incidentValidate.Struct(r)
}

// EnsureDefaults generates RequestID and Timestamp if not provided.
func (r *DriverPredictionRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// FieldEntries converts the request into analyzer entries.
func (r *DriverPredictionRequest) FieldEntries() []analysis.FieldEntry {
	out := make([]analysis.FieldEntry, len(r.Drivers))
	for i, d := range r.Drivers {
		out[i] = analysis.FieldEntry{
			PilotID:   d.PilotID,
			PilotName: d.PilotName,
			PilotCode: d.Pilot.Code,
			TeamName:  d.TeamName,
			Input:     d.DriverInput(),
		}
	}
	return out
}

// DriverInput converts the entry into predictor input.
func (d DriverEntry) DriverInput() predictor.DriverInput {
	return predictor.DriverInput{
		Pilot:    predictor.PilotInput{Code: d.Pilot.Code, TeamSlug: d.Pilot.TeamSlug},
		Circuit:  predictor.CircuitInput{Slug: d.Circuit.Slug},
		LapTimes: append([]int(nil), d.LapTimes...),
		Race: predictor.RaceInput{
			GridPosition:   d.Race.GridPosition,
			Year:           d.Race.Year,
			NumPitStops:    d.Race.NumPitStops,
			PositionChange: d.Race.PositionChange,
		},
	}
}

// =============================================================================
// Response Types
// =============================================================================

// DriverPredictionResponse wraps a field analysis with request correlation.
type DriverPredictionResponse struct {
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	*analysis.FieldAnalysis
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string               `json:"status"`
	Message   string               `json:"message"`
	Mode      string               `json:"mode"`
	ModelInfo *predictor.ModelInfo `json:"model_info,omitempty"`
}

// ModelInfoResponse is the body of GET /api/incidents/model.
type ModelInfoResponse struct {
	Mode      string              `json:"mode"`
	ModelInfo predictor.ModelInfo `json:"model_info"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
