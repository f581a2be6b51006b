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

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultGridPosition   = 10
	DefaultYear           = 2024
	DefaultPitStops       = 0
	DefaultPositionChange = 0

	// DefaultLapTimeMs fills the sequence window when no lap is recorded.
	DefaultLapTimeMs = 90000

	// StaticFeatureCount is the width of the static feature vector.
	StaticFeatureCount = 8

	unknownCategoryValue = "unknown"
)

// StaticFeatureNames lists the static features in vector order.
var StaticFeatureNames = [StaticFeatureCount]string{
	"grid_position",
	"circuit_encoded",
	"driver_encoded",
	"constructor_encoded",
	"year",
	"lap_count",
	"num_pit_stops",
	"position_change",
}

// =============================================================================
// Input
// =============================================================================

// PilotInput identifies the driver and their constructor.
type PilotInput struct {
	Code     string `json:"code"`
	TeamSlug string `json:"team_slug"`
}

// CircuitInput identifies the circuit.
type CircuitInput struct {
	Slug string `json:"slug"`
}

// RaceInput carries optional race context. Nil fields take their default.
type RaceInput struct {
	GridPosition   *int `json:"grid_position,omitempty"`
	Year           *int `json:"year,omitempty"`
	NumPitStops    *int `json:"num_pit_stops,omitempty"`
	PositionChange *int `json:"position_change,omitempty"`
}

// DriverInput is everything the predictor needs about one driver in one race.
type DriverInput struct {
	Pilot    PilotInput   `json:"pilot"`
	Circuit  CircuitInput `json:"circuit"`
	LapTimes []int        `json:"lap_times"`
	Race     RaceInput    `json:"race"`
}

// GridPosition returns the starting position or DefaultGridPosition.
func (in DriverInput) GridPosition() int {
	return valueOr(in.Race.GridPosition, DefaultGridPosition)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

func valueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// =============================================================================
// Static features
// =============================================================================

// StaticFeatureVector holds the eight static features in StaticFeatureNames
// order.
type StaticFeatureVector [StaticFeatureCount]float64

// Slice returns a copy of v as a slice.
func (v StaticFeatureVector) Slice() []float64 {
	out := make([]float64, len(v))
	copy(out, v[:])
	return out
}

// BuildStaticFeatures assembles the unscaled static vector for in.
//
// # Description
//
// Missing race context takes the package defaults. Missing identifiers are
// looked up as "unknown", which encodes to UnknownCode unless the tables
// were trained with that literal. lap_count is len(in.LapTimes).
func BuildStaticFeatures(in DriverInput, enc *Encoder) StaticFeatureVector {
	return StaticFeatureVector{
		float64(in.GridPosition()),
		float64(enc.Encode(CategoryCircuit, stringOr(in.Circuit.Slug, unknownCategoryValue))),
		float64(enc.Encode(CategoryDriver, stringOr(in.Pilot.Code, unknownCategoryValue))),
		float64(enc.Encode(CategoryConstructor, stringOr(in.Pilot.TeamSlug, unknownCategoryValue))),
		float64(valueOr(in.Race.Year, DefaultYear)),
		float64(len(in.LapTimes)),
		float64(valueOr(in.Race.NumPitStops, DefaultPitStops)),
		float64(valueOr(in.Race.PositionChange, DefaultPositionChange)),
	}
}
