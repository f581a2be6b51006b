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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func validEntry() DriverEntry {
	return DriverEntry{
		PilotID:  1,
		Pilot:    PilotPayload{Code: "VER", TeamSlug: "red-bull"},
		Circuit:  CircuitPayload{Slug: "monaco"},
		LapTimes: []int{74000, 73800},
		Race:     RacePayload{GridPosition: intp(2), Year: intp(2024)},
	}
}

func TestDriverPredictionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *DriverPredictionRequest)
		wantErr bool
	}{
		{"valid", func(r *DriverPredictionRequest) {}, false},
		{"no drivers", func(r *DriverPredictionRequest) { r.Drivers = nil }, true},
		{"too many drivers", func(r *DriverPredictionRequest) {
			r.Drivers = make([]DriverEntry, MaxFieldSize+1)
		}, true},
		{"bad request id", func(r *DriverPredictionRequest) { r.RequestID = "abc" }, true},
		{"grid zero", func(r *DriverPredictionRequest) { r.Drivers[0].Race.GridPosition = intp(0) }, true},
		{"grid omitted", func(r *DriverPredictionRequest) { r.Drivers[0].Race.GridPosition = nil }, false},
		{"negative lap", func(r *DriverPredictionRequest) { r.Drivers[0].LapTimes = []int{-1} }, true},
		{"bad slug", func(r *DriverPredictionRequest) { r.Drivers[0].Circuit.Slug = "Monte Carlo" }, true},
		{"empty identifiers", func(r *DriverPredictionRequest) {
			r.Drivers[0].Pilot = PilotPayload{}
			r.Drivers[0].Circuit = CircuitPayload{}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &DriverPredictionRequest{Drivers: []DriverEntry{validEntry()}}
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDriverPredictionRequest_EnsureDefaults(t *testing.T) {
	r := &DriverPredictionRequest{Drivers: []DriverEntry{validEntry()}}
	r.EnsureDefaults()
	assert.NotEmpty(t, r.RequestID)
	assert.Positive(t, r.Timestamp)
	assert.NoError(t, r.Validate())
}

func TestDriverPredictionRequest_FieldEntries(t *testing.T) {
	body := `{"drivers":[{"pilot_id":7,"pilot_name":"Max Verstappen","pilot":{"code":"VER","team_slug":"red-bull"},
		"circuit":{"slug":"monaco"},"lap_times":[74000],"race":{"grid_position":3}}]}`

	var r DriverPredictionRequest
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	require.NoError(t, r.Validate())

	entries := r.FieldEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].PilotID)
	assert.Equal(t, "VER", entries[0].PilotCode)
	assert.Equal(t, "red-bull", entries[0].Input.Pilot.TeamSlug)
	assert.Equal(t, 3, entries[0].Input.GridPosition())
	assert.Nil(t, entries[0].Input.Race.Year)
	assert.Equal(t, []int{74000}, entries[0].Input.LapTimes)
}
