// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis assembles race-level and pilot-level risk reports from
// stored race data and the predictor.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/racerisk/services/incidents/predictor"
	"github.com/AleutianAI/racerisk/services/incidents/records"
)

// MaxFieldPilots caps the active pilots analyzed for a race without results.
const MaxFieldPilots = 20

// testModeVersion is reported as the model version in TEST mode.
const testModeVersion = "1.0"

// UnknownTeamName is reported for pilots without a team record.
const UnknownTeamName = "Unknown"

// ErrInvalidInput marks requests the caller must correct.
var ErrInvalidInput = errors.New("invalid input")

// Predictor is the part of predictor.Service the analyzer needs.
type Predictor interface {
	PredictBatch(ctx context.Context, inputs []predictor.DriverInput) ([]predictor.Prediction, error)
	Mode() predictor.Mode
	Info() (predictor.ModelInfo, bool)
}

// ModelSummary identifies the model behind a report.
type ModelSummary struct {
	Mode    predictor.Mode `json:"mode"`
	Version string         `json:"version"`
}

// RaceAnalysis is the report for every driver in one race.
type RaceAnalysis struct {
	RaceID      int64                        `json:"race_id"`
	RaceName    string                       `json:"race_name"`
	CircuitName string                       `json:"circuit_name"`
	Predictions []predictor.PredictionRecord `json:"predictions"`
	Statistics  predictor.FieldStatistics    `json:"statistics"`
	ModelInfo   ModelSummary                 `json:"model_info"`
}

// PilotAnalysis is the report for one driver in one race.
type PilotAnalysis struct {
	RaceID   int64  `json:"race_id"`
	RaceName string `json:"race_name"`
	predictor.PredictionRecord
	ModelInfo ModelSummary `json:"model_info"`
}

// FieldEntry is one driver of an ad-hoc field.
type FieldEntry struct {
	PilotID   int64
	PilotName string
	PilotCode string
	TeamName  string
	Input     predictor.DriverInput
}

// FieldAnalysis is the report for an ad-hoc field.
type FieldAnalysis struct {
	Predictions []predictor.PredictionRecord `json:"predictions"`
	Statistics  predictor.FieldStatistics    `json:"statistics"`
	ModelInfo   ModelSummary                 `json:"model_info"`
}

// Analyzer joins stored records with predictions.
//
// # Thread Safety
//
// Safe for concurrent use if its Source and Predictor are.
type Analyzer struct {
	source    records.Source
	predictor Predictor
}

// NewAnalyzer returns an Analyzer over source and p.
func NewAnalyzer(source records.Source, p Predictor) *Analyzer {
	return &Analyzer{source: source, predictor: p}
}

// AnalyzeRace predicts every driver in raceID.
//
// # Description
//
// With recorded results, each result becomes one driver, in result order;
// a result without a grid position uses its 1-based index. Without
// results, up to MaxFieldPilots active pilots are used with grid
// positions 1..n and no lap times.
//
// # Outputs
//
//   - *RaceAnalysis: Predictions in driver order plus field statistics.
//   - error: *records.NotFoundError when the race or its circuit is unknown.
func (a *Analyzer) AnalyzeRace(ctx context.Context, raceID int64) (*RaceAnalysis, error) {
	race, err := a.source.Race(ctx, raceID)
	if err != nil {
		return nil, err
	}
	circuit, err := a.source.Circuit(ctx, race.CircuitID)
	if err != nil {
		return nil, err
	}

	results, err := a.source.RaceResults(ctx, raceID)
	if err != nil {
		return nil, err
	}

	var entries []FieldEntry
	if len(results) > 0 {
		entries = make([]FieldEntry, 0, len(results))
		for i, result := range results {
			pilot, team, err := a.pilotWithTeam(ctx, result.PilotID)
			if err != nil {
				return nil, err
			}
			in := driverInput(pilot, team, circuit, race, &result)
			if in.Race.GridPosition == nil {
				in.Race.GridPosition = predictor.IntPtr(i + 1)
			}
			entries = append(entries, fieldEntry(pilot, team, in))
		}
	} else {
		pilots, err := a.source.ActivePilots(ctx, MaxFieldPilots)
		if err != nil {
			return nil, err
		}
		entries = make([]FieldEntry, 0, len(pilots))
		for i, pilot := range pilots {
			team, err := a.team(ctx, pilot.TeamID)
			if err != nil {
				return nil, err
			}
			in := driverInput(pilot, team, circuit, race, nil)
			in.Race.GridPosition = predictor.IntPtr(i + 1)
			entries = append(entries, fieldEntry(pilot, team, in))
		}
	}

	field, err := a.AnalyzeField(ctx, entries)
	if err != nil {
		return nil, err
	}
	return &RaceAnalysis{
		RaceID:      race.ID,
		RaceName:    race.Name,
		CircuitName: circuit.Name,
		Predictions: field.Predictions,
		Statistics:  field.Statistics,
		ModelInfo:   field.ModelInfo,
	}, nil
}

// AnalyzePilot predicts one driver in one race. Without a recorded result
// the driver starts from the default grid position.
func (a *Analyzer) AnalyzePilot(ctx context.Context, pilotID, raceID int64) (*PilotAnalysis, error) {
	if raceID <= 0 {
		return nil, fmt.Errorf("%w: race_id required", ErrInvalidInput)
	}
	pilot, team, err := a.pilotWithTeam(ctx, pilotID)
	if err != nil {
		return nil, err
	}
	race, err := a.source.Race(ctx, raceID)
	if err != nil {
		return nil, err
	}
	circuit, err := a.source.Circuit(ctx, race.CircuitID)
	if err != nil {
		return nil, err
	}
	results, err := a.source.RaceResults(ctx, raceID)
	if err != nil {
		return nil, err
	}

	var result *records.Result
	for i := range results {
		if results[i].PilotID == pilotID {
			result = &results[i]
			break
		}
	}

	field, err := a.AnalyzeField(ctx, []FieldEntry{
		fieldEntry(pilot, team, driverInput(pilot, team, circuit, race, result)),
	})
	if err != nil {
		return nil, err
	}
	return &PilotAnalysis{
		RaceID:           race.ID,
		RaceName:         race.Name,
		PredictionRecord: field.Predictions[0],
		ModelInfo:        field.ModelInfo,
	}, nil
}

// AnalyzeField predicts an arbitrary list of drivers in parallel. Output
// order matches entries.
func (a *Analyzer) AnalyzeField(ctx context.Context, entries []FieldEntry) (*FieldAnalysis, error) {
	inputs := make([]predictor.DriverInput, len(entries))
	for i, e := range entries {
		inputs[i] = e.Input
	}
	predictions, err := a.predictor.PredictBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}

	out := make([]predictor.PredictionRecord, len(entries))
	for i, p := range predictions {
		e := entries[i]
		out[i] = predictor.PredictionRecord{
			PilotID:        e.PilotID,
			PilotName:      e.PilotName,
			PilotCode:      e.PilotCode,
			TeamName:       e.TeamName,
			Risks:          p.Distribution,
			RiskLevel:      p.Assessment.Level,
			Recommendation: p.Assessment.Recommendation,
			Source:         p.Source,
		}
	}
	return &FieldAnalysis{
		Predictions: out,
		Statistics:  predictor.ComputeFieldStatistics(out),
		ModelInfo:   a.modelSummary(),
	}, nil
}

func (a *Analyzer) modelSummary() ModelSummary {
	summary := ModelSummary{Mode: a.predictor.Mode(), Version: testModeVersion}
	if info, ok := a.predictor.Info(); ok && summary.Mode == predictor.ModeAI {
		summary.Version = info.Version
	}
	return summary
}

func (a *Analyzer) pilotWithTeam(ctx context.Context, pilotID int64) (records.Pilot, records.Team, error) {
	pilot, err := a.source.Pilot(ctx, pilotID)
	if err != nil {
		return records.Pilot{}, records.Team{}, err
	}
	team, err := a.team(ctx, pilot.TeamID)
	return pilot, team, err
}

// team tolerates a pilot without a team record; the constructor then
// encodes as unknown.
func (a *Analyzer) team(ctx context.Context, id int64) (records.Team, error) {
	if id == 0 {
		return records.Team{}, nil
	}
	team, err := a.source.Team(ctx, id)
	if errors.Is(err, records.ErrNotFound) {
		return records.Team{}, nil
	}
	return team, err
}

func driverInput(pilot records.Pilot, team records.Team, circuit records.Circuit, race records.Race, result *records.Result) predictor.DriverInput {
	in := predictor.DriverInput{
		Pilot:   predictor.PilotInput{Code: pilot.Code, TeamSlug: team.Slug},
		Circuit: predictor.CircuitInput{Slug: circuit.Slug},
	}
	if race.SeasonYear > 0 {
		in.Race.Year = predictor.IntPtr(race.SeasonYear)
	}
	if result != nil {
		in.LapTimes = append([]int(nil), result.LapTimes...)
		in.Race.GridPosition = result.GridPosition
		in.Race.NumPitStops = result.PitStops
		in.Race.PositionChange = result.PositionChange
	}
	return in
}

func fieldEntry(pilot records.Pilot, team records.Team, in predictor.DriverInput) FieldEntry {
	teamName := team.Name
	if teamName == "" {
		teamName = UnknownTeamName
	}
	return FieldEntry{
		PilotID:   pilot.ID,
		PilotName: pilot.FullName(),
		PilotCode: pilot.Code,
		TeamName:  teamName,
		Input:     in,
	}
}
