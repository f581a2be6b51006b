// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package records stores the race data predictions are made from: circuits,
// teams, pilots, races and per-driver results.
//
// Two backends implement Store. The badger backend keeps msgpack-encoded
// records in an embedded key-value store and also offers an in-memory
// mode. The sqlite backend keeps relational tables managed by embedded
// migrations.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("record not found")

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// Is reports ErrNotFound as a match.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// =============================================================================
// Records
// =============================================================================

type Circuit struct {
	ID      int64  `yaml:"id" json:"id"`
	Slug    string `yaml:"slug" json:"slug"`
	Name    string `yaml:"name" json:"name"`
	Country string `yaml:"country" json:"country"`
}

type Team struct {
	ID   int64  `yaml:"id" json:"id"`
	Slug string `yaml:"slug" json:"slug"`
	Name string `yaml:"name" json:"name"`
}

type Pilot struct {
	ID        int64  `yaml:"id" json:"id"`
	Code      string `yaml:"code" json:"code"`
	FirstName string `yaml:"first_name" json:"first_name"`
	LastName  string `yaml:"last_name" json:"last_name"`
	TeamID    int64  `yaml:"team_id" json:"team_id"`
	Active    bool   `yaml:"active" json:"active"`
}

// FullName joins first and last name.
func (p Pilot) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Race struct {
	ID         int64  `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	CircuitID  int64  `yaml:"circuit_id" json:"circuit_id"`
	SeasonYear int    `yaml:"season_year" json:"season_year"`
	Round      int    `yaml:"round" json:"round"`
	Date       string `yaml:"date" json:"date"`
}

// Result is one pilot's outcome in one race. Nil fields were not recorded.
type Result struct {
	RaceID         int64 `yaml:"race_id" json:"race_id"`
	PilotID        int64 `yaml:"pilot_id" json:"pilot_id"`
	GridPosition   *int  `yaml:"grid_position" json:"grid_position,omitempty"`
	Position       *int  `yaml:"position" json:"position,omitempty"`
	PitStops       *int  `yaml:"pit_stops" json:"pit_stops,omitempty"`
	PositionChange *int  `yaml:"position_change" json:"position_change,omitempty"`
	LapTimes       []int `yaml:"lap_times" json:"lap_times,omitempty"`
}

// =============================================================================
// Interfaces
// =============================================================================

// Source is read access to race data.
//
// Single-record getters return a *NotFoundError when the id is unknown.
// RaceResults orders by grid position, unrecorded grids last, then by
// pilot id. ActivePilots orders by pilot id; limit <= 0 means no limit.
type Source interface {
	Race(ctx context.Context, id int64) (Race, error)
	Circuit(ctx context.Context, id int64) (Circuit, error)
	Team(ctx context.Context, id int64) (Team, error)
	Pilot(ctx context.Context, id int64) (Pilot, error)
	Races(ctx context.Context) ([]Race, error)
	RaceResults(ctx context.Context, raceID int64) ([]Result, error)
	ActivePilots(ctx context.Context, limit int) ([]Pilot, error)
}

// Writer upserts records keyed by id.
type Writer interface {
	PutCircuit(ctx context.Context, c Circuit) error
	PutTeam(ctx context.Context, t Team) error
	PutPilot(ctx context.Context, p Pilot) error
	PutRace(ctx context.Context, r Race) error
	PutResult(ctx context.Context, r Result) error
}

// Store is a Source and Writer that holds resources until closed.
type Store interface {
	Source
	Writer
	Close() error
}

// =============================================================================
// Open
// =============================================================================

// Backend names.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown records backend")

// Config selects and configures a backend.
type Config struct {
	// Backend is memory, badger or sqlite. Empty means memory.
	Backend string `yaml:"backend"`

	// Path is the badger directory or sqlite file. Unused by memory.
	Path string `yaml:"path"`

	// SeedFile is a YAML fixture applied after opening. Optional.
	SeedFile string `yaml:"seed_file"`

	Logger *slog.Logger `yaml:"-"`
}

// Open opens the configured backend and applies SeedFile if set.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		bcfg := InMemoryBadgerConfig()
		bcfg.Logger = cfg.Logger
		store, err = OpenBadger(bcfg)
	case BackendBadger:
		bcfg := DefaultBadgerConfig()
		bcfg.Path = cfg.Path
		bcfg.Logger = cfg.Logger
		store, err = OpenBadger(bcfg)
	case BackendSQLite:
		store, err = OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.SeedFile != "" {
		fixture, err := LoadFixture(cfg.SeedFile)
		if err != nil {
			store.Close()
			return nil, err
		}
		if err := fixture.Apply(ctx, store); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}

func validateID(kind string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%s id must be positive, got %d", kind, id)
	}
	return nil
}
