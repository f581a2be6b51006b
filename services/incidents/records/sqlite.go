// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package records

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps records in a sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens path and migrates it to the latest schema. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("path is required for sqlite database")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: closing it would close db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) PutCircuit(ctx context.Context, c Circuit) error {
	if err := validateID("circuit", c.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO circuits (id, slug, name, country) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET slug = excluded.slug, name = excluded.name, country = excluded.country`,
		c.ID, c.Slug, c.Name, c.Country)
	if err != nil {
		return fmt.Errorf("put circuit %d: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) PutTeam(ctx context.Context, t Team) error {
	if err := validateID("team", t.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, slug, name) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET slug = excluded.slug, name = excluded.name`,
		t.ID, t.Slug, t.Name)
	if err != nil {
		return fmt.Errorf("put team %d: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) PutPilot(ctx context.Context, p Pilot) error {
	if err := validateID("pilot", p.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pilots (id, code, first_name, last_name, team_id, active) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET code = excluded.code, first_name = excluded.first_name,
			last_name = excluded.last_name, team_id = excluded.team_id, active = excluded.active`,
		p.ID, p.Code, p.FirstName, p.LastName, p.TeamID, p.Active)
	if err != nil {
		return fmt.Errorf("put pilot %d: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) PutRace(ctx context.Context, r Race) error {
	if err := validateID("race", r.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO races (id, name, circuit_id, season_year, round, date) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, circuit_id = excluded.circuit_id,
			season_year = excluded.season_year, round = excluded.round, date = excluded.date`,
		r.ID, r.Name, r.CircuitID, r.SeasonYear, r.Round, r.Date)
	if err != nil {
		return fmt.Errorf("put race %d: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) PutResult(ctx context.Context, r Result) error {
	if err := validateID("race", r.RaceID); err != nil {
		return err
	}
	if err := validateID("pilot", r.PilotID); err != nil {
		return err
	}
	laps := r.LapTimes
	if laps == nil {
		laps = []int{}
	}
	lapJSON, err := json.Marshal(laps)
	if err != nil {
		return fmt.Errorf("encode lap times: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (race_id, pilot_id, grid_position, position, pit_stops, position_change, lap_times)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (race_id, pilot_id) DO UPDATE SET grid_position = excluded.grid_position,
			position = excluded.position, pit_stops = excluded.pit_stops,
			position_change = excluded.position_change, lap_times = excluded.lap_times`,
		r.RaceID, r.PilotID, nullInt(r.GridPosition), nullInt(r.Position),
		nullInt(r.PitStops), nullInt(r.PositionChange), string(lapJSON))
	if err != nil {
		return fmt.Errorf("put result %d/%d: %w", r.RaceID, r.PilotID, err)
	}
	return nil
}

func (s *SQLiteStore) Circuit(ctx context.Context, id int64) (Circuit, error) {
	var c Circuit
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, name, country FROM circuits WHERE id = ?`, id).
		Scan(&c.ID, &c.Slug, &c.Name, &c.Country)
	return c, notFound(err, "circuit", id)
}

func (s *SQLiteStore) Team(ctx context.Context, id int64) (Team, error) {
	var t Team
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, name FROM teams WHERE id = ?`, id).
		Scan(&t.ID, &t.Slug, &t.Name)
	return t, notFound(err, "team", id)
}

func (s *SQLiteStore) Pilot(ctx context.Context, id int64) (Pilot, error) {
	var p Pilot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, first_name, last_name, team_id, active FROM pilots WHERE id = ?`, id).
		Scan(&p.ID, &p.Code, &p.FirstName, &p.LastName, &p.TeamID, &p.Active)
	return p, notFound(err, "pilot", id)
}

func (s *SQLiteStore) Race(ctx context.Context, id int64) (Race, error) {
	var r Race
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, circuit_id, season_year, round, date FROM races WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &r.CircuitID, &r.SeasonYear, &r.Round, &r.Date)
	return r, notFound(err, "race", id)
}

func (s *SQLiteStore) Races(ctx context.Context) ([]Race, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, circuit_id, season_year, round, date FROM races ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	defer rows.Close()

	var out []Race
	for rows.Next() {
		var r Race
		if err := rows.Scan(&r.ID, &r.Name, &r.CircuitID, &r.SeasonYear, &r.Round, &r.Date); err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RaceResults(ctx context.Context, raceID int64) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT race_id, pilot_id, grid_position, position, pit_stops, position_change, lap_times
		FROM results WHERE race_id = ?
		ORDER BY grid_position IS NULL, grid_position, pilot_id`, raceID)
	if err != nil {
		return nil, fmt.Errorf("list results for race %d: %w", raceID, err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r                       Result
			grid, pos, pits, change sql.NullInt64
			laps                    string
		)
		if err := rows.Scan(&r.RaceID, &r.PilotID, &grid, &pos, &pits, &change, &laps); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.GridPosition = intPtr(grid)
		r.Position = intPtr(pos)
		r.PitStops = intPtr(pits)
		r.PositionChange = intPtr(change)
		if err := json.Unmarshal([]byte(laps), &r.LapTimes); err != nil {
			return nil, fmt.Errorf("decode lap times for pilot %d: %w", r.PilotID, err)
		}
		if len(r.LapTimes) == 0 {
			r.LapTimes = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ActivePilots(ctx context.Context, limit int) ([]Pilot, error) {
	query := `SELECT id, code, first_name, last_name, team_id, active FROM pilots WHERE active = 1 ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active pilots: %w", err)
	}
	defer rows.Close()

	var out []Pilot
	for rows.Next() {
		var p Pilot
		if err := rows.Scan(&p.ID, &p.Code, &p.FirstName, &p.LastName, &p.TeamID, &p.Active); err != nil {
			return nil, fmt.Errorf("scan pilot: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func notFound(err error, kind string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	if err != nil {
		return fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
