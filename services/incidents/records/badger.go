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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// BadgerConfig configures the badger backend.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// =============================================================================
// Store
// =============================================================================

// Key prefixes. Ids are zero padded so lexical order is numeric order.
const (
	circuitPrefix = "circuit/"
	teamPrefix    = "team/"
	pilotPrefix   = "pilot/"
	racePrefix    = "race/"
	resultPrefix  = "result/"
)

func idKey(prefix string, id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, id))
}

func resultRacePrefix(raceID int64) []byte {
	return []byte(fmt.Sprintf("%s%020d/", resultPrefix, raceID))
}

func resultKey(raceID, pilotID int64) []byte {
	return []byte(fmt.Sprintf("%s%020d/%020d", resultPrefix, raceID, pilotID))
}

// BadgerStore keeps records as msgpack values in BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	stopGC chan struct{}
	gcDone chan struct{}
	logger *slog.Logger
}

// OpenBadger opens a BadgerStore and starts value log GC when configured.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &BadgerStore{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func (s *BadgerStore) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing was worth collecting.
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.logger != nil {
				s.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// Close stops GC and closes the database.
func (s *BadgerStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	return s.db.Close()
}

func (s *BadgerStore) put(ctx context.Context, key []byte, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) get(ctx context.Context, kind string, id int64, key []byte, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &NotFoundError{Kind: kind, ID: id}
		}
		if err != nil {
			return fmt.Errorf("get %s %d: %w", kind, id, err)
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, v)
		})
	})
}

// scan decodes every value under prefix, in key order, through decode.
func (s *BadgerStore) scan(ctx context.Context, prefix []byte, decode func(val []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(decode); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) PutCircuit(ctx context.Context, c Circuit) error {
	if err := validateID("circuit", c.ID); err != nil {
		return err
	}
	return s.put(ctx, idKey(circuitPrefix, c.ID), c)
}

func (s *BadgerStore) PutTeam(ctx context.Context, t Team) error {
	if err := validateID("team", t.ID); err != nil {
		return err
	}
	return s.put(ctx, idKey(teamPrefix, t.ID), t)
}

func (s *BadgerStore) PutPilot(ctx context.Context, p Pilot) error {
	if err := validateID("pilot", p.ID); err != nil {
		return err
	}
	return s.put(ctx, idKey(pilotPrefix, p.ID), p)
}

func (s *BadgerStore) PutRace(ctx context.Context, r Race) error {
	if err := validateID("race", r.ID); err != nil {
		return err
	}
	return s.put(ctx, idKey(racePrefix, r.ID), r)
}

func (s *BadgerStore) PutResult(ctx context.Context, r Result) error {
	if err := validateID("race", r.RaceID); err != nil {
		return err
	}
	if err := validateID("pilot", r.PilotID); err != nil {
		return err
	}
	return s.put(ctx, resultKey(r.RaceID, r.PilotID), r)
}

func (s *BadgerStore) Circuit(ctx context.Context, id int64) (Circuit, error) {
	var c Circuit
	err := s.get(ctx, "circuit", id, idKey(circuitPrefix, id), &c)
	return c, err
}

func (s *BadgerStore) Team(ctx context.Context, id int64) (Team, error) {
	var t Team
	err := s.get(ctx, "team", id, idKey(teamPrefix, id), &t)
	return t, err
}

func (s *BadgerStore) Pilot(ctx context.Context, id int64) (Pilot, error) {
	var p Pilot
	err := s.get(ctx, "pilot", id, idKey(pilotPrefix, id), &p)
	return p, err
}

func (s *BadgerStore) Race(ctx context.Context, id int64) (Race, error) {
	var r Race
	err := s.get(ctx, "race", id, idKey(racePrefix, id), &r)
	return r, err
}

func (s *BadgerStore) Races(ctx context.Context) ([]Race, error) {
	var out []Race
	err := s.scan(ctx, []byte(racePrefix), func(val []byte) error {
		var r Race
		if err := msgpack.Unmarshal(val, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) RaceResults(ctx context.Context, raceID int64) ([]Result, error) {
	var out []Result
	err := s.scan(ctx, resultRacePrefix(raceID), func(val []byte) error {
		var r Result
		if err := msgpack.Unmarshal(val, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list results for race %d: %w", raceID, err)
	}
	sortResults(out)
	return out, nil
}

func (s *BadgerStore) ActivePilots(ctx context.Context, limit int) ([]Pilot, error) {
	var out []Pilot
	err := s.scan(ctx, []byte(pilotPrefix), func(val []byte) error {
		if limit > 0 && len(out) >= limit {
			return nil
		}
		var p Pilot
		if err := msgpack.Unmarshal(val, &p); err != nil {
			return err
		}
		if p.Active {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list active pilots: %w", err)
	}
	return out, nil
}

// sortResults orders by grid position with unrecorded grids last, then by
// pilot id.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		gi, gj := results[i].GridPosition, results[j].GridPosition
		switch {
		case gi == nil && gj == nil:
			return results[i].PilotID < results[j].PilotID
		case gi == nil:
			return false
		case gj == nil:
			return true
		case *gi != *gj:
			return *gi < *gj
		}
		return results[i].PilotID < results[j].PilotID
	})
}
