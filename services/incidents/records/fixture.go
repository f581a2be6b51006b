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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/racerisk/pkg/validation"
)

// Fixture is a YAML document of records used to seed a store.
type Fixture struct {
	Circuits []Circuit `yaml:"circuits"`
	Teams    []Team    `yaml:"teams"`
	Pilots   []Pilot   `yaml:"pilots"`
	Races    []Race    `yaml:"races"`
	Results  []Result  `yaml:"results"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a fixture document. Unknown keys are rejected and
// an empty document is an empty fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.normalize(); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// normalize upper-cases pilot codes and checks every identifier.
func (f *Fixture) normalize() error {
	for _, c := range f.Circuits {
		if err := validation.ValidateSlug(c.Slug); err != nil {
			return fmt.Errorf("circuit %d: %w", c.ID, err)
		}
	}
	for _, t := range f.Teams {
		if err := validation.ValidateSlug(t.Slug); err != nil {
			return fmt.Errorf("team %d: %w", t.ID, err)
		}
	}
	for i := range f.Pilots {
		code, err := validation.SanitizePilotCode(f.Pilots[i].Code)
		if err != nil {
			return fmt.Errorf("pilot %d: %w", f.Pilots[i].ID, err)
		}
		f.Pilots[i].Code = code
	}
	return nil
}

// Counts summarizes the fixture size.
func (f *Fixture) Counts() map[string]int {
	return map[string]int{
		"circuits": len(f.Circuits),
		"teams":    len(f.Teams),
		"pilots":   len(f.Pilots),
		"races":    len(f.Races),
		"results":  len(f.Results),
	}
}

// Apply upserts every record, parents before children.
func (f *Fixture) Apply(ctx context.Context, w Writer) error {
	for _, c := range f.Circuits {
		if err := w.PutCircuit(ctx, c); err != nil {
			return err
		}
	}
	for _, t := range f.Teams {
		if err := w.PutTeam(ctx, t); err != nil {
			return err
		}
	}
	for _, p := range f.Pilots {
		if err := w.PutPilot(ctx, p); err != nil {
			return err
		}
	}
	for _, r := range f.Races {
		if err := w.PutRace(ctx, r); err != nil {
			return err
		}
	}
	for _, r := range f.Results {
		if err := w.PutResult(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
