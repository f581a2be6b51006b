// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks the identifiers that reach the encoder tables
// and the record stores: pilot codes and circuit or team slugs.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// pilotCodePattern matches abbreviations such as VER or HAM2.
var pilotCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,7}$`)

// slugPattern matches lowercase words joined by single hyphens, such as
// red-bull or yas-marina.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// MaxSlugLength bounds circuit and team slugs.
const MaxSlugLength = 64

// ValidatePilotCode accepts 2-8 uppercase letters or digits starting with
// a letter.
//
// Example:
//
//	if err := validation.ValidatePilotCode(code); err != nil {
//	    return fmt.Errorf("pilot %d: %w", id, err)
//	}
func ValidatePilotCode(code string) error {
	if code == "" {
		return fmt.Errorf("pilot code cannot be empty")
	}
	if !pilotCodePattern.MatchString(code) {
		return fmt.Errorf("invalid pilot code %q (must be 2-8 uppercase letters or digits)", code)
	}
	return nil
}

// ValidateSlug accepts non-empty lowercase hyphenated slugs up to
// MaxSlugLength characters.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}
	if len(slug) > MaxSlugLength {
		return fmt.Errorf("slug %q longer than %d characters", slug, MaxSlugLength)
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid slug %q (must be lowercase words joined by hyphens)", slug)
	}
	return nil
}

// IsSlug reports whether ValidateSlug accepts s.
func IsSlug(s string) bool { return ValidateSlug(s) == nil }

// IsPilotCode reports whether ValidatePilotCode accepts s.
func IsPilotCode(s string) bool { return ValidatePilotCode(s) == nil }

// SanitizePilotCode trims and upper-cases code, then validates it.
//
//	code, err := validation.SanitizePilotCode(" ver ")
//	// code == "VER"
func SanitizePilotCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := ValidatePilotCode(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
