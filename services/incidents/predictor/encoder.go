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

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// CategoryType names one of the categorical inputs of the classifier.
type CategoryType string

const (
	CategoryDriver      CategoryType = "driver"
	CategoryCircuit     CategoryType = "circuit"
	CategoryConstructor CategoryType = "constructor"
)

// UnknownCode is the integer assigned to any value absent from a table.
const UnknownCode = 0

// Categories lists every category an encoder table must carry.
var Categories = []CategoryType{CategoryDriver, CategoryCircuit, CategoryConstructor}

// ParseCategoryType returns the CategoryType for s, or false when s is not
// a known category.
func ParseCategoryType(s string) (CategoryType, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// CategoryCode is the result of looking a raw value up in an encoder table.
type CategoryCode struct {
	Category CategoryType `json:"category"`
	Raw      string       `json:"raw"`
	Code     int          `json:"code"`
	Known    bool         `json:"known"`
}

// Encoder maps categorical strings to the integers seen during training.
//
// # Description
//
// One table per CategoryType, built offline. Values that were not present
// at training time encode to UnknownCode. An Encoder is immutable after
// construction and safe for concurrent reads.
type Encoder struct {
	tables map[CategoryType]map[string]int
}

// NewEncoder copies tables into a new Encoder.
func NewEncoder(tables map[CategoryType]map[string]int) *Encoder {
	e := &Encoder{tables: make(map[CategoryType]map[string]int, len(tables))}
	for category, table := range tables {
		copied := make(map[string]int, len(table))
		for raw, code := range table {
			copied[raw] = code
		}
		e.tables[category] = copied
	}
	return e
}

// Encode returns the training-time code for raw, or UnknownCode.
func (e *Encoder) Encode(category CategoryType, raw string) int {
	return e.Lookup(category, raw).Code
}

// Lookup is Encode with the match reported alongside the code.
func (e *Encoder) Lookup(category CategoryType, raw string) CategoryCode {
	result := CategoryCode{Category: category, Raw: raw, Code: UnknownCode}
	if e == nil {
		return result
	}
	table, ok := e.tables[category]
	if !ok {
		return result
	}
	if code, ok := table[raw]; ok {
		result.Code = code
		result.Known = true
	}
	return result
}

// Size returns the number of known values for category.
func (e *Encoder) Size(category CategoryType) int {
	if e == nil {
		return 0
	}
	return len(e.tables[category])
}

// decodeEncoder parses the msgpack encoder artifact: a map from category
// name to a map from raw value to code.
func decodeEncoder(data []byte) (*Encoder, error) {
	var raw map[string]map[string]int
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode encoder tables: %w", err)
	}

	tables := make(map[CategoryType]map[string]int, len(raw))
	for name, table := range raw {
		category, ok := ParseCategoryType(name)
		if !ok {
			continue
		}
		tables[category] = table
	}
	for _, category := range Categories {
		if _, ok := tables[category]; !ok {
			return nil, fmt.Errorf("encoder table %q not present", category)
		}
	}
	return NewEncoder(tables), nil
}

// EncodeEncoderTables serializes tables in the artifact format read by
// LoadResources.
func EncodeEncoderTables(tables map[CategoryType]map[string]int) ([]byte, error) {
	raw := make(map[string]map[string]int, len(tables))
	for category, table := range tables {
		raw[string(category)] = table
	}
	return msgpack.Marshal(raw)
}
