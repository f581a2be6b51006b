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
	"errors"
	"fmt"
)

var (
	// ErrResourceMissing is matched by every ResourceError.
	ErrResourceMissing = errors.New("predictor resource missing or invalid")

	// ErrClassifierInvocation is matched by every ClassifierError.
	ErrClassifierInvocation = errors.New("classifier invocation failed")

	// ErrNilContext is returned when a nil context is passed to a prediction.
	ErrNilContext = errors.New("ctx must not be nil")

	// ErrDimensionMismatch is returned when a vector does not match the
	// width a scaler or classifier was built for.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// ResourceError describes a model artifact that could not be loaded.
//
// # Description
//
// Produced by LoadResources for absent, unreadable, malformed or
// inconsistently shaped artifacts. The service treats any ResourceError as
// a permanent switch to TEST mode.
type ResourceError struct {
	// Resource is the logical artifact name (metadata, scaler_static, ...).
	Resource string

	// Path is the file or endpoint that was being read.
	Path string

	// Err is the underlying cause.
	Err error
}

func (e *ResourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("resource %s (%s): %v", e.Resource, e.Path, e.Err)
	}
	return fmt.Sprintf("resource %s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// Is reports ErrResourceMissing as a match.
func (e *ResourceError) Is(target error) bool { return target == ErrResourceMissing }

// ClassifierError wraps any failure raised while invoking the classifier,
// including invalid output and recovered panics.
type ClassifierError struct {
	Err error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier invocation failed: %v", e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// Is reports ErrClassifierInvocation as a match.
func (e *ClassifierError) Is(target error) bool { return target == ErrClassifierInvocation }
