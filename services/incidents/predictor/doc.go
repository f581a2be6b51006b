// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package predictor turns a driver's race context into a probability
// distribution over incident classes and a discrete risk tier.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                   Incident Prediction Pipeline                  │
//	├─────────────────────────────────────────────────────────────────┤
//	│                                                                 │
//	│  DriverInput (pilot, circuit, lap times, race context)          │
//	│         │                                                       │
//	│         ▼                                                       │
//	│  ┌──────────────┬──────────────┐                                │
//	│  │   Static     │   Lap Time   │                                │
//	│  │   Features   │   Window     │                                │
//	│  │  (8 values)  │ (seq_length) │                                │
//	│  └──────────────┴──────────────┘                                │
//	│         │              │                                        │
//	│         ▼              ▼                                        │
//	│    Static Scaler  Sequence Scaler                               │
//	│         │              │                                        │
//	│         └──────┬───────┘                                        │
//	│                ▼                                                │
//	│        ┌──────────────┐   error / not ready   ┌─────────────┐   │
//	│        │  Classifier  │ ────────────────────▶ │  Heuristic  │   │
//	│        └──────────────┘                       └─────────────┘   │
//	│                │                                     │          │
//	│                └──────────────┬──────────────────────┘          │
//	│                               ▼                                 │
//	│                       RiskDistribution                          │
//	│                               │                                 │
//	│                               ▼                                 │
//	│               Tier (LOW/MODERATE/HIGH/CRITICAL)                 │
//	│                                                                 │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Lifecycle
//
// A Service starts UNINITIALIZED. The first call to Load (explicit or
// triggered by a prediction) moves it to LOADING, then to READY when every
// artifact parsed, or FAILED otherwise. FAILED is terminal for the process:
// the service keeps answering in TEST mode using the heuristic generator.
//
// # Thread Safety
//
// Service, Encoder, Scaler and DenseClassifier are safe for concurrent use
// once constructed. Loading happens at most once.
package predictor
