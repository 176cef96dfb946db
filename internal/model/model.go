// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package model defines the scoring model contract, the built-in model kinds
// and the artifact format used to ship models through the registry.
//
// A Model maps one feature vector to a predicted rating. Models that can
// judge their own reliability additionally implement UncertaintyEstimator;
// callers branch on that capability instead of probing model internals.
//
// Built-in kinds:
//
//   - linear: weighted sum plus bias, optionally squashed to the rating scale
//   - forest: regression-tree ensemble (averaged or boosted)
//   - baseline: fixed-weight heuristic, always constructible, no I/O
//
// All model values are immutable after construction and safe for
// concurrent use.
package model

import (
	"errors"
	"fmt"
)

// Kind names a model family inside an artifact.
type Kind string

const (
	KindLinear   Kind = "linear"
	KindForest   Kind = "forest"
	KindBaseline Kind = "baseline"
)

// Errors returned by model construction and inference.
var (
	ErrArity          = errors.New("feature vector arity mismatch")
	ErrInvalidModel   = errors.New("invalid model definition")
	ErrNonFinite      = errors.New("model produced a non-finite value")
	ErrUnknownKind    = errors.New("unknown model kind")
	ErrMalformed      = errors.New("malformed model artifact")
	ErrChecksum       = errors.New("model artifact checksum mismatch")
	ErrLayoutMismatch = errors.New("model feature layout does not match serving layout")
)

// Model predicts a rating for one feature vector.
type Model interface {
	// Predict returns the raw (unclamped) predicted rating.
	Predict(x []float64) (float64, error)

	// NumFeatures is the vector arity the model was trained on.
	NumFeatures() int

	// Kind reports the model family.
	Kind() Kind
}

// UncertaintyEstimator is implemented by models that expose a native
// confidence signal. Confidence must be in [0,1] and independent of the
// predicted value itself.
type UncertaintyEstimator interface {
	Confidence(x []float64) (float64, error)
}

func checkArity(want int, x []float64) error {
	if len(x) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrArity, len(x), want)
	}
	return nil
}
