// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package model

import (
	"fmt"
	"math"
)

// Linear is a weighted sum of features plus bias. With Squash set the sum is
// passed through a sigmoid and scaled to [0, Scale].
type Linear struct {
	Weights []float64
	Bias    float64
	Squash  bool
	Scale   float64
}

// NewLinear validates and returns a linear model.
func NewLinear(weights []float64, bias float64, squash bool, scale float64) (*Linear, error) {
	m := &Linear{Weights: append([]float64(nil), weights...), Bias: bias, Squash: squash, Scale: scale}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Linear) validate() error {
	if len(m.Weights) == 0 {
		return fmt.Errorf("%w: linear model has no weights", ErrInvalidModel)
	}
	for i, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is not finite", ErrInvalidModel, i)
		}
	}
	if math.IsNaN(m.Bias) || math.IsInf(m.Bias, 0) {
		return fmt.Errorf("%w: bias is not finite", ErrInvalidModel)
	}
	if m.Squash && m.Scale <= 0 {
		return fmt.Errorf("%w: squashed linear model needs a positive scale", ErrInvalidModel)
	}
	return nil
}

// Predict implements Model.
func (m *Linear) Predict(x []float64) (float64, error) {
	if err := checkArity(len(m.Weights), x); err != nil {
		return 0, err
	}
	z := m.Bias
	for i, w := range m.Weights {
		z += w * x[i]
	}
	if m.Squash {
		z = m.Scale / (1 + math.Exp(-z))
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, ErrNonFinite
	}
	return z, nil
}

// NumFeatures implements Model.
func (m *Linear) NumFeatures() int { return len(m.Weights) }

// Kind implements Model.
func (m *Linear) Kind() Kind { return KindLinear }
