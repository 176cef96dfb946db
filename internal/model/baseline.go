// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package model

import (
	"fmt"

	"github.com/tomtom215/wisata/internal/features"
)

// Baseline identity reported while serving in degraded mode.
const (
	BaselineName    = "baseline-fallback-model"
	BaselineVersion = "1.0"
	BaselineStage   = "Production"
	BaselineRunID   = "fallback"
)

// Baseline is the fixed-weight heuristic scorer used when no registry model
// can be loaded. It starts from the place's own rating blended with the
// global prior and nudges it by the preference signals. It has no native
// uncertainty estimate.
type Baseline struct {
	lin *Linear
}

// baselineWeights maps feature index to weight. Match and budget features
// are centred on their neutral value 0.5 through baselineBias.
var baselineWeights = map[int]float64{
	features.IdxPlaceRating:    0.7,
	features.IdxGlobalMean:     0.3,
	features.IdxCategoryMatch:  0.6,
	features.IdxCityMatch:      0.3,
	features.IdxBudgetCompat:   0.4,
	features.IdxDurationMedium: 0.05,
}

const baselineBias = -0.5 * (0.6 + 0.3 + 0.4)

// NewBaseline builds the heuristic scorer for the current feature layout.
func NewBaseline() (*Baseline, error) {
	w := make([]float64, features.Arity)
	for idx, weight := range baselineWeights {
		if idx < 0 || idx >= len(w) {
			return nil, fmt.Errorf("%w: baseline weight index %d outside layout", ErrInvalidModel, idx)
		}
		w[idx] = weight
	}
	lin, err := NewLinear(w, baselineBias, false, 0)
	if err != nil {
		return nil, fmt.Errorf("build baseline: %w", err)
	}
	return &Baseline{lin: lin}, nil
}

// Predict implements Model.
func (b *Baseline) Predict(x []float64) (float64, error) {
	return b.lin.Predict(x)
}

// NumFeatures implements Model.
func (b *Baseline) NumFeatures() int { return b.lin.NumFeatures() }

// Kind implements Model.
func (b *Baseline) Kind() Kind { return KindBaseline }
