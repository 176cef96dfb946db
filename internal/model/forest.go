// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package model

import (
	"fmt"
	"math"
)

// Ensemble combination modes.
const (
	// ForestMean averages tree outputs (random-forest style).
	ForestMean = "mean"
	// ForestBoosted adds LearningRate * tree output to Base (gradient boosting).
	ForestBoosted = "boosted"
)

// Node is one node of a regression tree stored in a flat slice.
// A node with Leaf set returns Value; otherwise x[Feature] <= Threshold
// descends into Left, else Right.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Leaf      bool
}

// Tree is a regression tree. Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

// Forest is a regression-tree ensemble.
type Forest struct {
	Features     int
	Mode         string
	Base         float64
	LearningRate float64
	Trees        []Tree

	// MaxSpread is the tree-output standard deviation at which
	// confidence reaches zero.
	MaxSpread float64
}

// DefaultMaxSpread is half the rating scale.
const DefaultMaxSpread = 2.5

// NewForest validates and returns a tree ensemble.
func NewForest(features int, mode string, base, learningRate float64, trees []Tree) (*Forest, error) {
	f := &Forest{
		Features:     features,
		Mode:         mode,
		Base:         base,
		LearningRate: learningRate,
		Trees:        trees,
		MaxSpread:    DefaultMaxSpread,
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Forest) validate() error {
	if f.Features <= 0 {
		return fmt.Errorf("%w: forest has no features", ErrInvalidModel)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrInvalidModel)
	}
	switch f.Mode {
	case ForestMean:
	case ForestBoosted:
		if f.LearningRate <= 0 {
			return fmt.Errorf("%w: boosted forest needs a positive learning rate", ErrInvalidModel)
		}
	default:
		return fmt.Errorf("%w: forest mode %q", ErrInvalidModel, f.Mode)
	}
	if f.MaxSpread <= 0 {
		f.MaxSpread = DefaultMaxSpread
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d is empty", ErrInvalidModel, ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= f.Features {
				return fmt.Errorf("%w: tree %d node %d splits on feature %d", ErrInvalidModel, ti, ni, n.Feature)
			}
			// Children must point forward, which also rules out cycles.
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("%w: tree %d node %d has invalid children", ErrInvalidModel, ti, ni)
			}
		}
	}
	return nil
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// outputs evaluates every tree. In boosted mode each output is expressed as
// the prediction that tree alone would imply, so spread is comparable
// across modes.
func (f *Forest) outputs(x []float64) ([]float64, error) {
	if err := checkArity(f.Features, x); err != nil {
		return nil, err
	}
	out := make([]float64, len(f.Trees))
	n := float64(len(f.Trees))
	for i := range f.Trees {
		v := f.Trees[i].eval(x)
		if f.Mode == ForestBoosted {
			v = f.Base + n*f.LearningRate*v
		}
		out[i] = v
	}
	return out, nil
}

// Predict implements Model.
func (f *Forest) Predict(x []float64) (float64, error) {
	outs, err := f.outputs(x)
	if err != nil {
		return 0, err
	}
	mean, _ := meanStd(outs)
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, ErrNonFinite
	}
	return mean, nil
}

// Confidence implements UncertaintyEstimator: the closer the trees agree,
// the closer confidence is to 1.
func (f *Forest) Confidence(x []float64) (float64, error) {
	outs, err := f.outputs(x)
	if err != nil {
		return 0, err
	}
	_, std := meanStd(outs)
	if math.IsNaN(std) {
		return 0, ErrNonFinite
	}
	return 1 - math.Min(std/f.MaxSpread, 1), nil
}

// NumFeatures implements Model.
func (f *Forest) NumFeatures() int { return f.Features }

// Kind implements Model.
func (f *Forest) Kind() Kind { return KindForest }

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}
