// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package scoring turns feature vectors into predicted ratings and
// confidence scores using whichever model the caller hands in.
//
// The engine never reads global model state; the caller captures the active
// model once per request and passes it in, so a concurrent reload cannot
// change the model halfway through a batch.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/wisata/internal/features"
	"github.com/tomtom215/wisata/internal/metrics"
	"github.com/tomtom215/wisata/internal/model"
)

// Rating bounds for predicted_rating.
const (
	MinRating = 0.0
	MaxRating = 5.0
)

// DefaultConfidence is reported for models without an uncertainty estimate.
const DefaultConfidence = 0.5

var (
	// ErrArity means a feature vector does not match the model. This is a
	// programming error and fails the whole request.
	ErrArity = errors.New("feature vector arity mismatch")

	// ErrTimeout means the request deadline passed before scoring finished.
	// A cancelled context is returned as context.Canceled instead.
	ErrTimeout = errors.New("scoring deadline exceeded")
)

// Score is the result for one candidate.
type Score struct {
	PredictedRating float64
	ConfidenceScore float64

	// Fallback is set when inference failed and the prior was used.
	Fallback bool
}

// Config tunes the engine.
type Config struct {
	// ParallelThreshold is the batch size above which scoring is split
	// across goroutines. Zero disables parallel scoring.
	ParallelThreshold int

	// Workers bounds the goroutines used for one parallel batch.
	Workers int
}

// DefaultConfig returns the serving defaults.
func DefaultConfig() Config {
	return Config{ParallelThreshold: 64, Workers: 4}
}

// Engine scores batches of feature vectors. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
}

// NewEngine creates a scoring engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With().Str("component", "scoring").Logger(),
	}
}

// Score predicts a rating and confidence for every vector. priors holds the
// place's own average rating per vector and is used when inference fails.
// Results are index-aligned with vectors.
func (e *Engine) Score(ctx context.Context, m model.Model, vectors []features.Vector, priors []float64) ([]Score, error) {
	if m == nil {
		return nil, errors.New("scoring: nil model")
	}
	if len(priors) != len(vectors) {
		return nil, fmt.Errorf("scoring: %d priors for %d vectors", len(priors), len(vectors))
	}

	want := m.NumFeatures()
	for i, v := range vectors {
		if len(v) != want {
			return nil, fmt.Errorf("%w: vector %d has %d features, model %s expects %d",
				ErrArity, i, len(v), m.Kind(), want)
		}
	}

	start := time.Now()
	out := make([]Score, len(vectors))

	var err error
	if e.cfg.ParallelThreshold > 0 && len(vectors) > e.cfg.ParallelThreshold && e.cfg.Workers > 1 {
		err = e.scoreParallel(ctx, m, vectors, priors, out)
	} else {
		err = e.scoreRange(ctx, m, vectors, priors, out, 0, len(vectors))
	}
	if err != nil {
		return nil, err
	}

	fallbacks := 0
	for i := range out {
		if out[i].Fallback {
			fallbacks++
		}
	}
	metrics.RecordScoring(len(vectors), fallbacks, time.Since(start))
	if fallbacks > 0 {
		e.logger.Warn().
			Int("fallbacks", fallbacks).
			Int("candidates", len(vectors)).
			Str("model_kind", string(m.Kind())).
			Msg("inference failed for some candidates, used rating prior")
	}
	return out, nil
}

// scoreParallel splits the batch into contiguous chunks. Each goroutine
// writes only its own index range, so output order matches input order.
func (e *Engine) scoreParallel(ctx context.Context, m model.Model, vectors []features.Vector, priors []float64, out []Score) error {
	g, gctx := errgroup.WithContext(ctx)

	chunk := (len(vectors) + e.cfg.Workers - 1) / e.cfg.Workers
	for lo := 0; lo < len(vectors); lo += chunk {
		hi := min(lo+chunk, len(vectors))
		g.Go(func() error {
			return e.scoreRange(gctx, m, vectors, priors, out, lo, hi)
		})
	}
	return g.Wait()
}

func (e *Engine) scoreRange(ctx context.Context, m model.Model, vectors []features.Vector, priors []float64, out []Score, lo, hi int) error {
	for i := lo; i < hi; i++ {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: scored %d of %d candidates: %w", ErrTimeout, i-lo, hi-lo, err)
			}
			return fmt.Errorf("scoring canceled after %d of %d candidates: %w", i-lo, hi-lo, err)
		}
		out[i] = e.scoreOne(m, vectors[i], priors[i])
	}
	return nil
}

// scoreOne never fails: inference errors and panics degrade to the prior.
func (e *Engine) scoreOne(m model.Model, x features.Vector, prior float64) (s Score) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("model_kind", string(m.Kind())).Msg("model panicked during inference")
			s = fallbackScore(prior)
		}
	}()

	pred, err := m.Predict(x)
	if err != nil || math.IsNaN(pred) || math.IsInf(pred, 0) {
		if err != nil {
			e.logger.Debug().Err(err).Msg("inference failed")
		}
		return fallbackScore(prior)
	}

	return Score{
		PredictedRating: ClampRating(pred),
		ConfidenceScore: confidence(m, x),
	}
}

// confidence branches on the uncertainty capability; estimator failures
// degrade to the constant.
func confidence(m model.Model, x []float64) float64 {
	est, ok := m.(model.UncertaintyEstimator)
	if !ok {
		return DefaultConfidence
	}
	c, err := est.Confidence(x)
	if err != nil || math.IsNaN(c) {
		return DefaultConfidence
	}
	return clamp(c, 0, 1)
}

func fallbackScore(prior float64) Score {
	return Score{PredictedRating: ClampRating(prior), ConfidenceScore: 0, Fallback: true}
}

// ClampRating bounds a raw prediction to the rating scale.
func ClampRating(v float64) float64 {
	if math.IsNaN(v) {
		return MinRating
	}
	return clamp(v, MinRating, MaxRating)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
