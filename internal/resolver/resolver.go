// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wisata/internal/features"
	"github.com/tomtom215/wisata/internal/metrics"
	"github.com/tomtom215/wisata/internal/model"
	"github.com/tomtom215/wisata/internal/registry"
)

// ErrFatalStartup means not even the baseline model could be built. No
// request can be served without a model.
var ErrFatalStartup = errors.New("fatal: baseline model construction failed")

// DefaultPriority is the registry lookup order used when none is configured:
// most capable model first, progressively simpler fallbacks after.
var DefaultPriority = []string{
	"tourism-recommendation-model",
	"tourism_recommendation_model",
	"tourism_recommendation_enhanced",
	"tourism_random_forest",
	"tourism_gradient_boosting",
	"tourism_simple_model",
}

// DefaultFetchTimeout bounds a single registry fetch.
const DefaultFetchTimeout = 10 * time.Second

// Outcome tags how a resolution ended.
type Outcome string

const (
	// OutcomeResolved means a registry model was loaded.
	OutcomeResolved Outcome = "resolved"

	// OutcomeBaseline means every named candidate failed and the baseline
	// was built instead.
	OutcomeBaseline Outcome = "baseline"
)

// ActiveModel is the model currently serving requests plus its identity.
// It is never mutated after publication; reload replaces it wholesale.
type ActiveModel struct {
	Name          string
	Version       string
	Stage         string
	RunID         string
	Source        string
	Kind          model.Kind
	LayoutVersion int
	Metrics       map[string]float64
	LoadedAt      time.Time
	Degraded      bool

	Model model.Model
}

// Attempt records one registry fetch made during resolution.
type Attempt struct {
	Name     string        `json:"name"`
	Result   string        `json:"result"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Resolution is the tagged result of Resolve.
type Resolution struct {
	Outcome  Outcome
	Active   *ActiveModel
	Attempts []Attempt
}

// BaselineFunc builds the in-process fallback model. It must not do I/O.
type BaselineFunc func() (model.Model, error)

// DefaultBaseline builds model.Baseline.
func DefaultBaseline() (model.Model, error) {
	return model.NewBaseline()
}

// Options tunes Resolve.
type Options struct {
	FetchTimeout time.Duration
	Baseline     BaselineFunc
	Logger       zerolog.Logger

	// Now is the clock used for LoadedAt. Defaults to time.Now.
	Now func() time.Time
}

func (o *Options) withDefaults() {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.Baseline == nil {
		o.Baseline = DefaultBaseline
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Resolve walks names in order against reg and returns the first model that
// fetches, decodes and matches the current feature layout. Every failure is
// recorded and the walk continues. When all names fail (or reg is nil) the
// baseline is built; only a baseline failure is returned as an error, wrapped
// in ErrFatalStartup. Cancellation of ctx itself aborts the walk.
//
//nolint:gocritic // opts passed by value, defaults are applied to the copy
func Resolve(ctx context.Context, reg registry.Registry, names []string, opts Options) (Resolution, error) {
	opts.withDefaults()
	logger := opts.Logger

	res := Resolution{Attempts: make([]Attempt, 0, len(names))}

	if reg != nil {
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("model resolution aborted: %w", err)
			}

			art, attempt := fetchOne(ctx, reg, name, opts.FetchTimeout)
			res.Attempts = append(res.Attempts, attempt)
			if art == nil {
				logger.Warn().
					Str("model", name).
					Str("result", attempt.Result).
					Str("error", attempt.Error).
					Dur("duration", attempt.Duration).
					Msg("model candidate unavailable, trying next")
				continue
			}

			res.Outcome = OutcomeResolved
			res.Active = &ActiveModel{
				Name:          art.Metadata.Name,
				Version:       art.Metadata.Version,
				Stage:         art.Metadata.Stage,
				RunID:         art.Metadata.RunID,
				Source:        art.Source,
				Kind:          art.Model.Kind(),
				LayoutVersion: art.Metadata.LayoutVersion,
				Metrics:       copyMetrics(art.Metadata.Metrics),
				LoadedAt:      opts.Now().UTC(),
				Model:         art.Model,
			}
			metrics.RecordModelResolution(string(OutcomeResolved))
			logger.Info().
				Str("model", res.Active.Name).
				Str("version", res.Active.Version).
				Str("stage", res.Active.Stage).
				Str("source", res.Active.Source).
				Int("attempts", len(res.Attempts)).
				Msg("resolved model from registry")
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("model resolution aborted: %w", err)
		}
	}

	m, err := buildBaseline(opts.Baseline)
	if err != nil {
		metrics.RecordModelResolution("fatal")
		return res, fmt.Errorf("%w: %w", ErrFatalStartup, err)
	}

	res.Outcome = OutcomeBaseline
	res.Active = &ActiveModel{
		Name:          model.BaselineName,
		Version:       model.BaselineVersion,
		Stage:         model.BaselineStage,
		RunID:         model.BaselineRunID,
		Source:        "builtin",
		Kind:          m.Kind(),
		LayoutVersion: features.LayoutVersion,
		LoadedAt:      opts.Now().UTC(),
		Degraded:      true,
		Model:         m,
	}
	metrics.RecordModelResolution(string(OutcomeBaseline))
	logger.Warn().
		Int("attempts", len(res.Attempts)).
		Msg("no registry model available, serving baseline")
	return res, nil
}

// fetchOne runs a single bounded fetch and checks layout compatibility.
func fetchOne(ctx context.Context, reg registry.Registry, name string, timeout time.Duration) (*registry.Artifact, Attempt) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	art, err := reg.Fetch(fetchCtx, name)
	if err == nil {
		err = checkCompatible(art)
	}
	elapsed := time.Since(start)

	result := registry.Classify(err)
	metrics.RecordRegistryFetch(name, result, elapsed)

	attempt := Attempt{Name: name, Result: result, Duration: elapsed}
	if err != nil {
		attempt.Error = err.Error()
		return nil, attempt
	}
	return art, attempt
}

// checkCompatible rejects artifacts trained against another feature layout.
func checkCompatible(art *registry.Artifact) error {
	if art == nil || art.Model == nil {
		return fmt.Errorf("%w: empty artifact", model.ErrMalformed)
	}
	if art.Metadata.LayoutVersion != features.LayoutVersion {
		return fmt.Errorf("%w: artifact layout v%d, service layout v%d",
			model.ErrLayoutMismatch, art.Metadata.LayoutVersion, features.LayoutVersion)
	}
	if n := art.Model.NumFeatures(); n != features.Arity {
		return fmt.Errorf("%w: model expects %d features, layout has %d",
			model.ErrLayoutMismatch, n, features.Arity)
	}
	return nil
}

// buildBaseline calls fn, turning a panic into an error.
func buildBaseline(fn BaselineFunc) (m model.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("baseline constructor panicked: %v", r)
		}
	}()
	m, err = fn()
	if err == nil && m == nil {
		err = errors.New("baseline constructor returned nil model")
	}
	if err == nil && m.NumFeatures() != features.Arity {
		err = fmt.Errorf("%w: baseline expects %d features, layout has %d",
			model.ErrLayoutMismatch, m.NumFeatures(), features.Arity)
	}
	return m, err
}

func copyMetrics(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
