// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package serving

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wisata/internal/cache"
	"github.com/tomtom215/wisata/internal/features"
	"github.com/tomtom215/wisata/internal/metrics"
	"github.com/tomtom215/wisata/internal/ranking"
	"github.com/tomtom215/wisata/internal/resolver"
	"github.com/tomtom215/wisata/internal/scoring"
	"github.com/tomtom215/wisata/internal/validation"
)

// APIVersion is reported by Health.
const APIVersion = "1.0.0"

// Operation names used in metrics and cache keys.
const (
	OpPredict   = "predict"
	OpRecommend = "recommend"
)

var (
	// ErrTimeout means the request deadline passed before scoring finished.
	ErrTimeout = errors.New("request timed out")

	// ErrNoModel means no model has been published yet.
	ErrNoModel = errors.New("no active model")
)

// Request is the body of predict and recommend.
type Request struct {
	User   features.UserProfile `json:"user" validate:"required"`
	Places []features.Place     `json:"places" validate:"unique=PlaceID,dive"`
}

// ModelSource provides the active model. *resolver.Manager implements it.
type ModelSource interface {
	Current() *resolver.ActiveModel
	Reload(ctx context.Context) (resolver.Resolution, error)
}

// Config bounds request handling.
type Config struct {
	MaxCandidates  int
	DefaultTopK    int
	MaxTopK        int
	RequestTimeout time.Duration
}

// DefaultConfig returns the serving limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxCandidates:  50,
		DefaultTopK:    5,
		MaxTopK:        50,
		RequestTimeout: 5 * time.Second,
	}
}

// Service drives validate -> features -> score -> rank for every request.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	models  ModelSource
	engine  *scoring.Engine
	builder *features.Builder
	cache   cache.ResponseCache
	circuit CircuitReporter
	cfg     Config
	now     func() time.Time
	logger  zerolog.Logger
}

// NewService creates a Service. Zero fields in cfg take DefaultConfig values.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(models ModelSource, engine *scoring.Engine, cfg Config, logger zerolog.Logger) *Service {
	def := DefaultConfig()
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = def.MaxTopK
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = def.DefaultTopK
	}
	if cfg.DefaultTopK > cfg.MaxTopK {
		cfg.DefaultTopK = cfg.MaxTopK
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	return &Service{
		models:  models,
		engine:  engine,
		builder: features.DefaultBuilder(),
		cfg:     cfg,
		now:     time.Now,
		logger:  logger.With().Str("component", "serving").Logger(),
	}
}

// SetCache enables response caching. Pass nil to disable it.
func (s *Service) SetCache(c cache.ResponseCache) {
	s.cache = c
}

// SetBuilder replaces the feature builder, e.g. with configured priors.
func (s *Service) SetBuilder(b *features.Builder) {
	if b != nil {
		s.builder = b
	}
}

// DefaultTopK is the top_k used when a recommend call does not give one.
func (s *Service) DefaultTopK() int {
	return s.cfg.DefaultTopK
}

// Predict scores every place and returns them in request order, each with
// its rank. TopRecommendation is the rank-1 place.
func (s *Service) Predict(ctx context.Context, req *Request) (ranking.Response, error) {
	resp, err := s.run(ctx, OpPredict, req, 0)
	metrics.RecordScoringRequest(OpPredict, outcome(err))
	return resp, err
}

// Recommend scores every place and returns the best topK. topK must be
// positive; values above the configured maximum are clamped, and values
// above the candidate count return every candidate.
func (s *Service) Recommend(ctx context.Context, req *Request, topK int) (ranking.Response, error) {
	if topK < 1 {
		err := validation.NewRequestValidationError("top_k", "min", "1", topK, "top_k must be at least 1")
		metrics.RecordScoringRequest(OpRecommend, outcome(err))
		return ranking.Response{}, err
	}
	resp, err := s.run(ctx, OpRecommend, req, topK)
	metrics.RecordScoringRequest(OpRecommend, outcome(err))
	return resp, err
}

func (s *Service) run(ctx context.Context, op string, req *Request, topK int) (ranking.Response, error) {
	if err := s.validate(req); err != nil {
		return ranking.Response{}, err
	}

	// One snapshot for the whole request; a concurrent reload does not
	// affect it.
	active := s.models.Current()
	if active == nil {
		return ranking.Response{}, ErrNoModel
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	effectiveK := topK
	if effectiveK > s.cfg.MaxTopK {
		effectiveK = s.cfg.MaxTopK
	}

	key := s.cacheKey(op, active, req, effectiveK)
	if resp, ok := s.cached(ctx, key); ok {
		return resp, nil
	}

	scored, err := s.score(ctx, active, req)
	if err != nil {
		return ranking.Response{}, err
	}

	var resp ranking.Response
	if op == OpPredict {
		resp = ranking.InputOrder(scored, active.Name, s.now())
	} else {
		resp = ranking.Assemble(scored, effectiveK, active.Name, s.now()).WithSummary(topK)
	}

	s.store(ctx, key, &resp)
	return resp, nil
}

func (s *Service) validate(req *Request) error {
	if req == nil {
		return validation.NewRequestValidationError("", "required", "", nil, "request body is required")
	}
	if n := len(req.Places); n > s.cfg.MaxCandidates {
		return validation.NewRequestValidationError("places", "max", strconv.Itoa(s.cfg.MaxCandidates), n,
			fmt.Sprintf("places must contain at most %d items", s.cfg.MaxCandidates))
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		return verr
	}
	return nil
}

func (s *Service) score(ctx context.Context, active *resolver.ActiveModel, req *Request) ([]ranking.ScoredCandidate, error) {
	vectors := s.builder.BuildBatch(req.User, req.Places)
	priors := make([]float64, len(req.Places))
	for i := range req.Places {
		priors[i] = req.Places[i].AverageRating
	}

	scores, err := s.engine.Score(ctx, active.Model, vectors, priors)
	if err != nil {
		if errors.Is(err, scoring.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("scoring with %s: %w", active.Name, err)
	}

	out := make([]ranking.ScoredCandidate, len(scores))
	for i, sc := range scores {
		p := &req.Places[i]
		out[i] = ranking.ScoredCandidate{
			PlaceID:         p.PlaceID,
			Category:        p.Category,
			City:            p.City,
			PredictedRating: sc.PredictedRating,
			ConfidenceScore: sc.ConfidenceScore,
			Index:           i,
		}
	}
	return out, nil
}

// cacheKeyParts identifies a response. The model's load time is included so
// a reload of the same name and version still misses.
type cacheKeyParts struct {
	Model    string
	Version  string
	LoadedAt int64
	TopK     int
	Request  *Request
}

func (s *Service) cacheKey(op string, active *resolver.ActiveModel, req *Request, topK int) string {
	if s.cache == nil {
		return ""
	}
	key, err := cache.GenerateKey(op, cacheKeyParts{
		Model:    active.Name,
		Version:  active.Version,
		LoadedAt: active.LoadedAt.UnixNano(),
		TopK:     topK,
		Request:  req,
	})
	if err != nil {
		s.logger.Debug().Err(err).Msg("response cache key")
		return ""
	}
	return key
}

func (s *Service) cached(ctx context.Context, key string) (ranking.Response, bool) {
	if key == "" {
		return ranking.Response{}, false
	}
	body, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("backend", s.cache.Backend()).Msg("response cache read failed")
		return ranking.Response{}, false
	}
	if !ok {
		return ranking.Response{}, false
	}
	var resp ranking.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		s.logger.Warn().Err(err).Msg("discarding undecodable cached response")
		return ranking.Response{}, false
	}
	if resp.Predictions == nil {
		resp.Predictions = []ranking.ScoredCandidate{}
	}
	// The ranking is reused; the timestamp belongs to this response.
	resp.PredictionTimestamp = s.now().UTC()
	return resp, true
}

func (s *Service) store(ctx context.Context, key string, resp *ranking.Response) {
	if key == "" {
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn().Err(err).Msg("encode response for cache")
		return
	}
	if err := s.cache.Set(ctx, key, body); err != nil {
		s.logger.Warn().Err(err).Str("backend", s.cache.Backend()).Msg("response cache write failed")
	}
}

func outcome(err error) string {
	var verr *validation.RequestValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNoModel):
		return "unavailable"
	default:
		return "error"
	}
}
