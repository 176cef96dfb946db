// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	latestVersionsPath = "/api/2.0/mlflow/registered-models/get-latest-versions"
	downloadURIPath    = "/api/2.0/mlflow/model-versions/get-download-uri"
	artifactProxyPath  = "/api/2.0/mlflow-artifacts/artifacts/"

	mlflowArtifactsScheme = "mlflow-artifacts"
)

// MLflowConfig configures the MLflow registry client.
type MLflowConfig struct {
	// BaseURL is the tracking server, e.g. http://mlflow:5000.
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// ArtifactFile is the file name of the encoded model inside the
	// version's artifact directory.
	ArtifactFile string

	// Stages limits which registry stages are considered.
	Stages []string

	// Timeout bounds each HTTP round trip. The caller's context still wins.
	Timeout time.Duration

	// MaxArtifactBytes bounds the artifact download size.
	MaxArtifactBytes int64
}

// DefaultMLflowConfig returns defaults for a local tracking server.
func DefaultMLflowConfig() MLflowConfig {
	return MLflowConfig{
		BaseURL:          "http://localhost:5000",
		ArtifactFile:     "model.wsm",
		Stages:           []string{"None", "Staging", "Production"},
		Timeout:          10 * time.Second,
		MaxArtifactBytes: 64 << 20,
	}
}

// MLflowClient fetches model artifacts from an MLflow model registry.
type MLflowClient struct {
	cfg    MLflowConfig
	base   *url.URL
	client *http.Client
	logger zerolog.Logger
}

// modelVersion mirrors the MLflow ModelVersion message (fields we use).
type modelVersion struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	CurrentStage string `json:"current_stage"`
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
}

type latestVersionsRequest struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages,omitempty"`
}

type latestVersionsResponse struct {
	ModelVersions []modelVersion `json:"model_versions"`
}

type downloadURIResponse struct {
	ArtifactURI string `json:"artifact_uri"`
}

type mlflowError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// NewMLflowClient validates cfg and returns a client.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMLflowClient(cfg MLflowConfig, logger zerolog.Logger) (*MLflowClient, error) {
	def := DefaultMLflowConfig()
	if cfg.ArtifactFile == "" {
		cfg.ArtifactFile = def.ArtifactFile
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxArtifactBytes <= 0 {
		cfg.MaxArtifactBytes = def.MaxArtifactBytes
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse registry url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("registry url must be http or https, got %q", cfg.BaseURL)
	}

	return &MLflowClient{
		cfg:    cfg,
		base:   base,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "mlflow").Logger(),
	}, nil
}

// Fetch implements Registry: latest version, then its download URI, then
// the artifact file.
func (c *MLflowClient) Fetch(ctx context.Context, name string) (*Artifact, error) {
	mv, err := c.latestVersion(ctx, name)
	if err != nil {
		return nil, err
	}

	artifactURL, err := c.artifactURL(ctx, mv)
	if err != nil {
		return nil, err
	}

	raw, err := c.download(ctx, artifactURL)
	if err != nil {
		return nil, err
	}

	art, err := decode(name, SourceMLflow, raw)
	if err != nil {
		return nil, err
	}
	// Registry identity wins over whatever was baked into the file.
	art.Metadata.Name = mv.Name
	art.Metadata.Version = mv.Version
	art.Metadata.Stage = mv.CurrentStage
	if mv.RunID != "" {
		art.Metadata.RunID = mv.RunID
	}

	c.logger.Debug().
		Str("model", mv.Name).
		Str("version", mv.Version).
		Str("stage", mv.CurrentStage).
		Int("bytes", len(raw)).
		Msg("fetched model artifact")
	return art, nil
}

func (c *MLflowClient) latestVersion(ctx context.Context, name string) (*modelVersion, error) {
	body, err := json.Marshal(latestVersionsRequest{Name: name, Stages: c.cfg.Stages})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var resp latestVersionsResponse
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(latestVersionsPath, nil), body, &resp); err != nil {
		return nil, fmt.Errorf("latest versions of %s: %w", name, err)
	}

	var best *modelVersion
	bestN := -1
	for i := range resp.ModelVersions {
		mv := &resp.ModelVersions[i]
		if mv.Status != "" && mv.Status != "READY" {
			continue
		}
		n, convErr := strconv.Atoi(mv.Version)
		if convErr != nil {
			continue
		}
		if n > bestN {
			best, bestN = mv, n
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s has no ready version", ErrNotFound, name)
	}
	if best.Name == "" {
		best.Name = name
	}
	return best, nil
}

func (c *MLflowClient) artifactURL(ctx context.Context, mv *modelVersion) (string, error) {
	q := url.Values{"name": {mv.Name}, "version": {mv.Version}}
	var resp downloadURIResponse
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(downloadURIPath, q), nil, &resp); err != nil {
		return "", fmt.Errorf("download uri of %s/%s: %w", mv.Name, mv.Version, err)
	}
	return c.resolveArtifactURI(resp.ArtifactURI)
}

// resolveArtifactURI turns an MLflow artifact URI into a fetchable URL.
// mlflow-artifacts URIs are served by the tracking server's artifact proxy.
func (c *MLflowClient) resolveArtifactURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || uri == "" {
		return "", fmt.Errorf("%w: bad artifact uri %q", ErrNotFound, uri)
	}
	switch u.Scheme {
	case "http", "https":
		u.Path = path.Join(u.Path, c.cfg.ArtifactFile)
		return u.String(), nil
	case mlflowArtifactsScheme:
		rel := strings.TrimPrefix(path.Join(u.Path, c.cfg.ArtifactFile), "/")
		return c.base.String() + artifactProxyPath + rel, nil
	default:
		return "", fmt.Errorf("%w: unsupported artifact scheme %q", ErrNotFound, u.Scheme)
	}
}

func (c *MLflowClient) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp); err != nil {
		return nil, fmt.Errorf("download artifact: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxArtifactBytes+1))
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	if int64(len(data)) > c.cfg.MaxArtifactBytes {
		return nil, fmt.Errorf("%w: artifact exceeds %d bytes", ErrUnavailable, c.cfg.MaxArtifactBytes)
	}
	return data, nil
}

func (c *MLflowClient) doJSON(ctx context.Context, method, rawURL string, body []byte, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := c.newRequest(ctx, method, rawURL, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return unavailable(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *MLflowClient) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return req, nil
}

func (c *MLflowClient) endpoint(p string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + p
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// statusError maps an HTTP status to the registry error taxonomy.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var me mlflowError
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(snippet, &me)

	switch {
	case resp.StatusCode == http.StatusNotFound, me.ErrorCode == "RESOURCE_DOES_NOT_EXIST":
		return fmt.Errorf("%w: %s", ErrNotFound, firstNonEmpty(me.Message, resp.Status))
	default:
		return fmt.Errorf("%w: %s", ErrUnavailable, firstNonEmpty(me.Message, resp.Status))
	}
}

// unavailable wraps a transport error, keeping context errors visible.
func unavailable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, ctxErr)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
