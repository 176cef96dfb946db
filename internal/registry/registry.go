// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package registry implements the model registry collaborators: an
// MLflow-compatible HTTP client, a local directory registry, a circuit
// breaker wrapper and a badger-backed last-known-good snapshot.
//
// Every implementation satisfies Registry. Fetch either returns a decoded,
// validated Artifact or an error; callers treat any error as "try the next
// candidate". ErrNotFound and ErrUnavailable let callers and metrics tell a
// missing model from an unreachable registry.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/wisata/internal/model"
)

// Sources reported on Artifact.Source.
const (
	SourceMLflow   = "mlflow"
	SourceDir      = "dir"
	SourceSnapshot = "snapshot"
)

var (
	// ErrNotFound means the registry answered and has no usable version of
	// the requested model.
	ErrNotFound = errors.New("model not found in registry")

	// ErrUnavailable means the registry could not be reached or answered
	// with a server-side failure.
	ErrUnavailable = errors.New("model registry unavailable")
)

// Registry fetches loadable model artifacts by name.
type Registry interface {
	Fetch(ctx context.Context, name string) (*Artifact, error)
}

// Artifact is a decoded model plus its descriptive metadata.
type Artifact struct {
	Metadata model.Metadata
	Model    model.Model

	// Raw is the encoded artifact as fetched, kept for snapshotting.
	Raw []byte

	Source string
}

// decode parses raw and fills in registry identity the artifact lacks.
func decode(name, source string, raw []byte) (*Artifact, error) {
	meta, m, err := model.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", name, err)
	}
	if meta.Name == "" {
		meta.Name = name
	}
	return &Artifact{Metadata: meta, Model: m, Raw: raw, Source: source}, nil
}

// Classify maps a fetch error to a short label for logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, model.ErrMalformed),
		errors.Is(err, model.ErrChecksum),
		errors.Is(err, model.ErrUnknownKind),
		errors.Is(err, model.ErrInvalidModel),
		errors.Is(err, model.ErrLayoutMismatch):
		return "malformed"
	default:
		return "error"
	}
}
