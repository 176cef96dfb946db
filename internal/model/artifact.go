// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package model

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// maxArtifactBytes bounds the decompressed payload of a single artifact.
const maxArtifactBytes = 64 << 20

// Metadata describes a model artifact. It travels with the payload so a
// fetched artifact is self-describing.
type Metadata struct {
	// Name is the registry name the model was published under.
	Name string `json:"name"`

	// Version is the registry version (opaque string).
	Version string `json:"version"`

	// Stage is the registry stage (None, Staging, Production).
	Stage string `json:"stage"`

	// RunID links the artifact to the training run that produced it.
	RunID string `json:"run_id"`

	Kind          Kind `json:"kind"`
	LayoutVersion int  `json:"layout_version"`

	// Metrics are offline evaluation metrics recorded at training time.
	Metrics map[string]float64 `json:"metrics,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`
}

// payload carries exactly one model definition.
type payload struct {
	Linear *Linear
	Forest *Forest
}

// storedFile is the wire format of an artifact.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Encode serializes m with its metadata. Checksum, SizeBytes and Kind are
// filled in from the payload.
//
//nolint:gocritic // meta passed by value, a copy is returned inside the artifact
func Encode(meta Metadata, m Model) ([]byte, error) {
	var p payload
	switch v := m.(type) {
	case *Linear:
		p.Linear = v
	case *Forest:
		p.Forest = v
	default:
		return nil, fmt.Errorf("%w: cannot encode %T", ErrUnknownKind, m)
	}
	meta.Kind = m.Kind()

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(p); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	sum := sha256.Sum256(raw.Bytes())
	meta.Checksum = hex.EncodeToString(sum[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	meta.SizeBytes = int64(compressed.Len())

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return out.Bytes(), nil
}

// Decode parses an artifact, verifies its checksum and validates the model.
func Decode(data []byte) (Metadata, Model, error) {
	var sf storedFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sf); err != nil {
		return Metadata{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return sf.Metadata, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(io.LimitReader(gzr, maxArtifactBytes+1))
	if err != nil {
		return sf.Metadata, nil, fmt.Errorf("%w: decompress: %v", ErrMalformed, err)
	}
	if len(raw) > maxArtifactBytes {
		return sf.Metadata, nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrMalformed, maxArtifactBytes)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != sf.Metadata.Checksum {
		return sf.Metadata, nil, fmt.Errorf("%w: got %s, want %s", ErrChecksum, got, sf.Metadata.Checksum)
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return sf.Metadata, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var m Model
	switch {
	case p.Linear != nil && sf.Metadata.Kind == KindLinear:
		if err := p.Linear.validate(); err != nil {
			return sf.Metadata, nil, err
		}
		m = p.Linear
	case p.Forest != nil && sf.Metadata.Kind == KindForest:
		if err := p.Forest.validate(); err != nil {
			return sf.Metadata, nil, err
		}
		m = p.Forest
	default:
		return sf.Metadata, nil, fmt.Errorf("%w: %q", ErrUnknownKind, sf.Metadata.Kind)
	}
	return sf.Metadata, m, nil
}
