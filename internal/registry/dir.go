// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactExt is the file extension of encoded model artifacts.
const ArtifactExt = ".wsm"

// DirRegistry serves artifacts from <dir>/<name>.wsm. It is used for
// air-gapped deployments and for tests.
type DirRegistry struct {
	dir string
}

// NewDirRegistry returns a registry rooted at dir. The directory must exist.
func NewDirRegistry(dir string) (*DirRegistry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat model directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model directory %s is not a directory", dir)
	}
	return &DirRegistry{dir: dir}, nil
}

// Fetch implements Registry.
func (d *DirRegistry) Fetch(ctx context.Context, name string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: invalid model name %q", ErrNotFound, name)
	}

	raw, err := os.ReadFile(filepath.Join(d.dir, name+ArtifactExt))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, name, err)
	}
	return decode(name, SourceDir, raw)
}

// Save writes an encoded artifact for name. Used by tooling and tests.
func (d *DirRegistry) Save(name string, raw []byte) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid model name %q", name)
	}
	//nolint:gosec // artifacts are not secret
	if err := os.WriteFile(filepath.Join(d.dir, name+ArtifactExt), raw, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}
