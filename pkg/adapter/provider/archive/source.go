// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
)

// Source is a repo.SourceProvider which reads an archive directory.
// Categories whose file is missing are reported as absent streams.
type Source struct {
	dir string
}

// NewSource instantiates a Source for the dir archive directory.
// The directory is not accessed until the Bootstrap method is called.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Name returns the provider name, including the directory path.
func (s *Source) Name() string {
	return name(s.dir)
}

// Bootstrap ensures that the archive directory exists.
func (s *Source) Bootstrap(_ context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat(%q): %w", s.dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%q is not a directory", s.dir)
	}
	return nil
}

// Metadata reads and returns the metadata.json file contents.
// If the file does not exist, nil is returned.
func (s *Source) Metadata(_ context.Context) (*model.Metadata, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, MetadataFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	m := &model.Metadata{}
	if err = json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return m, nil
}

// Schemas reads all schemas of the archive and returns them keyed by
// their UID. If the schemas file does not exist, nil is returned.
func (s *Source) Schemas(ctx context.Context) (model.SchemaMap, error) {
	r, err := openReader[model.Schema](s.dir, model.StageSchemas)
	if err != nil || r == nil {
		return nil, err
	}
	defer r.Close()
	sm := make(model.SchemaMap)
	for {
		sch, err := r.Read(ctx)
		if errors.Is(err, io.EOF) {
			return sm, nil
		}
		if err != nil {
			return nil, err
		}
		sm[sch.UID] = &sch
	}
}

// SchemasReader streams the schemas file.
func (s *Source) SchemasReader(_ context.Context) (
	repo.ReadStream[model.Schema], error,
) {
	return openReader[model.Schema](s.dir, model.StageSchemas)
}

// EntitiesReader streams the entities file.
func (s *Source) EntitiesReader(_ context.Context) (
	repo.ReadStream[model.Entity], error,
) {
	return openReader[model.Entity](s.dir, model.StageEntities)
}

// LinksReader streams the links file.
func (s *Source) LinksReader(_ context.Context) (
	repo.ReadStream[model.Link], error,
) {
	return openReader[model.Link](s.dir, model.StageLinks)
}

// ConfigurationReader streams the configuration file.
func (s *Source) ConfigurationReader(_ context.Context) (
	repo.ReadStream[model.ConfigEntry], error,
) {
	return openReader[model.ConfigEntry](s.dir, model.StageConfiguration)
}

// openReader opens the stage file of dir. It returns a nil stream if
// the file does not exist.
func openReader[T any](dir string, stage model.Stage) (
	repo.ReadStream[T], error,
) {
	f, err := os.Open(path(dir, stage))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s file: %w", stage, err)
	}
	return &reader[T]{
		f:   f,
		dec: json.NewDecoder(bufio.NewReader(f)),
	}, nil
}

type reader[T any] struct {
	f    *os.File
	dec  *json.Decoder
	line int
}

func (r *reader[T]) Read(ctx context.Context) (item T, err error) {
	if err = ctx.Err(); err != nil {
		return item, err
	}
	if err = r.dec.Decode(&item); err != nil {
		if errors.Is(err, io.EOF) {
			return item, io.EOF
		}
		return item, fmt.Errorf(
			"decoding item #%d of %s: %w", r.line+1, r.f.Name(), err,
		)
	}
	r.line++
	return item, nil
}

func (r *reader[T]) Close() error {
	return r.f.Close()
}
