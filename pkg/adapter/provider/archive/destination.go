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
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/momeni/dtransfer/pkg/core/log"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
)

// Destination is a repo.DestinationProvider which writes an archive
// directory. An archive accepts any schema, so Destination does not
// provide its schemas and the schema integrity check is skipped.
type Destination struct {
	dir        string
	appVersion string
	overwrite  bool
	now        func() time.Time
}

// Option is a functional option for the archive Destination.
type Option func(d *Destination) error

// WithAppVersion option sets the application version which is reported
// by the Destination metadata (for the version integrity check) and is
// stored in its metadata.json file. Without this option, destination
// metadata will be absent and versions will not be checked.
func WithAppVersion(v string) Option {
	return func(d *Destination) error {
		if v == "" {
			return errors.New("app version is empty")
		}
		d.appVersion = v
		return nil
	}
}

// WithOverwrite option allows the Destination to replace the files of
// a non-empty archive directory.
func WithOverwrite() Option {
	return func(d *Destination) error {
		d.overwrite = true
		return nil
	}
}

// WithClock option replaces the time.Now function which is used to
// fill the creation time of the archive metadata.
func WithClock(now func() time.Time) Option {
	return func(d *Destination) error {
		if now == nil {
			return errors.New("clock function is nil")
		}
		d.now = now
		return nil
	}
}

// NewDestination instantiates a Destination for the dir directory.
// The directory is created by the Bootstrap method (if necessary).
func NewDestination(dir string, opts ...Option) (*Destination, error) {
	if dir == "" {
		return nil, errors.New("archive directory is empty")
	}
	d := &Destination{dir: dir}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Name returns the provider name, including the directory path.
func (d *Destination) Name() string {
	return name(d.dir)
}

// Bootstrap creates the archive directory and writes its metadata.json
// file. If the directory is not empty and WithOverwrite option was not
// given, ErrNotEmpty will be returned.
func (d *Destination) Bootstrap(ctx context.Context) error {
	empty, err := isEmptyDir(d.dir)
	if err != nil {
		return fmt.Errorf("checking %q: %w", d.dir, err)
	}
	if !empty {
		if !d.overwrite {
			return fmt.Errorf("%w: %q", ErrNotEmpty, d.dir)
		}
		log.Warn(ctx, "overwriting archive", log.Provider(
			model.SideDestination, d.Name(),
		))
	}
	if err = os.MkdirAll(d.dir, 0o750); err != nil {
		return fmt.Errorf("creating %q: %w", d.dir, err)
	}
	meta, err := d.Metadata(ctx)
	if err != nil {
		return err
	}
	if meta == nil {
		meta = &model.Metadata{}
	}
	meta.CreatedAt = d.now().UTC()
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	p := filepath.Join(d.dir, MetadataFile)
	if err = os.WriteFile(p+tmpSuffix, b, 0o640); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err = os.Rename(p+tmpSuffix, p); err != nil {
		return fmt.Errorf("renaming metadata: %w", err)
	}
	return nil
}

// Metadata returns the configured application version (see the
// WithAppVersion option), or nil if it was not configured.
func (d *Destination) Metadata(_ context.Context) (*model.Metadata, error) {
	if d.appVersion == "" {
		return nil, nil
	}
	return &model.Metadata{AppVersion: d.appVersion}, nil
}

// SchemasWriter creates the schemas file.
func (d *Destination) SchemasWriter(_ context.Context) (
	repo.WriteStream[model.Schema], error,
) {
	return createWriter[model.Schema](d.dir, model.StageSchemas)
}

// EntitiesWriter creates the entities file.
func (d *Destination) EntitiesWriter(_ context.Context) (
	repo.WriteStream[model.Entity], error,
) {
	return createWriter[model.Entity](d.dir, model.StageEntities)
}

// LinksWriter creates the links file.
func (d *Destination) LinksWriter(_ context.Context) (
	repo.WriteStream[model.Link], error,
) {
	return createWriter[model.Link](d.dir, model.StageLinks)
}

// ConfigurationWriter creates the configuration file.
func (d *Destination) ConfigurationWriter(_ context.Context) (
	repo.WriteStream[model.ConfigEntry], error,
) {
	return createWriter[model.ConfigEntry](d.dir, model.StageConfiguration)
}

func createWriter[T any](dir string, stage model.Stage) (
	repo.WriteStream[T], error,
) {
	final := path(dir, stage)
	f, err := os.OpenFile(
		final+tmpSuffix, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640,
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s file: %w", stage, err)
	}
	bw := bufio.NewWriter(f)
	return &writer[T]{
		f:     f,
		bw:    bw,
		enc:   json.NewEncoder(bw),
		final: final,
	}, nil
}

type writer[T any] struct {
	f     *os.File
	bw    *bufio.Writer
	enc   *json.Encoder
	final string
}

func (w *writer[T]) Write(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.enc.Encode(item); err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}
	return nil
}

// Close flushes the buffered items, syncs the temporary file, and
// renames it to its final name.
func (w *writer[T]) Close(_ context.Context) error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", w.f.Name(), err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", w.f.Name(), err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", w.f.Name(), err)
	}
	if err := os.Rename(w.f.Name(), w.final); err != nil {
		return fmt.Errorf("renaming %s: %w", w.f.Name(), err)
	}
	return nil
}

// Abort removes the temporary file, so the previous contents of the
// final file (if any) are kept intact.
func (w *writer[T]) Abort(ctx context.Context, cause error) {
	_ = w.f.Close() // may be closed already by a failed Close
	if err := os.Remove(w.f.Name()); err != nil &&
		!errors.Is(err, os.ErrNotExist) {
		log.Warn(
			ctx, "removing temporary archive file failed",
			log.Err("cause", cause), log.Err("err", err),
		)
	}
}
