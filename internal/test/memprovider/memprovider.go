// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package memprovider is an internal helper for the test packages.
// It provides in-memory source and destination providers whose data
// and failures can be configured by the test cases and which record
// the hooks that were called on them, so the transfer use cases can
// be tested without a real database or archive.
package memprovider

import (
	"context"
	"io"
	"sync"

	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
)

// Hook names which are recorded by providers when they are called.
const (
	CallBootstrap = "bootstrap"
	CallClose     = "close"
	CallMetadata  = "metadata"
	CallSchemas   = "schemas"
)

// OpenCall returns the name which is recorded when the stream accessor
// of the stage is called.
func OpenCall(stage model.Stage) string {
	return "open:" + string(stage)
}

// recorder keeps the list of calls which were made on a provider.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// Calls returns a copy of the recorded calls, in their calling order.
// Stream accessors are recorded as OpenCall(stage).
func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Source is an in-memory repo.SourceProvider. Its exported fields must
// be filled before it is passed to the transfer engine.
type Source struct {
	recorder

	ProviderName string

	Meta      *model.Metadata
	SchemaMap model.SchemaMap

	SchemaItems   []model.Schema
	Entities      []model.Entity
	Links         []model.Link
	Configuration []model.ConfigEntry

	// Missing stages return a nil stream from their accessor.
	Missing map[model.Stage]bool
	// OpenErr errors are returned by the stream accessors.
	OpenErr map[model.Stage]error
	// ReadErr errors are returned by Read after all items are read.
	ReadErr map[model.Stage]error

	BootstrapErr error
	CloseErr     error
	MetadataErr  error
	SchemasErr   error

	closedMu sync.Mutex
	closed   map[model.Stage]bool
}

// NewSource creates a Source with the given name and no data.
func NewSource(name string) *Source {
	return &Source{ProviderName: name}
}

// Name returns the source provider name.
func (s *Source) Name() string {
	return s.ProviderName
}

// Bootstrap records its call and returns the BootstrapErr.
func (s *Source) Bootstrap(_ context.Context) error {
	s.record(CallBootstrap)
	return s.BootstrapErr
}

// Close records its call and returns the CloseErr.
func (s *Source) Close(_ context.Context) error {
	s.record(CallClose)
	return s.CloseErr
}

// Metadata returns the Meta field (or the MetadataErr).
func (s *Source) Metadata(_ context.Context) (*model.Metadata, error) {
	s.record(CallMetadata)
	return s.Meta, s.MetadataErr
}

// Schemas returns the SchemaMap field (or the SchemasErr).
func (s *Source) Schemas(_ context.Context) (model.SchemaMap, error) {
	s.record(CallSchemas)
	return s.SchemaMap, s.SchemasErr
}

// StreamClosed returns true if the stream of the stage was opened and
// then closed.
func (s *Source) StreamClosed(stage model.Stage) bool {
	s.closedMu.Lock()
	defer s.closedMu.Unlock()
	return s.closed[stage]
}

func (s *Source) markClosed(stage model.Stage) {
	s.closedMu.Lock()
	defer s.closedMu.Unlock()
	if s.closed == nil {
		s.closed = make(map[model.Stage]bool)
	}
	s.closed[stage] = true
}

// SchemasReader streams the SchemaItems field.
func (s *Source) SchemasReader(_ context.Context) (
	repo.ReadStream[model.Schema], error,
) {
	return openReader(s, model.StageSchemas, s.SchemaItems)
}

// EntitiesReader streams the Entities field.
func (s *Source) EntitiesReader(_ context.Context) (
	repo.ReadStream[model.Entity], error,
) {
	return openReader(s, model.StageEntities, s.Entities)
}

// LinksReader streams the Links field.
func (s *Source) LinksReader(_ context.Context) (
	repo.ReadStream[model.Link], error,
) {
	return openReader(s, model.StageLinks, s.Links)
}

// ConfigurationReader streams the Configuration field.
func (s *Source) ConfigurationReader(_ context.Context) (
	repo.ReadStream[model.ConfigEntry], error,
) {
	return openReader(s, model.StageConfiguration, s.Configuration)
}

func openReader[T any](
	s *Source, stage model.Stage, items []T,
) (repo.ReadStream[T], error) {
	s.record(OpenCall(stage))
	if err := s.OpenErr[stage]; err != nil {
		return nil, err
	}
	if s.Missing[stage] {
		return nil, nil
	}
	return &reader[T]{
		src:   s,
		stage: stage,
		items: items,
		err:   s.ReadErr[stage],
	}, nil
}

type reader[T any] struct {
	src   *Source
	stage model.Stage
	items []T
	err   error
}

func (r *reader[T]) Read(ctx context.Context) (item T, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	if len(r.items) == 0 {
		if r.err != nil {
			return item, r.err
		}
		return item, io.EOF
	}
	item, r.items = r.items[0], r.items[1:]
	return item, nil
}

func (r *reader[T]) Close() error {
	r.src.markClosed(r.stage)
	return nil
}

// Destination is an in-memory repo.DestinationProvider. Items which
// are written into a stream are kept as pending and are committed into
// the exported slices (e.g., Entities) when that stream is closed.
type Destination struct {
	recorder

	ProviderName string

	Meta      *model.Metadata
	SchemaMap model.SchemaMap

	// Missing stages return a nil stream from their accessor.
	Missing map[model.Stage]bool
	// OpenErr errors are returned by the stream accessors.
	OpenErr map[model.Stage]error
	// WriteErr errors are returned by Write after FailAfter items.
	WriteErr  map[model.Stage]error
	FailAfter map[model.Stage]int
	// CommitErr errors are returned by the stream Close method.
	CommitErr map[model.Stage]error

	BootstrapErr error
	CloseErr     error
	MetadataErr  error
	SchemasErr   error

	mu            sync.Mutex
	schemas       []model.Schema
	entities      []model.Entity
	links         []model.Link
	configuration []model.ConfigEntry
	committed     map[model.Stage]int
	aborted       map[model.Stage]error
}

// NewDestination creates a Destination with the given name.
func NewDestination(name string) *Destination {
	return &Destination{ProviderName: name}
}

// Name returns the destination provider name.
func (d *Destination) Name() string {
	return d.ProviderName
}

// Bootstrap records its call and returns the BootstrapErr.
func (d *Destination) Bootstrap(_ context.Context) error {
	d.record(CallBootstrap)
	return d.BootstrapErr
}

// Close records its call and returns the CloseErr.
func (d *Destination) Close(_ context.Context) error {
	d.record(CallClose)
	return d.CloseErr
}

// Metadata returns the Meta field (or the MetadataErr).
func (d *Destination) Metadata(_ context.Context) (*model.Metadata, error) {
	d.record(CallMetadata)
	return d.Meta, d.MetadataErr
}

// Schemas returns the SchemaMap field (or the SchemasErr).
func (d *Destination) Schemas(_ context.Context) (model.SchemaMap, error) {
	d.record(CallSchemas)
	return d.SchemaMap, d.SchemasErr
}

// CommittedSchemas returns the schemas which were committed so far.
func (d *Destination) CommittedSchemas() []model.Schema {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Schema(nil), d.schemas...)
}

// CommittedEntities returns the entities which were committed so far.
func (d *Destination) CommittedEntities() []model.Entity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Entity(nil), d.entities...)
}

// CommittedLinks returns the links which were committed so far.
func (d *Destination) CommittedLinks() []model.Link {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Link(nil), d.links...)
}

// CommittedConfiguration returns the configuration entries which were
// committed so far.
func (d *Destination) CommittedConfiguration() []model.ConfigEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.ConfigEntry(nil), d.configuration...)
}

// Commits returns how many times the stream of stage was closed
// successfully.
func (d *Destination) Commits(stage model.Stage) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed[stage]
}

// Aborted returns true if the stream of stage was aborted.
func (d *Destination) Aborted(stage model.Stage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.aborted[stage]
	return ok
}

// AbortCause returns the cause which was passed to the Abort method of
// the stream of stage, or nil if it was not aborted.
func (d *Destination) AbortCause(stage model.Stage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.aborted[stage]
}

// SchemasWriter accepts schemas into the CommittedSchemas.
func (d *Destination) SchemasWriter(_ context.Context) (
	repo.WriteStream[model.Schema], error,
) {
	return openWriter(d, model.StageSchemas, func(items []model.Schema) {
		d.schemas = append(d.schemas, items...)
	})
}

// EntitiesWriter accepts entities into the CommittedEntities.
func (d *Destination) EntitiesWriter(_ context.Context) (
	repo.WriteStream[model.Entity], error,
) {
	return openWriter(d, model.StageEntities, func(items []model.Entity) {
		d.entities = append(d.entities, items...)
	})
}

// LinksWriter accepts links into the CommittedLinks.
func (d *Destination) LinksWriter(_ context.Context) (
	repo.WriteStream[model.Link], error,
) {
	return openWriter(d, model.StageLinks, func(items []model.Link) {
		d.links = append(d.links, items...)
	})
}

// ConfigurationWriter accepts entries into the CommittedConfiguration.
func (d *Destination) ConfigurationWriter(_ context.Context) (
	repo.WriteStream[model.ConfigEntry], error,
) {
	return openWriter(
		d, model.StageConfiguration, func(items []model.ConfigEntry) {
			d.configuration = append(d.configuration, items...)
		},
	)
}

func openWriter[T any](
	d *Destination, stage model.Stage, commit func(items []T),
) (repo.WriteStream[T], error) {
	d.record(OpenCall(stage))
	if err := d.OpenErr[stage]; err != nil {
		return nil, err
	}
	if d.Missing[stage] {
		return nil, nil
	}
	w := &writer[T]{
		dst:    d,
		stage:  stage,
		commit: commit,
		err:    d.WriteErr[stage],
		limit:  -1,
	}
	if w.err != nil {
		w.limit = d.FailAfter[stage]
	}
	return w, nil
}

type writer[T any] struct {
	dst     *Destination
	stage   model.Stage
	commit  func(items []T)
	pending []T
	err     error
	limit   int
}

func (w *writer[T]) Write(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.limit >= 0 && len(w.pending) >= w.limit {
		return w.err
	}
	w.pending = append(w.pending, item)
	return nil
}

func (w *writer[T]) Close(_ context.Context) error {
	d := w.dst
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.CommitErr[w.stage]; err != nil {
		return err
	}
	w.commit(w.pending)
	if d.committed == nil {
		d.committed = make(map[model.Stage]int)
	}
	d.committed[w.stage]++
	w.pending = nil
	return nil
}

func (w *writer[T]) Abort(_ context.Context, cause error) {
	d := w.dst
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.aborted == nil {
		d.aborted = make(map[model.Stage]error)
	}
	d.aborted[w.stage] = cause
	w.pending = nil
}
