// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package instancerp

import (
	"context"

	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
)

// Source is a repo.SourceProvider which reads a PostgreSQL instance.
type Source struct {
	*provider
}

// NewSource instantiates a Source. The database is not accessed until
// the Bootstrap method is called.
func NewSource(name string, opts ...Option) (*Source, error) {
	p, err := newProvider(name, opts)
	if err != nil {
		return nil, err
	}
	return &Source{provider: p}, nil
}

// SchemasReader streams the dt_schemas table.
func (s *Source) SchemasReader(ctx context.Context) (
	repo.ReadStream[model.Schema], error,
) {
	return openCursor(ctx, s.pool, selectSchemas, s.batch, scanSchema)
}

// EntitiesReader streams the dt_entities table.
func (s *Source) EntitiesReader(ctx context.Context) (
	repo.ReadStream[model.Entity], error,
) {
	return openCursor(ctx, s.pool, selectEntities, s.batch, scanEntity)
}

// LinksReader streams the dt_links table.
func (s *Source) LinksReader(ctx context.Context) (
	repo.ReadStream[model.Link], error,
) {
	return openCursor(ctx, s.pool, selectLinks, s.batch, scanLink)
}

// ConfigurationReader streams the dt_configuration table.
func (s *Source) ConfigurationReader(ctx context.Context) (
	repo.ReadStream[model.ConfigEntry], error,
) {
	return openCursor(
		ctx, s.pool, selectConfiguration, s.batch, scanConfigEntry,
	)
}
