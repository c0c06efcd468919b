// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package instancerp

import (
	"context"

	"github.com/momeni/dtransfer/pkg/adapter/db/postgres"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
)

// Destination is a repo.DestinationProvider which writes a PostgreSQL
// instance. Existing schemas, entities, and configuration entries
// with the same keys are replaced, while existing links are kept.
type Destination struct {
	*provider
}

// NewDestination instantiates a Destination. The database is not
// accessed until the Bootstrap method is called.
func NewDestination(name string, opts ...Option) (*Destination, error) {
	p, err := newProvider(name, opts)
	if err != nil {
		return nil, err
	}
	return &Destination{provider: p}, nil
}

// SchemasWriter writes into the dt_schemas table.
func (d *Destination) SchemasWriter(ctx context.Context) (
	repo.WriteStream[model.Schema], error,
) {
	return openBatchWriter(ctx, d.pool, d.batch, UpsertSchemas[*postgres.Tx])
}

// EntitiesWriter writes into the dt_entities table.
func (d *Destination) EntitiesWriter(ctx context.Context) (
	repo.WriteStream[model.Entity], error,
) {
	return openBatchWriter(ctx, d.pool, d.batch, UpsertEntities[*postgres.Tx])
}

// LinksWriter writes into the dt_links table. Both ends of the links
// must exist in the dt_entities table.
func (d *Destination) LinksWriter(ctx context.Context) (
	repo.WriteStream[model.Link], error,
) {
	return openBatchWriter(ctx, d.pool, d.batch, InsertLinks[*postgres.Tx])
}

// ConfigurationWriter writes into the dt_configuration table.
func (d *Destination) ConfigurationWriter(ctx context.Context) (
	repo.WriteStream[model.ConfigEntry], error,
) {
	return openBatchWriter(ctx, d.pool, d.batch, UpsertConfiguration[*postgres.Tx])
}
