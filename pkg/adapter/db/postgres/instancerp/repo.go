// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package instancerp provides source and destination providers which
// keep an application instance in a PostgreSQL database. The instance
// is stored in the dt_metadata, dt_schemas, dt_entities, dt_links, and
// dt_configuration tables.
//
// Sources read each category using a server-side cursor in a read-only
// transaction, fetching a limited number of rows at a time. Destinations
// write each category in one transaction which is committed when the
// stream is closed, so a failed stage leaves no partial rows behind.
package instancerp

import (
	"context"
	"errors"
	"fmt"

	"github.com/momeni/dtransfer/pkg/adapter/db/postgres"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
)

// DefaultBatchSize is the number of rows which are fetched by a cursor
// or are inserted by a statement, unless WithBatchSize is given.
const DefaultBatchSize = 256

// Option is a functional option for the source and destination
// providers of this package.
type Option func(p *provider) error

// WithURL option asks the provider to connect to url during its
// Bootstrap and to close that connection pool during its Close.
// Either WithURL or WithPool option must be given.
func WithURL(url string) Option {
	return func(p *provider) error {
		if url == "" {
			return errors.New("database url is empty")
		}
		if p.url != "" || p.pool != nil {
			return errors.New("database is already configured")
		}
		p.url = url
		return nil
	}
}

// WithPool option makes the provider to use an existing pool which is
// owned (and will be closed) by the caller.
func WithPool(pool *postgres.Pool) Option {
	return func(p *provider) error {
		if pool == nil {
			return errors.New("pool is nil")
		}
		if p.url != "" || p.pool != nil {
			return errors.New("database is already configured")
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize option configures the number of rows per cursor fetch
// or insertion statement.
func WithBatchSize(n int) Option {
	return func(p *provider) error {
		if n <= 0 {
			return fmt.Errorf("batch size (%d) is not positive", n)
		}
		p.batch = n
		return nil
	}
}

// WithInitialize option asks the provider to create its tables (if
// they do not exist) during the Bootstrap.
func WithInitialize() Option {
	return func(p *provider) error {
		p.initialize = true
		return nil
	}
}

// WithAppVersion option stamps the instance metadata with the given
// application version during the Bootstrap, unless the instance has
// its metadata already.
func WithAppVersion(v string) Option {
	return func(p *provider) error {
		if v == "" {
			return errors.New("app version is empty")
		}
		p.appVersion = v
		return nil
	}
}

// provider contains the common parts of Source and Destination.
type provider struct {
	name       string
	url        string
	pool       *postgres.Pool
	ownsPool   bool
	batch      int
	initialize bool
	appVersion string
}

func newProvider(name string, opts []Option) (*provider, error) {
	p := &provider{name: name}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	if p.url == "" && p.pool == nil {
		return nil, errors.New("either a database url or pool is required")
	}
	if p.batch == 0 {
		p.batch = DefaultBatchSize
	}
	return p, nil
}

// Name returns the provider name.
func (p *provider) Name() string {
	return p.name
}

// Bootstrap connects to the database (if WithURL was given), creates
// the tables (if WithInitialize was given), and stamps the metadata
// (if WithAppVersion was given).
func (p *provider) Bootstrap(ctx context.Context) error {
	if p.pool == nil {
		pool, err := postgres.NewPool(ctx, p.url)
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", p.name, err)
		}
		p.pool, p.ownsPool = pool, true
	}
	if !p.initialize && p.appVersion == "" {
		return nil
	}
	return p.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			if p.initialize {
				if _, err := tx.Exec(ctx, createTables); err != nil {
					return fmt.Errorf("creating tables: %w", err)
				}
			}
			if p.appVersion != "" {
				return StampMetadata(ctx, tx.(*postgres.Tx), p.appVersion)
			}
			return nil
		})
	})
}

// Close closes the connection pool if it was created by Bootstrap.
func (p *provider) Close(_ context.Context) error {
	if !p.ownsPool || p.pool == nil {
		return nil
	}
	err := p.pool.Close()
	p.pool, p.ownsPool = nil, false
	return err
}

// Metadata returns the instance metadata, or nil if it has none.
func (p *provider) Metadata(ctx context.Context) (
	meta *model.Metadata, err error,
) {
	err = p.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		meta, err = SelectMetadata(ctx, c.(*postgres.Conn))
		return err
	})
	return meta, err
}

// Schemas returns the instance schemas, or nil if it has none.
func (p *provider) Schemas(ctx context.Context) (
	sm model.SchemaMap, err error,
) {
	err = p.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		sm, err = SelectSchemas(ctx, c.(*postgres.Conn))
		return err
	})
	return sm, err
}
