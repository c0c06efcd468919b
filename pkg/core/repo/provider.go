// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/momeni/dtransfer/pkg/core/model"
)

// Provider is the common part of source and destination providers.
// A provider adapts one application instance (a database, an archive
// directory, etc.) to the transfer use cases. It owns its resources,
// such as open connections or files, and is shared with the caller who
// has created it. The transfer engine only calls its hooks.
//
// Besides the Name method, all other hooks are optional and must be
// implemented by providers which need them. The Bootstrapper, Closer,
// MetadataGetter, and SchemasGetter interfaces and the stream accessor
// interfaces (such as SchemasSource or EntitiesDestination) are checked
// by type assertions and callers must branch on their presence before
// invoking them.
type Provider interface {
	// Name returns a short human-readable name for this provider
	// which is used in logs and error messages.
	Name() string
}

// SourceProvider is a Provider which is used as the source of a
// transfer. It may implement the SchemasSource, EntitiesSource,
// LinksSource, and ConfigurationSource stream accessors.
type SourceProvider interface {
	Provider
}

// DestinationProvider is a Provider which is used as the destination
// of a transfer. It may implement the SchemasDestination,
// EntitiesDestination, LinksDestination, and ConfigurationDestination
// stream accessors.
type DestinationProvider interface {
	Provider
}

// Bootstrapper is implemented by providers which need to acquire their
// resources (e.g., connect to a database) before being used.
type Bootstrapper interface {
	Bootstrap(ctx context.Context) error
}

// Closer is implemented by providers which need to release their
// resources after a transfer. Close may be called after a failure too,
// so it must tolerate a partially bootstrapped provider.
type Closer interface {
	Close(ctx context.Context) error
}

// MetadataGetter is implemented by providers which can describe their
// application instance. A nil *model.Metadata with a nil error means
// that metadata is not available.
type MetadataGetter interface {
	Metadata(ctx context.Context) (*model.Metadata, error)
}

// SchemasGetter is implemented by providers which can list the schemas
// of their application instance. A nil model.SchemaMap with a nil error
// means that schemas are not available.
type SchemasGetter interface {
	Schemas(ctx context.Context) (model.SchemaMap, error)
}

// SchemasSource is implemented by source providers which can stream
// their schemas. A nil stream with a nil error means that the stream
// is not available.
type SchemasSource interface {
	SchemasReader(ctx context.Context) (ReadStream[model.Schema], error)
}

// EntitiesSource is implemented by source providers which can stream
// their entities.
type EntitiesSource interface {
	EntitiesReader(ctx context.Context) (ReadStream[model.Entity], error)
}

// LinksSource is implemented by source providers which can stream
// the links between their entities.
type LinksSource interface {
	LinksReader(ctx context.Context) (ReadStream[model.Link], error)
}

// ConfigurationSource is implemented by source providers which can
// stream their configuration entries.
type ConfigurationSource interface {
	ConfigurationReader(ctx context.Context) (
		ReadStream[model.ConfigEntry], error,
	)
}

// SchemasDestination is implemented by destination providers which can
// accept a stream of schemas. A nil stream with a nil error means that
// the stream is not available.
type SchemasDestination interface {
	SchemasWriter(ctx context.Context) (WriteStream[model.Schema], error)
}

// EntitiesDestination is implemented by destination providers which can
// accept a stream of entities.
type EntitiesDestination interface {
	EntitiesWriter(ctx context.Context) (WriteStream[model.Entity], error)
}

// LinksDestination is implemented by destination providers which can
// accept a stream of links.
type LinksDestination interface {
	LinksWriter(ctx context.Context) (WriteStream[model.Link], error)
}

// ConfigurationDestination is implemented by destination providers
// which can accept a stream of configuration entries.
type ConfigurationDestination interface {
	ConfigurationWriter(ctx context.Context) (
		WriteStream[model.ConfigEntry], error,
	)
}
