// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package repo contains the interfaces which must be implemented by
// the adapters layer, so the use cases layer may interact with the
// external world without depending on its frameworks.
// The Provider family of interfaces describe the source and the
// destination application instances of a transfer, the ReadStream and
// WriteStream generic interfaces describe how their data items flow,
// and the SchemaDiffer describes the schema diff calculator.
// The Pool, Conn, Tx, and Queryer interfaces describe database access
// as needed by the database backed providers.
package repo

import "context"

// ConnHandler is a function which uses an acquired connection.
type ConnHandler func(context.Context, Conn) error

// Pool represents a database connections pool. A connection may be
// acquired by the Conn method and will be released when its handler
// function returns.
type Pool interface {
	Conn(ctx context.Context, handler ConnHandler) error
	Close() error
}
