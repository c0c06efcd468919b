// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import "context"

// ReadStream of T is a pull-based stream of T items which is offered
// by a source provider. Items are only read when the consumer asks for
// them, so a provider may fetch them lazily (e.g., using a database
// cursor) without holding all of them in memory.
type ReadStream[T any] interface {
	// Read blocks until the next item is available and returns it.
	// When the stream is drained, io.EOF is returned. Read must
	// return promptly (with the ctx error) when ctx is cancelled.
	Read(ctx context.Context) (T, error)

	// Close releases the stream resources. It is called exactly once,
	// both after a complete read and after a failure.
	Close() error
}

// WriteStream of T is a stream of T items which is accepted by a
// destination provider. Write may block as long as the destination
// is not ready to accept more items which slows down the producer.
type WriteStream[T any] interface {
	// Write stores (or buffers for storage) the given item.
	Write(ctx context.Context, item T) error

	// Close flushes the pending items and reports that destination
	// has finished consuming all items. A nil error means that all
	// items were committed. Close is not called after a failure.
	Close(ctx context.Context) error
}

// Aborter may be implemented by a WriteStream in order to release its
// resources (e.g., roll back an open transaction) when the relay has
// failed. Abort is also called when the Close method has returned an
// error, so it must tolerate a partially closed stream. The cause is
// the failure reason.
type Aborter interface {
	Abort(ctx context.Context, cause error)
}
