// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package instancerp

import (
	"context"
	"fmt"
	"io"

	"github.com/momeni/dtransfer/pkg/adapter/db/postgres"
	"github.com/momeni/dtransfer/pkg/core/log"
	"github.com/momeni/dtransfer/pkg/core/repo"
)

const cursorName = "dt_cursor"

// cursor is a repo.ReadStream which fetches its items in batches from
// a server-side cursor. Its transaction is only used for reading and
// is rolled back when the cursor is closed.
type cursor[T any] struct {
	tx    repo.OpenTx
	fetch string
	size  int
	scan  func(rows repo.Rows) (T, error)
	batch []T
	done  bool
}

func openCursor[T any](
	ctx context.Context,
	b repo.TxBeginner,
	query string,
	size int,
	scan func(rows repo.Rows) (T, error),
) (repo.ReadStream[T], error) {
	tx, err := b.Begin(ctx)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, "SET TRANSACTION READ ONLY")
	if err == nil {
		_, err = tx.Exec(ctx, fmt.Sprintf(
			"DECLARE %s NO SCROLL CURSOR FOR %s", cursorName, query,
		))
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("declaring cursor: %w", err)
	}
	return &cursor[T]{
		tx:    tx,
		fetch: fmt.Sprintf("FETCH FORWARD %d FROM %s", size, cursorName),
		size:  size,
		scan:  scan,
	}, nil
}

func (c *cursor[T]) Read(ctx context.Context) (item T, err error) {
	if len(c.batch) == 0 && !c.done {
		if err = c.fill(ctx); err != nil {
			return item, err
		}
	}
	if len(c.batch) == 0 {
		return item, io.EOF
	}
	item, c.batch = c.batch[0], c.batch[1:]
	return item, nil
}

func (c *cursor[T]) fill(ctx context.Context) error {
	rows, err := c.tx.Query(ctx, c.fetch)
	if err != nil {
		return fmt.Errorf("fetching: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		item, err := c.scan(rows)
		if err != nil {
			return fmt.Errorf("scanning: %w", err)
		}
		c.batch = append(c.batch, item)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("fetching: %w", err)
	}
	c.done = len(c.batch) < c.size
	return nil
}

func (c *cursor[T]) Close() error {
	return c.tx.Rollback()
}

// batchWriter is a repo.WriteStream which inserts its items in batches
// in one transaction and commits them when it is closed.
type batchWriter[T any] struct {
	tx      *postgres.Tx
	size    int
	insert  func(ctx context.Context, tx *postgres.Tx, items []T) error
	pending []T
}

func openBatchWriter[T any](
	ctx context.Context,
	b repo.TxBeginner,
	size int,
	insert func(ctx context.Context, tx *postgres.Tx, items []T) error,
) (repo.WriteStream[T], error) {
	tx, err := b.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &batchWriter[T]{
		tx:      tx.(*postgres.Tx),
		size:    size,
		insert:  insert,
		pending: make([]T, 0, size),
	}, nil
}

func (w *batchWriter[T]) Write(ctx context.Context, item T) error {
	w.pending = append(w.pending, item)
	if len(w.pending) < w.size {
		return nil
	}
	return w.flush(ctx)
}

func (w *batchWriter[T]) flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	if err := w.insert(ctx, w.tx, w.pending); err != nil {
		return err
	}
	w.pending = w.pending[:0]
	return nil
}

// Close inserts the pending items and commits the transaction.
func (w *batchWriter[T]) Close(ctx context.Context) error {
	if err := w.flush(ctx); err != nil {
		return err
	}
	return w.tx.Commit()
}

// Abort rolls back the transaction, discarding all written items.
func (w *batchWriter[T]) Abort(ctx context.Context, cause error) {
	if err := w.tx.Rollback(); err != nil {
		log.Debug(
			ctx, "rolling back the stream transaction failed",
			log.Err("cause", cause), log.Err("err", err),
		)
	}
}
