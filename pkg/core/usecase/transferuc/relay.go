// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package transferuc

import (
	"context"
	"errors"
	"io"

	"github.com/momeni/dtransfer/pkg/core/cerr"
	"github.com/momeni/dtransfer/pkg/core/log"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
	"golang.org/x/sync/errgroup"
)

// relay moves all items of r into w through a channel with bufSize
// capacity. A producer goroutine reads r and a consumer goroutine
// writes into w, so reading can only get bufSize items ahead of the
// writing. When r is drained, w is closed and its result decides the
// relay result. The first error of either side cancels the other side
// and is returned as a *cerr.StreamError.
//
// The r stream is closed in all cases. If relay fails and w implements
// the repo.Aborter interface, it is aborted. The number of items which
// were accepted by w is returned too.
func relay[T any](
	ctx context.Context,
	stage model.Stage,
	r repo.ReadStream[T],
	w repo.WriteStream[T],
	bufSize int,
) (n int, err error) {
	defer func() {
		if cErr := r.Close(); cErr != nil {
			log.Warn(
				ctx, "closing the source stream failed",
				log.Stage(stage), log.Err("err", cErr),
			)
		}
	}()
	items := make(chan T, bufSize)
	drained := false
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(items)
		for {
			item, err := r.Read(gctx)
			if errors.Is(err, io.EOF) {
				drained = true
				return nil
			}
			if err != nil {
				return streamErr(stage, model.SideSource, err)
			}
			select {
			case items <- item:
			case <-gctx.Done():
				return streamErr(stage, model.SideSource, gctx.Err())
			}
		}
	})
	g.Go(func() error {
		for item := range items {
			if err := w.Write(gctx, item); err != nil {
				return streamErr(stage, model.SideDestination, err)
			}
			n++
		}
		// items is closed before the producer error reaches errgroup,
		// so the drained flag tells if all items were really read.
		if !drained {
			return nil
		}
		if err := w.Close(gctx); err != nil {
			return streamErr(stage, model.SideDestination, err)
		}
		return nil
	})
	if err = g.Wait(); err != nil {
		if a, ok := w.(repo.Aborter); ok {
			a.Abort(ctx, err)
		}
		return n, err
	}
	return n, nil
}

func streamErr(stage model.Stage, side model.Side, err error) error {
	return &cerr.StreamError{Stage: stage, Side: side, Err: err}
}
