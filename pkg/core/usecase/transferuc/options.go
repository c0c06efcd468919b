// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package transferuc

import (
	"errors"
	"fmt"
	"time"

	"github.com/momeni/dtransfer/pkg/core/model"
)

// DefaultBufferSize is the relay channel capacity which is used when
// the WithBufferSize option is not passed to the New function.
const DefaultBufferSize = 16

// Option is a functional option for the transfer Engine.
type Option func(e *Engine) error

// WithBufferSize option configures the number of items which may be
// read from a source stream ahead of the destination stream during
// each stage. Zero means that an item is read only when the previous
// item is taken by the destination side. This option may be passed
// to the New() function.
func WithBufferSize(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			return fmt.Errorf("buffer size (%d) is negative", n)
		}
		if e.bufferSize >= 0 {
			return errors.New("buffer size is already configured")
		}
		e.bufferSize = n
		return nil
	}
}

// WithObserver option registers o in order to be informed about the
// start and finish of each stage. This option may be passed to the
// New() function.
func WithObserver(o Observer) Option {
	return func(e *Engine) error {
		if o == nil {
			return errors.New("observer is nil")
		}
		if e.observer != nil {
			return errors.New("observer is already configured")
		}
		e.observer = o
		return nil
	}
}

// Observer is informed about the stages of a transfer, so it may
// collect their metrics. Its methods are called synchronously by the
// Engine and must return quickly.
type Observer interface {
	// StageStarted is called right before the stage begins.
	StageStarted(stage model.Stage)

	// StageFinished is called after the stage has finished (or failed
	// if err is not nil). The items argument is the number of items
	// which were accepted by the destination stream.
	StageFinished(
		stage model.Stage, items int, elapsed time.Duration, err error,
	)
}

type nopObserver struct{}

func (nopObserver) StageStarted(model.Stage) {}

func (nopObserver) StageFinished(model.Stage, int, time.Duration, error) {}
