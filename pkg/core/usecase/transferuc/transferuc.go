// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package transferuc provides the transfer engine use case. An Engine
// moves the schemas, entities, links, media, and configuration entries
// of one application instance (represented by a source provider) into
// another instance (represented by a destination provider).
//
// The Transfer method performs the whole transfer: it bootstraps both
// providers, verifies that their application versions and schemas are
// compatible, runs the stages in their fixed order (see model.Stages),
// and finally closes both providers. Each step is also exported as an
// individual method for callers which need a finer-grained control.
//
// Each stage relays items from a source ReadStream to a destination
// WriteStream through a bounded channel, so the destination acceptance
// rate governs the source production rate and no stage needs to hold
// all of its items in memory.
//
// There is no rollback. A failed transfer leaves the destination with
// whatever the failed stage (and its predecessors) has committed.
package transferuc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/momeni/dtransfer/pkg/core/log"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyStarted is returned (in the Outcome) when Transfer is
// called on an Engine which has been used for a transfer before.
var ErrAlreadyStarted = errors.New("transfer was already started")

// Phase names which are reported by Outcome.FailedPhase when the
// failure did not happen in a data stage.
const (
	PhaseStart     = "start"
	PhaseBootstrap = "bootstrap"
	PhaseIntegrity = "integrity"
	PhaseClose     = "close"
)

// Engine represents the transfer use case. It holds exactly one source
// and one destination provider which are shared with its creator, the
// immutable transfer options, and the schema diff calculator.
// An Engine is one-shot: its Transfer method may be called only once.
type Engine struct {
	src    repo.SourceProvider
	dst    repo.DestinationProvider
	opts   model.TransferOptions
	differ repo.SchemaDiffer

	bufferSize int
	observer   Observer

	started atomic.Bool
}

// Outcome describes the result of a Transfer call. The Completed slice
// lists the stages which were transferred successfully. If Err is not
// nil, the FailedPhase names the stage (or one of the Phase* constants)
// which has failed. PhaseStart means that the Engine was used before,
// so nothing was attempted by this call.
type Outcome struct {
	Completed   []model.Stage
	FailedPhase string
	Err         error
}

// Succeeded returns true if all stages were transferred and both of
// the providers were closed without errors.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// New instantiates a transfer Engine.
// Required parameters are passed individually, so caller has to
// provision them and whenever they change, caller will notice and fix
// them due to a compilation error. The src and dst providers are not
// bootstrapped here and may even be partially initialized.
// Optional parameters are passed as a series of functional options
// in order to facilitate their validation and flexibility.
func New(
	src repo.SourceProvider,
	dst repo.DestinationProvider,
	opts model.TransferOptions,
	differ repo.SchemaDiffer,
	options ...Option,
) (*Engine, error) {
	switch {
	case src == nil:
		return nil, errors.New("source provider is nil")
	case dst == nil:
		return nil, errors.New("destination provider is nil")
	case differ == nil:
		return nil, errors.New("schema differ is nil")
	}
	if err := opts.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid transfer options: %w", err)
	}
	e := &Engine{
		src:        src,
		dst:        dst,
		opts:       opts,
		differ:     differ,
		bufferSize: -1,
	}
	for _, opt := range options {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	// now, deal with defaults
	if e.bufferSize < 0 {
		e.bufferSize = DefaultBufferSize
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	return e, nil
}

// Names returns the names of the source and destination providers.
func (e *Engine) Names() (src, dst string) {
	return e.src.Name(), e.dst.Name()
}

// Options returns the transfer options of e after normalization.
func (e *Engine) Options() model.TransferOptions {
	return e.opts
}

// Bootstrap calls the Bootstrap hook of both providers concurrently and
// waits for both of them to return. Providers which do not implement
// the repo.Bootstrapper interface are skipped. A failure of one side
// does not cancel the other side and the first error is returned.
func (e *Engine) Bootstrap(ctx context.Context) error {
	var g errgroup.Group
	if b, ok := e.src.(repo.Bootstrapper); ok {
		g.Go(func() error {
			if err := b.Bootstrap(ctx); err != nil {
				return fmt.Errorf("bootstrapping %s: %w", e.src.Name(), err)
			}
			return nil
		})
	}
	if b, ok := e.dst.(repo.Bootstrapper); ok {
		g.Go(func() error {
			if err := b.Bootstrap(ctx); err != nil {
				return fmt.Errorf("bootstrapping %s: %w", e.dst.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close calls the Close hook of both providers concurrently. Both are
// attempted even if one of them fails and their errors are joined.
// Providers which do not implement the repo.Closer are skipped.
func (e *Engine) Close(ctx context.Context) error {
	var srcErr, dstErr error
	var g errgroup.Group
	if c, ok := e.src.(repo.Closer); ok {
		g.Go(func() error {
			if err := c.Close(ctx); err != nil {
				srcErr = fmt.Errorf("closing %s: %w", e.src.Name(), err)
			}
			return nil
		})
	}
	if c, ok := e.dst.(repo.Closer); ok {
		g.Go(func() error {
			if err := c.Close(ctx); err != nil {
				dstErr = fmt.Errorf("closing %s: %w", e.dst.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(srcErr, dstErr)
}

// Transfer runs the whole transfer: bootstrap, integrity check, the
// schemas, entities, media, links, and configuration stages (in this
// order), and close. Each step starts only after its predecessor has
// succeeded. If the integrity check fails, no stage is performed.
//
// Transfer never returns an error or panics due to a provider failure.
// All failures are logged and reported in the returned Outcome, so
// callers which ignore the Outcome only know that a transfer was
// attempted. Once bootstrap was attempted, both providers are closed
// even after a failure and the close error (if any) is joined to the
// failure. Nothing is rolled back in the destination.
//
// An Engine may perform only one transfer. Calling Transfer again
// returns an Outcome with ErrAlreadyStarted.
func (e *Engine) Transfer(ctx context.Context) (o Outcome) {
	if !e.started.CompareAndSwap(false, true) {
		return Outcome{FailedPhase: PhaseStart, Err: ErrAlreadyStarted}
	}
	srcAttr := log.Provider(model.SideSource, e.src.Name())
	dstAttr := log.Provider(model.SideDestination, e.dst.Name())
	defer func() {
		if err := e.Close(ctx); err != nil {
			if o.Err == nil {
				o.FailedPhase = PhaseClose
			}
			o.Err = errors.Join(o.Err, err)
		}
		if o.Err != nil {
			log.Error(
				ctx, "transfer failed",
				srcAttr, dstAttr,
				slog.String("phase", o.FailedPhase),
				log.Err("err", o.Err),
			)
			return
		}
		log.Info(ctx, "transfer completed", srcAttr, dstAttr)
	}()
	log.Info(ctx, "transfer started", srcAttr, dstAttr)
	if err := e.Bootstrap(ctx); err != nil {
		o.FailedPhase = PhaseBootstrap
		o.Err = fmt.Errorf("bootstrap: %w", err)
		return o
	}
	if !e.IntegrityCheck(ctx) {
		o.FailedPhase = PhaseIntegrity
		o.Err = fmt.Errorf(
			"unable to transfer the data between %s and %s:"+
				" integrity check failed (see the log for details)",
			e.src.Name(), e.dst.Name(),
		)
		return o
	}
	for _, s := range model.Stages {
		if err := e.TransferStage(ctx, s); err != nil {
			o.FailedPhase = string(s)
			o.Err = err
			return o
		}
		o.Completed = append(o.Completed, s)
	}
	return o
}
