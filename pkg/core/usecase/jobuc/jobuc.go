// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package jobuc contains the jobs UseCase which runs transfers in the
// background on behalf of the REST API clients. Currently, these use
// cases are supported:
//  1. Starting a transfer job (one job may run at a time),
//  2. Querying one job or listing the recent jobs,
//  3. Checking the integrity of the configured instances.
package jobuc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/dtransfer/pkg/core/cerr"
	"github.com/momeni/dtransfer/pkg/core/log"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/usecase/transferuc"
)

// DefaultHistory is the number of finished jobs which are kept unless
// the WithHistory option is given.
const DefaultHistory = 32

// ErrBusy is returned (as a conflict) by Start and Check methods when
// another job is running.
var ErrBusy = errors.New("another transfer job is running")

// ErrJobNotFound is returned (as a not-found) by Get method.
var ErrJobNotFound = errors.New("transfer job not found")

// EngineFactory creates a fresh transfer Engine with fresh providers
// for the given options. Each Engine performs one transfer (or one
// integrity check), so a factory is called once per use case call.
type EngineFactory func(opts model.TransferOptions) (*transferuc.Engine, error)

// UseCase represents the jobs use case. It holds the engine factory,
// the default transfer options, and the in-memory jobs registry.
type UseCase struct {
	factory  EngineFactory
	defaults model.TransferOptions
	history  int
	now      func() time.Time

	baseCtx context.Context
	wg      sync.WaitGroup

	mu      sync.Mutex
	jobs    map[uuid.UUID]*model.Job
	order   []uuid.UUID // oldest first
	running bool
}

// New instantiates a jobs use case.
// The ctx is used as the parent context of background jobs, so they
// may be cancelled when ctx is cancelled. The defaults options are
// used when a client does not specify its own transfer options.
func New(
	ctx context.Context,
	f EngineFactory,
	defaults model.TransferOptions,
	opts ...Option,
) (*UseCase, error) {
	if f == nil {
		return nil, errors.New("engine factory is nil")
	}
	if err := defaults.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid default options: %w", err)
	}
	uc := &UseCase{
		factory:  f,
		defaults: defaults,
		baseCtx:  ctx,
		jobs:     make(map[uuid.UUID]*model.Job),
	}
	for _, opt := range opts {
		if err := opt(uc); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	// now, deal with defaults
	if uc.history == 0 {
		uc.history = DefaultHistory
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc, nil
}

// Defaults returns the default transfer options.
func (uc *UseCase) Defaults() model.TransferOptions {
	return uc.defaults
}

func (uc *UseCase) engine(opts *model.TransferOptions) (
	*transferuc.Engine, error,
) {
	o := uc.defaults
	if opts != nil {
		o = *opts
	}
	if err := o.Normalize(); err != nil {
		return nil, cerr.BadRequest(err)
	}
	e, err := uc.factory(o)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}

// acquire marks the use case as busy, or returns a conflict error if
// it is busy already.
func (uc *UseCase) acquire() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.running {
		return cerr.Conflict(ErrBusy)
	}
	uc.running = true
	return nil
}

func (uc *UseCase) release() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.running = false
}

// Start use case starts a transfer job in the background and returns
// a snapshot of it. If opts is nil, default options are used.
// Only one job (or integrity check) may run at a time.
func (uc *UseCase) Start(ctx context.Context, opts *model.TransferOptions) (
	*model.Job, error,
) {
	if err := uc.acquire(); err != nil {
		return nil, err
	}
	e, err := uc.engine(opts)
	if err != nil {
		uc.release()
		return nil, err
	}
	job := &model.Job{
		ID:        uuid.New(),
		State:     model.JobRunning,
		StartedAt: uc.now(),
		Completed: []model.Stage{},
	}
	uc.mu.Lock()
	uc.jobs[job.ID] = job
	uc.order = append(uc.order, job.ID)
	snapshot := clone(job)
	uc.mu.Unlock()

	log.Info(ctx, "transfer job started", jobAttr(job.ID))
	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		o := e.Transfer(uc.baseCtx)
		uc.finish(job.ID, o)
	}()
	return snapshot, nil
}

// finish records the o outcome of the id job and lets another job
// start. Both happen under one lock, so a job which is seen finished
// cannot make a new Start call fail with ErrBusy.
func (uc *UseCase) finish(id uuid.UUID, o transferuc.Outcome) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.running = false
	job := uc.jobs[id]
	t := uc.now()
	job.FinishedAt = &t
	job.Completed = append(job.Completed, o.Completed...)
	if o.Err != nil {
		job.State = model.JobFailed
		job.FailedPhase = o.FailedPhase
		job.Error = o.Err.Error()
	} else {
		job.State = model.JobSucceeded
	}
	uc.forgetOldJobs()
}

// forgetOldJobs removes the oldest finished jobs while there are more
// than history finished jobs. The caller must hold uc.mu lock.
func (uc *UseCase) forgetOldJobs() {
	finished := 0
	for _, id := range uc.order {
		if uc.jobs[id].State != model.JobRunning {
			finished++
		}
	}
	kept := uc.order[:0]
	for _, id := range uc.order {
		if finished > uc.history && uc.jobs[id].State != model.JobRunning {
			delete(uc.jobs, id)
			finished--
			continue
		}
		kept = append(kept, id)
	}
	uc.order = kept
}

// Get use case returns a snapshot of the id job.
func (uc *UseCase) Get(_ context.Context, id uuid.UUID) (*model.Job, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	job, ok := uc.jobs[id]
	if !ok {
		return nil, cerr.NotFound(fmt.Errorf("%w: %s", ErrJobNotFound, id))
	}
	return clone(job), nil
}

// List use case returns snapshots of the known jobs, newest first.
func (uc *UseCase) List(_ context.Context) []model.Job {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	jobs := make([]model.Job, 0, len(uc.order))
	for i := len(uc.order) - 1; i >= 0; i-- {
		jobs = append(jobs, *clone(uc.jobs[uc.order[i]]))
	}
	return jobs
}

// Wait blocks until all background jobs are finished.
func (uc *UseCase) Wait() {
	uc.wg.Wait()
}

// Check use case bootstraps the configured instances, checks their
// integrity, closes them, and reports the result. If opts is nil,
// default options are used. Check may not run while a job is running.
func (uc *UseCase) Check(ctx context.Context, opts *model.TransferOptions) (
	*model.IntegrityReport, error,
) {
	if err := uc.acquire(); err != nil {
		return nil, err
	}
	defer uc.release()
	e, err := uc.engine(opts)
	if err != nil {
		return nil, err
	}
	return Check(ctx, e), nil
}

// Check bootstraps the providers of e, checks their integrity, and
// closes them. All failures are reported in the returned report.
func Check(ctx context.Context, e *transferuc.Engine) *model.IntegrityReport {
	src, dst := e.Names()
	r := &model.IntegrityReport{Source: src, Destination: dst}
	err := e.Bootstrap(ctx)
	if err == nil {
		err = e.CheckIntegrity(ctx)
	}
	if cErr := e.Close(ctx); cErr != nil {
		log.Warn(ctx, "closing providers failed", log.Err("err", cErr))
	}
	if err == nil {
		r.Compatible = true
		return r
	}
	r.Error = err.Error()
	var vme *cerr.VersionMismatchError
	if errors.As(err, &vme) {
		r.Versions = &model.VersionConflict{
			Source:      vme.Source,
			Destination: vme.Destination,
			Strategy:    vme.Strategy,
		}
	}
	var sme *cerr.SchemaMismatchError
	if errors.As(err, &sme) {
		r.Schemas = sme.Diffs
	}
	return r
}

func clone(job *model.Job) *model.Job {
	c := *job
	c.Completed = slices.Clone(job.Completed)
	if job.FinishedAt != nil {
		t := *job.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
