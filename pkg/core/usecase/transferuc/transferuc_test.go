// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package transferuc_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momeni/dtransfer/internal/test/memprovider"
	"github.com/momeni/dtransfer/pkg/core/cerr"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
	"github.com/momeni/dtransfer/pkg/core/usecase/transferuc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populatedSource() *memprovider.Source {
	src := memprovider.NewSource("src")
	src.Meta = &model.Metadata{AppVersion: "4.2.0"}
	src.SchemaMap = model.SchemaMap{"A": {UID: "api::a.a"}}
	src.SchemaItems = []model.Schema{{UID: "api::a.a"}}
	src.Entities = []model.Entity{
		{Type: "api::a.a", ID: "1", Data: map[string]any{"title": "x"}},
		{Type: "api::a.a", ID: "2", Data: map[string]any{"title": "y"}},
	}
	src.Links = []model.Link{{
		Kind:  "oneToOne",
		Left:  model.LinkEnd{Type: "api::a.a", ID: "1", Field: "next"},
		Right: model.LinkEnd{Type: "api::a.a", ID: "2"},
	}}
	src.Configuration = []model.ConfigEntry{
		{Type: "core-store", Key: "locale", Value: "en"},
	}
	return src
}

func compatibleDestination() *memprovider.Destination {
	dst := memprovider.NewDestination("dst")
	dst.Meta = &model.Metadata{AppVersion: "4.2.0"}
	dst.SchemaMap = model.SchemaMap{"A": {UID: "api::a.a"}}
	return dst
}

func TestTransferSucceeds(t *testing.T) {
	src, dst := populatedSource(), compatibleDestination()
	e := newEngine(t, src, dst, model.VersionMatchingExact)
	o := e.Transfer(context.Background())
	require.NoError(t, o.Err)
	assert.True(t, o.Succeeded())
	assert.Empty(t, o.FailedPhase)
	assert.Equal(t, model.Stages, o.Completed)

	assert.Equal(t, src.SchemaItems, dst.CommittedSchemas())
	assert.Equal(t, src.Entities, dst.CommittedEntities())
	assert.Equal(t, src.Links, dst.CommittedLinks())
	assert.Equal(t, src.Configuration, dst.CommittedConfiguration())
	for _, s := range []model.Stage{
		model.StageSchemas, model.StageEntities,
		model.StageLinks, model.StageConfiguration,
	} {
		assert.Equal(t, 1, dst.Commits(s), "stage %s", s)
		assert.True(t, src.StreamClosed(s), "stage %s", s)
		assert.False(t, dst.Aborted(s), "stage %s", s)
	}

	calls := src.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, memprovider.CallBootstrap, calls[0])
	assert.Equal(t, memprovider.CallClose, calls[len(calls)-1])
	assert.Equal(t, []string{
		memprovider.CallBootstrap,
		memprovider.CallMetadata,
		memprovider.CallSchemas,
		memprovider.OpenCall(model.StageSchemas),
		memprovider.OpenCall(model.StageEntities),
		memprovider.OpenCall(model.StageLinks),
		memprovider.OpenCall(model.StageConfiguration),
		memprovider.CallClose,
	}, calls)
}

func TestTransferSchemasSucceedsOnce(t *testing.T) {
	src, dst := populatedSource(), compatibleDestination()
	e := newEngine(t, src, dst, model.VersionMatchingExact)
	err := e.TransferSchemas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dst.Commits(model.StageSchemas))
	assert.Equal(t, src.SchemaItems, dst.CommittedSchemas())
}

func TestTransferEntitiesDestinationFailure(t *testing.T) {
	errDisk := errors.New("disk is full")
	src, dst := populatedSource(), compatibleDestination()
	dst.WriteErr = map[model.Stage]error{model.StageEntities: errDisk}
	dst.FailAfter = map[model.Stage]int{model.StageEntities: 1}
	e := newEngine(t, src, dst, model.VersionMatchingExact)

	err := e.TransferEntities(context.Background())
	require.ErrorIs(t, err, errDisk)
	var se *cerr.StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.StageEntities, se.Stage)
	assert.Equal(t, model.SideDestination, se.Side)
	assert.Zero(t, dst.Commits(model.StageEntities), "no success after error")
	assert.Empty(t, dst.CommittedEntities())
	assert.True(t, dst.Aborted(model.StageEntities))
	assert.ErrorIs(t, dst.AbortCause(model.StageEntities), errDisk)
	assert.True(t, src.StreamClosed(model.StageEntities))
}

func TestTransferEntitiesSourceFailure(t *testing.T) {
	errCursor := errors.New("cursor is gone")
	src, dst := populatedSource(), compatibleDestination()
	src.ReadErr = map[model.Stage]error{model.StageEntities: errCursor}
	e := newEngine(t, src, dst, model.VersionMatchingExact)

	err := e.TransferEntities(context.Background())
	require.ErrorIs(t, err, errCursor)
	var se *cerr.StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.SideSource, se.Side)
	assert.Zero(t, dst.Commits(model.StageEntities))
	assert.True(t, dst.Aborted(model.StageEntities))
	assert.True(t, src.StreamClosed(model.StageEntities))
}

func TestTransferLinksCommitFailure(t *testing.T) {
	errCommit := errors.New("deferred constraint violated")
	src, dst := populatedSource(), compatibleDestination()
	dst.CommitErr = map[model.Stage]error{model.StageLinks: errCommit}
	e := newEngine(t, src, dst, model.VersionMatchingExact)

	err := e.TransferLinks(context.Background())
	require.ErrorIs(t, err, errCommit)
	var se *cerr.StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.SideDestination, se.Side)
	assert.True(t, dst.Aborted(model.StageLinks))
}

func TestTransferMissingStreams(t *testing.T) {
	cases := []struct {
		name  string
		stage model.Stage
		side  model.Side
		setup func(*memprovider.Source, *memprovider.Destination)
	}{
		{
			name:  "missing source schemas",
			stage: model.StageSchemas,
			side:  model.SideSource,
			setup: func(s *memprovider.Source, _ *memprovider.Destination) {
				s.Missing = map[model.Stage]bool{model.StageSchemas: true}
			},
		},
		{
			name:  "missing destination configuration",
			stage: model.StageConfiguration,
			side:  model.SideDestination,
			setup: func(_ *memprovider.Source, d *memprovider.Destination) {
				d.Missing = map[model.Stage]bool{
					model.StageConfiguration: true,
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, dst := populatedSource(), compatibleDestination()
			tc.setup(src, dst)
			e := newEngine(t, src, dst, model.VersionMatchingExact)
			err := e.TransferStage(context.Background(), tc.stage)
			var mse *cerr.MissingStreamError
			require.ErrorAs(t, err, &mse)
			assert.Equal(t, tc.stage, mse.Stage)
			assert.Equal(t, tc.side, mse.Side)
			assert.EqualError(
				t, err, fmt.Sprintf("%s %s stream is missing", tc.stage, tc.side),
			)
			if tc.side == model.SideDestination {
				assert.True(t, src.StreamClosed(tc.stage))
			}
		})
	}
}

// bareProvider implements no optional hook at all.
type bareProvider string

func (bp bareProvider) Name() string {
	return string(bp)
}

func TestTransferWithoutStreamAccessors(t *testing.T) {
	e, err := transferuc.New(
		bareProvider("src"), bareProvider("dst"),
		model.TransferOptions{VersionMatching: model.VersionMatchingIgnore},
		uidDiffer{},
	)
	require.NoError(t, err)
	ctx := context.Background()
	assert.NoError(t, e.Bootstrap(ctx))
	assert.True(t, e.IntegrityCheck(ctx))
	assert.NoError(t, e.TransferMedia(ctx))
	var mse *cerr.MissingStreamError
	assert.ErrorAs(t, e.TransferEntities(ctx), &mse)

	o := e.Transfer(ctx)
	assert.Equal(t, string(model.StageSchemas), o.FailedPhase)
	assert.Empty(t, o.Completed)
	assert.NoError(t, e.Close(ctx))
}

func TestTransferBootstrapFailure(t *testing.T) {
	errConn := errors.New("connection refused")
	src, dst := populatedSource(), compatibleDestination()
	dst.BootstrapErr = errConn
	e := newEngine(t, src, dst, model.VersionMatchingExact)

	o := e.Transfer(context.Background())
	assert.False(t, o.Succeeded())
	assert.Equal(t, transferuc.PhaseBootstrap, o.FailedPhase)
	assert.ErrorIs(t, o.Err, errConn)
	assert.Empty(t, o.Completed)
	assert.Equal(t, []string{
		memprovider.CallBootstrap, memprovider.CallClose,
	}, src.Calls(), "source must be bootstrapped and closed")
	assert.Equal(t, []string{
		memprovider.CallBootstrap, memprovider.CallClose,
	}, dst.Calls())
}

func TestTransferIntegrityFailureSkipsStages(t *testing.T) {
	src, dst := populatedSource(), compatibleDestination()
	dst.Meta = &model.Metadata{AppVersion: "4.3.1"}
	e := newEngine(t, src, dst, model.VersionMatchingMinor)

	o := e.Transfer(context.Background())
	assert.Equal(t, transferuc.PhaseIntegrity, o.FailedPhase)
	require.Error(t, o.Err)
	assert.Contains(t, o.Err.Error(), "src")
	assert.Contains(t, o.Err.Error(), "dst")
	assert.Empty(t, o.Completed)
	for _, s := range model.Stages {
		assert.NotContains(t, src.Calls(), memprovider.OpenCall(s))
		assert.NotContains(t, dst.Calls(), memprovider.OpenCall(s))
	}
	assert.Contains(t, src.Calls(), memprovider.CallClose)
	assert.Contains(t, dst.Calls(), memprovider.CallClose)
}

func TestTransferStopsAtFailedStage(t *testing.T) {
	errLinks := errors.New("dangling link")
	src, dst := populatedSource(), compatibleDestination()
	dst.WriteErr = map[model.Stage]error{model.StageLinks: errLinks}
	e := newEngine(t, src, dst, model.VersionMatchingExact)

	o := e.Transfer(context.Background())
	assert.Equal(t, string(model.StageLinks), o.FailedPhase)
	assert.ErrorIs(t, o.Err, errLinks)
	assert.Equal(t, []model.Stage{
		model.StageSchemas, model.StageEntities, model.StageMedia,
	}, o.Completed)
	assert.Equal(t, src.Entities, dst.CommittedEntities(), "no rollback")
	assert.NotContains(
		t, src.Calls(), memprovider.OpenCall(model.StageConfiguration),
	)
}

func TestTransferCloseFailure(t *testing.T) {
	errSrc := errors.New("source close")
	errDst := errors.New("destination close")
	src, dst := populatedSource(), compatibleDestination()
	src.CloseErr, dst.CloseErr = errSrc, errDst
	e := newEngine(t, src, dst, model.VersionMatchingExact)

	o := e.Transfer(context.Background())
	assert.Equal(t, transferuc.PhaseClose, o.FailedPhase)
	assert.Equal(t, model.Stages, o.Completed)
	assert.ErrorIs(t, o.Err, errSrc)
	assert.ErrorIs(t, o.Err, errDst)
}

func TestTransferIsOneShot(t *testing.T) {
	src, dst := populatedSource(), compatibleDestination()
	e := newEngine(t, src, dst, model.VersionMatchingExact)
	ctx := context.Background()
	require.True(t, e.Transfer(ctx).Succeeded())
	o := e.Transfer(ctx)
	assert.ErrorIs(t, o.Err, transferuc.ErrAlreadyStarted)
	assert.Equal(t, transferuc.PhaseStart, o.FailedPhase)
	assert.Empty(t, o.Completed)
	assert.Equal(t, 1, dst.Commits(model.StageEntities))
}

func TestTransferCancelledContext(t *testing.T) {
	src, dst := populatedSource(), compatibleDestination()
	e := newEngine(t, src, dst, model.VersionMatchingExact)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.TransferEntities(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dst.Commits(model.StageEntities))
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []model.Stage
	finished map[model.Stage]int
	failed   map[model.Stage]error
}

func (ro *recordingObserver) StageStarted(s model.Stage) {
	ro.mu.Lock()
	defer ro.mu.Unlock()
	ro.started = append(ro.started, s)
}

func (ro *recordingObserver) StageFinished(
	s model.Stage, items int, _ time.Duration, err error,
) {
	ro.mu.Lock()
	defer ro.mu.Unlock()
	if ro.finished == nil {
		ro.finished = map[model.Stage]int{}
		ro.failed = map[model.Stage]error{}
	}
	ro.finished[s] = items
	ro.failed[s] = err
}

func TestObserver(t *testing.T) {
	src, dst := populatedSource(), compatibleDestination()
	ro := &recordingObserver{}
	e := newEngine(
		t, src, dst, model.VersionMatchingExact, transferuc.WithObserver(ro),
	)
	require.True(t, e.Transfer(context.Background()).Succeeded())
	assert.Equal(t, []model.Stage{
		model.StageSchemas, model.StageEntities,
		model.StageLinks, model.StageConfiguration,
	}, ro.started)
	assert.Equal(t, map[model.Stage]int{
		model.StageSchemas:       1,
		model.StageEntities:      2,
		model.StageLinks:         1,
		model.StageConfiguration: 1,
	}, ro.finished)
	for s, err := range ro.failed {
		assert.NoError(t, err, "stage %s", s)
	}
}

func TestNewValidation(t *testing.T) {
	src, dst := populatedSource(), compatibleDestination()
	opts := model.TransferOptions{VersionMatching: model.VersionMatchingExact}

	_, err := transferuc.New(nil, dst, opts, uidDiffer{})
	assert.Error(t, err)
	_, err = transferuc.New(src, nil, opts, uidDiffer{})
	assert.Error(t, err)
	_, err = transferuc.New(src, dst, opts, nil)
	assert.Error(t, err)
	_, err = transferuc.New(src, dst, model.TransferOptions{
		VersionMatching: "sometimes",
	}, uidDiffer{})
	assert.ErrorIs(t, err, model.ErrUnknownVersionMatching)
	_, err = transferuc.New(
		src, dst, opts, uidDiffer{}, transferuc.WithBufferSize(-1),
	)
	assert.Error(t, err)
	_, err = transferuc.New(
		src, dst, opts, uidDiffer{},
		transferuc.WithBufferSize(1), transferuc.WithBufferSize(2),
	)
	assert.Error(t, err)
	_, err = transferuc.New(src, dst, opts, uidDiffer{}, transferuc.WithObserver(nil))
	assert.Error(t, err)

	e, err := transferuc.New(src, dst, opts, uidDiffer{})
	require.NoError(t, err)
	assert.Equal(t, model.SchemaMatchingStrict, e.Options().SchemaMatching)
}

// countingSource produces total entities and counts the reads.
type countingSource struct {
	total int
	reads *atomic.Int64
}

func (cs countingSource) Name() string {
	return "counting"
}

func (cs countingSource) EntitiesReader(context.Context) (
	repo.ReadStream[model.Entity], error,
) {
	return cs, nil
}

func (cs countingSource) Read(ctx context.Context) (model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return model.Entity{}, err
	}
	n := cs.reads.Add(1)
	if n > int64(cs.total) {
		cs.reads.Add(-1)
		return model.Entity{}, io.EOF
	}
	return model.Entity{Type: "t", ID: fmt.Sprint(n)}, nil
}

func (cs countingSource) Close() error {
	return nil
}

// slowDestination measures how far the reads run ahead of its writes.
type slowDestination struct {
	reads  *atomic.Int64
	writes int64
	maxGap int64
}

func (sd *slowDestination) Name() string {
	return "slow"
}

func (sd *slowDestination) EntitiesWriter(context.Context) (
	repo.WriteStream[model.Entity], error,
) {
	return sd, nil
}

func (sd *slowDestination) Write(context.Context, model.Entity) error {
	time.Sleep(time.Millisecond)
	if gap := sd.reads.Load() - sd.writes; gap > sd.maxGap {
		sd.maxGap = gap
	}
	sd.writes++
	return nil
}

func (sd *slowDestination) Close(context.Context) error {
	return nil
}

func TestRelayBackpressure(t *testing.T) {
	for _, size := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("buffer %d", size), func(t *testing.T) {
			reads := &atomic.Int64{}
			src := countingSource{total: 40, reads: reads}
			dst := &slowDestination{reads: reads}
			e, err := transferuc.New(
				src, dst,
				model.TransferOptions{
					VersionMatching: model.VersionMatchingIgnore,
				},
				uidDiffer{}, transferuc.WithBufferSize(size),
			)
			require.NoError(t, err)
			require.NoError(t, e.TransferEntities(context.Background()))
			assert.EqualValues(t, 40, dst.writes)
			// one item in the writer, size items in the channel, and
			// one item which is waiting to be sent by the reader
			assert.LessOrEqual(t, dst.maxGap, int64(size+2))
		})
	}
}
