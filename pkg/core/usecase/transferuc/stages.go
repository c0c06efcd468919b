// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package transferuc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/momeni/dtransfer/pkg/core/cerr"
	"github.com/momeni/dtransfer/pkg/core/log"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
)

type (
	readerOpener[T any] func(ctx context.Context) (repo.ReadStream[T], error)
	writerOpener[T any] func(ctx context.Context) (repo.WriteStream[T], error)
)

// TransferStage runs the stage s. It is a dispatcher for the
// TransferSchemas, TransferEntities, TransferMedia, TransferLinks,
// and TransferConfiguration methods.
func (e *Engine) TransferStage(ctx context.Context, s model.Stage) error {
	switch s {
	case model.StageSchemas:
		return e.TransferSchemas(ctx)
	case model.StageEntities:
		return e.TransferEntities(ctx)
	case model.StageMedia:
		return e.TransferMedia(ctx)
	case model.StageLinks:
		return e.TransferLinks(ctx)
	case model.StageConfiguration:
		return e.TransferConfiguration(ctx)
	default:
		return fmt.Errorf("unknown stage %q", s)
	}
}

// TransferSchemas relays the schemas stream of the source provider
// into the schemas stream of the destination provider.
// If either provider does not offer its stream, a
// *cerr.MissingStreamError will be returned.
func (e *Engine) TransferSchemas(ctx context.Context) error {
	var r readerOpener[model.Schema]
	if s, ok := e.src.(repo.SchemasSource); ok {
		r = s.SchemasReader
	}
	var w writerOpener[model.Schema]
	if d, ok := e.dst.(repo.SchemasDestination); ok {
		w = d.SchemasWriter
	}
	return runStage(ctx, e, model.StageSchemas, r, w)
}

// TransferEntities relays the entities, similar to TransferSchemas.
func (e *Engine) TransferEntities(ctx context.Context) error {
	var r readerOpener[model.Entity]
	if s, ok := e.src.(repo.EntitiesSource); ok {
		r = s.EntitiesReader
	}
	var w writerOpener[model.Entity]
	if d, ok := e.dst.(repo.EntitiesDestination); ok {
		w = d.EntitiesWriter
	}
	return runStage(ctx, e, model.StageEntities, r, w)
}

// TransferLinks relays the links, similar to TransferSchemas.
// Links refer to entities by their IDs, so they must be transferred
// after the entities.
func (e *Engine) TransferLinks(ctx context.Context) error {
	var r readerOpener[model.Link]
	if s, ok := e.src.(repo.LinksSource); ok {
		r = s.LinksReader
	}
	var w writerOpener[model.Link]
	if d, ok := e.dst.(repo.LinksDestination); ok {
		w = d.LinksWriter
	}
	return runStage(ctx, e, model.StageLinks, r, w)
}

// TransferConfiguration relays the configuration entries, similar to
// TransferSchemas.
func (e *Engine) TransferConfiguration(ctx context.Context) error {
	var r readerOpener[model.ConfigEntry]
	if s, ok := e.src.(repo.ConfigurationSource); ok {
		r = s.ConfigurationReader
	}
	var w writerOpener[model.ConfigEntry]
	if d, ok := e.dst.(repo.ConfigurationDestination); ok {
		w = d.ConfigurationWriter
	}
	return runStage(ctx, e, model.StageConfiguration, r, w)
}

// TransferMedia is a placeholder for the media stage. Media files are
// not transferred yet, so it succeeds without touching the providers.
func (e *Engine) TransferMedia(ctx context.Context) error {
	log.Debug(ctx, "media transfer is skipped", log.Stage(model.StageMedia))
	return nil
}

// runStage opens the source and destination streams of stage using the
// openR and openW functions and relays the items between them.
// A nil opener, or an opener which returns a nil stream, means that
// the relevant provider does not offer that stream.
func runStage[T any](
	ctx context.Context,
	e *Engine,
	stage model.Stage,
	openR readerOpener[T],
	openW writerOpener[T],
) (err error) {
	start := time.Now()
	n := 0
	e.observer.StageStarted(stage)
	defer func() {
		elapsed := time.Since(start)
		e.observer.StageFinished(stage, n, elapsed, err)
		if err != nil {
			log.Error(
				ctx, "stage failed",
				log.Stage(stage), slog.Int("items", n),
				log.Err("err", err),
			)
			return
		}
		log.Info(
			ctx, "stage completed",
			log.Stage(stage), slog.Int("items", n),
			slog.Duration("elapsed", elapsed),
		)
	}()
	r, err := openReader(ctx, stage, openR)
	if err != nil {
		return err
	}
	w, err := openWriter(ctx, stage, openW)
	if err != nil {
		if cErr := r.Close(); cErr != nil {
			log.Warn(
				ctx, "closing the source stream failed",
				log.Stage(stage), log.Err("err", cErr),
			)
		}
		return err
	}
	n, err = relay(ctx, stage, r, w, e.bufferSize)
	return err
}

func openReader[T any](
	ctx context.Context, stage model.Stage, open readerOpener[T],
) (repo.ReadStream[T], error) {
	if open == nil {
		return nil, &cerr.MissingStreamError{
			Stage: stage, Side: model.SideSource,
		}
	}
	r, err := open(ctx)
	if err != nil {
		return nil, streamErr(stage, model.SideSource, err)
	}
	if r == nil {
		return nil, &cerr.MissingStreamError{
			Stage: stage, Side: model.SideSource,
		}
	}
	return r, nil
}

func openWriter[T any](
	ctx context.Context, stage model.Stage, open writerOpener[T],
) (repo.WriteStream[T], error) {
	if open == nil {
		return nil, &cerr.MissingStreamError{
			Stage: stage, Side: model.SideDestination,
		}
	}
	w, err := open(ctx)
	if err != nil {
		return nil, streamErr(stage, model.SideDestination, err)
	}
	if w == nil {
		return nil, &cerr.MissingStreamError{
			Stage: stage, Side: model.SideDestination,
		}
	}
	return w, nil
}
