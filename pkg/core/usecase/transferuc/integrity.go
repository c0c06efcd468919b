// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package transferuc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/momeni/dtransfer/pkg/core/cerr"
	"github.com/momeni/dtransfer/pkg/core/log"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownSchemaMatching indicates that the schema diff calculator
// has not provided a verdict for the configured schema matching
// strategy.
var ErrUnknownSchemaMatching = errors.New("unknown schema matching")

// CheckVersions verifies that src and dst application versions agree
// according to the vm strategy. If either version is empty, or vm is
// the ignore strategy, nothing is checked. The exact strategy needs
// identical strings, while the major, minor, and patch strategies
// split both versions by dots and need their first one, two, or three
// components to be equal respectively. Components are compared as
// strings, so "2" and "02" are different, and a missing component
// is only equal with another missing component.
//
// A mismatch is reported as a *cerr.VersionMismatchError.
func CheckVersions(src, dst string, vm model.VersionMatching) error {
	if src == "" || dst == "" || vm == model.VersionMatchingIgnore {
		return nil
	}
	switch vm {
	case model.VersionMatchingExact:
		if src == dst {
			return nil
		}
	case model.VersionMatchingMajor,
		model.VersionMatchingMinor,
		model.VersionMatchingPatch:
		if prefixMatches(src, dst, vm.Components()) {
			return nil
		}
	default:
		return vm.Validate()
	}
	return &cerr.VersionMismatchError{
		Source:      src,
		Destination: dst,
		Strategy:    vm,
	}
}

// prefixMatches splits a and b by dots and returns true if their first
// n components are pairwise equal.
func prefixMatches(a, b string, n int) bool {
	ap := strings.Split(a, ".")
	bp := strings.Split(b, ".")
	for i := 0; i < n; i++ {
		ac, aok := component(ap, i)
		bc, bok := component(bp, i)
		if aok != bok || ac != bc {
			return false
		}
	}
	return true
}

func component(parts []string, i int) (string, bool) {
	if i < len(parts) {
		return parts[i], true
	}
	return "", false
}

// CheckSchemas compares the src and dst schema maps using the differ
// calculator. All type names which are present in either of the maps
// are compared (a missing schema is passed as nil) and a type is
// invalid if the sm strategy verdict rejects its comparison.
// If any type is invalid, a *cerr.SchemaMismatchError will be returned
// which contains the diffs of all invalid types. The sm strategy must
// be known by differ, even if both maps are empty.
func CheckSchemas(
	src, dst model.SchemaMap,
	sm model.SchemaMatching,
	differ repo.SchemaDiffer,
) error {
	// two absent schemas reveal the strategies of differ
	if _, ok := differ.Compare(nil, nil).Verdicts[sm]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSchemaMatching, sm)
	}
	var invalid map[string][]model.Diff
	for _, name := range model.UnionKeys(src, dst) {
		c := differ.Compare(src[name], dst[name])
		verdict, ok := c.Verdicts[sm]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSchemaMatching, sm)
		}
		if verdict() {
			continue
		}
		if invalid == nil {
			invalid = make(map[string][]model.Diff)
		}
		invalid[name] = c.Diffs
	}
	if invalid != nil {
		return &cerr.SchemaMismatchError{Strategy: sm, Diffs: invalid}
	}
	return nil
}

// CheckIntegrity fetches the metadata and schemas of both providers
// (concurrently) and verifies their compatibility using CheckVersions
// and CheckSchemas based on the Engine options. Providers which do
// not offer their metadata or schemas cause the relevant check to be
// skipped. Fetch and check errors are returned as is (after wrapping),
// so callers may use errors.As in order to obtain the detailed
// *cerr.VersionMismatchError or *cerr.SchemaMismatchError errors.
func (e *Engine) CheckIntegrity(ctx context.Context) error {
	var srcMeta, dstMeta *model.Metadata
	var srcSchemas, dstSchemas model.SchemaMap
	var g errgroup.Group
	g.Go(func() (err error) {
		srcMeta, srcSchemas, err = describe(ctx, e.src)
		return err
	})
	g.Go(func() (err error) {
		dstMeta, dstSchemas, err = describe(ctx, e.dst)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	err := CheckVersions(
		srcMeta.Version(), dstMeta.Version(), e.opts.VersionMatching,
	)
	if err != nil {
		return fmt.Errorf("checking versions: %w", err)
	}
	if srcSchemas == nil || dstSchemas == nil {
		return nil
	}
	err = CheckSchemas(
		srcSchemas, dstSchemas, e.opts.SchemaMatching, e.differ,
	)
	if err != nil {
		return fmt.Errorf("checking schemas: %w", err)
	}
	return nil
}

// IntegrityCheck runs CheckIntegrity and reports its result as a
// boolean. It never returns an error, so the failure details are only
// available in the logs.
func (e *Engine) IntegrityCheck(ctx context.Context) bool {
	err := e.CheckIntegrity(ctx)
	if err != nil {
		log.Error(
			ctx, "integrity check failed",
			log.Provider(model.SideSource, e.src.Name()),
			log.Provider(model.SideDestination, e.dst.Name()),
			log.Err("err", err),
		)
		return false
	}
	return true
}

// describe fetches the metadata and schemas of p (if p implements the
// relevant optional interfaces).
func describe(ctx context.Context, p repo.Provider) (
	meta *model.Metadata, schemas model.SchemaMap, err error,
) {
	if mg, ok := p.(repo.MetadataGetter); ok {
		meta, err = mg.Metadata(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf(
				"getting %s metadata: %w", p.Name(), err,
			)
		}
	}
	if sg, ok := p.(repo.SchemasGetter); ok {
		schemas, err = sg.Schemas(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf(
				"getting %s schemas: %w", p.Name(), err,
			)
		}
	}
	return meta, schemas, nil
}
