// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package transferuc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/momeni/dtransfer/internal/test/memprovider"
	"github.com/momeni/dtransfer/pkg/core/cerr"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/usecase/transferuc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uidDiffer considers two schemas to be equal if their UIDs are equal.
// It accepts everything under the "lax" strategy.
type uidDiffer struct{}

func (uidDiffer) Compare(src, dst *model.Schema) model.SchemaComparison {
	var diffs []model.Diff
	switch {
	case src == nil && dst == nil:
	case src == nil:
		diffs = []model.Diff{{Kind: model.DiffAdded, Destination: dst.UID}}
	case dst == nil:
		diffs = []model.Diff{{Kind: model.DiffRemoved, Source: src.UID}}
	case src.UID != dst.UID:
		diffs = []model.Diff{{
			Kind:        model.DiffModified,
			Path:        []string{"uid"},
			Source:      src.UID,
			Destination: dst.UID,
		}}
	}
	return model.SchemaComparison{
		Diffs: diffs,
		Verdicts: map[model.SchemaMatching]func() bool{
			model.SchemaMatchingStrict: func() bool {
				return len(diffs) == 0
			},
			"lax": func() bool {
				return true
			},
		},
	}
}

func TestCheckVersions(t *testing.T) {
	cases := []struct {
		name     string
		src, dst string
		vm       model.VersionMatching
		mismatch bool
	}{
		{"exact equal", "4.2.0", "4.2.0", model.VersionMatchingExact, false},
		{"exact different", "4.2.0", "4.2.1", model.VersionMatchingExact, true},
		{"minor different", "4.2.0", "4.3.1", model.VersionMatchingMinor, true},
		{"major equal", "4.2.0", "4.3.1", model.VersionMatchingMajor, false},
		{"major different", "4.2.0", "5.2.0", model.VersionMatchingMajor, true},
		{"patch with suffix", "1.2.3-rc1", "1.2.3", model.VersionMatchingPatch, true},
		{"patch both short", "1.2", "1.2", model.VersionMatchingPatch, false},
		{"patch one short", "1.2", "1.2.0", model.VersionMatchingPatch, true},
		{"string components", "2.0", "02.0", model.VersionMatchingMajor, true},
		{"minor ignores patch", "1.2.3", "1.2.9", model.VersionMatchingMinor, false},
		{"ignore", "1.0.0", "9.9.9", model.VersionMatchingIgnore, false},
		{"absent source", "", "9.9.9", model.VersionMatchingExact, false},
		{"absent destination", "1.0.0", "", model.VersionMatchingExact, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := transferuc.CheckVersions(tc.src, tc.dst, tc.vm)
			if !tc.mismatch {
				assert.NoError(t, err)
				return
			}
			var vme *cerr.VersionMismatchError
			require.ErrorAs(t, err, &vme)
			assert.Equal(t, tc.src, vme.Source)
			assert.Equal(t, tc.dst, vme.Destination)
			assert.Equal(t, tc.vm, vme.Strategy)
		})
	}
}

func TestCheckVersionsUnknownStrategy(t *testing.T) {
	err := transferuc.CheckVersions("1", "2", "fuzzy")
	assert.ErrorIs(t, err, model.ErrUnknownVersionMatching)
}

func TestCheckSchemas(t *testing.T) {
	s1 := &model.Schema{UID: "api::a.a"}
	s2 := &model.Schema{UID: "api::b.b"}

	err := transferuc.CheckSchemas(
		model.SchemaMap{"A": s1}, model.SchemaMap{"A": s1},
		model.SchemaMatchingStrict, uidDiffer{},
	)
	assert.NoError(t, err, "identical maps must be compatible")

	err = transferuc.CheckSchemas(
		model.SchemaMap{"A": s1}, model.SchemaMap{"A": s1, "B": s2},
		model.SchemaMatchingStrict, uidDiffer{},
	)
	var sme *cerr.SchemaMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, model.SchemaMatchingStrict, sme.Strategy)
	require.Len(t, sme.Diffs, 1)
	require.Contains(t, sme.Diffs, "B")
	assert.Equal(t, model.DiffAdded, sme.Diffs["B"][0].Kind)
	assert.Contains(t, err.Error(), "- B (1 diffs)")

	err = transferuc.CheckSchemas(
		model.SchemaMap{"A": s1}, model.SchemaMap{"A": s2, "B": s2},
		model.SchemaMatchingStrict, uidDiffer{},
	)
	require.ErrorAs(t, err, &sme)
	assert.Len(t, sme.Diffs, 2, "all invalid types must be reported")

	err = transferuc.CheckSchemas(
		model.SchemaMap{"A": s1}, model.SchemaMap{"A": s2, "B": s2},
		"lax", uidDiffer{},
	)
	assert.NoError(t, err)

	err = transferuc.CheckSchemas(
		model.SchemaMap{"A": s1}, model.SchemaMap{"A": s1},
		"unheard-of", uidDiffer{},
	)
	assert.ErrorIs(t, err, transferuc.ErrUnknownSchemaMatching)

	err = transferuc.CheckSchemas(
		model.SchemaMap{}, model.SchemaMap{}, "unheard-of", uidDiffer{},
	)
	assert.ErrorIs(
		t, err, transferuc.ErrUnknownSchemaMatching,
		"strategy must be known even without any schema",
	)
}

func newEngine(
	t *testing.T,
	src *memprovider.Source,
	dst *memprovider.Destination,
	vm model.VersionMatching,
	options ...transferuc.Option,
) *transferuc.Engine {
	t.Helper()
	e, err := transferuc.New(src, dst, model.TransferOptions{
		VersionMatching: vm,
	}, uidDiffer{}, options...)
	require.NoError(t, err)
	return e
}

func TestCheckIntegrity(t *testing.T) {
	ctx := context.Background()
	s1 := &model.Schema{UID: "api::a.a"}
	s2 := &model.Schema{UID: "api::b.b"}
	cases := []struct {
		name       string
		srcVer     string
		dstVer     string
		vm         model.VersionMatching
		srcSchemas model.SchemaMap
		dstSchemas model.SchemaMap
		verErr     bool
		schemaErr  bool
	}{
		{
			name:   "identical versions",
			srcVer: "4.2.0", dstVer: "4.2.0",
			vm: model.VersionMatchingExact,
		},
		{
			name:   "different minor versions",
			srcVer: "4.2.0", dstVer: "4.3.1",
			vm:     model.VersionMatchingMinor,
			verErr: true,
		},
		{
			name:   "absent source metadata",
			dstVer: "4.3.1",
			vm:     model.VersionMatchingExact,
		},
		{
			name:   "extra destination schema",
			srcVer: "4.2.0", dstVer: "4.2.0",
			vm:         model.VersionMatchingExact,
			srcSchemas: model.SchemaMap{"A": s1},
			dstSchemas: model.SchemaMap{"A": s1, "B": s2},
			schemaErr:  true,
		},
		{
			name:       "absent destination schemas",
			vm:         model.VersionMatchingExact,
			srcSchemas: model.SchemaMap{"A": s1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := memprovider.NewSource("src")
			dst := memprovider.NewDestination("dst")
			if tc.srcVer != "" {
				src.Meta = &model.Metadata{AppVersion: tc.srcVer}
			}
			if tc.dstVer != "" {
				dst.Meta = &model.Metadata{AppVersion: tc.dstVer}
			}
			src.SchemaMap, dst.SchemaMap = tc.srcSchemas, tc.dstSchemas
			e := newEngine(t, src, dst, tc.vm)
			err := e.CheckIntegrity(ctx)
			ok := e.IntegrityCheck(ctx)
			switch {
			case tc.verErr:
				var vme *cerr.VersionMismatchError
				assert.ErrorAs(t, err, &vme)
				assert.False(t, ok)
			case tc.schemaErr:
				var sme *cerr.SchemaMismatchError
				if assert.ErrorAs(t, err, &sme) {
					assert.Equal(t, []string{"B"}, mapKeys(sme.Diffs))
				}
				assert.False(t, ok)
			default:
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		})
	}
}

func TestCheckIntegrityFetchError(t *testing.T) {
	ctx := context.Background()
	errBroken := errors.New("broken metadata")
	src := memprovider.NewSource("src")
	dst := memprovider.NewDestination("dst")
	dst.MetadataErr = errBroken
	e := newEngine(t, src, dst, model.VersionMatchingIgnore)
	err := e.CheckIntegrity(ctx)
	assert.ErrorIs(t, err, errBroken)
	assert.ErrorContains(t, err, "dst")
	assert.False(t, e.IntegrityCheck(ctx), "errors must be absorbed")
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
