// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package schemadiff provides a schema diff calculator which can be
// used by the transfer use case in order to decide if the schemas of
// the source and destination instances are compatible.
//
// Schemas are converted to their canonical JSON form and compared
// field by field, so two schemas which serialize identically are
// considered equal regardless of their in-memory representation.
// Each discrepancy is reported as one model.Diff. Three strategies
// are recognized:
//
//   - exact: no diff is tolerated.
//   - strict (default): only the "info" section, which holds the
//     display names and descriptions, may differ.
//   - lax: besides the "info" and "options" sections and the "extra"
//     field of attributes, the destination may have new non-required
//     attributes, and types which only exist in the destination are
//     accepted. Missing, retyped, or modified attributes are rejected.
package schemadiff

import (
	"reflect"
	"sort"

	"github.com/goccy/go-json"
	"github.com/momeni/dtransfer/pkg/core/model"
)

// Names of the supported strategies, in addition to the
// model.SchemaMatchingStrict strategy.
const (
	Exact model.SchemaMatching = "exact"
	Lax   model.SchemaMatching = "lax"
)

// Strategies lists all schema matching strategies which are known by
// the Differ, from the strictest one to the most tolerant one.
var Strategies = []model.SchemaMatching{
	Exact, model.SchemaMatchingStrict, Lax,
}

// Differ compares schemas. It has no state, so its zero value is ready
// to be used and it may be shared by concurrent transfers.
type Differ struct{}

// New instantiates a Differ.
func New() *Differ {
	return &Differ{}
}

// Compare computes the diffs of src and dst schemas (each of them may
// be nil if the type does not exist on that side) and returns them
// besides the verdict functions of all Strategies.
func (d *Differ) Compare(src, dst *model.Schema) model.SchemaComparison {
	diffs := compare(src, dst)
	return model.SchemaComparison{
		Diffs: diffs,
		Verdicts: map[model.SchemaMatching]func() bool{
			Exact: func() bool {
				return len(diffs) == 0
			},
			model.SchemaMatchingStrict: func() bool {
				return all(diffs, strictAccepts)
			},
			Lax: func() bool {
				return all(diffs, func(d model.Diff) bool {
					return laxAccepts(d, dst)
				})
			},
		},
	}
}

// IsKnown returns true if sm is one of the Strategies.
func IsKnown(sm model.SchemaMatching) bool {
	for _, s := range Strategies {
		if s == sm {
			return true
		}
	}
	return false
}

func compare(src, dst *model.Schema) []model.Diff {
	switch {
	case src == nil && dst == nil:
		return nil
	case src == nil:
		return []model.Diff{{Kind: model.DiffAdded, Destination: dst.UID}}
	case dst == nil:
		return []model.Diff{{Kind: model.DiffRemoved, Source: src.UID}}
	}
	a, aErr := canonical(src)
	b, bErr := canonical(dst)
	if aErr != nil || bErr != nil {
		return []model.Diff{{
			Kind:        model.DiffModified,
			Source:      errString(aErr),
			Destination: errString(bErr),
		}}
	}
	var diffs []model.Diff
	diffValues(nil, a, b, &diffs)
	return diffs
}

// canonical converts s to its generic JSON representation.
func canonical(s *model.Schema) (any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var v any
	if err = json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func errString(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

// diffValues appends the discrepancies of a and b into diffs. Objects
// are compared key by key (in a sorted order), while other values,
// including arrays, are compared as a whole.
func diffValues(path []string, a, b any, diffs *[]model.Diff) {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if !aok || !bok {
		if !reflect.DeepEqual(a, b) {
			*diffs = append(*diffs, model.Diff{
				Kind:        model.DiffModified,
				Path:        clonePath(path),
				Source:      a,
				Destination: b,
			})
		}
		return
	}
	keys := make([]string, 0, len(am)+len(bm))
	for k := range am {
		keys = append(keys, k)
	}
	for k := range bm {
		if _, ok := am[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		av, inA := am[k]
		bv, inB := bm[k]
		p := append(clonePath(path), k)
		switch {
		case !inA:
			*diffs = append(*diffs, model.Diff{
				Kind: model.DiffAdded, Path: p, Destination: bv,
			})
		case !inB:
			*diffs = append(*diffs, model.Diff{
				Kind: model.DiffRemoved, Path: p, Source: av,
			})
		default:
			diffValues(p, av, bv, diffs)
		}
	}
}

func clonePath(path []string) []string {
	return append(make([]string, 0, len(path)+1), path...)
}

func all(diffs []model.Diff, accepts func(model.Diff) bool) bool {
	for _, d := range diffs {
		if !accepts(d) {
			return false
		}
	}
	return true
}

func strictAccepts(d model.Diff) bool {
	return len(d.Path) > 0 && d.Path[0] == "info"
}

func laxAccepts(d model.Diff, dst *model.Schema) bool {
	if len(d.Path) == 0 {
		return d.Kind == model.DiffAdded
	}
	switch d.Path[0] {
	case "info", "options":
		return true
	case "attributes":
	default:
		return false
	}
	switch {
	case len(d.Path) == 1:
		// source has no attributes at all
		return d.Kind == model.DiffAdded && noneRequired(dst)
	case len(d.Path) == 2:
		if d.Kind != model.DiffAdded {
			return false
		}
		return !dst.Attributes[d.Path[1]].Required
	default:
		return d.Path[2] == "extra"
	}
}

func noneRequired(s *model.Schema) bool {
	for _, a := range s.Attributes {
		if a.Required {
			return false
		}
	}
	return true
}
