// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"fmt"
	"strings"
)

// DiffKind tells how a Diff path differs between the source and the
// destination schemas.
type DiffKind string

// Valid values for the DiffKind enum.
const (
	DiffAdded    DiffKind = "added"    // only present in destination
	DiffRemoved  DiffKind = "removed"  // only present in source
	DiffModified DiffKind = "modified" // present on both sides
)

// Diff is one discrepancy between a source and a destination schema.
// The Path locates the discrepancy within the schema, e.g., it may be
// []string{"attributes", "title", "type"}. An empty path refers to the
// whole schema (when it is missing on one side).
type Diff struct {
	Kind        DiffKind `json:"kind"`
	Path        []string `json:"path"`
	Source      any      `json:"source,omitempty"`
	Destination any      `json:"destination,omitempty"`
}

// String returns a one line human-readable description of d.
func (d Diff) String() string {
	p := strings.Join(d.Path, ".")
	if p == "" {
		p = "<schema>"
	}
	switch d.Kind {
	case DiffAdded:
		return fmt.Sprintf("%s added in destination", p)
	case DiffRemoved:
		return fmt.Sprintf("%s removed from destination", p)
	default:
		return fmt.Sprintf(
			"%s modified: %v => %v", p, d.Source, d.Destination,
		)
	}
}

// SchemaComparison is the result of comparing one source schema with
// its destination counterpart. The Verdicts map has one predicate per
// comparison strategy which is known to the calculator, telling if the
// compared schemas are compatible under that strategy.
type SchemaComparison struct {
	Diffs    []Diff
	Verdicts map[SchemaMatching]func() bool
}
