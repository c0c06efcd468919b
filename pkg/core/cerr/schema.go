// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cerr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/momeni/dtransfer/pkg/core/model"
)

// SchemaMismatchError indicates that one or more schemas could not be
// accepted by the Strategy schema matching strategy. The Diffs map has
// one entry per rejected type name (not only the first one), holding
// all discrepancies which were found for that type.
type SchemaMismatchError struct {
	Strategy model.SchemaMatching
	Diffs    map[string][]model.Diff
}

// Error renders the rejected types and their diffs as a multi-line
// report. Types are sorted by name, so the report is deterministic.
func (sme *SchemaMismatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(
		&sb,
		"invalid schema changes detected using the %q strategy",
		string(sme.Strategy),
	)
	names := make([]string, 0, len(sme.Diffs))
	for name := range sme.Diffs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		diffs := sme.Diffs[name]
		fmt.Fprintf(&sb, "\n- %s (%d diffs)", name, len(diffs))
		for _, d := range diffs {
			fmt.Fprintf(&sb, "\n  * %s", d.String())
		}
	}
	return sb.String()
}
