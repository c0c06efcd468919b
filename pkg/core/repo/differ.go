// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import "github.com/momeni/dtransfer/pkg/core/model"

// SchemaDiffer is the schema diff calculator. It compares one source
// schema with its destination counterpart (each side may be nil when
// the schema is missing there) and returns the found diffs alongside
// one verdict predicate per supported schema matching strategy.
// The use cases layer does not interpret the schemas and relies on the
// verdict of its configured strategy.
type SchemaDiffer interface {
	Compare(src, dst *model.Schema) model.SchemaComparison
}
