// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "sort"

// Schema describes one entity type (also known as a content type) of
// an application instance. The transfer engine never inspects its
// fields. Only the schema diff calculator interprets them and the
// providers persist them.
type Schema struct {
	UID        string               `json:"uid"`
	Kind       string               `json:"kind,omitempty"`
	Info       map[string]any       `json:"info,omitempty"`
	Attributes map[string]Attribute `json:"attributes,omitempty"`
	Options    map[string]any       `json:"options,omitempty"`
}

// Attribute describes one field of a Schema. The Target is only
// meaningful for relational attributes and names the UID of the
// related schema.
type Attribute struct {
	Type     string         `json:"type"`
	Target   string         `json:"target,omitempty"`
	Relation string         `json:"relation,omitempty"`
	Required bool           `json:"required,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// SchemaMap maps each entity type name (the schema UID) to its schema.
// A nil SchemaMap returned by a provider means that schemas are not
// available, while an empty non-nil map represents an instance which
// has no schemas at all.
type SchemaMap map[string]*Schema

// UnionKeys returns the sorted union of type names which are present
// in either of the a or b maps. Each name is reported once.
func UnionKeys(a, b SchemaMap) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for _, m := range []SchemaMap{a, b} {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
