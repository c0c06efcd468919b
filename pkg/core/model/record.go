// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

// Entity is one content item of a given schema Type. Its ID is unique
// among entities of the same type.
type Entity struct {
	Type string         `json:"type"`
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// LinkEnd identifies one side of a Link, i.e., the Field attribute of
// the entity with the given Type and ID.
type LinkEnd struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Field string `json:"field,omitempty"`
}

// Link is one relation between two entities. Links are transferred
// after entities, so both ends are expected to exist already.
type Link struct {
	Kind     string  `json:"kind"`
	Left     LinkEnd `json:"left"`
	Right    LinkEnd `json:"right"`
	Position int     `json:"position,omitempty"`
}

// ConfigEntry is one configuration item of an application instance,
// such as a stored setting or a webhook definition, which is keyed by
// its Type and Key.
type ConfigEntry struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}
