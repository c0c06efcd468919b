// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "time"

// Metadata describes an application instance which is exposed by a
// source or destination provider. Only the AppVersion is inspected
// during the integrity checks. A nil *Metadata or an empty AppVersion
// means that the version is unknown and so it may not be checked.
type Metadata struct {
	AppVersion string         `json:"app_version"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Version returns the application version of m, or an empty string
// if m is nil.
func (m *Metadata) Version() string {
	if m == nil {
		return ""
	}
	return m.AppVersion
}
