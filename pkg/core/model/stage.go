// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

// Stage names one category of data which is moved during a transfer.
type Stage string

// Valid values for the Stage enum.
const (
	StageSchemas       Stage = "schemas"
	StageEntities      Stage = "entities"
	StageMedia         Stage = "media"
	StageLinks         Stage = "links"
	StageConfiguration Stage = "configuration"
)

// Stages lists all stages in their transfer order. Each stage may
// assume that all of its predecessors were committed already.
var Stages = []Stage{
	StageSchemas,
	StageEntities,
	StageMedia,
	StageLinks,
	StageConfiguration,
}

// Side tells which provider of a transfer is meant.
type Side string

// Valid values for the Side enum.
const (
	SideSource      Side = "source"
	SideDestination Side = "destination"
)
