// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"errors"
	"fmt"
)

// VersionMatching specifies how strictly the application versions of
// the source and destination instances must agree before a transfer
// may begin. It is kept as a string since it is (de)serialized in the
// configuration files and REST APIs as is.
type VersionMatching string

// Valid values for the VersionMatching enum.
const (
	VersionMatchingIgnore VersionMatching = "ignore" // no check at all
	VersionMatchingExact  VersionMatching = "exact"  // identical strings
	VersionMatchingMajor  VersionMatching = "major"  // same major part
	VersionMatchingMinor  VersionMatching = "minor"  // same major.minor
	VersionMatchingPatch  VersionMatching = "patch"  // same x.y.z parts
)

// ErrUnknownVersionMatching indicates that a given string may not be
// parsed as a known version matching strategy. Similar to other
// sentinel errors, the rejected string is not repeated because the
// caller already knows about it and may wrap this error accordingly.
var ErrUnknownVersionMatching = errors.New("unknown version matching")

// Validate returns nil if vm is one of the known strategies.
func (vm VersionMatching) Validate() error {
	switch vm {
	case VersionMatchingIgnore, VersionMatchingExact,
		VersionMatchingMajor, VersionMatchingMinor, VersionMatchingPatch:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVersionMatching, string(vm))
	}
}

// Components returns the number of leading dot-separated version
// components which must be equal for the vm strategy. It returns zero
// for the ignore and exact strategies which do not compare components.
func (vm VersionMatching) Components() int {
	switch vm {
	case VersionMatchingMajor:
		return 1
	case VersionMatchingMinor:
		return 2
	case VersionMatchingPatch:
		return 3
	default:
		return 0
	}
}

// ParseVersionMatching parses s as a VersionMatching. An empty string
// is not accepted since the strategy has no implicit default.
func ParseVersionMatching(s string) (VersionMatching, error) {
	vm := VersionMatching(s)
	if err := vm.Validate(); err != nil {
		return "", err
	}
	return vm, nil
}

// SchemaMatching names a schema comparison strategy. The strict value
// is always available, while other strategy names are defined by the
// schema diff calculator which is in use (see repo.SchemaDiffer).
type SchemaMatching string

// SchemaMatchingStrict is the default schema comparison strategy.
const SchemaMatchingStrict SchemaMatching = "strict"

// TransferOptions contains the knobs which decide if the source and
// destination instances are compatible enough for a transfer.
// A TransferOptions instance is passed by value to the transfer engine
// and is never modified afterwards.
type TransferOptions struct {
	VersionMatching VersionMatching `json:"version_matching" yaml:"version-matching"`
	SchemaMatching  SchemaMatching  `json:"schema_matching" yaml:"schema-matching"`
}

// Normalize fills the default schema matching strategy (if it is
// empty) and validates the version matching strategy.
func (o *TransferOptions) Normalize() error {
	if o.SchemaMatching == "" {
		o.SchemaMatching = SchemaMatchingStrict
	}
	if err := o.VersionMatching.Validate(); err != nil {
		return fmt.Errorf("version matching: %w", err)
	}
	return nil
}
