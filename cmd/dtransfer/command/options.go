// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"fmt"

	"github.com/momeni/dtransfer/pkg/adapter/config/cfg1"
	"github.com/momeni/dtransfer/pkg/adapter/schemadiff"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/spf13/cobra"
)

// matchingFlags holds the transfer options which may be given on the
// command line in order to override the configured ones.
type matchingFlags struct {
	versionMatching string
	schemaMatching  string
}

func (mf *matchingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&mf.versionMatching, "version-matching", "",
		"version matching strategy: ignore, exact, major, minor, or patch",
	)
	cmd.Flags().StringVar(
		&mf.schemaMatching, "schema-matching", "",
		fmt.Sprintf("schema matching strategy: one of %v", schemadiff.Strategies),
	)
}

// options returns the configured transfer options after applying the
// command line overrides.
func (mf *matchingFlags) options(c *cfg1.Config) (model.TransferOptions, error) {
	opts := c.Transfer.Options()
	if mf.versionMatching != "" {
		vm, err := model.ParseVersionMatching(mf.versionMatching)
		if err != nil {
			return opts, fmt.Errorf("--version-matching: %w", err)
		}
		opts.VersionMatching = vm
	}
	if mf.schemaMatching != "" {
		sm := model.SchemaMatching(mf.schemaMatching)
		if !schemadiff.IsKnown(sm) {
			return opts, fmt.Errorf("--schema-matching: unknown %q", sm)
		}
		opts.SchemaMatching = sm
	}
	return opts, nil
}
