// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package command provides the root and sub-commands of the dtransfer.
// Commands are organized using the cobra library.
//
//	./dtransfer transfer [-c /path/of/config.yaml]  # one transfer
//	./dtransfer check [-c /path/of/config.yaml]     # integrity report
//	./dtransfer serve [-c /path/of/config.yaml]     # REST API server
//	./dtransfer hash-token [token]                  # token-hash value
//
// The transfer and check sub-commands exit with ExitIncompatible code
// when the source and destination instances are not compatible and
// with ExitFailure code for other failures.
package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/momeni/dtransfer/pkg/adapter/config"
	"github.com/momeni/dtransfer/pkg/adapter/config/cfg1"
	"github.com/spf13/cobra"
)

// Exit codes of the dtransfer process.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitIncompatible = 2
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "dtransfer",
	Short: "Transfer the data of one application instance into another",
	Long: `Transfer the data of one application instance into another.
Each instance is represented by a provider, such as a PostgreSQL
database or an archive directory of JSON-lines files, as configured
in the configuration file. A transfer bootstraps both providers,
checks that their application versions and schemas are compatible,
and then moves the schemas, entities, media, links, and configuration
entries (in this order) from the source into the destination.
Nothing is rolled back if a transfer fails midway.`,
	SilenceUsage: true,
}

// exitError carries the desired process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// Execute runs the rootCmd which in turn parses CLI arguments and
// flags and runs the most specific cobra command. The exit code is
// chosen based on the returned error (if any).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := ExitFailure
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		os.Exit(code)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath)
	rootCmd.PersistentFlags().StringVarP(
		&cfgPath, "config", "c", "", "config file path",
	)
}

// fixConfigPath ensures that cfgPath is set respectively by either the
// CLI args, the CONFIG_FILE environment variable, or its default value.
func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	var found bool
	if cfgPath, found = os.LookupEnv("CONFIG_FILE"); !found {
		cfgPath = "/etc/dtransfer/config.yaml"
	}
}

// loadConfig loads the configuration file and installs the logger
// which is described by it.
func loadConfig() (*cfg1.Config, error) {
	c, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}
	if err = c.Log.Setup(os.Stderr); err != nil {
		return nil, fmt.Errorf("setting up the logger: %w", err)
	}
	return c, nil
}
