// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/momeni/dtransfer/pkg/core/usecase/transferuc"
	"github.com/spf13/cobra"
)

var transferFlags matchingFlags

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer the source instance data into the destination",
	Long: `Transfer the source instance data into the destination
instance as configured in the configuration file. The matching flags
override the configured transfer options for this run.

Stages which were completed before a failure stay committed in the
destination. The process exits with code 2 if the instances are not
compatible and with code 1 for other failures.`,
	RunE: transfer,
	Args: cobra.NoArgs,
}

func transfer(cmd *cobra.Command, _ []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := transferFlags.options(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()
	e, err := c.NewEngine(opts, nil)
	if err != nil {
		return fmt.Errorf("creating transfer engine: %w", err)
	}
	o := e.Transfer(ctx)
	out := cmd.OutOrStdout()
	for _, s := range o.Completed {
		fmt.Fprintf(out, "%s: done\n", s)
	}
	if o.Succeeded() {
		return nil
	}
	fmt.Fprintf(out, "%s: failed\n", o.FailedPhase)
	code := ExitFailure
	if o.FailedPhase == transferuc.PhaseIntegrity {
		code = ExitIncompatible
	}
	return &exitError{code: code, err: o.Err}
}

func init() {
	transferFlags.register(transferCmd)
	rootCmd.AddCommand(transferCmd)
}
