// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/momeni/dtransfer/pkg/core/usecase/jobuc"
	"github.com/spf13/cobra"
)

var checkFlags matchingFlags

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check if the source and destination instances are compatible",
	Long: `Check if the source and destination instances are compatible
by bootstrapping them, comparing their application versions and schemas,
and closing them. No data is transferred. The integrity report is
printed as JSON and the process exits with code 2 if the instances are
not compatible.`,
	RunE: check,
	Args: cobra.NoArgs,
}

func check(cmd *cobra.Command, _ []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := checkFlags.options(c)
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
	r := jobuc.Check(ctx, e)
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling integrity report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	if !r.Compatible {
		return &exitError{
			code: ExitIncompatible,
			err:  errors.New("instances are not compatible"),
		}
	}
	return nil
}

func init() {
	checkFlags.register(checkCmd)
	rootCmd.AddCommand(checkCmd)
}
