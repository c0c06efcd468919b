// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/momeni/dtransfer/pkg/adapter/hash/scram"
	"github.com/spf13/cobra"
)

var (
	hashMechanism string
	hashIters     int
)

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token [token]",
	Short: "Compute the token-hash setting for an API token",
	Long: `Compute the token-hash setting for an API token, so the
token itself does not need to be kept in the configuration file.
If the token argument is not given, it is read from the first line of
the standard input.`,
	RunE: hashToken,
	Args: cobra.MaximumNArgs(1),
}

func hashToken(cmd *cobra.Command, args []string) error {
	m := scram.ByName(hashMechanism)
	if m == nil {
		return fmt.Errorf("unknown mechanism: %q", hashMechanism)
	}
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading token: %w", err)
		}
		token = strings.TrimRight(line, "\r\n")
	}
	h, err := m.Hash(token, "", hashIters)
	if err != nil {
		return fmt.Errorf("hashing token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), h)
	return nil
}

func init() {
	hashTokenCmd.Flags().StringVar(
		&hashMechanism, "mechanism", scram.SHA256().Name(),
		"SCRAM mechanism: SCRAM-SHA-256 or SCRAM-SHA-1",
	)
	hashTokenCmd.Flags().IntVar(
		&hashIters, "iters", scram.DefaultIters, "PBKDF2 iterations count",
	)
	rootCmd.AddCommand(hashTokenCmd)
}
