// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/eamadorm/alia-tui/internal/session"
)

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"ls", "list"},
		Short:   "List your conversations",
		Long: `List the conversations the assistant service holds for your user id,
newest first as the service orders them. Open one with 'alia show <id>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, logToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if session.IsAnonymous(a.ctrl.UserID()) {
				return usageError("no user id configured", "pass --user or set identity.user_id with 'alia config set'")
			}

			list, err := a.ctrl.ListConversations(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			printListing(out, list)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n conversations")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the listing as JSON")
	return cmd
}
