// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eamadorm/alia-tui/internal/session"
	"github.com/eamadorm/alia-tui/internal/ui/styles"
)

func newStatusCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the assistant service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, logToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service:  %s\n", a.client.BaseURL())
			user := a.ctrl.UserID()
			if session.IsAnonymous(user) {
				user = "anonymous (history disabled)"
			}
			fmt.Fprintf(out, "User:     %s\n", user)
			fmt.Fprintf(out, "Timeout:  %s\n", a.client.Timeout())

			start := time.Now()
			health, err := a.client.Health(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, styles.RenderError("unreachable"))
				return err
			}

			name := health.Service
			if name == "" {
				name = "ALIA"
			}
			msg := fmt.Sprintf("%s is %s (%s)", name, orDefault(health.Status, "up"), time.Since(start).Round(time.Millisecond))
			fmt.Fprintln(out, styles.RenderSuccess(msg))
			return nil
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
