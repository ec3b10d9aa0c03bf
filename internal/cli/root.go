// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eamadorm/alia-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	userID     string
	apiURL     string
	verbose    bool
}

// NewRootCommand builds the alia command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "alia",
		Short: "Terminal client for ALIA, the legal research assistant",
		Long: `alia talks to ALIA (Asistente Legal de Investigación Avanzada) from the
terminal. Ask questions, attach documents and pick up earlier conversations.

Quick Start:
  alia --user jdoe               # full-screen chat
  alia chat                      # line-mode chat
  alia history                   # list your conversations
  alia show <id> --format md     # print a conversation as Markdown`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive() {
				return runTUI(cmd, flags)
			}
			return runChat(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.alia/config.toml)")
	pf.StringVarP(&flags.userID, "user", "u", "", "user id for this session (overrides identity.user_id)")
	pf.StringVar(&flags.apiURL, "api-url", "", "assistant service URL (overrides api.base_url)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newChatCommand(flags),
		newHistoryCommand(flags),
		newShowCommand(flags),
		newConfigCommand(flags),
		newStatusCommand(flags),
	)
	return root
}

// Execute runs the command tree with os.Args and returns the exit code.
func Execute(ctx context.Context) int {
	configureColors()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderError("Error: "+err.Error()))
		return ExitCode(err)
	}
	return ExitSuccess
}
