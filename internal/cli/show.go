// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eamadorm/alia-tui/internal/export"
	"github.com/eamadorm/alia-tui/internal/ui/styles"
)

func newShowCommand(flags *globalFlags) *cobra.Command {
	var (
		format    string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "show <conversation_id>",
		Short: "Print or export a conversation",
		Long: `Load a conversation from the assistant service and print it.

With --format the transcript is written to stdout as markdown, json or yaml.
With --output it is saved to a file in that directory instead.`,
		Example: `  alia show 3f2a9c1e-7b4d-4e8a-9c1d-5a6b7c8d9e0f
  alia show 3f2a9c1e-7b4d-4e8a-9c1d-5a6b7c8d9e0f --format json
  alia show 3f2a9c1e-7b4d-4e8a-9c1d-5a6b7c8d9e0f --format md --output ~/exports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, logToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ctrl.LoadConversation(cmd.Context(), args[0]); err != nil {
				return err
			}
			st := a.ctrl.Snapshot()
			out := cmd.OutOrStdout()

			if format == "" && outputDir == "" {
				width := terminalWidth()
				for _, msg := range st.Messages {
					fmt.Fprintln(out, renderMessage(msg, width))
				}
				return nil
			}

			if format == "" {
				format = a.cfg.Export.Format
			}
			opts := a.exportOptions()
			if outputDir != "" {
				opts.OutputDir = outputDir
			}
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return usageError(err.Error(), "use markdown, json or yaml")
			}
			transcript := export.NewTranscript(st.ConversationID, st.UserID, st.Messages)

			if outputDir != "" {
				path, err := export.ExportToFile(transcript, exporter, opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, styles.RenderSuccess("Exported to "+path))
				return nil
			}

			data, err := exporter.Export(transcript)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: markdown, json, yaml")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "write the export to a file in this directory")
	return cmd
}
