// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/spf13/cobra"

	"github.com/eamadorm/alia-tui/internal/ui/chat"
	"github.com/eamadorm/alia-tui/internal/ui/styles"
)

// runTUI starts the full-screen chat.
func runTUI(cmd *cobra.Command, flags *globalFlags) error {
	a, err := newApp(cmd, flags, logToFile)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	a.logger.Info("tui started", "version", Version, "user", a.ctrl.UserID())

	m := chat.New(ctx, a.ctrl, chat.Options{
		Theme:          styles.NewTheme(a.cfg.UI.Theme),
		ShowTimestamps: a.cfg.UI.ShowTimestamps,
		HistoryLimit:   a.cfg.UI.HistoryLimit,
		ExportOptions:  a.exportOptions(),
		ExportFormat:   a.cfg.Export.Format,
		Logger:         a.logger,
	})
	if err := chat.Run(ctx, m); err != nil {
		a.logger.Error("tui exited", "err", err)
		return err
	}
	a.logger.Info("tui stopped")
	return nil
}
