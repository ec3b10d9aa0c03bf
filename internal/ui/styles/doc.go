// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colours and lipgloss styles shared by the TUI and
the line-mode REPL.

All colours are lipgloss AdaptiveColor values, so one palette serves light
and dark terminals. NewTheme resolves the terminal's colour profile with
termenv and lets configuration force a light or dark background.

	theme := styles.NewTheme("auto")
	fmt.Println(theme.AgentLabel.Render("ALIA"))
	fmt.Println(styles.RenderError("could not reach the server"))
*/
package styles
