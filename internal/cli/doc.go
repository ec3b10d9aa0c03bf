// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the alia command tree.
//
// Commands:
//
//	alia                 Full-screen chat (line mode when not on a terminal)
//	alia chat            Line-mode chat with history and tab completion
//	alia history         List your conversations
//	alia show <id>       Print or export a conversation
//	alia config          Show, locate, initialise or edit the config file
//	alia status          Check that the assistant service is reachable
//
// Every command loads configuration, applies --user and --api-url, wires
// logging, the API client and a session controller, and tears them down on
// return.
package cli
