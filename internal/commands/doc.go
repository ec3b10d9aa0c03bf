// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system shared by the TUI and
// the line-mode REPL.
//
// # Key Types
//
//   - Registry: command registry with all built-in commands
//   - Parser: splits input into a command and its arguments
//   - Context: what a handler acts on (the session controller, the last
//     conversation listing, export settings)
//   - Result: what a handler asks the front end to show or do
//   - Completer: tab completion for commands and arguments
//
// # Built-in Commands
//
//   - /new: start a new conversation
//   - /open <id|#>: load a conversation by id or listing number
//   - /history: list the user's conversations
//   - /attach <path>...: queue files for the next message
//   - /detach [n]: drop one queued file, or all of them
//   - /files: show the queued files
//   - /export [format]: write the transcript to a file
//   - /help, /quit
//
// # Usage
//
//	reg := commands.NewRegistry()
//	res, handled, err := reg.Execute(cctx, input)
//	if !handled {
//	    // input is a chat message
//	}
package commands
