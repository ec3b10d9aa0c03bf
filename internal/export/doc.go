// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a session transcript to a file.
//
// # Key Types
//
//   - Transcript: conversation id, identity and ordered messages
//   - Exporter: format interface (Markdown, JSON, YAML)
//   - Options: export configuration
//
// # Usage
//
//	t := export.NewTranscript(state.ConversationID, state.UserID, state.Messages)
//	exporter, err := export.ForFormat("markdown", nil)
//	path, err := export.ExportToFile(t, exporter, opts)
package export
