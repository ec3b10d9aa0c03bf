// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the alia packages.
//
// # Key Functions
//
// Text:
//   - TruncateWidth: display-width aware truncation with ellipsis
//   - PadRight: pad to a display width
//   - HumanSize: byte counts for attachment chips
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - ExpandHome: resolve a leading "~/" against the home directory
//
// # Usage
//
//	label := util.TruncateWidth(preview, 40)
//	err := util.AtomicWriteFile(path, data, 0o600)
package util
