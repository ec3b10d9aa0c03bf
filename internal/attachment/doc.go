// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment validates and queues files selected for the next turn.
//
// The accepted extension table in this package is the only client-side copy
// of the list; the service enforces the same list on its side. The golden
// file under testdata pins the set so a change has to be made on purpose and
// mirrored server-side.
//
// # Key Types
//
//   - Pending: a validated, not yet uploaded local file
//   - Queue: ordered pending attachments for the composer
//   - RejectionError: returned when an extension is not accepted
//
// # Usage
//
//	var q attachment.Queue
//	if err := q.Add("contrato.pdf"); errors.Is(err, attachment.ErrExtensionNotAllowed) {
//	    // show rejection notice, queue unchanged
//	}
package attachment
