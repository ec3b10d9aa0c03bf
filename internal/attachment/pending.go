// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// Pending is a local file queued for the next turn.
// It exists only between selection and turn submission; it is never persisted.
type Pending struct {
	// Path is the local file path.
	Path string

	// Name is the display name (base name, NFC-normalised).
	Name string

	// Ext is the lower-cased extension without the dot.
	Ext string

	// Size is the file size in bytes at queue time.
	Size int64
}

// NewPending validates a local file and returns it as a pending attachment.
// The extension check runs before the filesystem is touched.
func NewPending(path string) (Pending, error) {
	if err := Check(path); err != nil {
		return Pending{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Pending{}, fmt.Errorf("attachment %s: %w", filepath.Base(path), err)
	}
	if !info.Mode().IsRegular() {
		return Pending{}, fmt.Errorf("attachment %s: not a regular file", filepath.Base(path))
	}

	return Pending{
		Path: path,
		Name: norm.NFC.String(filepath.Base(path)),
		Ext:  Extension(path),
		Size: info.Size(),
	}, nil
}

// Open opens the file for reading and returns its current size.
func (p Pending) Open() (io.ReadCloser, int64, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// =============================================================================
// QUEUE
// =============================================================================

// Queue holds pending attachments in the order the user added them.
// The zero value is an empty queue.
type Queue struct {
	items []Pending
}

// Add validates and appends a file. On rejection the queue is unchanged.
func (q *Queue) Add(path string) (Pending, error) {
	p, err := NewPending(path)
	if err != nil {
		return Pending{}, err
	}
	q.items = append(q.items, p)
	return p, nil
}

// Remove drops the attachment at index i.
func (q *Queue) Remove(i int) error {
	if i < 0 || i >= len(q.items) {
		return fmt.Errorf("no attachment at position %d", i+1)
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	return nil
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.items = nil
}

// Len returns the number of queued attachments.
func (q *Queue) Len() int {
	return len(q.items)
}

// Items returns a copy of the queued attachments.
func (q *Queue) Items() []Pending {
	return append([]Pending(nil), q.items...)
}

// Names returns the display names of the queued attachments, in order.
func Names(items []Pending) []string {
	if len(items) == 0 {
		return nil
	}
	names := make([]string, len(items))
	for i, p := range items {
		names[i] = p.Name
	}
	return names
}
