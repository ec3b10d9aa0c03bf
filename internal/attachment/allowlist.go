// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Category groups accepted extensions for display.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryText     Category = "text"
	CategoryImage    Category = "image"
	CategoryAudio    Category = "audio"
	CategoryVideo    Category = "video"
)

// GenericContentType is declared for uploads unless per-type declaration is enabled.
const GenericContentType = "application/octet-stream"

type entry struct {
	category    Category
	contentType string
}

// accepted is the extension allow-list. Keys are lower-case, without the dot.
var accepted = map[string]entry{
	// Documents
	"pdf":  {CategoryDocument, "application/pdf"},
	"doc":  {CategoryDocument, "application/msword"},
	"docx": {CategoryDocument, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	"odt":  {CategoryDocument, "application/vnd.oasis.opendocument.text"},
	"rtf":  {CategoryDocument, "application/rtf"},
	"xls":  {CategoryDocument, "application/vnd.ms-excel"},
	"xlsx": {CategoryDocument, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	"pptx": {CategoryDocument, "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	// Text
	"txt":  {CategoryText, "text/plain"},
	"md":   {CategoryText, "text/markdown"},
	"csv":  {CategoryText, "text/csv"},
	"json": {CategoryText, "application/json"},
	"html": {CategoryText, "text/html"},
	"xml":  {CategoryText, "application/xml"},
	// Images
	"png":  {CategoryImage, "image/png"},
	"jpg":  {CategoryImage, "image/jpeg"},
	"jpeg": {CategoryImage, "image/jpeg"},
	"gif":  {CategoryImage, "image/gif"},
	"webp": {CategoryImage, "image/webp"},
	"bmp":  {CategoryImage, "image/bmp"},
	"tif":  {CategoryImage, "image/tiff"},
	"tiff": {CategoryImage, "image/tiff"},
	// Short-form audio
	"mp3":  {CategoryAudio, "audio/mpeg"},
	"wav":  {CategoryAudio, "audio/wav"},
	"m4a":  {CategoryAudio, "audio/mp4"},
	"ogg":  {CategoryAudio, "audio/ogg"},
	"flac": {CategoryAudio, "audio/flac"},
	// Short-form video
	"mp4":  {CategoryVideo, "video/mp4"},
	"mov":  {CategoryVideo, "video/quicktime"},
	"webm": {CategoryVideo, "video/webm"},
	"mpeg": {CategoryVideo, "video/mpeg"},
}

// ErrExtensionNotAllowed indicates a file whose extension is not accepted.
var ErrExtensionNotAllowed = errors.New("file type not allowed")

// RejectionError describes a rejected file.
type RejectionError struct {
	Name string
	Ext  string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("%s: file has no extension", e.Name)
	}
	return fmt.Sprintf("%s: .%s files are not allowed", e.Name, e.Ext)
}

// Unwrap lets errors.Is match ErrExtensionNotAllowed.
func (e *RejectionError) Unwrap() error {
	return ErrExtensionNotAllowed
}

// Extension returns the lower-cased suffix after the last dot, or "".
func Extension(name string) string {
	ext := filepath.Ext(filepath.Base(name))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// CategoryOf returns the category of an accepted extension.
func CategoryOf(ext string) (Category, bool) {
	e, ok := accepted[strings.ToLower(ext)]
	return e.category, ok
}

// ContentType returns the media type of an accepted extension, or
// GenericContentType when the extension is unknown.
func ContentType(ext string) string {
	if e, ok := accepted[strings.ToLower(ext)]; ok && e.contentType != "" {
		return e.contentType
	}
	return GenericContentType
}

// Allowed reports whether the file name carries an accepted extension.
func Allowed(name string) bool {
	_, ok := accepted[Extension(name)]
	return ok
}

// Check validates a file name against the allow-list.
func Check(name string) error {
	ext := Extension(name)
	if _, ok := accepted[ext]; !ok {
		return &RejectionError{Name: filepath.Base(name), Ext: ext}
	}
	return nil
}

// Extensions returns the accepted extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(accepted))
	for ext := range accepted {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Describe renders the accepted set grouped by category, e.g. for help text.
func Describe() string {
	groups := map[Category][]string{}
	for _, ext := range Extensions() {
		c := accepted[ext].category
		groups[c] = append(groups[c], ext)
	}
	order := []Category{CategoryDocument, CategoryText, CategoryImage, CategoryAudio, CategoryVideo}
	var b strings.Builder
	for _, c := range order {
		if len(groups[c]) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", c, strings.Join(groups[c], ", "))
	}
	return b.String()
}
