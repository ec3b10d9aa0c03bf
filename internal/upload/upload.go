// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload moves pending attachments into object storage.
//
// Each attachment takes two steps: request a signed upload target, then
// transfer the bytes to it. Upload reports either a document reference or the
// stage that failed. Objects already transferred are never rolled back.
package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/eamadorm/alia-tui/internal/api"
	"github.com/eamadorm/alia-tui/internal/attachment"
)

// Stage identifies where an upload failed.
type Stage string

const (
	StageOpen     Stage = "open"
	StageTarget   Stage = "upload target"
	StageTransfer Stage = "transfer"
)

// Content-type modes accepted by WithContentType.
const (
	ContentTypeGeneric     = "generic"
	ContentTypeByExtension = "by-extension"
)

// Gateway is the storage side of the service.
type Gateway interface {
	RequestUploadTarget(ctx context.Context, req api.UploadTargetRequest) (api.UploadTarget, error)
	PutObject(ctx context.Context, uploadURL string, body io.Reader, size int64, contentType string) error
}

// DocumentRef points at an uploaded object. It is handed to exactly one
// assistant call and then discarded.
type DocumentRef struct {
	StorageURI string
}

// Error is a failed upload, tagged with its stage.
type Error struct {
	Name  string
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("upload %s failed at %s: %v", e.Name, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Result is the outcome of one attachment upload: a reference on success,
// otherwise Err is set.
type Result struct {
	Name string
	Ref  DocumentRef
	Err  *Error
}

// OK reports whether the upload succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Uploader runs two-phase uploads against a Gateway.
type Uploader struct {
	gateway     Gateway
	contentType string
	logger      *log.Logger
}

// NewUploader creates an uploader that declares the generic content type.
func NewUploader(gw Gateway) *Uploader {
	return &Uploader{
		gateway:     gw,
		contentType: ContentTypeGeneric,
		logger:      log.New(io.Discard),
	}
}

// WithContentType sets how the upload content type is chosen:
// "generic" (or empty), "by-extension", or a literal media type.
func (u *Uploader) WithContentType(mode string) *Uploader {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		mode = ContentTypeGeneric
	}
	u.contentType = mode
	return u
}

// WithLogger sets the logger.
func (u *Uploader) WithLogger(logger *log.Logger) *Uploader {
	if logger != nil {
		u.logger = logger.WithPrefix("upload")
	}
	return u
}

// contentTypeFor resolves the declared content type for an extension.
func (u *Uploader) contentTypeFor(ext string) string {
	switch u.contentType {
	case ContentTypeGeneric:
		return attachment.GenericContentType
	case ContentTypeByExtension:
		return attachment.ContentType(ext)
	default:
		return u.contentType
	}
}

// Upload requests a target for p and transfers its bytes.
func (u *Uploader) Upload(ctx context.Context, p attachment.Pending, userID, conversationID string) Result {
	res := Result{Name: p.Name}
	fail := func(stage Stage, err error) Result {
		u.logger.Warn("upload failed", "file", p.Name, "stage", string(stage), "err", err)
		res.Err = &Error{Name: p.Name, Stage: stage, Err: err}
		return res
	}

	contentType := u.contentTypeFor(p.Ext)
	target, err := u.gateway.RequestUploadTarget(ctx, api.UploadTargetRequest{
		Filename:       p.Name,
		ContentType:    contentType,
		UserID:         userID,
		ConversationID: conversationID,
	})
	if err != nil {
		return fail(StageTarget, err)
	}

	f, size, err := p.Open()
	if err != nil {
		return fail(StageOpen, err)
	}
	defer f.Close()

	if err := u.gateway.PutObject(ctx, target.UploadURL, f, size, contentType); err != nil {
		return fail(StageTransfer, err)
	}

	u.logger.Debug("uploaded", "file", p.Name, "bytes", size, "uri", target.StorageURI)
	res.Ref = DocumentRef{StorageURI: target.StorageURI}
	return res
}

// UploadAll uploads items one at a time in order and stops at the first
// failure. It returns the references obtained so far and the failed result,
// if any.
func (u *Uploader) UploadAll(ctx context.Context, items []attachment.Pending, userID, conversationID string) ([]DocumentRef, *Result) {
	refs := make([]DocumentRef, 0, len(items))
	for _, p := range items {
		res := u.Upload(ctx, p, userID, conversationID)
		if !res.OK() {
			return refs, &res
		}
		refs = append(refs, res.Ref)
	}
	return refs, nil
}
