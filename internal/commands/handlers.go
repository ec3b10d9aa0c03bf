// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/eamadorm/alia-tui/internal/attachment"
	"github.com/eamadorm/alia-tui/internal/export"
	"github.com/eamadorm/alia-tui/internal/model"
	"github.com/eamadorm/alia-tui/internal/session"
	"github.com/eamadorm/alia-tui/internal/util"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Context is what command handlers act on. It must not be copied after use.
type Context struct {
	// Ctx bounds network calls made by handlers.
	Ctx context.Context

	// Session is the controller of the active session.
	Session *session.Controller

	// ExportOptions and ExportFormat are the defaults for /export.
	ExportOptions *export.Options
	ExportFormat  string

	mu      sync.Mutex
	listing []model.ConversationSummary
}

// NewContext creates a handler context for ctrl.
func NewContext(ctx context.Context, ctrl *session.Controller) *Context {
	return &Context{
		Ctx:           ctx,
		Session:       ctrl,
		ExportOptions: export.DefaultOptions(),
		ExportFormat:  string(export.FormatMarkdown),
	}
}

// Listing returns the conversation listing last shown to the user.
func (c *Context) Listing() []model.ConversationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ConversationSummary(nil), c.listing...)
}

// SetListing records the listing that /open numbers refer to.
func (c *Context) SetListing(list []model.ConversationSummary) {
	c.mu.Lock()
	c.listing = append([]model.ConversationSummary(nil), list...)
	c.mu.Unlock()
}

func (c *Context) ctx() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// =============================================================================
// HANDLER RESULT
// =============================================================================

// Result tells the front end what to show after a command.
type Result struct {
	// Message is a one-line confirmation.
	Message string

	// Help is the rendered command reference.
	Help string

	// Listing is set by /history.
	Listing        []model.ConversationSummary
	ListingUpdated bool

	// Pending is set by the attachment commands.
	Pending []attachment.Pending

	// ExportPath is the file written by /export.
	ExportPath string

	// ConversationChanged is set when the active conversation was replaced.
	ConversationChanged bool

	// Quit asks the front end to exit.
	Quit bool
}

// =============================================================================
// CONVERSATION HANDLERS
// =============================================================================

func handleNew(ctx *Context, args []string) (Result, error) {
	if err := ctx.Session.StartNewConversation(); err != nil {
		return Result{}, err
	}
	return Result{Message: "Started a new conversation.", ConversationChanged: true}, nil
}

func handleOpen(ctx *Context, args []string) (Result, error) {
	id, err := ctx.resolveConversation(args[0])
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Session.LoadConversation(ctx.ctx(), id); err != nil {
		return Result{}, err
	}
	snap := ctx.Session.Snapshot()
	return Result{
		Message:             fmt.Sprintf("Opened conversation %s (%d messages).", model.ShortID(id), len(snap.Messages)),
		ConversationChanged: true,
	}, nil
}

// resolveConversation accepts a conversation id or a 1-based position in
// the last listing.
func (c *Context) resolveConversation(arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}
	list := c.Listing()
	if len(list) == 0 {
		return "", errors.New("no listing yet; run /history first or pass a conversation id")
	}
	if n < 1 || n > len(list) {
		return "", fmt.Errorf("no conversation #%d (listing has %d)", n, len(list))
	}
	return list[n-1].ConversationID, nil
}

func handleHistory(ctx *Context, args []string) (Result, error) {
	if session.IsAnonymous(ctx.Session.UserID()) {
		return Result{Message: "Conversation history needs a user id (--user or identity.user_id)."}, nil
	}
	list, err := ctx.Session.ListConversations(ctx.ctx())
	if err != nil {
		return Result{}, err
	}
	ctx.SetListing(list)

	res := Result{Listing: list, ListingUpdated: true}
	if len(list) == 0 {
		res.Message = "No conversations yet."
	}
	return res, nil
}

func handleExport(ctx *Context, args []string) (Result, error) {
	format := ctx.ExportFormat
	if len(args) > 0 {
		format = args[0]
	}
	exporter, err := export.ForFormat(format, ctx.ExportOptions)
	if err != nil {
		return Result{}, err
	}

	snap := ctx.Session.Snapshot()
	t := export.NewTranscript(snap.ConversationID, snap.UserID, snap.Messages)
	path, err := export.ExportToFile(t, exporter, ctx.ExportOptions)
	if err != nil {
		return Result{}, err
	}
	return Result{Message: "Exported to " + path, ExportPath: path}, nil
}

// =============================================================================
// ATTACHMENT HANDLERS
// =============================================================================

func handleAttach(ctx *Context, args []string) (Result, error) {
	var added []string
	for _, path := range args {
		path, err := util.ExpandHome(path)
		if err != nil {
			return Result{}, err
		}
		p, err := ctx.Session.QueueAttachment(path)
		if err != nil {
			res := Result{Pending: ctx.Session.Pending()}
			if len(added) > 0 {
				res.Message = "Attached " + strings.Join(added, ", ")
			}
			if errors.Is(err, attachment.ErrExtensionNotAllowed) {
				err = fmt.Errorf("%w\naccepted: %s", err, attachment.Describe())
			}
			return res, err
		}
		added = append(added, fmt.Sprintf("%s (%s)", p.Name, util.HumanSize(p.Size)))
	}
	return Result{
		Message: "Attached " + strings.Join(added, ", "),
		Pending: ctx.Session.Pending(),
	}, nil
}

func handleDetach(ctx *Context, args []string) (Result, error) {
	if len(args) == 0 {
		ctx.Session.ClearAttachments()
		return Result{Message: "Removed all queued files."}, nil
	}

	n, err := strconv.Atoi(args[0])
	if err != nil {
		return Result{}, fmt.Errorf("/detach: %q is not a number", args[0])
	}
	pending := ctx.Session.Pending()
	if n < 1 || n > len(pending) {
		return Result{}, fmt.Errorf("/detach: no queued file #%d", n)
	}
	if err := ctx.Session.RemoveAttachment(n - 1); err != nil {
		return Result{}, err
	}
	return Result{
		Message: "Removed " + pending[n-1].Name,
		Pending: ctx.Session.Pending(),
	}, nil
}

func handleFiles(ctx *Context, args []string) (Result, error) {
	pending := ctx.Session.Pending()
	if len(pending) == 0 {
		return Result{Message: "No files queued."}, nil
	}
	return Result{Pending: pending}, nil
}
