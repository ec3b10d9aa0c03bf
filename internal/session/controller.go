// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/eamadorm/alia-tui/internal/api"
	"github.com/eamadorm/alia-tui/internal/attachment"
	"github.com/eamadorm/alia-tui/internal/model"
	"github.com/eamadorm/alia-tui/internal/upload"
)

const (
	// ApologyText is shown in place of a reply when a turn fails.
	ApologyText = "Sorry, I encountered an error connecting to the server."

	// DefaultWelcome is the synthetic first message of every new session.
	DefaultWelcome = "¡Hola! Soy ALIA, tu Asistente Legal de Investigación Avanzada. ¿En qué puedo ayudarte hoy?"
)

var (
	// ErrTurnInProgress is returned when an operation is attempted while a
	// turn or load is running. The call has no effect.
	ErrTurnInProgress = errors.New("a turn is already in progress")

	// ErrEmptyTurn is returned when there is neither text nor attachments.
	ErrEmptyTurn = errors.New("nothing to send")

	// ErrLoggedOut is returned by every operation after Logout.
	ErrLoggedOut = errors.New("session closed")
)

// Backend is the set of service calls the controller makes.
// *api.Client satisfies it.
type Backend interface {
	upload.Gateway
	CreateConversation(ctx context.Context, userID string) (string, error)
	FetchHistory(ctx context.Context, conversationID string) ([]model.HistoryEntry, error)
	ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithWelcome sets the welcome message text.
func WithWelcome(text string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(text) != "" {
			c.welcome = text
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger.WithPrefix("session")
		}
	}
}

// WithUploadContentType sets the content-type mode for attachment uploads.
func WithUploadContentType(mode string) Option {
	return func(c *Controller) {
		c.contentType = mode
	}
}

// Controller owns one session's state and sequences every network-backed
// operation on it. All methods are safe to call from multiple goroutines.
type Controller struct {
	backend     Backend
	uploader    *upload.Uploader
	logger      *log.Logger
	welcome     string
	contentType string

	mu    sync.Mutex
	state State
	queue attachment.Queue

	// epoch changes whenever the state is replaced, so a turn that outlives
	// a logout does not write into the torn-down state.
	epoch uint64

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// New creates a controller for userID with a fresh state.
func New(backend Backend, userID string, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		logger:  log.New(io.Discard),
		welcome: DefaultWelcome,
		subs:    make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.uploader = upload.NewUploader(backend).
		WithContentType(c.contentType).
		WithLogger(c.logger)

	c.state = State{
		UserID:   userID,
		Messages: []*model.Message{model.NewWelcomeMessage(c.welcome)},
	}
	return c
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Pending = c.queue.Items()
	return s.clone()
}

// UserID returns the identity the session acts for.
func (c *Controller) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.UserID
}

// Busy reports whether a turn or load is running.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.TurnInProgress
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not block.
// The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// notify publishes a fresh snapshot. Must be called without c.mu held.
func (c *Controller) notify() {
	c.subMu.Lock()
	if len(c.subs) == 0 {
		c.subMu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	snap := c.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// StartNewConversation abandons the active conversation and resets the
// transcript to the welcome message. It makes no network call.
func (c *Controller) StartNewConversation() error {
	c.mu.Lock()
	if err := c.admitLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.resetLocked()
	c.mu.Unlock()

	c.logger.Info("new conversation")
	c.notify()
	return nil
}

func (c *Controller) resetLocked() {
	c.epoch++
	c.state.ConversationID = ""
	c.state.Messages = []*model.Message{model.NewWelcomeMessage(c.welcome)}
	c.state.TurnInProgress = false
	c.queue.Clear()
}

// LoadConversation replaces the transcript with the server history of id and
// makes it the active conversation. On failure the state is left exactly as
// it was and the returned error matches api.ErrConnection.
func (c *Controller) LoadConversation(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("conversation id is required")
	}

	c.mu.Lock()
	if err := c.admitLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state.TurnInProgress = true
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	start := time.Now()
	entries, err := c.backend.FetchHistory(ctx, id)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrLoggedOut
	}
	c.state.TurnInProgress = false
	if err == nil {
		c.epoch++
		c.state.ConversationID = id
		c.state.Messages = model.MessagesFromHistory(entries)
		c.queue.Clear()
	}
	c.mu.Unlock()
	c.notify()

	if err != nil {
		c.logger.Warn("load conversation failed", "conversation", model.ShortID(id), "err", err)
		return fmt.Errorf("load conversation %s: %w", model.ShortID(id), err)
	}
	c.logger.Info("conversation loaded", "conversation", model.ShortID(id), "messages", len(entries), "duration", time.Since(start))
	return nil
}

// ListConversations returns the registry listing for the session's user as
// the service ordered it. It does not touch the session state. The anonymous
// identity has no listing.
func (c *Controller) ListConversations(ctx context.Context) ([]model.ConversationSummary, error) {
	c.mu.Lock()
	closed, userID := c.state.Closed, c.state.UserID
	c.mu.Unlock()

	if closed {
		return nil, ErrLoggedOut
	}
	if IsAnonymous(userID) {
		return nil, nil
	}

	list, err := c.backend.ListConversations(ctx, userID)
	if err != nil {
		c.logger.Warn("list conversations failed", "err", err)
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return list, nil
}

// Logout tears the session down. A turn still running when Logout is called
// finishes its network calls but its outcome is discarded.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.epoch++
	c.state = State{Closed: true}
	c.queue.Clear()
	c.mu.Unlock()

	c.logger.Info("session closed")
	c.notify()
}

// admitLocked applies the admission rule shared by every state-replacing
// operation.
func (c *Controller) admitLocked() error {
	if c.state.Closed {
		return ErrLoggedOut
	}
	if c.state.TurnInProgress {
		return ErrTurnInProgress
	}
	return nil
}

// =============================================================================
// PENDING ATTACHMENTS
// =============================================================================

// QueueAttachment validates path and adds it to the pending queue. A
// rejected file leaves the queue unchanged and makes no network call.
func (c *Controller) QueueAttachment(path string) (attachment.Pending, error) {
	c.mu.Lock()
	if c.state.Closed {
		c.mu.Unlock()
		return attachment.Pending{}, ErrLoggedOut
	}
	p, err := c.queue.Add(path)
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("attachment rejected", "path", path, "err", err)
		return attachment.Pending{}, err
	}
	c.notify()
	return p, nil
}

// Pending returns the queued attachments in selection order.
func (c *Controller) Pending() []attachment.Pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Items()
}

// RemoveAttachment drops the queued attachment at index i.
func (c *Controller) RemoveAttachment(i int) error {
	c.mu.Lock()
	err := c.queue.Remove(i)
	c.mu.Unlock()
	if err == nil {
		c.notify()
	}
	return err
}

// ClearAttachments empties the pending queue.
func (c *Controller) ClearAttachments() {
	c.mu.Lock()
	c.queue.Clear()
	c.mu.Unlock()
	c.notify()
}

// =============================================================================
// TURNS
// =============================================================================

// Send submits text together with the controller's pending queue. The queue
// is emptied only if the turn is admitted.
func (c *Controller) Send(ctx context.Context, text string) (TurnResult, error) {
	return c.submit(ctx, text, nil, true)
}

// SubmitTurn runs one turn with the given attachments. It returns an error
// only when the turn is not admitted (ErrTurnInProgress, ErrEmptyTurn,
// ErrLoggedOut); network failures are recorded in the transcript and
// described by the TurnResult.
func (c *Controller) SubmitTurn(ctx context.Context, text string, pending []attachment.Pending) (TurnResult, error) {
	return c.submit(ctx, text, pending, false)
}

func (c *Controller) submit(ctx context.Context, text string, pending []attachment.Pending, fromQueue bool) (TurnResult, error) {
	start := time.Now()

	c.mu.Lock()
	if err := c.admitLocked(); err != nil {
		c.mu.Unlock()
		return TurnResult{}, err
	}
	if fromQueue {
		pending = c.queue.Items()
	}
	if strings.TrimSpace(text) == "" && len(pending) == 0 {
		c.mu.Unlock()
		return TurnResult{}, ErrEmptyTurn
	}
	if fromQueue {
		c.queue.Clear()
	}
	pending = append([]attachment.Pending(nil), pending...)

	c.state.Messages = append(c.state.Messages, model.NewUserMessage(text, attachment.Names(pending)))
	c.state.TurnInProgress = true
	epoch := c.epoch
	userID := c.state.UserID
	conversationID := c.state.ConversationID
	c.mu.Unlock()
	c.notify()

	res := c.runTurn(ctx, epoch, userID, conversationID, text, pending)
	res.Duration = time.Since(start)

	c.logger.Info("turn finished",
		"outcome", string(res.Outcome),
		"conversation", model.ShortID(res.ConversationID),
		"attachments", len(pending),
		"queries", res.Queries,
		"duration", res.Duration,
	)
	return res, nil
}

// runTurn performs the network steps of an admitted turn and always clears
// the in-progress flag before returning.
func (c *Controller) runTurn(ctx context.Context, epoch uint64, userID, conversationID, text string, pending []attachment.Pending) TurnResult {
	res := TurnResult{ConversationID: conversationID}

	if conversationID == "" {
		id, err := c.backend.CreateConversation(ctx, userID)
		if err != nil {
			res.Outcome, res.Err = OutcomeCreateFailed, err
			c.finish(epoch, &res, model.NewErrorMessage(ApologyText))
			return res
		}
		if !c.adoptConversation(epoch, id) {
			res.Outcome = OutcomeDiscarded
			return res
		}
		res.ConversationID, res.Created = id, true
		conversationID = id
	}

	refs, failed := c.uploader.UploadAll(ctx, pending, userID, conversationID)
	res.Documents = refs
	if failed != nil {
		res.Outcome, res.FailedUpload, res.Err = OutcomeUploadFailed, failed, failed.Err
		c.finish(epoch, &res, model.NewErrorMessage(ApologyText))
		return res
	}

	docs := make([]api.Document, len(refs))
	for i, ref := range refs {
		docs[i] = api.Document{StorageURI: ref.StorageURI}
	}
	resp, err := c.backend.Chat(ctx, api.ChatRequest{
		Message:        text,
		UserID:         userID,
		ConversationID: conversationID,
		Documents:      docs,
	})
	if err != nil {
		res.Outcome, res.Err = OutcomeChatFailed, err
		c.finish(epoch, &res, model.NewErrorMessage(ApologyText))
		return res
	}

	if resp.ConversationID != "" && resp.ConversationID != conversationID {
		c.logger.Warn("assistant replied for a different conversation",
			"expected", model.ShortID(conversationID), "got", model.ShortID(resp.ConversationID))
	}
	res.Outcome = OutcomeReplied
	res.Queries = len(resp.QueriesExecuted)
	c.finish(epoch, &res, model.NewAgentMessage(resp.Response, resp.Charts))
	return res
}

// adoptConversation records the issued id. It reports false when the state
// was torn down while the id was being created.
func (c *Controller) adoptConversation(epoch uint64, id string) bool {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	c.state.ConversationID = id
	c.mu.Unlock()

	c.logger.Info("conversation created", "conversation", model.ShortID(id))
	c.notify()
	return true
}

// finish appends the closing message and clears the in-progress flag.
func (c *Controller) finish(epoch uint64, res *TurnResult, msg *model.Message) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		res.Outcome = OutcomeDiscarded
		return
	}
	c.state.Messages = append(c.state.Messages, msg)
	c.state.TurnInProgress = false
	c.mu.Unlock()

	if res.Err != nil {
		c.logger.Warn("turn failed", "outcome", string(res.Outcome), "err", res.Err)
	}
	c.notify()
}
