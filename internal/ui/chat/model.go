// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/eamadorm/alia-tui/internal/commands"
	"github.com/eamadorm/alia-tui/internal/export"
	"github.com/eamadorm/alia-tui/internal/model"
	"github.com/eamadorm/alia-tui/internal/session"
	"github.com/eamadorm/alia-tui/internal/ui/styles"
)

// statusTTL is how long a transient status line stays visible.
const statusTTL = 5 * time.Second

// Options configures the chat model.
type Options struct {
	Theme          *styles.Theme
	ShowTimestamps bool

	// HistoryLimit caps the sidebar listing; 0 shows everything.
	HistoryLimit int

	ExportOptions *export.Options
	ExportFormat  string

	Logger *log.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx    context.Context
	ctrl   *session.Controller
	theme  *styles.Theme
	opts   Options
	logger *log.Logger

	// Dimensions
	width  int
	height int

	// Last controller snapshot and its sequence number
	state    session.State
	stateSeq uint64

	// Sidebar
	listing     []model.ConversationSummary
	listingErr  error
	cursor      int
	hideSidebar bool

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Slash commands
	registry      *commands.Registry
	cmdCtx        *commands.Context
	completer     *commands.Completer
	completions   []string
	completionIdx int

	// notice is command output shown under the transcript until the next send
	notice string

	// Status
	status    string
	statusErr bool
	statusSeq int
}

// New creates a chat model bound to ctrl.
func New(ctx context.Context, ctrl *session.Controller, opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ModeAuto)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Escribe tu consulta o /help"
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = opts.Theme.Spinner

	registry := commands.NewRegistry()
	cmdCtx := commands.NewContext(ctx, ctrl)
	if opts.ExportOptions != nil {
		cmdCtx.ExportOptions = opts.ExportOptions
	}
	if opts.ExportFormat != "" {
		cmdCtx.ExportFormat = opts.ExportFormat
	}
	completer := commands.NewCompleter(registry)
	completer.ConversationsFn = cmdCtx.Listing

	m := Model{
		ctx:       ctx,
		ctrl:      ctrl,
		theme:     opts.Theme,
		opts:      opts,
		logger:    logger.WithPrefix("tui"),
		state:     ctrl.Snapshot(),
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		keyMap:    DefaultKeyMap(),
		registry:  registry,
		cmdCtx:    cmdCtx,
		completer: completer,
	}
	m.refreshViewport()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the first listing fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.refreshListing())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateChangedMsg:
		if msg.Seq != 0 {
			if msg.Seq <= m.stateSeq {
				return m, nil
			}
			m.stateSeq = msg.Seq
		}
		m.state = msg.State
		if m.state.Closed {
			return m, tea.Quit
		}
		m.layout()
		m.refreshViewport()
		return m, nil

	case TurnDoneMsg:
		return m.handleTurnDone(msg)

	case ListingMsg:
		return m.handleListing(msg)

	case LoadDoneMsg:
		if msg.Err != nil {
			return m.setStatus(errorText(msg.Err), true)
		}
		m2, cmd := m.setStatus("Opened conversation "+model.ShortID(msg.ConversationID), false)
		return m2, tea.Batch(cmd, m.refreshListing())

	case CommandDoneMsg:
		return m.handleCommandDone(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the model.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)
	m.layout()
	m.refreshViewport()
	return m, nil
}

// layout sizes the viewport and the input to the space left by the fixed
// rows around them.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	const (
		headerHeight = 2 // title row + bottom border
		inputHeight  = 3 // rounded border around one line
		statusHeight = 1
	)
	reserved := headerHeight + inputHeight + statusHeight
	if len(m.state.Pending) > 0 {
		reserved++
	}
	if len(m.completions) > 0 {
		reserved++
	}

	vpHeight := m.height - reserved
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = vpHeight

	inputWidth := m.width - 4 - len(m.input.Prompt)
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth
}

func (m Model) showSidebar() bool {
	return !m.hideSidebar && m.theme.ShowSidebar()
}

func (m Model) transcriptWidth() int {
	w := m.width
	if m.showSidebar() {
		w -= styles.SidebarWidth + 2
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Complete):
		return m.complete(), nil

	case key.Matches(msg, m.keyMap.NewChat):
		return m.runCommand("/new")

	case key.Matches(msg, m.keyMap.Refresh):
		return m, m.refreshListing()

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.SidebarUp):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keyMap.SidebarDown):
		if m.cursor < len(m.listing)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keyMap.OpenChat):
		return m.openSelected()

	case key.Matches(msg, m.keyMap.Sidebar):
		m.hideSidebar = !m.hideSidebar
		m.layout()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.Detach):
		return m.runCommand("/detach")
	}

	m.completions = nil
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the composer content as a command or as a turn.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.completions = nil

	if commands.IsCommand(text) {
		m.input.Reset()
		return m.runCommand(text)
	}
	if text == "" && len(m.state.Pending) == 0 {
		return m, nil
	}
	if m.state.TurnInProgress {
		return m.setStatus("ALIA is still answering; wait for the reply.", true)
	}

	m.input.Reset()
	m.notice = ""
	return m, m.sendTurn(text)
}

// complete cycles through completions for the command being typed.
func (m Model) complete() Model {
	if len(m.completions) == 0 {
		m.completions = m.completer.CompleteLine(m.input.Value())
		m.completionIdx = 0
	} else {
		m.completionIdx = (m.completionIdx + 1) % len(m.completions)
	}
	if len(m.completions) == 0 {
		return m
	}
	m.input.SetValue(m.completions[m.completionIdx])
	m.input.CursorEnd()
	if len(m.completions) == 1 {
		m.completions = nil
	}
	m.layout()
	return m
}

func (m Model) openSelected() (tea.Model, tea.Cmd) {
	if len(m.listing) == 0 {
		return m.setStatus("No conversations to open.", true)
	}
	if m.state.TurnInProgress {
		return m.setStatus("ALIA is still answering; wait for the reply.", true)
	}
	return m, m.loadConversation(m.listing[m.cursor].ConversationID)
}

func (m Model) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if errors.Is(msg.Err, session.ErrEmptyTurn) {
			return m, nil
		}
		return m.setStatus(errorText(msg.Err), true)
	}

	res := msg.Result
	var text string
	switch {
	case res.OK(), res.Outcome == session.OutcomeDiscarded:
	case res.Outcome == session.OutcomeUploadFailed && res.FailedUpload != nil:
		text = fmt.Sprintf("Upload of %s failed; nothing was sent.", res.FailedUpload.Name)
	default:
		text = "Could not reach ALIA."
	}

	cmds := []tea.Cmd{m.refreshListing()}
	if text != "" {
		var cmd tea.Cmd
		m, cmd = m.statusCmd(text, true)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleListing(msg ListingMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.listingErr = msg.Err
		m.logger.Warn("listing refresh failed", "err", msg.Err)
		return m, nil
	}
	list := msg.List
	if m.opts.HistoryLimit > 0 && len(list) > m.opts.HistoryLimit {
		list = list[:m.opts.HistoryLimit]
	}
	m.listing, m.listingErr = list, nil
	m.cmdCtx.SetListing(list)

	m.cursor = 0
	for i, s := range list {
		if s.ConversationID == m.state.ConversationID {
			m.cursor = i
			break
		}
	}
	return m, nil
}

func (m Model) handleCommandDone(msg CommandDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if msg.Result.Message != "" {
			m.notice = msg.Result.Message
		}
		return m.setStatus(errorText(msg.Err), true)
	}

	res := msg.Result
	if res.Quit {
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	switch {
	case res.Help != "":
		m.notice = res.Help
	case res.ListingUpdated:
		m2, _ := m.handleListing(ListingMsg{List: res.Listing})
		m = m2.(Model)
		m.notice = m.renderListingNotice(res.Listing, res.Message)
	case res.Pending != nil && res.Message == "":
		m.notice = m.renderPendingNotice(res.Pending)
	}
	if res.ConversationChanged {
		cmds = append(cmds, m.refreshListing())
	}
	m.refreshViewport()

	if res.Message != "" {
		var cmd tea.Cmd
		m, cmd = m.statusCmd(res.Message, false)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) sendTurn(text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		res, err := ctrl.Send(ctx, text)
		return TurnDoneMsg{Result: res, Err: err}
	}
}

func (m Model) loadConversation(id string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return LoadDoneMsg{ConversationID: id, Err: ctrl.LoadConversation(ctx, id)}
	}
}

// refreshListing re-queries the registry. The anonymous identity has no
// listing, so nothing is fetched for it.
func (m Model) refreshListing() tea.Cmd {
	if session.IsAnonymous(m.ctrl.UserID()) {
		return nil
	}
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		list, err := ctrl.ListConversations(ctx)
		return ListingMsg{List: list, Err: err}
	}
}

func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	registry, cctx := m.registry, m.cmdCtx
	m.notice = ""
	return m, func() tea.Msg {
		res, _, err := registry.Execute(cctx, input)
		return CommandDoneMsg{Input: input, Result: res, Err: err}
	}
}

// =============================================================================
// STATUS LINE
// =============================================================================

func (m Model) withStatus(text string, isErr bool) Model {
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	return m
}

// statusCmd sets the status line and returns the command that expires it.
func (m Model) statusCmd(text string, isErr bool) (Model, tea.Cmd) {
	if text != "" {
		m = m.withStatus(text, isErr)
	}
	seq := m.statusSeq
	return m, tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m2, cmd := m.statusCmd(text, isErr)
	return m2, cmd
}

// errorText flattens an error to one line for the status bar.
func errorText(err error) string {
	switch {
	case errors.Is(err, session.ErrTurnInProgress):
		return "ALIA is still answering; wait for the reply."
	case errors.Is(err, session.ErrLoggedOut):
		return "The session has ended."
	}
	return strings.ReplaceAll(err.Error(), "\n", " ")
}
