// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/eamadorm/alia-tui/internal/commands"
	"github.com/eamadorm/alia-tui/internal/config"
	"github.com/eamadorm/alia-tui/internal/model"
	"github.com/eamadorm/alia-tui/internal/session"
	"github.com/eamadorm/alia-tui/internal/ui/styles"
	"github.com/eamadorm/alia-tui/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	userLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Teal).
			Bold(true)

	agentLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Navy).
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(styles.Gold).
			Bold(true)
)

// =============================================================================
// COMMAND
// =============================================================================

func newChatCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with ALIA in line mode",
		Long: `Start a line-mode conversation with ALIA.

Type a question and press Enter. Lines starting with / are commands:
  /new, /open <id|#>, /history, /attach <path>..., /detach [n],
  /files, /export [format], /help, /quit

Arrow keys browse input history; Tab completes commands, conversation ids
and file paths. Ctrl+D exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags)
		},
	}
}

// runChat runs the line-mode REPL on the process terminal.
func runChat(cmd *cobra.Command, flags *globalFlags) error {
	a, err := newApp(cmd, flags, logToStderr)
	if err != nil {
		return err
	}
	defer a.Close()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	historyPath, err := config.HistoryFilePath()
	if err != nil {
		a.logger.Warn("input history disabled", "err", err)
	} else {
		loadHistory(line, historyPath)
	}
	defer func() {
		if historyPath != "" {
			saveHistory(line, historyPath, a.logger)
		}
		line.Close()
	}()

	r := newREPL(cmd.Context(), a, line, cmd.OutOrStdout())
	line.SetCompleter(r.completer.CompleteLine)
	return r.run(cmd.Context())
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

func loadHistory(line *liner.State, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	line.ReadHistory(f)
}

// saveHistory persists input history with owner-only permissions.
func saveHistory(line *liner.State, path string, logger *log.Logger) {
	var buf bytes.Buffer
	if _, err := line.WriteHistory(&buf); err != nil {
		logger.Warn("could not serialise input history", "err", err)
		return
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		logger.Warn("could not save input history", "path", path, "err", err)
	}
}

// =============================================================================
// REPL
// =============================================================================

// lineReader is the prompt side of liner.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// repl is the line-mode conversation loop.
type repl struct {
	ctrl      *session.Controller
	registry  *commands.Registry
	cmdCtx    *commands.Context
	completer *commands.Completer
	in        lineReader
	out       io.Writer
	logger    *log.Logger
	width     int
}

func newREPL(ctx context.Context, a *app, in lineReader, out io.Writer) *repl {
	registry := commands.NewRegistry()
	cmdCtx := commands.NewContext(ctx, a.ctrl)
	cmdCtx.ExportOptions = a.exportOptions()
	cmdCtx.ExportFormat = a.cfg.Export.Format

	completer := commands.NewCompleter(registry)
	completer.ConversationsFn = cmdCtx.Listing

	return &repl{
		ctrl:      a.ctrl,
		registry:  registry,
		cmdCtx:    cmdCtx,
		completer: completer,
		in:        in,
		out:       out,
		logger:    a.logger,
		width:     terminalWidth(),
	}
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, headingStyle.Render("ALIA: Asistente Legal de Investigación Avanzada"))
	if session.IsAnonymous(r.ctrl.UserID()) {
		fmt.Fprintln(r.out, styles.RenderMuted("Chatting anonymously; pass --user to keep your conversations."))
	}
	r.printMessages(r.ctrl.Snapshot().Messages)

	for {
		input, err := r.in.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if r.handle(ctx, input) {
			return nil
		}
	}
}

// prompt shows the active conversation and the number of queued files.
func (r *repl) prompt() string {
	st := r.ctrl.Snapshot()
	p := "alia"
	if st.HasConversation() {
		p += "[" + st.ShortID() + "]"
	}
	if n := len(st.Pending); n > 0 {
		p += fmt.Sprintf(" +%d", n)
	}
	return p + "> "
}

// handle runs one input line and reports whether the loop should end.
func (r *repl) handle(ctx context.Context, input string) bool {
	if commands.IsCommand(input) {
		res, _, err := r.registry.Execute(r.cmdCtx, input)
		r.printResult(res, err)
		return res.Quit
	}

	fmt.Fprintln(r.out, styles.RenderMuted("ALIA is thinking..."))
	res, err := r.ctrl.Send(ctx, input)
	if err != nil {
		fmt.Fprintln(r.out, styles.RenderError(errorLine(err)))
		return false
	}
	r.printTurn(res)
	return false
}

func (r *repl) printTurn(res session.TurnResult) {
	if res.Outcome == session.OutcomeDiscarded {
		return
	}
	if last := r.ctrl.Snapshot().LastMessage(); last != nil && last.Role == model.RoleAgent {
		r.printMessage(last)
	}
	if res.Outcome == session.OutcomeUploadFailed && res.FailedUpload != nil {
		fmt.Fprintln(r.out, styles.RenderWarning(fmt.Sprintf("Upload of %s failed; nothing was sent.", res.FailedUpload.Name)))
	}
	r.logger.Debug("turn finished", "outcome", res.Outcome, "duration", res.Duration)
}

func (r *repl) printResult(res commands.Result, err error) {
	if res.Message != "" && err != nil {
		fmt.Fprintln(r.out, res.Message)
	}
	if err != nil {
		fmt.Fprintln(r.out, styles.RenderError(errorLine(err)))
		return
	}

	switch {
	case res.Help != "":
		fmt.Fprint(r.out, res.Help)
	case res.ListingUpdated:
		printListing(r.out, res.Listing)
	case res.Pending != nil:
		for i, p := range res.Pending {
			fmt.Fprintf(r.out, "%3d  %s  %s\n", i+1, p.Name, util.HumanSize(p.Size))
		}
	}

	if res.ConversationChanged {
		r.printMessages(r.ctrl.Snapshot().Messages)
	}
	if res.Message != "" {
		fmt.Fprintln(r.out, styles.RenderSuccess(res.Message))
	}
}

func (r *repl) printMessages(msgs []*model.Message) {
	for _, msg := range msgs {
		r.printMessage(msg)
	}
}

func (r *repl) printMessage(msg *model.Message) {
	fmt.Fprintln(r.out, renderMessage(msg, r.width))
}

// =============================================================================
// RENDERING
// =============================================================================

// renderMessage formats one transcript message for line output.
func renderMessage(msg *model.Message, width int) string {
	var label string
	switch {
	case msg.IsError():
		label = styles.RenderError(msg.Role.DisplayName())
	case msg.Role == model.RoleUser:
		label = userLabelStyle.Render(msg.Role.DisplayName())
	default:
		label = agentLabelStyle.Render(msg.Role.DisplayName())
	}

	var sb strings.Builder
	sb.WriteString(label)
	if !msg.Timestamp.IsZero() {
		sb.WriteString(" ")
		sb.WriteString(styles.RenderMuted(msg.Timestamp.Local().Format("15:04")))
	}
	sb.WriteString("\n")

	body := strings.TrimSpace(msg.Content)
	if body != "" {
		sb.WriteString(lipgloss.NewStyle().Width(width - 2).PaddingLeft(2).Render(body))
		sb.WriteString("\n")
	}
	if len(msg.Attachments) > 0 {
		sb.WriteString(styles.RenderMuted("  attachments: " + strings.Join(msg.Attachments, ", ")))
		sb.WriteString("\n")
	}
	if msg.HasCharts() {
		sb.WriteString(styles.RenderMuted(fmt.Sprintf("  [%d chart(s) not shown; use /export json]", len(msg.Charts))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func printListing(out io.Writer, list []model.ConversationSummary) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No conversations yet.")
		return
	}
	for i, s := range list {
		date := ""
		if !s.CreatedAt.IsZero() {
			date = s.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%3d  %s  %s\n", i+1, s.ConversationID, date)
	}
}

// errorLine flattens an error to one line.
func errorLine(err error) string {
	switch {
	case errors.Is(err, session.ErrTurnInProgress):
		return "ALIA is still answering; wait for the reply."
	case errors.Is(err, session.ErrEmptyTurn):
		return "Nothing to send."
	}
	return strings.ReplaceAll(err.Error(), "\n", " ")
}
