// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/eamadorm/alia-tui/internal/attachment"
	"github.com/eamadorm/alia-tui/internal/model"
	"github.com/eamadorm/alia-tui/internal/session"
	"github.com/eamadorm/alia-tui/internal/ui/styles"
	"github.com/eamadorm/alia-tui/internal/util"
)

// Title is the application heading.
const Title = "ALIA: Asistente Legal de Investigación Avanzada"

func (m Model) render() string {
	if m.width == 0 {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.showSidebar() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", body)
	}

	rows := []string{m.renderHeader(), body}
	if len(m.state.Pending) > 0 {
		rows = append(rows, m.renderPending())
	}
	if len(m.completions) > 0 {
		rows = append(rows, m.renderCompletions())
	}
	rows = append(rows, m.renderInput(), m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme
	inner := m.width - 2

	right := ""
	if m.state.UserID != "" {
		right = t.HeaderUser.Render(m.state.UserID)
	}
	badge := ""
	if m.state.HasConversation() {
		badge = t.HeaderBadge.Render("[" + m.state.ShortID() + "]")
	}

	room := inner - lipgloss.Width(right) - lipgloss.Width(badge) - 2
	title := t.HeaderTitle.Render(util.TruncateWidth(Title, room))

	left := title
	if badge != "" {
		left += " " + badge
	}
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return t.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	t := m.theme
	w := styles.SidebarWidth
	lines := []string{t.SidebarTitle.Render("Conversations")}

	switch {
	case session.IsAnonymous(m.state.UserID):
		lines = append(lines, t.SidebarMeta.Width(w).Render("Set a user id to see your conversations."))
	case m.listingErr != nil:
		lines = append(lines, t.ErrorStyle.Render(styles.StatusIndicators.Error+" unavailable"))
	case len(m.listing) == 0:
		lines = append(lines, t.SidebarMeta.Render("No conversations yet."))
	default:
		for i, s := range m.listing {
			marker := "  "
			if i == m.cursor {
				marker = "> "
			}
			row := fmt.Sprintf("%s%-8s %s", marker, s.ShortID(), formatListingDate(s.CreatedAt))
			row = util.PadRight(util.TruncateWidth(row, w), w)
			if s.ConversationID == m.state.ConversationID {
				lines = append(lines, t.SidebarItemActive.Render(row))
			} else {
				lines = append(lines, t.SidebarItem.Render(row))
			}
		}
	}

	height := m.viewport.Height
	if len(lines) > height && height > 0 {
		lines = lines[:height]
	}
	return t.Sidebar.Width(w).Height(height).Render(strings.Join(lines, "\n"))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript(width int) string {
	var blocks []string
	for _, msg := range m.state.Messages {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	if m.state.TurnInProgress {
		blocks = append(blocks, m.theme.ThinkingText.Render("ALIA is thinking..."))
	}
	if m.notice != "" {
		blocks = append(blocks, m.theme.Muted.Render(m.notice))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg *model.Message, width int) string {
	t := m.theme
	bubbleWidth := width - 6
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}

	label := t.AgentLabel.Render(msg.Role.DisplayName())
	bubble := t.AgentBubble
	if msg.Role == model.RoleUser {
		label = t.UserLabel.Render(msg.Role.DisplayName())
		bubble = t.UserBubble
	}
	if msg.IsError() {
		label = t.ErrorStyle.Render(styles.StatusIndicators.Error + " " + msg.Role.DisplayName())
		bubble = t.ErrorBubble
	}
	if m.opts.ShowTimestamps && !msg.Timestamp.IsZero() {
		label += " " + t.Timestamp.Render(formatTimestamp(msg.Timestamp))
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" && len(msg.Attachments) > 0 {
		content = t.Muted.Render("(attachments only)")
	}

	var extra []string
	if len(msg.Attachments) > 0 {
		extra = append(extra, t.Attachment.Render("attachments: "+strings.Join(msg.Attachments, ", ")))
	}
	if msg.HasCharts() {
		extra = append(extra, t.ChartNote.Render(fmt.Sprintf("[%d chart(s) not shown in the terminal; use /export json]", len(msg.Charts))))
	}
	if len(extra) > 0 {
		content += "\n" + strings.Join(extra, "\n")
	}

	return label + "\n" + bubble.MaxWidth(width).Width(bubbleWidth).Render(content)
}

// =============================================================================
// COMPOSER
// =============================================================================

func (m Model) renderPending() string {
	chips := make([]string, 0, len(m.state.Pending))
	for i, p := range m.state.Pending {
		chips = append(chips, m.theme.PendingChip.Render(fmt.Sprintf("[%d] %s (%s)", i+1, p.Name, util.HumanSize(p.Size))))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(strings.Join(chips, " "))
}

func (m Model) renderCompletions() string {
	parts := make([]string, 0, len(m.completions))
	for i, c := range m.completions {
		if i == m.completionIdx {
			parts = append(parts, m.theme.CompletionSelected.Render(c))
		} else {
			parts = append(parts, m.theme.CompletionItem.Render(c))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	t := m.theme
	var line string
	switch {
	case m.state.TurnInProgress:
		line = m.spinner.View() + " " + t.ThinkingText.Render("waiting for ALIA")
	case m.status != "" && m.statusErr:
		line = t.ErrorStyle.Render(styles.StatusIndicators.Error + " " + m.status)
	case m.status != "":
		line = t.SuccessStyle.Render(styles.StatusIndicators.Success + " " + m.status)
	default:
		var hints []string
		for _, b := range m.keyMap.ShortHelp() {
			h := b.Help()
			hints = append(hints, t.ShortcutKey.Render(h.Key)+" "+t.ShortcutDesc.Render(h.Desc))
		}
		line = strings.Join(hints, "  ")
	}
	return t.StatusBar.MaxWidth(m.width).Render(line)
}

// =============================================================================
// NOTICES
// =============================================================================

func (m Model) renderListingNotice(list []model.ConversationSummary, message string) string {
	if len(list) == 0 {
		return message
	}
	var sb strings.Builder
	for i, s := range list {
		sb.WriteString(fmt.Sprintf("%3d  %s  %s\n", i+1, s.ConversationID, formatListingDate(s.CreatedAt)))
	}
	sb.WriteString("Open one with /open <#>.")
	return sb.String()
}

func (m Model) renderPendingNotice(pending []attachment.Pending) string {
	var sb strings.Builder
	for i, p := range pending {
		sb.WriteString(fmt.Sprintf("%3d  %s  %s\n", i+1, p.Name, util.HumanSize(p.Size)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// FORMATTING
// =============================================================================

// formatTimestamp formats a message time relative to now.
func formatTimestamp(t time.Time) string {
	now := time.Now()
	t = t.Local()

	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon 15:04")
	}
	return t.Format("Jan 2 15:04")
}

// formatListingDate formats a conversation creation time for the sidebar.
func formatListingDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02")
}
