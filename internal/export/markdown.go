// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eamadorm/alia-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// frontmatter is the YAML header of a Markdown export.
type frontmatter struct {
	Title        string `yaml:"title"`
	Conversation string `yaml:"conversation,omitempty"`
	User         string `yaml:"user"`
	Messages     int    `yaml:"messages"`
	Exported     string `yaml:"exported"`
	Generator    string `yaml:"generator"`
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		header, err := yaml.Marshal(frontmatter{
			Title:        t.Title(),
			Conversation: t.ConversationID,
			User:         t.UserID,
			Messages:     len(t.Messages),
			Exported:     t.ExportedAt.Format(time.RFC3339),
			Generator:    "alia-tui",
		})
		if err != nil {
			return nil, fmt.Errorf("frontmatter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(header)
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(t.Title())))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		if t.ConversationID != "" {
			sb.WriteString(fmt.Sprintf("- **Conversation**: `%s`\n", t.ConversationID))
		}
		sb.WriteString(fmt.Sprintf("- **User**: %s\n", escapeMarkdown(t.UserID)))
		sb.WriteString(fmt.Sprintf("- **Exported**: %s\n", formatTimestamp(t.ExportedAt)))
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(t.Messages)))
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")

	for i, msg := range t.Messages {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		sb.WriteString(e.formatMessageContent(msg))
		sb.WriteString("\n\n")

		if len(msg.Attachments) > 0 {
			sb.WriteString(fmt.Sprintf("**Attachments**: %s\n\n", escapeMarkdown(strings.Join(msg.Attachments, ", "))))
		}
		if msg.HasCharts() {
			sb.WriteString(fmt.Sprintf("<sub>%d chart(s) not rendered</sub>\n\n", len(msg.Charts)))
		}

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from alia-tui on %s*\n",
		t.ExportedAt.Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// formatMessageContent renders a message body. Failure notices are quoted.
func (e *MarkdownExporter) formatMessageContent(msg *model.Message) string {
	content := strings.TrimSpace(msg.Content)
	if !msg.IsError() {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return "> **Error**\n>\n" + strings.Join(lines, "\n")
}

// escapeMarkdown escapes characters that would break headings and inline text.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"#", `\#`,
		"*", `\*`,
		"_", `\_`,
		"[", `\[`,
		"]", `\]`,
	)
	return r.Replace(s)
}
