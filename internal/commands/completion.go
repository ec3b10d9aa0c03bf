// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eamadorm/alia-tui/internal/attachment"
	"github.com/eamadorm/alia-tui/internal/model"
	"github.com/eamadorm/alia-tui/internal/util"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completion is one candidate for tab completion.
type Completion struct {
	Value       string
	Display     string
	Description string
	Score       int
}

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// ConversationsFn returns the listing used for /open completion.
	ConversationsFn func() []model.ConversationSummary
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns completions for the command being typed in input.
func (c *Completer) Complete(input string) []Completion {
	input = strings.TrimLeft(input, " \t")
	if !IsCommand(input) {
		return nil
	}

	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return c.completeCommands("")
	}

	trailingSpace := strings.HasSuffix(input, " ")
	if len(parts) == 1 && !trailingSpace {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}

	argIndex := len(parts) - 2
	partial := parts[len(parts)-1]
	if trailingSpace {
		argIndex++
		partial = ""
	}
	return c.completeArg(cmd, argIndex, partial)
}

// CompleteLine returns whole-line candidates, the form line editors expect.
func (c *Completer) CompleteLine(line string) []string {
	completions := c.Complete(line)
	if len(completions) == 0 {
		return nil
	}

	prefix := ""
	if parts := splitCommandLine(line); len(parts) > 1 || strings.HasSuffix(line, " ") {
		idx := strings.LastIndexAny(line, " \t")
		prefix = line[:idx+1]
	}

	out := make([]string, 0, len(completions))
	for _, comp := range completions {
		value := comp.Value
		if prefix != "" && strings.ContainsAny(value, " \t") {
			value = `"` + value + `"`
		}
		out = append(out, prefix+value)
	}
	return out
}

func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(cmd.Name, partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
		for _, alias := range cmd.Aliases {
			if partial != "" && partial != "/" && strings.HasPrefix(alias, partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || len(cmd.Args) == 0 {
		return nil
	}
	if argIndex >= len(cmd.Args) {
		last := cmd.Args[len(cmd.Args)-1]
		if !last.Variadic {
			return nil
		}
		argIndex = len(cmd.Args) - 1
	}

	arg := cmd.Args[argIndex]
	switch arg.Type {
	case ArgTypeConversation:
		return c.completeConversations(partial)
	case ArgTypeFile:
		return completeFiles(partial)
	case ArgTypeEnum:
		return completeFromList(arg.Values, partial)
	default:
		return nil
	}
}

func (c *Completer) completeConversations(partial string) []Completion {
	if c.ConversationsFn == nil {
		return nil
	}
	var completions []Completion
	for _, s := range c.ConversationsFn() {
		if !strings.HasPrefix(s.ConversationID, partial) {
			continue
		}
		completions = append(completions, Completion{
			Value:       s.ConversationID,
			Display:     s.ShortID(),
			Description: s.CreatedAt.Format("2006-01-02 15:04"),
			Score:       calculateScore(s.ConversationID, partial),
		})
	}
	return completions
}

// completeFiles lists directories and files with an accepted extension.
func completeFiles(partial string) []Completion {
	var completions []Completion

	expanded, err := util.ExpandHome(partial)
	if err != nil {
		return nil
	}
	dir, prefix := filepath.Dir(expanded), filepath.Base(expanded)
	if partial == "" {
		dir, prefix = ".", ""
	} else if strings.HasSuffix(partial, string(os.PathSeparator)) {
		dir, prefix = expanded, ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	lowerPrefix := strings.ToLower(prefix)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if !entry.IsDir() && !attachment.Allowed(name) {
			continue
		}

		path := name
		if dir != "." || strings.HasPrefix(partial, "."+string(os.PathSeparator)) {
			path = filepath.Join(dir, name)
		}
		score := calculateScore(name, prefix)
		desc := "directory"
		if entry.IsDir() {
			path += string(os.PathSeparator)
			score += 5
		} else if info, err := entry.Info(); err == nil {
			desc = util.HumanSize(info.Size())
		}

		completions = append(completions, Completion{
			Value:       path,
			Display:     name,
			Description: desc,
			Score:       score,
		})
	}

	sortCompletions(completions)
	if len(completions) > 20 {
		completions = completions[:20]
	}
	return completions
}

func completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)
	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   calculateScore(value, partial),
			})
		}
	}
	sortCompletions(completions)
	return completions
}

// calculateScore ranks a candidate; higher is a better match.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	score -= len(value) / 2
	return score
}

// sortCompletions sorts completions by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}
