// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/open <id|#>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler executes the command. It may block on the network.
	Handler func(ctx *Context, args []string) (Result, error)

	// Hidden commands don't appear in help
	Hidden bool

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values for enum types
	Values []string

	// Variadic marks the last argument as repeatable.
	Variadic bool
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString       ArgType = iota // Free-form string
	ArgTypeConversation                // Conversation id or listing number
	ArgTypeFile                        // File path
	ArgTypeEnum                        // One of predefined values
)

// ErrUnknownCommand is returned for input that names no registered command.
var ErrUnknownCommand = errors.New("unknown command")

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias. Lookup is case-insensitive.
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory returns visible commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// Execute parses input and runs the command it names. handled is false when
// input is not a command, in which case it should be sent as a message.
func (r *Registry) Execute(ctx *Context, input string) (res Result, handled bool, err error) {
	parsed := NewParser(r).Parse(input)
	if !parsed.IsCommand {
		return Result{}, false, nil
	}
	if parsed.Command == nil {
		return Result{}, true, fmt.Errorf("%w: %s (try /help)", ErrUnknownCommand, parsed.CommandName)
	}
	if err := ValidateArgs(parsed.Command, parsed.Args); err != nil {
		return Result{}, true, err
	}
	res, err = parsed.Command.Handler(ctx, parsed.Args)
	return res, true, err
}

// HelpText renders the command reference as plain text.
func (r *Registry) HelpText() string {
	var sb strings.Builder
	groups := r.ByCategory()

	for _, category := range categoryOrder(groups) {
		sb.WriteString(category)
		sb.WriteString("\n")
		for _, cmd := range groups[category] {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			line := fmt.Sprintf("  %-22s %s", usage, cmd.Description)
			if len(cmd.Aliases) > 0 {
				line += " (" + strings.Join(cmd.Aliases, ", ") + ")"
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Anything that does not start with / is sent to ALIA.\n")
	return sb.String()
}

func categoryOrder(groups map[string][]*Command) []string {
	order := []string{"Conversation", "Attachments", "General"}
	var out []string
	for _, c := range order {
		if _, ok := groups[c]; ok {
			out = append(out, c)
		}
	}
	var extra []string
	for c := range groups {
		known := false
		for _, o := range order {
			if c == o {
				known = true
			}
		}
		if !known {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new conversation",
		Category:    "Conversation",
		Handler:     handleNew,
	})

	r.Register(&Command{
		Name:        "/open",
		Aliases:     []string{"/o", "/load"},
		Description: "Open a conversation by id or by its number in /history",
		Usage:       "/open <id|#>",
		Args: []ArgDef{
			{Name: "conversation", Required: true, Type: ArgTypeConversation, Description: "conversation id or listing number"},
		},
		Category: "Conversation",
		Handler:  handleOpen,
	})

	r.Register(&Command{
		Name:        "/history",
		Aliases:     []string{"/ls", "/conversations"},
		Description: "List your conversations",
		Category:    "Conversation",
		Handler:     handleHistory,
	})

	r.Register(&Command{
		Name:        "/export",
		Aliases:     []string{"/e"},
		Description: "Write the transcript to a file",
		Usage:       "/export [markdown|json|yaml]",
		Args: []ArgDef{
			{Name: "format", Type: ArgTypeEnum, Values: []string{"markdown", "md", "json", "yaml", "yml"}, Description: "export format"},
		},
		Category: "Conversation",
		Handler:  handleExport,
	})

	r.Register(&Command{
		Name:        "/attach",
		Aliases:     []string{"/a"},
		Description: "Queue files for the next message",
		Usage:       "/attach <path>...",
		Args: []ArgDef{
			{Name: "path", Required: true, Type: ArgTypeFile, Variadic: true, Description: "file to attach"},
		},
		Category: "Attachments",
		Handler:  handleAttach,
	})

	r.Register(&Command{
		Name:        "/detach",
		Aliases:     []string{"/d"},
		Description: "Remove queued file n, or all of them",
		Usage:       "/detach [n]",
		Args: []ArgDef{
			{Name: "n", Type: ArgTypeString, Description: "position in /files"},
		},
		Category: "Attachments",
		Handler:  handleDetach,
	})

	r.Register(&Command{
		Name:        "/files",
		Aliases:     []string{"/pending"},
		Description: "Show queued files",
		Category:    "Attachments",
		Handler:     handleFiles,
	})

	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Category:    "General",
		Handler: func(ctx *Context, args []string) (Result, error) {
			return Result{Help: r.HelpText()}, nil
		},
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit",
		Category:    "General",
		Handler: func(ctx *Context, args []string) (Result, error) {
			return Result{Quit: true}, nil
		},
	})
}
