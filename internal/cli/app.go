// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/eamadorm/alia-tui/internal/api"
	"github.com/eamadorm/alia-tui/internal/config"
	"github.com/eamadorm/alia-tui/internal/export"
	"github.com/eamadorm/alia-tui/internal/logging"
	"github.com/eamadorm/alia-tui/internal/session"
	"github.com/eamadorm/alia-tui/internal/ui/styles"
	"github.com/eamadorm/alia-tui/internal/util"
)

// logTarget selects where an app writes its log.
type logTarget int

const (
	// logToFile keeps the terminal clean for the full-screen UI.
	logToFile logTarget = iota
	// logToStderr logs warnings to stderr, or everything with --verbose.
	logToStderr
)

// app is the wired client stack for one command invocation.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	closer io.Closer
	client *api.Client
	ctrl   *session.Controller
}

// newApp loads configuration and wires logging, the API client and a
// session controller.
func newApp(cmd *cobra.Command, flags *globalFlags, target logTarget) (*app, error) {
	cfg, err := loadConfig(cmd.ErrOrStderr(), flags)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(logOptions(cfg, flags, target))
	if err != nil {
		return nil, configError(err)
	}

	client := api.New(cfg.API.BaseURL).
		WithTimeout(cfg.API.Timeout()).
		WithMaxResponseSize(cfg.API.MaxResponseBytes()).
		WithRateLimit(cfg.API.RequestsPerSecond).
		WithLogger(logger)

	ctrl := session.New(client, cfg.Identity.UserID,
		session.WithWelcome(cfg.UI.Welcome),
		session.WithUploadContentType(cfg.API.UploadContentType),
		session.WithLogger(logger),
	)

	logger.Debug("client ready",
		"version", Version,
		"api", cfg.API.BaseURL,
		"user", cfg.Identity.UserID,
		"timeout", cfg.API.Timeout())

	return &app{cfg: cfg, logger: logger, closer: closer, client: client, ctrl: ctrl}, nil
}

// Close ends the session and flushes the log.
func (a *app) Close() error {
	a.ctrl.Logout()
	return a.closer.Close()
}

// exportOptions returns export settings from the config.
func (a *app) exportOptions() *export.Options {
	opts := export.DefaultOptions()
	if a.cfg.Export.OutputDir != "" {
		opts.OutputDir = a.cfg.Export.OutputDir
	}
	return opts
}

// loadConfig reads the config file, applies the global flags and publishes
// the result as the global config. A config file that cannot be decoded is
// reported on warn and replaced by defaults.
func loadConfig(warn io.Writer, flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		path, perr := util.ExpandHome(flags.configPath)
		if perr != nil {
			return nil, configError(perr)
		}
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if cfg == nil {
		return nil, configError(err)
	}
	if err != nil {
		fmt.Fprintln(warn, styles.RenderWarning(fmt.Sprintf("%v (using defaults)", err)))
	}

	if flags.userID != "" {
		cfg.Identity.UserID = flags.userID
	}
	if flags.apiURL != "" {
		cfg.API.BaseURL = flags.apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, configError(err)
	}

	config.SetGlobal(cfg)
	return cfg, nil
}

func logOptions(cfg *config.Config, flags *globalFlags, target logTarget) logging.Options {
	opts := logging.Options{Level: cfg.Log.Level, Verbose: flags.verbose, File: cfg.Log.File}
	switch target {
	case logToFile:
		if opts.File == "" {
			if path, err := config.DefaultLogPath(); err == nil {
				opts.File = path
			}
		}
	case logToStderr:
		if opts.File == "" {
			opts.Stderr = true
			if !flags.verbose {
				opts.Level = "warn"
			}
		}
	}
	return opts
}
