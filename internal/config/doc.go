// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for alia.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure with all settings
//   - APIConfig: service endpoint, timeout, upload and pacing settings
//   - IdentityConfig: the opaque user identifier sent with every call
//   - UIConfig, LogConfig, ExportConfig: presentation, logging, transcript export
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the cli package)
//   - Environment variables (ALIA_*)
//   - ~/.alia/config.toml
//   - ~/.alia/config.json
//   - Built-in defaults
//
// ALIA_HOME relocates the ~/.alia directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := api.New(cfg.API.BaseURL).WithTimeout(cfg.API.Timeout())
package config
