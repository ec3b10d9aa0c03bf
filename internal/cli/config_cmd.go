// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/eamadorm/alia-tui/internal/config"
	"github.com/eamadorm/alia-tui/internal/ui/styles"
	"github.com/eamadorm/alia-tui/internal/util"
)

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration",
		Long: `Show or edit the alia configuration.

The config file is ~/.alia/config.toml (or config.json). ALIA_HOME moves the
directory; ALIA_API_URL, ALIA_USER_ID, ALIA_TIMEOUT, ALIA_LOG_LEVEL and
ALIA_LOG_FILE override single values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, flags)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(flags)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return usageError("config file already exists: "+path, "use --force to overwrite it")
			}
			if err := saveConfig(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Wrote "+path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfig(cmd, flags)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(flags)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		initCmd,
		&cobra.Command{
			Use:       "get <key>",
			Short:     "Print one setting",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.GetAllKeys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd.ErrOrStderr(), flags)
				if err != nil {
					return err
				}
				v, err := cfg.Get(args[0])
				if err != nil {
					return usageError(err.Error(), "valid keys: "+strings.Join(config.GetAllKeys(), ", "))
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:       "set <key> <value>",
			Short:     "Change one setting in the config file",
			Args:      cobra.ExactArgs(2),
			ValidArgs: config.GetAllKeys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfig(cmd, flags, args[0], args[1])
			},
		},
	)
	return cmd
}

func showConfig(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := loadConfig(cmd.ErrOrStderr(), flags)
	if err != nil {
		return err
	}
	return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
}

// setConfig edits the file itself, so flag and environment overrides of the
// current invocation are not persisted.
func setConfig(cmd *cobra.Command, flags *globalFlags, key, value string) error {
	path, err := configFilePath(flags)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if strings.HasSuffix(strings.ToLower(path), ".json") {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return configError(err)
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return usageError(err.Error(), "valid keys: "+strings.Join(config.GetAllKeys(), ", "))
	}
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}
	if err := saveConfig(cfg, path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("%s = %v", key, value)))
	return nil
}

// configFilePath returns --config or the default TOML path.
func configFilePath(flags *globalFlags) (string, error) {
	if flags.configPath != "" {
		path, err := util.ExpandHome(flags.configPath)
		if err != nil {
			return "", configError(err)
		}
		return path, nil
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return "", configError(err)
	}
	return path, nil
}

func saveConfig(cfg *config.Config, path string) error {
	var err error
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		err = config.SaveJSON(cfg, path)
	} else {
		err = config.SaveTOML(cfg, path)
	}
	if err != nil {
		return configError(err)
	}
	return nil
}
