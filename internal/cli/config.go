package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/courier"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings in config.yaml",
	}
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigSetCommand(rootOpts))
	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := courier.LoadConfig(rootOpts.ConfigDir)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}

			settings := map[string]any{
				"database_path":     cfg.DatabaseFile(),
				"default_timeout":   cfg.DefaultTimeout,
				"follow_redirects":  cfg.FollowRedirects,
				"validate_ssl":      cfg.ValidateSSL,
				"max_history_items": cfg.MaxHistoryItems,
				"log_level":         cfg.LogLevel,
			}
			return output(cmd.OutOrStdout(), rootOpts.Format, settings, func(w io.Writer) {
				fmt.Fprintf(w, "database_path: %s\n", cfg.DatabaseFile())
				fmt.Fprintf(w, "default_timeout: %d\n", cfg.DefaultTimeout)
				fmt.Fprintf(w, "follow_redirects: %t\n", cfg.FollowRedirects)
				fmt.Fprintf(w, "validate_ssl: %t\n", cfg.ValidateSSL)
				fmt.Fprintf(w, "max_history_items: %d\n", cfg.MaxHistoryItems)
				fmt.Fprintf(w, "log_level: %s\n", cfg.LogLevel)
			})
		},
	}
}

func newConfigSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := courier.LoadConfig(rootOpts.ConfigDir)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return WrapExitError(ExitFailure, "failed to set "+args[0], err)
			}
			return nil
		},
	}
}
