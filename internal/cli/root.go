// Package cli implements the courier command line: a thin cobra layer over courier.Engine.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tfkr-ae/courier"
	"github.com/tfkr-ae/courier/db"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigDir string
	Database  string // Overrides database_path from the config file
	Format    string // "json" | "text"
	Verbose   bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the courier CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "courier",
		Short: "Compose, store and replay HTTP requests",
		Long: `courier manages workspaces of saved HTTP requests, resolves their variables
across global, workspace, collection and request scope, and keeps variables in sync
between workspaces.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", defaultConfigDir(), "directory holding config.yaml")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite database (default from config)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewWorkspaceCommand(opts))
	cmd.AddCommand(NewCollectionCommand(opts))
	cmd.AddCommand(NewVariableCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewDuplicateCommand(opts))
	cmd.AddCommand(NewSyncGroupCommand(opts))
	cmd.AddCommand(NewPropagateCommand(opts))
	cmd.AddCommand(NewLogsCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".courier"
	}
	return filepath.Join(dir, "courier")
}

// withEngine opens the config dir and database, runs fn and closes the engine.
func withEngine(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, e *courier.Engine) error) error {
	cfg, err := courier.LoadConfig(opts.ConfigDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	path := opts.Database
	if path == "" {
		path = cfg.DatabaseFile()
	}
	conn, err := db.New(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}

	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	e, err := courier.New(
		courier.WithConfig(cfg),
		courier.WithLogger(logger),
		courier.WithRepository(db.NewRepository(conn)),
	)
	if err != nil {
		conn.Close()
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	defer e.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, e)
}

func parseID(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", name, value), err)
	}
	return id, nil
}

func parseOptionalID(name, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := parseID(name, value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
