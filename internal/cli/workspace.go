package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/courier"
	"github.com/tfkr-ae/courier/domain"
)

// NewWorkspaceCommand creates the workspace command group.
func NewWorkspaceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
	}
	cmd.AddCommand(newWorkspaceListCommand(rootOpts))
	cmd.AddCommand(newWorkspaceCreateCommand(rootOpts))
	cmd.AddCommand(newWorkspaceDeleteCommand(rootOpts))
	return cmd
}

func newWorkspaceListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				workspaces, err := e.Workspaces.GetWorkspaces(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list workspaces", err)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, workspaces, func(w io.Writer) {
					for _, ws := range workspaces {
						fmt.Fprintf(w, "%s  %s", ws.ID, ws.Name)
						if ws.SyncGroupID != nil {
							fmt.Fprintf(w, "  (sync group %s)", ws.SyncGroupID)
						}
						fmt.Fprintln(w)
					}
				})
			})
		},
	}
}

func newWorkspaceCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var fields domain.WorkspaceFields

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(fields.Name) == "" {
				return NewExitError(ExitCommandError, "--name must not be empty")
			}
			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				ws, err := e.Workspaces.CreateWorkspace(ctx, fields)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to create workspace", err)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, ws, func(w io.Writer) {
					fmt.Fprintln(w, ws.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&fields.Name, "name", "", "workspace name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&fields.Description, "description", "", "workspace description")
	cmd.Flags().StringSliceVar(&fields.Tags, "tag", nil, "workspace tag (repeatable)")

	return cmd
}

func newWorkspaceDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workspace-id>",
		Short: "Delete a workspace with its collections and requests",
		Long: `Delete a workspace with its collections and requests.

Variables scoped to the workspace are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("workspace", args[0])
			if err != nil {
				return err
			}
			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				if err := e.Workspaces.DeleteWorkspace(ctx, id); err != nil {
					return WrapExitError(ExitFailure, "failed to delete workspace", err)
				}
				return nil
			})
		},
	}
}
