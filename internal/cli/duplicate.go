package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/courier"
)

// DuplicateOptions holds flags for the duplicate command.
type DuplicateOptions struct {
	*RootOptions
	Name            string
	Description     string
	Tags            []string
	CopyVariables   bool
	CopySecrets     bool
	CreateSyncGroup bool
	SyncGroupName   string
	SyncVariables   []string
}

// NewDuplicateCommand creates the duplicate command.
func NewDuplicateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DuplicateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "duplicate <workspace-id>",
		Short: "Copy a workspace with its collections, requests and optionally variables",
		Long: `Copy a workspace with its collections, requests and optionally its variables.

Secret values are copied empty unless --copy-secrets is set. With --sync the source and the
copy are linked in a new sync group, named "<name> Sync Group" unless --sync-group-name is set.

A failure part way leaves everything copied so far in place.

Examples:
  courier duplicate 0190... --name Staging
  courier duplicate 0190... --name Staging --copy-variables --sync --sync-var host --sync-var token`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuplicate(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "name of the new workspace (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description of the new workspace")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "tag of the new workspace (repeatable)")
	cmd.Flags().BoolVar(&opts.CopyVariables, "copy-variables", false, "copy workspace variables")
	cmd.Flags().BoolVar(&opts.CopySecrets, "copy-secrets", false, "copy secret values, and sync them when --sync is set")
	cmd.Flags().BoolVar(&opts.CreateSyncGroup, "sync", false, "link source and copy in a new sync group")
	cmd.Flags().StringVar(&opts.SyncGroupName, "sync-group-name", "", "name of the sync group")
	cmd.Flags().StringSliceVar(&opts.SyncVariables, "sync-var", nil, "variable name kept in sync (repeatable)")

	return cmd
}

func runDuplicate(opts *DuplicateOptions, cmd *cobra.Command, source string) error {
	sourceID, err := parseID("workspace", source)
	if err != nil {
		return err
	}

	return withEngine(opts.RootOptions, cmd, func(ctx context.Context, e *courier.Engine) error {
		result, err := e.DuplicateWorkspace(ctx, courier.DuplicateOptions{
			SourceWorkspaceID: sourceID,
			NewName:           opts.Name,
			NewDescription:    opts.Description,
			Tags:              opts.Tags,
			CopyVariables:     opts.CopyVariables,
			CopySecrets:       opts.CopySecrets,
			CreateSyncGroup:   opts.CreateSyncGroup,
			SyncGroupName:     opts.SyncGroupName,
			VariablesToSync:   opts.SyncVariables,
		})
		if err != nil {
			var failure *courier.DuplicationFailure
			if errors.As(err, &failure) {
				return WrapExitError(ExitFailure, fmt.Sprintf("duplication stopped at %s with %d entities copied", failure.Step, failure.Copied), err)
			}
			return WrapExitError(ExitFailure, "failed to duplicate workspace", err)
		}

		return output(cmd.OutOrStdout(), opts.Format, result, func(w io.Writer) {
			fmt.Fprintf(w, "workspace %s  %s\n", result.Workspace.ID, result.Workspace.Name)
			fmt.Fprintf(w, "collections: %d  requests: %d  variables: %d\n", result.Collections, result.Requests, result.Variables)
			if result.SyncGroup != nil {
				fmt.Fprintf(w, "sync group %s  %s\n", result.SyncGroup.ID, result.SyncGroup.Name)
			}
		})
	})
}
