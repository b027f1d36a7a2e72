package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tfkr-ae/courier"
	"github.com/tfkr-ae/courier/domain"
)

// NewSyncGroupCommand creates the sync-group command group.
func NewSyncGroupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync-group",
		Aliases: []string{"sg"},
		Short:   "Manage groups of workspaces sharing variables",
	}
	cmd.AddCommand(newSyncGroupListCommand(rootOpts))
	cmd.AddCommand(newSyncGroupCreateCommand(rootOpts))
	cmd.AddCommand(newSyncGroupMemberCommand(rootOpts, "add"))
	cmd.AddCommand(newSyncGroupMemberCommand(rootOpts, "remove"))
	cmd.AddCommand(newSyncGroupUpdateCommand(rootOpts))
	cmd.AddCommand(newSyncGroupDeleteCommand(rootOpts))
	return cmd
}

// withSyncGroups runs fn with the engine's sync group manager.
func withSyncGroups(rootOpts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, groups *courier.SyncGroupManager) error) error {
	return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
		groups, err := e.SyncGroups()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open sync groups", err)
		}
		return fn(ctx, groups)
	})
}

func printSyncGroup(w io.Writer, group *domain.SyncGroup) {
	fmt.Fprintf(w, "%s  %s\n", group.ID, group.Name)
	for _, id := range group.WorkspaceIDs {
		fmt.Fprintf(w, "  member %s\n", id)
	}
	fmt.Fprintf(w, "  synced: %s  secrets: %t\n", strings.Join(group.SyncedVariableNames, ", "), group.SyncSecrets)
}

func newSyncGroupListCommand(rootOpts *RootOptions) *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sync groups, or the group of one workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, err := parseOptionalID("workspace", workspace)
			if err != nil {
				return err
			}
			return withSyncGroups(rootOpts, cmd, func(ctx context.Context, groups *courier.SyncGroupManager) error {
				var list []*domain.SyncGroup
				if workspaceID != nil {
					group, err := groups.ForWorkspace(ctx, *workspaceID)
					if err != nil {
						return WrapExitError(ExitFailure, "failed to find sync group", err)
					}
					list = []*domain.SyncGroup{group}
				} else {
					list, err = groups.List(ctx)
					if err != nil {
						return WrapExitError(ExitFailure, "failed to list sync groups", err)
					}
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, list, func(w io.Writer) {
					for _, group := range list {
						printSyncGroup(w, group)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "only the group containing this workspace")
	return cmd
}

func parseIDs(name string, values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, value := range values {
		id, err := parseID(name, value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newSyncGroupCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var name string
	var workspaces, variables []string
	var secrets bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a sync group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := parseIDs("workspace", workspaces)
			if err != nil {
				return err
			}
			return withSyncGroups(rootOpts, cmd, func(ctx context.Context, groups *courier.SyncGroupManager) error {
				group, err := groups.Create(ctx, domain.SyncGroupFields{
					Name:                name,
					WorkspaceIDs:        members,
					SyncedVariableNames: variables,
					SyncSecrets:         secrets,
				})
				if err != nil {
					return WrapExitError(ExitFailure, "failed to create sync group", err)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, group, func(w io.Writer) {
					fmt.Fprintln(w, group.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "group name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringSliceVar(&workspaces, "workspace", nil, "member workspace id (repeatable)")
	cmd.Flags().StringSliceVar(&variables, "var", nil, "variable name kept in sync (repeatable)")
	cmd.Flags().BoolVar(&secrets, "secrets", false, "propagate secret values")
	return cmd
}

func newSyncGroupMemberCommand(rootOpts *RootOptions, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <group-id> <workspace-id>",
		Short: fmt.Sprintf("%s a member workspace", strings.ToUpper(action[:1])+action[1:]),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID("group", args[0])
			if err != nil {
				return err
			}
			workspaceID, err := parseID("workspace", args[1])
			if err != nil {
				return err
			}
			return withSyncGroups(rootOpts, cmd, func(ctx context.Context, groups *courier.SyncGroupManager) error {
				var group *domain.SyncGroup
				if action == "add" {
					group, err = groups.AddMember(ctx, groupID, workspaceID)
				} else {
					group, err = groups.RemoveMember(ctx, groupID, workspaceID)
				}
				if err != nil {
					return WrapExitError(ExitFailure, "failed to "+action+" member", err)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, group, func(w io.Writer) {
					printSyncGroup(w, group)
				})
			})
		},
	}
}

func newSyncGroupUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var name string
	var variables []string
	var secrets bool

	cmd := &cobra.Command{
		Use:   "update <group-id>",
		Short: "Rename a group or change what it syncs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID("group", args[0])
			if err != nil {
				return err
			}

			var patch domain.SyncGroupPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("var") {
				patch.SyncedVariableNames = &variables
			}
			if cmd.Flags().Changed("secrets") {
				patch.SyncSecrets = &secrets
			}

			return withSyncGroups(rootOpts, cmd, func(ctx context.Context, groups *courier.SyncGroupManager) error {
				group, err := groups.Update(ctx, groupID, patch)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to update sync group", err)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, group, func(w io.Writer) {
					printSyncGroup(w, group)
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new group name")
	cmd.Flags().StringSliceVar(&variables, "var", nil, "variable name kept in sync, replaces the current list (repeatable)")
	cmd.Flags().BoolVar(&secrets, "secrets", false, "propagate secret values")
	return cmd
}

func newSyncGroupDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete a sync group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID("group", args[0])
			if err != nil {
				return err
			}
			return withSyncGroups(rootOpts, cmd, func(ctx context.Context, groups *courier.SyncGroupManager) error {
				if err := groups.Delete(ctx, groupID); err != nil {
					return WrapExitError(ExitFailure, "failed to delete sync group", err)
				}
				return nil
			})
		},
	}
}
