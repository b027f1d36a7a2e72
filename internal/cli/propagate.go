package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/courier"
)

// NewPropagateCommand creates the propagate command.
func NewPropagateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "propagate <group-id> <source-workspace-id>",
		Short: "Push the synced variables of one member to the rest of its group",
		Long: `Push the synced variables of one member workspace to every other member.

Variables whose name is not synced by the group are skipped, and so are secrets unless the
group syncs secrets. Existing variables keep their id and only get the new value.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID("group", args[0])
			if err != nil {
				return err
			}
			sourceID, err := parseID("workspace", args[1])
			if err != nil {
				return err
			}

			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				result, err := e.PropagateVariables(ctx, groupID, sourceID)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to propagate variables", err)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, result, func(w io.Writer) {
					fmt.Fprintf(w, "synced: %d  skipped: %d\n", result.Synced, result.Skipped)
				})
			})
		},
	}
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Show the activity log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				logs, err := e.History(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read logs", err)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, logs, func(w io.Writer) {
					for _, log := range logs {
						fmt.Fprintf(w, "%s  %-5s  %s\n", log.Timestamp.Local().Format(time.DateTime), log.Level, log.Message)
					}
				})
			})
		},
	}
}
