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

// NewCollectionCommand creates the collection command group.
func NewCollectionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage collections and their requests",
	}
	cmd.AddCommand(newCollectionListCommand(rootOpts))
	cmd.AddCommand(newCollectionCreateCommand(rootOpts))
	cmd.AddCommand(newRequestCreateCommand(rootOpts))
	return cmd
}

func newCollectionListCommand(rootOpts *RootOptions) *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the collections and standalone requests of a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, err := parseID("workspace", workspace)
			if err != nil {
				return err
			}
			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				collections, err := e.Collections.ListCollectionsByWorkspace(ctx, workspaceID)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list collections", err)
				}
				standalone, err := e.Collections.ListStandaloneRequestsByWorkspace(ctx, workspaceID)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list requests", err)
				}

				data := map[string]any{"collections": collections, "requests": standalone}
				return output(cmd.OutOrStdout(), rootOpts.Format, data, func(w io.Writer) {
					for _, coll := range collections {
						fmt.Fprintf(w, "%s  %s\n", coll.ID, coll.Name)
						for _, req := range coll.Requests {
							fmt.Fprintf(w, "  %s  %s %s\n", req.ID, req.Method, req.Name)
						}
					}
					for _, req := range standalone {
						fmt.Fprintf(w, "%s  %s %s\n", req.ID, req.Method, req.Name)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id (required)")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newCollectionCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var workspace, name, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, err := parseID("workspace", workspace)
			if err != nil {
				return err
			}
			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				coll, err := e.Collections.CreateCollection(ctx, domain.CollectionFields{
					Name:        name,
					Description: description,
					WorkspaceID: workspaceID,
				})
				if err != nil {
					return WrapExitError(ExitFailure, "failed to create collection", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), coll.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id (required)")
	_ = cmd.MarkFlagRequired("workspace")
	cmd.Flags().StringVar(&name, "name", "", "collection name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&description, "description", "", "collection description")
	return cmd
}

func newRequestCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var workspace, collection string
	var headers, params []string
	fields := domain.RequestFields{}

	cmd := &cobra.Command{
		Use:   "add-request",
		Short: "Save a request in a collection, or standalone without --collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, err := parseID("workspace", workspace)
			if err != nil {
				return err
			}
			collectionID, err := parseOptionalID("collection", collection)
			if err != nil {
				return err
			}
			fields.WorkspaceID = workspaceID
			fields.CollectionID = collectionID
			fields.Method = strings.ToUpper(fields.Method)

			if fields.Headers, err = parsePairs(headers, ":"); err != nil {
				return err
			}
			if fields.Params, err = parsePairs(params, "="); err != nil {
				return err
			}

			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				req, err := e.Collections.CreateRequest(ctx, fields)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to create request", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), req.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id (required)")
	_ = cmd.MarkFlagRequired("workspace")
	cmd.Flags().StringVar(&collection, "collection", "", "collection id")
	cmd.Flags().StringVar(&fields.Name, "name", "", "request name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&fields.Method, "method", domain.MethodGet, "HTTP method")
	cmd.Flags().StringVar(&fields.URL, "url", "", "request URL, may contain {{placeholders}}")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "header as 'Key: Value' (repeatable)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "query param as key=value (repeatable)")
	cmd.Flags().StringVar(&fields.BodyType, "body-type", domain.BodyNone, "body type (none|json|xml|text|html|form-data|x-www-form-urlencoded)")
	cmd.Flags().StringVar(&fields.Body, "body", "", "raw request body")
	return cmd
}

// parsePairs splits each entry on the first sep into an enabled KeyValue.
func parsePairs(entries []string, sep string) ([]domain.KeyValue, error) {
	pairs := make([]domain.KeyValue, 0, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, sep)
		if !ok || strings.TrimSpace(key) == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid pair %q: expected key%svalue", entry, sep))
		}
		pairs = append(pairs, domain.KeyValue{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value), Enabled: true})
	}
	return pairs, nil
}
