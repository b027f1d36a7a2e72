package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/courier"
	"github.com/tfkr-ae/courier/rawhttp"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var workspace, collection, request string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the effective variables of a workspace, collection or request",
		Long: `Show the effective variables after applying global, workspace, collection and
request scope, narrowest first. Secret values are masked.

Examples:
  courier resolve --workspace 0190...
  courier resolve --workspace 0190... --collection 0190... --request 0190...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, err := parseID("workspace", workspace)
			if err != nil {
				return err
			}
			collectionID, err := parseOptionalID("collection", collection)
			if err != nil {
				return err
			}
			requestID, err := parseOptionalID("request", request)
			if err != nil {
				return err
			}

			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				resolved, err := e.Resolve(ctx, workspaceID, collectionID, requestID)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to resolve variables", err)
				}
				all := resolved.Redacted(courier.SecretMask).All()
				return output(cmd.OutOrStdout(), rootOpts.Format, all, func(w io.Writer) {
					for _, v := range all {
						fmt.Fprintf(w, "%s=%s (%s)\n", v.Name, v.Value, v.Scope)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id (required)")
	_ = cmd.MarkFlagRequired("workspace")
	cmd.Flags().StringVar(&collection, "collection", "", "collection id")
	cmd.Flags().StringVar(&request, "request", "", "request id")
	return cmd
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "preview <request-id>",
		Short: "Show a saved request with its variables substituted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := parseID("request", args[0])
			if err != nil {
				return err
			}

			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				preview, err := e.Preview(ctx, requestID)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to preview request", err)
				}

				if raw {
					httpReq, err := courier.NewHTTPRequest(ctx, preview.Request)
					if err != nil {
						return WrapExitError(ExitFailure, "failed to build request", err)
					}
					dump, pretty, err := rawhttp.DumpRequest(httpReq)
					if err != nil {
						return WrapExitError(ExitFailure, "failed to dump request", err)
					}
					if pretty == "" {
						pretty = string(dump)
					}
					fmt.Fprintln(cmd.OutOrStdout(), pretty)
					printMissing(cmd.ErrOrStderr(), preview.Missing)
					return nil
				}

				data := map[string]any{"request": preview.Request, "missing": preview.Missing}
				return output(cmd.OutOrStdout(), rootOpts.Format, data, func(w io.Writer) {
					req := preview.Request
					fmt.Fprintf(w, "%s %s\n", req.Method, req.URL)
					for _, header := range req.Headers {
						if header.Enabled {
							fmt.Fprintf(w, "%s: %s\n", header.Key, header.Value)
						}
					}
					if req.Body != "" {
						fmt.Fprintf(w, "\n%s\n", req.Body)
					}
					printMissing(w, preview.Missing)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the request as it goes on the wire")
	return cmd
}

func printMissing(w io.Writer, missing []string) {
	if len(missing) > 0 {
		fmt.Fprintf(w, "unresolved: %s\n", strings.Join(missing, ", "))
	}
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	var showHeaders bool

	cmd := &cobra.Command{
		Use:   "send <request-id>",
		Short: "Send a saved request and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := parseID("request", args[0])
			if err != nil {
				return err
			}

			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				res, err := e.Send(ctx, requestID)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to send request", err)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, res, func(w io.Writer) {
					fmt.Fprintf(w, "%d %s  %s  %s\n", res.Status, res.StatusText, res.ElapsedLabel(), res.SizeLabel())
					if showHeaders {
						for _, header := range res.Headers {
							fmt.Fprintf(w, "%s: %s\n", header.Key, header.Value)
						}
					}
					body := res.PrettyBody
					if body == "" {
						body = res.Body
					}
					if body != "" {
						fmt.Fprintf(w, "\n%s\n", body)
					}
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&showHeaders, "include", "i", false, "print response headers")
	return cmd
}
