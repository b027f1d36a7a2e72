package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/courier"
	"github.com/tfkr-ae/courier/domain"
)

// ScopeOptions selects a variable scope from flags.
type ScopeOptions struct {
	Kind  string
	Owner string
}

func (o *ScopeOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Kind, "scope", string(domain.ScopeGlobal), "variable scope (global|workspace|collection|request)")
	cmd.Flags().StringVar(&o.Owner, "owner", "", "id of the workspace, collection or request owning the scope")
}

func (o *ScopeOptions) scope() (domain.Scope, error) {
	owner, err := parseOptionalID("owner", o.Owner)
	if err != nil {
		return domain.Scope{}, err
	}
	scope, err := domain.ParseScope(o.Kind, owner)
	if err != nil {
		return domain.Scope{}, WrapExitError(ExitCommandError, "invalid scope", err)
	}
	return scope, nil
}

// variableView is the printable form of a domain.Variable.
type variableView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Scope       string `json:"scope"`
	IsSecret    bool   `json:"is_secret"`
	Description string `json:"description,omitempty"`
}

func newVariableView(v *domain.Variable) variableView {
	value := v.Value
	if v.IsSecret {
		value = courier.SecretMask
	}
	return variableView{
		ID:          v.ID.String(),
		Name:        v.Name,
		Value:       value,
		Scope:       v.Scope.Key(),
		IsSecret:    v.IsSecret,
		Description: v.Description,
	}
}

// NewVariableCommand creates the variable command group.
func NewVariableCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variable",
		Short: "Manage variables at any scope",
	}
	cmd.AddCommand(newVariableListCommand(rootOpts))
	cmd.AddCommand(newVariableSetCommand(rootOpts))
	cmd.AddCommand(newVariableDeleteCommand(rootOpts))
	return cmd
}

func newVariableListCommand(rootOpts *RootOptions) *cobra.Command {
	scopeOpts := &ScopeOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the variables declared in one scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeOpts.scope()
			if err != nil {
				return err
			}
			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				variables, err := e.Variables.ListVariablesByScope(ctx, scope)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list variables", err)
				}
				views := make([]variableView, len(variables))
				for i, v := range variables {
					views[i] = newVariableView(v)
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, views, func(w io.Writer) {
					for _, v := range views {
						fmt.Fprintf(w, "%s  %s=%s\n", v.ID, v.Name, v.Value)
					}
				})
			})
		},
	}
	scopeOpts.register(cmd)
	return cmd
}

func newVariableSetCommand(rootOpts *RootOptions) *cobra.Command {
	scopeOpts := &ScopeOptions{}
	var secret bool
	var description string

	cmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Create a variable, or update the value of the first one with that name in the scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeOpts.scope()
			if err != nil {
				return err
			}
			name, value := args[0], args[1]

			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				existing, err := e.Variables.ListVariablesByScope(ctx, scope)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list variables", err)
				}
				for _, v := range existing {
					if v.Name != name {
						continue
					}
					patch := domain.VariablePatch{Value: &value}
					if cmd.Flags().Changed("secret") {
						patch.IsSecret = &secret
					}
					if cmd.Flags().Changed("description") {
						patch.Description = &description
					}
					if _, err := e.Variables.UpdateVariable(ctx, v.ID, patch); err != nil {
						return WrapExitError(ExitFailure, "failed to update variable", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), v.ID)
					return nil
				}

				created, err := e.Variables.CreateVariable(ctx, domain.VariableFields{
					Name:        name,
					Value:       value,
					Scope:       scope,
					IsSecret:    secret,
					Description: description,
				})
				if err != nil {
					return WrapExitError(ExitFailure, "failed to create variable", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), created.ID)
				return nil
			})
		},
	}
	scopeOpts.register(cmd)
	cmd.Flags().BoolVar(&secret, "secret", false, "mark the value as secret")
	cmd.Flags().StringVar(&description, "description", "", "variable description")
	return cmd
}

func newVariableDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <variable-id>",
		Short: "Delete a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("variable", args[0])
			if err != nil {
				return err
			}
			return withEngine(rootOpts, cmd, func(ctx context.Context, e *courier.Engine) error {
				deleted, err := e.Variables.DeleteVariable(ctx, id)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to delete variable", err)
				}
				if !deleted {
					return WrapExitError(ExitFailure, "failed to delete variable", fmt.Errorf("variable %s: %w", id, courier.ErrNotFound))
				}
				return nil
			})
		},
	}
}
