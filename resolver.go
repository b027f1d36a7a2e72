package courier

import (
	"context"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

// Resolver merges the variables declared at the four scopes into a single name keyed set.
type Resolver struct {
	variables domain.VariableRepository
}

// NewResolver returns a Resolver reading from the given variable store.
func NewResolver(variables domain.VariableRepository) *Resolver {
	return &Resolver{variables: variables}
}

// Resolve applies global, workspace, collection and request variables in that order, each
// scope overwriting whole records of the same name, so the narrowest declaration wins.
// A nil collectionID or requestID skips that scope. A failing store call is returned as a
// *LookupFailure naming the scope.
func (r *Resolver) Resolve(ctx context.Context, workspaceID uuid.UUID, collectionID, requestID *uuid.UUID) (*domain.ResolvedSet, error) {
	scopes := []domain.Scope{domain.GlobalScope(), domain.WorkspaceScope(workspaceID)}
	if collectionID != nil {
		scopes = append(scopes, domain.CollectionScope(*collectionID))
	}
	if requestID != nil {
		scopes = append(scopes, domain.RequestScope(*requestID))
	}

	resolved := domain.NewResolvedSet()
	for _, scope := range scopes {
		variables, err := r.variables.ListVariablesByScope(ctx, scope)
		if err != nil {
			return nil, &LookupFailure{Scope: scope, Op: "listing variables", Err: err}
		}
		for _, v := range variables {
			resolved.Set(v.Resolve())
		}
	}
	return resolved, nil
}

// ResolveForRequest resolves the variables visible to a saved request.
func (r *Resolver) ResolveForRequest(ctx context.Context, req *domain.Request) (*domain.ResolvedSet, error) {
	requestID := req.ID
	return r.Resolve(ctx, req.WorkspaceID, req.CollectionID, &requestID)
}
