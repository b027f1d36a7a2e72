package courier

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

// WorkspaceFactory creates the destination workspace of a duplication. Id allocation is left
// to the factory.
type WorkspaceFactory func(ctx context.Context, fields domain.WorkspaceFields) (*domain.Workspace, error)

// DuplicateOptions controls what Duplicate copies.
type DuplicateOptions struct {
	SourceWorkspaceID uuid.UUID
	NewName           string
	NewDescription    string
	Tags              []string
	CopyVariables     bool // Copy workspace scoped variables.
	CopySecrets       bool // Copy secret values, otherwise secrets are copied with an empty value.
	CreateSyncGroup   bool // Link source and destination in a new sync group.
	SyncGroupName     string
	VariablesToSync   []string
}

// DuplicateResult describes a finished duplication.
type DuplicateResult struct {
	Workspace   *domain.Workspace
	SyncGroup   *domain.SyncGroup // Nil unless CreateSyncGroup was set.
	Collections int
	Requests    int
	Variables   int
}

func (r *DuplicateResult) copied() int {
	copied := r.Collections + r.Requests + r.Variables
	if r.Workspace != nil {
		copied++
	}
	return copied
}

// Duplicator clones a workspace's collections, requests and optionally its variables.
type Duplicator struct {
	collections domain.CollectionRepository
	variables   domain.VariableRepository
	groups      *SyncGroupManager
}

// NewDuplicator returns a Duplicator reading and writing through the given stores.
func NewDuplicator(collections domain.CollectionRepository, variables domain.VariableRepository, groups *SyncGroupManager) *Duplicator {
	return &Duplicator{
		collections: collections,
		variables:   variables,
		groups:      groups,
	}
}

// DefaultSyncGroupName is the group name used when DuplicateOptions.SyncGroupName is empty.
func DefaultSyncGroupName(newName string) string {
	return fmt.Sprintf("%s Sync Group", newName)
}

// Duplicate creates a new workspace through factory, then copies the source's collections with
// their requests, its standalone requests, optionally its workspace variables, and optionally
// registers a sync group of source and destination, in that order.
//
// Duplication is not transactional. When a step fails a *DuplicationFailure is returned and
// everything created before it is left in place.
func (d *Duplicator) Duplicate(ctx context.Context, opts DuplicateOptions, factory WorkspaceFactory) (*DuplicateResult, error) {
	if strings.TrimSpace(opts.NewName) == "" {
		return nil, &ValidationError{Field: "new_name", Reason: "must not be empty"}
	}
	if factory == nil {
		return nil, &ValidationError{Field: "workspace_factory", Reason: "must not be nil"}
	}

	result := &DuplicateResult{}
	fail := func(step DuplicationStep, entityID uuid.UUID, err error) (*DuplicateResult, error) {
		return result, &DuplicationFailure{Step: step, EntityID: entityID, Copied: result.copied(), Err: err}
	}

	workspace, err := factory(ctx, domain.WorkspaceFields{
		Name:        opts.NewName,
		Description: opts.NewDescription,
		Tags:        opts.Tags,
	})
	if err != nil {
		return fail(StepCreateWorkspace, opts.SourceWorkspaceID, err)
	}
	result.Workspace = workspace

	collections, err := d.collections.ListCollectionsByWorkspace(ctx, opts.SourceWorkspaceID)
	if err != nil {
		return fail(StepReadSource, opts.SourceWorkspaceID, &LookupFailure{Op: "listing collections", Err: err})
	}

	for _, collection := range collections {
		copied, err := d.collections.CreateCollection(ctx, domain.CollectionFields{
			Name:        collection.Name,
			Description: collection.Description,
			WorkspaceID: workspace.ID,
		})
		if err != nil {
			return fail(StepCopyCollection, collection.ID, err)
		}
		result.Collections++

		for _, req := range collection.Requests {
			if _, err := d.collections.CreateRequest(ctx, req.CopyFields(workspace.ID, &copied.ID)); err != nil {
				return fail(StepCopyRequest, req.ID, err)
			}
			result.Requests++
		}
	}

	standalone, err := d.collections.ListStandaloneRequestsByWorkspace(ctx, opts.SourceWorkspaceID)
	if err != nil {
		return fail(StepReadSource, opts.SourceWorkspaceID, &LookupFailure{Op: "listing standalone requests", Err: err})
	}

	for _, req := range standalone {
		if _, err := d.collections.CreateRequest(ctx, req.CopyFields(workspace.ID, nil)); err != nil {
			return fail(StepCopyStandalone, req.ID, err)
		}
		result.Requests++
	}

	if opts.CopyVariables {
		sourceScope := domain.WorkspaceScope(opts.SourceWorkspaceID)
		variables, err := d.variables.ListVariablesByScope(ctx, sourceScope)
		if err != nil {
			return fail(StepReadSource, opts.SourceWorkspaceID, &LookupFailure{Scope: sourceScope, Op: "listing variables", Err: err})
		}

		for _, v := range variables {
			if _, err := d.variables.CreateVariable(ctx, copyVariableFields(v, domain.WorkspaceScope(workspace.ID), opts.CopySecrets)); err != nil {
				return fail(StepCopyVariable, v.ID, err)
			}
			result.Variables++
		}
	}

	if opts.CreateSyncGroup {
		name := opts.SyncGroupName
		if strings.TrimSpace(name) == "" {
			name = DefaultSyncGroupName(opts.NewName)
		}

		group, err := d.groups.Create(ctx, domain.SyncGroupFields{
			Name:                name,
			WorkspaceIDs:        []uuid.UUID{opts.SourceWorkspaceID, workspace.ID},
			SyncedVariableNames: opts.VariablesToSync,
			SyncSecrets:         opts.CopySecrets,
		})
		if err != nil {
			return fail(StepCreateSyncGroup, opts.SourceWorkspaceID, err)
		}
		result.SyncGroup = group
	}

	return result, nil
}

// copyVariableFields copies v into scope. Secrets keep their flag and description, but their
// value is dropped unless copySecrets is set.
func copyVariableFields(v *domain.Variable, scope domain.Scope, copySecrets bool) domain.VariableFields {
	fields := domain.VariableFields{
		Name:        v.Name,
		Value:       v.Value,
		Scope:       scope,
		IsSecret:    v.IsSecret,
		Description: v.Description,
	}
	if v.IsSecret && !copySecrets {
		fields.Value = ""
	}
	return fields
}
