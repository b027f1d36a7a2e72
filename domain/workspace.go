package domain

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// WorkspaceRepository defines the interface for managing workspaces.
type WorkspaceRepository interface {
	// GetWorkspaces retrieves every workspace.
	GetWorkspaces(ctx context.Context) ([]*Workspace, error)

	// GetWorkspace retrieves a single workspace.
	// It returns an error wrapping ErrNotFound if it does not exist.
	GetWorkspace(ctx context.Context, id uuid.UUID) (*Workspace, error)

	// CreateWorkspace stores a new workspace and returns it with its newly assigned id.
	CreateWorkspace(ctx context.Context, fields WorkspaceFields) (*Workspace, error)

	// DeleteWorkspace removes a workspace together with its collections and requests.
	// Variables scoped to the workspace are left in place.
	DeleteWorkspace(ctx context.Context, id uuid.UUID) error
}

// SyncGroupRepository defines the interface for persisting workspace sync groups.
type SyncGroupRepository interface {
	// GetSyncGroups retrieves every sync group.
	GetSyncGroups(ctx context.Context) ([]*SyncGroup, error)

	// GetSyncGroup retrieves a single sync group with its members in order.
	// It returns an error wrapping ErrNotFound if it does not exist.
	GetSyncGroup(ctx context.Context, id uuid.UUID) (*SyncGroup, error)

	// CreateSyncGroup stores a new sync group and returns it with its newly assigned id.
	CreateSyncGroup(ctx context.Context, fields SyncGroupFields) (*SyncGroup, error)

	// UpdateSyncGroup applies the non-nil fields of patch and returns the updated group.
	// It returns an error wrapping ErrNotFound if the group does not exist.
	UpdateSyncGroup(ctx context.Context, id uuid.UUID, patch SyncGroupPatch) (*SyncGroup, error)

	// DeleteSyncGroup removes a sync group.
	// It returns an error wrapping ErrNotFound if the group does not exist.
	DeleteSyncGroup(ctx context.Context, id uuid.UUID) error
}

// Workspace is the top level container of collections, requests and workspace variables.
type Workspace struct {
	ID          uuid.UUID
	Name        string
	Description string
	Tags        []string
	// SyncGroupID is the group whose member list contains this workspace.
	// It is derived from sync group membership when read and is never written directly.
	SyncGroupID *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkspaceFields holds the fields needed to create a Workspace.
type WorkspaceFields struct {
	Name        string
	Description string
	Tags        []string
}

// SyncGroup is a named set of workspaces sharing updates to a subset of their variables.
type SyncGroup struct {
	ID                  uuid.UUID
	Name                string
	WorkspaceIDs        []uuid.UUID // Members, in the order they were added.
	SyncedVariableNames []string    // Names eligible for propagation.
	SyncSecrets         bool        // Whether secret values are propagated.
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SyncGroupFields holds the fields needed to create a SyncGroup.
type SyncGroupFields struct {
	Name                string
	WorkspaceIDs        []uuid.UUID
	SyncedVariableNames []string
	SyncSecrets         bool
}

// SyncGroupPatch is a partial update of a SyncGroup. Nil fields are left unchanged.
type SyncGroupPatch struct {
	Name                *string
	WorkspaceIDs        *[]uuid.UUID
	SyncedVariableNames *[]string
	SyncSecrets         *bool
}

// HasMember reports whether the workspace belongs to the group.
func (g *SyncGroup) HasMember(workspaceID uuid.UUID) bool {
	return slices.Contains(g.WorkspaceIDs, workspaceID)
}

// Syncs reports whether variables named name are eligible for propagation.
func (g *SyncGroup) Syncs(name string) bool {
	return slices.Contains(g.SyncedVariableNames, name)
}
