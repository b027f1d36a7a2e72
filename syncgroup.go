package courier

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

// SyncGroupManager owns the lifecycle of sync groups: created, mutated through member and
// policy changes, then deleted.
type SyncGroupManager struct {
	store domain.SyncGroupRepository
}

// NewSyncGroupManager returns a manager persisting groups in store.
func NewSyncGroupManager(store domain.SyncGroupRepository) *SyncGroupManager {
	return &SyncGroupManager{store: store}
}

// Create stores a new group. Repeated workspace ids are collapsed, keeping the first position.
// An empty member list is a *ValidationError.
func (m *SyncGroupManager) Create(ctx context.Context, fields domain.SyncGroupFields) (*domain.SyncGroup, error) {
	fields.WorkspaceIDs = uniqueIDs(fields.WorkspaceIDs)
	if len(fields.WorkspaceIDs) == 0 {
		return nil, &ValidationError{Field: "workspace_ids", Reason: "a sync group needs at least one workspace"}
	}
	if fields.SyncedVariableNames == nil {
		fields.SyncedVariableNames = []string{}
	}

	group, err := m.store.CreateSyncGroup(ctx, fields)
	if err != nil {
		return nil, &LookupFailure{Op: "creating sync group", Err: err}
	}
	return group, nil
}

// Get retrieves a group by id.
func (m *SyncGroupManager) Get(ctx context.Context, id uuid.UUID) (*domain.SyncGroup, error) {
	group, err := m.store.GetSyncGroup(ctx, id)
	if err != nil {
		return nil, storeError("getting sync group", err)
	}
	return group, nil
}

// List retrieves every group.
func (m *SyncGroupManager) List(ctx context.Context) ([]*domain.SyncGroup, error) {
	groups, err := m.store.GetSyncGroups(ctx)
	if err != nil {
		return nil, &LookupFailure{Op: "listing sync groups", Err: err}
	}
	return groups, nil
}

// ForWorkspace returns the first group whose member list contains the workspace.
func (m *SyncGroupManager) ForWorkspace(ctx context.Context, workspaceID uuid.UUID) (*domain.SyncGroup, error) {
	groups, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		if group.HasMember(workspaceID) {
			return group, nil
		}
	}
	return nil, fmt.Errorf("sync group for workspace %s: %w", workspaceID, ErrNotFound)
}

// AddMember appends a workspace to a group. Adding a present member is a no-op.
func (m *SyncGroupManager) AddMember(ctx context.Context, groupID, workspaceID uuid.UUID) (*domain.SyncGroup, error) {
	group, err := m.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.HasMember(workspaceID) {
		return group, nil
	}

	members := append(slices.Clone(group.WorkspaceIDs), workspaceID)
	return m.update(ctx, groupID, domain.SyncGroupPatch{WorkspaceIDs: &members})
}

// RemoveMember drops a workspace from a group. Removing an absent member is a no-op.
func (m *SyncGroupManager) RemoveMember(ctx context.Context, groupID, workspaceID uuid.UUID) (*domain.SyncGroup, error) {
	group, err := m.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(workspaceID) {
		return group, nil
	}

	members := slices.DeleteFunc(slices.Clone(group.WorkspaceIDs), func(id uuid.UUID) bool {
		return id == workspaceID
	})
	return m.update(ctx, groupID, domain.SyncGroupPatch{WorkspaceIDs: &members})
}

// Update applies the non-nil fields of patch. An explicitly empty member list is a
// *ValidationError, an unknown group wraps ErrNotFound.
func (m *SyncGroupManager) Update(ctx context.Context, groupID uuid.UUID, patch domain.SyncGroupPatch) (*domain.SyncGroup, error) {
	if patch.WorkspaceIDs != nil {
		members := uniqueIDs(*patch.WorkspaceIDs)
		if len(members) == 0 {
			return nil, &ValidationError{Field: "workspace_ids", Reason: "a sync group needs at least one workspace"}
		}
		patch.WorkspaceIDs = &members
	}
	return m.update(ctx, groupID, patch)
}

func (m *SyncGroupManager) update(ctx context.Context, groupID uuid.UUID, patch domain.SyncGroupPatch) (*domain.SyncGroup, error) {
	group, err := m.store.UpdateSyncGroup(ctx, groupID, patch)
	if err != nil {
		return nil, storeError("updating sync group", err)
	}
	return group, nil
}

// Delete removes a group. An unknown group wraps ErrNotFound.
func (m *SyncGroupManager) Delete(ctx context.Context, groupID uuid.UUID) error {
	if err := m.store.DeleteSyncGroup(ctx, groupID); err != nil {
		return storeError("deleting sync group", err)
	}
	return nil
}

// storeError passes not found errors through and wraps everything else in a *LookupFailure.
func storeError(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &LookupFailure{Op: op, Err: err}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	return unique
}
