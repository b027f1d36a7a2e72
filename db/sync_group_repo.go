package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tfkr-ae/courier/domain"
)

var _ domain.SyncGroupRepository = (*Repository)(nil)

// dbSyncGroup represents a sync group row. Members live in sync_group_member.
type dbSyncGroup struct {
	ID                  uuid.UUID        `db:"id"`
	Name                string           `db:"name"`
	SyncedVariableNames JSONList[string] `db:"synced_variable_names"`
	SyncSecrets         bool             `db:"sync_secrets"`
	CreatedAt           time.Time        `db:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at"`
}

// toDomainSyncGroup converts a dbSyncGroup and its ordered member ids to a domain.SyncGroup.
func toDomainSyncGroup(dbGroup *dbSyncGroup, members []uuid.UUID) *domain.SyncGroup {
	if members == nil {
		members = []uuid.UUID{}
	}
	return &domain.SyncGroup{
		ID:                  dbGroup.ID,
		Name:                dbGroup.Name,
		WorkspaceIDs:        members,
		SyncedVariableNames: []string(dbGroup.SyncedVariableNames),
		SyncSecrets:         dbGroup.SyncSecrets,
		CreatedAt:           dbGroup.CreatedAt,
		UpdatedAt:           dbGroup.UpdatedAt,
	}
}

func (repo *Repository) syncGroupMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	var members []uuid.UUID
	query := `SELECT workspace_id FROM sync_group_member WHERE group_id = ? ORDER BY position`
	err := repo.dbConn.SelectContext(ctx, &members, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("getting members of sync group %s: %w", groupID, err)
	}
	return members, nil
}

// replaceMembers rewrites the member list of a group inside tx, dropping repeated ids.
func replaceMembers(ctx context.Context, tx *sqlx.Tx, groupID uuid.UUID, workspaceIDs []uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM sync_group_member WHERE group_id = ?`, groupID)
	if err != nil {
		return fmt.Errorf("clearing members of sync group %s: %w", groupID, err)
	}

	seen := make(map[uuid.UUID]struct{}, len(workspaceIDs))
	position := 0
	for _, workspaceID := range workspaceIDs {
		if _, ok := seen[workspaceID]; ok {
			continue
		}
		seen[workspaceID] = struct{}{}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sync_group_member (group_id, workspace_id, position) VALUES (?, ?, ?)`,
			groupID, workspaceID, position)
		if err != nil {
			return fmt.Errorf("adding member %s to sync group %s: %w", workspaceID, groupID, err)
		}
		position++
	}
	return nil
}

// GetSyncGroups retrieves all sync groups in creation order.
func (repo *Repository) GetSyncGroups(ctx context.Context) ([]*domain.SyncGroup, error) {
	var dbGroups []*dbSyncGroup
	err := repo.dbConn.SelectContext(ctx, &dbGroups, `SELECT * FROM sync_group ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("getting sync groups: %w", err)
	}

	groups := make([]*domain.SyncGroup, len(dbGroups))
	for i, dbGroup := range dbGroups {
		members, err := repo.syncGroupMembers(ctx, dbGroup.ID)
		if err != nil {
			return nil, err
		}
		groups[i] = toDomainSyncGroup(dbGroup, members)
	}
	return groups, nil
}

// GetSyncGroup retrieves a single sync group with its members in order.
func (repo *Repository) GetSyncGroup(ctx context.Context, id uuid.UUID) (*domain.SyncGroup, error) {
	var dbGroup dbSyncGroup
	err := repo.dbConn.GetContext(ctx, &dbGroup, `SELECT * FROM sync_group WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sync group %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting sync group %s: %w", id, err)
	}

	members, err := repo.syncGroupMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDomainSyncGroup(&dbGroup, members), nil
}

// CreateSyncGroup inserts a new sync group and its members in a single transaction.
func (repo *Repository) CreateSyncGroup(ctx context.Context, fields domain.SyncGroupFields) (*domain.SyncGroup, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating uuid: %w", err)
	}

	now := time.Now().UTC()
	dbGroup := &dbSyncGroup{
		ID:                  id,
		Name:                fields.Name,
		SyncedVariableNames: JSONList[string](fields.SyncedVariableNames),
		SyncSecrets:         fields.SyncSecrets,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	tx, err := repo.dbConn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO sync_group (id, name, synced_variable_names, sync_secrets, created_at, updated_at)
	          VALUES (:id, :name, :synced_variable_names, :sync_secrets, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, dbGroup); err != nil {
		return nil, fmt.Errorf("creating sync group %s: %w", fields.Name, err)
	}

	if err := replaceMembers(ctx, tx, id, fields.WorkspaceIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sync group %s: %w", fields.Name, err)
	}

	return repo.GetSyncGroup(ctx, id)
}

// UpdateSyncGroup applies the non-nil fields of patch. A non-nil WorkspaceIDs replaces the
// whole member list.
func (repo *Repository) UpdateSyncGroup(ctx context.Context, id uuid.UUID, patch domain.SyncGroupPatch) (*domain.SyncGroup, error) {
	var names any
	if patch.SyncedVariableNames != nil {
		value, err := JSONList[string](*patch.SyncedVariableNames).Value()
		if err != nil {
			return nil, err
		}
		names = value
	}

	tx, err := repo.dbConn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE sync_group SET
	            name = COALESCE(?, name),
	            synced_variable_names = COALESCE(?, synced_variable_names),
	            sync_secrets = COALESCE(?, sync_secrets),
	            updated_at = ?
	          WHERE id = ?`
	result, err := tx.ExecContext(ctx, query,
		nullable(patch.Name), names, nullable(patch.SyncSecrets), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("updating sync group %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("fetching rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("sync group %s: %w", id, domain.ErrNotFound)
	}

	if patch.WorkspaceIDs != nil {
		if err := replaceMembers(ctx, tx, id, *patch.WorkspaceIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sync group %s: %w", id, err)
	}

	return repo.GetSyncGroup(ctx, id)
}

// DeleteSyncGroup removes a sync group, its members are removed by cascade.
func (repo *Repository) DeleteSyncGroup(ctx context.Context, id uuid.UUID) error {
	result, err := repo.dbConn.ExecContext(ctx, `DELETE FROM sync_group WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting sync group %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetching rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("sync group %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
