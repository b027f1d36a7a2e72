package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

var _ domain.WorkspaceRepository = (*Repository)(nil)

// dbWorkspace represents a workspace as stored in the database.
// SyncGroupID is not a column, it is derived from sync_group_member when selecting.
type dbWorkspace struct {
	ID          uuid.UUID        `db:"id"`
	Name        string           `db:"name"`
	Description string           `db:"description"`
	Tags        JSONList[string] `db:"tags"`
	SyncGroupID uuid.NullUUID    `db:"sync_group_id"`
	CreatedAt   time.Time        `db:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at"`
}

const selectWorkspace = `SELECT w.id, w.name, w.description, w.tags, w.created_at, w.updated_at,
	(SELECT m.group_id FROM sync_group_member m WHERE m.workspace_id = w.id ORDER BY m.rowid LIMIT 1) AS sync_group_id
	FROM workspace w`

// toDomainWorkspace converts a dbWorkspace to a domain.Workspace.
func toDomainWorkspace(dbWs *dbWorkspace) *domain.Workspace {
	ws := &domain.Workspace{
		ID:          dbWs.ID,
		Name:        dbWs.Name,
		Description: dbWs.Description,
		Tags:        []string(dbWs.Tags),
		CreatedAt:   dbWs.CreatedAt,
		UpdatedAt:   dbWs.UpdatedAt,
	}
	if dbWs.SyncGroupID.Valid {
		id := dbWs.SyncGroupID.UUID
		ws.SyncGroupID = &id
	}
	return ws
}

// GetWorkspaces retrieves all workspaces in creation order.
func (repo *Repository) GetWorkspaces(ctx context.Context) ([]*domain.Workspace, error) {
	var dbWorkspaces []*dbWorkspace
	err := repo.dbConn.SelectContext(ctx, &dbWorkspaces, selectWorkspace+` ORDER BY w.rowid`)
	if err != nil {
		return nil, fmt.Errorf("getting workspaces: %w", err)
	}

	workspaces := make([]*domain.Workspace, len(dbWorkspaces))
	for i, dbWs := range dbWorkspaces {
		workspaces[i] = toDomainWorkspace(dbWs)
	}
	return workspaces, nil
}

// GetWorkspace retrieves a single workspace by id.
func (repo *Repository) GetWorkspace(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	var dbWs dbWorkspace
	err := repo.dbConn.GetContext(ctx, &dbWs, selectWorkspace+` WHERE w.id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting workspace %s: %w", id, err)
	}
	return toDomainWorkspace(&dbWs), nil
}

// CreateWorkspace inserts a new workspace.
func (repo *Repository) CreateWorkspace(ctx context.Context, fields domain.WorkspaceFields) (*domain.Workspace, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating uuid: %w", err)
	}

	now := time.Now().UTC()
	dbWs := &dbWorkspace{
		ID:          id,
		Name:        fields.Name,
		Description: fields.Description,
		Tags:        JSONList[string](fields.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO workspace (id, name, description, tags, created_at, updated_at)
	          VALUES (:id, :name, :description, :tags, :created_at, :updated_at)`
	_, err = repo.dbConn.NamedExecContext(ctx, query, dbWs)
	if err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", fields.Name, err)
	}

	return toDomainWorkspace(dbWs), nil
}

// DeleteWorkspace removes a workspace. Collections and requests cascade, variables
// and sync group membership are left for the caller to clean up.
func (repo *Repository) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	result, err := repo.dbConn.ExecContext(ctx, `DELETE FROM workspace WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting workspace %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetching rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
