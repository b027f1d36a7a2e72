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

var _ domain.VariableRepository = (*Repository)(nil)

// dbVariable represents a variable as stored in the database.
type dbVariable struct {
	ID          uuid.UUID     `db:"id"`
	Name        string        `db:"name"`
	Value       string        `db:"value"`
	Scope       string        `db:"scope"`    // One of global, workspace, collection, request.
	ScopeID     uuid.NullUUID `db:"scope_id"` // NULL only for the global scope.
	IsSecret    bool          `db:"is_secret"`
	Description string        `db:"description"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

// toDomainVariable converts a dbVariable to a domain.Variable.
func toDomainVariable(dbVar *dbVariable) (*domain.Variable, error) {
	var owner *uuid.UUID
	if dbVar.ScopeID.Valid {
		owner = &dbVar.ScopeID.UUID
	}
	scope, err := domain.ParseScope(dbVar.Scope, owner)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", dbVar.ID, err)
	}
	return &domain.Variable{
		ID:          dbVar.ID,
		Name:        dbVar.Name,
		Value:       dbVar.Value,
		Scope:       scope,
		IsSecret:    dbVar.IsSecret,
		Description: dbVar.Description,
		CreatedAt:   dbVar.CreatedAt,
		UpdatedAt:   dbVar.UpdatedAt,
	}, nil
}

// scopeArgs splits a scope into its kind and nullable owner column values.
func scopeArgs(scope domain.Scope) (string, uuid.NullUUID) {
	id, ok := scope.ID()
	return string(scope.Kind()), uuid.NullUUID{UUID: id, Valid: ok}
}

// ListVariablesByScope retrieves the variables of a scope in the order they were created.
func (repo *Repository) ListVariablesByScope(ctx context.Context, scope domain.Scope) ([]*domain.Variable, error) {
	if scope.IsZero() {
		return nil, fmt.Errorf("listing variables: %w", domain.ErrInvalidScope)
	}

	kind, owner := scopeArgs(scope)
	var dbVars []*dbVariable
	query := `SELECT * FROM variable WHERE scope = ? AND scope_id IS ? ORDER BY rowid`

	err := repo.dbConn.SelectContext(ctx, &dbVars, query, kind, owner)
	if err != nil {
		return nil, fmt.Errorf("listing variables for %s: %w", scope, err)
	}

	variables := make([]*domain.Variable, len(dbVars))
	for i, dbVar := range dbVars {
		variables[i], err = toDomainVariable(dbVar)
		if err != nil {
			return nil, err
		}
	}
	return variables, nil
}

// GetVariable retrieves a single variable by id.
func (repo *Repository) GetVariable(ctx context.Context, id uuid.UUID) (*domain.Variable, error) {
	var dbVar dbVariable
	query := `SELECT * FROM variable WHERE id = ?`

	err := repo.dbConn.GetContext(ctx, &dbVar, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("variable %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting variable %s: %w", id, err)
	}
	return toDomainVariable(&dbVar)
}

// CreateVariable inserts a new variable with a fresh v7 id.
func (repo *Repository) CreateVariable(ctx context.Context, fields domain.VariableFields) (*domain.Variable, error) {
	if fields.Scope.IsZero() {
		return nil, fmt.Errorf("creating variable %s: %w", fields.Name, domain.ErrInvalidScope)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating uuid: %w", err)
	}

	kind, owner := scopeArgs(fields.Scope)
	now := time.Now().UTC()
	dbVar := &dbVariable{
		ID:          id,
		Name:        fields.Name,
		Value:       fields.Value,
		Scope:       kind,
		ScopeID:     owner,
		IsSecret:    fields.IsSecret,
		Description: fields.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO variable (id, name, value, scope, scope_id, is_secret, description, created_at, updated_at)
	          VALUES (:id, :name, :value, :scope, :scope_id, :is_secret, :description, :created_at, :updated_at)`

	_, err = repo.dbConn.NamedExecContext(ctx, query, dbVar)
	if err != nil {
		return nil, fmt.Errorf("creating variable %s: %w", fields.Name, err)
	}
	return toDomainVariable(dbVar)
}

// UpdateVariable applies the non-nil fields of patch. NULL parameters leave the column untouched,
// so an explicit empty string is stored as empty.
func (repo *Repository) UpdateVariable(ctx context.Context, id uuid.UUID, patch domain.VariablePatch) (bool, error) {
	query := `UPDATE variable SET
	            name = COALESCE(?, name),
	            value = COALESCE(?, value),
	            is_secret = COALESCE(?, is_secret),
	            description = COALESCE(?, description),
	            updated_at = ?
	          WHERE id = ?`

	result, err := repo.dbConn.ExecContext(ctx, query,
		nullable(patch.Name), nullable(patch.Value), nullable(patch.IsSecret), nullable(patch.Description),
		time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("updating variable %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fetching rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteVariable removes a variable.
func (repo *Repository) DeleteVariable(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := repo.dbConn.ExecContext(ctx, `DELETE FROM variable WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting variable %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fetching rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// nullable turns an optional patch field into a query argument, NULL when unset.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
