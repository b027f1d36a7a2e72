package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

var _ domain.CollectionRepository = (*Repository)(nil)

// dbCollection represents a collection as stored in the database.
type dbCollection struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	WorkspaceID uuid.UUID `db:"workspace_id"`
}

// dbRequest represents a saved request as stored in the database.
type dbRequest struct {
	ID           uuid.UUID                 `db:"id"`
	Name         string                    `db:"name"`
	Method       string                    `db:"method"`
	URL          string                    `db:"url"`
	Headers      JSONList[domain.KeyValue] `db:"headers"`
	Params       JSONList[domain.KeyValue] `db:"params"`
	BodyType     string                    `db:"body_type"`
	Body         string                    `db:"body"`
	FormData     JSONList[domain.FormItem] `db:"form_data"`
	CollectionID uuid.NullUUID             `db:"collection_id"` // NULL for standalone requests.
	WorkspaceID  uuid.UUID                 `db:"workspace_id"`
}

// toDomainCollection converts a dbCollection to a domain.Collection without requests.
func toDomainCollection(dbColl *dbCollection) *domain.Collection {
	return &domain.Collection{
		ID:          dbColl.ID,
		Name:        dbColl.Name,
		Description: dbColl.Description,
		WorkspaceID: dbColl.WorkspaceID,
		Requests:    []*domain.Request{},
	}
}

// toDomainRequest converts a dbRequest to a domain.Request.
func toDomainRequest(dbReq *dbRequest) *domain.Request {
	req := &domain.Request{
		ID:          dbReq.ID,
		Name:        dbReq.Name,
		Method:      dbReq.Method,
		URL:         dbReq.URL,
		Headers:     []domain.KeyValue(dbReq.Headers),
		Params:      []domain.KeyValue(dbReq.Params),
		BodyType:    dbReq.BodyType,
		Body:        dbReq.Body,
		FormData:    []domain.FormItem(dbReq.FormData),
		WorkspaceID: dbReq.WorkspaceID,
	}
	if dbReq.CollectionID.Valid {
		id := dbReq.CollectionID.UUID
		req.CollectionID = &id
	}
	return req
}

// ListCollectionsByWorkspace retrieves the collections of a workspace, each with its requests.
func (repo *Repository) ListCollectionsByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Collection, error) {
	var dbColls []*dbCollection
	query := `SELECT id, name, description, workspace_id FROM collection WHERE workspace_id = ? ORDER BY rowid`

	err := repo.dbConn.SelectContext(ctx, &dbColls, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing collections of workspace %s: %w", workspaceID, err)
	}

	collections := make([]*domain.Collection, len(dbColls))
	for i, dbColl := range dbColls {
		collections[i] = toDomainCollection(dbColl)
	}

	for _, collection := range collections {
		var dbReqs []*dbRequest
		query := `SELECT * FROM request WHERE collection_id = ? ORDER BY rowid`
		err := repo.dbConn.SelectContext(ctx, &dbReqs, query, collection.ID)
		if err != nil {
			return nil, fmt.Errorf("listing requests of collection %s: %w", collection.ID, err)
		}
		for _, dbReq := range dbReqs {
			collection.Requests = append(collection.Requests, toDomainRequest(dbReq))
		}
	}

	return collections, nil
}

// ListStandaloneRequestsByWorkspace retrieves the requests of a workspace that have no collection.
func (repo *Repository) ListStandaloneRequestsByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Request, error) {
	var dbReqs []*dbRequest
	query := `SELECT * FROM request WHERE workspace_id = ? AND collection_id IS NULL ORDER BY rowid`

	err := repo.dbConn.SelectContext(ctx, &dbReqs, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing standalone requests of workspace %s: %w", workspaceID, err)
	}

	requests := make([]*domain.Request, len(dbReqs))
	for i, dbReq := range dbReqs {
		requests[i] = toDomainRequest(dbReq)
	}
	return requests, nil
}

// CreateCollection inserts a new collection.
func (repo *Repository) CreateCollection(ctx context.Context, fields domain.CollectionFields) (*domain.Collection, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating uuid: %w", err)
	}

	dbColl := &dbCollection{
		ID:          id,
		Name:        fields.Name,
		Description: fields.Description,
		WorkspaceID: fields.WorkspaceID,
	}

	query := `INSERT INTO collection (id, name, description, workspace_id) VALUES (:id, :name, :description, :workspace_id)`
	_, err = repo.dbConn.NamedExecContext(ctx, query, dbColl)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", fields.Name, err)
	}

	return toDomainCollection(dbColl), nil
}

// CreateRequest inserts a new request. Missing method and body type default to GET and none.
func (repo *Repository) CreateRequest(ctx context.Context, fields domain.RequestFields) (*domain.Request, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating uuid: %w", err)
	}

	dbReq := &dbRequest{
		ID:          id,
		Name:        fields.Name,
		Method:      fields.Method,
		URL:         fields.URL,
		Headers:     JSONList[domain.KeyValue](fields.Headers),
		Params:      JSONList[domain.KeyValue](fields.Params),
		BodyType:    fields.BodyType,
		Body:        fields.Body,
		FormData:    JSONList[domain.FormItem](fields.FormData),
		WorkspaceID: fields.WorkspaceID,
	}
	if dbReq.Method == "" {
		dbReq.Method = domain.MethodGet
	}
	if dbReq.BodyType == "" {
		dbReq.BodyType = domain.BodyNone
	}
	if fields.CollectionID != nil {
		dbReq.CollectionID = uuid.NullUUID{UUID: *fields.CollectionID, Valid: true}
	}

	query := `INSERT INTO request (id, name, method, url, headers, params, body_type, body, form_data, collection_id, workspace_id)
	          VALUES (:id, :name, :method, :url, :headers, :params, :body_type, :body, :form_data, :collection_id, :workspace_id)`
	_, err = repo.dbConn.NamedExecContext(ctx, query, dbReq)
	if err != nil {
		return nil, fmt.Errorf("creating request %s: %w", fields.Name, err)
	}

	return toDomainRequest(dbReq), nil
}

// GetRequest retrieves a single request by id.
func (repo *Repository) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	var dbReq dbRequest
	err := repo.dbConn.GetContext(ctx, &dbReq, `SELECT * FROM request WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting request %s: %w", id, err)
	}
	return toDomainRequest(&dbReq), nil
}
