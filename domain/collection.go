package domain

import (
	"context"

	"github.com/google/uuid"
)

// CollectionRepository defines the interface for managing collections and the requests saved in them.
type CollectionRepository interface {
	// ListCollectionsByWorkspace retrieves every collection owned by a workspace,
	// each with its requests populated.
	ListCollectionsByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Collection, error)

	// ListStandaloneRequestsByWorkspace retrieves the requests of a workspace that do not belong
	// to any collection.
	ListStandaloneRequestsByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Request, error)

	// CreateCollection stores a new, empty collection.
	CreateCollection(ctx context.Context, fields CollectionFields) (*Collection, error)

	// CreateRequest stores a new request. A nil CollectionID creates a standalone request.
	CreateRequest(ctx context.Context, fields RequestFields) (*Request, error)

	// GetRequest retrieves a single request by its id.
	// It returns an error wrapping ErrNotFound if it does not exist.
	GetRequest(ctx context.Context, id uuid.UUID) (*Request, error)
}

// Collection groups saved requests inside a workspace.
type Collection struct {
	ID          uuid.UUID  // Unique identifier for the collection.
	Name        string     // The name of the collection.
	Description string     // A brief description of the collection.
	WorkspaceID uuid.UUID  // The owning workspace.
	Requests    []*Request // The requests saved in the collection.
}

// CollectionFields holds the fields needed to create a Collection.
type CollectionFields struct {
	Name        string
	Description string
	WorkspaceID uuid.UUID
}

// HTTP methods a request can use.
const (
	MethodGet     = "GET"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
)

// Body types a request can carry.
const (
	BodyNone           = "none"
	BodyJSON           = "json"
	BodyXML            = "xml"
	BodyText           = "text"
	BodyHTML           = "html"
	BodyFormData       = "form-data"
	BodyFormURLEncoded = "x-www-form-urlencoded"
)

// Form item types.
const (
	FormItemText = "text"
	FormItemFile = "file"
)

// KeyValue is a header or query parameter row.
type KeyValue struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// FormItem is a form field. File items carry a local path in Value.
type FormItem struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// Request is a saved HTTP request.
type Request struct {
	ID           uuid.UUID
	Name         string
	Method       string
	URL          string
	Headers      []KeyValue
	Params       []KeyValue
	BodyType     string
	Body         string
	FormData     []FormItem
	CollectionID *uuid.UUID // Nil for standalone requests.
	WorkspaceID  uuid.UUID
}

// RequestFields holds the fields needed to create a Request.
type RequestFields struct {
	Name         string
	Method       string
	URL          string
	Headers      []KeyValue
	Params       []KeyValue
	BodyType     string
	Body         string
	FormData     []FormItem
	CollectionID *uuid.UUID
	WorkspaceID  uuid.UUID
}

// Clone returns a deep copy of r. Mutating the copy never affects r.
func (r *Request) Clone() *Request {
	clone := *r
	clone.Headers = cloneKeyValues(r.Headers)
	clone.Params = cloneKeyValues(r.Params)
	clone.FormData = cloneFormItems(r.FormData)
	if r.CollectionID != nil {
		id := *r.CollectionID
		clone.CollectionID = &id
	}
	return &clone
}

// CopyFields returns the fields needed to recreate r inside another workspace and collection.
// Slices are deep copied.
func (r *Request) CopyFields(workspaceID uuid.UUID, collectionID *uuid.UUID) RequestFields {
	clone := r.Clone()
	return RequestFields{
		Name:         clone.Name,
		Method:       clone.Method,
		URL:          clone.URL,
		Headers:      clone.Headers,
		Params:       clone.Params,
		BodyType:     clone.BodyType,
		Body:         clone.Body,
		FormData:     clone.FormData,
		CollectionID: collectionID,
		WorkspaceID:  workspaceID,
	}
}

func cloneKeyValues(in []KeyValue) []KeyValue {
	if in == nil {
		return nil
	}
	out := make([]KeyValue, len(in))
	copy(out, in)
	return out
}

func cloneFormItems(in []FormItem) []FormItem {
	if in == nil {
		return nil
	}
	out := make([]FormItem, len(in))
	copy(out, in)
	return out
}
