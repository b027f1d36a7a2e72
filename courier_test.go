package courier

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/db"
	"github.com/tfkr-ae/courier/domain"
)

var errStore = errors.New("store unavailable")

func setupTestDB(t *testing.T) (*db.Repository, func()) {
	t.Helper()

	dbConn, err := db.New(filepath.Join(t.TempDir(), "courier.db"))
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	repo := db.NewRepository(dbConn)
	teardown := func() {
		repo.Close()
	}
	return repo, teardown
}

func testWorkspace(t *testing.T, repo *db.Repository, name string) *domain.Workspace {
	t.Helper()

	ws, err := repo.CreateWorkspace(context.Background(), domain.WorkspaceFields{Name: name})
	if err != nil {
		t.Fatalf("creating workspace: %v", err)
	}
	return ws
}

func testCollection(t *testing.T, repo *db.Repository, workspaceID uuid.UUID, name string) *domain.Collection {
	t.Helper()

	coll, err := repo.CreateCollection(context.Background(), domain.CollectionFields{
		Name:        name,
		WorkspaceID: workspaceID,
	})
	if err != nil {
		t.Fatalf("creating collection: %v", err)
	}
	return coll
}

func testRequest(t *testing.T, repo *db.Repository, workspaceID uuid.UUID, collectionID *uuid.UUID, name string) *domain.Request {
	t.Helper()

	req, err := repo.CreateRequest(context.Background(), domain.RequestFields{
		Name:         name,
		Method:       domain.MethodGet,
		URL:          "{{host}}/" + name,
		Headers:      []domain.KeyValue{{Key: "Authorization", Value: "Bearer {{token}}", Enabled: true}},
		BodyType:     domain.BodyNone,
		CollectionID: collectionID,
		WorkspaceID:  workspaceID,
	})
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	return req
}

func testVariable(t *testing.T, repo domain.VariableRepository, scope domain.Scope, name, value string, secret bool) *domain.Variable {
	t.Helper()

	v, err := repo.CreateVariable(context.Background(), domain.VariableFields{
		Name:     name,
		Value:    value,
		Scope:    scope,
		IsSecret: secret,
	})
	if err != nil {
		t.Fatalf("creating variable: %v", err)
	}
	return v
}

func variablesByName(t *testing.T, repo domain.VariableRepository, scope domain.Scope) map[string]*domain.Variable {
	t.Helper()

	vars, err := repo.ListVariablesByScope(context.Background(), scope)
	if err != nil {
		t.Fatalf("listing variables: %v", err)
	}
	byName := make(map[string]*domain.Variable, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}
	return byName
}

// failingVariables fails ListVariablesByScope for one scope kind and CreateVariable after
// failCreateAfter successful calls when it is positive.
type failingVariables struct {
	domain.VariableRepository
	failKind        domain.ScopeKind
	failCreateAfter int
	creates         int
}

func (f *failingVariables) ListVariablesByScope(ctx context.Context, scope domain.Scope) ([]*domain.Variable, error) {
	if scope.Kind() == f.failKind {
		return nil, errStore
	}
	return f.VariableRepository.ListVariablesByScope(ctx, scope)
}

func (f *failingVariables) CreateVariable(ctx context.Context, fields domain.VariableFields) (*domain.Variable, error) {
	if f.failCreateAfter > 0 && f.creates >= f.failCreateAfter {
		return nil, errStore
	}
	f.creates++
	return f.VariableRepository.CreateVariable(ctx, fields)
}

// failingCollections fails CreateRequest after failRequestAfter successful calls.
type failingCollections struct {
	domain.CollectionRepository
	failRequestAfter int
	requests         int
}

func (f *failingCollections) CreateRequest(ctx context.Context, fields domain.RequestFields) (*domain.Request, error) {
	if f.requests >= f.failRequestAfter {
		return nil, errStore
	}
	f.requests++
	return f.CollectionRepository.CreateRequest(ctx, fields)
}

// failingSyncGroups fails every call.
type failingSyncGroups struct {
	domain.SyncGroupRepository
}

func (failingSyncGroups) GetSyncGroups(ctx context.Context) ([]*domain.SyncGroup, error) {
	return nil, errStore
}

func (failingSyncGroups) GetSyncGroup(ctx context.Context, id uuid.UUID) (*domain.SyncGroup, error) {
	return nil, errStore
}

func (failingSyncGroups) CreateSyncGroup(ctx context.Context, fields domain.SyncGroupFields) (*domain.SyncGroup, error) {
	return nil, errStore
}
