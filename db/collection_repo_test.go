package db

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

func TestCollectionRepo_ListCollectionsByWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("should return collections with their requests", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		ws := testWorkspace(t, repo, "Dev")
		other := testWorkspace(t, repo, "Other")
		users := testCollection(t, repo, ws.ID, "Users")
		testCollection(t, repo, ws.ID, "Orders")
		testCollection(t, repo, other.ID, "Elsewhere")

		for _, name := range []string{"List users", "Get user"} {
			_, err := repo.CreateRequest(ctx, domain.RequestFields{
				Name:         name,
				URL:          "{{host}}/users",
				CollectionID: &users.ID,
				WorkspaceID:  ws.ID,
			})
			if err != nil {
				t.Fatalf("creating request: %v", err)
			}
		}

		got, err := repo.ListCollectionsByWorkspace(ctx, ws.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(got) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(got))
		}
		if got[0].Name != "Users" || got[1].Name != "Orders" {
			t.Fatalf("\nwanted:\n[Users Orders]\ngot:\n[%s %s]", got[0].Name, got[1].Name)
		}
		if len(got[0].Requests) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(got[0].Requests))
		}
		if got[0].Requests[0].Name != "List users" {
			t.Fatalf("\nwanted:\nList users\ngot:\n%s", got[0].Requests[0].Name)
		}
		if len(got[1].Requests) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", len(got[1].Requests))
		}
	})
}

func TestCollectionRepo_ListStandaloneRequestsByWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("should only return requests without a collection", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		ws := testWorkspace(t, repo, "Dev")
		coll := testCollection(t, repo, ws.ID, "Users")

		_, err := repo.CreateRequest(ctx, domain.RequestFields{Name: "In collection", CollectionID: &coll.ID, WorkspaceID: ws.ID})
		if err != nil {
			t.Fatalf("creating request: %v", err)
		}
		_, err = repo.CreateRequest(ctx, domain.RequestFields{Name: "Health", WorkspaceID: ws.ID})
		if err != nil {
			t.Fatalf("creating request: %v", err)
		}

		got, err := repo.ListStandaloneRequestsByWorkspace(ctx, ws.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(got) != 1 || got[0].Name != "Health" {
			t.Fatalf("\nwanted:\n[Health]\ngot:\n%v", got)
		}
		if got[0].CollectionID != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", got[0].CollectionID)
		}
	})
}

func TestCollectionRepo_GetRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("should round trip every request field", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		ws := testWorkspace(t, repo, "Dev")
		coll := testCollection(t, repo, ws.ID, "Users")

		fields := domain.RequestFields{
			Name:   "Create user",
			Method: domain.MethodPost,
			URL:    "{{host}}/users",
			Headers: []domain.KeyValue{
				{Key: "Authorization", Value: "Bearer {{token}}", Enabled: true},
				{Key: "X-Debug", Value: "1", Enabled: false},
			},
			Params:   []domain.KeyValue{{Key: "dry_run", Value: "true", Enabled: true}},
			BodyType: domain.BodyFormData,
			FormData: []domain.FormItem{
				{Key: "name", Value: "{{user}}", Type: domain.FormItemText, Enabled: true},
				{Key: "avatar", Value: "/tmp/avatar.png", Type: domain.FormItemFile, Enabled: true},
			},
			CollectionID: &coll.ID,
			WorkspaceID:  ws.ID,
		}

		created, err := repo.CreateRequest(ctx, fields)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got, err := repo.GetRequest(ctx, created.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if !reflect.DeepEqual(created, got) {
			t.Fatalf("\nwanted:\n%+v\ngot:\n%+v", created, got)
		}
	})

	t.Run("should default method and body type", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		ws := testWorkspace(t, repo, "Dev")
		created, err := repo.CreateRequest(ctx, domain.RequestFields{Name: "Ping", WorkspaceID: ws.ID})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if created.Method != domain.MethodGet || created.BodyType != domain.BodyNone {
			t.Fatalf("\nwanted:\nGET none\ngot:\n%s %s", created.Method, created.BodyType)
		}
	})

	t.Run("should return ErrNotFound for an unknown id", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		_, err := repo.GetRequest(ctx, uuid.New())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", domain.ErrNotFound, err)
		}
	})

	t.Run("should fail for a request in an unknown workspace", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		_, err := repo.CreateRequest(ctx, domain.RequestFields{Name: "Orphan", WorkspaceID: uuid.New()})
		if err == nil {
			t.Fatalf("\nwanted:\nnon-nil\ngot:\n%v", err)
		}
	})
}
