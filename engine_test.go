package courier

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/db"
	"github.com/tfkr-ae/courier/domain"
)

type recordingSender struct {
	got *PreparedRequest
}

func (s *recordingSender) Send(ctx context.Context, req *PreparedRequest) (*domain.Response, error) {
	s.got = req
	return &domain.Response{Status: 204, StatusText: "No Content"}, nil
}

func setupTestEngine(t *testing.T, options ...func(*Engine) error) (*Engine, *db.Repository, func()) {
	t.Helper()

	repo, teardown := setupTestDB(t)
	e, err := New(append([]func(*Engine) error{WithRepository(repo)}, options...)...)
	if err != nil {
		teardown()
		t.Fatalf("New() failed: %v", err)
	}
	return e, repo, teardown
}

func TestEngine_Preview(t *testing.T) {
	ctx := context.Background()

	t.Run("should interpolate the request and mask secrets in the resolved set", func(t *testing.T) {
		e, repo, teardown := setupTestEngine(t)
		defer teardown()

		ws := testWorkspace(t, repo, "Dev")
		req := testRequest(t, repo, ws.ID, nil, "health")
		testVariable(t, repo, domain.WorkspaceScope(ws.ID), "token", "s3cret", true)

		preview, err := e.Preview(ctx, req.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if preview.Request.Headers[0].Value != "Bearer s3cret" {
			t.Fatalf("\nwanted:\nBearer s3cret\ngot:\n%s", preview.Request.Headers[0].Value)
		}
		if token, _ := preview.Resolved.Get("token"); token.Value != SecretMask {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", SecretMask, token.Value)
		}
		if !slices.Equal(preview.Missing, []string{"host"}) {
			t.Fatalf("\nwanted:\n[host]\ngot:\n%v", preview.Missing)
		}
	})

	t.Run("should report an unknown request as not found", func(t *testing.T) {
		e, _, teardown := setupTestEngine(t)
		defer teardown()

		if _, err := e.Preview(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNotFound, err)
		}
	})

	t.Run("should fail without stores", func(t *testing.T) {
		e, err := New()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if _, err := e.Preview(ctx, uuid.New()); !errors.Is(err, ErrStoreMissing) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrStoreMissing, err)
		}
	})
}

func TestEngine_Send(t *testing.T) {
	t.Run("should hand the prepared request to the sender", func(t *testing.T) {
		sender := &recordingSender{}
		e, repo, teardown := setupTestEngine(t, WithSender(sender))
		defer teardown()

		ws := testWorkspace(t, repo, "Dev")
		req := testRequest(t, repo, ws.ID, nil, "health")
		testVariable(t, repo, domain.GlobalScope(), "host", "http://localhost:8080", false)

		res, err := e.Send(context.Background(), req.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if res.Status != 204 {
			t.Fatalf("\nwanted:\n204\ngot:\n%d", res.Status)
		}
		if sender.got == nil || sender.got.URL != "http://localhost:8080/health" {
			t.Fatalf("\nwanted:\nhttp://localhost:8080/health\ngot:\n%+v", sender.got)
		}
	})
}

func TestEngine_DuplicateWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("should duplicate and record the outcome", func(t *testing.T) {
		e, repo, teardown := setupTestEngine(t)
		defer teardown()

		source := seedSourceWorkspace(t, repo)

		result, err := e.DuplicateWorkspace(ctx, DuplicateOptions{
			SourceWorkspaceID: source.ID,
			NewName:           "Copy",
			CreateSyncGroup:   true,
		})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		logs, err := e.History(ctx)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(logs) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(logs))
		}
		if logs[0].Level != "INFO" || logs[0].WorkspaceID == nil || *logs[0].WorkspaceID != result.Workspace.ID {
			t.Fatalf("\nwanted:\nINFO entry for %v\ngot:\n%+v", result.Workspace.ID, logs[0])
		}
		if logs[0].SyncGroupID == nil || *logs[0].SyncGroupID != result.SyncGroup.ID {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", result.SyncGroup.ID, logs[0].SyncGroupID)
		}
	})

	t.Run("should report an unknown source as not found", func(t *testing.T) {
		e, repo, teardown := setupTestEngine(t)
		defer teardown()

		_, err := e.DuplicateWorkspace(ctx, DuplicateOptions{SourceWorkspaceID: uuid.New(), NewName: "Copy"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNotFound, err)
		}

		workspaces, err := repo.GetWorkspaces(ctx)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(workspaces) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", len(workspaces))
		}
	})
}

// slowVariables widens the window between reading and writing a workspace's variables.
type slowVariables struct {
	domain.VariableRepository
	delay time.Duration
}

func (s *slowVariables) ListVariablesByScope(ctx context.Context, scope domain.Scope) ([]*domain.Variable, error) {
	time.Sleep(s.delay)
	return s.VariableRepository.ListVariablesByScope(ctx, scope)
}

func TestEngine_PropagateVariables(t *testing.T) {
	t.Run("should propagate and record the counts", func(t *testing.T) {
		e, repo, teardown := setupTestEngine(t)
		defer teardown()
		ctx := context.Background()

		source := testWorkspace(t, repo, "Source")
		target := testWorkspace(t, repo, "Target")
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "host", "h", false)

		groups, err := e.SyncGroups()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		group, err := groups.Create(ctx, domain.SyncGroupFields{
			Name:                "G",
			WorkspaceIDs:        []uuid.UUID{source.ID, target.ID},
			SyncedVariableNames: []string{"host"},
		})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		result, err := e.PropagateVariables(ctx, group.ID, source.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result != (PropagationResult{Synced: 1}) {
			t.Fatalf("\nwanted:\n{1 0}\ngot:\n%+v", result)
		}

		logs, err := e.History(ctx)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(logs) != 1 || logs[0].Context["synced"] != float64(1) {
			t.Fatalf("\nwanted:\none entry with synced 1\ngot:\n%+v", logs)
		}
	})

	t.Run("should serialise concurrent calls into the same target", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()
		ctx := context.Background()

		e, err := New(WithRepository(repo), WithVariableStore(&slowVariables{VariableRepository: repo, delay: 10 * time.Millisecond}))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		source := testWorkspace(t, repo, "Source")
		target := testWorkspace(t, repo, "Target")
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "host", "h", false)

		group, err := NewSyncGroupManager(repo).Create(ctx, domain.SyncGroupFields{
			Name:                "G",
			WorkspaceIDs:        []uuid.UUID{source.ID, target.ID},
			SyncedVariableNames: []string{"host"},
		})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		const callers = 8
		results := make([]PropagationResult, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = e.PropagateVariables(ctx, group.ID, source.ID)
			}()
		}
		wg.Wait()

		for i := range callers {
			if errs[i] != nil {
				t.Fatalf("\nwanted:\nnil\ngot:\n%v", errs[i])
			}
			if results[i] != (PropagationResult{Synced: 1}) {
				t.Fatalf("\nwanted:\n{1 0}\ngot:\n%+v", results[i])
			}
		}

		vars, err := repo.ListVariablesByScope(ctx, domain.WorkspaceScope(target.ID))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(vars) != 1 || vars[0].Value != "h" {
			t.Fatalf("\nwanted:\none host variable\ngot:\n%+v", vars)
		}
	})
}

func TestEngine_WriteLog(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject an unknown level", func(t *testing.T) {
		e, _, teardown := setupTestEngine(t)
		defer teardown()

		if err := e.WriteLog(ctx, "TRACE", "nope"); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})

	t.Run("should cap history at the configured size", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxHistoryItems = 2
		e, _, teardown := setupTestEngine(t, WithConfig(cfg))
		defer teardown()

		for _, message := range []string{"one", "two", "three"} {
			if err := e.WriteLog(ctx, "INFO", message); err != nil {
				t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
			}
		}

		logs, err := e.History(ctx)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(logs) != 2 || logs[0].Message != "two" || logs[1].Message != "three" {
			t.Fatalf("\nwanted:\n[two three]\ngot:\n%d entries", len(logs))
		}
	})
}
