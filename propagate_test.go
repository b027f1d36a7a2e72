package courier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

func TestPropagator_Propagate(t *testing.T) {
	ctx := context.Background()

	t.Run("should sync eligible variables and skip the rest", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		source := testWorkspace(t, repo, "Source")
		target := testWorkspace(t, repo, "Target")
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "host", "https://new.example.com", false)
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "token", "s3cret", true)
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "local", "x", false)
		existing := testVariable(t, repo, domain.WorkspaceScope(target.ID), "host", "https://old.example.com", false)

		group, err := NewSyncGroupManager(repo).Create(ctx, domain.SyncGroupFields{
			Name:                "G",
			WorkspaceIDs:        []uuid.UUID{source.ID, target.ID},
			SyncedVariableNames: []string{"host", "token"},
		})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		result, err := NewPropagator(repo, repo).Propagate(ctx, group.ID, source.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		want := PropagationResult{Synced: 1, Skipped: 2}
		if result != want {
			t.Fatalf("\nwanted:\n%+v\ngot:\n%+v", want, result)
		}

		vars := variablesByName(t, repo, domain.WorkspaceScope(target.ID))
		if len(vars) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(vars))
		}
		if vars["host"].ID != existing.ID || vars["host"].Value != "https://new.example.com" {
			t.Fatalf("\nwanted:\n%v updated\ngot:\n%+v", existing.ID, vars["host"])
		}
	})

	t.Run("should create missing variables and sync secrets when allowed", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		source := testWorkspace(t, repo, "Source")
		first := testWorkspace(t, repo, "First")
		second := testWorkspace(t, repo, "Second")
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "token", "s3cret", true)

		group, err := NewSyncGroupManager(repo).Create(ctx, domain.SyncGroupFields{
			Name:                "G",
			WorkspaceIDs:        []uuid.UUID{first.ID, source.ID, second.ID},
			SyncedVariableNames: []string{"token"},
			SyncSecrets:         true,
		})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		result, err := NewPropagator(repo, repo).Propagate(ctx, group.ID, source.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result != (PropagationResult{Synced: 2}) {
			t.Fatalf("\nwanted:\n{2 0}\ngot:\n%+v", result)
		}

		for _, ws := range []*domain.Workspace{first, second} {
			token := variablesByName(t, repo, domain.WorkspaceScope(ws.ID))["token"]
			if token == nil || token.Value != "s3cret" || !token.IsSecret {
				t.Fatalf("\nwanted:\nsecret s3cret in %s\ngot:\n%+v", ws.Name, token)
			}
		}
	})

	t.Run("should be idempotent", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

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

		propagator := NewPropagator(repo, repo)
		first, err := propagator.Propagate(ctx, group.ID, source.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		afterFirst := variablesByName(t, repo, domain.WorkspaceScope(target.ID))

		second, err := propagator.Propagate(ctx, group.ID, source.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		want := PropagationResult{Synced: 1}
		if first != want || second != want {
			t.Fatalf("\nwanted:\n%+v %+v\ngot:\n%+v %+v", want, want, first, second)
		}

		vars, err := repo.ListVariablesByScope(ctx, domain.WorkspaceScope(target.ID))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(vars) != 1 || vars[0].Value != "h" {
			t.Fatalf("\nwanted:\none host variable\ngot:\n%d", len(vars))
		}
		if vars[0].ID != afterFirst["host"].ID {
			t.Fatalf("\nwanted:\n%v updated in place\ngot:\n%v", afterFirst["host"].ID, vars[0].ID)
		}
	})

	t.Run("should create only the synced variable on an empty target", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		source := testWorkspace(t, repo, "Source")
		target := testWorkspace(t, repo, "Target")
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "A", "a-value", false)
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "B", "b-value", false)
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "C", "c-value", true)

		group, err := NewSyncGroupManager(repo).Create(ctx, domain.SyncGroupFields{
			Name:                "G",
			WorkspaceIDs:        []uuid.UUID{source.ID, target.ID},
			SyncedVariableNames: []string{"A"},
		})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		result, err := NewPropagator(repo, repo).Propagate(ctx, group.ID, source.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if want := (PropagationResult{Synced: 1, Skipped: 2}); result != want {
			t.Fatalf("\nwanted:\n%+v\ngot:\n%+v", want, result)
		}

		vars, err := repo.ListVariablesByScope(ctx, domain.WorkspaceScope(target.ID))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(vars) != 1 || vars[0].Name != "A" || vars[0].Value != "a-value" {
			t.Fatalf("\nwanted:\nexactly A=a-value\ngot:\n%+v", vars)
		}
	})

	t.Run("should update the last of several same-name target variables", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		source := testWorkspace(t, repo, "Source")
		target := testWorkspace(t, repo, "Target")
		testVariable(t, repo, domain.WorkspaceScope(source.ID), "host", "new", false)
		older := testVariable(t, repo, domain.WorkspaceScope(target.ID), "host", "old-1", false)
		newer := testVariable(t, repo, domain.WorkspaceScope(target.ID), "host", "old-2", false)

		group, err := NewSyncGroupManager(repo).Create(ctx, domain.SyncGroupFields{
			Name:                "G",
			WorkspaceIDs:        []uuid.UUID{source.ID, target.ID},
			SyncedVariableNames: []string{"host"},
		})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if _, err := NewPropagator(repo, repo).Propagate(ctx, group.ID, source.ID); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		gotOlder, err := repo.GetVariable(ctx, older.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		gotNewer, err := repo.GetVariable(ctx, newer.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if gotOlder.Value != "old-1" || gotNewer.Value != "new" {
			t.Fatalf("\nwanted:\nold-1 new\ngot:\n%s %s", gotOlder.Value, gotNewer.Value)
		}
	})

	t.Run("should return a zero result for an unknown group", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		result, err := NewPropagator(repo, repo).Propagate(ctx, uuid.New(), uuid.New())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result != (PropagationResult{}) {
			t.Fatalf("\nwanted:\n{0 0}\ngot:\n%+v", result)
		}
	})

	t.Run("should report a failing variable store as a lookup failure", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

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

		store := &failingVariables{VariableRepository: repo, failKind: domain.ScopeWorkspace}
		_, err = NewPropagator(repo, store).Propagate(ctx, group.ID, source.ID)

		var lookup *LookupFailure
		if !errors.As(err, &lookup) || !errors.Is(err, errStore) {
			t.Fatalf("\nwanted:\n*LookupFailure wrapping %v\ngot:\n%v", errStore, err)
		}
	})
}

func TestWorkspaceLocks(t *testing.T) {
	t.Run("should serialise holders of the same workspace", func(t *testing.T) {
		var locks workspaceLocks
		id := uuid.New()
		ctx := context.Background()

		var mu sync.Mutex
		active, maxActive := 0, 0

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locks.acquire(ctx, id)
				if err != nil {
					t.Errorf("\nwanted:\nnil\ngot:\n%v", err)
					return
				}
				mu.Lock()
				active++
				maxActive = max(maxActive, active)
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				unlock()
			}()
		}
		wg.Wait()

		if maxActive != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", maxActive)
		}
		if len(locks.locks) != 0 {
			t.Fatalf("\nwanted:\nno locks left\ngot:\n%d", len(locks.locks))
		}
	})

	t.Run("should not block different workspaces", func(t *testing.T) {
		var locks workspaceLocks
		ctx := context.Background()

		unlockA, err := locks.acquire(ctx, uuid.New())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		defer unlockA()

		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		unlockB, err := locks.acquire(ctx, uuid.New())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		unlockB()
	})

	t.Run("should give up when the context is done", func(t *testing.T) {
		var locks workspaceLocks
		id := uuid.New()

		unlock, err := locks.acquire(context.Background(), id)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := locks.acquire(ctx, id); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", context.DeadlineExceeded, err)
		}
	})
}
