package courier

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

// PropagationResult counts, over every target workspace, the variables written and skipped.
type PropagationResult struct {
	Synced  int
	Skipped int
}

// Propagator pushes workspace variables from one member of a sync group to every other member.
type Propagator struct {
	groups    domain.SyncGroupRepository
	variables domain.VariableRepository
	locks     workspaceLocks
}

// NewPropagator returns a Propagator reading groups and writing variables through the given stores.
func NewPropagator(groups domain.SyncGroupRepository, variables domain.VariableRepository) *Propagator {
	return &Propagator{
		groups:    groups,
		variables: variables,
	}
}

// Propagate copies the source workspace's synced variables to every other member, in member order.
//
// A variable is skipped when its name is not synced by the group, or when it is secret and the
// group does not sync secrets. A target variable with the same name gets its value updated and
// keeps its own id, secret flag and description; otherwise a new variable is created.
//
// A group that cannot be fetched yields a zero result and no error, since it may have been
// deleted concurrently. Propagations into the same target workspace are serialised.
func (p *Propagator) Propagate(ctx context.Context, groupID, sourceWorkspaceID uuid.UUID) (PropagationResult, error) {
	var result PropagationResult

	group, err := p.groups.GetSyncGroup(ctx, groupID)
	if err != nil {
		return result, nil
	}

	sourceScope := domain.WorkspaceScope(sourceWorkspaceID)
	sourceVariables, err := p.variables.ListVariablesByScope(ctx, sourceScope)
	if err != nil {
		return result, &LookupFailure{Scope: sourceScope, Op: "listing source variables", Err: err}
	}

	for _, targetID := range group.WorkspaceIDs {
		if targetID == sourceWorkspaceID {
			continue
		}

		synced, skipped, err := p.propagateTo(ctx, group, targetID, sourceVariables)
		result.Synced += synced
		result.Skipped += skipped
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (p *Propagator) propagateTo(ctx context.Context, group *domain.SyncGroup, targetID uuid.UUID, sourceVariables []*domain.Variable) (synced, skipped int, err error) {
	unlock, err := p.locks.acquire(ctx, targetID)
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	targetScope := domain.WorkspaceScope(targetID)
	existing, err := p.variables.ListVariablesByScope(ctx, targetScope)
	if err != nil {
		return 0, 0, &LookupFailure{Scope: targetScope, Op: "listing target variables", Err: err}
	}

	// The last of several same-name variables is the one updated.
	byName := make(map[string]*domain.Variable, len(existing))
	for _, v := range existing {
		byName[v.Name] = v
	}

	for _, source := range sourceVariables {
		if !group.Syncs(source.Name) || (source.IsSecret && !group.SyncSecrets) {
			skipped++
			continue
		}

		if target, ok := byName[source.Name]; ok {
			value := source.Value
			if _, err := p.variables.UpdateVariable(ctx, target.ID, domain.VariablePatch{Value: &value}); err != nil {
				return synced, skipped, &LookupFailure{Scope: targetScope, Op: "updating variable " + source.Name, Err: err}
			}
			synced++
			continue
		}

		fields := copyVariableFields(source, targetScope, group.SyncSecrets)
		created, err := p.variables.CreateVariable(ctx, fields)
		if err != nil {
			return synced, skipped, &LookupFailure{Scope: targetScope, Op: "creating variable " + source.Name, Err: err}
		}
		byName[created.Name] = created
		synced++
	}
	return synced, skipped, nil
}

// workspaceLocks hands out one lock per workspace id, dropping it once no caller holds or
// waits on it.
type workspaceLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*workspaceLock
}

type workspaceLock struct {
	held chan struct{}
	refs int
}

// acquire blocks until the workspace lock is free or ctx is done.
func (l *workspaceLocks) acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*workspaceLock)
	}
	lock, ok := l.locks[id]
	if !ok {
		lock = &workspaceLock{held: make(chan struct{}, 1)}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.held <- struct{}{}:
		return func() {
			<-lock.held
			l.release(id, lock)
		}, nil
	case <-ctx.Done():
		l.release(id, lock)
		return nil, ctx.Err()
	}
}

func (l *workspaceLocks) release(id uuid.UUID, lock *workspaceLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}
