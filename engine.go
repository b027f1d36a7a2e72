// Package courier is the engine of an HTTP request workbench: it resolves variables declared at
// global, workspace, collection and request scope, interpolates them into saved requests,
// duplicates workspaces and keeps variables in sync across groups of workspaces.
//
// Stores are injected as values, typically a single *db.Repository:
//
//	conn, _ := db.New("courier.db")
//	engine, err := courier.New(
//		courier.WithConfigDir(dir),
//		courier.WithRepository(db.NewRepository(conn)),
//	)
package courier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/core"
	"github.com/tfkr-ae/courier/domain"
)

// Engine wires the resolver, duplicator, propagator and transport to a set of stores.
type Engine struct {
	ConfigDir      string                      // Directory config.yaml was loaded from, empty for defaults
	Config         *Config                     // Engine settings
	Logger         *slog.Logger                // Operational logger
	Variables      domain.VariableRepository   // Variable store
	Collections    domain.CollectionRepository // Collection and request store
	Workspaces     domain.WorkspaceRepository  // Workspace store
	SyncGroupStore domain.SyncGroupRepository  // Sync group store
	Logs           domain.LogRepository        // Activity log store
	Sender         Sender                      // Transport used by Send

	repo           Repository
	propagatorOnce sync.Once
	propagator     *Propagator
}

// Preview is a request with its placeholders substituted, ready to inspect before sending.
type Preview struct {
	Request  *PreparedRequest
	Resolved *domain.ResolvedSet // Secret values are masked.
	Missing  []string            // Referenced names with no declaration in any scope.
}

// SecretMask replaces secret values in previews.
const SecretMask = "••••••"

// New creates an engine and applies options. Without WithSender, requests go through a Client
// built from the final configuration.
func New(options ...func(*Engine) error) (*Engine, error) {
	e := &Engine{
		Config: DefaultConfig(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if err := e.WithOptions(options...); err != nil {
		return nil, err
	}
	if e.Sender == nil {
		e.Sender = NewClient(e.Config)
	}
	return e, nil
}

// Close releases the repository set with WithRepository.
func (e *Engine) Close() error {
	if e.repo == nil {
		return nil
	}
	return e.repo.Close()
}

// Resolver returns a resolver over the engine's variable store.
func (e *Engine) Resolver() (*Resolver, error) {
	if e.Variables == nil {
		return nil, fmt.Errorf("variables: %w", ErrStoreMissing)
	}
	return NewResolver(e.Variables), nil
}

// SyncGroups returns a manager over the engine's sync group store.
func (e *Engine) SyncGroups() (*SyncGroupManager, error) {
	if e.SyncGroupStore == nil {
		return nil, fmt.Errorf("sync groups: %w", ErrStoreMissing)
	}
	return NewSyncGroupManager(e.SyncGroupStore), nil
}

// Resolve returns the effective variables for a workspace and optional collection and request.
func (e *Engine) Resolve(ctx context.Context, workspaceID uuid.UUID, collectionID, requestID *uuid.UUID) (*domain.ResolvedSet, error) {
	resolver, err := e.Resolver()
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(ctx, workspaceID, collectionID, requestID)
}

// Preview loads a saved request and interpolates it. Secret values are interpolated into the
// request but masked in the returned set.
func (e *Engine) Preview(ctx context.Context, requestID uuid.UUID) (*Preview, error) {
	if e.Collections == nil {
		return nil, fmt.Errorf("collections: %w", ErrStoreMissing)
	}
	resolver, err := e.Resolver()
	if err != nil {
		return nil, err
	}

	req, err := e.Collections.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("loading request %s: %w", requestID, err)
	}

	resolved, err := resolver.ResolveForRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Request:  PrepareRequest(req, resolved),
		Resolved: resolved.Redacted(SecretMask),
		Missing:  MissingVariables(req, resolved),
	}, nil
}

// Send previews a saved request and dispatches it through the engine's Sender.
func (e *Engine) Send(ctx context.Context, requestID uuid.UUID) (*domain.Response, error) {
	preview, err := e.Preview(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if len(preview.Missing) > 0 {
		e.Logger.Warn("sending request with unresolved variables", "request", requestID, "missing", preview.Missing)
	}

	res, err := e.Sender.Send(ctx, preview.Request)
	if err != nil {
		e.Logger.Error("sending request", "request", requestID, "error", err)
		return nil, err
	}
	e.Logger.Debug("request sent", "request", requestID, "status", res.Status, "elapsed", res.Elapsed)
	return res, nil
}

// DuplicateWorkspace copies a workspace through the workspace store and records the outcome
// in the activity log.
func (e *Engine) DuplicateWorkspace(ctx context.Context, opts DuplicateOptions) (*DuplicateResult, error) {
	if e.Workspaces == nil || e.Collections == nil || e.Variables == nil {
		return nil, fmt.Errorf("duplicating workspace: %w", ErrStoreMissing)
	}
	groups, err := e.SyncGroups()
	if err != nil {
		return nil, err
	}

	if _, err := e.Workspaces.GetWorkspace(ctx, opts.SourceWorkspaceID); err != nil {
		return nil, fmt.Errorf("loading source workspace: %w", err)
	}

	duplicator := NewDuplicator(e.Collections, e.Variables, groups)
	result, err := duplicator.Duplicate(ctx, opts, e.Workspaces.CreateWorkspace)
	if err != nil {
		copied := 0
		if result != nil {
			copied = result.copied()
		}
		e.Logger.Error("duplicating workspace", "source", opts.SourceWorkspaceID, "error", err)
		e.writeLog(ctx, "ERROR", fmt.Sprintf("Duplicating workspace %s failed: %v", opts.SourceWorkspaceID, err),
			core.LogWithWorkspaceID(opts.SourceWorkspaceID),
			core.LogWithContext(map[string]any{"copied": copied}))
		return result, err
	}

	options := []func(*domain.Log) error{
		core.LogWithWorkspaceID(result.Workspace.ID),
		core.LogWithContext(map[string]any{
			"source":      opts.SourceWorkspaceID.String(),
			"collections": result.Collections,
			"requests":    result.Requests,
			"variables":   result.Variables,
		}),
	}
	if result.SyncGroup != nil {
		options = append(options, core.LogWithSyncGroupID(result.SyncGroup.ID))
	}
	e.writeLog(ctx, "INFO", fmt.Sprintf("Duplicated workspace %s into %q", opts.SourceWorkspaceID, result.Workspace.Name), options...)
	return result, nil
}

// PropagateVariables pushes the source workspace's synced variables to the rest of the group
// and records the outcome in the activity log.
func (e *Engine) PropagateVariables(ctx context.Context, groupID, sourceWorkspaceID uuid.UUID) (PropagationResult, error) {
	if e.SyncGroupStore == nil || e.Variables == nil {
		return PropagationResult{}, fmt.Errorf("propagating variables: %w", ErrStoreMissing)
	}
	// One propagator per engine, so every caller shares its workspace locks.
	e.propagatorOnce.Do(func() {
		e.propagator = NewPropagator(e.SyncGroupStore, e.Variables)
	})

	result, err := e.propagator.Propagate(ctx, groupID, sourceWorkspaceID)
	logContext := core.LogWithContext(map[string]any{"synced": result.Synced, "skipped": result.Skipped})
	if err != nil {
		e.Logger.Error("propagating variables", "group", groupID, "source", sourceWorkspaceID, "error", err)
		e.writeLog(ctx, "ERROR", fmt.Sprintf("Propagating variables from %s failed: %v", sourceWorkspaceID, err),
			core.LogWithSyncGroupID(groupID), core.LogWithWorkspaceID(sourceWorkspaceID), logContext)
		return result, err
	}

	e.writeLog(ctx, "INFO", fmt.Sprintf("Propagated variables from %s: %d synced, %d skipped", sourceWorkspaceID, result.Synced, result.Skipped),
		core.LogWithSyncGroupID(groupID), core.LogWithWorkspaceID(sourceWorkspaceID), logContext)
	return result, nil
}

// History returns the most recent activity log entries, oldest first, capped by
// Config.MaxHistoryItems.
func (e *Engine) History(ctx context.Context) ([]*domain.Log, error) {
	if e.Logs == nil {
		return nil, fmt.Errorf("logs: %w", ErrStoreMissing)
	}
	logs, err := e.Logs.GetLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting logs: %w", err)
	}
	if limit := e.Config.MaxHistoryItems; limit > 0 && len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	return logs, nil
}

// WriteLog records an activity log entry. Level must be one of DEBUG, INFO, WARN, ERROR or FATAL.
// Without a log store the entry only goes to the operational logger.
func (e *Engine) WriteLog(ctx context.Context, level string, message string, options ...func(log *domain.Log) error) error {
	var slogLevel slog.Level
	switch level {
	case "DEBUG":
		slogLevel = slog.LevelDebug
	case "INFO":
		slogLevel = slog.LevelInfo
	case "WARN":
		slogLevel = slog.LevelWarn
	case "ERROR", "FATAL":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("level should be either: debug, info, warn, error, fatal")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}
	log := &domain.Log{
		ID:        id,
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Context:   map[string]any{},
	}
	for _, option := range options {
		if err := option(log); err != nil {
			return fmt.Errorf("applying log option : %w", err)
		}
	}

	e.Logger.Log(ctx, slogLevel, message, "log", log.ID)
	if e.Logs == nil {
		return nil
	}
	if err := e.Logs.InsertLog(ctx, log); err != nil {
		return fmt.Errorf("writing log : %w", err)
	}
	return nil
}

// writeLog is WriteLog for outcomes that must not mask the operation's own result.
func (e *Engine) writeLog(ctx context.Context, level, message string, options ...func(log *domain.Log) error) {
	if err := e.WriteLog(ctx, level, message, options...); err != nil {
		e.Logger.Warn("writing activity log", "error", err)
	}
}
