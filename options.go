package courier

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/tfkr-ae/courier/domain"
)

// Repository is a single store implementing every repository the engine needs, such as
// *db.Repository.
type Repository interface {
	domain.VariableRepository
	domain.CollectionRepository
	domain.WorkspaceRepository
	domain.SyncGroupRepository
	domain.LogRepository
	Close() error
}

// WithOptions applies a series of configuration functions to the engine.
// It stops at the first option that returns an error.
func (e *Engine) WithOptions(options ...func(*Engine) error) error {
	for _, option := range options {
		err := option(e)
		if err != nil {
			return fmt.Errorf("applying option on courier : %w", err)
		}
	}
	return nil
}

// WithRepository uses repo for every store. A repository set earlier is closed first.
func WithRepository(repo Repository) func(*Engine) error {
	return func(e *Engine) error {
		if e.repo != nil {
			if err := e.repo.Close(); err != nil {
				return fmt.Errorf("closing previous repository : %w", err)
			}
		}
		e.repo = repo
		e.Variables = repo
		e.Collections = repo
		e.Workspaces = repo
		e.SyncGroupStore = repo
		e.Logs = repo
		return nil
	}
}

// WithVariableStore sets the variable store.
func WithVariableStore(store domain.VariableRepository) func(*Engine) error {
	return func(e *Engine) error {
		e.Variables = store
		return nil
	}
}

// WithCollectionStore sets the collection and request store.
func WithCollectionStore(store domain.CollectionRepository) func(*Engine) error {
	return func(e *Engine) error {
		e.Collections = store
		return nil
	}
}

// WithWorkspaceStore sets the workspace store, which is also the duplication workspace factory.
func WithWorkspaceStore(store domain.WorkspaceRepository) func(*Engine) error {
	return func(e *Engine) error {
		e.Workspaces = store
		return nil
	}
}

// WithSyncGroupStore sets the sync group store.
func WithSyncGroupStore(store domain.SyncGroupRepository) func(*Engine) error {
	return func(e *Engine) error {
		e.SyncGroupStore = store
		return nil
	}
}

// WithLogStore sets the store activity log entries are written to.
func WithLogStore(store domain.LogRepository) func(*Engine) error {
	return func(e *Engine) error {
		e.Logs = store
		return nil
	}
}

// WithLogger sets the operational logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) func(*Engine) error {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		e.Logger = logger
		return nil
	}
}

// WithConfig sets the engine configuration.
func WithConfig(cfg *Config) func(*Engine) error {
	return func(e *Engine) error {
		if cfg == nil {
			cfg = DefaultConfig()
		}
		e.Config = cfg
		return nil
	}
}

// WithConfigDir loads config.yaml from dir, creating the dir and the file on first use.
func WithConfigDir(dir string) func(*Engine) error {
	return func(e *Engine) error {
		cfg, err := LoadConfig(dir)
		if err != nil {
			return fmt.Errorf("loading config from %s : %w", dir, err)
		}
		e.ConfigDir = dir
		e.Config = cfg
		return nil
	}
}

// WithSender replaces the HTTP client used by Send.
func WithSender(sender Sender) func(*Engine) error {
	return func(e *Engine) error {
		e.Sender = sender
		return nil
	}
}
