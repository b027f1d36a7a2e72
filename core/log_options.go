// Package core provides option functions for customizing activity log entries.
package core

import (
	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

// LogWithContext is an option to add a context map to a log entry.
func LogWithContext(context map[string]any) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.Context = context
		return nil
	}
}

// LogWithWorkspaceID is an option to associate a log entry with a workspace.
func LogWithWorkspaceID(id uuid.UUID) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.WorkspaceID = &id
		return nil
	}
}

// LogWithSyncGroupID is an option to associate a log entry with a sync group.
func LogWithSyncGroupID(id uuid.UUID) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.SyncGroupID = &id
		return nil
	}
}
