package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LogRepository defines the interface for the activity log.
// Duplications, propagations and sync group changes are recorded here.
type LogRepository interface {
	// InsertLog saves a new log entry to the repository.
	InsertLog(ctx context.Context, log *Log) error
	// GetLogs retrieves all log entries from the repository, oldest first.
	GetLogs(ctx context.Context) ([]*Log, error)
}

// Log represents a single activity log entry.
type Log struct {
	ID          uuid.UUID      // Unique identifier for the log entry.
	Timestamp   time.Time      // The time at which the log entry was created.
	Level       string         // The severity level of the log (DEBUG, INFO, WARN, ERROR, FATAL).
	Message     string         // The main content of the log message.
	Context     map[string]any // A map of additional key-value data for structured logging.
	WorkspaceID *uuid.UUID     // An optional ID of the workspace the entry is about.
	SyncGroupID *uuid.UUID     // An optional ID of the sync group the entry is about.
}
