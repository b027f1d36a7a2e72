package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

var _ domain.LogRepository = (*Repository)(nil)

// dbLog represents a log entry as stored in the database.
type dbLog struct {
	ID          uuid.UUID     `db:"id"`            // Unique identifier for the log entry.
	Timestamp   time.Time     `db:"timestamp"`     // The time at which the log entry was created.
	Level       string        `db:"level"`         // The severity level of the log.
	Message     string        `db:"message"`       // The main content of the log message.
	Context     Metadata      `db:"context"`       // A map of additional key-value data for structured logging.
	WorkspaceID uuid.NullUUID `db:"workspace_id"`  // An optional ID of the workspace the entry is about.
	SyncGroupID uuid.NullUUID `db:"sync_group_id"` // An optional ID of the sync group the entry is about.
}

// toDomainLog converts a dbLog to a domain.Log.
func toDomainLog(dbLog *dbLog) *domain.Log {
	log := &domain.Log{
		ID:        dbLog.ID,
		Timestamp: dbLog.Timestamp,
		Level:     dbLog.Level,
		Message:   dbLog.Message,
		Context:   map[string]any(dbLog.Context),
	}

	if dbLog.WorkspaceID.Valid {
		id := dbLog.WorkspaceID.UUID
		log.WorkspaceID = &id
	}

	if dbLog.SyncGroupID.Valid {
		id := dbLog.SyncGroupID.UUID
		log.SyncGroupID = &id
	}

	return log
}

// fromDomainLog converts a domain.Log to a dbLog.
func fromDomainLog(log *domain.Log) *dbLog {
	dbLog := &dbLog{
		ID:        log.ID,
		Timestamp: log.Timestamp,
		Level:     log.Level,
		Message:   log.Message,
		Context:   Metadata(log.Context),
	}

	if log.WorkspaceID != nil {
		dbLog.WorkspaceID = uuid.NullUUID{UUID: *log.WorkspaceID, Valid: true}
	}

	if log.SyncGroupID != nil {
		dbLog.SyncGroupID = uuid.NullUUID{UUID: *log.SyncGroupID, Valid: true}
	}

	return dbLog
}

// InsertLog saves a new log entry to the database.
func (repo *Repository) InsertLog(ctx context.Context, log *domain.Log) error {
	dbLog := fromDomainLog(log)
	query := `INSERT INTO logs (id, level, timestamp, message, context, workspace_id, sync_group_id)
	          VALUES (:id, :level, :timestamp, :message, :context, :workspace_id, :sync_group_id)`

	_, err := repo.dbConn.NamedExecContext(ctx, query, dbLog)
	if err != nil {
		return fmt.Errorf("inserting log %s: %w", log.ID, err)
	}

	return nil
}

// GetLogs retrieves all log entries from the database, oldest first.
func (repo *Repository) GetLogs(ctx context.Context) ([]*domain.Log, error) {
	var dbLogs []*dbLog
	query := `SELECT * FROM logs ORDER BY rowid`

	err := repo.dbConn.SelectContext(ctx, &dbLogs, query)
	if err != nil {
		return nil, fmt.Errorf("fetching all logs: %w", err)
	}

	domainLogs := make([]*domain.Log, len(dbLogs))
	for i, dbLog := range dbLogs {
		domainLogs[i] = toDomainLog(dbLog)
	}

	return domainLogs, nil
}
