package migrations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	goose.AddMigrationContext(upMembersToTable, downMembersToColumn)
}

// upMembersToTable moves sync group membership out of the JSON workspace_ids column into
// sync_group_member, keeping the member order.
func upMembersToTable(ctx context.Context, tx *sql.Tx) error {
	createQuery := `
		CREATE TABLE sync_group_member (
			group_id     TEXT NOT NULL REFERENCES sync_group(id) ON DELETE CASCADE,
			workspace_id TEXT NOT NULL,
			position     INTEGER NOT NULL,
			PRIMARY KEY (group_id, workspace_id)
		);
		CREATE INDEX idx_sync_group_member_workspace ON sync_group_member(workspace_id);
	`
	_, err := tx.ExecContext(ctx, createQuery)
	if err != nil {
		return fmt.Errorf("creating sync_group_member table : %w", err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT id, workspace_ids FROM sync_group")
	if err != nil {
		return fmt.Errorf("getting all sync groups: %w", err)
	}

	members := make(map[string][]string)
	var order []string
	for rows.Next() {
		var id string
		var workspaceIDs sql.NullString
		if err := rows.Scan(&id, &workspaceIDs); err != nil {
			rows.Close()
			return fmt.Errorf("scanning row: %w", err)
		}

		var ids []string
		if workspaceIDs.Valid && workspaceIDs.String != "" {
			if err := json.Unmarshal([]byte(workspaceIDs.String), &ids); err != nil {
				rows.Close()
				return fmt.Errorf("decoding workspace_ids for group %s : %w", id, err)
			}
		}
		members[id] = ids
		order = append(order, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating rows: %w", err)
	}
	rows.Close()

	for _, groupID := range order {
		position := 0
		for _, workspaceID := range members[groupID] {
			_, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO sync_group_member (group_id, workspace_id, position) VALUES (?, ?, ?)",
				groupID, workspaceID, position)
			if err != nil {
				return fmt.Errorf("inserting member %s of group %s : %w", workspaceID, groupID, err)
			}
			position++
		}
	}

	_, err = tx.ExecContext(ctx, "ALTER TABLE sync_group DROP COLUMN workspace_ids")
	if err != nil {
		return fmt.Errorf("dropping workspace_ids column : %w", err)
	}
	return nil
}

func downMembersToColumn(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "ALTER TABLE sync_group ADD COLUMN workspace_ids TEXT NOT NULL DEFAULT '[]'")
	if err != nil {
		return fmt.Errorf("failed to add workspace_ids column for rollback: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT group_id, workspace_id FROM sync_group_member ORDER BY group_id, position")
	if err != nil {
		return fmt.Errorf("failed to query members for rollback: %w", err)
	}

	members := make(map[string][]string)
	for rows.Next() {
		var groupID, workspaceID string
		if err := rows.Scan(&groupID, &workspaceID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan member for rollback: %w", err)
		}
		members[groupID] = append(members[groupID], workspaceID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("member iteration error during rollback: %w", err)
	}
	rows.Close()

	for groupID, ids := range members {
		encoded, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("failed to encode members of group %s for rollback: %w", groupID, err)
		}
		_, err = tx.ExecContext(ctx, "UPDATE sync_group SET workspace_ids = ? WHERE id = ?", string(encoded), groupID)
		if err != nil {
			return fmt.Errorf("failed to update group %s for rollback: %w", groupID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE sync_group_member"); err != nil {
		return fmt.Errorf("failed to drop sync_group_member for rollback: %w", err)
	}
	return nil
}
