package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamwavecut/shopkeeper/internal/db"
)

func (c *sqliteClient) GetBanRecord(ctx context.Context, userID string) (*db.BanRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var record db.BanRecord
	err := c.db.GetContext(ctx, &record, `SELECT user_id, reason, banned_by, banned_at FROM banned_users WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ban record: %w", err)
	}
	return &record, nil
}

// InsertBanRecord replaces an existing record for the same user.
func (c *sqliteClient) InsertBanRecord(ctx context.Context, record *db.BanRecord) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if record.BannedAt.IsZero() {
		record.BannedAt = c.now()
	}
	query := `
		INSERT INTO banned_users (user_id, reason, banned_by, banned_at)
		VALUES (:user_id, :reason, :banned_by, :banned_at)
		ON CONFLICT(user_id) DO UPDATE SET
			reason = excluded.reason,
			banned_by = excluded.banned_by,
			banned_at = excluded.banned_at
	`
	if _, err := c.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to insert ban record: %w", err)
	}
	return nil
}

func (c *sqliteClient) UpsertWarning(ctx context.Context, warning *db.Warning) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if warning.LastWarning.IsZero() {
		warning.LastWarning = c.now()
	}
	query := `
		INSERT INTO warnings (user_id, group_id, reason, count, last_warning)
		VALUES (:user_id, :group_id, :reason, :count, :last_warning)
		ON CONFLICT(user_id, group_id) DO UPDATE SET
			reason = excluded.reason,
			count = excluded.count,
			last_warning = excluded.last_warning
	`
	if _, err := c.db.NamedExecContext(ctx, query, warning); err != nil {
		return fmt.Errorf("failed to upsert warning: %w", err)
	}
	return nil
}

func (c *sqliteClient) GetWarning(ctx context.Context, userID, groupID string) (*db.Warning, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var warning db.Warning
	err := c.db.GetContext(ctx, &warning, `
		SELECT user_id, group_id, reason, count, last_warning
		FROM warnings WHERE user_id = ? AND group_id = ?
	`, userID, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get warning: %w", err)
	}
	return &warning, nil
}

func (c *sqliteClient) DeleteWarning(ctx context.Context, userID, groupID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM warnings WHERE user_id = ? AND group_id = ?`, userID, groupID); err != nil {
		return fmt.Errorf("failed to delete warning: %w", err)
	}
	return nil
}

func (c *sqliteClient) DeleteAllWarnings(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM warnings`); err != nil {
		return fmt.Errorf("failed to delete warnings: %w", err)
	}
	return nil
}
