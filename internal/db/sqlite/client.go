package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/shopkeeper/internal/db"
	"github.com/iamwavecut/shopkeeper/resources"
)

type sqliteClient struct {
	db    *sqlx.DB
	mutex sync.RWMutex
	now   func() time.Time
}

func NewSQLiteClient(ctx context.Context, dataDir, dbName string) (*sqliteClient, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	dsn := filepath.Join(dataDir, dbName) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	dbx, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	dbx.SetMaxOpenConns(8)
	if err := dbx.PingContext(ctx); err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.ExecContext(ctx, dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	if n > 0 {
		log.WithField("object", "SQLiteClient").Infof("applied %d migrations", n)
	}

	return &sqliteClient{db: dbx, now: time.Now}, nil
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}

func (c *sqliteClient) UpsertUser(ctx context.Context, user *db.User) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastSeenAt = now
	query := `
		INSERT INTO users (id, name, is_admin, created_at, last_seen_at)
		VALUES (:id, :name, :is_admin, :created_at, :last_seen_at)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN users.name ELSE excluded.name END,
			is_admin = excluded.is_admin,
			last_seen_at = excluded.last_seen_at
	`
	if _, err := c.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (c *sqliteClient) GetUser(ctx context.Context, userID string) (*db.User, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var user db.User
	err := c.db.GetContext(ctx, &user, `SELECT id, name, is_admin, created_at, last_seen_at FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (c *sqliteClient) GetStats(ctx context.Context) (*db.Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var stats db.Stats
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM products) AS products,
			(SELECT COUNT(*) FROM orders) AS orders,
			(SELECT COUNT(*) FROM services) AS services,
			(SELECT COUNT(*) FROM bookings WHERE status != 'cancelled') AS bookings,
			(SELECT COUNT(*) FROM banned_users) AS banned
	`
	if err := c.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}
