package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"thirdcoast.systems/reframe/pkg/utils/retry"
)

// DatabaseConnection wraps the SQLite handle. Reads go straight to the
// pool; writes are serialized through a process-wide mutex because
// SQLite allows a single writer even in WAL mode.
type DatabaseConnection struct {
	db      *sql.DB
	writeMu sync.Mutex
}

const (
	writeRetryCount = 5
	writeRetryBase  = 100 * time.Millisecond
)

// NewDatabaseConnection opens (creating if necessary) the database at path.
func NewDatabaseConnection(ctx context.Context, path string) (*DatabaseConnection, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path,
	)

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}

	return &DatabaseConnection{db: sqldb}, nil
}

// Close closes the database connection.
func (dbc *DatabaseConnection) Close() error {
	return dbc.db.Close()
}

// DB exposes the underlying handle for tooling (migration CLI).
func (dbc *DatabaseConnection) DB() *sql.DB {
	return dbc.db
}

func (dbc *DatabaseConnection) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return dbc.db.QueryContext(ctx, q, args...)
}

func (dbc *DatabaseConnection) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return dbc.db.QueryRowContext(ctx, q, args...)
}

// execWrite runs a mutating statement under the write lock, retrying
// briefly when another connection holds the database lock.
func (dbc *DatabaseConnection) execWrite(ctx context.Context, q string, args ...any) (int64, error) {
	dbc.writeMu.Lock()
	defer dbc.writeMu.Unlock()

	var affected int64
	err := retry.Do(ctx, writeRetryCount, writeRetryBase, func(ctx context.Context) error {
		res, err := dbc.db.ExecContext(ctx, q, args...)
		if err != nil {
			if isLockedErr(err) {
				return retry.Retryable(err)
			}
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	return affected, err
}

func isLockedErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy")
}

// Vacuum reclaims space and defragments the database file.
func (dbc *DatabaseConnection) Vacuum(ctx context.Context) error {
	dbc.writeMu.Lock()
	defer dbc.writeMu.Unlock()
	_, err := dbc.db.ExecContext(ctx, "VACUUM")
	return err
}

// Analyze refreshes the query planner statistics.
func (dbc *DatabaseConnection) Analyze(ctx context.Context) error {
	_, err := dbc.db.ExecContext(ctx, "ANALYZE")
	return err
}

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migrate runs the goose migrations up to the latest version.
func (dbc *DatabaseConnection) Migrate(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	currentVersion, err := goose.GetDBVersionContext(ctx, dbc.db)
	if err != nil {
		return err
	}

	migrations, err := goose.CollectMigrations("migrations", 0, goose.MaxVersion)
	if err != nil {
		return err
	}
	slog.Info("Applying migrations", "current", currentVersion, "available", len(migrations))

	return goose.UpContext(ctx, dbc.db, "migrations")
}
