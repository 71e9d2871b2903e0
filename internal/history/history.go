// Package history stores pipeline run history.
//
// The store is selected by DSN: an empty DSN keeps no history, a
// postgres:// URL uses PostgreSQL through pgx, and anything else is the
// path of a SQLite file.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/mongoetl/internal/core"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

// Open returns the recorder for dsn and creates its schema.
func Open(ctx context.Context, dsn string) (core.RunRecorder, error) {
	var (
		s   *Store
		err error
	)
	switch {
	case dsn == "":
		return core.NopRecorder{}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err = openStore(ctx, postgresDialect, dsn)
	default:
		s, err = openSQLite(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openSQLite(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite"
	return openStore(ctx, sqliteDialect, dsn)
}

func openStore(ctx context.Context, d dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if d.driver == sqliteDialect.driver {
		// SQLite serializes writes
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, d: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("history store ready", "driver", d.driver)
	return s, nil
}
