package mysql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Tiliavir/trivial-pay-tracker/internal/logger"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// migration is one numbered schema change, e.g. sql/0001_pay_entries.sql.
type migration struct {
	version int
	name    string
	body    string
}

// loadMigrations reads every dir/*.sql file from fsys, ordered by version.
// Two files with the same version are an error.
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	seen := make(map[int]string, len(files))
	out := make([]migration, 0, len(files))
	for _, f := range files {
		name := path.Base(f)
		ver, err := parseVersion(name)
		if err != nil {
			return nil, fmt.Errorf("invalid migration filename %q: %w", name, err)
		}
		if prev, dup := seen[ver]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, ver)
		}
		seen[ver] = name
		body, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}
		out = append(out, migration{version: ver, name: name, body: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// pending returns the migrations not yet recorded in applied, in order.
func pending(all []migration, applied map[int]bool) []migration {
	var out []migration
	for _, m := range all {
		if !applied[m.version] {
			out = append(out, m)
		}
	}
	return out
}

// Migrate brings the pay_entries schema up to date. Each migration runs in
// its own transaction together with its schema_migrations row.
func Migrate(ctx context.Context, db *sql.DB, l *log.Logger) error {
	l = logger.OrDiscard(l)
	all, err := loadMigrations(migrationsFS, "sql")
	if err != nil {
		return err
	}
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return err
	}
	applied, err := loadApplied(ctx, db)
	if err != nil {
		return err
	}

	todo := pending(all, applied)
	if len(todo) == 0 {
		l.Debug("schema up to date", "migrations", len(all))
		return nil
	}
	for _, m := range todo {
		l.Info("applying migration", "version", m.version, "file", m.name)
		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("applying %s: %w", m.name, err)
		}
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.body); err != nil {
		return err
	}
	const record = "INSERT INTO schema_migrations(version, name, applied_at) VALUES(?, ?, ?)"
	if _, err := tx.ExecContext(ctx, record, m.version, m.name, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version BIGINT PRIMARY KEY,
        name VARCHAR(255) NOT NULL,
        applied_at DATETIME(6) NOT NULL
    ) ENGINE=InnoDB;`
	_, err := db.ExecContext(ctx, ddl)
	return err
}

func loadApplied(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		m[v] = true
	}
	return m, rows.Err()
}

// parseVersion reads the numeric prefix of 0001_name.sql.
func parseVersion(name string) (int, error) {
	i := strings.IndexByte(name, '_')
	if i <= 0 {
		return 0, fmt.Errorf("missing prefix number")
	}
	return strconv.Atoi(name[:i])
}
