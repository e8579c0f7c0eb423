package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/quantumlife/lifeos/internal/logging"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// Migration is one schema step, read from a file named NNN_name.sql
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrate brings the schema up to the newest embedded migration
func (db *DB) Migrate() error {
	sub, err := fs.Sub(schemaFS, "migrations")
	if err != nil {
		return err
	}
	return db.migrate(sub)
}

func (db *DB) migrate(fsys fs.FS) error {
	steps, err := loadMigrations(fsys)
	if err != nil {
		return err
	}

	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	done, err := db.appliedVersions()
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range steps {
		if done[m.Version] {
			continue
		}
		err := db.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		logging.Debug("Applied migration %s", m.Name)
		applied++
	}

	if applied > 0 {
		logging.Info("Database schema at version %d (%d applied)", steps[len(steps)-1].Version, applied)
	}
	return nil
}

// AppliedMigrations lists applied migration names by version
func (db *DB) AppliedMigrations() ([]string, error) {
	rows, err := db.conn.Query(`SELECT name FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (db *DB) appliedVersions() (map[int]bool, error) {
	rows, err := db.conn.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

// loadMigrations reads every .sql file of fsys, sorted by version.
// A file without a numeric prefix or a repeated version is an error.
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}

	steps := make([]Migration, 0, len(files))
	seen := make(map[int]string)
	for _, file := range files {
		prefix, _, ok := strings.Cut(path.Base(file), "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: name must start with a version, e.g. 001_init.sql", file)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, file, version)
		}
		seen[version] = file

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		steps = append(steps, Migration{Version: version, Name: file, SQL: string(body)})
	}

	slices.SortFunc(steps, func(a, b Migration) int { return a.Version - b.Version })
	return steps, nil
}
