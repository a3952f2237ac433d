package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	Name    string
	Content string
}

// RunMigrations applies every embedded migration that has not run yet, in
// file name order. Each migration runs in its own transaction.
func RunMigrations(db *DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS _migrations (
			name TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedMigrations(db.DB)
	if err != nil {
		return fmt.Errorf("getting applied migrations: %w", err)
	}

	pending, err := migrationFiles()
	if err != nil {
		return fmt.Errorf("reading migration files: %w", err)
	}

	count := 0
	for _, m := range pending {
		if applied[m.Name] {
			continue
		}

		err := db.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Content); err != nil {
				return fmt.Errorf("executing SQL: %w", err)
			}
			if _, err := tx.Exec("INSERT INTO _migrations (name) VALUES (?)", m.Name); err != nil {
				return fmt.Errorf("recording migration: %w", err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("applying migration %s: %w", m.Name, err)
		}
		log.Printf("Migration applied: %s", m.Name)
		count++
	}

	if count > 0 {
		log.Printf("Applied %d migration(s) to %s", count, db.Path())
	}
	return nil
}

func appliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT name FROM _migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}

	return applied, rows.Err()
}

func migrationFiles() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := migrationsFS.ReadFile(path.Join("migrations", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		migrations = append(migrations, migration{Name: e.Name(), Content: string(content)})
	}

	// Numeric prefixes keep lexical order correct.
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})

	return migrations, nil
}
