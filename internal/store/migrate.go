package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/jackc/pgx/v5"
)

var migrationName = regexp.MustCompile(`^(\d+)_[a-z0-9_]+\.(up|down)\.sql$`)

// Migration is one numbered schema step. Version is the up file name, which
// is what schema_migrations records.
type Migration struct {
	Number   int
	Version  string
	UpPath   string
	DownPath string
}

// LoadMigrations lists the migrations in dir in ascending number. Every
// number needs exactly one up and one down file.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	byNumber := map[int]*Migration{}
	for _, entry := range entries {
		match := migrationName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		var number int
		if _, err := fmt.Sscanf(match[1], "%d", &number); err != nil {
			return nil, fmt.Errorf("migration %s: %w", entry.Name(), err)
		}
		m := byNumber[number]
		if m == nil {
			m = &Migration{Number: number}
			byNumber[number] = m
		}
		path := filepath.Join(dir, entry.Name())
		switch match[2] {
		case "up":
			if m.UpPath != "" {
				return nil, fmt.Errorf("migration %d: two up files", number)
			}
			m.UpPath, m.Version = path, entry.Name()
		case "down":
			if m.DownPath != "" {
				return nil, fmt.Errorf("migration %d: two down files", number)
			}
			m.DownPath = path
		}
	}

	out := make([]Migration, 0, len(byNumber))
	for number, m := range byNumber {
		if m.UpPath == "" || m.DownPath == "" {
			return nil, fmt.Errorf("migration %d: needs both up and down files", number)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// ApplyMigrations runs every up migration of dir not yet recorded, each in
// its own transaction together with its schema_migrations row.
func ApplyMigrations(ctx context.Context, db DB, dir string) error {
	migrations, err := LoadMigrations(dir)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, m.Version).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", m.Version, err)
		}
		if applied {
			continue
		}
		script, err := os.ReadFile(m.UpPath)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", m.Version, err)
		}
		err = pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(script)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, m.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
	}
	return nil
}
