// Package migration applies versioned SQL files to the ledger database.
// Files are named NNNN_description.up.sql with an optional matching
// .down.sql, and run in lexical order inside one transaction each.
package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/f-lab-edu/stock-simulator/pkg/postgresql"
)

const trackingTable = "schema_migrations"

// Migration is one versioned schema change.
type Migration struct {
	ID      string
	UpSQL   string
	DownSQL string
}

// Runner executes migrations against the ledger database.
type Runner struct {
	client postgresql.PostgreSQLClient
	dir    string
}

// NewRunner creates a migration runner reading SQL files from dir.
func NewRunner(client postgresql.PostgreSQLClient, dir string) *Runner {
	return &Runner{client: client, dir: dir}
}

// EnsureTrackingTable creates the applied-migrations table when missing.
func (r *Runner) EnsureTrackingTable(ctx context.Context) error {
	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
	`, trackingTable)

	_, err := r.client.Exec(ctx, createSQL)
	return err
}

// Up applies every pending migration, or at most steps of them when
// steps is positive.
func (r *Runner) Up(ctx context.Context, steps int) error {
	migrations, err := r.load()
	if err != nil {
		return err
	}

	applied, err := r.appliedIDs(ctx)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, m := range migrations {
		if !applied[m.ID] {
			pending = append(pending, m)
		}
	}
	if steps > 0 && len(pending) > steps {
		pending = pending[:steps]
	}

	for _, m := range pending {
		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, m.UpSQL); err != nil {
				return err
			}
			recordSQL := fmt.Sprintf("INSERT INTO %s (id) VALUES ($1)", trackingTable)
			_, err := r.client.Exec(txCtx, recordSQL, m.ID)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.ID, err)
		}
	}

	return nil
}

// Down reverts the most recently applied migrations, steps at a time.
func (r *Runner) Down(ctx context.Context, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive for down migrations")
	}

	migrations, err := r.load()
	if err != nil {
		return err
	}

	applied, err := r.appliedIDs(ctx)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for i := len(migrations) - 1; i >= 0 && len(toRevert) < steps; i-- {
		if applied[migrations[i].ID] {
			toRevert = append(toRevert, migrations[i])
		}
	}

	for _, m := range toRevert {
		if m.DownSQL == "" {
			return fmt.Errorf("migration %s has no down file", m.ID)
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, m.DownSQL); err != nil {
				return err
			}
			removeSQL := fmt.Sprintf("DELETE FROM %s WHERE id = $1", trackingTable)
			_, err := r.client.Exec(txCtx, removeSQL, m.ID)
			return err
		})
		if err != nil {
			return fmt.Errorf("revert migration %s: %w", m.ID, err)
		}
	}

	return nil
}

func (r *Runner) appliedIDs(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	query := fmt.Sprintf("SELECT id FROM %s", trackingTable)
	rows, err := r.client.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}

	return applied, nil
}

func (r *Runner) load() ([]Migration, error) {
	upFiles, err := filepath.Glob(filepath.Join(r.dir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(upFiles)

	var migrations []Migration
	for _, upFile := range upFiles {
		upSQL, err := os.ReadFile(upFile)
		if err != nil {
			return nil, err
		}

		id := strings.TrimSuffix(filepath.Base(upFile), ".up.sql")

		var downSQL []byte
		downFile := strings.Replace(upFile, ".up.sql", ".down.sql", 1)
		if content, err := os.ReadFile(downFile); err == nil {
			downSQL = content
		}

		migrations = append(migrations, Migration{
			ID:      id,
			UpSQL:   strings.TrimSpace(string(upSQL)),
			DownSQL: strings.TrimSpace(string(downSQL)),
		})
	}

	return migrations, nil
}
