package postgresql

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContainer wraps a throwaway PostgreSQL instance for integration tests.
type TestContainer struct {
	Container testcontainers.Container
	Client    PostgreSQLClient
	ConnStr   string

	ctx context.Context
}

// TestContainerConfig holds configuration for the test container.
type TestContainerConfig struct {
	Image          string
	Database       string
	Username       string
	Password       string
	MigrationsPath string
	StartupTimeout time.Duration
}

// DefaultTestContainerConfig returns sensible defaults for tests.
func DefaultTestContainerConfig() TestContainerConfig {
	return TestContainerConfig{
		Image:          "postgres:15-alpine",
		Database:       "stocksim_test",
		Username:       "postgres",
		Password:       "postgres",
		StartupTimeout: 5 * time.Minute,
	}
}

// NewTestContainer starts a PostgreSQL container and connects a client to it.
// When MigrationsPath is set, every *.up.sql file under it is applied in
// lexical order before returning.
func NewTestContainer(ctx context.Context, config TestContainerConfig) (*TestContainer, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(config.Image),
		postgres.WithDatabase(config.Database),
		postgres.WithUsername(config.Username),
		postgres.WithPassword(config.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(config.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	tc := &TestContainer{
		Container: container,
		Client:    &Client{pool: pool},
		ConnStr:   connStr,
		ctx:       ctx,
	}

	if config.MigrationsPath != "" {
		if err := tc.RunMigrations(config.MigrationsPath); err != nil {
			tc.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return tc, nil
}

// RunMigrations applies every *.up.sql file under path, in lexical order.
func (tc *TestContainer) RunMigrations(path string) error {
	files, err := filepath.Glob(filepath.Join(path, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := tc.runMigrationFile(file); err != nil {
			return fmt.Errorf("migration %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

func (tc *TestContainer) runMigrationFile(file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	for _, stmt := range splitStatements(string(content)) {
		if _, err := tc.Client.Exec(tc.ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements strips line comments and splits on trailing semicolons.
// Good enough for DDL migrations; statements do not embed semicolons.
func splitStatements(sql string) []string {
	var lines []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, raw := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt := strings.TrimSpace(raw); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// TruncateAllTables empties every user table, keeping the schema. Triggers
// are disabled for the session so FK ordering does not matter.
func (tc *TestContainer) TruncateAllTables() error {
	rows, err := tc.Client.Query(tc.ctx, `
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		tables = append(tables, name)
	}
	if len(tables) == 0 {
		return nil
	}

	if _, err := tc.Client.Exec(tc.ctx, "SET session_replication_role = replica"); err != nil {
		return err
	}
	defer func() {
		_, _ = tc.Client.Exec(tc.ctx, "SET session_replication_role = DEFAULT")
	}()

	stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if _, err := tc.Client.Exec(tc.ctx, stmt); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// Close shuts down the client and terminates the container.
func (tc *TestContainer) Close() {
	if tc.Client != nil {
		tc.Client.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(tc.ctx)
	}
}
