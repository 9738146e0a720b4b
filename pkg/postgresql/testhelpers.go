package postgresql

import (
	"context"
	"testing"
)

// TestHelper ties a TestContainer to a test's lifecycle.
type TestHelper struct {
	Container *TestContainer
	T         *testing.T
}

// NewTestHelper starts a container with default config. Skipped under -short.
func NewTestHelper(t *testing.T) *TestHelper {
	return NewTestHelperWithConfig(t, DefaultTestContainerConfig())
}

// NewTestHelperWithMigrations starts a container and applies the migrations
// under migrationsPath before handing it to the test.
func NewTestHelperWithMigrations(t *testing.T, migrationsPath string) *TestHelper {
	config := DefaultTestContainerConfig()
	config.MigrationsPath = migrationsPath
	return NewTestHelperWithConfig(t, config)
}

// NewTestHelperWithConfig starts a container with the given config.
func NewTestHelperWithConfig(t *testing.T, config TestContainerConfig) *TestHelper {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	container, err := NewTestContainer(context.Background(), config)
	if err != nil {
		t.Fatalf("failed to start test container: %v", err)
	}
	t.Cleanup(container.Close)

	return &TestHelper{Container: container, T: t}
}

// GetClient returns the connected client.
func (h *TestHelper) GetClient() PostgreSQLClient {
	return h.Container.Client
}

// ExecuteSQL runs a statement, failing the test on error.
func (h *TestHelper) ExecuteSQL(sql string, args ...any) {
	h.T.Helper()
	if _, err := h.Container.Client.Exec(context.Background(), sql, args...); err != nil {
		h.T.Fatalf("failed to execute sql: %v", err)
	}
}

// CleanupTables truncates all tables, failing the test on error.
func (h *TestHelper) CleanupTables() {
	h.T.Helper()
	if err := h.Container.TruncateAllTables(); err != nil {
		h.T.Fatalf("failed to truncate tables: %v", err)
	}
}
