//go:build integration
// +build integration

// Package integration provides PocketBase-backed testing infrastructure
package integration

import (
	"fmt"
	"testing"

	"github.com/pocketbase/pocketbase/core"
	_ "github.com/pocketbase/pocketbase/migrations" // Import PocketBase system migrations

	"github.com/ericfisherdev/projectsync/migrations"
)

// TestDatabase manages the lifecycle of a test PocketBase instance
type TestDatabase struct {
	app core.App
}

// TestDatabaseConfig configures test database behavior
type TestDatabaseConfig struct {
	// AutoMigrate creates the sync collections on creation
	AutoMigrate bool
}

// DefaultTestConfig returns the default test configuration
func DefaultTestConfig() *TestDatabaseConfig {
	return &TestDatabaseConfig{
		AutoMigrate: true,
	}
}

// NewTestDatabase creates a new isolated PocketBase app in a temp directory
func NewTestDatabase(t *testing.T, config ...*TestDatabaseConfig) *TestDatabase {
	t.Helper()

	cfg := DefaultTestConfig()
	if len(config) > 0 && config[0] != nil {
		cfg = config[0]
	}

	app := core.NewBaseApp(core.BaseAppConfig{
		DataDir:          t.TempDir(),
		EncryptionEnv:    "pb_test_env",
		DataMaxOpenConns: core.DefaultDataMaxOpenConns,
		DataMaxIdleConns: core.DefaultDataMaxIdleConns,
		AuxMaxOpenConns:  core.DefaultAuxMaxOpenConns,
		AuxMaxIdleConns:  core.DefaultAuxMaxIdleConns,
		QueryTimeout:     core.DefaultQueryTimeout,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("Failed to bootstrap PocketBase app: %v", err)
	}

	if err := app.RunAllMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	if cfg.AutoMigrate {
		if err := migrations.EnsureCollections(app); err != nil {
			t.Fatalf("Failed to create sync collections: %v", err)
		}
	}

	db := &TestDatabase{app: app}
	t.Cleanup(func() {
		if err := app.ResetBootstrapState(); err != nil {
			t.Logf("Failed to reset PocketBase app: %v", err)
		}
	})
	return db
}

// App returns the PocketBase application instance
func (db *TestDatabase) App() core.App {
	return db.app
}

// Reset clears all sync collections while preserving the schema
func (db *TestDatabase) Reset() error {
	for _, c := range migrations.Definitions() {
		query := fmt.Sprintf("DELETE FROM {{%s}}", c.Name)
		if _, err := db.app.DB().NewQuery(query).Execute(); err != nil {
			return fmt.Errorf("failed to clear collection %s: %w", c.Name, err)
		}
	}
	return nil
}
