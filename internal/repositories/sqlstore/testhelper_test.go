package sqlstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/infrastructure/config"
	"github.com/flockhq/flock/internal/infrastructure/database"
	"github.com/flockhq/flock/internal/schemas"
	"github.com/flockhq/flock/internal/services/parser"
)

// testStore is an isolated database with the church schema provisioned
type testStore struct {
	db      *sql.DB
	dialect Dialect
	schema  *entities.Schema
}

// forEachDialect runs fn against sqlite, and against postgres when
// FLOCK_TEST_POSTGRES=1 and the DB_* variables point at a server
func forEachDialect(t *testing.T, fn func(t *testing.T, s *testStore)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		fn(t, setupTestStore(t, &config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "flock.db"),
		}))
	})

	t.Run("postgres", func(t *testing.T) {
		if os.Getenv("FLOCK_TEST_POSTGRES") != "1" {
			t.Skip("set FLOCK_TEST_POSTGRES=1 to run against PostgreSQL")
		}
		if err := config.InitConfig("test"); err != nil {
			t.Fatalf("Failed to init config: %v", err)
		}
		cfg, err := config.Load()
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		fn(t, setupTestStore(t, &cfg.Database))
	})
}

func setupTestStore(t *testing.T, cfg *config.DatabaseConfig) *testStore {
	t.Helper()

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	s := &testStore{db: db.DB, dialect: DialectFor(db.Driver), schema: churchSchema(t)}
	cleanup(t, s)
	t.Cleanup(func() {
		cleanup(t, s)
		db.Close()
	})

	if err := NewSchemaRepository(s.db, s.dialect).Provision(context.Background(), s.schema); err != nil {
		t.Fatalf("Failed to provision schema: %v", err)
	}
	return s
}

// cleanup drops model tables and empties system tables
func cleanup(t *testing.T, s *testStore) {
	t.Helper()

	ordered, err := dependencyOrder(s.schema)
	if err != nil {
		t.Fatalf("Failed to order models: %v", err)
	}
	for i := len(ordered) - 1; i >= 0; i-- {
		if _, err := s.db.Exec("DROP TABLE IF EXISTS " + s.dialect.Quote(TableName(ordered[i].Name))); err != nil {
			t.Logf("Warning: Failed to drop table for %s: %v", ordered[i].Name, err)
		}
	}
	for _, table := range []string{"flock_api_keys", "flock_schemas"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}
}

func churchSchema(t *testing.T) *entities.Schema {
	t.Helper()

	ast, err := parser.Parse(schemas.Church())
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	schema, err := parser.ASTToSchema(ast)
	if err != nil {
		t.Fatalf("convert error: %v", err)
	}
	return schema
}
