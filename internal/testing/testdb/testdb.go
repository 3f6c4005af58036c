// Package testdb provides isolated SurrealDB environments for integration tests.
//
// Each TestDB runs the real migrations in a fresh namespace so tests exercise
// actual schema assertions, unique indexes and transactions.
//
// Tests are skipped unless TEST_DB_HOST is set:
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//	    repo := repository.NewPlayerRepository(tdb.DB)
//	}
package testdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forgo/lootbound/api/internal/database"
)

// TestDB is a database connection scoped to a unique namespace
type TestDB struct {
	DB        database.Database
	Namespace string
	t         *testing.T
}

var (
	migrationOnce sync.Once
	migrations    []string
	migrationErr  error

	counter atomic.Int64
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func uniqueNamespace() string {
	return fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), counter.Add(1))
}

// migrationDir walks up from the working directory, then falls back to LOOTBOUND_ROOT
func migrationDir() string {
	for _, p := range []string{"migrations", "../migrations", "../../migrations", "../../../migrations"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if root := os.Getenv("LOOTBOUND_ROOT"); root != "" {
		return filepath.Join(root, "migrations")
	}
	return ""
}

func loadMigrations() ([]string, error) {
	migrationOnce.Do(func() {
		dir := migrationDir()
		if dir == "" {
			migrationErr = fmt.Errorf("could not find migrations directory")
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			migrationErr = fmt.Errorf("reading migrations dir: %w", err)
			return
		}

		var files []string
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".surql") {
				files = append(files, e.Name())
			}
		}
		sort.Strings(files)

		for _, name := range files {
			content, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				migrationErr = fmt.Errorf("reading %s: %w", name, err)
				return
			}
			migrations = append(migrations, string(content))
		}
	})
	return migrations, migrationErr
}

// New connects to the test server, applies migrations in a fresh namespace
// and registers cleanup. It skips the test when TEST_DB_HOST is unset.
func New(t *testing.T) *TestDB {
	t.Helper()

	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set; skipping SurrealDB integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	namespace := uniqueNamespace()
	db := database.NewSurrealDB(database.Config{
		Host:      host,
		Port:      envOr("TEST_DB_PORT", "8000"),
		User:      envOr("TEST_DB_USER", "root"),
		Password:  envOr("TEST_DB_PASSWORD", "root"),
		Namespace: namespace,
		Database:  "test",
	})
	if err := db.Connect(ctx); err != nil {
		t.Fatalf("testdb: failed to connect: %v", err)
	}

	tdb := &TestDB{DB: db, Namespace: namespace, t: t}
	t.Cleanup(tdb.Close)

	migs, err := loadMigrations()
	if err != nil {
		t.Fatalf("testdb: failed to load migrations: %v", err)
	}
	for i, mig := range migs {
		if err := db.Execute(ctx, mig, nil); err != nil {
			t.Fatalf("testdb: migration %d failed: %v", i+1, err)
		}
	}
	return tdb
}

// Close removes the namespace and closes the connection
func (tdb *TestDB) Close() {
	if tdb.DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = tdb.DB.Execute(ctx, fmt.Sprintf("REMOVE NAMESPACE %s", tdb.Namespace), nil)
	tdb.DB.Close()
	tdb.DB = nil
}

// MustExec executes a query and fails the test on error
func (tdb *TestDB) MustExec(ctx context.Context, query string, vars map[string]interface{}) {
	tdb.t.Helper()
	if err := tdb.DB.Execute(ctx, query, vars); err != nil {
		tdb.t.Fatalf("testdb: exec failed: %v\nQuery: %s", err, query)
	}
}
