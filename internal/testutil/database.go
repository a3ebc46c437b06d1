// Package testutil provides test database helpers and a fluent builder for
// seeding ledgers with users, assets and categories.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
	"github.com/Veraticus/shared-ledger/internal/storage"
)

// TestDB represents a migrated test database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database that is closed when the
// test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return setup(t, ":memory:")
}

// SetupFileDB creates a migrated database file in the test's temp dir. Use it
// when a test needs WAL behavior or several goroutines writing at once.
func SetupFileDB(t *testing.T) *TestDB {
	t.Helper()
	return setup(t, filepath.Join(t.TempDir(), "ledger.db"))
}

func setup(t *testing.T, path string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// WithTransaction executes fn within a database transaction that is always
// rolled back afterwards.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	ctx := context.Background()
	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

// MustAsset reloads an asset or fails the test.
func (db *TestDB) MustAsset(id int64) *model.Asset {
	db.t.Helper()
	asset, err := db.Storage.GetAsset(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load asset %d: %v", id, err)
	}
	if asset == nil {
		db.t.Fatalf("asset %d not found", id)
	}
	return asset
}

// CountRows returns the number of rows in table. table must be a literal
// table name.
func (db *TestDB) CountRows(table string) int {
	db.t.Helper()
	var n int
	if err := db.Storage.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		db.t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
