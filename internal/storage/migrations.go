package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Users, ledgers and membership",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS users (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					email TEXT UNIQUE NOT NULL,
					display_name TEXT NOT NULL,
					main_ledger_id INTEGER REFERENCES ledgers(id) ON DELETE SET NULL,
					created_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS ledgers (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					currency_code TEXT NOT NULL,
					month_start_day INTEGER NOT NULL DEFAULT 1
						CHECK (month_start_day BETWEEN 1 AND 28),
					owner_id INTEGER NOT NULL REFERENCES users(id),
					created_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS ledger_members (
					ledger_id INTEGER NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role TEXT NOT NULL CHECK (role IN ('OWNER', 'EDITOR', 'VIEWER')),
					created_at DATETIME NOT NULL,
					PRIMARY KEY (ledger_id, user_id)
				)`,
				`CREATE INDEX idx_ledger_members_user ON ledger_members(user_id)`,

				`CREATE TABLE IF NOT EXISTS ledger_invitations (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					ledger_id INTEGER NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
					invited_by INTEGER NOT NULL REFERENCES users(id),
					email TEXT NOT NULL,
					role TEXT NOT NULL CHECK (role IN ('OWNER', 'EDITOR', 'VIEWER')),
					token TEXT UNIQUE NOT NULL,
					status TEXT NOT NULL DEFAULT 'PENDING'
						CHECK (status IN ('PENDING', 'ACCEPTED', 'DECLINED', 'EXPIRED')),
					expires_at DATETIME NOT NULL,
					responded_at DATETIME,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_ledger_invitations_email_status ON ledger_invitations(email, status)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Asset groups, assets and categories",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS asset_groups (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					ledger_id INTEGER NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('ASSET', 'DEBT')),
					sort_order INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_asset_groups_ledger ON asset_groups(ledger_id, sort_order)`,

				`CREATE TABLE IF NOT EXISTS assets (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					ledger_id INTEGER NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
					group_id INTEGER REFERENCES asset_groups(id) ON DELETE SET NULL,
					name TEXT NOT NULL,
					kind TEXT NOT NULL,
					initial_balance INTEGER NOT NULL DEFAULT 0,
					current_balance INTEGER NOT NULL DEFAULT 0,
					include_in_net_worth INTEGER NOT NULL DEFAULT 1,
					billing_day INTEGER,
					payment_day INTEGER,
					payment_asset_id INTEGER REFERENCES assets(id) ON DELETE SET NULL,
					sort_order INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_assets_ledger ON assets(ledger_id, group_id, sort_order)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					ledger_id INTEGER NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
					parent_id INTEGER REFERENCES categories(id),
					name TEXT NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE')),
					sort_order INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_categories_scope ON categories(ledger_id, type, parent_id, sort_order)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Transactions, splits and tags",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					ledger_id INTEGER NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
					type TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE', 'TRANSFER')),
					amount INTEGER NOT NULL CHECK (amount > 0),
					date DATETIME NOT NULL,
					asset_id INTEGER NOT NULL REFERENCES assets(id),
					counter_asset_id INTEGER REFERENCES assets(id),
					memo TEXT NOT NULL DEFAULT '',
					external_id TEXT,
					created_by INTEGER NOT NULL REFERENCES users(id),
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_transactions_ledger_date ON transactions(ledger_id, date)`,
				`CREATE INDEX idx_transactions_asset ON transactions(asset_id)`,
				`CREATE INDEX idx_transactions_counter_asset ON transactions(counter_asset_id)`,
				`CREATE UNIQUE INDEX idx_transactions_external ON transactions(asset_id, external_id)
					WHERE external_id IS NOT NULL`,

				`CREATE TABLE IF NOT EXISTS transaction_splits (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					amount INTEGER NOT NULL CHECK (amount > 0),
					memo TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_transaction_splits_transaction ON transaction_splits(transaction_id)`,
				`CREATE INDEX idx_transaction_splits_category ON transaction_splits(category_id)`,

				`CREATE TABLE IF NOT EXISTS transaction_tags (
					transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
					tag TEXT NOT NULL,
					PRIMARY KEY (transaction_id, tag)
				)`,
			})
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
