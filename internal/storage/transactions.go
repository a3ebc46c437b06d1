package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

const transactionColumns = `id, ledger_id, type, amount, date, asset_id, counter_asset_id, memo, external_id, created_by, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	var (
		txn        model.Transaction
		counter    sql.NullInt64
		externalID sql.NullString
	)
	err := row.Scan(&txn.ID, &txn.LedgerID, &txn.Type, &txn.Amount, &txn.Date, &txn.AssetID,
		&counter, &txn.Memo, &externalID, &txn.CreatedBy, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}
	if counter.Valid {
		id := counter.Int64
		txn.CounterAssetID = &id
	}
	txn.ExternalID = externalID.String
	return &txn, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InsertTransaction writes the transaction row together with its splits
// and tags. Balances are not touched here.
func (s *queries) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	txn.Date = utc(txn.Date)
	txn.CreatedAt = utc(txn.CreatedAt)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.LedgerID, txn.Type, txn.Amount, txn.Date, txn.AssetID,
		nullableID(txn.CounterAssetID), txn.Memo, nullableString(txn.ExternalID),
		txn.CreatedBy, txn.CreatedAt)
	if err != nil {
		return classifyError("failed to insert transaction", err)
	}

	if err := s.insertDetails(ctx, txn); err != nil {
		return err
	}

	slog.Debug("inserted transaction", "id", txn.ID, "type", txn.Type, "amount", txn.Amount, "splits", len(txn.Splits))
	return nil
}

// ReplaceTransaction overwrites an existing row and its splits and tags.
func (s *queries) ReplaceTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	txn.Date = utc(txn.Date)

	result, err := s.q.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, amount = ?, date = ?, asset_id = ?, counter_asset_id = ?, memo = ?, external_id = ?
		WHERE id = ?`,
		txn.Type, txn.Amount, txn.Date, txn.AssetID, nullableID(txn.CounterAssetID),
		txn.Memo, nullableString(txn.ExternalID), txn.ID)
	if err != nil {
		return classifyError("failed to update transaction", err)
	}
	changed, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("transaction %s: %w", txn.ID, sql.ErrNoRows)
	}

	if _, err := s.q.ExecContext(ctx, `DELETE FROM transaction_splits WHERE transaction_id = ?`, txn.ID); err != nil {
		return classifyError("failed to clear splits", err)
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, txn.ID); err != nil {
		return classifyError("failed to clear tags", err)
	}
	return s.insertDetails(ctx, txn)
}

func (s *queries) insertDetails(ctx context.Context, txn *model.Transaction) error {
	for i := range txn.Splits {
		split := &txn.Splits[i]
		split.TransactionID = txn.ID
		result, err := s.q.ExecContext(ctx, `
			INSERT INTO transaction_splits (transaction_id, category_id, amount, memo)
			VALUES (?, ?, ?, ?)`,
			txn.ID, split.CategoryID, split.Amount, split.Memo)
		if err != nil {
			return classifyError("failed to insert split", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get split ID: %w", err)
		}
		split.ID = id
	}

	for _, tag := range txn.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, err := s.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO transaction_tags (transaction_id, tag) VALUES (?, ?)`,
			txn.ID, tag); err != nil {
			return classifyError("failed to insert tag", err)
		}
	}
	return nil
}

// loadDetails fills in splits and tags. It must not be called while a
// result set on the same connection is still open.
func (s *queries) loadDetails(ctx context.Context, txn *model.Transaction) error {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, transaction_id, category_id, amount, memo
		FROM transaction_splits
		WHERE transaction_id = ?
		ORDER BY id`, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to query splits: %w", err)
	}
	txn.Splits = nil
	for rows.Next() {
		var split model.TransactionSplit
		if err := rows.Scan(&split.ID, &split.TransactionID, &split.CategoryID, &split.Amount, &split.Memo); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan split: %w", err)
		}
		txn.Splits = append(txn.Splits, split)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("error iterating splits: %w", err)
	}
	_ = rows.Close()

	tagRows, err := s.q.QueryContext(ctx,
		`SELECT tag FROM transaction_tags WHERE transaction_id = ? ORDER BY tag`, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to query tags: %w", err)
	}
	defer func() { _ = tagRows.Close() }()

	txn.Tags = nil
	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return fmt.Errorf("failed to scan tag: %w", err)
		}
		txn.Tags = append(txn.Tags, tag)
	}
	return tagRows.Err()
}

// GetTransaction returns the transaction with splits and tags, or nil when absent.
func (s *queries) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	txn, err := scanTransaction(s.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}

	if err := s.loadDetails(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns a ledger's transactions newest first. An asset
// filter matches either side of a transfer.
func (s *queries) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(filter.LedgerID, "ledger"); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ledger_id = ?`
	args := []any{filter.LedgerID}

	if filter.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, utc(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query += " AND date < ?"
		args = append(args, utc(*filter.EndDate))
	}
	if filter.AssetID != nil {
		query += " AND (asset_id = ? OR counter_asset_id = ?)"
		args = append(args, *filter.AssetID, *filter.AssetID)
	}

	query += " ORDER BY date DESC, created_at DESC, id"

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	_ = rows.Close()

	for i := range transactions {
		if err := s.loadDetails(ctx, &transactions[i]); err != nil {
			return nil, err
		}
	}

	slog.Debug("retrieved transactions", "ledger_id", filter.LedgerID, "count", len(transactions))
	return transactions, nil
}

// DeleteTransaction removes the row; splits and tags cascade.
func (s *queries) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return classifyError("failed to delete transaction", err)
	}
	changed, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("transaction %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// ExternalIDExists reports whether an import identifier was already used on the asset.
func (s *queries) ExternalIDExists(ctx context.Context, assetID int64, externalID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE asset_id = ? AND external_id = ?)`,
		assetID, externalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check external id: %w", err)
	}
	return exists, nil
}

// SumAssetContributions recomputes the net effect every stored transaction
// has on the asset's balance.
func (s *queries) SumAssetContributions(ctx context.Context, assetID int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var sum int64
	err := s.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(
			CASE
				WHEN asset_id = ? AND type = 'INCOME' THEN amount
				WHEN asset_id = ? THEN -amount
				ELSE amount
			END), 0)
		FROM transactions
		WHERE asset_id = ? OR (type = 'TRANSFER' AND counter_asset_id = ?)`,
		assetID, assetID, assetID, assetID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum contributions: %w", err)
	}
	return sum, nil
}
