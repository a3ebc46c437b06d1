package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/shared-ledger/internal/model"
)

// CreateLedger inserts a ledger and fills in its ID and creation time.
func (s *queries) CreateLedger(ctx context.Context, ledger *model.Ledger) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLedger(ledger); err != nil {
		return err
	}

	now := utc(time.Now())
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO ledgers (name, currency_code, month_start_day, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ledger.Name, ledger.CurrencyCode, ledger.MonthStartDay, ledger.OwnerID, now)
	if err != nil {
		return classifyError("failed to create ledger", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ledger ID: %w", err)
	}

	ledger.ID = id
	ledger.CreatedAt = now

	slog.Debug("created ledger", "id", id, "name", ledger.Name)
	return nil
}

// GetLedger returns the ledger or nil when absent.
func (s *queries) GetLedger(ctx context.Context, id int64) (*model.Ledger, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var l model.Ledger
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, currency_code, month_start_day, owner_id, created_at
		FROM ledgers
		WHERE id = ?`, id).Scan(
		&l.ID, &l.Name, &l.CurrencyCode, &l.MonthStartDay, &l.OwnerID, &l.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	return &l, nil
}

// ListLedgersForUser returns every ledger the user is a member of.
func (s *queries) ListLedgersForUser(ctx context.Context, userID int64) ([]model.Ledger, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT l.id, l.name, l.currency_code, l.month_start_day, l.owner_id, l.created_at
		FROM ledgers l
		JOIN ledger_members m ON m.ledger_id = l.id
		WHERE m.user_id = ?
		ORDER BY l.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []model.Ledger
	for rows.Next() {
		var l model.Ledger
		if err := rows.Scan(&l.ID, &l.Name, &l.CurrencyCode, &l.MonthStartDay, &l.OwnerID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger: %w", err)
		}
		ledgers = append(ledgers, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledgers: %w", err)
	}
	return ledgers, nil
}
