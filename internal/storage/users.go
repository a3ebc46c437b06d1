package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/shared-ledger/internal/model"
)

const userColumns = `id, email, display_name, main_ledger_id, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u          model.User
		mainLedger sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &mainLedger, &u.CreatedAt); err != nil {
		return nil, err
	}
	if mainLedger.Valid {
		id := mainLedger.Int64
		u.MainLedgerID = &id
	}
	return &u, nil
}

// CreateUser inserts a user. The email is stored normalized.
func (s *queries) CreateUser(ctx context.Context, email, displayName string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(email, "email"); err != nil {
		return nil, err
	}
	if err := validateString(displayName, "displayName"); err != nil {
		return nil, err
	}

	now := utc(time.Now())
	email = NormalizeEmail(email)

	result, err := s.q.ExecContext(ctx,
		`INSERT INTO users (email, display_name, created_at) VALUES (?, ?, ?)`,
		email, displayName, now)
	if err != nil {
		return nil, classifyError("failed to create user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}

	return &model.User{ID: id, Email: email, DisplayName: displayName, CreatedAt: now}, nil
}

// GetUserByID returns the user or nil when absent.
func (s *queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the user with the given address or nil when absent.
func (s *queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(email, "email"); err != nil {
		return nil, err
	}

	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// SetMainLedger records the user's single main ledger.
func (s *queries) SetMainLedger(ctx context.Context, userID, ledgerID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx,
		`UPDATE users SET main_ledger_id = ? WHERE id = ?`, ledgerID, userID)
	if err != nil {
		return classifyError("failed to set main ledger", err)
	}
	return nil
}
