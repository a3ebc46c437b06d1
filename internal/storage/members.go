package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/shared-ledger/internal/model"
)

// AddMember grants userID a role on the ledger. An existing membership is
// left untouched and reported as created=false, so concurrent accepts of
// the same invitation cannot produce a duplicate or an error.
func (s *queries) AddMember(ctx context.Context, ledgerID, userID int64, role model.Role) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if !role.Valid() {
		return false, fmt.Errorf("%w: unknown role %q", ErrInvalidInvite, role)
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledger_members (ledger_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)`,
		ledgerID, userID, role, utc(time.Now()))
	if err != nil {
		return false, classifyError("failed to add member", err)
	}
	return rowsAffected(result)
}

const memberSelect = `
	SELECT m.ledger_id, m.user_id, m.role, m.created_at, u.email, u.display_name
	FROM ledger_members m
	JOIN users u ON u.id = m.user_id`

func scanMember(row interface{ Scan(...any) error }) (*model.LedgerMember, error) {
	var m model.LedgerMember
	if err := row.Scan(&m.LedgerID, &m.UserID, &m.Role, &m.CreatedAt, &m.Email, &m.DisplayName); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMember returns the membership or nil when the user is not a member.
func (s *queries) GetMember(ctx context.Context, ledgerID, userID int64) (*model.LedgerMember, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m, err := scanMember(s.q.QueryRowContext(ctx,
		memberSelect+` WHERE m.ledger_id = ? AND m.user_id = ?`, ledgerID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query member: %w", err)
	}
	return m, nil
}

// FindMemberByEmail returns the member whose user has the given address.
func (s *queries) FindMemberByEmail(ctx context.Context, ledgerID int64, email string) (*model.LedgerMember, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m, err := scanMember(s.q.QueryRowContext(ctx,
		memberSelect+` WHERE m.ledger_id = ? AND u.email = ?`, ledgerID, NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query member: %w", err)
	}
	return m, nil
}

// ListMembers returns the ledger's members, owner first.
func (s *queries) ListMembers(ctx context.Context, ledgerID int64) ([]model.LedgerMember, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, memberSelect+`
		WHERE m.ledger_id = ?
		ORDER BY CASE m.role WHEN 'OWNER' THEN 0 WHEN 'EDITOR' THEN 1 ELSE 2 END, u.email`, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []model.LedgerMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}
