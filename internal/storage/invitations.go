package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/shared-ledger/internal/model"
)

const invitationColumns = `id, ledger_id, invited_by, email, role, token, status, expires_at, responded_at, created_at`

func scanInvitation(row interface{ Scan(...any) error }) (*model.LedgerInvitation, error) {
	var (
		inv       model.LedgerInvitation
		responded sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.LedgerID, &inv.InvitedBy, &inv.Email, &inv.Role, &inv.Token,
		&inv.Status, &inv.ExpiresAt, &responded, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if responded.Valid {
		t := responded.Time
		inv.RespondedAt = &t
	}
	return &inv, nil
}

// CreateInvitation inserts an invitation and fills in its ID.
func (s *queries) CreateInvitation(ctx context.Context, invitation *model.LedgerInvitation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInvitation(invitation); err != nil {
		return err
	}

	if invitation.Status == "" {
		invitation.Status = model.InvitationPending
	}
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = time.Now()
	}
	invitation.Email = NormalizeEmail(invitation.Email)
	invitation.CreatedAt = utc(invitation.CreatedAt)
	invitation.ExpiresAt = utc(invitation.ExpiresAt)

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO ledger_invitations (ledger_id, invited_by, email, role, token, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		invitation.LedgerID, invitation.InvitedBy, invitation.Email, invitation.Role,
		invitation.Token, invitation.Status, invitation.ExpiresAt, invitation.CreatedAt)
	if err != nil {
		return classifyError("failed to create invitation", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invitation ID: %w", err)
	}
	invitation.ID = id
	return nil
}

// GetInvitationByID returns the invitation or nil when absent.
func (s *queries) GetInvitationByID(ctx context.Context, id int64) (*model.LedgerInvitation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	inv, err := scanInvitation(s.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM ledger_invitations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invitation: %w", err)
	}
	return inv, nil
}

// GetInvitationByToken returns the invitation holding token or nil when absent.
func (s *queries) GetInvitationByToken(ctx context.Context, token string) (*model.LedgerInvitation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(token, "token"); err != nil {
		return nil, err
	}

	inv, err := scanInvitation(s.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM ledger_invitations WHERE token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invitation: %w", err)
	}
	return inv, nil
}

// TransitionInvitation moves a pending invitation to a terminal status. It
// reports false when the row was no longer pending, which means another
// response won the race.
func (s *queries) TransitionInvitation(ctx context.Context, id int64, to model.InvitationStatus, respondedAt time.Time) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if !to.IsTerminal() {
		return false, fmt.Errorf("%w: cannot transition to %q", ErrInvalidInvite, to)
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE ledger_invitations
		SET status = ?, responded_at = ?
		WHERE id = ? AND status = ?`,
		to, utc(respondedAt), id, model.InvitationPending)
	if err != nil {
		return false, classifyError("failed to update invitation", err)
	}
	return rowsAffected(result)
}

// DeleteInvitation removes the invitation whatever its status.
func (s *queries) DeleteInvitation(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.q.ExecContext(ctx, `DELETE FROM ledger_invitations WHERE id = ?`, id); err != nil {
		return classifyError("failed to delete invitation", err)
	}
	return nil
}

// ListPendingInvitationsForEmail returns pending invitations addressed to
// email that have not yet expired at now. Rows that are pending but past
// their expiry are filtered out without being rewritten.
func (s *queries) ListPendingInvitationsForEmail(ctx context.Context, email string, now time.Time) ([]model.LedgerInvitation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(email, "email"); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+invitationColumns+`
		FROM ledger_invitations
		WHERE email = ? AND status = ? AND expires_at > ?
		ORDER BY created_at, id`,
		NormalizeEmail(email), model.InvitationPending, utc(now))
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []model.LedgerInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}
	return invitations, nil
}
