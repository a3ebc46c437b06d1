package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
	"github.com/Veraticus/shared-ledger/internal/storage"
)

// normalizeEmail validates an address and returns its stored form.
func normalizeEmail(email string) (string, error) {
	normalized := storage.NormalizeEmail(email)
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", common.Validation(common.CodeInvalidEmail, "%q is not a valid email address", strings.TrimSpace(email))
	}
	return normalized, nil
}

// CreateInvitation offers email a role on the ledger. The invitation is
// committed before the notifier runs; a delivery failure is logged and the
// invitation stands.
func (e *Engine) CreateInvitation(ctx context.Context, actor, ledgerID int64, email string, role model.Role) (*model.LedgerInvitation, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, common.Validation(common.CodeInvalidEnum, "unknown role %q", role)
	}

	token, err := e.newToken()
	if err != nil {
		return nil, err
	}

	var (
		invitation  *model.LedgerInvitation
		ledgerName  string
		inviterName string
	)
	err = e.inTx(ctx, func(tx service.Transaction) error {
		ledger, member, err := requireMember(ctx, tx, ledgerID, actor, true)
		if err != nil {
			return err
		}

		existing, err := tx.FindMemberByEmail(ctx, ledgerID, email)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if existing != nil {
			return common.Conflict(common.CodeAlreadyMember, "%s is already a member of %q", email, ledger.Name)
		}

		now := e.now()
		invitation = &model.LedgerInvitation{
			LedgerID:  ledgerID,
			InvitedBy: actor,
			Email:     email,
			Role:      role,
			Token:     token,
			Status:    model.InvitationPending,
			CreatedAt: now,
			ExpiresAt: now.Add(e.config.InvitationTTL),
		}
		if err := tx.CreateInvitation(ctx, invitation); err != nil {
			return fmt.Errorf("failed to store invitation: %w", err)
		}

		ledgerName = ledger.Name
		inviterName = member.DisplayName
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created invitation",
		"invitation_id", invitation.ID,
		"ledger_id", ledgerID,
		"email", email,
		"role", role)

	if e.notifier != nil {
		if notifyErr := e.notifier.SendLedgerInvitationEmail(ctx, email, inviterName, ledgerName, token); notifyErr != nil {
			slog.Warn("failed to send invitation email",
				"invitation_id", invitation.ID,
				"email", email,
				"error", notifyErr)
		}
	}

	return invitation, nil
}

// RespondToInvitation accepts or declines the invitation holding token.
//
// A non-pending invitation is reported as already responded before expiry is
// considered. A pending invitation past its expiry is moved to EXPIRED and
// that write is committed even though the call returns an expired error.
func (e *Engine) RespondToInvitation(ctx context.Context, token string, actor int64, accept bool) (*model.LedgerInvitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, common.Validation(common.CodeMissingField, "invitation token is required")
	}

	var (
		invitation *model.LedgerInvitation
		expired    bool
	)
	err := e.inTx(ctx, func(tx service.Transaction) error {
		inv, err := tx.GetInvitationByToken(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to load invitation: %w", err)
		}
		if inv == nil {
			return common.NotFound(common.CodeInvitationNotFound, "invitation not found")
		}
		if inv.Status != model.InvitationPending {
			return alreadyResponded(inv)
		}

		now := e.now()
		if inv.IsExpired(now) {
			if err := transition(ctx, tx, inv, model.InvitationExpired, now); err != nil {
				return err
			}
			invitation = inv
			expired = true
			return nil
		}

		user, err := tx.GetUserByID(ctx, actor)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		if user == nil {
			return common.NotFound(common.CodeUserNotFound, "user %d not found", actor)
		}
		if storage.NormalizeEmail(user.Email) != storage.NormalizeEmail(inv.Email) {
			return common.Forbidden(common.CodeEmailMismatch, "this invitation was sent to a different address")
		}

		if !accept {
			if err := transition(ctx, tx, inv, model.InvitationDeclined, now); err != nil {
				return err
			}
			invitation = inv
			return nil
		}

		if err := transition(ctx, tx, inv, model.InvitationAccepted, now); err != nil {
			return err
		}

		role := inv.Role
		if role == model.RoleOwner {
			role = model.RoleEditor
		}
		if _, err := tx.AddMember(ctx, inv.LedgerID, actor, role); err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		invitation = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired {
		slog.Info("invitation expired on response", "invitation_id", invitation.ID, "ledger_id", invitation.LedgerID)
		return nil, common.Expired(common.CodeInvitationExpired, "invitation expired on %s", invitation.ExpiresAt.Format("2006-01-02"))
	}

	slog.Info("invitation responded",
		"invitation_id", invitation.ID,
		"ledger_id", invitation.LedgerID,
		"user_id", actor,
		"status", invitation.Status)
	return invitation, nil
}

func alreadyResponded(inv *model.LedgerInvitation) error {
	return common.Conflict(common.CodeAlreadyResponded, "invitation has already been processed (%s)", strings.ToLower(string(inv.Status)))
}

// transition moves inv out of PENDING. Losing the compare-and-set to a
// concurrent response is reported as already responded.
func transition(ctx context.Context, tx service.Transaction, inv *model.LedgerInvitation, to model.InvitationStatus, at time.Time) error {
	changed, err := tx.TransitionInvitation(ctx, inv.ID, to, at)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	if !changed {
		return alreadyResponded(inv)
	}
	inv.Status = to
	inv.RespondedAt = &at
	return nil
}

// RevokeInvitation deletes an invitation whatever its status.
func (e *Engine) RevokeInvitation(ctx context.Context, actor, invitationID int64) error {
	err := e.inTx(ctx, func(tx service.Transaction) error {
		inv, err := tx.GetInvitationByID(ctx, invitationID)
		if err != nil {
			return fmt.Errorf("failed to load invitation: %w", err)
		}
		if inv == nil {
			return common.NotFound(common.CodeInvitationNotFound, "invitation %d not found", invitationID)
		}
		if _, _, err := requireMember(ctx, tx, inv.LedgerID, actor, true); err != nil {
			return err
		}
		return tx.DeleteInvitation(ctx, invitationID)
	})
	if err != nil {
		return err
	}

	slog.Info("revoked invitation", "invitation_id", invitationID, "user_id", actor)
	return nil
}

// ListPendingInvitationsForEmail returns invitations that can still be
// answered. Expired rows are hidden even while they remain PENDING.
func (e *Engine) ListPendingInvitationsForEmail(ctx context.Context, email string) ([]model.LedgerInvitation, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	invitations, err := e.storage.ListPendingInvitationsForEmail(ctx, email, e.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// ListMembers returns the ledger's members for any member to read.
func (e *Engine) ListMembers(ctx context.Context, actor, ledgerID int64) ([]model.LedgerMember, error) {
	if _, _, err := requireMember(ctx, e.storage, ledgerID, actor, false); err != nil {
		return nil, err
	}

	members, err := e.storage.ListMembers(ctx, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
