package model

import "time"

// Role is a member's permission level on a ledger.
type Role string

// Ledger roles.
const (
	RoleOwner  Role = "OWNER"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the role may mutate ledger data and invite others.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleEditor
}

// LedgerMember grants a user a role on a ledger.
type LedgerMember struct {
	CreatedAt   time.Time
	Role        Role
	Email       string
	DisplayName string
	LedgerID    int64
	UserID      int64
}

// InvitationStatus tracks where an invitation is in its lifecycle.
type InvitationStatus string

// Invitation statuses. Everything except pending is terminal.
const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
	InvitationExpired  InvitationStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition may leave the status.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationAccepted || s == InvitationDeclined || s == InvitationExpired
}

// LedgerInvitation offers an email address a role on a ledger.
// The token is a bearer secret and must never be logged.
type LedgerInvitation struct {
	ExpiresAt   time.Time
	CreatedAt   time.Time
	RespondedAt *time.Time
	Email       string
	Role        Role
	Token       string
	Status      InvitationStatus
	ID          int64
	LedgerID    int64
	InvitedBy   int64
}

// IsExpired reports whether the invitation's expiry is at or before now.
// Listings treat the same instant as expired.
func (i *LedgerInvitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
