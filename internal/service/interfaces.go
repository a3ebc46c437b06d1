// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/shared-ledger/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AssetID   *int64
	LedgerID  int64
	Limit     int
	Offset    int
}

// OrderUpdate assigns an ordinal to one reorderable row.
type OrderUpdate struct {
	ID    int64
	Order int
}

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, email, displayName string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SetMainLedger(ctx context.Context, userID, ledgerID int64) error
}

// LedgerStore persists ledgers.
type LedgerStore interface {
	CreateLedger(ctx context.Context, ledger *model.Ledger) error
	GetLedger(ctx context.Context, id int64) (*model.Ledger, error)
	ListLedgersForUser(ctx context.Context, userID int64) ([]model.Ledger, error)
}

// AccountStore owns asset groups, assets and their balances.
type AccountStore interface {
	CreateAssetGroup(ctx context.Context, group *model.AssetGroup) error
	GetAssetGroup(ctx context.Context, id int64) (*model.AssetGroup, error)
	ListAssetGroups(ctx context.Context, ledgerID int64) ([]model.AssetGroup, error)
	DeleteAssetGroup(ctx context.Context, id int64) error

	CreateAsset(ctx context.Context, asset *model.Asset) error
	GetAsset(ctx context.Context, id int64) (*model.Asset, error)
	ListAssets(ctx context.Context, ledgerID int64) ([]model.Asset, error)
	UpdateAsset(ctx context.Context, asset *model.Asset) error
	AdjustAssetBalance(ctx context.Context, assetID, delta int64) error

	UpdateAssetGroupOrder(ctx context.Context, ledgerID int64, update OrderUpdate) (bool, error)
	UpdateAssetOrder(ctx context.Context, ledgerID int64, update OrderUpdate) (bool, error)
}

// CategoryStore owns the income and expense category trees.
type CategoryStore interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context, ledgerID int64) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	CountChildCategories(ctx context.Context, id int64) (int, error)
	DeleteCategory(ctx context.Context, id int64) error
	UpdateCategoryOrder(ctx context.Context, ledgerID int64, update OrderUpdate) (bool, error)
}

// MembershipStore owns ledger members and invitations.
type MembershipStore interface {
	AddMember(ctx context.Context, ledgerID, userID int64, role model.Role) (created bool, err error)
	GetMember(ctx context.Context, ledgerID, userID int64) (*model.LedgerMember, error)
	ListMembers(ctx context.Context, ledgerID int64) ([]model.LedgerMember, error)
	FindMemberByEmail(ctx context.Context, ledgerID int64, email string) (*model.LedgerMember, error)

	CreateInvitation(ctx context.Context, invitation *model.LedgerInvitation) error
	GetInvitationByID(ctx context.Context, id int64) (*model.LedgerInvitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*model.LedgerInvitation, error)
	TransitionInvitation(ctx context.Context, id int64, to model.InvitationStatus, respondedAt time.Time) (bool, error)
	DeleteInvitation(ctx context.Context, id int64) error
	ListPendingInvitationsForEmail(ctx context.Context, email string, now time.Time) ([]model.LedgerInvitation, error)
}

// TransactionStore owns transaction rows, their splits and tags.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	ReplaceTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ExternalIDExists(ctx context.Context, assetID int64, externalID string) (bool, error)
	SumAssetContributions(ctx context.Context, assetID int64) (int64, error)
}

// Queries is everything that can be read or written, inside or outside of
// a database transaction.
type Queries interface {
	UserStore
	LedgerStore
	AccountStore
	CategoryStore
	MembershipStore
	TransactionStore
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	Queries

	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Queries

	Commit() error
	Rollback() error
}

// EmailNotifier delivers invitation messages. Delivery is fire-and-forget
// from the caller's perspective.
type EmailNotifier interface {
	SendLedgerInvitationEmail(ctx context.Context, toEmail, inviterDisplayName, ledgerName, token string) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// BalanceDrift reports an asset whose stored balance disagrees with the
// balance recomputed from its transactions.
type BalanceDrift struct {
	AssetName string
	AssetID   int64
	Expected  int64
	Actual    int64
}
